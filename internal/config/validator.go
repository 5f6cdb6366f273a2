package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err))
	}

	if len(vr.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  - %s\n", warn))
		}
	}

	return sb.String()
}

// Validate checks the loaded configuration
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{Valid: true}

	u, err := url.Parse(c.GitHub.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		result.AddError("github.base_url must be an absolute http(s) URL, got %q", c.GitHub.BaseURL)
	}
	if c.GitHub.RateLimit < 0 {
		result.AddError("github.rate_limit cannot be negative")
	}
	if c.GitHub.Timeout < 0 {
		result.AddError("github.timeout cannot be negative")
	}

	d := c.Discovery
	for name, value := range map[string]int{
		"discovery.top_repos":           d.TopRepos,
		"discovery.stargazers_per_repo": d.StargazersPerRepo,
		"discovery.min_shared":          d.MinShared,
		"discovery.max_users":           d.MaxUsers,
		"discovery.max_starred":         d.MaxStarred,
		"discovery.profile_repos":       d.ProfileRepos,
	} {
		if value <= 0 {
			result.AddError("%s must be positive, got %d", name, value)
		}
	}
	if d.StargazersPerRepo > 100 {
		result.AddError("discovery.stargazers_per_repo cannot exceed the API page size of 100")
	}
	if d.MinShared == 1 {
		result.AddWarning("discovery.min_shared=1 lists every stargazer of your top repositories")
	}

	switch c.Session.TokenStore {
	case "auto", "keyring":
	case "bolt":
		if c.Session.BoltPath == "" {
			result.AddError("session.bolt_path is required when session.token_store is bolt")
		}
	default:
		result.AddError("session.token_store must be auto, keyring or bolt, got %q", c.Session.TokenStore)
	}

	if c.Server.Addr == "" {
		result.AddError("server.addr cannot be empty")
	}

	return result
}
