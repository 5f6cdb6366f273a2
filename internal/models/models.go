package models

import (
	"time"
)

// AccountProfile represents a GitHub account as returned by the users API
type AccountProfile struct {
	ID          int64     `json:"id" yaml:"id"`
	Login       string    `json:"login" yaml:"login"`
	Name        string    `json:"name" yaml:"name"`
	AvatarURL   string    `json:"avatar_url" yaml:"avatar_url"`
	Bio         string    `json:"bio" yaml:"bio"`
	PublicRepos int       `json:"public_repos" yaml:"public_repos"`
	Followers   int       `json:"followers" yaml:"followers"`
	Following   int       `json:"following" yaml:"following"`
	HTMLURL     string    `json:"html_url" yaml:"html_url"`
	Location    string    `json:"location,omitempty" yaml:"location,omitempty"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// Repository represents a GitHub repository
type Repository struct {
	ID              int64    `json:"id" yaml:"id"`
	Name            string   `json:"name" yaml:"name"`
	FullName        string   `json:"full_name" yaml:"full_name"`
	Description     string   `json:"description" yaml:"description"`
	StargazersCount int      `json:"stargazers_count" yaml:"stargazers_count"`
	Language        string   `json:"language,omitempty" yaml:"language,omitempty"` // empty when GitHub reports null
	HTMLURL         string   `json:"html_url" yaml:"html_url"`
	Topics          []string `json:"topics" yaml:"topics"`
	ForksCount      int      `json:"forks_count" yaml:"forks_count"`
}

// MatchRecord is one entry of the developer feed: an account that starred
// several of the same repositories as the seed account.
type MatchRecord struct {
	Username    string       `json:"username" yaml:"username"`
	Avatar      string       `json:"avatar" yaml:"avatar"`
	SharedRepos int          `json:"shared_repos" yaml:"shared_repos"`
	Personality string       `json:"personality" yaml:"personality"`
	GitHubURL   string       `json:"github_url" yaml:"github_url"`
	Bio         string       `json:"bio,omitempty" yaml:"bio,omitempty"`
	Languages   []string     `json:"languages,omitempty" yaml:"languages,omitempty"`
	TopRepos    []Repository `json:"top_repos,omitempty" yaml:"top_repos,omitempty"`
}

// Outcome describes how a discovery pass ended
type Outcome string

const (
	// OutcomeFound - at least one match was discovered
	OutcomeFound Outcome = "found"
	// OutcomeEmpty - the pass completed and nothing qualified
	OutcomeEmpty Outcome = "empty"
	// OutcomeFallback - the pass failed and the fixed sample feed was substituted
	OutcomeFallback Outcome = "fallback"
)

// DiscoveryResult is the outcome of one full discovery pass
type DiscoveryResult struct {
	RunID        string        `json:"run_id" yaml:"run_id"`
	Outcome      Outcome       `json:"outcome" yaml:"outcome"`
	Matches      []MatchRecord `json:"developers" yaml:"developers"`
	ReposScanned int           `json:"repos_scanned" yaml:"repos_scanned"`
	ReposSkipped int           `json:"repos_skipped" yaml:"repos_skipped"`
	Err          error         `json:"-" yaml:"-"`
	FinishedAt   time.Time     `json:"finished_at" yaml:"finished_at"`
}

// FailureMessage returns the cause of a fallback result, empty otherwise
func (r DiscoveryResult) FailureMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
