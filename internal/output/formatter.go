package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/stackmates/stackmates/internal/discovery"
	"github.com/stackmates/stackmates/internal/models"
	"github.com/stackmates/stackmates/internal/session"
)

// Format selects how command results are rendered
type Format string

const (
	FormatText Format = "text" // human-readable, default
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a --output flag value
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// Feed is the rendered form of one discovery pass
type Feed struct {
	RunID        string               `json:"run_id" yaml:"run_id"`
	Outcome      models.Outcome       `json:"outcome" yaml:"outcome"`
	Message      string               `json:"message,omitempty" yaml:"message,omitempty"`
	ReposScanned int                  `json:"repos_scanned" yaml:"repos_scanned"`
	ReposSkipped int                  `json:"repos_skipped" yaml:"repos_skipped"`
	Developers   []models.MatchRecord `json:"developers" yaml:"developers"`
}

// FeedFromResult converts a discovery result for display
func FeedFromResult(r models.DiscoveryResult) Feed {
	developers := r.Matches
	if developers == nil {
		developers = []models.MatchRecord{}
	}
	return Feed{
		RunID:        r.RunID,
		Outcome:      r.Outcome,
		Message:      r.FailureMessage(),
		ReposScanned: r.ReposScanned,
		ReposSkipped: r.ReposSkipped,
		Developers:   developers,
	}
}

// SessionView is the rendered form of `whoami`
type SessionView struct {
	session.Snapshot `yaml:",inline"`
	Token            string `json:"token" yaml:"token"` // masked
}

// Formatter renders command results
type Formatter interface {
	Feed(w io.Writer, feed Feed) error
	Profile(w io.Writer, profile *discovery.Profile) error
	Users(w io.Writer, users []models.AccountProfile) error
	Session(w io.Writer, view SessionView) error
}

// NewFormatter creates the formatter for format
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &StructuredFormatter{encode: encodeJSON}
	case FormatYAML:
		return &StructuredFormatter{encode: encodeYAML}
	default:
		return &TextFormatter{}
	}
}
