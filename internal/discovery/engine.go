// Package discovery finds accounts that starred the same repositories as a
// seed account and turns them into feed entries.
package discovery

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/stackmates/stackmates/internal/models"
)

// StargazerSource lists accounts that starred a repository
type StargazerSource interface {
	GetStargazers(ctx context.Context, fullName string, pageSize int) ([]models.AccountProfile, error)
}

// Options tunes a discovery pass
type Options struct {
	TopRepos          int // seed repositories scanned, by star count
	StargazersPerRepo int // stargazers requested per repository
	MinShared         int // minimum co-occurrence count to qualify
	MaxUsers          int // default cap on returned matches
}

// DefaultOptions returns the standard feed settings
func DefaultOptions() Options {
	return Options{
		TopRepos:          10,
		StargazersPerRepo: 30,
		MinShared:         2,
		MaxUsers:          50,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TopRepos <= 0 {
		o.TopRepos = d.TopRepos
	}
	if o.StargazersPerRepo <= 0 {
		o.StargazersPerRepo = d.StargazersPerRepo
	}
	if o.MinShared <= 0 {
		o.MinShared = d.MinShared
	}
	if o.MaxUsers <= 0 {
		o.MaxUsers = d.MaxUsers
	}
	return o
}

// Stats describes the work done by one pass
type Stats struct {
	ReposScanned int
	ReposSkipped int
	Candidates   int // distinct stargazers seen
}

// Engine ranks co-stargazers of a seed account's top starred repositories
type Engine struct {
	source   StargazerSource
	narrator *Narrator
	opts     Options
	logger   logrus.FieldLogger
}

// NewEngine creates an engine. Zero-valued options take their defaults.
func NewEngine(source StargazerSource, narrator *Narrator, opts Options, logger logrus.FieldLogger) *Engine {
	if narrator == nil {
		narrator = NewRandomNarrator()
	}
	return &Engine{
		source:   source,
		narrator: narrator,
		opts:     opts.withDefaults(),
		logger:   logger.WithField("component", "discovery"),
	}
}

// Options returns the effective options
func (e *Engine) Options() Options {
	return e.opts
}

// tally is the running co-occurrence record for one stargazer
type tally struct {
	profile models.AccountProfile
	count   int
	repos   []models.Repository
	seen    map[string]bool // full names already counted
}

// FindSimilar scans the top starred repositories one at a time and returns
// accounts seen on at least MinShared of them, most overlap first.
// maxUsers <= 0 uses the engine default. A failing repository is skipped;
// a cancelled context ends the scan and the partial tally is used.
func (e *Engine) FindSimilar(ctx context.Context, starred []models.Repository, maxUsers int) ([]models.MatchRecord, Stats) {
	if maxUsers <= 0 {
		maxUsers = e.opts.MaxUsers
	}

	var stats Stats
	seen := make(map[string]*tally)
	var order []*tally

	for _, repo := range TopRepos(starred, e.opts.TopRepos) {
		if ctx.Err() != nil {
			e.logger.WithError(ctx.Err()).Warn("discovery interrupted")
			break
		}

		stargazers, err := e.source.GetStargazers(ctx, repo.FullName, e.opts.StargazersPerRepo)
		if err != nil {
			stats.ReposSkipped++
			e.logger.WithError(err).WithField("repo", repo.FullName).Warn("failed to fetch stargazers")
			continue
		}
		stats.ReposScanned++

		for _, stargazer := range stargazers {
			t, ok := seen[stargazer.Login]
			if !ok {
				t = &tally{profile: stargazer, seen: make(map[string]bool)}
				seen[stargazer.Login] = t
				order = append(order, t)
			}
			if t.seen[repo.FullName] {
				continue
			}
			t.seen[repo.FullName] = true
			t.count++
			t.repos = append(t.repos, repo)
		}
	}
	stats.Candidates = len(order)

	var qualified []*tally
	for _, t := range order {
		if t.count >= e.opts.MinShared {
			qualified = append(qualified, t)
		}
	}

	sort.SliceStable(qualified, func(i, j int) bool {
		return qualified[i].count > qualified[j].count
	})

	if len(qualified) > maxUsers {
		qualified = qualified[:maxUsers]
	}

	matches := make([]models.MatchRecord, 0, len(qualified))
	for _, t := range qualified {
		matches = append(matches, e.toMatch(t))
	}

	e.logger.WithFields(logrus.Fields{
		"scanned":    stats.ReposScanned,
		"skipped":    stats.ReposSkipped,
		"candidates": stats.Candidates,
		"matches":    len(matches),
	}).Debug("discovery pass complete")

	return matches, stats
}

func (e *Engine) toMatch(t *tally) models.MatchRecord {
	topRepos := t.repos
	if len(topRepos) > 3 {
		topRepos = topRepos[:3]
	}

	return models.MatchRecord{
		Username:    t.profile.Login,
		Avatar:      t.profile.AvatarURL,
		SharedRepos: t.count,
		Personality: e.narrator.Personality(t.repos),
		GitHubURL:   t.profile.HTMLURL,
		// Stargazer listings carry the display name, not the bio
		Bio:       t.profile.Name,
		Languages: ExtractLanguages(t.repos),
		TopRepos:  append([]models.Repository(nil), topRepos...),
	}
}

// TopRepos returns the n most-starred repositories. Ties keep their
// original order; the input slice is not modified.
func TopRepos(repos []models.Repository, n int) []models.Repository {
	sorted := append([]models.Repository(nil), repos...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StargazersCount > sorted[j].StargazersCount
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// ExtractLanguages returns up to three languages of repos, most frequent
// first. Ties keep first-seen order and repositories without a language are
// ignored.
func ExtractLanguages(repos []models.Repository) []string {
	counts := make(map[string]int)
	var order []string
	for _, repo := range repos {
		if repo.Language == "" {
			continue
		}
		if _, ok := counts[repo.Language]; !ok {
			order = append(order, repo.Language)
		}
		counts[repo.Language]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > 3 {
		order = order[:3]
	}
	return order
}
