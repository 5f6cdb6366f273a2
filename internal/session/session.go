// Package session owns the authenticated state of one user: the token, the
// account it resolves to, and the most recent discovery feed.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stackmates/stackmates/internal/discovery"
	"github.com/stackmates/stackmates/internal/errors"
	"github.com/stackmates/stackmates/internal/models"
)

// ErrNotAuthenticated is returned by operations that need a logged-in user
var ErrNotAuthenticated = errors.New(errors.ErrorTypeAuth, errors.SeverityMedium, "not authenticated, run login first")

// API is the GitHub surface the session drives
type API interface {
	discovery.ProfileSource
	SetToken(token string)
	VerifyToken(ctx context.Context, token string) (*models.AccountProfile, error)
	SearchUsers(ctx context.Context, query string, pageSize int) ([]models.AccountProfile, error)
}

// Options tunes the session's own fetches
type Options struct {
	MaxStarred   int // cap on the seed account's starred listing
	ProfileRepos int // owned repositories shown in a profile view
}

// Snapshot is a consistent copy of the session state
type Snapshot struct {
	IsAuthenticated bool                   `json:"is_authenticated" yaml:"is_authenticated"`
	IsLoading       bool                   `json:"is_loading" yaml:"is_loading"`
	User            *models.AccountProfile `json:"user,omitempty" yaml:"user,omitempty"`
	Developers      []models.MatchRecord   `json:"developers" yaml:"developers"`
	LastOutcome     models.Outcome         `json:"last_outcome,omitempty" yaml:"last_outcome,omitempty"`
	LastRunID       string                 `json:"last_run_id,omitempty" yaml:"last_run_id,omitempty"`
	LastError       string                 `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	LastRefreshed   time.Time              `json:"last_refreshed,omitempty" yaml:"last_refreshed,omitempty"`
}

// Session holds login state and the current feed. It is safe for
// concurrent use; discovery passes run one at a time.
type Session struct {
	api      API
	engine   *discovery.Engine
	profiles *discovery.ProfileLoader
	store    TokenStore
	opts     Options
	logger   logrus.FieldLogger

	refreshMu sync.Mutex

	mu            sync.RWMutex
	token         string
	user          *models.AccountProfile
	authenticated bool
	loading       int
	developers    []models.MatchRecord
	last          *models.DiscoveryResult
}

// New creates an empty, unauthenticated session
func New(api API, engine *discovery.Engine, store TokenStore, opts Options, logger logrus.FieldLogger) *Session {
	return &Session{
		api:      api,
		engine:   engine,
		profiles: discovery.NewProfileLoader(api, opts.ProfileRepos, opts.MaxStarred, logger),
		store:    store,
		opts:     opts,
		logger:   logger.WithField("component", "session"),
	}
}

// Login validates token against GitHub. On success the token is persisted
// and a discovery pass runs; on failure the session is left as it was.
func (s *Session) Login(ctx context.Context, token string) error {
	s.beginLoading()
	defer s.endLoading()

	if err := s.authenticate(ctx, token, true); err != nil {
		return err
	}
	s.runDiscovery(ctx)
	return nil
}

// Authenticate validates token and sets the session user without persisting
// the token or running discovery
func (s *Session) Authenticate(ctx context.Context, token string) error {
	s.beginLoading()
	defer s.endLoading()
	return s.authenticate(ctx, token, false)
}

func (s *Session) authenticate(ctx context.Context, token string, persist bool) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.ValidationError("token cannot be empty")
	}

	// the shared client only sees tokens GitHub accepted
	user, err := s.api.VerifyToken(ctx, token)
	if err != nil {
		s.logger.WithError(err).Warn("login failed")
		return err
	}

	s.api.SetToken(token)
	s.mu.Lock()
	s.token = token
	s.user = user
	s.authenticated = true
	s.mu.Unlock()

	s.logger.WithField("user", user.Login).Info("logged in")

	if persist && s.store != nil {
		if err := s.store.Save(token); err != nil {
			s.logger.WithError(err).Warn("failed to persist token")
		}
	}
	return nil
}

// Logout clears all session state and the stored token
func (s *Session) Logout() error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.authenticated = false
	s.developers = nil
	s.last = nil
	s.mu.Unlock()

	s.api.SetToken("")

	if s.store != nil {
		if err := s.store.Delete(); err != nil {
			return err
		}
	}
	s.logger.Info("logged out")
	return nil
}

// Restore logs in with a previously stored token, if there is one, and runs
// a discovery pass. A token GitHub rejects is removed from the store; one
// that could not be checked is kept.
func (s *Session) Restore(ctx context.Context) error {
	return s.restore(ctx, true)
}

// Resume is Restore without the discovery pass
func (s *Session) Resume(ctx context.Context) error {
	return s.restore(ctx, false)
}

func (s *Session) restore(ctx context.Context, discover bool) error {
	if s.store == nil {
		return nil
	}

	token, err := s.store.Load()
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}

	s.beginLoading()
	defer s.endLoading()

	if err := s.authenticate(ctx, token, false); err != nil {
		if !errors.IsAuth(err) {
			return err
		}
		if delErr := s.store.Delete(); delErr != nil {
			s.logger.WithError(delErr).Warn("failed to remove stale token")
		}
		return err
	}
	if discover {
		s.runDiscovery(ctx)
	}
	return nil
}

// Refresh recomputes the feed from scratch
func (s *Session) Refresh(ctx context.Context) models.DiscoveryResult {
	s.beginLoading()
	defer s.endLoading()
	return s.runDiscovery(ctx)
}

func (s *Session) runDiscovery(ctx context.Context) models.DiscoveryResult {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.mu.RLock()
	user, authenticated := s.user, s.authenticated
	s.mu.RUnlock()

	result := models.DiscoveryResult{
		RunID:   uuid.NewString(),
		Matches: []models.MatchRecord{},
	}
	if !authenticated || user == nil {
		result.Outcome = models.OutcomeEmpty
		result.Err = ErrNotAuthenticated
		result.FinishedAt = time.Now()
		return result
	}

	log := s.logger.WithFields(logrus.Fields{"run_id": result.RunID, "user": user.Login})
	start := time.Now()

	matches, stats, err := s.discover(ctx, user.Login)
	result.ReposScanned = stats.ReposScanned
	result.ReposSkipped = stats.ReposSkipped
	result.FinishedAt = time.Now()

	switch {
	case err != nil:
		result.Outcome = models.OutcomeFallback
		result.Matches = fallbackDevelopers()
		result.Err = err
		log.WithError(err).Warn("discovery failed, showing fallback feed")
	case len(matches) == 0:
		result.Outcome = models.OutcomeEmpty
		log.Info("discovery found no similar developers")
	default:
		result.Outcome = models.OutcomeFound
		result.Matches = matches
		log.WithFields(logrus.Fields{
			"matches":  len(matches),
			"scanned":  stats.ReposScanned,
			"skipped":  stats.ReposSkipped,
			"duration": time.Since(start).Round(time.Millisecond),
		}).Info("discovery complete")
	}

	s.mu.Lock()
	if s.authenticated && s.user != nil && s.user.Login == user.Login {
		s.developers = result.Matches
		s.last = &result
	}
	s.mu.Unlock()

	return result
}

// discover runs one pass. It fails when the context ends before the pass
// completes, when the starred listing failed before yielding anything, when
// every scanned repository failed, or on a panic.
func (s *Session) discover(ctx context.Context, login string) (matches []models.MatchRecord, stats discovery.Stats, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.InternalError(fmt.Sprintf("discovery panicked: %v", r))
		}
	}()

	starred, starErr := s.api.GetUserStarredRepos(ctx, login, s.opts.MaxStarred)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, stats, errors.Wrap(ctxErr, errors.ErrorTypeNetwork, errors.SeverityMedium, "discovery interrupted")
	}
	if starErr != nil {
		if len(starred) == 0 {
			return nil, stats, errors.Wrap(starErr, errors.ErrorTypeNetwork, errors.SeverityMedium, "starred repositories unavailable")
		}
		s.logger.WithError(starErr).WithField("kept", len(starred)).Warn("starred listing incomplete, using partial list")
	}

	matches, stats = s.engine.FindSimilar(ctx, starred, 0)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, stats, errors.Wrap(ctxErr, errors.ErrorTypeNetwork, errors.SeverityMedium, "discovery interrupted")
	}
	if stats.ReposScanned == 0 && stats.ReposSkipped > 0 {
		return nil, stats, errors.New(errors.ErrorTypeNetwork, errors.SeverityMedium,
			fmt.Sprintf("all %d stargazer requests failed", stats.ReposSkipped))
	}
	return matches, stats, nil
}

// State returns a copy of the current session state
func (s *Session) State() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		IsAuthenticated: s.authenticated,
		IsLoading:       s.loading > 0,
		Developers:      append([]models.MatchRecord{}, s.developers...),
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	if s.last != nil {
		snap.LastOutcome = s.last.Outcome
		snap.LastRunID = s.last.RunID
		snap.LastError = s.last.FailureMessage()
		snap.LastRefreshed = s.last.FinishedAt
	}
	return snap
}

// LastResult returns the most recent discovery result, if any
func (s *Session) LastResult() (models.DiscoveryResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return models.DiscoveryResult{}, false
	}
	return *s.last, true
}

// Token returns the active token, empty when logged out
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Profile loads the detail view of handle as seen by the logged-in user
func (s *Session) Profile(ctx context.Context, handle string) (*discovery.Profile, error) {
	s.mu.RLock()
	user := s.user
	s.mu.RUnlock()
	if user == nil {
		return nil, ErrNotAuthenticated
	}
	return s.profiles.Load(ctx, user.Login, handle)
}

// Search looks up accounts by query
func (s *Session) Search(ctx context.Context, query string, limit int) ([]models.AccountProfile, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.ValidationError("search query cannot be empty")
	}
	return s.api.SearchUsers(ctx, query, limit)
}

func (s *Session) beginLoading() {
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()
}

func (s *Session) endLoading() {
	s.mu.Lock()
	s.loading--
	s.mu.Unlock()
}
