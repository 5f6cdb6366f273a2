package github

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/google/go-github/v57/github"
	"github.com/sirupsen/logrus"
	"github.com/stackmates/stackmates/internal/config"
	"github.com/stackmates/stackmates/internal/errors"
	"github.com/stackmates/stackmates/internal/models"
	"golang.org/x/time/rate"
)

const (
	// StarredPageSize is GitHub's maximum page size, used for starred listings
	StarredPageSize = 100

	// DefaultMaxStarred caps how many starred repositories are collected
	DefaultMaxStarred = 500

	defaultRepoPageSize   = 30
	defaultSearchPageSize = 10
)

// Client wraps the GitHub API client and owns the session's bearer token
type Client struct {
	mu     sync.RWMutex
	base   *github.Client // unauthenticated
	client *github.Client // base with the current token applied
	token  string

	rateLimiter *rate.Limiter
	logger      logrus.FieldLogger
}

// NewClient creates a GitHub client for cfg.BaseURL. A zero RateLimit
// disables client-side throttling and a zero Timeout leaves requests
// unbounded except by the caller's context.
func NewClient(cfg config.GitHubConfig, logger logrus.FieldLogger) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultGitHubAPIURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil, errors.ConfigErrorf("invalid GitHub API URL %q", cfg.BaseURL)
	}

	gh := github.NewClient(&http.Client{Timeout: cfg.Timeout})
	gh.BaseURL = u

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &Client{
		base:        gh,
		client:      gh,
		rateLimiter: rate.NewLimiter(limit, 1),
		logger:      logger.WithField("component", "github"),
	}, nil
}

// SetToken replaces the bearer token. An empty token clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = token
	if token == "" {
		c.client = c.base
		return
	}
	c.client = c.base.WithAuthToken(token)
}

// Token returns the current bearer token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// HasToken reports whether requests are authenticated
func (c *Client) HasToken() bool {
	return c.Token() != ""
}

func (c *Client) gh() *github.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

func (c *Client) wait(ctx context.Context) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// GetCurrentUser fetches the profile of the token owner. Any non-success
// response is reported as an auth error.
func (c *Client) GetCurrentUser(ctx context.Context) (*models.AccountProfile, error) {
	return c.currentUser(ctx, c.gh())
}

func (c *Client) currentUser(ctx context.Context, gh *github.Client) (*models.AccountProfile, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	user, _, err := gh.Users.Get(ctx, "")
	if err != nil {
		if isAPIResponse(err) {
			return nil, errors.AuthError(err, "github rejected the token")
		}
		return nil, classify(err, "fetch current user")
	}

	profile := toProfile(user)
	return &profile, nil
}

// VerifyToken resolves the account token belongs to without touching the
// client's own token. Any non-success response is reported as an auth error.
func (c *Client) VerifyToken(ctx context.Context, token string) (*models.AccountProfile, error) {
	if token == "" {
		return nil, errors.ValidationError("token cannot be empty")
	}
	return c.currentUser(ctx, c.base.WithAuthToken(token))
}

// GetUser fetches a named account's profile
func (c *Client) GetUser(ctx context.Context, handle string) (*models.AccountProfile, error) {
	if handle == "" {
		return nil, errors.ValidationError("user handle cannot be empty")
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	user, _, err := c.gh().Users.Get(ctx, handle)
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return nil, errors.NotFoundErrorf(err, "user %q not found", handle)
		}
		return nil, classify(err, fmt.Sprintf("fetch user %s", handle))
	}

	profile := toProfile(user)
	return &profile, nil
}

// GetUserRepos fetches up to pageSize repositories owned by handle, ordered
// by star count descending
func (c *Client) GetUserRepos(ctx context.Context, handle string, pageSize int) ([]models.Repository, error) {
	if handle == "" {
		return nil, errors.ValidationError("user handle cannot be empty")
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	opts := &github.RepositoryListOptions{
		Type: "owner",
		ListOptions: github.ListOptions{
			PerPage: clampPageSize(pageSize, defaultRepoPageSize),
		},
	}

	repos, _, err := c.gh().Repositories.List(ctx, handle, opts)
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return nil, errors.NotFoundErrorf(err, "user %q not found", handle)
		}
		return nil, classify(err, fmt.Sprintf("fetch repositories of %s", handle))
	}

	result := make([]models.Repository, 0, len(repos))
	for _, repo := range repos {
		if repo == nil {
			continue
		}
		result = append(result, toRepository(repo))
	}

	// The list endpoint cannot sort by stars
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].StargazersCount > result[j].StargazersCount
	})

	return result, nil
}

// GetUserStarredRepos pages through handle's starred repositories, 100 per
// page, until a short page or maxRepos entries. A failed page ends the
// listing: whatever was gathered is returned along with the page's error.
func (c *Client) GetUserStarredRepos(ctx context.Context, handle string, maxRepos int) ([]models.Repository, error) {
	if maxRepos <= 0 {
		maxRepos = DefaultMaxStarred
	}
	log := c.logger.WithField("user", handle)

	var (
		all     []models.Repository
		pageErr error
	)
	for page := 1; len(all) < maxRepos; page++ {
		if err := c.wait(ctx); err != nil {
			log.WithError(err).Warn("stopped fetching starred repos")
			pageErr = err
			break
		}

		opts := &github.ActivityListStarredOptions{
			ListOptions: github.ListOptions{
				Page:    page,
				PerPage: StarredPageSize,
			},
		}

		starred, _, err := c.gh().Activity.ListStarred(ctx, handle, opts)
		if err != nil {
			log.WithError(err).WithField("page", page).Warn("failed to fetch page of starred repos")
			pageErr = withContext(classify(err, fmt.Sprintf("fetch starred repos of %s", handle)), "page", page)
			break
		}

		for _, s := range starred {
			if repo := s.GetRepository(); repo != nil {
				all = append(all, toRepository(repo))
			}
		}

		if len(starred) < StarredPageSize {
			break
		}
	}

	if len(all) > maxRepos {
		all = all[:maxRepos]
	}

	log.WithField("count", len(all)).Debug("fetched starred repos")
	return all, pageErr
}

// GetStargazers fetches one page of accounts that starred fullName
// ("owner/name")
func (c *Client) GetStargazers(ctx context.Context, fullName string, pageSize int) ([]models.AccountProfile, error) {
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return nil, errors.ValidationErrorf("invalid repository name %q, want owner/name", fullName)
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	opts := &github.ListOptions{PerPage: clampPageSize(pageSize, defaultRepoPageSize)}

	stargazers, _, err := c.gh().Activity.ListStargazers(ctx, owner, name, opts)
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return nil, errors.NotFoundErrorf(err, "repository %q not found", fullName).WithContext("repo", fullName)
		}
		return nil, withContext(classify(err, fmt.Sprintf("fetch stargazers of %s", fullName)), "repo", fullName)
	}

	profiles := make([]models.AccountProfile, 0, len(stargazers))
	for _, s := range stargazers {
		if user := s.GetUser(); user != nil {
			profiles = append(profiles, toProfile(user))
		}
	}
	return profiles, nil
}

// SearchUsers runs a user search and returns the first page of matches
func (c *Client) SearchUsers(ctx context.Context, query string, pageSize int) ([]models.AccountProfile, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.ValidationError("search query cannot be empty")
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	opts := &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: clampPageSize(pageSize, defaultSearchPageSize)},
	}

	result, _, err := c.gh().Search.Users(ctx, query, opts)
	if err != nil {
		return nil, classify(err, "search users")
	}

	profiles := make([]models.AccountProfile, 0, len(result.Users))
	for _, user := range result.Users {
		if user != nil {
			profiles = append(profiles, toProfile(user))
		}
	}
	return profiles, nil
}

// Helper functions

func clampPageSize(size, fallback int) int {
	if size <= 0 {
		return fallback
	}
	if size > 100 {
		return 100
	}
	return size
}

// isAPIResponse reports whether GitHub answered with a non-success status
func isAPIResponse(err error) bool {
	var respErr *github.ErrorResponse
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	return stderrors.As(err, &respErr) || stderrors.As(err, &rateErr) || stderrors.As(err, &abuseErr)
}

func statusOf(err error) int {
	var respErr *github.ErrorResponse
	if stderrors.As(err, &respErr) && respErr.Response != nil {
		return respErr.Response.StatusCode
	}
	return 0
}

// classify maps a go-github failure onto the error taxonomy. Rate limiting
// is not special-cased.
func classify(err error, op string) error {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if isAPIResponse(err) {
		e := errors.ExternalError(err, op)
		if status := statusOf(err); status != 0 {
			e.WithContext("status", status)
		}
		return e
	}
	var urlErr *url.Error
	if stderrors.As(err, &urlErr) {
		return errors.NetworkError(err, op)
	}
	return errors.ExternalError(err, op)
}

// withContext tags a structured error; other errors pass through
func withContext(err error, key string, value interface{}) error {
	var e *errors.Error
	if stderrors.As(err, &e) {
		e.WithContext(key, value)
	}
	return err
}

func toProfile(user *github.User) models.AccountProfile {
	return models.AccountProfile{
		ID:          user.GetID(),
		Login:       user.GetLogin(),
		Name:        user.GetName(),
		AvatarURL:   user.GetAvatarURL(),
		Bio:         user.GetBio(),
		PublicRepos: user.GetPublicRepos(),
		Followers:   user.GetFollowers(),
		Following:   user.GetFollowing(),
		HTMLURL:     user.GetHTMLURL(),
		Location:    user.GetLocation(),
		CreatedAt:   user.GetCreatedAt().Time,
	}
}

func toRepository(repo *github.Repository) models.Repository {
	return models.Repository{
		ID:              repo.GetID(),
		Name:            repo.GetName(),
		FullName:        repo.GetFullName(),
		Description:     repo.GetDescription(),
		StargazersCount: repo.GetStargazersCount(),
		Language:        repo.GetLanguage(),
		HTMLURL:         repo.GetHTMLURL(),
		Topics:          repo.Topics,
		ForksCount:      repo.GetForksCount(),
	}
}
