package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stackmates/stackmates/internal/config"
	"github.com/stackmates/stackmates/internal/discovery"
	apperrors "github.com/stackmates/stackmates/internal/errors"
	"github.com/stackmates/stackmates/internal/github"
	"github.com/stackmates/stackmates/internal/logging"
	"github.com/stackmates/stackmates/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	goodToken        = "ghp_good"
	unreachableToken = "ghp_unreachable"
)

// fakeAPI accepts goodToken only and serves a small star graph
type fakeAPI struct {
	mu         sync.Mutex
	token      string
	tokens     []string
	starred    map[string][]models.Repository
	stargazers map[string][]string
	failAll    bool
	panicky    bool
	starredErr error
	onStarred  func()
	onVerify   func(token string)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		starred: map[string][]models.Repository{
			"me": {
				{FullName: "acme/one", StargazersCount: 10, Language: "Go"},
				{FullName: "acme/two", StargazersCount: 5, Language: "Go"},
			},
		},
		stargazers: map[string][]string{
			"acme/one": {"alice", "bob"},
			"acme/two": {"alice"},
		},
	}
}

func (f *fakeAPI) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
	f.tokens = append(f.tokens, token)
}

func (f *fakeAPI) tokensSet() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens...)
}

func (f *fakeAPI) currentToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeAPI) VerifyToken(ctx context.Context, token string) (*models.AccountProfile, error) {
	if f.onVerify != nil {
		f.onVerify(token)
	}
	switch token {
	case goodToken:
		return &models.AccountProfile{Login: "me", Name: "Me"}, nil
	case unreachableToken:
		return nil, apperrors.NetworkError(errors.New("dial tcp: connection refused"), "fetch current user")
	default:
		return nil, apperrors.AuthError(errors.New("401 Bad credentials"), "github rejected the token")
	}
}

func (f *fakeAPI) GetUser(ctx context.Context, handle string) (*models.AccountProfile, error) {
	if handle == "ghost" {
		return nil, apperrors.NotFoundErrorf(nil, "user %q not found", handle)
	}
	return &models.AccountProfile{Login: handle}, nil
}

func (f *fakeAPI) GetUserRepos(ctx context.Context, handle string, pageSize int) ([]models.Repository, error) {
	return nil, nil
}

func (f *fakeAPI) GetUserStarredRepos(ctx context.Context, handle string, maxRepos int) ([]models.Repository, error) {
	if f.onStarred != nil {
		f.onStarred()
	}
	if f.panicky {
		panic("boom")
	}
	return f.starred[handle], f.starredErr
}

func (f *fakeAPI) GetStargazers(ctx context.Context, fullName string, pageSize int) ([]models.AccountProfile, error) {
	if f.failAll {
		return nil, errors.New("connection refused")
	}
	if f.currentToken() != goodToken {
		return nil, apperrors.AuthError(errors.New("401 Bad credentials"), "github rejected the token")
	}
	var out []models.AccountProfile
	for _, login := range f.stargazers[fullName] {
		out = append(out, models.AccountProfile{Login: login, HTMLURL: "https://github.com/" + login})
	}
	return out, nil
}

func (f *fakeAPI) SearchUsers(ctx context.Context, query string, pageSize int) ([]models.AccountProfile, error) {
	return []models.AccountProfile{{Login: query}}, nil
}

func newTestSession(t *testing.T, api *fakeAPI) (*Session, *BoltStore) {
	t.Helper()
	store := NewBoltStore(filepath.Join(t.TempDir(), "session.db"))
	engine := discovery.NewEngine(api, discovery.NewNarrator(rand.NewSource(1)), discovery.DefaultOptions(), logging.Discard())
	return New(api, engine, store, Options{MaxStarred: 500}, logging.Discard()), store
}

func TestNew_StartsEmpty(t *testing.T) {
	s, _ := newTestSession(t, newFakeAPI())

	state := s.State()
	assert.False(t, state.IsAuthenticated)
	assert.False(t, state.IsLoading)
	assert.Nil(t, state.User)
	assert.Empty(t, state.Developers)
	assert.Empty(t, state.LastOutcome)
}

func TestLogin_InvalidTokenLeavesSessionUnauthenticated(t *testing.T) {
	api := newFakeAPI()
	s, store := newTestSession(t, api)

	err := s.Login(context.Background(), "ghp_bad")
	require.Error(t, err)
	assert.True(t, apperrors.IsAuth(err))

	state := s.State()
	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, state.User)
	assert.Empty(t, api.currentToken(), "client token must be cleared")

	stored, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestLogin_EmptyToken(t *testing.T) {
	s, _ := newTestSession(t, newFakeAPI())

	err := s.Login(context.Background(), "   ")
	assert.True(t, apperrors.IsValidation(err))
}

func TestLogin_SuccessPersistsAndDiscovers(t *testing.T) {
	api := newFakeAPI()
	s, store := newTestSession(t, api)

	require.NoError(t, s.Login(context.Background(), " "+goodToken+"\n"))

	state := s.State()
	assert.True(t, state.IsAuthenticated)
	assert.False(t, state.IsLoading)
	require.NotNil(t, state.User)
	assert.Equal(t, "me", state.User.Login)
	assert.Equal(t, models.OutcomeFound, state.LastOutcome)
	require.Len(t, state.Developers, 1)
	assert.Equal(t, "alice", state.Developers[0].Username)
	assert.Equal(t, 2, state.Developers[0].SharedRepos)
	assert.NotEmpty(t, state.LastRunID)

	stored, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, goodToken, stored)
}

func TestLogin_FailedReloginKeepsPreviousToken(t *testing.T) {
	api := newFakeAPI()
	s, _ := newTestSession(t, api)
	require.NoError(t, s.Login(context.Background(), goodToken))

	require.Error(t, s.Login(context.Background(), "ghp_bad"))

	assert.Equal(t, goodToken, api.currentToken())
	assert.True(t, s.State().IsAuthenticated)
}

func TestLogin_RejectedTokenNeverReachesRefresh(t *testing.T) {
	api := newFakeAPI()
	s, _ := newTestSession(t, api)
	require.NoError(t, s.Login(context.Background(), goodToken))

	verifying := make(chan struct{})
	release := make(chan struct{})
	api.onVerify = func(token string) {
		if token == goodToken {
			return
		}
		close(verifying)
		<-release
	}

	loginErr := make(chan error, 1)
	go func() { loginErr <- s.Login(context.Background(), "ghp_bad") }()

	<-verifying
	result := s.Refresh(context.Background())
	close(release)

	assert.True(t, apperrors.IsAuth(<-loginErr))
	assert.Equal(t, models.OutcomeFound, result.Outcome)
	assert.NoError(t, result.Err)

	state := s.State()
	assert.True(t, state.IsAuthenticated)
	require.Len(t, state.Developers, 1)
	assert.Equal(t, "alice", state.Developers[0].Username)
	assert.NotContains(t, api.tokensSet(), "ghp_bad")
}

func TestAuthenticate_NoPersistNoDiscovery(t *testing.T) {
	s, store := newTestSession(t, newFakeAPI())

	require.NoError(t, s.Authenticate(context.Background(), goodToken))

	assert.True(t, s.State().IsAuthenticated)
	assert.Empty(t, s.State().LastOutcome)
	stored, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestLogout_ResetsEverything(t *testing.T) {
	api := newFakeAPI()
	s, store := newTestSession(t, api)
	require.NoError(t, s.Login(context.Background(), goodToken))

	require.NoError(t, s.Logout())

	state := s.State()
	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, state.User)
	assert.Empty(t, state.Developers)
	assert.Empty(t, state.LastOutcome)
	assert.Empty(t, api.currentToken())
	assert.Empty(t, s.Token())

	stored, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestRefresh_NotAuthenticated(t *testing.T) {
	s, _ := newTestSession(t, newFakeAPI())

	result := s.Refresh(context.Background())

	assert.Equal(t, models.OutcomeEmpty, result.Outcome)
	assert.ErrorIs(t, result.Err, ErrNotAuthenticated)
	assert.Empty(t, result.Matches)
	assert.Empty(t, s.State().LastOutcome)
}

func TestRefresh_NoMatchesIsEmpty(t *testing.T) {
	api := newFakeAPI()
	api.stargazers = map[string][]string{"acme/one": {"alice"}, "acme/two": {"bob"}}
	s, _ := newTestSession(t, api)
	require.NoError(t, s.Login(context.Background(), goodToken))

	result := s.Refresh(context.Background())

	assert.Equal(t, models.OutcomeEmpty, result.Outcome)
	assert.NoError(t, result.Err)
	assert.Empty(t, s.State().Developers)
}

func TestRefresh_TotalFailureShowsFallback(t *testing.T) {
	api := newFakeAPI()
	s, _ := newTestSession(t, api)
	require.NoError(t, s.Login(context.Background(), goodToken))

	api.failAll = true
	result := s.Refresh(context.Background())

	assert.Equal(t, models.OutcomeFallback, result.Outcome)
	require.Error(t, result.Err)
	assert.Contains(t, result.FailureMessage(), "stargazer requests failed")
	require.Len(t, result.Matches, 2)
	assert.Equal(t, "octocat", result.Matches[0].Username)
	assert.Equal(t, 42, result.Matches[0].SharedRepos)
	assert.Equal(t, "torvalds", result.Matches[1].Username)
	assert.Equal(t, 7, result.Matches[1].SharedRepos)

	state := s.State()
	assert.Equal(t, models.OutcomeFallback, state.LastOutcome)
	assert.NotEmpty(t, state.LastError)
	assert.Len(t, state.Developers, 2)
}

func TestRefresh_StarredListing(t *testing.T) {
	t.Run("nothing gathered shows fallback", func(t *testing.T) {
		api := newFakeAPI()
		s, _ := newTestSession(t, api)
		require.NoError(t, s.Login(context.Background(), goodToken))

		api.starred = map[string][]models.Repository{}
		api.starredErr = apperrors.ExternalError(errors.New("503 Service Unavailable"), "fetch starred repos of me")
		result := s.Refresh(context.Background())

		assert.Equal(t, models.OutcomeFallback, result.Outcome)
		assert.ErrorIs(t, result.Err, api.starredErr)
		assert.Len(t, result.Matches, 2)
	})

	t.Run("partial listing is used", func(t *testing.T) {
		api := newFakeAPI()
		s, _ := newTestSession(t, api)
		require.NoError(t, s.Login(context.Background(), goodToken))

		api.starredErr = apperrors.ExternalError(errors.New("502 Bad Gateway"), "fetch starred repos of me")
		result := s.Refresh(context.Background())

		assert.Equal(t, models.OutcomeFound, result.Outcome)
		assert.NoError(t, result.Err)
	})

	t.Run("empty account stays empty", func(t *testing.T) {
		api := newFakeAPI()
		s, _ := newTestSession(t, api)
		require.NoError(t, s.Login(context.Background(), goodToken))

		api.starred = map[string][]models.Repository{}
		result := s.Refresh(context.Background())

		assert.Equal(t, models.OutcomeEmpty, result.Outcome)
		assert.NoError(t, result.Err)
	})
}

func TestLogin_GitHubUnavailableShowsFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"login":"me","id":1}`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"message":"unavailable"}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := github.NewClient(config.GitHubConfig{BaseURL: server.URL}, logging.Discard())
	require.NoError(t, err)
	engine := discovery.NewEngine(client, discovery.NewNarrator(rand.NewSource(1)), discovery.DefaultOptions(), logging.Discard())
	s := New(client, engine, NewBoltStore(filepath.Join(t.TempDir(), "session.db")), Options{}, logging.Discard())

	require.NoError(t, s.Login(context.Background(), goodToken))

	result, ok := s.LastResult()
	require.True(t, ok)
	assert.Equal(t, models.OutcomeFallback, result.Outcome)
	require.Error(t, result.Err)
	require.Len(t, result.Matches, 2)
	assert.Equal(t, "octocat", result.Matches[0].Username)
	assert.True(t, s.State().IsAuthenticated)
}

func TestRefresh_CancelledContextShowsFallback(t *testing.T) {
	api := newFakeAPI()
	s, _ := newTestSession(t, api)
	require.NoError(t, s.Login(context.Background(), goodToken))

	ctx, cancel := context.WithCancel(context.Background())
	api.onStarred = cancel
	result := s.Refresh(ctx)

	assert.Equal(t, models.OutcomeFallback, result.Outcome)
	assert.ErrorIs(t, result.Err, context.Canceled)
}

func TestRefresh_PanicShowsFallback(t *testing.T) {
	api := newFakeAPI()
	s, _ := newTestSession(t, api)
	require.NoError(t, s.Login(context.Background(), goodToken))

	api.panicky = true
	result := s.Refresh(context.Background())

	assert.Equal(t, models.OutcomeFallback, result.Outcome)
	assert.Contains(t, result.FailureMessage(), "boom")
}

func TestRefresh_ReplacesFeedWholesale(t *testing.T) {
	api := newFakeAPI()
	s, _ := newTestSession(t, api)
	require.NoError(t, s.Login(context.Background(), goodToken))
	require.Len(t, s.State().Developers, 1)

	api.stargazers = map[string][]string{
		"acme/one": {"carol", "dave"},
		"acme/two": {"carol", "dave"},
	}
	s.Refresh(context.Background())

	var names []string
	for _, d := range s.State().Developers {
		names = append(names, d.Username)
	}
	assert.Equal(t, []string{"carol", "dave"}, names)
}

func TestState_ReturnsCopy(t *testing.T) {
	api := newFakeAPI()
	s, _ := newTestSession(t, api)
	require.NoError(t, s.Login(context.Background(), goodToken))

	state := s.State()
	state.Developers[0].Username = "mallory"
	state.User.Login = "mallory"

	assert.Equal(t, "alice", s.State().Developers[0].Username)
	assert.Equal(t, "me", s.State().User.Login)
}

func TestRestore(t *testing.T) {
	t.Run("no stored token", func(t *testing.T) {
		s, _ := newTestSession(t, newFakeAPI())
		require.NoError(t, s.Restore(context.Background()))
		assert.False(t, s.State().IsAuthenticated)
	})

	t.Run("valid stored token", func(t *testing.T) {
		s, store := newTestSession(t, newFakeAPI())
		require.NoError(t, store.Save(goodToken))

		require.NoError(t, s.Restore(context.Background()))
		assert.True(t, s.State().IsAuthenticated)
		assert.Equal(t, models.OutcomeFound, s.State().LastOutcome)
	})

	t.Run("resume skips discovery", func(t *testing.T) {
		s, store := newTestSession(t, newFakeAPI())
		require.NoError(t, store.Save(goodToken))

		require.NoError(t, s.Resume(context.Background()))
		assert.True(t, s.State().IsAuthenticated)
		assert.Empty(t, s.State().LastOutcome)
		_, ok := s.LastResult()
		assert.False(t, ok)
	})

	t.Run("stale stored token is removed", func(t *testing.T) {
		s, store := newTestSession(t, newFakeAPI())
		require.NoError(t, store.Save("ghp_expired"))

		err := s.Restore(context.Background())
		assert.True(t, apperrors.IsAuth(err))

		stored, loadErr := store.Load()
		require.NoError(t, loadErr)
		assert.Empty(t, stored)
	})

	t.Run("unreachable github keeps stored token", func(t *testing.T) {
		s, store := newTestSession(t, newFakeAPI())
		require.NoError(t, store.Save(unreachableToken))

		err := s.Restore(context.Background())
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNetwork))
		assert.False(t, s.State().IsAuthenticated)

		stored, loadErr := store.Load()
		require.NoError(t, loadErr)
		assert.Equal(t, unreachableToken, stored)
	})
}

func TestProfile(t *testing.T) {
	api := newFakeAPI()
	s, _ := newTestSession(t, api)

	_, err := s.Profile(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	require.NoError(t, s.Login(context.Background(), goodToken))
	api.starred["alice"] = []models.Repository{{FullName: "acme/two"}}

	profile, err := s.Profile(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.User.Login)
	require.Len(t, profile.SharedStarred, 1)
	assert.Equal(t, "acme/two", profile.SharedStarred[0].FullName)

	_, err = s.Profile(context.Background(), "ghost")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSearch(t *testing.T) {
	s, _ := newTestSession(t, newFakeAPI())

	_, err := s.Search(context.Background(), " ", 10)
	assert.True(t, apperrors.IsValidation(err))

	users, err := s.Search(context.Background(), "gopher", 10)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "gopher", users[0].Login)
}
