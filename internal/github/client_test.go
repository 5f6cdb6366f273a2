package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stackmates/stackmates/internal/config"
	"github.com/stackmates/stackmates/internal/errors"
	"github.com/stackmates/stackmates/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Path          string
	Query         string
	Accept        string
	Authorization string
}

type fakeAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
	mux      *http.ServeMux
}

func newTestClient(t *testing.T) (*Client, *fakeAPI) {
	t.Helper()

	api := &fakeAPI{mux: http.NewServeMux()}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		api.requests = append(api.requests, recordedRequest{
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Accept:        r.Header.Get("Accept"),
			Authorization: r.Header.Get("Authorization"),
		})
		api.mu.Unlock()
		api.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(config.GitHubConfig{BaseURL: server.URL}, logging.Discard())
	require.NoError(t, err)
	return client, api
}

func (f *fakeAPI) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func starredPage(start, n int) []map[string]interface{} {
	page := make([]map[string]interface{}, 0, n)
	for i := start; i < start+n; i++ {
		page = append(page, map[string]interface{}{
			"starred_at": "2024-01-01T00:00:00Z",
			"repo": map[string]interface{}{
				"id":               i,
				"name":             fmt.Sprintf("repo-%d", i),
				"full_name":        fmt.Sprintf("owner/repo-%d", i),
				"stargazers_count": i,
			},
		})
	}
	return page
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(config.GitHubConfig{BaseURL: "::not a url"}, logging.Discard())
	assert.Error(t, err)
}

func TestSetToken_AuthorizationHeader(t *testing.T) {
	client, api := newTestClient(t)
	api.mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"login": "octocat", "id": 1})
	})

	ctx := context.Background()

	client.SetToken("ghp_abc")
	assert.True(t, client.HasToken())
	_, err := client.GetCurrentUser(ctx)
	require.NoError(t, err)

	client.SetToken("")
	assert.False(t, client.HasToken())
	_, err = client.GetCurrentUser(ctx)
	require.NoError(t, err)

	reqs := api.recorded()
	require.Len(t, reqs, 2)
	assert.Equal(t, "Bearer ghp_abc", reqs[0].Authorization)
	assert.Empty(t, reqs[1].Authorization, "cleared token sends no Authorization header")
	for _, r := range reqs {
		assert.Equal(t, "application/vnd.github.v3+json", r.Accept)
	}
}

func TestGetCurrentUser(t *testing.T) {
	client, api := newTestClient(t)
	api.mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":           42,
			"login":        "octocat",
			"name":         "The Octocat",
			"avatar_url":   "https://avatars.example/octocat",
			"bio":          "cat",
			"public_repos": 8,
			"followers":    100,
			"following":    3,
			"html_url":     "https://github.com/octocat",
			"location":     "San Francisco",
			"created_at":   "2011-01-25T18:44:36Z",
		})
	})
	client.SetToken("ghp_abc")

	user, err := client.GetCurrentUser(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, "octocat", user.Login)
	assert.Equal(t, "The Octocat", user.Name)
	assert.Equal(t, 8, user.PublicRepos)
	assert.Equal(t, 100, user.Followers)
	assert.Equal(t, "San Francisco", user.Location)
	assert.Equal(t, 2011, user.CreatedAt.Year())
}

func TestGetCurrentUser_BadToken(t *testing.T) {
	client, api := newTestClient(t)
	api.mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
	})
	client.SetToken("ghp_expired")

	_, err := client.GetCurrentUser(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsAuth(err))
	assert.Contains(t, err.Error(), "401")
}

func TestVerifyToken_LeavesClientTokenAlone(t *testing.T) {
	client, api := newTestClient(t)
	api.mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer ghp_good" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"login": "octocat", "id": 1})
	})
	client.SetToken("ghp_good")
	ctx := context.Background()

	_, err := client.VerifyToken(ctx, "ghp_bad")
	assert.True(t, errors.IsAuth(err))
	assert.Equal(t, "ghp_good", client.Token())

	user, err := client.VerifyToken(ctx, "ghp_good")
	require.NoError(t, err)
	assert.Equal(t, "octocat", user.Login)

	_, err = client.VerifyToken(ctx, "")
	assert.True(t, errors.IsValidation(err))

	reqs := api.recorded()
	require.Len(t, reqs, 2)
	assert.Equal(t, "Bearer ghp_bad", reqs[0].Authorization)
}

func TestGetUser_NotFound(t *testing.T) {
	client, api := newTestClient(t)
	api.mux.HandleFunc("/users/ghost", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
	})

	_, err := client.GetUser(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	_, err = client.GetUser(context.Background(), "")
	assert.True(t, errors.IsValidation(err))
}

func TestGetUser_ServerErrorIsNotAuth(t *testing.T) {
	client, api := newTestClient(t)
	api.mux.HandleFunc("/users/octocat", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "boom"})
	})

	_, err := client.GetUser(context.Background(), "octocat")
	require.Error(t, err)
	assert.False(t, errors.IsAuth(err))
	assert.False(t, errors.IsNotFound(err))
	assert.True(t, errors.IsType(err, errors.ErrorTypeExternal))
}

func TestGetUserRepos_SortedByStars(t *testing.T) {
	client, api := newTestClient(t)
	api.mux.HandleFunc("/users/octocat/repos", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("per_page"))
		writeJSON(w, http.StatusOK, []map[string]interface{}{
			{"id": 1, "full_name": "octocat/a", "stargazers_count": 3, "language": "Go"},
			{"id": 2, "full_name": "octocat/b", "stargazers_count": 10, "topics": []string{"cli"}},
			{"id": 3, "full_name": "octocat/c", "stargazers_count": 3},
		})
	})

	repos, err := client.GetUserRepos(context.Background(), "octocat", 5)
	require.NoError(t, err)
	require.Len(t, repos, 3)

	assert.Equal(t, "octocat/b", repos[0].FullName)
	assert.Equal(t, []string{"cli"}, repos[0].Topics)
	assert.Equal(t, "octocat/a", repos[1].FullName, "stable order among equal star counts")
	assert.Equal(t, "Go", repos[1].Language)
	assert.Equal(t, "octocat/c", repos[2].FullName)
	assert.Empty(t, repos[2].Language)
}

func TestGetUserStarredRepos_TruncatesToMax(t *testing.T) {
	client, api := newTestClient(t)
	api.mux.HandleFunc("/users/x/starred", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		writeJSON(w, http.StatusOK, starredPage((page-1)*100, 100))
	})

	repos, err := client.GetUserStarredRepos(context.Background(), "x", 150)
	require.NoError(t, err)

	require.Len(t, repos, 150)
	assert.Equal(t, "owner/repo-0", repos[0].FullName)
	assert.Equal(t, "owner/repo-149", repos[149].FullName)
	assert.Len(t, api.recorded(), 2, "pages 1 and 2 only")
}

func TestGetUserStarredRepos_StopsOnShortPage(t *testing.T) {
	client, api := newTestClient(t)
	api.mux.HandleFunc("/users/x/starred", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		switch page {
		case 1:
			writeJSON(w, http.StatusOK, starredPage(0, 100))
		default:
			writeJSON(w, http.StatusOK, starredPage(100, 20))
		}
	})

	repos, err := client.GetUserStarredRepos(context.Background(), "x", 0)
	require.NoError(t, err)

	assert.Len(t, repos, 120)
	assert.Len(t, api.recorded(), 2)
}

func TestGetUserStarredRepos_EmptyAccount(t *testing.T) {
	client, api := newTestClient(t)
	api.mux.HandleFunc("/users/x/starred", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []interface{}{})
	})

	repos, err := client.GetUserStarredRepos(context.Background(), "x", 500)
	require.NoError(t, err)
	assert.Empty(t, repos)
	assert.Len(t, api.recorded(), 1)
}

func TestGetUserStarredRepos_FailedPageReturnsPartial(t *testing.T) {
	client, api := newTestClient(t)
	api.mux.HandleFunc("/users/x/starred", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			writeJSON(w, http.StatusBadGateway, map[string]string{"message": "upstream"})
			return
		}
		writeJSON(w, http.StatusOK, starredPage(0, 100))
	})

	repos, err := client.GetUserStarredRepos(context.Background(), "x", 500)

	assert.Len(t, repos, 100, "page 1 is kept")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeExternal))
	assert.Len(t, api.recorded(), 2)
}

func TestGetUserStarredRepos_FirstPageFails(t *testing.T) {
	client, api := newTestClient(t)
	api.mux.HandleFunc("/users/x/starred", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "unavailable"})
	})

	repos, err := client.GetUserStarredRepos(context.Background(), "x", 500)

	assert.Empty(t, repos)
	require.Error(t, err)
	var appErr *errors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.Context["status"])
	assert.Equal(t, 1, appErr.Context["page"])
}

func TestGetStargazers(t *testing.T) {
	client, api := newTestClient(t)
	api.mux.HandleFunc("/repos/golang/go/stargazers", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "30", r.URL.Query().Get("per_page"))
		writeJSON(w, http.StatusOK, []map[string]interface{}{
			{"starred_at": "2024-01-01T00:00:00Z", "user": map[string]interface{}{"login": "alice", "id": 1}},
			{"starred_at": "2024-01-02T00:00:00Z", "user": map[string]interface{}{"login": "bob", "id": 2}},
		})
	})

	users, err := client.GetStargazers(context.Background(), "golang/go", 30)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Login)
	assert.Equal(t, "bob", users[1].Login)

	reqs := api.recorded()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Accept, "application/vnd.github.v3")
}

func TestGetStargazers_InvalidName(t *testing.T) {
	client, api := newTestClient(t)

	for _, name := range []string{"", "golang", "/go", "golang/", "a/b/c"} {
		_, err := client.GetStargazers(context.Background(), name, 30)
		assert.True(t, errors.IsValidation(err), name)
	}
	assert.Empty(t, api.recorded())
}

func TestSearchUsers(t *testing.T) {
	client, api := newTestClient(t)
	api.mux.HandleFunc("/search/users", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "location:berlin language:go", r.URL.Query().Get("q"))
		assert.Equal(t, "10", r.URL.Query().Get("per_page"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"total_count": 1,
			"items":       []map[string]interface{}{{"login": "gopher", "id": 7}},
		})
	})

	users, err := client.SearchUsers(context.Background(), "location:berlin language:go", 0)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "gopher", users[0].Login)

	_, err = client.SearchUsers(context.Background(), "   ", 10)
	assert.True(t, errors.IsValidation(err))
}

func TestRateLimitedResponseIsGenericFailure(t *testing.T) {
	client, api := newTestClient(t)
	api.mux.HandleFunc("/repos/golang/go/stargazers", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"message": "slow down"})
	})

	_, err := client.GetStargazers(context.Background(), "golang/go", 30)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeExternal))
	assert.Len(t, api.recorded(), 1, "no retry")

	var appErr *errors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "golang/go", appErr.Context["repo"])
	assert.Equal(t, http.StatusTooManyRequests, appErr.Context["status"])
}

func TestCancelledContext(t *testing.T) {
	client, _ := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetUser(ctx, "octocat")
	assert.ErrorIs(t, err, context.Canceled)
}
