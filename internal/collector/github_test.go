package collector

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kurihiro0119/github-repo-analyzer/internal/errors"
)

func newTestCollector(t *testing.T, handler http.Handler, opts Options) Collector {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts.BaseURL = server.URL
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Millisecond
	}
	c, err := NewGitHubCollector(opts)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestGetProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/octocat", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"login":        "octocat",
			"name":         "The Octocat",
			"bio":          "",
			"avatar_url":   "https://avatars.example/octocat",
			"public_repos": 8,
			"followers":    100,
			"following":    9,
			"blog":         "https://github.blog",
			"html_url":     "https://github.com/octocat",
		})
	})
	c := newTestCollector(t, mux, Options{})

	profile, err := c.GetProfile(t.Context(), "octocat")
	require.NoError(t, err)
	assert.Equal(t, "octocat", profile.Login)
	require.NotNil(t, profile.Name)
	assert.Equal(t, "The Octocat", *profile.Name)
	assert.Nil(t, profile.Bio)
	assert.Nil(t, profile.Location)
	assert.Equal(t, 8, profile.PublicRepos)
	assert.Equal(t, "https://github.com/octocat", profile.GitHubURL)
}

func TestRateLimit_TracksResponseHeaders(t *testing.T) {
	reset := time.Now().Add(time.Hour).Truncate(time.Second)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "5000")
		w.Header().Set("X-RateLimit-Remaining", "4321")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
		writeJSON(w, http.StatusOK, map[string]interface{}{"login": "octocat"})
	})
	c := newTestCollector(t, handler, Options{})

	remaining, _, err := c.RateLimit()
	require.NoError(t, err)
	assert.Equal(t, -1, remaining)

	_, err = c.GetProfile(t.Context(), "octocat")
	require.NoError(t, err)

	remaining, resetAt, err := c.RateLimit()
	require.NoError(t, err)
	assert.Equal(t, 4321, remaining)
	assert.Equal(t, reset.Unix(), resetAt.Unix())
}

func TestGetProfile_ErrorMapping(t *testing.T) {
	reset := time.Now().Add(30 * time.Minute).Unix()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    apperrors.ErrCode
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
			},
			want: apperrors.ErrCodeNotFound,
		},
		{
			name: "bad credentials",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
			},
			want: apperrors.ErrCodeUnauthorized,
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-RateLimit-Limit", "60")
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
				writeJSON(w, http.StatusForbidden, map[string]string{"message": "API rate limit exceeded"})
			},
			want: apperrors.ErrCodeRateLimited,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusBadGateway, map[string]string{"message": "unicorn"})
			},
			want: apperrors.ErrCodeUpstreamError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCollector(t, tt.handler, Options{RetryAttempts: 1})

			_, err := c.GetProfile(t.Context(), "octocat")
			require.Error(t, err)
			assert.Equal(t, tt.want, apperrors.CodeOf(err))
		})
	}
}

func TestGetProfile_RateLimitCarriesReset(t *testing.T) {
	reset := time.Now().Add(time.Hour).Truncate(time.Second)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "API rate limit exceeded"})
	})
	c := newTestCollector(t, handler, Options{RetryAttempts: 1})

	_, err := c.GetProfile(t.Context(), "octocat")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrCodeRateLimited, appErr.Code)
	assert.Equal(t, reset.Unix(), appErr.ResetAt.Unix())
	assert.Contains(t, appErr.Message, strconv.FormatInt(reset.Unix(), 10))
}

func TestGetProfile_Timeout(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	c := newTestCollector(t, handler, Options{RequestTimeout: 50 * time.Millisecond, RetryAttempts: 1})

	_, err := c.GetProfile(t.Context(), "octocat")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUpstreamTimeout, apperrors.CodeOf(err))
}

func TestGetProfile_RetriesTransientFailures(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "try again"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"login": "octocat"})
	})
	c := newTestCollector(t, handler, Options{RetryAttempts: 3})

	profile, err := c.GetProfile(t.Context(), "octocat")
	require.NoError(t, err)
	assert.Equal(t, "octocat", profile.Login)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGetProfile_DoesNotRetryNotFound(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
	})
	c := newTestCollector(t, handler, Options{RetryAttempts: 3})

	_, err := c.GetProfile(t.Context(), "ghost")
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetProfile_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Validation Failed"})
	})
	c := newTestCollector(t, handler, Options{RetryAttempts: 3})

	_, err := c.GetProfile(t.Context(), "octocat")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrCodeUpstreamError, appErr.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func repoPage(page, n int) []map[string]interface{} {
	repos := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("repo-%d-%d", page, i)
		repos = append(repos, map[string]interface{}{
			"name":             name,
			"full_name":        "octocat/" + name,
			"owner":            map[string]string{"login": "octocat"},
			"html_url":         "https://github.com/octocat/" + name,
			"stargazers_count": i,
			"fork":             i%2 == 1,
			"language":         "Go",
			"size":             12,
			"pushed_at":        "2025-05-01T10:00:00Z",
			"license":          map[string]string{"key": "mit", "spdx_id": "MIT"},
		})
	}
	return repos
}

func TestGetRepositories_Pagination(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/users/octocat/repos", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		assert.Equal(t, "updated", r.URL.Query().Get("sort"))

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page == 0 {
			page = 1
		}
		switch page {
		case 1, 2:
			writeJSON(w, http.StatusOK, repoPage(page, PerPage))
		default:
			writeJSON(w, http.StatusOK, repoPage(page, 20))
		}
	})

	t.Run("short page ends listing", func(t *testing.T) {
		atomic.StoreInt32(&calls, 0)
		c := newTestCollector(t, handler, Options{})

		repos, err := c.GetRepositories(t.Context(), "octocat", 1000)
		require.NoError(t, err)
		assert.Len(t, repos, 220)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("limit caps requests and result", func(t *testing.T) {
		atomic.StoreInt32(&calls, 0)
		c := newTestCollector(t, handler, Options{})

		repos, err := c.GetRepositories(t.Context(), "octocat", 150)
		require.NoError(t, err)
		assert.Len(t, repos, 150)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

		first := repos[0]
		assert.Equal(t, "repo-1-0", first.Name)
		assert.Equal(t, "octocat", first.Owner)
		assert.Equal(t, "Go", first.Language)
		require.NotNil(t, first.License)
		assert.Equal(t, "MIT", *first.License)
		require.NotNil(t, first.PushedAt)
		assert.Equal(t, 2025, first.PushedAt.Year())
		assert.Nil(t, first.UpdatedAt)
		assert.True(t, repos[1].IsFork)
	})
}

func TestGetRepositories_UnknownUser(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
	})
	c := newTestCollector(t, handler, Options{})

	_, err := c.GetRepositories(t.Context(), "ghost", 100)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGetLanguages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octocat/tool/languages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{"Go": 4000, "Shell": 120})
	})
	mux.HandleFunc("/repos/octocat/gone/languages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
	})
	mux.HandleFunc("/repos/octocat/broken/languages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "boom"})
	})
	c := newTestCollector(t, mux, Options{RetryAttempts: 2})

	langs, err := c.GetLanguages(t.Context(), "octocat", "tool")
	require.NoError(t, err)
	assert.Equal(t, 4000, langs["Go"])
	assert.Equal(t, 4120, langs.TotalBytes())

	langs, err = c.GetLanguages(t.Context(), "octocat", "gone")
	require.NoError(t, err)
	assert.NotNil(t, langs)
	assert.Empty(t, langs)

	_, err = c.GetLanguages(t.Context(), "octocat", "broken")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUpstreamError, apperrors.CodeOf(err))
}

func TestNewGitHubCollector_InvalidBaseURL(t *testing.T) {
	_, err := NewGitHubCollector(Options{BaseURL: "http://[::1"})
	assert.Error(t, err)
}
