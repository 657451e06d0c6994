package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/pr-style-reviewer/internal/analysis"
	"github.com/example/pr-style-reviewer/internal/config"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient("token", WithBaseURL(server.URL), WithHTTPClient(server.Client()), WithRateLimit(0))
}

func TestNewClientWithoutToken(t *testing.T) {
	assert.Nil(t, NewClient(""))

	var c *Client
	_, err := c.ListPullRequestFiles(context.Background(), "acme/demo", 1)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestListPullRequestFilesPaginates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/demo/pulls/7/files", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		count := filesPerPage
		if page == 2 {
			count = 1
		}
		files := make([]PullRequestFile, count)
		for i := range files {
			files[i] = PullRequestFile{Filename: fmt.Sprintf("p%d/f%d.rb", page, i), Status: "modified", Patch: "@@ -1 +1 @@\n-x\n+y"}
		}
		_ = json.NewEncoder(w).Encode(files)
	})

	files, err := newTestClient(t, mux).ListPullRequestFiles(context.Background(), "acme/demo", 7)
	require.NoError(t, err)
	require.Len(t, files, filesPerPage+1)
	assert.Equal(t, "p1/f0.rb", files[0].Filename)
	assert.Equal(t, "p2/f0.rb", files[filesPerPage].Filename)
}

func TestFetchFileContent(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/demo/contents/app/my%20file.rb", r.URL.EscapedPath())
		assert.Equal(t, "abc123", r.URL.Query().Get("ref"))
		assert.Equal(t, "application/vnd.github.raw", r.Header.Get("Accept"))
		_, _ = w.Write([]byte("puts 'hi'\n"))
	})

	content, err := newTestClient(t, handler).FetchFileContent(context.Background(), "acme/demo", "app/my file.rb", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "puts 'hi'\n", content)
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{status: http.StatusNotFound, want: ErrNotFound},
		{status: http.StatusBadGateway, want: ErrTransient},
		{status: http.StatusTooManyRequests, want: ErrTransient},
	}
	for _, tc := range cases {
		t.Run(strconv.Itoa(tc.status), func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tc.status)
			}))
			_, err := client.FetchFileContent(context.Background(), "acme/demo", "a.rb", "sha")
			assert.ErrorIs(t, err, tc.want)
		})
	}

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	_, err := client.FetchFileContent(context.Background(), "acme/demo", "a.rb", "sha")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrTransient)
}

func TestCreatePullRequestReview(t *testing.T) {
	var got map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/acme/demo/pulls/7/reviews", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	err := newTestClient(t, mux).CreatePullRequestReview(context.Background(), "acme/demo", 7, "abc123", "summary", []ReviewComment{
		{Path: "a.rb", Position: 3, Body: "Trailing whitespace detected."},
	})
	require.NoError(t, err)

	assert.Equal(t, "COMMENT", got["event"])
	assert.Equal(t, "abc123", got["commit_id"])
	comments := got["comments"].([]any)
	require.Len(t, comments, 1)
	assert.Equal(t, float64(3), comments[0].(map[string]any)["position"])
}

func TestSubmissionModifiedFiles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/demo/pulls/7/files", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]PullRequestFile{
			{Filename: "a.rb", Status: "modified", Patch: "@@ -1 +1 @@\n-a\n+b"},
			{Filename: "gone.rb", Status: "removed", Patch: "@@ -1 +0,0 @@\n-a"},
			{Filename: "logo.png", Status: "added"},
			{Filename: "b.js", Status: "added", Patch: "@@ -0,0 +1 @@\n+x"},
		})
	})

	sub := NewSubmission(newTestClient(t, mux), "acme/demo", 7, "abc123")
	assert.Equal(t, "acme/demo#7@abc123", sub.ID())

	files, err := sub.ModifiedFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []analysis.ChangedFile{
		{Filename: "a.rb", Patch: "@@ -1 +1 @@\n-a\n+b", RevisionID: "abc123", Status: "modified"},
		{Filename: "b.js", Patch: "@@ -0,0 +1 @@\n+x", RevisionID: "abc123", Status: "added"},
	}, files)
}

func TestConfigStore(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/demo/contents/.hound.yml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ruby:\n  enabled: false\n"))
	})
	client := newTestClient(t, mux)

	cfg, err := NewConfigStore(client, "acme/demo", "abc123", ".hound.yml", config.DefaultEnablement()).EnablementFor(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, cfg.Enabled("ruby"))
	assert.True(t, cfg.Enabled("javascript"))

	cfg, err = NewConfigStore(client, "acme/demo", "abc123", ".missing.yml", config.DefaultEnablement()).EnablementFor(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultEnablement(), cfg)
}

func TestConfigStoreTransientFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := NewConfigStore(client, "acme/demo", "abc123", ".hound.yml", config.DefaultEnablement()).EnablementFor(context.Background(), nil)
	assert.ErrorIs(t, err, ErrTransient)
}
