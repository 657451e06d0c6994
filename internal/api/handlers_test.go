package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/pr-style-reviewer/internal/github"
	"github.com/example/pr-style-reviewer/internal/orchestrator"
	"github.com/example/pr-style-reviewer/internal/types"
)

type stubAnalyzer struct {
	called bool
	input  orchestrator.AnalyzeInput
	result orchestrator.AnalyzeResult
	err    error

	// release holds the analysis until closed.
	release chan struct{}
	// untilDone holds the analysis until its context ends.
	untilDone bool
	ctxErr    error
}

func (s *stubAnalyzer) AnalyzePR(ctx context.Context, input orchestrator.AnalyzeInput) (orchestrator.AnalyzeResult, error) {
	s.called = true
	s.input = input
	if s.release != nil {
		<-s.release
	}
	if s.untilDone {
		<-ctx.Done()
	}
	s.ctxErr = ctx.Err()
	return s.result, s.err
}

func webhookRequest(t *testing.T, ctx context.Context, action string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/github", bytes.NewReader(pullRequestPayload(t, action, false))).WithContext(ctx)
	req.Header.Set("X-GitHub-Event", "pull_request")
	return req
}

func pullRequestPayload(t *testing.T, action string, draft bool) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"action": action,
		"number": 7,
		"pull_request": map[string]any{
			"number": 7,
			"draft":  draft,
			"head":   map[string]any{"sha": "abc123"},
		},
		"repository": map[string]any{
			"full_name": "acme/demo",
		},
	})
	require.NoError(t, err)
	return body
}

func TestHealth(t *testing.T) {
	handlers := NewHandlers(&stubAnalyzer{}, "")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	res := httptest.NewRecorder()

	handlers.Health(res, req)

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "{\"status\":\"ok\"}\n", res.Body.String())
}

func TestWebhookGitHubMissingHeader(t *testing.T) {
	handlers := NewHandlers(&stubAnalyzer{}, "")
	req := httptest.NewRequest(http.MethodPost, "/webhook/github", nil)
	res := httptest.NewRecorder()

	handlers.WebhookGitHub(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestWebhookGitHubIgnoredEvents(t *testing.T) {
	cases := map[string]struct {
		event string
		body  []byte
	}{
		"ping":   {event: "ping"},
		"closed": {event: "pull_request", body: pullRequestPayload(t, "closed", false)},
		"draft":  {event: "pull_request", body: pullRequestPayload(t, "opened", true)},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			stub := &stubAnalyzer{}
			handlers := NewHandlers(stub, "")
			req := httptest.NewRequest(http.MethodPost, "/webhook/github", bytes.NewReader(tc.body))
			req.Header.Set("X-GitHub-Event", tc.event)
			res := httptest.NewRecorder()

			handlers.WebhookGitHub(res, req)

			assert.Equal(t, http.StatusOK, res.Code)
			assert.False(t, stub.called)
		})
	}
}

func TestWebhookGitHubDispatchesAnalysis(t *testing.T) {
	stub := &stubAnalyzer{result: orchestrator.AnalyzeResult{Summary: "done"}}
	handlers := NewHandlers(stub, "")
	res := httptest.NewRecorder()

	handlers.WebhookGitHub(res, webhookRequest(t, context.Background(), "opened"))

	require.Equal(t, http.StatusAccepted, res.Code)
	var body types.WebhookResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, "queued", body.Status)
	require.NotEmpty(t, body.RunID)

	require.NoError(t, handlers.Drain(context.Background()))
	require.True(t, stub.called)
	assert.Equal(t, orchestrator.AnalyzeInput{Repository: "acme/demo", PullNumber: 7, CommitSHA: "abc123", RunID: body.RunID}, stub.input)
}

func TestWebhookGitHubRespondsBeforeAnalysisFinishes(t *testing.T) {
	stub := &stubAnalyzer{release: make(chan struct{})}
	handlers := NewHandlers(stub, "")
	res := httptest.NewRecorder()

	handlers.WebhookGitHub(res, webhookRequest(t, context.Background(), "opened"))
	assert.Equal(t, http.StatusAccepted, res.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, handlers.Drain(ctx), context.DeadlineExceeded)

	close(stub.release)
	require.NoError(t, handlers.Drain(context.Background()))
	assert.True(t, stub.called)
}

func TestWebhookGitHubAnalysisOutlivesRequest(t *testing.T) {
	stub := &stubAnalyzer{release: make(chan struct{}), result: orchestrator.AnalyzeResult{Violations: 2}}
	handlers := NewHandlers(stub, "")
	ctx, cancel := context.WithCancel(context.Background())
	res := httptest.NewRecorder()

	handlers.WebhookGitHub(res, webhookRequest(t, ctx, "synchronize"))
	require.Equal(t, http.StatusAccepted, res.Code)

	// The delivery times out on GitHub's side while the review is running.
	cancel()
	close(stub.release)

	require.NoError(t, handlers.Drain(context.Background()))
	assert.True(t, stub.called)
	assert.NoError(t, stub.ctxErr)
}

func TestWebhookGitHubAnalysisBoundedByRunTimeout(t *testing.T) {
	stub := &stubAnalyzer{untilDone: true}
	handlers := NewHandlers(stub, "", WithRunTimeout(20*time.Millisecond))
	res := httptest.NewRecorder()

	handlers.WebhookGitHub(res, webhookRequest(t, context.Background(), "opened"))
	require.Equal(t, http.StatusAccepted, res.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, handlers.Drain(ctx))
	assert.ErrorIs(t, stub.ctxErr, context.DeadlineExceeded)
}

func TestWebhookGitHubAnalysisFailureStillAccepted(t *testing.T) {
	stub := &stubAnalyzer{err: fmt.Errorf("fetch: %w", github.ErrNotFound)}
	handlers := NewHandlers(stub, "")
	res := httptest.NewRecorder()

	handlers.WebhookGitHub(res, webhookRequest(t, context.Background(), "reopened"))

	assert.Equal(t, http.StatusAccepted, res.Code)
	require.NoError(t, handlers.Drain(context.Background()))
	assert.True(t, stub.called)
}

func TestWebhookGitHubSignatureMissing(t *testing.T) {
	stub := &stubAnalyzer{}
	handlers := NewHandlers(stub, "secret")
	req := httptest.NewRequest(http.MethodPost, "/webhook/github", bytes.NewBufferString(`{"action":"opened"}`))
	req.Header.Set("X-GitHub-Event", "pull_request")
	res := httptest.NewRecorder()

	handlers.WebhookGitHub(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.False(t, stub.called)
}

func TestWebhookGitHubSignatureMismatch(t *testing.T) {
	handlers := NewHandlers(&stubAnalyzer{}, "secret")
	body := pullRequestPayload(t, "opened", false)
	req := httptest.NewRequest(http.MethodPost, "/webhook/github", bytes.NewReader(body))
	req.Header.Set("X-GitHub-Event", "pull_request")
	req.Header.Set("X-Hub-Signature-256", signPayload("other", body))
	res := httptest.NewRecorder()

	handlers.WebhookGitHub(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestWebhookGitHubSignatureValid(t *testing.T) {
	stub := &stubAnalyzer{result: orchestrator.AnalyzeResult{Summary: "done"}}
	handlers := NewHandlers(stub, "secret")
	body := pullRequestPayload(t, "synchronize", false)

	req := httptest.NewRequest(http.MethodPost, "/webhook/github", bytes.NewReader(body))
	req.Header.Set("X-GitHub-Event", "pull_request")
	req.Header.Set("X-Hub-Signature-256", signPayload("secret", body))
	res := httptest.NewRecorder()

	handlers.WebhookGitHub(res, req)

	assert.Equal(t, http.StatusAccepted, res.Code)
	require.NoError(t, handlers.Drain(context.Background()))
	assert.True(t, stub.called)
}

func TestAnalyzePRInvalidJSON(t *testing.T) {
	handlers := NewHandlers(&stubAnalyzer{}, "")
	req := httptest.NewRequest(http.MethodPost, "/analyze/pr", bytes.NewBufferString("not-json"))
	res := httptest.NewRecorder()

	handlers.AnalyzePR(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestAnalyzePRRejectsInvalidRequest(t *testing.T) {
	stub := &stubAnalyzer{}
	handlers := NewHandlers(stub, "")
	req := httptest.NewRequest(http.MethodPost, "/analyze/pr", bytes.NewBufferString(`{"repository":"demo","pull_number":1,"commit_sha":"deadbeef"}`))
	res := httptest.NewRecorder()

	handlers.AnalyzePR(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.False(t, stub.called)
}

func TestAnalyzePRAcceptsRequest(t *testing.T) {
	stub := &stubAnalyzer{result: orchestrator.AnalyzeResult{RunID: "run-2", Summary: "summary", Violations: 3}}
	handlers := NewHandlers(stub, "")

	body, err := json.Marshal(map[string]any{
		"repository":  "acme/demo",
		"pull_number": 99,
		"commit_sha":  "deadbeef",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/analyze/pr", bytes.NewReader(body))
	res := httptest.NewRecorder()

	handlers.AnalyzePR(res, req)

	require.Equal(t, http.StatusAccepted, res.Code)
	assert.True(t, stub.called)

	var resp types.AnalyzeResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &resp))
	assert.Equal(t, "run-2", resp.RunID)
	assert.Equal(t, 3, resp.Violations)
	assert.Equal(t, "summary", resp.Message)
}

func TestAnalyzePRMapsErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{err: fmt.Errorf("%w: repository is required", orchestrator.ErrInvalidInput), want: http.StatusBadRequest},
		{err: fmt.Errorf("fetch: %w", github.ErrNotFound), want: http.StatusNotFound},
		{err: github.ErrNotConfigured, want: http.StatusServiceUnavailable},
		{err: fmt.Errorf("%w: %w", orchestrator.ErrConfigResolution, github.ErrTransient), want: http.StatusBadGateway},
		{err: fmt.Errorf("boom"), want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			handlers := NewHandlers(&stubAnalyzer{err: tc.err}, "")
			req := httptest.NewRequest(http.MethodPost, "/analyze/pr", bytes.NewBufferString(`{"repository":"acme/demo","pull_number":1,"commit_sha":"deadbeef"}`))
			res := httptest.NewRecorder()

			handlers.AnalyzePR(res, req)

			assert.Equal(t, tc.want, res.Code)
		})
	}
}

func signPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
