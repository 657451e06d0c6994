package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/pr-style-reviewer/internal/github"
	"github.com/example/pr-style-reviewer/internal/logger"
	"github.com/example/pr-style-reviewer/internal/orchestrator"
	"github.com/example/pr-style-reviewer/internal/types"
)

const (
	maxPayloadBytes   = 5 << 20
	defaultRunTimeout = 10 * time.Minute
)

type Handlers struct {
	orchestrator  Analyzer
	webhookSecret string
	logger        *logger.Logger
	runTimeout    time.Duration
	inflight      sync.WaitGroup
}

type Analyzer interface {
	AnalyzePR(ctx context.Context, input orchestrator.AnalyzeInput) (orchestrator.AnalyzeResult, error)
}

type Option func(*Handlers)

func WithLogger(l *logger.Logger) Option {
	return func(h *Handlers) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithRunTimeout bounds each review started from a webhook delivery.
func WithRunTimeout(d time.Duration) Option {
	return func(h *Handlers) {
		if d > 0 {
			h.runTimeout = d
		}
	}
}

// NewHandlers builds the HTTP handlers. When webhookSecret is set, webhook
// deliveries must carry a valid X-Hub-Signature-256 header.
func NewHandlers(orchestrator Analyzer, webhookSecret string, opts ...Option) *Handlers {
	h := &Handlers{orchestrator: orchestrator, webhookSecret: webhookSecret, logger: logger.Nop(), runTimeout: defaultRunTimeout}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, types.HealthResponse{Status: "ok"})
}

func (h *Handlers) WebhookGitHub(w http.ResponseWriter, r *http.Request) {
	event := r.Header.Get("X-GitHub-Event")
	if event == "" {
		respondError(w, http.StatusBadRequest, "missing X-GitHub-Event header")
		return
	}

	payload, err := readBody(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unable to read request body")
		return
	}

	if h.webhookSecret != "" && !validSignature(h.webhookSecret, payload, r.Header.Get("X-Hub-Signature-256")) {
		h.logger.With("event", event).Warnf("rejected webhook with invalid signature")
		respondError(w, http.StatusUnauthorized, "invalid webhook signature")
		return
	}

	if event != "pull_request" {
		respondJSON(w, http.StatusOK, types.WebhookResponse{Status: "ignored"})
		return
	}

	var prEvent types.PullRequestEvent
	if err := json.Unmarshal(payload, &prEvent); err != nil {
		respondError(w, http.StatusBadRequest, "invalid pull_request payload")
		return
	}

	if !prEvent.IsActionSupported() || prEvent.PullRequest.Draft {
		respondJSON(w, http.StatusOK, types.WebhookResponse{Status: "ignored"})
		return
	}

	if prEvent.PullRequest.Number == 0 || prEvent.Repository.FullName == "" || prEvent.PullRequest.Head.SHA == "" {
		respondError(w, http.StatusBadRequest, "pull_request payload missing required fields")
		return
	}

	input := orchestrator.AnalyzeInput{
		Repository: prEvent.Repository.FullName,
		PullNumber: prEvent.PullRequest.Number,
		CommitSHA:  prEvent.PullRequest.Head.SHA,
		RunID:      uuid.NewString(),
	}
	// GitHub gives up on a delivery after a few seconds, so the review must
	// not share the request's lifetime.
	h.startReview(context.WithoutCancel(r.Context()), input)

	respondJSON(w, http.StatusAccepted, types.WebhookResponse{Status: "queued", RunID: input.RunID})
}

func (h *Handlers) startReview(ctx context.Context, input orchestrator.AnalyzeInput) {
	log := h.logger.With("run_id", input.RunID)
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		ctx, cancel := context.WithTimeout(ctx, h.runTimeout)
		defer cancel()

		result, err := h.orchestrator.AnalyzePR(ctx, input)
		if err != nil {
			log.Error("webhook analysis failed", err)
			return
		}
		log.Infof("reviewed %s#%d (%s): %d violations",
			input.Repository, input.PullNumber, input.CommitSHA, result.Violations)
	}()
}

// Drain waits for reviews started by webhook deliveries to finish, or for
// ctx to be done.
func (h *Handlers) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handlers) AnalyzePR(w http.ResponseWriter, r *http.Request) {
	var req types.AnalyzeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxPayloadBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.orchestrator.AnalyzePR(r.Context(), orchestrator.AnalyzeInput{
		Repository: req.Repository,
		PullNumber: req.PullNumber,
		CommitSHA:  req.CommitSHA,
	})
	if err != nil {
		h.logger.Error("analysis failed", err)
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, types.AnalyzeResponse{
		Status:     "completed",
		RunID:      result.RunID,
		Message:    result.Summary,
		Violations: result.Violations,
		Files:      result.Reviews,
	})
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	return io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
}

func validSignature(secret string, payload []byte, header string) bool {
	signature, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(got, mac.Sum(nil))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, github.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, github.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, github.ErrTransient):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, types.ErrorResponse{Error: message})
}
