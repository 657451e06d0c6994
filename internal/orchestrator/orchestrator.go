package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/example/pr-style-reviewer/internal/analysis"
	"github.com/example/pr-style-reviewer/internal/checker"
	"github.com/example/pr-style-reviewer/internal/config"
	"github.com/example/pr-style-reviewer/internal/github"
	"github.com/example/pr-style-reviewer/internal/logger"
	"github.com/example/pr-style-reviewer/internal/review"
	"github.com/example/pr-style-reviewer/internal/storage"
)

var ErrInvalidInput = errors.New("invalid analyze input")

// Service reviews GitHub pull requests end to end: it resolves the pull
// request, runs a StyleChecker over it, persists the reviews and posts the
// resulting comments back to GitHub.
type Service struct {
	github    *github.Client
	store     storage.Store
	registry  *checker.Registry
	logger    *logger.Logger
	styleFile string
	defaults  config.Enablement
	options   []Option
}

// NewService builds a Service. opts are applied to the StyleChecker of
// every run.
func NewService(gh *github.Client, store storage.Store, registry *checker.Registry, log *logger.Logger, styleFile string, opts ...Option) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if store == nil {
		store = storage.NewMemoryStore()
	}
	return &Service{
		github:    gh,
		store:     store,
		registry:  registry,
		logger:    log,
		styleFile: styleFile,
		defaults:  config.DefaultEnablement(),
		options:   opts,
	}
}

type AnalyzeInput struct {
	Repository string
	PullNumber int
	CommitSHA  string
	// RunID identifies the run in logs and results. A new one is generated
	// when empty.
	RunID string
}

type AnalyzeResult struct {
	RunID      string
	Summary    string
	Violations int
	Reviews    []analysis.FileReview
}

func (in AnalyzeInput) validate() error {
	if in.Repository == "" {
		return fmt.Errorf("%w: repository is required", ErrInvalidInput)
	}
	if in.PullNumber <= 0 {
		return fmt.Errorf("%w: pull number is required", ErrInvalidInput)
	}
	if in.CommitSHA == "" {
		return fmt.Errorf("%w: commit SHA is required", ErrInvalidInput)
	}
	return nil
}

func (s *Service) AnalyzePR(ctx context.Context, input AnalyzeInput) (AnalyzeResult, error) {
	if err := input.validate(); err != nil {
		return AnalyzeResult{}, err
	}

	runID := input.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := s.logger.With("run_id", runID).With("repository", input.Repository).With("pull_number", input.PullNumber)

	pr, err := s.github.FetchPullRequest(ctx, input.Repository, input.PullNumber)
	if err != nil {
		return AnalyzeResult{}, err
	}

	prID, err := s.store.UpsertPullRequest(ctx, input.Repository, input.PullNumber, input.CommitSHA, pr.Title, storage.StatusAnalyzing)
	if err != nil {
		return AnalyzeResult{}, fmt.Errorf("recording pull request: %w", err)
	}
	if err := s.store.ClearViolations(ctx, prID); err != nil {
		return AnalyzeResult{}, fmt.Errorf("clearing previous violations: %w", err)
	}

	sub := github.NewSubmission(s.github, input.Repository, input.PullNumber, input.CommitSHA)
	opts := append([]Option{
		WithLogger(log),
		WithSink(storage.NewSink(s.store, prID)),
	}, s.options...)
	styleChecker := NewStyleChecker(
		s.registry,
		github.NewContentStore(s.github, input.Repository),
		github.NewConfigStore(s.github, input.Repository, input.CommitSHA, s.styleFile, s.defaults),
		opts...,
	)

	reviews, err := styleChecker.ReviewFiles(ctx, sub)
	if err != nil {
		s.markStatus(ctx, log, prID, storage.StatusFailed)
		return AnalyzeResult{}, err
	}

	generated := review.Generate(reviews)
	if len(generated.Comments) > 0 {
		comments := make([]github.ReviewComment, 0, len(generated.Comments))
		for _, c := range generated.Comments {
			comments = append(comments, github.ReviewComment{Path: c.Path, Position: c.Position, Body: c.Body})
		}
		if err := s.github.CreatePullRequestReview(ctx, input.Repository, input.PullNumber, input.CommitSHA, generated.Summary, comments); err != nil {
			log.Error("posting review", err)
		}
	}

	s.markStatus(ctx, log, prID, storage.StatusCompleted)

	total := 0
	for _, r := range reviews {
		total += len(r.Violations)
	}
	log.Infof("analysis finished with %d violations", total)

	return AnalyzeResult{
		RunID:      runID,
		Summary:    generated.Summary,
		Violations: total,
		Reviews:    reviews,
	}, nil
}

func (s *Service) markStatus(ctx context.Context, log *logger.Logger, prID int64, status string) {
	if err := s.store.UpdatePullRequestStatus(context.WithoutCancel(ctx), prID, status); err != nil {
		log.Error("updating pull request status", err)
	}
}
