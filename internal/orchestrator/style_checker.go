package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/pr-style-reviewer/internal/analysis"
	"github.com/example/pr-style-reviewer/internal/checker"
	"github.com/example/pr-style-reviewer/internal/config"
	"github.com/example/pr-style-reviewer/internal/logger"
	"github.com/example/pr-style-reviewer/internal/metrics"
)

var (
	// ErrConfigResolution aborts a review: without enablement data no file
	// can be dispatched safely.
	ErrConfigResolution = errors.New("config resolution failed")

	// ErrContentFetch marks a file whose content could not be retrieved.
	ErrContentFetch = errors.New("content fetch failed")
)

// ContentStore returns the full content of a file at its revision.
type ContentStore interface {
	Fetch(ctx context.Context, file analysis.ChangedFile) (string, error)
}

// ConfigStore resolves the merged enablement for a submission.
type ConfigStore interface {
	EnablementFor(ctx context.Context, sub analysis.Submission) (config.Enablement, error)
}

// Sink receives each non-empty file review once, in submission order.
type Sink interface {
	Record(ctx context.Context, review analysis.FileReview) error
}

const (
	defaultWorkers      = 8
	defaultFetchTimeout = 10 * time.Second
	defaultCheckTimeout = 30 * time.Second
)

// StyleChecker dispatches the changed files of a submission to checkers
// and keeps the findings that land on changed lines.
type StyleChecker struct {
	registry     *checker.Registry
	contents     ContentStore
	configs      ConfigStore
	sink         Sink
	logger       *logger.Logger
	workers      int
	fetchTimeout time.Duration
	checkTimeout time.Duration
}

// Option configures a StyleChecker.
type Option func(*StyleChecker)

func WithSink(sink Sink) Option {
	return func(s *StyleChecker) {
		s.sink = sink
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(s *StyleChecker) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWorkers bounds how many files are reviewed at once.
func WithWorkers(n int) Option {
	return func(s *StyleChecker) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithFetchTimeout(d time.Duration) Option {
	return func(s *StyleChecker) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

func WithCheckTimeout(d time.Duration) Option {
	return func(s *StyleChecker) {
		if d > 0 {
			s.checkTimeout = d
		}
	}
}

func NewStyleChecker(registry *checker.Registry, contents ContentStore, configs ConfigStore, opts ...Option) *StyleChecker {
	s := &StyleChecker{
		registry:     registry,
		contents:     contents,
		configs:      configs,
		logger:       logger.Nop(),
		workers:      defaultWorkers,
		fetchTimeout: defaultFetchTimeout,
		checkTimeout: defaultCheckTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReviewFiles reviews every modified file of sub and returns one
// FileReview per file with at least one violation, in the order the
// submission lists its files. Per-file failures are logged and skipped;
// only a config resolution failure, a failure to list the files or
// cancellation of ctx abort the review.
func (s *StyleChecker) ReviewFiles(ctx context.Context, sub analysis.Submission) ([]analysis.FileReview, error) {
	start := time.Now()
	defer func() { metrics.ObserveReview(time.Since(start)) }()

	log := s.logger.With("submission", sub.ID())

	enablement, err := s.configs.EnablementFor(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigResolution, err)
	}

	files, err := sub.ModifiedFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing modified files: %w", err)
	}

	results := make([]*analysis.FileReview, len(files))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, file := range files {
		c := s.registry.Resolve(file.Filename, enablement)
		if checker.IsUnsupported(c) {
			metrics.RecordFile("", metrics.OutcomeUnsupported)
			log.With("file", file.Filename).Debug("no enabled checker for file")
			continue
		}
		i, file := i, file
		g.Go(func() error {
			results[i] = s.reviewFile(ctx, log, sub, file, c)
			return nil
		})
	}
	// reviewFile contains its own failures, so no task returns an error.
	g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("review of %s cancelled: %w", sub.ID(), err)
	}

	reviews := make([]analysis.FileReview, 0, len(results))
	for _, review := range results {
		if review == nil || len(review.Violations) == 0 {
			continue
		}
		reviews = append(reviews, *review)
		if s.sink != nil {
			if err := s.sink.Record(ctx, *review); err != nil {
				log.With("file", review.Filename).Error("recording file review", err)
			}
		}
	}

	log.Infof("reviewed %d files, %d with violations", len(files), len(reviews))
	return reviews, nil
}

func (s *StyleChecker) reviewFile(ctx context.Context, log *logger.Logger, sub analysis.Submission, file analysis.ChangedFile, c checker.Checker) *analysis.FileReview {
	language := c.Language()
	ctx, span := startFileSpan(ctx, sub.ID(), file.Filename, language)
	defer span.End()

	log = log.With("file", file.Filename).With("language", language)
	finish := func(outcome string, err error) {
		metrics.RecordFile(language, outcome)
		setFileSpanOutcome(span, outcome, err)
		if err != nil {
			log.With("outcome", outcome).Warn("file skipped", err)
		} else {
			log.With("outcome", outcome).Debug("file reviewed")
		}
	}

	// Parse the patch before the comparatively expensive content fetch.
	patch, err := analysis.ParsePatch(file.Patch)
	if err != nil {
		finish(metrics.OutcomeMalformedDiff, err)
		return nil
	}

	content, err := s.fetch(ctx, file)
	if err != nil {
		finish(failureOutcome(metrics.OutcomeFetchFailed, err), err)
		return nil
	}

	findings, err := s.check(ctx, c, content)
	if err != nil {
		finish(failureOutcome(metrics.OutcomeCheckerFailed, err), err)
		return nil
	}

	violations := make([]analysis.Violation, 0, len(findings))
	for _, finding := range findings {
		position, ok := patch.PositionOf(finding.Line)
		if !ok {
			continue
		}
		violations = append(violations, analysis.Violation{
			Filename:   file.Filename,
			Line:       finding.Line,
			Position:   position,
			RuleID:     finding.RuleID,
			Message:    finding.Message,
			RevisionID: file.RevisionID,
		})
	}
	metrics.RecordViolations(language, len(violations), len(findings)-len(violations))

	if len(violations) == 0 {
		finish(metrics.OutcomeClean, nil)
		return nil
	}
	finish(metrics.OutcomeViolations, nil)
	return &analysis.FileReview{
		Filename:   file.Filename,
		RevisionID: file.RevisionID,
		Language:   language,
		Violations: violations,
	}
}

func (s *StyleChecker) fetch(ctx context.Context, file analysis.ChangedFile) (string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	content, err := s.contents.Fetch(fetchCtx, file)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrContentFetch, file.Filename, err)
	}
	return content, nil
}

type checkResult struct {
	findings []checker.Finding
	err      error
}

// check runs c under the check timeout. A checker that ignores its context
// is abandoned when the deadline passes.
func (s *StyleChecker) check(ctx context.Context, c checker.Checker, content string) ([]checker.Finding, error) {
	checkCtx, cancel := context.WithTimeout(ctx, s.checkTimeout)
	defer cancel()

	done := make(chan checkResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- checkResult{err: fmt.Errorf("%w: panic: %v", checker.ErrCheckerFailure, r)}
			}
		}()
		findings, err := c.Check(checkCtx, content)
		done <- checkResult{findings: findings, err: err}
	}()

	select {
	case result := <-done:
		if result.err != nil && !errors.Is(result.err, checker.ErrCheckerFailure) {
			result.err = fmt.Errorf("%w: %w", checker.ErrCheckerFailure, result.err)
		}
		return result.findings, result.err
	case <-checkCtx.Done():
		return nil, fmt.Errorf("%w: %w", checker.ErrCheckerFailure, checkCtx.Err())
	}
}

func failureOutcome(outcome string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return metrics.OutcomeTimeout
	}
	return outcome
}
