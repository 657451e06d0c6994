package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// File review outcomes. Every file of a submission ends in exactly one.
const (
	OutcomeViolations    = "violations"
	OutcomeClean         = "clean"
	OutcomeUnsupported   = "unsupported"
	OutcomeMalformedDiff = "malformed_diff"
	OutcomeFetchFailed   = "fetch_failed"
	OutcomeCheckerFailed = "checker_failed"
	OutcomeTimeout       = "timeout"
)

var (
	filesReviewed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "style_review_files_total",
		Help: "Files processed by the style reviewer by language and outcome",
	}, []string{"language", "outcome"})

	violationsReported = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "style_review_violations_total",
		Help: "Violations reported on changed lines by language",
	}, []string{"language"})

	findingsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "style_review_findings_suppressed_total",
		Help: "Checker findings dropped because they fall outside the diff",
	}, []string{"language"})

	reviewDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "style_review_duration_seconds",
		Help:    "Duration of a full submission review",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	})
)

// RecordFile counts one file outcome. Unsupported files carry an empty language.
func RecordFile(language, outcome string) {
	if language == "" {
		language = "none"
	}
	filesReviewed.WithLabelValues(language, outcome).Inc()
}

func RecordViolations(language string, reported, suppressed int) {
	if reported > 0 {
		violationsReported.WithLabelValues(language).Add(float64(reported))
	}
	if suppressed > 0 {
		findingsSuppressed.WithLabelValues(language).Add(float64(suppressed))
	}
}

func ObserveReview(d time.Duration) {
	reviewDuration.Observe(d.Seconds())
}
