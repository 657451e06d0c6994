package orchestrator

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("pr-style-reviewer.orchestrator")

func startFileSpan(ctx context.Context, submission, filename, language string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "StyleChecker.reviewFile",
		trace.WithAttributes(
			attribute.String("review.submission", submission),
			attribute.String("review.file", filename),
			attribute.String("review.language", language),
		),
	)
}

func setFileSpanOutcome(span trace.Span, outcome string, err error) {
	span.SetAttributes(attribute.String("review.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
}
