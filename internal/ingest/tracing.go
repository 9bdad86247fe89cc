package ingest

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func (in *Ingestor) startSpan(ctx context.Context, st *ingestion) (context.Context, trace.Span) {
	return in.tracer.Start(ctx, "ingest.body", trace.WithAttributes(
		attribute.String("ingest.class", st.class.String()),
		attribute.Int64("ingest.limit", st.limit),
	))
}

func endSpan(span trace.Span, st *ingestion, outcome Outcome) {
	span.SetAttributes(
		attribute.Int64("ingest.bytes", st.size),
		attribute.Int("ingest.files", st.files),
		attribute.String("ingest.outcome", outcome.Label()),
	)

	switch outcome.Kind {
	case OutcomeContinue:
		span.SetStatus(codes.Ok, "")
	case OutcomeStatus:
		span.SetStatus(codes.Error, outcome.String())
	default:
		if outcome.Err != nil {
			span.RecordError(outcome.Err)
		}
		span.SetStatus(codes.Error, outcome.String())
	}
	span.End()
}
