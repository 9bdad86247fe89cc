package ingest

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type recordingSpan struct {
	noop.Span
	name   string
	attrs  map[attribute.Key]attribute.Value
	status codes.Code
	errs   []error
	ended  bool
}

func (s *recordingSpan) SetAttributes(kv ...attribute.KeyValue) {
	for _, attr := range kv {
		s.attrs[attr.Key] = attr.Value
	}
}

func (s *recordingSpan) SetStatus(code codes.Code, _ string) { s.status = code }

func (s *recordingSpan) RecordError(err error, _ ...trace.EventOption) { s.errs = append(s.errs, err) }

func (s *recordingSpan) End(...trace.SpanEndOption) { s.ended = true }

type recordingTracer struct {
	noop.Tracer
	spans []*recordingSpan
}

func (tr *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	span := &recordingSpan{name: name, attrs: map[attribute.Key]attribute.Value{}}
	cfg := trace.NewSpanStartConfig(opts...)
	span.SetAttributes(cfg.Attributes()...)
	tr.spans = append(tr.spans, span)
	return trace.ContextWithSpan(ctx, span), span
}

func TestIngestor_SpanPerIngestion(t *testing.T) {
	tracer := &recordingTracer{}
	sub := newFakeSubscription(chunk(`{"a":1}`), end())
	req := newFakeRequest(http.MethodPost, "application/json", 100, sub)

	outcome := ingest(t, newTestIngestor(WithTracer(tracer)), req)
	require.True(t, outcome.IsContinue())

	require.Len(t, tracer.spans, 1)
	span := tracer.spans[0]
	assert.Equal(t, "ingest.body", span.name)
	assert.True(t, span.ended)
	assert.Equal(t, codes.Ok, span.status)
	assert.Equal(t, "json", span.attrs["ingest.class"].AsString())
	assert.Equal(t, int64(100), span.attrs["ingest.limit"].AsInt64())
	assert.Equal(t, int64(7), span.attrs["ingest.bytes"].AsInt64())
	assert.Equal(t, "continue", span.attrs["ingest.outcome"].AsString())
}

func TestIngestor_SpanRecordsFailures(t *testing.T) {
	tracer := &recordingTracer{}
	sub := newFakeSubscription(chunk(`{bad`), end())
	req := newFakeRequest(http.MethodPost, "application/json", Unlimited, sub)

	outcome := ingest(t, newTestIngestor(WithTracer(tracer)), req)
	require.Equal(t, OutcomeDecodeError, outcome.Kind)

	require.Len(t, tracer.spans, 1)
	span := tracer.spans[0]
	assert.Equal(t, codes.Error, span.status)
	assert.Len(t, span.errs, 1)
	assert.Equal(t, "decode_error", span.attrs["ingest.outcome"].AsString())
}
