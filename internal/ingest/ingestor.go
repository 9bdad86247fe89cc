package ingest

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/guided-traffic/body-ingest/internal/monitoring"
)

const tracerName = "github.com/guided-traffic/body-ingest/internal/ingest"

// RawBodyReceiver is implemented by requests that want the materialized bytes
// of a buffered, non-JSON body.
type RawBodyReceiver interface {
	SetRawBody(data []byte)
}

// Ingestor drives the body parsing lifecycle of one request at a time per
// Handle call. It holds no per-request state itself.
type Ingestor struct {
	logger    *logrus.Entry
	tracer    trace.Tracer
	useNumber bool
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithTracer replaces the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(in *Ingestor) {
		in.tracer = t
	}
}

// WithJSONUseNumber decodes JSON numbers as json.Number instead of float64.
func WithJSONUseNumber(enabled bool) Option {
	return func(in *Ingestor) {
		in.useNumber = enabled
	}
}

// New creates an Ingestor.
func New(logger *logrus.Entry, opts ...Option) *Ingestor {
	if logger == nil {
		logger = logrus.WithField("component", "ingest")
	}
	in := &Ingestor{logger: logger}
	for _, opt := range opts {
		opt(in)
	}
	if in.tracer == nil {
		in.tracer = otel.Tracer(tracerName)
	}
	return in
}

// ingestion is the state of one in-flight request body.
type ingestion struct {
	class Class
	limit int64
	size  int64
	buf   *bytes.Buffer
	files int
}

// accept counts a chunk against the limit and buffers it when the class
// requires it. It returns false once the limit is reached; the buffer is
// dropped at that point.
func (st *ingestion) accept(chunk []byte) bool {
	st.size += int64(len(chunk))
	if st.limit >= 0 && st.size >= st.limit {
		st.buf = nil
		return false
	}
	if st.buf != nil {
		st.buf.Write(chunk)
	}
	return true
}

// Handle starts ingestion of req and fulfills next exactly once. Body-less
// methods complete synchronously; everything else completes from a goroutine
// driven by the request's event subscription.
func (in *Ingestor) Handle(ctx context.Context, req Request, next *Completion) {
	method := req.Method()
	if method == http.MethodGet || method == http.MethodHead {
		next.Complete(Continue())
		return
	}

	value, present := req.Header("Content-Type")
	st := &ingestion{
		class: Classify(value, present),
		limit: req.BodyLengthLimit(),
	}
	if st.class.Buffered() {
		st.buf = new(bytes.Buffer)
	}

	logger := in.logger.WithFields(logrus.Fields{
		"method": method,
		"class":  st.class.String(),
		"limit":  st.limit,
	})
	if st.class == ClassUnspecified {
		logger.Debug("No content type on body-bearing request, streaming without buffering")
	} else {
		logger.Debug("Starting body ingestion")
	}

	sub := req.Subscribe(SubscribeOptions{Uploads: st.class == ClassMultipart})
	monitoring.ActiveIngestions.Inc()
	go in.run(ctx, req, sub, st, next, logger)
}

// Ingest runs Handle and waits for the outcome.
func (in *Ingestor) Ingest(ctx context.Context, req Request) Outcome {
	next := NewCompletion()
	in.Handle(ctx, req, next)
	outcome, err := next.Wait(ctx)
	if err != nil {
		return Abort(err)
	}
	return outcome
}

func (in *Ingestor) run(ctx context.Context, req Request, sub Subscription, st *ingestion, next *Completion, logger *logrus.Entry) {
	defer monitoring.ActiveIngestions.Dec()

	start := time.Now()
	ctx, span := in.startSpan(ctx, st)

	outcome := in.consume(ctx, req, sub, st, logger)

	duration := time.Since(start)
	endSpan(span, st, outcome)
	monitoring.RecordIngestion(st.class.String(), outcome.Label(), st.size, duration)

	entry := logger.WithFields(logrus.Fields{
		"bytes":    st.size,
		"files":    st.files,
		"outcome":  outcome.Label(),
		"duration": duration,
	})
	switch outcome.Kind {
	case OutcomeContinue:
		entry.Debug("Body ingestion completed")
	case OutcomeAborted:
		entry.WithError(outcome.Err).Debug("Body ingestion aborted")
	case OutcomeDecodeError:
		entry.WithError(outcome.Err).Warn("Rejected malformed JSON body")
	default:
		entry.Warn("Rejected request body")
	}

	next.Complete(outcome)
}

func (in *Ingestor) consume(ctx context.Context, req Request, sub Subscription, st *ingestion, logger *logrus.Entry) Outcome {
	events := sub.Events()
	for {
		select {
		case <-ctx.Done():
			sub.Cancel()
			return Abort(ctx.Err())
		case ev, ok := <-events:
			if !ok {
				sub.Cancel()
				return Abort(ErrStreamClosed)
			}

			switch ev.Kind {
			case EventChunk:
				if !st.accept(ev.Chunk) {
					sub.Cancel()
					return Fail(http.StatusRequestEntityTooLarge)
				}
			case EventUpload:
				if st.class == ClassMultipart && ev.Upload != nil {
					registerUpload(req, ev.Upload)
					st.files++
				}
			case EventEnd:
				return in.finish(req, st)
			case EventError:
				sub.Cancel()
				return Abort(ev.Err)
			default:
				logger.WithField("event", ev.Kind.String()).Debug("Ignoring unknown stream event")
			}
		}
	}
}

// registerUpload creates the registry on first use. A later part with the
// same field name replaces the earlier one.
func registerUpload(req Request, upload Upload) {
	files := req.Files()
	if files == nil {
		files = make(map[string]Upload)
		req.SetFiles(files)
	}
	files[upload.FieldName()] = upload
	monitoring.RecordUploadPart()
}

func (in *Ingestor) finish(req Request, st *ingestion) Outcome {
	switch st.class {
	case ClassJSON:
		body, outcome := decodeJSON(st.buf.Bytes(), in.useNumber)
		if outcome.IsContinue() {
			req.SetBody(body)
		}
		return outcome
	case ClassOther:
		if receiver, ok := req.(RawBodyReceiver); ok {
			receiver.SetRawBody(st.buf.Bytes())
		}
	}
	return Continue()
}
