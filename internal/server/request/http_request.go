package request

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/textproto"
	"net/url"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/guided-traffic/body-ingest/internal/ingest"
)

// ErrAlreadySubscribed is delivered when a body stream is subscribed to twice.
var ErrAlreadySubscribed = errors.New("request body already subscribed")

// HTTPRequest adapts an *http.Request to ingest.Request.
//
// Setters are called by the ingestor before it completes; handlers read the
// results after the completion has been observed.
type HTTPRequest struct {
	r          *http.Request
	body       io.Reader
	limit      int64
	bufferSize int
	decoders   []string
	logger     *logrus.Entry
	subscribed atomic.Bool

	parsed any
	raw    []byte
	files  map[string]ingest.Upload
	form   url.Values
}

var (
	_ ingest.Request         = (*HTTPRequest)(nil)
	_ ingest.RawBodyReceiver = (*HTTPRequest)(nil)
)

// HTTP returns the wrapped request.
func (hr *HTTPRequest) HTTP() *http.Request { return hr.r }

// Method implements ingest.Request.
func (hr *HTTPRequest) Method() string { return hr.r.Method }

// Header implements ingest.Request. A header sent with an empty value is present.
func (hr *HTTPRequest) Header(name string) (string, bool) {
	values, ok := hr.r.Header[textproto.CanonicalMIMEHeaderKey(name)]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// BodyLengthLimit implements ingest.Request.
func (hr *HTTPRequest) BodyLengthLimit() int64 { return hr.limit }

// Class classifies the request by its Content-Type header.
func (hr *HTTPRequest) Class() ingest.Class {
	return ingest.Classify(hr.Header("Content-Type"))
}

// Decoders lists the framing decoders applied to the body.
func (hr *HTTPRequest) Decoders() []string { return hr.decoders }

// Subscribe implements ingest.Request. The body can only be consumed once;
// later subscriptions receive a single error event.
func (hr *HTTPRequest) Subscribe(opts ingest.SubscribeOptions) ingest.Subscription {
	sub := newSubscription()
	if !hr.subscribed.CompareAndSwap(false, true) {
		go func() {
			defer close(sub.events)
			_ = sub.send(hr.r.Context(), ingest.Event{Kind: ingest.EventError, Err: ErrAlreadySubscribed})
		}()
		return sub
	}
	go hr.pump(sub, opts)
	return sub
}

// SetBody implements ingest.Request.
func (hr *HTTPRequest) SetBody(v any) { hr.parsed = v }

// Body returns the parsed JSON body, or nil.
func (hr *HTTPRequest) Body() any { return hr.parsed }

// SetRawBody implements ingest.RawBodyReceiver.
func (hr *HTTPRequest) SetRawBody(b []byte) { hr.raw = b }

// RawBody returns the buffered body of requests with an unrecognized content type.
func (hr *HTTPRequest) RawBody() []byte { return hr.raw }

// Files implements ingest.Request.
func (hr *HTTPRequest) Files() map[string]ingest.Upload { return hr.files }

// SetFiles implements ingest.Request.
func (hr *HTTPRequest) SetFiles(files map[string]ingest.Upload) { hr.files = files }

// Form returns the non-file fields of multipart and urlencoded bodies.
func (hr *HTTPRequest) Form() url.Values {
	if hr.form == nil {
		return url.Values{}
	}
	return hr.form
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying hr.
func NewContext(ctx context.Context, hr *HTTPRequest) context.Context {
	return context.WithValue(ctx, contextKey{}, hr)
}

// FromContext returns the ingested request stored by NewContext.
func FromContext(ctx context.Context) (*HTTPRequest, bool) {
	hr, ok := ctx.Value(contextKey{}).(*HTTPRequest)
	return hr, ok
}
