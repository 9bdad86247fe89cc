package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/guided-traffic/body-ingest/internal/ingest"
)

// ErrCanceled stops the body pump once its subscription is canceled.
var ErrCanceled = errors.New("subscription canceled")

var errMissingBoundary = errors.New("multipart body without boundary")

// subscription delivers body events over an unbuffered channel, so a canceled
// subscription holds no pending events.
type subscription struct {
	events chan ingest.Event
	done   chan struct{}
	once   sync.Once
}

func newSubscription() *subscription {
	return &subscription{
		events: make(chan ingest.Event),
		done:   make(chan struct{}),
	}
}

func (s *subscription) Events() <-chan ingest.Event { return s.events }

func (s *subscription) Cancel() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscription) canceled() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *subscription) send(ctx context.Context, ev ingest.Event) error {
	select {
	case <-s.done:
		return ErrCanceled
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	select {
	case s.events <- ev:
		return nil
	case <-s.done:
		return ErrCanceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// chunkEmitter reads the body and publishes every read as a chunk event
// before handing the bytes to its caller.
type chunkEmitter struct {
	ctx  context.Context
	src  io.Reader
	sub  *subscription
	size int
}

func (e *chunkEmitter) Read(p []byte) (int, error) {
	if len(p) > e.size {
		p = p[:e.size]
	}
	n, err := e.src.Read(p)
	if n > 0 {
		chunk := make([]byte, n)
		copy(chunk, p[:n])
		if sendErr := e.sub.send(e.ctx, ingest.Event{Kind: ingest.EventChunk, Chunk: chunk}); sendErr != nil {
			return 0, sendErr
		}
	}
	return n, err
}

func (e *chunkEmitter) drain() error {
	buf := make([]byte, e.size)
	for {
		_, err := e.Read(buf)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// pump streams the body into sub until end of stream, a read failure or
// cancellation. The events channel is closed when it returns.
func (hr *HTTPRequest) pump(sub *subscription, opts ingest.SubscribeOptions) {
	defer close(sub.events)

	ctx := hr.r.Context()
	emitter := &chunkEmitter{ctx: ctx, src: hr.body, sub: sub, size: hr.bufferSize}

	var err error
	switch hr.Class() {
	case ingest.ClassMultipart:
		err = hr.extractMultipart(ctx, emitter, opts.Uploads)
	case ingest.ClassURLEncoded:
		err = hr.extractForm(emitter)
	default:
		err = emitter.drain()
	}

	if err != nil {
		if sub.canceled() || ctx.Err() != nil {
			hr.logger.WithField("path", hr.r.URL.Path).Debug("Body stream stopped")
			return
		}
		_ = sub.send(ctx, ingest.Event{Kind: ingest.EventError, Err: err})
		return
	}
	_ = sub.send(ctx, ingest.Event{Kind: ingest.EventEnd})
}

func (hr *HTTPRequest) extractMultipart(ctx context.Context, emitter *chunkEmitter, uploads bool) error {
	contentType, _ := hr.Header("Content-Type")
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return fmt.Errorf("invalid multipart content type: %w", err)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return errMissingBoundary
	}

	form := url.Values{}
	reader := multipart.NewReader(emitter, boundary)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read multipart part: %w", err)
		}

		data, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			return fmt.Errorf("failed to read multipart part %q: %w", part.FormName(), err)
		}

		if part.FileName() == "" {
			form.Add(part.FormName(), string(data))
			continue
		}
		if !uploads {
			continue
		}

		upload := newFileUpload(part, data)
		hr.logger.WithFields(logrus.Fields{
			"field":    upload.FieldName(),
			"filename": upload.FileName(),
			"size":     upload.Size(),
		}).Debug("Received multipart file")
		if err := emitter.sub.send(ctx, ingest.Event{Kind: ingest.EventUpload, Upload: upload}); err != nil {
			return err
		}
	}
	hr.form = form

	// Count any epilogue after the closing boundary
	return emitter.drain()
}

func (hr *HTTPRequest) extractForm(emitter *chunkEmitter) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, emitter); err != nil {
		return err
	}

	form, err := url.ParseQuery(buf.String())
	if err != nil {
		hr.logger.WithError(err).WithField("path", hr.r.URL.Path).Warn("Malformed urlencoded body")
	}
	hr.form = form
	return nil
}
