package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	// ErrAlreadyCompleted is the panic value raised when a Completion is
	// fulfilled twice.
	ErrAlreadyCompleted = errors.New("ingest: completion already fulfilled")

	// ErrStreamClosed is reported when the transport closes the event stream
	// without delivering end-of-stream.
	ErrStreamClosed = errors.New("ingest: event stream closed before end of body")
)

// OutcomeKind classifies a terminal outcome.
type OutcomeKind int

const (
	// OutcomeContinue means success; the chain proceeds.
	OutcomeContinue OutcomeKind = iota
	// OutcomeStatus carries a numeric failure code (400 or 413).
	OutcomeStatus
	// OutcomeDecodeError carries a JSON syntax failure.
	OutcomeDecodeError
	// OutcomeAborted means the stream failed or the context ended before end-of-stream.
	OutcomeAborted
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeContinue:
		return "continue"
	case OutcomeStatus:
		return "status"
	case OutcomeDecodeError:
		return "decode_error"
	case OutcomeAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Outcome is the single terminal result of one ingestion.
type Outcome struct {
	Kind   OutcomeKind
	Status int
	Err    error
}

// Continue returns the success outcome.
func Continue() Outcome {
	return Outcome{Kind: OutcomeContinue}
}

// Fail returns a numeric failure outcome.
func Fail(status int) Outcome {
	return Outcome{Kind: OutcomeStatus, Status: status}
}

// Decode returns a decode failure outcome.
func Decode(err error) Outcome {
	return Outcome{Kind: OutcomeDecodeError, Err: err}
}

// Abort returns an aborted outcome.
func Abort(err error) Outcome {
	return Outcome{Kind: OutcomeAborted, Err: err}
}

// IsContinue reports whether the chain should proceed.
func (o Outcome) IsContinue() bool {
	return o.Kind == OutcomeContinue
}

// Label is a short, bounded label for metrics.
func (o Outcome) Label() string {
	if o.Kind == OutcomeStatus {
		return fmt.Sprintf("status_%d", o.Status)
	}
	return o.Kind.String()
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeStatus:
		return fmt.Sprintf("%d %s", o.Status, http.StatusText(o.Status))
	case OutcomeDecodeError, OutcomeAborted:
		return fmt.Sprintf("%s: %v", o.Kind, o.Err)
	default:
		return o.Kind.String()
	}
}

// Completion is a single-assignment result. It can be fulfilled exactly once;
// a second Complete call is a programming error and panics.
type Completion struct {
	fired   atomic.Bool
	done    chan struct{}
	outcome Outcome
}

// NewCompletion creates an unfulfilled Completion.
func NewCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// Complete fulfills the completion.
func (c *Completion) Complete(o Outcome) {
	if !c.fired.CompareAndSwap(false, true) {
		panic(fmt.Errorf("%w: second outcome %s", ErrAlreadyCompleted, o))
	}
	c.outcome = o
	close(c.done)
}

// Done is closed once the completion has been fulfilled.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Completed reports whether Complete has been called.
func (c *Completion) Completed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Outcome returns the fulfilled outcome. Only meaningful after Done is closed.
func (c *Completion) Outcome() Outcome {
	<-c.done
	return c.outcome
}

// Wait blocks until the completion is fulfilled or ctx ends.
func (c *Completion) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-c.done:
		return c.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}
