package ingest

import "io"

// Unlimited is the body length limit sentinel that disables enforcement.
// Any negative limit is treated the same way.
const Unlimited int64 = -1

// Request is the per-request view of the transport the ingestor works against.
type Request interface {
	// Method returns the uppercase HTTP method token.
	Method() string

	// Header looks up a single header value. The boolean is false when the
	// header was not sent at all.
	Header(name string) (string, bool)

	// BodyLengthLimit returns the configured ceiling in bytes, or a negative
	// value for no limit.
	BodyLengthLimit() int64

	// Subscribe starts delivery of stream events for the request body.
	Subscribe(opts SubscribeOptions) Subscription

	// SetBody stores the decoded structured body.
	SetBody(v any)

	// Files returns the upload registry, nil until the first upload arrives.
	Files() map[string]Upload

	// SetFiles installs the upload registry.
	SetFiles(files map[string]Upload)
}

// SubscribeOptions selects which events the transport delivers.
type SubscribeOptions struct {
	// Uploads enables EventUpload delivery for multipart bodies.
	Uploads bool
}

// Subscription is a cancellable, ordered stream of body events. All chunk
// events precede the single end event.
type Subscription interface {
	Events() <-chan Event

	// Cancel stops chunk and end delivery at once. Safe to call repeatedly.
	Cancel()
}

// EventKind tags an Event.
type EventKind int

const (
	EventChunk EventKind = iota
	EventUpload
	EventEnd
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventChunk:
		return "chunk"
	case EventUpload:
		return "upload"
	case EventEnd:
		return "end"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a single delivery from the transport.
type Event struct {
	Kind   EventKind
	Chunk  []byte
	Upload Upload
	Err    error
}

// Upload is one named file attachment of a multipart body.
type Upload interface {
	FieldName() string
	FileName() string
	ContentType() string
	Size() int64
	Open() io.Reader
}
