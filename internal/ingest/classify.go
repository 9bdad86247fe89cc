package ingest

import "strings"

// Canonical media-type tokens used for classification.
const (
	MediaTypeJSON       = "application/json"
	MediaTypeMultipart  = "multipart/form-data"
	MediaTypeURLEncoded = "application/x-www-form-urlencoded"
)

// Class is the content-type derived decision that governs how a body is
// accumulated or extracted.
type Class int

const (
	// ClassUnspecified means no Content-Type header was sent.
	ClassUnspecified Class = iota
	ClassJSON
	ClassMultipart
	ClassURLEncoded
	ClassOther
)

// String returns the label used in logs and metrics.
func (c Class) String() string {
	switch c {
	case ClassJSON:
		return "json"
	case ClassMultipart:
		return "multipart"
	case ClassURLEncoded:
		return "urlencoded"
	case ClassOther:
		return "other"
	default:
		return "unspecified"
	}
}

// Buffered reports whether the whole body has to be materialized in memory.
// Multipart and urlencoded bodies are extracted by the transport itself.
func (c Class) Buffered() bool {
	return c == ClassJSON || c == ClassOther
}

// Classify maps a Content-Type header value onto a Class. Matching is by
// containment on the media type, so "application/json; charset=utf-8" is JSON.
// Parameters are ignored so that a multipart boundary can never change the class.
func Classify(value string, present bool) Class {
	if !present {
		return ClassUnspecified
	}

	mediaType := value
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	mediaType = strings.ToLower(mediaType)

	switch {
	case strings.Contains(mediaType, MediaTypeMultipart):
		return ClassMultipart
	case strings.Contains(mediaType, MediaTypeURLEncoded):
		return ClassURLEncoded
	case strings.Contains(mediaType, MediaTypeJSON):
		return ClassJSON
	default:
		return ClassOther
	}
}
