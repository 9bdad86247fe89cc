package request

import (
	"io"
	"net/http"
	"strings"
)

// BodyDecoder unwraps a transfer framing layered on top of the request body.
type BodyDecoder interface {
	// Name identifies the decoder in logs.
	Name() string
	// RequiresDecoding reports whether the request body uses this framing.
	RequiresDecoding(r *http.Request) bool
	// Wrap returns a reader yielding the unframed payload.
	Wrap(body io.Reader) io.Reader
}

// AWSChunkedDecoder strips AWS Signature V4 streaming chunk framing.
type AWSChunkedDecoder struct{}

// Name implements BodyDecoder.
func (AWSChunkedDecoder) Name() string { return "aws-chunked" }

// RequiresDecoding checks the Content-Encoding and X-Amz-Content-Sha256 headers.
func (AWSChunkedDecoder) RequiresDecoding(r *http.Request) bool {
	for _, encoding := range r.Header.Values("Content-Encoding") {
		for _, token := range strings.Split(encoding, ",") {
			if strings.EqualFold(strings.TrimSpace(token), "aws-chunked") {
				return true
			}
		}
	}
	return strings.HasPrefix(r.Header.Get("X-Amz-Content-Sha256"), "STREAMING-")
}

// Wrap implements BodyDecoder.
func (AWSChunkedDecoder) Wrap(body io.Reader) io.Reader {
	return NewAWSChunkedReader(body)
}
