package request

import (
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/guided-traffic/body-ingest/internal/ingest"
)

// DefaultBufferSize is the read size used when Options.BufferSize is unset.
const DefaultBufferSize = 64 * 1024

// Options controls how request bodies are exposed to the ingestor.
type Options struct {
	// BodyLimit is the byte limit reported to the ingestor. Negative means unlimited.
	BodyLimit int64
	// BufferSize is the maximum size of a single chunk event.
	BufferSize int
	// DecodeAWSChunked enables unwrapping of aws-chunked framed bodies.
	DecodeAWSChunked bool
}

// Parser turns incoming http requests into ingestable requests.
type Parser struct {
	logger   *logrus.Entry
	opts     Options
	decoders []BodyDecoder
}

// NewParser creates a new parser
func NewParser(logger *logrus.Entry, opts Options) *Parser {
	if logger == nil {
		logger = logrus.WithField("component", "request-parser")
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}

	var decoders []BodyDecoder
	if opts.DecodeAWSChunked {
		decoders = append(decoders, AWSChunkedDecoder{})
	}

	return &Parser{
		logger:   logger,
		opts:     opts,
		decoders: decoders,
	}
}

// NewRequest wraps r. The returned request reads r.Body at most once.
func (p *Parser) NewRequest(r *http.Request) *HTTPRequest {
	var body io.Reader = r.Body
	if r.Body == nil {
		body = http.NoBody
	}

	hr := &HTTPRequest{
		r:          r,
		limit:      p.opts.BodyLimit,
		bufferSize: p.opts.BufferSize,
		logger:     p.logger,
	}

	for _, d := range p.decoders {
		if d.RequiresDecoding(r) {
			body = d.Wrap(body)
			hr.decoders = append(hr.decoders, d.Name())
			p.logger.WithFields(logrus.Fields{
				"decoder": d.Name(),
				"path":    r.URL.Path,
			}).Debug("Decoding framed request body")
		}
	}
	hr.body = body

	if p.opts.BodyLimit < 0 {
		hr.limit = ingest.Unlimited
	}
	return hr
}
