package request

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// AWSChunkedReader reads data from AWS Signature V4 chunked encoded streams.
// This handles the special chunked format used by AWS which includes chunk signatures.
//
// Format:
// {hex_chunk_size};chunk-signature={signature}\r\n
// {chunk_data}\r\n
// ...
// 0;chunk-signature=final-signature\r\n\r\n
type AWSChunkedReader struct {
	reader    *bufio.Reader
	chunkLeft int64 // bytes left in current chunk
	finished  bool
	err       error
}

// NewAWSChunkedReader creates a new AWS chunked reader
func NewAWSChunkedReader(r io.Reader) *AWSChunkedReader {
	return &AWSChunkedReader{
		reader: bufio.NewReader(r),
	}
}

// Read implements io.Reader
func (r *AWSChunkedReader) Read(p []byte) (n int, err error) {
	if r.finished {
		return 0, io.EOF
	}
	if r.err != nil {
		return 0, r.err
	}
	if len(p) == 0 {
		return 0, nil
	}

	if r.chunkLeft == 0 {
		if err := r.readNextChunk(); err != nil {
			if err == io.EOF {
				r.finished = true
			} else {
				r.err = err
			}
			return 0, err
		}
	}

	readBytes := int64(len(p))
	if readBytes > r.chunkLeft {
		readBytes = r.chunkLeft
	}

	n, err = r.reader.Read(p[:readBytes])
	r.chunkLeft -= int64(n)

	if r.chunkLeft == 0 {
		if trailingErr := r.consumeTrailingCRLF(); trailingErr != nil {
			r.err = trailingErr
			return n, trailingErr
		}
		return n, nil
	}

	if err == io.EOF {
		// The stream ended in the middle of a chunk
		r.err = fmt.Errorf("aws-chunked stream truncated with %d bytes left in chunk: %w", r.chunkLeft, io.ErrUnexpectedEOF)
		return n, r.err
	}
	if err != nil {
		r.err = err
	}
	return n, err
}

// readNextChunk reads the next chunk header and sets up for chunk data reading
func (r *AWSChunkedReader) readNextChunk() error {
	chunkSizeLine, err := r.reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read chunk size line: %w", err)
	}

	chunkSizeLine = strings.TrimSpace(chunkSizeLine)
	if chunkSizeLine == "" {
		return fmt.Errorf("empty chunk size line")
	}

	// Chunk size is everything before the first semicolon
	chunkSizeStr, _, _ := strings.Cut(chunkSizeLine, ";")
	if chunkSizeStr == "" {
		return fmt.Errorf("empty chunk size in header: %q", chunkSizeLine)
	}

	chunkSize, err := strconv.ParseInt(chunkSizeStr, 16, 64)
	if err != nil {
		return fmt.Errorf("invalid AWS chunk size %q in header %q: %w", chunkSizeStr, chunkSizeLine, err)
	}
	if chunkSize < 0 {
		return fmt.Errorf("negative AWS chunk size in header %q", chunkSizeLine)
	}

	if chunkSize == 0 {
		// Trailing CRLF after the final chunk header; trailers are not used
		if _, err := r.reader.ReadString('\n'); err != nil && err != io.EOF {
			return fmt.Errorf("failed to consume final CRLF: %w", err)
		}
		return io.EOF
	}

	r.chunkLeft = chunkSize
	return nil
}

// consumeTrailingCRLF reads the trailing \r\n after chunk data
func (r *AWSChunkedReader) consumeTrailingCRLF() error {
	line, err := r.reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read chunk terminator: %w", err)
	}
	if strings.TrimRight(line, "\r\n") != "" {
		return fmt.Errorf("unexpected data after chunk: %q", line)
	}
	return nil
}

// ReadAllAWSChunked is a convenience method to read all data from the AWS chunked stream
func ReadAllAWSChunked(r io.Reader) ([]byte, error) {
	return io.ReadAll(NewAWSChunkedReader(r))
}
