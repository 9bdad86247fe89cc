package request

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/textproto"

	"github.com/guided-traffic/body-ingest/internal/ingest"
)

// FileUpload is a multipart file part held in memory.
type FileUpload struct {
	fieldName   string
	fileName    string
	contentType string
	header      textproto.MIMEHeader
	data        []byte
}

var _ ingest.Upload = (*FileUpload)(nil)

func newFileUpload(part *multipart.Part, data []byte) *FileUpload {
	contentType := part.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &FileUpload{
		fieldName:   part.FormName(),
		fileName:    part.FileName(),
		contentType: contentType,
		header:      part.Header,
		data:        data,
	}
}

// FieldName implements ingest.Upload.
func (u *FileUpload) FieldName() string { return u.fieldName }

// FileName implements ingest.Upload.
func (u *FileUpload) FileName() string { return u.fileName }

// ContentType implements ingest.Upload.
func (u *FileUpload) ContentType() string { return u.contentType }

// Size implements ingest.Upload.
func (u *FileUpload) Size() int64 { return int64(len(u.data)) }

// Open implements ingest.Upload. Each call returns an independent reader.
func (u *FileUpload) Open() io.Reader { return bytes.NewReader(u.data) }

// Header returns the MIME headers of the part.
func (u *FileUpload) Header() textproto.MIMEHeader { return u.header }
