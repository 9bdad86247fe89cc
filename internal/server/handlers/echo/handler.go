// Package echo reports what the body parser made of a request.
package echo

import (
	"net/http"
	"net/url"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/guided-traffic/body-ingest/internal/server/request"
	"github.com/guided-traffic/body-ingest/internal/server/response"
)

// FileSummary describes one registered upload.
type FileSummary struct {
	FileName    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Report is the echo response body.
type Report struct {
	Method      string                 `json:"method"`
	Path        string                 `json:"path"`
	RequestID   string                 `json:"request_id,omitempty"`
	Class       string                 `json:"class"`
	Decoders    []string               `json:"decoders,omitempty"`
	Body        any                    `json:"body,omitempty"`
	RawBodySize int                    `json:"raw_body_size,omitempty"`
	Form        url.Values             `json:"form,omitempty"`
	Fields      []string               `json:"fields,omitempty"`
	Files       map[string]FileSummary `json:"files,omitempty"`
}

// Handler serves the echo endpoints
type Handler struct {
	logger      *logrus.Entry
	jsonWriter  *response.JSONWriter
	errorWriter *response.ErrorWriter
}

// NewHandler creates a new echo handler
func NewHandler(logger *logrus.Entry) *Handler {
	return &Handler{
		logger:      logger,
		jsonWriter:  response.NewJSONWriter(logger),
		errorWriter: response.NewErrorWriter(logger),
	}
}

// Echo writes a Report for the ingested request.
func (h *Handler) Echo(w http.ResponseWriter, r *http.Request) {
	hr, ok := request.FromContext(r.Context())
	if !ok {
		h.logger.WithField("path", r.URL.Path).Error("Echo called without an ingested request")
		h.errorWriter.WriteGenericError(w, http.StatusInternalServerError, response.CodeInternalError,
			"Request body was not ingested")
		return
	}

	h.jsonWriter.WriteJSON(w, NewReport(hr, w.Header().Get(response.HeaderRequestID)))
}

// NewReport summarizes an ingested request.
func NewReport(hr *request.HTTPRequest, requestID string) Report {
	r := hr.HTTP()
	report := Report{
		Method:      r.Method,
		Path:        r.URL.Path,
		RequestID:   requestID,
		Class:       hr.Class().String(),
		Decoders:    hr.Decoders(),
		Body:        hr.Body(),
		RawBodySize: len(hr.RawBody()),
	}

	if form := hr.Form(); len(form) > 0 {
		report.Form = form
		for name := range form {
			report.Fields = append(report.Fields, name)
		}
		sort.Strings(report.Fields)
	}

	if files := hr.Files(); len(files) > 0 {
		report.Files = make(map[string]FileSummary, len(files))
		for field, upload := range files {
			report.Files[field] = FileSummary{
				FileName:    upload.FileName(),
				ContentType: upload.ContentType(),
				Size:        upload.Size(),
			}
		}
	}

	return report
}
