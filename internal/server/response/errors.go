package response

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/guided-traffic/body-ingest/internal/ingest"
)

// HeaderRequestID carries the request id on requests and responses.
const HeaderRequestID = "X-Request-ID"

// Error codes reported in the error envelope.
const (
	CodePayloadTooLarge  = "PayloadTooLarge"
	CodeInvalidBody      = "InvalidBody"
	CodeMalformedJSON    = "MalformedJSON"
	CodeRequestAborted   = "RequestAborted"
	CodeNotFound         = "NotFound"
	CodeMethodNotAllowed = "MethodNotAllowed"
	CodeInternalError    = "InternalError"
)

// ErrorDetail is the body of an error response.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Offset    *int64 `json:"offset,omitempty"`
}

// ErrorResponse is the envelope written for every error.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorWriter handles error responses
type ErrorWriter struct {
	logger *logrus.Entry
	json   *JSONWriter
}

// NewErrorWriter creates a new error response writer
func NewErrorWriter(logger *logrus.Entry) *ErrorWriter {
	return &ErrorWriter{
		logger: logger,
		json:   NewJSONWriter(logger),
	}
}

// WriteOutcome renders a terminal ingestion outcome. Continue outcomes
// write nothing.
func (e *ErrorWriter) WriteOutcome(w http.ResponseWriter, outcome ingest.Outcome) {
	detail := ErrorDetail{}
	statusCode := http.StatusBadRequest

	switch outcome.Kind {
	case ingest.OutcomeContinue:
		return
	case ingest.OutcomeStatus:
		statusCode = outcome.Status
		switch outcome.Status {
		case http.StatusRequestEntityTooLarge:
			detail.Code = CodePayloadTooLarge
			detail.Message = "Request body exceeds the configured size limit"
		case http.StatusBadRequest:
			detail.Code = CodeInvalidBody
			detail.Message = "Request body is not a JSON object or array"
		default:
			detail.Code = http.StatusText(outcome.Status)
			detail.Message = http.StatusText(outcome.Status)
		}
	case ingest.OutcomeDecodeError:
		detail.Code = CodeMalformedJSON
		detail.Message = fmt.Sprintf("Malformed JSON body: %v", outcome.Err)
		var decodeErr *ingest.DecodeError
		if errors.As(outcome.Err, &decodeErr) {
			offset := decodeErr.Offset
			detail.Offset = &offset
			detail.Message = fmt.Sprintf("Malformed JSON body: %v", decodeErr.Err)
		}
	case ingest.OutcomeAborted:
		detail.Code = CodeRequestAborted
		detail.Message = "Request body could not be read"
		if outcome.Err != nil {
			detail.Message = fmt.Sprintf("Request body could not be read: %v", outcome.Err)
		}
	default:
		statusCode = http.StatusInternalServerError
		detail.Code = CodeInternalError
		detail.Message = "Unexpected ingestion outcome"
	}

	e.write(w, statusCode, detail)
}

// WriteGenericError writes an error response with custom code and message
func (e *ErrorWriter) WriteGenericError(w http.ResponseWriter, statusCode int, code, message string) {
	e.write(w, statusCode, ErrorDetail{Code: code, Message: message})
}

// WriteNotFound writes a 404 for unrouted paths
func (e *ErrorWriter) WriteNotFound(w http.ResponseWriter, r *http.Request) {
	e.WriteGenericError(w, http.StatusNotFound, CodeNotFound,
		fmt.Sprintf("No route for %s %s", r.Method, r.URL.Path))
}

// WriteMethodNotAllowed writes a 405 for routed paths with an unsupported method
func (e *ErrorWriter) WriteMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	e.WriteGenericError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed,
		fmt.Sprintf("Method %s is not allowed on %s", r.Method, r.URL.Path))
}

func (e *ErrorWriter) write(w http.ResponseWriter, statusCode int, detail ErrorDetail) {
	detail.RequestID = w.Header().Get(HeaderRequestID)

	logEntry := e.logger.WithFields(logrus.Fields{
		"error_code":  detail.Code,
		"status_code": statusCode,
		"request_id":  detail.RequestID,
	})
	if statusCode >= 500 {
		logEntry.Error(detail.Message)
	} else {
		logEntry.Debug(detail.Message)
	}

	e.json.WriteJSONWithStatus(w, ErrorResponse{Error: detail}, statusCode)
}
