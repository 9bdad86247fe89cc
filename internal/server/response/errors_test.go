package response

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guided-traffic/body-ingest/internal/ingest"
)

func newTestErrorWriter() *ErrorWriter {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewErrorWriter(logrus.NewEntry(logger))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestErrorWriter_WriteOutcome(t *testing.T) {
	tests := []struct {
		name       string
		outcome    ingest.Outcome
		wantStatus int
		wantCode   string
	}{
		{
			name:       "Payload too large",
			outcome:    ingest.Fail(http.StatusRequestEntityTooLarge),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   CodePayloadTooLarge,
		},
		{
			name:       "Invalid body",
			outcome:    ingest.Fail(http.StatusBadRequest),
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeInvalidBody,
		},
		{
			name:       "Aborted",
			outcome:    ingest.Abort(errors.New("connection reset")),
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeRequestAborted,
		},
		{
			name:       "Other status",
			outcome:    ingest.Fail(http.StatusUnsupportedMediaType),
			wantStatus: http.StatusUnsupportedMediaType,
			wantCode:   http.StatusText(http.StatusUnsupportedMediaType),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newTestErrorWriter().WriteOutcome(w, tt.outcome)

			assert.Equal(t, tt.wantStatus, w.Code)
			detail := decodeError(t, w)
			assert.Equal(t, tt.wantCode, detail.Code)
			assert.NotEmpty(t, detail.Message)
			assert.Nil(t, detail.Offset)
		})
	}
}

func TestErrorWriter_WriteOutcome_DecodeError(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set(HeaderRequestID, "req-1")

	err := &ingest.DecodeError{Offset: 7, Err: errors.New("invalid character 'x'")}
	newTestErrorWriter().WriteOutcome(w, ingest.Decode(err))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	detail := decodeError(t, w)
	assert.Equal(t, CodeMalformedJSON, detail.Code)
	assert.Equal(t, "req-1", detail.RequestID)
	require.NotNil(t, detail.Offset)
	assert.Equal(t, int64(7), *detail.Offset)
	assert.Contains(t, detail.Message, "invalid character 'x'")
}

func TestErrorWriter_WriteOutcome_Continue(t *testing.T) {
	w := httptest.NewRecorder()
	newTestErrorWriter().WriteOutcome(w, ingest.Continue())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, w.Body.Len())
}

func TestErrorWriter_RouteErrors(t *testing.T) {
	r := httptest.NewRequest(http.MethodPatch, "/missing", nil)

	w := httptest.NewRecorder()
	newTestErrorWriter().WriteNotFound(w, r)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeNotFound, decodeError(t, w).Code)

	w = httptest.NewRecorder()
	newTestErrorWriter().WriteMethodNotAllowed(w, r)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	detail := decodeError(t, w)
	assert.Equal(t, CodeMethodNotAllowed, detail.Code)
	assert.Contains(t, detail.Message, "PATCH")
}

func TestJSONWriter_WriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONWriter(logrus.NewEntry(logrus.New())).WriteJSON(w, map[string]string{"status": "ok"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
