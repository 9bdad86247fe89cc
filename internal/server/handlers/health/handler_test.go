package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_Health(t *testing.T) {
	h := NewHandler(logrus.NewEntry(logrus.New()), true, BuildInfo{Version: "1.0.0"})

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestHandler_HealthDuringShutdown(t *testing.T) {
	h := NewHandler(logrus.NewEntry(logrus.New()), false, BuildInfo{})
	shutdownAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	h.SetShutdownStateHandler(func() (bool, time.Time) { return true, shutdownAt })

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "shutting_down", body["status"])
	assert.Equal(t, "2026-01-02T03:04:05Z", body["shutdown_time"])
}

func TestHandler_Version(t *testing.T) {
	h := NewHandler(logrus.NewEntry(logrus.New()), false, BuildInfo{
		Version:   "1.2.3",
		Commit:    "abc123",
		BuildTime: "2026-01-01T00:00:00Z",
	})

	w := httptest.NewRecorder()
	h.Version(w, httptest.NewRequest(http.MethodGet, "/version", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "body-ingest", body["service"])
	assert.Equal(t, "1.2.3", body["version"])
	assert.Equal(t, "abc123", body["commit"])
}
