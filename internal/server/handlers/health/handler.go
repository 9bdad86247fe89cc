package health

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/guided-traffic/body-ingest/internal/server/response"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// Handler handles health and version endpoints
type Handler struct {
	logger               *logrus.Entry
	jsonWriter           *response.JSONWriter
	logHealthRequests    bool
	buildInfo            BuildInfo
	shutdownStateHandler func() (bool, time.Time)
}

// NewHandler creates a new health handler
func NewHandler(logger *logrus.Entry, logHealthRequests bool, buildInfo BuildInfo) *Handler {
	return &Handler{
		logger:            logger,
		jsonWriter:        response.NewJSONWriter(logger),
		logHealthRequests: logHealthRequests,
		buildInfo:         buildInfo,
	}
}

// SetShutdownStateHandler sets the handler to check shutdown state
func (h *Handler) SetShutdownStateHandler(handler func() (bool, time.Time)) {
	h.shutdownStateHandler = handler
}

// Health handles the health check endpoint
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.logHealthRequests {
		h.logger.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"remote": r.RemoteAddr,
		}).Debug("Health check request")
	}

	// Check if we're in shutdown mode
	if h.shutdownStateHandler != nil {
		if shutdownInitiated, shutdownTime := h.shutdownStateHandler(); shutdownInitiated {
			h.jsonWriter.WriteJSONWithStatus(w, map[string]interface{}{
				"status":        "shutting_down",
				"shutdown_time": shutdownTime.Format(time.RFC3339),
				"message":       "Server is shutting down gracefully",
			}, http.StatusServiceUnavailable)
			return
		}
	}

	h.jsonWriter.WriteJSON(w, map[string]string{
		"status": "healthy",
	})
}

// Version handles the version endpoint
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	if h.logHealthRequests {
		h.logger.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"remote": r.RemoteAddr,
		}).Debug("Version check request")
	}

	h.jsonWriter.WriteJSON(w, map[string]string{
		"service":    "body-ingest",
		"version":    h.buildInfo.Version,
		"commit":     h.buildInfo.Commit,
		"build_time": h.buildInfo.BuildTime,
	})
}
