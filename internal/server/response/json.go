package response

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// JSONWriter handles JSON response writing
type JSONWriter struct {
	logger *logrus.Entry
}

// NewJSONWriter creates a new JSON response writer
func NewJSONWriter(logger *logrus.Entry) *JSONWriter {
	return &JSONWriter{
		logger: logger,
	}
}

// WriteJSON writes a JSON response
func (j *JSONWriter) WriteJSON(w http.ResponseWriter, data interface{}) {
	j.WriteJSONWithStatus(w, data, http.StatusOK)
}

// WriteJSONWithStatus writes a JSON response with a specific status code
func (j *JSONWriter) WriteJSONWithStatus(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		j.logger.WithError(err).Error("Failed to write JSON response")
	}
}
