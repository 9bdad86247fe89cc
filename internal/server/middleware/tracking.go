package middleware

import (
	"net/http"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// RequestTracker tracks active requests for graceful shutdown
type RequestTracker struct {
	logger *logrus.Entry
	active atomic.Int64
}

// NewRequestTracker creates a new request tracker middleware
func NewRequestTracker(logger *logrus.Entry) *RequestTracker {
	return &RequestTracker{
		logger: logger,
	}
}

// Active returns the number of requests currently in flight.
func (rt *RequestTracker) Active() int64 {
	return rt.active.Load()
}

// LogActive logs the in-flight request count, typically at shutdown.
func (rt *RequestTracker) LogActive() {
	rt.logger.WithField("active_requests", rt.Active()).Info("Waiting for in-flight requests")
}

// Middleware returns the HTTP middleware function
func (rt *RequestTracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rt.active.Add(1)
		defer rt.active.Add(-1)

		next.ServeHTTP(w, r)
	})
}
