package server

import (
	"github.com/sirupsen/logrus"

	"github.com/guided-traffic/body-ingest/internal/server/middleware"
)

// setupMiddleware sets up the middleware for the server
func (s *Server) setupMiddleware() {
	s.requestTracker = middleware.NewRequestTracker(s.logger)
	s.httpLogger = middleware.NewLogger(logrus.WithField("component", "access-log"), s.config.LogHealthRequests)
	s.corsHandler = middleware.NewCORS(s.logger)
	s.bodyParser = middleware.NewBodyParser(s.logger, s.ingestor, s.parser, s.errorWriter)
}
