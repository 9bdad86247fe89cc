package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/guided-traffic/body-ingest/internal/monitoring"
	"github.com/guided-traffic/body-ingest/internal/server/handlers/echo"
	"github.com/guided-traffic/body-ingest/internal/server/handlers/health"
	"github.com/guided-traffic/body-ingest/internal/server/middleware"
)

var bodyMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes(router *mux.Router) {
	// Add monitoring middleware if monitoring is enabled
	if s.config.Monitoring.Enabled {
		router.Use(monitoring.HTTPMiddleware)
	}
	router.Use(middleware.RequestID)

	router.NotFoundHandler = middleware.RequestID(http.HandlerFunc(s.errorWriter.WriteNotFound))
	router.MethodNotAllowedHandler = middleware.RequestID(http.HandlerFunc(s.errorWriter.WriteMethodNotAllowed))

	healthHandler := health.NewHandler(s.logger, s.config.LogHealthRequests, s.buildInfo)
	healthHandler.SetShutdownStateHandler(s.IsShuttingDown)

	// Health and version endpoints bypass body ingestion
	healthRouter := router.NewRoute().Subrouter()
	healthRouter.Use(s.httpLogger.Middleware)
	healthRouter.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)
	healthRouter.HandleFunc("/version", healthHandler.Version).Methods(http.MethodGet)

	// Order matters: tracking, logging and cors see every request, the body
	// parser runs last so rejected bodies are still logged
	apiRouter := router.NewRoute().Subrouter()
	apiRouter.Use(s.requestTracker.Middleware)
	apiRouter.Use(s.httpLogger.Middleware)
	apiRouter.Use(s.corsHandler.Middleware)
	apiRouter.Use(s.bodyParser.Middleware)

	echoHandler := echo.NewHandler(s.logger)
	apiRouter.HandleFunc("/echo", echoHandler.Echo).Methods(bodyMethods...)
	apiRouter.HandleFunc("/echo/{rest:.*}", echoHandler.Echo).Methods(bodyMethods...)
}
