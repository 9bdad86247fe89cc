package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/guided-traffic/body-ingest/internal/config"
	"github.com/guided-traffic/body-ingest/internal/ingest"
	"github.com/guided-traffic/body-ingest/internal/server/handlers/health"
	"github.com/guided-traffic/body-ingest/internal/server/middleware"
	"github.com/guided-traffic/body-ingest/internal/server/request"
	"github.com/guided-traffic/body-ingest/internal/server/response"
)

// Server represents the body ingest API server
type Server struct {
	httpServer  *http.Server
	config      *config.Config
	logger      *logrus.Entry
	buildInfo   health.BuildInfo
	ingestor    *ingest.Ingestor
	parser      *request.Parser
	errorWriter *response.ErrorWriter

	requestTracker *middleware.RequestTracker
	httpLogger     *middleware.Logger
	corsHandler    *middleware.CORS
	bodyParser     *middleware.BodyParser

	shutdownMu   sync.RWMutex
	shuttingDown bool
	shutdownTime time.Time
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, buildInfo health.BuildInfo) *Server {
	logger := logrus.WithField("component", "server")

	server := &Server{
		config:      cfg,
		logger:      logger,
		buildInfo:   buildInfo,
		ingestor:    ingest.New(logrus.WithField("component", "ingest"), ingest.WithJSONUseNumber(cfg.Ingest.JSONUseNumber)),
		errorWriter: response.NewErrorWriter(logger),
		parser: request.NewParser(logrus.WithField("component", "request-parser"), request.Options{
			BodyLimit:        cfg.Ingest.BodyLimit,
			BufferSize:       cfg.GetStreamingBufferSize(),
			DecodeAWSChunked: cfg.Ingest.DecodeAWSChunked,
		}),
	}
	server.setupMiddleware()

	router := mux.NewRouter()
	server.setupRoutes(router)

	server.httpServer = &http.Server{
		Addr:              cfg.BindAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.WithFields(logrus.Fields{
		"body_limit":   cfg.Ingest.BodyLimit,
		"buffer_size":  cfg.GetStreamingBufferSize(),
		"aws_chunked":  cfg.Ingest.DecodeAWSChunked,
		"json_numbers": cfg.Ingest.JSONUseNumber,
	}).Debug("Body ingestion configured")

	return server
}

// Handler exposes the server's handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// IsShuttingDown reports whether graceful shutdown has started and when.
func (s *Server) IsShuttingDown() (bool, time.Time) {
	s.shutdownMu.RLock()
	defer s.shutdownMu.RUnlock()
	return s.shuttingDown, s.shutdownTime
}

func (s *Server) markShuttingDown() {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()
	if !s.shuttingDown {
		s.shuttingDown = true
		s.shutdownTime = time.Now()
	}
}

// Start runs the server until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	serverErrChan := make(chan error, 1)
	go func() {
		if s.config.TLS.Enabled {
			s.logger.WithFields(logrus.Fields{
				"address":   s.config.BindAddress,
				"cert_file": s.config.TLS.CertFile,
				"key_file":  s.config.TLS.KeyFile,
			}).Info("Starting HTTPS server")

			if err := s.httpServer.ListenAndServeTLS(s.config.TLS.CertFile, s.config.TLS.KeyFile); err != nil && err != http.ErrServerClosed {
				serverErrChan <- fmt.Errorf("HTTPS server failed: %w", err)
			}
		} else {
			s.logger.WithField("address", s.config.BindAddress).Info("Starting HTTP server")
			if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serverErrChan <- fmt.Errorf("HTTP server failed: %w", err)
			}
		}
	}()

	select {
	case err := <-serverErrChan:
		return err
	case <-ctx.Done():
	}

	s.markShuttingDown()
	s.requestTracker.LogActive()

	timeout := time.Duration(s.config.ShutdownTimeout) * time.Second
	s.logger.WithField("timeout", timeout).Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.WithError(err).Error("Failed to gracefully shutdown server")
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("Server stopped")
	return nil
}
