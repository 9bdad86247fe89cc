package middleware

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/guided-traffic/body-ingest/internal/ingest"
	"github.com/guided-traffic/body-ingest/internal/server/request"
	"github.com/guided-traffic/body-ingest/internal/server/response"
)

// BodyParser ingests the request body before handing the request to the
// next handler. Requests whose ingestion ends with anything other than
// Continue are answered here and never reach the next handler.
type BodyParser struct {
	logger      *logrus.Entry
	ingestor    *ingest.Ingestor
	parser      *request.Parser
	errorWriter *response.ErrorWriter
}

// NewBodyParser creates a new body parsing middleware
func NewBodyParser(logger *logrus.Entry, ingestor *ingest.Ingestor, parser *request.Parser, errorWriter *response.ErrorWriter) *BodyParser {
	return &BodyParser{
		logger:      logger,
		ingestor:    ingestor,
		parser:      parser,
		errorWriter: errorWriter,
	}
}

// Middleware returns the HTTP middleware function
func (bp *BodyParser) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		hr := bp.parser.NewRequest(r)

		completion := ingest.NewCompletion()
		bp.ingestor.Handle(ctx, hr, completion)

		outcome, err := completion.Wait(ctx)
		if err != nil {
			outcome = ingest.Abort(err)
		}

		if !outcome.IsContinue() {
			if ctx.Err() != nil {
				bp.logger.WithFields(logrus.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
				}).Debug("Client went away during body ingestion")
				return
			}
			if outcome.Kind == ingest.OutcomeStatus && outcome.Status == http.StatusRequestEntityTooLarge {
				// The rest of the body is never read
				w.Header().Set("Connection", "close")
			}
			bp.errorWriter.WriteOutcome(w, outcome)
			return
		}

		next.ServeHTTP(w, r.WithContext(request.NewContext(ctx, hr)))
	})
}
