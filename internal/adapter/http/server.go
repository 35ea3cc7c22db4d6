// Package http serves the wildfire watch REST API alongside health and
// metrics endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/wildfire-watch-service/internal/collection"
	"github.com/couchcryptid/wildfire-watch-service/internal/domain"
	"github.com/couchcryptid/wildfire-watch-service/internal/monitor"
	"github.com/couchcryptid/wildfire-watch-service/internal/oracle"
)

// Monitor is the zone monitoring surface used by the API.
type Monitor interface {
	AnalyzeZones(ctx context.Context) (monitor.JobResult, error)
	AnalyzeZone(ctx context.Context, id string) (domain.Record, error)
	PredictHotspots(ctx context.Context) ([]domain.Prediction, error)
	CreateZone(ctx context.Context, data domain.Record) (domain.Record, error)
	Summary(ctx context.Context) (monitor.Summary, error)
}

// Deps groups what the API handlers call into.
type Deps struct {
	Collections *collection.Registry
	Monitor     Monitor
	Oracle      oracle.Oracle
	Ready       sharedobs.ReadinessChecker
}

// Server exposes the REST API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /api routes, /healthz, /readyz, and /metrics.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	router := mux.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     router,
			ReadTimeout: 10 * time.Second,
			// A batch job over 200 zones waits on the oracle for each one.
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		router: router,
		deps:   deps,
		logger: logger,
	}

	s.routes()
	router.Use(s.requestLogger)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no route for "+r.Method+" "+r.URL.Path)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, r.Method+" not allowed on "+r.URL.Path)
	})

	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", sharedobs.LivenessHandler()).Methods(http.MethodGet)
	s.router.HandleFunc("/readyz", sharedobs.ReadinessHandler(s.deps.Ready)).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// API routes stay on the root router: a subrouter drops method
	// mismatches and answers 404 instead of 405.
	r := s.router
	r.HandleFunc("/api/entities/{entity}", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/api/entities/{entity}", s.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/api/entities/{entity}/{id}", s.handleUpdate).Methods(http.MethodPatch)
	r.HandleFunc("/api/entities/{entity}/{id}", s.handleDelete).Methods(http.MethodDelete)

	r.HandleFunc("/api/ai/analyze", s.handleAnalyze).Methods(http.MethodPost)
	r.HandleFunc("/api/jobs/analyze-zones", s.handleAnalyzeZones).Methods(http.MethodPost)
	r.HandleFunc("/api/zones/{id}/analyze", s.handleAnalyzeZone).Methods(http.MethodPost)
	r.HandleFunc("/api/predictions", s.handlePredictions).Methods(http.MethodPost)
	r.HandleFunc("/api/dashboard", s.handleDashboard).Methods(http.MethodGet)
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
