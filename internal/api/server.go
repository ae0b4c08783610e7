// Package api exposes the pipeline over REST.
package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"tickpipe/internal/alert"
	"tickpipe/internal/collector"
	"tickpipe/internal/observability"
	"tickpipe/internal/storage"
)

// Options for creating a Server.
type Options struct {
	Collector *collector.Collector
	TickStore storage.TickStore
	OHLCStore storage.OHLCStore
	Alerts    *alert.Engine

	// AnalyticsWindow is the default rolling window for /analytics.
	AnalyticsWindow int

	Logger *log.Logger
}

// Server is the REST API server.
type Server struct {
	router    *mux.Router
	collector *collector.Collector
	ticks     storage.TickStore
	bars      storage.OHLCStore
	alerts    *alert.Engine
	window    int
	logger    *log.Logger

	httpServer *http.Server
}

// NewServer creates an API server wired to the given collaborators.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	window := opts.AnalyticsWindow
	if window <= 1 {
		window = 20
	}

	s := &Server{
		router:    mux.NewRouter(),
		collector: opts.Collector,
		ticks:     opts.TickStore,
		bars:      opts.OHLCStore,
		alerts:    opts.Alerts,
		window:    window,
		logger:    logger,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.health).Methods("GET")
	api.HandleFunc("/status", s.status).Methods("GET")
	api.HandleFunc("/stats", s.stats).Methods("GET")

	// Collector control
	api.HandleFunc("/collector/start", s.startCollector).Methods("POST")
	api.HandleFunc("/collector/stop", s.stopCollector).Methods("POST")

	// Market data
	api.HandleFunc("/symbols", s.listSymbols).Methods("GET")
	api.HandleFunc("/ticks/{symbol}", s.getTicks).Methods("GET")
	api.HandleFunc("/ohlc/{symbol}", s.getOHLC).Methods("GET")
	api.HandleFunc("/analytics/{symbol}", s.getAnalytics).Methods("GET")

	// Alerts
	api.HandleFunc("/alerts", s.addAlert).Methods("POST")
	api.HandleFunc("/alerts", s.listAlerts).Methods("GET")
	api.HandleFunc("/alerts/history", s.alertHistory).Methods("GET")
	api.HandleFunc("/alerts/{id}", s.removeAlert).Methods("DELETE")
	api.HandleFunc("/alerts/{id}/reset", s.resetAlert).Methods("POST")

	s.router.Handle("/metrics", observability.Handler()).Methods("GET")
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving on addr and blocks until shutdown.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	s.logger.Printf("[api] listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
