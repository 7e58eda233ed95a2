// Package api exposes the operational HTTP surface: health, metrics, service
// stats and a manual cycle trigger.
package api

import (
	"context"
	"encoding/json"
	"net/http"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StatsProvider

	// Trigger starts a discovery-to-publish cycle in the background.
	// It returns an error wrapping a busy condition when one is running.
	Trigger(ctx context.Context) error
}

// Server wires HTTP routes for the ops API.
type Server struct {
	healthHandler  *HealthHandler
	metricsHandler http.Handler
	statsHandler   *StatsHandler
	cycleHandler   *CycleHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		metricsHandler: MetricsHandler(),
		statsHandler:   NewStatsHandler(deps),
		cycleHandler:   NewCycleHandler(deps),
	}
}

// Register attaches all HTTP routes to mux. Cycles started over HTTP run on
// ctx, not on the request context.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	s.cycleHandler.base = ctx
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", s.metricsHandler)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/cycle", MetricsMiddleware(s.cycleHandler.HandleTrigger, "cycle"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
