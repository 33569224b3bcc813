// Package api declares the ops HTTP surface: health, queue status and
// Prometheus metrics. The bot itself talks to the chat platform through
// the dispatch sink, not through this server.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cardbot/internal/adapters/mq/queue"
	"cardbot/pkg/logger"
	"cardbot/pkg/metrics"
)

// StatusProvider exposes a point-in-time queue snapshot.
type StatusProvider interface {
	Status() queue.Status
}

// Server wires the ops HTTP routes.
type Server struct {
	status StatusProvider
	svc    QueryService
	log    logger.Logger
}

// NewServer creates the ops server.
func NewServer(status StatusProvider, svc QueryService) *Server {
	return &Server{
		status: status,
		svc:    svc,
		log:    logger.Named("api"),
	}
}

// Register attaches all routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.handleHealth, "healthz"))
	mux.HandleFunc("/status", MetricsMiddleware(s.handleStatus, "status"))
	mux.HandleFunc("/query", MetricsMiddleware(s.handleQuery, "query"))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
}

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, r, s.log, http.StatusOK, healthResponse{Status: "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.status == nil {
		http.Error(w, ErrNoStatusProvider.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, r, s.log, http.StatusOK, s.status.Status())
}

func writeJSON(w http.ResponseWriter, r *http.Request, log logger.Logger, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error(r.Context(), "writing response", logger.Error(err))
	}
}
