// Package server exposes the engine over a local HTTP API. Requests
// and responses are JSON; the engine's error taxonomy maps onto status
// codes (input 400, not-found 404, state conflict 409).
package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/accountantiq-dev/accountantiq/internal/engine"
)

// Server routes HTTP requests to the engine.
type Server struct {
	router *mux.Router
	log    zerolog.Logger
}

// New builds a server over the engine with all routes registered.
func New(eng *engine.Engine, log zerolog.Logger) *Server {
	s := &Server{router: mux.NewRouter(), log: log}
	h := &handler{engine: eng}

	s.router.Use(s.logRequests)
	s.router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	s.router.HandleFunc("/clients/{slug}/import", h.Import).Methods(http.MethodPost)
	s.router.HandleFunc("/clients/{slug}/queue", h.Queue).Methods(http.MethodGet)
	s.router.HandleFunc("/clients/{slug}/items/{txn_id}/approve", h.Approve).Methods(http.MethodPost)
	s.router.HandleFunc("/clients/{slug}/items/{txn_id}/override", h.Override).Methods(http.MethodPost)
	s.router.HandleFunc("/clients/{slug}/rules", h.AppendRule).Methods(http.MethodPost)
	s.router.HandleFunc("/clients/{slug}/rules", h.Rules).Methods(http.MethodGet)
	s.router.HandleFunc("/clients/{slug}/rules/backfill", h.Backfill).Methods(http.MethodPost)
	s.router.HandleFunc("/clients/{slug}/export", h.Export).Methods(http.MethodPost)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
