// Package httpapi exposes the screening entry points to the host
// homeserver over a small JSON API.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/haukened/badlist/internal/badlist/common/log"
	"github.com/haukened/badlist/internal/badlist/domain"
	"github.com/haukened/badlist/internal/badlist/gateways/matrix"
	"github.com/haukened/badlist/internal/badlist/repos/store"
	"github.com/haukened/badlist/internal/badlist/services/checker"
)

// Server wires the screener and stats sources into an http.Handler.
type Server struct {
	screener *matrix.Screener
	engine   *checker.Engine
	store    store.BlocklistStore
	logger   log.Logger
}

func NewServer(screener *matrix.Screener, engine *checker.Engine, st store.BlocklistStore, logger log.Logger) *Server {
	return &Server{screener: screener, engine: engine, store: st, logger: logger}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/stats", s.handleStats)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/check/event", s.handleCheckEvent)
		r.Post("/check/media", s.handleCheckMedia)
	})
	return r
}

// handleCheckEvent screens a full event. The response is the bare
// verdict; no match detail leaves the service.
func (s *Server) handleCheckEvent(w http.ResponseWriter, r *http.Request) {
	var ev domain.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "malformed event")
		return
	}
	res, err := s.screener.ScreenEvent(r.Context(), ev)
	if err != nil {
		// Only the cold-start first build can land here.
		s.logger.Error(map[string]any{"error": err.Error()}, "event check failed")
		writeError(w, http.StatusInternalServerError, "check failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type checkMediaRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleCheckMedia(w http.ResponseWriter, r *http.Request) {
	var req checkMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "missing url")
		return
	}
	writeJSON(w, http.StatusOK, s.screener.ScreenMedia(r.Context(), req.URL))
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type statsResponse struct {
	Engine checker.Stats `json:"engine"`
	Store  store.Stats   `json:"store"`
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statsResponse{
		Engine: s.engine.Stats(),
		Store:  s.store.Stats(),
	})
}

// requestLogger logs one line per request through the shared logger.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug(map[string]any{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
			"request_id": chimiddleware.GetReqID(r.Context()),
		}, "request handled")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
