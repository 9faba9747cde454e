// Package server exposes the companion pipeline over HTTP: check-in flow,
// chat (plain and websocket), stats and the protected admin summary.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vetsupport/companion/internal/chat"
	"github.com/vetsupport/companion/internal/checkin"
	"github.com/vetsupport/companion/internal/config"
	"github.com/vetsupport/companion/internal/data"
	"github.com/vetsupport/companion/internal/logging"
	"github.com/vetsupport/companion/internal/recommend"
	"github.com/vetsupport/companion/internal/stats"
)

// Server wires the HTTP API over the domain services.
type Server struct {
	cfg       *config.Config
	store     *data.Store
	checkins  *checkin.Service
	chats     *chat.Service
	stats     *stats.Engine
	recommend *recommend.Engine
	log       *logging.Logger

	httpServer *http.Server
}

// New creates the HTTP server.
func New(cfg *config.Config, store *data.Store, checkins *checkin.Service, chats *chat.Service, statsEngine *stats.Engine, recEngine *recommend.Engine, log *logging.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		store:     store,
		checkins:  checkins,
		chats:     chats,
		stats:     statsEngine,
		recommend: recEngine,
		log:       log.WithComponent("server"),
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/checkin/begin", s.handleCheckInBegin)
	mux.HandleFunc("POST /api/checkin/level", s.handleCheckInLevel)
	mux.HandleFunc("POST /api/checkin/note", s.handleCheckInNote)
	mux.HandleFunc("POST /api/checkin/cancel", s.handleCheckInCancel)

	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/chat/ws", s.handleChatSocket)

	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/recommendations", s.handleRecommendations)

	mux.HandleFunc("GET /api/admin/summary", s.requireAdmin(s.handleAdminSummary))

	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

// Start begins serving and blocks until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.log.Info("listening on %s", s.cfg.Server.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// requireAdmin validates the bearer token against the configured bcrypt hash.
// With no hash configured the admin surface is disabled entirely.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hash := s.cfg.Server.AdminTokenHash
		if hash == "" {
			writeError(w, http.StatusNotFound, "admin endpoints disabled")
			return
		}

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
			writeError(w, http.StatusForbidden, "invalid token")
			return
		}

		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Global().Err(err, "encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
