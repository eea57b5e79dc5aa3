// internal/httpserver/server.go
//
// HTTP server wiring for the snakestream backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health".
//   - Game endpoints: POST /api/game/start, GET /api/game/current, GET /api/stats.
//   - Comment endpoints (optional auth): POST /api/comments, GET /api/comments.
//   - Viewer WebSocket endpoint: GET /ws.
//   - Auth endpoints (/auth/*) with JWT + cookie handling.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Optional auth decorates requests with user context when a valid token
//     is present; comments can still be posted by guests.
//   - Game state mutation goes through the lifecycle controller, never
//     directly from handlers.

package httpserver

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/chatplays/snakestream/internal/hub"
	"github.com/chatplays/snakestream/internal/lifecycle"
	"github.com/chatplays/snakestream/internal/repo"
	"github.com/chatplays/snakestream/internal/store"
)

// Server bundles the router with the game's collaborators.
type Server struct {
	r     *chi.Mux
	db    *sql.DB
	store *store.Memory
	hub   *hub.Hub
	ctrl  *lifecycle.Controller
	repo  *repo.Repo
}

// New constructs a Server, installs middleware, and registers routes.
// db and rp may be nil when running without persistence.
func New(st *store.Memory, h *hub.Hub, ctrl *lifecycle.Controller, rp *repo.Repo, db *sql.DB) *Server {
	s := &Server{r: chi.NewRouter(), db: db, store: st, hub: h, ctrl: ctrl, repo: rp}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(corsFromEnv)                     // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"service":"snakestream","endpoints":["/health","/ws","POST /api/comments","POST /api/game/start","GET /api/game/current","GET /api/stats","/auth/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	// Viewer channel. Mounted outside the JSON/timeout middleware: the
	// connection is long-lived and speaks the websocket protocol.
	s.r.Get("/ws", s.handleWS)

	// REST API
	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(jsonContentType)                 // default JSON responses

		r.With(s.withOptionalAuth()).Post("/api/comments", s.handleSubmitComment)
		r.Get("/api/comments", s.handleRecentComments)
		r.Post("/api/game/start", s.handleStartGame)
		r.Get("/api/game/current", s.handleCurrentGame)
		r.Get("/api/stats", s.handleStats)

		s.mountAuthRoutes(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromEnv enables credentialed CORS for a single origin.
// Uses CLIENT_ORIGIN env var; defaults to http://localhost:5173.
func corsFromEnv(next http.Handler) http.Handler {
	origin := os.Getenv("CLIENT_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------ COMMENTS -----------------------------------

// submitCommentReq is the payload for POST /api/comments.
type submitCommentReq struct {
	Username     string `json:"username"`
	OriginalText string `json:"originalText"`
}

// handleSubmitComment ingests one comment from the HTTP surface: parse,
// store, broadcast, and steer the live round when the command is valid.
// Responds with the persisted comment including command/isValid.
func (s *Server) handleSubmitComment(w http.ResponseWriter, r *http.Request) {
	var req submitCommentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.OriginalText) == "" {
		http.Error(w, `{"error":"originalText is required"}`, http.StatusBadRequest)
		return
	}

	// A logged-in viewer's account name wins over the free-text username.
	if me, _ := r.Context().Value(ctxUserKey{}).(*authUser); me != nil {
		req.Username = me.Username
	}

	c := s.ctrl.SubmitComment(req.Username, req.OriginalText)
	_ = json.NewEncoder(w).Encode(c)
}

// handleRecentComments returns the bounded recent-comment window,
// most recent first. ?limit defaults to 50.
func (s *Server) handleRecentComments(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	_ = json.NewEncoder(w).Encode(s.store.RecentComments(limit))
}

// -------------------------------- GAME -------------------------------------

// handleStartGame starts a fresh round, force-ending any active one.
func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	id := s.ctrl.StartRound()
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "gameId": id})
}

// handleCurrentGame reports the round summary, full state, and viewer count.
func (s *Server) handleCurrentGame(w http.ResponseWriter, r *http.Request) {
	res := map[string]any{
		"game":             nil,
		"gameState":        nil,
		"connectedPlayers": s.hub.Count(),
	}
	if snap, ok := s.store.Snapshot(); ok {
		res["game"] = map[string]any{
			"id":       snap.ID,
			"isActive": snap.IsActive,
			"score":    snap.Score,
		}
		res["gameState"] = snap
	}
	_ = json.NewEncoder(w).Encode(res)
}

// handleStats serves aggregate counters. Persistence being down degrades to
// zeros rather than an error — the stream stays presentable.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var st repo.Stats
	if s.repo != nil {
		var err error
		if st, err = s.repo.Stats(r.Context()); err != nil {
			log.Warn().Err(err).Msg("read stats")
			st = repo.Stats{}
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"totalGames":    st.TotalGames,
		"totalComments": st.TotalComments,
		"activePlayers": s.hub.Count(),
		"averageScore":  st.AverageScore,
	})
}

// ------------------------------- small util --------------------------------

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
