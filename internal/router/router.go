package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"relaychat-backend/internal/handlers"
	"relaychat-backend/internal/middleware"
)

// Deps carries the handlers the router mounts. A nil JWTAuth disables sessions:
// chat is anonymous only and the session, history and WebSocket routes are absent.
type Deps struct {
	JWTAuth        *middleware.JWTAuth
	ChatLimiter    *middleware.RateLimiter
	ChatHandler    *handlers.ChatHandler
	SessionHandler *handlers.SessionHandler
	HistoryHandler *handlers.HistoryHandler
	WebSocket      http.HandlerFunc
	FrontendURL    string
	// Upper bound for a whole request; must exceed the webhook timeout.
	RequestTimeout time.Duration
}

func New(d Deps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(d.FrontendURL))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {

		// ──── Chat (anonymous or session-bound) ────
		r.Group(func(r chi.Router) {
			if d.RequestTimeout > 0 {
				r.Use(chimiddleware.Timeout(d.RequestTimeout))
			}
			if d.ChatLimiter != nil {
				r.Use(d.ChatLimiter.Middleware)
			}
			if d.JWTAuth != nil {
				r.Use(d.JWTAuth.Optional)
			}
			r.Post("/chat", d.ChatHandler.Send)
		})

		if d.JWTAuth == nil {
			return
		}

		// ──── Sessions ────
		r.Post("/sessions", d.SessionHandler.Create)

		r.Group(func(r chi.Router) {
			r.Use(d.JWTAuth.Middleware)
			r.Get("/history", d.HistoryHandler.List)
		})

		// ──── WebSocket ────
		if d.WebSocket != nil {
			r.Get("/ws", d.WebSocket)
		}
	})

	return r
}
