package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ianb/trivia-maker/internal/handlers"
	"github.com/ianb/trivia-maker/internal/middleware"
	"github.com/ianb/trivia-maker/internal/websocket"
)

func New(
	cardHandler *handlers.CardHandler,
	generateHandler *handlers.GenerateHandler,
	connectHandler *handlers.ConnectHandler,
	wsHub *websocket.Hub,
	frontendURL string,
	authRateLimitPerMin int,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (per IP)
	authLimiter := middleware.NewRateLimiter(authRateLimitPerMin, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/connect", connectHandler.Connect)
			r.Post("/callback", connectHandler.Callback)
			r.Get("/status", connectHandler.Status)
			r.Delete("/token", connectHandler.Disconnect)
		})

		// ──── Card Routes ────
		r.Route("/cards", func(r chi.Router) {
			r.Get("/", cardHandler.List)
			r.Post("/", cardHandler.Create)
			r.Delete("/", cardHandler.Clear)
			r.Get("/export", cardHandler.Export)
			r.Post("/import", cardHandler.Import)
			r.Put("/{id}", cardHandler.Update)
			r.Delete("/{id}", cardHandler.Delete)
		})

		r.Get("/categories", cardHandler.Categories)

		// ──── Feedback Routes ────
		r.Route("/feedback", func(r chi.Router) {
			r.Get("/{category}", generateHandler.ListFeedback)
			r.Delete("/{category}", generateHandler.ClearFeedback)
		})

		// ──── Generation & Review Routes ────
		r.Post("/generate", generateHandler.Generate)

		r.Route("/review", func(r chi.Router) {
			r.Get("/", generateHandler.Queue)
			r.Delete("/", generateHandler.Discard)
			r.Post("/{id}/keep", generateHandler.Keep)
			r.Post("/{id}/reject", generateHandler.Reject)
		})

		r.Get("/stats", generateHandler.Stats)

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
