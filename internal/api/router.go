package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/iconidentify/buzzteacher/internal/api/handler"
	mw "github.com/iconidentify/buzzteacher/internal/api/middleware"
)

// Handlers groups the HTTP handlers served by the router.
type Handlers struct {
	Chat          *handler.ChatHandler
	Conversations *handler.ConversationHandler
	Personas      *handler.PersonaHandler
	Health        *handler.HealthHandler
}

// RouterConfig holds the router's access settings.
type RouterConfig struct {
	APIKey      string
	CORSOrigins []string
}

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(h Handlers, cfg RouterConfig, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //ready -> /ready)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger(logger))
	r.Use(mw.Recovery(logger))
	r.Use(mw.CORS(cfg.CORSOrigins))

	// Health endpoints (no auth)
	r.Get("/health", h.Health.Live)
	r.Get("/ready", h.Health.Ready)

	// API v1 (authenticated)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(cfg.APIKey))

		r.Post("/chat", h.Chat.Chat)

		r.Get("/personas", h.Personas.List)

		r.Get("/conversations", h.Conversations.List)
		r.Post("/conversations", h.Conversations.Create)
		r.Get("/conversations/{conversationID}", h.Conversations.Get)
		r.Get("/conversations/{conversationID}/messages", h.Conversations.Messages)
		r.Post("/conversations/{conversationID}/messages", h.Conversations.AppendMessage)
		r.Post("/conversations/{conversationID}/generate-title", h.Conversations.GenerateTitle)
	})

	return r
}
