package router

import (
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/jocarsa/jocarsa-lavender/internal/auth"
	"github.com/jocarsa/jocarsa-lavender/internal/config"
	"github.com/jocarsa/jocarsa-lavender/internal/handler"
	mw "github.com/jocarsa/jocarsa-lavender/internal/middleware"
)

func New(
	cfg config.ServerConfig,
	log zerolog.Logger,
	queryH *handler.QueryHandler,
	authH *handler.AuthHandler,
	healthH *handler.HealthHandler,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.Recovery(log))
	r.Use(mw.Logger(log))
	r.Use(mw.CORS(cfg.AllowedOrigins))
	r.Use(mw.MaxBodySize(cfg.MaxBodyBytes))

	r.Get("/healthz", healthH.Health)

	r.Group(func(r chi.Router) {
		r.Use(auth.Bearer)

		// First-generation path kept for existing integrations.
		r.Post("/api_lavender.php", queryH.Legacy)

		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/auth/login", authH.Login)
			r.Post("/legacy/query", queryH.Legacy)
			r.Post("/query", queryH.Query)
		})
	})

	return r
}
