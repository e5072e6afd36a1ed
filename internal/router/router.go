package router

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-bookshelf/internal/config"
	"go-bookshelf/internal/handler"
	"go-bookshelf/internal/metrics"
	"go-bookshelf/internal/middleware"
)

type Handlers struct {
	Auth *handler.AuthHandler
	Book *handler.BookHandler

	// Health, when set, backs /health; a non-nil error reports 503.
	Health func(ctx context.Context) error
}

// New builds the HTTP surface. m may be nil, in which case /metrics is not
// mounted and nothing is recorded.
func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	clientIP := middleware.ClientIP(cfg.TrustProxy)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.GeneralRateLimitRPM, cfg.SkipRateLimit, clientIP, m)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging(m))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if h.Health != nil {
			if err := h.Health(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("unavailable"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if m != nil && cfg.MetricsEnabled {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Post("/register", h.Auth.Register)
		api.Post("/login", h.Auth.Login)

		api.Group(func(protected chi.Router) {
			protected.Use(authMiddleware.RequireAuth)
			protected.Use(rateLimitMiddleware.Handler)

			protected.Get("/me", h.Auth.Me)

			protected.Get("/books", h.Book.List)
			protected.Post("/books", h.Book.Create)
			protected.Get("/books/{id}", h.Book.Get)
			protected.Put("/books/{id}", h.Book.Update)
			protected.Delete("/books/{id}", h.Book.Delete)

			protected.Get("/favorites", h.Book.Favorites)
			protected.Post("/favorites/{id}", h.Book.AddFavorite)
			protected.Delete("/favorites/{id}", h.Book.RemoveFavorite)
		})
	})

	return r
}
