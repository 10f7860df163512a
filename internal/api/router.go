package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/brewmint/internal/itemservice"
)

// NewRouter creates the root chi router: health probes, the /api read
// routes and the /ipfs content gateway.
// token, if non-empty, enables Bearer auth on /api and /ipfs.
// sseHandler, if non-nil, is mounted at GET /api/events inside the auth group.
func NewRouter(svc *itemservice.Service, token string, sseHandler http.Handler, logger *slog.Logger) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", h.Live)
	r.Get("/health/ready", h.Ready)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(token))

		r.Route("/api", func(r chi.Router) {
			r.Get("/items", h.ListItems)
			r.Get("/items/{id}", h.GetItem)
			r.Get("/search", h.Search)

			if sseHandler != nil {
				r.Get("/events", sseHandler.ServeHTTP)
			}
		})

		r.Get("/ipfs/{cid}", h.Content)
	})

	return r
}
