package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/lottery-pipeline/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware инспекционного API.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.GetStatus)

		r.Group(func(r chi.Router) {
			r.Use(h.auth.Middleware)

			r.Get("/players/{mobile}", h.GetPlayer)
			r.Get("/players/{mobile}/metrics", h.GetPlayerMetrics)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
