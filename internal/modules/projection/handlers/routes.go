package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers all projection routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/projection", func(r chi.Router) {
		r.Post("/", h.HandleProject)
		r.Post("/chart", h.HandleChart)
	})
}
