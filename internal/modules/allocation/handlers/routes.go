package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers all allocation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/allocation", func(r chi.Router) {
		r.Post("/plan", h.HandlePlan)
		r.Post("/dividend", h.HandleDividend)
	})
}
