package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/summary", h.HandleGetSummary) // Valuation, P&L, blended yield, sectors
		r.Post("/analyze", h.HandleAnalyze)   // Full batch analysis
	})
}
