package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all valuation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/valuation", func(r chi.Router) {
		r.Get("/{ticker}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetValuation(w, r, chi.URLParam(r, "ticker"))
		})
	})
}
