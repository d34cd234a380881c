package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all technicals routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/technicals", func(r chi.Router) {
		r.Get("/", h.HandleGetMany)
		r.Get("/{ticker}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetTicker(w, r, chi.URLParam(r, "ticker"))
		})
	})
}
