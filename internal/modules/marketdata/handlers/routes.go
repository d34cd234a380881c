package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all market data routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/market/{ticker}", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGet(w, r, chi.URLParam(r, "ticker"))
		})
		r.Post("/refresh", func(w http.ResponseWriter, r *http.Request) {
			h.HandleRefresh(w, r, chi.URLParam(r, "ticker"))
		})
		r.Delete("/cache", func(w http.ResponseWriter, r *http.Request) {
			h.HandleInvalidate(w, r, chi.URLParam(r, "ticker"))
		})
	})
}
