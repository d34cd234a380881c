package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all ledger routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/ledger", func(r chi.Router) {
		r.Get("/positions", h.HandleGetPositions)
		r.Post("/positions", h.HandleAddPosition)
		r.Delete("/positions", h.HandleClear)
		r.Delete("/positions/{ticker}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleRemovePosition(w, r, chi.URLParam(r, "ticker"))
		})
	})
}
