package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all price data routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/prices", func(r chi.Router) {
		r.Get("/symbols", h.HandleGetSymbols)
		r.Get("/daily/{symbol}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetDailyPrices(w, r, chi.URLParam(r, "symbol"))
		})
		r.Post("/import/{symbol}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleImportCSV(w, r, chi.URLParam(r, "symbol"))
		})
	})
}
