package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all research routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/research", func(r chi.Router) {
		r.Post("/run", h.HandleRun)
		r.Get("/latest", h.HandleGetLatest)
		r.Get("/stream", h.HandleStream)

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", h.HandleListRuns)
			r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetRun(w, r, chi.URLParam(r, "id"))
			})
			r.Get("/{id}/export.xlsx", func(w http.ResponseWriter, r *http.Request) {
				h.HandleExportRun(w, r, chi.URLParam(r, "id"))
			})
		})
	})
}
