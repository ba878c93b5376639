package backup

import "github.com/go-chi/chi/v5"

// MountRoutes registers backup endpoints. The caller guards them with the
// admin role.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/backup", func(r chi.Router) {
		r.Get("/export", h.ExportJSON)
		r.Get("/export.xlsx", h.ExportWorkbook)
		r.Post("/import", h.ImportJSON)
		r.Post("/import.xlsx", h.ImportWorkbook)
	})
}
