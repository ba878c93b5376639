package payments

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/payments", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.create(h.service.Create))
		r.Post("/receive", h.create(h.service.Receive))
		r.Post("/payment-out", h.create(h.service.PayOut))
		r.Get("/next-number", h.NextNumber)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}
