package ar

import (
	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/erp-api/internal/rbac"
)

// MountRoutes registers invoice routes. Static paths precede /{id}.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.SalesAccess))
		r.Get("/stats/overview", h.Stats)
		r.Get("/aging", h.Aging)
		r.Get("/export", h.Export)
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Patch("/{id}/payment", h.RecordPayment)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.AdminOnly))
		r.Delete("/{id}", h.Delete)
	})
}
