package products

import (
	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/erp-api/internal/rbac"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.Authenticated))
		r.Get("/", h.List)
		r.Get("/alerts/low-stock", h.LowStock)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.InventoryAccess))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Patch("/{id}/stock", h.UpdateStock)
		r.Get("/{id}/movements", h.Movements)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.AdminOnly))
		r.Delete("/{id}", h.Delete)
	})
}
