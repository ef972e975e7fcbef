package suppliers

import (
	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/erp-api/internal/rbac"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.PurchaseAccess))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.AdminOnly))
		r.Delete("/{id}", h.Delete)
	})
}
