package procurement

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/erp-api/internal/observability"
	"github.com/odyssey-erp/erp-api/internal/platform/httpx"
	"github.com/odyssey-erp/erp-api/internal/rbac"
	"github.com/odyssey-erp/erp-api/internal/shared"
)

// Handler exposes procurement endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	metrics *observability.Metrics
}

// NewHandler builds a procurement handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, metrics *observability.Metrics) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, metrics: metrics}
}

// MountPurchaseOrderRoutes registers /api/purchase-orders.
func (h *Handler) MountPurchaseOrderRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.PurchaseAccess))
		r.Get("/", h.listPOs)
		r.Get("/{id}", h.showPO)
		r.Post("/", h.createPO)
		r.Put("/{id}", h.updatePO)
		r.Patch("/{id}/status", h.updatePOStatus)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.AdminOnly))
		r.Delete("/{id}", h.deletePO)
	})
}

// MountGRNRoutes registers /api/grns.
func (h *Handler) MountGRNRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ReceivingAccess))
		r.Get("/", h.listGRNs)
		r.Get("/{id}", h.showGRN)
		r.Post("/", h.createGRN)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.InventoryAccess))
		r.Put("/{id}", h.updateGRN)
		r.Patch("/{id}/approve", h.approveGRN)
		r.Patch("/{id}/reject", h.rejectGRN)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.AdminOnly))
		r.Delete("/{id}", h.deleteGRN)
	})
}

func listFilters(r *http.Request) ListFilters {
	return ListFilters{PageRequest: httpx.PageQuery(r), Status: r.URL.Query().Get("status")}
}

func (h *Handler) listPOs(w http.ResponseWriter, r *http.Request) {
	filters := listFilters(r)
	pos, total, err := h.service.ListPurchaseOrders(r.Context(), filters)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"purchaseOrders": pos,
		"pagination":     shared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) showPO(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	po, err := h.service.GetPurchaseOrder(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) createPO(w http.ResponseWriter, r *http.Request) {
	var input CreatePOInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	po, err := h.service.CreatePurchaseOrder(r.Context(), input, shared.ActorID(r.Context()))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	h.metrics.RecordDocument("purchase_order", "create")
	httpx.JSON(w, http.StatusCreated, po)
}

func (h *Handler) updatePO(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var input UpdatePOInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	po, err := h.service.UpdatePurchaseOrder(r.Context(), id, input, shared.ActorID(r.Context()))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	h.metrics.RecordDocument("purchase_order", "update")
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) updatePOStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var input POStatusInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	po, err := h.service.ChangePurchaseOrderStatus(r.Context(), id, input.Status, shared.ActorID(r.Context()))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	h.metrics.RecordDocument("purchase_order", "status")
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) deletePO(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	if err := h.service.DeletePurchaseOrder(r.Context(), id, shared.ActorID(r.Context())); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	h.metrics.RecordDocument("purchase_order", "delete")
	httpx.Message(w, http.StatusOK, "Purchase order removed")
}

func (h *Handler) listGRNs(w http.ResponseWriter, r *http.Request) {
	filters := listFilters(r)
	grns, total, err := h.service.ListGRNs(r.Context(), filters)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"grns":       grns,
		"pagination": shared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) showGRN(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	grn, err := h.service.GetGRN(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, grn)
}

func (h *Handler) createGRN(w http.ResponseWriter, r *http.Request) {
	var input CreateGRNInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	grn, err := h.service.CreateGRN(r.Context(), input, shared.ActorID(r.Context()))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	h.metrics.RecordDocument("grn", "create")
	httpx.JSON(w, http.StatusCreated, grn)
}

func (h *Handler) updateGRN(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var input UpdateGRNInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	grn, err := h.service.UpdateGRN(r.Context(), id, input, shared.ActorID(r.Context()))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	h.metrics.RecordDocument("grn", "update")
	httpx.JSON(w, http.StatusOK, grn)
}

func (h *Handler) approveGRN(w http.ResponseWriter, r *http.Request) {
	h.transitionGRN(w, r, "approve", h.service.ApproveGRN)
}

func (h *Handler) rejectGRN(w http.ResponseWriter, r *http.Request) {
	h.transitionGRN(w, r, "reject", h.service.RejectGRN)
}

func (h *Handler) transitionGRN(w http.ResponseWriter, r *http.Request, action string, fn func(ctx context.Context, id, actorID int64) (GRN, error)) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	grn, err := fn(r.Context(), id, shared.ActorID(r.Context()))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	h.metrics.RecordDocument("grn", action)
	httpx.JSON(w, http.StatusOK, grn)
}

func (h *Handler) deleteGRN(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	if err := h.service.DeleteGRN(r.Context(), id, shared.ActorID(r.Context())); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	h.metrics.RecordDocument("grn", "delete")
	httpx.Message(w, http.StatusOK, "GRN removed")
}
