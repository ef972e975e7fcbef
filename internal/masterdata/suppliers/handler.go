package suppliers

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/erp-api/internal/observability"
	"github.com/odyssey-erp/erp-api/internal/platform/httpx"
	"github.com/odyssey-erp/erp-api/internal/rbac"
	"github.com/odyssey-erp/erp-api/internal/shared"
)

// Handler serves /api/suppliers.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	metrics *observability.Metrics
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, metrics *observability.Metrics) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, metrics: metrics}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters := ListFilters{PageRequest: httpx.PageQuery(r), IsActive: httpx.BoolQuery(r, "isActive")}
	suppliers, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"suppliers":  suppliers,
		"pagination": shared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	supplier, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, supplier)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	supplier, err := h.service.Create(r.Context(), in, shared.ActorID(r.Context()))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	h.metrics.RecordDocument("supplier", "create")
	httpx.JSON(w, http.StatusCreated, supplier)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	supplier, err := h.service.Update(r.Context(), id, in, shared.ActorID(r.Context()))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	h.metrics.RecordDocument("supplier", "update")
	httpx.JSON(w, http.StatusOK, supplier)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	if err := h.service.Delete(r.Context(), id, shared.ActorID(r.Context())); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	h.metrics.RecordDocument("supplier", "delete")
	httpx.Message(w, http.StatusOK, "Supplier removed")
}
