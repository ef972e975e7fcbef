package analytics

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/erp-api/internal/platform/httpx"
	"github.com/odyssey-erp/erp-api/internal/rbac"
)

// Handler serves /api/dashboard.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.Authenticated))
		r.Get("/overview", h.Overview)
		r.Get("/sales-trends", h.SalesTrends)
		r.Get("/top-products", h.TopProducts)
		r.Get("/top-customers", h.TopCustomers)
		r.Get("/recent-activities", h.RecentActivities)
		r.Get("/inventory-alerts", h.InventoryAlerts)
	})
}

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.Overview(r.Context())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) SalesTrends(w http.ResponseWriter, r *http.Request) {
	points, err := h.service.SalesTrends(r.Context(), Period(r.URL.Query().Get("period")))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, points)
}

func (h *Handler) TopProducts(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.TopProducts(r.Context(), httpx.IntQuery(r, "limit", defaultLimit))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) TopCustomers(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.TopCustomers(r.Context(), httpx.IntQuery(r, "limit", defaultLimit))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) RecentActivities(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.RecentActivities(r.Context(), httpx.IntQuery(r, "limit", defaultLimit))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) InventoryAlerts(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.InventoryAlerts(r.Context())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}
