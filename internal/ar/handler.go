package ar

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/odyssey-erp/erp-api/internal/observability"
	"github.com/odyssey-erp/erp-api/internal/platform/httpx"
	"github.com/odyssey-erp/erp-api/internal/rbac"
	"github.com/odyssey-erp/erp-api/internal/shared"
)

// IdempotencyHeader carries the optional payment idempotency key.
const IdempotencyHeader = "Idempotency-Key"

// Handler serves /api/invoices.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	metrics *observability.Metrics
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, metrics *observability.Metrics) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, metrics: metrics}
}

func listFilter(r *http.Request) ListFilter {
	return ListFilter{
		PageRequest:   httpx.PageQuery(r),
		PaymentStatus: PaymentStatus(r.URL.Query().Get("paymentStatus")),
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := listFilter(r)
	invoices, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"invoices":   invoices,
		"pagination": shared.NewPagination(filter.Page, filter.Limit, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	inv, err := h.service.Create(r.Context(), in, shared.ActorID(r.Context()))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	h.metrics.RecordDocument("invoice", "create")
	httpx.JSON(w, http.StatusCreated, inv)
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
	inv, err := h.service.Update(r.Context(), id, in, shared.ActorID(r.Context()))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	h.metrics.RecordDocument("invoice", "update")
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var in PaymentInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	inv, err := h.service.RecordPayment(r.Context(), id, in, r.Header.Get(IdempotencyHeader), shared.ActorID(r.Context()))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	h.metrics.RecordDocument("invoice", "payment")
	httpx.JSON(w, http.StatusOK, inv)
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
	h.metrics.RecordDocument("invoice", "delete")
	httpx.Message(w, http.StatusOK, "Invoice removed")
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

// Aging accepts an optional asOf=YYYY-MM-DD query parameter.
func (h *Handler) Aging(w http.ResponseWriter, r *http.Request) {
	var asOf time.Time
	if raw := r.URL.Query().Get("asOf"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.RespondError(w, r, h.logger, shared.Invalid("asOf must be a date (YYYY-MM-DD)"))
			return
		}
		asOf = parsed
	}
	aging, err := h.service.Aging(r.Context(), asOf)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, aging)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.service.ExportRows(r.Context(), listFilter(r))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, invoices); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	filename := fmt.Sprintf("invoices-%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", XLSXContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Error("write invoice export", slog.Any("error", err))
	}
}
