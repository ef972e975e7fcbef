package ar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/erp-api/internal/shared"
)

// PaymentModule scopes payment idempotency keys.
const PaymentModule = "ar.payment"

// exportLimit caps the rows written to a single XLSX export.
const exportLimit = 5000

// AuditPort records invoice changes.
type AuditPort interface {
	Write(ctx context.Context, entry shared.AuditLog)
}

// IdempotencyPort remembers processed payment keys.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// Service handles invoice business logic.
type Service struct {
	repo  Repository
	audit AuditPort
	idem  IdempotencyPort
	now   func() time.Time
}

// NewService builds Service instance.
func NewService(repo Repository, audit AuditPort, idem IdempotencyPort) *Service {
	return &Service{repo: repo, audit: audit, idem: idem, now: time.Now}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Invoice, int, error) {
	filter.PageRequest = filter.PageRequest.Normalize()
	if filter.PaymentStatus != "" && !filter.PaymentStatus.Valid() {
		return nil, 0, shared.Invalid("invalid paymentStatus %q", filter.PaymentStatus)
	}
	now := s.now()
	filter.Now = now
	invoices, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	for i := range invoices {
		Recalculate(&invoices[i], now)
	}
	return invoices, total, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	Recalculate(&inv, s.now())
	return inv, nil
}

// Create builds an invoice from a sales order, copying its customer and
// lines.
func (s *Service) Create(ctx context.Context, in CreateInput, actorID int64) (Invoice, error) {
	if in.SalesOrderID <= 0 {
		return Invoice{}, shared.Invalid("salesOrder is required")
	}
	if in.DueDate == nil || in.DueDate.IsZero() {
		return Invoice{}, shared.Invalid("dueDate is required")
	}
	if in.PaymentMethod != nil && !in.PaymentMethod.Valid() {
		return Invoice{}, shared.Invalid("invalid paymentMethod %q", *in.PaymentMethod)
	}
	now := s.now()
	inv := Invoice{
		InvoiceNumber: shared.NormalizeCode(in.InvoiceNumber),
		SalesOrderID:  in.SalesOrderID,
		InvoiceDate:   now,
		DueDate:       *in.DueDate,
		AmountPaid:    decimal.Zero,
		PaymentMethod: in.PaymentMethod,
		Notes:         strings.TrimSpace(in.Notes),
		Terms:         strings.TrimSpace(in.Terms),
	}
	if inv.InvoiceNumber == "" {
		inv.InvoiceNumber = shared.GenerateNumber("INV", now)
	}
	if in.InvoiceDate != nil {
		inv.InvoiceDate = *in.InvoiceDate
	}
	if inv.Terms == "" {
		inv.Terms = DefaultTerms
	}
	if actorID > 0 {
		inv.CreatedBy = &actorID
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		so, err := tx.SalesOrder(ctx, inv.SalesOrderID)
		if err != nil {
			return err
		}
		if so.Status == "Cancelled" {
			return shared.Rule("Cannot invoice a cancelled sales order")
		}
		if len(so.Items) == 0 {
			return shared.Rule("Sales order has no items to invoice")
		}
		inv.CustomerID = so.CustomerID
		inv.OrderNumber = so.OrderNumber
		inv.Items = so.Items
		Recalculate(&inv, now)
		return tx.Insert(ctx, &inv)
	})
	if err != nil {
		return Invoice{}, err
	}
	s.recordAudit(ctx, actorID, "invoice.create", inv.ID, map[string]any{
		"invoiceNumber": inv.InvoiceNumber,
		"salesOrder":    inv.SalesOrderID,
	})
	return inv, nil
}

// Update applies the allow-listed fields. Paid invoices are immutable.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput, actorID int64) (Invoice, error) {
	if in.PaymentMethod != nil && !in.PaymentMethod.Valid() {
		return Invoice{}, shared.Invalid("invalid paymentMethod %q", *in.PaymentMethod)
	}
	now := s.now()
	var inv Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		inv, err = tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		Recalculate(&inv, now)
		if inv.PaymentStatus == StatusPaid {
			return shared.Rule("Cannot update paid invoice")
		}
		if in.DueDate != nil {
			inv.DueDate = *in.DueDate
		}
		if in.PaymentMethod != nil {
			inv.PaymentMethod = in.PaymentMethod
		}
		if in.Notes != nil {
			inv.Notes = strings.TrimSpace(*in.Notes)
		}
		if in.Terms != nil {
			inv.Terms = strings.TrimSpace(*in.Terms)
		}
		Recalculate(&inv, now)
		return tx.Update(ctx, &inv)
	})
	if err != nil {
		return Invoice{}, err
	}
	s.recordAudit(ctx, actorID, "invoice.update", inv.ID, nil)
	return inv, nil
}

// RecordPayment adds amount to the invoice. A non-empty key makes the call
// idempotent: a repeated key returns the invoice without applying the
// payment again.
func (s *Service) RecordPayment(ctx context.Context, id int64, in PaymentInput, key string, actorID int64) (Invoice, error) {
	if !in.Amount.IsPositive() {
		return Invoice{}, shared.Invalid("amount must be greater than 0")
	}
	if in.PaymentMethod != nil && !in.PaymentMethod.Valid() {
		return Invoice{}, shared.Invalid("invalid paymentMethod %q", *in.PaymentMethod)
	}

	key = strings.TrimSpace(key)
	if key != "" && s.idem != nil {
		scoped := fmt.Sprintf("%d:%s", id, key)
		if err := s.idem.CheckAndInsert(ctx, scoped, PaymentModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return s.Get(ctx, id)
			}
			return Invoice{}, fmt.Errorf("payment idempotency: %w", err)
		}
		inv, err := s.applyPayment(ctx, id, in, actorID)
		if err != nil {
			_ = s.idem.Delete(ctx, scoped, PaymentModule)
			return Invoice{}, err
		}
		return inv, nil
	}
	return s.applyPayment(ctx, id, in, actorID)
}

func (s *Service) applyPayment(ctx context.Context, id int64, in PaymentInput, actorID int64) (Invoice, error) {
	now := s.now()
	var inv Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		inv, err = tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		Recalculate(&inv, now)
		if inv.PaymentStatus == StatusPaid {
			return shared.Rule("Invoice is already paid")
		}
		if in.Amount.GreaterThan(inv.BalanceDue) {
			return shared.Rule("Payment amount exceeds balance due")
		}
		inv.AmountPaid = inv.AmountPaid.Add(in.Amount)
		if in.PaymentMethod != nil {
			inv.PaymentMethod = in.PaymentMethod
		}
		Recalculate(&inv, now)
		return tx.Update(ctx, &inv)
	})
	if err != nil {
		return Invoice{}, err
	}
	s.recordAudit(ctx, actorID, "invoice.payment", inv.ID, map[string]any{
		"amount":        in.Amount.String(),
		"paymentStatus": inv.PaymentStatus,
	})
	return inv, nil
}

// Delete removes an invoice that has not received any payment.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.AmountPaid.IsPositive() {
			return shared.Rule("Cannot delete invoice with payments")
		}
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "invoice.delete", id, nil)
	return nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.repo.Stats(ctx, s.now())
}

// SweepOverdue persists the Overdue status for invoices past due.
func (s *Service) SweepOverdue(ctx context.Context) (int64, error) {
	return s.repo.MarkOverdue(ctx, s.now())
}

// ExportRows returns up to exportLimit invoices matching filter, newest
// first.
func (s *Service) ExportRows(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	if filter.PaymentStatus != "" && !filter.PaymentStatus.Valid() {
		return nil, shared.Invalid("invalid paymentStatus %q", filter.PaymentStatus)
	}
	now := s.now()
	filter.PageRequest = shared.PageRequest{Page: 1, Limit: exportLimit, Search: filter.Search}
	filter.Now = now
	invoices, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range invoices {
		Recalculate(&invoices[i], now)
	}
	return invoices, nil
}

// Aging groups outstanding balances by days past due as of asOf.
func (s *Service) Aging(ctx context.Context, asOf time.Time) (AgingBucket, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	return s.repo.Aging(ctx, asOf)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	s.audit.Write(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "invoice",
		EntityID: id,
		Meta:     meta,
		At:       s.now(),
	})
}
