package orders

import (
	"context"
	"strings"
	"time"

	"github.com/odyssey-erp/erp-api/internal/inventory"
	"github.com/odyssey-erp/erp-api/internal/shared"
)

// AuditPort records sales order changes.
type AuditPort interface {
	Write(ctx context.Context, entry shared.AuditLog)
}

type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]SalesOrder, int, error) {
	filter.PageRequest = filter.PageRequest.Normalize()
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, shared.Invalid("invalid status %q", filter.Status)
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (SalesOrder, error) {
	return s.repo.Get(ctx, id)
}

// Create verifies the customer, every product and its available stock, then
// stores the order with freshly computed totals.
func (s *Service) Create(ctx context.Context, in CreateInput, actorID int64) (SalesOrder, error) {
	items, err := shared.BuildLines(in.Items)
	if err != nil {
		return SalesOrder{}, err
	}
	now := s.now()
	so := SalesOrder{
		OrderNumber:          shared.NormalizeCode(in.OrderNumber),
		CustomerID:           in.CustomerID,
		OrderDate:            now,
		ExpectedDeliveryDate: in.ExpectedDeliveryDate,
		Status:               StatusPending,
		Notes:                strings.TrimSpace(in.Notes),
	}
	if so.OrderNumber == "" {
		so.OrderNumber = shared.GenerateNumber("SO", now)
	}
	if in.OrderDate != nil {
		so.OrderDate = *in.OrderDate
	}
	if actorID > 0 {
		so.CreatedBy = &actorID
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.CustomerExists(ctx, so.CustomerID)
		if err != nil {
			return err
		}
		if !ok {
			return shared.NotFound("Customer not found")
		}
		if err := resolveProducts(ctx, tx, items, true); err != nil {
			return err
		}
		so.Items = items
		so.Totals = shared.ComputeTotals(items)
		return tx.Insert(ctx, &so)
	})
	if err != nil {
		return SalesOrder{}, err
	}
	s.recordAudit(ctx, actorID, "sales_order.create", so.ID, map[string]any{"orderNumber": so.OrderNumber})
	return so, nil
}

// Update applies the allow-listed fields. Delivered and Cancelled orders are
// immutable.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput, actorID int64) (SalesOrder, error) {
	var so SalesOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		so, err = tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if so.Status.Terminal() {
			return shared.Rule("Cannot update delivered or cancelled orders")
		}
		if in.ExpectedDeliveryDate != nil {
			so.ExpectedDeliveryDate = in.ExpectedDeliveryDate
		}
		if in.Notes != nil {
			so.Notes = strings.TrimSpace(*in.Notes)
		}
		if in.Items != nil {
			items, err := shared.BuildLines(in.Items)
			if err != nil {
				return err
			}
			if err := resolveProducts(ctx, tx, items, false); err != nil {
				return err
			}
			so.Items = items
		}
		so.Totals = shared.ComputeTotals(so.Items)
		return tx.Update(ctx, &so)
	})
	if err != nil {
		return SalesOrder{}, err
	}
	s.recordAudit(ctx, actorID, "sales_order.update", so.ID, nil)
	return so, nil
}

// ChangeStatus moves the order to next. Leaving Confirmed for Shipped or
// Delivered deducts every line from stock, floored at zero.
func (s *Service) ChangeStatus(ctx context.Context, id int64, next Status, actorID int64) (SalesOrder, error) {
	if !next.Valid() {
		return SalesOrder{}, shared.Invalid("invalid status %q", next)
	}
	var (
		so       SalesOrder
		shipped  bool
		previous Status
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		so, err = tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if so.Status.Terminal() {
			return shared.Rule("Cannot change status of a %s order", strings.ToLower(string(so.Status)))
		}
		if !so.Status.CanMoveTo(next) {
			return shared.Rule("Cannot move a shipped order to %s", next)
		}
		previous = so.Status
		if so.Status.DeductsStock(next) {
			for _, it := range so.Items {
				_, err := tx.ApplyStock(ctx, inventory.Change{
					ProductID: it.ProductID,
					Op:        inventory.OpSubtract,
					Quantity:  it.Quantity,
					Reason:    inventory.ReasonSalesShipment,
					Reference: so.OrderNumber,
					ActorID:   actorID,
				})
				if err != nil {
					return err
				}
			}
			shipped = true
		}
		if err := tx.UpdateStatus(ctx, so.ID, next); err != nil {
			return err
		}
		so.Status = next
		return nil
	})
	if err != nil {
		return SalesOrder{}, err
	}
	s.recordAudit(ctx, actorID, "sales_order.status", so.ID, map[string]any{
		"from":          previous,
		"to":            next,
		"stockDeducted": shipped,
	})
	return so, nil
}

// Delete removes an order that has neither shipped nor reached a terminal
// status.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		so, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if so.Status.Terminal() || so.Status.HasShipped() {
			return shared.Rule("Cannot delete a %s order", strings.ToLower(string(so.Status)))
		}
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "sales_order.delete", id, nil)
	return nil
}

// resolveProducts fills product details on each line and, when checkStock is
// set, rejects lines that exceed the product's current stock.
func resolveProducts(ctx context.Context, tx TxRepository, items []shared.LineItem, checkStock bool) error {
	for i := range items {
		p, err := tx.Product(ctx, items[i].ProductID)
		if err != nil {
			return err
		}
		if checkStock && p.Stock < items[i].Quantity {
			return shared.Rule("Insufficient stock for product %s", p.Name)
		}
		items[i].ProductSKU = p.SKU
		items[i].ProductName = p.Name
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	s.audit.Write(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "sales_order",
		EntityID: id,
		Meta:     meta,
		At:       s.now(),
	})
}
