package procurement

import (
	"context"
	"strings"
	"time"

	"github.com/odyssey-erp/erp-api/internal/shared"
)

// AuditPort records purchasing changes.
type AuditPort interface {
	Write(ctx context.Context, entry shared.AuditLog)
}

// Service orchestrates procurement flows.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService constructs procurement service. audit may be nil.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// ListPurchaseOrders returns a page of purchase orders.
func (s *Service) ListPurchaseOrders(ctx context.Context, filters ListFilters) ([]PurchaseOrder, int, error) {
	filters.PageRequest = filters.PageRequest.Normalize()
	if filters.Status != "" && !POStatus(filters.Status).Valid() {
		return nil, 0, shared.Invalid("invalid status %q", filters.Status)
	}
	return s.repo.ListPOs(ctx, filters)
}

// GetPurchaseOrder returns one purchase order.
func (s *Service) GetPurchaseOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.repo.GetPO(ctx, id)
}

// CreatePurchaseOrder validates the supplier and products and stores a Draft order.
func (s *Service) CreatePurchaseOrder(ctx context.Context, input CreatePOInput, actorID int64) (PurchaseOrder, error) {
	items, err := shared.BuildLines(input.Items)
	if err != nil {
		return PurchaseOrder{}, err
	}
	now := s.now()
	po := PurchaseOrder{
		PONumber:             shared.NormalizeCode(input.PONumber),
		SupplierID:           input.SupplierID,
		OrderDate:            now,
		ExpectedDeliveryDate: input.ExpectedDeliveryDate,
		Status:               POStatusDraft,
		Notes:                strings.TrimSpace(input.Notes),
	}
	if po.PONumber == "" {
		po.PONumber = shared.GenerateNumber("PO", now)
	}
	if input.OrderDate != nil {
		po.OrderDate = *input.OrderDate
	}
	if actorID > 0 {
		po.CreatedBy = &actorID
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.SupplierExists(ctx, po.SupplierID)
		if err != nil {
			return err
		}
		if !ok {
			return shared.NotFound("Supplier not found")
		}
		if po.Items, err = resolvePOLines(ctx, tx, items); err != nil {
			return err
		}
		po.Recompute()
		return tx.InsertPO(ctx, &po)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, actorID, "purchase_order.create", "purchase_order", po.ID, map[string]any{"poNumber": po.PONumber})
	return po, nil
}

// UpdatePurchaseOrder applies the allow-listed fields. Lines can only be
// replaced while nothing has been received.
func (s *Service) UpdatePurchaseOrder(ctx context.Context, id int64, input UpdatePOInput, actorID int64) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		if po, err = tx.GetPOForUpdate(ctx, id); err != nil {
			return err
		}
		if po.Status.Terminal() {
			return shared.Rule("Cannot update received or cancelled orders")
		}
		if input.ExpectedDeliveryDate != nil {
			po.ExpectedDeliveryDate = input.ExpectedDeliveryDate
		}
		if input.Notes != nil {
			po.Notes = strings.TrimSpace(*input.Notes)
		}
		if input.Items != nil {
			if po.HasReceipts() {
				return shared.Rule("Cannot change items after goods have been received")
			}
			items, err := shared.BuildLines(input.Items)
			if err != nil {
				return err
			}
			if po.Items, err = resolvePOLines(ctx, tx, items); err != nil {
				return err
			}
		}
		po.Recompute()
		return tx.UpdatePO(ctx, &po)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, actorID, "purchase_order.update", "purchase_order", po.ID, nil)
	return po, nil
}

// ChangePurchaseOrderStatus sets a new status. Received and Cancelled orders are final.
func (s *Service) ChangePurchaseOrderStatus(ctx context.Context, id int64, status POStatus, actorID int64) (PurchaseOrder, error) {
	if !status.Valid() {
		return PurchaseOrder{}, shared.Invalid("invalid status %q", status)
	}
	var po PurchaseOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		if po, err = tx.GetPOForUpdate(ctx, id); err != nil {
			return err
		}
		if po.Status.Terminal() {
			return shared.Rule("Cannot change status of a %s purchase order", strings.ToLower(string(po.Status)))
		}
		if err := tx.UpdatePOStatus(ctx, id, status); err != nil {
			return err
		}
		po.Status = status
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, actorID, "purchase_order.status", "purchase_order", po.ID, map[string]any{"status": status})
	return po, nil
}

// DeletePurchaseOrder removes an order that no GRN references.
func (s *Service) DeletePurchaseOrder(ctx context.Context, id int64, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetPOForUpdate(ctx, id); err != nil {
			return err
		}
		return tx.DeletePO(ctx, id)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "purchase_order.delete", "purchase_order", id, nil)
	return nil
}

func resolvePOLines(ctx context.Context, tx TxRepository, items []shared.LineItem) ([]POLine, error) {
	lines := make([]POLine, len(items))
	for i, it := range items {
		p, err := tx.Product(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		it.ProductSKU = p.SKU
		it.ProductName = p.Name
		lines[i] = POLine{LineItem: it}
	}
	return lines, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, entity string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	s.audit.Write(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Meta:     meta,
		At:       s.now(),
	})
}
