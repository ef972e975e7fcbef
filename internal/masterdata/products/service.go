package products

import (
	"context"
	"strings"
	"time"

	"github.com/odyssey-erp/erp-api/internal/inventory"
	"github.com/odyssey-erp/erp-api/internal/shared"
)

// AuditPort records product changes.
type AuditPort interface {
	Write(ctx context.Context, entry shared.AuditLog)
}

// Service implements product business rules.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the product service. audit may be nil.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// List returns a page of products.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	filter.PageRequest = filter.PageRequest.Normalize()
	filter.Category = strings.TrimSpace(filter.Category)
	return s.repo.List(ctx, filter)
}

// LowStock returns every product at or below its reorder level, lowest stock first.
func (s *Service) LowStock(ctx context.Context) ([]Product, error) {
	return s.repo.LowStock(ctx)
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

// Movements returns the product's latest ledger entries.
func (s *Service) Movements(ctx context.Context, id int64, limit int) ([]inventory.Movement, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > shared.MaxLimit {
		limit = 20
	}
	return s.repo.Movements(ctx, id, limit)
}

// Create stores a product and records its opening stock.
func (s *Service) Create(ctx context.Context, in CreateInput, actorID int64) (Product, error) {
	p := Product{
		SKU:          shared.NormalizeCode(in.SKU),
		Name:         strings.TrimSpace(in.Name),
		Description:  strings.TrimSpace(in.Description),
		Category:     strings.TrimSpace(in.Category),
		Price:        in.Price.Round(2),
		CostPrice:    in.CostPrice.Round(2),
		Stock:        in.Stock,
		ReorderLevel: defaultReorderLevel,
		Unit:         strings.TrimSpace(in.Unit),
		IsActive:     true,
	}
	if in.ReorderLevel != nil {
		p.ReorderLevel = *in.ReorderLevel
	}
	if p.Unit == "" {
		p.Unit = defaultUnit
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if actorID > 0 {
		p.CreatedBy = &actorID
	}
	if err := validate(p); err != nil {
		return Product{}, err
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.Insert(ctx, &p); err != nil {
			return err
		}
		if p.Stock > 0 {
			return tx.RecordOpening(ctx, p.ID, p.Stock, actorID)
		}
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	s.recordAudit(ctx, actorID, "product.create", p.ID, map[string]any{"sku": p.SKU})
	return p, nil
}

// Update applies the allow-listed fields.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput, actorID int64) (Product, error) {
	var updated Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if in.SKU != nil {
			p.SKU = shared.NormalizeCode(*in.SKU)
		}
		if in.Name != nil {
			p.Name = strings.TrimSpace(*in.Name)
		}
		if in.Description != nil {
			p.Description = strings.TrimSpace(*in.Description)
		}
		if in.Category != nil {
			p.Category = strings.TrimSpace(*in.Category)
		}
		if in.Price != nil {
			p.Price = in.Price.Round(2)
		}
		if in.CostPrice != nil {
			p.CostPrice = in.CostPrice.Round(2)
		}
		if in.ReorderLevel != nil {
			p.ReorderLevel = *in.ReorderLevel
		}
		if in.Unit != nil {
			p.Unit = strings.TrimSpace(*in.Unit)
			if p.Unit == "" {
				p.Unit = defaultUnit
			}
		}
		if in.IsActive != nil {
			p.IsActive = *in.IsActive
		}
		if err := validate(p); err != nil {
			return err
		}
		if err := tx.Update(ctx, &p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	s.recordAudit(ctx, actorID, "product.update", id, nil)
	return updated, nil
}

// AdjustStock applies add/subtract/set to the product's stock.
func (s *Service) AdjustStock(ctx context.Context, id int64, in StockInput, actorID int64) (Product, error) {
	op, err := inventory.ParseOperation(in.Operation)
	if err != nil {
		return Product{}, err
	}
	if in.Quantity == nil {
		return Product{}, shared.Invalid("quantity is required")
	}
	var updated Product
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetForUpdate(ctx, id); err != nil {
			return err
		}
		if _, err := tx.ApplyStock(ctx, inventory.Change{
			ProductID: id,
			Op:        op,
			Quantity:  *in.Quantity,
			Reason:    inventory.ReasonManual,
			ActorID:   actorID,
		}); err != nil {
			return err
		}
		p, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	s.recordAudit(ctx, actorID, "product.stock", id, map[string]any{"operation": string(op), "quantity": *in.Quantity})
	return updated, nil
}

// Delete removes a product that no document references.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetForUpdate(ctx, id); err != nil {
			return err
		}
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "product.delete", id, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	s.audit.Write(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "product",
		EntityID: id,
		Meta:     meta,
		At:       s.now(),
	})
}
