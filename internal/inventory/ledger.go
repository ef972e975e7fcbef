package inventory

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/erp-api/internal/platform/db"
	"github.com/odyssey-erp/erp-api/internal/shared"
)

// MovementObserver is notified once the transaction holding a movement has
// committed.
type MovementObserver interface {
	RecordStockMovement(reason string)
}

// Ledger applies stock changes inside the caller's transaction and records a
// movement for each.
type Ledger struct {
	observer MovementObserver
}

// NewLedger constructs a Ledger. observer may be nil.
func NewLedger(observer MovementObserver) *Ledger {
	return &Ledger{observer: observer}
}

// Apply locks the product row, computes the new stock and writes it together
// with the movement. q must be a transaction for the lock to hold.
func (l *Ledger) Apply(ctx context.Context, q db.DBTX, change Change) (Movement, error) {
	var before int
	err := q.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1 FOR UPDATE`, change.ProductID).Scan(&before)
	if err != nil {
		if db.IsNoRows(err) {
			return Movement{}, shared.NotFound("Product not found")
		}
		return Movement{}, fmt.Errorf("lock product stock: %w", err)
	}
	after, err := Apply(before, change.Op, change.Quantity)
	if err != nil {
		return Movement{}, err
	}
	if _, err := q.Exec(ctx, `UPDATE products SET stock = $2, updated_at = NOW() WHERE id = $1`, change.ProductID, after); err != nil {
		return Movement{}, fmt.Errorf("update product stock: %w", err)
	}
	return l.record(ctx, q, Movement{
		ProductID:   change.ProductID,
		Reason:      change.Reason,
		Reference:   change.Reference,
		Quantity:    after - before,
		StockBefore: before,
		StockAfter:  after,
		ActorID:     change.ActorID,
	})
}

// Opening records the initial stock of a newly created product.
func (l *Ledger) Opening(ctx context.Context, q db.DBTX, productID int64, stock int, reference string, actorID int64) (Movement, error) {
	return l.record(ctx, q, Movement{
		ProductID:  productID,
		Reason:     ReasonOpening,
		Reference:  reference,
		Quantity:   stock,
		StockAfter: stock,
		ActorID:    actorID,
	})
}

// History returns the latest movements of a product, newest first.
func (l *Ledger) History(ctx context.Context, q db.DBTX, productID int64, limit int) ([]Movement, error) {
	rows, err := q.Query(ctx, `SELECT id, product_id, reason, reference, quantity, stock_before, stock_after, COALESCE(actor_id, 0), created_at
FROM stock_movements WHERE product_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var m Movement
		var reason string
		if err := rows.Scan(&m.ID, &m.ProductID, &reason, &m.Reference, &m.Quantity, &m.StockBefore, &m.StockAfter, &m.ActorID, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Reason = Reason(reason)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (l *Ledger) record(ctx context.Context, q db.DBTX, m Movement) (Movement, error) {
	var actor *int64
	if m.ActorID > 0 {
		actor = &m.ActorID
	}
	err := q.QueryRow(ctx, `INSERT INTO stock_movements (product_id, reason, reference, quantity, stock_before, stock_after, actor_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, created_at`,
		m.ProductID, string(m.Reason), m.Reference, m.Quantity, m.StockBefore, m.StockAfter, actor,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return Movement{}, fmt.Errorf("insert stock movement: %w", err)
	}
	return m, nil
}

// Batch tracks the movements written inside one transaction so the observer
// only hears about committed ones.
type Batch struct {
	ledger    *Ledger
	movements []Movement
}

// Begin starts a batch for a new transaction.
func (l *Ledger) Begin() *Batch {
	return &Batch{ledger: l}
}

// Apply is Ledger.Apply, remembering the movement until Settle.
func (b *Batch) Apply(ctx context.Context, q db.DBTX, change Change) (Movement, error) {
	m, err := b.ledger.Apply(ctx, q, change)
	if err != nil {
		return Movement{}, err
	}
	b.add(m)
	return m, nil
}

// Opening is Ledger.Opening, remembering the movement until Settle.
func (b *Batch) Opening(ctx context.Context, q db.DBTX, productID int64, stock int, reference string, actorID int64) (Movement, error) {
	m, err := b.ledger.Opening(ctx, q, productID, stock, reference, actorID)
	if err != nil {
		return Movement{}, err
	}
	b.add(m)
	return m, nil
}

func (b *Batch) add(m Movement) {
	b.movements = append(b.movements, m)
}

// Settle takes the transaction result. On success the pending movements are
// reported; on failure they are discarded. txErr is returned unchanged.
func (b *Batch) Settle(txErr error) error {
	pending := b.movements
	b.movements = nil
	if txErr != nil || b.ledger == nil || b.ledger.observer == nil {
		return txErr
	}
	for _, m := range pending {
		b.ledger.observer.RecordStockMovement(string(m.Reason))
	}
	return nil
}
