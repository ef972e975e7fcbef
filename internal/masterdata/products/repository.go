package products

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/erp-api/internal/inventory"
	"github.com/odyssey-erp/erp-api/internal/platform/db"
	"github.com/odyssey-erp/erp-api/internal/shared"
)

// Repository provides product persistence.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Product, int, error)
	LowStock(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	Movements(ctx context.Context, productID int64, limit int) ([]inventory.Movement, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the writes that run inside one transaction.
type TxRepository interface {
	Insert(ctx context.Context, p *Product) error
	GetForUpdate(ctx context.Context, id int64) (Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error
	ApplyStock(ctx context.Context, change inventory.Change) (inventory.Movement, error)
	RecordOpening(ctx context.Context, productID int64, stock int, actorID int64) error
}

type repository struct {
	pool   *pgxpool.Pool
	ledger *inventory.Ledger
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool, ledger *inventory.Ledger) Repository {
	return &repository{pool: pool, ledger: ledger}
}

const productColumns = `id, sku, name, description, category, price, cost_price, stock, reorder_level, unit, is_active, created_by, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Category, &p.Price, &p.CostPrice,
		&p.Stock, &p.ReorderLevel, &p.Unit, &p.IsActive, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	p.Derive()
	return p, nil
}

func collect(rows pgx.Rows) ([]Product, error) {
	defer rows.Close()
	out := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	var cond db.Conditions
	cond.AddSearch(filter.Search, "sku", "name", "category")
	if filter.Category != "" {
		cond.AddSearch(filter.Category, "category")
	}
	if filter.LowStock {
		cond.Add("stock <= reorder_level")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+cond.Where(), cond.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}
	page, args := cond.Page(filter.Limit, filter.Offset())
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products`+cond.Where()+` ORDER BY created_at DESC, id DESC`+page, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	items, err := collect(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("scan products: %w", err)
	}
	return items, total, nil
}

func (r *repository) LowStock(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE stock <= reorder_level ORDER BY stock ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list low stock products: %w", err)
	}
	return collect(rows)
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Product{}, shared.NotFound("Product not found")
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *repository) Movements(ctx context.Context, productID int64, limit int) ([]inventory.Movement, error) {
	return r.ledger.History(ctx, r.pool, productID, limit)
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	stock := r.ledger.Begin()
	return stock.Settle(db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx, stock: stock})
	}))
}

type txRepo struct {
	tx    pgx.Tx
	stock *inventory.Batch
}

func (t *txRepo) Insert(ctx context.Context, p *Product) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO products (sku, name, description, category, price, cost_price, stock, reorder_level, unit, is_active, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id, created_at, updated_at`,
		p.SKU, p.Name, p.Description, p.Category, p.Price, p.CostPrice, p.Stock, p.ReorderLevel, p.Unit, p.IsActive, p.CreatedBy,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "products_sku_key") {
			return shared.Conflict("Product with this SKU already exists")
		}
		return fmt.Errorf("insert product: %w", err)
	}
	p.Derive()
	return nil
}

func (t *txRepo) GetForUpdate(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(t.tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Product{}, shared.NotFound("Product not found")
		}
		return Product{}, fmt.Errorf("lock product: %w", err)
	}
	return p, nil
}

func (t *txRepo) Update(ctx context.Context, p *Product) error {
	err := t.tx.QueryRow(ctx, `UPDATE products SET sku = $2, name = $3, description = $4, category = $5, price = $6,
cost_price = $7, reorder_level = $8, unit = $9, is_active = $10, updated_at = NOW()
WHERE id = $1
RETURNING updated_at`,
		p.ID, p.SKU, p.Name, p.Description, p.Category, p.Price, p.CostPrice, p.ReorderLevel, p.Unit, p.IsActive,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "products_sku_key") {
			return shared.Conflict("Product with this SKU already exists")
		}
		return fmt.Errorf("update product: %w", err)
	}
	p.Derive()
	return nil
}

func (t *txRepo) Delete(ctx context.Context, id int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
		if db.IsForeignKeyViolation(err) {
			return shared.Rule("Product is referenced by other documents")
		}
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func (t *txRepo) ApplyStock(ctx context.Context, change inventory.Change) (inventory.Movement, error) {
	return t.stock.Apply(ctx, t.tx, change)
}

func (t *txRepo) RecordOpening(ctx context.Context, productID int64, stock int, actorID int64) error {
	_, err := t.stock.Opening(ctx, t.tx, productID, stock, "", actorID)
	return err
}
