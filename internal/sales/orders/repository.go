package orders

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/erp-api/internal/inventory"
	"github.com/odyssey-erp/erp-api/internal/platform/db"
	"github.com/odyssey-erp/erp-api/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]SalesOrder, int, error)
	Get(ctx context.Context, id int64) (SalesOrder, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository holds the reads and writes that must share a transaction.
type TxRepository interface {
	CustomerExists(ctx context.Context, id int64) (bool, error)
	Product(ctx context.Context, id int64) (ProductRef, error)
	Insert(ctx context.Context, so *SalesOrder) error
	GetForUpdate(ctx context.Context, id int64) (SalesOrder, error)
	Update(ctx context.Context, so *SalesOrder) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	Delete(ctx context.Context, id int64) error
	ApplyStock(ctx context.Context, change inventory.Change) (inventory.Movement, error)
}

type repository struct {
	pool   *pgxpool.Pool
	ledger *inventory.Ledger
}

func NewRepository(pool *pgxpool.Pool, ledger *inventory.Ledger) Repository {
	return &repository{pool: pool, ledger: ledger}
}

const orderColumns = `so.id, so.order_number, so.customer_id, c.customer_code, c.name, so.order_date, so.expected_delivery_date,
so.subtotal, so.total_tax, so.total_discount, so.grand_total, so.status, so.notes, so.created_by, so.created_at, so.updated_at`

const orderFrom = ` FROM sales_orders so JOIN customers c ON c.id = so.customer_id`

func scanOrder(row pgx.Row) (SalesOrder, error) {
	var so SalesOrder
	err := row.Scan(&so.ID, &so.OrderNumber, &so.CustomerID, &so.CustomerCode, &so.CustomerName,
		&so.OrderDate, &so.ExpectedDeliveryDate,
		&so.Subtotal, &so.TotalTax, &so.TotalDiscount, &so.GrandTotal,
		&so.Status, &so.Notes, &so.CreatedBy, &so.CreatedAt, &so.UpdatedAt)
	return so, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]SalesOrder, int, error) {
	var cond db.Conditions
	cond.AddSearch(filter.Search, "so.order_number")
	if filter.Status != "" {
		cond.Add("so.status = $%d", string(filter.Status))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+orderFrom+cond.Where(), cond.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sales orders: %w", err)
	}
	page, args := cond.Page(filter.Limit, filter.Offset())
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+orderFrom+cond.Where()+` ORDER BY so.created_at DESC, so.id DESC`+page, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sales orders: %w", err)
	}
	defer rows.Close()

	out := make([]SalesOrder, 0)
	for rows.Next() {
		so, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, so)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range out {
		if out[i].Items, err = loadItems(ctx, r.pool, out[i].ID); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

func (r *repository) Get(ctx context.Context, id int64) (SalesOrder, error) {
	return getOrder(ctx, r.pool, id, "")
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	stock := r.ledger.Begin()
	return stock.Settle(db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx, stock: stock})
	}))
}

func getOrder(ctx context.Context, q db.DBTX, id int64, lock string) (SalesOrder, error) {
	so, err := scanOrder(q.QueryRow(ctx, `SELECT `+orderColumns+orderFrom+` WHERE so.id = $1`+lock, id))
	if err != nil {
		if db.IsNoRows(err) {
			return SalesOrder{}, shared.NotFound("Sales order not found")
		}
		return SalesOrder{}, fmt.Errorf("get sales order: %w", err)
	}
	so.Items, err = loadItems(ctx, q, so.ID)
	return so, err
}

func loadItems(ctx context.Context, q db.DBTX, orderID int64) ([]shared.LineItem, error) {
	rows, err := q.Query(ctx, `SELECT i.product_id, p.sku, p.name, i.quantity, i.unit_price, i.discount, i.tax, i.total
FROM sales_order_items i JOIN products p ON p.id = i.product_id
WHERE i.sales_order_id = $1 ORDER BY i.line_no`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load sales order items: %w", err)
	}
	defer rows.Close()
	items := make([]shared.LineItem, 0)
	for rows.Next() {
		var it shared.LineItem
		if err := rows.Scan(&it.ProductID, &it.ProductSKU, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.Discount, &it.Tax, &it.Total); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type txRepo struct {
	tx    pgx.Tx
	stock *inventory.Batch
}

func (t *txRepo) CustomerExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (t *txRepo) Product(ctx context.Context, id int64) (ProductRef, error) {
	var p ProductRef
	err := t.tx.QueryRow(ctx, `SELECT id, sku, name, stock FROM products WHERE id = $1`, id).Scan(&p.ID, &p.SKU, &p.Name, &p.Stock)
	if db.IsNoRows(err) {
		return ProductRef{}, shared.NotFound("Product %d not found", id)
	}
	return p, err
}

func (t *txRepo) Insert(ctx context.Context, so *SalesOrder) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO sales_orders (order_number, customer_id, order_date, expected_delivery_date,
subtotal, total_tax, total_discount, grand_total, status, notes, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id, created_at, updated_at`,
		so.OrderNumber, so.CustomerID, so.OrderDate, so.ExpectedDeliveryDate,
		so.Subtotal, so.TotalTax, so.TotalDiscount, so.GrandTotal, so.Status, so.Notes, so.CreatedBy,
	).Scan(&so.ID, &so.CreatedAt, &so.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "sales_orders_number_key") {
			return shared.Conflict("Order number already exists")
		}
		return fmt.Errorf("insert sales order: %w", err)
	}
	return t.writeItems(ctx, so.ID, so.Items)
}

func (t *txRepo) GetForUpdate(ctx context.Context, id int64) (SalesOrder, error) {
	return getOrder(ctx, t.tx, id, " FOR UPDATE OF so")
}

func (t *txRepo) Update(ctx context.Context, so *SalesOrder) error {
	err := t.tx.QueryRow(ctx, `UPDATE sales_orders SET expected_delivery_date = $2, subtotal = $3, total_tax = $4,
total_discount = $5, grand_total = $6, notes = $7, updated_at = NOW()
WHERE id = $1
RETURNING updated_at`,
		so.ID, so.ExpectedDeliveryDate, so.Subtotal, so.TotalTax, so.TotalDiscount, so.GrandTotal, so.Notes,
	).Scan(&so.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update sales order: %w", err)
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM sales_order_items WHERE sales_order_id = $1`, so.ID); err != nil {
		return fmt.Errorf("clear sales order items: %w", err)
	}
	return t.writeItems(ctx, so.ID, so.Items)
}

func (t *txRepo) UpdateStatus(ctx context.Context, id int64, status Status) error {
	_, err := t.tx.Exec(ctx, `UPDATE sales_orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update sales order status: %w", err)
	}
	return nil
}

func (t *txRepo) Delete(ctx context.Context, id int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM sales_orders WHERE id = $1`, id); err != nil {
		if db.IsForeignKeyViolation(err) {
			return shared.Rule("Sales order has invoices and cannot be deleted")
		}
		return fmt.Errorf("delete sales order: %w", err)
	}
	return nil
}

func (t *txRepo) ApplyStock(ctx context.Context, change inventory.Change) (inventory.Movement, error) {
	return t.stock.Apply(ctx, t.tx, change)
}

func (t *txRepo) writeItems(ctx context.Context, orderID int64, items []shared.LineItem) error {
	batch := &pgx.Batch{}
	for i, it := range items {
		batch.Queue(`INSERT INTO sales_order_items (sales_order_id, line_no, product_id, quantity, unit_price, discount, tax, total)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			orderID, i+1, it.ProductID, it.Quantity, it.UnitPrice, it.Discount, it.Tax, it.Total)
	}
	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert sales order items: %w", err)
	}
	return nil
}
