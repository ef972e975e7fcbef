package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the dashboard aggregate queries.
type Repository interface {
	ProductCounts(ctx context.Context) (InventorySummary, error)
	ActiveCustomers(ctx context.Context) (int, error)
	ActiveSuppliers(ctx context.Context) (int, error)
	SalesCounts(ctx context.Context) (OrderSummary, error)
	PurchaseCounts(ctx context.Context) (OrderSummary, error)
	Revenue(ctx context.Context, now time.Time) (RevenueSummary, error)
	SalesTrend(ctx context.Context, from time.Time, unit string) ([]TrendPoint, error)
	TopProducts(ctx context.Context, limit int) ([]TopProduct, error)
	TopCustomers(ctx context.Context, limit int) ([]TopCustomer, error)
	RecentSalesOrders(ctx context.Context, limit int) ([]Activity, error)
	RecentInvoices(ctx context.Context, limit int, now time.Time) ([]Activity, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) ProductCounts(ctx context.Context) (InventorySummary, error) {
	var s InventorySummary
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COUNT(*) FILTER (WHERE stock <= reorder_level) FROM products`).
		Scan(&s.TotalProducts, &s.LowStockCount)
	if err != nil {
		return InventorySummary{}, fmt.Errorf("count products: %w", err)
	}
	return s, nil
}

func (r *repository) ActiveCustomers(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers WHERE is_active`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return n, nil
}

func (r *repository) ActiveSuppliers(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers WHERE is_active`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count suppliers: %w", err)
	}
	return n, nil
}

func (r *repository) SalesCounts(ctx context.Context) (OrderSummary, error) {
	var s OrderSummary
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*),
COUNT(*) FILTER (WHERE status IN ('Pending', 'Confirmed', 'Processing'))
FROM sales_orders`).Scan(&s.TotalOrders, &s.PendingOrders)
	if err != nil {
		return OrderSummary{}, fmt.Errorf("count sales orders: %w", err)
	}
	return s, nil
}

func (r *repository) PurchaseCounts(ctx context.Context) (OrderSummary, error) {
	var s OrderSummary
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*),
COUNT(*) FILTER (WHERE status IN ('Draft', 'Sent', 'Confirmed'))
FROM purchase_orders`).Scan(&s.TotalOrders, &s.PendingOrders)
	if err != nil {
		return OrderSummary{}, fmt.Errorf("count purchase orders: %w", err)
	}
	return s, nil
}

// effectiveStatus treats unpaid invoices past their due date as Overdue.
const effectiveStatus = `(CASE WHEN payment_status <> 'Paid' AND due_date < $1 THEN 'Overdue' ELSE payment_status END)`

func (r *repository) Revenue(ctx context.Context, now time.Time) (RevenueSummary, error) {
	var s RevenueSummary
	err := r.pool.QueryRow(ctx, `SELECT
COALESCE(SUM(grand_total) FILTER (WHERE `+effectiveStatus+` = 'Paid'), 0),
COALESCE(SUM(balance_due) FILTER (WHERE `+effectiveStatus+` IN ('Unpaid', 'Partially Paid', 'Overdue')), 0),
COUNT(*) FILTER (WHERE `+effectiveStatus+` = 'Overdue')
FROM invoices`, now).Scan(&s.Total, &s.Pending, &s.OverdueInvoices)
	if err != nil {
		return RevenueSummary{}, fmt.Errorf("invoice revenue: %w", err)
	}
	return s, nil
}

func (r *repository) SalesTrend(ctx context.Context, from time.Time, unit string) ([]TrendPoint, error) {
	rows, err := r.pool.Query(ctx, `SELECT date_trunc($2::text, created_at) AS bucket, COUNT(*), COALESCE(SUM(grand_total), 0)
FROM sales_orders
WHERE created_at >= $1
GROUP BY bucket
ORDER BY bucket`, from, unit)
	if err != nil {
		return nil, fmt.Errorf("sales trend: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TrendPoint, error) {
		var pt TrendPoint
		err := row.Scan(&pt.Start, &pt.TotalOrders, &pt.TotalRevenue)
		return pt, err
	})
}

func (r *repository) TopProducts(ctx context.Context, limit int) ([]TopProduct, error) {
	rows, err := r.pool.Query(ctx, `SELECT i.product_id, p.sku, p.name, SUM(i.quantity), SUM(i.total)
FROM sales_order_items i JOIN products p ON p.id = i.product_id
GROUP BY i.product_id, p.sku, p.name
ORDER BY SUM(i.total) DESC, MIN(i.id)
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TopProduct, error) {
		var p TopProduct
		err := row.Scan(&p.ProductID, &p.SKU, &p.Name, &p.TotalQuantity, &p.TotalRevenue)
		return p, err
	})
}

func (r *repository) TopCustomers(ctx context.Context, limit int) ([]TopCustomer, error) {
	rows, err := r.pool.Query(ctx, `SELECT so.customer_id, c.customer_code, c.name, COUNT(*), SUM(so.grand_total)
FROM sales_orders so JOIN customers c ON c.id = so.customer_id
GROUP BY so.customer_id, c.customer_code, c.name
ORDER BY SUM(so.grand_total) DESC, MIN(so.id)
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("top customers: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TopCustomer, error) {
		var c TopCustomer
		err := row.Scan(&c.CustomerID, &c.CustomerCode, &c.Name, &c.TotalOrders, &c.TotalRevenue)
		return c, err
	})
}

func (r *repository) RecentSalesOrders(ctx context.Context, limit int) ([]Activity, error) {
	rows, err := r.pool.Query(ctx, `SELECT so.order_number, c.name, so.grand_total, so.status, so.created_at
FROM sales_orders so JOIN customers c ON c.id = so.customer_id
ORDER BY so.created_at DESC, so.id DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent sales orders: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Activity, error) {
		a := Activity{Type: ActivitySalesOrder}
		err := row.Scan(&a.Reference, &a.Customer, &a.Amount, &a.Status, &a.Date)
		return a, err
	})
}

func (r *repository) RecentInvoices(ctx context.Context, limit int, now time.Time) ([]Activity, error) {
	rows, err := r.pool.Query(ctx, `SELECT i.invoice_number, c.name, i.grand_total,
(CASE WHEN i.payment_status <> 'Paid' AND i.due_date < $2 THEN 'Overdue' ELSE i.payment_status END), i.created_at
FROM invoices i JOIN customers c ON c.id = i.customer_id
ORDER BY i.created_at DESC, i.id DESC
LIMIT $1`, limit, now)
	if err != nil {
		return nil, fmt.Errorf("recent invoices: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Activity, error) {
		a := Activity{Type: ActivityInvoice}
		err := row.Scan(&a.Reference, &a.Customer, &a.Amount, &a.Status, &a.Date)
		return a, err
	})
}
