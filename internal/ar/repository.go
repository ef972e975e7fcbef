package ar

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/erp-api/internal/platform/db"
	"github.com/odyssey-erp/erp-api/internal/shared"
)

// Repository exposes invoice persistence.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Invoice, int, error)
	Get(ctx context.Context, id int64) (Invoice, error)
	Stats(ctx context.Context, now time.Time) (Stats, error)
	Aging(ctx context.Context, asOf time.Time) (AgingBucket, error)
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository holds the transactional invoice operations.
type TxRepository interface {
	SalesOrder(ctx context.Context, id int64) (SalesOrderRef, error)
	Insert(ctx context.Context, inv *Invoice) error
	GetForUpdate(ctx context.Context, id int64) (Invoice, error)
	Update(ctx context.Context, inv *Invoice) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a pgx backed invoice repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const invoiceColumns = `i.id, i.invoice_number, i.sales_order_id, so.order_number, i.customer_id, c.customer_code, c.name,
i.invoice_date, i.due_date, i.subtotal, i.total_tax, i.total_discount, i.grand_total,
i.amount_paid, i.balance_due, i.payment_status, i.payment_method, i.notes, i.terms, i.created_by, i.created_at, i.updated_at`

const invoiceFrom = ` FROM invoices i
JOIN sales_orders so ON so.id = i.sales_order_id
JOIN customers c ON c.id = i.customer_id`

// effectiveStatus reports Overdue for unpaid invoices past due even before
// the sweep has rewritten the stored status.
const effectiveStatus = `(CASE WHEN i.payment_status <> 'Paid' AND i.due_date < $%d THEN 'Overdue' ELSE i.payment_status END)`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.SalesOrderID, &inv.OrderNumber, &inv.CustomerID,
		&inv.CustomerCode, &inv.CustomerName, &inv.InvoiceDate, &inv.DueDate,
		&inv.Subtotal, &inv.TotalTax, &inv.TotalDiscount, &inv.GrandTotal,
		&inv.AmountPaid, &inv.BalanceDue, &inv.PaymentStatus, &inv.PaymentMethod,
		&inv.Notes, &inv.Terms, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Invoice, int, error) {
	var cond db.Conditions
	cond.AddSearch(filter.Search, "i.invoice_number")
	if filter.PaymentStatus != "" {
		cond.Add(effectiveStatus+" = $%d", filter.Now, string(filter.PaymentStatus))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+invoiceFrom+cond.Where(), cond.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}
	page, args := cond.Page(filter.Limit, filter.Offset())
	rows, err := r.pool.Query(ctx, `SELECT `+invoiceColumns+invoiceFrom+cond.Where()+` ORDER BY i.created_at DESC, i.id DESC`+page, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	out := make([]Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, inv)
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

func (r *repository) Get(ctx context.Context, id int64) (Invoice, error) {
	return getInvoice(ctx, r.pool, id, "")
}

func (r *repository) Stats(ctx context.Context, now time.Time) (Stats, error) {
	status := fmt.Sprintf(effectiveStatus, 1)
	var st Stats
	err := r.pool.QueryRow(ctx, `SELECT
COUNT(*),
COUNT(*) FILTER (WHERE `+status+` = 'Paid'),
COUNT(*) FILTER (WHERE `+status+` = 'Unpaid'),
COUNT(*) FILTER (WHERE `+status+` = 'Overdue'),
COALESCE(SUM(i.grand_total) FILTER (WHERE `+status+` = 'Paid'), 0),
COALESCE(SUM(i.balance_due) FILTER (WHERE `+status+` IN ('Unpaid', 'Partially Paid', 'Overdue')), 0)
FROM invoices i`, now).Scan(&st.TotalInvoices, &st.PaidInvoices, &st.UnpaidInvoices, &st.OverdueInvoices,
		&st.TotalRevenue, &st.PendingRevenue)
	if err != nil {
		return Stats{}, fmt.Errorf("invoice stats: %w", err)
	}
	return st, nil
}

// agingDays counts whole days past due, truncated toward zero.
const agingDays = `TRUNC(EXTRACT(EPOCH FROM ($1::timestamptz - i.due_date)) / 86400)`

func (r *repository) Aging(ctx context.Context, asOf time.Time) (AgingBucket, error) {
	status := fmt.Sprintf(effectiveStatus, 1)
	b := AgingBucket{AsOf: asOf}
	err := r.pool.QueryRow(ctx, `SELECT
COALESCE(SUM(i.balance_due) FILTER (WHERE `+agingDays+` <= 0), 0),
COALESCE(SUM(i.balance_due) FILTER (WHERE `+agingDays+` BETWEEN 1 AND 30), 0),
COALESCE(SUM(i.balance_due) FILTER (WHERE `+agingDays+` BETWEEN 31 AND 60), 0),
COALESCE(SUM(i.balance_due) FILTER (WHERE `+agingDays+` BETWEEN 61 AND 90), 0),
COALESCE(SUM(i.balance_due) FILTER (WHERE `+agingDays+` > 90), 0),
COALESCE(SUM(i.balance_due), 0)
FROM invoices i
WHERE `+status+` <> 'Paid' AND i.balance_due > 0`, asOf).Scan(&b.Current, &b.Days1To30, &b.Days31To60,
		&b.Days61To90, &b.Over90, &b.Total)
	if err != nil {
		return AgingBucket{}, fmt.Errorf("invoice aging: %w", err)
	}
	return b, nil
}

func (r *repository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE invoices SET payment_status = 'Overdue', updated_at = NOW()
WHERE payment_status IN ('Unpaid', 'Partially Paid') AND due_date < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("mark overdue invoices: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func getInvoice(ctx context.Context, q db.DBTX, id int64, lock string) (Invoice, error) {
	inv, err := scanInvoice(q.QueryRow(ctx, `SELECT `+invoiceColumns+invoiceFrom+` WHERE i.id = $1`+lock, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Invoice{}, shared.NotFound("Invoice not found")
		}
		return Invoice{}, fmt.Errorf("get invoice: %w", err)
	}
	inv.Items, err = loadItems(ctx, q, inv.ID)
	return inv, err
}

func loadItems(ctx context.Context, q db.DBTX, invoiceID int64) ([]InvoiceLine, error) {
	rows, err := q.Query(ctx, `SELECT i.product_id, p.sku, p.name, i.description, i.quantity, i.unit_price, i.discount, i.tax, i.total
FROM invoice_items i JOIN products p ON p.id = i.product_id
WHERE i.invoice_id = $1 ORDER BY i.line_no`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("load invoice items: %w", err)
	}
	defer rows.Close()
	items := make([]InvoiceLine, 0)
	for rows.Next() {
		var it InvoiceLine
		if err := rows.Scan(&it.ProductID, &it.ProductSKU, &it.ProductName, &it.Description,
			&it.Quantity, &it.UnitPrice, &it.Discount, &it.Tax, &it.Total); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) SalesOrder(ctx context.Context, id int64) (SalesOrderRef, error) {
	var so SalesOrderRef
	err := t.tx.QueryRow(ctx, `SELECT id, order_number, customer_id, status FROM sales_orders WHERE id = $1`, id).
		Scan(&so.ID, &so.OrderNumber, &so.CustomerID, &so.Status)
	if err != nil {
		if db.IsNoRows(err) {
			return SalesOrderRef{}, shared.NotFound("Sales order not found")
		}
		return SalesOrderRef{}, fmt.Errorf("get sales order: %w", err)
	}
	rows, err := t.tx.Query(ctx, `SELECT i.product_id, p.sku, p.name, i.quantity, i.unit_price, i.discount, i.tax, i.total
FROM sales_order_items i JOIN products p ON p.id = i.product_id
WHERE i.sales_order_id = $1 ORDER BY i.line_no`, id)
	if err != nil {
		return SalesOrderRef{}, fmt.Errorf("load sales order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it InvoiceLine
		if err := rows.Scan(&it.ProductID, &it.ProductSKU, &it.ProductName,
			&it.Quantity, &it.UnitPrice, &it.Discount, &it.Tax, &it.Total); err != nil {
			return SalesOrderRef{}, err
		}
		it.Description = it.ProductName
		so.Items = append(so.Items, it)
	}
	return so, rows.Err()
}

func (t *txRepo) Insert(ctx context.Context, inv *Invoice) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO invoices (invoice_number, sales_order_id, customer_id, invoice_date, due_date,
subtotal, total_tax, total_discount, grand_total, amount_paid, balance_due, payment_status, payment_method, notes, terms, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
RETURNING id, created_at, updated_at`,
		inv.InvoiceNumber, inv.SalesOrderID, inv.CustomerID, inv.InvoiceDate, inv.DueDate,
		inv.Subtotal, inv.TotalTax, inv.TotalDiscount, inv.GrandTotal, inv.AmountPaid, inv.BalanceDue,
		inv.PaymentStatus, inv.PaymentMethod, inv.Notes, inv.Terms, inv.CreatedBy,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "invoices_number_key") {
			return shared.Conflict("Invoice number already exists")
		}
		return fmt.Errorf("insert invoice: %w", err)
	}

	batch := &pgx.Batch{}
	for i, it := range inv.Items {
		batch.Queue(`INSERT INTO invoice_items (invoice_id, line_no, product_id, description, quantity, unit_price, discount, tax, total)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			inv.ID, i+1, it.ProductID, it.Description, it.Quantity, it.UnitPrice, it.Discount, it.Tax, it.Total)
	}
	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert invoice items: %w", err)
	}
	return nil
}

func (t *txRepo) GetForUpdate(ctx context.Context, id int64) (Invoice, error) {
	return getInvoice(ctx, t.tx, id, " FOR UPDATE OF i")
}

func (t *txRepo) Update(ctx context.Context, inv *Invoice) error {
	err := t.tx.QueryRow(ctx, `UPDATE invoices SET due_date = $2, amount_paid = $3, balance_due = $4, payment_status = $5,
payment_method = $6, notes = $7, terms = $8, updated_at = NOW()
WHERE id = $1
RETURNING updated_at`,
		inv.ID, inv.DueDate, inv.AmountPaid, inv.BalanceDue, inv.PaymentStatus, inv.PaymentMethod, inv.Notes, inv.Terms,
	).Scan(&inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	return nil
}

func (t *txRepo) Delete(ctx context.Context, id int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	return nil
}
