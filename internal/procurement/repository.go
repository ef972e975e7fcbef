package procurement

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/erp-api/internal/inventory"
	"github.com/odyssey-erp/erp-api/internal/platform/db"
	"github.com/odyssey-erp/erp-api/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	ListPOs(ctx context.Context, filters ListFilters) ([]PurchaseOrder, int, error)
	GetPO(ctx context.Context, id int64) (PurchaseOrder, error)
	ListGRNs(ctx context.Context, filters ListFilters) ([]GRN, int, error)
	GetGRN(ctx context.Context, id int64) (GRN, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes transactional operations. Getters with ForUpdate lock
// the document row until commit.
type TxRepository interface {
	SupplierExists(ctx context.Context, id int64) (bool, error)
	Product(ctx context.Context, id int64) (ProductRef, error)

	InsertPO(ctx context.Context, po *PurchaseOrder) error
	GetPOForUpdate(ctx context.Context, id int64) (PurchaseOrder, error)
	UpdatePO(ctx context.Context, po *PurchaseOrder) error
	UpdatePOReceipts(ctx context.Context, po *PurchaseOrder) error
	UpdatePOStatus(ctx context.Context, id int64, status POStatus) error
	DeletePO(ctx context.Context, id int64) error

	InsertGRN(ctx context.Context, grn *GRN) error
	GetGRNForUpdate(ctx context.Context, id int64) (GRN, error)
	UpdateGRN(ctx context.Context, grn *GRN) error
	SetGRNStatus(ctx context.Context, grn *GRN) error
	DeleteGRN(ctx context.Context, id int64) error

	ApplyStock(ctx context.Context, change inventory.Change) (inventory.Movement, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool   *pgxpool.Pool
	ledger *inventory.Ledger
}

// NewRepository creates a repository instance.
func NewRepository(pool *pgxpool.Pool, ledger *inventory.Ledger) *Repository {
	return &Repository{pool: pool, ledger: ledger}
}

// WithTx runs fn in a transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	stock := r.ledger.Begin()
	return stock.Settle(db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx, stock: stock})
	}))
}

const poColumns = `po.id, po.po_number, po.supplier_id, s.supplier_code, s.name, po.order_date, po.expected_delivery_date,
po.subtotal, po.total_tax, po.total_discount, po.grand_total, po.status, po.notes, po.created_by, po.created_at, po.updated_at`

const poFrom = ` FROM purchase_orders po JOIN suppliers s ON s.id = po.supplier_id`

func scanPO(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := row.Scan(&po.ID, &po.PONumber, &po.SupplierID, &po.SupplierCode, &po.SupplierName,
		&po.OrderDate, &po.ExpectedDeliveryDate,
		&po.Subtotal, &po.TotalTax, &po.TotalDiscount, &po.GrandTotal,
		&po.Status, &po.Notes, &po.CreatedBy, &po.CreatedAt, &po.UpdatedAt)
	return po, err
}

// ListPOs returns a page of purchase orders, newest first.
func (r *Repository) ListPOs(ctx context.Context, filters ListFilters) ([]PurchaseOrder, int, error) {
	var cond db.Conditions
	cond.AddSearch(filters.Search, "po.po_number")
	if filters.Status != "" {
		cond.Add("po.status = $%d", filters.Status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+poFrom+cond.Where(), cond.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count purchase orders: %w", err)
	}
	page, args := cond.Page(filters.Limit, filters.Offset())
	rows, err := r.pool.Query(ctx, `SELECT `+poColumns+poFrom+cond.Where()+` ORDER BY po.created_at DESC, po.id DESC`+page, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list purchase orders: %w", err)
	}
	defer rows.Close()

	out := make([]PurchaseOrder, 0)
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, po)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range out {
		if out[i].Items, err = loadPOLines(ctx, r.pool, out[i].ID); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

// GetPO loads a purchase order with its lines.
func (r *Repository) GetPO(ctx context.Context, id int64) (PurchaseOrder, error) {
	return getPO(ctx, r.pool, id, "")
}

func getPO(ctx context.Context, q db.DBTX, id int64, lock string) (PurchaseOrder, error) {
	po, err := scanPO(q.QueryRow(ctx, `SELECT `+poColumns+poFrom+` WHERE po.id = $1`+lock, id))
	if err != nil {
		if db.IsNoRows(err) {
			return PurchaseOrder{}, shared.NotFound("Purchase order not found")
		}
		return PurchaseOrder{}, fmt.Errorf("get purchase order: %w", err)
	}
	po.Items, err = loadPOLines(ctx, q, po.ID)
	return po, err
}

func loadPOLines(ctx context.Context, q db.DBTX, poID int64) ([]POLine, error) {
	rows, err := q.Query(ctx, `SELECT i.product_id, p.sku, p.name, i.quantity, i.unit_price, i.discount, i.tax, i.total, i.received_quantity
FROM purchase_order_items i JOIN products p ON p.id = i.product_id
WHERE i.purchase_order_id = $1 ORDER BY i.line_no`, poID)
	if err != nil {
		return nil, fmt.Errorf("load purchase order lines: %w", err)
	}
	defer rows.Close()
	lines := make([]POLine, 0)
	for rows.Next() {
		var l POLine
		if err := rows.Scan(&l.ProductID, &l.ProductSKU, &l.ProductName, &l.Quantity, &l.UnitPrice,
			&l.Discount, &l.Tax, &l.Total, &l.ReceivedQuantity); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

const grnColumns = `g.id, g.grn_number, g.purchase_order_id, po.po_number, g.supplier_id, s.name, g.receipt_date, g.total_amount,
g.status, g.notes, g.received_by, g.approved_by, g.approved_at, g.created_at, g.updated_at`

const grnFrom = ` FROM grns g JOIN purchase_orders po ON po.id = g.purchase_order_id JOIN suppliers s ON s.id = g.supplier_id`

func scanGRN(row pgx.Row) (GRN, error) {
	var g GRN
	err := row.Scan(&g.ID, &g.GRNNumber, &g.PurchaseOrderID, &g.PONumber, &g.SupplierID, &g.SupplierName,
		&g.ReceiptDate, &g.TotalAmount, &g.Status, &g.Notes, &g.ReceivedBy, &g.ApprovedBy, &g.ApprovedAt,
		&g.CreatedAt, &g.UpdatedAt)
	return g, err
}

// ListGRNs returns a page of GRNs, newest first.
func (r *Repository) ListGRNs(ctx context.Context, filters ListFilters) ([]GRN, int, error) {
	var cond db.Conditions
	cond.AddSearch(filters.Search, "g.grn_number")
	if filters.Status != "" {
		cond.Add("g.status = $%d", filters.Status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+grnFrom+cond.Where(), cond.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count grns: %w", err)
	}
	page, args := cond.Page(filters.Limit, filters.Offset())
	rows, err := r.pool.Query(ctx, `SELECT `+grnColumns+grnFrom+cond.Where()+` ORDER BY g.created_at DESC, g.id DESC`+page, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list grns: %w", err)
	}
	defer rows.Close()

	out := make([]GRN, 0)
	for rows.Next() {
		g, err := scanGRN(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range out {
		if out[i].Items, err = loadGRNLines(ctx, r.pool, out[i].ID); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

// GetGRN loads a GRN with its lines.
func (r *Repository) GetGRN(ctx context.Context, id int64) (GRN, error) {
	return getGRN(ctx, r.pool, id, "")
}

func getGRN(ctx context.Context, q db.DBTX, id int64, lock string) (GRN, error) {
	g, err := scanGRN(q.QueryRow(ctx, `SELECT `+grnColumns+grnFrom+` WHERE g.id = $1`+lock, id))
	if err != nil {
		if db.IsNoRows(err) {
			return GRN{}, shared.NotFound("GRN not found")
		}
		return GRN{}, fmt.Errorf("get grn: %w", err)
	}
	g.Items, err = loadGRNLines(ctx, q, g.ID)
	return g, err
}

func loadGRNLines(ctx context.Context, q db.DBTX, grnID int64) ([]GRNLine, error) {
	rows, err := q.Query(ctx, `SELECT i.product_id, p.sku, p.name, i.ordered_quantity, i.received_quantity, i.accepted_quantity,
i.rejected_quantity, i.unit_price, i.remarks
FROM grn_items i JOIN products p ON p.id = i.product_id
WHERE i.grn_id = $1 ORDER BY i.line_no`, grnID)
	if err != nil {
		return nil, fmt.Errorf("load grn lines: %w", err)
	}
	defer rows.Close()
	lines := make([]GRNLine, 0)
	for rows.Next() {
		var l GRNLine
		if err := rows.Scan(&l.ProductID, &l.ProductSKU, &l.ProductName, &l.OrderedQuantity, &l.ReceivedQuantity,
			&l.AcceptedQuantity, &l.RejectedQuantity, &l.UnitPrice, &l.Remarks); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

type txRepo struct {
	tx    pgx.Tx
	stock *inventory.Batch
}

func (t *txRepo) SupplierExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM suppliers WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (t *txRepo) Product(ctx context.Context, id int64) (ProductRef, error) {
	var p ProductRef
	err := t.tx.QueryRow(ctx, `SELECT id, sku, name FROM products WHERE id = $1`, id).Scan(&p.ID, &p.SKU, &p.Name)
	if db.IsNoRows(err) {
		return ProductRef{}, shared.NotFound("Product %d not found", id)
	}
	return p, err
}

func (t *txRepo) InsertPO(ctx context.Context, po *PurchaseOrder) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO purchase_orders (po_number, supplier_id, order_date, expected_delivery_date,
subtotal, total_tax, total_discount, grand_total, status, notes, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id, created_at, updated_at`,
		po.PONumber, po.SupplierID, po.OrderDate, po.ExpectedDeliveryDate,
		po.Subtotal, po.TotalTax, po.TotalDiscount, po.GrandTotal, po.Status, po.Notes, po.CreatedBy,
	).Scan(&po.ID, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "purchase_orders_number_key") {
			return shared.Conflict("PO number already exists")
		}
		return fmt.Errorf("insert purchase order: %w", err)
	}
	return t.insertPOLines(ctx, po.ID, po.Items)
}

func (t *txRepo) insertPOLines(ctx context.Context, poID int64, lines []POLine) error {
	batch := &pgx.Batch{}
	for i, l := range lines {
		batch.Queue(`INSERT INTO purchase_order_items (purchase_order_id, line_no, product_id, quantity, unit_price, discount, tax, total, received_quantity)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			poID, i+1, l.ProductID, l.Quantity, l.UnitPrice, l.Discount, l.Tax, l.Total, l.ReceivedQuantity)
	}
	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert purchase order lines: %w", err)
	}
	return nil
}

func (t *txRepo) GetPOForUpdate(ctx context.Context, id int64) (PurchaseOrder, error) {
	return getPO(ctx, t.tx, id, " FOR UPDATE OF po")
}

func (t *txRepo) UpdatePO(ctx context.Context, po *PurchaseOrder) error {
	err := t.tx.QueryRow(ctx, `UPDATE purchase_orders SET expected_delivery_date = $2, subtotal = $3, total_tax = $4,
total_discount = $5, grand_total = $6, notes = $7, updated_at = NOW()
WHERE id = $1
RETURNING updated_at`,
		po.ID, po.ExpectedDeliveryDate, po.Subtotal, po.TotalTax, po.TotalDiscount, po.GrandTotal, po.Notes,
	).Scan(&po.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update purchase order: %w", err)
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM purchase_order_items WHERE purchase_order_id = $1`, po.ID); err != nil {
		return fmt.Errorf("clear purchase order lines: %w", err)
	}
	return t.insertPOLines(ctx, po.ID, po.Items)
}

func (t *txRepo) UpdatePOReceipts(ctx context.Context, po *PurchaseOrder) error {
	batch := &pgx.Batch{}
	for i, l := range po.Items {
		batch.Queue(`UPDATE purchase_order_items SET received_quantity = $3 WHERE purchase_order_id = $1 AND line_no = $2`,
			po.ID, i+1, l.ReceivedQuantity)
	}
	batch.Queue(`UPDATE purchase_orders SET status = $2, updated_at = NOW() WHERE id = $1`, po.ID, po.Status)
	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("update purchase order receipts: %w", err)
	}
	return nil
}

func (t *txRepo) UpdatePOStatus(ctx context.Context, id int64, status POStatus) error {
	if _, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, status); err != nil {
		return fmt.Errorf("update purchase order status: %w", err)
	}
	return nil
}

func (t *txRepo) DeletePO(ctx context.Context, id int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM purchase_orders WHERE id = $1`, id); err != nil {
		if db.IsForeignKeyViolation(err) {
			return shared.Rule("Purchase order has goods received notes and cannot be deleted")
		}
		return fmt.Errorf("delete purchase order: %w", err)
	}
	return nil
}

func (t *txRepo) InsertGRN(ctx context.Context, g *GRN) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO grns (grn_number, purchase_order_id, supplier_id, receipt_date, total_amount, status, notes, received_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at, updated_at`,
		g.GRNNumber, g.PurchaseOrderID, g.SupplierID, g.ReceiptDate, g.TotalAmount, g.Status, g.Notes, g.ReceivedBy,
	).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "grns_number_key") {
			return shared.Conflict("GRN number already exists")
		}
		return fmt.Errorf("insert grn: %w", err)
	}
	batch := &pgx.Batch{}
	for i, l := range g.Items {
		batch.Queue(`INSERT INTO grn_items (grn_id, line_no, product_id, ordered_quantity, received_quantity, accepted_quantity,
rejected_quantity, unit_price, remarks)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			g.ID, i+1, l.ProductID, l.OrderedQuantity, l.ReceivedQuantity, l.AcceptedQuantity, l.RejectedQuantity, l.UnitPrice, l.Remarks)
	}
	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert grn lines: %w", err)
	}
	return nil
}

func (t *txRepo) GetGRNForUpdate(ctx context.Context, id int64) (GRN, error) {
	return getGRN(ctx, t.tx, id, " FOR UPDATE OF g")
}

func (t *txRepo) UpdateGRN(ctx context.Context, g *GRN) error {
	err := t.tx.QueryRow(ctx, `UPDATE grns SET receipt_date = $2, notes = $3, updated_at = NOW() WHERE id = $1 RETURNING updated_at`,
		g.ID, g.ReceiptDate, g.Notes).Scan(&g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update grn: %w", err)
	}
	return nil
}

func (t *txRepo) SetGRNStatus(ctx context.Context, g *GRN) error {
	err := t.tx.QueryRow(ctx, `UPDATE grns SET status = $2, approved_by = $3, approved_at = $4, updated_at = NOW()
WHERE id = $1 RETURNING updated_at`,
		g.ID, g.Status, g.ApprovedBy, g.ApprovedAt).Scan(&g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update grn status: %w", err)
	}
	return nil
}

func (t *txRepo) DeleteGRN(ctx context.Context, id int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM grns WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete grn: %w", err)
	}
	return nil
}

func (t *txRepo) ApplyStock(ctx context.Context, change inventory.Change) (inventory.Movement, error) {
	return t.stock.Apply(ctx, t.tx, change)
}
