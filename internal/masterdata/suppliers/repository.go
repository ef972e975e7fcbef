package suppliers

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/erp-api/internal/platform/db"
	"github.com/odyssey-erp/erp-api/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Supplier, int, error)
	Get(ctx context.Context, id int64) (Supplier, error)
	Create(ctx context.Context, supplier Supplier) (Supplier, error)
	Update(ctx context.Context, id int64, supplier Supplier) (Supplier, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const selectSupplier = `SELECT id, supplier_code, name, email, phone, street, city, state, zip_code, country,
company, tax_id, payment_terms, is_active, created_by, created_at, updated_at FROM suppliers`

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.SupplierCode, &s.Name, &s.Email, &s.Phone,
		&s.Address.Street, &s.Address.City, &s.Address.State, &s.Address.ZipCode, &s.Address.Country,
		&s.Company, &s.TaxID, &s.PaymentTerms, &s.IsActive, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Supplier, int, error) {
	var cond db.Conditions
	cond.AddSearch(filters.Search, "supplier_code", "name", "email", "company")
	if filters.IsActive != nil {
		cond.Add("is_active = $%d", *filters.IsActive)
	}

	// Count
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers`+cond.Where(), cond.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count suppliers: %w", err)
	}

	page, args := cond.Page(filters.Limit, filters.Offset())
	rows, err := r.pool.Query(ctx, selectSupplier+cond.Where()+` ORDER BY created_at DESC, id DESC`+page, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	suppliers := make([]Supplier, 0)
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, 0, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Supplier, error) {
	s, err := scanSupplier(r.pool.QueryRow(ctx, selectSupplier+` WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return Supplier{}, shared.NotFound("Supplier not found")
	}
	return s, err
}

func (r *repository) Create(ctx context.Context, s Supplier) (Supplier, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO suppliers (supplier_code, name, email, phone, street, city, state, zip_code, country,
company, tax_id, payment_terms, is_active, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING id, created_at, updated_at`,
		s.SupplierCode, s.Name, s.Email, s.Phone,
		s.Address.Street, s.Address.City, s.Address.State, s.Address.ZipCode, s.Address.Country,
		s.Company, s.TaxID, s.PaymentTerms, s.IsActive, s.CreatedBy,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if db.IsUniqueViolation(err, "suppliers_code_key") {
		return Supplier{}, shared.Conflict("Supplier code already exists")
	}
	if err != nil {
		return Supplier{}, fmt.Errorf("insert supplier: %w", err)
	}
	return s, nil
}

func (r *repository) Update(ctx context.Context, id int64, s Supplier) (Supplier, error) {
	err := r.pool.QueryRow(ctx, `UPDATE suppliers SET supplier_code = $2, name = $3, email = $4, phone = $5, street = $6,
city = $7, state = $8, zip_code = $9, country = $10, company = $11, tax_id = $12, payment_terms = $13,
is_active = $14, updated_at = NOW()
WHERE id = $1
RETURNING id, created_by, created_at, updated_at`,
		id, s.SupplierCode, s.Name, s.Email, s.Phone,
		s.Address.Street, s.Address.City, s.Address.State, s.Address.ZipCode, s.Address.Country,
		s.Company, s.TaxID, s.PaymentTerms, s.IsActive,
	).Scan(&s.ID, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt)
	switch {
	case db.IsNoRows(err):
		return Supplier{}, shared.NotFound("Supplier not found")
	case db.IsUniqueViolation(err, "suppliers_code_key"):
		return Supplier{}, shared.Conflict("Supplier code already exists")
	case err != nil:
		return Supplier{}, fmt.Errorf("update supplier: %w", err)
	}
	return s, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return shared.Rule("Supplier is referenced by other documents")
	}
	if err != nil {
		return fmt.Errorf("delete supplier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("Supplier not found")
	}
	return nil
}
