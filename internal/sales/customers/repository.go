package customers

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/erp-api/internal/platform/db"
	"github.com/odyssey-erp/erp-api/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Customer, int, error)
	Get(ctx context.Context, id int64) (Customer, error)
	Create(ctx context.Context, c *Customer) error
	Update(ctx context.Context, c *Customer) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const customerColumns = `id, customer_code, name, email, phone, street, city, state, zip_code, country, company, tax_id, credit_limit, is_active, created_by, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.CustomerCode, &c.Name, &c.Email, &c.Phone,
		&c.Address.Street, &c.Address.City, &c.Address.State, &c.Address.ZipCode, &c.Address.Country,
		&c.Company, &c.TaxID, &c.CreditLimit, &c.IsActive, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Customer, int, error) {
	var cond db.Conditions
	cond.AddSearch(filter.Search, "customer_code", "name", "email", "company")
	if filter.IsActive != nil {
		cond.Add("is_active = $%d", *filter.IsActive)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers`+cond.Where(), cond.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}
	page, args := cond.Page(filter.Limit, filter.Offset())
	rows, err := r.pool.Query(ctx, `SELECT `+customerColumns+` FROM customers`+cond.Where()+` ORDER BY created_at DESC, id DESC`+page, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	items := make([]Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Customer, error) {
	c, err := scanCustomer(r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Customer{}, shared.NotFound("Customer not found")
		}
		return Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (r *repository) Create(ctx context.Context, c *Customer) error {
	err := r.pool.QueryRow(ctx, `INSERT INTO customers (customer_code, name, email, phone, street, city, state, zip_code, country, company, tax_id, credit_limit, is_active, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING id, created_at, updated_at`,
		c.CustomerCode, c.Name, c.Email, c.Phone,
		c.Address.Street, c.Address.City, c.Address.State, c.Address.ZipCode, c.Address.Country,
		c.Company, c.TaxID, c.CreditLimit, c.IsActive, c.CreatedBy,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "customers_code_key") {
			return shared.Conflict("Customer code already exists")
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

func (r *repository) Update(ctx context.Context, c *Customer) error {
	err := r.pool.QueryRow(ctx, `UPDATE customers SET customer_code = $2, name = $3, email = $4, phone = $5, street = $6, city = $7,
state = $8, zip_code = $9, country = $10, company = $11, tax_id = $12, credit_limit = $13, is_active = $14, updated_at = NOW()
WHERE id = $1
RETURNING updated_at`,
		c.ID, c.CustomerCode, c.Name, c.Email, c.Phone,
		c.Address.Street, c.Address.City, c.Address.State, c.Address.ZipCode, c.Address.Country,
		c.Company, c.TaxID, c.CreditLimit, c.IsActive,
	).Scan(&c.UpdatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return shared.NotFound("Customer not found")
		}
		if db.IsUniqueViolation(err, "customers_code_key") {
			return shared.Conflict("Customer code already exists")
		}
		return fmt.Errorf("update customer: %w", err)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return shared.Rule("Customer is referenced by other documents")
		}
		return fmt.Errorf("delete customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("Customer not found")
	}
	return nil
}
