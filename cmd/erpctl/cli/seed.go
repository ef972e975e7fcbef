package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/erp-api/internal/auth"
	"github.com/odyssey-erp/erp-api/internal/platform/db"
	"github.com/odyssey-erp/erp-api/internal/shared"
)

// Execer runs a single statement. *pgxpool.Pool and pgx.Tx satisfy it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type seedUser struct {
	Name, Email, Password string
	Role                  shared.Role
}

type seedProduct struct {
	SKU, Name, Description, Category string
	Price, CostPrice                 int64
	Stock, ReorderLevel              int
}

type seedParty struct {
	Code, Name, Email, Phone string
	Street, City, State, Zip string
	CreditLimit              int64
	PaymentTerms             string
}

var seedUsers = []seedUser{
	{"Admin User", "admin@erp.com", "admin123", shared.RoleAdmin},
	{"Sales Manager", "sales@erp.com", "sales123", shared.RoleSales},
	{"Purchase Manager", "purchase@erp.com", "purchase123", shared.RolePurchase},
	{"Inventory Manager", "inventory@erp.com", "inventory123", shared.RoleInventory},
}

var seedProducts = []seedProduct{
	{"PROD-001", "Laptop Dell XPS 15", "High-performance laptop for professionals", "Electronics", 1500, 1200, 25, 10},
	{"PROD-002", "Office Chair Ergonomic", "Comfortable ergonomic office chair", "Furniture", 350, 250, 50, 15},
	{"PROD-003", "Wireless Mouse Logitech", "Wireless mouse with precision tracking", "Electronics", 45, 30, 100, 20},
	{"PROD-004", "Standing Desk", "Adjustable height standing desk", "Furniture", 650, 450, 8, 5},
	{"PROD-005", "Monitor 27 inch 4K", "27 inch 4K resolution monitor", "Electronics", 550, 400, 30, 10},
}

var seedCustomers = []seedParty{
	{Code: "CUST-001", Name: "Tech Solutions Inc", Email: "contact@techsolutions.com", Phone: "+1-555-0101", Street: "123 Tech Street", City: "San Francisco", State: "CA", Zip: "94102", CreditLimit: 50000},
	{Code: "CUST-002", Name: "Global Enterprises", Email: "info@globalent.com", Phone: "+1-555-0102", Street: "456 Business Ave", City: "New York", State: "NY", Zip: "10001", CreditLimit: 75000},
	{Code: "CUST-003", Name: "Startup Hub", Email: "hello@startuphub.com", Phone: "+1-555-0103", Street: "789 Innovation Blvd", City: "Austin", State: "TX", Zip: "73301", CreditLimit: 30000},
}

var seedSuppliers = []seedParty{
	{Code: "SUP-001", Name: "Dell Corporation", Email: "orders@dell.com", Phone: "+1-800-555-0001", Street: "1 Dell Way", City: "Round Rock", State: "TX", Zip: "78682", PaymentTerms: "Net 30"},
	{Code: "SUP-002", Name: "Office Furniture Co", Email: "sales@officefurniture.com", Phone: "+1-800-555-0002", Street: "200 Furniture Lane", City: "Chicago", State: "IL", Zip: "60601", PaymentTerms: "Net 45"},
	{Code: "SUP-003", Name: "Electronics Wholesale", Email: "wholesale@electronics.com", Phone: "+1-800-555-0003", Street: "300 Tech Park", City: "Seattle", State: "WA", Zip: "98101", PaymentTerms: "Net 30"},
}

// SeedReport counts rows inserted per table. Rows that already existed are
// not counted.
type SeedReport struct {
	Users     int64
	Products  int64
	Customers int64
	Suppliers int64
}

// Seeder inserts the demo dataset.
type Seeder struct {
	Hash func(password string) (string, error)
}

// Run inserts every seed row, leaving existing rows untouched.
func (s Seeder) Run(ctx context.Context, q Execer) (SeedReport, error) {
	var report SeedReport
	for _, u := range seedUsers {
		hash, err := s.Hash(u.Password)
		if err != nil {
			return report, err
		}
		tag, err := q.Exec(ctx, `INSERT INTO users (name, email, password_hash, role)
			VALUES ($1, $2, $3, $4) ON CONFLICT (email) DO NOTHING`,
			u.Name, u.Email, hash, string(u.Role))
		if err != nil {
			return report, fmt.Errorf("seed user %s: %w", u.Email, err)
		}
		report.Users += tag.RowsAffected()
	}
	for _, p := range seedProducts {
		tag, err := q.Exec(ctx, `INSERT INTO products (sku, name, description, category, price, cost_price, stock, reorder_level, unit)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pcs') ON CONFLICT (sku) DO NOTHING`,
			p.SKU, p.Name, p.Description, p.Category,
			decimal.NewFromInt(p.Price), decimal.NewFromInt(p.CostPrice), p.Stock, p.ReorderLevel)
		if err != nil {
			return report, fmt.Errorf("seed product %s: %w", p.SKU, err)
		}
		report.Products += tag.RowsAffected()
	}
	for _, c := range seedCustomers {
		tag, err := q.Exec(ctx, `INSERT INTO customers (customer_code, name, email, phone, street, city, state, zip_code, country, company, credit_limit)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'USA', $2, $9) ON CONFLICT (customer_code) DO NOTHING`,
			c.Code, c.Name, c.Email, c.Phone, c.Street, c.City, c.State, c.Zip, decimal.NewFromInt(c.CreditLimit))
		if err != nil {
			return report, fmt.Errorf("seed customer %s: %w", c.Code, err)
		}
		report.Customers += tag.RowsAffected()
	}
	for _, sp := range seedSuppliers {
		tag, err := q.Exec(ctx, `INSERT INTO suppliers (supplier_code, name, email, phone, street, city, state, zip_code, country, company, payment_terms)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'USA', $2, $9) ON CONFLICT (supplier_code) DO NOTHING`,
			sp.Code, sp.Name, sp.Email, sp.Phone, sp.Street, sp.City, sp.State, sp.Zip, sp.PaymentTerms)
		if err != nil {
			return report, fmt.Errorf("seed supplier %s: %w", sp.Code, err)
		}
		report.Suppliers += tag.RowsAffected()
	}
	return report, nil
}

func newSeedCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert demo users, products, customers and suppliers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := db.New(ctx, e.cfg.PGDSN, db.PoolOptions{MaxConns: 2})
			if err != nil {
				return err
			}
			defer pool.Close()

			seeder := Seeder{Hash: auth.NewService(nil, nil).HashPassword}
			var report SeedReport
			err = db.WithTx(ctx, pool, func(tx pgx.Tx) error {
				var err error
				report, err = seeder.Run(ctx, tx)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded users=%d products=%d customers=%d suppliers=%d\n",
				report.Users, report.Products, report.Customers, report.Suppliers)
			return nil
		},
	}
}
