package analytics

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/erp-api/internal/masterdata/products"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// StockSource lists products at or below their reorder level, lowest stock
// first.
type StockSource interface {
	LowStock(ctx context.Context) ([]products.Product, error)
}

// Service computes dashboard rollups. Every call reads current data.
type Service struct {
	repo  Repository
	stock StockSource
	now   func() time.Time
}

func NewService(repo Repository, stock StockSource) *Service {
	return &Service{repo: repo, stock: stock, now: time.Now}
}

// Overview runs the independent counters concurrently.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	var out Overview
	now := s.now()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		inv, err := s.repo.ProductCounts(ctx)
		out.Inventory = inv
		return err
	})
	g.Go(func() error {
		n, err := s.repo.ActiveCustomers(ctx)
		out.Customers.Total = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.ActiveSuppliers(ctx)
		out.Suppliers.Total = n
		return err
	})
	g.Go(func() error {
		sales, err := s.repo.SalesCounts(ctx)
		out.Sales = sales
		return err
	})
	g.Go(func() error {
		purchases, err := s.repo.PurchaseCounts(ctx)
		out.Purchases = purchases
		return err
	})
	g.Go(func() error {
		rev, err := s.repo.Revenue(ctx, now)
		out.Revenue = rev
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return out, nil
}

// SalesTrends buckets sales orders created within the period window. An
// empty period means month.
func (s *Service) SalesTrends(ctx context.Context, period Period) ([]TrendPoint, error) {
	if period == "" {
		period = PeriodMonth
	}
	from, unit, err := period.Window(s.now())
	if err != nil {
		return nil, err
	}
	points, err := s.repo.SalesTrend(ctx, from, unit)
	if err != nil {
		return nil, err
	}
	for i := range points {
		label(&points[i], unit)
	}
	return points, nil
}

func (s *Service) TopProducts(ctx context.Context, limit int) ([]TopProduct, error) {
	return s.repo.TopProducts(ctx, clampLimit(limit))
}

func (s *Service) TopCustomers(ctx context.Context, limit int) ([]TopCustomer, error) {
	return s.repo.TopCustomers(ctx, clampLimit(limit))
}

// RecentActivities merges the latest sales orders and invoices, newest first.
func (s *Service) RecentActivities(ctx context.Context, limit int) ([]Activity, error) {
	limit = clampLimit(limit)
	var orders, invoices []Activity

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = s.repo.RecentSalesOrders(gctx, limit)
		return err
	})
	g.Go(func() error {
		var err error
		invoices, err = s.repo.RecentInvoices(gctx, limit, s.now())
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Activity, 0, len(orders)+len(invoices))
	out = append(out, orders...)
	out = append(out, invoices...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// InventoryAlerts separates out-of-stock products from those merely at or
// below their reorder level.
func (s *Service) InventoryAlerts(ctx context.Context) (InventoryAlerts, error) {
	items, err := s.stock.LowStock(ctx)
	if err != nil {
		return InventoryAlerts{}, err
	}
	alerts := InventoryAlerts{
		LowStock:   make([]products.Product, 0),
		OutOfStock: make([]products.Product, 0),
	}
	for _, p := range items {
		if p.Stock == 0 {
			alerts.OutOfStock = append(alerts.OutOfStock, p)
		} else {
			alerts.LowStock = append(alerts.LowStock, p)
		}
	}
	return alerts, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
