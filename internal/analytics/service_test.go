package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/erp-api/internal/masterdata/products"
	"github.com/odyssey-erp/erp-api/internal/rbac"
	"github.com/odyssey-erp/erp-api/internal/shared"
	_ "github.com/odyssey-erp/erp-api/testing"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type stubRepo struct {
	revenueErr error
	trendFrom  time.Time
	trendUnit  string
	trend      []TrendPoint
	lastLimit  int
	orders     []Activity
	invoices   []Activity
}

func (s *stubRepo) ProductCounts(context.Context) (InventorySummary, error) {
	return InventorySummary{TotalProducts: 5, LowStockCount: 1}, nil
}

func (s *stubRepo) ActiveCustomers(context.Context) (int, error) { return 3, nil }

func (s *stubRepo) ActiveSuppliers(context.Context) (int, error) { return 2, nil }

func (s *stubRepo) SalesCounts(context.Context) (OrderSummary, error) {
	return OrderSummary{TotalOrders: 8, PendingOrders: 3}, nil
}

func (s *stubRepo) PurchaseCounts(context.Context) (OrderSummary, error) {
	return OrderSummary{TotalOrders: 4, PendingOrders: 1}, nil
}

func (s *stubRepo) Revenue(context.Context, time.Time) (RevenueSummary, error) {
	if s.revenueErr != nil {
		return RevenueSummary{}, s.revenueErr
	}
	return RevenueSummary{Total: decimal.NewFromInt(1500), Pending: decimal.NewFromInt(300), OverdueInvoices: 1}, nil
}

func (s *stubRepo) SalesTrend(_ context.Context, from time.Time, unit string) ([]TrendPoint, error) {
	s.trendFrom, s.trendUnit = from, unit
	return s.trend, nil
}

func (s *stubRepo) TopProducts(_ context.Context, limit int) ([]TopProduct, error) {
	s.lastLimit = limit
	return []TopProduct{}, nil
}

func (s *stubRepo) TopCustomers(_ context.Context, limit int) ([]TopCustomer, error) {
	s.lastLimit = limit
	return []TopCustomer{}, nil
}

func (s *stubRepo) RecentSalesOrders(context.Context, int) ([]Activity, error) { return s.orders, nil }

func (s *stubRepo) RecentInvoices(context.Context, int, time.Time) ([]Activity, error) {
	return s.invoices, nil
}

type stubStock []products.Product

func (s stubStock) LowStock(context.Context) ([]products.Product, error) { return s, nil }

func newTestService(repo *stubRepo, stock StockSource) *Service {
	svc := NewService(repo, stock)
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestOverviewCombinesCounters(t *testing.T) {
	svc := newTestService(&stubRepo{}, stubStock{})
	out, err := svc.Overview(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, out.Inventory.TotalProducts)
	require.Equal(t, 1, out.Inventory.LowStockCount)
	require.Equal(t, 3, out.Customers.Total)
	require.Equal(t, 2, out.Suppliers.Total)
	require.Equal(t, OrderSummary{TotalOrders: 8, PendingOrders: 3}, out.Sales)
	require.Equal(t, OrderSummary{TotalOrders: 4, PendingOrders: 1}, out.Purchases)
	require.True(t, out.Revenue.Total.Equal(decimal.NewFromInt(1500)))
	require.Equal(t, 1, out.Revenue.OverdueInvoices)
}

func TestOverviewPropagatesErrors(t *testing.T) {
	boom := errors.New("db down")
	svc := newTestService(&stubRepo{revenueErr: boom}, stubStock{})
	_, err := svc.Overview(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestSalesTrendsWindows(t *testing.T) {
	repo := &stubRepo{trend: []TrendPoint{{Start: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), TotalOrders: 2}}}
	svc := newTestService(repo, stubStock{})

	points, err := svc.SalesTrends(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "day", repo.trendUnit)
	require.Equal(t, testNow.AddDate(0, -1, 0), repo.trendFrom)
	require.Equal(t, "2026-03-09", points[0].Bucket)
	require.Equal(t, 9, points[0].Day)

	repo.trend = []TrendPoint{{Start: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)}}
	points, err = svc.SalesTrends(context.Background(), PeriodQuarter)
	require.NoError(t, err)
	require.Equal(t, "week", repo.trendUnit)
	require.Equal(t, "2026-W11", points[0].Bucket)
	require.Equal(t, 11, points[0].Week)

	repo.trend = []TrendPoint{{Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}}
	points, err = svc.SalesTrends(context.Background(), PeriodYear)
	require.NoError(t, err)
	require.Equal(t, "month", repo.trendUnit)
	require.Equal(t, "2026-03", points[0].Bucket)

	_, err = svc.SalesTrends(context.Background(), "decade")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestTopLimitsAreClamped(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(repo, stubStock{})

	_, err := svc.TopProducts(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, 10, repo.lastLimit)

	_, err = svc.TopCustomers(context.Background(), 500)
	require.NoError(t, err)
	require.Equal(t, 100, repo.lastLimit)
}

func TestRecentActivitiesMergesNewestFirst(t *testing.T) {
	at := func(h int) time.Time { return testNow.Add(-time.Duration(h) * time.Hour) }
	repo := &stubRepo{
		orders: []Activity{
			{Type: ActivitySalesOrder, Reference: "SO-3", Date: at(1)},
			{Type: ActivitySalesOrder, Reference: "SO-2", Date: at(5)},
		},
		invoices: []Activity{
			{Type: ActivityInvoice, Reference: "INV-2", Date: at(2)},
			{Type: ActivityInvoice, Reference: "INV-1", Date: at(9)},
		},
	}
	svc := newTestService(repo, stubStock{})

	out, err := svc.RecentActivities(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, "SO-3", out[0].Reference)
	require.Equal(t, "INV-2", out[1].Reference)
	require.Equal(t, "SO-2", out[2].Reference)
}

func TestInventoryAlertsSplit(t *testing.T) {
	stock := stubStock{
		{ID: 1, SKU: "PROD-004", Stock: 0, ReorderLevel: 5},
		{ID: 2, SKU: "PROD-005", Stock: 8, ReorderLevel: 10},
	}
	svc := newTestService(&stubRepo{}, stock)

	alerts, err := svc.InventoryAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts.OutOfStock, 1)
	require.Equal(t, "PROD-004", alerts.OutOfStock[0].SKU)
	require.Len(t, alerts.LowStock, 1)
	require.Equal(t, "PROD-005", alerts.LowStock[0].SKU)
}

func TestDashboardRequiresAuthentication(t *testing.T) {
	h := NewHandler(nil, newTestService(&stubRepo{}, stubStock{}), rbac.Middleware{})
	r := chi.NewRouter()
	r.Route("/api/dashboard", h.MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard/overview", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/overview", nil)
	req = req.WithContext(shared.ContextWithIdentity(req.Context(), &shared.Identity{UserID: 2, Role: shared.RoleInventory}))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var out Overview
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	require.Equal(t, 5, out.Inventory.TotalProducts)
}
