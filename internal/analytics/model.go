package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/erp-api/internal/masterdata/products"
)

// Overview is the payload of GET /api/dashboard/overview.
type Overview struct {
	Inventory InventorySummary `json:"inventory"`
	Customers PartySummary     `json:"customers"`
	Suppliers PartySummary     `json:"suppliers"`
	Sales     OrderSummary     `json:"sales"`
	Purchases OrderSummary     `json:"purchases"`
	Revenue   RevenueSummary   `json:"revenue"`
}

type InventorySummary struct {
	TotalProducts int `json:"totalProducts"`
	LowStockCount int `json:"lowStockCount"`
}

// PartySummary counts active customers or suppliers.
type PartySummary struct {
	Total int `json:"total"`
}

type OrderSummary struct {
	TotalOrders   int `json:"totalOrders"`
	PendingOrders int `json:"pendingOrders"`
}

type RevenueSummary struct {
	Total           decimal.Decimal `json:"total"`
	Pending         decimal.Decimal `json:"pending"`
	OverdueInvoices int             `json:"overdueInvoices"`
}

// Period selects the sales trend window.
type Period string

const (
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
	PeriodYear    Period = "year"
)

// TrendPoint is one bucket of the sales trend.
type TrendPoint struct {
	Bucket       string          `json:"bucket"`
	Year         int             `json:"year"`
	Month        int             `json:"month,omitempty"`
	Week         int             `json:"week,omitempty"`
	Day          int             `json:"day,omitempty"`
	TotalOrders  int             `json:"totalOrders"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	Start        time.Time       `json:"-"`
}

type TopProduct struct {
	ProductID     int64           `json:"product"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	TotalQuantity int             `json:"totalQuantity"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
}

type TopCustomer struct {
	CustomerID   int64           `json:"customer"`
	CustomerCode string          `json:"customerCode"`
	Name         string          `json:"name"`
	TotalOrders  int             `json:"totalOrders"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
}

// Activity kinds.
const (
	ActivitySalesOrder = "Sales Order"
	ActivityInvoice    = "Invoice"
)

// Activity is a recent sales order or invoice.
type Activity struct {
	Type      string          `json:"type"`
	Reference string          `json:"reference"`
	Customer  string          `json:"customer"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	Date      time.Time       `json:"date"`
}

// InventoryAlerts splits products at or below their reorder level.
type InventoryAlerts struct {
	LowStock   []products.Product `json:"lowStock"`
	OutOfStock []products.Product `json:"outOfStock"`
}
