package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a product entity.
type Product struct {
	ID           int64           `json:"id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	Price        decimal.Decimal `json:"price"`
	CostPrice    decimal.Decimal `json:"costPrice"`
	Stock        int             `json:"stock"`
	ReorderLevel int             `json:"reorderLevel"`
	Unit         string          `json:"unit"`
	IsActive     bool            `json:"isActive"`
	NeedsReorder bool            `json:"needsReorder"`
	CreatedBy    *int64          `json:"createdBy,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Derive refreshes fields computed from stored columns.
func (p *Product) Derive() {
	p.NeedsReorder = p.Stock <= p.ReorderLevel
}
