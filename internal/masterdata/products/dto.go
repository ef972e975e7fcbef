package products

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/erp-api/internal/shared"
)

const (
	defaultReorderLevel = 10
	defaultUnit         = "pcs"
)

// CreateInput is the body of POST /api/products.
type CreateInput struct {
	SKU          string          `json:"sku" validate:"required"`
	Name         string          `json:"name" validate:"required,min=2,max=200"`
	Description  string          `json:"description"`
	Category     string          `json:"category" validate:"required"`
	Price        decimal.Decimal `json:"price"`
	CostPrice    decimal.Decimal `json:"costPrice"`
	Stock        int             `json:"stock" validate:"gte=0"`
	ReorderLevel *int            `json:"reorderLevel" validate:"omitempty,gte=0"`
	Unit         string          `json:"unit"`
	IsActive     *bool           `json:"isActive"`
}

// UpdateInput lists the mutable product fields. Stock changes go through the
// stock endpoint so they are recorded in the ledger.
type UpdateInput struct {
	SKU          *string          `json:"sku"`
	Name         *string          `json:"name" validate:"omitempty,min=2,max=200"`
	Description  *string          `json:"description"`
	Category     *string          `json:"category"`
	Price        *decimal.Decimal `json:"price"`
	CostPrice    *decimal.Decimal `json:"costPrice"`
	ReorderLevel *int             `json:"reorderLevel" validate:"omitempty,gte=0"`
	Unit         *string          `json:"unit"`
	IsActive     *bool            `json:"isActive"`
}

// StockInput is the body of PATCH /api/products/{id}/stock.
type StockInput struct {
	Quantity  *int   `json:"quantity" validate:"required,gte=0"`
	Operation string `json:"operation" validate:"required"`
}

// ListFilter narrows GET /api/products.
type ListFilter struct {
	shared.PageRequest
	Category string
	LowStock bool
}
