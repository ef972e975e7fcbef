package customers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/erp-api/internal/shared"
)

// Customer is a party the organisation sells to.
type Customer struct {
	ID           int64           `json:"id"`
	CustomerCode string          `json:"customerCode"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
	Address      shared.Address  `json:"address"`
	Company      string          `json:"company"`
	TaxID        string          `json:"taxId"`
	CreditLimit  decimal.Decimal `json:"creditLimit"`
	IsActive     bool            `json:"isActive"`
	CreatedBy    *int64          `json:"createdBy,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// CreateInput is the body of POST /api/customers.
type CreateInput struct {
	CustomerCode string          `json:"customerCode" validate:"required"`
	Name         string          `json:"name" validate:"required,min=2,max=200"`
	Email        string          `json:"email" validate:"required,email"`
	Phone        string          `json:"phone" validate:"required"`
	Address      shared.Address  `json:"address"`
	Company      string          `json:"company"`
	TaxID        string          `json:"taxId"`
	CreditLimit  decimal.Decimal `json:"creditLimit"`
	IsActive     *bool           `json:"isActive"`
}

// UpdateInput lists the mutable customer fields.
type UpdateInput struct {
	CustomerCode *string          `json:"customerCode"`
	Name         *string          `json:"name" validate:"omitempty,min=2,max=200"`
	Email        *string          `json:"email" validate:"omitempty,email"`
	Phone        *string          `json:"phone"`
	Address      *shared.Address  `json:"address"`
	Company      *string          `json:"company"`
	TaxID        *string          `json:"taxId"`
	CreditLimit  *decimal.Decimal `json:"creditLimit"`
	IsActive     *bool            `json:"isActive"`
}

// ListFilter narrows GET /api/customers.
type ListFilter struct {
	shared.PageRequest
	IsActive *bool
}
