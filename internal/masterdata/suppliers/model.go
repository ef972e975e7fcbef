package suppliers

import (
	"time"

	"github.com/odyssey-erp/erp-api/internal/shared"
)

const DefaultPaymentTerms = "Net 30"

// Supplier represents a supplier entity
type Supplier struct {
	ID           int64          `json:"id"`
	SupplierCode string         `json:"supplierCode"`
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone"`
	Address      shared.Address `json:"address"`
	Company      string         `json:"company"`
	TaxID        string         `json:"taxId"`
	PaymentTerms string         `json:"paymentTerms"`
	IsActive     bool           `json:"isActive"`
	CreatedBy    *int64         `json:"createdBy,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

type CreateInput struct {
	SupplierCode string         `json:"supplierCode" validate:"required"`
	Name         string         `json:"name" validate:"required,min=2,max=200"`
	Email        string         `json:"email" validate:"required,email"`
	Phone        string         `json:"phone" validate:"required"`
	Address      shared.Address `json:"address"`
	Company      string         `json:"company"`
	TaxID        string         `json:"taxId"`
	PaymentTerms string         `json:"paymentTerms"`
	IsActive     *bool          `json:"isActive"`
}

type UpdateInput struct {
	SupplierCode *string         `json:"supplierCode"`
	Name         *string         `json:"name" validate:"omitempty,min=2,max=200"`
	Email        *string         `json:"email" validate:"omitempty,email"`
	Phone        *string         `json:"phone"`
	Address      *shared.Address `json:"address"`
	Company      *string         `json:"company"`
	TaxID        *string         `json:"taxId"`
	PaymentTerms *string         `json:"paymentTerms"`
	IsActive     *bool           `json:"isActive"`
}

type ListFilters struct {
	shared.PageRequest
	IsActive *bool
}
