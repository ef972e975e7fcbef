package orders

import (
	"time"

	"github.com/odyssey-erp/erp-api/internal/shared"
)

// Status is the sales order lifecycle state.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusConfirmed  Status = "Confirmed"
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the order can no longer change.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// HasShipped reports whether the goods have left the warehouse.
func (s Status) HasShipped() bool {
	return s == StatusShipped || s == StatusDelivered
}

// CanMoveTo reports whether next is reachable from s. A shipped order only
// moves forward to Delivered, so stock leaves exactly once.
func (s Status) CanMoveTo(next Status) bool {
	if s == StatusShipped {
		return next == StatusShipped || next == StatusDelivered
	}
	return true
}

// DeductsStock reports whether moving from s to next ships the goods. Only a
// Confirmed order deducts stock, so repeated transitions never deduct twice.
func (s Status) DeductsStock(next Status) bool {
	return s == StatusConfirmed && (next == StatusShipped || next == StatusDelivered)
}

// SalesOrder is a customer order with priced lines.
type SalesOrder struct {
	ID                   int64             `json:"id"`
	OrderNumber          string            `json:"orderNumber"`
	CustomerID           int64             `json:"customer"`
	CustomerCode         string            `json:"customerCode,omitempty"`
	CustomerName         string            `json:"customerName,omitempty"`
	OrderDate            time.Time         `json:"orderDate"`
	ExpectedDeliveryDate *time.Time        `json:"expectedDeliveryDate,omitempty"`
	Items                []shared.LineItem `json:"items"`
	shared.Totals
	Status    Status    `json:"status"`
	Notes     string    `json:"notes"`
	CreatedBy *int64    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProductRef is the product data an order line needs.
type ProductRef struct {
	ID    int64
	SKU   string
	Name  string
	Stock int
}

type CreateInput struct {
	OrderNumber          string             `json:"orderNumber"`
	CustomerID           int64              `json:"customer" validate:"required,gt=0"`
	OrderDate            *time.Time         `json:"orderDate"`
	ExpectedDeliveryDate *time.Time         `json:"expectedDeliveryDate"`
	Items                []shared.LineInput `json:"items" validate:"required,min=1,dive"`
	Notes                string             `json:"notes"`
}

type UpdateInput struct {
	ExpectedDeliveryDate *time.Time         `json:"expectedDeliveryDate"`
	Items                []shared.LineInput `json:"items" validate:"omitempty,min=1,dive"`
	Notes                *string            `json:"notes"`
}

type StatusInput struct {
	Status Status `json:"status" validate:"required"`
}

type ListFilter struct {
	shared.PageRequest
	Status Status
}
