package procurement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/erp-api/internal/shared"
)

// POStatus enumerates purchase order states.
type POStatus string

const (
	POStatusDraft             POStatus = "Draft"
	POStatusSent              POStatus = "Sent"
	POStatusConfirmed         POStatus = "Confirmed"
	POStatusPartiallyReceived POStatus = "Partially Received"
	POStatusReceived          POStatus = "Received"
	POStatusCancelled         POStatus = "Cancelled"
)

// Valid reports whether s is a known purchase order status.
func (s POStatus) Valid() bool {
	switch s {
	case POStatusDraft, POStatusSent, POStatusConfirmed, POStatusPartiallyReceived, POStatusReceived, POStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the order accepts no further edits.
func (s POStatus) Terminal() bool {
	return s == POStatusReceived || s == POStatusCancelled
}

// GRNStatus enumerates goods received note states.
type GRNStatus string

const (
	GRNStatusPending  GRNStatus = "Pending"
	GRNStatusApproved GRNStatus = "Approved"
	GRNStatusRejected GRNStatus = "Rejected"
)

func (s GRNStatus) Valid() bool {
	return s == GRNStatusPending || s == GRNStatusApproved || s == GRNStatusRejected
}

// POLine is a purchase order line with its running received quantity.
type POLine struct {
	shared.LineItem
	ReceivedQuantity int `json:"receivedQuantity"`
}

// PurchaseOrder represents a purchase order header and its lines.
type PurchaseOrder struct {
	ID                   int64      `json:"id"`
	PONumber             string     `json:"poNumber"`
	SupplierID           int64      `json:"supplier"`
	SupplierCode         string     `json:"supplierCode,omitempty"`
	SupplierName         string     `json:"supplierName,omitempty"`
	OrderDate            time.Time  `json:"orderDate"`
	ExpectedDeliveryDate *time.Time `json:"expectedDeliveryDate,omitempty"`
	Items                []POLine   `json:"items"`
	shared.Totals
	Status    POStatus  `json:"status"`
	Notes     string    `json:"notes"`
	CreatedBy *int64    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Recompute refreshes the document totals from the lines.
func (po *PurchaseOrder) Recompute() {
	items := make([]shared.LineItem, len(po.Items))
	for i, l := range po.Items {
		items[i] = l.LineItem
	}
	po.Totals = shared.ComputeTotals(items)
}

// HasReceipts reports whether any line has received goods.
func (po *PurchaseOrder) HasReceipts() bool {
	for _, l := range po.Items {
		if l.ReceivedQuantity > 0 {
			return true
		}
	}
	return false
}

// lineFor returns the index of the first line for productID, or -1.
func (po *PurchaseOrder) lineFor(productID int64) int {
	for i, l := range po.Items {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

// DeriveReceiptStatus returns the status implied by the received quantities.
// Every line received in full gives Received and any receipt gives Partially
// Received. A receiving status with nothing received falls back to Confirmed;
// other statuses are kept.
func DeriveReceiptStatus(lines []POLine, current POStatus) POStatus {
	if len(lines) == 0 {
		return current
	}
	all, some := true, false
	for _, l := range lines {
		if l.ReceivedQuantity < l.Quantity {
			all = false
		}
		if l.ReceivedQuantity > 0 {
			some = true
		}
	}
	switch {
	case all:
		return POStatusReceived
	case some:
		return POStatusPartiallyReceived
	case current == POStatusReceived || current == POStatusPartiallyReceived:
		return POStatusConfirmed
	default:
		return current
	}
}

// GRNLine records quantities received against one purchase order product.
type GRNLine struct {
	ProductID        int64           `json:"product"`
	ProductSKU       string          `json:"productSku,omitempty"`
	ProductName      string          `json:"productName,omitempty"`
	OrderedQuantity  int             `json:"orderedQuantity"`
	ReceivedQuantity int             `json:"receivedQuantity"`
	AcceptedQuantity int             `json:"acceptedQuantity"`
	RejectedQuantity int             `json:"rejectedQuantity"`
	UnitPrice        decimal.Decimal `json:"unitPrice"`
	Remarks          string          `json:"remarks"`
}

// GRN is a goods received note.
type GRN struct {
	ID              int64           `json:"id"`
	GRNNumber       string          `json:"grnNumber"`
	PurchaseOrderID int64           `json:"purchaseOrder"`
	PONumber        string          `json:"poNumber,omitempty"`
	SupplierID      int64           `json:"supplier"`
	SupplierName    string          `json:"supplierName,omitempty"`
	ReceiptDate     time.Time       `json:"receiptDate"`
	Items           []GRNLine       `json:"items"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Status          GRNStatus       `json:"status"`
	Notes           string          `json:"notes"`
	ReceivedBy      *int64          `json:"receivedBy,omitempty"`
	ApprovedBy      *int64          `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time      `json:"approvedAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// GRNTotal is Σ acceptedQuantity × unitPrice.
func GRNTotal(lines []GRNLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.AcceptedQuantity))))
	}
	return total.Round(2)
}

// ProductRef is the product data a document line needs.
type ProductRef struct {
	ID   int64
	SKU  string
	Name string
}

// CreatePOInput is the body of POST /api/purchase-orders.
type CreatePOInput struct {
	PONumber             string             `json:"poNumber"`
	SupplierID           int64              `json:"supplier" validate:"required,gt=0"`
	OrderDate            *time.Time         `json:"orderDate"`
	ExpectedDeliveryDate *time.Time         `json:"expectedDeliveryDate"`
	Items                []shared.LineInput `json:"items" validate:"required,min=1,dive"`
	Notes                string             `json:"notes"`
}

// UpdatePOInput lists the mutable purchase order fields.
type UpdatePOInput struct {
	ExpectedDeliveryDate *time.Time         `json:"expectedDeliveryDate"`
	Items                []shared.LineInput `json:"items" validate:"omitempty,min=1,dive"`
	Notes                *string            `json:"notes"`
}

type POStatusInput struct {
	Status POStatus `json:"status" validate:"required"`
}

// GRNLineInput is one received line. Ordered quantity and unit price default
// to the purchase order line.
type GRNLineInput struct {
	ProductID        int64            `json:"product" validate:"required,gt=0"`
	OrderedQuantity  *int             `json:"orderedQuantity" validate:"omitempty,gte=0"`
	ReceivedQuantity int              `json:"receivedQuantity" validate:"gte=0"`
	AcceptedQuantity int              `json:"acceptedQuantity" validate:"gte=0"`
	RejectedQuantity *int             `json:"rejectedQuantity" validate:"omitempty,gte=0"`
	UnitPrice        *decimal.Decimal `json:"unitPrice"`
	Remarks          string           `json:"remarks"`
}

// CreateGRNInput is the body of POST /api/grns.
type CreateGRNInput struct {
	GRNNumber       string         `json:"grnNumber"`
	PurchaseOrderID int64          `json:"purchaseOrder" validate:"required,gt=0"`
	ReceiptDate     *time.Time     `json:"receiptDate"`
	Items           []GRNLineInput `json:"items" validate:"required,min=1,dive"`
	Notes           string         `json:"notes"`
}

// UpdateGRNInput lists the mutable GRN fields.
type UpdateGRNInput struct {
	ReceiptDate *time.Time `json:"receiptDate"`
	Notes       *string    `json:"notes"`
}

// ListFilters narrows list endpoints.
type ListFilters struct {
	shared.PageRequest
	Status string
}
