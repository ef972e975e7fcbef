// Package inventory holds stock arithmetic and the stock movement ledger.
package inventory

import (
	"strings"
	"time"

	"github.com/odyssey-erp/erp-api/internal/shared"
)

// Operation is a stock change requested through PATCH /products/{id}/stock.
type Operation string

const (
	OpAdd      Operation = "add"
	OpSubtract Operation = "subtract"
	OpSet      Operation = "set"
)

// ParseOperation validates raw against the supported operations.
func ParseOperation(raw string) (Operation, error) {
	switch op := Operation(strings.ToLower(strings.TrimSpace(raw))); op {
	case OpAdd, OpSubtract, OpSet:
		return op, nil
	default:
		return "", shared.Invalid("operation must be one of [add subtract set]")
	}
}

// Reason labels why stock moved.
type Reason string

const (
	ReasonOpening       Reason = "opening"
	ReasonManual        Reason = "manual_adjustment"
	ReasonGRNApproval   Reason = "grn_approval"
	ReasonSalesShipment Reason = "sales_shipment"
)

// Movement is one row of the stock ledger. Quantity is the signed change that
// was actually applied, so a subtraction clamped at zero records less than
// was requested.
type Movement struct {
	ID          int64     `json:"id"`
	ProductID   int64     `json:"product"`
	Reason      Reason    `json:"reason"`
	Reference   string    `json:"reference,omitempty"`
	Quantity    int       `json:"quantity"`
	StockBefore int       `json:"stockBefore"`
	StockAfter  int       `json:"stockAfter"`
	ActorID     int64     `json:"actor,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Change describes a requested stock change.
type Change struct {
	ProductID int64
	Op        Operation
	Quantity  int
	Reason    Reason
	Reference string
	ActorID   int64
}

// Apply computes the new stock level. Subtraction floors at zero and
// quantities must not be negative.
func Apply(current int, op Operation, qty int) (int, error) {
	if qty < 0 {
		return current, shared.Invalid("quantity must not be negative")
	}
	switch op {
	case OpAdd:
		return current + qty, nil
	case OpSubtract:
		return max(current-qty, 0), nil
	case OpSet:
		return qty, nil
	default:
		return current, shared.Invalid("operation must be one of [add subtract set]")
	}
}
