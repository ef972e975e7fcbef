package ar

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/erp-api/internal/shared"
)

// PaymentStatus enumerates invoice payment states.
type PaymentStatus string

const (
	StatusUnpaid        PaymentStatus = "Unpaid"
	StatusPartiallyPaid PaymentStatus = "Partially Paid"
	StatusPaid          PaymentStatus = "Paid"
	StatusOverdue       PaymentStatus = "Overdue"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusUnpaid, StatusPartiallyPaid, StatusPaid, StatusOverdue:
		return true
	}
	return false
}

// PaymentMethod enumerates accepted payment methods.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "Cash"
	MethodCreditCard   PaymentMethod = "Credit Card"
	MethodBankTransfer PaymentMethod = "Bank Transfer"
	MethodCheck        PaymentMethod = "Check"
	MethodOther        PaymentMethod = "Other"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCreditCard, MethodBankTransfer, MethodCheck, MethodOther:
		return true
	}
	return false
}

// DefaultTerms is applied when an invoice is created without terms.
const DefaultTerms = "Payment due within 30 days"

// InvoiceLine is a priced line copied from the sales order.
type InvoiceLine struct {
	shared.LineItem
	Description string `json:"description"`
}

// Invoice model.
type Invoice struct {
	ID            int64          `json:"id"`
	InvoiceNumber string         `json:"invoiceNumber"`
	SalesOrderID  int64          `json:"salesOrder"`
	OrderNumber   string         `json:"orderNumber,omitempty"`
	CustomerID    int64          `json:"customer"`
	CustomerCode  string         `json:"customerCode,omitempty"`
	CustomerName  string         `json:"customerName,omitempty"`
	InvoiceDate   time.Time      `json:"invoiceDate"`
	DueDate       time.Time      `json:"dueDate"`
	Items         []InvoiceLine  `json:"items"`
	shared.Totals
	AmountPaid    decimal.Decimal `json:"amountPaid"`
	BalanceDue    decimal.Decimal `json:"balanceDue"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	PaymentMethod *PaymentMethod  `json:"paymentMethod,omitempty"`
	Notes         string          `json:"notes"`
	Terms         string          `json:"terms"`
	CreatedBy     *int64          `json:"createdBy,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// DerivePaymentStatus computes the status from the amounts and due date.
// Nothing paid is Unpaid, a partial amount is Partially Paid and the full
// amount is Paid. Anything not Paid after the due date is Overdue.
func DerivePaymentStatus(amountPaid, grandTotal decimal.Decimal, dueDate, now time.Time) PaymentStatus {
	var status PaymentStatus
	switch {
	case amountPaid.IsZero():
		status = StatusUnpaid
	case amountPaid.LessThan(grandTotal):
		status = StatusPartiallyPaid
	default:
		status = StatusPaid
	}
	if status != StatusPaid && dueDate.Before(now) {
		return StatusOverdue
	}
	return status
}

// Recalculate refreshes totals, balance due and payment status. It runs
// before every write and after every read.
func Recalculate(inv *Invoice, now time.Time) {
	items := make([]shared.LineItem, len(inv.Items))
	for i, l := range inv.Items {
		items[i] = l.LineItem
	}
	inv.Totals = shared.ComputeTotals(items)
	inv.BalanceDue = inv.GrandTotal.Sub(inv.AmountPaid)
	inv.PaymentStatus = DerivePaymentStatus(inv.AmountPaid, inv.GrandTotal, inv.DueDate, now)
}

// SalesOrderRef is the sales order data an invoice is built from.
type SalesOrderRef struct {
	ID          int64
	OrderNumber string
	CustomerID  int64
	Status      string
	Items       []InvoiceLine
}

// Stats summarises invoices for GET /api/invoices/stats/overview.
type Stats struct {
	TotalInvoices   int             `json:"totalInvoices"`
	PaidInvoices    int             `json:"paidInvoices"`
	UnpaidInvoices  int             `json:"unpaidInvoices"`
	OverdueInvoices int             `json:"overdueInvoices"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	PendingRevenue  decimal.Decimal `json:"pendingRevenue"`
}

// CreateInput is the body of POST /api/invoices.
type CreateInput struct {
	InvoiceNumber string         `json:"invoiceNumber"`
	SalesOrderID  int64          `json:"salesOrder" validate:"required,gt=0"`
	InvoiceDate   *time.Time     `json:"invoiceDate"`
	DueDate       *time.Time     `json:"dueDate" validate:"required"`
	PaymentMethod *PaymentMethod `json:"paymentMethod"`
	Notes         string         `json:"notes"`
	Terms         string         `json:"terms"`
}

// UpdateInput lists the mutable invoice fields.
type UpdateInput struct {
	DueDate       *time.Time     `json:"dueDate"`
	PaymentMethod *PaymentMethod `json:"paymentMethod"`
	Notes         *string        `json:"notes"`
	Terms         *string        `json:"terms"`
}

// PaymentInput is the body of PATCH /api/invoices/{id}/payment.
type PaymentInput struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod *PaymentMethod  `json:"paymentMethod"`
}

// ListFilter narrows invoice listings. Now decides which invoices count as
// overdue.
type ListFilter struct {
	shared.PageRequest
	PaymentStatus PaymentStatus
	Now           time.Time
}

// AgingBucket sums outstanding balances by days past due.
type AgingBucket struct {
	AsOf       time.Time       `json:"asOf"`
	Current    decimal.Decimal `json:"current"`
	Days1To30  decimal.Decimal `json:"days1To30"`
	Days31To60 decimal.Decimal `json:"days31To60"`
	Days61To90 decimal.Decimal `json:"days61To90"`
	Over90     decimal.Decimal `json:"over90"`
	Total      decimal.Decimal `json:"total"`
}

// Add places the invoice balance into its bucket. Paid invoices are skipped.
func (b *AgingBucket) Add(inv Invoice, asOf time.Time) {
	if inv.PaymentStatus == StatusPaid || !inv.BalanceDue.IsPositive() {
		return
	}
	days := int(asOf.Sub(inv.DueDate).Hours() / 24)
	switch {
	case days <= 0:
		b.Current = b.Current.Add(inv.BalanceDue)
	case days <= 30:
		b.Days1To30 = b.Days1To30.Add(inv.BalanceDue)
	case days <= 60:
		b.Days31To60 = b.Days31To60.Add(inv.BalanceDue)
	case days <= 90:
		b.Days61To90 = b.Days61To90.Add(inv.BalanceDue)
	default:
		b.Over90 = b.Over90.Add(inv.BalanceDue)
	}
	b.Total = b.Total.Add(inv.BalanceDue)
}
