package ar

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/erp-api/internal/shared"
	_ "github.com/odyssey-erp/erp-api/testing"
)

type memoryInvoiceRepo struct {
	orders   map[int64]SalesOrderRef
	invoices map[int64]Invoice
	nextID   int64
}

func newMemoryInvoiceRepo() *memoryInvoiceRepo {
	line := InvoiceLine{
		LineItem: shared.LineItem{
			ProductID:   10,
			ProductSKU:  "PROD-001",
			ProductName: "Laptop Dell XPS 15",
			Quantity:    5,
			UnitPrice:   decimal.NewFromInt(100),
			Discount:    decimal.NewFromInt(5),
			Tax:         decimal.NewFromInt(10),
			Total:       decimal.NewFromInt(495),
		},
		Description: "Laptop Dell XPS 15",
	}
	return &memoryInvoiceRepo{
		orders: map[int64]SalesOrderRef{
			1: {ID: 1, OrderNumber: "SO-20260301-AAAAAA", CustomerID: 3, Status: "Delivered", Items: []InvoiceLine{line}},
			2: {ID: 2, OrderNumber: "SO-20260301-BBBBBB", CustomerID: 3, Status: "Cancelled", Items: []InvoiceLine{line}},
		},
		invoices: make(map[int64]Invoice),
	}
}

func (m *memoryInvoiceRepo) List(_ context.Context, filter ListFilter) ([]Invoice, int, error) {
	out := make([]Invoice, 0)
	for id := m.nextID; id > 0; id-- {
		inv, ok := m.invoices[id]
		if !ok {
			continue
		}
		status := DerivePaymentStatus(inv.AmountPaid, inv.GrandTotal, inv.DueDate, filter.Now)
		if filter.PaymentStatus != "" && status != filter.PaymentStatus {
			continue
		}
		if filter.Search != "" && !strings.Contains(inv.InvoiceNumber, strings.ToUpper(filter.Search)) {
			continue
		}
		out = append(out, inv)
	}
	total := len(out)
	if offset := filter.Offset(); offset < len(out) {
		out = out[offset:]
	} else {
		out = out[:0]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (m *memoryInvoiceRepo) Aging(_ context.Context, asOf time.Time) (AgingBucket, error) {
	b := AgingBucket{AsOf: asOf}
	for _, inv := range m.invoices {
		inv.PaymentStatus = DerivePaymentStatus(inv.AmountPaid, inv.GrandTotal, inv.DueDate, asOf)
		b.Add(inv, asOf)
	}
	return b, nil
}

func (m *memoryInvoiceRepo) Get(_ context.Context, id int64) (Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, shared.NotFound("Invoice not found")
	}
	inv.Items = append([]InvoiceLine(nil), inv.Items...)
	return inv, nil
}

func (m *memoryInvoiceRepo) Stats(_ context.Context, now time.Time) (Stats, error) {
	st := Stats{TotalRevenue: decimal.Zero, PendingRevenue: decimal.Zero}
	for _, inv := range m.invoices {
		st.TotalInvoices++
		switch DerivePaymentStatus(inv.AmountPaid, inv.GrandTotal, inv.DueDate, now) {
		case StatusPaid:
			st.PaidInvoices++
			st.TotalRevenue = st.TotalRevenue.Add(inv.GrandTotal)
		case StatusUnpaid:
			st.UnpaidInvoices++
			st.PendingRevenue = st.PendingRevenue.Add(inv.BalanceDue)
		case StatusOverdue:
			st.OverdueInvoices++
			st.PendingRevenue = st.PendingRevenue.Add(inv.BalanceDue)
		default:
			st.PendingRevenue = st.PendingRevenue.Add(inv.BalanceDue)
		}
	}
	return st, nil
}

func (m *memoryInvoiceRepo) MarkOverdue(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for id, inv := range m.invoices {
		if (inv.PaymentStatus == StatusUnpaid || inv.PaymentStatus == StatusPartiallyPaid) && inv.DueDate.Before(now) {
			inv.PaymentStatus = StatusOverdue
			m.invoices[id] = inv
			n++
		}
	}
	return n, nil
}

func (m *memoryInvoiceRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryInvoiceTx{repo: m})
}

type memoryInvoiceTx struct {
	repo *memoryInvoiceRepo
}

func (t *memoryInvoiceTx) SalesOrder(_ context.Context, id int64) (SalesOrderRef, error) {
	so, ok := t.repo.orders[id]
	if !ok {
		return SalesOrderRef{}, shared.NotFound("Sales order not found")
	}
	return so, nil
}

func (t *memoryInvoiceTx) Insert(_ context.Context, inv *Invoice) error {
	for _, existing := range t.repo.invoices {
		if existing.InvoiceNumber == inv.InvoiceNumber {
			return shared.Conflict("Invoice number already exists")
		}
	}
	t.repo.nextID++
	inv.ID = t.repo.nextID
	inv.CreatedAt = time.Now()
	t.repo.invoices[inv.ID] = *inv
	return nil
}

func (t *memoryInvoiceTx) GetForUpdate(ctx context.Context, id int64) (Invoice, error) {
	return t.repo.Get(ctx, id)
}

func (t *memoryInvoiceTx) Update(_ context.Context, inv *Invoice) error {
	t.repo.invoices[inv.ID] = *inv
	return nil
}

func (t *memoryInvoiceTx) Delete(_ context.Context, id int64) error {
	delete(t.repo.invoices, id)
	return nil
}

type memoryIdempotency struct {
	keys map[string]bool
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, key, module string) error {
	if m.keys[module+"/"+key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[module+"/"+key] = true
	return nil
}

func (m *memoryIdempotency) Delete(_ context.Context, key, module string) error {
	delete(m.keys, module+"/"+key)
	return nil
}

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestService(repo *memoryInvoiceRepo) (*Service, *memoryIdempotency) {
	idem := &memoryIdempotency{keys: make(map[string]bool)}
	svc := NewService(repo, nil, idem)
	svc.now = func() time.Time { return testNow }
	return svc, idem
}

func dueIn(days int) *time.Time {
	d := testNow.AddDate(0, 0, days)
	return &d
}

func requireKind(t *testing.T, err error, kind error, msg string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, kind), err.Error())
	if msg != "" {
		require.Contains(t, err.Error(), msg)
	}
}

func TestCreateInvoiceFromSalesOrder(t *testing.T) {
	svc, _ := newTestService(newMemoryInvoiceRepo())

	inv, err := svc.Create(context.Background(), CreateInput{SalesOrderID: 1, DueDate: dueIn(30)}, 7)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(inv.InvoiceNumber, "INV-20260315-"), inv.InvoiceNumber)
	require.Equal(t, int64(3), inv.CustomerID)
	require.Equal(t, DefaultTerms, inv.Terms)
	require.Len(t, inv.Items, 1)
	require.Equal(t, "Laptop Dell XPS 15", inv.Items[0].Description)
	require.True(t, inv.GrandTotal.Equal(decimal.NewFromInt(500)), inv.GrandTotal.String())
	require.True(t, inv.BalanceDue.Equal(decimal.NewFromInt(500)))
	require.Equal(t, StatusUnpaid, inv.PaymentStatus)
	require.NotNil(t, inv.CreatedBy)

	_, err = svc.Create(context.Background(), CreateInput{InvoiceNumber: inv.InvoiceNumber, SalesOrderID: 1, DueDate: dueIn(30)}, 7)
	requireKind(t, err, shared.ErrConflict, "Invoice number already exists")
}

func TestCreateInvoiceRejections(t *testing.T) {
	svc, _ := newTestService(newMemoryInvoiceRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{SalesOrderID: 99, DueDate: dueIn(30)}, 7)
	requireKind(t, err, shared.ErrNotFound, "Sales order not found")

	_, err = svc.Create(ctx, CreateInput{SalesOrderID: 2, DueDate: dueIn(30)}, 7)
	requireKind(t, err, shared.ErrBusinessRule, "cancelled")

	_, err = svc.Create(ctx, CreateInput{SalesOrderID: 1}, 7)
	requireKind(t, err, shared.ErrValidation, "dueDate is required")

	method := PaymentMethod("Barter")
	_, err = svc.Create(ctx, CreateInput{SalesOrderID: 1, DueDate: dueIn(30), PaymentMethod: &method}, 7)
	requireKind(t, err, shared.ErrValidation, "paymentMethod")
}

func TestRecordPaymentLifecycle(t *testing.T) {
	svc, _ := newTestService(newMemoryInvoiceRepo())
	ctx := context.Background()
	inv, err := svc.Create(ctx, CreateInput{SalesOrderID: 1, DueDate: dueIn(30)}, 7)
	require.NoError(t, err)

	transfer := MethodBankTransfer
	inv, err = svc.RecordPayment(ctx, inv.ID, PaymentInput{Amount: decimal.NewFromInt(200), PaymentMethod: &transfer}, "", 7)
	require.NoError(t, err)
	require.True(t, inv.BalanceDue.Equal(decimal.NewFromInt(300)))
	require.Equal(t, StatusPartiallyPaid, inv.PaymentStatus)
	require.Equal(t, MethodBankTransfer, *inv.PaymentMethod)

	_, err = svc.RecordPayment(ctx, inv.ID, PaymentInput{Amount: decimal.NewFromInt(400)}, "", 7)
	requireKind(t, err, shared.ErrBusinessRule, "Payment amount exceeds balance due")

	_, err = svc.RecordPayment(ctx, inv.ID, PaymentInput{Amount: decimal.Zero}, "", 7)
	requireKind(t, err, shared.ErrValidation, "amount must be greater than 0")

	err = svc.Delete(ctx, inv.ID, 1)
	requireKind(t, err, shared.ErrBusinessRule, "Cannot delete invoice with payments")

	inv, err = svc.RecordPayment(ctx, inv.ID, PaymentInput{Amount: decimal.NewFromInt(300)}, "", 7)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, inv.PaymentStatus)
	require.True(t, inv.BalanceDue.IsZero())

	_, err = svc.RecordPayment(ctx, inv.ID, PaymentInput{Amount: decimal.NewFromInt(1)}, "", 7)
	requireKind(t, err, shared.ErrBusinessRule, "Invoice is already paid")

	notes := "late"
	_, err = svc.Update(ctx, inv.ID, UpdateInput{Notes: &notes}, 7)
	requireKind(t, err, shared.ErrBusinessRule, "Cannot update paid invoice")
}

func TestRecordPaymentIdempotencyKey(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc, idem := newTestService(repo)
	ctx := context.Background()
	inv, err := svc.Create(ctx, CreateInput{SalesOrderID: 1, DueDate: dueIn(30)}, 7)
	require.NoError(t, err)

	first, err := svc.RecordPayment(ctx, inv.ID, PaymentInput{Amount: decimal.NewFromInt(100)}, "pay-1", 7)
	require.NoError(t, err)
	replay, err := svc.RecordPayment(ctx, inv.ID, PaymentInput{Amount: decimal.NewFromInt(100)}, "pay-1", 7)
	require.NoError(t, err)
	require.True(t, first.AmountPaid.Equal(replay.AmountPaid))
	require.True(t, repo.invoices[inv.ID].AmountPaid.Equal(decimal.NewFromInt(100)))

	_, err = svc.RecordPayment(ctx, inv.ID, PaymentInput{Amount: decimal.NewFromInt(1000)}, "pay-2", 7)
	requireKind(t, err, shared.ErrBusinessRule, "exceeds")
	require.Len(t, idem.keys, 1)

	after, err := svc.RecordPayment(ctx, inv.ID, PaymentInput{Amount: decimal.NewFromInt(50)}, "pay-2", 7)
	require.NoError(t, err)
	require.True(t, after.AmountPaid.Equal(decimal.NewFromInt(150)))
}

func TestOverdueIsDerivedFromDueDate(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()
	inv, err := svc.Create(ctx, CreateInput{SalesOrderID: 1, DueDate: dueIn(-3)}, 7)
	require.NoError(t, err)
	require.Equal(t, StatusOverdue, inv.PaymentStatus)

	overdue, total, err := svc.List(ctx, ListFilter{PaymentStatus: StatusOverdue})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, StatusOverdue, overdue[0].PaymentStatus)

	inv, err = svc.Update(ctx, inv.ID, UpdateInput{DueDate: dueIn(10)}, 7)
	require.NoError(t, err)
	require.Equal(t, StatusUnpaid, inv.PaymentStatus)

	_, _, err = svc.List(ctx, ListFilter{PaymentStatus: "Late"})
	requireKind(t, err, shared.ErrValidation, "paymentStatus")
}

func TestSweepOverdue(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()
	_, err := svc.Create(ctx, CreateInput{SalesOrderID: 1, DueDate: dueIn(30)}, 7)
	require.NoError(t, err)

	late := repo.invoices[1]
	late.DueDate = testNow.AddDate(0, 0, -1)
	late.PaymentStatus = StatusUnpaid
	repo.invoices[1] = late

	n, err := svc.SweepOverdue(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.Equal(t, StatusOverdue, repo.invoices[1].PaymentStatus)
}

func TestStatsAndDelete(t *testing.T) {
	svc, _ := newTestService(newMemoryInvoiceRepo())
	ctx := context.Background()
	paid, err := svc.Create(ctx, CreateInput{SalesOrderID: 1, DueDate: dueIn(30)}, 7)
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, paid.ID, PaymentInput{Amount: decimal.NewFromInt(500)}, "", 7)
	require.NoError(t, err)
	open, err := svc.Create(ctx, CreateInput{SalesOrderID: 1, DueDate: dueIn(30)}, 7)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalInvoices)
	require.Equal(t, 1, stats.PaidInvoices)
	require.Equal(t, 1, stats.UnpaidInvoices)
	require.True(t, stats.TotalRevenue.Equal(decimal.NewFromInt(500)))
	require.True(t, stats.PendingRevenue.Equal(decimal.NewFromInt(500)))

	require.NoError(t, svc.Delete(ctx, open.ID, 1))
	_, err = svc.Get(ctx, open.ID)
	requireKind(t, err, shared.ErrNotFound, "Invoice not found")
}

func TestAgingCoversInvoicesBeyondExportWindow(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc, _ := newTestService(repo)

	repo.nextID = 1
	repo.invoices[1] = Invoice{
		ID:            1,
		InvoiceNumber: "INV-20250827-OLD001",
		DueDate:       testNow.AddDate(0, 0, -200),
		Totals:        shared.Totals{GrandTotal: decimal.NewFromInt(500)},
		AmountPaid:    decimal.Zero,
		BalanceDue:    decimal.NewFromInt(500),
		PaymentStatus: StatusOverdue,
	}
	for i := 0; i < exportLimit; i++ {
		repo.nextID++
		repo.invoices[repo.nextID] = Invoice{
			ID:            repo.nextID,
			DueDate:       testNow.AddDate(0, 0, -10),
			Totals:        shared.Totals{GrandTotal: decimal.NewFromInt(100)},
			AmountPaid:    decimal.NewFromInt(100),
			BalanceDue:    decimal.Zero,
			PaymentStatus: StatusPaid,
		}
	}

	page, total, err := repo.List(context.Background(), ListFilter{PageRequest: shared.PageRequest{Page: 1, Limit: exportLimit}, Now: testNow})
	require.NoError(t, err)
	require.Equal(t, exportLimit+1, total)
	require.Len(t, page, exportLimit)

	aging, err := svc.Aging(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Equal(t, testNow, aging.AsOf)
	require.True(t, aging.Over90.Equal(decimal.NewFromInt(500)), aging.Over90.String())
	require.True(t, aging.Total.Equal(decimal.NewFromInt(500)), aging.Total.String())
	require.True(t, aging.Current.IsZero())
}
