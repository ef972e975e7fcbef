package procurement

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/erp-api/internal/inventory"
	"github.com/odyssey-erp/erp-api/internal/shared"
	_ "github.com/odyssey-erp/erp-api/testing"
)

type memoryProcRepo struct {
	suppliers map[int64]bool
	products  map[int64]ProductRef
	stock     map[int64]int
	pos       map[int64]PurchaseOrder
	grns      map[int64]GRN
	movements []inventory.Movement
	nextID    int64
}

type memoryProcTx struct {
	repo *memoryProcRepo
}

func newMemoryProcRepo() *memoryProcRepo {
	return &memoryProcRepo{
		suppliers: map[int64]bool{1: true},
		products: map[int64]ProductRef{
			10: {ID: 10, SKU: "PROD-001", Name: "Laptop Dell XPS 15"},
			11: {ID: 11, SKU: "PROD-003", Name: "Wireless Mouse Logitech"},
			12: {ID: 12, SKU: "PROD-005", Name: "Monitor 27 inch 4K"},
		},
		stock: map[int64]int{10: 25, 11: 100, 12: 30},
		pos:   make(map[int64]PurchaseOrder),
		grns:  make(map[int64]GRN),
	}
}

func (r *memoryProcRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryProcTx{repo: r})
}

func (r *memoryProcRepo) ListPOs(_ context.Context, filters ListFilters) ([]PurchaseOrder, int, error) {
	var out []PurchaseOrder
	for id := r.nextID; id > 0; id-- {
		if po, ok := r.pos[id]; ok && (filters.Status == "" || string(po.Status) == filters.Status) {
			out = append(out, po)
		}
	}
	return out, len(out), nil
}

func (r *memoryProcRepo) GetPO(_ context.Context, id int64) (PurchaseOrder, error) {
	po, ok := r.pos[id]
	if !ok {
		return PurchaseOrder{}, shared.NotFound("Purchase order not found")
	}
	po.Items = append([]POLine(nil), po.Items...)
	return po, nil
}

func (r *memoryProcRepo) ListGRNs(_ context.Context, filters ListFilters) ([]GRN, int, error) {
	var out []GRN
	for id := r.nextID; id > 0; id-- {
		if g, ok := r.grns[id]; ok && (filters.Status == "" || string(g.Status) == filters.Status) {
			out = append(out, g)
		}
	}
	return out, len(out), nil
}

func (r *memoryProcRepo) GetGRN(_ context.Context, id int64) (GRN, error) {
	g, ok := r.grns[id]
	if !ok {
		return GRN{}, shared.NotFound("GRN not found")
	}
	return g, nil
}

func (t *memoryProcTx) SupplierExists(_ context.Context, id int64) (bool, error) {
	return t.repo.suppliers[id], nil
}

func (t *memoryProcTx) Product(_ context.Context, id int64) (ProductRef, error) {
	p, ok := t.repo.products[id]
	if !ok {
		return ProductRef{}, shared.NotFound("Product %d not found", id)
	}
	return p, nil
}

func (t *memoryProcTx) InsertPO(_ context.Context, po *PurchaseOrder) error {
	for _, existing := range t.repo.pos {
		if existing.PONumber == po.PONumber {
			return shared.Conflict("PO number already exists")
		}
	}
	t.repo.nextID++
	po.ID = t.repo.nextID
	po.CreatedAt = time.Now()
	t.repo.pos[po.ID] = *po
	return nil
}

func (t *memoryProcTx) GetPOForUpdate(ctx context.Context, id int64) (PurchaseOrder, error) {
	return t.repo.GetPO(ctx, id)
}

func (t *memoryProcTx) UpdatePO(_ context.Context, po *PurchaseOrder) error {
	t.repo.pos[po.ID] = *po
	return nil
}

func (t *memoryProcTx) UpdatePOReceipts(_ context.Context, po *PurchaseOrder) error {
	stored := t.repo.pos[po.ID]
	stored.Items = append([]POLine(nil), po.Items...)
	stored.Status = po.Status
	t.repo.pos[po.ID] = stored
	return nil
}

func (t *memoryProcTx) UpdatePOStatus(_ context.Context, id int64, status POStatus) error {
	po := t.repo.pos[id]
	po.Status = status
	t.repo.pos[id] = po
	return nil
}

func (t *memoryProcTx) DeletePO(_ context.Context, id int64) error {
	for _, g := range t.repo.grns {
		if g.PurchaseOrderID == id {
			return shared.Rule("Purchase order has goods received notes and cannot be deleted")
		}
	}
	delete(t.repo.pos, id)
	return nil
}

func (t *memoryProcTx) InsertGRN(_ context.Context, g *GRN) error {
	for _, existing := range t.repo.grns {
		if existing.GRNNumber == g.GRNNumber {
			return shared.Conflict("GRN number already exists")
		}
	}
	t.repo.nextID++
	g.ID = t.repo.nextID
	t.repo.grns[g.ID] = *g
	return nil
}

func (t *memoryProcTx) GetGRNForUpdate(ctx context.Context, id int64) (GRN, error) {
	return t.repo.GetGRN(ctx, id)
}

func (t *memoryProcTx) UpdateGRN(_ context.Context, g *GRN) error {
	t.repo.grns[g.ID] = *g
	return nil
}

func (t *memoryProcTx) SetGRNStatus(_ context.Context, g *GRN) error {
	t.repo.grns[g.ID] = *g
	return nil
}

func (t *memoryProcTx) DeleteGRN(_ context.Context, id int64) error {
	delete(t.repo.grns, id)
	return nil
}

func (t *memoryProcTx) ApplyStock(_ context.Context, change inventory.Change) (inventory.Movement, error) {
	before := t.repo.stock[change.ProductID]
	after, err := inventory.Apply(before, change.Op, change.Quantity)
	if err != nil {
		return inventory.Movement{}, err
	}
	t.repo.stock[change.ProductID] = after
	m := inventory.Movement{ProductID: change.ProductID, Reason: change.Reason, Reference: change.Reference,
		Quantity: after - before, StockBefore: before, StockAfter: after}
	t.repo.movements = append(t.repo.movements, m)
	return m, nil
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func createPO(t *testing.T, svc *Service) PurchaseOrder {
	t.Helper()
	po, err := svc.CreatePurchaseOrder(context.Background(), CreatePOInput{
		SupplierID: 1,
		Items: []shared.LineInput{
			{ProductID: 10, Quantity: 10, UnitPrice: dec("1200")},
			{ProductID: 11, Quantity: 50, UnitPrice: dec("30"), Tax: dec("150")},
		},
	}, 2)
	require.NoError(t, err)
	return po
}

func TestCreatePurchaseOrder(t *testing.T) {
	svc := NewService(newMemoryProcRepo(), nil)

	po := createPO(t, svc)
	require.Regexp(t, `^PO-\d{8}-[0-9A-F]{6}$`, po.PONumber)
	require.Equal(t, POStatusDraft, po.Status)
	require.True(t, po.Subtotal.Equal(dec("13500")))
	require.True(t, po.GrandTotal.Equal(dec("13650")))
	require.Equal(t, "Wireless Mouse Logitech", po.Items[1].ProductName)

	_, err := svc.CreatePurchaseOrder(context.Background(), CreatePOInput{
		SupplierID: 7,
		Items:      []shared.LineInput{{ProductID: 10, Quantity: 1}},
	}, 2)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Equal(t, "Supplier not found", err.Error())
}

func TestGRNLifecycleUpdatesPOAndStock(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	po := createPO(t, svc)

	grn, err := svc.CreateGRN(ctx, CreateGRNInput{
		PurchaseOrderID: po.ID,
		Items: []GRNLineInput{
			{ProductID: 10, ReceivedQuantity: 6, AcceptedQuantity: 5},
		},
	}, 4)
	require.NoError(t, err)
	require.Equal(t, GRNStatusPending, grn.Status)
	require.Equal(t, int64(1), grn.SupplierID)
	require.Equal(t, 10, grn.Items[0].OrderedQuantity)
	require.Equal(t, 1, grn.Items[0].RejectedQuantity)
	require.True(t, grn.TotalAmount.Equal(dec("6000")))
	require.Equal(t, 25, repo.stock[10], "stock moves on approval only")

	stored, err := svc.GetPurchaseOrder(ctx, po.ID)
	require.NoError(t, err)
	require.Equal(t, 5, stored.Items[0].ReceivedQuantity)
	require.Equal(t, POStatusPartiallyReceived, stored.Status)

	approved, err := svc.ApproveGRN(ctx, grn.ID, 4)
	require.NoError(t, err)
	require.Equal(t, GRNStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedAt)
	require.Equal(t, 30, repo.stock[10])
	require.Equal(t, inventory.ReasonGRNApproval, repo.movements[0].Reason)

	_, err = svc.ApproveGRN(ctx, grn.ID, 4)
	require.ErrorIs(t, err, shared.ErrBusinessRule)
	require.Equal(t, "GRN already approved", err.Error())
	require.Equal(t, 30, repo.stock[10])

	require.ErrorIs(t, svc.DeleteGRN(ctx, grn.ID, 1), shared.ErrBusinessRule)
	_, err = svc.UpdateGRN(ctx, grn.ID, UpdateGRNInput{}, 4)
	require.ErrorIs(t, err, shared.ErrBusinessRule)

	_, err = svc.CreateGRN(ctx, CreateGRNInput{
		PurchaseOrderID: po.ID,
		Items: []GRNLineInput{
			{ProductID: 10, ReceivedQuantity: 5, AcceptedQuantity: 5},
			{ProductID: 11, ReceivedQuantity: 50, AcceptedQuantity: 50},
		},
	}, 4)
	require.NoError(t, err)
	stored, err = svc.GetPurchaseOrder(ctx, po.ID)
	require.NoError(t, err)
	require.Equal(t, POStatusReceived, stored.Status)

	_, err = svc.CreateGRN(ctx, CreateGRNInput{
		PurchaseOrderID: po.ID,
		Items:           []GRNLineInput{{ProductID: 10, ReceivedQuantity: 1, AcceptedQuantity: 1}},
	}, 4)
	require.ErrorIs(t, err, shared.ErrBusinessRule)
}

func TestRejectAndDeleteReverseReceipts(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	po := createPO(t, svc)

	first, err := svc.CreateGRN(ctx, CreateGRNInput{
		PurchaseOrderID: po.ID,
		Items:           []GRNLineInput{{ProductID: 10, ReceivedQuantity: 4, AcceptedQuantity: 4}},
	}, 4)
	require.NoError(t, err)
	second, err := svc.CreateGRN(ctx, CreateGRNInput{
		PurchaseOrderID: po.ID,
		Items:           []GRNLineInput{{ProductID: 11, ReceivedQuantity: 10, AcceptedQuantity: 10}},
	}, 4)
	require.NoError(t, err)

	rejected, err := svc.RejectGRN(ctx, first.ID, 4)
	require.NoError(t, err)
	require.Equal(t, GRNStatusRejected, rejected.Status)
	stored, _ := svc.GetPurchaseOrder(ctx, po.ID)
	require.Equal(t, 0, stored.Items[0].ReceivedQuantity)
	require.Equal(t, POStatusPartiallyReceived, stored.Status)

	_, err = svc.RejectGRN(ctx, first.ID, 4)
	require.ErrorIs(t, err, shared.ErrBusinessRule)
	_, err = svc.ApproveGRN(ctx, first.ID, 4)
	require.ErrorIs(t, err, shared.ErrBusinessRule)

	require.NoError(t, svc.DeleteGRN(ctx, second.ID, 1))
	stored, _ = svc.GetPurchaseOrder(ctx, po.ID)
	require.Equal(t, 0, stored.Items[1].ReceivedQuantity)
	require.Equal(t, POStatusConfirmed, stored.Status)

	require.NoError(t, svc.DeleteGRN(ctx, first.ID, 1))
	stored, _ = svc.GetPurchaseOrder(ctx, po.ID)
	require.Equal(t, 0, stored.Items[0].ReceivedQuantity)
	require.Empty(t, repo.movements)
}

func TestCreateGRNValidation(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	po := createPO(t, svc)

	_, err := svc.CreateGRN(ctx, CreateGRNInput{PurchaseOrderID: 999, Items: []GRNLineInput{{ProductID: 10}}}, 4)
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.CreateGRN(ctx, CreateGRNInput{
		PurchaseOrderID: po.ID,
		Items:           []GRNLineInput{{ProductID: 10, ReceivedQuantity: 2, AcceptedQuantity: 3}},
	}, 4)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateGRN(ctx, CreateGRNInput{
		PurchaseOrderID: po.ID,
		Items:           []GRNLineInput{{ProductID: 12, ReceivedQuantity: 1, AcceptedQuantity: 1}},
	}, 4)
	require.ErrorIs(t, err, shared.ErrBusinessRule)

	_, err = svc.CreateGRN(ctx, CreateGRNInput{
		PurchaseOrderID: po.ID,
		Items:           []GRNLineInput{{ProductID: 404, ReceivedQuantity: 1, AcceptedQuantity: 1}},
	}, 4)
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.ChangePurchaseOrderStatus(ctx, po.ID, POStatusCancelled, 2)
	require.NoError(t, err)
	_, err = svc.CreateGRN(ctx, CreateGRNInput{
		PurchaseOrderID: po.ID,
		Items:           []GRNLineInput{{ProductID: 10, ReceivedQuantity: 1, AcceptedQuantity: 1}},
	}, 4)
	require.ErrorIs(t, err, shared.ErrBusinessRule)
}

func TestUpdatePurchaseOrderItemsLockedAfterReceipt(t *testing.T) {
	svc := NewService(newMemoryProcRepo(), nil)
	ctx := context.Background()
	po := createPO(t, svc)

	updated, err := svc.UpdatePurchaseOrder(ctx, po.ID, UpdatePOInput{
		Items: []shared.LineInput{{ProductID: 12, Quantity: 2, UnitPrice: dec("400")}},
	}, 2)
	require.NoError(t, err)
	require.True(t, updated.GrandTotal.Equal(dec("800")))

	_, err = svc.CreateGRN(ctx, CreateGRNInput{
		PurchaseOrderID: po.ID,
		Items:           []GRNLineInput{{ProductID: 12, ReceivedQuantity: 1, AcceptedQuantity: 1}},
	}, 4)
	require.NoError(t, err)

	_, err = svc.UpdatePurchaseOrder(ctx, po.ID, UpdatePOInput{
		Items: []shared.LineInput{{ProductID: 10, Quantity: 1, UnitPrice: dec("1")}},
	}, 2)
	require.ErrorIs(t, err, shared.ErrBusinessRule)

	notes := "call before delivery"
	updated, err = svc.UpdatePurchaseOrder(ctx, po.ID, UpdatePOInput{Notes: &notes}, 2)
	require.NoError(t, err)
	require.Equal(t, notes, updated.Notes)
}

func TestDeriveReceiptStatus(t *testing.T) {
	line := func(qty, received int) POLine {
		return POLine{LineItem: shared.LineItem{Quantity: qty}, ReceivedQuantity: received}
	}
	require.Equal(t, POStatusReceived, DeriveReceiptStatus([]POLine{line(2, 2), line(1, 3)}, POStatusSent))
	require.Equal(t, POStatusPartiallyReceived, DeriveReceiptStatus([]POLine{line(2, 1), line(1, 0)}, POStatusSent))
	require.Equal(t, POStatusSent, DeriveReceiptStatus([]POLine{line(2, 0)}, POStatusSent))
	require.Equal(t, POStatusConfirmed, DeriveReceiptStatus([]POLine{line(2, 0)}, POStatusPartiallyReceived))
}
