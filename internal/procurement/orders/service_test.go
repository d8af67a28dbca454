package orders

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/ledger"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/masterdata/suppliers"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/platform/httpx"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/procurement/indents"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/shared"
)

type memoryPORepo struct {
	orders map[int64]*PurchaseOrder
	nextID int64
}

func newMemoryPORepo() *memoryPORepo {
	return &memoryPORepo{orders: make(map[int64]*PurchaseOrder)}
}

func (m *memoryPORepo) Create(_ context.Context, po *PurchaseOrder) (int64, error) {
	m.nextID++
	stored := *po
	stored.ID = m.nextID
	m.orders[stored.ID] = &stored
	return stored.ID, nil
}

func (m *memoryPORepo) Get(_ context.Context, id int64) (*PurchaseOrder, error) {
	po, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *po
	return &cp, nil
}

func (m *memoryPORepo) List(_ context.Context) ([]PurchaseOrder, error) {
	var out []PurchaseOrder
	for _, po := range m.orders {
		out = append(out, *po)
	}
	return out, nil
}

func (m *memoryPORepo) UpdateHeader(_ context.Context, id int64, updates map[string]interface{}) error {
	po, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	if v, ok := updates["status"]; ok {
		po.Status = Status(v.(string))
	}
	if v, ok := updates["payment_days"]; ok {
		po.PaymentDays = v.(int)
	}
	if v, ok := updates["freight"]; ok {
		po.Freight = v.(float64)
	}
	return nil
}

func (m *memoryPORepo) SetStockInStatus(_ context.Context, id int64, status StockInStatus) error {
	po, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	po.StockInStatus = status
	return nil
}

func (m *memoryPORepo) LastPONumber(_ context.Context) (int64, error) {
	var last int64
	for _, po := range m.orders {
		if po.PONumber > last {
			last = po.PONumber
		}
	}
	return last, nil
}

type stubVendors struct {
	ids map[int64]bool
}

func (s *stubVendors) Get(_ context.Context, id int64) (*suppliers.Supplier, error) {
	if !s.ids[id] {
		return nil, suppliers.ErrNotFound
	}
	return &suppliers.Supplier{ID: id, Name: "Acme Supplies"}, nil
}

type stubApprovals struct {
	approvals map[int64]*indents.Approval
}

func (s *stubApprovals) ListApprovals(_ context.Context, status *indents.ApprovalStatus) ([]indents.Approval, error) {
	var out []indents.Approval
	for _, a := range s.approvals {
		if status != nil && a.Status != *status {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (s *stubApprovals) SetApprovalStatus(_ context.Context, ids []int64, status indents.ApprovalStatus) error {
	for _, id := range ids {
		if a, ok := s.approvals[id]; ok {
			a.Status = status
		}
	}
	return nil
}

// memoryLedgerRepo mirrors the postgres ledger with rollback-on-error batches.
type memoryLedgerRepo struct {
	current  map[int64]int
	reserved map[int64]int
	entries  []ledger.Transaction
}

func newMemoryLedgerRepo() *memoryLedgerRepo {
	return &memoryLedgerRepo{current: make(map[int64]int), reserved: make(map[int64]int)}
}

func (m *memoryLedgerRepo) WithTx(ctx context.Context, fn func(context.Context, ledger.TxRepository) error) error {
	current := make(map[int64]int, len(m.current))
	for k, v := range m.current {
		current[k] = v
	}
	entryCount := len(m.entries)

	if err := fn(ctx, (*memoryLedgerTx)(m)); err != nil {
		m.current = current
		m.entries = m.entries[:entryCount]
		return err
	}
	return nil
}

func (m *memoryLedgerRepo) List(context.Context, ledger.ListFilter) ([]ledger.TransactionDetail, int, error) {
	return nil, 0, nil
}

func (m *memoryLedgerRepo) SetStatusByReference(context.Context, ledger.Reference, ledger.TransactionStatus) error {
	return nil
}

func (m *memoryLedgerRepo) DeleteByReference(context.Context, ledger.Reference) error {
	return nil
}

type memoryLedgerTx memoryLedgerRepo

func (m *memoryLedgerTx) AdjustStock(_ context.Context, skuID int64, currentDelta, reservedDelta int, guard bool) error {
	if _, ok := m.current[skuID]; !ok {
		return ledger.ErrSKUNotFound
	}
	if guard && m.current[skuID] < -currentDelta {
		return ledger.ErrInsufficientStock
	}
	m.current[skuID] += currentDelta
	m.reserved[skuID] += reservedDelta
	return nil
}

func (m *memoryLedgerTx) InsertTransaction(_ context.Context, txn ledger.Transaction) (int64, error) {
	txn.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, txn)
	return txn.ID, nil
}

func newTestService(t *testing.T) (*Service, *memoryPORepo, *stubApprovals, *memoryLedgerRepo) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	vendorTwo := int64(2)
	repo := newMemoryPORepo()
	vendors := &stubVendors{ids: map[int64]bool{2: true}}
	approvals := &stubApprovals{approvals: map[int64]*indents.Approval{
		10: {
			ID:       10,
			IndentID: 1,
			Status:   indents.ApprovalPOPending,
			Items: []indents.IndentItem{
				{SKUID: 1, Quantity: 5, VendorID: &vendorTwo},
				{SKUID: 3, Quantity: 2},
			},
		},
	}}
	ledgerRepo := newMemoryLedgerRepo()
	ledgerRepo.current[1] = 20

	svc := NewService(repo, vendors, approvals, ledger.NewService(ledgerRepo), shared.NewSequenceGenerator(client))
	return svc, repo, approvals, ledgerRepo
}

func createReq() CreatePORequest {
	return CreatePORequest{
		VendorID:          2,
		Items:             []ItemRequest{{SKUID: 1, Quantity: 5}},
		IndentApprovalIDs: []int64{10},
		PaymentDays:       30,
		Freight:           150,
	}
}

func TestCreateNumbersFromThousandOne(t *testing.T) {
	svc, _, approvals, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, createReq())
	require.NoError(t, err)
	require.Equal(t, int64(1001), first.PONumber)
	require.Equal(t, StatusIssued, first.Status)
	require.Equal(t, StockInPending, first.StockInStatus)
	require.Equal(t, []int64{10}, first.IndentApprovalIDs)

	require.Equal(t, indents.ApprovalPOCreated, approvals.approvals[10].Status)

	second, err := svc.Create(ctx, createReq())
	require.NoError(t, err)
	require.Equal(t, int64(1002), second.PONumber)
}

func TestCreateUnknownVendor(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	req := createReq()
	req.VendorID = 99
	_, err := svc.Create(context.Background(), req)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestApprovedItemsByVendorFlattens(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	items, err := svc.ApprovedItemsByVendor(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, int64(1), items[0].ItemID)
	require.Equal(t, 5, items[0].Quantity)
	require.Equal(t, int64(1), items[0].IndentID)
	require.Equal(t, int64(10), items[0].IndentApprovalID)
}

func TestApprovedItemsByVendorEmpty(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.ApprovedItemsByVendor(context.Background(), 99)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestApprovedItemsExcludeConsumedApprovals(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, createReq())
	require.NoError(t, err)

	_, err = svc.ApprovedItemsByVendor(ctx, 2)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestStockInCreditsOnce(t *testing.T) {
	svc, _, _, ledgerRepo := newTestService(t)
	ctx := shared.ContextWithActor(context.Background(), shared.Actor{ID: 4, Name: "Storekeeper"})

	po, err := svc.Create(ctx, createReq())
	require.NoError(t, err)

	stocked, err := svc.StockIn(ctx, po.ID)
	require.NoError(t, err)
	require.Equal(t, StockedIn, stocked.StockInStatus)
	require.Equal(t, 25, ledgerRepo.current[1])
	require.Len(t, ledgerRepo.entries, 1)
	require.Equal(t, ledger.TransactionInbound, ledgerRepo.entries[0].Type)
	require.Equal(t, ledger.RefPurchaseOrder, ledgerRepo.entries[0].Reference.Kind)
	require.Equal(t, po.ID, ledgerRepo.entries[0].Reference.ID)
	require.Equal(t, int64(4), ledgerRepo.entries[0].CreatedBy)

	_, err = svc.StockIn(ctx, po.ID)
	require.ErrorIs(t, err, httpx.ErrInvalidState)
	require.Equal(t, 25, ledgerRepo.current[1])
	require.Len(t, ledgerRepo.entries, 1)
}
