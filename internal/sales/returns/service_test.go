package returns

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/ledger"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/platform/httpx"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/sales/orders"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/shared"
)

type memoryReturnRepo struct {
	returns map[int64]*SalesReturn
	nextID  int64
}

func newMemoryReturnRepo() *memoryReturnRepo {
	return &memoryReturnRepo{returns: make(map[int64]*SalesReturn)}
}

func (m *memoryReturnRepo) Create(_ context.Context, ret *SalesReturn) (int64, error) {
	m.nextID++
	stored := *ret
	stored.ID = m.nextID
	m.returns[stored.ID] = &stored
	return stored.ID, nil
}

func (m *memoryReturnRepo) Get(_ context.Context, id int64) (*SalesReturn, error) {
	ret, ok := m.returns[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ret
	return &cp, nil
}

func (m *memoryReturnRepo) List(_ context.Context, _ ListReturnsRequest) ([]SalesReturn, int, error) {
	var out []SalesReturn
	for _, ret := range m.returns {
		out = append(out, *ret)
	}
	return out, len(out), nil
}

func (m *memoryReturnRepo) SetProcessed(_ context.Context, id int64, status Status, processedBy int64) error {
	ret, ok := m.returns[id]
	if !ok {
		return ErrNotFound
	}
	ret.Status = status
	ret.ProcessedBy = &processedBy
	now := time.Now()
	ret.ProcessedAt = &now
	return nil
}

func (m *memoryReturnRepo) LastReturnNumber(_ context.Context) (int64, error) { return 0, nil }

type stubOrders struct {
	order *orders.SalesOrder
}

func (s *stubOrders) Get(_ context.Context, id int64) (*orders.SalesOrder, error) {
	if s.order == nil || s.order.ID != id {
		return nil, orders.ErrNotFound
	}
	cp := *s.order
	return &cp, nil
}

type memoryLedgerRepo struct {
	current  map[int64]int
	reserved map[int64]int
	entries  []ledger.Transaction
}

func newMemoryLedgerRepo() *memoryLedgerRepo {
	return &memoryLedgerRepo{current: make(map[int64]int), reserved: make(map[int64]int)}
}

func (m *memoryLedgerRepo) WithTx(ctx context.Context, fn func(context.Context, ledger.TxRepository) error) error {
	return fn(ctx, (*memoryLedgerTx)(m))
}

func (m *memoryLedgerRepo) List(context.Context, ledger.ListFilter) ([]ledger.TransactionDetail, int, error) {
	return nil, 0, nil
}

func (m *memoryLedgerRepo) SetStatusByReference(context.Context, ledger.Reference, ledger.TransactionStatus) error {
	return nil
}

func (m *memoryLedgerRepo) DeleteByReference(context.Context, ledger.Reference) error { return nil }

type memoryLedgerTx memoryLedgerRepo

func (m *memoryLedgerTx) AdjustStock(_ context.Context, skuID int64, currentDelta, reservedDelta int, guard bool) error {
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

func newTestService(t *testing.T) (*Service, *memoryReturnRepo, *memoryLedgerRepo) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemoryReturnRepo()
	ledgerRepo := newMemoryLedgerRepo()
	ledgerRepo.current[1] = 90

	orderRepo := &stubOrders{order: &orders.SalesOrder{
		ID:          1,
		OrderNumber: "SO-000001",
		Items: []orders.OrderItem{
			{SKUID: 1, Quantity: 10, UnitPrice: 5},
		},
	}}

	svc := NewService(repo, orderRepo, ledger.NewService(ledgerRepo), shared.NewSequenceGenerator(client))
	return svc, repo, ledgerRepo
}

func createReq() CreateReturnRequest {
	return CreateReturnRequest{
		SalesOrderID:   1,
		CustomerID:     1,
		ReturnDate:     time.Now(),
		Reason:         ReasonDamaged,
		ActionRequired: ActionRefund,
		Items: []ItemRequest{
			{SKUID: 1, Quantity: 4, UnitPrice: 5},
		},
	}
}

func TestCreateValidatesAgainstOrder(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	ret, err := svc.Create(ctx, createReq())
	require.NoError(t, err)
	require.Equal(t, "SR-000001", ret.ReturnNumber)
	require.Equal(t, StatusPending, ret.Status)
	require.Equal(t, 20.0, ret.TotalAmount)
}

func TestCreateRejectsForeignItem(t *testing.T) {
	svc, _, _ := newTestService(t)

	req := createReq()
	req.Items[0].SKUID = 99
	_, err := svc.Create(context.Background(), req)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateRejectsExcessQuantity(t *testing.T) {
	svc, _, _ := newTestService(t)

	req := createReq()
	req.Items[0].Quantity = 11
	_, err := svc.Create(context.Background(), req)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestApproveCreditsStockOnce(t *testing.T) {
	svc, repo, ledgerRepo := newTestService(t)
	ctx := shared.ContextWithActor(context.Background(), shared.Actor{ID: 3, Name: "Manager"})

	ret, err := svc.Create(ctx, createReq())
	require.NoError(t, err)

	processed, err := svc.Process(ctx, ret.ID, ProcessReturnRequest{Status: StatusApproved})
	require.NoError(t, err)
	require.Equal(t, StatusApproved, processed.Status)
	require.NotNil(t, processed.ProcessedBy)
	require.Equal(t, int64(3), *processed.ProcessedBy)
	require.NotNil(t, processed.ProcessedAt)

	// Credit moves current stock only; the reservation was consumed at dispatch.
	require.Equal(t, 94, ledgerRepo.current[1])
	require.Equal(t, 0, ledgerRepo.reserved[1])
	require.Len(t, ledgerRepo.entries, 1)
	require.Equal(t, ledger.TransactionInbound, ledgerRepo.entries[0].Type)
	require.Equal(t, 20.0, ledgerRepo.entries[0].TotalAmount)

	// Re-approval must not credit stock a second time.
	_, err = svc.Process(ctx, ret.ID, ProcessReturnRequest{Status: StatusApproved})
	require.ErrorIs(t, err, httpx.ErrInvalidState)
	require.Equal(t, 94, ledgerRepo.current[1])
	require.Len(t, ledgerRepo.entries, 1)

	stored, err := repo.Get(ctx, ret.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, stored.Status)
}

func TestRejectDoesNotTouchStock(t *testing.T) {
	svc, _, ledgerRepo := newTestService(t)
	ctx := context.Background()

	ret, err := svc.Create(ctx, createReq())
	require.NoError(t, err)

	processed, err := svc.Process(ctx, ret.ID, ProcessReturnRequest{Status: StatusRejected})
	require.NoError(t, err)
	require.Equal(t, StatusRejected, processed.Status)
	require.Equal(t, 90, ledgerRepo.current[1])
	require.Empty(t, ledgerRepo.entries)
}
