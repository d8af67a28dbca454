package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/ledger"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/masterdata/customers"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/masterdata/skus"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/platform/httpx"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/shared"
)

type memoryOrderRepo struct {
	orders map[int64]*SalesOrder
	nextID int64
}

func newMemoryOrderRepo() *memoryOrderRepo {
	return &memoryOrderRepo{orders: make(map[int64]*SalesOrder)}
}

func (m *memoryOrderRepo) Create(_ context.Context, order *SalesOrder) (int64, error) {
	m.nextID++
	stored := *order
	stored.ID = m.nextID
	stored.OrderDate = time.Now()
	m.orders[stored.ID] = &stored
	return stored.ID, nil
}

func (m *memoryOrderRepo) Get(_ context.Context, id int64) (*SalesOrder, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memoryOrderRepo) List(_ context.Context, _ ListOrdersRequest) ([]SalesOrder, int, error) {
	var out []SalesOrder
	for _, o := range m.orders {
		out = append(out, *o)
	}
	return out, len(out), nil
}

func (m *memoryOrderRepo) UpdateHeader(_ context.Context, id int64, updates map[string]interface{}) error {
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	if v, ok := updates["status"]; ok {
		o.Status = Status(v.(string))
	}
	if v, ok := updates["dispatch_status"]; ok {
		o.DispatchStatus = DispatchStatus(v.(string))
	}
	if v, ok := updates["notes"]; ok {
		o.Notes = v.(string)
	}
	if v, ok := updates["customer_id"]; ok {
		o.CustomerID = v.(int64)
	}
	if v, ok := updates["expected_delivery_date"]; ok {
		o.ExpectedDeliveryDate = v.(time.Time)
	}
	if v, ok := updates["approved_by"]; ok {
		id := v.(int64)
		o.ApprovedBy = &id
	}
	if v, ok := updates["approved_at"]; ok {
		t := v.(time.Time)
		o.ApprovedAt = &t
	}
	return nil
}

func (m *memoryOrderRepo) ReplaceItems(_ context.Context, id int64, items []OrderItem, subtotal, totalDiscount, totalTax, totalAmount float64) error {
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Items = items
	o.Subtotal = subtotal
	o.TotalDiscount = totalDiscount
	o.TotalTax = totalTax
	o.TotalAmount = totalAmount
	return nil
}

func (m *memoryOrderRepo) MarkDispatched(_ context.Context, id int64, items []DispatchedItem) error {
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.DispatchedItems = items
	o.Status = StatusDispatched
	o.DispatchStatus = DispatchCompleted
	return nil
}

func (m *memoryOrderRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.orders[id]; !ok {
		return ErrNotFound
	}
	delete(m.orders, id)
	return nil
}

func (m *memoryOrderRepo) LastOrderNumber(_ context.Context) (int64, error) {
	return 0, nil
}

func (m *memoryOrderRepo) Stats(_ context.Context) (*Stats, error) {
	return &Stats{}, nil
}

type memorySKURepo struct {
	skus map[int64]*skus.SKU
}

func (m *memorySKURepo) Get(_ context.Context, id int64) (*skus.SKU, error) {
	s, ok := m.skus[id]
	if !ok {
		return nil, skus.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memorySKURepo) GetByCode(context.Context, string) (*skus.SKU, error) {
	return nil, skus.ErrNotFound
}

func (m *memorySKURepo) List(context.Context, skus.ListSKUsRequest) ([]skus.SKU, int, error) {
	return nil, 0, nil
}

func (m *memorySKURepo) ListBelowMinStock(context.Context) ([]skus.SKU, error) {
	return nil, nil
}

func (m *memorySKURepo) Create(context.Context, skus.SKU) (int64, error) { return 0, nil }

func (m *memorySKURepo) Update(context.Context, int64, map[string]interface{}) error { return nil }

func (m *memorySKURepo) Delete(context.Context, int64) error { return nil }

type memoryCustomerRepo struct {
	ids map[int64]bool
}

func (m *memoryCustomerRepo) Get(_ context.Context, id int64) (*customers.Customer, error) {
	if !m.ids[id] {
		return nil, customers.ErrNotFound
	}
	return &customers.Customer{ID: id, Name: "Acme"}, nil
}

func (m *memoryCustomerRepo) List(context.Context, customers.ListCustomersRequest) ([]customers.Customer, int, error) {
	return nil, 0, nil
}

func (m *memoryCustomerRepo) Create(context.Context, customers.Customer) (int64, error) {
	return 0, nil
}

func (m *memoryCustomerRepo) Update(context.Context, int64, map[string]interface{}) error {
	return nil
}

func (m *memoryCustomerRepo) Delete(context.Context, int64) error { return nil }

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
	reserved := make(map[int64]int, len(m.reserved))
	for k, v := range m.current {
		current[k] = v
	}
	for k, v := range m.reserved {
		reserved[k] = v
	}
	entryCount := len(m.entries)

	if err := fn(ctx, (*memoryLedgerTx)(m)); err != nil {
		m.current = current
		m.reserved = reserved
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

func newTestService(t *testing.T) (*Service, *memoryOrderRepo, *memoryLedgerRepo, *memorySKURepo) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemoryOrderRepo()
	skuRepo := &memorySKURepo{skus: map[int64]*skus.SKU{
		1: {ID: 1, Name: "Widget", Code: "WID-1", CurrentStock: 100},
	}}
	custRepo := &memoryCustomerRepo{ids: map[int64]bool{1: true}}
	ledgerRepo := newMemoryLedgerRepo()
	ledgerRepo.current[1] = 100

	svc := NewService(repo, skuRepo, custRepo, ledger.NewService(ledgerRepo), shared.NewSequenceGenerator(client))
	return svc, repo, ledgerRepo, skuRepo
}

func createReq(status Status) CreateOrderRequest {
	return CreateOrderRequest{
		CustomerID:           1,
		ExpectedDeliveryDate: time.Now().Add(72 * time.Hour),
		Items: []ItemRequest{
			{SKUID: 1, Quantity: 10, UnitPrice: 5},
		},
		Status: status,
	}
}

func TestCreateRecomputesTotalsAndNumbers(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, createReq(""))
	require.NoError(t, err)
	require.Equal(t, "SO-000001", first.OrderNumber)
	require.Equal(t, StatusPendingDispatch, first.Status)
	require.Equal(t, DispatchPending, first.DispatchStatus)
	require.Equal(t, 50.0, first.TotalAmount)
	require.Equal(t, 50.0, first.Items[0].TotalAmount)

	second, err := svc.Create(ctx, createReq(""))
	require.NoError(t, err)
	require.Equal(t, "SO-000002", second.OrderNumber)
}

func TestCreateInsufficientStock(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	req := createReq("")
	req.Items[0].Quantity = 500
	_, err := svc.Create(context.Background(), req)
	require.ErrorIs(t, err, httpx.ErrInsufficientStock)
}

func TestCreateUnknownCustomer(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	req := createReq("")
	req.CustomerID = 99
	_, err := svc.Create(context.Background(), req)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestUpdateRejectedUnlessDraft(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.Create(ctx, createReq(""))
	require.NoError(t, err)

	notes := "changed"
	_, err = svc.Update(ctx, order.ID, UpdateOrderRequest{Notes: &notes})
	require.ErrorIs(t, err, httpx.ErrInvalidState)
}

func TestConfirmReservesStock(t *testing.T) {
	svc, repo, ledgerRepo, _ := newTestService(t)
	ctx := shared.ContextWithActor(context.Background(), shared.Actor{ID: 7, Name: "Manager"})

	order, err := svc.Create(ctx, createReq(StatusDraft))
	require.NoError(t, err)
	require.Equal(t, StatusDraft, order.Status)

	status := StatusConfirmed
	updated, err := svc.Update(ctx, order.ID, UpdateOrderRequest{Status: &status})
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, updated.Status)
	require.Equal(t, 10, ledgerRepo.reserved[1])
	require.Len(t, ledgerRepo.entries, 1)
	require.Equal(t, ledger.TransactionReservation, ledgerRepo.entries[0].Type)

	stored, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ApprovedBy)
	require.Equal(t, int64(7), *stored.ApprovedBy)
	require.NotNil(t, stored.ApprovedAt)
}

func TestDispatchConsumesStock(t *testing.T) {
	svc, _, ledgerRepo, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.Create(ctx, createReq(""))
	require.NoError(t, err)

	dispatched, err := svc.Dispatch(ctx, order.ID, DispatchRequest{
		DispatchedItems: []DispatchLineRequest{{SKUID: 1, Quantity: 10}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusDispatched, dispatched.Status)
	require.Equal(t, DispatchCompleted, dispatched.DispatchStatus)
	require.Len(t, dispatched.DispatchedItems, 1)

	require.Equal(t, 90, ledgerRepo.current[1])
	// Nothing reserved this stock (pending_dispatch skips confirmation), so
	// the reserved counter goes negative.
	require.Equal(t, -10, ledgerRepo.reserved[1])
	require.Len(t, ledgerRepo.entries, 1)
	require.Equal(t, ledger.TransactionOutbound, ledgerRepo.entries[0].Type)
	require.Equal(t, 50.0, ledgerRepo.entries[0].TotalAmount)
}

func TestDispatchWrongState(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.Create(ctx, createReq(StatusDraft))
	require.NoError(t, err)

	_, err = svc.Dispatch(ctx, order.ID, DispatchRequest{
		DispatchedItems: []DispatchLineRequest{{SKUID: 1, Quantity: 1}},
	})
	require.ErrorIs(t, err, httpx.ErrInvalidState)
}

func TestDispatchInsufficientLeavesCountersUntouched(t *testing.T) {
	svc, repo, ledgerRepo, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.Create(ctx, createReq(""))
	require.NoError(t, err)

	_, err = svc.Dispatch(ctx, order.ID, DispatchRequest{
		DispatchedItems: []DispatchLineRequest{
			{SKUID: 1, Quantity: 10},
			{SKUID: 1, Quantity: 200},
		},
	})
	require.ErrorIs(t, err, httpx.ErrInsufficientStock)

	require.Equal(t, 100, ledgerRepo.current[1])
	require.Equal(t, 0, ledgerRepo.reserved[1])
	require.Empty(t, ledgerRepo.entries)

	stored, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPendingDispatch, stored.Status)
}

func TestDeleteNonDraftRejected(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.Create(ctx, createReq(""))
	require.NoError(t, err)

	err = svc.Delete(ctx, order.ID)
	require.ErrorIs(t, err, httpx.ErrInvalidState)

	_, err = repo.Get(ctx, order.ID)
	require.NoError(t, err)

	draft, err := svc.Create(ctx, createReq(StatusDraft))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, draft.ID))

	_, err = repo.Get(ctx, draft.ID)
	require.True(t, errors.Is(err, httpx.ErrNotFound))
}
