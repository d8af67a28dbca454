package invoices

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/ledger"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/masterdata/customers"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/masterdata/skus"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/platform/httpx"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/sales/orders"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/shared"
)

type memoryInvoiceRepo struct {
	invoices map[int64]*Invoice
	nextID   int64
}

func newMemoryInvoiceRepo() *memoryInvoiceRepo {
	return &memoryInvoiceRepo{invoices: make(map[int64]*Invoice)}
}

func (m *memoryInvoiceRepo) Create(_ context.Context, inv *Invoice) (int64, error) {
	m.nextID++
	stored := *inv
	stored.ID = m.nextID
	stored.InvoiceDate = time.Now()
	m.invoices[stored.ID] = &stored
	return stored.ID, nil
}

func (m *memoryInvoiceRepo) Get(_ context.Context, id int64) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *memoryInvoiceRepo) List(_ context.Context, _ ListInvoicesRequest) ([]Invoice, int, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		out = append(out, *inv)
	}
	return out, len(out), nil
}

func (m *memoryInvoiceRepo) UpdateHeader(_ context.Context, id int64, updates map[string]interface{}) error {
	inv, ok := m.invoices[id]
	if !ok {
		return ErrNotFound
	}
	if v, ok := updates["status"]; ok {
		inv.Status = Status(v.(string))
	}
	if v, ok := updates["paid_amount"]; ok {
		inv.PaidAmount = v.(float64)
	}
	return nil
}

func (m *memoryInvoiceRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.invoices[id]; !ok {
		return ErrNotFound
	}
	delete(m.invoices, id)
	return nil
}

func (m *memoryInvoiceRepo) LastInvoiceNumber(_ context.Context) (int64, error) { return 0, nil }

func (m *memoryInvoiceRepo) Stats(_ context.Context, _ time.Time) (*Stats, error) {
	return &Stats{}, nil
}

func (m *memoryInvoiceRepo) MarkOverdue(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, inv := range m.invoices {
		if inv.DueDate.Before(now) && (inv.Status == StatusSent || inv.Status == StatusPartiallyPaid) {
			inv.Status = StatusOverdue
			n++
		}
	}
	return n, nil
}

type stubCustomers struct{ ids map[int64]bool }

func (s *stubCustomers) Get(_ context.Context, id int64) (*customers.Customer, error) {
	if !s.ids[id] {
		return nil, customers.ErrNotFound
	}
	return &customers.Customer{ID: id, Name: "Acme"}, nil
}

type stubOrders struct{ ids map[int64]bool }

func (s *stubOrders) Get(_ context.Context, id int64) (*orders.SalesOrder, error) {
	if !s.ids[id] {
		return nil, orders.ErrNotFound
	}
	return &orders.SalesOrder{ID: id, OrderNumber: "SO-000001"}, nil
}

type stubSKUs struct{ ids map[int64]bool }

func (s *stubSKUs) Get(_ context.Context, id int64) (*skus.SKU, error) {
	if !s.ids[id] {
		return nil, skus.ErrNotFound
	}
	return &skus.SKU{ID: id, Name: "Widget", Code: "WID-1", CurrentStock: 100}, nil
}

// memoryLedgerRepo tracks counters and entries for assertions.
type memoryLedgerRepo struct {
	current  map[int64]int
	reserved map[int64]int
	entries  []ledger.Transaction
	statuses map[ledger.Reference]ledger.TransactionStatus
	dropped  []ledger.Reference
}

func newMemoryLedgerRepo() *memoryLedgerRepo {
	return &memoryLedgerRepo{
		current:  make(map[int64]int),
		reserved: make(map[int64]int),
		statuses: make(map[ledger.Reference]ledger.TransactionStatus),
	}
}

func (m *memoryLedgerRepo) WithTx(ctx context.Context, fn func(context.Context, ledger.TxRepository) error) error {
	return fn(ctx, (*memoryLedgerTx)(m))
}

func (m *memoryLedgerRepo) List(context.Context, ledger.ListFilter) ([]ledger.TransactionDetail, int, error) {
	return nil, 0, nil
}

func (m *memoryLedgerRepo) SetStatusByReference(_ context.Context, ref ledger.Reference, status ledger.TransactionStatus) error {
	m.statuses[ref] = status
	return nil
}

func (m *memoryLedgerRepo) DeleteByReference(_ context.Context, ref ledger.Reference) error {
	m.dropped = append(m.dropped, ref)
	return nil
}

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

func newTestService(t *testing.T) (*Service, *memoryInvoiceRepo, *memoryLedgerRepo) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemoryInvoiceRepo()
	ledgerRepo := newMemoryLedgerRepo()
	ledgerRepo.current[1] = 100

	svc := NewService(repo,
		&stubCustomers{ids: map[int64]bool{1: true}},
		&stubOrders{ids: map[int64]bool{1: true}},
		&stubSKUs{ids: map[int64]bool{1: true}},
		ledger.NewService(ledgerRepo),
		shared.NewSequenceGenerator(client))
	return svc, repo, ledgerRepo
}

func createReq() CreateInvoiceRequest {
	return CreateInvoiceRequest{
		CustomerID: 1,
		DueDate:    time.Now().Add(14 * 24 * time.Hour),
		Items: []ItemRequest{
			{SKUID: 1, Quantity: 10, UnitPrice: 5},
		},
	}
}

func TestCreateWritesPendingLedgerEntries(t *testing.T) {
	svc, _, ledgerRepo := newTestService(t)

	inv, err := svc.Create(context.Background(), createReq())
	require.NoError(t, err)
	require.Equal(t, "INV-000001", inv.InvoiceNumber)
	require.Equal(t, StatusDraft, inv.Status)
	require.Equal(t, 50.0, inv.TotalAmount)

	require.Len(t, ledgerRepo.entries, 1)
	require.Equal(t, ledger.TransactionSales, ledgerRepo.entries[0].Type)
	require.Equal(t, ledger.TransactionStatusPending, ledgerRepo.entries[0].Status)
	// Raising the invoice must not move stock.
	require.Equal(t, 100, ledgerRepo.current[1])
}

func TestCreateUnknownSalesOrder(t *testing.T) {
	svc, _, _ := newTestService(t)

	req := createReq()
	missing := int64(42)
	req.SalesOrderID = &missing
	_, err := svc.Create(context.Background(), req)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestMarkPaidSettlesLedgerAndDeductsStock(t *testing.T) {
	svc, _, ledgerRepo := newTestService(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, createReq())
	require.NoError(t, err)

	status := StatusPaid
	updated, err := svc.Update(ctx, inv.ID, UpdateInvoiceRequest{Status: &status})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, updated.Status)

	ref := ledger.Reference{Kind: ledger.RefInvoice, ID: inv.ID}
	require.Equal(t, ledger.TransactionStatusCompleted, ledgerRepo.statuses[ref])
	require.Equal(t, 90, ledgerRepo.current[1])
	require.Equal(t, -10, ledgerRepo.reserved[1])
}

func TestPaidAmountDerivesStatusWithoutStockEffect(t *testing.T) {
	svc, _, ledgerRepo := newTestService(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, createReq())
	require.NoError(t, err)

	partial := 20.0
	updated, err := svc.Update(ctx, inv.ID, UpdateInvoiceRequest{PaidAmount: &partial})
	require.NoError(t, err)
	require.Equal(t, StatusPartiallyPaid, updated.Status)
	require.Equal(t, 20.0, updated.PaidAmount)

	full := 50.0
	updated, err = svc.Update(ctx, inv.ID, UpdateInvoiceRequest{PaidAmount: &full})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, updated.Status)

	// Deriving paid from paidAmount alone never touches counters.
	require.Equal(t, 100, ledgerRepo.current[1])
}

func TestOverpaymentDerivesPaid(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, createReq())
	require.NoError(t, err)

	// Paying more than the total clears the balance outright.
	over := inv.TotalAmount + 10
	updated, err := svc.Update(ctx, inv.ID, UpdateInvoiceRequest{PaidAmount: &over})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, updated.Status)
	require.Equal(t, over, updated.PaidAmount)
}

func TestZeroPaidAmountLeavesStatus(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, createReq())
	require.NoError(t, err)

	zero := 0.0
	updated, err := svc.Update(ctx, inv.ID, UpdateInvoiceRequest{PaidAmount: &zero})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, updated.Status)
}

func TestDeletePaidInvoiceRejected(t *testing.T) {
	svc, repo, ledgerRepo := newTestService(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, createReq())
	require.NoError(t, err)

	status := StatusPaid
	_, err = svc.Update(ctx, inv.ID, UpdateInvoiceRequest{Status: &status})
	require.NoError(t, err)

	err = svc.Delete(ctx, inv.ID)
	require.ErrorIs(t, err, httpx.ErrInvalidState)
	require.Empty(t, ledgerRepo.dropped)

	_, err = repo.Get(ctx, inv.ID)
	require.NoError(t, err)
}

func TestDeleteDraftDropsLedgerEntries(t *testing.T) {
	svc, repo, ledgerRepo := newTestService(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, createReq())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, inv.ID))
	require.Len(t, ledgerRepo.dropped, 1)
	require.Equal(t, ledger.Reference{Kind: ledger.RefInvoice, ID: inv.ID}, ledgerRepo.dropped[0])

	_, err = repo.Get(ctx, inv.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestMarkOverdue(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, createReq())
	require.NoError(t, err)

	status := StatusSent
	_, err = svc.Update(ctx, inv.ID, UpdateInvoiceRequest{Status: &status})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(30 * 24 * time.Hour) }
	n, err := svc.MarkOverdue(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	stored, err := repo.Get(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusOverdue, stored.Status)
}
