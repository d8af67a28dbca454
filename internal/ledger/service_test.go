package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	current  map[int64]int
	reserved map[int64]int
	entries  []Transaction
	nextID   int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{current: make(map[int64]int), reserved: make(map[int64]int)}
}

func (r *memoryRepo) seed(skuID int64, current, reserved int) {
	r.current[skuID] = current
	r.reserved[skuID] = reserved
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshotCurrent := make(map[int64]int, len(r.current))
	snapshotReserved := make(map[int64]int, len(r.reserved))
	for k, v := range r.current {
		snapshotCurrent[k] = v
	}
	for k, v := range r.reserved {
		snapshotReserved[k] = v
	}
	entriesLen := len(r.entries)

	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.current = snapshotCurrent
		r.reserved = snapshotReserved
		r.entries = r.entries[:entriesLen]
		return err
	}
	return nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]TransactionDetail, int, error) {
	var out []TransactionDetail
	for _, e := range r.entries {
		out = append(out, TransactionDetail{Transaction: e})
	}
	return out, len(out), nil
}

func (r *memoryRepo) SetStatusByReference(ctx context.Context, ref Reference, status TransactionStatus) error {
	for i := range r.entries {
		if r.entries[i].Reference == ref {
			r.entries[i].Status = status
		}
	}
	return nil
}

func (r *memoryRepo) DeleteByReference(ctx context.Context, ref Reference) error {
	var kept []Transaction
	for _, e := range r.entries {
		if e.Reference != ref {
			kept = append(kept, e)
		}
	}
	r.entries = kept
	return nil
}

func (tx *memoryTx) AdjustStock(ctx context.Context, skuID int64, currentDelta, reservedDelta int, guard bool) error {
	if _, ok := tx.repo.current[skuID]; !ok {
		return ErrSKUNotFound
	}
	if guard && tx.repo.current[skuID] < -currentDelta {
		return ErrInsufficientStock
	}
	tx.repo.current[skuID] += currentDelta
	tx.repo.reserved[skuID] += reservedDelta
	return nil
}

func (tx *memoryTx) InsertTransaction(ctx context.Context, txn Transaction) (int64, error) {
	tx.repo.nextID++
	txn.ID = tx.repo.nextID
	tx.repo.entries = append(tx.repo.entries, txn)
	return txn.ID, nil
}

func TestReserveThenConsume(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(1, 100, 0)
	svc := NewService(repo)
	ctx := context.Background()

	ref := Reference{Kind: RefSalesOrder, ID: 7}
	err := svc.Reserve(ctx, []Movement{{SKUID: 1, Quantity: 10, UnitPrice: 5}}, ref, 42)
	require.NoError(t, err)
	require.Equal(t, 100, repo.current[1])
	require.Equal(t, 10, repo.reserved[1])

	err = svc.Consume(ctx, []Movement{{SKUID: 1, Quantity: 10, UnitPrice: 5}}, ref, 42)
	require.NoError(t, err)
	require.Equal(t, 90, repo.current[1])
	require.Equal(t, 0, repo.reserved[1])

	require.Len(t, repo.entries, 2)
	require.Equal(t, TransactionReservation, repo.entries[0].Type)
	require.Equal(t, TransactionOutbound, repo.entries[1].Type)
	require.InDelta(t, 50.0, repo.entries[1].TotalAmount, 0.0001)
}

func TestReleaseUndoesReservation(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(1, 100, 0)
	svc := NewService(repo)
	ctx := context.Background()

	ref := Reference{Kind: RefSalesOrder, ID: 8}
	err := svc.Reserve(ctx, []Movement{{SKUID: 1, Quantity: 10, UnitPrice: 5}}, ref, 42)
	require.NoError(t, err)
	require.Equal(t, 10, repo.reserved[1])

	err = svc.Release(ctx, []Movement{{SKUID: 1, Quantity: 10, UnitPrice: 5}}, ref, 42)
	require.NoError(t, err)
	require.Equal(t, 100, repo.current[1])
	require.Equal(t, 0, repo.reserved[1])

	require.Len(t, repo.entries, 2)
	require.Equal(t, TransactionRelease, repo.entries[1].Type)
	require.Equal(t, TransactionStatusCompleted, repo.entries[1].Status)
}

func TestConsumeInsufficientLeavesCountersUntouched(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(1, 5, 0)
	repo.seed(2, 100, 0)
	svc := NewService(repo)
	ctx := context.Background()

	// Second line exceeds stock: the whole batch must roll back.
	err := svc.Consume(ctx, []Movement{
		{SKUID: 2, Quantity: 10, UnitPrice: 3},
		{SKUID: 1, Quantity: 6, UnitPrice: 2},
	}, Reference{Kind: RefSalesOrder, ID: 1}, 1)
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Equal(t, 5, repo.current[1])
	require.Equal(t, 100, repo.current[2])
	require.Empty(t, repo.entries)
}

func TestCreditIncrementsCurrentOnly(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(1, 90, 0)
	svc := NewService(repo)
	ctx := context.Background()

	ref := Reference{Kind: RefSalesReturn, ID: 3}
	err := svc.Credit(ctx, []Movement{{SKUID: 1, Quantity: 4, UnitPrice: 5}}, ref, 9)
	require.NoError(t, err)
	require.Equal(t, 94, repo.current[1])
	require.Equal(t, 0, repo.reserved[1])

	require.Len(t, repo.entries, 1)
	require.Equal(t, TransactionInbound, repo.entries[0].Type)
	require.InDelta(t, 20.0, repo.entries[0].TotalAmount, 0.0001)
}

func TestSettleSaleDecrementsWithoutGuard(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(1, 2, 0)
	svc := NewService(repo)
	ctx := context.Background()

	// The payment-time decrement has no sufficiency check.
	err := svc.SettleSale(ctx, []Movement{{SKUID: 1, Quantity: 5, UnitPrice: 10}}, Reference{Kind: RefInvoice, ID: 2})
	require.NoError(t, err)
	require.Equal(t, -3, repo.current[1])
	require.Equal(t, -5, repo.reserved[1])
}

func TestRecordSaleWritesPendingEntries(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	ref := Reference{Kind: RefInvoice, ID: 11}
	err := svc.RecordSale(ctx, []Movement{{SKUID: 1, Quantity: 2, UnitPrice: 30}}, ref, 5)
	require.NoError(t, err)
	require.Len(t, repo.entries, 1)
	require.Equal(t, TransactionStatusPending, repo.entries[0].Status)

	require.NoError(t, svc.MarkReference(ctx, ref, TransactionStatusCompleted))
	require.Equal(t, TransactionStatusCompleted, repo.entries[0].Status)
}

func TestInvalidQuantityRejected(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(1, 10, 0)
	svc := NewService(repo)

	err := svc.Reserve(context.Background(), []Movement{{SKUID: 1, Quantity: 0}}, Reference{Kind: RefSalesOrder, ID: 1}, 1)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}
