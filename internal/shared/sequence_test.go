package shared

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newGenerator(t *testing.T) *SequenceGenerator {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSequenceGenerator(client)
}

func TestNextSeedsFromPersistedDocuments(t *testing.T) {
	gen := newGenerator(t)
	ctx := context.Background()

	seed := func(context.Context) (int64, error) { return 41, nil }

	n, err := gen.Next(ctx, SeqSalesOrder, seed)
	require.NoError(t, err)
	require.Equal(t, int64(42), n)

	// Once seeded, the counter ignores the seed func.
	n, err = gen.Next(ctx, SeqSalesOrder, func(context.Context) (int64, error) { return 999, nil })
	require.NoError(t, err)
	require.Equal(t, int64(43), n)
}

func TestNextStartsAtOneWithoutSeed(t *testing.T) {
	gen := newGenerator(t)

	n, err := gen.Next(context.Background(), SeqIndent, nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestNextPropagatesSeedError(t *testing.T) {
	gen := newGenerator(t)

	boom := errors.New("db down")
	_, err := gen.Next(context.Background(), SeqInvoice, func(context.Context) (int64, error) { return 0, boom })
	require.ErrorIs(t, err, boom)
}

func TestSequencesAreIndependent(t *testing.T) {
	gen := newGenerator(t)
	ctx := context.Background()

	a, err := gen.Next(ctx, SeqSalesReturn, nil)
	require.NoError(t, err)
	b, err := gen.Next(ctx, SeqPurchaseOrder, func(context.Context) (int64, error) { return 1000, nil })
	require.NoError(t, err)

	require.Equal(t, int64(1), a)
	require.Equal(t, int64(1001), b)
}

func TestDocNumberFormat(t *testing.T) {
	require.Equal(t, "SO-000007", DocNumber("SO", 7))
	require.Equal(t, "INV-123456", DocNumber("INV", 123456))
}
