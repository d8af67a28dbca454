package shared

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Sequence names used across modules. The emitted document numbers are part of
// the external contract consumed by the dashboard.
const (
	SeqSalesOrder    = "sales_order"
	SeqInvoice       = "invoice"
	SeqSalesReturn   = "sales_return"
	SeqIndent        = "indent"
	SeqPurchaseOrder = "purchase_order"
)

// SeedFunc returns the highest already-persisted number for a sequence,
// consulted once when the counter key does not exist yet.
type SeedFunc func(ctx context.Context) (int64, error)

// SequenceGenerator hands out strictly increasing document numbers via Redis
// INCR, replacing the racy find-latest-and-increment pattern.
type SequenceGenerator struct {
	client *redis.Client
}

// NewSequenceGenerator constructs the generator.
func NewSequenceGenerator(client *redis.Client) *SequenceGenerator {
	return &SequenceGenerator{client: client}
}

// Next returns the next number for the named sequence. When the counter key is
// missing, seed is invoked to bootstrap it from persisted documents; SETNX
// keeps concurrent bootstraps from double-seeding.
func (g *SequenceGenerator) Next(ctx context.Context, name string, seed SeedFunc) (int64, error) {
	if g == nil || g.client == nil {
		return 0, errors.New("shared: sequence generator not initialised")
	}
	key := fmt.Sprintf("seq:%s", name)

	exists, err := g.client.Exists(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("shared: sequence exists: %w", err)
	}
	if exists == 0 && seed != nil {
		last, err := seed(ctx)
		if err != nil {
			return 0, fmt.Errorf("shared: seed sequence %s: %w", name, err)
		}
		if err := g.client.SetNX(ctx, key, last, 0).Err(); err != nil {
			return 0, fmt.Errorf("shared: bootstrap sequence %s: %w", name, err)
		}
	}

	next, err := g.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("shared: increment sequence %s: %w", name, err)
	}
	return next, nil
}

// DocNumber renders the PREFIX-NNNNNN format used by order, invoice and return
// numbers.
func DocNumber(prefix string, n int64) string {
	return fmt.Sprintf("%s-%06d", prefix, n)
}
