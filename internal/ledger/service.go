package ledger

import (
	"context"
	"fmt"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filter ListFilter) ([]TransactionDetail, int, error)
	SetStatusByReference(ctx context.Context, ref Reference, status TransactionStatus) error
	DeleteByReference(ctx context.Context, ref Reference) error
}

// Service owns every SKU counter mutation. All stock arithmetic in the
// application funnels through the four movement operations so the
// sufficiency check lives in exactly one place.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Reserve earmarks stock for a confirmed order. Counters may legitimately
// exceed current stock here; the original system never guarded reservations.
func (s *Service) Reserve(ctx context.Context, movements []Movement, ref Reference, actorID int64) error {
	return s.apply(ctx, movements, ref, actorID, TransactionReservation, 0, 1, false)
}

// Release undoes a reservation without touching current stock.
func (s *Service) Release(ctx context.Context, movements []Movement, ref Reference, actorID int64) error {
	return s.apply(ctx, movements, ref, actorID, TransactionRelease, 0, -1, false)
}

// Consume takes stock out on dispatch, decrementing both current and reserved
// quantities. Fails with ErrInsufficientStock when any line exceeds current
// stock; no counter is touched in that case.
func (s *Service) Consume(ctx context.Context, movements []Movement, ref Reference, actorID int64) error {
	return s.apply(ctx, movements, ref, actorID, TransactionOutbound, -1, -1, true)
}

// Credit returns stock to the warehouse. Only current stock moves; the
// reservation was already consumed by the dispatch.
func (s *Service) Credit(ctx context.Context, movements []Movement, ref Reference, actorID int64) error {
	return s.apply(ctx, movements, ref, actorID, TransactionInbound, 1, 0, false)
}

// RecordSale appends pending financial entries for a freshly raised invoice.
// No counters move until the invoice is paid.
func (s *Service) RecordSale(ctx context.Context, movements []Movement, ref Reference, actorID int64) error {
	for _, m := range movements {
		if m.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, m := range movements {
			txn := Transaction{
				Type:        TransactionSales,
				SKUID:       m.SKUID,
				Quantity:    m.Quantity,
				UnitPrice:   m.UnitPrice,
				TotalAmount: float64(m.Quantity) * m.UnitPrice,
				Reference:   ref,
				Status:      TransactionStatusPending,
				Notes:       m.Notes,
				CreatedBy:   actorID,
			}
			if _, err := tx.InsertTransaction(ctx, txn); err != nil {
				return fmt.Errorf("ledger: insert sales entry: %w", err)
			}
		}
		return nil
	})
}

// SettleSale applies the payment-time stock decrement. The decrement is
// unconditional, mirroring the original behaviour where paying an invoice
// deducts stock independently of dispatch (see DESIGN.md).
func (s *Service) SettleSale(ctx context.Context, movements []Movement, ref Reference) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, m := range movements {
			if err := tx.AdjustStock(ctx, m.SKUID, -m.Quantity, -m.Quantity, false); err != nil {
				return err
			}
		}
		return nil
	})
}

// MarkReference transitions every entry linked to ref into the given status.
func (s *Service) MarkReference(ctx context.Context, ref Reference, status TransactionStatus) error {
	return s.repo.SetStatusByReference(ctx, ref, status)
}

// DropReference removes the entries linked to ref. Used only when a never-paid
// invoice is deleted.
func (s *Service) DropReference(ctx context.Context, ref Reference) error {
	return s.repo.DeleteByReference(ctx, ref)
}

// List returns ledger entries, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]TransactionDetail, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) apply(ctx context.Context, movements []Movement, ref Reference, actorID int64, txType TransactionType, currentSign, reservedSign int, guard bool) error {
	for _, m := range movements {
		if m.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, m := range movements {
			err := tx.AdjustStock(ctx, m.SKUID, currentSign*m.Quantity, reservedSign*m.Quantity, guard)
			if err != nil {
				return err
			}
			txn := Transaction{
				Type:        txType,
				SKUID:       m.SKUID,
				Quantity:    m.Quantity,
				UnitPrice:   m.UnitPrice,
				TotalAmount: float64(m.Quantity) * m.UnitPrice,
				Reference:   ref,
				Status:      TransactionStatusCompleted,
				Notes:       m.Notes,
				CreatedBy:   actorID,
			}
			if _, err := tx.InsertTransaction(ctx, txn); err != nil {
				return fmt.Errorf("ledger: insert %s entry: %w", txType, err)
			}
		}
		return nil
	})
}
