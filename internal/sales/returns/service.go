package returns

import (
	"context"
	"fmt"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/ledger"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/platform/httpx"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/sales/orders"
	salesmath "github.com/finamite03/imsBackupWithAllFeatures/internal/sales/shared"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/shared"
)

var (
	ErrItemNotInOrder   = fmt.Errorf("returns: item not found in original order: %w", httpx.ErrValidation)
	ErrQuantityExceeded = fmt.Errorf("returns: return quantity exceeds ordered quantity: %w", httpx.ErrValidation)
	ErrAlreadyApproved  = fmt.Errorf("returns: return already approved: %w", httpx.ErrInvalidState)
)

// OrderLookup resolves the original sales order for validation.
type OrderLookup interface {
	Get(ctx context.Context, id int64) (*orders.SalesOrder, error)
}

type Service struct {
	repo      Repository
	orderRepo OrderLookup
	ledger    *ledger.Service
	sequences *shared.SequenceGenerator
}

func NewService(repo Repository, orderRepo OrderLookup, led *ledger.Service, sequences *shared.SequenceGenerator) *Service {
	return &Service{repo: repo, orderRepo: orderRepo, ledger: led, sequences: sequences}
}

// Create validates every return line against the original order: the sku must
// appear in the order and the returned quantity may not exceed the ordered
// one. Line and document totals are recomputed server-side.
func (s *Service) Create(ctx context.Context, req CreateReturnRequest) (*SalesReturn, error) {
	order, err := s.orderRepo.Get(ctx, req.SalesOrderID)
	if err != nil {
		return nil, fmt.Errorf("returns: sales order %d: %w", req.SalesOrderID, err)
	}

	ordered := make(map[int64]int, len(order.Items))
	for _, it := range order.Items {
		ordered[it.SKUID] = it.Quantity
	}

	items := make([]ReturnItem, 0, len(req.Items))
	var lineTotals []float64
	for _, it := range req.Items {
		orderedQty, ok := ordered[it.SKUID]
		if !ok {
			return nil, fmt.Errorf("sku %d: %w", it.SKUID, ErrItemNotInOrder)
		}
		if it.Quantity > orderedQty {
			return nil, fmt.Errorf("sku %d: %w", it.SKUID, ErrQuantityExceeded)
		}
		lineTotal := salesmath.LineTotal(it.Quantity, it.UnitPrice, 0, 0)
		items = append(items, ReturnItem{
			SKUID:       it.SKUID,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalAmount: lineTotal,
		})
		lineTotals = append(lineTotals, lineTotal)
	}

	n, err := s.sequences.Next(ctx, shared.SeqSalesReturn, s.repo.LastReturnNumber)
	if err != nil {
		return nil, fmt.Errorf("returns: next return number: %w", err)
	}

	ret := SalesReturn{
		ReturnNumber:   shared.DocNumber("SR", n),
		SalesOrderID:   req.SalesOrderID,
		CustomerID:     req.CustomerID,
		ReturnDate:     req.ReturnDate,
		Reason:         req.Reason,
		ActionRequired: req.ActionRequired,
		Items:          items,
		TotalAmount:    salesmath.SumTotals(lineTotals),
		Status:         StatusPending,
		Notes:          req.Notes,
		CreatedBy:      shared.ActorID(ctx),
	}

	id, err := s.repo.Create(ctx, &ret)
	if err != nil {
		return nil, fmt.Errorf("returns: create: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*SalesReturn, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListReturnsRequest) ([]SalesReturn, int, error) {
	return s.repo.List(ctx, req)
}

// Process sets the return's status and stamps the processor. Approving
// credits every returned quantity back to stock and writes inbound ledger
// entries; a second approval of the same return is rejected so stock is
// never re-credited.
func (s *Service) Process(ctx context.Context, id int64, req ProcessReturnRequest) (*SalesReturn, error) {
	ret, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status == StatusApproved {
		if ret.Status == StatusApproved || ret.Status == StatusProcessed {
			return nil, ErrAlreadyApproved
		}

		movements := make([]ledger.Movement, 0, len(ret.Items))
		for _, it := range ret.Items {
			movements = append(movements, ledger.Movement{
				SKUID:     it.SKUID,
				Quantity:  it.Quantity,
				UnitPrice: it.UnitPrice,
				Notes:     fmt.Sprintf("Returned from Sales Return %s", ret.ReturnNumber),
			})
		}
		ref := ledger.Reference{Kind: ledger.RefSalesReturn, ID: ret.ID}
		if err := s.ledger.Credit(ctx, movements, ref, shared.ActorID(ctx)); err != nil {
			return nil, fmt.Errorf("returns: credit stock: %w", err)
		}
	}

	if err := s.repo.SetProcessed(ctx, id, req.Status, shared.ActorID(ctx)); err != nil {
		return nil, fmt.Errorf("returns: process: %w", err)
	}
	return s.repo.Get(ctx, id)
}
