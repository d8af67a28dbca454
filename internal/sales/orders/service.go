package orders

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/ledger"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/masterdata/customers"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/masterdata/skus"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/platform/httpx"
	salesmath "github.com/finamite03/imsBackupWithAllFeatures/internal/sales/shared"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/shared"
)

var (
	ErrNotEditable     = fmt.Errorf("orders: only draft orders can be updated: %w", httpx.ErrInvalidState)
	ErrNotDeletable    = fmt.Errorf("orders: only draft orders can be deleted: %w", httpx.ErrInvalidState)
	ErrNotDispatchable = fmt.Errorf("orders: order is not ready for dispatch: %w", httpx.ErrInvalidState)
)

type Service struct {
	repo      Repository
	skuRepo   skus.Repository
	custRepo  customers.Repository
	ledger    *ledger.Service
	sequences *shared.SequenceGenerator
	stats     singleflight.Group
}

func NewService(repo Repository, skuRepo skus.Repository, custRepo customers.Repository, led *ledger.Service, sequences *shared.SequenceGenerator) *Service {
	return &Service{repo: repo, skuRepo: skuRepo, custRepo: custRepo, ledger: led, sequences: sequences}
}

// Create validates the customer and every line, recomputes all totals
// server-side and persists the order. New orders land in pending_dispatch
// unless the client explicitly asks for a draft.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest) (*SalesOrder, error) {
	if _, err := s.custRepo.Get(ctx, req.CustomerID); err != nil {
		return nil, fmt.Errorf("orders: customer %d: %w", req.CustomerID, err)
	}

	items, subtotal, totalDiscount, totalTax, totalAmount, err := s.buildItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	n, err := s.sequences.Next(ctx, shared.SeqSalesOrder, s.repo.LastOrderNumber)
	if err != nil {
		return nil, fmt.Errorf("orders: next order number: %w", err)
	}

	status := StatusPendingDispatch
	if req.Status == StatusDraft {
		status = StatusDraft
	}

	order := SalesOrder{
		OrderNumber:          shared.DocNumber("SO", n),
		CustomerID:           req.CustomerID,
		ExpectedDeliveryDate: req.ExpectedDeliveryDate,
		Items:                items,
		Subtotal:             subtotal,
		TotalDiscount:        totalDiscount,
		TotalTax:             totalTax,
		TotalAmount:          totalAmount,
		Status:               status,
		DispatchStatus:       DispatchPending,
		Notes:                req.Notes,
		CreatedBy:            shared.ActorID(ctx),
	}

	id, err := s.repo.Create(ctx, &order)
	if err != nil {
		return nil, fmt.Errorf("orders: create: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// buildItems resolves every sku, checks availability against current stock
// and recomputes the line and aggregate totals.
func (s *Service) buildItems(ctx context.Context, reqs []ItemRequest) ([]OrderItem, float64, float64, float64, float64, error) {
	items := make([]OrderItem, 0, len(reqs))
	var lineTotals, grossTotals []float64
	var totalDiscount, totalTax float64

	for _, it := range reqs {
		sku, err := s.skuRepo.Get(ctx, it.SKUID)
		if err != nil {
			return nil, 0, 0, 0, 0, fmt.Errorf("orders: sku %d: %w", it.SKUID, err)
		}
		if sku.CurrentStock < it.Quantity {
			return nil, 0, 0, 0, 0, fmt.Errorf(
				"orders: insufficient stock for %s, available %d, required %d: %w",
				sku.Name, sku.CurrentStock, it.Quantity, httpx.ErrInsufficientStock)
		}

		lineTotal := salesmath.LineTotal(it.Quantity, it.UnitPrice, it.Discount, it.Tax)
		items = append(items, OrderItem{
			SKUID:       it.SKUID,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Discount:    it.Discount,
			Tax:         it.Tax,
			TotalAmount: lineTotal,
		})
		lineTotals = append(lineTotals, lineTotal)
		grossTotals = append(grossTotals, salesmath.LineTotal(it.Quantity, it.UnitPrice, 0, 0))
		totalDiscount += it.Discount
		totalTax += it.Tax
	}

	subtotal := salesmath.SumTotals(grossTotals)
	totalAmount := salesmath.SumTotals(lineTotals)
	return items, subtotal, totalDiscount, totalTax, totalAmount, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*SalesOrder, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListOrdersRequest) ([]SalesOrder, int, error) {
	return s.repo.List(ctx, req)
}

// Update only applies to draft orders. A status change to confirmed stamps
// the approver and reserves stock for every line.
func (s *Service) Update(ctx context.Context, id int64, req UpdateOrderRequest) (*SalesOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != StatusDraft {
		return nil, ErrNotEditable
	}

	if req.Items != nil {
		items, subtotal, totalDiscount, totalTax, totalAmount, err := s.buildItems(ctx, req.Items)
		if err != nil {
			return nil, err
		}
		if err := s.repo.ReplaceItems(ctx, id, items, subtotal, totalDiscount, totalTax, totalAmount); err != nil {
			return nil, fmt.Errorf("orders: replace items: %w", err)
		}
		order.Items = items
	}

	updates := make(map[string]interface{})
	if req.CustomerID != nil {
		if _, err := s.custRepo.Get(ctx, *req.CustomerID); err != nil {
			return nil, fmt.Errorf("orders: customer %d: %w", *req.CustomerID, err)
		}
		updates["customer_id"] = *req.CustomerID
	}
	if req.ExpectedDeliveryDate != nil {
		updates["expected_delivery_date"] = *req.ExpectedDeliveryDate
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	if req.Status != nil && *req.Status != order.Status {
		if *req.Status == StatusConfirmed {
			actorID := shared.ActorID(ctx)
			updates["approved_by"] = actorID
			updates["approved_at"] = time.Now()

			movements := make([]ledger.Movement, 0, len(order.Items))
			for _, it := range order.Items {
				movements = append(movements, ledger.Movement{
					SKUID:     it.SKUID,
					Quantity:  it.Quantity,
					UnitPrice: it.UnitPrice,
					Notes:     fmt.Sprintf("Reserved for Sales Order %s", order.OrderNumber),
				})
			}
			ref := ledger.Reference{Kind: ledger.RefSalesOrder, ID: order.ID}
			if err := s.ledger.Reserve(ctx, movements, ref, actorID); err != nil {
				return nil, fmt.Errorf("orders: reserve stock: %w", err)
			}
		}
		updates["status"] = string(*req.Status)
	}

	if len(updates) > 0 {
		if err := s.repo.UpdateHeader(ctx, id, updates); err != nil {
			return nil, fmt.Errorf("orders: update: %w", err)
		}
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if order.Status != StatusDraft {
		return ErrNotDeletable
	}
	return s.repo.Delete(ctx, id)
}

// Dispatch consumes stock for every requested line and moves the order to
// dispatched. The stock effects run in a single transaction: when any line
// lacks stock, no counter moves at all.
func (s *Service) Dispatch(ctx context.Context, id int64, req DispatchRequest) (*SalesOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != StatusPendingDispatch {
		return nil, ErrNotDispatchable
	}

	unitPrices := make(map[int64]float64, len(order.Items))
	for _, it := range order.Items {
		unitPrices[it.SKUID] = it.UnitPrice
	}

	now := time.Now()
	movements := make([]ledger.Movement, 0, len(req.DispatchedItems))
	dispatched := make([]DispatchedItem, 0, len(req.DispatchedItems))
	for _, line := range req.DispatchedItems {
		// Lines absent from the order dispatch at unit price zero, matching
		// how the dashboard has always consumed this endpoint.
		movements = append(movements, ledger.Movement{
			SKUID:     line.SKUID,
			Quantity:  line.Quantity,
			UnitPrice: unitPrices[line.SKUID],
			Notes:     fmt.Sprintf("Dispatched from Sales Order %s", order.OrderNumber),
		})
		dispatched = append(dispatched, DispatchedItem{
			SKUID:        line.SKUID,
			Quantity:     line.Quantity,
			DispatchedAt: now,
		})
	}

	ref := ledger.Reference{Kind: ledger.RefSalesOrder, ID: order.ID}
	if err := s.ledger.Consume(ctx, movements, ref, shared.ActorID(ctx)); err != nil {
		return nil, err
	}

	if err := s.repo.MarkDispatched(ctx, id, dispatched); err != nil {
		return nil, fmt.Errorf("orders: mark dispatched: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Stats aggregates order counts and revenue. Concurrent dashboard refreshes
// collapse into one query via singleflight.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	v, err, _ := s.stats.Do("sales-order-stats", func() (interface{}, error) {
		return s.repo.Stats(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Stats), nil
}
