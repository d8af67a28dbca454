package invoices

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/ledger"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/masterdata/customers"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/masterdata/skus"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/platform/httpx"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/sales/orders"
	salesmath "github.com/finamite03/imsBackupWithAllFeatures/internal/sales/shared"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/shared"
)

var ErrNotDeletable = fmt.Errorf("invoices: cannot delete paid or partially paid invoice: %w", httpx.ErrInvalidState)

// CustomerLookup resolves referenced customers.
type CustomerLookup interface {
	Get(ctx context.Context, id int64) (*customers.Customer, error)
}

// OrderLookup resolves referenced sales orders.
type OrderLookup interface {
	Get(ctx context.Context, id int64) (*orders.SalesOrder, error)
}

// SKULookup resolves referenced skus.
type SKULookup interface {
	Get(ctx context.Context, id int64) (*skus.SKU, error)
}

type Service struct {
	repo      Repository
	custRepo  CustomerLookup
	orderRepo OrderLookup
	skuRepo   SKULookup
	ledger    *ledger.Service
	sequences *shared.SequenceGenerator
	stats     singleflight.Group
	now       func() time.Time
}

func NewService(repo Repository, custRepo CustomerLookup, orderRepo OrderLookup, skuRepo SKULookup, led *ledger.Service, sequences *shared.SequenceGenerator) *Service {
	return &Service{
		repo:      repo,
		custRepo:  custRepo,
		orderRepo: orderRepo,
		skuRepo:   skuRepo,
		ledger:    led,
		sequences: sequences,
		now:       time.Now,
	}
}

// Create validates references, recomputes totals and records pending sales
// entries in the ledger. Raising an invoice never moves stock.
func (s *Service) Create(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error) {
	if _, err := s.custRepo.Get(ctx, req.CustomerID); err != nil {
		return nil, fmt.Errorf("invoices: customer %d: %w", req.CustomerID, err)
	}
	if req.SalesOrderID != nil {
		if _, err := s.orderRepo.Get(ctx, *req.SalesOrderID); err != nil {
			return nil, fmt.Errorf("invoices: sales order %d: %w", *req.SalesOrderID, err)
		}
	}

	items := make([]InvoiceItem, 0, len(req.Items))
	var lineTotals, grossTotals []float64
	var totalDiscount, totalTax float64
	for _, it := range req.Items {
		if _, err := s.skuRepo.Get(ctx, it.SKUID); err != nil {
			return nil, fmt.Errorf("invoices: sku %d: %w", it.SKUID, err)
		}
		lineTotal := salesmath.LineTotal(it.Quantity, it.UnitPrice, it.Discount, it.Tax)
		items = append(items, InvoiceItem{
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

	n, err := s.sequences.Next(ctx, shared.SeqInvoice, s.repo.LastInvoiceNumber)
	if err != nil {
		return nil, fmt.Errorf("invoices: next invoice number: %w", err)
	}

	actorID := shared.ActorID(ctx)
	inv := Invoice{
		InvoiceNumber: shared.DocNumber("INV", n),
		SalesOrderID:  req.SalesOrderID,
		CustomerID:    req.CustomerID,
		DueDate:       req.DueDate,
		Items:         items,
		Subtotal:      salesmath.SumTotals(grossTotals),
		TotalDiscount: totalDiscount,
		TotalTax:      totalTax,
		TotalAmount:   salesmath.SumTotals(lineTotals),
		Status:        StatusDraft,
		PaymentTerms:  req.PaymentTerms,
		Notes:         req.Notes,
		CreatedBy:     actorID,
	}

	id, err := s.repo.Create(ctx, &inv)
	if err != nil {
		return nil, fmt.Errorf("invoices: create: %w", err)
	}

	movements := make([]ledger.Movement, 0, len(items))
	for _, it := range items {
		movements = append(movements, ledger.Movement{
			SKUID:     it.SKUID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Notes:     fmt.Sprintf("Invoiced on %s", inv.InvoiceNumber),
		})
	}
	ref := ledger.Reference{Kind: ledger.RefInvoice, ID: id}
	if err := s.ledger.RecordSale(ctx, movements, ref, actorID); err != nil {
		return nil, fmt.Errorf("invoices: record sale: %w", err)
	}

	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	return s.repo.List(ctx, req)
}

// Update applies status and payment changes. An explicit transition to paid
// settles the ledger entries and applies the payment-time stock decrement for
// every invoice line, independent of any dispatch that already happened for
// the same order. Setting paidAmount derives the status on its own without
// moving stock.
func (s *Service) Update(ctx context.Context, id int64, req UpdateInvoiceRequest) (*Invoice, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})

	if req.Status != nil {
		if *req.Status == StatusPaid {
			ref := ledger.Reference{Kind: ledger.RefInvoice, ID: inv.ID}
			if err := s.ledger.MarkReference(ctx, ref, ledger.TransactionStatusCompleted); err != nil {
				return nil, fmt.Errorf("invoices: settle ledger: %w", err)
			}

			movements := make([]ledger.Movement, 0, len(inv.Items))
			for _, it := range inv.Items {
				movements = append(movements, ledger.Movement{
					SKUID:     it.SKUID,
					Quantity:  it.Quantity,
					UnitPrice: it.UnitPrice,
				})
			}
			if err := s.ledger.SettleSale(ctx, movements, ref); err != nil {
				return nil, fmt.Errorf("invoices: payment stock deduction: %w", err)
			}
		}
		updates["status"] = string(*req.Status)
	}

	if req.PaidAmount != nil {
		updates["paid_amount"] = *req.PaidAmount
		switch {
		case salesmath.Outstanding(inv.TotalAmount, *req.PaidAmount) == 0:
			updates["status"] = string(StatusPaid)
		case *req.PaidAmount > 0:
			updates["status"] = string(StatusPartiallyPaid)
		}
	}

	if len(updates) > 0 {
		if err := s.repo.UpdateHeader(ctx, id, updates); err != nil {
			return nil, fmt.Errorf("invoices: update: %w", err)
		}
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a never-paid invoice together with its ledger entries.
func (s *Service) Delete(ctx context.Context, id int64) error {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if inv.Status == StatusPaid || inv.Status == StatusPartiallyPaid {
		return ErrNotDeletable
	}

	ref := ledger.Reference{Kind: ledger.RefInvoice, ID: inv.ID}
	if err := s.ledger.DropReference(ctx, ref); err != nil {
		return fmt.Errorf("invoices: drop ledger entries: %w", err)
	}
	return s.repo.Delete(ctx, id)
}

// Stats aggregates invoice counts, collected revenue and the overdue count.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	v, err, _ := s.stats.Do("invoice-stats", func() (interface{}, error) {
		return s.repo.Stats(ctx, s.now())
	})
	if err != nil {
		return nil, err
	}
	return v.(*Stats), nil
}

// MarkOverdue transitions past-due sent and partially paid invoices to
// overdue. Called from the background worker.
func (s *Service) MarkOverdue(ctx context.Context) (int64, error) {
	return s.repo.MarkOverdue(ctx, s.now())
}
