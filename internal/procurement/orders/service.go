package orders

import (
	"context"
	"fmt"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/ledger"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/masterdata/suppliers"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/platform/httpx"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/procurement/indents"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/shared"
)

var (
	ErrVendorNotFound   = fmt.Errorf("purchase orders: vendor: %w", httpx.ErrNotFound)
	ErrNoApprovedItems  = fmt.Errorf("purchase orders: no approved items for vendor: %w", httpx.ErrNotFound)
	ErrAlreadyStockedIn = fmt.Errorf("purchase orders: already stocked in: %w", httpx.ErrInvalidState)
)

// VendorLookup resolves supplier references.
type VendorLookup interface {
	Get(ctx context.Context, id int64) (*suppliers.Supplier, error)
}

// ApprovalStore is the slice of the indent repository POs consume: reading
// approval documents and flipping their status once a PO picks them up.
type ApprovalStore interface {
	ListApprovals(ctx context.Context, status *indents.ApprovalStatus) ([]indents.Approval, error)
	SetApprovalStatus(ctx context.Context, ids []int64, status indents.ApprovalStatus) error
}

type Service struct {
	repo      Repository
	vendors   VendorLookup
	approvals ApprovalStore
	ledger    *ledger.Service
	sequences *shared.SequenceGenerator
}

func NewService(repo Repository, vendors VendorLookup, approvals ApprovalStore, ledgerSvc *ledger.Service, sequences *shared.SequenceGenerator) *Service {
	return &Service{repo: repo, vendors: vendors, approvals: approvals, ledger: ledgerSvc, sequences: sequences}
}

// Create issues a purchase order against one or more indent approvals and
// flips those approvals to PO Created. Numbers start at 1001.
func (s *Service) Create(ctx context.Context, req CreatePORequest) (*PurchaseOrder, error) {
	if _, err := s.vendors.Get(ctx, req.VendorID); err != nil {
		return nil, ErrVendorNotFound
	}

	n, err := s.sequences.Next(ctx, shared.SeqPurchaseOrder, s.seedPONumber)
	if err != nil {
		return nil, fmt.Errorf("purchase orders: next po number: %w", err)
	}

	items := make([]POItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, POItem{SKUID: it.SKUID, Quantity: it.Quantity})
	}

	po := PurchaseOrder{
		PONumber:          n,
		VendorID:          req.VendorID,
		Items:             items,
		IndentApprovalIDs: req.IndentApprovalIDs,
		DeliveryDueDate:   req.DeliveryDueDate,
		PaymentDays:       req.PaymentDays,
		Freight:           req.Freight,
		Status:            StatusIssued,
		StockInStatus:     StockInPending,
		CreatedBy:         shared.ActorID(ctx),
	}

	id, err := s.repo.Create(ctx, &po)
	if err != nil {
		return nil, fmt.Errorf("purchase orders: create: %w", err)
	}

	if err := s.approvals.SetApprovalStatus(ctx, req.IndentApprovalIDs, indents.ApprovalPOCreated); err != nil {
		return nil, fmt.Errorf("purchase orders: mark approvals: %w", err)
	}

	return s.repo.Get(ctx, id)
}

// seedPONumber bootstraps the counter so the first issued number is 1001 even
// on an empty database.
func (s *Service) seedPONumber(ctx context.Context) (int64, error) {
	last, err := s.repo.LastPONumber(ctx)
	if err != nil {
		return 0, err
	}
	if last < 1000 {
		last = 1000
	}
	return last, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*PurchaseOrder, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]PurchaseOrder, error) {
	return s.repo.List(ctx)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdatePORequest) (*PurchaseOrder, error) {
	updates := map[string]interface{}{}
	if req.Status != nil {
		updates["status"] = string(*req.Status)
	}
	if req.DeliveryDueDate != nil {
		updates["delivery_due_date"] = *req.DeliveryDueDate
	}
	if req.PaymentDays != nil {
		updates["payment_days"] = *req.PaymentDays
	}
	if req.Freight != nil {
		updates["freight"] = *req.Freight
	}

	if err := s.repo.UpdateHeader(ctx, id, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// ApprovedItemsByVendor flattens every PO Pending approval line assigned to
// the vendor, ready to be pulled onto a new purchase order.
func (s *Service) ApprovedItemsByVendor(ctx context.Context, vendorID int64) ([]ApprovedVendorItem, error) {
	status := indents.ApprovalPOPending
	approvals, err := s.approvals.ListApprovals(ctx, &status)
	if err != nil {
		return nil, fmt.Errorf("purchase orders: list approvals: %w", err)
	}

	var out []ApprovedVendorItem
	for _, a := range approvals {
		for _, it := range a.Items {
			if it.VendorID == nil || *it.VendorID != vendorID {
				continue
			}
			out = append(out, ApprovedVendorItem{
				ItemID:           it.SKUID,
				SKU:              it.SKU,
				Quantity:         it.Quantity,
				IndentID:         a.IndentID,
				IndentApprovalID: a.ID,
			})
		}
	}
	if len(out) == 0 {
		return nil, ErrNoApprovedItems
	}
	return out, nil
}

// StockIn credits every PO line into stock and marks the order Stocked In.
// A second stock-in is rejected so stock is never credited twice.
func (s *Service) StockIn(ctx context.Context, id int64) (*PurchaseOrder, error) {
	po, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if po.StockInStatus == StockedIn {
		return nil, ErrAlreadyStockedIn
	}

	movements := make([]ledger.Movement, 0, len(po.Items))
	for _, it := range po.Items {
		movements = append(movements, ledger.Movement{
			SKUID:    it.SKUID,
			Quantity: it.Quantity,
			Notes:    fmt.Sprintf("Stock in from Purchase Order %d", po.PONumber),
		})
	}

	ref := ledger.Reference{Kind: ledger.RefPurchaseOrder, ID: po.ID}
	if err := s.ledger.Credit(ctx, movements, ref, shared.ActorID(ctx)); err != nil {
		return nil, fmt.Errorf("purchase orders: credit stock: %w", err)
	}

	if err := s.repo.SetStockInStatus(ctx, id, StockedIn); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}
