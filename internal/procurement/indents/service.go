package indents

import (
	"context"
	"fmt"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/shared"
)

type Service struct {
	repo      Repository
	sequences *shared.SequenceGenerator
}

func NewService(repo Repository, sequences *shared.SequenceGenerator) *Service {
	return &Service{repo: repo, sequences: sequences}
}

// Create raises a new indent in Pending with the next sequential indent
// number, starting at 1.
func (s *Service) Create(ctx context.Context, req CreateIndentRequest) (*PurchaseIndent, error) {
	n, err := s.sequences.Next(ctx, shared.SeqIndent, s.repo.LastIndentID)
	if err != nil {
		return nil, fmt.Errorf("indents: next indent id: %w", err)
	}

	indent := PurchaseIndent{
		IndentID:  n,
		Items:     toItems(req.Items),
		Status:    StatusPending,
		CreatedBy: shared.ActorID(ctx),
	}

	id, err := s.repo.Create(ctx, &indent)
	if err != nil {
		return nil, fmt.Errorf("indents: create: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*PurchaseIndent, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]PurchaseIndent, error) {
	return s.repo.List(ctx, nil)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateIndentRequest) (*PurchaseIndent, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}

	if req.Items != nil {
		if err := s.repo.ReplaceItems(ctx, id, toItems(req.Items)); err != nil {
			return nil, fmt.Errorf("indents: replace items: %w", err)
		}
	}
	if req.Status != nil {
		if err := s.repo.SetStatus(ctx, id, *req.Status, nil); err != nil {
			return nil, fmt.Errorf("indents: set status: %w", err)
		}
	}
	return s.repo.Get(ctx, id)
}

// Delete is a soft delete: the indent stays on record with status Deleted.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.SetStatus(ctx, id, StatusDeleted, nil)
}

// Approve marks the indent Approved and creates the approval document in PO
// Pending. The approver may override the item list; otherwise the original
// items carry over.
func (s *Service) Approve(ctx context.Context, id int64, req ApproveIndentRequest) (*PurchaseIndent, *Approval, error) {
	indent, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	actorID := shared.ActorID(ctx)
	if err := s.repo.SetStatus(ctx, id, StatusApproved, &actorID); err != nil {
		return nil, nil, fmt.Errorf("indents: approve: %w", err)
	}

	items := indent.Items
	if req.Items != nil {
		items = toItems(req.Items)
	}

	approval := Approval{
		IndentRef:       indent.ID,
		IndentID:        indent.IndentID,
		Items:           items,
		Status:          ApprovalPOPending,
		ApprovedBy:      actorID,
		ApprovalRemarks: req.ApprovalRemarks,
	}

	approvalID, err := s.repo.CreateApproval(ctx, &approval)
	if err != nil {
		return nil, nil, fmt.Errorf("indents: create approval: %w", err)
	}

	approved, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	created, err := s.repo.GetApproval(ctx, approvalID)
	if err != nil {
		return nil, nil, err
	}
	return approved, created, nil
}

// PendingForApproval lists indents still waiting on a decision.
func (s *Service) PendingForApproval(ctx context.Context) ([]PurchaseIndent, error) {
	status := StatusPending
	return s.repo.List(ctx, &status)
}

// ApprovedIndents lists every approval document, newest first.
func (s *Service) ApprovedIndents(ctx context.Context) ([]Approval, error) {
	return s.repo.ListApprovals(ctx, nil)
}

func toItems(reqs []ItemRequest) []IndentItem {
	items := make([]IndentItem, 0, len(reqs))
	for _, it := range reqs {
		items = append(items, IndentItem{
			SKUID:    it.SKUID,
			Quantity: it.Quantity,
			VendorID: it.VendorID,
		})
	}
	return items
}
