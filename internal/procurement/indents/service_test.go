package indents

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/shared"
)

type memoryIndentRepo struct {
	nextID         int64
	nextApprovalID int64
	indents        map[int64]*PurchaseIndent
	approvals      map[int64]*Approval
}

func newMemoryIndentRepo() *memoryIndentRepo {
	return &memoryIndentRepo{
		indents:   make(map[int64]*PurchaseIndent),
		approvals: make(map[int64]*Approval),
	}
}

func (m *memoryIndentRepo) Create(_ context.Context, indent *PurchaseIndent) (int64, error) {
	m.nextID++
	clone := *indent
	clone.ID = m.nextID
	m.indents[clone.ID] = &clone
	return clone.ID, nil
}

func (m *memoryIndentRepo) Get(_ context.Context, id int64) (*PurchaseIndent, error) {
	indent, ok := m.indents[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *indent
	return &clone, nil
}

func (m *memoryIndentRepo) List(_ context.Context, status *Status) ([]PurchaseIndent, error) {
	var out []PurchaseIndent
	for _, indent := range m.indents {
		if status != nil && indent.Status != *status {
			continue
		}
		out = append(out, *indent)
	}
	return out, nil
}

func (m *memoryIndentRepo) ReplaceItems(_ context.Context, id int64, items []IndentItem) error {
	indent, ok := m.indents[id]
	if !ok {
		return ErrNotFound
	}
	indent.Items = items
	return nil
}

func (m *memoryIndentRepo) SetStatus(_ context.Context, id int64, status Status, approvedBy *int64) error {
	indent, ok := m.indents[id]
	if !ok {
		return ErrNotFound
	}
	indent.Status = status
	if approvedBy != nil {
		indent.ApprovedBy = approvedBy
	}
	return nil
}

func (m *memoryIndentRepo) LastIndentID(_ context.Context) (int64, error) {
	var last int64
	for _, indent := range m.indents {
		if indent.IndentID > last {
			last = indent.IndentID
		}
	}
	return last, nil
}

func (m *memoryIndentRepo) CreateApproval(_ context.Context, approval *Approval) (int64, error) {
	m.nextApprovalID++
	clone := *approval
	clone.ID = m.nextApprovalID
	m.approvals[clone.ID] = &clone
	return clone.ID, nil
}

func (m *memoryIndentRepo) GetApproval(_ context.Context, id int64) (*Approval, error) {
	approval, ok := m.approvals[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *approval
	return &clone, nil
}

func (m *memoryIndentRepo) ListApprovals(_ context.Context, status *ApprovalStatus) ([]Approval, error) {
	var out []Approval
	for _, approval := range m.approvals {
		if status != nil && approval.Status != *status {
			continue
		}
		out = append(out, *approval)
	}
	return out, nil
}

func (m *memoryIndentRepo) SetApprovalStatus(_ context.Context, ids []int64, status ApprovalStatus) error {
	for _, id := range ids {
		if approval, ok := m.approvals[id]; ok {
			approval.Status = status
		}
	}
	return nil
}

func newTestService(t *testing.T) (*Service, *memoryIndentRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := newMemoryIndentRepo()
	return NewService(repo, shared.NewSequenceGenerator(client)), repo
}

func actorContext(id int64) context.Context {
	return shared.ContextWithActor(context.Background(), shared.Actor{ID: id, Name: "Asha", Email: "asha@example.com"})
}

func TestCreateAssignsSequentialIndentIDs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorContext(7)

	vendor := int64(3)
	first, err := svc.Create(ctx, CreateIndentRequest{
		Items: []ItemRequest{{SKUID: 1, Quantity: 5, VendorID: &vendor}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), first.IndentID)
	require.Equal(t, StatusPending, first.Status)
	require.Equal(t, int64(7), first.CreatedBy)
	require.Len(t, first.Items, 1)
	require.Equal(t, &vendor, first.Items[0].VendorID)

	second, err := svc.Create(ctx, CreateIndentRequest{
		Items: []ItemRequest{{SKUID: 2, Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), second.IndentID)
}

func TestDeleteIsSoft(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := actorContext(7)

	indent, err := svc.Create(ctx, CreateIndentRequest{
		Items: []ItemRequest{{SKUID: 1, Quantity: 5}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, indent.ID))

	kept, ok := repo.indents[indent.ID]
	require.True(t, ok, "soft delete must keep the row")
	require.Equal(t, StatusDeleted, kept.Status)
}

func TestApproveCreatesApprovalDocument(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorContext(9)

	indent, err := svc.Create(ctx, CreateIndentRequest{
		Items: []ItemRequest{{SKUID: 1, Quantity: 5}, {SKUID: 2, Quantity: 3}},
	})
	require.NoError(t, err)

	approved, approval, err := svc.Approve(ctx, indent.ID, ApproveIndentRequest{ApprovalRemarks: "ok to buy"})
	require.NoError(t, err)

	require.Equal(t, StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	require.Equal(t, int64(9), *approved.ApprovedBy)

	require.Equal(t, indent.ID, approval.IndentRef)
	require.Equal(t, indent.IndentID, approval.IndentID)
	require.Equal(t, ApprovalPOPending, approval.Status)
	require.Equal(t, "ok to buy", approval.ApprovalRemarks)
	require.Len(t, approval.Items, 2)
}

func TestApproveWithItemOverride(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorContext(9)

	indent, err := svc.Create(ctx, CreateIndentRequest{
		Items: []ItemRequest{{SKUID: 1, Quantity: 5}},
	})
	require.NoError(t, err)

	vendor := int64(4)
	_, approval, err := svc.Approve(ctx, indent.ID, ApproveIndentRequest{
		Items: []ItemRequest{{SKUID: 1, Quantity: 3, VendorID: &vendor}},
	})
	require.NoError(t, err)

	require.Len(t, approval.Items, 1)
	require.Equal(t, 3, approval.Items[0].Quantity)
	require.Equal(t, &vendor, approval.Items[0].VendorID)
}

func TestApproveUnknownIndent(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Approve(actorContext(9), 42, ApproveIndentRequest{})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestPendingForApprovalFiltersStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorContext(7)

	first, err := svc.Create(ctx, CreateIndentRequest{Items: []ItemRequest{{SKUID: 1, Quantity: 1}}})
	require.NoError(t, err)
	second, err := svc.Create(ctx, CreateIndentRequest{Items: []ItemRequest{{SKUID: 2, Quantity: 2}}})
	require.NoError(t, err)

	_, _, err = svc.Approve(ctx, first.ID, ApproveIndentRequest{})
	require.NoError(t, err)

	pending, err := svc.PendingForApproval(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, second.ID, pending[0].ID)

	approvals, err := svc.ApprovedIndents(ctx)
	require.NoError(t, err)
	require.Len(t, approvals, 1)
}
