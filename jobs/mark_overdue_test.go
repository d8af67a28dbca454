package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/masterdata/skus"
)

type stubMarker struct {
	flipped int64
	err     error
	calls   int
}

func (s *stubMarker) MarkOverdue(context.Context) (int64, error) {
	s.calls++
	return s.flipped, s.err
}

func TestMarkOverdueHandleRunsSweep(t *testing.T) {
	marker := &stubMarker{flipped: 3}
	job := NewMarkOverdueJob(marker, nil)

	task, err := NewMarkOverdueTask(time.Now())
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1, marker.calls)
}

func TestMarkOverdueHandlePropagatesError(t *testing.T) {
	marker := &stubMarker{err: errors.New("db down")}
	job := NewMarkOverdueJob(marker, nil)

	task, err := NewMarkOverdueTask(time.Now())
	require.NoError(t, err)

	require.Error(t, job.Handle(context.Background(), task))
}

func TestMarkOverdueHandleSkipsBadPayload(t *testing.T) {
	marker := &stubMarker{}
	job := NewMarkOverdueJob(marker, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskInvoicesMarkOverdue, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Zero(t, marker.calls)
}

type stubLister struct {
	low []skus.SKU
	err error
}

func (s *stubLister) ListBelowMinStock(context.Context) ([]skus.SKU, error) {
	return s.low, s.err
}

func TestLowStockScanHandle(t *testing.T) {
	lister := &stubLister{low: []skus.SKU{
		{ID: 1, Code: "WID-1", CurrentStock: 2, MinStock: 5},
	}}
	job := NewLowStockScanJob(lister, nil)

	task, err := NewLowStockScanTask(time.Now())
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
}
