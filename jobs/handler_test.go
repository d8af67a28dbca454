package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type stubEnqueuer struct {
	overdue  int
	lowStock int
	err      error
}

func (s *stubEnqueuer) EnqueueMarkOverdue(_ context.Context, _ time.Time) (*asynq.TaskInfo, error) {
	s.overdue++
	if s.err != nil {
		return nil, s.err
	}
	return &asynq.TaskInfo{ID: "task-overdue", Queue: QueueDefault}, nil
}

func (s *stubEnqueuer) EnqueueLowStockScan(_ context.Context, _ time.Time) (*asynq.TaskInfo, error) {
	s.lowStock++
	if s.err != nil {
		return nil, s.err
	}
	return &asynq.TaskInfo{ID: "task-low-stock", Queue: QueueDefault}, nil
}

func newJobsRouter(queue Enqueuer) http.Handler {
	r := chi.NewRouter()
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), queue)
	r.Route("/jobs", h.MountRoutes)
	return r
}

func TestTriggerMarkOverdueQueuesTask(t *testing.T) {
	queue := &stubEnqueuer{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/jobs/mark-overdue", nil)
	newJobsRouter(queue).ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, 1, queue.overdue)
	require.Contains(t, rec.Body.String(), "task-overdue")
}

func TestTriggerLowStockScanQueuesTask(t *testing.T) {
	queue := &stubEnqueuer{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/jobs/low-stock-scan", nil)
	newJobsRouter(queue).ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, 1, queue.lowStock)
	require.Contains(t, rec.Body.String(), "task-low-stock")
}

func TestTriggerEnqueueFailure(t *testing.T) {
	queue := &stubEnqueuer{err: errors.New("redis down")}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/jobs/mark-overdue", nil)
	newJobsRouter(queue).ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
