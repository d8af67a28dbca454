package jobs

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/platform/httpx"
)

// Enqueuer submits on-demand jobs to the queue. *Client satisfies it.
type Enqueuer interface {
	EnqueueMarkOverdue(ctx context.Context, at time.Time) (*asynq.TaskInfo, error)
	EnqueueLowStockScan(ctx context.Context, at time.Time) (*asynq.TaskInfo, error)
}

// Handler exposes manual triggers for the scheduled jobs, so operators can
// run a sweep without waiting for the next cron tick.
type Handler struct {
	logger *slog.Logger
	queue  Enqueuer
}

// NewHandler constructs the jobs handler.
func NewHandler(logger *slog.Logger, queue Enqueuer) *Handler {
	return &Handler{logger: logger, queue: queue}
}

// MountRoutes registers the trigger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/mark-overdue", h.markOverdue)
	r.Post("/low-stock-scan", h.lowStockScan)
}

func (h *Handler) markOverdue(w http.ResponseWriter, r *http.Request) {
	info, err := h.queue.EnqueueMarkOverdue(r.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Error("enqueue overdue sweep", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{
		"message": "Overdue sweep queued",
		"taskId":  info.ID,
		"queue":   info.Queue,
	})
}

func (h *Handler) lowStockScan(w http.ResponseWriter, r *http.Request) {
	info, err := h.queue.EnqueueLowStockScan(r.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Error("enqueue low stock scan", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{
		"message": "Low stock scan queued",
		"taskId":  info.ID,
		"queue":   info.Queue,
	})
}
