package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
)

// OverdueMarker is the slice of the invoice service the sweep needs.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context) (int64, error)
}

// MarkOverdueJob moves sent and partially paid invoices past their due date
// into overdue.
type MarkOverdueJob struct {
	Invoices OverdueMarker
	Logger   *slog.Logger
}

// NewMarkOverdueJob initialises the overdue sweep handler.
func NewMarkOverdueJob(invoices OverdueMarker, logger *slog.Logger) *MarkOverdueJob {
	return &MarkOverdueJob{Invoices: invoices, Logger: logger}
}

// Handle executes the overdue sweep.
func (j *MarkOverdueJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Invoices == nil {
		return errors.New("mark overdue: handler not configured")
	}
	var payload MarkOverduePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	logger := j.logger()
	logger.Info("starting overdue sweep")

	flipped, err := j.Invoices.MarkOverdue(ctx)
	if err != nil {
		logger.Error("overdue sweep failed", slog.Any("error", err))
		return err
	}

	logger.Info("completed overdue sweep", slog.Int64("invoices_flipped", flipped))
	return nil
}

func (j *MarkOverdueJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskInvoicesMarkOverdue))
	}
	return slog.Default().With(slog.String("job", TaskInvoicesMarkOverdue))
}
