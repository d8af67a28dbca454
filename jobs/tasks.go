package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInvoicesMarkOverdue flips past-due invoices to overdue.
	TaskInvoicesMarkOverdue = "invoices:mark-overdue"
	// TaskInventoryLowStockScan reports SKUs at or below their minimum stock.
	TaskInventoryLowStockScan = "inventory:low-stock-scan"
)

// MarkOverduePayload carries scheduling metadata for the overdue sweep.
type MarkOverduePayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewMarkOverdueTask constructs an Asynq task for the overdue sweep.
func NewMarkOverdueTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(MarkOverduePayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoicesMarkOverdue, body, asynq.Queue(QueueDefault)), nil
}

// LowStockScanPayload carries scheduling metadata for the low-stock scan.
type LowStockScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLowStockScanTask constructs an Asynq task for the low-stock scan.
func NewLowStockScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInventoryLowStockScan, body, asynq.Queue(QueueDefault)), nil
}
