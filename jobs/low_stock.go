package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/masterdata/skus"
)

// LowStockLister is the slice of the SKU service the scan needs.
type LowStockLister interface {
	ListBelowMinStock(ctx context.Context) ([]skus.SKU, error)
}

// LowStockScanJob reports every SKU whose current stock has fallen to or
// below its minimum.
type LowStockScanJob struct {
	SKUs   LowStockLister
	Logger *slog.Logger
}

// NewLowStockScanJob initialises the low-stock scan handler.
func NewLowStockScanJob(skuLister LowStockLister, logger *slog.Logger) *LowStockScanJob {
	return &LowStockScanJob{SKUs: skuLister, Logger: logger}
}

// Handle executes the low-stock scan.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.SKUs == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	logger := j.logger()
	logger.Info("starting low stock scan")

	low, err := j.SKUs.ListBelowMinStock(ctx)
	if err != nil {
		logger.Error("low stock scan failed", slog.Any("error", err))
		return err
	}

	for _, sku := range low {
		logger.Warn("sku below minimum stock",
			slog.Int64("sku_id", sku.ID),
			slog.String("code", sku.Code),
			slog.Int("current_stock", sku.CurrentStock),
			slog.Int("min_stock", sku.MinStock),
		)
	}

	logger.Info("completed low stock scan", slog.Int("skus_below_min", len(low)))
	return nil
}

func (j *LowStockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskInventoryLowStockScan))
	}
	return slog.Default().With(slog.String("job", TaskInventoryLowStockScan))
}
