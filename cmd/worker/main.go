package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/app"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/ledger"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/masterdata/customers"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/masterdata/skus"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/platform/cache"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/platform/db"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/sales/invoices"
	salesorders "github.com/finamite03/imsBackupWithAllFeatures/internal/sales/orders"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/shared"
	"github.com/finamite03/imsBackupWithAllFeatures/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sequences := shared.NewSequenceGenerator(redisClient)

	ledgerService := ledger.NewService(ledger.NewRepository(pool))
	skuRepo := skus.NewRepository(pool)
	skuService := skus.NewService(skuRepo)
	customerRepo := customers.NewRepository(pool)
	orderRepo := salesorders.NewRepository(pool)
	invoiceService := invoices.NewService(invoices.NewRepository(pool), customerRepo, orderRepo, skuRepo, ledgerService, sequences)

	overdueJob := jobs.NewMarkOverdueJob(invoiceService, logger)
	lowStockJob := jobs.NewLowStockScanJob(skuService, logger)

	overdueTask, err := jobs.NewMarkOverdueTask(time.Now().UTC())
	if err != nil {
		logger.Error("build overdue task", slog.Any("error", err))
		os.Exit(1)
	}
	lowStockTask, err := jobs.NewLowStockScanTask(time.Now().UTC())
	if err != nil {
		logger.Error("build low stock task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskInvoicesMarkOverdue, Handler: overdueJob.Handle},
			{Type: jobs.TaskInventoryLowStockScan, Handler: lowStockJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 1 * * *", Task: overdueTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 1 * * *", Task: lowStockTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
