package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/app"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/ledger"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/masterdata/customers"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/masterdata/skus"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/masterdata/suppliers"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/masterdata/warehouses"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/platform/cache"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/platform/db"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/procurement/indents"
	purchaseorders "github.com/finamite03/imsBackupWithAllFeatures/internal/procurement/orders"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/sales/invoices"
	salesorders "github.com/finamite03/imsBackupWithAllFeatures/internal/sales/orders"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/sales/returns"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/shared"
	"github.com/finamite03/imsBackupWithAllFeatures/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	skuRepo := skus.NewRepository(pool)
	skuService := skus.NewService(skuRepo)
	skuHandler := skus.NewHandler(logger, skuService)

	warehouseRepo := warehouses.NewRepository(pool)
	warehouseService := warehouses.NewService(warehouseRepo)
	warehouseHandler := warehouses.NewHandler(logger, warehouseService)

	customerRepo := customers.NewRepository(pool)
	customerService := customers.NewService(customerRepo)
	customerHandler := customers.NewHandler(logger, customerService)

	supplierRepo := suppliers.NewRepository(pool)
	supplierService := suppliers.NewService(supplierRepo)
	supplierHandler := suppliers.NewHandler(logger, supplierService)

	orderRepo := salesorders.NewRepository(pool)
	orderService := salesorders.NewService(orderRepo, skuRepo, customerRepo, ledgerService, sequences)
	orderHandler := salesorders.NewHandler(logger, orderService)

	invoiceRepo := invoices.NewRepository(pool)
	invoiceService := invoices.NewService(invoiceRepo, customerRepo, orderRepo, skuRepo, ledgerService, sequences)
	invoiceHandler := invoices.NewHandler(logger, invoiceService)

	returnRepo := returns.NewRepository(pool)
	returnService := returns.NewService(returnRepo, orderRepo, ledgerService, sequences)
	returnHandler := returns.NewHandler(logger, returnService)

	indentRepo := indents.NewRepository(pool)
	indentService := indents.NewService(indentRepo, sequences)
	indentHandler := indents.NewHandler(logger, indentService)

	poRepo := purchaseorders.NewRepository(pool)
	poService := purchaseorders.NewService(poRepo, supplierRepo, indentRepo, ledgerService, sequences)
	poHandler := purchaseorders.NewHandler(logger, poService)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(logger, jobsClient)

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		SKUHandler:           skuHandler,
		WarehouseHandler:     warehouseHandler,
		CustomerHandler:      customerHandler,
		SupplierHandler:      supplierHandler,
		SalesOrderHandler:    orderHandler,
		InvoiceHandler:       invoiceHandler,
		SalesReturnHandler:   returnHandler,
		IndentHandler:        indentHandler,
		PurchaseOrderHandler: poHandler,
		LedgerHandler:        ledgerHandler,
		JobsHandler:          jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
