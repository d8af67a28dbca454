package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/ledger"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/masterdata/customers"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/masterdata/skus"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/masterdata/suppliers"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/masterdata/warehouses"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/procurement/indents"
	purchaseorders "github.com/finamite03/imsBackupWithAllFeatures/internal/procurement/orders"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/sales/invoices"
	salesorders "github.com/finamite03/imsBackupWithAllFeatures/internal/sales/orders"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/sales/returns"
	"github.com/finamite03/imsBackupWithAllFeatures/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	SKUHandler           *skus.Handler
	WarehouseHandler     *warehouses.Handler
	CustomerHandler      *customers.Handler
	SupplierHandler      *suppliers.Handler
	SalesOrderHandler    *salesorders.Handler
	InvoiceHandler       *invoices.Handler
	SalesReturnHandler   *returns.Handler
	IndentHandler        *indents.Handler
	PurchaseOrderHandler *purchaseorders.Handler
	LedgerHandler        *ledger.Handler
	JobsHandler          *jobs.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(BearerAuth(MiddlewareConfig{Logger: params.Logger, Config: params.Config}))

		api.Route("/skus", params.SKUHandler.MountRoutes)
		api.Route("/warehouses", params.WarehouseHandler.MountRoutes)
		api.Route("/customers", params.CustomerHandler.MountRoutes)
		api.Route("/suppliers", params.SupplierHandler.MountRoutes)
		api.Route("/sales-orders", params.SalesOrderHandler.MountRoutes)
		api.Route("/invoices", params.InvoiceHandler.MountRoutes)
		api.Route("/sales-returns", params.SalesReturnHandler.MountRoutes)
		api.Route("/purchase-indents", params.IndentHandler.MountRoutes)
		api.Route("/purchase-orders", params.PurchaseOrderHandler.MountRoutes)
		api.Route("/transactions", params.LedgerHandler.MountRoutes)
		api.Route("/jobs", params.JobsHandler.MountRoutes)
	})

	return r
}
