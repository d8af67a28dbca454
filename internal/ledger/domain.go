package ledger

import (
	"fmt"
	"time"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/platform/httpx"
)

// TransactionType enumerates supported stock movements.
type TransactionType string

const (
	// TransactionInbound represents stock re-entering the warehouse (returns, receipts).
	TransactionInbound TransactionType = "inbound"
	// TransactionOutbound represents stock leaving on dispatch.
	TransactionOutbound TransactionType = "outbound"
	// TransactionSales is the financial record written when an invoice is raised.
	TransactionSales TransactionType = "sales"
	// TransactionReservation earmarks stock for a confirmed order.
	TransactionReservation TransactionType = "reservation"
	// TransactionRelease undoes a reservation.
	TransactionRelease TransactionType = "release"
)

// TransactionStatus tracks settlement of invoice-linked entries. Movement
// entries are completed as soon as they are written.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
)

// ReferenceKind tags the document that caused a movement.
type ReferenceKind string

const (
	RefSalesOrder    ReferenceKind = "SalesOrder"
	RefInvoice       ReferenceKind = "Invoice"
	RefSalesReturn   ReferenceKind = "SalesReturn"
	RefPurchaseOrder ReferenceKind = "PurchaseOrder"
)

// Reference links a ledger entry to its causing document.
type Reference struct {
	Kind ReferenceKind `json:"referenceType"`
	ID   int64         `json:"referenceId"`
}

// Transaction is one append-only ledger entry. Code is the external
// identifier handed to the dashboard; the numeric id stays internal.
type Transaction struct {
	ID          int64             `json:"id"`
	Code        string            `json:"transactionCode"`
	Type        TransactionType   `json:"type"`
	SKUID       int64             `json:"sku"`
	Quantity    int               `json:"quantity"`
	UnitPrice   float64           `json:"unitPrice"`
	TotalAmount float64           `json:"totalAmount"`
	Reference   Reference         `json:"reference"`
	Status      TransactionStatus `json:"status"`
	Notes       string            `json:"notes,omitempty"`
	CreatedBy   int64             `json:"createdBy"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// Movement describes one SKU quantity change requested from the ledger.
type Movement struct {
	SKUID     int64
	Quantity  int
	UnitPrice float64
	Notes     string
}

// ListFilter narrows ledger listings.
type ListFilter struct {
	Type   *TransactionType
	SKUID  *int64
	Limit  int
	Offset int
}

// Sentinels chain to the httpx taxonomy so handlers map them uniformly.
var (
	// ErrSKUNotFound indicates the referenced SKU row is missing.
	ErrSKUNotFound = fmt.Errorf("ledger: sku: %w", httpx.ErrNotFound)
	// ErrInsufficientStock triggered when an outbound movement exceeds current stock.
	ErrInsufficientStock = fmt.Errorf("ledger: %w", httpx.ErrInsufficientStock)
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = fmt.Errorf("ledger: quantity must be positive: %w", httpx.ErrValidation)
)
