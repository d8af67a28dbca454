package orders

import (
	"time"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/procurement/indents"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/shared"
)

// Status follows the receiving lifecycle of a purchase order.
type Status string

const (
	StatusIssued            Status = "Issued"
	StatusPartiallyReceived Status = "Partially Received"
	StatusReceived          Status = "Received"
	StatusCancelled         Status = "Cancelled"
)

// StockInStatus tracks whether the goods on a PO have been credited into
// stock yet.
type StockInStatus string

const (
	StockInPending StockInStatus = "Pending to be Stock In"
	StockedIn      StockInStatus = "Stocked In"
)

type VendorSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// POItem is one ordered line.
type POItem struct {
	SKUID    int64               `json:"skuId"`
	Quantity int                 `json:"quantity"`
	SKU      *indents.SKUSummary `json:"sku,omitempty"`
}

type PurchaseOrder struct {
	ID                int64               `json:"id"`
	PONumber          int64               `json:"poNumber"`
	VendorID          int64               `json:"vendorId"`
	Vendor            *VendorSummary      `json:"vendor,omitempty"`
	Items             []POItem            `json:"items"`
	IndentApprovalIDs []int64             `json:"indentApprovalIds"`
	DeliveryDueDate   *time.Time          `json:"deliveryDueDate,omitempty"`
	PaymentDays       int                 `json:"paymentDays"`
	Freight           float64             `json:"freight"`
	Status            Status              `json:"status"`
	StockInStatus     StockInStatus       `json:"stockInStatus"`
	CreatedBy         int64               `json:"createdBy"`
	CreatedByUser     *shared.UserSummary `json:"createdByUser,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

// ApprovedVendorItem is one flattened approval line offered to PO creation
// for a given vendor.
type ApprovedVendorItem struct {
	ItemID           int64               `json:"itemId"`
	SKU              *indents.SKUSummary `json:"sku,omitempty"`
	Quantity         int                 `json:"quantity"`
	IndentID         int64               `json:"indentId"`
	IndentApprovalID int64               `json:"indentApprovalId"`
}

type ItemRequest struct {
	SKUID    int64 `json:"skuId" validate:"required"`
	Quantity int   `json:"quantity" validate:"required,gt=0"`
}

type CreatePORequest struct {
	VendorID          int64         `json:"vendorId" validate:"required"`
	Items             []ItemRequest `json:"items" validate:"required,min=1,dive"`
	IndentApprovalIDs []int64       `json:"indentApprovalIds" validate:"required,min=1"`
	DeliveryDueDate   *time.Time    `json:"deliveryDueDate,omitempty"`
	PaymentDays       int           `json:"paymentDays" validate:"gte=0"`
	Freight           float64       `json:"freight" validate:"gte=0"`
}

type UpdatePORequest struct {
	Status          *Status    `json:"status,omitempty" validate:"omitempty,oneof=Issued 'Partially Received' Received Cancelled"`
	DeliveryDueDate *time.Time `json:"deliveryDueDate,omitempty"`
	PaymentDays     *int       `json:"paymentDays,omitempty" validate:"omitempty,gte=0"`
	Freight         *float64   `json:"freight,omitempty" validate:"omitempty,gte=0"`
}
