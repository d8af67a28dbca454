package returns

import (
	"time"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/masterdata/customers"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/shared"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusProcessed Status = "processed"
	StatusRejected  Status = "rejected"
)

type Reason string

const (
	ReasonDamaged         Reason = "damaged"
	ReasonDefective       Reason = "defective"
	ReasonWrongItem       Reason = "wrong_item"
	ReasonCustomerRequest Reason = "customer_request"
	ReasonQualityIssue    Reason = "quality_issue"
	ReasonOther           Reason = "other"
)

type Action string

const (
	ActionRefund     Action = "refund"
	ActionExchange   Action = "exchange"
	ActionRepair     Action = "repair"
	ActionCreditNote Action = "credit_note"
)

// SKUSummary is the populated sku object embedded in return items.
type SKUSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// OrderSummary is the populated sales order reference.
type OrderSummary struct {
	ID          int64  `json:"id"`
	OrderNumber string `json:"orderNumber"`
}

type ReturnItem struct {
	SKUID       int64       `json:"skuId"`
	Quantity    int         `json:"quantity"`
	UnitPrice   float64     `json:"unitPrice"`
	TotalAmount float64     `json:"totalAmount"`
	SKU         *SKUSummary `json:"sku,omitempty"`
}

type SalesReturn struct {
	ID              int64               `json:"id"`
	ReturnNumber    string              `json:"returnNumber"`
	SalesOrderID    int64               `json:"salesOrderId"`
	SalesOrder      *OrderSummary       `json:"salesOrder,omitempty"`
	CustomerID      int64               `json:"customerId"`
	Customer        *customers.Summary  `json:"customer,omitempty"`
	ReturnDate      time.Time           `json:"returnDate"`
	Reason          Reason              `json:"reason"`
	ActionRequired  Action              `json:"actionRequired"`
	Items           []ReturnItem        `json:"items"`
	TotalAmount     float64             `json:"totalAmount"`
	Status          Status              `json:"status"`
	Notes           string              `json:"notes,omitempty"`
	CreatedBy       int64               `json:"createdBy"`
	ProcessedBy     *int64              `json:"processedBy,omitempty"`
	ProcessedByUser *shared.UserSummary `json:"processedByUser,omitempty"`
	ProcessedAt     *time.Time          `json:"processedAt,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

type ItemRequest struct {
	SKUID     int64   `json:"skuId" validate:"required"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unitPrice" validate:"gte=0"`
}

type CreateReturnRequest struct {
	SalesOrderID   int64         `json:"salesOrderId" validate:"required"`
	CustomerID     int64         `json:"customerId" validate:"required"`
	ReturnDate     time.Time     `json:"returnDate" validate:"required"`
	Reason         Reason        `json:"reason" validate:"required,oneof=damaged defective wrong_item customer_request quality_issue other"`
	ActionRequired Action        `json:"actionRequired" validate:"required,oneof=refund exchange repair credit_note"`
	Items          []ItemRequest `json:"items" validate:"required,min=1,dive"`
	Notes          string        `json:"notes"`
}

type ProcessReturnRequest struct {
	Status Status `json:"status" validate:"required,oneof=pending approved processed rejected"`
}

type ListReturnsRequest struct {
	Limit  int
	Offset int
}
