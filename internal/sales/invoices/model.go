package invoices

import (
	"time"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/masterdata/customers"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/shared"
)

// Status transitions are free-form; only status=paid carries side effects
// (ledger settlement plus the payment-time stock decrement).
type Status string

const (
	StatusDraft         Status = "draft"
	StatusSent          Status = "sent"
	StatusPaid          Status = "paid"
	StatusPartiallyPaid Status = "partially_paid"
	StatusOverdue       Status = "overdue"
	StatusCancelled     Status = "cancelled"
)

// SKUSummary is the populated sku object embedded in invoice items.
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

type InvoiceItem struct {
	SKUID       int64       `json:"skuId"`
	Quantity    int         `json:"quantity"`
	UnitPrice   float64     `json:"unitPrice"`
	Discount    float64     `json:"discount"`
	Tax         float64     `json:"tax"`
	TotalAmount float64     `json:"totalAmount"`
	SKU         *SKUSummary `json:"sku,omitempty"`
}

type Invoice struct {
	ID            int64               `json:"id"`
	InvoiceNumber string              `json:"invoiceNumber"`
	SalesOrderID  *int64              `json:"salesOrderId,omitempty"`
	SalesOrder    *OrderSummary       `json:"salesOrder,omitempty"`
	CustomerID    int64               `json:"customerId"`
	Customer      *customers.Summary  `json:"customer,omitempty"`
	InvoiceDate   time.Time           `json:"invoiceDate"`
	DueDate       time.Time           `json:"dueDate"`
	Items         []InvoiceItem       `json:"items"`
	Subtotal      float64             `json:"subtotal"`
	TotalDiscount float64             `json:"totalDiscount"`
	TotalTax      float64             `json:"totalTax"`
	TotalAmount   float64             `json:"totalAmount"`
	PaidAmount    float64             `json:"paidAmount"`
	Status        Status              `json:"status"`
	PaymentTerms  string              `json:"paymentTerms,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	CreatedBy     int64               `json:"createdBy"`
	CreatedByUser *shared.UserSummary `json:"createdByUser,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

type ItemRequest struct {
	SKUID     int64   `json:"skuId" validate:"required"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unitPrice" validate:"gte=0"`
	Discount  float64 `json:"discount" validate:"gte=0"`
	Tax       float64 `json:"tax" validate:"gte=0"`
}

type CreateInvoiceRequest struct {
	SalesOrderID *int64        `json:"salesOrderId,omitempty"`
	CustomerID   int64         `json:"customerId" validate:"required"`
	DueDate      time.Time     `json:"dueDate" validate:"required"`
	Items        []ItemRequest `json:"items" validate:"required,min=1,dive"`
	PaymentTerms string        `json:"paymentTerms"`
	Notes        string        `json:"notes"`
}

type UpdateInvoiceRequest struct {
	Status     *Status  `json:"status,omitempty" validate:"omitempty,oneof=draft sent paid partially_paid overdue cancelled"`
	PaidAmount *float64 `json:"paidAmount,omitempty" validate:"omitempty,gte=0"`
}

type ListInvoicesRequest struct {
	Status     *Status
	CustomerID *int64
	StartDate  *time.Time
	EndDate    *time.Time
	Limit      int
	Offset     int
}

type StatusCount struct {
	Status      Status  `json:"status"`
	Count       int     `json:"count"`
	TotalAmount float64 `json:"totalAmount"`
	TotalPaid   float64 `json:"totalPaid"`
}

type Stats struct {
	StatusBreakdown []StatusCount `json:"statusBreakdown"`
	TotalInvoices   int           `json:"totalInvoices"`
	TotalRevenue    float64       `json:"totalRevenue"`
	OverdueInvoices int           `json:"overdueInvoices"`
}
