package orders

import (
	"time"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/masterdata/customers"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/shared"
)

// Status is the order lifecycle state. New orders default to
// StatusPendingDispatch, skipping the draft/confirm reservation step; the
// draft path stays available for clients that opt into it on creation.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusConfirmed       Status = "confirmed"
	StatusPendingDispatch Status = "pending_dispatch"
	StatusDispatched      Status = "dispatched"
	StatusDelivered       Status = "delivered"
	StatusCancelled       Status = "cancelled"
	StatusReturned        Status = "returned"
)

// DispatchStatus tracks fulfilment separately from the lifecycle state.
type DispatchStatus string

const (
	DispatchPending   DispatchStatus = "pending"
	DispatchPartial   DispatchStatus = "partial"
	DispatchCompleted DispatchStatus = "completed"
)

// SKUSummary is the populated sku object embedded in order items.
type SKUSummary struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Code         string `json:"code"`
	CurrentStock int    `json:"currentStock"`
}

// OrderItem is one order line. TotalAmount is always recomputed server-side
// as quantity*unitPrice - discount + tax.
type OrderItem struct {
	SKUID       int64       `json:"skuId"`
	Quantity    int         `json:"quantity"`
	UnitPrice   float64     `json:"unitPrice"`
	Discount    float64     `json:"discount"`
	Tax         float64     `json:"tax"`
	TotalAmount float64     `json:"totalAmount"`
	SKU         *SKUSummary `json:"sku,omitempty"`
}

// DispatchedItem records one dispatched line.
type DispatchedItem struct {
	SKUID        int64     `json:"skuId"`
	Quantity     int       `json:"quantity"`
	DispatchedAt time.Time `json:"dispatchedAt"`
}

type SalesOrder struct {
	ID                   int64               `json:"id"`
	OrderNumber          string              `json:"orderNumber"`
	CustomerID           int64               `json:"customerId"`
	Customer             *customers.Summary  `json:"customer,omitempty"`
	OrderDate            time.Time           `json:"orderDate"`
	ExpectedDeliveryDate time.Time           `json:"expectedDeliveryDate"`
	Items                []OrderItem         `json:"items"`
	Subtotal             float64             `json:"subtotal"`
	TotalDiscount        float64             `json:"totalDiscount"`
	TotalTax             float64             `json:"totalTax"`
	TotalAmount          float64             `json:"totalAmount"`
	Status               Status              `json:"status"`
	DispatchStatus       DispatchStatus      `json:"dispatchStatus"`
	DispatchedItems      []DispatchedItem    `json:"dispatchedItems,omitempty"`
	Notes                string              `json:"notes,omitempty"`
	CreatedBy            int64               `json:"createdBy"`
	CreatedByUser        *shared.UserSummary `json:"createdByUser,omitempty"`
	ApprovedBy           *int64              `json:"approvedBy,omitempty"`
	ApprovedByUser       *shared.UserSummary `json:"approvedByUser,omitempty"`
	ApprovedAt           *time.Time          `json:"approvedAt,omitempty"`
	CreatedAt            time.Time           `json:"createdAt"`
	UpdatedAt            time.Time           `json:"updatedAt"`
}

// ItemRequest is the client-supplied order line. The totalAmount the client
// may send is ignored.
type ItemRequest struct {
	SKUID     int64   `json:"skuId" validate:"required"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unitPrice" validate:"gte=0"`
	Discount  float64 `json:"discount" validate:"gte=0"`
	Tax       float64 `json:"tax" validate:"gte=0"`
}

type CreateOrderRequest struct {
	CustomerID           int64         `json:"customerId" validate:"required"`
	ExpectedDeliveryDate time.Time     `json:"expectedDeliveryDate" validate:"required"`
	Items                []ItemRequest `json:"items" validate:"required,min=1,dive"`
	Notes                string        `json:"notes"`
	Status               Status        `json:"status" validate:"omitempty,oneof=draft pending_dispatch"`
}

type UpdateOrderRequest struct {
	CustomerID           *int64        `json:"customerId,omitempty"`
	ExpectedDeliveryDate *time.Time    `json:"expectedDeliveryDate,omitempty"`
	Items                []ItemRequest `json:"items,omitempty" validate:"omitempty,min=1,dive"`
	Notes                *string       `json:"notes,omitempty"`
	Status               *Status       `json:"status,omitempty" validate:"omitempty,oneof=draft confirmed pending_dispatch dispatched delivered cancelled returned"`
}

type DispatchLineRequest struct {
	SKUID    int64 `json:"skuId" validate:"required"`
	Quantity int   `json:"quantity" validate:"required,gt=0"`
}

type DispatchRequest struct {
	DispatchedItems []DispatchLineRequest `json:"dispatchedItems" validate:"required,min=1,dive"`
}

type ListOrdersRequest struct {
	Status     *Status
	CustomerID *int64
	StartDate  *time.Time
	EndDate    *time.Time
	Limit      int
	Offset     int
}

// StatusCount is one row of the stats status breakdown.
type StatusCount struct {
	Status      Status  `json:"status"`
	Count       int     `json:"count"`
	TotalAmount float64 `json:"totalAmount"`
}

type Stats struct {
	StatusBreakdown []StatusCount `json:"statusBreakdown"`
	TotalOrders     int           `json:"totalOrders"`
	TotalRevenue    float64       `json:"totalRevenue"`
}
