package indents

import (
	"time"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/shared"
)

// Status values follow the procurement workflow the dashboard drives:
// Pending → Approved, with the approval document carrying the PO side.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusDeleted  Status = "Deleted"
)

// ApprovalStatus tracks the approval document until a PO picks it up.
type ApprovalStatus string

const (
	ApprovalPOPending ApprovalStatus = "PO Pending"
	ApprovalPOCreated ApprovalStatus = "PO Created"
	ApprovalCancelled ApprovalStatus = "Cancelled"
)

// SKUSummary is the populated sku object embedded in indent items.
type SKUSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// VendorSummary is the populated supplier object embedded in indent items.
type VendorSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// IndentItem is one requested line. The vendor is optional at request time
// and may be confirmed or changed during approval.
type IndentItem struct {
	SKUID    int64          `json:"skuId"`
	Quantity int            `json:"quantity"`
	VendorID *int64         `json:"vendorId,omitempty"`
	SKU      *SKUSummary    `json:"sku,omitempty"`
	Vendor   *VendorSummary `json:"vendor,omitempty"`
}

type PurchaseIndent struct {
	ID            int64               `json:"id"`
	IndentID      int64               `json:"indentId"`
	Items         []IndentItem        `json:"items"`
	Status        Status              `json:"status"`
	CreatedBy     int64               `json:"createdBy"`
	CreatedByUser *shared.UserSummary `json:"createdByUser,omitempty"`
	ApprovedBy    *int64              `json:"approvedBy,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// Approval is the append-style audit document created when an indent is
// approved. It carries its own item list so the approver can adjust
// quantities or vendors without mutating the original request.
type Approval struct {
	ID              int64               `json:"id"`
	IndentRef       int64               `json:"indentRef"`
	IndentID        int64               `json:"indentId"`
	Items           []IndentItem        `json:"items"`
	Status          ApprovalStatus      `json:"status"`
	ApprovedBy      int64               `json:"approvedBy"`
	ApprovedByUser  *shared.UserSummary `json:"approvedByUser,omitempty"`
	ApprovalRemarks string              `json:"approvalRemarks,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

type ItemRequest struct {
	SKUID    int64  `json:"skuId" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
	VendorID *int64 `json:"vendorId,omitempty"`
}

type CreateIndentRequest struct {
	Items []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

type UpdateIndentRequest struct {
	Items  []ItemRequest `json:"items,omitempty" validate:"omitempty,min=1,dive"`
	Status *Status       `json:"status,omitempty" validate:"omitempty,oneof=Pending Approved Deleted"`
}

type ApproveIndentRequest struct {
	Items           []ItemRequest `json:"items,omitempty" validate:"omitempty,min=1,dive"`
	ApprovalRemarks string        `json:"approvalRemarks"`
}
