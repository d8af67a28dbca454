package skus

import "time"

// SKU is the atomic inventory item type. Counters are mutated only by the
// stock ledger; this package owns the descriptive fields.
type SKU struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Code          string    `json:"code"`
	CurrentStock  int       `json:"currentStock"`
	ReservedStock int       `json:"reservedStock"`
	PurchasePrice float64   `json:"purchasePrice"`
	SellingPrice  float64   `json:"sellingPrice"`
	MinStock      int       `json:"minStock"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CreateSKURequest is the POST /skus payload.
type CreateSKURequest struct {
	Name          string  `json:"name" validate:"required"`
	Code          string  `json:"code" validate:"required"`
	CurrentStock  int     `json:"currentStock" validate:"gte=0"`
	PurchasePrice float64 `json:"purchasePrice" validate:"gte=0"`
	SellingPrice  float64 `json:"sellingPrice" validate:"gte=0"`
	MinStock      int     `json:"minStock" validate:"gte=0"`
}

// UpdateSKURequest carries partial updates; counters are deliberately absent.
type UpdateSKURequest struct {
	Name          *string  `json:"name,omitempty"`
	Code          *string  `json:"code,omitempty"`
	PurchasePrice *float64 `json:"purchasePrice,omitempty" validate:"omitempty,gte=0"`
	SellingPrice  *float64 `json:"sellingPrice,omitempty" validate:"omitempty,gte=0"`
	MinStock      *int     `json:"minStock,omitempty" validate:"omitempty,gte=0"`
}

// ListSKUsRequest filters listings.
type ListSKUsRequest struct {
	Search *string
	Limit  int
	Offset int
}
