package warehouses

import "time"

// Warehouse is a physical storage location. Stock is not partitioned per
// warehouse; these records are descriptive only.
type Warehouse struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Code          string    `json:"code"`
	Address       string    `json:"address,omitempty"`
	ContactPerson string    `json:"contactPerson,omitempty"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CreateWarehouseRequest is the POST /warehouses payload.
type CreateWarehouseRequest struct {
	Name          string `json:"name" validate:"required"`
	Code          string `json:"code" validate:"required"`
	Address       string `json:"address"`
	ContactPerson string `json:"contactPerson"`
}

// UpdateWarehouseRequest carries partial updates.
type UpdateWarehouseRequest struct {
	Name          *string `json:"name,omitempty"`
	Code          *string `json:"code,omitempty"`
	Address       *string `json:"address,omitempty"`
	ContactPerson *string `json:"contactPerson,omitempty"`
	IsActive      *bool   `json:"isActive,omitempty"`
}
