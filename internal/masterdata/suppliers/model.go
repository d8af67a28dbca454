package suppliers

import "time"

type Supplier struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Address       string    `json:"address,omitempty"`
	GSTIN         string    `json:"gstin,omitempty"`
	ContactPerson string    `json:"contactPerson,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Summary is the embedded reference shape returned inside purchase documents.
type Summary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (s *Supplier) Summary() Summary {
	return Summary{ID: s.ID, Name: s.Name, Email: s.Email, Phone: s.Phone}
}

type CreateSupplierRequest struct {
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	GSTIN         string `json:"gstin"`
	ContactPerson string `json:"contactPerson"`
}

type UpdateSupplierRequest struct {
	Name          *string `json:"name,omitempty"`
	Email         *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone         *string `json:"phone,omitempty"`
	Address       *string `json:"address,omitempty"`
	GSTIN         *string `json:"gstin,omitempty"`
	ContactPerson *string `json:"contactPerson,omitempty"`
}

type ListSuppliersRequest struct {
	Search *string
	Limit  int
	Offset int
}
