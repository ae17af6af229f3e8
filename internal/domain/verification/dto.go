package verification

import (
	"time"

	"github.com/google/uuid"
)

// CreateRequest for POST /verifications
type CreateRequest struct {
	ProductID    string `json:"product_id" validate:"required,uuid"`
	VendorID     string `json:"vendor_id" validate:"required,uuid"`
	DepartmentID string `json:"department_id" validate:"required,min=1,max=64"`
}

// TransitionRequest for POST /verifications/{id}/transition
type TransitionRequest struct {
	Status     string  `json:"status" validate:"required,oneof=ASSIGNED QUALITY_CHECK APPROVED REJECTED APPEALED"`
	AssignedTo *string `json:"assigned_to,omitempty" validate:"omitempty,uuid"`
	Notes      string  `json:"notes,omitempty" validate:"max=1000"`
}

// VerificationResponse represents a verification in the API
type VerificationResponse struct {
	ID           uuid.UUID  `json:"id"`
	ProductID    uuid.UUID  `json:"product_id"`
	VendorID     uuid.UUID  `json:"vendor_id"`
	DepartmentID string     `json:"department_id"`
	Status       string     `json:"status"`
	AssignedTo   *uuid.UUID `json:"assigned_to,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
	CreatedAt    string     `json:"created_at"`
	UpdatedAt    string     `json:"updated_at"`
}

// ResponseFromEntity converts entity to response
func ResponseFromEntity(v *Verification) *VerificationResponse {
	resp := &VerificationResponse{
		ID:           v.ID,
		ProductID:    v.ProductID,
		VendorID:     v.VendorID,
		DepartmentID: v.DepartmentID,
		Status:       string(v.Status),
		CreatedAt:    v.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    v.UpdatedAt.Format(time.RFC3339),
	}
	if v.AssignedTo.Valid {
		id := v.AssignedTo.UUID
		resp.AssignedTo = &id
	}
	if v.Notes.Valid {
		resp.Notes = &v.Notes.String
	}
	return resp
}
