package verification

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Status represents the verification workflow state of an incoming product
type Status string

const (
	StatusPending      Status = "PENDING"
	StatusAssigned     Status = "ASSIGNED"
	StatusQualityCheck Status = "QUALITY_CHECK"
	StatusApproved     Status = "APPROVED"
	StatusRejected     Status = "REJECTED"
	StatusAppealed     Status = "APPEALED"
)

// transitions is the single source of truth for the workflow:
// PENDING → ASSIGNED → QUALITY_CHECK → APPROVED | REJECTED,
// with REJECTED → APPEALED → QUALITY_CHECK for appeals.
var transitions = map[Status][]Status{
	StatusPending:      {StatusAssigned},
	StatusAssigned:     {StatusQualityCheck},
	StatusQualityCheck: {StatusApproved, StatusRejected},
	StatusRejected:     {StatusAppealed},
	StatusAppealed:     {StatusQualityCheck},
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusQualityCheck, StatusApproved, StatusRejected, StatusAppealed:
		return true
	}
	return false
}

// CanTransition reports whether s may move to next
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the workflow can no longer advance from s
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Verification tracks one incoming product through the workflow
type Verification struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	ProductID    uuid.UUID      `db:"product_id" json:"product_id"`
	VendorID     uuid.UUID      `db:"vendor_id" json:"vendor_id"`
	DepartmentID string         `db:"department_id" json:"department_id"`
	Status       Status         `db:"status" json:"status"`
	AssignedTo   uuid.NullUUID  `db:"assigned_to" json:"assigned_to,omitempty"`
	Notes        sql.NullString `db:"notes" json:"notes,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}
