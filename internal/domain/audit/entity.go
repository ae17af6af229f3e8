package audit

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Outcome classifies what happened
type Outcome string

const (
	OutcomeAllowed Outcome = "allowed"
	OutcomeDenied  Outcome = "denied"
	OutcomeGranted Outcome = "granted"
	OutcomeRevoked Outcome = "revoked"
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
)

// Record represents one immutable audit log entry. Rows are append-only and
// never updated or deleted.
type Record struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	ActorID      uuid.NullUUID   `db:"actor_id" json:"actor_id,omitempty"`
	ActorEmail   string          `db:"actor_email" json:"actor_email"`
	Action       string          `db:"action" json:"action"`
	ResourceType string          `db:"resource_type" json:"resource_type"`
	ResourceID   uuid.NullUUID   `db:"resource_id" json:"resource_id,omitempty"`
	Outcome      Outcome         `db:"outcome" json:"outcome"`
	Reason       sql.NullString  `db:"reason" json:"reason,omitempty"`
	Detail       json.RawMessage `db:"detail" json:"detail,omitempty"`
	IPAddress    sql.NullString  `db:"ip_address" json:"ip_address,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// Filter narrows List results
type Filter struct {
	ActorID  *uuid.UUID
	Action   *string
	Outcome  *Outcome
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}
