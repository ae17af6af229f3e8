package permission

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// ResourceType enumerates the domain nouns permissions apply to
type ResourceType string

const (
	ResourceUsers          ResourceType = "USERS"
	ResourceVendors        ResourceType = "VENDORS"
	ResourceProducts       ResourceType = "PRODUCTS"
	ResourceOrders         ResourceType = "ORDERS"
	ResourceCommissions    ResourceType = "COMMISSIONS"
	ResourceTransactions   ResourceType = "TRANSACTIONS"
	ResourceInventory      ResourceType = "INVENTORY"
	ResourceStorefront     ResourceType = "STOREFRONT"
	ResourceAuditLogs      ResourceType = "AUDIT_LOGS"
	ResourceSystemSettings ResourceType = "SYSTEM_SETTINGS"
)

// Action enumerates the verbs permissions apply to. MANAGE is the
// administrative verb required to grant or revoke a permission.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionRead   Action = "READ"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionManage Action = "MANAGE"
)

// Scope represents the hierarchical breadth of a permission,
// totally ordered SYSTEM > GLOBAL > DEPARTMENT > TEAM > USER.
type Scope string

const (
	ScopeSystem     Scope = "SYSTEM"
	ScopeGlobal     Scope = "GLOBAL"
	ScopeDepartment Scope = "DEPARTMENT"
	ScopeTeam       Scope = "TEAM"
	ScopeUser       Scope = "USER"
)

var scopeRank = map[Scope]int{
	ScopeSystem:     50,
	ScopeGlobal:     40,
	ScopeDepartment: 30,
	ScopeTeam:       20,
	ScopeUser:       10,
}

// Valid reports whether s is a known scope
func (s Scope) Valid() bool {
	_, ok := scopeRank[s]
	return ok
}

// Covers reports whether a grant at scope s satisfies a request at scope
// other. The relation is reflexive and transitive.
func (s Scope) Covers(other Scope) bool {
	return scopeRank[s] >= scopeRank[other]
}

// Broader reports whether s strictly exceeds other in the hierarchy
func (s Scope) Broader(other Scope) bool {
	return scopeRank[s] > scopeRank[other]
}

// Contextual reports whether requests at this scope may carry a
// department/team identifier that must be matched against the grant.
func (s Scope) Contextual() bool {
	return s == ScopeDepartment || s == ScopeTeam
}

// Permission is one row of the fixed catalog, seeded at initialization.
// End users never create catalog rows.
type Permission struct {
	ID                     uuid.UUID      `db:"id" json:"id"`
	ResourceType           ResourceType   `db:"resource_type" json:"resource_type"`
	Action                 Action         `db:"action" json:"action"`
	Scope                  Scope          `db:"scope" json:"scope"`
	RequiredClearanceLevel int            `db:"required_clearance_level" json:"required_clearance_level"`
	Description            sql.NullString `db:"description" json:"description,omitempty"`
	CreatedAt              time.Time      `db:"created_at" json:"created_at"`
}

// Grant links a user to a catalog permission at a scope. Grants are never
// deleted: revocation flips is_active and expiry makes the row invisible to
// validation while keeping it for audit.
type Grant struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	UserID       uuid.UUID      `db:"user_id" json:"user_id"`
	PermissionID uuid.UUID      `db:"permission_id" json:"permission_id"`
	Scope        Scope          `db:"scope" json:"scope"`
	ContextID    sql.NullString `db:"context_id" json:"context_id,omitempty"`
	GrantedBy    uuid.UUID      `db:"granted_by" json:"granted_by"`
	GrantedAt    time.Time      `db:"granted_at" json:"granted_at"`
	ExpiresAt    sql.NullTime   `db:"expires_at" json:"expires_at,omitempty"`
	IsActive     bool           `db:"is_active" json:"is_active"`
	Reason       sql.NullString `db:"reason" json:"reason,omitempty"`
	RevokedBy    uuid.NullUUID  `db:"revoked_by" json:"revoked_by,omitempty"`
	RevokedAt    sql.NullTime   `db:"revoked_at" json:"revoked_at,omitempty"`
	RevokeReason sql.NullString `db:"revoke_reason" json:"revoke_reason,omitempty"`
}

// Expired reports whether the grant's expiration has passed at now
func (g *Grant) Expired(now time.Time) bool {
	return g.ExpiresAt.Valid && !g.ExpiresAt.Time.After(now)
}

// UsableAt reports whether the grant counts for validation at now:
// active and either unexpiring or expiring strictly in the future.
func (g *Grant) UsableAt(now time.Time) bool {
	return g.IsActive && !g.Expired(now)
}

// AppliesToContext reports whether the grant covers the given
// department/team identifier at the requested scope. A grant at a broader
// scope, or one without a context restriction, covers any identifier.
func (g *Grant) AppliesToContext(requested Scope, contextID string) bool {
	if contextID == "" || !requested.Contextual() {
		return true
	}
	if g.Scope.Broader(requested) {
		return true
	}
	if !g.ContextID.Valid || g.ContextID.String == "" {
		return true
	}
	return g.ContextID.String == contextID
}
