package permission

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mestore/mestore-api/internal/domain/audit"
	"github.com/mestore/mestore-api/internal/domain/user"
)

// Auditor receives audit records off the request path
type Auditor interface {
	Record(rec *audit.Record)
}

// CheckContext narrows a DEPARTMENT- or TEAM-scoped check to a specific
// organizational unit.
type CheckContext struct {
	DepartmentID string
	TeamID       string
}

func (c *CheckContext) identifierFor(scope Scope) string {
	if c == nil {
		return ""
	}
	switch scope {
	case ScopeDepartment:
		return c.DepartmentID
	case ScopeTeam:
		return c.TeamID
	}
	return ""
}

// GrantInput carries the parameters of a grant request
type GrantInput struct {
	TargetID     uuid.UUID
	PermissionID uuid.UUID
	Scope        Scope
	ContextID    string
	ExpiresAt    *time.Time
	Reason       string
}

// Service implements permission validation and grant/revoke rules
type Service struct {
	repo    Repository
	users   user.Repository
	cache   *DecisionCache
	auditor Auditor
}

// NewService creates permission service
func NewService(repo Repository, users user.Repository, cache *DecisionCache, auditor Auditor) *Service {
	return &Service{repo: repo, users: users, cache: cache, auditor: auditor}
}

// Validate determines whether the actor may perform (resource, action) at
// the requested scope. Checks run in order and short-circuit on the first
// failure; the returned error always names the failed check. Every
// invocation, pass or fail, emits an audit record.
func (s *Service) Validate(ctx context.Context, actorID uuid.UUID, resource ResourceType, action Action, scope Scope, cctx *CheckContext) error {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return err
	}

	err = s.validate(ctx, actor, resource, action, scope, cctx)
	s.auditCheck(actor, actorID, resource, action, scope, cctx, err)
	return err
}

func (s *Service) validate(ctx context.Context, actor *user.User, resource ResourceType, action Action, scope Scope, cctx *CheckContext) error {
	// 1. Base eligibility
	if actor == nil || !actor.Eligible() {
		return ErrUnauthorized
	}

	// 2. Clearance against the catalog entry
	perm, err := s.repo.GetPermission(ctx, resource, action)
	if err != nil {
		return err
	}
	if perm == nil {
		return ErrPermissionNotFound
	}
	if actor.SecurityClearanceLevel < perm.RequiredClearanceLevel {
		return ErrInsufficientClearance
	}

	contextID := cctx.identifierFor(scope)

	// Cached decisions are keyed without the context identifier, so only
	// context-free checks may use the cache.
	if contextID == "" && s.cache.Get(ctx, actor.ID, resource, action, scope) {
		return nil
	}

	// 3. Scope hierarchy. Superuser and system accounts carry blanket
	// SYSTEM-scope authority; clearance was still checked above.
	var covering []*Grant
	if !actor.HasBlanketAuthority() {
		grants, err := s.repo.ListUsableGrants(ctx, actor.ID, perm.ID)
		if err != nil {
			return err
		}
		now := time.Now()
		for _, g := range grants {
			if g.UsableAt(now) && g.Scope.Covers(scope) {
				covering = append(covering, g)
			}
		}
		if len(covering) == 0 {
			return ErrScopeViolation
		}

		// 4. Context: a DEPARTMENT/TEAM check with an identifier needs a
		// grant applying to that unit or held at a broader scope.
		if contextID != "" {
			matched := false
			for _, g := range covering {
				if g.AppliesToContext(scope, contextID) {
					matched = true
					break
				}
			}
			if !matched {
				return ErrContextMismatch
			}
		}
	}

	if contextID == "" {
		s.cache.Set(ctx, actor.ID, resource, action, scope)
	}
	return nil
}

// GrantPermission creates a grant after checking every precondition in
// order. On any failure no row is created and the violated precondition is
// attached to ErrGrantDenied.
func (s *Service) GrantPermission(ctx context.Context, granterID uuid.UUID, in GrantInput) (*Grant, error) {
	perm, err := s.repo.GetPermissionByID(ctx, in.PermissionID)
	if err != nil {
		return nil, err
	}
	if perm == nil {
		return nil, grantDenied(ErrPermissionNotFound)
	}

	// 1. The granter must hold MANAGE authority at the requested scope
	if err := s.Validate(ctx, granterID, perm.ResourceType, ActionManage, in.Scope, nil); err != nil {
		return nil, grantDenied(err)
	}

	granter, err := s.users.GetByID(ctx, granterID)
	if err != nil {
		return nil, err
	}

	// 2. Target must exist, be active, and not be the granter
	target, err := s.users.GetByID(ctx, in.TargetID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, grantDenied(ErrTargetNotFound)
	}
	if !target.IsActive {
		return nil, grantDenied(ErrTargetInactive)
	}
	if target.ID == granter.ID {
		return nil, grantDenied(ErrSelfGrant)
	}

	// 3. Clearance is a precondition, never implied by the grant
	if target.SecurityClearanceLevel < perm.RequiredClearanceLevel {
		return nil, grantDenied(ErrTargetClearanceLow)
	}

	// 4. A granter may never elevate someone above their own level
	if target.SecurityClearanceLevel > granter.SecurityClearanceLevel {
		return nil, grantDenied(ErrTargetAboveGranter)
	}

	// 5. Expiration, if given, must be strictly in the future
	if in.ExpiresAt != nil && !in.ExpiresAt.After(time.Now()) {
		return nil, grantDenied(ErrExpiryNotFuture)
	}

	g := &Grant{
		ID:           uuid.New(),
		UserID:       target.ID,
		PermissionID: perm.ID,
		Scope:        in.Scope,
		ContextID:    sql.NullString{String: in.ContextID, Valid: in.ContextID != ""},
		GrantedBy:    granter.ID,
		GrantedAt:    time.Now(),
		IsActive:     true,
		Reason:       sql.NullString{String: in.Reason, Valid: in.Reason != ""},
	}
	if in.ExpiresAt != nil {
		g.ExpiresAt = sql.NullTime{Time: *in.ExpiresAt, Valid: true}
	}

	if err := s.repo.CreateGrant(ctx, g); err != nil {
		if err == ErrTargetNotFound {
			return nil, grantDenied(err)
		}
		return nil, err
	}

	// Invalidate before acknowledging so no stale positive decision
	// survives the mutation
	if err := s.cache.Invalidate(ctx, target.ID); err != nil {
		return nil, err
	}

	s.auditMutation(granter, "permission.grant", audit.OutcomeGranted, g, in.Reason)
	return g, nil
}

// RevokePermission deactivates a grant. Revoking an already-inactive or
// expired grant succeeds without modifying anything.
func (s *Service) RevokePermission(ctx context.Context, revokerID, grantID uuid.UUID, reason string) error {
	g, err := s.repo.GetGrant(ctx, grantID)
	if err != nil {
		return err
	}
	if g == nil {
		return ErrGrantNotFound
	}

	perm, err := s.repo.GetPermissionByID(ctx, g.PermissionID)
	if err != nil {
		return err
	}
	if perm == nil {
		return ErrPermissionNotFound
	}

	// Same authority bar as granting: MANAGE at or above the grant's scope
	if err := s.Validate(ctx, revokerID, perm.ResourceType, ActionManage, g.Scope, nil); err != nil {
		return revokeDenied(err)
	}

	changed, err := s.repo.RevokeGrant(ctx, grantID, revokerID, reason)
	if err != nil {
		return err
	}

	if err := s.cache.Invalidate(ctx, g.UserID); err != nil {
		return err
	}

	if changed {
		revoker, _ := s.users.GetByID(ctx, revokerID)
		s.auditMutation(revoker, "permission.revoke", audit.OutcomeRevoked, g, reason)
	}
	return nil
}

// InvalidateUser drops every cached decision for the user. Called on any
// user mutation that could narrow their authority (deactivation, lock,
// clearance or type change) in addition to grant/revoke.
func (s *Service) InvalidateUser(ctx context.Context, userID uuid.UUID) error {
	return s.cache.Invalidate(ctx, userID)
}

// ListGrants returns every grant row for the user, active or historical
func (s *Service) ListGrants(ctx context.Context, userID uuid.UUID) ([]*Grant, error) {
	return s.repo.ListGrantsByUser(ctx, userID)
}

// ListCatalog returns the fixed permission catalog
func (s *Service) ListCatalog(ctx context.Context) ([]*Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// --- audit emission (fire and forget; never fails the caller) ---

type checkDetail struct {
	Resource  ResourceType `json:"resource_type"`
	Action    Action       `json:"action"`
	Scope     Scope        `json:"scope"`
	ContextID string       `json:"context_id,omitempty"`
}

func (s *Service) auditCheck(actor *user.User, actorID uuid.UUID, resource ResourceType, action Action, scope Scope, cctx *CheckContext, checkErr error) {
	if s.auditor == nil {
		return
	}

	outcome := audit.OutcomeAllowed
	reason := sql.NullString{}
	if checkErr != nil {
		outcome = audit.OutcomeDenied
		reason = sql.NullString{String: checkErr.Error(), Valid: true}
	}

	detail, _ := json.Marshal(checkDetail{
		Resource:  resource,
		Action:    action,
		Scope:     scope,
		ContextID: cctx.identifierFor(scope),
	})

	email := ""
	if actor != nil {
		email = actor.Email
	}

	s.auditor.Record(&audit.Record{
		ActorID:      uuid.NullUUID{UUID: actorID, Valid: actorID != uuid.Nil},
		ActorEmail:   email,
		Action:       "permission.check",
		ResourceType: string(resource),
		Outcome:      outcome,
		Reason:       reason,
		Detail:       detail,
	})
}

func (s *Service) auditMutation(actor *user.User, action string, outcome audit.Outcome, g *Grant, reason string) {
	if s.auditor == nil {
		return
	}

	detail, _ := json.Marshal(g)

	rec := &audit.Record{
		Action:       action,
		ResourceType: string(ResourceUsers),
		ResourceID:   uuid.NullUUID{UUID: g.ID, Valid: true},
		Outcome:      outcome,
		Reason:       sql.NullString{String: reason, Valid: reason != ""},
		Detail:       detail,
	}
	if actor != nil {
		rec.ActorID = uuid.NullUUID{UUID: actor.ID, Valid: true}
		rec.ActorEmail = actor.Email
	}

	s.auditor.Record(rec)
}
