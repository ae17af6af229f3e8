package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mestore/mestore-api/internal/domain/audit"
	"github.com/mestore/mestore-api/internal/domain/permission"
	"github.com/mestore/mestore-api/internal/domain/user"
	"github.com/mestore/mestore-api/internal/pkg/password"
)

// Service handles admin account management
type Service struct {
	users   user.Repository
	perms   *permission.Service
	audits  audit.Repository
	auditor permission.Auditor
}

// NewService creates admin service
func NewService(users user.Repository, perms *permission.Service, audits audit.Repository, auditor permission.Auditor) *Service {
	return &Service{users: users, perms: perms, audits: audits, auditor: auditor}
}

// --- Authentication ---

// Login authenticates an administrative user
func (s *Service) Login(ctx context.Context, email, pwd, ip string) (*user.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil || !password.Verify(pwd, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !u.UserType.Administrative() {
		return nil, ErrNotAdministrative
	}
	if !u.IsActive {
		return nil, ErrAccountInactive
	}
	if u.IsLocked {
		return nil, ErrAccountLocked
	}

	_ = s.users.UpdateLastLogin(ctx, u.ID, ip)

	return u, nil
}

// Reauthenticate re-checks account eligibility for a token refresh. An
// account deactivated or locked since login gets no new tokens.
func (s *Service) Reauthenticate(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if !u.UserType.Administrative() {
		return nil, ErrNotAdministrative
	}
	if !u.IsActive {
		return nil, ErrAccountInactive
	}
	if u.IsLocked {
		return nil, ErrAccountLocked
	}
	return u, nil
}

// GetByID returns an administrative user by ID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrAdminNotFound
	}
	return u, nil
}

// --- Admin management ---

// List returns admins matching filter; requires USERS/READ at GLOBAL scope
func (s *Service) List(ctx context.Context, actorID uuid.UUID, filter user.Filter) ([]*user.User, int, error) {
	if err := s.perms.Validate(ctx, actorID, permission.ResourceUsers, permission.ActionRead, permission.ScopeGlobal, nil); err != nil {
		return nil, 0, err
	}
	return s.users.List(ctx, filter)
}

// Create creates a new administrative user. The new account may not exceed
// the actor's own type or clearance level.
func (s *Service) Create(ctx context.Context, actorID uuid.UUID, req *CreateAdminRequest) (*user.User, error) {
	if err := s.perms.Validate(ctx, actorID, permission.ResourceUsers, permission.ActionCreate, permission.ScopeGlobal, nil); err != nil {
		return nil, err
	}

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	newType := user.UserType(req.UserType)
	if !actor.UserType.AtLeast(newType) {
		return nil, ErrCannotManageUser
	}
	if !user.ValidClearance(req.ClearanceLevel) {
		return nil, user.ErrInvalidClearance
	}
	if req.ClearanceLevel > actor.SecurityClearanceLevel {
		return nil, ErrClearanceAboveActor
	}

	existing, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	u := &user.User{
		ID:                     uuid.New(),
		Email:                  req.Email,
		PasswordHash:           hash,
		FullName:               req.FullName,
		UserType:               newType,
		SecurityClearanceLevel: req.ClearanceLevel,
		IsActive:               true,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err := s.users.Create(ctx, u); err != nil {
		if err == user.ErrEmailAlreadyExists {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.logAction(ctx, actorID, "admin.create", u.ID, audit.OutcomeCreated, nil, u)
	return u, nil
}

// Update mutates an administrative user. Actors may not touch their own
// type, clearance, or status, and may never push a target above their own
// type or clearance level.
func (s *Service) Update(ctx context.Context, actorID, targetID uuid.UUID, req *UpdateAdminRequest) (*user.User, error) {
	if err := s.perms.Validate(ctx, actorID, permission.ResourceUsers, permission.ActionUpdate, permission.ScopeGlobal, nil); err != nil {
		return nil, err
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrAdminNotFound
	}

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	if actorID == targetID {
		// Self-updates carry no escalation surface: name only
		if req.UserType != nil || req.ClearanceLevel != nil || req.IsActive != nil || req.IsLocked != nil {
			return nil, ErrSelfEscalation
		}
	} else if !actor.UserType.AtLeast(target.UserType) {
		return nil, ErrCannotManageUser
	}

	oldValue := *target

	if req.FullName != nil {
		target.FullName = *req.FullName
	}
	if req.UserType != nil {
		newType := user.UserType(*req.UserType)
		if !actor.UserType.AtLeast(newType) {
			return nil, ErrCannotManageUser
		}
		target.UserType = newType
	}
	if req.ClearanceLevel != nil {
		if !user.ValidClearance(*req.ClearanceLevel) {
			return nil, user.ErrInvalidClearance
		}
		if *req.ClearanceLevel > actor.SecurityClearanceLevel {
			return nil, ErrClearanceAboveActor
		}
		target.SecurityClearanceLevel = *req.ClearanceLevel
	}
	if req.IsActive != nil {
		target.IsActive = *req.IsActive
	}
	if req.IsLocked != nil {
		target.IsLocked = *req.IsLocked
	}

	if err := s.users.Update(ctx, target); err != nil {
		return nil, err
	}

	// A narrowed account must not keep serving cached decisions
	if target.UserType != oldValue.UserType ||
		target.SecurityClearanceLevel != oldValue.SecurityClearanceLevel ||
		target.IsActive != oldValue.IsActive ||
		target.IsLocked != oldValue.IsLocked {
		if err := s.perms.InvalidateUser(ctx, target.ID); err != nil {
			return nil, err
		}
	}

	s.logAction(ctx, actorID, "admin.update", target.ID, audit.OutcomeUpdated, &oldValue, target)
	return target, nil
}

// Deactivate soft-disables an administrative account
func (s *Service) Deactivate(ctx context.Context, actorID, targetID uuid.UUID) error {
	if err := s.perms.Validate(ctx, actorID, permission.ResourceUsers, permission.ActionDelete, permission.ScopeGlobal, nil); err != nil {
		return err
	}
	if actorID == targetID {
		return ErrCannotDeactivateSelf
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrAdminNotFound
	}

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	if !actor.UserType.AtLeast(target.UserType) {
		return ErrCannotManageUser
	}

	if err := s.users.Deactivate(ctx, targetID); err != nil {
		return err
	}
	if err := s.perms.InvalidateUser(ctx, targetID); err != nil {
		return err
	}

	s.logAction(ctx, actorID, "admin.deactivate", targetID, audit.OutcomeUpdated, target, nil)
	return nil
}

// --- Audit ---

// ListAuditRecords returns audit records; requires AUDIT_LOGS/READ
func (s *Service) ListAuditRecords(ctx context.Context, actorID uuid.UUID, filter audit.Filter) ([]*audit.Record, int, error) {
	if err := s.perms.Validate(ctx, actorID, permission.ResourceAuditLogs, permission.ActionRead, permission.ScopeGlobal, nil); err != nil {
		return nil, 0, err
	}
	return s.audits.List(ctx, filter)
}

// logAction emits an admin mutation audit record, fire-and-forget
func (s *Service) logAction(ctx context.Context, actorID uuid.UUID, action string, targetID uuid.UUID, outcome audit.Outcome, oldValue, newValue interface{}) {
	if s.auditor == nil {
		return
	}

	actor, _ := s.users.GetByID(ctx, actorID)
	email := ""
	if actor != nil {
		email = actor.Email
	}

	detail, _ := json.Marshal(map[string]interface{}{
		"old": sanitize(oldValue),
		"new": sanitize(newValue),
	})

	s.auditor.Record(&audit.Record{
		ActorID:      uuid.NullUUID{UUID: actorID, Valid: actorID != uuid.Nil},
		ActorEmail:   email,
		Action:       action,
		ResourceType: string(permission.ResourceUsers),
		ResourceID:   uuid.NullUUID{UUID: targetID, Valid: targetID != uuid.Nil},
		Outcome:      outcome,
		Reason:       sql.NullString{},
		Detail:       detail,
	})
}

// sanitize strips the password hash before a user lands in an audit record
func sanitize(v interface{}) interface{} {
	u, ok := v.(*user.User)
	if !ok || u == nil {
		return v
	}
	c := *u
	c.PasswordHash = ""
	return &c
}
