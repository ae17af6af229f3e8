package verification

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mestore/mestore-api/internal/domain/permission"
)

// Authorizer decides whether an actor may perform an action; satisfied by
// the permission service.
type Authorizer interface {
	Validate(ctx context.Context, actorID uuid.UUID, resource permission.ResourceType, action permission.Action, scope permission.Scope, cctx *permission.CheckContext) error
}

// Service handles verification workflow logic
type Service struct {
	repo Repository
	auth Authorizer
}

// NewService creates verification service
func NewService(repo Repository, auth Authorizer) *Service {
	return &Service{repo: repo, auth: auth}
}

// Create registers an incoming product in the queue at PENDING
func (s *Service) Create(ctx context.Context, actorID, productID, vendorID uuid.UUID, departmentID string) (*Verification, error) {
	err := s.auth.Validate(ctx, actorID, permission.ResourceProducts, permission.ActionCreate, permission.ScopeDepartment,
		&permission.CheckContext{DepartmentID: departmentID})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	v := &Verification{
		ID:           uuid.New(),
		ProductID:    productID,
		VendorID:     vendorID,
		DepartmentID: departmentID,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// List returns verifications matching filter
func (s *Service) List(ctx context.Context, actorID uuid.UUID, filter Filter) ([]*Verification, int, error) {
	err := s.auth.Validate(ctx, actorID, permission.ResourceProducts, permission.ActionRead, permission.ScopeGlobal, nil)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, filter)
}

// Get returns one verification
func (s *Service) Get(ctx context.Context, actorID, id uuid.UUID) (*Verification, error) {
	err := s.auth.Validate(ctx, actorID, permission.ResourceProducts, permission.ActionRead, permission.ScopeGlobal, nil)
	if err != nil {
		return nil, err
	}
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrNotFound
	}
	return v, nil
}

// Transition moves a verification to the next status. Authority is checked
// at DEPARTMENT scope against the record's own department.
func (s *Service) Transition(ctx context.Context, actorID, id uuid.UUID, next Status, assignTo *uuid.UUID, notes string) (*Verification, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrNotFound
	}

	err = s.auth.Validate(ctx, actorID, permission.ResourceProducts, permission.ActionUpdate, permission.ScopeDepartment,
		&permission.CheckContext{DepartmentID: v.DepartmentID})
	if err != nil {
		return nil, err
	}

	// An approved record never moves again
	if v.Status.Terminal() {
		return nil, ErrInvalidTransition
	}

	assigned := uuid.NullUUID{}
	if assignTo != nil {
		assigned = uuid.NullUUID{UUID: *assignTo, Valid: true}
	} else if next == StatusAssigned {
		// Assigning without an explicit reviewer assigns the actor
		assigned = uuid.NullUUID{UUID: actorID, Valid: true}
	}

	return s.repo.Transition(ctx, id, next, assigned, notes)
}
