package permission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mestore/mestore-api/internal/domain/audit"
	"github.com/mestore/mestore-api/internal/domain/user"
)

type fakeRepo struct {
	perms   []*Permission
	grants  []*Grant
	created []*Grant
}

func (f *fakeRepo) GetPermission(ctx context.Context, resource ResourceType, action Action) (*Permission, error) {
	for _, p := range f.perms {
		if p.ResourceType == resource && p.Action == action {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) GetPermissionByID(ctx context.Context, id uuid.UUID) (*Permission, error) {
	for _, p := range f.perms {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) ListPermissions(ctx context.Context) ([]*Permission, error) {
	return f.perms, nil
}

func (f *fakeRepo) UpsertPermission(ctx context.Context, p *Permission) error {
	f.perms = append(f.perms, p)
	return nil
}

func (f *fakeRepo) ListUsableGrants(ctx context.Context, userID, permissionID uuid.UUID) ([]*Grant, error) {
	now := time.Now()
	var out []*Grant
	for _, g := range f.grants {
		if g.UserID == userID && g.PermissionID == permissionID && g.UsableAt(now) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListGrantsByUser(ctx context.Context, userID uuid.UUID) ([]*Grant, error) {
	var out []*Grant
	for _, g := range f.grants {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetGrant(ctx context.Context, id uuid.UUID) (*Grant, error) {
	for _, g := range f.grants {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) CreateGrant(ctx context.Context, g *Grant) error {
	f.grants = append(f.grants, g)
	f.created = append(f.created, g)
	return nil
}

func (f *fakeRepo) RevokeGrant(ctx context.Context, id, revokedBy uuid.UUID, reason string) (bool, error) {
	for _, g := range f.grants {
		if g.ID != id {
			continue
		}
		if !g.UsableAt(time.Now()) {
			return false, nil
		}
		g.IsActive = false
		g.RevokedBy = uuid.NullUUID{UUID: revokedBy, Valid: true}
		return true, nil
	}
	return false, nil
}

type fakeUsers struct {
	byID map[uuid.UUID]*user.User
}

func (f *fakeUsers) Create(ctx context.Context, u *user.User) error { return nil }
func (f *fakeUsers) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return f.byID[id], nil
}
func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return nil, nil
}
func (f *fakeUsers) List(ctx context.Context, filter user.Filter) ([]*user.User, int, error) {
	return nil, 0, nil
}
func (f *fakeUsers) Update(ctx context.Context, u *user.User) error     { return nil }
func (f *fakeUsers) Deactivate(ctx context.Context, id uuid.UUID) error { return nil }
func (f *fakeUsers) UpdateLastLogin(ctx context.Context, id uuid.UUID, ip string) error {
	return nil
}

type fakeAuditor struct {
	records []*audit.Record
}

func (f *fakeAuditor) Record(rec *audit.Record) {
	f.records = append(f.records, rec)
}

func newAdmin(clearance int) *user.User {
	return &user.User{
		ID:                     uuid.New(),
		Email:                  uuid.New().String() + "@mestore.co",
		UserType:               user.TypeAdmin,
		SecurityClearanceLevel: clearance,
		IsActive:               true,
	}
}

func newEnv(users ...*user.User) (*fakeRepo, *fakeUsers, *fakeAuditor, *Service) {
	repo := &fakeRepo{}
	userRepo := &fakeUsers{byID: map[uuid.UUID]*user.User{}}
	for _, u := range users {
		userRepo.byID[u.ID] = u
	}
	auditor := &fakeAuditor{}
	svc := NewService(repo, userRepo, NewDecisionCache(nil, 0), auditor)
	return repo, userRepo, auditor, svc
}

func addPermission(repo *fakeRepo, resource ResourceType, action Action, clearance int) *Permission {
	p := &Permission{
		ID:                     uuid.New(),
		ResourceType:           resource,
		Action:                 action,
		Scope:                  ScopeGlobal,
		RequiredClearanceLevel: clearance,
	}
	repo.perms = append(repo.perms, p)
	return p
}

func addGrant(repo *fakeRepo, userID, permID uuid.UUID, scope Scope, contextID string, expiresAt *time.Time) *Grant {
	g := &Grant{
		ID:           uuid.New(),
		UserID:       userID,
		PermissionID: permID,
		Scope:        scope,
		GrantedBy:    uuid.New(),
		GrantedAt:    time.Now(),
		IsActive:     true,
	}
	if contextID != "" {
		g.ContextID.String = contextID
		g.ContextID.Valid = true
	}
	if expiresAt != nil {
		g.ExpiresAt.Time = *expiresAt
		g.ExpiresAt.Valid = true
	}
	repo.grants = append(repo.grants, g)
	return g
}

func TestValidateBroaderScopeCoversNarrowerCheck(t *testing.T) {
	actor := newAdmin(3)
	repo, _, _, svc := newEnv(actor)
	perm := addPermission(repo, ResourceProducts, ActionUpdate, 3)
	addGrant(repo, actor.ID, perm.ID, ScopeGlobal, "", nil)

	for _, scope := range []Scope{ScopeGlobal, ScopeDepartment, ScopeTeam, ScopeUser} {
		if err := svc.Validate(context.Background(), actor.ID, ResourceProducts, ActionUpdate, scope, nil); err != nil {
			t.Errorf("GLOBAL grant should cover %s check, got %v", scope, err)
		}
	}

	if err := svc.Validate(context.Background(), actor.ID, ResourceProducts, ActionUpdate, ScopeSystem, nil); !errors.Is(err, ErrScopeViolation) {
		t.Errorf("GLOBAL grant should not cover SYSTEM check, got %v", err)
	}
}

func TestValidateInsufficientClearance(t *testing.T) {
	actor := newAdmin(2)
	repo, _, _, svc := newEnv(actor)
	perm := addPermission(repo, ResourceProducts, ActionUpdate, 3)
	addGrant(repo, actor.ID, perm.ID, ScopeGlobal, "", nil)

	err := svc.Validate(context.Background(), actor.ID, ResourceProducts, ActionUpdate, ScopeDepartment, nil)
	if !errors.Is(err, ErrInsufficientClearance) {
		t.Fatalf("expected ErrInsufficientClearance, got %v", err)
	}
}

func TestValidateIneligibleActor(t *testing.T) {
	actor := newAdmin(5)
	actor.IsActive = false
	repo, _, _, svc := newEnv(actor)
	addPermission(repo, ResourceProducts, ActionRead, 1)

	err := svc.Validate(context.Background(), actor.ID, ResourceProducts, ActionRead, ScopeGlobal, nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for inactive actor, got %v", err)
	}

	actor.IsActive = true
	actor.UserType = user.TypeBuyer
	err = svc.Validate(context.Background(), actor.ID, ResourceProducts, ActionRead, ScopeGlobal, nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-administrative actor, got %v", err)
	}
}

func TestValidateUnknownPermission(t *testing.T) {
	actor := newAdmin(5)
	_, _, _, svc := newEnv(actor)

	err := svc.Validate(context.Background(), actor.ID, ResourceOrders, ActionDelete, ScopeGlobal, nil)
	if !errors.Is(err, ErrPermissionNotFound) {
		t.Fatalf("expected ErrPermissionNotFound, got %v", err)
	}
}

func TestValidateExpiredGrantInvisible(t *testing.T) {
	actor := newAdmin(3)
	repo, _, _, svc := newEnv(actor)
	perm := addPermission(repo, ResourceProducts, ActionUpdate, 3)
	past := time.Now().Add(-time.Hour)
	addGrant(repo, actor.ID, perm.ID, ScopeDepartment, "dept-7", &past)

	err := svc.Validate(context.Background(), actor.ID, ResourceProducts, ActionUpdate, ScopeDepartment,
		&CheckContext{DepartmentID: "dept-7"})
	if !errors.Is(err, ErrScopeViolation) {
		t.Fatalf("expired grant must be invisible, expected ErrScopeViolation, got %v", err)
	}
}

func TestValidateContextMismatch(t *testing.T) {
	actor := newAdmin(3)
	repo, _, _, svc := newEnv(actor)
	perm := addPermission(repo, ResourceProducts, ActionUpdate, 3)
	addGrant(repo, actor.ID, perm.ID, ScopeDepartment, "dept-a", nil)

	err := svc.Validate(context.Background(), actor.ID, ResourceProducts, ActionUpdate, ScopeDepartment,
		&CheckContext{DepartmentID: "dept-b"})
	if !errors.Is(err, ErrContextMismatch) {
		t.Fatalf("expected ErrContextMismatch, got %v", err)
	}

	err = svc.Validate(context.Background(), actor.ID, ResourceProducts, ActionUpdate, ScopeDepartment,
		&CheckContext{DepartmentID: "dept-a"})
	if err != nil {
		t.Fatalf("matching context should pass, got %v", err)
	}
}

func TestValidateBlanketAuthority(t *testing.T) {
	actor := newAdmin(5)
	actor.UserType = user.TypeSuperuser
	repo, _, _, svc := newEnv(actor)
	addPermission(repo, ResourceSystemSettings, ActionUpdate, 5)

	err := svc.Validate(context.Background(), actor.ID, ResourceSystemSettings, ActionUpdate, ScopeSystem, nil)
	if err != nil {
		t.Fatalf("superuser should pass without grants, got %v", err)
	}

	// Blanket authority never bypasses clearance
	actor.SecurityClearanceLevel = 2
	err = svc.Validate(context.Background(), actor.ID, ResourceSystemSettings, ActionUpdate, ScopeSystem, nil)
	if !errors.Is(err, ErrInsufficientClearance) {
		t.Fatalf("expected ErrInsufficientClearance, got %v", err)
	}
}

func TestValidateEmitsAuditRecord(t *testing.T) {
	actor := newAdmin(3)
	repo, _, auditor, svc := newEnv(actor)
	perm := addPermission(repo, ResourceProducts, ActionRead, 1)
	addGrant(repo, actor.ID, perm.ID, ScopeGlobal, "", nil)

	_ = svc.Validate(context.Background(), actor.ID, ResourceProducts, ActionRead, ScopeUser, nil)
	_ = svc.Validate(context.Background(), actor.ID, ResourceProducts, ActionRead, ScopeSystem, nil)

	if len(auditor.records) != 2 {
		t.Fatalf("expected 2 audit records, got %d", len(auditor.records))
	}
	if auditor.records[0].Outcome != audit.OutcomeAllowed {
		t.Errorf("first check should audit as allowed, got %s", auditor.records[0].Outcome)
	}
	if auditor.records[1].Outcome != audit.OutcomeDenied {
		t.Errorf("second check should audit as denied, got %s", auditor.records[1].Outcome)
	}
	if !auditor.records[1].Reason.Valid {
		t.Error("denied check should carry a reason")
	}
}

func grantManage(repo *fakeRepo, granter *user.User, resource ResourceType, scope Scope, clearance int) {
	manage := addPermission(repo, resource, ActionManage, clearance)
	addGrant(repo, granter.ID, manage.ID, scope, "", nil)
}

func TestGrantPermissionSuccess(t *testing.T) {
	granter := newAdmin(5)
	target := newAdmin(3)
	repo, _, auditor, svc := newEnv(granter, target)
	grantManage(repo, granter, ResourceProducts, ScopeGlobal, 3)
	perm := addPermission(repo, ResourceProducts, ActionUpdate, 3)

	g, err := svc.GrantPermission(context.Background(), granter.ID, GrantInput{
		TargetID:     target.ID,
		PermissionID: perm.ID,
		Scope:        ScopeDepartment,
		ContextID:    "dept-4",
		Reason:       "incoming product review coverage",
	})
	if err != nil {
		t.Fatalf("grant should succeed: %v", err)
	}
	if g.UserID != target.ID || g.Scope != ScopeDepartment {
		t.Errorf("unexpected grant %+v", g)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 created grant, got %d", len(repo.created))
	}

	var granted int
	for _, rec := range auditor.records {
		if rec.Outcome == audit.OutcomeGranted {
			granted++
		}
	}
	if granted != 1 {
		t.Errorf("expected 1 granted audit record, got %d", granted)
	}

	// Target can now pass the check it was granted
	if err := svc.Validate(context.Background(), target.ID, ResourceProducts, ActionUpdate, ScopeDepartment,
		&CheckContext{DepartmentID: "dept-4"}); err != nil {
		t.Errorf("target should pass after grant, got %v", err)
	}
}

func TestGrantPermissionTargetAboveGranter(t *testing.T) {
	granter := newAdmin(5)
	target := newAdmin(6)
	repo, _, _, svc := newEnv(granter, target)
	grantManage(repo, granter, ResourceProducts, ScopeGlobal, 3)
	perm := addPermission(repo, ResourceProducts, ActionUpdate, 3)

	_, err := svc.GrantPermission(context.Background(), granter.ID, GrantInput{
		TargetID:     target.ID,
		PermissionID: perm.ID,
		Scope:        ScopeDepartment,
	})
	if !errors.Is(err, ErrGrantDenied) || !errors.Is(err, ErrTargetAboveGranter) {
		t.Fatalf("expected ErrGrantDenied wrapping ErrTargetAboveGranter, got %v", err)
	}
	if len(repo.created) != 0 {
		t.Errorf("denied grant must create no row, got %d", len(repo.created))
	}
}

func TestGrantPermissionSelfGrant(t *testing.T) {
	granter := newAdmin(5)
	repo, _, _, svc := newEnv(granter)
	grantManage(repo, granter, ResourceProducts, ScopeGlobal, 3)
	perm := addPermission(repo, ResourceProducts, ActionUpdate, 3)

	_, err := svc.GrantPermission(context.Background(), granter.ID, GrantInput{
		TargetID:     granter.ID,
		PermissionID: perm.ID,
		Scope:        ScopeUser,
	})
	if !errors.Is(err, ErrGrantDenied) || !errors.Is(err, ErrSelfGrant) {
		t.Fatalf("expected self-grant denial, got %v", err)
	}
	if len(repo.created) != 0 {
		t.Errorf("self-grant must create no row")
	}
}

func TestGrantPermissionTargetClearanceLow(t *testing.T) {
	granter := newAdmin(5)
	target := newAdmin(2)
	repo, _, _, svc := newEnv(granter, target)
	grantManage(repo, granter, ResourceProducts, ScopeGlobal, 3)
	perm := addPermission(repo, ResourceProducts, ActionUpdate, 3)

	_, err := svc.GrantPermission(context.Background(), granter.ID, GrantInput{
		TargetID:     target.ID,
		PermissionID: perm.ID,
		Scope:        ScopeDepartment,
	})
	if !errors.Is(err, ErrGrantDenied) || !errors.Is(err, ErrTargetClearanceLow) {
		t.Fatalf("expected ErrTargetClearanceLow, got %v", err)
	}
}

func TestGrantPermissionInactiveTarget(t *testing.T) {
	granter := newAdmin(5)
	target := newAdmin(3)
	target.IsActive = false
	repo, _, _, svc := newEnv(granter, target)
	grantManage(repo, granter, ResourceProducts, ScopeGlobal, 3)
	perm := addPermission(repo, ResourceProducts, ActionUpdate, 3)

	_, err := svc.GrantPermission(context.Background(), granter.ID, GrantInput{
		TargetID:     target.ID,
		PermissionID: perm.ID,
		Scope:        ScopeDepartment,
	})
	if !errors.Is(err, ErrGrantDenied) || !errors.Is(err, ErrTargetInactive) {
		t.Fatalf("expected ErrTargetInactive, got %v", err)
	}
}

func TestGrantPermissionExpiryInPast(t *testing.T) {
	granter := newAdmin(5)
	target := newAdmin(3)
	repo, _, _, svc := newEnv(granter, target)
	grantManage(repo, granter, ResourceProducts, ScopeGlobal, 3)
	perm := addPermission(repo, ResourceProducts, ActionUpdate, 3)

	past := time.Now().Add(-time.Minute)
	_, err := svc.GrantPermission(context.Background(), granter.ID, GrantInput{
		TargetID:     target.ID,
		PermissionID: perm.ID,
		Scope:        ScopeDepartment,
		ExpiresAt:    &past,
	})
	if !errors.Is(err, ErrGrantDenied) || !errors.Is(err, ErrExpiryNotFuture) {
		t.Fatalf("expected ErrExpiryNotFuture, got %v", err)
	}
}

func TestGrantPermissionGranterLacksManage(t *testing.T) {
	granter := newAdmin(5)
	target := newAdmin(3)
	repo, _, _, svc := newEnv(granter, target)
	perm := addPermission(repo, ResourceProducts, ActionUpdate, 3)
	addPermission(repo, ResourceProducts, ActionManage, 3)

	_, err := svc.GrantPermission(context.Background(), granter.ID, GrantInput{
		TargetID:     target.ID,
		PermissionID: perm.ID,
		Scope:        ScopeDepartment,
	})
	if !errors.Is(err, ErrGrantDenied) || !errors.Is(err, ErrScopeViolation) {
		t.Fatalf("expected ErrGrantDenied wrapping ErrScopeViolation, got %v", err)
	}
}

func TestRevokePermissionIdempotent(t *testing.T) {
	revoker := newAdmin(5)
	holder := newAdmin(3)
	repo, _, auditor, svc := newEnv(revoker, holder)
	grantManage(repo, revoker, ResourceProducts, ScopeGlobal, 3)
	perm := addPermission(repo, ResourceProducts, ActionUpdate, 3)
	g := addGrant(repo, holder.ID, perm.ID, ScopeDepartment, "dept-2", nil)

	if err := svc.RevokePermission(context.Background(), revoker.ID, g.ID, "rotation"); err != nil {
		t.Fatalf("first revoke failed: %v", err)
	}
	if g.IsActive {
		t.Fatal("grant should be inactive after revoke")
	}

	before := len(auditor.records)
	if err := svc.RevokePermission(context.Background(), revoker.ID, g.ID, "rotation"); err != nil {
		t.Fatalf("second revoke should be a no-op, got %v", err)
	}

	var revoked int
	for _, rec := range auditor.records[before:] {
		if rec.Outcome == audit.OutcomeRevoked {
			revoked++
		}
	}
	if revoked != 0 {
		t.Errorf("idempotent revoke must not emit a second revoked record, got %d", revoked)
	}

	// Holder must no longer pass the check
	err := svc.Validate(context.Background(), holder.ID, ResourceProducts, ActionUpdate, ScopeDepartment,
		&CheckContext{DepartmentID: "dept-2"})
	if !errors.Is(err, ErrScopeViolation) {
		t.Errorf("revoked grant must be invisible, got %v", err)
	}
}

func TestRevokePermissionUnknownGrant(t *testing.T) {
	revoker := newAdmin(5)
	_, _, _, svc := newEnv(revoker)

	err := svc.RevokePermission(context.Background(), revoker.ID, uuid.New(), "")
	if !errors.Is(err, ErrGrantNotFound) {
		t.Fatalf("expected ErrGrantNotFound, got %v", err)
	}
}

func TestRevokePermissionRevokerLacksManage(t *testing.T) {
	revoker := newAdmin(5)
	holder := newAdmin(3)
	repo, _, _, svc := newEnv(revoker, holder)
	addPermission(repo, ResourceProducts, ActionManage, 3)
	perm := addPermission(repo, ResourceProducts, ActionUpdate, 3)
	g := addGrant(repo, holder.ID, perm.ID, ScopeDepartment, "", nil)

	err := svc.RevokePermission(context.Background(), revoker.ID, g.ID, "")
	if !errors.Is(err, ErrRevokeDenied) {
		t.Fatalf("expected ErrRevokeDenied, got %v", err)
	}
	if !g.IsActive {
		t.Error("denied revoke must leave the grant active")
	}
}
