package permission

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines permission catalog and grant data access
type Repository interface {
	// Catalog
	GetPermission(ctx context.Context, resource ResourceType, action Action) (*Permission, error)
	GetPermissionByID(ctx context.Context, id uuid.UUID) (*Permission, error)
	ListPermissions(ctx context.Context) ([]*Permission, error)
	UpsertPermission(ctx context.Context, p *Permission) error

	// Grants
	ListUsableGrants(ctx context.Context, userID, permissionID uuid.UUID) ([]*Grant, error)
	ListGrantsByUser(ctx context.Context, userID uuid.UUID) ([]*Grant, error)
	GetGrant(ctx context.Context, id uuid.UUID) (*Grant, error)
	CreateGrant(ctx context.Context, g *Grant) error
	RevokeGrant(ctx context.Context, id, revokedBy uuid.UUID, reason string) (changed bool, err error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates permission repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Catalog

func (r *repository) GetPermission(ctx context.Context, resource ResourceType, action Action) (*Permission, error) {
	query := `SELECT * FROM permissions WHERE resource_type = $1 AND action = $2`
	var p Permission
	err := r.db.GetContext(ctx, &p, query, resource, action)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetPermissionByID(ctx context.Context, id uuid.UUID) (*Permission, error) {
	query := `SELECT * FROM permissions WHERE id = $1`
	var p Permission
	err := r.db.GetContext(ctx, &p, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) ListPermissions(ctx context.Context) ([]*Permission, error) {
	query := `SELECT * FROM permissions ORDER BY resource_type, action`
	var perms []*Permission
	err := r.db.SelectContext(ctx, &perms, query)
	return perms, err
}

// UpsertPermission seeds one catalog row, keyed by (resource_type, action)
func (r *repository) UpsertPermission(ctx context.Context, p *Permission) error {
	query := `
		INSERT INTO permissions (id, resource_type, action, scope, required_clearance_level, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (resource_type, action) DO UPDATE SET
			scope = EXCLUDED.scope,
			required_clearance_level = EXCLUDED.required_clearance_level,
			description = EXCLUDED.description
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.ResourceType,
		p.Action,
		p.Scope,
		p.RequiredClearanceLevel,
		p.Description,
		p.CreatedAt,
	)
	return err
}

// Grants

// ListUsableGrants returns active, unexpired grants for (user, permission).
// Expired rows stay in the table for audit but never reach validation.
func (r *repository) ListUsableGrants(ctx context.Context, userID, permissionID uuid.UUID) ([]*Grant, error) {
	query := `
		SELECT * FROM permission_grants
		WHERE user_id = $1 AND permission_id = $2 AND is_active = true
		  AND (expires_at IS NULL OR expires_at > NOW())
	`
	var grants []*Grant
	err := r.db.SelectContext(ctx, &grants, query, userID, permissionID)
	return grants, err
}

func (r *repository) ListGrantsByUser(ctx context.Context, userID uuid.UUID) ([]*Grant, error) {
	query := `SELECT * FROM permission_grants WHERE user_id = $1 ORDER BY granted_at DESC`
	var grants []*Grant
	err := r.db.SelectContext(ctx, &grants, query, userID)
	return grants, err
}

func (r *repository) GetGrant(ctx context.Context, id uuid.UUID) (*Grant, error) {
	query := `SELECT * FROM permission_grants WHERE id = $1`
	var g Grant
	err := r.db.GetContext(ctx, &g, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

// CreateGrant inserts a grant row. The target user row is locked for the
// duration of the transaction so concurrent grant/revoke operations on the
// same user serialize; last committed transaction wins.
func (r *repository) CreateGrant(ctx context.Context, g *Grant) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var locked uuid.UUID
	if err := tx.GetContext(ctx, &locked, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, g.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTargetNotFound
		}
		return err
	}

	query := `
		INSERT INTO permission_grants (id, user_id, permission_id, scope, context_id, granted_by, granted_at, expires_at, is_active, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := tx.ExecContext(ctx, query,
		g.ID,
		g.UserID,
		g.PermissionID,
		g.Scope,
		g.ContextID,
		g.GrantedBy,
		g.GrantedAt,
		g.ExpiresAt,
		g.IsActive,
		g.Reason,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// RevokeGrant deactivates a grant under a row lock. Revoking a grant that
// is already inactive or expired changes nothing and reports changed=false.
func (r *repository) RevokeGrant(ctx context.Context, id, revokedBy uuid.UUID, reason string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var g Grant
	if err := tx.GetContext(ctx, &g, `SELECT * FROM permission_grants WHERE id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrGrantNotFound
		}
		return false, err
	}

	if !g.UsableAt(time.Now()) {
		// Idempotent: nothing to do, preserve the existing row as-is
		return false, tx.Commit()
	}

	query := `
		UPDATE permission_grants
		SET is_active = false, revoked_by = $2, revoked_at = NOW(), revoke_reason = $3
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, query, id, revokedBy, sql.NullString{String: reason, Valid: reason != ""}); err != nil {
		return false, err
	}

	return true, tx.Commit()
}
