package admin

import (
	"time"

	"github.com/google/uuid"

	"github.com/mestore/mestore-api/internal/domain/permission"
	"github.com/mestore/mestore-api/internal/domain/user"
)

// LoginRequest for POST /admins/auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginResponse after successful login or token refresh
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresIn    int64          `json:"expires_in"`
	Admin        *AdminResponse `json:"admin"`
}

// RefreshRequest for POST /admins/auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AdminResponse represents an administrative user in the API
type AdminResponse struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name"`
	UserType       string    `json:"user_type"`
	ClearanceLevel int       `json:"security_clearance_level"`
	IsActive       bool      `json:"is_active"`
	IsLocked       bool      `json:"is_locked"`
	LastLoginAt    *string   `json:"last_login_at,omitempty"`
	CreatedAt      string    `json:"created_at"`
}

// AdminResponseFromEntity converts entity to response
func AdminResponseFromEntity(u *user.User) *AdminResponse {
	resp := &AdminResponse{
		ID:             u.ID,
		Email:          u.Email,
		FullName:       u.FullName,
		UserType:       string(u.UserType),
		ClearanceLevel: u.SecurityClearanceLevel,
		IsActive:       u.IsActive,
		IsLocked:       u.IsLocked,
		CreatedAt:      u.CreatedAt.Format(time.RFC3339),
	}
	if u.LastLoginAt.Valid {
		s := u.LastLoginAt.Time.Format(time.RFC3339)
		resp.LastLoginAt = &s
	}
	return resp
}

// CreateAdminRequest for POST /admins
type CreateAdminRequest struct {
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=8"`
	FullName       string `json:"full_name" validate:"required,min=2,max=100"`
	UserType       string `json:"user_type" validate:"required,oneof=ADMIN SUPERUSER"`
	ClearanceLevel int    `json:"security_clearance_level" validate:"required,gte=1,lte=5"`
}

// UpdateAdminRequest for PATCH /admins/{id}
type UpdateAdminRequest struct {
	FullName       *string `json:"full_name,omitempty" validate:"omitempty,min=2,max=100"`
	UserType       *string `json:"user_type,omitempty" validate:"omitempty,oneof=ADMIN SUPERUSER"`
	ClearanceLevel *int    `json:"security_clearance_level,omitempty" validate:"omitempty,gte=1,lte=5"`
	IsActive       *bool   `json:"is_active,omitempty"`
	IsLocked       *bool   `json:"is_locked,omitempty"`
}

// GrantRequest for POST /admins/permissions/grant
type GrantRequest struct {
	TargetUserID string     `json:"target_user_id" validate:"required,uuid"`
	PermissionID string     `json:"permission_id" validate:"required,uuid"`
	Scope        string     `json:"scope" validate:"required,scope"`
	ContextID    string     `json:"context_id,omitempty" validate:"max=64"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Reason       string     `json:"reason,omitempty" validate:"max=500"`
}

// RevokeRequest for POST /admins/permissions/revoke
type RevokeRequest struct {
	GrantID string `json:"grant_id" validate:"required,uuid"`
	Reason  string `json:"reason,omitempty" validate:"max=500"`
}

// GrantResponse represents a grant in the API
type GrantResponse struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	PermissionID uuid.UUID  `json:"permission_id"`
	Scope        string     `json:"scope"`
	ContextID    *string    `json:"context_id,omitempty"`
	GrantedBy    uuid.UUID  `json:"granted_by"`
	GrantedAt    string     `json:"granted_at"`
	ExpiresAt    *string    `json:"expires_at,omitempty"`
	IsActive     bool       `json:"is_active"`
	Reason       *string    `json:"reason,omitempty"`
	RevokedBy    *uuid.UUID `json:"revoked_by,omitempty"`
	RevokedAt    *string    `json:"revoked_at,omitempty"`
}

// GrantResponseFromEntity converts entity to response
func GrantResponseFromEntity(g *permission.Grant) *GrantResponse {
	resp := &GrantResponse{
		ID:           g.ID,
		UserID:       g.UserID,
		PermissionID: g.PermissionID,
		Scope:        string(g.Scope),
		GrantedBy:    g.GrantedBy,
		GrantedAt:    g.GrantedAt.Format(time.RFC3339),
		IsActive:     g.IsActive,
	}
	if g.ContextID.Valid {
		resp.ContextID = &g.ContextID.String
	}
	if g.ExpiresAt.Valid {
		s := g.ExpiresAt.Time.Format(time.RFC3339)
		resp.ExpiresAt = &s
	}
	if g.Reason.Valid {
		resp.Reason = &g.Reason.String
	}
	if g.RevokedBy.Valid {
		id := g.RevokedBy.UUID
		resp.RevokedBy = &id
	}
	if g.RevokedAt.Valid {
		s := g.RevokedAt.Time.Format(time.RFC3339)
		resp.RevokedAt = &s
	}
	return resp
}
