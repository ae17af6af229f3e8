package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// UserType represents the account category (matches user_type enum).
// Types form a strict total order via the rank table below; there is no
// role inheritance.
type UserType string

const (
	TypeBuyer     UserType = "BUYER"
	TypeVendor    UserType = "VENDOR"
	TypeAdmin     UserType = "ADMIN"
	TypeSuperuser UserType = "SUPERUSER"
	TypeSystem    UserType = "SYSTEM"
)

// userTypeRank defines the privilege order SYSTEM > SUPERUSER > ADMIN > VENDOR > BUYER
var userTypeRank = map[UserType]int{
	TypeBuyer:     10,
	TypeVendor:    20,
	TypeAdmin:     60,
	TypeSuperuser: 80,
	TypeSystem:    100,
}

// Valid reports whether t is a known user type
func (t UserType) Valid() bool {
	_, ok := userTypeRank[t]
	return ok
}

// AtLeast reports whether t ranks at or above other
func (t UserType) AtLeast(other UserType) bool {
	return userTypeRank[t] >= userTypeRank[other]
}

// Administrative reports whether t may use the admin API at all
func (t UserType) Administrative() bool {
	return t.AtLeast(TypeAdmin)
}

// Clearance level bounds
const (
	MinClearanceLevel = 1
	MaxClearanceLevel = 5
)

// ValidClearance reports whether level is within the allowed range
func ValidClearance(level int) bool {
	return level >= MinClearanceLevel && level <= MaxClearanceLevel
}

// User represents an account (matches users table)
type User struct {
	ID                     uuid.UUID      `db:"id"`
	Email                  string         `db:"email"`
	PasswordHash           string         `db:"password_hash"`
	FullName               string         `db:"full_name"`
	UserType               UserType       `db:"user_type"`
	SecurityClearanceLevel int            `db:"security_clearance_level"`
	IsActive               bool           `db:"is_active"`
	IsLocked               bool           `db:"is_locked"`
	LastLoginAt            sql.NullTime   `db:"last_login_at"`
	LastLoginIP            sql.NullString `db:"last_login_ip"`
	CreatedAt              time.Time      `db:"created_at"`
	UpdatedAt              time.Time      `db:"updated_at"`
}

// Eligible reports whether the user may act through the admin API:
// active, not locked, and of an administrative type.
func (u *User) Eligible() bool {
	return u.IsActive && !u.IsLocked && u.UserType.Administrative()
}

// HasBlanketAuthority reports whether the user holds implicit SYSTEM-scope
// authority for every catalog permission. Clearance checks still apply.
func (u *User) HasBlanketAuthority() bool {
	return u.UserType == TypeSuperuser || u.UserType == TypeSystem
}
