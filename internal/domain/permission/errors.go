package permission

import (
	"errors"
	"fmt"
)

// Validation failure reasons. Validate never returns a generic denial:
// callers always learn which check failed.
var (
	ErrUnauthorized          = errors.New("actor not eligible for administrative actions")
	ErrInsufficientClearance = errors.New("security clearance level too low")
	ErrScopeViolation        = errors.New("requested scope exceeds held scope")
	ErrContextMismatch       = errors.New("grant does not cover the requested department or team")
)

// Grant/revoke failures. The specific violated precondition is always
// attached, reachable through errors.Is.
var (
	ErrGrantDenied  = errors.New("grant denied")
	ErrRevokeDenied = errors.New("revoke denied")

	ErrSelfGrant          = errors.New("cannot grant permissions to yourself")
	ErrTargetNotFound     = errors.New("target user not found")
	ErrTargetInactive     = errors.New("target user is not active")
	ErrTargetClearanceLow = errors.New("target clearance below the permission's required level")
	ErrTargetAboveGranter = errors.New("target clearance exceeds the granter's own level")
	ErrExpiryNotFuture    = errors.New("expiration must be strictly in the future")
	ErrPermissionNotFound = errors.New("permission not found in catalog")
	ErrGrantNotFound      = errors.New("grant not found")
)

func grantDenied(reason error) error {
	return fmt.Errorf("%w: %w", ErrGrantDenied, reason)
}

func revokeDenied(reason error) error {
	return fmt.Errorf("%w: %w", ErrRevokeDenied, reason)
}
