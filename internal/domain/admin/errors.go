package admin

import "errors"

var (
	ErrAdminNotFound        = errors.New("admin not found")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrAccountInactive      = errors.New("account is inactive")
	ErrAccountLocked        = errors.New("account is locked")
	ErrNotAdministrative    = errors.New("account is not an administrative account")
	ErrEmailTaken           = errors.New("email already in use")
	ErrCannotManageUser     = errors.New("cannot manage a user of higher type")
	ErrClearanceAboveActor  = errors.New("clearance level exceeds your own")
	ErrSelfEscalation       = errors.New("cannot change your own type, clearance, or status")
	ErrCannotDeactivateSelf = errors.New("cannot deactivate your own account")
)
