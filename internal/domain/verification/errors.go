package verification

import "errors"

var (
	ErrNotFound          = errors.New("verification not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)
