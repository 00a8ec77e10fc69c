package session

import "errors"

var (
	ErrValidation   = errors.New("invalid interview session")
	ErrNotInactive  = errors.New("session is not inactive")
	ErrInvalidState = errors.New("action not allowed in current state")
	ErrSaveFailed   = errors.New("failed to save progress")
)
