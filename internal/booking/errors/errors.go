package errors

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidID       = errors.New("invalid session ID format")
	ErrLockHeld        = errors.New("booking lock already held")
)
