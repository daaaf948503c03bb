package errors

import "errors"

var (
	ErrSetupNotFound    = errors.New("setup not found")
	ErrOperatorNotFound = errors.New("operator not found")
	ErrInvalidID        = errors.New("invalid resource ID format")
)
