package errors

import "errors"

var (
	ErrApplicationNotFound  = errors.New("application not found")
	ErrInvalidID            = errors.New("invalid application ID format")
	ErrDuplicateApplication = errors.New("open application already exists for this session and operator")
)
