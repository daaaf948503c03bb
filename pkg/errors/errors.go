package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidStatus       = "INVALID_STATUS"
	CodeCapacityExceeded    = "CAPACITY_EXCEEDED"
	CodeNoAvailability      = "NO_AVAILABILITY"
	CodeNoSetupAvailable    = "NO_SETUP_AVAILABLE"
	CodeStaffingInvalid     = "STAFFING_INVALID"
	CodeAlreadyApplied      = "ALREADY_APPLIED"
	CodeAlreadyAccepted     = "ALREADY_ACCEPTED"
	CodeApplicationNotFound = "APPLICATION_NOT_FOUND"
	CodeSessionNotVisible   = "SESSION_NOT_VISIBLE"
	CodeValidation          = "VALIDATION_FAILED"
	CodeConflict            = "CONFLICT"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeInternal            = "INTERNAL_ERROR"
)

// AppError is the typed result every domain rule violation is recovered
// into. Nothing in the engines panics for an expected business condition.
type AppError struct {
	Code       string         `json:"error"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

type ErrorResponse struct {
	Success bool           `json:"success"`
	Code    string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *AppError) ToJSON() []byte {
	data, _ := json.Marshal(ErrorResponse{
		Success: false,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
	return data
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func InvalidStatus(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeInvalidStatus,
		Message:    message,
		HTTPStatus: http.StatusConflict,
		Details:    details,
	}
}

func CapacityExceeded(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeCapacityExceeded,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func NoAvailability(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeNoAvailability,
		Message:    message,
		HTTPStatus: http.StatusConflict,
		Details:    details,
	}
}

func NoSetupAvailable(message string) *AppError {
	return &AppError{
		Code:       CodeNoSetupAvailable,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func StaffingInvalid(message string, reasons []string) *AppError {
	return &AppError{
		Code:       CodeStaffingInvalid,
		Message:    message,
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"reasons": reasons},
	}
}

func AlreadyApplied(sessionID, operatorID string) *AppError {
	return &AppError{
		Code:       CodeAlreadyApplied,
		Message:    "Operator already has an open application for this session",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"session_id":  sessionID,
			"operator_id": operatorID,
		},
	}
}

func AlreadyAccepted(sessionID, operatorID string) *AppError {
	return &AppError{
		Code:       CodeAlreadyAccepted,
		Message:    "Operator is already accepted on this session",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"session_id":  sessionID,
			"operator_id": operatorID,
		},
	}
}

func ApplicationNotFound(sessionID, operatorID string) *AppError {
	return &AppError{
		Code:       CodeApplicationNotFound,
		Message:    "No application exists for this operator and session",
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"session_id":  sessionID,
			"operator_id": operatorID,
		},
	}
}

func SessionNotVisible(sessionID string) *AppError {
	return &AppError{
		Code:       CodeSessionNotVisible,
		Message:    "Session is not visible on the marketplace",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"session_id": sessionID},
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// AsAppError coerces any error into an AppError so callers always render
// a structured response.
func AsAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}
