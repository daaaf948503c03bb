package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "simbook/pkg/errors"
	"simbook/pkg/logger"
	"simbook/pkg/model"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type SessionValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewSessionValidator(log *logger.Logger) *SessionValidator {
	v := validator.New()

	if err := v.RegisterValidation("calendar_date", validateCalendarDate); err != nil {
		log.Fatal("Failed to register 'calendar_date' validator", "error", err)
	}

	return &SessionValidator{
		validate: v,
		logger:   log,
	}
}

func validateCalendarDate(fl validator.FieldLevel) bool {
	return model.ValidDate(strings.TrimSpace(fl.Field().String()))
}

// ValidateSession checks the structural rules declared on the model. It
// returns a VALIDATION_FAILED AppError with per-field details so handlers
// can render the failure directly.
func (sv *SessionValidator) ValidateSession(s *model.Session) error {
	err := sv.validate.Struct(s)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return apperrors.Internal("Session validation could not run", err)
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return apperrors.Internal("Session validation failed unexpectedly", err)
	}

	details := make(map[string]any, len(fieldErrors))
	var verrs ValidationErrors
	for _, fe := range fieldErrors {
		msg := messageFor(fe)
		verrs = append(verrs, ValidationError{Field: fe.Field(), Message: msg})
		details[fe.Field()] = msg
	}

	sv.logger.Debug("Session validation failed", "errors", verrs.Error())
	return apperrors.Validation("Session validation failed", details)
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "mongodb":
		return "must be a valid object ID"
	case "calendar_date":
		return "must be a calendar date in YYYY-MM-DD format"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
