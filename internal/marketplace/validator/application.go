package validator

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	apperrors "simbook/pkg/errors"
	"simbook/pkg/logger"
)

// ApplicationInput is the wire shape of an application command. Accept and
// Reject reuse it; Reason only matters on rejection.
type ApplicationInput struct {
	OperatorID string `json:"operator_id" validate:"required,mongodb"`
	Reason     string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type ApplicationValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewApplicationValidator(log *logger.Logger) *ApplicationValidator {
	return &ApplicationValidator{
		validate: validator.New(),
		logger:   log,
	}
}

func (av *ApplicationValidator) ValidateInput(input *ApplicationInput) error {
	err := av.validate.Struct(input)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return apperrors.Internal("Application validation could not run", err)
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return apperrors.Internal("Application validation failed unexpectedly", err)
	}

	details := make(map[string]any, len(fieldErrors))
	for _, fe := range fieldErrors {
		details[fe.Field()] = messageFor(fe)
	}

	av.logger.Debug("Application validation failed", "details", details)
	return apperrors.Validation("Application validation failed", details)
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "mongodb":
		return "must be a valid object ID"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
