package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report json field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Register custom validations
	validate.RegisterValidation("notblank", validateNotBlank)
}

// CreateFlagRequest represents the request payload for creating a flag
type CreateFlagRequest struct {
	Key         string `json:"key" validate:"notblank,max=100"`
	Name        string `json:"name" validate:"notblank,max=200"`
	Description string `json:"description" validate:"max=1000"`
	Enabled     *bool  `json:"enabled"`
}

// UpdateFlagRequest represents the request payload for a partial flag update.
// Absent fields are left unchanged.
type UpdateFlagRequest struct {
	Key         *string `json:"key" validate:"omitnil,notblank,max=100"`
	Name        *string `json:"name" validate:"omitnil,notblank,max=200"`
	Description *string `json:"description" validate:"omitnil,max=1000"`
	Enabled     *bool   `json:"enabled"`
}

// ValidationError represents a validation error with field details
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (ve ValidationErrors) Error() string {
	var messages []string
	for _, err := range ve.Errors {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, ", ")
}

// First returns the first failing field, used for single-message responses.
func (ve ValidationErrors) First() (ValidationError, bool) {
	if len(ve.Errors) == 0 {
		return ValidationError{}, false
	}
	return ve.Errors[0], true
}

// ValidateCreateFlagRequest validates a flag creation request
func ValidateCreateFlagRequest(req CreateFlagRequest) error {
	if err := validate.Struct(req); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// ValidateUpdateFlagRequest validates a flag update request
func ValidateUpdateFlagRequest(req UpdateFlagRequest) error {
	if err := validate.Struct(req); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// ValidateFlagID validates a flag ID path parameter
func ValidateFlagID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("flag ID is required")
	}
	return nil
}

// ValidateActor validates an actor name
func ValidateActor(actor string) error {
	if strings.TrimSpace(actor) == "" {
		return errors.New("actor is required")
	}
	if len(actor) > 100 {
		return errors.New("actor name too long (max 100 characters)")
	}
	return nil
}

// validateNotBlank rejects strings that are empty after trimming whitespace
func validateNotBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}
	return strings.TrimSpace(field.String()) != ""
}

// formatValidationErrors formats validator errors into a custom error format
func formatValidationErrors(err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}

	var validationErrors []ValidationError
	for _, err := range fieldErrors {
		var message string

		switch err.Tag() {
		case "notblank":
			message = fmt.Sprintf("%s is required and cannot be empty", titleCase(err.Field()))
		case "max":
			message = fmt.Sprintf("Must be at most %s characters long", err.Param())
		default:
			message = "Invalid value"
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return ValidationErrors{Errors: validationErrors}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
