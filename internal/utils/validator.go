// internal/utils/validator.go
package utils

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/licensehub/license-backend/internal/models"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("license_type", validateLicenseType)
	validate.RegisterValidation("approval_priority", validateApprovalPriority)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateLicenseType(fl validator.FieldLevel) bool {
	return models.LicenseType(fl.Field().String()).Valid()
}

func validateApprovalPriority(fl validator.FieldLevel) bool {
	switch models.ApprovalPriority(fl.Field().String()) {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityCritical:
		return true
	}
	return false
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "license_type":
		return "License type must be one of community, trial, enterprise, custom"
	case "approval_priority":
		return "Priority must be one of low, medium, high, critical"
	default:
		return e.Field() + " is invalid"
	}
}
