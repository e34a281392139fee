package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedMedia indicates that an uploaded file has a disallowed type.
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// ErrPayloadTooLarge indicates that an upload exceeds the configured size limits.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrAssetNotFound indicates that a figure's bytes could not be located.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrRenderFailed indicates that the markup-to-PDF backend failed.
	ErrRenderFailed = errors.New("render failed")

	// ErrServiceUnavailable indicates that an external service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrGenerationFailed indicates that a paper could not be laid out as a document.
	ErrGenerationFailed = errors.New("document generation failed")

	// ErrCancelled indicates that an operation was cancelled.
	ErrCancelled = errors.New("cancelled")
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError provides details about a not found entity.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ExternalAPIError provides details about a failed call to an external service.
type ExternalAPIError struct {
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

// Unwrap returns the underlying cause, or ErrServiceUnavailable when there is none.
func (e *ExternalAPIError) Unwrap() error {
	if e.Cause == nil {
		return ErrServiceUnavailable
	}
	return e.Cause
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewExternalAPIError creates a new ExternalAPIError.
func NewExternalAPIError(source string, statusCode int, message string, cause error) *ExternalAPIError {
	return &ExternalAPIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}
