// Package errors provides standardized API error types.
package errors

import (
	"fmt"
	"net/http"
)

// APIError represents a standardized API error response.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Details    any    `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// WithDetails returns a copy of the error with additional details.
func (e *APIError) WithDetails(details any) *APIError {
	return &APIError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Details:    details,
	}
}

// WithMessage returns a copy of the error with a custom message.
func (e *APIError) WithMessage(message string) *APIError {
	return &APIError{
		Code:       e.Code,
		Message:    message,
		StatusCode: e.StatusCode,
		Details:    e.Details,
	}
}

// Standard error definitions
var (
	// ErrUnauthorized is returned when authentication is required but missing or invalid.
	ErrUnauthorized = &APIError{
		Code:       "unauthorized",
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	// ErrInvalidCredentials is returned when email/password verification fails.
	ErrInvalidCredentials = &APIError{
		Code:       "invalid_credentials",
		Message:    "Invalid email or password",
		StatusCode: http.StatusUnauthorized,
	}

	// ErrInvalidOTP is returned when a one-time passcode does not match or no
	// pending verification exists for the address.
	ErrInvalidOTP = &APIError{
		Code:       "invalid_otp",
		Message:    "Invalid or expired one-time passcode",
		StatusCode: http.StatusBadRequest,
	}

	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = &APIError{
		Code:       "not_found",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	// ErrBadRequest is returned when the request is malformed.
	ErrBadRequest = &APIError{
		Code:       "bad_request",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	// ErrUnsupportedMediaType is returned when an upload's declared content type
	// is outside the category's allow-list.
	ErrUnsupportedMediaType = &APIError{
		Code:       "unsupported_media_type",
		Message:    "File type is not allowed for this category",
		StatusCode: http.StatusUnsupportedMediaType,
	}

	// ErrPayloadTooLarge is returned when an upload exceeds the category's size cap.
	ErrPayloadTooLarge = &APIError{
		Code:       "payload_too_large",
		Message:    "Uploaded file exceeds the maximum allowed size",
		StatusCode: http.StatusRequestEntityTooLarge,
	}

	// ErrNotificationFailed is returned when the OTP email could not be delivered.
	ErrNotificationFailed = &APIError{
		Code:       "notification_failed",
		Message:    "Could not deliver the verification code",
		StatusCode: http.StatusBadGateway,
	}

	// ErrRateLimited is returned when rate limits are exceeded.
	ErrRateLimited = &APIError{
		Code:       "rate_limited",
		Message:    "Too many requests. Please try again later.",
		StatusCode: http.StatusTooManyRequests,
	}

	// ErrInternal is returned for unexpected server errors.
	ErrInternal = &APIError{
		Code:       "internal_error",
		Message:    "An internal error occurred",
		StatusCode: http.StatusInternalServerError,
	}

	// ErrConflict is returned when a resource already exists.
	ErrConflict = &APIError{
		Code:       "conflict",
		Message:    "Resource already exists",
		StatusCode: http.StatusConflict,
	}

	// ErrServiceUnavailable is returned when a dependent service is unavailable.
	ErrServiceUnavailable = &APIError{
		Code:       "service_unavailable",
		Message:    "Service temporarily unavailable",
		StatusCode: http.StatusServiceUnavailable,
	}
)

// NewValidationError creates a validation error for a specific field.
func NewValidationError(field, message string) *APIError {
	return &APIError{
		Code:       "validation_error",
		Message:    fmt.Sprintf("Validation failed: %s", message),
		StatusCode: http.StatusBadRequest,
		Details: map[string]string{
			"field": field,
			"error": message,
		},
	}
}

// NewValidationErrors creates a validation error with multiple field errors.
func NewValidationErrors(errors map[string]string) *APIError {
	return &APIError{
		Code:       "validation_error",
		Message:    "One or more fields failed validation",
		StatusCode: http.StatusBadRequest,
		Details:    errors,
	}
}

// NewNotFoundError creates a not found error for a specific resource type.
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:       "not_found",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

// NewConflictError creates a conflict error with a custom message.
func NewConflictError(message string) *APIError {
	return &APIError{
		Code:       "conflict",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewInternalError creates an internal error with a custom message.
// This should only be used in development; in production, use ErrInternal.
func NewInternalError(message string) *APIError {
	return &APIError{
		Code:       "internal_error",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// IsAPIError checks if an error is an APIError.
func IsAPIError(err error) bool {
	_, ok := err.(*APIError)
	return ok
}

// AsAPIError converts an error to an APIError if possible.
// Returns ErrInternal if the error is not an APIError.
func AsAPIError(err error) *APIError {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr
	}
	return ErrInternal
}
