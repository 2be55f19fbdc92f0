// Package services provides standardized error types for service layer
// operations.
package services

import (
	"errors"
	"fmt"

	"github.com/chalique/botflow/pkg/persistence"
)

// Business logic errors. Validation errors map to 4xx responses at the web
// layer.
var (
	ErrFlowNotFound = persistence.ErrFlowNotFound
	ErrBotNotFound  = persistence.ErrBotNotFound

	// Validation errors (400 Bad Request).
	ErrFlowNil             = errors.New("flow cannot be nil")
	ErrFlowNameRequired    = errors.New("flow name is required")
	ErrBotNil              = errors.New("bot cannot be nil")
	ErrBotTokenRequired    = errors.New("bot token is required")
	ErrInvalidNodePayload  = errors.New("invalid node payload")
	ErrEdgeEndpointMissing = errors.New("edge source and target are required")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrFlowNil) ||
		errors.Is(err, ErrFlowNameRequired) ||
		errors.Is(err, ErrBotNil) ||
		errors.Is(err, ErrBotTokenRequired) ||
		errors.Is(err, ErrInvalidNodePayload) ||
		errors.Is(err, ErrEdgeEndpointMissing)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
