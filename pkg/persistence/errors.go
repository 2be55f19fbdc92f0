// Package persistence provides standardized error types for storage
// operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrFlowNotFound indicates no flow exists for the given identifier,
	// or a bot has no active default flow.
	ErrFlowNotFound = errors.New("flow not found")

	// ErrBotNotFound indicates no bot exists for the given id or token.
	ErrBotNotFound = errors.New("bot not found")
)

// FlowError wraps flow storage errors with operation context.
type FlowError struct {
	Op     string // Operation being performed (e.g., "FlowByID", "SaveFlow")
	FlowID string
	Err    error
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("%s operation failed for flow %s: %v", e.Op, e.FlowID, e.Err)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

func (e *FlowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewFlowError creates a flow error with context.
func NewFlowError(op, flowID string, err error) *FlowError {
	return &FlowError{Op: op, FlowID: flowID, Err: err}
}

// BotError wraps bot storage errors with operation context.
type BotError struct {
	Op    string
	BotID string
	Err   error
}

func (e *BotError) Error() string {
	return fmt.Sprintf("%s operation failed for bot %s: %v", e.Op, e.BotID, e.Err)
}

func (e *BotError) Unwrap() error {
	return e.Err
}

func (e *BotError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewBotError creates a bot error with context.
func NewBotError(op, botID string, err error) *BotError {
	return &BotError{Op: op, BotID: botID, Err: err}
}

// IsFlowNotFound checks if an error indicates a flow was not found.
func IsFlowNotFound(err error) bool {
	return errors.Is(err, ErrFlowNotFound)
}

// IsBotNotFound checks if an error indicates a bot was not found.
func IsBotNotFound(err error) bool {
	return errors.Is(err, ErrBotNotFound)
}
