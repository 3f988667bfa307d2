package models

import (
	"errors"
	"fmt"
)

// Structural mutation errors. They are synchronous and recoverable: the caller retries with
// corrected input.
var (
	// ErrDuplicateName indicates a variable name is taken or is not a valid identifier.
	ErrDuplicateName = errors.New("duplicate variable name")

	// ErrInvalidIdentifier indicates a variable name does not match the identifier syntax.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrDuplicateID indicates a node or edge with the same id already exists.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrNotFound indicates a node, edge or variable was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidHandle indicates an edge source handle is not allowed on its source node.
	ErrInvalidHandle = errors.New("invalid source handle")

	// ErrInvalidNode indicates a node whose payload does not match its type.
	ErrInvalidNode = errors.New("invalid node")

	// ErrInvalidDefault indicates a variable default value does not match its declared type.
	ErrInvalidDefault = errors.New("default value does not match variable type")
)

// Execution tracking errors. They signal out-of-order or duplicate progress events and must be
// logged and dropped, never shown to the end user.
var (
	// ErrTerminalState indicates an update to an execution or step that already finished.
	ErrTerminalState = errors.New("terminal state")

	// ErrInvalidTransition indicates a status update that moves backwards in the lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// MutationError wraps a structural mutation error with the operation and target id.
type MutationError struct {
	Op      string // Operation being performed (e.g., "AddNode", "Declare")
	ID      string // Node, edge or variable id, or a variable name
	Err     error  // Underlying sentinel error
	Message string // Additional context message
}

func (e *MutationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %v: %s", e.Op, e.ID, e.Err, e.Message)
	}

	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for mutation errors. An invalid identifier also matches
// ErrDuplicateName because declaring such a name is rejected the same way.
func (e *MutationError) Is(target error) bool {
	if errors.Is(e.Err, ErrInvalidIdentifier) && target == ErrDuplicateName {
		return true
	}

	return errors.Is(e.Err, target)
}

// NewMutationError creates a new mutation error with context.
func NewMutationError(op, id string, err error, message string) *MutationError {
	return &MutationError{
		Op:      op,
		ID:      id,
		Err:     err,
		Message: message,
	}
}

// TerminalStateError reports an update that was rejected because its target already reached a
// terminal status, or would have moved backwards.
type TerminalStateError struct {
	Kind   string // "execution" or "step"
	ID     string
	Status Status // Status of the stored value
	Next   Status // Status carried by the rejected update
	Err    error
}

func (e *TerminalStateError) Error() string {
	return fmt.Sprintf("%s %s is %s, rejected update to %s: %v", e.Kind, e.ID, e.Status, e.Next, e.Err)
}

func (e *TerminalStateError) Unwrap() error {
	return e.Err
}

// IsDuplicateName checks if an error indicates a rejected variable name.
func IsDuplicateName(err error) bool {
	return errors.Is(err, ErrDuplicateName)
}

// IsNotFound checks if an error indicates a missing node, edge or variable.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTerminalState checks if an error indicates a rejected out-of-order progress update.
func IsTerminalState(err error) bool {
	return errors.Is(err, ErrTerminalState) || errors.Is(err, ErrInvalidTransition)
}
