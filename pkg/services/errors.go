// Package services implements the workflow and execution operations behind the API.
package services

import (
	"errors"
	"fmt"

	"github.com/skillhub/flowcore/pkg/execution"
	"github.com/skillhub/flowcore/pkg/models"
	"github.com/skillhub/flowcore/pkg/persistence"
	"github.com/skillhub/flowcore/pkg/validation"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidSortField = persistence.ErrInvalidSortField
	ErrInvalidSortOrder = persistence.ErrInvalidSortOrder
	ErrInvalidSchedule  = models.ErrInvalidSchedule
	ErrMissingInput     = errors.New("required input is missing")
	ErrNotPreviewable   = errors.New("node type cannot be previewed")

	// Graph validation failures (422 Unprocessable Entity).
	ErrInvalidGraph = errors.New("workflow graph is invalid")

	// Business Logic Conflicts (409 Conflict).
	ErrWorkflowInactive  = errors.New("workflow is not active")
	ErrExecutionFinished = errors.New("execution already finished")

	// Not Found (404).
	ErrWorkflowNotFound  = persistence.ErrWorkflowNotFound
	ErrExecutionNotFound = persistence.ErrExecutionNotFound
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

// GraphError carries the validation findings that blocked an activation or a run.
type GraphError struct {
	Op         string
	WorkflowID string
	Result     validation.Result
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("%s %s: %v: %s", e.Op, e.WorkflowID, ErrInvalidGraph, e.Result.Summary())
}

func (e *GraphError) Unwrap() error {
	return ErrInvalidGraph
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidSortField) ||
		errors.Is(err, ErrInvalidSortOrder) ||
		errors.Is(err, ErrInvalidSchedule) ||
		errors.Is(err, ErrMissingInput) ||
		errors.Is(err, ErrNotPreviewable) ||
		errors.Is(err, models.ErrInvalidIdentifier) ||
		errors.Is(err, models.ErrInvalidHandle) ||
		errors.Is(err, models.ErrInvalidNode) ||
		errors.Is(err, models.ErrInvalidDefault)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	if errors.Is(err, models.ErrInvalidIdentifier) {
		return false
	}

	return errors.Is(err, models.ErrDuplicateName) ||
		errors.Is(err, models.ErrDuplicateID) ||
		errors.Is(err, ErrWorkflowInactive) ||
		errors.Is(err, ErrExecutionFinished)
}

// IsNotFoundError checks if an error names a missing workflow, execution, node, edge or variable.
func IsNotFoundError(err error) bool {
	return persistence.IsWorkflowNotFound(err) ||
		persistence.IsExecutionNotFound(err) ||
		errors.Is(err, execution.ErrUnknownExecution) ||
		models.IsNotFound(err)
}

// IsGraphError checks if an error was caused by graph validation findings.
func IsGraphError(err error) bool {
	return errors.Is(err, ErrInvalidGraph)
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
