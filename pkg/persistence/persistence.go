// Package persistence provides the storage abstraction for workflows and their executions.
package persistence

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/skillhub/flowcore/pkg/models"
)

type Persistence interface {
	Workflows(ctx context.Context, opts ListWorkflowsOptions) ([]*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error

	SaveExecution(ctx context.Context, execution models.Execution) error
	ExecutionByID(ctx context.Context, id string) (models.Execution, error)
	ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]models.Execution, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ListWorkflowsOptions filters and orders workflow listings.
type ListWorkflowsOptions struct {
	ActiveOnly bool
	SortBy     string // created_at, updated_at or name
	SortOrder  string // asc or desc
}

var allowedSorts = []string{"created_at", "updated_at", "name"}

// Normalize fills defaults and rejects unknown sort fields.
func (o ListWorkflowsOptions) Normalize() (ListWorkflowsOptions, error) {
	if o.SortBy == "" {
		o.SortBy = "created_at"
	}

	if !slices.Contains(allowedSorts, o.SortBy) {
		return o, fmt.Errorf("%w: %s", ErrInvalidSortField, o.SortBy)
	}

	switch strings.ToLower(o.SortOrder) {
	case "", "desc":
		o.SortOrder = "desc"
	case "asc":
		o.SortOrder = "asc"
	default:
		return o, fmt.Errorf("%w: %s", ErrInvalidSortOrder, o.SortOrder)
	}

	return o, nil
}

// Apply filters and sorts an in-memory list. It is used by stores that cannot query.
func (o ListWorkflowsOptions) Apply(workflows []*models.Workflow) []*models.Workflow {
	out := slices.DeleteFunc(slices.Clone(workflows), func(w *models.Workflow) bool {
		return o.ActiveOnly && !w.IsActive
	})

	slices.SortStableFunc(out, func(a, b *models.Workflow) int {
		var c int

		switch o.SortBy {
		case "name":
			c = strings.Compare(a.Name, b.Name)
		case "updated_at":
			c = a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}

		if o.SortOrder == "desc" {
			c = -c
		}

		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}

		return c
	})

	return out
}

// SortExecutions orders executions newest first.
func SortExecutions(executions []models.Execution) {
	slices.SortStableFunc(executions, func(a, b models.Execution) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}

		return strings.Compare(a.ID, b.ID)
	})
}
