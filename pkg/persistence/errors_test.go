package persistence_test

import (
	"errors"
	"testing"
	"time"

	"github.com/skillhub/flowcore/pkg/models"
	"github.com/skillhub/flowcore/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error checking functions work correctly", func(t *testing.T) {
		workflowErr := persistence.NewWorkflowError("GetByID", "workflow-123", persistence.ErrWorkflowNotFound)
		executionErr := persistence.NewExecutionError("GetByID", "exec-1", persistence.ErrExecutionNotFound)

		assert.True(t, persistence.IsWorkflowNotFound(workflowErr))
		assert.True(t, persistence.IsExecutionNotFound(executionErr))
		assert.False(t, persistence.IsWorkflowNotFound(executionErr))

		assert.True(t, errors.Is(workflowErr, persistence.ErrWorkflowNotFound))
	})

	t.Run("workflow error contains context", func(t *testing.T) {
		err := persistence.NewWorkflowError("UpdateWorkflow", "workflow-123", persistence.ErrWorkflowNotFound)

		assert.Contains(t, err.Error(), "UpdateWorkflow")
		assert.Contains(t, err.Error(), "workflow-123")
		assert.Contains(t, err.Error(), "workflow not found")
	})
}

func TestListWorkflowsOptions(t *testing.T) {
	t.Parallel()

	_, err := persistence.ListWorkflowsOptions{SortBy: "name; DROP TABLE workflows; --"}.Normalize()
	require.ErrorIs(t, err, persistence.ErrInvalidSortField)

	_, err = persistence.ListWorkflowsOptions{SortOrder: "sideways"}.Normalize()
	require.ErrorIs(t, err, persistence.ErrInvalidSortOrder)

	opts, err := persistence.ListWorkflowsOptions{}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "created_at", opts.SortBy)
	assert.Equal(t, "desc", opts.SortOrder)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	workflows := []*models.Workflow{
		{ID: "a", Name: "zeta", CreatedAt: base, IsActive: true},
		{ID: "b", Name: "alpha", CreatedAt: base.Add(time.Hour)},
		{ID: "c", Name: "mid", CreatedAt: base.Add(2 * time.Hour), IsActive: true},
	}

	ids := func(list []*models.Workflow) []string {
		var out []string
		for _, w := range list {
			out = append(out, w.ID)
		}

		return out
	}

	assert.Equal(t, []string{"c", "b", "a"}, ids(opts.Apply(workflows)))

	byName, err := persistence.ListWorkflowsOptions{SortBy: "name", SortOrder: "asc", ActiveOnly: true}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, ids(byName.Apply(workflows)))
	assert.Len(t, workflows, 3)
}
