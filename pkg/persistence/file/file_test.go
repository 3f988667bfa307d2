package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/skillhub/flowcore/pkg/graph"
	"github.com/skillhub/flowcore/pkg/models"
	"github.com/skillhub/flowcore/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkflow(name string) *models.Workflow {
	return &models.Workflow{
		Name:       name,
		Definition: graph.New().Definition(),
		Variables: []models.Variable{
			{ID: "v1", Name: "doc", Type: models.VariableTypeString, DefaultValue: "hi"},
		},
	}
}

func TestPersistence_WorkflowLifecycle(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence("file://" + t.TempDir())

	workflow := newWorkflow("Digest")
	require.NoError(t, p.SaveWorkflow(ctx, workflow))
	assert.NotEmpty(t, workflow.ID)
	assert.False(t, workflow.CreatedAt.IsZero())

	loaded, err := p.WorkflowByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, loaded.Name)
	assert.Equal(t, workflow.Definition, loaded.Definition)
	assert.Equal(t, workflow.Variables, loaded.Variables)

	list, err := p.Workflows(ctx, persistence.ListWorkflowsOptions{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, p.DeleteWorkflow(ctx, workflow.ID))

	_, err = p.WorkflowByID(ctx, workflow.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
	assert.True(t, persistence.IsWorkflowNotFound(p.DeleteWorkflow(ctx, workflow.ID)))
}

func TestPersistence_ReadsYAMLDocuments(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "workflows"), 0750))

	doc := `
name: Authored by hand
is_active: true
definition:
  nodes:
    - id: start
      type: start
      data: {label: Start}
    - id: end
      type: end
      data: {label: End}
  edges:
    - {id: e1, source: start, target: end}
variables: []
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "workflows", "handmade.yaml"), []byte(doc), 0600))

	p := NewPersistence(root)

	workflow, err := p.WorkflowByID(ctx, "handmade")
	require.NoError(t, err)
	assert.Equal(t, "handmade", workflow.ID)
	assert.True(t, workflow.IsActive)
	assert.Len(t, workflow.Definition.Nodes, 2)

	active, err := p.Workflows(ctx, persistence.ListWorkflowsOptions{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestPersistence_RejectsUnsafeIDs(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence(t.TempDir())

	for _, id := range []string{"../etc/passwd", "a/b", `a\b`} {
		_, err := p.WorkflowByID(ctx, id)
		assert.ErrorIs(t, err, persistence.ErrInvalidID, id)

		_, err = p.ExecutionByID(ctx, id)
		assert.ErrorIs(t, err, persistence.ErrInvalidID, id)
	}
}

func TestPersistence_Executions(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence(t.TempDir())

	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"exec-a", "exec-b"} {
		require.NoError(t, p.SaveExecution(ctx, models.Execution{
			ID:          id,
			WorkflowID:  "wf-1",
			TriggerType: models.TriggerManual,
			Status:      models.StatusRunning,
			InputData:   map[string]any{"doc": "x"},
			StartedAt:   base.Add(time.Duration(i) * time.Minute),
			Steps:       []models.Step{},
		}))
	}

	require.NoError(t, p.SaveExecution(ctx, models.Execution{ID: "exec-other", WorkflowID: "wf-2", StartedAt: base, Steps: []models.Step{}}))

	got, err := p.ExecutionByID(ctx, "exec-a")
	require.NoError(t, err)
	assert.Equal(t, "wf-1", got.WorkflowID)
	assert.Equal(t, "x", got.InputData["doc"])

	list, err := p.ExecutionsByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "exec-b", list[0].ID)

	_, err = p.ExecutionByID(ctx, "missing")
	assert.True(t, persistence.IsExecutionNotFound(err))

	workflow := newWorkflow("With runs")
	workflow.ID = "wf-1"
	require.NoError(t, p.SaveWorkflow(ctx, workflow))
	require.NoError(t, p.DeleteWorkflow(ctx, "wf-1"))

	list, err = p.ExecutionsByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = p.ExecutionsByWorkflow(ctx, "wf-2")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPersistence_HealthCheck(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, NewPersistence(t.TempDir()).HealthCheck(ctx))
	assert.Error(t, NewPersistence(filepath.Join(t.TempDir(), "missing")).HealthCheck(ctx))
}
