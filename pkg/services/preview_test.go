package services

import (
	"context"
	"testing"

	"github.com/skillhub/flowcore/pkg/models"
	"github.com/skillhub/flowcore/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflow_PreviewCondition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	workflow := f.seed(t)

	long, err := f.workflows.PreviewNode(ctx, workflow.ID, testutil.ConditionID, map[string]any{"summary": "a long summary"})
	require.NoError(t, err)
	assert.Equal(t, models.HandleTrue, long.Branch)
	assert.Equal(t, []string{testutil.ShapeID}, long.NextNodeIDs)
	require.NotNil(t, long.Condition)
	assert.True(t, long.Condition.Result)
	require.Len(t, long.Condition.Expressions, 1)

	// The summary default is the empty string, so without input the false branch is taken.
	short, err := f.workflows.PreviewNode(ctx, workflow.ID, testutil.ConditionID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.HandleFalse, short.Branch)
	assert.Equal(t, []string{testutil.EndID}, short.NextNodeIDs)
	assert.Equal(t, "", short.Input["summary"])
}

func TestWorkflow_PreviewTransform(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	workflow := f.seed(t)

	input := map[string]any{"summary": "short text"}

	preview, err := f.workflows.PreviewNode(ctx, workflow.ID, testutil.ShapeID, input)
	require.NoError(t, err)
	require.NotNil(t, preview.Transform)
	assert.Equal(t, map[string]any{"text": "short text"}, preview.Transform.Output)
	assert.Equal(t, []string{"words"}, preview.Transform.ServerEvaluated)
	assert.Equal(t, []string{testutil.EndID}, preview.NextNodeIDs)
	assert.Equal(t, "short text", input["summary"])
}

func TestWorkflow_PreviewRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	workflow := f.seed(t)

	_, err := f.workflows.PreviewNode(ctx, workflow.ID, testutil.SummarizeID, nil)
	assert.ErrorIs(t, err, ErrNotPreviewable)
	assert.True(t, IsValidationError(err))

	_, err = f.workflows.PreviewNode(ctx, workflow.ID, "ghost", nil)
	assert.True(t, IsNotFoundError(err))

	_, err = f.workflows.PreviewNode(ctx, "missing", testutil.ShapeID, nil)
	assert.True(t, IsNotFoundError(err))
}
