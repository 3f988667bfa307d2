package execution

import (
	"testing"
	"time"

	"github.com/skillhub/flowcore/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func running() models.Execution {
	return models.Execution{
		ID:          "exec-1",
		WorkflowID:  "wf-1",
		TriggerType: models.TriggerManual,
		Status:      models.StatusRunning,
		InputData:   map[string]any{"doc": "hello"},
		StartedAt:   t0,
	}
}

func TestAppendStep(t *testing.T) {
	e := running()

	next, err := AppendStep(e, step("1", models.NodeTypeStart, models.StatusCompleted), t0)
	require.NoError(t, err)
	assert.Len(t, next.Steps, 1)
	assert.Empty(t, e.Steps, "input must not change")
	assert.Equal(t, models.StatusRunning, next.Status)

	t.Run("duplicate delivery is ignored", func(t *testing.T) {
		again, err := AppendStep(next, step("1", models.NodeTypeStart, models.StatusFailed), t0)
		require.NoError(t, err)
		assert.Len(t, again.Steps, 1)
		assert.Equal(t, models.StatusCompleted, again.Steps[0].Status)
	})

	t.Run("fills execution id and status", func(t *testing.T) {
		again, err := AppendStep(next, models.Step{ID: "2", NodeID: "n", NodeType: models.NodeTypeSkill}, t0)
		require.NoError(t, err)
		assert.Equal(t, "exec-1", again.Steps[1].ExecutionID)
		assert.Equal(t, models.StatusPending, again.Steps[1].Status)
	})

	t.Run("reaching end completes the run", func(t *testing.T) {
		finished := t0.Add(3 * time.Second)
		end := step("9", models.NodeTypeEnd, models.StatusCompleted)
		end.FinishedAt = &finished

		done, err := AppendStep(next, end, t0.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, done.Status)
		require.NotNil(t, done.FinishedAt)
		assert.Equal(t, finished, *done.FinishedAt)
	})

	t.Run("failing step fails the run", func(t *testing.T) {
		bad := step("2", models.NodeTypeSkill, models.StatusFailed)
		bad.ErrorMessage = "boom"

		failed, err := AppendStep(next, bad, t0.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, models.StatusFailed, failed.Status)
		assert.Equal(t, "step node-2 (skill): boom", failed.ErrorMessage)
		require.NotNil(t, failed.FinishedAt)
		assert.Equal(t, t0.Add(time.Minute), *failed.FinishedAt)

		_, err = AppendStep(failed, step("3", models.NodeTypeSkill, models.StatusRunning), t0)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrTerminalState)

		var terminal *models.TerminalStateError
		require.ErrorAs(t, err, &terminal)
		assert.Equal(t, models.StatusFailed, terminal.Status)
	})
}

func TestApplyStep(t *testing.T) {
	e, err := AppendStep(running(), step("1", models.NodeTypeSkill, models.StatusRunning), t0)
	require.NoError(t, err)

	done := step("1", models.NodeTypeSkill, models.StatusCompleted)
	done.OutputData = map[string]any{"summary": "hi"}

	next, err := ApplyStep(e, done, t0)
	require.NoError(t, err)
	require.Len(t, next.Steps, 1)
	assert.Equal(t, models.StatusCompleted, next.Steps[0].Status)
	assert.Equal(t, models.StatusRunning, e.Steps[0].Status, "input must not change")

	t.Run("finished step is final", func(t *testing.T) {
		_, err := ApplyStep(next, step("1", models.NodeTypeSkill, models.StatusRunning), t0)
		assert.ErrorIs(t, err, models.ErrTerminalState)
	})

	t.Run("backwards move is rejected", func(t *testing.T) {
		_, err := ApplyStep(e, step("1", models.NodeTypeSkill, models.StatusPending), t0)
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
		assert.True(t, models.IsTerminalState(err))
	})

	t.Run("new step is appended", func(t *testing.T) {
		more, err := ApplyStep(next, step("2", models.NodeTypeEnd, models.StatusCompleted), t0)
		require.NoError(t, err)
		assert.Len(t, more.Steps, 2)
		assert.Equal(t, models.StatusCompleted, more.Status)
	})
}

func TestApplyExecution(t *testing.T) {
	e, err := AppendStep(running(), step("1", models.NodeTypeSkill, models.StatusRunning), t0)
	require.NoError(t, err)

	finished := t0.Add(10 * time.Second)
	report := models.Execution{
		Status:     models.StatusCompleted,
		OutputData: map[string]any{"summary": "done"},
		FinishedAt: &finished,
		Steps: []models.Step{
			step("1", models.NodeTypeSkill, models.StatusCompleted),
			step("2", models.NodeTypeEnd, models.StatusCompleted),
		},
	}

	next, err := ApplyExecution(e, report, t0)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, next.Status)
	assert.Equal(t, "done", next.OutputData["summary"])
	assert.Equal(t, finished, *next.FinishedAt)
	assert.Len(t, next.Steps, 2)

	_, err = ApplyExecution(next, models.Execution{Status: models.StatusRunning}, t0)
	assert.ErrorIs(t, err, models.ErrTerminalState)

	_, err = ApplyExecution(e, models.Execution{Status: models.StatusPending}, t0)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestCancel(t *testing.T) {
	cancelled, err := Cancel(running(), t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.FinishedAt)

	_, err = Cancel(cancelled, t0)
	assert.ErrorIs(t, err, models.ErrTerminalState)
}
