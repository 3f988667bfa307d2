package execution

import (
	"log/slog"
	"testing"
	"time"

	"github.com/skillhub/flowcore/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub(t *testing.T) {
	hub := NewHub(slog.Default())

	first := hub.Track(running())
	assert.Same(t, first, hub.Track(running()))

	older := running()
	older.ID = "exec-0"
	older.WorkflowID = "wf-2"
	older.StartedAt = t0.Add(-time.Hour)
	hub.Track(older)

	_, err := hub.ApplyStep(step("1", models.NodeTypeSkill, models.StatusRunning))
	require.NoError(t, err)

	_, err = hub.ApplyStep(models.Step{ID: "x", ExecutionID: "nope"})
	assert.ErrorIs(t, err, ErrUnknownExecution)

	snaps := hub.Snapshots("")
	require.Len(t, snaps, 2)
	assert.Equal(t, "exec-1", snaps[0].ID)
	assert.Len(t, snaps[0].Steps, 1)
	assert.Len(t, hub.Snapshots("wf-2"), 1)

	snap, err := hub.ApplyExecution(models.Execution{ID: "exec-0", Status: models.StatusFailed, ErrorMessage: "boom"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, snap.Status)

	assert.Equal(t, 1, hub.ForgetFinished())
	_, ok := hub.Get("exec-0")
	assert.False(t, ok)

	hub.Forget("exec-1")
	assert.Empty(t, hub.Snapshots(""))
}

func TestHub_ApplyExecutionUnknownRun(t *testing.T) {
	hub := NewHub(slog.Default())

	_, err := hub.ApplyExecution(models.Execution{ID: "exec-9", Status: models.StatusRunning, StartedAt: t0})
	require.ErrorIs(t, err, ErrUnknownExecution)

	_, ok := hub.Get("exec-9")
	assert.False(t, ok)
}
