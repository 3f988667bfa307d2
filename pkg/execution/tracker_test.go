package execution

import (
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/skillhub/flowcore/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time { return t0.Add(90 * time.Second) }

func TestTracker_Lifecycle(t *testing.T) {
	tracker := NewTracker(models.Execution{ID: "exec-1", StartedAt: t0}, WithClock(fixedClock))

	assert.Equal(t, models.StatusPending, tracker.Status())
	assert.Equal(t, "1m 30s", tracker.Duration())

	_, err := tracker.AppendStep(step("1", models.NodeTypeStart, models.StatusCompleted))
	require.NoError(t, err)
	assert.Equal(t, models.StatusRunning, tracker.Status())

	before := tracker.Snapshot()

	snap, err := tracker.ApplyStep(step("2", models.NodeTypeEnd, models.StatusCompleted))
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, snap.Status)
	assert.Len(t, before.Steps, 1, "earlier snapshots never change")

	_, err = tracker.AppendStep(step("3", models.NodeTypeSkill, models.StatusRunning))
	assert.ErrorIs(t, err, models.ErrTerminalState)
	assert.Len(t, tracker.Snapshot().Steps, 2)
}

func TestTracker_SnapshotIsACopy(t *testing.T) {
	tracker := NewTracker(running())

	snap := tracker.Snapshot()
	snap.InputData["doc"] = "changed"

	assert.Equal(t, "hello", tracker.Snapshot().InputData["doc"])
}

func TestTracker_RequestCancel(t *testing.T) {
	tracker := NewTracker(running(), WithLogger(slog.Default()))

	assert.True(t, tracker.RequestCancel())
	assert.True(t, tracker.CancelRequested())
	assert.Equal(t, models.StatusRunning, tracker.Status(), "cancellation waits for the backend")

	_, err := tracker.ApplyExecution(models.Execution{Status: models.StatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, tracker.Status())
	assert.False(t, tracker.RequestCancel())
}

func TestTracker_ConcurrentUpdates(t *testing.T) {
	tracker := NewTracker(running())

	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup

	for w := range writers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range perWriter {
				id := fmt.Sprintf("w%d-%d", w, i)
				_, err := tracker.AppendStep(step(id, models.NodeTypeSkill, models.StatusRunning))
				assert.NoError(t, err)
				_, err = tracker.ApplyStep(step(id, models.NodeTypeSkill, models.StatusCompleted))
				assert.NoError(t, err)
			}
		}()
	}

	done := make(chan struct{})

	go func() {
		defer close(done)

		for range 200 {
			snap := tracker.Snapshot()
			for _, s := range snap.Steps {
				assert.Contains(t, []models.Status{models.StatusRunning, models.StatusCompleted}, s.Status)
			}
		}
	}()

	wg.Wait()
	<-done

	snap := tracker.Snapshot()
	assert.Len(t, snap.Steps, writers*perWriter)
	assert.Equal(t, models.StatusRunning, snap.Status)
}
