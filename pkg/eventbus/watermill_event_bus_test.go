package eventbus_test

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/skillhub/flowcore/pkg/channels/gochannel"
	"github.com/skillhub/flowcore/pkg/eventbus"
	"github.com/skillhub/flowcore/pkg/events"
	"github.com/skillhub/flowcore/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBus(t *testing.T) *eventbus.WatermillEventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub, slog.Default())
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestWatermillEventBus_PublishSubscribe(t *testing.T) {
	bus := newBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *events.StepReported, 1)

	require.NoError(t, bus.Handle(events.StepReportedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.StepReported)

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	// Unhandled types are acked and skipped.
	require.NoError(t, bus.Publish(ctx, "wf-1", events.WorkflowDeleted{
		BaseEvent: events.NewBaseEvent(events.WorkflowDeletedEvent, "wf-1"),
	}))

	sent := events.StepReported{
		BaseEvent: events.NewBaseEvent(events.StepReportedEvent, "wf-1"),
		Step: wire.Step{
			ID:          "step-1",
			ExecutionID: "exec-1",
			NodeID:      "skill-1",
			NodeType:    "skill",
			Status:      "completed",
			InputData:   map[string]any{"doc": "x"},
		},
	}
	require.NoError(t, bus.Publish(ctx, "exec-1", sent))

	select {
	case got := <-received:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, sent.Step, got.Step)
	case <-time.After(2 * time.Second):
		t.Fatal("step event was not delivered")
	}
}

func TestWatermillEventBus_HandlerErrorRedelivers(t *testing.T) {
	bus := newBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32

	attempts := make(chan struct{}, 4)

	require.NoError(t, bus.Handle(events.ExecutionCancelRequestedEvent, func(_ context.Context, _ any) error {
		attempts <- struct{}{}
		if calls.Add(1) == 1 {
			return errors.New("backend busy")
		}

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	require.NoError(t, bus.Publish(ctx, "exec-1", events.ExecutionCancelRequested{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCancelRequestedEvent, "wf-1"),
		ExecutionID: "exec-1",
	}))

	for range 2 {
		select {
		case <-attempts:
		case <-time.After(2 * time.Second):
			t.Fatal("nacked event was not redelivered")
		}
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newBus(t)

	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}
