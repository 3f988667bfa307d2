package services

import (
	"context"
	"fmt"

	"github.com/skillhub/flowcore/pkg/eventbus"
	"github.com/skillhub/flowcore/pkg/events"
	"github.com/skillhub/flowcore/pkg/models"
	"github.com/skillhub/flowcore/pkg/wire"
)

// Runner is the execution backend. flowcore never runs skills itself: it hands a pending
// execution over and folds in whatever progress the backend reports.
type Runner interface {
	// Start accepts a pending execution and returns it as the backend recorded it.
	Start(ctx context.Context, workflow *models.Workflow, execution models.Execution) (models.Execution, error)
	// Cancel asks the backend to stop a run. The outcome arrives as a progress report.
	Cancel(ctx context.Context, execution models.Execution) error
}

// EventRunner talks to the backend through the event bus.
type EventRunner struct {
	publisher eventbus.EventPublisher
}

func NewEventRunner(publisher eventbus.EventPublisher) *EventRunner {
	return &EventRunner{publisher: publisher}
}

// Start publishes an execution.requested event carrying the graph as it is now, so later
// edits never change a run in flight.
func (r *EventRunner) Start(ctx context.Context, workflow *models.Workflow, execution models.Execution) (models.Execution, error) {
	event := events.ExecutionRequested{
		BaseEvent:  events.NewBaseEvent(events.ExecutionRequestedEvent, workflow.ID),
		Execution:  wire.FromExecution(execution),
		Definition: wire.FromDefinition(workflow.Definition),
		Variables:  wire.FromVariables(workflow.Variables),
	}

	if err := r.publisher.Publish(ctx, execution.ID, event); err != nil {
		return models.Execution{}, fmt.Errorf("failed to publish execution request: %w", err)
	}

	return execution, nil
}

func (r *EventRunner) Cancel(ctx context.Context, execution models.Execution) error {
	event := events.ExecutionCancelRequested{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCancelRequestedEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
	}

	if err := r.publisher.Publish(ctx, execution.ID, event); err != nil {
		return fmt.Errorf("failed to publish cancel request: %w", err)
	}

	return nil
}
