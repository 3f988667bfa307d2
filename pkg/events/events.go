// Package events defines the messages exchanged with the execution backend and the notifications
// emitted when workflows change.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/skillhub/flowcore/pkg/wire"
)

type EventType string

// Topic carries every flowcore event; the event type travels in the message metadata.
const Topic = "flowcore.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Workflow resource notifications.
	WorkflowSavedEvent   EventType = "workflow.saved"
	WorkflowDeletedEvent EventType = "workflow.deleted"

	// Requests sent to the execution backend.
	ExecutionRequestedEvent       EventType = "execution.requested"
	ExecutionCancelRequestedEvent EventType = "execution.cancel.requested"

	// Progress reported by the execution backend.
	StepReportedEvent      EventType = "execution.step.reported"
	ExecutionReportedEvent EventType = "execution.reported"
)

// EventTypes lists every event type in declaration order.
var EventTypes = []EventType{
	WorkflowSavedEvent,
	WorkflowDeletedEvent,
	ExecutionRequestedEvent,
	ExecutionCancelRequestedEvent,
	StepReportedEvent,
	ExecutionReportedEvent,
}

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type WorkflowSaved struct {
	BaseEvent

	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

func (w WorkflowSaved) GetType() EventType {
	return WorkflowSavedEvent
}

type WorkflowDeleted struct {
	BaseEvent
}

func (w WorkflowDeleted) GetType() EventType {
	return WorkflowDeletedEvent
}

// ExecutionRequested hands a pending execution to the backend together with the definition and
// variables it must run, as they were when the run was triggered.
type ExecutionRequested struct {
	BaseEvent

	Execution  wire.Execution  `json:"execution"`
	Definition wire.Definition `json:"definition"`
	Variables  []wire.Variable `json:"variables"`
}

func (e ExecutionRequested) GetType() EventType {
	return ExecutionRequestedEvent
}

type ExecutionCancelRequested struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
}

func (e ExecutionCancelRequested) GetType() EventType {
	return ExecutionCancelRequestedEvent
}

// StepReported carries one step as the backend currently sees it.
type StepReported struct {
	BaseEvent

	Step wire.Step `json:"step"`
}

func (s StepReported) GetType() EventType {
	return StepReportedEvent
}

// ExecutionReported carries the backend's view of a whole execution. Steps it omits are kept.
type ExecutionReported struct {
	BaseEvent

	Execution wire.Execution `json:"execution"`
}

func (e ExecutionReported) GetType() EventType {
	return ExecutionReportedEvent
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}

// New returns an empty event value for the given type, ready to be decoded into.
func New(eventType EventType) (any, bool) {
	switch eventType {
	case WorkflowSavedEvent:
		return &WorkflowSaved{}, true
	case WorkflowDeletedEvent:
		return &WorkflowDeleted{}, true
	case ExecutionRequestedEvent:
		return &ExecutionRequested{}, true
	case ExecutionCancelRequestedEvent:
		return &ExecutionCancelRequested{}, true
	case StepReportedEvent:
		return &StepReported{}, true
	case ExecutionReportedEvent:
		return &ExecutionReported{}, true
	default:
		return nil, false
	}
}
