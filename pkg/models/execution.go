package models

import (
	"maps"
	"slices"
	"time"
)

// Status is shared by executions and steps: pending -> running -> completed|failed|cancelled.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether s is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// rank orders statuses along the lifecycle; terminal states share the highest rank.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusRunning:
		return 1
	default:
		return 2
	}
}

// Precedes reports whether moving from s to next goes backwards in the lifecycle.
func (s Status) Precedes(next Status) bool {
	return next.rank() < s.rank()
}

// TriggerType says what started an execution.
type TriggerType string

const (
	TriggerManual    TriggerType = "manual"
	TriggerScheduled TriggerType = "scheduled"
	TriggerWebhook   TriggerType = "webhook"
)

// Execution is one run of a workflow with its step trail.
type Execution struct {
	ID           string         `json:"id"`
	WorkflowID   string         `json:"workflowId"`
	TriggerType  TriggerType    `json:"triggerType"`
	Status       Status         `json:"status"`
	InputData    map[string]any `json:"inputData"`
	OutputData   map[string]any `json:"outputData,omitempty"`
	StartedAt    time.Time      `json:"startedAt"`
	FinishedAt   *time.Time     `json:"finishedAt,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	Steps        []Step         `json:"steps"`
}

// Step records one node visitation during an execution.
type Step struct {
	ID           string         `json:"id"`
	ExecutionID  string         `json:"executionId"`
	NodeID       string         `json:"nodeId"`
	NodeType     NodeType       `json:"nodeType"`
	Status       Status         `json:"status"`
	InputData    map[string]any `json:"inputData"`
	OutputData   map[string]any `json:"outputData,omitempty"`
	StartedAt    *time.Time     `json:"startedAt,omitempty"`
	FinishedAt   *time.Time     `json:"finishedAt,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
}

// Clone returns a copy of the execution that shares no slices or maps with e.
func (e Execution) Clone() Execution {
	out := e
	out.InputData = maps.Clone(e.InputData)
	out.OutputData = maps.Clone(e.OutputData)
	out.FinishedAt = cloneTime(e.FinishedAt)

	out.Steps = make([]Step, len(e.Steps))
	for i, step := range e.Steps {
		out.Steps[i] = step.Clone()
	}

	return out
}

// Clone returns a copy of the step that shares no maps with s.
func (s Step) Clone() Step {
	out := s
	out.InputData = maps.Clone(s.InputData)
	out.OutputData = maps.Clone(s.OutputData)
	out.StartedAt = cloneTime(s.StartedAt)
	out.FinishedAt = cloneTime(s.FinishedAt)

	return out
}

// StepIndex returns the position of the step with the given id, or -1.
func (e Execution) StepIndex(stepID string) int {
	return slices.IndexFunc(e.Steps, func(s Step) bool { return s.ID == stepID })
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	v := *t

	return &v
}
