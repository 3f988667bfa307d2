package web

import (
	"time"

	"github.com/skillhub/flowcore/pkg/execution"
	"github.com/skillhub/flowcore/pkg/models"
	"github.com/skillhub/flowcore/pkg/wire"
)

// CreateWorkflowRequest represents the request body for creating a new workflow.
// Without a definition the workflow starts as start -> end.
type CreateWorkflowRequest struct {
	Name        string           `json:"name"        validate:"required,min=3"`
	Description string           `json:"description"`
	Schedule    string           `json:"schedule"`
	Definition  *wire.Definition `json:"definition"`
	Variables   []wire.Variable  `json:"variables"`
}

// UpdateWorkflowRequest represents the request body for updating workflow metadata.
// All fields are optional to support partial updates.
type UpdateWorkflowRequest struct {
	Name        *string `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string `json:"description,omitempty"`
	Schedule    *string `json:"schedule,omitempty"`
}

// UpdateNodeRequest patches a node. Data replaces the whole payload; the type never changes.
type UpdateNodeRequest struct {
	Label       *string        `json:"label,omitempty"`
	Description *string        `json:"description,omitempty"`
	Data        *wire.NodeData `json:"data,omitempty"`
}

// UpdateVariableRequest patches a variable.
type UpdateVariableRequest struct {
	Name         *string `json:"name,omitempty"`
	Type         *string `json:"type,omitempty"         validate:"omitempty,oneof=string number boolean object array"`
	DefaultValue any     `json:"defaultValue,omitempty"`
	ClearDefault bool    `json:"clearDefault,omitempty"`
	Description  *string `json:"description,omitempty"`
	Required     *bool   `json:"required,omitempty"`
}

type PreviewRequest struct {
	Input map[string]any `json:"input"`
}

type WorkflowResponse struct {
	wire.Workflow

	NextRun *time.Time `json:"next_run,omitempty"`
}

type ExecutionResponse struct {
	wire.Execution

	Duration        string `json:"duration"`
	CancelRequested bool   `json:"cancel_requested"`
}

func (r UpdateVariableRequest) patch() models.VariablePatch {
	p := models.VariablePatch{
		Name:         r.Name,
		DefaultValue: r.DefaultValue,
		ClearDefault: r.ClearDefault,
		Description:  r.Description,
		Required:     r.Required,
	}

	if r.Type != nil {
		t := models.VariableType(*r.Type)
		p.Type = &t
	}

	return p
}

func newExecutionResponse(e models.Execution, cancelRequested bool, now time.Time) ExecutionResponse {
	return ExecutionResponse{
		Execution:       wire.FromExecution(e),
		Duration:        execution.FormatDurationAt(e.StartedAt, e.FinishedAt, now),
		CancelRequested: cancelRequested,
	}
}
