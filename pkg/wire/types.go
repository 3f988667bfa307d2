// Package wire holds the shapes exchanged with the backend and the editor, and the mapping to
// the internal models. Resource fields use snake_case; nodes, edges and variables keep the
// editor canvas shape.
package wire

import "time"

type Workflow struct {
	ID          string     `json:"id"                 yaml:"id"`
	Name        string     `json:"name"               yaml:"name"`
	Description string     `json:"description"        yaml:"description"`
	Definition  Definition `json:"definition"         yaml:"definition"`
	Variables   []Variable `json:"variables"          yaml:"variables"`
	IsActive    bool       `json:"is_active"          yaml:"is_active"`
	Schedule    string     `json:"schedule,omitempty" yaml:"schedule,omitempty"`
	CreatedAt   time.Time  `json:"created_at"         yaml:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"         yaml:"updated_at"`
}

type Definition struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// Node is the canvas node: the discriminator at the top level and every payload field in data.
type Node struct {
	ID   string   `json:"id"   yaml:"id"`
	Type string   `json:"type" yaml:"type"`
	Data NodeData `json:"data" yaml:"data"`
}

type NodeData struct {
	Label       string `json:"label"                 yaml:"label"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	SkillID       string            `json:"skillId,omitempty"       yaml:"skillId,omitempty"`
	SkillName     string            `json:"skillName,omitempty"     yaml:"skillName,omitempty"`
	InputMapping  map[string]string `json:"inputMapping,omitempty"  yaml:"inputMapping,omitempty"`
	OutputMapping map[string]string `json:"outputMapping,omitempty" yaml:"outputMapping,omitempty"`

	Conditions *ConditionGroup `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	TrueLabel  string          `json:"trueLabel,omitempty"  yaml:"trueLabel,omitempty"`
	FalseLabel string          `json:"falseLabel,omitempty" yaml:"falseLabel,omitempty"`

	Expressions []TransformExpression `json:"expressions,omitempty" yaml:"expressions,omitempty"`
}

type ConditionGroup struct {
	Expressions []ConditionExpression `json:"expressions" yaml:"expressions"`
	Logic       string                `json:"logic"       yaml:"logic"`
}

type ConditionExpression struct {
	Field    string `json:"field"    yaml:"field"`
	Operator string `json:"operator" yaml:"operator"`
	Value    string `json:"value"    yaml:"value"`
}

type TransformExpression struct {
	InputField       string `json:"inputField"                 yaml:"inputField"`
	OutputField      string `json:"outputField"                yaml:"outputField"`
	Transform        string `json:"transform"                  yaml:"transform"`
	CustomExpression string `json:"customExpression,omitempty" yaml:"customExpression,omitempty"`
}

type Edge struct {
	ID           string `json:"id"                     yaml:"id"`
	Source       string `json:"source"                 yaml:"source"`
	Target       string `json:"target"                 yaml:"target"`
	SourceHandle string `json:"sourceHandle,omitempty" yaml:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty" yaml:"targetHandle,omitempty"`
	Label        string `json:"label,omitempty"        yaml:"label,omitempty"`
}

type Variable struct {
	ID           string `json:"id"                     yaml:"id"`
	Name         string `json:"name"                   yaml:"name"`
	Type         string `json:"type"                   yaml:"type"`
	DefaultValue any    `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	Description  string `json:"description,omitempty"  yaml:"description,omitempty"`
	Required     bool   `json:"required"               yaml:"required"`
}

// Execution is the WorkflowExecution resource.
type Execution struct {
	ID           string         `json:"id"                      yaml:"id"`
	WorkflowID   string         `json:"workflow_id"             yaml:"workflow_id"`
	TriggerType  string         `json:"trigger_type"            yaml:"trigger_type"`
	Status       string         `json:"status"                  yaml:"status"`
	InputData    map[string]any `json:"input_data"              yaml:"input_data"`
	OutputData   map[string]any `json:"output_data,omitempty"   yaml:"output_data,omitempty"`
	StartedAt    time.Time      `json:"started_at"              yaml:"started_at"`
	FinishedAt   *time.Time     `json:"finished_at,omitempty"   yaml:"finished_at,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	Steps        []Step         `json:"steps"                   yaml:"steps"`
}

// Step is the ExecutionStep resource.
type Step struct {
	ID           string         `json:"id"                      yaml:"id"`
	ExecutionID  string         `json:"execution_id"            yaml:"execution_id"`
	NodeID       string         `json:"node_id"                 yaml:"node_id"`
	NodeType     string         `json:"node_type"               yaml:"node_type"`
	Status       string         `json:"status"                  yaml:"status"`
	InputData    map[string]any `json:"input_data"              yaml:"input_data"`
	OutputData   map[string]any `json:"output_data,omitempty"   yaml:"output_data,omitempty"`
	StartedAt    *time.Time     `json:"started_at,omitempty"    yaml:"started_at,omitempty"`
	FinishedAt   *time.Time     `json:"finished_at,omitempty"   yaml:"finished_at,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty" yaml:"error_message,omitempty"`
}

// TriggerRequest starts a run.
type TriggerRequest struct {
	TriggerType string         `json:"trigger_type" yaml:"trigger_type" validate:"omitempty,oneof=manual scheduled webhook"`
	InputData   map[string]any `json:"input_data"   yaml:"input_data"`
}
