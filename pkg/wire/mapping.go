package wire

import (
	"fmt"
	"maps"
	"slices"

	"github.com/skillhub/flowcore/pkg/models"
)

// FromWorkflow converts a workflow to its wire shape.
func FromWorkflow(w *models.Workflow) Workflow {
	return Workflow{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		Definition:  FromDefinition(w.Definition),
		Variables:   FromVariables(w.Variables),
		IsActive:    w.IsActive,
		Schedule:    w.Schedule,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}

// ToWorkflow converts a wire workflow to the model. Node payloads are checked against the node
// type; graph rules are left to the graph and the validator.
func ToWorkflow(w Workflow) (*models.Workflow, error) {
	def, err := ToDefinition(w.Definition)
	if err != nil {
		return nil, err
	}

	return &models.Workflow{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		Definition:  def,
		Variables:   ToVariables(w.Variables),
		IsActive:    w.IsActive,
		Schedule:    w.Schedule,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}, nil
}

func FromDefinition(def models.Definition) Definition {
	out := Definition{
		Nodes: make([]Node, 0, len(def.Nodes)),
		Edges: make([]Edge, 0, len(def.Edges)),
	}

	for _, n := range def.Nodes {
		out.Nodes = append(out.Nodes, FromNode(n))
	}

	for _, e := range def.Edges {
		out.Edges = append(out.Edges, Edge(e))
	}

	return out
}

func ToDefinition(def Definition) (models.Definition, error) {
	out := models.Definition{
		Nodes: make([]models.Node, 0, len(def.Nodes)),
		Edges: make([]models.Edge, 0, len(def.Edges)),
	}

	for _, n := range def.Nodes {
		node, err := ToNode(n)
		if err != nil {
			return models.Definition{}, err
		}

		out.Nodes = append(out.Nodes, node)
	}

	for _, e := range def.Edges {
		out.Edges = append(out.Edges, models.Edge(e))
	}

	return out, nil
}

// FromNode flattens the node payload into the canvas data object.
func FromNode(n models.Node) Node {
	out := Node{
		ID:   n.ID,
		Type: string(n.Type),
		Data: NodeData{Label: n.Label, Description: n.Description},
	}

	switch {
	case n.Skill != nil:
		out.Data.SkillID = n.Skill.SkillID
		out.Data.SkillName = n.Skill.SkillName
		out.Data.InputMapping = cloneMapping(n.Skill.InputMapping)
		out.Data.OutputMapping = cloneMapping(n.Skill.OutputMapping)
	case n.Condition != nil:
		group := fromConditionGroup(n.Condition.Conditions)
		out.Data.Conditions = &group
		out.Data.TrueLabel = n.Condition.TrueLabel
		out.Data.FalseLabel = n.Condition.FalseLabel
	case n.Transform != nil:
		out.Data.Expressions = fromTransformExpressions(n.Transform.Expressions)
	}

	return out
}

// ToNode rebuilds the tagged union from a canvas node.
func ToNode(n Node) (models.Node, error) {
	out := models.Node{
		ID:          n.ID,
		Type:        models.NodeType(n.Type),
		Label:       n.Data.Label,
		Description: n.Data.Description,
	}

	switch out.Type {
	case models.NodeTypeStart, models.NodeTypeEnd:
	case models.NodeTypeSkill:
		out.Skill = &models.SkillData{
			SkillID:       n.Data.SkillID,
			SkillName:     n.Data.SkillName,
			InputMapping:  cloneMapping(n.Data.InputMapping),
			OutputMapping: cloneMapping(n.Data.OutputMapping),
		}
	case models.NodeTypeCondition:
		out.Condition = &models.ConditionData{TrueLabel: n.Data.TrueLabel, FalseLabel: n.Data.FalseLabel}
		if n.Data.Conditions != nil {
			out.Condition.Conditions = toConditionGroup(*n.Data.Conditions)
		}
	case models.NodeTypeTransform:
		out.Transform = &models.TransformData{Expressions: toTransformExpressions(n.Data.Expressions)}
	default:
		return models.Node{}, fmt.Errorf("%w: node %s has unknown type %q", models.ErrInvalidNode, n.ID, n.Type)
	}

	return out, nil
}

// cloneMapping copies a skill mapping; empty and absent mappings are both nil.
func cloneMapping(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}

	return maps.Clone(m)
}

func fromConditionGroup(g models.ConditionGroup) ConditionGroup {
	out := ConditionGroup{Logic: string(g.Logic)}
	if len(g.Expressions) > 0 {
		out.Expressions = make([]ConditionExpression, 0, len(g.Expressions))
	}

	for _, e := range g.Expressions {
		out.Expressions = append(out.Expressions, ConditionExpression{
			Field:    e.Field,
			Operator: string(e.Operator),
			Value:    e.Value,
		})
	}

	return out
}

func toConditionGroup(g ConditionGroup) models.ConditionGroup {
	out := models.ConditionGroup{Logic: models.Logic(g.Logic)}
	if len(g.Expressions) > 0 {
		out.Expressions = make([]models.ConditionExpression, 0, len(g.Expressions))
	}

	for _, e := range g.Expressions {
		out.Expressions = append(out.Expressions, models.ConditionExpression{
			Field:    e.Field,
			Operator: models.Operator(e.Operator),
			Value:    e.Value,
		})
	}

	return out
}

func fromTransformExpressions(exprs []models.TransformExpression) []TransformExpression {
	if len(exprs) == 0 {
		return nil
	}

	out := make([]TransformExpression, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, TransformExpression{
			InputField:       e.InputField,
			OutputField:      e.OutputField,
			Transform:        string(e.Transform),
			CustomExpression: e.CustomExpression,
		})
	}

	return out
}

func toTransformExpressions(exprs []TransformExpression) []models.TransformExpression {
	if len(exprs) == 0 {
		return nil
	}

	out := make([]models.TransformExpression, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, models.TransformExpression{
			InputField:       e.InputField,
			OutputField:      e.OutputField,
			Transform:        models.TransformKind(e.Transform),
			CustomExpression: e.CustomExpression,
		})
	}

	return out
}

func FromVariables(vars []models.Variable) []Variable {
	out := make([]Variable, 0, len(vars))
	for _, v := range vars {
		out = append(out, Variable{
			ID:           v.ID,
			Name:         v.Name,
			Type:         string(v.Type),
			DefaultValue: v.DefaultValue,
			Description:  v.Description,
			Required:     v.Required,
		})
	}

	return out
}

func ToVariables(vars []Variable) []models.Variable {
	out := make([]models.Variable, 0, len(vars))
	for _, v := range vars {
		out = append(out, models.Variable{
			ID:           v.ID,
			Name:         v.Name,
			Type:         models.VariableType(v.Type),
			DefaultValue: v.DefaultValue,
			Description:  v.Description,
			Required:     v.Required,
		})
	}

	return out
}

// FromExecution converts an execution and its steps to the wire shape.
func FromExecution(e models.Execution) Execution {
	c := e.Clone()
	out := Execution{
		ID:           c.ID,
		WorkflowID:   c.WorkflowID,
		TriggerType:  string(c.TriggerType),
		Status:       string(c.Status),
		InputData:    c.InputData,
		OutputData:   c.OutputData,
		StartedAt:    c.StartedAt,
		FinishedAt:   c.FinishedAt,
		ErrorMessage: c.ErrorMessage,
		Steps:        make([]Step, 0, len(c.Steps)),
	}

	for _, s := range c.Steps {
		out.Steps = append(out.Steps, FromStep(s))
	}

	return out
}

// ToExecution converts a wire execution to the model, rejecting unknown status values.
func ToExecution(e Execution) (models.Execution, error) {
	status := models.Status(e.Status)
	if e.Status != "" && !status.Valid() {
		return models.Execution{}, fmt.Errorf("execution %s: unknown status %q", e.ID, e.Status)
	}

	out := models.Execution{
		ID:           e.ID,
		WorkflowID:   e.WorkflowID,
		TriggerType:  models.TriggerType(e.TriggerType),
		Status:       status,
		InputData:    maps.Clone(e.InputData),
		OutputData:   maps.Clone(e.OutputData),
		StartedAt:    e.StartedAt,
		FinishedAt:   cloneTime(e.FinishedAt),
		ErrorMessage: e.ErrorMessage,
		Steps:        make([]models.Step, 0, len(e.Steps)),
	}

	for _, s := range e.Steps {
		step, err := ToStep(s)
		if err != nil {
			return models.Execution{}, err
		}

		out.Steps = append(out.Steps, step)
	}

	return out, nil
}

func FromStep(s models.Step) Step {
	c := s.Clone()

	return Step{
		ID:           c.ID,
		ExecutionID:  c.ExecutionID,
		NodeID:       c.NodeID,
		NodeType:     string(c.NodeType),
		Status:       string(c.Status),
		InputData:    c.InputData,
		OutputData:   c.OutputData,
		StartedAt:    c.StartedAt,
		FinishedAt:   c.FinishedAt,
		ErrorMessage: c.ErrorMessage,
	}
}

func ToStep(s Step) (models.Step, error) {
	status := models.Status(s.Status)
	if s.Status != "" && !status.Valid() {
		return models.Step{}, fmt.Errorf("step %s: unknown status %q", s.ID, s.Status)
	}

	return models.Step{
		ID:           s.ID,
		ExecutionID:  s.ExecutionID,
		NodeID:       s.NodeID,
		NodeType:     models.NodeType(s.NodeType),
		Status:       status,
		InputData:    maps.Clone(s.InputData),
		OutputData:   maps.Clone(s.OutputData),
		StartedAt:    cloneTime(s.StartedAt),
		FinishedAt:   cloneTime(s.FinishedAt),
		ErrorMessage: s.ErrorMessage,
	}, nil
}

// ExecutionsFrom converts a list of executions.
func ExecutionsFrom(list []models.Execution) []Execution {
	out := make([]Execution, 0, len(list))
	for _, e := range list {
		out = append(out, FromExecution(e))
	}

	return slices.Clip(out)
}
