// Package models defines the workflow graph and execution tracking models shared by every layer.
package models

import (
	"fmt"
	"maps"
	"slices"
)

// NodeType is the discriminator of the node tagged union.
type NodeType string

const (
	NodeTypeStart     NodeType = "start"
	NodeTypeEnd       NodeType = "end"
	NodeTypeSkill     NodeType = "skill"
	NodeTypeCondition NodeType = "condition"
	NodeTypeTransform NodeType = "transform"
)

// NodeTypes lists every node kind in declaration order.
var NodeTypes = []NodeType{
	NodeTypeStart,
	NodeTypeEnd,
	NodeTypeSkill,
	NodeTypeCondition,
	NodeTypeTransform,
}

// Valid reports whether t is one of the known node kinds.
func (t NodeType) Valid() bool {
	return slices.Contains(NodeTypes, t)
}

// Node is a workflow graph node. Exactly one payload pointer is set for skill, condition and
// transform nodes; start and end nodes carry none.
type Node struct {
	ID          string   `json:"id"                    validate:"required"`
	Type        NodeType `json:"type"                  validate:"required,oneof=start end skill condition transform"`
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`

	Skill     *SkillData     `json:"skill,omitempty"`
	Condition *ConditionData `json:"condition,omitempty"`
	Transform *TransformData `json:"transform,omitempty"`
}

// SkillData is the payload of a skill-invocation node.
type SkillData struct {
	SkillID   string `json:"skillId"`
	SkillName string `json:"skillName"`
	// InputMapping maps a skill parameter to a "${variable}" reference or a literal.
	InputMapping map[string]string `json:"inputMapping,omitempty"`
	// OutputMapping maps a skill output to the variable name receiving it.
	OutputMapping map[string]string `json:"outputMapping,omitempty"`
}

// ConditionData is the payload of a condition-branch node.
type ConditionData struct {
	Conditions ConditionGroup `json:"conditions"`
	TrueLabel  string         `json:"trueLabel,omitempty"`
	FalseLabel string         `json:"falseLabel,omitempty"`
}

// TransformData is the payload of a data-transform node.
type TransformData struct {
	Expressions []TransformExpression `json:"expressions"`
}

// NewStartNode returns the entry marker node.
func NewStartNode(id string) Node {
	return Node{ID: id, Type: NodeTypeStart, Label: "Start"}
}

// NewEndNode returns an exit marker node.
func NewEndNode(id string) Node {
	return Node{ID: id, Type: NodeTypeEnd, Label: "End"}
}

// NewSkillNode returns a skill-invocation node.
func NewSkillNode(id, label string, data SkillData) Node {
	return Node{ID: id, Type: NodeTypeSkill, Label: label, Skill: &data}.Clone()
}

// NewConditionNode returns a condition-branch node.
func NewConditionNode(id, label string, data ConditionData) Node {
	return Node{ID: id, Type: NodeTypeCondition, Label: label, Condition: &data}.Clone()
}

// NewTransformNode returns a data-transform node.
func NewTransformNode(id, label string, data TransformData) Node {
	return Node{ID: id, Type: NodeTypeTransform, Label: label, Transform: &data}.Clone()
}

// CheckShape verifies that the payload matches the node type.
func (n Node) CheckShape() error {
	if n.ID == "" {
		return fmt.Errorf("%w: node id is required", ErrInvalidNode)
	}

	if !n.Type.Valid() {
		return fmt.Errorf("%w: unknown node type %q", ErrInvalidNode, n.Type)
	}

	want := map[NodeType]bool{
		NodeTypeSkill:     n.Skill != nil,
		NodeTypeCondition: n.Condition != nil,
		NodeTypeTransform: n.Transform != nil,
	}

	for kind, present := range want {
		if kind == n.Type && !present {
			return fmt.Errorf("%w: %s node %s is missing its %s data", ErrInvalidNode, n.Type, n.ID, kind)
		}

		if kind != n.Type && present {
			return fmt.Errorf("%w: %s node %s carries %s data", ErrInvalidNode, n.Type, n.ID, kind)
		}
	}

	return nil
}

// Clone returns a deep copy of the node so callers can never alias graph state. Empty mappings
// and expression lists come back nil, so a node has a single representation of "none".
func (n Node) Clone() Node {
	out := n

	if n.Skill != nil {
		skill := *n.Skill
		skill.InputMapping = cloneMapping(n.Skill.InputMapping)
		skill.OutputMapping = cloneMapping(n.Skill.OutputMapping)
		out.Skill = &skill
	}

	if n.Condition != nil {
		cond := *n.Condition
		cond.Conditions.Expressions = cloneList(n.Condition.Conditions.Expressions)
		out.Condition = &cond
	}

	if n.Transform != nil {
		tr := *n.Transform
		tr.Expressions = cloneList(n.Transform.Expressions)
		out.Transform = &tr
	}

	return out
}

func cloneMapping(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}

	return maps.Clone(m)
}

func cloneList[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}

	return slices.Clone(s)
}

// NodePatch is a partial update of a node. The node type cannot change; payload fields must
// match the node's existing type.
type NodePatch struct {
	Label       *string        `json:"label,omitempty"`
	Description *string        `json:"description,omitempty"`
	Skill       *SkillData     `json:"skill,omitempty"`
	Condition   *ConditionData `json:"condition,omitempty"`
	Transform   *TransformData `json:"transform,omitempty"`
}

// Apply returns a copy of n with the patch applied.
func (p NodePatch) Apply(n Node) (Node, error) {
	out := n.Clone()

	if p.Label != nil {
		out.Label = *p.Label
	}

	if p.Description != nil {
		out.Description = *p.Description
	}

	if p.Skill != nil {
		skill := *p.Skill
		out.Skill = &skill
	}

	if p.Condition != nil {
		cond := *p.Condition
		out.Condition = &cond
	}

	if p.Transform != nil {
		tr := *p.Transform
		out.Transform = &tr
	}

	if err := out.CheckShape(); err != nil {
		return n, err
	}

	return out.Clone(), nil
}
