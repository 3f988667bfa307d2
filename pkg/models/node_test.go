package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_CheckShape(t *testing.T) {
	tests := []struct {
		name    string
		node    Node
		wantErr bool
	}{
		{
			name: "start node without payload",
			node: NewStartNode("start"),
		},
		{
			name: "skill node with skill data",
			node: NewSkillNode("s1", "Summarize", SkillData{SkillID: "sum"}),
		},
		{
			name:    "missing id",
			node:    Node{Type: NodeTypeEnd},
			wantErr: true,
		},
		{
			name:    "unknown type",
			node:    Node{ID: "x", Type: "loop"},
			wantErr: true,
		},
		{
			name:    "skill node without payload",
			node:    Node{ID: "s1", Type: NodeTypeSkill},
			wantErr: true,
		},
		{
			name: "end node with transform payload",
			node: Node{
				ID:        "end",
				Type:      NodeTypeEnd,
				Transform: &TransformData{},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.node.CheckShape()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidNode))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNode_CloneDoesNotAlias(t *testing.T) {
	node := NewSkillNode("s1", "Fetch", SkillData{
		SkillID:      "fetch",
		InputMapping: map[string]string{"url": "${endpoint}"},
	})

	clone := node.Clone()
	clone.Skill.InputMapping["url"] = "changed"
	clone.Skill.SkillID = "other"

	assert.Equal(t, "${endpoint}", node.Skill.InputMapping["url"])
	assert.Equal(t, "fetch", node.Skill.SkillID)
}

func TestNodePatch_Apply(t *testing.T) {
	node := NewConditionNode("c1", "Adult?", ConditionData{
		Conditions: ConditionGroup{Logic: LogicAnd},
	})

	label := "Is adult"
	patched, err := NodePatch{
		Label: &label,
		Condition: &ConditionData{
			Conditions: ConditionGroup{
				Logic: LogicOr,
				Expressions: []ConditionExpression{
					{Field: "age", Operator: OperatorGreaterThan, Value: "17"},
				},
			},
		},
	}.Apply(node)
	require.NoError(t, err)

	assert.Equal(t, "Is adult", patched.Label)
	assert.Equal(t, LogicOr, patched.Condition.Conditions.Logic)
	assert.Equal(t, "Adult?", node.Label, "original must be untouched")

	_, err = NodePatch{Skill: &SkillData{SkillID: "x"}}.Apply(node)
	assert.ErrorIs(t, err, ErrInvalidNode)
}
