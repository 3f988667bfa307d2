// Package testutil provides test data builders shared by package tests.
package testutil

import (
	"time"

	"github.com/skillhub/flowcore/pkg/models"
)

// Node ids of the branching workflow.
const (
	StartID     = "start"
	SummarizeID = "summarize"
	ConditionID = "long"
	ShapeID     = "shape"
	EndID       = "end"
)

// BranchingVariables declares doc (required input) and summary (skill output).
func BranchingVariables() []models.Variable {
	return []models.Variable{
		{ID: "var-doc", Name: "doc", Type: models.VariableTypeString, Required: true},
		{ID: "var-summary", Name: "summary", Type: models.VariableTypeString, DefaultValue: ""},
	}
}

// BranchingDefinition is a valid graph:
//
//	start -> summarize -> long -true-> shape -> end
//	                          -false-> end
func BranchingDefinition() models.Definition {
	return models.Definition{
		Nodes: []models.Node{
			models.NewStartNode(StartID),
			models.NewEndNode(EndID),
			models.NewSkillNode(SummarizeID, "Summarize", models.SkillData{
				SkillID:       "skill-summarize",
				SkillName:     "Summarize",
				InputMapping:  map[string]string{"text": "${doc}"},
				OutputMapping: map[string]string{"result": "summary"},
			}),
			models.NewConditionNode(ConditionID, "Is long", models.ConditionData{
				Conditions: models.ConditionGroup{
					Logic: models.LogicAnd,
					Expressions: []models.ConditionExpression{
						{Field: "${summary}", Operator: models.OperatorIsNotEmpty},
					},
				},
				TrueLabel:  "Long",
				FalseLabel: "Short",
			}),
			models.NewTransformNode(ShapeID, "Shape", models.TransformData{
				Expressions: []models.TransformExpression{
					{InputField: "summary", OutputField: "text", Transform: models.TransformRename},
					{InputField: "summary", OutputField: "words", Transform: models.TransformCustom, CustomExpression: "len(split(summary))"},
				},
			}),
		},
		Edges: []models.Edge{
			{ID: "e1", Source: StartID, Target: SummarizeID},
			{ID: "e2", Source: SummarizeID, Target: ConditionID},
			{ID: "e3", Source: ConditionID, Target: ShapeID, SourceHandle: models.HandleTrue},
			{ID: "e4", Source: ConditionID, Target: EndID, SourceHandle: models.HandleFalse},
			{ID: "e5", Source: ShapeID, Target: EndID},
		},
	}
}

// CreateTestWorkflow creates an inactive branching workflow that can be overridden.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	workflow := &models.Workflow{
		ID:          "wf-branching",
		Name:        "Summarize documents",
		Description: "Summarizes a document and shapes long summaries",
		Definition:  BranchingDefinition(),
		Variables:   BranchingVariables(),
		CreatedAt:   created,
		UpdatedAt:   created,
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithActive marks the workflow active.
func WithActive() func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.IsActive = true
	}
}

// WithID sets the workflow id.
func WithID(id string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.ID = id
	}
}

// WithoutEdges drops every edge, leaving a graph that fails validation.
func WithoutEdges() func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Definition.Edges = []models.Edge{}
	}
}
