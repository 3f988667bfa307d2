package services

import (
	"context"
	"fmt"
	"maps"

	"github.com/skillhub/flowcore/pkg/condition"
	"github.com/skillhub/flowcore/pkg/graph"
	"github.com/skillhub/flowcore/pkg/models"
	"github.com/skillhub/flowcore/pkg/otelhelper"
	"github.com/skillhub/flowcore/pkg/transform"
	"github.com/skillhub/flowcore/pkg/variables"
	"go.opentelemetry.io/otel/attribute"
)

// Preview is the client-side dry run of a single condition or transform node.
type Preview struct {
	NodeID   string          `json:"node_id"`
	NodeType models.NodeType `json:"node_type"`
	// Input is the evaluation context: variable defaults overlaid with the sample input.
	Input map[string]any `json:"input"`

	Condition *condition.Explanation `json:"condition,omitempty"`
	// Branch is the source handle taken by a condition node.
	Branch string `json:"branch,omitempty"`

	Transform *transform.Result `json:"transform,omitempty"`

	// NextNodeIDs are the targets the run would continue to.
	NextNodeIDs []string `json:"next_node_ids"`
}

// PreviewNode evaluates a condition or transform node against sample input without running
// anything on the backend.
func (w *Workflow) PreviewNode(ctx context.Context, workflowID, nodeID string, input map[string]any) (*Preview, error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflow.preview_node",
		attribute.String(otelhelper.WorkflowIDKey, workflowID),
		attribute.String(otelhelper.NodeIDKey, nodeID))
	defer span.End()

	workflow, err := w.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	g, err := graph.FromDefinition(workflow.Definition)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	node, ok := g.Node(nodeID)
	if !ok {
		err := models.NewMutationError("PreviewNode", nodeID, models.ErrNotFound, "node does not exist")
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.NodeTypeKey, string(node.Type)))

	ctxData := variables.NewRegistry(workflow.Variables...).Defaults()
	maps.Copy(ctxData, input)

	return PreviewGraphNode(g, node, ctxData)
}

// PreviewGraphNode evaluates node with data as its input.
func PreviewGraphNode(g *graph.Graph, node models.Node, data map[string]any) (*Preview, error) {
	out := &Preview{
		NodeID:      node.ID,
		NodeType:    node.Type,
		Input:       data,
		NextNodeIDs: []string{},
	}

	switch node.Type {
	case models.NodeTypeCondition:
		explanation := condition.Explain(node.Condition.Conditions, data)
		out.Condition = &explanation

		out.Branch = models.HandleFalse
		if explanation.Result {
			out.Branch = models.HandleTrue
		}

		for _, edge := range g.Outgoing(node.ID) {
			if edge.SourceHandle == out.Branch {
				out.NextNodeIDs = append(out.NextNodeIDs, edge.Target)
			}
		}
	case models.NodeTypeTransform:
		result := transform.Preview(node.Transform.Expressions, data)
		out.Transform = &result

		for _, edge := range g.Outgoing(node.ID) {
			out.NextNodeIDs = append(out.NextNodeIDs, edge.Target)
		}
	default:
		return nil, NewValidationError("PreviewNode", "NOT_PREVIEWABLE",
			fmt.Sprintf("%s nodes cannot be previewed", node.Type), ErrNotPreviewable)
	}

	return out, nil
}
