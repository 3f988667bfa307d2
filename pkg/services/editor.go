package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/skillhub/flowcore/pkg/graph"
	"github.com/skillhub/flowcore/pkg/models"
	"github.com/skillhub/flowcore/pkg/variables"
)

// AddNode inserts a node into the workflow graph. A missing id is generated.
func (w *Workflow) AddNode(ctx context.Context, workflowID string, node models.Node) (models.Node, error) {
	if node.ID == "" {
		node.ID = uuid.NewString()
	}

	_, err := w.edit(ctx, "workflow.add_node", workflowID, func(_ *models.Workflow, g *graph.Graph, _ *variables.Registry) error {
		return g.AddNode(node)
	})
	if err != nil {
		return models.Node{}, err
	}

	return node.Clone(), nil
}

// UpdateNode patches a node's label, description or payload.
func (w *Workflow) UpdateNode(ctx context.Context, workflowID, nodeID string, patch models.NodePatch) (models.Node, error) {
	var updated models.Node

	_, err := w.edit(ctx, "workflow.update_node", workflowID, func(_ *models.Workflow, g *graph.Graph, _ *variables.Registry) error {
		var err error

		updated, err = g.UpdateNode(nodeID, patch)

		return err
	})

	return updated, err
}

// RemoveNode deletes a node and every edge touching it.
func (w *Workflow) RemoveNode(ctx context.Context, workflowID, nodeID string) error {
	_, err := w.edit(ctx, "workflow.remove_node", workflowID, func(_ *models.Workflow, g *graph.Graph, _ *variables.Registry) error {
		return g.RemoveNode(nodeID)
	})

	return err
}

// AddEdge connects two nodes and returns the stored edge with its id.
func (w *Workflow) AddEdge(ctx context.Context, workflowID string, edge models.Edge) (models.Edge, error) {
	var added models.Edge

	_, err := w.edit(ctx, "workflow.add_edge", workflowID, func(_ *models.Workflow, g *graph.Graph, _ *variables.Registry) error {
		var err error

		added, err = g.AddEdge(edge)

		return err
	})

	return added, err
}

// RemoveEdge deletes one edge.
func (w *Workflow) RemoveEdge(ctx context.Context, workflowID, edgeID string) error {
	_, err := w.edit(ctx, "workflow.remove_edge", workflowID, func(_ *models.Workflow, g *graph.Graph, _ *variables.Registry) error {
		return g.RemoveEdge(edgeID)
	})

	return err
}

// DeclareVariable adds a workflow variable. A missing id is generated.
func (w *Workflow) DeclareVariable(ctx context.Context, workflowID string, v models.Variable) (models.Variable, error) {
	if err := w.validate.Struct(v); err != nil {
		return models.Variable{}, NewValidationError("DeclareVariable", "INVALID_VARIABLE", err.Error(), ErrInvalidRequest)
	}

	if v.ID == "" {
		v.ID = uuid.NewString()
	}

	_, err := w.edit(ctx, "workflow.declare_variable", workflowID, func(_ *models.Workflow, _ *graph.Graph, r *variables.Registry) error {
		return r.Declare(v)
	})
	if err != nil {
		return models.Variable{}, err
	}

	return v, nil
}

// UpdateVariable patches a variable.
func (w *Workflow) UpdateVariable(
	ctx context.Context,
	workflowID, variableID string,
	patch models.VariablePatch,
) (models.Variable, error) {
	var updated models.Variable

	_, err := w.edit(ctx, "workflow.update_variable", workflowID, func(_ *models.Workflow, _ *graph.Graph, r *variables.Registry) error {
		var err error

		updated, err = r.Update(variableID, patch)

		return err
	})

	return updated, err
}

// RemoveVariable deletes a variable. Removing an unknown variable is not an error; references
// left behind are reported by validation.
func (w *Workflow) RemoveVariable(ctx context.Context, workflowID, variableID string) error {
	_, err := w.edit(ctx, "workflow.remove_variable", workflowID, func(_ *models.Workflow, _ *graph.Graph, r *variables.Registry) error {
		r.Remove(variableID)

		return nil
	})

	return err
}
