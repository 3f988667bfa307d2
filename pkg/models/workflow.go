package models

import (
	"slices"
	"time"
)

// Definition is the structural part of a workflow: the graph's nodes and edges.
type Definition struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Workflow is a saved graph definition plus its variables and metadata.
type Workflow struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"                validate:"required,min=3"`
	Description string     `json:"description"`
	Definition  Definition `json:"definition"`
	Variables   []Variable `json:"variables"`
	IsActive    bool       `json:"isActive"`
	// Schedule is an optional five-field cron expression for scheduled runs.
	Schedule  string    `json:"schedule,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of the workflow.
func (w *Workflow) Clone() *Workflow {
	out := *w

	out.Definition.Nodes = make([]Node, len(w.Definition.Nodes))
	for i, node := range w.Definition.Nodes {
		out.Definition.Nodes[i] = node.Clone()
	}

	out.Definition.Edges = slices.Clone(w.Definition.Edges)
	out.Variables = slices.Clone(w.Variables)

	return &out
}
