// Package graph holds the structural workflow model the editor mutates: an arena of nodes keyed
// by id plus an edge list.
package graph

import (
	"slices"

	"github.com/google/uuid"
	"github.com/skillhub/flowcore/pkg/models"
)

// Default ids of the nodes created with a new graph.
const (
	DefaultStartID = "start"
	DefaultEndID   = "end"
)

// Graph is a workflow definition under edit. It is not safe for concurrent use.
type Graph struct {
	nodes map[string]models.Node
	order []string
	edges []models.Edge
}

// Empty returns a graph with no nodes.
func Empty() *Graph {
	return &Graph{nodes: make(map[string]models.Node)}
}

// New returns the graph a new workflow starts with: one start and one end node.
func New() *Graph {
	g := Empty()
	g.insert(models.NewStartNode(DefaultStartID))
	g.insert(models.NewEndNode(DefaultEndID))

	return g
}

// FromDefinition builds a graph from a stored definition, applying the same rules as the
// mutators.
func FromDefinition(def models.Definition) (*Graph, error) {
	g := Empty()

	for _, node := range def.Nodes {
		if err := g.AddNode(node); err != nil {
			return nil, err
		}
	}

	for _, edge := range def.Edges {
		if _, err := g.AddEdge(edge); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// Definition returns a deep copy of the graph as a definition.
func (g *Graph) Definition() models.Definition {
	return models.Definition{
		Nodes: g.Nodes(),
		Edges: g.Edges(),
	}
}

// Clone returns an independent copy of the graph.
func (g *Graph) Clone() *Graph {
	out := Empty()
	for _, id := range g.order {
		out.insert(g.nodes[id].Clone())
	}

	out.edges = slices.Clone(g.edges)

	return out
}

// Nodes returns copies of the nodes in insertion order.
func (g *Graph) Nodes() []models.Node {
	out := make([]models.Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id].Clone())
	}

	return out
}

// Edges returns a copy of the edge list.
func (g *Graph) Edges() []models.Edge {
	out := make([]models.Edge, len(g.edges))
	copy(out, g.edges)

	return out
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (models.Node, bool) {
	node, ok := g.nodes[id]
	if !ok {
		return models.Node{}, false
	}

	return node.Clone(), true
}

// HasNode reports whether a node with the given id exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]

	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

// NodesOfType returns the nodes of one kind in insertion order.
func (g *Graph) NodesOfType(t models.NodeType) []models.Node {
	var out []models.Node

	for _, id := range g.order {
		if g.nodes[id].Type == t {
			out = append(out, g.nodes[id].Clone())
		}
	}

	return out
}

// Incoming returns the edges ending at id.
func (g *Graph) Incoming(id string) []models.Edge {
	var out []models.Edge

	for _, e := range g.edges {
		if e.Target == id {
			out = append(out, e)
		}
	}

	return out
}

// Outgoing returns the edges starting at id.
func (g *Graph) Outgoing(id string) []models.Edge {
	var out []models.Edge

	for _, e := range g.edges {
		if e.Source == id {
			out = append(out, e)
		}
	}

	return out
}

// AddNode inserts a node. The id must be unique and the payload must match the type.
func (g *Graph) AddNode(node models.Node) error {
	if err := node.CheckShape(); err != nil {
		return models.NewMutationError("AddNode", node.ID, err, "")
	}

	if _, exists := g.nodes[node.ID]; exists {
		return models.NewMutationError("AddNode", node.ID, models.ErrDuplicateID, "node already exists")
	}

	g.insert(node.Clone())

	return nil
}

// UpdateNode applies a patch to an existing node.
func (g *Graph) UpdateNode(id string, patch models.NodePatch) (models.Node, error) {
	node, ok := g.nodes[id]
	if !ok {
		return models.Node{}, models.NewMutationError("UpdateNode", id, models.ErrNotFound, "node does not exist")
	}

	updated, err := patch.Apply(node)
	if err != nil {
		return models.Node{}, models.NewMutationError("UpdateNode", id, err, "")
	}

	g.nodes[id] = updated

	return updated.Clone(), nil
}

// RemoveNode deletes a node and every edge touching it.
func (g *Graph) RemoveNode(id string) error {
	if _, ok := g.nodes[id]; !ok {
		return models.NewMutationError("RemoveNode", id, models.ErrNotFound, "node does not exist")
	}

	delete(g.nodes, id)
	g.order = slices.DeleteFunc(g.order, func(n string) bool { return n == id })
	g.edges = slices.DeleteFunc(g.edges, func(e models.Edge) bool { return e.Touches(id) })

	return nil
}

// AddEdge connects two existing nodes and returns the stored edge. An empty id is generated.
// Edges leaving a condition node must use an unused "true" or "false" source handle; edges
// leaving any other node must not carry a source handle.
func (g *Graph) AddEdge(edge models.Edge) (models.Edge, error) {
	if edge.ID == "" {
		edge.ID = uuid.New().String()
	}

	if slices.ContainsFunc(g.edges, func(e models.Edge) bool { return e.ID == edge.ID }) {
		return models.Edge{}, models.NewMutationError("AddEdge", edge.ID, models.ErrDuplicateID, "edge already exists")
	}

	source, ok := g.nodes[edge.Source]
	if !ok {
		return models.Edge{}, models.NewMutationError("AddEdge", edge.ID, models.ErrNotFound,
			"source node "+edge.Source+" does not exist")
	}

	if _, ok := g.nodes[edge.Target]; !ok {
		return models.Edge{}, models.NewMutationError("AddEdge", edge.ID, models.ErrNotFound,
			"target node "+edge.Target+" does not exist")
	}

	if err := g.checkHandle(source, edge); err != nil {
		return models.Edge{}, err
	}

	g.edges = append(g.edges, edge)

	return edge, nil
}

// RemoveEdge deletes an edge.
func (g *Graph) RemoveEdge(id string) error {
	idx := slices.IndexFunc(g.edges, func(e models.Edge) bool { return e.ID == id })
	if idx < 0 {
		return models.NewMutationError("RemoveEdge", id, models.ErrNotFound, "edge does not exist")
	}

	g.edges = slices.Delete(g.edges, idx, idx+1)

	return nil
}

func (g *Graph) checkHandle(source models.Node, edge models.Edge) error {
	if source.Type != models.NodeTypeCondition {
		if edge.SourceHandle != "" {
			return models.NewMutationError("AddEdge", edge.ID, models.ErrInvalidHandle,
				"only condition nodes have source handles")
		}

		return nil
	}

	if edge.SourceHandle != models.HandleTrue && edge.SourceHandle != models.HandleFalse {
		return models.NewMutationError("AddEdge", edge.ID, models.ErrInvalidHandle,
			"condition edges must use the true or false handle, got "+quoteHandle(edge.SourceHandle))
	}

	for _, e := range g.edges {
		if e.Source == source.ID && e.SourceHandle == edge.SourceHandle {
			return models.NewMutationError("AddEdge", edge.ID, models.ErrInvalidHandle,
				"handle "+edge.SourceHandle+" of node "+source.ID+" is already used by edge "+e.ID)
		}
	}

	return nil
}

func (g *Graph) insert(node models.Node) {
	g.nodes[node.ID] = node
	g.order = append(g.order, node.ID)
}

func quoteHandle(handle string) string {
	if handle == "" {
		return "no handle"
	}

	return `"` + handle + `"`
}
