package graph

// ReachableFrom returns the ids of every node reachable from id by following edges forward, in
// breadth-first order. The starting node is included only when a cycle leads back to it.
func (g *Graph) ReachableFrom(id string) []string {
	seen := make(map[string]bool)
	queue := []string{id}

	var out []string

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range g.successors(current) {
			if seen[next] {
				continue
			}

			seen[next] = true
			out = append(out, next)
			queue = append(queue, next)
		}
	}

	return out
}

// HasCycle reports whether any directed cycle exists in the graph.
func (g *Graph) HasCycle() bool {
	return g.FindCycle() != nil
}

// HasCycleFrom reports whether a directed cycle is reachable from id.
func (g *Graph) HasCycleFrom(id string) bool {
	return g.FindCycleFrom(id) != nil
}

// FindCycleFrom returns one directed cycle reachable from id, or nil.
func (g *Graph) FindCycleFrom(id string) []string {
	if !g.HasNode(id) {
		return nil
	}

	return g.visit(id, make(map[string]int, len(g.order)), nil)
}

// FindCycle returns the node ids of one directed cycle, in edge order, or nil when the graph is
// acyclic.
func (g *Graph) FindCycle() []string {
	color := make(map[string]int, len(g.order))

	for _, id := range g.order {
		if color[id] != white {
			continue
		}

		if cycle := g.visit(id, color, nil); cycle != nil {
			return cycle
		}
	}

	return nil
}

const (
	white = iota
	grey
	black
)

func (g *Graph) visit(id string, color map[string]int, path []string) []string {
	color[id] = grey
	path = append(path, id)

	for _, next := range g.successors(id) {
		switch color[next] {
		case grey:
			for i, p := range path {
				if p == next {
					return append([]string(nil), path[i:]...)
				}
			}
		case white:
			if cycle := g.visit(next, color, path); cycle != nil {
				return cycle
			}
		}
	}

	color[id] = black

	return nil
}

func (g *Graph) successors(id string) []string {
	var out []string

	for _, e := range g.edges {
		if e.Source == id {
			if _, ok := g.nodes[e.Target]; ok {
				out = append(out, e.Target)
			}
		}
	}

	return out
}
