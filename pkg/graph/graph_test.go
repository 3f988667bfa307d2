package graph

import (
	"testing"

	"github.com/skillhub/flowcore/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func conditionNode(id string) models.Node {
	return models.NewConditionNode(id, "Check", models.ConditionData{
		Conditions: models.ConditionGroup{
			Logic: models.LogicAnd,
			Expressions: []models.ConditionExpression{
				{Field: "${score}", Operator: models.OperatorGreaterThan, Value: "10"},
			},
		},
	})
}

func skillNode(id string) models.Node {
	return models.NewSkillNode(id, "Summarize", models.SkillData{SkillID: "sk-1", SkillName: "summarize"})
}

func TestNew(t *testing.T) {
	g := New()

	nodes := g.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, models.NodeTypeStart, nodes[0].Type)
	assert.Equal(t, models.NodeTypeEnd, nodes[1].Type)
	assert.Empty(t, g.Edges())
}

func TestGraph_AddNode(t *testing.T) {
	g := New()

	require.NoError(t, g.AddNode(skillNode("a")))

	err := g.AddNode(skillNode("a"))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDuplicateID)

	err = g.AddNode(models.Node{ID: "b", Type: models.NodeTypeSkill})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidNode)

	assert.Equal(t, 3, g.Len())
}

func TestGraph_NodesDoNotAlias(t *testing.T) {
	g := New()
	node := skillNode("a")
	node.Skill.InputMapping = map[string]string{"text": "${doc}"}
	require.NoError(t, g.AddNode(node))

	node.Skill.InputMapping["text"] = "changed"

	got, ok := g.Node("a")
	require.True(t, ok)
	assert.Equal(t, "${doc}", got.Skill.InputMapping["text"])

	got.Skill.InputMapping["text"] = "changed again"
	again, _ := g.Node("a")
	assert.Equal(t, "${doc}", again.Skill.InputMapping["text"])
}

func TestGraph_UpdateNode(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(skillNode("a")))

	label := "Renamed"
	updated, err := g.UpdateNode("a", models.NodePatch{Label: &label})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Label)

	_, err = g.UpdateNode("missing", models.NodePatch{Label: &label})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = g.UpdateNode("a", models.NodePatch{Transform: &models.TransformData{}})
	assert.ErrorIs(t, err, models.ErrInvalidNode)

	got, _ := g.Node("a")
	assert.Nil(t, got.Transform)
}

func TestGraph_RemoveNodeCascadesEdges(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(skillNode("a")))
	_, err := g.AddEdge(models.Edge{ID: "e1", Source: DefaultStartID, Target: "a"})
	require.NoError(t, err)
	_, err = g.AddEdge(models.Edge{ID: "e2", Source: "a", Target: DefaultEndID})
	require.NoError(t, err)
	_, err = g.AddEdge(models.Edge{ID: "e3", Source: DefaultStartID, Target: DefaultEndID})
	require.NoError(t, err)

	require.NoError(t, g.RemoveNode("a"))

	edges := g.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "e3", edges[0].ID)
	assert.False(t, g.HasNode("a"))

	assert.ErrorIs(t, g.RemoveNode("a"), models.ErrNotFound)
}

func TestGraph_AddEdge(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(conditionNode("c")))
	require.NoError(t, g.AddNode(skillNode("a")))

	t.Run("generates id", func(t *testing.T) {
		edge, err := g.AddEdge(models.Edge{Source: DefaultStartID, Target: "c"})
		require.NoError(t, err)
		assert.NotEmpty(t, edge.ID)
	})

	t.Run("unknown endpoint", func(t *testing.T) {
		_, err := g.AddEdge(models.Edge{Source: "ghost", Target: "a"})
		assert.ErrorIs(t, err, models.ErrNotFound)

		_, err = g.AddEdge(models.Edge{Source: "a", Target: "ghost"})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("condition handles", func(t *testing.T) {
		_, err := g.AddEdge(models.Edge{ID: "t", Source: "c", Target: "a", SourceHandle: models.HandleTrue})
		require.NoError(t, err)

		_, err = g.AddEdge(models.Edge{ID: "t2", Source: "c", Target: DefaultEndID, SourceHandle: models.HandleTrue})
		assert.ErrorIs(t, err, models.ErrInvalidHandle)

		_, err = g.AddEdge(models.Edge{ID: "m", Source: "c", Target: DefaultEndID, SourceHandle: "maybe"})
		assert.ErrorIs(t, err, models.ErrInvalidHandle)

		_, err = g.AddEdge(models.Edge{ID: "n", Source: "c", Target: DefaultEndID})
		assert.ErrorIs(t, err, models.ErrInvalidHandle)

		// both branches may share a target
		_, err = g.AddEdge(models.Edge{ID: "f", Source: "c", Target: "a", SourceHandle: models.HandleFalse})
		require.NoError(t, err)
	})

	t.Run("handle on plain node", func(t *testing.T) {
		_, err := g.AddEdge(models.Edge{Source: "a", Target: DefaultEndID, SourceHandle: models.HandleTrue})
		assert.ErrorIs(t, err, models.ErrInvalidHandle)
	})

	t.Run("duplicate id", func(t *testing.T) {
		_, err := g.AddEdge(models.Edge{ID: "t", Source: "a", Target: DefaultEndID})
		assert.ErrorIs(t, err, models.ErrDuplicateID)
	})
}

func TestGraph_RemoveEdge(t *testing.T) {
	g := New()
	_, err := g.AddEdge(models.Edge{ID: "e1", Source: DefaultStartID, Target: DefaultEndID})
	require.NoError(t, err)

	require.NoError(t, g.RemoveEdge("e1"))
	assert.Empty(t, g.Edges())
	assert.ErrorIs(t, g.RemoveEdge("e1"), models.ErrNotFound)
}

func TestGraph_IncomingOutgoing(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(skillNode("a")))
	_, _ = g.AddEdge(models.Edge{ID: "e1", Source: DefaultStartID, Target: "a"})
	_, _ = g.AddEdge(models.Edge{ID: "e2", Source: "a", Target: DefaultEndID})

	assert.Len(t, g.Incoming("a"), 1)
	assert.Len(t, g.Outgoing("a"), 1)
	assert.Empty(t, g.Incoming(DefaultStartID))
	assert.Empty(t, g.Outgoing(DefaultEndID))
}

func TestGraph_Clone(t *testing.T) {
	g := New()
	clone := g.Clone()

	require.NoError(t, clone.AddNode(skillNode("a")))
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, 3, clone.Len())
}

func TestFromDefinition(t *testing.T) {
	def := models.Definition{
		Nodes: []models.Node{models.NewStartNode("s"), skillNode("a"), models.NewEndNode("e")},
		Edges: []models.Edge{
			{ID: "e1", Source: "s", Target: "a"},
			{ID: "e2", Source: "a", Target: "e"},
		},
	}

	g, err := FromDefinition(def)
	require.NoError(t, err)
	assert.Equal(t, def, g.Definition())

	def.Edges = append(def.Edges, models.Edge{ID: "e3", Source: "a", Target: "nowhere"})
	_, err = FromDefinition(def)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGraph_ReachableFrom(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(skillNode("a")))
	require.NoError(t, g.AddNode(skillNode("orphan")))
	_, _ = g.AddEdge(models.Edge{Source: DefaultStartID, Target: "a"})
	_, _ = g.AddEdge(models.Edge{Source: "a", Target: DefaultEndID})

	assert.Equal(t, []string{"a", DefaultEndID}, g.ReachableFrom(DefaultStartID))
	assert.Empty(t, g.ReachableFrom("orphan"))

	_, _ = g.AddEdge(models.Edge{Source: "a", Target: DefaultStartID})
	assert.ElementsMatch(t, []string{"a", DefaultEndID, DefaultStartID}, g.ReachableFrom(DefaultStartID))
}

func TestGraph_HasCycle(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(skillNode("a")))
	require.NoError(t, g.AddNode(skillNode("b")))
	require.NoError(t, g.AddNode(skillNode("x")))
	_, _ = g.AddEdge(models.Edge{Source: DefaultStartID, Target: "a"})
	_, _ = g.AddEdge(models.Edge{Source: "a", Target: "b"})
	_, _ = g.AddEdge(models.Edge{Source: "b", Target: DefaultEndID})

	assert.False(t, g.HasCycle())
	assert.Nil(t, g.FindCycle())

	// a cycle off to the side is not reachable from start
	_, _ = g.AddEdge(models.Edge{Source: "x", Target: "x"})
	assert.True(t, g.HasCycle())
	assert.False(t, g.HasCycleFrom(DefaultStartID))
	assert.Equal(t, []string{"x"}, g.FindCycle())

	_, _ = g.AddEdge(models.Edge{Source: "b", Target: "a"})
	assert.True(t, g.HasCycleFrom(DefaultStartID))
	assert.False(t, g.HasCycleFrom("missing"))
}

func TestGraph_ChainIsAcyclic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 20).Draw(t, "n")
		g := New()
		prev := DefaultStartID

		for i := range n {
			id := "n" + string(rune('a'+i))
			require.NoError(t, g.AddNode(skillNode(id)))
			_, err := g.AddEdge(models.Edge{Source: prev, Target: id})
			require.NoError(t, err)
			prev = id
		}

		_, err := g.AddEdge(models.Edge{Source: prev, Target: DefaultEndID})
		require.NoError(t, err)

		assert.False(t, g.HasCycle())
		assert.Len(t, g.ReachableFrom(DefaultStartID), n+1)
	})
}
