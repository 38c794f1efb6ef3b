package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphEdges(t *testing.T) {
	g := New(4)
	g.AddEdge(0, 1)
	g.AddEdge(2, 1)
	g.AddEdge(3, 3)

	assert.True(t, g.HasEdge(1, 0))
	assert.True(t, g.HasEdge(1, 2))
	assert.False(t, g.HasEdge(0, 2))
	assert.False(t, g.HasEdge(3, 3), "self loops are ignored")
	assert.Equal(t, []int{0, 2}, g.Neighbors(1))
	assert.Equal(t, 0, g.Degree(3))
}

func TestDisjointSet(t *testing.T) {
	ds := NewDisjointSet(6)
	ds.Union(0, 1)
	ds.Union(2, 3)
	ds.Union(1, 3)

	assert.True(t, ds.Same(0, 2))
	assert.False(t, ds.Same(0, 4))

	packed, count := ds.PackedMap()
	require.Equal(t, 3, count)
	assert.Equal(t, []int{0, 0, 0, 0, 1, 2}, packed)
}

func TestColorizeIsSound(t *testing.T) {
	g := New(5)
	g.AddClique([]int{0, 1, 2})
	g.AddEdge(2, 3)

	colors := Colorize(g, nil, []int{0, 1, 2, 3})
	for a := 0; a < g.Size(); a++ {
		for _, b := range g.Neighbors(a) {
			if colors[a] != Uncolored {
				assert.NotEqual(t, colors[a], colors[b], "nodes %d and %d interfere", a, b)
			}
		}
	}
	assert.Equal(t, Uncolored, colors[4])
	assert.Equal(t, 3, ColorCount(colors))
}

func TestColorizeFollowsHints(t *testing.T) {
	g := New(4)
	g.AddEdge(0, 1)
	g.AddEdge(2, 3)

	hints := New(4)
	hints.AddEdge(3, 1)

	colors := Colorize(g, hints, []int{0, 1, 2, 3})
	assert.Equal(t, 0, colors[0])
	assert.Equal(t, 1, colors[1])
	assert.Equal(t, 0, colors[2])
	assert.Equal(t, 1, colors[3], "hint pulls node 3 into node 1's color")
}

func TestColorizeIgnoresConflictingHint(t *testing.T) {
	g := New(2)
	g.AddEdge(0, 1)
	hints := New(2)
	hints.AddEdge(0, 1)

	colors := Colorize(g, hints, []int{0, 1})
	assert.NotEqual(t, colors[0], colors[1])
}
