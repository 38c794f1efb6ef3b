// Package graph provides the small index-based graph utilities the lowering
// passes share: an undirected graph, a disjoint-set forest and a greedy
// graph colorer.
package graph

import "sort"

// Graph is an undirected graph over nodes 0..Size()-1
type Graph struct {
	edges []map[int]struct{}
}

// New creates a graph with size nodes and no edges
func New(size int) *Graph {
	g := &Graph{edges: make([]map[int]struct{}, size)}
	for i := range g.edges {
		g.edges[i] = make(map[int]struct{})
	}
	return g
}

// Size returns the number of nodes
func (g *Graph) Size() int {
	return len(g.edges)
}

// AddEdge connects a and b. Self loops are ignored.
func (g *Graph) AddEdge(a, b int) {
	if a == b {
		return
	}
	g.edges[a][b] = struct{}{}
	g.edges[b][a] = struct{}{}
}

// HasEdge reports whether a and b are connected
func (g *Graph) HasEdge(a, b int) bool {
	_, ok := g.edges[a][b]
	return ok
}

// Neighbors returns the nodes adjacent to n in ascending order
func (g *Graph) Neighbors(n int) []int {
	result := make([]int, 0, len(g.edges[n]))
	for m := range g.edges[n] {
		result = append(result, m)
	}
	sort.Ints(result)
	return result
}

// Degree returns the number of nodes adjacent to n
func (g *Graph) Degree(n int) int {
	return len(g.edges[n])
}

// AddClique connects every pair of the given nodes
func (g *Graph) AddClique(nodes []int) {
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			g.AddEdge(nodes[i], nodes[j])
		}
	}
}
