package graph

// DisjointSet is a union-find forest with path compression and union by rank
type DisjointSet struct {
	parent []int
	rank   []int
}

// NewDisjointSet creates n singleton sets
func NewDisjointSet(n int) *DisjointSet {
	ds := &DisjointSet{
		parent: make([]int, n),
		rank:   make([]int, n),
	}
	for i := range ds.parent {
		ds.parent[i] = i
	}
	return ds
}

// Size returns the number of elements
func (ds *DisjointSet) Size() int {
	return len(ds.parent)
}

// Find returns the representative of x's set
func (ds *DisjointSet) Find(x int) int {
	root := x
	for ds.parent[root] != root {
		root = ds.parent[root]
	}
	for ds.parent[x] != root {
		next := ds.parent[x]
		ds.parent[x] = root
		x = next
	}
	return root
}

// Union merges the sets of a and b and returns the new representative
func (ds *DisjointSet) Union(a, b int) int {
	a, b = ds.Find(a), ds.Find(b)
	if a == b {
		return a
	}
	switch {
	case ds.rank[a] < ds.rank[b]:
		a, b = b, a
	case ds.rank[a] == ds.rank[b]:
		ds.rank[a]++
	}
	ds.parent[b] = a
	return a
}

// Same reports whether a and b belong to one set
func (ds *DisjointSet) Same(a, b int) bool {
	return ds.Find(a) == ds.Find(b)
}

// PackedMap numbers the sets densely in order of first appearance and
// returns, for every element, the number of its set, plus the set count.
func (ds *DisjointSet) PackedMap() ([]int, int) {
	packed := make([]int, len(ds.parent))
	numbers := make(map[int]int)
	for i := range ds.parent {
		root := ds.Find(i)
		n, ok := numbers[root]
		if !ok {
			n = len(numbers)
			numbers[root] = n
		}
		packed[i] = n
	}
	return packed, len(numbers)
}
