package graph

// Uncolored marks a node that takes no part in coloring
const Uncolored = -1

// Colorize greedily assigns colors to the given nodes so that no two nodes
// adjacent in interference share a color. Nodes are colored in the order
// given. A node first tries the colors already taken by its neighbors in
// hints, which lets phi-related values land in the same slot; otherwise it
// takes the lowest free color. hints may be nil.
//
// The result has one entry per graph node; nodes not listed are Uncolored.
func Colorize(interference, hints *Graph, nodes []int) []int {
	colors := make([]int, interference.Size())
	for i := range colors {
		colors[i] = Uncolored
	}

	for _, node := range nodes {
		used := make(map[int]bool)
		for _, neighbor := range interference.Neighbors(node) {
			if c := colors[neighbor]; c != Uncolored {
				used[c] = true
			}
		}

		chosen := Uncolored
		if hints != nil {
			for _, hinted := range hints.Neighbors(node) {
				if c := colors[hinted]; c != Uncolored && !used[c] {
					chosen = c
					break
				}
			}
		}
		if chosen == Uncolored {
			chosen = 0
			for used[chosen] {
				chosen++
			}
		}
		colors[node] = chosen
	}
	return colors
}

// ColorCount returns one more than the highest color in colors, or 0
func ColorCount(colors []int) int {
	count := 0
	for _, c := range colors {
		if c+1 > count {
			count = c + 1
		}
	}
	return count
}
