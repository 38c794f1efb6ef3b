package ir

// DominatorTree holds immediate dominators over the control-flow graph
// including exceptional edges to handlers. Indices are block indices.
type DominatorTree struct {
	idom     []int
	children [][]int
	rpo      []int
	pre      []int
	post     []int
}

// ReversePostOrder returns reachable block indices in reverse post-order,
// following both normal and exceptional successors from the entry block.
func ReversePostOrder(p *Program) []int {
	if p.BlockCount() == 0 {
		return nil
	}
	visited := make([]bool, p.BlockCount())
	var order []int

	var dfs func(b *BasicBlock)
	dfs = func(b *BasicBlock) {
		visited[b.Index] = true
		for _, s := range AllSuccessors(b) {
			if !visited[s.Index] {
				dfs(s)
			}
		}
		order = append(order, b.Index)
	}
	dfs(p.Entry())

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// ComputeDominators builds the dominator tree with Cooper, Harvey and
// Kennedy's "A Simple, Fast Dominance Algorithm".
func ComputeDominators(p *Program) *DominatorTree {
	n := p.BlockCount()
	dt := &DominatorTree{
		idom:     make([]int, n),
		children: make([][]int, n),
		pre:      make([]int, n),
		post:     make([]int, n),
	}
	for i := range dt.idom {
		dt.idom[i] = -1
		dt.pre[i] = -1
		dt.post[i] = -1
	}
	if n == 0 {
		return dt
	}

	rpo := ReversePostOrder(p)
	dt.rpo = rpo
	rpoNum := make([]int, n)
	for i := range rpoNum {
		rpoNum[i] = -1
	}
	for i, b := range rpo {
		rpoNum[b] = i
	}

	preds := make([][]int, n)
	for _, b := range p.Blocks() {
		if rpoNum[b.Index] < 0 {
			continue
		}
		for _, s := range AllSuccessors(b) {
			preds[s.Index] = append(preds[s.Index], b.Index)
		}
	}

	intersect := func(b1, b2 int) int {
		for b1 != b2 {
			for rpoNum[b1] > rpoNum[b2] {
				b1 = dt.idom[b1]
			}
			for rpoNum[b2] > rpoNum[b1] {
				b2 = dt.idom[b2]
			}
		}
		return b1
	}

	// Entry dominates itself while iterating.
	entry := rpo[0]
	dt.idom[entry] = entry

	changed := true
	for changed {
		changed = false
		for _, b := range rpo[1:] {
			newIdom := -1
			for _, pred := range preds[b] {
				if dt.idom[pred] < 0 {
					continue
				}
				if newIdom < 0 {
					newIdom = pred
				} else {
					newIdom = intersect(pred, newIdom)
				}
			}
			if newIdom >= 0 && dt.idom[b] != newIdom {
				dt.idom[b] = newIdom
				changed = true
			}
		}
	}
	dt.idom[entry] = -1

	for _, b := range rpo {
		if parent := dt.idom[b]; parent >= 0 {
			dt.children[parent] = append(dt.children[parent], b)
		}
	}
	dt.number(entry)
	return dt
}

// number assigns pre/post visit numbers so Dominates is O(1)
func (dt *DominatorTree) number(entry int) {
	counter := 0
	type frame struct {
		node  int
		child int
	}
	stack := []frame{{node: entry}}
	dt.pre[entry] = counter
	counter++
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.child < len(dt.children[top.node]) {
			next := dt.children[top.node][top.child]
			top.child++
			dt.pre[next] = counter
			counter++
			stack = append(stack, frame{node: next})
			continue
		}
		dt.post[top.node] = counter
		counter++
		stack = stack[:len(stack)-1]
	}
}

// ImmediateDominator returns the idom of block b, or -1 for the entry and unreachable blocks
func (dt *DominatorTree) ImmediateDominator(b int) int {
	return dt.idom[b]
}

// Children returns the blocks immediately dominated by b
func (dt *DominatorTree) Children(b int) []int {
	return dt.children[b]
}

// Dominates reports whether a dominates b (reflexively)
func (dt *DominatorTree) Dominates(a, b int) bool {
	if dt.pre[a] < 0 || dt.pre[b] < 0 {
		return false
	}
	return dt.pre[a] <= dt.pre[b] && dt.post[b] <= dt.post[a]
}

// IsReachable reports whether b is reachable from the entry block
func (dt *DominatorTree) IsReachable(b int) bool {
	return dt.pre[b] >= 0
}

// ReversePostOrder returns the traversal order used to build the tree
func (dt *DominatorTree) ReversePostOrder() []int {
	return dt.rpo
}
