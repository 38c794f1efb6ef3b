package lowlevel

import (
	"sort"

	"github.com/bits-and-blooms/bitset"
	"github.com/tliron/commonlog"

	"gclower/internal/graph"
	"gclower/internal/ir"
)

var gcLog = commonlog.GetLogger("lowlevel.gc")

// CallSiteRoots is one call site that may trigger a collection together with
// the references live across it
type CallSiteRoots struct {
	Block       int
	Instruction ir.Instruction
	Live        []*ir.Variable
}

// RootAnalysis is the result of computing GC roots for one method.
// Variables copied into each other form one class and share a slot; classes
// live across a common call site never share one.
type RootAnalysis struct {
	CallSites []*CallSiteRoots
	Slots     int

	classOf      []int
	colors       []int
	spillBlocks  [][]int
	autoSpilled  []bool
	interference *graph.Graph
}

// Class returns the variable class of v
func (a *RootAnalysis) Class(v *ir.Variable) int {
	return a.classOf[v.Index]
}

// Slot returns the shadow-stack slot of v, or -1 if v never needs one
func (a *RootAnalysis) Slot(v *ir.Variable) int {
	return a.colors[a.classOf[v.Index]]
}

// IsAutoSpilled reports whether the phi defining v needs no store of its own
func (a *RootAnalysis) IsAutoSpilled(v *ir.Variable) bool {
	return a.autoSpilled[v.Index]
}

// Interferes reports whether the classes of x and y are live across a common call site
func (a *RootAnalysis) Interferes(x, y *ir.Variable) bool {
	return a.interference.HasEdge(a.classOf[x.Index], a.classOf[y.Index])
}

// GCShadowStackContributor makes GC roots explicit. Every reference live
// across a call site that may collect is stored into a shadow-stack slot
// before the call; slots no longer needed are cleared.
type GCShadowStackContributor struct {
	characteristics *Characteristics
	roots           RootRuntime
}

// NewGCShadowStackContributor creates the contributor; roots selects the
// runtime class receiving registerGCRoot and removeGCRoot calls
func NewGCShadowStackContributor(c *Characteristics, roots RootRuntime) *GCShadowStackContributor {
	return &GCShadowStackContributor{characteristics: c, roots: roots}
}

// Contribute instruments the method and returns the number of slots it
// needs, 0 when no reference is ever live across a call site
func (g *GCShadowStackContributor) Contribute(m *Method) int {
	analysis := g.Analyze(m)
	if analysis.Slots == 0 {
		return 0
	}

	g.emit(m, analysis, g.reduceStores(m, analysis))
	gcLog.Debugf("%s: %d call sites, %d slots", m.Reader.Reference, len(analysis.CallSites), analysis.Slots)
	return analysis.Slots
}

// Analyze computes live references, variable classes and slot colors
// without changing the program
func (g *GCShadowStackContributor) Analyze(m *Method) *RootAnalysis {
	p := m.Program
	n := p.VariableCount()

	tracked := g.trackedVariables(m)
	classes := graph.NewDisjointSet(n)
	for _, b := range p.Blocks() {
		for _, insn := range b.Instructions {
			if source, receiver := copySource(insn); source != nil && receiver != nil {
				classes.Union(source.Index, receiver.Index)
			}
		}
	}
	classOf, classCount := classes.PackedMap()

	analysis := &RootAnalysis{
		CallSites:    g.findCallSites(p, tracked),
		classOf:      classOf,
		colors:       make([]int, classCount),
		spillBlocks:  make([][]int, classCount),
		autoSpilled:  make([]bool, n),
		interference: graph.New(classCount),
	}
	for i := range analysis.colors {
		analysis.colors[i] = graph.Uncolored
	}

	affected := make(map[int]bool)
	for _, site := range analysis.CallSites {
		siteClasses := make([]int, 0, len(site.Live))
		seen := make(map[int]bool)
		for _, v := range site.Live {
			cls := classOf[v.Index]
			if seen[cls] {
				continue
			}
			seen[cls] = true
			siteClasses = append(siteClasses, cls)
			affected[cls] = true
			if blocks := analysis.spillBlocks[cls]; len(blocks) == 0 || blocks[len(blocks)-1] != site.Block {
				analysis.spillBlocks[cls] = append(blocks, site.Block)
			}
		}
		analysis.interference.AddClique(siteClasses)
	}
	if len(affected) == 0 {
		return analysis
	}

	hints := graph.New(classCount)
	for _, b := range p.Blocks() {
		for _, phi := range b.Phis {
			for _, in := range phi.Incomings {
				hints.AddEdge(classOf[phi.Receiver.Index], classOf[in.Value.Index])
			}
		}
	}

	nodes := make([]int, 0, len(affected))
	for cls := range affected {
		nodes = append(nodes, cls)
	}
	sort.Ints(nodes)
	analysis.colors = graph.Colorize(analysis.interference, hints, nodes)
	analysis.Slots = graph.ColorCount(analysis.colors)

	dom := ir.ComputeDominators(p)
	finder := NewSpilledPhisFinder(p,
		func(v int) int { return analysis.colors[classOf[v]] },
		func(v, block int) bool {
			for _, spilledAt := range analysis.spillBlocks[classOf[v]] {
				if dom.Dominates(spilledAt, block) {
					return true
				}
			}
			return false
		})
	for _, b := range p.Blocks() {
		for _, phi := range b.Phis {
			analysis.autoSpilled[phi.Receiver.Index] = finder.IsAutoSpilled(phi.Receiver.Index)
		}
	}
	return analysis
}

// copySource returns the operand and result of instructions that only
// re-type or re-check a reference
func copySource(insn ir.Instruction) (source, receiver *ir.Variable) {
	switch i := insn.(type) {
	case *ir.AssignInstruction:
		return i.Assignee, i.Receiver
	case *ir.NullCheckInstruction:
		return i.Value, i.Receiver
	case *ir.CastInstruction:
		return i.Value, i.Receiver
	case *ir.UnwrapArrayInstruction:
		return i.Array, i.Receiver
	}
	return nil, nil
}

// trackedVariables returns the variables the collector has to see: possible
// references that are neither native pointers nor literals
func (g *GCShadowStackContributor) trackedVariables(m *Method) *bitset.BitSet {
	p := m.Program
	varTypes := ir.InferTypes(p, m.Reader.Reference, m.Reader.IsStatic())
	native := NewNativePointerFinder(g.characteristics).Find(m)
	constant := constantVariables(p)

	tracked := bitset.New(uint(p.VariableCount()))
	for i := 0; i < p.VariableCount(); i++ {
		if varTypes[i].IsReference() && !native[i] && !constant[i] {
			tracked.Set(uint(i))
		}
	}
	return tracked
}

// constantVariables marks variables holding null, string or class literals,
// directly or through copies
func constantVariables(p *ir.Program) []bool {
	constant := make([]bool, p.VariableCount())
	changed := true
	for changed {
		changed = false
		for _, b := range p.Blocks() {
			for _, insn := range b.Instructions {
				var receiver *ir.Variable
				switch i := insn.(type) {
				case *ir.NullConstantInstruction:
					receiver = i.Receiver
				case *ir.StringConstantInstruction:
					receiver = i.Receiver
				case *ir.ClassConstantInstruction:
					receiver = i.Receiver
				case *ir.AssignInstruction:
					if constant[i.Assignee.Index] {
						receiver = i.Receiver
					}
				case *ir.CastInstruction:
					if constant[i.Value.Index] {
						receiver = i.Receiver
					}
				}
				if receiver != nil && !constant[receiver.Index] {
					constant[receiver.Index] = true
					changed = true
				}
			}
		}
	}
	return constant
}

// findCallSites walks every reachable block backwards and records the
// tracked variables live after each call site. Values a handler needs stay
// live across every call site of the protected block once defined.
func (g *GCShadowStackContributor) findCallSites(p *ir.Program, tracked *bitset.BitSet) []*CallSiteRoots {
	liveness := ir.AnalyzeLiveness(p)
	dom := ir.ComputeDominators(p)
	definitions := ir.DefinitionSites(p)
	vars := uint(p.VariableCount())
	var sites []*CallSiteRoots

	for _, index := range dom.ReversePostOrder() {
		b := p.BlockAt(index)
		live := liveness.LiveOut(index).Clone()
		definedAfter := bitset.New(vars)

		// A handler may need a joint source that is only defined on
		// another path into it.
		exceptional := liveness.ExceptionalLiveOut(index).Clone()
		for v, ok := exceptional.NextSet(0); ok; v, ok = exceptional.NextSet(v + 1) {
			site := definitions[v]
			if site != nil && site != b && !dom.Dominates(site.Index, index) {
				exceptional.Clear(v)
			}
		}

		var blockSites []*CallSiteRoots
		for i := len(b.Instructions) - 1; i >= 0; i-- {
			insn := b.Instructions[i]
			receiver := ir.Receiver(insn)
			if receiver != nil {
				definedAfter.Set(uint(receiver.Index))
			}

			if isGCCallSite(g.characteristics, insn) {
				set := live.Clone()
				if receiver != nil {
					set.Clear(uint(receiver.Index))
				}
				set.InPlaceUnion(exceptional.Difference(definedAfter))
				set.InPlaceIntersection(tracked)

				site := &CallSiteRoots{Block: index, Instruction: insn}
				for v, ok := set.NextSet(0); ok; v, ok = set.NextSet(v + 1) {
					site.Live = append(site.Live, p.VariableAt(int(v)))
				}
				blockSites = append(blockSites, site)
			}

			if receiver != nil {
				live.Clear(uint(receiver.Index))
			}
			for _, used := range ir.Uses(insn) {
				live.Set(uint(used.Index))
			}
		}

		for i := len(blockSites) - 1; i >= 0; i-- {
			sites = append(sites, blockSites[i])
		}
	}
	return sites
}

// rootUpdate is a store into or a clear of one slot before a call site
type rootUpdate struct {
	slot  int
	value *ir.Variable // nil clears the slot
}

// slotUnknown marks a slot whose content differs between paths
const slotUnknown = -2

// reduceStores walks the dominator tree threading the slot contents along
// it, and returns the updates each call site needs. Merge points and handler
// entries forget what the dominator stored since another path may have
// overwritten it.
func (g *GCShadowStackContributor) reduceStores(m *Method, a *RootAnalysis) map[*CallSiteRoots][]rootUpdate {
	p := m.Program
	dom := ir.ComputeDominators(p)
	preds := ir.Predecessors(p)
	exceptional := ir.ExceptionalEntries(p)
	updates := make(map[*CallSiteRoots][]rootUpdate)

	sitesByBlock := make(map[int][]*CallSiteRoots)
	for _, site := range a.CallSites {
		sitesByBlock[site.Block] = append(sitesByBlock[site.Block], site)
	}

	empty := make([]int, a.Slots)
	for i := range empty {
		empty[i] = -1
	}

	type frame struct {
		block int
		state []int
	}
	stack := []frame{{block: 0, state: empty}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		state := append([]int(nil), top.state...)
		if top.block != 0 && (len(preds[top.block]) > 1 || exceptional[top.block]) {
			for i := range state {
				state[i] = slotUnknown
			}
		}

		for _, phi := range p.BlockAt(top.block).Phis {
			if a.autoSpilled[phi.Receiver.Index] {
				cls := a.classOf[phi.Receiver.Index]
				state[a.colors[cls]] = cls
			}
		}

		for _, site := range sitesByBlock[top.block] {
			desired := append([]int(nil), empty...)
			values := make(map[int]*ir.Variable)
			for _, v := range site.Live {
				cls := a.classOf[v.Index]
				if _, ok := values[cls]; !ok {
					values[cls] = v
					desired[a.colors[cls]] = cls
				}
			}

			for slot := range desired {
				switch {
				case desired[slot] >= 0 && desired[slot] != state[slot]:
					updates[site] = append(updates[site], rootUpdate{slot: slot, value: values[desired[slot]]})
				case desired[slot] < 0 && state[slot] != -1:
					updates[site] = append(updates[site], rootUpdate{slot: slot})
				}
			}
			state = desired
		}

		for _, child := range dom.Children(top.block) {
			stack = append(stack, frame{block: child, state: state})
		}
	}
	return updates
}

func (g *GCShadowStackContributor) emit(m *Method, a *RootAnalysis, updates map[*CallSiteRoots][]rootUpdate) {
	p := m.Program
	register := g.roots.RegisterGCRootMethod()
	remove := g.roots.RemoveGCRootMethod()

	for _, site := range a.CallSites {
		list := updates[site]
		if len(list) == 0 {
			continue
		}

		loc := site.Instruction.GetLocation()
		var insns []ir.Instruction
		for _, u := range list {
			slot, constant := intConstant(p, u.slot)
			insns = append(insns, constant)
			if u.value != nil {
				insns = append(insns, invokeRuntime(register, nil, slot, u.value))
			} else {
				insns = append(insns, invokeRuntime(remove, nil, slot))
			}
		}

		b := p.BlockAt(site.Block)
		b.InsertAt(indexOf(b, site.Instruction), locate(loc, insns...)...)
	}
}

func indexOf(b *ir.BasicBlock, insn ir.Instruction) int {
	for i, candidate := range b.Instructions {
		if candidate == insn {
			return i
		}
	}
	return len(b.Instructions)
}
