package lowlevel

import (
	"gclower/internal/ir"
)

const (
	phiUnvisited uint8 = iota
	phiVisiting
	phiVisited
)

// SpilledPhisFinder decides which phi receivers already sit in their
// shadow-stack slot when control reaches the phi. That holds when every
// incoming value shares the phi's color and either was spilled in a block
// dominating the incoming edge's source or is itself such a phi. Phis that
// depend on themselves through a cycle are not auto-spilled.
type SpilledPhisFinder struct {
	phis    map[int]*ir.Phi
	color   func(variable int) int
	spilled func(variable, block int) bool
	state   []uint8
	result  []bool
}

// NewSpilledPhisFinder creates the finder. color returns the slot of a
// variable or -1; spilled reports whether a variable was stored at a call
// site in a block dominating the given block.
func NewSpilledPhisFinder(p *ir.Program, color func(int) int, spilled func(int, int) bool) *SpilledPhisFinder {
	f := &SpilledPhisFinder{
		phis:    make(map[int]*ir.Phi),
		color:   color,
		spilled: spilled,
		state:   make([]uint8, p.VariableCount()),
		result:  make([]bool, p.VariableCount()),
	}
	for _, b := range p.Blocks() {
		for _, phi := range b.Phis {
			f.phis[phi.Receiver.Index] = phi
		}
	}
	return f
}

// IsAutoSpilled reports whether the phi defining variable needs no store
func (f *SpilledPhisFinder) IsAutoSpilled(variable int) bool {
	if _, ok := f.phis[variable]; !ok {
		return false
	}
	if f.state[variable] == phiVisited {
		return f.result[variable]
	}

	type frame struct {
		variable int
		next     int
	}
	stack := []*frame{{variable: variable}}
	f.state[variable] = phiVisiting

	finish := func(value bool) {
		top := stack[len(stack)-1]
		f.result[top.variable] = value
		f.state[top.variable] = phiVisited
		stack = stack[:len(stack)-1]
	}

outer:
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		phi := f.phis[top.variable]
		color := f.color(top.variable)
		if color < 0 {
			finish(false)
			continue
		}

		for top.next < len(phi.Incomings) {
			in := phi.Incomings[top.next]
			value := in.Value.Index
			if f.color(value) != color {
				finish(false)
				continue outer
			}
			if f.spilled(value, in.Source.Index) {
				top.next++
				continue
			}
			if _, isPhi := f.phis[value]; !isPhi {
				finish(false)
				continue outer
			}

			switch f.state[value] {
			case phiVisited:
				if !f.result[value] {
					finish(false)
					continue outer
				}
				top.next++
			case phiVisiting:
				// cycle
				finish(false)
				continue outer
			default:
				f.state[value] = phiVisiting
				stack = append(stack, &frame{variable: value})
				continue outer
			}
		}
		finish(true)
	}
	return f.result[variable]
}
