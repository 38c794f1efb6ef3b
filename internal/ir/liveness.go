package ir

import "github.com/bits-and-blooms/bitset"

// Liveness is the result of backward liveness analysis over a program.
// Handler blocks are treated as successors of every block they protect, so
// values needed by a handler stay live across the protected instructions.
type Liveness struct {
	liveIn         []*bitset.BitSet
	liveOut        []*bitset.BitSet
	exceptionalOut []*bitset.BitSet
}

// AnalyzeLiveness computes live-in and live-out sets for every block
func AnalyzeLiveness(p *Program) *Liveness {
	n := p.BlockCount()
	vars := uint(p.VariableCount())
	gen := make([]*bitset.BitSet, n)
	kill := make([]*bitset.BitSet, n)
	l := &Liveness{
		liveIn:         make([]*bitset.BitSet, n),
		liveOut:        make([]*bitset.BitSet, n),
		exceptionalOut: make([]*bitset.BitSet, n),
	}

	for _, b := range p.Blocks() {
		i := b.Index
		gen[i] = bitset.New(vars)
		kill[i] = bitset.New(vars)
		l.liveIn[i] = bitset.New(vars)
		l.liveOut[i] = bitset.New(vars)
		l.exceptionalOut[i] = bitset.New(vars)
	}

	// Joint receivers are defined on entry to their handler.
	for _, b := range p.Blocks() {
		for _, tc := range b.TryCatchBlocks {
			for _, joint := range tc.Joints {
				kill[tc.Handler.Index].Set(uint(joint.Receiver.Index))
			}
		}
	}

	for _, b := range p.Blocks() {
		g, k := gen[b.Index], kill[b.Index]
		if b.ExceptionVariable != nil {
			k.Set(uint(b.ExceptionVariable.Index))
		}
		for _, phi := range b.Phis {
			k.Set(uint(phi.Receiver.Index))
		}
		for _, insn := range b.Instructions {
			for _, used := range Uses(insn) {
				if !k.Test(uint(used.Index)) {
					g.Set(uint(used.Index))
				}
			}
			if def := Receiver(insn); def != nil {
				k.Set(uint(def.Index))
			}
		}
	}

	order := ReversePostOrder(p)
	changed := true
	for changed {
		changed = false
		for i := len(order) - 1; i >= 0; i-- {
			b := p.BlockAt(order[i])
			out := bitset.New(vars)
			for _, succ := range Successors(b) {
				out.InPlaceUnion(l.liveIn[succ.Index])
				for _, phi := range succ.Phis {
					if in := phi.IncomingFrom(b); in != nil {
						out.Set(uint(in.Value.Index))
					}
				}
			}

			exceptional := bitset.New(vars)
			for _, tc := range b.TryCatchBlocks {
				exceptional.InPlaceUnion(l.liveIn[tc.Handler.Index])
				for _, phi := range tc.Handler.Phis {
					if in := phi.IncomingFrom(b); in != nil {
						exceptional.Set(uint(in.Value.Index))
					}
				}
				for _, joint := range tc.Joints {
					for _, source := range joint.SourceVariables {
						exceptional.Set(uint(source.Index))
					}
				}
			}
			out.InPlaceUnion(exceptional)

			in := out.Difference(kill[b.Index])
			in.InPlaceUnion(gen[b.Index])

			if !out.Equal(l.liveOut[b.Index]) || !in.Equal(l.liveIn[b.Index]) {
				changed = true
			}
			l.liveOut[b.Index] = out
			l.liveIn[b.Index] = in
			l.exceptionalOut[b.Index] = exceptional
		}
	}
	return l
}

// LiveIn returns the variables live on entry to block b, after its phis
func (l *Liveness) LiveIn(b int) *bitset.BitSet {
	return l.liveIn[b]
}

// LiveOut returns the variables live on exit from block b, including those
// a handler of b needs
func (l *Liveness) LiveOut(b int) *bitset.BitSet {
	return l.liveOut[b]
}

// ExceptionalLiveOut returns the variables that must survive an exception
// raised anywhere inside block b
func (l *Liveness) ExceptionalLiveOut(b int) *bitset.BitSet {
	return l.exceptionalOut[b]
}

// IsLiveIn reports whether variable v is live on entry to block b
func (l *Liveness) IsLiveIn(b, v int) bool {
	return l.liveIn[b].Test(uint(v))
}
