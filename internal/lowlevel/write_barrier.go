package lowlevel

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/tliron/commonlog"

	"gclower/internal/ir"
	"gclower/internal/types"
)

var barrierLog = commonlog.GetLogger("lowlevel.barriers")

// WriteBarrierInsertion calls GC.writeBarrier on the target object before a
// reference is stored into one of its fields or array elements. A barrier
// stays installed on an object until the next call of any kind, so
// repeated stores into the same object pay for it once. Blocks are visited
// once in reverse post-order; the state on entry to a block is what every
// visited predecessor agrees on, and back edges and handler entries start
// from nothing.
type WriteBarrierInsertion struct {
	characteristics *Characteristics
}

// NewWriteBarrierInsertion creates the pass
func NewWriteBarrierInsertion(c *Characteristics) *WriteBarrierInsertion {
	return &WriteBarrierInsertion{characteristics: c}
}

// Name returns the pass name
func (w *WriteBarrierInsertion) Name() string { return "write-barriers" }

// Description returns a one-line summary of the pass
func (w *WriteBarrierInsertion) Description() string {
	return "Inserts write barriers before reference stores, skipping redundant ones"
}

// Apply inserts the barriers and reports whether any were inserted
func (w *WriteBarrierInsertion) Apply(m *Method) (bool, error) {
	p := m.Program
	if p.BlockCount() == 0 {
		return false, nil
	}

	vars := uint(p.VariableCount())
	preds := ir.Predecessors(p)
	exceptional := ir.ExceptionalEntries(p)
	constants := bitset.New(vars)
	unwrapped := make(map[*ir.Variable]*ir.Variable)
	endState := make([]*bitset.BitSet, p.BlockCount())
	inserted := 0

	for _, index := range ir.ReversePostOrder(p) {
		b := p.BlockAt(index)
		installed := w.entryState(b, preds[index], exceptional[index], endState, vars)

		result := make([]ir.Instruction, 0, len(b.Instructions))
		for _, insn := range b.Instructions {
			if target := w.storeTarget(insn, constants, unwrapped); target != nil {
				if !installed.Test(uint(target.Index)) && !constants.Test(uint(target.Index)) {
					barrier := invokeRuntime(WriteBarrierMethod, nil, target)
					barrier.SetLocation(insn.GetLocation())
					result = append(result, barrier)
					inserted++
				}
				installed.Set(uint(target.Index))
			}
			result = append(result, insn)
			w.track(insn, installed, constants, unwrapped)
		}
		b.Instructions = result
		endState[index] = installed
	}
	if inserted > 0 {
		barrierLog.Debugf("%s: %d write barriers", m.Reader.Reference, inserted)
	}
	return inserted > 0, nil
}

// entryState intersects the end states of b's predecessors and extends it
// with phis whose every input already has a barrier
func (w *WriteBarrierInsertion) entryState(b *ir.BasicBlock, preds []*ir.BasicBlock, exceptional bool, endState []*bitset.BitSet, vars uint) *bitset.BitSet {
	if exceptional || len(preds) == 0 {
		return bitset.New(vars)
	}
	var state *bitset.BitSet
	for _, pred := range preds {
		end := endState[pred.Index]
		if end == nil {
			return bitset.New(vars)
		}
		if state == nil {
			state = end.Clone()
		} else {
			state.InPlaceIntersection(end)
		}
	}

	for _, phi := range b.Phis {
		all := len(phi.Incomings) > 0
		for _, in := range phi.Incomings {
			all = all && endState[in.Source.Index] != nil && endState[in.Source.Index].Test(uint(in.Value.Index))
		}
		if all {
			state.Set(uint(phi.Receiver.Index))
		}
	}
	return state
}

// storeTarget returns the object a reference store writes into, or nil when
// insn stores no reference or stores null
func (w *WriteBarrierInsertion) storeTarget(insn ir.Instruction, constants *bitset.BitSet, unwrapped map[*ir.Variable]*ir.Variable) *ir.Variable {
	switch i := insn.(type) {
	case *ir.PutFieldInstruction:
		if i.Instance == nil || !types.IsReference(i.FieldType) || w.characteristics.IsNativeType(i.FieldType) {
			return nil
		}
		if w.characteristics.IsStructure(i.Field.ClassName) || constants.Test(uint(i.Value.Index)) {
			return nil
		}
		return i.Instance
	case *ir.PutElementInstruction:
		if i.Type != ir.ElementObject || constants.Test(uint(i.Value.Index)) {
			return nil
		}
		if array, ok := unwrapped[i.Array]; ok {
			return array
		}
		return i.Array
	}
	return nil
}

// track updates the barrier and constant state after insn executed
func (w *WriteBarrierInsertion) track(insn ir.Instruction, installed, constants *bitset.BitSet, unwrapped map[*ir.Variable]*ir.Variable) {
	copyFrom := func(source, receiver *ir.Variable) {
		if installed.Test(uint(source.Index)) {
			installed.Set(uint(receiver.Index))
		}
		if constants.Test(uint(source.Index)) {
			constants.Set(uint(receiver.Index))
		}
	}

	switch i := insn.(type) {
	case *ir.NullConstantInstruction:
		constants.Set(uint(i.Receiver.Index))
	case *ir.StringConstantInstruction:
		constants.Set(uint(i.Receiver.Index))
	case *ir.ClassConstantInstruction:
		constants.Set(uint(i.Receiver.Index))
	case *ir.AssignInstruction:
		copyFrom(i.Assignee, i.Receiver)
	case *ir.CastInstruction:
		copyFrom(i.Value, i.Receiver)
	case *ir.NullCheckInstruction:
		copyFrom(i.Value, i.Receiver)
	case *ir.UnwrapArrayInstruction:
		unwrapped[i.Receiver] = i.Array
		if original, ok := unwrapped[i.Array]; ok {
			unwrapped[i.Receiver] = original
		}

	case *ir.ConstructInstruction:
		installed.ClearAll()
		installed.Set(uint(i.Receiver.Index))
	case *ir.ConstructArrayInstruction:
		installed.ClearAll()
		installed.Set(uint(i.Receiver.Index))
	case *ir.InvokeInstruction, *ir.InitClassInstruction, *ir.CloneArrayInstruction,
		*ir.MonitorEnterInstruction, *ir.MonitorExitInstruction:
		installed.ClearAll()
	}
}
