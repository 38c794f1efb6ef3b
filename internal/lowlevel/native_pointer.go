package lowlevel

import (
	"gclower/internal/ir"
	"gclower/internal/types"
)

// NativePointerFinder marks variables that hold raw addresses, structures or
// function pointers. The collector must never see these, so they are never
// registered as roots. Taint starts at parameters, field reads and call
// results whose declared type is native and flows through copies, casts and
// phis whose every input is native. Anything undecided is a reference.
type NativePointerFinder struct {
	characteristics *Characteristics
}

// NewNativePointerFinder creates the analysis
func NewNativePointerFinder(c *Characteristics) *NativePointerFinder {
	return &NativePointerFinder{characteristics: c}
}

// Find returns, per variable index, whether the variable is a native pointer
func (f *NativePointerFinder) Find(m *Method) []bool {
	p := m.Program
	native := make([]bool, p.VariableCount())
	c := f.characteristics

	if !m.Reader.IsStatic() && p.VariableCount() > 0 {
		native[0] = c.IsNativeType(types.ObjectOf(m.Reader.Reference.ClassName))
	}
	for i, param := range m.Reader.Reference.Params {
		if i+1 < len(native) {
			native[i+1] = c.IsNativeType(param)
		}
	}

	mark := func(v *ir.Variable, value bool) bool {
		if v == nil || !value || native[v.Index] {
			return false
		}
		native[v.Index] = true
		return true
	}

	changed := true
	for changed {
		changed = false
		for _, b := range p.Blocks() {
			for _, phi := range b.Phis {
				all := len(phi.Incomings) > 0
				for _, in := range phi.Incomings {
					all = all && native[in.Value.Index]
				}
				if mark(phi.Receiver, all) {
					changed = true
				}
			}
			for _, insn := range b.Instructions {
				if f.visit(insn, native, mark) {
					changed = true
				}
			}
		}
	}
	return native
}

func (f *NativePointerFinder) visit(insn ir.Instruction, native []bool, mark func(*ir.Variable, bool) bool) bool {
	c := f.characteristics
	switch i := insn.(type) {
	case *ir.AssignInstruction:
		return mark(i.Receiver, native[i.Assignee.Index])
	case *ir.NullCheckInstruction:
		return mark(i.Receiver, native[i.Value.Index])
	case *ir.CastInstruction:
		return mark(i.Receiver, native[i.Value.Index] || c.IsNativeType(i.TargetType))
	case *ir.GetFieldInstruction:
		return mark(i.Receiver, c.IsNativeType(i.FieldType))
	case *ir.InvokeInstruction:
		return mark(i.Receiver, c.IsNativeType(i.Method.ReturnType))
	case *ir.ConstructInstruction:
		return mark(i.Receiver, c.IsStructure(i.Type))
	}
	return false
}
