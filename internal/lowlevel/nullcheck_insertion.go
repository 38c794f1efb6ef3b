package lowlevel

import (
	"github.com/tliron/commonlog"

	"gclower/internal/ir"
)

var nullCheckLog = commonlog.GetLogger("lowlevel.nullchecks")

// NullCheckInsertion puts an explicit null check in front of every
// instruction that dereferences a reference. The dereferencing instruction is
// rewritten to use the checked copy. Accesses to structures and calls to
// unmanaged code are left alone, as are values known to be non-null.
type NullCheckInsertion struct {
	characteristics *Characteristics
}

// NewNullCheckInsertion creates the pass
func NewNullCheckInsertion(c *Characteristics) *NullCheckInsertion {
	return &NullCheckInsertion{characteristics: c}
}

// Name returns the pass name
func (n *NullCheckInsertion) Name() string { return "nullcheck-insertion" }

// Description returns a one-line summary of the pass
func (n *NullCheckInsertion) Description() string {
	return "Inserts explicit null checks before dereferencing instructions"
}

// Apply inserts the checks and reports whether any were added
func (n *NullCheckInsertion) Apply(m *Method) (bool, error) {
	p := m.Program
	nonNull := n.knownNonNull(m)
	inserted := 0

	for _, b := range p.Blocks() {
		checked := make(map[*ir.Variable]*ir.Variable)
		result := make([]ir.Instruction, 0, len(b.Instructions))

		for _, insn := range b.Instructions {
			ir.MapUses(insn, func(v *ir.Variable) *ir.Variable {
				if c, ok := checked[v]; ok {
					return c
				}
				return v
			})

			if target := n.dereferenced(insn); target != nil && !nonNull[target] {
				copied := p.CreateVariable()
				check := &ir.NullCheckInstruction{Value: target, Receiver: copied}
				check.SetLocation(insn.GetLocation())
				result = append(result, check)

				checked[target] = copied
				nonNull[copied] = true
				ir.MapUses(insn, func(v *ir.Variable) *ir.Variable {
					if v == target {
						return copied
					}
					return v
				})
				inserted++
			}
			result = append(result, insn)
		}
		b.Instructions = result
	}
	if inserted > 0 {
		nullCheckLog.Debugf("%s: %d null checks", m.Reader.Reference, inserted)
	}
	return inserted > 0, nil
}

// dereferenced returns the variable insn dereferences, or nil
func (n *NullCheckInsertion) dereferenced(insn ir.Instruction) *ir.Variable {
	c := n.characteristics
	switch i := insn.(type) {
	case *ir.GetFieldInstruction:
		if i.Instance != nil && !c.IsStructure(i.Field.ClassName) {
			return i.Instance
		}
	case *ir.PutFieldInstruction:
		if i.Instance != nil && !c.IsStructure(i.Field.ClassName) {
			return i.Instance
		}
	case *ir.InvokeInstruction:
		if i.Instance == nil || c.IsStructure(i.Method.ClassName) || c.IsFunction(i.Method.ClassName) {
			return nil
		}
		if i.Type == ir.InvokeVirtual || c.IsManaged(i.Method) {
			return i.Instance
		}
	case *ir.ArrayLengthInstruction:
		return i.Array
	case *ir.CloneArrayInstruction:
		return i.Array
	case *ir.UnwrapArrayInstruction:
		return i.Array
	case *ir.MonitorEnterInstruction:
		return i.ObjectRef
	case *ir.MonitorExitInstruction:
		return i.ObjectRef
	case *ir.RaiseInstruction:
		return i.Exception
	}
	return nil
}

// knownNonNull collects variables that can never hold null: the receiver of
// an instance method, fresh allocations, literals and checked copies.
func (n *NullCheckInsertion) knownNonNull(m *Method) map[*ir.Variable]bool {
	p := m.Program
	result := make(map[*ir.Variable]bool)
	if !m.Reader.IsStatic() && p.VariableCount() > 0 {
		result[p.VariableAt(0)] = true
	}
	for _, b := range p.Blocks() {
		if b.ExceptionVariable != nil {
			result[b.ExceptionVariable] = true
		}
		for _, insn := range b.Instructions {
			switch i := insn.(type) {
			case *ir.ConstructInstruction:
				result[i.Receiver] = true
			case *ir.ConstructArrayInstruction:
				result[i.Receiver] = true
			case *ir.CloneArrayInstruction:
				result[i.Receiver] = true
			case *ir.StringConstantInstruction:
				result[i.Receiver] = true
			case *ir.ClassConstantInstruction:
				result[i.Receiver] = true
			case *ir.NullCheckInstruction:
				result[i.Receiver] = true
			}
		}
	}
	return result
}
