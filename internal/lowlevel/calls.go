package lowlevel

import (
	"gclower/internal/ir"
	"gclower/internal/types"
)

// IsCallInstruction reports whether insn may transitively allocate, collect
// or throw in managed code: object and array construction, class
// initialization, array cloning and invocation of a managed method.
// Exception lowering instruments exactly these instructions.
func IsCallInstruction(c *Characteristics, insn ir.Instruction) bool {
	switch i := insn.(type) {
	case *ir.ConstructInstruction, *ir.ConstructArrayInstruction,
		*ir.InitClassInstruction, *ir.CloneArrayInstruction:
		return true
	case *ir.InvokeInstruction:
		return c.IsManaged(i.Method)
	}
	return false
}

// isGCCallSite extends IsCallInstruction with raise, which allocates the
// unwinding state in the runtime.
func isGCCallSite(c *Characteristics, insn ir.Instruction) bool {
	if _, ok := insn.(*ir.RaiseInstruction); ok {
		return true
	}
	return IsCallInstruction(c, insn)
}

func invokeRuntime(method types.MethodReference, receiver *ir.Variable, args ...*ir.Variable) *ir.InvokeInstruction {
	return &ir.InvokeInstruction{
		Type:      ir.InvokeSpecial,
		Method:    method,
		Arguments: args,
		Receiver:  receiver,
	}
}

func intConstant(p *ir.Program, value int) (*ir.Variable, *ir.IntegerConstantInstruction) {
	v := p.CreateVariable()
	return v, &ir.IntegerConstantInstruction{Receiver: v, Constant: int32(value)}
}

func locate(loc *ir.TextLocation, insns ...ir.Instruction) []ir.Instruction {
	for _, insn := range insns {
		insn.SetLocation(loc)
	}
	return insns
}

// createFakeReturn appends a block that returns a zero value of the method's
// return type. Control never reaches it at run time; it keeps every path of
// the lowered program terminated.
func createFakeReturn(p *ir.Program, returnType types.ValueType) *ir.BasicBlock {
	block := p.CreateBlock()
	exit := &ir.ExitInstruction{}

	switch t := returnType.(type) {
	case *types.Void, nil:
	case *types.Primitive:
		v := p.CreateVariable()
		switch t.Kind {
		case types.Long:
			block.Add(&ir.LongConstantInstruction{Receiver: v})
		case types.Float:
			block.Add(&ir.FloatConstantInstruction{Receiver: v})
		case types.Double:
			block.Add(&ir.DoubleConstantInstruction{Receiver: v})
		default:
			block.Add(&ir.IntegerConstantInstruction{Receiver: v})
		}
		exit.ValueToReturn = v
	default:
		v := p.CreateVariable()
		block.Add(&ir.NullConstantInstruction{Receiver: v})
		exit.ValueToReturn = v
	}

	block.Add(exit)
	return block
}
