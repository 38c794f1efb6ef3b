package lowlevel

import (
	"github.com/tliron/commonlog"

	"gclower/internal/ir"
	"gclower/internal/types"
)

var checkLog = commonlog.GetLogger("lowlevel.checks")

// CheckTransformation lowers null checks and bound checks into explicit
// branches. A failing check jumps to a block that calls the runtime fault
// routine; the passing path copies the checked value into the check's
// receiver and continues with the rest of the original block.
type CheckTransformation struct{}

// NewCheckTransformation creates the pass
func NewCheckTransformation() *CheckTransformation {
	return &CheckTransformation{}
}

// Name returns the pass name
func (t *CheckTransformation) Name() string { return "check-transformation" }

// Description returns a one-line summary of the pass
func (t *CheckTransformation) Description() string {
	return "Lowers null and bound checks into branches to runtime fault routines"
}

// Apply rewrites every check instruction. Running it again finds nothing to do.
func (t *CheckTransformation) Apply(m *Method) (bool, error) {
	lowering := &checkLowering{method: m, program: m.Program}

	// Blocks created by splitting are appended to the arena and visited later
	// in the same loop.
	for i := 0; i < m.Program.BlockCount(); i++ {
		lowering.lowerBlock(m.Program.BlockAt(i))
	}
	if lowering.lowered > 0 {
		checkLog.Debugf("%s: %d checks lowered", m.Reader.Reference, lowering.lowered)
	}
	return lowering.lowered > 0, nil
}

type checkLowering struct {
	method     *Method
	program    *ir.Program
	fakeReturn *ir.BasicBlock
	lowered    int
}

func (l *checkLowering) lowerBlock(b *ir.BasicBlock) {
	for i, insn := range b.Instructions {
		switch check := insn.(type) {
		case *ir.NullCheckInstruction:
			next := l.split(b, i)
			throwBlock := l.throwBlock(b, ThrowNullPointerMethod, check.GetLocation())
			b.Add(locate(check.GetLocation(), &ir.BranchingInstruction{
				Condition:   ir.CondNull,
				Operand:     check.Value,
				Consequent:  throwBlock,
				Alternative: next,
			})...)
			next.InsertAt(0, locate(check.GetLocation(),
				&ir.AssignInstruction{Assignee: check.Value, Receiver: check.Receiver})...)
			return

		case *ir.BoundCheckInstruction:
			next := l.split(b, i)
			l.lowerBoundCheck(b, next, check)
			next.InsertAt(0, locate(check.GetLocation(),
				&ir.AssignInstruction{Assignee: check.Index, Receiver: check.Receiver})...)
			return
		}
	}
}

// split removes the check at index from b and moves everything after it into
// a new continuation block
func (l *checkLowering) split(b *ir.BasicBlock, index int) *ir.BasicBlock {
	l.lowered++
	next := ir.SplitBlock(l.program, b, index+1)
	b.Instructions = b.Instructions[:index]
	return next
}

func (l *checkLowering) lowerBoundCheck(b, next *ir.BasicBlock, check *ir.BoundCheckInstruction) {
	loc := check.GetLocation()
	if !check.Lower && check.Array == nil {
		b.Add(locate(loc, &ir.JumpInstruction{Target: next})...)
		return
	}

	var throwBlock *ir.BasicBlock
	failure := func() *ir.BasicBlock {
		if throwBlock == nil {
			throwBlock = l.throwBlock(b, ThrowIndexOutOfBoundMethod, loc)
		}
		return throwBlock
	}

	current := b
	if check.Lower {
		if check.Array == nil {
			b.Add(locate(loc, &ir.BranchingInstruction{
				Condition:   ir.CondLess,
				Operand:     check.Index,
				Consequent:  failure(),
				Alternative: next,
			})...)
			return
		}
		upper := l.program.CreateBlock()
		b.CopyTryCatchBlocks(upper)
		b.Add(locate(loc, &ir.BranchingInstruction{
			Condition:   ir.CondLess,
			Operand:     check.Index,
			Consequent:  failure(),
			Alternative: upper,
		})...)
		current = upper
	}

	length := l.program.CreateVariable()
	cmp := l.program.CreateVariable()
	current.Add(locate(loc,
		&ir.ArrayLengthInstruction{Array: check.Array, Receiver: length},
		&ir.BinaryInstruction{
			Operation:   ir.OpCompare,
			OperandType: ir.OperandInt,
			First:       check.Index,
			Second:      length,
			Receiver:    cmp,
		},
		&ir.BranchingInstruction{
			Condition:   ir.CondGreaterOrEqual,
			Operand:     cmp,
			Consequent:  failure(),
			Alternative: next,
		},
	)...)
}

// throwBlock creates a block that calls the fault routine under the same
// handlers as origin and then leaves through the shared fake return
func (l *checkLowering) throwBlock(origin *ir.BasicBlock, routine types.MethodReference, loc *ir.TextLocation) *ir.BasicBlock {
	if l.fakeReturn == nil {
		l.fakeReturn = createFakeReturn(l.program, l.method.Reader.Reference.ReturnType)
	}

	block := l.program.CreateBlock()
	origin.CopyTryCatchBlocks(block)
	block.Add(locate(loc,
		invokeRuntime(routine, nil),
		&ir.JumpInstruction{Target: l.fakeReturn},
	)...)
	return block
}
