package lowlevel

import (
	"github.com/tliron/commonlog"

	"gclower/internal/ir"
	"gclower/internal/types"
)

var shadowStackLog = commonlog.GetLogger("lowlevel.shadowstack")

// ShadowStackTransformer runs GC root maintenance and then exception
// lowering on a method. When either needs the shadow stack, the method
// allocates its frame on entry and releases it at a single unified exit.
type ShadowStackTransformer struct {
	gc         *GCShadowStackContributor
	exceptions *ExceptionHandlingContributor
}

// NewShadowStackTransformer creates the transformer
func NewShadowStackTransformer(c *Characteristics, callSites *CallSiteRegistry, roots RootRuntime) *ShadowStackTransformer {
	return &ShadowStackTransformer{
		gc:         NewGCShadowStackContributor(c, roots),
		exceptions: NewExceptionHandlingContributor(c, callSites),
	}
}

// Name returns the pass name
func (t *ShadowStackTransformer) Name() string { return "shadow-stack" }

// Description returns a one-line summary of the pass
func (t *ShadowStackTransformer) Description() string {
	return "Registers GC roots, lowers exception handling and brackets the method with a shadow-stack frame"
}

// Apply transforms the method and reports whether a frame was added
func (t *ShadowStackTransformer) Apply(m *Method) (bool, error) {
	if m.Program.BlockCount() == 0 {
		return false, nil
	}

	slots := t.gc.Contribute(m)
	exceptions := t.exceptions.Contribute(m)
	if slots == 0 && !exceptions {
		return false, nil
	}

	addStackAllocation(m.Program, slots)
	addStackRelease(m.Program, m.Reader.Reference.ReturnType, slots)
	shadowStackLog.Debugf("%s: frame of %d slots", m.Reader.Reference, slots)
	return true, nil
}

// addStackAllocation calls allocStack at the start of the entry block. An
// entry block that is also a loop header is moved out of the way first so
// the allocation runs once.
func addStackAllocation(p *ir.Program, slots int) {
	entry := normalizeEntry(p)
	size, constant := intConstant(p, slots)
	entry.InsertAt(0, constant, invokeRuntime(AllocStackMethod, nil, size))
}

func normalizeEntry(p *ir.Program) *ir.BasicBlock {
	entry := p.Entry()
	if len(ir.Predecessors(p)[entry.Index]) == 0 {
		return entry
	}

	body := p.CreateBlock()
	body.Phis, entry.Phis = entry.Phis, nil
	body.Instructions, entry.Instructions = entry.Instructions, nil
	body.TryCatchBlocks, entry.TryCatchBlocks = entry.TryCatchBlocks, nil
	body.ExceptionVariable, entry.ExceptionVariable = entry.ExceptionVariable, nil

	for _, b := range p.Blocks() {
		if term := b.Terminator(); term != nil {
			ir.ReplaceTarget(term, entry, body)
		}
		ir.RedirectIncomings(b, entry, body)
		for _, tc := range b.TryCatchBlocks {
			if tc.Handler == entry {
				tc.Handler = body
			}
		}
	}

	entry.Add(&ir.JumpInstruction{Target: body})
	return entry
}

// addStackRelease routes every exit of the method through one block that
// calls releaseStack before returning
func addStackRelease(p *ir.Program, returnType types.ValueType, slots int) {
	var exits []*ir.BasicBlock
	for _, b := range p.Blocks() {
		if _, ok := b.Terminator().(*ir.ExitInstruction); ok {
			exits = append(exits, b)
		}
	}
	if len(exits) == 0 {
		return
	}

	exitBlock := exits[0]
	if len(exits) > 1 {
		exitBlock = p.CreateBlock()
		var result *ir.Phi
		if _, isVoid := returnType.(*types.Void); !isVoid && returnType != nil {
			result = &ir.Phi{Receiver: p.CreateVariable()}
			exitBlock.AddPhi(result)
		}

		for _, b := range exits {
			exit := b.Terminator().(*ir.ExitInstruction)
			if result != nil && exit.ValueToReturn != nil {
				result.Incomings = append(result.Incomings, &ir.Incoming{Source: b, Value: exit.ValueToReturn})
			}
			b.Instructions[len(b.Instructions)-1] = locate(exit.GetLocation(), &ir.JumpInstruction{Target: exitBlock})[0]
		}

		exit := &ir.ExitInstruction{}
		if result != nil {
			exit.ValueToReturn = result.Receiver
		}
		exitBlock.Add(exit)
	}

	size, constant := intConstant(p, slots)
	exitBlock.InsertBeforeTerminator(constant, invokeRuntime(ReleaseStackMethod, nil, size))
}
