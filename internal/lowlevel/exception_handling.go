package lowlevel

import (
	"github.com/tliron/commonlog"

	"gclower/internal/ir"
)

var ehLog = commonlog.GetLogger("lowlevel.exceptions")

// ExceptionHandlingContributor lowers structured exception handling into
// explicit dispatch after every call site. Each call site registers its id
// with the runtime before the call; afterwards the runtime reports either
// that id (no exception) or the id of the handler to run. Raise becomes a
// call to the runtime throw routine. Try/catch metadata is removed and
// handler joints become ordinary phis.
type ExceptionHandlingContributor struct {
	characteristics *Characteristics
	callSites       *CallSiteRegistry
}

// NewExceptionHandlingContributor creates the contributor
func NewExceptionHandlingContributor(c *Characteristics, callSites *CallSiteRegistry) *ExceptionHandlingContributor {
	return &ExceptionHandlingContributor{characteristics: c, callSites: callSites}
}

// Contribute lowers the method and reports whether any call site was
// instrumented
func (e *ExceptionHandlingContributor) Contribute(m *Method) bool {
	p := m.Program
	if p.BlockCount() == 0 {
		return false
	}

	l := &ehLowering{
		contributor: e,
		method:      m,
		program:     p,
		dom:         ir.ComputeDominators(p),
		definitions: ir.DefinitionSites(p),
		jointPhis:   make(map[jointKey]*ir.Phi),
	}

	handlers := l.captureExceptions()
	count := p.BlockCount()
	for i := 0; i < count; i++ {
		b := p.BlockAt(i)
		l.lowerBlock(b)
	}

	for _, b := range p.Blocks() {
		b.TryCatchBlocks = nil
	}
	l.pruneHandlerPhis(handlers)

	if l.callSites > 0 {
		ehLog.Debugf("%s: %d call sites", m.Reader.Reference, l.callSites)
	}
	return l.callSites > 0
}

type jointKey struct {
	handler  *ir.BasicBlock
	receiver *ir.Variable
}

type ehLowering struct {
	contributor *ExceptionHandlingContributor
	method      *Method
	program     *ir.Program
	dom         *ir.DominatorTree
	definitions []*ir.BasicBlock

	jointPhis map[jointKey]*ir.Phi
	uncaught  *ir.BasicBlock
	callSites int
}

// captureExceptions makes every handler fetch its exception from the runtime
// and returns the set of handler blocks
func (l *ehLowering) captureExceptions() map[*ir.BasicBlock]bool {
	handlers := make(map[*ir.BasicBlock]bool)
	for _, b := range l.program.Blocks() {
		for _, tc := range b.TryCatchBlocks {
			handlers[tc.Handler] = true
		}
	}
	for handler := range handlers {
		if handler.ExceptionVariable == nil {
			continue
		}
		handler.InsertAt(0, invokeRuntime(CatchExceptionMethod, handler.ExceptionVariable))
		handler.ExceptionVariable = nil
	}
	return handlers
}

func (l *ehLowering) uncaughtBlock() *ir.BasicBlock {
	if l.uncaught == nil {
		l.uncaught = createFakeReturn(l.program, l.method.Reader.Reference.ReturnType)
	}
	return l.uncaught
}

// lowerBlock instruments every call site of b, following the instructions
// into the continuation blocks it splits off
func (l *ehLowering) lowerBlock(b *ir.BasicBlock) {
	if b == l.uncaught {
		return
	}
	c := l.contributor.characteristics
	current := l.initialJointSources(b)

	block := b
	for i := 0; i < len(block.Instructions); i++ {
		insn := block.Instructions[i]
		if raise, ok := insn.(*ir.RaiseInstruction); ok {
			l.lowerRaise(block, i, raise, current)
			return
		}
		if IsCallInstruction(c, insn) {
			next := l.lowerCall(block, i, insn, current)
			l.updateJointSources(block, insn, current)
			block, i = next, -1
			continue
		}
		l.updateJointSources(block, insn, current)
	}
}

// initialJointSources picks for every joint the source holding the value on
// entry to b: among the sources defined outside b whose definition dominates
// b, the one defined last, i.e. deepest in the dominator tree
func (l *ehLowering) initialJointSources(b *ir.BasicBlock) map[*ir.Variable]*ir.Variable {
	current := make(map[*ir.Variable]*ir.Variable)
	for _, tc := range b.TryCatchBlocks {
		for _, joint := range tc.Joints {
			var best *ir.Variable
			for _, source := range joint.SourceVariables {
				site := l.definitions[source.Index]
				if site == b || (site != nil && !l.dom.Dominates(site.Index, b.Index)) {
					continue
				}
				if best == nil || l.definedBefore(best, source) {
					best = source
				}
			}
			if best != nil {
				current[joint.Receiver] = best
			}
		}
	}
	return current
}

// definedBefore reports whether the definition of x dominates that of y.
// Parameters are defined before everything.
func (l *ehLowering) definedBefore(x, y *ir.Variable) bool {
	xs, ys := l.definitions[x.Index], l.definitions[y.Index]
	switch {
	case ys == nil:
		return false
	case xs == nil:
		return true
	}
	if xs == ys {
		return definitionIndex(xs, x) < definitionIndex(ys, y)
	}
	return l.dom.Dominates(xs.Index, ys.Index)
}

// definitionIndex is the position of v's definition in b; phis and joint
// receivers come first
func definitionIndex(b *ir.BasicBlock, v *ir.Variable) int {
	for i, insn := range b.Instructions {
		if ir.Receiver(insn) == v {
			return i
		}
	}
	return -1
}

func (l *ehLowering) updateJointSources(b *ir.BasicBlock, insn ir.Instruction, current map[*ir.Variable]*ir.Variable) {
	receiver := ir.Receiver(insn)
	if receiver == nil {
		return
	}
	for _, tc := range b.TryCatchBlocks {
		for _, joint := range tc.Joints {
			for _, source := range joint.SourceVariables {
				if source == receiver {
					current[joint.Receiver] = receiver
				}
			}
		}
	}
}

// lowerCall instruments the call at index of b and returns the block holding
// the instructions that followed it
func (l *ehLowering) lowerCall(b *ir.BasicBlock, index int, call ir.Instruction, current map[*ir.Variable]*ir.Variable) *ir.BasicBlock {
	p := l.program
	loc := call.GetLocation()
	next := ir.SplitBlock(p, b, index+1)

	descriptor := l.newDescriptor(b, loc)
	id, idConstant := intConstant(p, descriptor.ID)
	b.InsertAt(index, locate(loc, idConstant, invokeRuntime(RegisterCallSiteMethod, nil, id))...)

	handlerID := p.CreateVariable()
	dispatch := &ir.SwitchInstruction{
		Condition: handlerID,
		Entries:   []*ir.SwitchTableEntry{{Condition: int32(descriptor.ID), Target: next}},
	}
	l.addHandlers(b, dispatch, descriptor, current)
	b.Add(locate(loc, invokeRuntime(GetExceptionHandlerIDMethod, handlerID), dispatch)...)
	return next
}

// lowerRaise replaces the raise at index of b by a call to the runtime throw
// routine. The normal continuation of that call is never taken.
func (l *ehLowering) lowerRaise(b *ir.BasicBlock, index int, raise *ir.RaiseInstruction, current map[*ir.Variable]*ir.Variable) {
	p := l.program
	loc := raise.GetLocation()
	b.Instructions = b.Instructions[:index]

	descriptor := l.newDescriptor(b, loc)
	id, idConstant := intConstant(p, descriptor.ID)
	handlerID := p.CreateVariable()
	dispatch := &ir.SwitchInstruction{
		Condition: handlerID,
		Entries:   []*ir.SwitchTableEntry{{Condition: int32(descriptor.ID), Target: l.uncaughtBlock()}},
	}
	l.addHandlers(b, dispatch, descriptor, current)
	b.Add(locate(loc,
		idConstant,
		invokeRuntime(RegisterCallSiteMethod, nil, id),
		invokeRuntime(ThrowExceptionMethod, nil, raise.Exception),
		invokeRuntime(GetExceptionHandlerIDMethod, handlerID),
		dispatch,
	)...)
}

// newDescriptor registers a call site protected by the handlers of b.
// Handlers after a catch-all can never run and get no id.
func (l *ehLowering) newDescriptor(b *ir.BasicBlock, loc *ir.TextLocation) *CallSiteDescriptor {
	registry := l.contributor.callSites
	ref := l.method.Reader.Reference
	location := CallSiteLocation{ClassName: ref.ClassName, MethodName: ref.Name, LineNumber: -1}
	if loc != nil {
		location.FileName = loc.FileName
		location.LineNumber = loc.Line
	}

	d := &CallSiteDescriptor{ID: registry.NewID(), Locations: []CallSiteLocation{location}}
	for _, tc := range b.TryCatchBlocks {
		d.Handlers = append(d.Handlers, ExceptionHandlerDescriptor{ID: registry.NewID(), ClassName: tc.ExceptionType})
		if tc.IsCatchAll() {
			break
		}
	}
	registry.Add(d)
	l.callSites++
	return d
}

// addHandlers adds one switch entry per handler of the descriptor and sets
// the default target: the catch-all handler when there is one, otherwise
// the block that leaves the method
func (l *ehLowering) addHandlers(b *ir.BasicBlock, dispatch *ir.SwitchInstruction, d *CallSiteDescriptor, current map[*ir.Variable]*ir.Variable) {
	for i, h := range d.Handlers {
		tc := b.TryCatchBlocks[i]
		dispatch.Entries = append(dispatch.Entries, &ir.SwitchTableEntry{Condition: int32(h.ID), Target: tc.Handler})
		l.connect(b, tc, current)
		if h.IsCatchAll() {
			dispatch.DefaultTarget = tc.Handler
		}
	}
	if dispatch.DefaultTarget == nil {
		dispatch.DefaultTarget = l.uncaughtBlock()
	}
}

// connect records that b now jumps to the handler of tc: joints gain an
// incoming from b with their current source. Ordinary handler phis already
// receive from b since splitting a block copies its handler incomings.
func (l *ehLowering) connect(b *ir.BasicBlock, tc *ir.TryCatchBlock, current map[*ir.Variable]*ir.Variable) {
	handler := tc.Handler
	for _, joint := range tc.Joints {
		source := current[joint.Receiver]
		if source == nil {
			continue
		}
		key := jointKey{handler: handler, receiver: joint.Receiver}
		phi, ok := l.jointPhis[key]
		if !ok {
			phi = &ir.Phi{Receiver: joint.Receiver}
			l.jointPhis[key] = phi
			handler.AddPhi(phi)
		}
		if phi.IncomingFrom(b) == nil {
			phi.Incomings = append(phi.Incomings, &ir.Incoming{Source: b, Value: source})
		}
	}
}

// pruneHandlerPhis drops phi incomings of handlers from blocks that no
// longer jump to them
func (l *ehLowering) pruneHandlerPhis(handlers map[*ir.BasicBlock]bool) {
	preds := ir.Predecessors(l.program)
	for handler := range handlers {
		isPred := make(map[*ir.BasicBlock]bool)
		for _, pred := range preds[handler.Index] {
			isPred[pred] = true
		}
		for _, phi := range handler.Phis {
			kept := phi.Incomings[:0]
			for _, in := range phi.Incomings {
				if isPred[in.Source] {
					kept = append(kept, in)
				}
			}
			phi.Incomings = kept
		}
	}
}
