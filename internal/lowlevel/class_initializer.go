package lowlevel

import (
	"github.com/tliron/commonlog"

	"gclower/internal/ir"
	"gclower/internal/types"
)

var clinitLog = commonlog.GetLogger("lowlevel.clinit")

// ClassInitializerEliminator removes class initialization that can never do
// anything: classes without a static initializer, eagerly initialized
// classes, structures, and classes already initialized on every path to the
// instruction (by a dominating initialization of the class or a subclass, or
// because the method itself belongs to a subclass).
type ClassInitializerEliminator struct {
	characteristics *Characteristics
}

// NewClassInitializerEliminator creates the pass
func NewClassInitializerEliminator(c *Characteristics) *ClassInitializerEliminator {
	return &ClassInitializerEliminator{characteristics: c}
}

// Name returns the pass name
func (e *ClassInitializerEliminator) Name() string { return "clinit-elimination" }

// Description returns a one-line summary of the pass
func (e *ClassInitializerEliminator) Description() string {
	return "Removes class initialization that is statically known to be redundant"
}

// Apply removes redundant initializations and reports whether any were removed
func (e *ClassInitializerEliminator) Apply(m *Method) (bool, error) {
	p := m.Program
	if p.BlockCount() == 0 {
		return false, nil
	}

	dom := ir.ComputeDominators(p)
	handlers := ir.ExceptionalEntries(p)
	owner := m.Reader.Reference.ClassName
	removed := 0

	type frame struct {
		block       int
		initialized []string
	}
	stack := []frame{{block: 0}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		b := p.BlockAt(top.block)

		initialized := append([]string(nil), top.initialized...)
		kept := b.Instructions[:0]
		for _, insn := range b.Instructions {
			init, ok := insn.(*ir.InitClassInstruction)
			if !ok {
				kept = append(kept, insn)
				continue
			}
			if e.isRedundant(init.ClassName, owner, initialized) {
				removed++
				continue
			}
			kept = append(kept, insn)
			initialized = append(initialized, init.ClassName)
		}
		b.Instructions = kept

		for _, child := range dom.Children(top.block) {
			// A handler may be entered from the middle of a protected block
			inherited := initialized
			if handlers[child] {
				inherited = top.initialized
			}
			stack = append(stack, frame{block: child, initialized: inherited})
		}
	}
	if removed > 0 {
		clinitLog.Debugf("%s: %d initializations removed", m.Reader.Reference, removed)
	}
	return removed > 0, nil
}

func (e *ClassInitializerEliminator) isRedundant(className, owner string, initialized []string) bool {
	c := e.characteristics
	if !c.HasClassInitializer(className) || c.IsStaticInit(className) || c.IsStructure(className) {
		return true
	}
	if c.IsSubclass(owner, className) {
		return true
	}
	for _, done := range initialized {
		if c.IsSubclass(done, className) {
			return true
		}
	}
	return false
}

// ClassInitializerTransformer guards every remaining class initialization
// with a runtime isInitialized query so the initializer runs at most once.
type ClassInitializerTransformer struct{}

// NewClassInitializerTransformer creates the pass
func NewClassInitializerTransformer() *ClassInitializerTransformer {
	return &ClassInitializerTransformer{}
}

// Name returns the pass name
func (t *ClassInitializerTransformer) Name() string { return "clinit-transformation" }

// Description returns a one-line summary of the pass
func (t *ClassInitializerTransformer) Description() string {
	return "Guards class initialization with an isInitialized branch"
}

// Apply lowers every InitClass instruction and reports whether any were found
func (t *ClassInitializerTransformer) Apply(m *Method) (bool, error) {
	p := m.Program
	guarded := make(map[*ir.BasicBlock]bool)

	for i := 0; i < p.BlockCount(); i++ {
		b := p.BlockAt(i)
		if guarded[b] {
			continue
		}
		for j, insn := range b.Instructions {
			init, ok := insn.(*ir.InitClassInstruction)
			if !ok {
				continue
			}
			guarded[t.guard(p, b, j, init)] = true
			break
		}
	}
	if len(guarded) > 0 {
		clinitLog.Debugf("%s: %d initializations guarded", m.Reader.Reference, len(guarded))
	}
	return len(guarded) > 0, nil
}

// guard splits b around the InitClass at index and returns the block that
// now performs the initialization
func (t *ClassInitializerTransformer) guard(p *ir.Program, b *ir.BasicBlock, index int, init *ir.InitClassInstruction) *ir.BasicBlock {
	loc := init.GetLocation()
	next := ir.SplitBlock(p, b, index+1)
	b.Instructions = b.Instructions[:index]

	initBlock := p.CreateBlock()
	b.CopyTryCatchBlocks(initBlock)
	initBlock.Add(init, locate(loc, &ir.JumpInstruction{Target: next})[0])

	class := p.CreateVariable()
	initialized := p.CreateVariable()
	b.Add(locate(loc,
		&ir.ClassConstantInstruction{Receiver: class, Constant: types.ObjectOf(init.ClassName)},
		invokeRuntime(IsInitializedMethod, initialized, class),
		&ir.BranchingInstruction{
			Condition:   ir.CondNotEqual,
			Operand:     initialized,
			Consequent:  next,
			Alternative: initBlock,
		},
	)...)
	return initBlock
}
