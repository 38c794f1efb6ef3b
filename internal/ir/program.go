package ir

import "fmt"

// Program is the body of one method: an arena of basic blocks addressed by
// stable indices plus the pool of variables those blocks refer to.
// Block 0 is always the entry block.
type Program struct {
	blocks    []*BasicBlock
	variables []*Variable
}

// Variable is an index into the program's variable pool. It carries no type;
// types are inferred from defining instructions (see InferTypes).
type Variable struct {
	Index     int
	DebugName string
}

func (v *Variable) String() string {
	return fmt.Sprintf("@%d", v.Index)
}

// TextLocation points at the source line an instruction was compiled from
type TextLocation struct {
	FileName string
	Line     int
}

func (l *TextLocation) String() string {
	if l == nil {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d", l.FileName, l.Line)
}

// BasicBlock is a sequence of instructions terminated by exactly one
// control-transfer instruction, preceded by its phis.
type BasicBlock struct {
	Index          int
	Phis           []*Phi
	Instructions   []Instruction
	TryCatchBlocks []*TryCatchBlock

	// ExceptionVariable receives the caught exception when this block is a handler.
	ExceptionVariable *Variable
}

func (b *BasicBlock) String() string {
	return fmt.Sprintf("$%d", b.Index)
}

// Phi merges values arriving from different predecessors into Receiver
type Phi struct {
	Receiver  *Variable
	Incomings []*Incoming
}

// Incoming pairs a predecessor block with the value flowing from it
type Incoming struct {
	Source *BasicBlock
	Value  *Variable
}

// IncomingFrom returns the incoming edge from the given block, or nil
func (p *Phi) IncomingFrom(source *BasicBlock) *Incoming {
	for _, in := range p.Incomings {
		if in.Source == source {
			return in
		}
	}
	return nil
}

// TryCatchBlock is one handler scope active on entry to the owning block.
// An empty ExceptionType catches everything.
type TryCatchBlock struct {
	ExceptionType string
	Handler       *BasicBlock
	Joints        []*TryCatchJoint
}

// IsCatchAll reports whether the handler has no exception class filter
func (tc *TryCatchBlock) IsCatchAll() bool {
	return tc.ExceptionType == ""
}

// TryCatchJoint re-materializes Receiver at the handler from whichever of the
// source variables holds the current definition at the faulting point.
type TryCatchJoint struct {
	Receiver        *Variable
	SourceVariables []*Variable
}

// NewProgram creates an empty program
func NewProgram() *Program {
	return &Program{}
}

// CreateBlock appends a new empty block to the arena
func (p *Program) CreateBlock() *BasicBlock {
	b := &BasicBlock{Index: len(p.blocks)}
	p.blocks = append(p.blocks, b)
	return b
}

// CreateVariable appends a fresh variable to the pool
func (p *Program) CreateVariable() *Variable {
	v := &Variable{Index: len(p.variables)}
	p.variables = append(p.variables, v)
	return v
}

// EnsureVariables grows the pool so that indices below n are valid
func (p *Program) EnsureVariables(n int) {
	for len(p.variables) < n {
		p.CreateVariable()
	}
}

// BlockAt returns the block with the given index
func (p *Program) BlockAt(index int) *BasicBlock {
	return p.blocks[index]
}

// VariableAt returns the variable with the given index
func (p *Program) VariableAt(index int) *Variable {
	return p.variables[index]
}

// BlockCount returns the number of blocks in the arena
func (p *Program) BlockCount() int { return len(p.blocks) }

// VariableCount returns the size of the variable pool
func (p *Program) VariableCount() int { return len(p.variables) }

// Blocks returns the blocks in index order
func (p *Program) Blocks() []*BasicBlock {
	return p.blocks
}

// Entry returns block 0, or nil for an empty program
func (p *Program) Entry() *BasicBlock {
	if len(p.blocks) == 0 {
		return nil
	}
	return p.blocks[0]
}

// Terminator returns the last instruction if it transfers control, else nil
func (b *BasicBlock) Terminator() Instruction {
	if len(b.Instructions) == 0 {
		return nil
	}
	last := b.Instructions[len(b.Instructions)-1]
	if IsTerminator(last) {
		return last
	}
	return nil
}

// Add appends instructions to the end of the block
func (b *BasicBlock) Add(insns ...Instruction) {
	b.Instructions = append(b.Instructions, insns...)
}

// InsertAt inserts instructions before position index
func (b *BasicBlock) InsertAt(index int, insns ...Instruction) {
	if len(insns) == 0 {
		return
	}
	rest := append([]Instruction(nil), b.Instructions[index:]...)
	b.Instructions = append(append(b.Instructions[:index], insns...), rest...)
}

// InsertBeforeTerminator inserts instructions right before the terminator
func (b *BasicBlock) InsertBeforeTerminator(insns ...Instruction) {
	index := len(b.Instructions)
	if b.Terminator() != nil {
		index--
	}
	b.InsertAt(index, insns...)
}

// AddPhi appends a phi to the block
func (b *BasicBlock) AddPhi(phi *Phi) {
	b.Phis = append(b.Phis, phi)
}

// CopyTryCatchBlocks gives target the same handler scopes as b. Handler phis
// that receive a value from b receive the same value from target.
func (b *BasicBlock) CopyTryCatchBlocks(target *BasicBlock) {
	target.TryCatchBlocks = nil
	for _, handler := range ExceptionalSuccessors(b) {
		for _, phi := range handler.Phis {
			if in := phi.IncomingFrom(b); in != nil && phi.IncomingFrom(target) == nil {
				phi.Incomings = append(phi.Incomings, &Incoming{Source: target, Value: in.Value})
			}
		}
	}
	for _, tc := range b.TryCatchBlocks {
		copied := &TryCatchBlock{ExceptionType: tc.ExceptionType, Handler: tc.Handler}
		for _, joint := range tc.Joints {
			copied.Joints = append(copied.Joints, &TryCatchJoint{
				Receiver:        joint.Receiver,
				SourceVariables: append([]*Variable(nil), joint.SourceVariables...),
			})
		}
		target.TryCatchBlocks = append(target.TryCatchBlocks, copied)
	}
}
