package parser

import (
	"strconv"

	"gclower/grammar"
	"gclower/internal/errors"
	"gclower/internal/ir"
	"gclower/internal/types"
)

// maxVariables bounds variable indices so a typo cannot allocate a huge pool
const maxVariables = 1 << 16

type bodyBuilder struct {
	l       *loader
	method  *types.MethodReader
	program *ir.Program
	blocks  map[string]*ir.BasicBlock
	labels  []string
	pos     errors.Position
	failed  bool
}

func newBodyBuilder(l *loader, method *types.MethodReader) *bodyBuilder {
	return &bodyBuilder{
		l:       l,
		method:  method,
		program: ir.NewProgram(),
		blocks:  make(map[string]*ir.BasicBlock),
	}
}

func (b *bodyBuilder) fail(err errors.CompilerError) {
	b.failed = true
	b.l.fail(err)
}

func (b *bodyBuilder) build(decls []*grammar.Block) *ir.Program {
	// Variable 0 is the receiver slot, parameters follow.
	b.program.EnsureVariables(b.method.Reference.ParameterCount() + 1)

	for _, decl := range decls {
		if _, exists := b.blocks[decl.Label]; exists {
			b.fail(errors.DuplicateBlock(decl.Label, position(decl.Pos)))
			continue
		}
		b.blocks[decl.Label] = b.program.CreateBlock()
		b.labels = append(b.labels, decl.Label)
	}

	for _, decl := range decls {
		block := b.blocks[decl.Label]
		b.pos = position(decl.Pos)
		if decl.Exception != "" {
			block.ExceptionVariable = b.variable(decl.Exception)
		}
		for _, tc := range decl.TryCatches {
			b.pos = position(tc.Pos)
			block.TryCatchBlocks = append(block.TryCatchBlocks, b.tryCatch(tc))
		}
		for _, stmt := range decl.Statements {
			b.pos = position(stmt.Pos)
			b.statement(block, stmt)
		}
	}

	if b.failed {
		return nil
	}
	return b.program
}

func (b *bodyBuilder) block(label string) *ir.BasicBlock {
	block, ok := b.blocks[label]
	if !ok {
		b.fail(errors.UnknownBlock(label, b.pos, b.labels))
		return nil
	}
	return block
}

func (b *bodyBuilder) variable(name string) *ir.Variable {
	if name == "" {
		return nil
	}
	index, err := strconv.Atoi(name[1:])
	if err != nil || index >= maxVariables {
		b.fail(errors.UnknownVariable(name, b.pos))
		return nil
	}
	b.program.EnsureVariables(index + 1)
	return b.program.VariableAt(index)
}

func (b *bodyBuilder) variables(names []string) []*ir.Variable {
	vars := make([]*ir.Variable, len(names))
	for i, name := range names {
		vars[i] = b.variable(name)
	}
	return vars
}

func (b *bodyBuilder) tryCatch(decl *grammar.TryCatch) *ir.TryCatchBlock {
	tc := &ir.TryCatchBlock{Handler: b.block(decl.Handler)}
	if decl.ExceptionType != "*" {
		tc.ExceptionType = decl.ExceptionType
	}
	for _, joint := range decl.Joints {
		tc.Joints = append(tc.Joints, &ir.TryCatchJoint{
			Receiver:        b.variable(joint.Receiver),
			SourceVariables: b.variables(joint.Sources),
		})
	}
	return tc
}

func (b *bodyBuilder) statement(block *ir.BasicBlock, stmt *grammar.Statement) {
	receiver := b.variable(stmt.Receiver)

	if stmt.Phi != nil {
		if receiver == nil {
			b.fail(errors.UnknownVariable("phi without receiver", b.pos))
			return
		}
		phi := &ir.Phi{Receiver: receiver}
		for _, in := range stmt.Phi.Incomings {
			phi.Incomings = append(phi.Incomings, &ir.Incoming{
				Source: b.block(in.Source),
				Value:  b.variable(in.Value),
			})
		}
		block.AddPhi(phi)
		return
	}

	insn := b.operation(stmt.Op, receiver)
	if insn == nil {
		return
	}
	if stmt.Location != nil {
		insn.SetLocation(&ir.TextLocation{FileName: stmt.Location.File, Line: stmt.Location.Line})
	}
	_, isInvoke := insn.(*ir.InvokeInstruction)
	switch {
	case receiver == nil && producesValue(insn):
		b.fail(errors.UnknownVariable("missing receiver for "+ir.PrintInstruction(insn), b.pos))
		return
	case receiver != nil && !producesValue(insn) && !isInvoke:
		b.fail(errors.UnknownVariable(stmt.Receiver+" assigned by an instruction without result", b.pos))
		return
	}
	block.Add(insn)
}

// producesValue reports whether insn is meaningless without a receiver
func producesValue(insn ir.Instruction) bool {
	switch insn.(type) {
	case *ir.EmptyInstruction, *ir.InvokeInstruction, *ir.PutFieldInstruction, *ir.PutElementInstruction,
		*ir.InitClassInstruction, *ir.MonitorEnterInstruction, *ir.MonitorExitInstruction:
		return false
	}
	return !ir.IsTerminator(insn)
}
