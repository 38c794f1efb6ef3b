package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Printer renders programs in the textual IR understood by the grammar package
type Printer struct {
	indent int
	output strings.Builder
}

// NewPrinter creates a new IR printer
func NewPrinter() *Printer {
	return &Printer{indent: 0}
}

// Print returns the textual form of a method body
func Print(program *Program) string {
	p := NewPrinter()
	p.PrintProgram(program)
	return p.output.String()
}

// PrintInstruction returns the textual form of a single instruction
func PrintInstruction(insn Instruction) string {
	p := NewPrinter()
	p.printInstruction(insn)
	return p.output.String()
}

// Indent increases the indentation of subsequent lines
func (p *Printer) Indent() { p.indent++ }

// Dedent decreases the indentation of subsequent lines
func (p *Printer) Dedent() { p.indent-- }

// String returns everything printed so far
func (p *Printer) String() string { return p.output.String() }

// Helper methods

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("  ")
	}
}

// WriteLine writes one indented line
func (p *Printer) WriteLine(format string, args ...interface{}) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) write(format string, args ...interface{}) {
	p.output.WriteString(fmt.Sprintf(format, args...))
}

// PrintProgram prints every block of a program
func (p *Printer) PrintProgram(program *Program) {
	for _, block := range program.Blocks() {
		p.printBasicBlock(block)
	}
}

func (p *Printer) printBasicBlock(block *BasicBlock) {
	p.WriteLine("%s:", block)
	p.indent++
	defer func() { p.indent-- }()

	if block.ExceptionVariable != nil {
		p.WriteLine("exception %s", block.ExceptionVariable)
	}
	for _, tc := range block.TryCatchBlocks {
		exceptionType := tc.ExceptionType
		if tc.IsCatchAll() {
			exceptionType = "*"
		}
		line := fmt.Sprintf("try %s => %s", exceptionType, tc.Handler)
		for _, joint := range tc.Joints {
			line += fmt.Sprintf(" joint %s (%s)", joint.Receiver, joinVariables(joint.SourceVariables))
		}
		p.WriteLine("%s", line)
	}
	for _, phi := range block.Phis {
		incomings := make([]string, len(phi.Incomings))
		for i, in := range phi.Incomings {
			incomings[i] = fmt.Sprintf("%s: %s", in.Source, in.Value)
		}
		p.WriteLine("%s := phi [%s]", phi.Receiver, strings.Join(incomings, ", "))
	}
	for _, insn := range block.Instructions {
		p.writeIndent()
		p.printInstruction(insn)
		p.output.WriteString("\n")
	}
}

func (p *Printer) printInstruction(insn Instruction) {
	if r := Receiver(insn); r != nil {
		p.write("%s := ", r)
	}

	switch i := insn.(type) {
	case *EmptyInstruction:
		p.write("nop")
	case *NullConstantInstruction:
		p.write("null")
	case *IntegerConstantInstruction:
		p.write("const int %d", i.Constant)
	case *LongConstantInstruction:
		p.write("const long %d", i.Constant)
	case *FloatConstantInstruction:
		p.write("const float %s", strconv.FormatFloat(float64(i.Constant), 'g', -1, 32))
	case *DoubleConstantInstruction:
		p.write("const double %s", strconv.FormatFloat(i.Constant, 'g', -1, 64))
	case *StringConstantInstruction:
		p.write("string %s", strconv.Quote(i.Constant))
	case *ClassConstantInstruction:
		p.write("class %s", i.Constant)
	case *BinaryInstruction:
		p.write("binary %s %s %s %s", i.Operation, i.OperandType, i.First, i.Second)
	case *AssignInstruction:
		p.write("%s", i.Assignee)
	case *CastInstruction:
		p.write("cast %s to %s", i.Value, i.TargetType)
	case *CastNumberInstruction:
		p.write("castnum %s from %s to %s", i.Value, i.SourceType, i.TargetType)
	case *IsInstanceInstruction:
		p.write("instanceof %s %s", i.Value, i.Type)
	case *JumpInstruction:
		p.write("jump %s", i.Target)
	case *BranchingInstruction:
		p.write("if %s %s then %s else %s", i.Operand, i.Condition, i.Consequent, i.Alternative)
	case *BinaryBranchingInstruction:
		p.write("ifcmp %s %s %s then %s else %s", i.First, i.Second, i.Condition, i.Consequent, i.Alternative)
	case *SwitchInstruction:
		entries := make([]string, len(i.Entries))
		for j, entry := range i.Entries {
			entries[j] = fmt.Sprintf("%d: %s", entry.Condition, entry.Target)
		}
		p.write("switch %s [%s] default %s", i.Condition, strings.Join(entries, ", "), i.DefaultTarget)
	case *ExitInstruction:
		if i.ValueToReturn != nil {
			p.write("return %s", i.ValueToReturn)
		} else {
			p.write("return")
		}
	case *RaiseInstruction:
		p.write("throw %s", i.Exception)
	case *ConstructInstruction:
		p.write("new %s", i.Type)
	case *ConstructArrayInstruction:
		p.write("newarray %s size %s", i.ItemType, i.Size)
	case *GetFieldInstruction:
		if i.Instance != nil {
			p.write("get %s %s as %s", i.Instance, i.Field, i.FieldType)
		} else {
			p.write("getstatic %s as %s", i.Field, i.FieldType)
		}
	case *PutFieldInstruction:
		if i.Instance != nil {
			p.write("put %s %s := %s as %s", i.Instance, i.Field, i.Value, i.FieldType)
		} else {
			p.write("putstatic %s := %s as %s", i.Field, i.Value, i.FieldType)
		}
	case *ArrayLengthInstruction:
		p.write("length %s", i.Array)
	case *CloneArrayInstruction:
		p.write("clone %s", i.Array)
	case *UnwrapArrayInstruction:
		p.write("unwrap %s as %s", i.Array, i.ElementType)
	case *GetElementInstruction:
		p.write("getelem %s[%s] as %s", i.Array, i.Index, i.Type)
	case *PutElementInstruction:
		p.write("putelem %s[%s] := %s as %s", i.Array, i.Index, i.Value, i.Type)
	case *InvokeInstruction:
		p.write("invoke %s %s", i.Type, i.Method)
		if i.Instance != nil {
			p.write(" on %s", i.Instance)
		}
		if len(i.Arguments) > 0 {
			p.write(" with %s", joinVariables(i.Arguments))
		}
	case *InitClassInstruction:
		p.write("initclass %s", i.ClassName)
	case *NullCheckInstruction:
		p.write("nullcheck %s", i.Value)
	case *BoundCheckInstruction:
		p.write("boundcheck %s", i.Index)
		if i.Lower {
			p.write(" lower")
		}
		if i.Array != nil {
			p.write(" upper %s", i.Array)
		}
	case *MonitorEnterInstruction:
		p.write("monitorenter %s", i.ObjectRef)
	case *MonitorExitInstruction:
		p.write("monitorexit %s", i.ObjectRef)
	default:
		p.write("<unknown %T>", insn)
	}

	if loc := insn.GetLocation(); loc != nil {
		p.write(" at %s %d", strconv.Quote(loc.FileName), loc.Line)
	}
}

func joinVariables(vars []*Variable) string {
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.String()
	}
	return strings.Join(names, ", ")
}
