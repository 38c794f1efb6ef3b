package ir

import (
	"gclower/internal/types"
)

// Instruction is the closed set of IR instructions. Passes dispatch on the
// concrete type with a type switch; Uses, Receiver and Successors in uses.go
// are the exhaustive classifications every pass shares.
type Instruction interface {
	GetLocation() *TextLocation
	SetLocation(loc *TextLocation)
	isInstruction()
}

// Located carries the source location of an instruction
type Located struct {
	Location *TextLocation
}

func (l *Located) GetLocation() *TextLocation    { return l.Location }
func (l *Located) SetLocation(loc *TextLocation) { l.Location = loc }
func (*Located) isInstruction()                  {}

// NumericOperandType is the operand width of arithmetic instructions
type NumericOperandType int

const (
	OperandInt NumericOperandType = iota
	OperandLong
	OperandFloat
	OperandDouble
)

var operandNames = [...]string{"int", "long", "float", "double"}

func (t NumericOperandType) String() string { return operandNames[t] }

// BinaryOperation is the operator of a BinaryInstruction
type BinaryOperation int

const (
	OpAdd BinaryOperation = iota
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
	OpCompare // -1, 0 or 1
	OpAnd
	OpOr
	OpXor
	OpShiftLeft
	OpShiftRight
)

var binaryOpNames = [...]string{"add", "sub", "mul", "div", "mod", "compare", "and", "or", "xor", "shl", "shr"}

func (op BinaryOperation) String() string { return binaryOpNames[op] }

// BranchingCondition compares a single operand against zero or null
type BranchingCondition int

const (
	CondEqual BranchingCondition = iota
	CondNotEqual
	CondLess
	CondLessOrEqual
	CondGreater
	CondGreaterOrEqual
	CondNull
	CondNotNull
)

var branchingNames = [...]string{"eq", "ne", "lt", "le", "gt", "ge", "null", "notnull"}

func (c BranchingCondition) String() string { return branchingNames[c] }

// BinaryBranchingCondition compares two operands
type BinaryBranchingCondition int

const (
	CondBinaryEqual BinaryBranchingCondition = iota
	CondBinaryNotEqual
	CondReferenceEqual
	CondReferenceNotEqual
)

var binaryBranchingNames = [...]string{"eq", "ne", "refeq", "refne"}

func (c BinaryBranchingCondition) String() string { return binaryBranchingNames[c] }

// InvocationType distinguishes statically bound calls from virtual dispatch
type InvocationType int

const (
	InvokeSpecial InvocationType = iota
	InvokeVirtual
)

func (t InvocationType) String() string {
	if t == InvokeVirtual {
		return "virtual"
	}
	return "special"
}

// ArrayElementType is the storage kind of array elements after unwrapping
type ArrayElementType int

const (
	ElementByte ArrayElementType = iota
	ElementShort
	ElementChar
	ElementInt
	ElementLong
	ElementFloat
	ElementDouble
	ElementObject
)

var elementNames = [...]string{"byte", "short", "char", "int", "long", "float", "double", "object"}

func (t ArrayElementType) String() string { return elementNames[t] }

// Constants

type EmptyInstruction struct {
	Located
}

type NullConstantInstruction struct {
	Located
	Receiver *Variable
}

type IntegerConstantInstruction struct {
	Located
	Receiver *Variable
	Constant int32
}

type LongConstantInstruction struct {
	Located
	Receiver *Variable
	Constant int64
}

type FloatConstantInstruction struct {
	Located
	Receiver *Variable
	Constant float32
}

type DoubleConstantInstruction struct {
	Located
	Receiver *Variable
	Constant float64
}

type StringConstantInstruction struct {
	Located
	Receiver *Variable
	Constant string
}

type ClassConstantInstruction struct {
	Located
	Receiver *Variable
	Constant types.ValueType
}

// Arithmetic and copies

type BinaryInstruction struct {
	Located
	Operation   BinaryOperation
	OperandType NumericOperandType
	First       *Variable
	Second      *Variable
	Receiver    *Variable
}

type AssignInstruction struct {
	Located
	Assignee *Variable
	Receiver *Variable
}

// CastInstruction is a checked reference cast
type CastInstruction struct {
	Located
	Value      *Variable
	TargetType types.ValueType
	Receiver   *Variable
}

type CastNumberInstruction struct {
	Located
	Value      *Variable
	SourceType NumericOperandType
	TargetType NumericOperandType
	Receiver   *Variable
}

type IsInstanceInstruction struct {
	Located
	Value    *Variable
	Type     types.ValueType
	Receiver *Variable
}

// Control transfer

type JumpInstruction struct {
	Located
	Target *BasicBlock
}

type BranchingInstruction struct {
	Located
	Condition   BranchingCondition
	Operand     *Variable
	Consequent  *BasicBlock
	Alternative *BasicBlock
}

type BinaryBranchingInstruction struct {
	Located
	Condition   BinaryBranchingCondition
	First       *Variable
	Second      *Variable
	Consequent  *BasicBlock
	Alternative *BasicBlock
}

// SwitchTableEntry maps one integer value to a target block
type SwitchTableEntry struct {
	Condition int32
	Target    *BasicBlock
}

type SwitchInstruction struct {
	Located
	Condition     *Variable
	Entries       []*SwitchTableEntry
	DefaultTarget *BasicBlock
}

// ExitInstruction returns from the method; ValueToReturn is nil for void
type ExitInstruction struct {
	Located
	ValueToReturn *Variable
}

type RaiseInstruction struct {
	Located
	Exception *Variable
}

// Objects and arrays

type ConstructInstruction struct {
	Located
	Type     string
	Receiver *Variable
}

type ConstructArrayInstruction struct {
	Located
	ItemType types.ValueType
	Size     *Variable
	Receiver *Variable
}

// GetFieldInstruction reads a field; Instance is nil for static fields
type GetFieldInstruction struct {
	Located
	Instance  *Variable
	Field     types.FieldReference
	FieldType types.ValueType
	Receiver  *Variable
}

// PutFieldInstruction writes a field; Instance is nil for static fields
type PutFieldInstruction struct {
	Located
	Instance  *Variable
	Field     types.FieldReference
	Value     *Variable
	FieldType types.ValueType
}

type ArrayLengthInstruction struct {
	Located
	Array    *Variable
	Receiver *Variable
}

type CloneArrayInstruction struct {
	Located
	Array    *Variable
	Receiver *Variable
}

// UnwrapArrayInstruction yields the element storage of an array object
type UnwrapArrayInstruction struct {
	Located
	Array       *Variable
	ElementType ArrayElementType
	Receiver    *Variable
}

type GetElementInstruction struct {
	Located
	Array    *Variable
	Index    *Variable
	Type     ArrayElementType
	Receiver *Variable
}

type PutElementInstruction struct {
	Located
	Array *Variable
	Index *Variable
	Value *Variable
	Type  ArrayElementType
}

// InvokeInstruction calls Method; Instance is nil for static calls and
// Receiver is nil when the result is discarded or the method returns void.
type InvokeInstruction struct {
	Located
	Type      InvocationType
	Method    types.MethodReference
	Instance  *Variable
	Arguments []*Variable
	Receiver  *Variable
}

type InitClassInstruction struct {
	Located
	ClassName string
}

// Checks and synchronization

// NullCheckInstruction faults if Value is null and otherwise copies it to Receiver
type NullCheckInstruction struct {
	Located
	Value    *Variable
	Receiver *Variable
}

// BoundCheckInstruction faults if Index is out of range and otherwise copies it
// to Receiver. Array is nil when no upper bound is checked.
type BoundCheckInstruction struct {
	Located
	Index    *Variable
	Array    *Variable
	Lower    bool
	Receiver *Variable
}

type MonitorEnterInstruction struct {
	Located
	ObjectRef *Variable
}

type MonitorExitInstruction struct {
	Located
	ObjectRef *Variable
}
