package ir

import "gclower/internal/types"

// VariableType is the coarse storage kind of a variable as far as the
// lowering passes care: which values the collector has to see.
type VariableType int

const (
	TypeUnknown VariableType = iota
	TypeInt
	TypeLong
	TypeFloat
	TypeDouble
	TypeObject
	TypeArray
)

var variableTypeNames = [...]string{"unknown", "int", "long", "float", "double", "object", "array"}

func (t VariableType) String() string { return variableTypeNames[t] }

// IsReference reports whether a variable of this type may hold a heap
// reference. Unknown types count as references.
func (t VariableType) IsReference() bool {
	return t == TypeUnknown || t == TypeObject || t == TypeArray
}

// TypeOf maps a declared value type onto its variable type
func TypeOf(t types.ValueType) VariableType {
	switch vt := t.(type) {
	case *types.Primitive:
		switch vt.Kind {
		case types.Long:
			return TypeLong
		case types.Float:
			return TypeFloat
		case types.Double:
			return TypeDouble
		}
		return TypeInt
	case *types.Object:
		return TypeObject
	case *types.Array:
		return TypeArray
	}
	return TypeUnknown
}

func numericType(t NumericOperandType) VariableType {
	switch t {
	case OperandLong:
		return TypeLong
	case OperandFloat:
		return TypeFloat
	case OperandDouble:
		return TypeDouble
	}
	return TypeInt
}

func elementType(t ArrayElementType) VariableType {
	switch t {
	case ElementLong:
		return TypeLong
	case ElementFloat:
		return TypeFloat
	case ElementDouble:
		return TypeDouble
	case ElementObject:
		return TypeObject
	}
	return TypeInt
}

// InferTypes assigns a VariableType to every variable of p. Variable 0 is the
// receiver of an instance method and variables 1..n are its parameters.
// Copies, phis and joints take the type of their sources; the computation
// iterates until nothing changes.
func InferTypes(p *Program, method types.MethodReference, static bool) []VariableType {
	result := make([]VariableType, p.VariableCount())
	if len(result) > 0 && !static {
		result[0] = TypeObject
	}
	for i, param := range method.Params {
		if i+1 < len(result) {
			result[i+1] = TypeOf(param)
		}
	}

	set := func(v *Variable, t VariableType) bool {
		if v == nil || t == TypeUnknown || result[v.Index] != TypeUnknown {
			return false
		}
		result[v.Index] = t
		return true
	}

	changed := true
	for changed {
		changed = false
		for _, b := range p.Blocks() {
			if b.ExceptionVariable != nil && set(b.ExceptionVariable, TypeObject) {
				changed = true
			}
			for _, phi := range b.Phis {
				for _, in := range phi.Incomings {
					if set(phi.Receiver, result[in.Value.Index]) {
						changed = true
					}
				}
			}
			for _, tc := range b.TryCatchBlocks {
				for _, joint := range tc.Joints {
					for _, source := range joint.SourceVariables {
						if set(joint.Receiver, result[source.Index]) {
							changed = true
						}
					}
				}
			}
			for _, insn := range b.Instructions {
				if r := Receiver(insn); r != nil && set(r, instructionType(insn, result)) {
					changed = true
				}
			}
		}
	}
	return result
}

func instructionType(insn Instruction, known []VariableType) VariableType {
	switch i := insn.(type) {
	case *NullConstantInstruction, *StringConstantInstruction, *ClassConstantInstruction,
		*ConstructInstruction:
		return TypeObject
	case *IntegerConstantInstruction, *ArrayLengthInstruction, *IsInstanceInstruction,
		*BoundCheckInstruction:
		return TypeInt
	case *LongConstantInstruction:
		return TypeLong
	case *FloatConstantInstruction:
		return TypeFloat
	case *DoubleConstantInstruction:
		return TypeDouble
	case *BinaryInstruction:
		if i.Operation == OpCompare {
			return TypeInt
		}
		return numericType(i.OperandType)
	case *CastNumberInstruction:
		return numericType(i.TargetType)
	case *CastInstruction:
		return TypeOf(i.TargetType)
	case *AssignInstruction:
		return known[i.Assignee.Index]
	case *NullCheckInstruction:
		return known[i.Value.Index]
	case *ConstructArrayInstruction, *CloneArrayInstruction, *UnwrapArrayInstruction:
		return TypeArray
	case *GetFieldInstruction:
		return TypeOf(i.FieldType)
	case *GetElementInstruction:
		return elementType(i.Type)
	case *InvokeInstruction:
		return TypeOf(i.Method.ReturnType)
	}
	return TypeUnknown
}
