package ir

func lookupName(names []string, name string) (int, bool) {
	for i, n := range names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// ParseBinaryOperation maps a printed operation name back to its value
func ParseBinaryOperation(name string) (BinaryOperation, bool) {
	i, ok := lookupName(binaryOpNames[:], name)
	return BinaryOperation(i), ok
}

// ParseNumericOperandType maps a printed operand type back to its value
func ParseNumericOperandType(name string) (NumericOperandType, bool) {
	i, ok := lookupName(operandNames[:], name)
	return NumericOperandType(i), ok
}

// ParseBranchingCondition maps a printed single-operand condition back to its value
func ParseBranchingCondition(name string) (BranchingCondition, bool) {
	i, ok := lookupName(branchingNames[:], name)
	return BranchingCondition(i), ok
}

// ParseBinaryBranchingCondition maps a printed two-operand condition back to its value
func ParseBinaryBranchingCondition(name string) (BinaryBranchingCondition, bool) {
	i, ok := lookupName(binaryBranchingNames[:], name)
	return BinaryBranchingCondition(i), ok
}

// ParseArrayElementType maps a printed element kind back to its value
func ParseArrayElementType(name string) (ArrayElementType, bool) {
	i, ok := lookupName(elementNames[:], name)
	return ArrayElementType(i), ok
}

// Name lists used for diagnostics
var (
	BinaryOperationNames          = binaryOpNames[:]
	NumericOperandTypeNames       = operandNames[:]
	BranchingConditionNames       = branchingNames[:]
	BinaryBranchingConditionNames = binaryBranchingNames[:]
	ArrayElementTypeNames         = elementNames[:]
)
