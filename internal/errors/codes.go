package errors

// Error codes for the lowering toolchain
// These codes are used in error messages and documentation
// to provide consistent error identification across the toolchain.
//
// Error code ranges:
// L0001-L0099: Textual IR loading errors
// L0100-L0199: Structural IR errors
// L0200-L0299: Lowering pass errors
// W0001-W0099: Warnings

const (
	// L0001: Syntax errors reported by the IR grammar
	ErrorSyntax = "L0001"

	// L0002: Jump, phi or handler refers to a block label that does not exist
	ErrorUnknownBlock = "L0002"

	// L0003: Two blocks share one label
	ErrorDuplicateBlock = "L0003"

	// L0004: Unknown operator, condition or element kind
	ErrorUnknownOperator = "L0004"

	// L0005: Constant literal does not fit its declared kind
	ErrorInvalidConstant = "L0005"

	// L0006: Class or method trait is not recognised
	ErrorUnknownTrait = "L0006"

	// L0007: Class declared twice
	ErrorDuplicateClass = "L0007"

	// L0008: Variable index outside what the method can address
	ErrorUnknownVariable = "L0008"

	// L0100: The verifier rejected a method body
	ErrorMalformedIR = "L0100"

	// L0200: A lowering pass failed on a method
	ErrorPassFailure = "L0200"

	// W0001: Method body belongs to a class the unit does not declare
	WarningUnknownClass = "W0001"
)

// GetErrorDescription returns a human-readable description of the error code
func GetErrorDescription(code string) string {
	switch code {
	case ErrorSyntax:
		return "Textual IR does not follow the grammar"
	case ErrorUnknownBlock:
		return "Reference to a block label that is not defined in the method"
	case ErrorDuplicateBlock:
		return "Block label defined more than once"
	case ErrorUnknownOperator:
		return "Operator, condition or element kind is not recognised"
	case ErrorInvalidConstant:
		return "Constant literal is out of range for its kind"
	case ErrorUnknownTrait:
		return "Unsupported class or method trait"
	case ErrorDuplicateClass:
		return "Class declared more than once"
	case ErrorUnknownVariable:
		return "Variable is not valid in this method"
	case ErrorMalformedIR:
		return "Method body violates a structural invariant"
	case ErrorPassFailure:
		return "A lowering pass could not transform the method"
	case WarningUnknownClass:
		return "Class is unknown and treated conservatively as managed"
	default:
		return "Unknown error code"
	}
}

// IsWarning returns true if the error code represents a warning rather than an error
func IsWarning(code string) bool {
	return len(code) > 0 && code[0] == 'W'
}

// GetErrorCategory returns the category of the error based on its code
func GetErrorCategory(code string) string {
	switch {
	case IsWarning(code):
		return "Warning"
	case code >= "L0001" && code < "L0100":
		return "IR Loading"
	case code >= "L0100" && code < "L0200":
		return "IR Structure"
	case code >= "L0200" && code < "L0300":
		return "Lowering"
	default:
		return "Unknown"
	}
}
