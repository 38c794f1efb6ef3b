package errors

import (
	"fmt"
	"strings"
)

// ErrorBuilder provides a fluent interface for creating errors with suggestions
type ErrorBuilder struct {
	err CompilerError
}

// NewError creates a new error builder
func NewError(code, message string, pos Position) *ErrorBuilder {
	return &ErrorBuilder{
		err: CompilerError{
			Level:    Error,
			Code:     code,
			Message:  message,
			Position: pos,
			Length:   1,
		},
	}
}

// NewWarning creates a new warning builder
func NewWarning(code, message string, pos Position) *ErrorBuilder {
	return &ErrorBuilder{
		err: CompilerError{
			Level:    Warning,
			Code:     code,
			Message:  message,
			Position: pos,
			Length:   1,
		},
	}
}

// WithLength sets the length of the error span
func (b *ErrorBuilder) WithLength(length int) *ErrorBuilder {
	b.err.Length = length
	return b
}

// WithSuggestion adds a suggestion to the error
func (b *ErrorBuilder) WithSuggestion(message string) *ErrorBuilder {
	b.err.Suggestions = append(b.err.Suggestions, message)
	return b
}

// WithNote adds a note to the error
func (b *ErrorBuilder) WithNote(note string) *ErrorBuilder {
	b.err.Notes = append(b.err.Notes, note)
	return b
}

// WithHelp adds help text to the error
func (b *ErrorBuilder) WithHelp(help string) *ErrorBuilder {
	b.err.HelpText = help
	return b
}

// Build returns the completed compiler error
func (b *ErrorBuilder) Build() CompilerError {
	return b.err
}

// SyntaxError wraps a grammar failure
func SyntaxError(message string, pos Position) CompilerError {
	return NewError(ErrorSyntax, message, pos).Build()
}

// UnknownBlock reports a reference to an undefined block label
func UnknownBlock(label string, pos Position, defined []string) CompilerError {
	builder := NewError(ErrorUnknownBlock, fmt.Sprintf("block %s is not defined in this method", label), pos).
		WithLength(len(label))
	builder = withSimilar(builder, label, defined)
	return builder.Build()
}

// DuplicateBlock reports a label defined twice
func DuplicateBlock(label string, pos Position) CompilerError {
	return NewError(ErrorDuplicateBlock, fmt.Sprintf("block %s is defined more than once", label), pos).
		WithLength(len(label)).
		WithHelp("block labels must be unique within a method").
		Build()
}

// UnknownOperator reports an unrecognised operator, condition or element kind
func UnknownOperator(kind, name string, pos Position, known []string) CompilerError {
	builder := NewError(ErrorUnknownOperator, fmt.Sprintf("unknown %s '%s'", kind, name), pos).
		WithLength(len(name))
	builder = withSimilar(builder, name, known)
	if len(known) > 0 {
		builder = builder.WithNote(fmt.Sprintf("expected one of: %s", strings.Join(known, ", ")))
	}
	return builder.Build()
}

// InvalidConstant reports a literal that cannot be represented
func InvalidConstant(kind, literal string, pos Position, cause error) CompilerError {
	return NewError(ErrorInvalidConstant, fmt.Sprintf("invalid %s constant '%s'", kind, literal), pos).
		WithLength(len(literal)).
		WithNote(cause.Error()).
		Build()
}

// UnknownTrait reports an unsupported class or method trait
func UnknownTrait(name string, pos Position) CompilerError {
	return NewError(ErrorUnknownTrait, fmt.Sprintf("unknown trait '%s'", name), pos).
		WithLength(len(name)).
		Build()
}

// DuplicateClass reports a class declared twice
func DuplicateClass(name string, pos Position) CompilerError {
	return NewError(ErrorDuplicateClass, fmt.Sprintf("class '%s' is declared more than once", name), pos).
		WithLength(len(name)).
		Build()
}

// UnknownVariable reports a variable index that is out of range
func UnknownVariable(name string, pos Position) CompilerError {
	return NewError(ErrorUnknownVariable, fmt.Sprintf("invalid variable %s", name), pos).
		WithLength(len(name)).
		Build()
}

// MalformedIR reports verifier findings for a method
func MalformedIR(method string, pos Position, findings []string) CompilerError {
	pos.Method = method
	builder := NewError(ErrorMalformedIR, fmt.Sprintf("method %s is malformed", method), pos)
	for _, finding := range findings {
		builder = builder.WithNote(finding)
	}
	return builder.Build()
}

// PassFailure reports a lowering pass that aborted on a method
func PassFailure(method, pass string, cause error) CompilerError {
	return NewError(ErrorPassFailure, fmt.Sprintf("compilation of %s failed in %s", method, pass), Position{Method: method}).
		WithNote(cause.Error()).
		WithHelp("the method is left unlowered; fix the input IR or the preceding pass").
		Build()
}

// UnknownClass warns about a method body whose owner class is not declared
func UnknownClass(name string, pos Position) CompilerError {
	return NewWarning(WarningUnknownClass, fmt.Sprintf("class '%s' is not declared", name), pos).
		WithLength(len(name)).
		WithNote("unknown classes are treated as managed and not structures").
		Build()
}

func withSimilar(builder *ErrorBuilder, name string, candidates []string) *ErrorBuilder {
	similar := findSimilarNames(name, candidates)
	switch len(similar) {
	case 0:
	case 1:
		builder = builder.WithSuggestion(fmt.Sprintf("did you mean '%s'?", similar[0]))
	default:
		builder = builder.WithSuggestion(fmt.Sprintf("did you mean one of: '%s'?", strings.Join(similar, "', '")))
	}
	return builder
}

func findSimilarNames(target string, candidates []string) []string {
	var similar []string

	for _, candidate := range candidates {
		if candidate != target && levenshteinDistance(target, candidate) <= 2 && len(candidate) > 1 {
			similar = append(similar, candidate)
		}
	}

	return similar
}

// Simple Levenshtein distance implementation for finding similar names
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
	}

	for i := 0; i <= len(a); i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}

			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(a)][len(b)]
}
