package errors

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorReporter(t *testing.T) {
	source := `method A#m(): void {
$0:
  jump $7
}`

	reporter := NewErrorReporter("test.ir", source)

	err := UnknownBlock("$7", Position{Filename: "test.ir", Line: 3, Column: 8}, []string{"$0", "$1"})
	formatted := reporter.FormatError(err)

	assert.Contains(t, formatted, "error["+ErrorUnknownBlock+"]")
	assert.Contains(t, formatted, "block $7 is not defined")
	assert.Contains(t, formatted, "test.ir:3:8 in A#m(): void, block $0")
	assert.Contains(t, formatted, "jump $7")
	assert.Contains(t, formatted, "$0:", "the enclosing block header is shown")
	assert.Contains(t, formatted, "did you mean")
}

func TestUnknownBlockSuggestions(t *testing.T) {
	pos := Position{Line: 1, Column: 5}

	err := UnknownBlock("$12", pos, []string{"$1", "$2", "$40"})
	assert.Equal(t, ErrorUnknownBlock, err.Code)
	assert.Len(t, err.Suggestions, 1)
	assert.Contains(t, err.Suggestions[0], "did you mean one of")

	err = UnknownBlock("$12", pos, nil)
	assert.Empty(t, err.Suggestions)
}

func TestUnknownOperatorError(t *testing.T) {
	err := UnknownOperator("binary operation", "ad", Position{Line: 2, Column: 3}, []string{"add", "sub"})
	assert.Equal(t, ErrorUnknownOperator, err.Code)
	assert.Contains(t, err.Message, "'ad'")
	assert.Contains(t, err.Suggestions[0], "did you mean")
	assert.Contains(t, err.Notes[0], "add, sub")
}

func TestPassFailureFormatting(t *testing.T) {
	reporter := NewErrorReporter("test.ir", "")
	err := PassFailure("A#m(): void", "exception-handling", errors.New("block $3 has no terminator"))

	formatted := reporter.FormatError(err)
	assert.Contains(t, formatted, "error[L0200]")
	assert.Contains(t, formatted, "failed in exception-handling")
	assert.Contains(t, formatted, "block $3 has no terminator")
	assert.Contains(t, formatted, " in A#m(): void")
	assert.NotContains(t, formatted, "test.ir:")
}

func TestPositionContext(t *testing.T) {
	source := "method A#m(A): A static {\n$0:\n  jump $1\n$1:\n  @2 := new A\n  return @2\n}"
	reporter := NewErrorReporter("a.ir", source)

	pos := reporter.resolve(Position{Line: 6, Column: 3})
	assert.Equal(t, "A#m(A): A static", pos.Method)
	assert.Equal(t, "$1", pos.Block)
	assert.Equal(t, "A#m(A): A static, block $1", pos.Context())
	assert.Equal(t, 4, reporter.blockHeaderLine(6))

	pos = reporter.resolve(Position{Line: 1, Column: 1, Method: "A#m(A): A"})
	assert.Equal(t, "A#m(A): A", pos.Method, "known context is kept")
	assert.Empty(t, pos.Block)
	assert.Equal(t, 0, reporter.blockHeaderLine(1))

	assert.True(t, isBlockLabel("$12:"))
	assert.False(t, isBlockLabel("$x:"))
	assert.False(t, isBlockLabel("$:"))
}

func TestWarningFormatting(t *testing.T) {
	source := `method Missing#m(): void {`
	reporter := NewErrorReporter("test.ir", source)

	err := UnknownClass("Missing", Position{Line: 1, Column: 8})
	formatted := reporter.FormatError(err)

	assert.Contains(t, formatted, "warning[W0001]")
	assert.Contains(t, formatted, "treated as managed")
	assert.True(t, IsWarning(err.Code))
}

func TestCompilerErrorImplementsError(t *testing.T) {
	var err error = SyntaxError("unexpected token", Position{Filename: "a.ir", Line: 4, Column: 2})
	assert.Equal(t, "a.ir:4:2: error[L0001]: unexpected token", err.Error())

	var ce CompilerError
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, "IR Loading", GetErrorCategory(ce.Code))
}

func TestErrorMarkerCreation(t *testing.T) {
	underline := marker(8, 3, levelStyles[Error])

	assert.True(t, strings.HasPrefix(underline, strings.Repeat(" ", 7)+"^") ||
		strings.HasPrefix(underline, strings.Repeat(" ", 7)+"\x1b"))
	assert.Equal(t, 3, strings.Count(underline, "^"))
	assert.Equal(t, 1, strings.Count(marker(1, 0, levelStyles[Note]), "^"), "empty spans get one caret")
}
