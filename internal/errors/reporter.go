package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// ErrorLevel represents the severity of an error
type ErrorLevel string

const (
	Error   ErrorLevel = "error"
	Warning ErrorLevel = "warning"
	Note    ErrorLevel = "note"
	Help    ErrorLevel = "help"
)

// Position is a location in a textual IR file. Method and Block name the
// enclosing method and block label; the reporter fills them in from the
// source when they are empty.
type Position struct {
	Filename string
	Line     int
	Column   int
	Method   string
	Block    string
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

// Context describes where in the program the position lies, e.g.
// "A#m(int): void, block $3"
func (p Position) Context() string {
	switch {
	case p.Method != "" && p.Block != "":
		return p.Method + ", block " + p.Block
	case p.Method != "":
		return p.Method
	}
	return ""
}

// CompilerError is a diagnostic produced while loading or lowering IR
type CompilerError struct {
	Level       ErrorLevel
	Code        string   // L0001...
	Message     string
	Position    Position // zero Line when the error has no source text
	Length      int      // width of the underlined span
	Suggestions []string
	Notes       []string
	HelpText    string
}

// Error renders the error on one line so CompilerError satisfies error
func (e CompilerError) Error() string {
	if e.Position.Line > 0 {
		return fmt.Sprintf("%s: %s[%s]: %s", e.Position, e.Level, e.Code, e.Message)
	}
	return fmt.Sprintf("%s[%s]: %s", e.Level, e.Code, e.Message)
}

var levelStyles = map[ErrorLevel]*color.Color{
	Error:   color.New(color.FgRed, color.Bold),
	Warning: color.New(color.FgYellow, color.Bold),
	Note:    color.New(color.FgBlue, color.Bold),
	Help:    color.New(color.FgGreen, color.Bold),
}

var (
	dim       = color.New(color.Faint).SprintFunc()
	bold      = color.New(color.Bold).SprintFunc()
	noteStyle = color.New(color.FgBlue).SprintFunc()
	helpStyle = color.New(color.FgCyan).SprintFunc()
)

// ErrorReporter renders diagnostics against the IR text they refer to
type ErrorReporter struct {
	filename string
	lines    []string
}

// NewErrorReporter creates a reporter for one IR file
func NewErrorReporter(filename, source string) *ErrorReporter {
	return &ErrorReporter{filename: filename, lines: strings.Split(source, "\n")}
}

// FormatError renders err with its location, the enclosing block header,
// the offending line underlined and any suggestions and notes
func (er *ErrorReporter) FormatError(err CompilerError) string {
	var out strings.Builder
	style, ok := levelStyles[err.Level]
	if !ok {
		style = levelStyles[Error]
	}
	fmt.Fprintf(&out, "%s[%s]: %s\n", style.Sprint(err.Level), err.Code, err.Message)

	pos := er.resolve(err.Position)
	gutter := strings.Repeat(" ", gutterWidth(pos.Line))
	if location := er.location(pos); location != "" {
		fmt.Fprintf(&out, "%s %s %s\n", gutter, dim("-->"), location)
	}
	if pos.Line > 0 && pos.Line <= len(er.lines) {
		er.writeExcerpt(&out, pos, err.Length, style, gutter)
	}

	for _, suggestion := range err.Suggestions {
		fmt.Fprintf(&out, "%s %s %s %s\n", gutter, dim("="), helpStyle("help:"), suggestion)
	}
	for _, note := range err.Notes {
		fmt.Fprintf(&out, "%s %s %s %s\n", gutter, dim("="), noteStyle("note:"), note)
	}
	if err.HelpText != "" {
		fmt.Fprintf(&out, "%s %s %s %s\n", gutter, dim("="), helpStyle("help:"), err.HelpText)
	}
	out.WriteString("\n")
	return out.String()
}

// resolve fills in the method and block enclosing pos from the source
func (er *ErrorReporter) resolve(pos Position) Position {
	if pos.Line <= 0 || pos.Line > len(er.lines) {
		return pos
	}
	for i := pos.Line - 1; i >= 0; i-- {
		line := strings.TrimSpace(er.lines[i])
		if pos.Block == "" && isBlockLabel(line) {
			pos.Block = strings.TrimSuffix(line, ":")
		}
		if strings.HasPrefix(line, "method ") {
			if pos.Method == "" {
				pos.Method = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(line, "method "), "{"))
			}
			break
		}
	}
	return pos
}

func (er *ErrorReporter) location(pos Position) string {
	context := pos.Context()
	switch {
	case pos.Line > 0 && context != "":
		return fmt.Sprintf("%s:%d:%d in %s", er.filename, pos.Line, pos.Column, context)
	case pos.Line > 0:
		return fmt.Sprintf("%s:%d:%d", er.filename, pos.Line, pos.Column)
	case context != "":
		return "in " + context
	}
	return ""
}

// writeExcerpt prints the header of the enclosing block, the offending line
// and a marker under the reported span
func (er *ErrorReporter) writeExcerpt(out *strings.Builder, pos Position, length int, style *color.Color, gutter string) {
	width := len(gutter)
	fmt.Fprintf(out, "%s %s\n", gutter, dim("│"))

	if header := er.blockHeaderLine(pos.Line); header > 0 && header < pos.Line {
		fmt.Fprintf(out, "%s %s %s\n", dim(fmt.Sprintf("%*d", width, header)), dim("│"), er.lines[header-1])
		if header < pos.Line-1 {
			fmt.Fprintf(out, "%s %s\n", gutter, dim("⋮"))
		}
	}

	fmt.Fprintf(out, "%s %s %s\n", bold(fmt.Sprintf("%*d", width, pos.Line)), dim("│"), er.lines[pos.Line-1])
	fmt.Fprintf(out, "%s %s %s\n", gutter, dim("│"), marker(pos.Column, length, style))
}

// blockHeaderLine returns the 1-based line of the block label above line, or 0
func (er *ErrorReporter) blockHeaderLine(line int) int {
	for i := line - 1; i >= 0; i-- {
		text := strings.TrimSpace(er.lines[i])
		if isBlockLabel(text) {
			return i + 1
		}
		if strings.HasPrefix(text, "method ") {
			return 0
		}
	}
	return 0
}

func isBlockLabel(line string) bool {
	if len(line) < 3 || line[0] != '$' || !strings.HasSuffix(line, ":") {
		return false
	}
	for _, r := range line[1 : len(line)-1] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func marker(column, length int, style *color.Color) string {
	if length <= 0 {
		length = 1
	}
	return strings.Repeat(" ", max(0, column-1)) + style.Sprint(strings.Repeat("^", length))
}

func gutterWidth(line int) int {
	return max(3, len(fmt.Sprint(line)))
}
