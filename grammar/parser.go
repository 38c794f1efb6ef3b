package grammar

import (
	"fmt"
	"os"

	"github.com/alecthomas/participle/v2"
)

var irParser = participle.MustBuild[File](
	participle.Lexer(IRLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.Unquote("String"),
	participle.UseLookahead(3),
)

// ParseFile reads and parses a textual IR file
func ParseFile(path string) (*File, string, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}
	file, err := ParseString(path, string(source))
	return file, string(source), err
}

// ParseString parses textual IR held in memory; name is used in positions
func ParseString(name, source string) (*File, error) {
	return irParser.ParseString(name, source)
}
