package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

var IRLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		// Comments
		{Name: "Comment", Pattern: `//[^\n]*`, Action: nil},

		{Name: "String", Pattern: `"(\\.|[^"\\])*"`, Action: nil},

		// Block labels and variables
		{Name: "Label", Pattern: `\$[0-9]+`, Action: nil},
		{Name: "Var", Pattern: `@[0-9]+`, Action: nil},

		// Numbers (float before integer)
		{Name: "Float", Pattern: `-?[0-9]+(\.[0-9]+)?[eE][-+]?[0-9]+|-?[0-9]+\.[0-9]+`, Action: nil},
		{Name: "Integer", Pattern: `-?[0-9]+`, Action: nil},

		// Class, member and keyword names; <init> and <clinit> included
		{Name: "Ident", Pattern: `<?[a-zA-Z_][a-zA-Z0-9_.]*>?`, Action: nil},

		// Operators
		{Name: "Operator", Pattern: `:=|=>`, Action: nil},

		// Punctuation (must come after operators)
		{Name: "Punctuation", Pattern: `[{}[\]()#:,;*]`, Action: nil},

		// Whitespace
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`, Action: nil},
	},
})
