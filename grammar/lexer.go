package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// RuleLexer tokenizes one self-loop rule: `rule NAME { guard: ...; update:
// ...; cost: ...; }`. A single stateful "Root" state lists comments,
// identifiers, integers and operators in priority order, with the
// operator set narrowed to arithmetic and relational symbols.
var RuleLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Integer", `[0-9]+`, nil},
		{"Operator", `(&&|\|\||==|!=|<=|>=|[-+*<>=])`, nil},
		{"Punctuation", `[{}:;,()]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
