package parser

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// keywords are lexed separately from identifiers so that `@Ident` never
// matches a reserved word; grammar literals still match them by value.
const keywords = `(?:var|let|const|function|return|if|else|while|do|for|in|of|break|continue|` +
	`throw|try|catch|finally|switch|case|default|new|typeof|void|delete|instanceof|` +
	`true|false|null|class|extends|async|await|yield)\b`

var jsLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "BlockComment", Pattern: `/\*([^*]|\*+[^*/])*\*+/`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\\n])*"|'(?:\\.|[^'\\\n])*'`},
	{Name: "Number", Pattern: `0[xX][0-9a-fA-F]+|\d+(?:\.\d*)?(?:[eE][+-]?\d+)?|\.\d+(?:[eE][+-]?\d+)?`},
	{Name: "Keyword", Pattern: keywords},
	{Name: "Ident", Pattern: `[a-zA-Z_$][a-zA-Z0-9_$]*`},
	{Name: "Punct", Pattern: `>>>=|\.\.\.|===|!==|>>>|<<=|>>=|\*\*|=>|==|!=|<=|>=|&&|\|\||\?\?|\+\+|--|\+=|-=|\*=|/=|%=|&=|\|=|\^=|<<|>>|[-+*/%=<>!~&|^?:;,.(){}\[\]]`},
})
