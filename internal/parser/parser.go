package parser

import (
	"errors"
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"forget/internal/ast"
	"forget/internal/diag"
	"forget/internal/source"
)

var jsParser = participle.MustBuild[program](
	participle.Lexer(jsLexer),
	participle.Elide("Whitespace", "Comment", "BlockComment"),
	participle.UseLookahead(64),
)

// SyntaxError reports input the front-end could not parse or convert.
type SyntaxError struct {
	Span source.Span
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("parser: %s at %s", e.Msg, e.Span)
}

// Diagnostic converts the error for reporting.
func (e *SyntaxError) Diagnostic() diag.Diagnostic {
	return diag.NewError(diag.SynUnexpectedToken, e.Span, e.Msg)
}

// ParseFile parses a file previously added to fs.
func ParseFile(fs *source.FileSet, id source.FileID) (*ast.Program, error) {
	f := fs.Get(id)
	if f == nil {
		return nil, fmt.Errorf("parser: unknown file %d", id)
	}
	return Parse(id, f.Path, f.Content)
}

// Parse parses src as a sequence of statements. Every error returned is a
// *SyntaxError; conversion errors are joined.
func Parse(file source.FileID, name string, src []byte) (*ast.Program, error) {
	tree, err := jsParser.ParseBytes(name, src)
	if err != nil {
		return nil, syntaxErrorFrom(file, src, err)
	}
	c := &converter{file: file, src: src}
	prog := &ast.Program{
		File: file,
		Span: source.Span{File: file, Start: 0, End: c.offset(len(src))},
	}
	for _, st := range tree.Body {
		prog.Body = append(prog.Body, c.stmt(st))
	}
	if len(c.errs) > 0 {
		return nil, errors.Join(c.errs...)
	}
	return prog, nil
}

func syntaxErrorFrom(file source.FileID, src []byte, err error) error {
	var perr participle.Error
	if !errors.As(err, &perr) {
		return &SyntaxError{Span: source.Span{File: file}, Msg: err.Error()}
	}
	c := converter{file: file, src: src}
	start := c.offset(perr.Position().Offset)
	end := start
	if int(end) < len(src) {
		end++
	}
	return &SyntaxError{Span: source.Span{File: file, Start: start, End: end}, Msg: perr.Message()}
}

// span builds a span from participle positions, trimming the trailing
// whitespace EndPos includes.
func (c *converter) span(pos, end lexer.Position) source.Span {
	s, e := pos.Offset, end.Offset
	if e > len(c.src) {
		e = len(c.src)
	}
	for e > s && isSpace(c.src[e-1]) {
		e--
	}
	if e < s {
		e = s
	}
	return source.Span{File: c.file, Start: c.offset(s), End: c.offset(e)}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
