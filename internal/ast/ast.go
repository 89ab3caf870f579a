package ast

import "forget/internal/source"

// Program is one parsed compilation unit.
type Program struct {
	File source.FileID
	Body []*Stmt
	Span source.Span
}

// Ident is a single identifier occurrence. Semantic analysis keys
// references by the *Ident pointer, so every occurrence must be a
// distinct allocation.
type Ident struct {
	Name string
	Span source.Span
}

func (*Ident) exprData() {}

// Function is a function declaration, function expression or arrow.
type Function struct {
	Name      *Ident // nil for anonymous functions
	Params    []*Pattern
	Body      []*Stmt
	ExprBody  *Expr // concise arrow body; Body is nil when set
	Arrow     bool
	Async     bool
	Generator bool
	Span      source.Span
}

// Functions returns the top-level function declarations of p in order.
func (p *Program) Functions() []*Function {
	var out []*Function
	for _, st := range p.Body {
		if st.Kind == StmtFunction {
			out = append(out, st.Data.(*FunctionStmt).Func)
		}
	}
	return out
}
