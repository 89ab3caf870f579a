package sema

import (
	"forget/internal/ast"
	"forget/internal/diag"
)

// Analysis is the result of Analyze. It is read-only once returned.
type Analysis struct {
	program  *ast.Program
	scopes   []Scope
	bindings []Binding

	decls          map[*ast.Ident]BindingID
	refs           map[*ast.Ident]*Reference
	refOrder       []*Reference
	functionScopes map[*ast.Function]ScopeID
	stmtScopes     map[*ast.Stmt]ScopeID
	captures       map[ScopeID][]BindingID

	diags []diag.Diagnostic
}

func newAnalysis(prog *ast.Program) *Analysis {
	return &Analysis{
		program:        prog,
		decls:          make(map[*ast.Ident]BindingID),
		refs:           make(map[*ast.Ident]*Reference),
		functionScopes: make(map[*ast.Function]ScopeID),
		stmtScopes:     make(map[*ast.Stmt]ScopeID),
		captures:       make(map[ScopeID][]BindingID),
	}
}

func (a *Analysis) Program() *ast.Program { return a.program }

// Scope returns the scope for id, or nil when id is invalid.
func (a *Analysis) Scope(id ScopeID) *Scope {
	if !id.IsValid() || int(id) > len(a.scopes) {
		return nil
	}
	return &a.scopes[id-1]
}

// Binding returns the binding for id, or nil when id is invalid.
func (a *Analysis) Binding(id BindingID) *Binding {
	if !id.IsValid() || int(id) > len(a.bindings) {
		return nil
	}
	return &a.bindings[id-1]
}

func (a *Analysis) NumBindings() int { return len(a.bindings) }

// Diagnostics returns the collected diagnostics in discovery order.
func (a *Analysis) Diagnostics() []diag.Diagnostic { return a.diags }

// HasErrors reports whether any diagnostic is an error.
func (a *Analysis) HasErrors() bool {
	for _, d := range a.diags {
		if d.Severity >= diag.SevError {
			return true
		}
	}
	return false
}

// Declaration returns the binding declared by id.
func (a *Analysis) Declaration(id *ast.Ident) (BindingID, bool) {
	b, ok := a.decls[id]
	return b, ok
}

// Reference returns the resolution of a non-declaring identifier.
func (a *Analysis) Reference(id *ast.Ident) (*Reference, bool) {
	r, ok := a.refs[id]
	return r, ok
}

// Resolve returns the binding an identifier denotes, whether it is a
// declaration or a reference. The boolean is false for globals and for
// identifiers the analysis never saw.
func (a *Analysis) Resolve(id *ast.Ident) (BindingID, bool) {
	if b, ok := a.decls[id]; ok {
		return b, b.IsValid()
	}
	if r, ok := a.refs[id]; ok {
		return r.Binding, r.Binding.IsValid()
	}
	return NoBindingID, false
}

// FunctionScope returns the scope created for fn.
func (a *Analysis) FunctionScope(fn *ast.Function) ScopeID {
	return a.functionScopes[fn]
}

// StmtScope returns the scope a statement introduces: the block scope of a
// block statement, the head scope of a for loop, the body scope of a switch
// or the catch scope of a try statement.
func (a *Analysis) StmtScope(st *ast.Stmt) ScopeID {
	return a.stmtScopes[st]
}

// Captures lists, in first-reference order, the outer bindings fn refers to.
func (a *Analysis) Captures(fn *ast.Function) []BindingID {
	return a.captures[a.functionScopes[fn]]
}

// Within reports whether scope lies inside (or is) ancestor.
func (a *Analysis) Within(scope, ancestor ScopeID) bool {
	for s := scope; s.IsValid(); s = a.Scope(s).Parent {
		if s == ancestor {
			return true
		}
	}
	return false
}

func (a *Analysis) addCapture(fnScope ScopeID, b BindingID) {
	for _, existing := range a.captures[fnScope] {
		if existing == b {
			return
		}
	}
	a.captures[fnScope] = append(a.captures[fnScope], b)
}
