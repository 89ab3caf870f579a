package sema

import (
	"forget/internal/ast"
	"forget/internal/source"
)

// ScopeKind enumerates scope categories.
type ScopeKind uint8

const (
	ScopeInvalid  ScopeKind = iota
	ScopeProgram            // compilation unit root
	ScopeFunction           // parameters, var declarations and the body's top level
	ScopeBlock              // braces, switch bodies
	ScopeFor                // lexical declarations in a for head
	ScopeCatch              // catch parameter
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeProgram:
		return "program"
	case ScopeFunction:
		return "function"
	case ScopeBlock:
		return "block"
	case ScopeFor:
		return "for"
	case ScopeCatch:
		return "catch"
	default:
		return "invalid"
	}
}

// Scope is one lexical scope.
type Scope struct {
	ID       ScopeID
	Kind     ScopeKind
	Parent   ScopeID
	Function ScopeID // nearest enclosing ScopeFunction, or the program scope
	Span     source.Span
	Names    map[string]BindingID
	Bindings []BindingID // declaration order
	Children []ScopeID
	// Func is set for ScopeFunction scopes.
	Func *ast.Function
}
