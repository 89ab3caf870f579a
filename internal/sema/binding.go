package sema

import (
	"forget/internal/ast"
	"forget/internal/source"
)

// BindingKind classifies how a name was declared.
type BindingKind uint8

const (
	BindingInvalid BindingKind = iota
	BindingVar
	BindingLet
	BindingConst
	BindingParam
	BindingFunction
	BindingCatch
	BindingClass
)

func (k BindingKind) String() string {
	switch k {
	case BindingVar:
		return "var"
	case BindingLet:
		return "let"
	case BindingConst:
		return "const"
	case BindingParam:
		return "param"
	case BindingFunction:
		return "function"
	case BindingCatch:
		return "catch"
	case BindingClass:
		return "class"
	default:
		return "invalid"
	}
}

// Lexical reports whether the binding has a temporal dead zone.
func (k BindingKind) Lexical() bool {
	return k == BindingLet || k == BindingConst || k == BindingClass
}

// Binding is one declared name.
type Binding struct {
	ID    BindingID
	Name  string
	Kind  BindingKind
	Scope ScopeID
	Decl  *ast.Ident
	Span  source.Span

	// Reassigned is set when the binding is written after its declaration.
	Reassigned bool
	// Captured is set when a nested function references the binding.
	Captured bool
	// CapturedBeforeDecl is set when a nested function that appears
	// textually before the declaration references the binding.
	CapturedBeforeDecl bool
	// References counts every resolved occurrence other than the declaration.
	References int
}

// IsContext reports whether closures must share the binding's storage.
func (b *Binding) IsContext() bool {
	return b.Captured && (b.Reassigned || b.CapturedBeforeDecl)
}

// Reference is one resolved identifier occurrence.
type Reference struct {
	Ident   *ast.Ident
	Binding BindingID // NoBindingID for globals
	Scope   ScopeID
	Write   bool
	Read    bool
	// BeforeDecl marks a same-function use of a lexical binding that
	// precedes its declaration.
	BeforeDecl bool
}
