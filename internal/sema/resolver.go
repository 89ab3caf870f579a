package sema

import (
	"fmt"

	"fortio.org/safecast"

	"forget/internal/ast"
	"forget/internal/diag"
	"forget/internal/source"
)

// resolver owns the scope stack during traversal.
type resolver struct {
	a        *Analysis
	reporter diag.Reporter
	stack    []ScopeID
	// mismatch records the first scope-stack violation; Analyze turns it
	// into an error.
	mismatch error
}

func (r *resolver) current() ScopeID {
	if len(r.stack) == 0 {
		return NoScopeID
	}
	return r.stack[len(r.stack)-1]
}

func (r *resolver) enter(kind ScopeKind, span source.Span, fn *ast.Function) ScopeID {
	n, err := safecast.Conv[uint32](len(r.a.scopes) + 1)
	if err != nil {
		panic(fmt.Errorf("sema: scope count overflow: %w", err))
	}
	id := ScopeID(n)
	parent := r.current()
	function := id
	if kind != ScopeFunction && kind != ScopeProgram && parent.IsValid() {
		function = r.a.Scope(parent).Function
	}
	r.a.scopes = append(r.a.scopes, Scope{
		ID:       id,
		Kind:     kind,
		Parent:   parent,
		Function: function,
		Span:     span,
		Names:    make(map[string]BindingID),
		Func:     fn,
	})
	if parent.IsValid() {
		ps := r.a.Scope(parent)
		ps.Children = append(ps.Children, id)
	}
	if fn != nil {
		r.a.functionScopes[fn] = id
	}
	r.stack = append(r.stack, id)
	return id
}

func (r *resolver) leave(expected ScopeID) {
	top := r.current()
	if top != expected {
		if r.mismatch == nil {
			r.mismatch = fmt.Errorf("sema: scope stack mismatch: expected %d, got %d", expected, top)
		}
		diag.ReportError(r.reporter, diag.SemaScopeMismatch, r.a.Scope(expected).Span,
			fmt.Sprintf("internal scope mismatch: expected %d, got %d", expected, top)).Emit()
	}
	if len(r.stack) > 0 {
		r.stack = r.stack[:len(r.stack)-1]
	}
}

// declare installs name in scope. Redeclaring a var/function name with var
// semantics reuses the existing binding; every other collision is reported.
func (r *resolver) declare(scope ScopeID, id *ast.Ident, kind BindingKind) BindingID {
	sc := r.a.Scope(scope)
	if existing, ok := sc.Names[id.Name]; ok {
		prev := r.a.Binding(existing)
		if compatibleRedeclaration(prev.Kind, kind) {
			r.a.decls[id] = existing
			return existing
		}
		code := diag.SemaDuplicateSymbol
		msg := fmt.Sprintf("'%s' has already been declared", id.Name)
		if prev.Kind == BindingParam && kind == BindingParam {
			code = diag.SemaDuplicateParameter
			msg = fmt.Sprintf("duplicate parameter name '%s'", id.Name)
		}
		diag.ReportError(r.reporter, code, id.Span, msg).
			WithNote(prev.Span, "previous declaration here").
			Emit()
		r.a.decls[id] = existing
		return existing
	}

	n, err := safecast.Conv[uint32](len(r.a.bindings) + 1)
	if err != nil {
		panic(fmt.Errorf("sema: binding count overflow: %w", err))
	}
	bid := BindingID(n)
	r.a.bindings = append(r.a.bindings, Binding{
		ID:    bid,
		Name:  id.Name,
		Kind:  kind,
		Scope: scope,
		Decl:  id,
		Span:  id.Span,
	})
	sc.Names[id.Name] = bid
	sc.Bindings = append(sc.Bindings, bid)
	r.a.decls[id] = bid
	return bid
}

func compatibleRedeclaration(prev, next BindingKind) bool {
	varLike := func(k BindingKind) bool {
		return k == BindingVar || k == BindingFunction || k == BindingParam
	}
	if prev == BindingParam && next == BindingParam {
		return false
	}
	return varLike(prev) && varLike(next)
}

// lookup walks the scope chain from the current scope.
func (r *resolver) lookup(name string) BindingID {
	for scope := r.current(); scope.IsValid(); scope = r.a.Scope(scope).Parent {
		if id, ok := r.a.Scope(scope).Names[name]; ok {
			return id
		}
	}
	return NoBindingID
}
