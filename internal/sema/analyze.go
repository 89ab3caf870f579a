package sema

import (
	"fmt"

	"forget/internal/ast"
	"forget/internal/diag"
)

// Analyze builds the scope tree of prog, resolves every identifier and
// collects diagnostics. User errors never abort the traversal; an error is
// returned only when scope bookkeeping goes wrong.
func Analyze(prog *ast.Program) (*Analysis, error) {
	a := newAnalysis(prog)
	w := &walker{
		resolver: resolver{a: a, reporter: diag.SliceReporter{Items: &a.diags}},
	}
	root := w.enter(ScopeProgram, prog.Span, nil)
	w.hoistVars(prog.Body, root)
	w.declareLexical(prog.Body, root)
	w.stmts(prog.Body)
	w.leave(root)

	if w.mismatch != nil {
		return a, w.mismatch
	}
	if len(w.stack) != 0 {
		return a, fmt.Errorf("sema: %d scopes left open", len(w.stack))
	}
	return a, nil
}

type walker struct {
	resolver
	declared map[BindingID]bool
	// initialized tracks var bindings that already received an initializer.
	initialized map[BindingID]bool
}

func (w *walker) markDeclared(id BindingID) {
	if w.declared == nil {
		w.declared = make(map[BindingID]bool)
	}
	w.declared[id] = true
}

func (w *walker) declarePattern(p *ast.Pattern, scope ScopeID, kind BindingKind) {
	for _, id := range p.Names(nil) {
		w.declare(scope, id, kind)
	}
}

// hoistVars declares every var binding of a function body in its function
// scope, descending into nested statements but not nested functions.
func (w *walker) hoistVars(stmts []*ast.Stmt, fnScope ScopeID) {
	for _, st := range stmts {
		w.hoistVarsStmt(st, fnScope)
	}
}

func (w *walker) hoistVarsStmt(st *ast.Stmt, fnScope ScopeID) {
	if st == nil {
		return
	}
	switch d := st.Data.(type) {
	case *ast.VarDecl:
		if d.Kind == ast.VarVar {
			for _, decl := range d.Decls {
				w.declarePattern(decl.Target, fnScope, BindingVar)
			}
		}
	case *ast.IfStmt:
		w.hoistVarsStmt(d.Cons, fnScope)
		w.hoistVarsStmt(d.Alt, fnScope)
	case *ast.WhileStmt:
		w.hoistVarsStmt(d.Body, fnScope)
	case *ast.DoWhileStmt:
		w.hoistVarsStmt(d.Body, fnScope)
	case *ast.ForStmt:
		w.hoistVarsStmt(d.Init, fnScope)
		w.hoistVarsStmt(d.Body, fnScope)
	case *ast.ForEachStmt:
		if d.Decl != nil && *d.Decl == ast.VarVar {
			w.declarePattern(d.Left, fnScope, BindingVar)
		}
		w.hoistVarsStmt(d.Body, fnScope)
	case *ast.TryStmt:
		w.hoistVarsStmt(d.Block, fnScope)
		w.hoistVarsStmt(d.Handler, fnScope)
		w.hoistVarsStmt(d.Finalizer, fnScope)
	case *ast.SwitchStmt:
		for _, c := range d.Cases {
			w.hoistVars(c.Body, fnScope)
		}
	case *ast.BlockStmt:
		w.hoistVars(d.Body, fnScope)
	case *ast.LabeledStmt:
		w.hoistVarsStmt(d.Body, fnScope)
	}
}

// declareLexical declares the let/const/class/function bindings that
// belong directly to scope.
func (w *walker) declareLexical(stmts []*ast.Stmt, scope ScopeID) {
	for _, st := range stmts {
		switch d := st.Data.(type) {
		case *ast.VarDecl:
			kind := BindingLet
			switch d.Kind {
			case ast.VarVar:
				continue
			case ast.VarConst:
				kind = BindingConst
			}
			for _, decl := range d.Decls {
				w.declarePattern(decl.Target, scope, kind)
			}
		case *ast.FunctionStmt:
			w.declare(scope, d.Func.Name, BindingFunction)
		case *ast.ClassStmt:
			w.declare(scope, d.Name, BindingClass)
		}
	}
}

func (w *walker) function(fn *ast.Function) {
	scope := w.enter(ScopeFunction, fn.Span, fn)
	if fn.Name != nil && w.a.decls[fn.Name] == NoBindingID {
		// Named function expressions see their own name.
		w.markDeclared(w.declare(scope, fn.Name, BindingFunction))
	}
	for _, p := range fn.Params {
		for _, id := range p.Names(nil) {
			w.markDeclared(w.declare(scope, id, BindingParam))
		}
	}
	for _, p := range fn.Params {
		w.patternDefaults(p)
	}
	w.hoistVars(fn.Body, scope)
	w.declareLexical(fn.Body, scope)
	if fn.ExprBody != nil {
		w.expr(fn.ExprBody)
	} else {
		w.stmts(fn.Body)
	}
	w.leave(scope)
}

func (w *walker) patternDefaults(p *ast.Pattern) {
	if p == nil || p.Kind == ast.PatIdent {
		return
	}
	for _, el := range p.Elems {
		if el.Default != nil {
			w.expr(el.Default)
		}
		w.patternDefaults(el.Value)
	}
}

func (w *walker) stmts(list []*ast.Stmt) {
	for _, st := range list {
		w.stmt(st)
	}
}

func (w *walker) block(st *ast.Stmt) {
	if st == nil {
		return
	}
	if b, ok := st.Data.(*ast.BlockStmt); ok {
		scope := w.enter(ScopeBlock, st.Span, nil)
		w.a.stmtScopes[st] = scope
		w.declareLexical(b.Body, scope)
		w.stmts(b.Body)
		w.leave(scope)
		return
	}
	w.stmt(st)
}

func (w *walker) stmt(st *ast.Stmt) {
	if st == nil {
		return
	}
	switch d := st.Data.(type) {
	case *ast.ExprStmt:
		w.expr(d.X)
	case *ast.VarDecl:
		w.varDecl(d)
	case *ast.FunctionStmt:
		w.function(d.Func)
		w.markDeclared(w.a.decls[d.Func.Name])
	case *ast.ClassStmt:
		w.markDeclared(w.a.decls[d.Name])
	case *ast.ReturnStmt:
		w.optExpr(d.Value)
	case *ast.ThrowStmt:
		w.expr(d.Value)
	case *ast.IfStmt:
		w.expr(d.Test)
		w.block(d.Cons)
		w.block(d.Alt)
	case *ast.WhileStmt:
		w.expr(d.Test)
		w.block(d.Body)
	case *ast.DoWhileStmt:
		w.block(d.Body)
		w.expr(d.Test)
	case *ast.ForStmt:
		scope := w.enter(ScopeFor, st.Span, nil)
		w.a.stmtScopes[st] = scope
		if d.Init != nil {
			w.declareLexical([]*ast.Stmt{d.Init}, scope)
			w.stmt(d.Init)
		}
		w.optExpr(d.Test)
		w.optExpr(d.Update)
		w.block(d.Body)
		w.leave(scope)
	case *ast.ForEachStmt:
		w.expr(d.Right)
		scope := w.enter(ScopeFor, st.Span, nil)
		w.a.stmtScopes[st] = scope
		switch {
		case d.Decl == nil:
			w.assignTarget(d.Left)
		case *d.Decl == ast.VarVar:
			// One function-scoped binding receives every element.
			w.declaredPattern(d.Left)
			for _, id := range d.Left.Names(nil) {
				if b := w.a.Binding(w.a.decls[id]); b != nil {
					b.Reassigned = true
				}
			}
		default:
			kind := BindingLet
			if *d.Decl == ast.VarConst {
				kind = BindingConst
			}
			w.declarePattern(d.Left, scope, kind)
			w.declaredPattern(d.Left)
		}
		w.block(d.Body)
		w.leave(scope)
	case *ast.TryStmt:
		w.block(d.Block)
		if d.Handler != nil {
			scope := w.enter(ScopeCatch, d.Handler.Span, nil)
			w.a.stmtScopes[st] = scope
			if d.Param != nil {
				for _, id := range d.Param.Names(nil) {
					w.markDeclared(w.declare(scope, id, BindingCatch))
				}
				w.patternDefaults(d.Param)
			}
			w.block(d.Handler)
			w.leave(scope)
		}
		w.block(d.Finalizer)
	case *ast.SwitchStmt:
		w.expr(d.Disc)
		scope := w.enter(ScopeBlock, st.Span, nil)
		w.a.stmtScopes[st] = scope
		for _, c := range d.Cases {
			w.declareLexical(c.Body, scope)
		}
		for _, c := range d.Cases {
			w.optExpr(c.Test)
			w.stmts(c.Body)
		}
		w.leave(scope)
	case *ast.BlockStmt:
		w.block(st)
	case *ast.LabeledStmt:
		w.stmt(d.Body)
	}
}

func (w *walker) varDecl(d *ast.VarDecl) {
	for _, decl := range d.Decls {
		w.patternDefaults(decl.Target)
		w.optExpr(decl.Init)
		for _, id := range decl.Target.Names(nil) {
			bid := w.a.decls[id]
			if !bid.IsValid() {
				continue
			}
			if d.Kind == ast.VarVar && decl.Init != nil {
				if w.initialized == nil {
					w.initialized = make(map[BindingID]bool)
				}
				if w.initialized[bid] || w.declared[bid] {
					w.a.Binding(bid).Reassigned = true
				}
				w.initialized[bid] = true
			}
			w.markDeclared(bid)
		}
	}
}

// declaredPattern marks pattern names as declared without treating them as writes.
func (w *walker) declaredPattern(p *ast.Pattern) {
	w.patternDefaults(p)
	for _, id := range p.Names(nil) {
		if bid := w.a.decls[id]; bid.IsValid() {
			w.markDeclared(bid)
		}
	}
}

// assignTarget resolves every name of an assignment pattern as a write.
func (w *walker) assignTarget(p *ast.Pattern) {
	w.patternDefaults(p)
	for _, id := range p.Names(nil) {
		w.reference(id, true, false)
	}
}

func (w *walker) optExpr(x *ast.Expr) {
	if x != nil {
		w.expr(x)
	}
}

func (w *walker) exprs(list []*ast.Expr) {
	for _, x := range list {
		w.expr(x)
	}
}

func (w *walker) expr(x *ast.Expr) {
	switch d := x.Data.(type) {
	case *ast.Ident:
		w.reference(d, false, true)
	case *ast.ArrayLit:
		w.exprs(d.Elems)
	case *ast.ObjectLit:
		for _, p := range d.Props {
			w.optExpr(p.Computed)
			w.optExpr(p.Value)
		}
	case *ast.FunctionExpr:
		w.function(d.Func)
	case *ast.CallExpr:
		w.expr(d.Callee)
		w.exprs(d.Args)
	case *ast.MemberExpr:
		w.expr(d.Object)
		w.optExpr(d.Computed)
	case *ast.UnaryExpr:
		w.expr(d.X)
	case *ast.UpdateExpr:
		w.target(d.X, true)
	case *ast.BinaryExpr:
		w.expr(d.X)
		w.expr(d.Y)
	case *ast.LogicalExpr:
		w.expr(d.X)
		w.expr(d.Y)
	case *ast.ConditionalExpr:
		w.expr(d.Test)
		w.expr(d.Cons)
		w.expr(d.Alt)
	case *ast.AssignExpr:
		if d.Target.Kind == ast.ExprIdent {
			w.expr(d.Value)
			w.target(d.Target, d.Op != ast.AssignPlain)
			return
		}
		w.target(d.Target, d.Op != ast.AssignPlain)
		w.expr(d.Value)
	case *ast.SequenceExpr:
		w.exprs(d.Exprs)
	case *ast.WrapperExpr:
		w.optExpr(d.X)
	}
}

// target visits an assignment or update target.
func (w *walker) target(x *ast.Expr, read bool) {
	switch d := x.Data.(type) {
	case *ast.Ident:
		w.reference(d, true, read)
	case *ast.MemberExpr:
		w.expr(d.Object)
		w.optExpr(d.Computed)
	default:
		diag.ReportError(w.reporter, diag.SemaInvalidAssignTarget, x.Span, "invalid assignment target").Emit()
		w.expr(x)
	}
}

func (w *walker) reference(id *ast.Ident, write, read bool) {
	current := w.current()
	bid := w.lookup(id.Name)
	ref := &Reference{Ident: id, Binding: bid, Scope: current, Write: write, Read: read}
	w.a.refs[id] = ref
	w.a.refOrder = append(w.a.refOrder, ref)

	if !bid.IsValid() {
		if write {
			diag.ReportWarning(w.reporter, diag.SemaImplicitGlobal, id.Span,
				fmt.Sprintf("assignment to undeclared variable '%s'", id.Name)).Emit()
		}
		return
	}

	b := w.a.Binding(bid)
	b.References++
	if write {
		if b.Kind == BindingConst {
			diag.ReportError(w.reporter, diag.SemaAssignToConst, id.Span,
				fmt.Sprintf("cannot assign to constant '%s'", id.Name)).
				WithNote(b.Span, "declared here").
				Emit()
		}
		b.Reassigned = true
	}

	refFn := w.a.Scope(current).Function
	bindFn := w.a.Scope(b.Scope).Function
	declared := w.declared[bid]
	if refFn != bindFn {
		b.Captured = true
		if !declared && b.Kind != BindingParam {
			b.CapturedBeforeDecl = true
		}
		for s := refFn; s.IsValid() && s != bindFn; s = w.a.Scope(w.a.Scope(s).Parent).Function {
			w.a.addCapture(s, bid)
		}
		return
	}
	if !declared && (b.Kind.Lexical() || b.Kind == BindingFunction) {
		ref.BeforeDecl = true
		if b.Kind.Lexical() {
			diag.ReportError(w.reporter, diag.SemaUseBeforeDeclare, id.Span,
				fmt.Sprintf("'%s' is used before its declaration", id.Name)).
				WithNote(b.Span, "declared here").
				Emit()
		}
	}
}
