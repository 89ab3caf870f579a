package parser

import (
	"errors"
	"testing"

	"forget/internal/ast"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := Parse(0, "test.js", []byte(src))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return prog
}

func returnValue(t *testing.T, fn *ast.Function) *ast.Expr {
	t.Helper()
	last := fn.Body[len(fn.Body)-1]
	if last.Kind != ast.StmtReturn {
		t.Fatalf("expected return, got %s", last.Kind)
	}
	return last.Data.(*ast.ReturnStmt).Value
}

func TestParse_FunctionDeclarations(t *testing.T) {
	prog := parse(t, `
function f() { let x = 1; return x + 2; }
// comment
function g(c) {
  let x;
  if (c) { x = 1; } else { x = 2; }
  return x;
}
`)
	fns := prog.Functions()
	if len(fns) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(fns))
	}
	if fns[0].Name.Name != "f" || fns[1].Name.Name != "g" {
		t.Errorf("unexpected names %q, %q", fns[0].Name.Name, fns[1].Name.Name)
	}
	if len(fns[1].Params) != 1 || fns[1].Params[0].Name.Name != "c" {
		t.Errorf("unexpected params for g")
	}
	if fns[1].Body[1].Kind != ast.StmtIf {
		t.Errorf("expected if statement, got %s", fns[1].Body[1].Kind)
	}
}

func TestParse_Precedence(t *testing.T) {
	prog := parse(t, `function f(a, b, c) { return a + b * c - 1; }`)
	ret := returnValue(t, prog.Functions()[0])
	sub, ok := ret.Data.(*ast.BinaryExpr)
	if !ok || sub.Op != ast.BinSub {
		t.Fatalf("expected top-level '-', got %s", ret.Kind)
	}
	add := sub.X.Data.(*ast.BinaryExpr)
	if add.Op != ast.BinAdd {
		t.Fatalf("expected '+' under '-', got %s", add.Op)
	}
	if mul := add.Y.Data.(*ast.BinaryExpr); mul.Op != ast.BinMul {
		t.Fatalf("expected '*' on the right of '+', got %s", mul.Op)
	}
}

func TestParse_LogicalAndConditional(t *testing.T) {
	prog := parse(t, `function f(a, b) { return a && b || a ? 1 : 2; }`)
	ret := returnValue(t, prog.Functions()[0])
	if ret.Kind != ast.ExprConditional {
		t.Fatalf("expected conditional, got %s", ret.Kind)
	}
	test := ret.Data.(*ast.ConditionalExpr).Test.Data.(*ast.LogicalExpr)
	if test.Op != ast.LogicalOr || test.X.Data.(*ast.LogicalExpr).Op != ast.LogicalAnd {
		t.Errorf("'&&' must bind tighter than '||'")
	}
}

func TestParse_ArrowsAndCalls(t *testing.T) {
	prog := parse(t, `
function C(props) {
  const v = useMemo(() => props.a + 1, [props.a]);
  const g = x => x * 2;
  return foo.bar(v, ...rest)[0];
}`)
	fn := prog.Functions()[0]
	decl := fn.Body[0].Data.(*ast.VarDecl)
	if decl.Kind != ast.VarConst {
		t.Errorf("expected const, got %s", decl.Kind)
	}
	call := decl.Decls[0].Init.Data.(*ast.CallExpr)
	if len(call.Args) != 2 {
		t.Fatalf("expected 2 arguments, got %d", len(call.Args))
	}
	cb := call.Args[0].Data.(*ast.FunctionExpr).Func
	if !cb.Arrow || cb.ExprBody == nil || len(cb.Params) != 0 {
		t.Errorf("unexpected callback shape: %+v", cb)
	}
	if call.Args[1].Kind != ast.ExprArray {
		t.Errorf("expected deps array, got %s", call.Args[1].Kind)
	}
	g := fn.Body[1].Data.(*ast.VarDecl).Decls[0].Init.Data.(*ast.FunctionExpr).Func
	if len(g.Params) != 1 || g.Params[0].Name.Name != "x" {
		t.Errorf("single-parameter arrow not recognised")
	}
	ret := returnValue(t, fn)
	if ret.Kind != ast.ExprMember {
		t.Fatalf("expected computed member, got %s", ret.Kind)
	}
	inner := ret.Data.(*ast.MemberExpr).Object.Data.(*ast.CallExpr)
	if inner.Args[1].Kind != ast.ExprSpread {
		t.Errorf("expected spread argument, got %s", inner.Args[1].Kind)
	}
}

func TestParse_Patterns(t *testing.T) {
	prog := parse(t, `function f(o) { const {a, b: c} = o; let [x, , ...y] = o; }`)
	fn := prog.Functions()[0]
	obj := fn.Body[0].Data.(*ast.VarDecl).Decls[0].Target
	if obj.Kind != ast.PatObject || !obj.IsFlat() {
		t.Errorf("object pattern should be flat")
	}
	if names := obj.Names(nil); len(names) != 2 || names[1].Name != "c" {
		t.Errorf("unexpected bound names")
	}
	arr := fn.Body[1].Data.(*ast.VarDecl).Decls[0].Target
	if arr.Kind != ast.PatArray || len(arr.Elems) != 3 {
		t.Fatalf("expected 3 array elements, got %d", len(arr.Elems))
	}
	if !arr.Elems[1].Hole || !arr.Elems[2].Rest || arr.IsFlat() {
		t.Errorf("hole/rest not recorded")
	}
}

func TestParse_Statements(t *testing.T) {
	prog := parse(t, `
function f(xs) {
  outer: for (let i = 0; i < 10; i++) { if (i) continue outer; }
  for (const x of xs) {}
  do { xs--; } while (xs > 0)
  switch (xs) { case 1: break; default: throw xs; }
  try { g(); } catch (e) { h(e); } finally {}
  while (true) {}
}
class K {}
`)
	fn := prog.Functions()[0]
	kinds := []ast.StmtKind{ast.StmtLabeled, ast.StmtForOf, ast.StmtDoWhile, ast.StmtSwitch, ast.StmtTry, ast.StmtWhile}
	for i, k := range kinds {
		if fn.Body[i].Kind != k {
			t.Errorf("statement %d: got %s, want %s", i, fn.Body[i].Kind, k)
		}
	}
	try := fn.Body[4].Data.(*ast.TryStmt)
	if try.Handler == nil || try.Param == nil || try.Finalizer == nil {
		t.Errorf("try statement parts missing")
	}
	if prog.Body[1].Kind != ast.StmtClass {
		t.Errorf("expected class declaration, got %s", prog.Body[1].Kind)
	}
}

func TestParse_Literals(t *testing.T) {
	prog := parse(t, `function f() { return ['a\n', "b", 0x10, 1.5e1, null, true]; }`)
	elems := returnValue(t, prog.Functions()[0]).Data.(*ast.ArrayLit).Elems
	if s := elems[0].Data.(*ast.StringLit).Value; s != "a\n" {
		t.Errorf("escape not decoded: %q", s)
	}
	if n := elems[2].Data.(*ast.NumberLit).Value; n != 16 {
		t.Errorf("hex literal = %v", n)
	}
	if n := elems[3].Data.(*ast.NumberLit).Value; n != 15 {
		t.Errorf("exponent literal = %v", n)
	}
	if elems[4].Kind != ast.ExprNull || elems[5].Kind != ast.ExprBool {
		t.Errorf("unexpected literal kinds %s %s", elems[4].Kind, elems[5].Kind)
	}
}

func TestParse_Spans(t *testing.T) {
	src := `function f() { return x; }`
	prog := parse(t, src)
	ret := returnValue(t, prog.Functions()[0])
	if got := src[ret.Span.Start:ret.Span.End]; got != "x" {
		t.Errorf("identifier span covers %q", got)
	}
	stmt := prog.Functions()[0].Body[0]
	if got := src[stmt.Span.Start:stmt.Span.End]; got != "return x;" {
		t.Errorf("statement span covers %q", got)
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse(0, "bad.js", []byte(`function f( { }`))
	var serr *SyntaxError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *SyntaxError, got %v", err)
	}

	_, err = Parse(0, "bad.js", []byte(`function f() { 1 = 2; }`))
	if !errors.As(err, &serr) || serr.Msg != "invalid assignment target" {
		t.Fatalf("expected invalid assignment target, got %v", err)
	}
}
