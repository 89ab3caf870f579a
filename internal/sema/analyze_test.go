package sema

import (
	"strings"
	"testing"

	"forget/internal/ast"
	"forget/internal/diag"
	"forget/internal/parser"
)

func analyzeSource(t *testing.T, src string) (*Analysis, *ast.Program) {
	t.Helper()
	prog, err := parser.Parse(1, "test.js", []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	a, err := Analyze(prog)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	return a, prog
}

func bindingNamed(t *testing.T, a *Analysis, name string) *Binding {
	t.Helper()
	for i := 1; i <= a.NumBindings(); i++ {
		if b := a.Binding(BindingID(i)); b.Name == name {
			return b
		}
	}
	t.Fatalf("no binding named %q", name)
	return nil
}

func diagCodes(a *Analysis) []diag.Code {
	var out []diag.Code
	for _, d := range a.Diagnostics() {
		out = append(out, d.Code)
	}
	return out
}

func hasCode(a *Analysis, code diag.Code) bool {
	for _, c := range diagCodes(a) {
		if c == code {
			return true
		}
	}
	return false
}

func TestAnalyze_ReassignedCaptureIsContext(t *testing.T) {
	a, _ := analyzeSource(t, `function f() {
  let x = 0;
  const g = () => { x = 1; };
  g();
  return x;
}`)
	x := bindingNamed(t, a, "x")
	if !x.Captured || !x.Reassigned || !x.IsContext() {
		t.Fatalf("x: captured=%v reassigned=%v context=%v", x.Captured, x.Reassigned, x.IsContext())
	}
	g := bindingNamed(t, a, "g")
	if g.Captured || g.IsContext() {
		t.Fatalf("g should be a plain local")
	}
	if len(a.Diagnostics()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diagCodes(a))
	}
}

func TestAnalyze_ReadOnlyCaptureIsNotContext(t *testing.T) {
	a, _ := analyzeSource(t, `function f(a) {
  const b = a;
  return () => b;
}`)
	b := bindingNamed(t, a, "b")
	if !b.Captured {
		t.Fatalf("b should be captured")
	}
	if b.IsContext() {
		t.Fatalf("b is never reassigned and should not be a context variable")
	}
}

func TestAnalyze_CapturedBeforeDeclaration(t *testing.T) {
	a, _ := analyzeSource(t, `function f() {
  const g = () => y;
  let y = 1;
  return g;
}`)
	y := bindingNamed(t, a, "y")
	if !y.CapturedBeforeDecl || !y.IsContext() {
		t.Fatalf("y: capturedBeforeDecl=%v context=%v", y.CapturedBeforeDecl, y.IsContext())
	}
	if hasCode(a, diag.SemaUseBeforeDeclare) {
		t.Fatalf("a closure reading a later binding is not a use before declaration")
	}
}

func TestAnalyze_UseBeforeDeclare(t *testing.T) {
	a, _ := analyzeSource(t, `function f() {
  x;
  let x = 1;
}`)
	if !hasCode(a, diag.SemaUseBeforeDeclare) {
		t.Fatalf("expected use-before-declare, got %v", diagCodes(a))
	}
	var found bool
	for _, d := range a.Debug().References {
		if d.Name == "x" && d.BeforeDecl {
			found = true
		}
	}
	if !found {
		t.Fatalf("reference to x should be marked before-decl")
	}
}

func TestAnalyze_FunctionUsedBeforeDeclaration(t *testing.T) {
	a, _ := analyzeSource(t, `function f() {
  g();
  function g() {}
}`)
	if len(a.Diagnostics()) != 0 {
		t.Fatalf("hoisted function use is legal, got %v", diagCodes(a))
	}
	refs := a.Debug().References
	if len(refs) != 1 || refs[0].Name != "g" || !refs[0].BeforeDecl {
		t.Fatalf("unexpected references: %+v", refs)
	}
}

func TestAnalyze_Redeclarations(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want diag.Code
	}{
		{"let twice", "function f() { let a; let a; }", diag.SemaDuplicateSymbol},
		{"let after var", "function f() { var a; let a; }", diag.SemaDuplicateSymbol},
		{"duplicate param", "function f(a, a) {}", diag.SemaDuplicateParameter},
		{"var twice", "function f() { var a; var a; }", 0},
		{"var shadows param", "function f(a) { var a; }", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := analyzeSource(t, tt.src)
			codes := diagCodes(a)
			if tt.want == 0 {
				if len(codes) != 0 {
					t.Fatalf("unexpected diagnostics: %v", codes)
				}
				return
			}
			if len(codes) != 1 || codes[0] != tt.want {
				t.Fatalf("got %v, want [%v]", codes, tt.want)
			}
			if len(a.Diagnostics()[0].Notes) != 1 {
				t.Fatalf("expected a note pointing at the previous declaration")
			}
		})
	}
}

func TestAnalyze_AssignToConstAndImplicitGlobal(t *testing.T) {
	a, _ := analyzeSource(t, `function f() {
  const c = 1;
  c = 2;
  y = 3;
}`)
	diags := a.Diagnostics()
	if len(diags) != 2 {
		t.Fatalf("got %v", diagCodes(a))
	}
	if diags[0].Code != diag.SemaAssignToConst || diags[0].Severity != diag.SevError {
		t.Fatalf("first diagnostic = %v", diags[0])
	}
	if diags[1].Code != diag.SemaImplicitGlobal || diags[1].Severity != diag.SevWarning {
		t.Fatalf("second diagnostic = %v", diags[1])
	}
	if !a.HasErrors() {
		t.Fatalf("HasErrors should be true")
	}
}

func TestAnalyze_CapturesInFirstReferenceOrder(t *testing.T) {
	a, prog := analyzeSource(t, `function f(a, b) {
  return () => () => b + a;
}`)
	outer := prog.Functions()[0]
	ret := outer.Body[0].Data.(*ast.ReturnStmt)
	mid := ret.Value.Data.(*ast.FunctionExpr).Func
	inner := mid.ExprBody.Data.(*ast.FunctionExpr).Func

	for _, fn := range []*ast.Function{mid, inner} {
		caps := a.Captures(fn)
		if len(caps) != 2 {
			t.Fatalf("captures = %v", caps)
		}
		if a.Binding(caps[0]).Name != "b" || a.Binding(caps[1]).Name != "a" {
			t.Fatalf("captures out of order: %s, %s", a.Binding(caps[0]).Name, a.Binding(caps[1]).Name)
		}
	}
	if len(a.Captures(outer)) != 0 {
		t.Fatalf("outer function captures nothing")
	}
}

func TestAnalyze_ResolveDeclarationsAndReferences(t *testing.T) {
	a, prog := analyzeSource(t, `function f(p) {
  return p + q;
}`)
	fn := prog.Functions()[0]
	decl, ok := a.Resolve(fn.Params[0].Name)
	if !ok {
		t.Fatalf("param should resolve")
	}
	bin := fn.Body[0].Data.(*ast.ReturnStmt).Value.Data.(*ast.BinaryExpr)
	use, ok := a.Resolve(bin.X.Data.(*ast.Ident))
	if !ok || use != decl {
		t.Fatalf("p use resolved to %d, want %d", use, decl)
	}
	if _, ok := a.Resolve(bin.Y.Data.(*ast.Ident)); ok {
		t.Fatalf("q is a global and should not resolve")
	}
	if a.FunctionScope(fn) == NoScopeID {
		t.Fatalf("function scope not recorded")
	}
}

func TestAnalyze_VarLoopBindingIsReassigned(t *testing.T) {
	a, _ := analyzeSource(t, `function f(xs) {
  for (var x of xs) {}
  for (const y of xs) {}
}`)
	if !bindingNamed(t, a, "x").Reassigned {
		t.Fatalf("var loop binding should be reassigned")
	}
	if bindingNamed(t, a, "y").Reassigned {
		t.Fatalf("const loop binding should not be reassigned")
	}
}

func TestAnalysis_DebugString(t *testing.T) {
	a, _ := analyzeSource(t, `function f(a) {
  let b = a;
  return () => { b = 2; };
}`)
	out := a.Debug().String()
	for _, want := range []string{
		"scope #1 program",
		"  scope #2 function",
		"param a #2 refs=1",
		"let b #3 refs=1 reassigned captured",
		"captures: b",
		"references:",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("debug output missing %q:\n%s", want, out)
		}
	}
	if _, err := a.Debug().JSON(); err != nil {
		t.Fatalf("json: %v", err)
	}
}
