package hir

import (
	"errors"
	"strings"
	"testing"

	"forget/internal/ast"
	"forget/internal/diag"
	"forget/internal/parser"
	"forget/internal/sema"
)

func buildSource(t *testing.T, src string) (*Function, error) {
	t.Helper()
	prog, err := parser.Parse(1, "test.js", []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	an, err := sema.Analyze(prog)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	fns := prog.Functions()
	if len(fns) == 0 {
		t.Fatalf("no functions in %q", src)
	}
	env := NewEnvironment(DefaultFeatures(), testRegistry(t), an)
	return Build(env, fns[0])
}

func mustBuild(t *testing.T, src string) *Function {
	t.Helper()
	fn, err := buildSource(t, src)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := Validate(fn); err != nil {
		t.Fatalf("validate: %v\n%s", err, fn)
	}
	return fn
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry(
		Entry{Name: "useMemo", Kind: EntryHook, Effect: EffectPure, Arity: 2, Memo: &MemoShape{Callback: 0, Deps: 1}},
		Entry{Name: "Math.max", Kind: EntryFunction, Effect: EffectPure, Arity: -1},
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

func countInstrs(fn *Function, kind InstrKind) int {
	n := 0
	for i := range fn.Blocks {
		for j := range fn.Blocks[i].Instrs {
			if fn.Blocks[i].Instrs[j].Kind == kind {
				n++
			}
		}
	}
	return n
}

func findInstr(fn *Function, kind InstrKind) *Instr {
	for i := range fn.Blocks {
		for j := range fn.Blocks[i].Instrs {
			if in := &fn.Blocks[i].Instrs[j]; in.Kind == kind {
				return in
			}
		}
	}
	return nil
}

func TestBuild_StraightLine(t *testing.T) {
	fn := mustBuild(t, `function f(a) { const x = a + 1; return x; }`)
	if len(fn.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d\n%s", len(fn.Blocks), fn)
	}
	if fn.Name != "f" || len(fn.Params) != 1 {
		t.Fatalf("unexpected header: name=%q params=%d", fn.Name, len(fn.Params))
	}
	if got := fn.Blocks[0].Term.Kind; got != TermReturn {
		t.Fatalf("expected return, got %s", got)
	}
	out := fn.String()
	for _, want := range []string{"function f(a$", "Binary $", "StoreLocal Const x$", "Return $"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestBuild_IfElseJoin(t *testing.T) {
	fn := mustBuild(t, `function f(c) { let x; if (c) { x = 1; } else { x = 2; } return x; }`)
	if len(fn.Blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d\n%s", len(fn.Blocks), fn)
	}
	entry := fn.Block(fn.Entry)
	if entry.Term.Kind != TermIf {
		t.Fatalf("entry should end in If, got %s", entry.Term.Kind)
	}
	join := &fn.Blocks[len(fn.Blocks)-1]
	if len(join.Preds) != 2 || join.Term.Kind != TermReturn {
		t.Fatalf("join block: preds=%v term=%s\n%s", join.Preds, join.Term.Kind, fn)
	}
	if fn.SSA {
		t.Fatalf("built function must not be marked SSA")
	}
}

func TestBuild_ImplicitReturn(t *testing.T) {
	fn := mustBuild(t, `function f() { g(); }`)
	last := &fn.Blocks[len(fn.Blocks)-1]
	if last.Term.Kind != TermReturn {
		t.Fatalf("expected implicit return, got %s", last.Term.Kind)
	}
	in := findInstr(fn, InstrPrimitive)
	if in == nil || in.Primitive.Kind != PrimUndefined {
		t.Fatalf("expected undefined primitive for the implicit return\n%s", fn)
	}
}

func TestBuild_Loops(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"while", `function f(n) { let i = 0; while (i < n) { i = i + 1; } return i; }`},
		{"do-while", `function f(n) { let i = 0; do { i++; } while (i < n); return i; }`},
		{"for", `function f(n) { let s = 0; for (let i = 0; i < n; i++) { if (i === 3) continue; if (i > 8) break; s += i; } return s; }`},
		{"for-without-test", `function f() { for (;;) { if (g()) break; } return 0; }`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fn := mustBuild(t, tc.src)
			back := false
			for i := range fn.Blocks {
				for _, s := range fn.Blocks[i].Term.Successors() {
					if s <= fn.Blocks[i].ID {
						back = true
					}
				}
			}
			if !back {
				t.Fatalf("expected a back edge\n%s", fn)
			}
		})
	}
}

func TestBuild_SwitchFallthrough(t *testing.T) {
	fn := mustBuild(t, `function f(x) {
		let r = 0;
		switch (x) {
		case 1:
			r = 10;
		case 2:
			r = r + 1;
			break;
		default:
			r = -1;
		}
		return r;
	}`)
	var sw *Terminator
	for i := range fn.Blocks {
		if fn.Blocks[i].Term.Kind == TermSwitch {
			sw = &fn.Blocks[i].Term
		}
	}
	if sw == nil {
		t.Fatalf("no switch terminator\n%s", fn)
	}
	if len(sw.Switch.Cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(sw.Switch.Cases))
	}
	first := fn.Block(sw.Switch.Cases[0].Target)
	if first.Term.Kind != TermGoto || first.Term.Goto.Target != sw.Switch.Cases[1].Target {
		t.Fatalf("case 1 should fall through to case 2\n%s", fn)
	}
}

func TestBuild_Logical(t *testing.T) {
	fn := mustBuild(t, `function f(a, b) { return (a && b) || (a ?? b); }`)
	if n := countInstrs(fn, InstrLoadLocal); n < 3 {
		t.Fatalf("expected join loads, got %d\n%s", n, fn)
	}
	if !strings.Contains(fn.String(), "Binary $") {
		t.Fatalf("nullish test missing\n%s", fn)
	}
}

func TestBuild_TryCatchMaybeThrow(t *testing.T) {
	fn := mustBuild(t, `function f() { try { g(); } catch (e) { return e; } return 1; }`)
	var mt *Terminator
	for i := range fn.Blocks {
		if fn.Blocks[i].Term.Kind == TermMaybeThrow {
			mt = &fn.Blocks[i].Term
		}
	}
	if mt == nil {
		t.Fatalf("call inside try should end its block with MaybeThrow\n%s", fn)
	}
	handler := fn.Block(mt.MaybeThrow.Handler)
	if len(handler.Instrs) == 0 || handler.Instrs[0].Kind != InstrCatchParam {
		t.Fatalf("handler must start with CatchParam\n%s", fn)
	}
}

func TestBuild_ClosureCapturesContext(t *testing.T) {
	fn := mustBuild(t, `function f() {
		let x = 0;
		const inc = () => { x = x + 1; };
		inc();
		return x;
	}`)
	if countInstrs(fn, InstrDeclareContext) != 1 {
		t.Fatalf("expected one DeclareContext\n%s", fn)
	}
	if countInstrs(fn, InstrLoadContext) != 1 {
		t.Fatalf("expected the return to read the context variable\n%s", fn)
	}
	closure := findInstr(fn, InstrFunction)
	if closure == nil || len(closure.Function.Context) != 1 {
		t.Fatalf("closure should capture x\n%s", fn)
	}
	x := closure.Function.Context[0]
	if !fn.Idents.IsContext(x) || fn.Idents.Get(x).Name != "x" {
		t.Fatalf("captured identifier %s is not the context x", fn.Idents.Label(x))
	}
	inner := closure.Function.Fn
	if !inner.Arrow || countInstrs(inner, InstrStoreContext) != 1 {
		t.Fatalf("inner body should store to x\n%s", fn)
	}
}

func TestBuild_ReadOnlyCaptureIsLocal(t *testing.T) {
	fn := mustBuild(t, `function f(a) { const g = () => a * 2; return g(); }`)
	closure := findInstr(fn, InstrFunction)
	if closure == nil || len(closure.Function.Context) != 1 {
		t.Fatalf("closure should capture a\n%s", fn)
	}
	if fn.Idents.IsContext(closure.Function.Context[0]) {
		t.Fatalf("a read-only capture must not be a context variable")
	}
	if countInstrs(fn, InstrDeclareContext) != 0 {
		t.Fatalf("unexpected DeclareContext\n%s", fn)
	}
}

func TestBuild_GlobalsAndMethodCalls(t *testing.T) {
	fn := mustBuild(t, `function f(o) { o.n = Math.max(1, 2); delete o.old; return o["k"]; }`)
	for kind, want := range map[InstrKind]int{
		InstrLoadGlobal:     1,
		InstrMethodCall:     1,
		InstrPropertyStore:  1,
		InstrPropertyDelete: 1,
		InstrComputedLoad:   1,
	} {
		if got := countInstrs(fn, kind); got != want {
			t.Fatalf("%s: got %d, want %d\n%s", kind, got, want, fn)
		}
	}
	call := findInstr(fn, InstrMethodCall)
	if !call.Call.Receiver.IsValid() || len(call.Call.Args) != 2 {
		t.Fatalf("malformed method call: %s", FormatInstr(fn.Idents, call))
	}
}

func TestBuild_Destructuring(t *testing.T) {
	fn := mustBuild(t, `function f(p) { const [a, b] = p; const {c} = p; return a + b + c; }`)
	if got := countInstrs(fn, InstrDestructure); got != 2 {
		t.Fatalf("expected 2 destructures, got %d\n%s", got, fn)
	}
}

func TestBuild_NestedFunctionDeclaration(t *testing.T) {
	fn := mustBuild(t, `function f(n) { function g(k) { return k + n; } return g(1); }`)
	closure := findInstr(fn, InstrFunction)
	if closure == nil || closure.Function.Fn.Name != "g" {
		t.Fatalf("expected nested function g\n%s", fn)
	}
	store := findInstr(fn, InstrStoreLocal)
	if store == nil || store.Local.Kind != DeclFunction {
		t.Fatalf("g should be stored with a function declaration\n%s", fn)
	}
}

func TestBuild_Unsupported(t *testing.T) {
	cases := []struct {
		name string
		src  string
		code diag.Code
	}{
		{"this", `function f() { return this; }`, diag.HirUnsupported},
		{"async", `async function f() { return 1; }`, diag.HirUnsupported},
		{"generator", `function* f() { return 1; }`, diag.HirUnsupported},
		{"for-of", `function f(xs) { for (const x of xs) { g(x); } }`, diag.HirUnsupported},
		{"labeled", `function f() { outer: while (true) { break outer; } }`, diag.HirUnsupported},
		{"class", `function f() { class A {} return 1; }`, diag.HirUnsupported},
		{"finally", `function f() { try { g(); } finally { h(); } }`, diag.HirUnsupported},
		{"spread", `function f(xs) { return g(...xs); }`, diag.HirUnsupported},
		{"default-param", `function f(a = 1) { return a; }`, diag.HirUnsupported},
		{"nested-pattern", `function f(p) { const [[a]] = p; return a; }`, diag.HirUnsupported},
		{"function-before-declaration", `function f() { g(); function g() {} }`, diag.HirUnsupported},
		{"switch-global-case", `function f(x) { switch (x) { case K: return 1; } return 0; }`, diag.HirUnsupported},
		{"assign-const", `function f() { const x = 1; x = 2; return x; }`, diag.HirInvalidSyntax},
		{"break-outside", `function f() { break; }`, diag.HirBreakOutside},
		{"continue-outside", `function f() { continue; }`, diag.HirContinueOutside},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := buildSource(t, tc.src)
			var be *BuildError
			if !errors.As(err, &be) {
				t.Fatalf("expected BuildError, got %v", err)
			}
			if be.Diagnostic().Code != tc.code {
				t.Fatalf("code = %s, want %s (%v)", be.Diagnostic().Code, tc.code, err)
			}
			if be.Span.Start > be.Span.End {
				t.Fatalf("invalid span %v", be.Span)
			}
		})
	}
}

func TestBuild_RejectsMissingAnalysis(t *testing.T) {
	if _, err := Build(NewEnvironment(DefaultFeatures(), nil, nil), &ast.Function{}); err == nil {
		t.Fatalf("expected error without analysis")
	}
}
