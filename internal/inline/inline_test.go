package inline

import (
	"errors"
	"testing"

	"forget/internal/diag"
	"forget/internal/hir"
	"forget/internal/opt"
	"forget/internal/parser"
	"forget/internal/sema"
	"forget/internal/ssa"
)

func testRegistry(t *testing.T) *hir.Registry {
	t.Helper()
	memo := &hir.MemoShape{Callback: 0, Deps: 1}
	reg, err := hir.NewRegistry(
		hir.Entry{Name: "useMemo", Kind: hir.EntryHook, Effect: hir.EffectPure, Arity: 2, Memo: memo},
		hir.Entry{Name: "React.useMemo", Kind: hir.EntryHook, Effect: hir.EffectPure, Arity: 2, Memo: memo},
		hir.Entry{Name: "useState", Kind: hir.EntryHook, Effect: hir.EffectMutate, Arity: 1},
		hir.Entry{Name: "Math.max", Kind: hir.EntryFunction, Effect: hir.EffectPure, Arity: -1},
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

// prepare lowers the first function of src and runs every pass that
// precedes the inliner.
func prepare(t *testing.T, features hir.Features, src string) (*hir.Environment, *hir.Function) {
	t.Helper()
	prog, err := parser.Parse(1, "test.js", []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	an, err := sema.Analyze(prog)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	env := hir.NewEnvironment(features, testRegistry(t), an)
	fn, err := hir.Build(env, prog.Functions()[0])
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := ssa.EnterSSA(env, fn); err != nil {
		t.Fatalf("enter ssa: %v", err)
	}
	ssa.EliminateRedundantPhis(env, fn)
	if err := opt.ConstantPropagation(env, fn); err != nil {
		t.Fatalf("constant propagation: %v", err)
	}
	return env, fn
}

func inlined(t *testing.T, features hir.Features, src string) *hir.Function {
	t.Helper()
	env, fn := prepare(t, features, src)
	if err := InlineUseMemo(env, fn); err != nil {
		t.Fatalf("inline: %v\n%s", err, fn)
	}
	if err := hir.Validate(fn); err != nil {
		t.Fatalf("validate: %v\n%s", err, fn)
	}
	return fn
}

func count(fn *hir.Function, kind hir.InstrKind) int {
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

func hasCode(fn *hir.Function, code diag.Code) bool {
	for _, d := range fn.Diagnostics {
		if d.Code == code {
			return true
		}
	}
	return false
}

var validating = hir.DefaultFeatures().With(hir.FeatureValidateFrozenLambdas, true)

func TestInlineUseMemo_ReplacesCall(t *testing.T) {
	fn := inlined(t, hir.DefaultFeatures(), `function C(a) {
		const v = useMemo(() => a + 1, [a]);
		return v;
	}`)
	if n := count(fn, hir.InstrCall); n != 0 {
		t.Fatalf("expected the memo call to be removed, %d calls left\n%s", n, fn)
	}
	for _, kind := range []hir.InstrKind{hir.InstrFunction, hir.InstrArray, hir.InstrLoadGlobal} {
		if n := count(fn, kind); n != 0 {
			t.Fatalf("expected no %s left, got %d\n%s", kind, n, fn)
		}
	}
	if n := count(fn, hir.InstrBinary); n != 1 {
		t.Fatalf("expected the callback body in place, got %d binaries\n%s", n, fn)
	}
	if len(fn.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", fn.Diagnostics)
	}
}

func TestInlineUseMemo_Disabled(t *testing.T) {
	features := hir.DefaultFeatures().With(hir.FeatureInlineUseMemo, false)
	fn := inlined(t, features, `function C(a) {
		const v = useMemo(() => a + 1, [a]);
		return v;
	}`)
	if n := count(fn, hir.InstrCall); n != 1 {
		t.Fatalf("expected the memo call to stay, got %d calls\n%s", n, fn)
	}
	if n := count(fn, hir.InstrFunction); n != 1 {
		t.Fatalf("expected the callback to stay, got %d\n%s", n, fn)
	}
}

func TestInlineUseMemo_MemberHook(t *testing.T) {
	fn := inlined(t, hir.DefaultFeatures(), `function C(a) {
		return React.useMemo(() => a * 2, [a]);
	}`)
	if n := count(fn, hir.InstrMethodCall); n != 0 {
		t.Fatalf("expected React.useMemo to be inlined\n%s", fn)
	}
	if n := count(fn, hir.InstrLoadGlobal) + count(fn, hir.InstrPropertyLoad); n != 0 {
		t.Fatalf("expected the hook lookup to be removed\n%s", fn)
	}
}

func TestInlineUseMemo_MultipleReturns(t *testing.T) {
	fn := inlined(t, hir.DefaultFeatures(), `function C(a) {
		const v = useMemo(() => {
			if (a) {
				return 1;
			}
			return 2;
		}, [a]);
		return v;
	}`)
	if n := count(fn, hir.InstrCall); n != 0 {
		t.Fatalf("expected the memo call to be removed\n%s", fn)
	}
	found := false
	for i := range fn.Blocks {
		for _, phi := range fn.Blocks[i].Phis {
			if len(phi.Operands) == 2 {
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("expected a phi joining both returns\n%s", fn)
	}
}

func TestInlineUseMemo_PureRegistryCall(t *testing.T) {
	fn := inlined(t, hir.DefaultFeatures(), `function C(a, b) {
		return useMemo(() => Math.max(a, b), [a, b]);
	}`)
	if n := count(fn, hir.InstrArray); n != 0 {
		t.Fatalf("expected the dependency list to be dropped\n%s", fn)
	}
	if n := count(fn, hir.InstrMethodCall); n != 1 {
		t.Fatalf("expected Math.max to be spliced in, got %d method calls\n%s", n, fn)
	}
}

func TestInlineUseMemo_KeepsHookOrder(t *testing.T) {
	fn := inlined(t, hir.DefaultFeatures(), `function C(a) {
		const s = useState(0);
		const v = useMemo(() => a + 1, [a]);
		const u = useState(1);
		return [s, v, u];
	}`)
	var order []string
	for i := range fn.Blocks {
		for j := range fn.Blocks[i].Instrs {
			in := &fn.Blocks[i].Instrs[j]
			if in.Kind == hir.InstrPrimitive && in.Primitive.Kind == hir.PrimNumber {
				order = append(order, in.Primitive.Literal())
			}
		}
	}
	if len(order) < 3 || order[0] != "0" || order[len(order)-1] != "1" {
		t.Fatalf("hook arguments out of order: %v\n%s", order, fn)
	}
	if n := count(fn, hir.InstrCall); n != 2 {
		t.Fatalf("expected both useState calls to remain, got %d\n%s", n, fn)
	}
}

func TestInlineUseMemo_Rejections(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code diag.Code
	}{
		{
			name: "mutable-capture",
			src: `function C(a) {
				let x = a;
				const v = useMemo(() => x + 1, [x]);
				x = 5;
				return v;
			}`,
			code: diag.MemoMutableCapture,
		},
		{
			name: "impure-call",
			src:  `function C(a) { return useMemo(() => g(a), [a]); }`,
			code: diag.MemoImpureCallback,
		},
		{
			name: "escaping-callback",
			src: `function C(a) {
				const cb = () => a;
				const v = useMemo(cb, [a]);
				return [v, cb];
			}`,
			code: diag.MemoEscapingLambda,
		},
		{
			name: "callback-parameter",
			src:  `function C(cb) { return useMemo(cb, []); }`,
			code: diag.MemoNonLocalCallback,
		},
		{
			name: "dependency-variable",
			src:  `function C(a, deps) { return useMemo(() => a, deps); }`,
			code: diag.MemoNotInlined,
		},
		{
			name: "inside-try",
			src: `function C(a) {
				try {
					return useMemo(() => a, [a]);
				} catch (e) {
					return 0;
				}
			}`,
			code: diag.MemoNotInlined,
		},
		{
			name: "extra-argument",
			src:  `function C(a) { return useMemo(() => a, [a], a); }`,
			code: diag.MemoNotInlined,
		},
		{
			name: "callback-writes-property",
			src:  `function C(a) { return useMemo(() => { a.x = 1; return a; }, [a]); }`,
			code: diag.MemoImpureCallback,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := inlined(t, validating, tt.src)
			if count(fn, hir.InstrCall) == 0 {
				t.Fatalf("expected the memo call to stay\n%s", fn)
			}
			if !hasCode(fn, tt.code) {
				t.Fatalf("expected %s, got %v", tt.code.ID(), fn.Diagnostics)
			}
		})
	}
}

func TestInlineUseMemo_SilentWithoutValidation(t *testing.T) {
	fn := inlined(t, hir.DefaultFeatures(), `function C(a) { return useMemo(() => g(a), [a]); }`)
	if count(fn, hir.InstrCall) == 0 {
		t.Fatalf("expected the impure memo call to stay\n%s", fn)
	}
	if len(fn.Diagnostics) != 0 {
		t.Fatalf("expected no diagnostics, got %v", fn.Diagnostics)
	}
}

func TestInlineUseMemo_NestedFunctions(t *testing.T) {
	fn := inlined(t, hir.DefaultFeatures(), `function C(a) {
		return () => useMemo(() => a + 1, [a]);
	}`)
	var nested *hir.Function
	fn.EachNested(func(n *hir.Function) { nested = n })
	if nested == nil {
		t.Fatalf("expected a nested function\n%s", fn)
	}
	if n := count(nested, hir.InstrCall); n != 0 {
		t.Fatalf("expected the nested memo call to be inlined\n%s", fn)
	}
}

func TestInlineUseMemo_RequiresSSA(t *testing.T) {
	prog, err := parser.Parse(1, "test.js", []byte(`function C(a) { return useMemo(() => a, [a]); }`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	an, err := sema.Analyze(prog)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	env := hir.NewEnvironment(hir.DefaultFeatures(), testRegistry(t), an)
	fn, err := hir.Build(env, prog.Functions()[0])
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := InlineUseMemo(env, fn); !errors.Is(err, hir.ErrInvariant) {
		t.Fatalf("expected an invariant error, got %v", err)
	}
}

// unreadLoads counts local loads whose value nothing reads.
func unreadLoads(fn *hir.Function) int {
	uses := countUses(fn)
	n := 0
	for i := range fn.Blocks {
		for j := range fn.Blocks[i].Instrs {
			in := &fn.Blocks[i].Instrs[j]
			if in.Kind == hir.InstrLoadLocal && uses[in.Lvalue] == 0 {
				n++
			}
		}
	}
	return n
}

func TestInlineUseMemo_LeavesNoJumpChains(t *testing.T) {
	for _, src := range []string{
		`function C(a) { const v = useMemo(() => a + 1, [a]); return v; }`,
		`function C(a, b) { return React.useMemo(() => a * b, [a, b]); }`,
	} {
		fn := inlined(t, hir.DefaultFeatures(), src)
		if len(fn.Blocks) != 1 {
			t.Fatalf("expected the splice to merge into one block, got %d\n%s", len(fn.Blocks), fn)
		}
		if n := unreadLoads(fn); n != 0 {
			t.Fatalf("expected dependency loads to be removed, %d left\n%s", n, fn)
		}
	}
}

func TestInlineUseMemo_KeepsBranchesAroundSplice(t *testing.T) {
	fn := inlined(t, hir.DefaultFeatures(), `function C(a, c) {
		let x = 0;
		if (c) { x = useMemo(() => a + 1, [a]); }
		return x;
	}`)
	if n := count(fn, hir.InstrCall); n != 0 {
		t.Fatalf("expected the memo call to be removed\n%s", fn)
	}
	for i := range fn.Blocks {
		b := &fn.Blocks[i]
		if b.Term.Kind != hir.TermGoto || len(b.Instrs) != 0 || len(b.Phis) != 0 {
			continue
		}
		if target := fn.Block(b.Term.Goto.Target); len(target.Preds) == 1 {
			t.Fatalf("bb%d only jumps to bb%d\n%s", b.ID, target.ID, fn)
		}
	}
}

func TestInlineUseMemo_CallbackThroughLocal(t *testing.T) {
	fn := inlined(t, validating, `function C(a) {
		const cb = () => a + 1;
		return useMemo(cb, [a]);
	}`)
	if n := count(fn, hir.InstrCall); n != 0 {
		t.Fatalf("expected the memo call to be inlined\n%s", fn)
	}
	for _, kind := range []hir.InstrKind{hir.InstrFunction, hir.InstrStoreLocal, hir.InstrArray} {
		if n := count(fn, kind); n != 0 {
			t.Fatalf("expected no %s left, got %d\n%s", kind, n, fn)
		}
	}
	if len(fn.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", fn.Diagnostics)
	}
}
