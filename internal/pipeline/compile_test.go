package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forget/internal/ast"
	"forget/internal/diag"
	"forget/internal/hir"
	"forget/internal/observ"
	"forget/internal/parser"
	"forget/internal/sema"
)

func setup(t *testing.T, features hir.Features, src string) (*hir.Environment, *ast.Program) {
	t.Helper()
	prog, err := parser.Parse(1, "unit.js", []byte(src))
	require.NoError(t, err)
	an, err := sema.Analyze(prog)
	require.NoError(t, err)
	reg, err := hir.NewRegistry(
		hir.Entry{Name: "useMemo", Kind: hir.EntryHook, Effect: hir.EffectPure, Arity: 2, Memo: &hir.MemoShape{Callback: 0, Deps: 1}},
	)
	require.NoError(t, err)
	return hir.NewEnvironment(features, reg, an), prog
}

func compileUnit(t *testing.T, features hir.Features, src string, opts Options) *UnitResult {
	t.Helper()
	env, prog := setup(t, features, src)
	res, err := CompileUnit(context.Background(), env, prog, opts)
	require.NoError(t, err)
	return res
}

func TestCompileUnit_ConstantFolding(t *testing.T) {
	res := compileUnit(t, hir.DefaultFeatures(), `function f() { let x = 1; return x + 2; }`, Options{})
	require.Len(t, res.Functions, 1)
	f := res.Functions[0]
	require.NoError(t, f.Err)
	require.Len(t, f.Fn.Blocks, 1)
	ret := f.Fn.Blocks[0].Term
	require.Equal(t, hir.TermReturn, ret.Kind)
	assert.Contains(t, f.Output, "3")
	assert.NoError(t, res.Err())
}

func TestCompileUnit_BranchPhiSurvives(t *testing.T) {
	res := compileUnit(t, hir.DefaultFeatures(), `function f(c) { let x; if (c) { x = 1; } else { x = 2; } return x; }`, Options{})
	f := res.Functions[0]
	require.NoError(t, f.Err)
	phis := 0
	for i := range f.Fn.Blocks {
		phis += len(f.Fn.Blocks[i].Phis)
	}
	assert.Equal(t, 1, phis)
	assert.Equal(t, hir.TermIf, f.Fn.Block(f.Fn.Entry).Term.Kind)
}

func TestCompileUnit_BuildErrorIsolated(t *testing.T) {
	src := `function bad() { for (const k in o) { g(k); } return 1; }
function good(a) { return a + 1; }`
	res := compileUnit(t, hir.DefaultFeatures(), src, Options{})
	require.Len(t, res.Functions, 2)

	bad, good := res.Functions[0], res.Functions[1]
	assert.Equal(t, "bad", bad.Name)
	assert.Equal(t, ErrorBuild, bad.Kind)
	assert.Nil(t, bad.Fn)
	require.NotEmpty(t, bad.Diagnostics)
	assert.Equal(t, diag.HirUnsupported, bad.Diagnostics[0].Code)

	assert.Equal(t, "good", good.Name)
	require.NoError(t, good.Err)
	require.NotNil(t, good.Fn)
	assert.True(t, good.Fn.SSA)

	out := res.Output()
	assert.True(t, strings.HasPrefix(out, bad.Output), "error text comes first:\n%s", out)
	assert.Contains(t, out, "\n\n"+good.Output)
	assert.NoError(t, res.Err(), "build errors are not internal")
}

func TestCompileUnit_MemoFeatureToggle(t *testing.T) {
	src := `function C(a) { const v = useMemo(() => a + 1, [a]); return v; }`
	on := compileUnit(t, hir.DefaultFeatures(), src, Options{})
	off := compileUnit(t, hir.DefaultFeatures().With(hir.FeatureInlineUseMemo, false), src, Options{})
	assert.NotContains(t, on.Output(), "Call")
	assert.Contains(t, off.Output(), "Call")
}

func TestCompileUnit_PreservesOrderInParallel(t *testing.T) {
	var sb strings.Builder
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		sb.WriteString("function " + name + "(x) { return x * 2; }\n")
	}
	res := compileUnit(t, hir.DefaultFeatures(), sb.String(), Options{Jobs: 4})
	var names []string
	for _, f := range res.Functions {
		require.NoError(t, f.Err)
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, names)
}

func TestCompileUnit_PassSubset(t *testing.T) {
	passes, err := SelectPasses([]string{"enter_ssa"})
	require.NoError(t, err)
	res := compileUnit(t, hir.DefaultFeatures(), `function f() { let x = 1; return x + 2; }`, Options{Passes: passes})
	f := res.Functions[0]
	require.NoError(t, f.Err)
	assert.True(t, f.Fn.SSA)
	assert.Contains(t, f.Output, "Binary", "folding did not run")
}

func TestCompileUnit_AssertValidHIR(t *testing.T) {
	features := hir.DefaultFeatures().With(hir.FeatureAssertValidHIR, true)
	res := compileUnit(t, features, `function f(c) { let x = 0; while (c) { x = x + 1; } return x; }`, Options{})
	require.NoError(t, res.Functions[0].Err)
}

func TestCompileUnit_InternalError(t *testing.T) {
	broken := Pass{Name: "enter_ssa_twice", Run: func(env *hir.Environment, fn *hir.Function) error {
		fn.SSA = true
		return DefaultPasses()[0].Run(env, fn)
	}}
	res := compileUnit(t, hir.DefaultFeatures(), `function f(a) { return a; }`, Options{Passes: []Pass{broken}})
	f := res.Functions[0]
	assert.Equal(t, ErrorInternal, f.Kind)
	assert.ErrorIs(t, f.Err, hir.ErrInvariant)
	assert.True(t, f.Fn.Errored)
	assert.ErrorIs(t, res.Err(), hir.ErrInvariant)
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) OnEvent(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

func TestCompileUnit_ProgressAndTimings(t *testing.T) {
	sink := &recordingSink{}
	timer := observ.NewTimer()
	compileUnit(t, hir.DefaultFeatures(), `function f(a) { return a; }`, Options{Sink: sink, Timer: timer})

	var done []Stage
	for _, evt := range sink.events {
		if evt.Status == StatusDone {
			done = append(done, evt.Stage)
		}
	}
	want := []Stage{StageBuild}
	for _, name := range PassNames() {
		want = append(want, Stage(name))
	}
	want = append(want, StagePrint)
	assert.Equal(t, want, done)

	report := timer.Report()
	assert.Len(t, report.Phases, len(want))
}

func TestSelectPasses(t *testing.T) {
	all, err := SelectPasses(nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	picked, err := SelectPasses([]string{"constant_propagation", " enter_ssa "})
	require.NoError(t, err)
	require.Len(t, picked, 2)
	assert.Equal(t, "constant_propagation", picked[0].Name)
	assert.Equal(t, "enter_ssa", picked[1].Name)

	_, err = SelectPasses([]string{"dead_code"})
	assert.ErrorContains(t, err, `unknown pass "dead_code"`)
}

func TestCompileUnit_Cancelled(t *testing.T) {
	env, prog := setup(t, hir.DefaultFeatures(), `function f(a) { return a; }`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := CompileUnit(ctx, env, prog, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
