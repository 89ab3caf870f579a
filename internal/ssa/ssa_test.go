package ssa

import (
	"errors"
	"strings"
	"testing"

	"forget/internal/hir"
	"forget/internal/parser"
	"forget/internal/sema"
	"forget/internal/source"
)

var span = source.Span{File: 1, Start: 0, End: 1}

func buildSSA(t *testing.T, src string) (*hir.Environment, *hir.Function) {
	t.Helper()
	prog, err := parser.Parse(1, "test.js", []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	an, err := sema.Analyze(prog)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	reg, err := hir.NewRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	env := hir.NewEnvironment(hir.DefaultFeatures(), reg, an)
	fn, err := hir.Build(env, prog.Functions()[0])
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := EnterSSA(env, fn); err != nil {
		t.Fatalf("enter ssa: %v\n%s", err, fn)
	}
	if err := hir.Validate(fn); err != nil {
		t.Fatalf("validate after enter ssa: %v\n%s", err, fn)
	}
	return env, fn
}

func phiCount(fn *hir.Function) int {
	n := 0
	for i := range fn.Blocks {
		n += len(fn.Blocks[i].Phis)
	}
	return n
}

// definer returns the instruction that defines id, or nil.
func definer(fn *hir.Function, id hir.IdentifierID) *hir.Instr {
	for i := range fn.Blocks {
		for j := range fn.Blocks[i].Instrs {
			if in := &fn.Blocks[i].Instrs[j]; in.Lvalue == id {
				return in
			}
		}
	}
	return nil
}

func TestEnterSSA_MergePhi(t *testing.T) {
	env, fn := buildSSA(t, `function f(c) { let x; if (c) { x = 1; } else { x = 2; } return x; }`)
	EliminateRedundantPhis(env, fn)
	if err := hir.Validate(fn); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got := phiCount(fn); got != 1 {
		t.Fatalf("expected one phi, got %d\n%s", got, fn)
	}
	join := &fn.Blocks[len(fn.Blocks)-1]
	if len(join.Phis) != 1 || len(join.Phis[0].Operands) != 2 {
		t.Fatalf("merge block should hold the phi\n%s", fn)
	}
	if name := fn.Idents.Get(join.Phis[0].Lvalue).Name; name != "x" {
		t.Fatalf("phi names %q, want x", name)
	}
	// Each operand is a renamed x whose store reads a literal.
	for _, op := range join.Phis[0].Operands {
		pred := fn.Block(op.Pred)
		var store *hir.Instr
		for j := range pred.Instrs {
			if in := &pred.Instrs[j]; in.Kind == hir.InstrStoreLocal && in.Local.Var == op.Value {
				store = in
			}
		}
		if store == nil {
			t.Fatalf("no store of %s in bb%d\n%s", fn.Idents.Label(op.Value), op.Pred, fn)
		}
		if lit := definer(fn, store.Local.Value); lit == nil || lit.Kind != hir.InstrPrimitive {
			t.Fatalf("store of %s does not read a literal", fn.Idents.Label(op.Value))
		}
	}
}

func TestEnterSSA_SingleDefinitions(t *testing.T) {
	_, fn := buildSSA(t, `function f(n) {
		let s = 0;
		for (let i = 0; i < n; i++) {
			if (i % 2 === 0) { s += i; } else { s -= 1; }
		}
		return s;
	}`)
	seen := make(map[hir.IdentifierID]bool)
	for i := range fn.Blocks {
		b := &fn.Blocks[i]
		for _, phi := range b.Phis {
			if seen[phi.Lvalue] {
				t.Fatalf("%s defined twice", fn.Idents.Label(phi.Lvalue))
			}
			seen[phi.Lvalue] = true
		}
		for j := range b.Instrs {
			b.Instrs[j].EachDef(func(id *hir.IdentifierID) {
				if seen[*id] {
					t.Fatalf("%s defined twice", fn.Idents.Label(*id))
				}
				seen[*id] = true
			})
		}
	}
	if phiCount(fn) < 2 {
		t.Fatalf("loop should carry phis for s and i\n%s", fn)
	}
}

func TestEnterSSA_PrunesDeadPhis(t *testing.T) {
	_, fn := buildSSA(t, `function f(c) { let x = 0; if (c) { x = 1; g(x); } return 0; }`)
	if got := phiCount(fn); got != 0 {
		t.Fatalf("x is dead at the merge, got %d phis\n%s", got, fn)
	}
}

func TestEnterSSA_ParamsKeepIdentifiers(t *testing.T) {
	_, fn := buildSSA(t, `function f(a) { return a; }`)
	load := fn.Blocks[0].Instrs[0]
	if load.Kind != hir.InstrLoadLocal || load.Local.Var != fn.Params[0] {
		t.Fatalf("parameter read should use the parameter identifier\n%s", fn)
	}
}

func TestEnterSSA_SeedsClosureCaptures(t *testing.T) {
	_, fn := buildSSA(t, `function f(a) { let y = a + 1; const g = () => y * 2; return g(); }`)
	var closure *hir.Instr
	for i := range fn.Blocks {
		for j := range fn.Blocks[i].Instrs {
			if in := &fn.Blocks[i].Instrs[j]; in.Kind == hir.InstrFunction {
				closure = in
			}
		}
	}
	if closure == nil || len(closure.Function.Context) != 1 {
		t.Fatalf("expected one capture\n%s", fn)
	}
	y := closure.Function.Context[0]
	inner := closure.Function.Fn
	if !inner.SSA {
		t.Fatalf("nested function not converted")
	}
	found := false
	for i := range inner.Blocks {
		for j := range inner.Blocks[i].Instrs {
			in := &inner.Blocks[i].Instrs[j]
			if in.Kind == hir.InstrLoadLocal && in.Local.Var == y {
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("closure should read the renamed y %s\n%s", fn.Idents.Label(y), fn)
	}
}

func TestEnterSSA_ContextVariablesUntouched(t *testing.T) {
	_, fn := buildSSA(t, `function f() { let x = 0; const inc = () => { x = x + 1; }; inc(); return x; }`)
	for i := range fn.Blocks {
		for j := range fn.Blocks[i].Instrs {
			in := &fn.Blocks[i].Instrs[j]
			if in.Kind == hir.InstrStoreContext && !fn.Idents.IsContext(in.Local.Var) {
				t.Fatalf("context store was renamed\n%s", fn)
			}
		}
	}
}

func TestEnterSSA_Twice(t *testing.T) {
	env, fn := buildSSA(t, `function f() { return 1; }`)
	err := EnterSSA(env, fn)
	if !errors.Is(err, hir.ErrInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}
}

func TestEnterSSA_InvariantErrors(t *testing.T) {
	t.Run("missing-definition", func(t *testing.T) {
		ids := hir.NewIdentifiers()
		c := ids.NewTemporary(span)
		x := ids.NewNamed("x", sema.NoBindingID, false, span)
		one := ids.NewTemporary(span)
		load := ids.NewTemporary(span)
		store := ids.NewTemporary(span)
		fn := &hir.Function{Name: "m", Idents: ids, Params: []hir.IdentifierID{c}}
		fn.Blocks = []hir.Block{
			{ID: 0, Term: hir.Terminator{Kind: hir.TermIf, If: hir.IfTerm{Test: c, Then: 1, Else: 2}}},
			{ID: 1, Instrs: []hir.Instr{
				{Kind: hir.InstrPrimitive, Lvalue: one, Primitive: hir.Number(1)},
				{Kind: hir.InstrStoreLocal, Lvalue: store, Local: hir.LocalOp{Kind: hir.DeclReassign, Var: x, Value: one}},
			}, Term: hir.Terminator{Kind: hir.TermGoto, Goto: hir.GotoTerm{Target: 2}}},
			{ID: 2, Instrs: []hir.Instr{
				{Kind: hir.InstrLoadLocal, Lvalue: load, Local: hir.LocalOp{Var: x, Value: hir.NoIdentifierID}},
			}, Term: hir.Terminator{Kind: hir.TermReturn, Return: hir.ReturnTerm{Value: load}}},
		}
		fn.RecomputePreds()
		err := EnterSSA(nil, fn)
		var inv *hir.InvariantError
		if !errors.As(err, &inv) || !strings.Contains(err.Error(), "no definition") {
			t.Fatalf("expected missing definition, got %v", err)
		}
	})
	t.Run("unreachable", func(t *testing.T) {
		ids := hir.NewIdentifiers()
		v := ids.NewTemporary(span)
		fn := &hir.Function{Name: "u", Idents: ids}
		fn.Blocks = []hir.Block{
			{ID: 0, Instrs: []hir.Instr{{Kind: hir.InstrPrimitive, Lvalue: v, Primitive: hir.Undefined()}},
				Term: hir.Terminator{Kind: hir.TermReturn, Return: hir.ReturnTerm{Value: v}}},
			{ID: 1, Term: hir.Terminator{Kind: hir.TermReturn, Return: hir.ReturnTerm{Value: v}}},
		}
		if err := EnterSSA(nil, fn); !errors.Is(err, hir.ErrInvariant) {
			t.Fatalf("expected invariant error, got %v", err)
		}
	})
	t.Run("nonexistent-target", func(t *testing.T) {
		fn := &hir.Function{Name: "n", Idents: hir.NewIdentifiers()}
		fn.Blocks = []hir.Block{{ID: 0, Term: hir.Terminator{Kind: hir.TermGoto, Goto: hir.GotoTerm{Target: 5}}}}
		if err := EnterSSA(nil, fn); !errors.Is(err, hir.ErrInvariant) {
			t.Fatalf("expected invariant error, got %v", err)
		}
	})
}
