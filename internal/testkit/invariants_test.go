package testkit

import (
	"strings"
	"testing"

	"forget/internal/ast"
	"forget/internal/parser"
	"forget/internal/source"
)

func parse(t *testing.T, src string) (*ast.Program, *source.File) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("k.js", []byte(src))
	prog, err := parser.ParseFile(fs, id)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return prog, fs.Get(id)
}

func TestCheckSpanInvariants(t *testing.T) {
	prog, file := parse(t, `function C(a) {
  let x = 0;
  if (a) { x = 1; } else { x = 2; }
  for (let i = 0; i < a; i++) { x += i; }
  switch (x) { case 1: break; default: x = 3; }
  try { g(); } catch (e) { h(e); } finally { k(); }
  function inner() { return x; }
  return inner();
}
const y = 1;`)
	if err := CheckSpanInvariants(prog, file); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestCheckSpanInvariants_Detects(t *testing.T) {
	prog, file := parse(t, "function f() { return 1; }\nfunction g() { return 2; }")
	prog.Body[1].Span.Start = prog.Body[0].Span.Start
	err := CheckSpanInvariants(prog, file)
	if err == nil || !strings.Contains(err.Error(), "overlaps") {
		t.Fatalf("expected overlap error, got %v", err)
	}

	prog, file = parse(t, "function f() { return 1; }")
	prog.Span.End--
	if err := CheckSpanInvariants(prog, file); err == nil {
		t.Fatalf("expected program span error")
	}
}
