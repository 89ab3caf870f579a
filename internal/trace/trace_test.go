package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestLevelFiltersScopes(t *testing.T) {
	cases := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelError, ScopeDriver, false},
		{LevelPhase, ScopePass, true},
		{LevelPhase, ScopeFunction, false},
		{LevelDetail, ScopeFunction, true},
		{LevelDetail, ScopeNode, false},
		{LevelDebug, ScopeNode, true},
	}
	for _, c := range cases {
		if got := c.level.ShouldEmit(c.scope); got != c.want {
			t.Errorf("%s.ShouldEmit(%s) = %v, want %v", c.level, c.scope, got, c.want)
		}
	}
}

func TestRingTracer_Wraps(t *testing.T) {
	r := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		r.Emit(&Event{Kind: KindPoint, Scope: ScopePass, Name: name})
	}
	got := r.Snapshot()
	if len(got) != 2 || got[0].Name != "b" || got[1].Name != "c" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
	if got[0].Seq >= got[1].Seq {
		t.Errorf("sequence numbers not increasing: %d, %d", got[0].Seq, got[1].Seq)
	}
}

func TestStartPropagatesParent(t *testing.T) {
	r := NewRingTracer(16, LevelDebug)
	ctx := WithTracer(context.Background(), r)

	ctx, outer := Start(ctx, ScopePass, "outer")
	_, inner := Start(ctx, ScopeFunction, "inner")
	inner.End("")
	outer.End("done")

	events := r.Snapshot()
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if events[1].ParentID != outer.ID() {
		t.Errorf("inner parent = %d, want %d", events[1].ParentID, outer.ID())
	}
	if events[3].Detail != "done" {
		t.Errorf("outer end detail = %q", events[3].Detail)
	}
}

func TestStreamTracer_Text(t *testing.T) {
	var buf bytes.Buffer
	st := NewStreamTracer(&buf, LevelPhase, FormatText)
	sp := Begin(st, ScopePass, "constant_propagation", 0)
	sp.WithExtra("changed", "true").End("")
	Begin(st, ScopeFunction, "filtered", 0).End("")

	out := buf.String()
	if strings.Count(out, "\n") != 2 {
		t.Fatalf("expected 2 lines, got:\n%s", out)
	}
	if !strings.Contains(out, "← constant_propagation {changed=true}") {
		t.Errorf("missing end line:\n%s", out)
	}
}

func TestNewOffIsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil {
		t.Fatal(err)
	}
	if tr.Enabled() {
		t.Fatal("LevelOff tracer must be disabled")
	}
}

func TestRingTracer_Dump(t *testing.T) {
	r := NewRingTracer(4, LevelDebug)
	r.Emit(&Event{Kind: KindPoint, Scope: ScopePass, Name: "enter_ssa"})

	var buf bytes.Buffer
	if err := r.Dump(&buf, ResolveFormat(FormatAuto, "trace.ndjson")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"name":"enter_ssa"`) {
		t.Fatalf("ndjson dump missing event:\n%s", buf.String())
	}

	buf.Reset()
	if err := r.Dump(&buf, ResolveFormat(FormatAuto, "")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "• enter_ssa") {
		t.Fatalf("text dump missing event:\n%s", buf.String())
	}
}
