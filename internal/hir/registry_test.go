package hir

import (
	"strings"
	"testing"
)

func TestRegistry_Validation(t *testing.T) {
	cases := []struct {
		name    string
		entries []Entry
		want    string
	}{
		{"no-name", []Entry{{Kind: EntryFunction}}, "without a name"},
		{"duplicate", []Entry{{Name: "a"}, {Name: "a"}}, "duplicate"},
		{"same-slot", []Entry{{Name: "m", Kind: EntryHook, Arity: 2, Memo: &MemoShape{Callback: 0, Deps: 0}}}, "memo shape"},
		{"beyond-arity", []Entry{{Name: "m", Kind: EntryHook, Arity: 1, Memo: &MemoShape{Callback: 0, Deps: 1}}}, "arity"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRegistry(tc.entries...)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestRegistry_LookupAndOrder(t *testing.T) {
	shape := &MemoShape{Callback: 0, Deps: 1}
	reg, err := NewRegistry(
		Entry{Name: "useMemo", Kind: EntryHook, Effect: EffectPure, Arity: 2, Memo: shape},
		Entry{Name: "Math.abs", Kind: EntryFunction, Effect: EffectPure, Arity: 1},
		Entry{Name: "useState", Kind: EntryHook, Effect: EffectUnknown, Arity: -1},
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	shape.Callback = 5
	e, ok := reg.Lookup("useMemo")
	if !ok || !e.IsMemoHook() || e.Memo.Callback != 0 {
		t.Fatalf("useMemo entry = %+v", e)
	}
	if e, _ := reg.Lookup("useState"); e.IsMemoHook() {
		t.Fatalf("useState must not be a memo hook")
	}
	if _, ok := reg.Lookup("missing"); ok {
		t.Fatalf("unexpected entry")
	}
	var names []string
	for _, e := range reg.Entries() {
		names = append(names, e.Name)
	}
	if got := strings.Join(names, ","); got != "Math.abs,useMemo,useState" {
		t.Fatalf("entries = %s", got)
	}
	var nilReg *Registry
	if nilReg.Len() != 0 || nilReg.Entries() != nil {
		t.Fatalf("nil registry should be empty")
	}
}

func TestRegistry_ParseKinds(t *testing.T) {
	if k, err := ParseEntryKind("hook"); err != nil || k != EntryHook {
		t.Fatalf("ParseEntryKind(hook) = %v, %v", k, err)
	}
	if _, err := ParseEntryKind("widget"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if e, err := ParseEffect("pure"); err != nil || e != EffectPure {
		t.Fatalf("ParseEffect(pure) = %v, %v", e, err)
	}
}

func TestFeatures(t *testing.T) {
	fs := DefaultFeatures()
	if !fs.Enabled(FeatureInlineUseMemo) || fs.Enabled(FeatureValidateFrozenLambdas) {
		t.Fatalf("unexpected defaults: %s", fs)
	}
	off := fs.With(FeatureInlineUseMemo, false)
	if off.Enabled(FeatureInlineUseMemo) || !fs.Enabled(FeatureInlineUseMemo) {
		t.Fatalf("With must not mutate the receiver")
	}
	if got := off.String(); got != "assert_valid_hir=false,inline_use_memo=false,validate_frozen_lambdas=false" {
		t.Fatalf("String() = %s", got)
	}
	if _, err := ParseFeature("bogus"); err == nil {
		t.Fatalf("expected error for unknown feature")
	}
	if f, err := ParseFeature(" inline_use_memo "); err != nil || f != FeatureInlineUseMemo {
		t.Fatalf("ParseFeature = %v, %v", f, err)
	}
}
