package config

import "forget/internal/hir"

var memoShape = hir.MemoShape{Callback: 0, Deps: 1}

// pureMath lists the Math functions folded into the default registry.
var pureMath = []string{
	"abs", "ceil", "floor", "max", "min", "pow", "round", "sign", "sqrt", "trunc",
}

// DefaultEntries returns the built-in registry entries.
func DefaultEntries() []hir.Entry {
	entries := []hir.Entry{
		{Name: "React", Kind: hir.EntryObject, Effect: hir.EffectRead, Arity: -1},
		{Name: "Math", Kind: hir.EntryObject, Effect: hir.EffectPure, Arity: -1},
		{Name: "useCallback", Kind: hir.EntryHook, Effect: hir.EffectPure, Arity: 2},
		{Name: "React.useCallback", Kind: hir.EntryHook, Effect: hir.EffectPure, Arity: 2},
		{Name: "useState", Kind: hir.EntryHook, Effect: hir.EffectMutate, Arity: 1},
		{Name: "React.useState", Kind: hir.EntryHook, Effect: hir.EffectMutate, Arity: 1},
		{Name: "useRef", Kind: hir.EntryHook, Effect: hir.EffectMutate, Arity: 1},
		{Name: "React.useRef", Kind: hir.EntryHook, Effect: hir.EffectMutate, Arity: 1},
		{Name: "useEffect", Kind: hir.EntryHook, Effect: hir.EffectMutate, Arity: 2},
		{Name: "React.useEffect", Kind: hir.EntryHook, Effect: hir.EffectMutate, Arity: 2},
	}
	for _, name := range []string{"useMemo", "React.useMemo"} {
		shape := memoShape
		entries = append(entries, hir.Entry{Name: name, Kind: hir.EntryHook, Effect: hir.EffectPure, Arity: 2, Memo: &shape})
	}
	for _, name := range pureMath {
		entries = append(entries, hir.Entry{Name: "Math." + name, Kind: hir.EntryFunction, Effect: hir.EffectPure, Arity: -1})
	}
	return entries
}

// DefaultRegistry builds a registry from DefaultEntries.
func DefaultRegistry() *hir.Registry {
	reg, err := hir.NewRegistry(DefaultEntries()...)
	if err != nil {
		panic(err)
	}
	return reg
}

// Default returns the configuration used when no forget.toml is found.
func Default() Config {
	return Config{Features: hir.DefaultFeatures(), Registry: DefaultRegistry()}
}
