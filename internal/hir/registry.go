package hir

import (
	"fmt"
	"slices"
	"strings"
)

// EntryKind classifies a known global API.
type EntryKind uint8

const (
	EntryFunction EntryKind = iota
	EntryHook
	EntryObject
)

func (k EntryKind) String() string {
	switch k {
	case EntryHook:
		return "hook"
	case EntryObject:
		return "object"
	default:
		return "function"
	}
}

// ParseEntryKind maps the configuration spelling to an EntryKind.
func ParseEntryKind(s string) (EntryKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "function":
		return EntryFunction, nil
	case "hook":
		return EntryHook, nil
	case "object":
		return EntryObject, nil
	}
	return EntryFunction, fmt.Errorf("unknown registry kind %q", s)
}

// Effect is the purity expectation of an API.
type Effect uint8

const (
	EffectUnknown Effect = iota
	// EffectPure calls neither mutate their arguments nor observe mutable state.
	EffectPure
	EffectRead
	EffectMutate
)

func (e Effect) String() string {
	switch e {
	case EffectPure:
		return "pure"
	case EffectRead:
		return "read"
	case EffectMutate:
		return "mutate"
	default:
		return "unknown"
	}
}

func ParseEffect(s string) (Effect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown":
		return EffectUnknown, nil
	case "pure":
		return EffectPure, nil
	case "read":
		return EffectRead, nil
	case "mutate":
		return EffectMutate, nil
	}
	return EffectUnknown, fmt.Errorf("unknown effect %q", s)
}

// MemoShape locates the callback and dependency-list arguments of a
// memoization hook.
type MemoShape struct {
	Callback int
	Deps     int
}

// Entry is the metadata of one known global API. Names of members use a
// dotted path such as "React.useMemo".
type Entry struct {
	Name   string
	Kind   EntryKind
	Effect Effect
	// Arity is the expected argument count, or -1 when variadic.
	Arity int
	Memo  *MemoShape
}

// IsMemoHook reports whether calls to e may be inlined by the memo inliner.
func (e Entry) IsMemoHook() bool {
	return e.Kind == EntryHook && e.Memo != nil
}

// Registry maps API names to metadata. It is read-only after construction.
type Registry struct {
	entries map[string]Entry
}

// NewRegistry validates and indexes entries.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("hir: registry entry without a name")
		}
		if _, dup := r.entries[e.Name]; dup {
			return nil, fmt.Errorf("hir: duplicate registry entry %q", e.Name)
		}
		if e.Memo != nil {
			if e.Memo.Callback < 0 || e.Memo.Deps < 0 || e.Memo.Callback == e.Memo.Deps {
				return nil, fmt.Errorf("hir: registry entry %q: invalid memo shape %d/%d", e.Name, e.Memo.Callback, e.Memo.Deps)
			}
			if e.Arity >= 0 && (e.Memo.Callback >= e.Arity || e.Memo.Deps >= e.Arity) {
				return nil, fmt.Errorf("hir: registry entry %q: memo arguments exceed arity %d", e.Name, e.Arity)
			}
			shape := *e.Memo
			e.Memo = &shape
		}
		r.entries[e.Name] = e
	}
	return r, nil
}

// Lookup returns the entry for name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}
	e, ok := r.entries[name]
	return e, ok
}

// Entries returns every entry sorted by name.
func (r *Registry) Entries() []Entry {
	if r == nil {
		return nil
	}
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}
