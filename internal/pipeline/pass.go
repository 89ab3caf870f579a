// Package pipeline runs the ordered pass list over the functions of a
// compilation unit.
package pipeline

import (
	"fmt"
	"strings"

	"forget/internal/hir"
	"forget/internal/inline"
	"forget/internal/opt"
	"forget/internal/ssa"
)

// Pass is one transformation of a lowered function.
type Pass struct {
	Name string
	Run  func(*hir.Environment, *hir.Function) error
}

// DefaultPasses returns the standard pass order.
func DefaultPasses() []Pass {
	return []Pass{
		{Name: "enter_ssa", Run: ssa.EnterSSA},
		{Name: "eliminate_redundant_phis", Run: eliminateRedundantPhis},
		{Name: "constant_propagation", Run: opt.ConstantPropagation},
		{Name: "inline_use_memo", Run: inline.InlineUseMemo},
	}
}

func eliminateRedundantPhis(env *hir.Environment, fn *hir.Function) error {
	ssa.EliminateRedundantPhis(env, fn)
	return nil
}

// PassNames lists the default pass names in order.
func PassNames() []string {
	passes := DefaultPasses()
	names := make([]string, 0, len(passes))
	for _, p := range passes {
		names = append(names, p.Name)
	}
	return names
}

// SelectPasses returns the named passes in the order given. An empty list
// selects the default order.
func SelectPasses(names []string) ([]Pass, error) {
	if len(names) == 0 {
		return DefaultPasses(), nil
	}
	known := make(map[string]Pass)
	for _, p := range DefaultPasses() {
		known[p.Name] = p
	}
	out := make([]Pass, 0, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		p, ok := known[name]
		if !ok {
			return nil, fmt.Errorf("pipeline: unknown pass %q (known: %s)", raw, strings.Join(PassNames(), ", "))
		}
		out = append(out, p)
	}
	return out, nil
}
