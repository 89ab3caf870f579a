package hir

import (
	"errors"
	"fmt"
	"slices"
)

// Validate checks the structural invariants of fn and, once fn is in SSA
// form, single definitions and def-use dominance. Nested functions are
// checked too. Every violation is reported.
func Validate(fn *Function) error {
	return validateFunc(fn, nil)
}

func validateFunc(f *Function, captured map[IdentifierID]bool) error {
	if f == nil {
		return nil
	}
	var errs []error
	structural := validateStructure(f)
	errs = append(errs, structural)
	if structural == nil && f.SSA {
		errs = append(errs, validateSSA(f, captured))
	}
	for i := range f.Blocks {
		for j := range f.Blocks[i].Instrs {
			in := &f.Blocks[i].Instrs[j]
			if in.Kind != InstrFunction || in.Function.Fn == nil {
				continue
			}
			inner := make(map[IdentifierID]bool, len(in.Function.Context))
			for _, id := range in.Function.Context {
				inner[id] = true
			}
			errs = append(errs, validateFunc(in.Function.Fn, inner))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("function %s: %w", f.DisplayName(), err)
	}
	return nil
}

func validateStructure(f *Function) error {
	var errs []error
	if f.Block(f.Entry) == nil {
		return fmt.Errorf("entry bb%d does not exist", f.Entry)
	}
	for i := range f.Blocks {
		if f.Blocks[i].ID != BlockID(i) { //nolint:gosec // bounded by block count
			errs = append(errs, fmt.Errorf("block at index %d has id bb%d", i, f.Blocks[i].ID))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	expected := make([][]BlockID, len(f.Blocks))
	for i := range f.Blocks {
		b := &f.Blocks[i]
		if !b.Terminated() {
			errs = append(errs, fmt.Errorf("bb%d: unterminated block", b.ID))
			continue
		}
		b.Term.EachTarget(func(id *BlockID) {
			if f.Block(*id) == nil {
				errs = append(errs, fmt.Errorf("bb%d: %s target bb%d does not exist", b.ID, b.Term.Kind, *id))
			}
		})
		for _, s := range b.Term.Successors() {
			if f.Block(s) != nil {
				expected[s] = append(expected[s], b.ID)
			}
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	reachable := f.Reachable()
	for i := range f.Blocks {
		b := &f.Blocks[i]
		if !reachable[i] {
			errs = append(errs, fmt.Errorf("bb%d: unreachable from entry", b.ID))
		}
		if !slices.Equal(b.Preds, expected[i]) {
			errs = append(errs, fmt.Errorf("bb%d: preds %v, want %v", b.ID, b.Preds, expected[i]))
			continue
		}
		for _, phi := range b.Phis {
			if len(phi.Operands) != len(b.Preds) {
				errs = append(errs, fmt.Errorf("bb%d: phi %d has %d operands for %d preds",
					b.ID, phi.Lvalue, len(phi.Operands), len(b.Preds)))
				continue
			}
			for k, op := range phi.Operands {
				if op.Pred != b.Preds[k] {
					errs = append(errs, fmt.Errorf("bb%d: phi %d operand %d comes from bb%d, want bb%d",
						b.ID, phi.Lvalue, k, op.Pred, b.Preds[k]))
				}
				if !op.Value.IsValid() {
					errs = append(errs, fmt.Errorf("bb%d: phi %d has no value for bb%d", b.ID, phi.Lvalue, op.Pred))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// defSite locates a definition. Index -1 is a phi, -2 a parameter.
type defSite struct {
	block BlockID
	index int
}

func validateSSA(f *Function, captured map[IdentifierID]bool) error {
	var errs []error
	ids := f.Idents
	defs := make(map[IdentifierID]defSite)
	define := func(id IdentifierID, site defSite) {
		if !id.IsValid() || ids.IsContext(id) {
			return
		}
		if prev, dup := defs[id]; dup {
			errs = append(errs, fmt.Errorf("%s defined in bb%d and bb%d", ids.Label(id), prev.block, site.block))
			return
		}
		defs[id] = site
	}
	for _, p := range f.Params {
		define(p, defSite{block: f.Entry, index: -2})
	}
	for i := range f.Blocks {
		b := &f.Blocks[i]
		for _, phi := range b.Phis {
			define(phi.Lvalue, defSite{block: b.ID, index: -1})
		}
		for j := range b.Instrs {
			b.Instrs[j].EachDef(func(id *IdentifierID) {
				define(*id, defSite{block: b.ID, index: j})
			})
		}
	}

	dom := ComputeDominators(f)
	// available reports whether id is usable at position index of block.
	available := func(id IdentifierID, block BlockID, index int) bool {
		if ids.IsContext(id) || captured[id] {
			return true
		}
		site, ok := defs[id]
		if !ok {
			return false
		}
		if site.block == block {
			return site.index < index
		}
		return dom.Dominates(site.block, block)
	}
	const atEnd = 1 << 30

	for i := range f.Blocks {
		b := &f.Blocks[i]
		for _, phi := range b.Phis {
			for _, op := range phi.Operands {
				if op.Value.IsValid() && !available(op.Value, op.Pred, atEnd) {
					errs = append(errs, fmt.Errorf("bb%d: phi %s operand %s does not reach from bb%d",
						b.ID, ids.Label(phi.Lvalue), ids.Label(op.Value), op.Pred))
				}
			}
		}
		for j := range b.Instrs {
			b.Instrs[j].EachOperand(func(id *IdentifierID) {
				if !available(*id, b.ID, j) {
					errs = append(errs, fmt.Errorf("bb%d: %s uses %s before its definition",
						b.ID, b.Instrs[j].Kind, ids.Label(*id)))
				}
			})
		}
		b.Term.EachOperand(func(id *IdentifierID) {
			if !available(*id, b.ID, atEnd) {
				errs = append(errs, fmt.Errorf("bb%d: %s uses %s before its definition", b.ID, b.Term.Kind, ids.Label(*id)))
			}
		})
	}
	return errors.Join(errs...)
}
