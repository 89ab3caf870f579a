package opt

import (
	"forget/internal/hir"
	"forget/internal/ssa"
)

const constPropPass = "constant_propagation"

// ConstantPropagation runs sparse conditional constant propagation on fn
// and its nested functions. Constant operators and loads become
// primitives, branches on constants become jumps, blocks left without a
// reachable predecessor are removed and single-predecessor chains are
// merged. The function is reprocessed until nothing changes.
func ConstantPropagation(env *hir.Environment, fn *hir.Function) error {
	if fn == nil {
		return nil
	}
	if !fn.SSA {
		return hir.Invariantf(constPropPass, fn, "function is not in SSA form")
	}
	for {
		s := newSCCP(fn)
		s.run()
		changed := s.rewrite()
		if pruneUnreachable(fn) {
			changed = true
		}
		if fn.MergeBlocks() {
			changed = true
		}
		if !changed {
			break
		}
		ssa.EliminateRedundantPhis(env, fn)
	}

	var err error
	fn.EachNested(func(nested *hir.Function) {
		if err == nil {
			err = ConstantPropagation(env, nested)
		}
	})
	return err
}

// rewrite applies the lattice to the executable blocks.
func (s *sccp) rewrite() bool {
	changed := false
	for i := range s.f.Blocks {
		b := &s.f.Blocks[i]
		if !s.executable[b.ID] {
			continue
		}

		var head []hir.Instr
		kept := b.Phis[:0]
		for _, phi := range b.Phis {
			if v := s.value(phi.Lvalue); v.state == stateConstant {
				head = append(head, hir.Instr{Kind: hir.InstrPrimitive, Lvalue: phi.Lvalue, Primitive: v.value})
				changed = true
				continue
			}
			kept = append(kept, phi)
		}
		b.Phis = kept

		for j := range b.Instrs {
			in := &b.Instrs[j]
			switch in.Kind {
			case hir.InstrBinary, hir.InstrUnary, hir.InstrLoadLocal:
			default:
				continue
			}
			if v := s.value(in.Lvalue); v.state == stateConstant {
				*in = hir.Instr{Kind: hir.InstrPrimitive, Lvalue: in.Lvalue, Span: in.Span, Primitive: v.value}
				changed = true
			}
		}
		if len(head) > 0 {
			b.Instrs = append(head, b.Instrs...)
		}

		switch b.Term.Kind {
		case hir.TermIf:
			if v := s.value(b.Term.If.Test); v.state == stateConstant {
				target := b.Term.If.Else
				if v.value.Truthy() {
					target = b.Term.If.Then
				}
				b.Term = hir.Terminator{Kind: hir.TermGoto, Span: b.Term.Span, Goto: hir.GotoTerm{Target: target}}
				changed = true
			}
		case hir.TermSwitch:
			if target, state := s.switchTarget(&b.Term); state == stateConstant {
				b.Term = hir.Terminator{Kind: hir.TermGoto, Span: b.Term.Span, Goto: hir.GotoTerm{Target: target}}
				changed = true
			}
		}
	}
	return changed
}

// pruneUnreachable drops blocks no longer reachable from the entry and
// renumbers the rest.
func pruneUnreachable(f *hir.Function) bool {
	before := len(f.Blocks)
	f.Canonicalize()
	return len(f.Blocks) != before
}
