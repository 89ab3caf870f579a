package ssa

import "forget/internal/hir"

type phiRef struct {
	block hir.BlockID
	value hir.IdentifierID
}

// EliminateRedundantPhis removes every phi whose operands, ignoring the
// phi itself, are all the same value, and rewrites its uses to that
// value. Removing one phi can make its users redundant, so they are
// revisited until nothing changes. Nested functions are processed too.
func EliminateRedundantPhis(env *hir.Environment, fn *hir.Function) {
	if fn == nil {
		return
	}
	replaced := make(map[hir.IdentifierID]hir.IdentifierID)
	resolve := func(id hir.IdentifierID) hir.IdentifierID {
		root := id
		for {
			next, ok := replaced[root]
			if !ok {
				break
			}
			root = next
		}
		// Path compression.
		for id != root {
			next := replaced[id]
			replaced[id] = root
			id = next
		}
		return root
	}

	users := make(map[hir.IdentifierID][]phiRef)
	var work []phiRef
	for i := range fn.Blocks {
		b := &fn.Blocks[i]
		for _, phi := range b.Phis {
			ref := phiRef{block: b.ID, value: phi.Lvalue}
			work = append(work, ref)
			for _, op := range phi.Operands {
				users[op.Value] = append(users[op.Value], ref)
			}
		}
	}

	removed := make(map[hir.IdentifierID]bool)
	for len(work) > 0 {
		ref := work[0]
		work = work[1:]
		if removed[ref.value] {
			continue
		}
		phi := findPhi(fn.Block(ref.block), ref.value)
		if phi == nil {
			continue
		}
		same := hir.NoIdentifierID
		redundant := true
		for _, op := range phi.Operands {
			v := resolve(op.Value)
			if v == phi.Lvalue || v == same {
				continue
			}
			if same.IsValid() {
				redundant = false
				break
			}
			same = v
		}
		if !redundant || !same.IsValid() {
			continue
		}
		removed[phi.Lvalue] = true
		replaced[phi.Lvalue] = same
		// Users now read same; they must be revisited if same goes too.
		users[same] = append(users[same], users[phi.Lvalue]...)
		for _, u := range users[phi.Lvalue] {
			if !removed[u.value] {
				work = append(work, u)
			}
		}
	}
	if len(removed) == 0 {
		fn.EachNested(func(nested *hir.Function) { EliminateRedundantPhis(env, nested) })
		return
	}

	for i := range fn.Blocks {
		b := &fn.Blocks[i]
		kept := b.Phis[:0]
		for _, phi := range b.Phis {
			if !removed[phi.Lvalue] {
				kept = append(kept, phi)
			}
		}
		b.Phis = kept
	}
	fn.ReplaceUses(resolve)
	fn.EachNested(func(nested *hir.Function) { EliminateRedundantPhis(env, nested) })
}

func findPhi(b *hir.Block, lvalue hir.IdentifierID) *hir.Phi {
	if b == nil {
		return nil
	}
	for i := range b.Phis {
		if b.Phis[i].Lvalue == lvalue {
			return &b.Phis[i]
		}
	}
	return nil
}
