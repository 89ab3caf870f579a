package ssa

import "forget/internal/hir"

// varSet is a set of pre-SSA variables.
type varSet map[hir.IdentifierID]struct{}

func (s varSet) add(id hir.IdentifierID) { s[id] = struct{}{} }

func (s varSet) has(id hir.IdentifierID) bool {
	_, ok := s[id]
	return ok
}

// blockLiveness holds the upward-exposed uses, definitions and live-in set
// of one block.
type blockLiveness struct {
	use varSet
	def varSet
	in  varSet
}

// computeLiveness finds, for every block, the variables whose current
// value may still be read. Only identifiers in vars are tracked.
func computeLiveness(f *hir.Function, vars varSet) []blockLiveness {
	info := make([]blockLiveness, len(f.Blocks))
	for i := range f.Blocks {
		info[i].use, info[i].def = blockUseDef(&f.Blocks[i], vars)
		info[i].in = varSet{}
		for id := range info[i].use {
			info[i].in.add(id)
		}
	}

	// Backward worklist over predecessors.
	queue := make([]hir.BlockID, 0, len(f.Blocks))
	queued := make([]bool, len(f.Blocks))
	for i := len(f.Blocks) - 1; i >= 0; i-- {
		queue = append(queue, f.Blocks[i].ID)
		queued[i] = true
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		queued[id] = false

		b := f.Block(id)
		in := info[id].in
		grew := false
		for _, s := range b.Term.Successors() {
			for v := range info[s].in {
				if info[id].def.has(v) || in.has(v) {
					continue
				}
				in.add(v)
				grew = true
			}
		}
		if !grew {
			continue
		}
		for _, p := range b.Preds {
			if !queued[p] {
				queued[p] = true
				queue = append(queue, p)
			}
		}
	}
	return info
}

func blockUseDef(b *hir.Block, vars varSet) (use, def varSet) {
	use, def = varSet{}, varSet{}
	for i := range b.Instrs {
		in := &b.Instrs[i]
		in.EachOperand(func(id *hir.IdentifierID) {
			if vars.has(*id) && !def.has(*id) {
				use.add(*id)
			}
		})
		if in.Kind == hir.InstrStoreLocal && vars.has(in.Local.Var) {
			def.add(in.Local.Var)
		}
	}
	b.Term.EachOperand(func(id *hir.IdentifierID) {
		if vars.has(*id) && !def.has(*id) {
			use.add(*id)
		}
	})
	return use, def
}
