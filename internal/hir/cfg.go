package hir

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// ReversePostorder lists the blocks reachable from the entry in reverse
// postorder. Successors are explored last-first so that the then-branch of
// an If precedes its else-branch.
func (f *Function) ReversePostorder() []BlockID {
	if f.Block(f.Entry) == nil {
		return nil
	}
	visited := make([]bool, len(f.Blocks))
	type frame struct {
		id    BlockID
		succs []BlockID
		next  int
	}
	succsOf := func(id BlockID) []BlockID {
		s := f.Blocks[id].Term.Successors()
		slices.Reverse(s)
		return s
	}
	post := make([]BlockID, 0, len(f.Blocks))
	stack := []frame{{id: f.Entry, succs: succsOf(f.Entry)}}
	visited[f.Entry] = true
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.succs) {
			s := top.succs[top.next]
			top.next++
			if f.Block(s) != nil && !visited[s] {
				visited[s] = true
				stack = append(stack, frame{id: s, succs: succsOf(s)})
			}
			continue
		}
		post = append(post, top.id)
		stack = stack[:len(stack)-1]
	}
	slices.Reverse(post)
	return post
}

// Reachable reports, per block index, whether the entry reaches it.
func (f *Function) Reachable() []bool {
	out := make([]bool, len(f.Blocks))
	for _, id := range f.ReversePostorder() {
		out[id] = true
	}
	return out
}

// Canonicalize drops unreachable blocks, orders the rest in reverse
// postorder, renumbers them to their index and recomputes predecessor
// lists. Phi operands from dropped predecessors are removed.
func (f *Function) Canonicalize() {
	if len(f.Blocks) == 0 {
		return
	}
	order := f.ReversePostorder()
	oldToNew := make(map[BlockID]BlockID, len(order))
	for i, id := range order {
		raw, err := safecast.Conv[int32](i)
		if err != nil {
			panic(fmt.Errorf("hir: block id overflow: %w", err))
		}
		oldToNew[id] = BlockID(raw)
	}
	remap := func(id *BlockID) {
		if n, ok := oldToNew[*id]; ok {
			*id = n
		}
	}

	blocks := make([]Block, 0, len(order))
	for _, id := range order {
		b := f.Blocks[id]
		remap(&b.ID)
		b.Term.EachTarget(remap)
		for i := range b.Phis {
			ops := b.Phis[i].Operands[:0:0]
			for _, op := range b.Phis[i].Operands {
				if n, ok := oldToNew[op.Pred]; ok {
					ops = append(ops, PhiOperand{Pred: n, Value: op.Value})
				}
			}
			b.Phis[i].Operands = ops
		}
		blocks = append(blocks, b)
	}
	f.Blocks = blocks
	f.Entry = oldToNew[f.Entry]
	f.RecomputePreds()
}

// RecomputePreds rebuilds every predecessor list from the terminators in
// block order and reorders phi operands to match.
func (f *Function) RecomputePreds() {
	for i := range f.Blocks {
		f.Blocks[i].Preds = f.Blocks[i].Preds[:0]
	}
	for i := range f.Blocks {
		for _, s := range f.Blocks[i].Term.Successors() {
			if sb := f.Block(s); sb != nil {
				sb.Preds = append(sb.Preds, f.Blocks[i].ID)
			}
		}
	}
	for i := range f.Blocks {
		f.Blocks[i].syncPhis()
	}
}

// syncPhis orders phi operands like Preds, dropping operands of former
// predecessors. A predecessor without an operand gets NoIdentifierID.
func (b *Block) syncPhis() {
	for i := range b.Phis {
		phi := &b.Phis[i]
		ops := make([]PhiOperand, 0, len(b.Preds))
		for _, p := range b.Preds {
			op := PhiOperand{Pred: p, Value: NoIdentifierID}
			for _, existing := range phi.Operands {
				if existing.Pred == p {
					op.Value = existing.Value
					break
				}
			}
			ops = append(ops, op)
		}
		phi.Operands = ops
	}
}

// MergeBlocks folds a block into its predecessor when the predecessor
// jumps only to it and it has no other predecessor. Phis of the folded
// block are replaced by their single operand. It reports whether any
// block was merged; the function is canonical afterwards when it was.
func (f *Function) MergeBlocks() bool {
	merged := false
	for {
		var pred, succ *Block
		for i := range f.Blocks {
			b := &f.Blocks[i]
			if b.Term.Kind != TermGoto {
				continue
			}
			s := f.Block(b.Term.Goto.Target)
			if s == nil || s.ID == b.ID || s.ID == f.Entry || len(s.Preds) != 1 {
				continue
			}
			pred, succ = b, s
			break
		}
		if pred == nil {
			return merged
		}

		replace := make(map[IdentifierID]IdentifierID, len(succ.Phis))
		for _, phi := range succ.Phis {
			replace[phi.Lvalue] = phi.Operands[0].Value
		}
		succ.Phis = nil

		pred.Instrs = append(pred.Instrs, succ.Instrs...)
		pred.Term = succ.Term
		succ.Instrs = nil
		succ.Term = Terminator{Kind: TermUnreachable}
		for _, target := range pred.Term.Successors() {
			f.Block(target).RenamePred(succ.ID, pred.ID)
		}
		if len(replace) > 0 {
			f.ReplaceUses(func(id IdentifierID) IdentifierID {
				for {
					next, ok := replace[id]
					if !ok {
						return id
					}
					id = next
				}
			})
		}
		f.Canonicalize()
		merged = true
	}
}

// RenamePred rewrites phi operands arriving from old to come from repl.
func (b *Block) RenamePred(old, repl BlockID) {
	for i := range b.Preds {
		if b.Preds[i] == old {
			b.Preds[i] = repl
		}
	}
	for i := range b.Phis {
		for j := range b.Phis[i].Operands {
			if b.Phis[i].Operands[j].Pred == old {
				b.Phis[i].Operands[j].Pred = repl
			}
		}
	}
}
