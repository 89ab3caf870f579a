package hir

// Dominators is the dominator tree of a function, computed with the
// iterative algorithm of Cooper, Harvey and Kennedy.
type Dominators struct {
	idom     []BlockID
	order    []int // reverse-postorder index per block, -1 when unreachable
	children [][]BlockID
	frontier [][]BlockID
}

// ComputeDominators requires block IDs to equal their index.
func ComputeDominators(f *Function) *Dominators {
	n := len(f.Blocks)
	d := &Dominators{
		idom:     make([]BlockID, n),
		order:    make([]int, n),
		children: make([][]BlockID, n),
		frontier: make([][]BlockID, n),
	}
	for i := range d.idom {
		d.idom[i] = NoBlockID
		d.order[i] = -1
	}
	rpo := f.ReversePostorder()
	if len(rpo) == 0 {
		return d
	}
	for i, id := range rpo {
		d.order[id] = i
	}
	entry := rpo[0]
	d.idom[entry] = entry

	for changed := true; changed; {
		changed = false
		for _, b := range rpo[1:] {
			newIdom := NoBlockID
			for _, p := range f.Blocks[b].Preds {
				if d.order[p] < 0 || !d.idom[p].IsValid() {
					continue
				}
				if !newIdom.IsValid() {
					newIdom = p
					continue
				}
				newIdom = d.intersect(p, newIdom)
			}
			if newIdom.IsValid() && d.idom[b] != newIdom {
				d.idom[b] = newIdom
				changed = true
			}
		}
	}

	for _, b := range rpo[1:] {
		if p := d.idom[b]; p.IsValid() {
			d.children[p] = append(d.children[p], b)
		}
	}

	for _, b := range rpo {
		preds := f.Blocks[b].Preds
		if len(preds) < 2 {
			continue
		}
		for _, p := range preds {
			if d.order[p] < 0 {
				continue
			}
			for runner := p; runner != d.idom[b]; runner = d.idom[runner] {
				d.addFrontier(runner, b)
				if runner == d.idom[runner] {
					break
				}
			}
		}
	}
	return d
}

func (d *Dominators) intersect(a, b BlockID) BlockID {
	for a != b {
		for d.order[a] > d.order[b] {
			a = d.idom[a]
		}
		for d.order[b] > d.order[a] {
			b = d.idom[b]
		}
	}
	return a
}

func (d *Dominators) addFrontier(block, member BlockID) {
	for _, m := range d.frontier[block] {
		if m == member {
			return
		}
	}
	d.frontier[block] = append(d.frontier[block], member)
}

// IDom returns the immediate dominator of b; the entry is its own.
func (d *Dominators) IDom(b BlockID) BlockID { return d.idom[b] }

// Children returns the blocks b immediately dominates in reverse postorder.
func (d *Dominators) Children(b BlockID) []BlockID { return d.children[b] }

// Frontier returns the dominance frontier of b.
func (d *Dominators) Frontier(b BlockID) []BlockID { return d.frontier[b] }

// Reachable reports whether b was reached from the entry.
func (d *Dominators) Reachable(b BlockID) bool {
	return b >= 0 && int(b) < len(d.order) && d.order[b] >= 0
}

// Dominates reports whether a dominates b. Every block dominates itself.
func (d *Dominators) Dominates(a, b BlockID) bool {
	if !d.Reachable(a) || !d.Reachable(b) {
		return false
	}
	for {
		if a == b {
			return true
		}
		next := d.idom[b]
		if next == b {
			return false
		}
		b = next
	}
}
