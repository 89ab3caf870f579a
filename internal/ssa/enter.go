package ssa

import (
	"slices"

	"forget/internal/hir"
)

const enterPass = "enter_ssa"

// EnterSSA rewrites fn and its nested functions into SSA form in place.
//
// Every StoreLocal target and parameter is a variable. Phis are placed on
// the iterated dominance frontier of each variable's definitions where
// the variable is live, then a dominator tree walk gives every store a
// fresh identifier. Context variables keep their identifiers. A closure
// sees the value of each read-only capture that reaches its definition.
func EnterSSA(env *hir.Environment, fn *hir.Function) error {
	return enter(fn, nil)
}

func enter(f *hir.Function, seed map[hir.IdentifierID]hir.IdentifierID) error {
	if f == nil {
		return nil
	}
	if f.SSA {
		return hir.Invariantf(enterPass, f, "function is already in SSA form")
	}
	if err := checkCFG(f); err != nil {
		return err
	}

	vars, defBlocks := collectVariables(f)
	dom := hir.ComputeDominators(f)
	live := computeLiveness(f, vars)
	phiVar := placePhis(f, dom, live, defBlocks)

	r := &renamer{
		f:      f,
		dom:    dom,
		seed:   seed,
		vars:   vars,
		phiVar: phiVar,
		stacks: make(map[hir.IdentifierID][]hir.IdentifierID, len(vars)),
	}
	for _, p := range f.Params {
		if vars.has(p) {
			r.stacks[p] = append(r.stacks[p], p)
		}
	}
	if err := r.run(); err != nil {
		return err
	}
	f.SSA = true
	return nil
}

// checkCFG rejects references to missing blocks and blocks that cannot be
// reached from the entry.
func checkCFG(f *hir.Function) error {
	if f.Block(f.Entry) == nil {
		return hir.Invariantf(enterPass, f, "entry bb%d does not exist", f.Entry)
	}
	for i := range f.Blocks {
		b := &f.Blocks[i]
		var bad hir.BlockID = hir.NoBlockID
		b.Term.EachTarget(func(id *hir.BlockID) {
			if f.Block(*id) == nil && !bad.IsValid() {
				bad = *id
			}
		})
		if bad.IsValid() {
			return hir.Invariantf(enterPass, f, "bb%d jumps to nonexistent bb%d", b.ID, bad)
		}
	}
	reachable := f.Reachable()
	for i, ok := range reachable {
		if !ok {
			return hir.Invariantf(enterPass, f, "bb%d is unreachable", f.Blocks[i].ID)
		}
	}
	return nil
}

// collectVariables returns the non-context variables of f and the blocks
// that assign each of them. Parameters are assigned in the entry block.
func collectVariables(f *hir.Function) (varSet, map[hir.IdentifierID][]hir.BlockID) {
	vars := varSet{}
	defs := make(map[hir.IdentifierID][]hir.BlockID)
	addDef := func(id hir.IdentifierID, b hir.BlockID) {
		vars.add(id)
		if list := defs[id]; len(list) == 0 || list[len(list)-1] != b {
			defs[id] = append(list, b)
		}
	}
	for _, p := range f.Params {
		if !f.Idents.IsContext(p) {
			addDef(p, f.Entry)
		}
	}
	for i := range f.Blocks {
		b := &f.Blocks[i]
		for j := range b.Instrs {
			in := &b.Instrs[j]
			if in.Kind == hir.InstrStoreLocal && !f.Idents.IsContext(in.Local.Var) {
				addDef(in.Local.Var, b.ID)
			}
		}
	}
	return vars, defs
}

// placePhis inserts an empty phi for every variable on the iterated
// dominance frontier of its definitions where it is live on entry. The
// result maps each phi Lvalue to its variable.
func placePhis(f *hir.Function, dom *hir.Dominators, live []blockLiveness, defBlocks map[hir.IdentifierID][]hir.BlockID) map[hir.IdentifierID]hir.IdentifierID {
	phiVar := make(map[hir.IdentifierID]hir.IdentifierID)
	order := make([]hir.IdentifierID, 0, len(defBlocks))
	for v := range defBlocks {
		order = append(order, v)
	}
	slices.Sort(order)

	for _, v := range order {
		hasPhi := make(map[hir.BlockID]bool)
		queued := make(map[hir.BlockID]bool)
		work := slices.Clone(defBlocks[v])
		for _, b := range work {
			queued[b] = true
		}
		for len(work) > 0 {
			b := work[len(work)-1]
			work = work[:len(work)-1]
			for _, d := range dom.Frontier(b) {
				if hasPhi[d] || !live[d].in.has(v) {
					continue
				}
				hasPhi[d] = true
				blk := f.Block(d)
				phi := hir.Phi{Lvalue: f.Idents.Rename(v)}
				for _, p := range blk.Preds {
					phi.Operands = append(phi.Operands, hir.PhiOperand{Pred: p, Value: hir.NoIdentifierID})
				}
				blk.Phis = append(blk.Phis, phi)
				phiVar[phi.Lvalue] = v
				if !queued[d] {
					queued[d] = true
					work = append(work, d)
				}
			}
		}
	}
	return phiVar
}

type renamer struct {
	f      *hir.Function
	dom    *hir.Dominators
	seed   map[hir.IdentifierID]hir.IdentifierID
	vars   varSet
	phiVar map[hir.IdentifierID]hir.IdentifierID
	stacks map[hir.IdentifierID][]hir.IdentifierID

	nested []nestedFunc
}

type nestedFunc struct {
	fn   *hir.Function
	seed map[hir.IdentifierID]hir.IdentifierID
}

type frame struct {
	block  hir.BlockID
	exit   bool
	pushed []hir.IdentifierID
}

func (r *renamer) run() error {
	stack := []frame{{block: r.f.Entry}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.exit {
			for _, v := range top.pushed {
				s := r.stacks[v]
				if len(s) == 0 {
					return hir.Invariantf(enterPass, r.f, "rename stack of %s underflows", r.f.Idents.Label(v))
				}
				r.stacks[v] = s[:len(s)-1]
			}
			continue
		}
		pushed, err := r.block(top.block)
		if err != nil {
			return err
		}
		stack = append(stack, frame{block: top.block, exit: true, pushed: pushed})
		children := r.dom.Children(top.block)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{block: children[i]})
		}
	}
	for _, n := range r.nested {
		if err := enter(n.fn, n.seed); err != nil {
			return err
		}
	}
	return nil
}

// block renames one block and fills the matching phi operands of its
// successors. It returns the variables pushed, one entry per push.
func (r *renamer) block(id hir.BlockID) ([]hir.IdentifierID, error) {
	b := r.f.Block(id)
	var pushed []hir.IdentifierID
	push := func(v, name hir.IdentifierID) {
		r.stacks[v] = append(r.stacks[v], name)
		pushed = append(pushed, v)
	}

	for i := range b.Phis {
		push(r.phiVar[b.Phis[i].Lvalue], b.Phis[i].Lvalue)
	}

	var err error
	use := func(id *hir.IdentifierID) {
		if err != nil || !id.IsValid() {
			return
		}
		if r.vars.has(*id) {
			s := r.stacks[*id]
			if len(s) == 0 {
				err = hir.Invariantf(enterPass, r.f, "bb%d: %s has no reaching definition", b.ID, r.f.Idents.Label(*id))
				return
			}
			*id = s[len(s)-1]
			return
		}
		if v, ok := r.seed[*id]; ok {
			*id = v
		}
	}

	for i := range b.Instrs {
		in := &b.Instrs[i]
		var before []hir.IdentifierID
		if in.Kind == hir.InstrFunction {
			before = slices.Clone(in.Function.Context)
		}
		in.EachOperand(use)
		if err != nil {
			return nil, err
		}
		if in.Kind == hir.InstrStoreLocal && r.vars.has(in.Local.Var) {
			v := in.Local.Var
			in.Local.Var = r.f.Idents.Rename(v)
			push(v, in.Local.Var)
		}
		if in.Kind == hir.InstrFunction && in.Function.Fn != nil {
			seed := make(map[hir.IdentifierID]hir.IdentifierID, len(before))
			for k, orig := range before {
				if orig != in.Function.Context[k] {
					seed[orig] = in.Function.Context[k]
				}
			}
			r.nested = append(r.nested, nestedFunc{fn: in.Function.Fn, seed: seed})
		}
	}
	b.Term.EachOperand(use)
	if err != nil {
		return nil, err
	}

	for _, s := range b.Term.Successors() {
		succ := r.f.Block(s)
		for i := range succ.Phis {
			phi := &succ.Phis[i]
			v := r.phiVar[phi.Lvalue]
			stack := r.stacks[v]
			for k := range phi.Operands {
				if phi.Operands[k].Pred != b.ID {
					continue
				}
				if len(stack) == 0 {
					return nil, hir.Invariantf(enterPass, r.f, "bb%d: %s has no definition reaching bb%d",
						b.ID, r.f.Idents.Label(v), s)
				}
				phi.Operands[k].Value = stack[len(stack)-1]
			}
		}
	}
	return pushed, nil
}
