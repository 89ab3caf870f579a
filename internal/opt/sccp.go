package opt

import "forget/internal/hir"

type edge struct {
	from, to hir.BlockID
}

type useKind uint8

const (
	usePhi useKind = iota
	useInstr
	useTerm
)

type useSite struct {
	kind  useKind
	block hir.BlockID
	index int
}

// sccp holds the state of one sparse conditional constant propagation
// run over a single function.
type sccp struct {
	f      *hir.Function
	values map[hir.IdentifierID]lattice
	uses   map[hir.IdentifierID][]useSite

	executable map[hir.BlockID]bool
	edges      map[edge]bool

	blockWork []hir.BlockID
	valueWork []hir.IdentifierID
}

func newSCCP(f *hir.Function) *sccp {
	s := &sccp{
		f:          f,
		values:     make(map[hir.IdentifierID]lattice),
		uses:       make(map[hir.IdentifierID][]useSite),
		executable: make(map[hir.BlockID]bool),
		edges:      make(map[edge]bool),
	}
	for i := range f.Blocks {
		b := &f.Blocks[i]
		for j := range b.Phis {
			site := useSite{kind: usePhi, block: b.ID, index: j}
			for _, op := range b.Phis[j].Operands {
				s.addUse(op.Value, site)
			}
		}
		for j := range b.Instrs {
			site := useSite{kind: useInstr, block: b.ID, index: j}
			b.Instrs[j].EachOperand(func(id *hir.IdentifierID) { s.addUse(*id, site) })
		}
		site := useSite{kind: useTerm, block: b.ID}
		b.Term.EachOperand(func(id *hir.IdentifierID) { s.addUse(*id, site) })
	}
	for _, p := range f.Params {
		s.values[p] = overdefined
	}
	return s
}

func (s *sccp) addUse(id hir.IdentifierID, site useSite) {
	if id.IsValid() {
		s.uses[id] = append(s.uses[id], site)
	}
}

// value returns the lattice value of id. Identifiers defined outside the
// function, such as closure captures, are overdefined.
func (s *sccp) value(id hir.IdentifierID) lattice {
	if v, ok := s.values[id]; ok {
		return v
	}
	return unknown
}

func (s *sccp) set(id hir.IdentifierID, v lattice) {
	if !id.IsValid() {
		return
	}
	old := s.values[id]
	next := meet(old, v)
	if next.equal(old) {
		return
	}
	s.values[id] = next
	s.valueWork = append(s.valueWork, id)
}

func (s *sccp) markEdge(from, to hir.BlockID) {
	e := edge{from: from, to: to}
	if s.edges[e] {
		return
	}
	s.edges[e] = true
	if !s.executable[to] {
		s.executable[to] = true
		s.blockWork = append(s.blockWork, to)
		return
	}
	// A new edge into a visited block only changes its phis.
	b := s.f.Block(to)
	for j := range b.Phis {
		s.visitPhi(b, j)
	}
}

func (s *sccp) run() {
	s.markDefinitions()
	s.executable[s.f.Entry] = true
	s.blockWork = append(s.blockWork, s.f.Entry)
	for len(s.blockWork) > 0 || len(s.valueWork) > 0 {
		for len(s.blockWork) > 0 {
			id := s.blockWork[0]
			s.blockWork = s.blockWork[1:]
			s.visitBlock(id)
		}
		for len(s.valueWork) > 0 {
			id := s.valueWork[0]
			s.valueWork = s.valueWork[1:]
			for _, site := range s.uses[id] {
				if !s.executable[site.block] {
					continue
				}
				b := s.f.Block(site.block)
				switch site.kind {
				case usePhi:
					s.visitPhi(b, site.index)
				case useInstr:
					s.visitInstr(&b.Instrs[site.index])
				case useTerm:
					s.visitTerm(b)
				}
			}
		}
	}
}

// markDefinitions marks identifiers read by the function but never
// defined in it as overdefined.
func (s *sccp) markDefinitions() {
	defined := make(map[hir.IdentifierID]bool)
	for _, p := range s.f.Params {
		defined[p] = true
	}
	for i := range s.f.Blocks {
		b := &s.f.Blocks[i]
		for _, phi := range b.Phis {
			defined[phi.Lvalue] = true
		}
		for j := range b.Instrs {
			b.Instrs[j].EachDef(func(id *hir.IdentifierID) { defined[*id] = true })
		}
	}
	for id := range s.uses {
		if !defined[id] || s.f.Idents.IsContext(id) {
			s.values[id] = overdefined
		}
	}
}

func (s *sccp) visitBlock(id hir.BlockID) {
	b := s.f.Block(id)
	for j := range b.Phis {
		s.visitPhi(b, j)
	}
	for j := range b.Instrs {
		s.visitInstr(&b.Instrs[j])
	}
	s.visitTerm(b)
}

func (s *sccp) visitPhi(b *hir.Block, index int) {
	phi := &b.Phis[index]
	v := unknown
	for _, op := range phi.Operands {
		if !s.edges[edge{from: op.Pred, to: b.ID}] {
			continue
		}
		v = meet(v, s.value(op.Value))
		if v.state == stateOverdefined {
			break
		}
	}
	s.set(phi.Lvalue, v)
}

func (s *sccp) visitInstr(in *hir.Instr) {
	switch in.Kind {
	case hir.InstrPrimitive:
		s.set(in.Lvalue, constant(in.Primitive))
	case hir.InstrLoadLocal:
		s.set(in.Lvalue, s.value(in.Local.Var))
	case hir.InstrStoreLocal:
		v := s.value(in.Local.Value)
		s.set(in.Local.Var, v)
		s.set(in.Lvalue, v)
	case hir.InstrBinary:
		l, r := s.value(in.Binary.Left), s.value(in.Binary.Right)
		s.set(in.Lvalue, s.evalOp(l, r, func() (hir.Primitive, bool) {
			return FoldBinary(in.Binary.Op, l.value, r.value)
		}))
	case hir.InstrUnary:
		v := s.value(in.Unary.Value)
		s.set(in.Lvalue, s.evalOp(v, v, func() (hir.Primitive, bool) {
			return FoldUnary(in.Unary.Op, v.value)
		}))
	default:
		in.EachDef(func(id *hir.IdentifierID) { s.set(*id, overdefined) })
	}
}

func (s *sccp) evalOp(a, b lattice, fold func() (hir.Primitive, bool)) lattice {
	if a.state == stateOverdefined || b.state == stateOverdefined {
		return overdefined
	}
	if a.state == stateUnknown || b.state == stateUnknown {
		return unknown
	}
	if p, ok := fold(); ok {
		return constant(p)
	}
	return overdefined
}

func (s *sccp) visitTerm(b *hir.Block) {
	t := &b.Term
	switch t.Kind {
	case hir.TermIf:
		test := s.value(t.If.Test)
		switch test.state {
		case stateUnknown:
		case stateConstant:
			if test.value.Truthy() {
				s.markEdge(b.ID, t.If.Then)
			} else {
				s.markEdge(b.ID, t.If.Else)
			}
		default:
			s.markEdge(b.ID, t.If.Then)
			s.markEdge(b.ID, t.If.Else)
		}
	case hir.TermSwitch:
		target, state := s.switchTarget(t)
		switch state {
		case stateUnknown:
		case stateConstant:
			s.markEdge(b.ID, target)
		default:
			for _, succ := range t.Successors() {
				s.markEdge(b.ID, succ)
			}
		}
	default:
		for _, succ := range t.Successors() {
			s.markEdge(b.ID, succ)
		}
	}
}

// switchTarget resolves a switch when its discriminant and every case
// test up to the first match are constants.
func (s *sccp) switchTarget(t *hir.Terminator) (hir.BlockID, latticeState) {
	disc := s.value(t.Switch.Test)
	if disc.state != stateConstant {
		return hir.NoBlockID, disc.state
	}
	for _, c := range t.Switch.Cases {
		v := s.value(c.Test)
		if v.state != stateConstant {
			return hir.NoBlockID, v.state
		}
		if strictEquals(disc.value, v.value) {
			return c.Target, stateConstant
		}
	}
	return t.Switch.Default, stateConstant
}
