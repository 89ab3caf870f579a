package opt

import "forget/internal/hir"

type latticeState uint8

const (
	// stateUnknown has not been evaluated yet.
	stateUnknown latticeState = iota
	stateConstant
	stateOverdefined
)

// lattice is the abstract value of one identifier.
type lattice struct {
	state latticeState
	value hir.Primitive
}

var (
	unknown     = lattice{}
	overdefined = lattice{state: stateOverdefined}
)

func constant(p hir.Primitive) lattice { return lattice{state: stateConstant, value: p} }

// meet joins two lattice values. Constants only survive when equal.
func meet(a, b lattice) lattice {
	switch {
	case a.state == stateUnknown:
		return b
	case b.state == stateUnknown:
		return a
	case a.state == stateOverdefined || b.state == stateOverdefined:
		return overdefined
	case a.value.Same(b.value):
		return a
	default:
		return overdefined
	}
}

func (l lattice) equal(o lattice) bool {
	if l.state != o.state {
		return false
	}
	return l.state != stateConstant || l.value.Same(o.value)
}
