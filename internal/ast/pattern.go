package ast

import "forget/internal/source"

type PatternKind uint8

const (
	PatIdent PatternKind = iota
	PatArray
	PatObject
)

// Pattern is a binding target. For PatIdent only Name is set; array and
// object patterns list their elements in source order.
type Pattern struct {
	Kind  PatternKind
	Name  *Ident
	Elems []*PatternElem
	Span  source.Span
}

// PatternElem is one element of an array or object pattern. Key is set for
// object patterns. Hole marks an elided array element.
type PatternElem struct {
	Key     string
	Value   *Pattern
	Default *Expr
	Rest    bool
	Hole    bool
	Span    source.Span
}

// IsFlat reports whether every element binds a plain identifier with no
// default, rest or hole.
func (p *Pattern) IsFlat() bool {
	if p.Kind == PatIdent {
		return true
	}
	for _, el := range p.Elems {
		if el.Hole || el.Rest || el.Default != nil || el.Value == nil || el.Value.Kind != PatIdent {
			return false
		}
	}
	return true
}

// Names appends every identifier bound by p in source order.
func (p *Pattern) Names(out []*Ident) []*Ident {
	if p == nil {
		return out
	}
	if p.Kind == PatIdent {
		return append(out, p.Name)
	}
	for _, el := range p.Elems {
		if el.Value != nil {
			out = el.Value.Names(out)
		}
	}
	return out
}
