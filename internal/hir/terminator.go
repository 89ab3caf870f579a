package hir

import "forget/internal/source"

// TermKind enumerates block terminators.
type TermKind uint8

const (
	TermNone TermKind = iota
	TermGoto
	TermIf
	TermSwitch
	TermReturn
	// TermThrow raises Value; control moves to Handler or leaves the function.
	TermThrow
	// TermMaybeThrow ends a block whose last instruction may throw inside a
	// try block.
	TermMaybeThrow
	TermUnreachable
)

var termKindNames = [...]string{
	TermNone:        "None",
	TermGoto:        "Goto",
	TermIf:          "If",
	TermSwitch:      "Switch",
	TermReturn:      "Return",
	TermThrow:       "Throw",
	TermMaybeThrow:  "MaybeThrow",
	TermUnreachable: "Unreachable",
}

func (k TermKind) String() string {
	if int(k) < len(termKindNames) {
		return termKindNames[k]
	}
	return "Unknown"
}

type Terminator struct {
	Kind TermKind
	Span source.Span

	Goto       GotoTerm
	If         IfTerm
	Switch     SwitchTerm
	Return     ReturnTerm
	Throw      ThrowTerm
	MaybeThrow MaybeThrowTerm
}

type GotoTerm struct {
	Target BlockID
}

type IfTerm struct {
	Test IdentifierID
	Then BlockID
	Else BlockID
}

type SwitchCase struct {
	Test   IdentifierID
	Target BlockID
}

// SwitchTerm compares Test against each case with strict equality in order.
type SwitchTerm struct {
	Test    IdentifierID
	Cases   []SwitchCase
	Default BlockID
}

type ReturnTerm struct {
	Value IdentifierID
}

type ThrowTerm struct {
	Value   IdentifierID
	Handler BlockID
}

type MaybeThrowTerm struct {
	Continuation BlockID
	Handler      BlockID
}

// Successors returns the distinct successor blocks in a fixed order.
func (t *Terminator) Successors() []BlockID {
	var out []BlockID
	add := func(id BlockID) {
		if !id.IsValid() {
			return
		}
		for _, existing := range out {
			if existing == id {
				return
			}
		}
		out = append(out, id)
	}
	switch t.Kind {
	case TermGoto:
		add(t.Goto.Target)
	case TermIf:
		add(t.If.Then)
		add(t.If.Else)
	case TermSwitch:
		for _, c := range t.Switch.Cases {
			add(c.Target)
		}
		add(t.Switch.Default)
	case TermThrow:
		add(t.Throw.Handler)
	case TermMaybeThrow:
		add(t.MaybeThrow.Continuation)
		add(t.MaybeThrow.Handler)
	}
	return out
}

// EachTarget calls fn with a pointer to every block reference.
func (t *Terminator) EachTarget(fn func(*BlockID)) {
	switch t.Kind {
	case TermGoto:
		fn(&t.Goto.Target)
	case TermIf:
		fn(&t.If.Then)
		fn(&t.If.Else)
	case TermSwitch:
		for i := range t.Switch.Cases {
			fn(&t.Switch.Cases[i].Target)
		}
		fn(&t.Switch.Default)
	case TermThrow:
		if t.Throw.Handler.IsValid() {
			fn(&t.Throw.Handler)
		}
	case TermMaybeThrow:
		fn(&t.MaybeThrow.Continuation)
		fn(&t.MaybeThrow.Handler)
	}
}

// EachOperand calls fn with a pointer to every identifier the terminator reads.
func (t *Terminator) EachOperand(fn func(*IdentifierID)) {
	switch t.Kind {
	case TermIf:
		fn(&t.If.Test)
	case TermSwitch:
		fn(&t.Switch.Test)
		for i := range t.Switch.Cases {
			fn(&t.Switch.Cases[i].Test)
		}
	case TermReturn:
		fn(&t.Return.Value)
	case TermThrow:
		fn(&t.Throw.Value)
	}
}
