package hir

import (
	"fmt"

	"fortio.org/safecast"

	"forget/internal/sema"
	"forget/internal/source"
)

// Identifier describes one IdentifierID.
type Identifier struct {
	ID IdentifierID
	// Name is empty for compiler temporaries.
	Name string
	// Origin is the pre-SSA variable this identifier renames, or ID itself.
	Origin  IdentifierID
	Binding sema.BindingID
	// Context identifiers live in storage shared with closures. SSA
	// construction leaves them untouched.
	Context bool
	Span    source.Span
}

// Identifiers is the identifier table of a top-level function. Nested
// functions share the table of their enclosing function so captured
// identifiers keep their meaning across the boundary.
type Identifiers struct {
	list []Identifier
}

func NewIdentifiers() *Identifiers {
	return &Identifiers{}
}

func (t *Identifiers) add(ident Identifier) IdentifierID {
	raw, err := safecast.Conv[int32](len(t.list))
	if err != nil {
		panic(fmt.Errorf("hir: identifier id overflow: %w", err))
	}
	ident.ID = IdentifierID(raw)
	if !ident.Origin.IsValid() {
		ident.Origin = ident.ID
	}
	t.list = append(t.list, ident)
	return ident.ID
}

// NewTemporary allocates an unnamed identifier.
func (t *Identifiers) NewTemporary(span source.Span) IdentifierID {
	return t.add(Identifier{Origin: NoIdentifierID, Span: span})
}

// NewNamed allocates a named identifier for a binding.
func (t *Identifiers) NewNamed(name string, binding sema.BindingID, context bool, span source.Span) IdentifierID {
	return t.add(Identifier{Name: name, Origin: NoIdentifierID, Binding: binding, Context: context, Span: span})
}

// Rename allocates a fresh SSA version of id.
func (t *Identifiers) Rename(id IdentifierID) IdentifierID {
	orig := t.Get(id)
	return t.add(Identifier{
		Name:    orig.Name,
		Origin:  orig.Origin,
		Binding: orig.Binding,
		Span:    orig.Span,
	})
}

// Get returns a copy of the identifier record.
func (t *Identifiers) Get(id IdentifierID) Identifier {
	if id < 0 || int(id) >= len(t.list) {
		return Identifier{ID: id, Origin: id}
	}
	return t.list[id]
}

func (t *Identifiers) IsContext(id IdentifierID) bool {
	return t.Get(id).Context
}

func (t *Identifiers) Len() int {
	return len(t.list)
}

// Label renders id the way the printer does: name$id for named
// identifiers and $id for temporaries.
func (t *Identifiers) Label(id IdentifierID) string {
	if !id.IsValid() {
		return "<none>"
	}
	ident := t.Get(id)
	return fmt.Sprintf("%s$%d", ident.Name, id)
}
