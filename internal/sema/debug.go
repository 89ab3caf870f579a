package sema

import (
	"encoding/json"
	"fmt"
	"strings"

	"forget/internal/source"
)

// DebugBinding is the tooling view of a Binding.
type DebugBinding struct {
	ID                 BindingID   `json:"id"`
	Name               string      `json:"name"`
	Kind               string      `json:"kind"`
	Span               source.Span `json:"span"`
	Reassigned         bool        `json:"reassigned,omitempty"`
	Captured           bool        `json:"captured,omitempty"`
	CapturedBeforeDecl bool        `json:"captured_before_decl,omitempty"`
	References         int         `json:"references"`
}

// DebugScope is the tooling view of a Scope.
type DebugScope struct {
	ID       ScopeID        `json:"id"`
	Kind     string         `json:"kind"`
	Parent   ScopeID        `json:"parent,omitempty"`
	Span     source.Span    `json:"span"`
	Bindings []DebugBinding `json:"bindings,omitempty"`
	Captures []string       `json:"captures,omitempty"`
}

// DebugReference is the tooling view of a Reference.
type DebugReference struct {
	Name       string      `json:"name"`
	Span       source.Span `json:"span"`
	Binding    BindingID   `json:"binding"`
	Scope      ScopeID     `json:"scope"`
	Write      bool        `json:"write,omitempty"`
	BeforeDecl bool        `json:"before_decl,omitempty"`
}

// DebugInfo is a structured dump of an Analysis.
type DebugInfo struct {
	Scopes     []DebugScope     `json:"scopes"`
	References []DebugReference `json:"references"`
}

// Debug snapshots the analysis for tooling and golden tests.
func (a *Analysis) Debug() DebugInfo {
	info := DebugInfo{
		Scopes:     make([]DebugScope, 0, len(a.scopes)),
		References: make([]DebugReference, 0, len(a.refOrder)),
	}
	for i := range a.scopes {
		sc := &a.scopes[i]
		ds := DebugScope{ID: sc.ID, Kind: sc.Kind.String(), Parent: sc.Parent, Span: sc.Span}
		for _, bid := range sc.Bindings {
			b := a.Binding(bid)
			ds.Bindings = append(ds.Bindings, DebugBinding{
				ID:                 b.ID,
				Name:               b.Name,
				Kind:               b.Kind.String(),
				Span:               b.Span,
				Reassigned:         b.Reassigned,
				Captured:           b.Captured,
				CapturedBeforeDecl: b.CapturedBeforeDecl,
				References:         b.References,
			})
		}
		for _, bid := range a.captures[sc.ID] {
			ds.Captures = append(ds.Captures, a.Binding(bid).Name)
		}
		info.Scopes = append(info.Scopes, ds)
	}
	for _, r := range a.refOrder {
		info.References = append(info.References, DebugReference{
			Name:       r.Ident.Name,
			Span:       r.Ident.Span,
			Binding:    r.Binding,
			Scope:      r.Scope,
			Write:      r.Write,
			BeforeDecl: r.BeforeDecl,
		})
	}
	return info
}

// JSON renders the dump as indented JSON.
func (d DebugInfo) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// String renders the scope tree as indented text.
func (d DebugInfo) String() string {
	children := make(map[ScopeID][]int)
	var roots []int
	for i, sc := range d.Scopes {
		if sc.Parent.IsValid() {
			children[sc.Parent] = append(children[sc.Parent], i)
		} else {
			roots = append(roots, i)
		}
	}
	var sb strings.Builder
	var walk func(idx, depth int)
	walk = func(idx, depth int) {
		sc := d.Scopes[idx]
		indent := strings.Repeat("  ", depth)
		fmt.Fprintf(&sb, "%sscope #%d %s\n", indent, sc.ID, sc.Kind)
		for _, b := range sc.Bindings {
			fmt.Fprintf(&sb, "%s  %s %s #%d refs=%d", indent, b.Kind, b.Name, b.ID, b.References)
			if b.Reassigned {
				sb.WriteString(" reassigned")
			}
			if b.Captured {
				sb.WriteString(" captured")
			}
			if b.CapturedBeforeDecl {
				sb.WriteString(" captured-before-decl")
			}
			sb.WriteByte('\n')
		}
		if len(sc.Captures) > 0 {
			fmt.Fprintf(&sb, "%s  captures: %s\n", indent, strings.Join(sc.Captures, ", "))
		}
		for _, c := range children[sc.ID] {
			walk(c, depth+1)
		}
	}
	for _, r := range roots {
		walk(r, 0)
	}
	sb.WriteString("references:\n")
	for _, r := range d.References {
		target := "global"
		if r.Binding.IsValid() {
			target = fmt.Sprintf("#%d", r.Binding)
		}
		fmt.Fprintf(&sb, "  %s @%s -> %s", r.Name, r.Span, target)
		if r.Write {
			sb.WriteString(" write")
		}
		if r.BeforeDecl {
			sb.WriteString(" before-decl")
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
