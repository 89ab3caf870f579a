// Package ast is the fixed tree contract consumed by semantic analysis and
// HIR construction. Nodes carry a Kind, a source.Span and a kind-specific
// Data payload; identifiers are shared *Ident values so that later phases
// can key resolution results by pointer.
package ast
