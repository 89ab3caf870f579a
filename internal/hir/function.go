package hir

import (
	"forget/internal/diag"
	"forget/internal/source"
)

// PhiOperand is the value flowing in from Pred.
type PhiOperand struct {
	Pred  BlockID
	Value IdentifierID
}

// Phi selects a value by incoming edge. Operands follow the order of the
// block's Preds.
type Phi struct {
	Lvalue   IdentifierID
	Operands []PhiOperand
}

// Block is a basic block.
type Block struct {
	ID     BlockID
	Preds  []BlockID
	Phis   []Phi
	Instrs []Instr
	Term   Terminator
}

func (b *Block) Terminated() bool {
	if b == nil {
		return true
	}
	return b.Term.Kind != TermNone
}

// Function is one lowered function. Nested closures hang off InstrFunction
// instructions and share Idents with their parent.
type Function struct {
	Name   string
	Span   source.Span
	Arrow  bool
	Params []IdentifierID
	Blocks []Block
	Entry  BlockID
	Idents *Identifiers

	// SSA is set once every non-context identifier has a single definition.
	SSA bool
	// Errored marks a function a pass gave up on; later passes skip it.
	Errored bool
	// Diagnostics collects pass findings about this function.
	Diagnostics []diag.Diagnostic
}

// Block returns the block with the given id, or nil.
func (f *Function) Block(id BlockID) *Block {
	if f == nil || id < 0 || int(id) >= len(f.Blocks) {
		return nil
	}
	return &f.Blocks[id]
}

// DisplayName is the function name or "<anonymous>".
func (f *Function) DisplayName() string {
	if f.Name == "" {
		return "<anonymous>"
	}
	return f.Name
}

// EachNested calls fn for every closure body defined directly in f.
func (f *Function) EachNested(fn func(*Function)) {
	for i := range f.Blocks {
		for j := range f.Blocks[i].Instrs {
			in := &f.Blocks[i].Instrs[j]
			if in.Kind == InstrFunction && in.Function.Fn != nil {
				fn(in.Function.Fn)
			}
		}
	}
}

// EachOperand visits every identifier read in f: phi operands,
// instruction operands and terminator operands, excluding nested bodies.
func (f *Function) EachOperand(fn func(*IdentifierID)) {
	for i := range f.Blocks {
		b := &f.Blocks[i]
		for j := range b.Phis {
			for k := range b.Phis[j].Operands {
				fn(&b.Phis[j].Operands[k].Value)
			}
		}
		for j := range b.Instrs {
			b.Instrs[j].EachOperand(fn)
		}
		b.Term.EachOperand(fn)
	}
}

// ReplaceUses rewrites every read of an identifier in f and its nested
// functions through resolve.
func (f *Function) ReplaceUses(resolve func(IdentifierID) IdentifierID) {
	f.EachOperand(func(id *IdentifierID) {
		if id.IsValid() {
			*id = resolve(*id)
		}
	})
	f.EachNested(func(nested *Function) {
		nested.ReplaceUses(resolve)
	})
}

// AddDiagnostic records a pass finding.
func (f *Function) AddDiagnostic(d diag.Diagnostic) {
	f.Diagnostics = append(f.Diagnostics, d)
}
