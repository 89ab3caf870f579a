// Package hir is the control-flow-graph representation the optimizer works
// on. A Function is a list of basic blocks; every block holds phi nodes,
// straight-line instructions and exactly one terminator. Values are named
// by IdentifierIDs: before SSA construction a named local may be stored
// several times, afterwards every identifier has a single definition.
package hir

// BlockID identifies a basic block. After canonicalization it equals the
// block's index in Function.Blocks.
type BlockID int32

// IdentifierID names a value or a variable.
type IdentifierID int32

const (
	NoBlockID      BlockID      = -1
	NoIdentifierID IdentifierID = -1
)

func (id BlockID) IsValid() bool      { return id >= 0 }
func (id IdentifierID) IsValid() bool { return id >= 0 }
