package sema

// ScopeID identifies a scope inside an Analysis.
type ScopeID uint32

// NoScopeID marks the absence of a scope.
const NoScopeID ScopeID = 0

func (id ScopeID) IsValid() bool { return id != NoScopeID }

// BindingID identifies a declared name inside an Analysis.
type BindingID uint32

// NoBindingID marks an unresolved (global) reference.
const NoBindingID BindingID = 0

func (id BindingID) IsValid() bool { return id != NoBindingID }
