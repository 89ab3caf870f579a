package hir

import (
	"forget/internal/ast"
	"forget/internal/source"
)

// InstrKind enumerates instruction kinds.
type InstrKind uint8

const (
	// InstrPrimitive materializes a literal.
	InstrPrimitive InstrKind = iota
	// InstrLoadLocal reads a local variable.
	InstrLoadLocal
	// InstrStoreLocal writes a local variable; Lvalue receives the stored value.
	InstrStoreLocal
	// InstrDeclareContext allocates shared storage for a context variable.
	InstrDeclareContext
	InstrLoadContext
	InstrStoreContext
	InstrLoadGlobal
	InstrStoreGlobal
	InstrBinary
	InstrUnary
	InstrCall
	// InstrMethodCall calls Callee with Receiver as `this`.
	InstrMethodCall
	InstrNew
	InstrPropertyLoad
	InstrPropertyStore
	InstrPropertyDelete
	InstrComputedLoad
	InstrComputedStore
	InstrComputedDelete
	InstrArray
	InstrObject
	// InstrFunction creates a closure over a nested function.
	InstrFunction
	// InstrDestructure unpacks a flat array or object pattern into temporaries.
	InstrDestructure
	// InstrCatchParam produces the exception value at the head of a handler.
	InstrCatchParam
)

var instrKindNames = [...]string{
	InstrPrimitive:      "Primitive",
	InstrLoadLocal:      "LoadLocal",
	InstrStoreLocal:     "StoreLocal",
	InstrDeclareContext: "DeclareContext",
	InstrLoadContext:    "LoadContext",
	InstrStoreContext:   "StoreContext",
	InstrLoadGlobal:     "LoadGlobal",
	InstrStoreGlobal:    "StoreGlobal",
	InstrBinary:         "Binary",
	InstrUnary:          "Unary",
	InstrCall:           "Call",
	InstrMethodCall:     "MethodCall",
	InstrNew:            "New",
	InstrPropertyLoad:   "PropertyLoad",
	InstrPropertyStore:  "PropertyStore",
	InstrPropertyDelete: "PropertyDelete",
	InstrComputedLoad:   "ComputedLoad",
	InstrComputedStore:  "ComputedStore",
	InstrComputedDelete: "ComputedDelete",
	InstrArray:          "Array",
	InstrObject:         "Object",
	InstrFunction:       "Function",
	InstrDestructure:    "Destructure",
	InstrCatchParam:     "CatchParam",
}

func (k InstrKind) String() string {
	if int(k) < len(instrKindNames) {
		return instrKindNames[k]
	}
	return "Unknown"
}

// DeclKind records how a store came about.
type DeclKind uint8

const (
	DeclReassign DeclKind = iota
	DeclLet
	DeclConst
	DeclVar
	DeclFunction
	DeclParam
	DeclCatch
)

var declKindNames = [...]string{
	DeclReassign: "Reassign",
	DeclLet:      "Let",
	DeclConst:    "Const",
	DeclVar:      "Var",
	DeclFunction: "Function",
	DeclParam:    "Param",
	DeclCatch:    "Catch",
}

func (k DeclKind) String() string {
	if int(k) < len(declKindNames) {
		return declKindNames[k]
	}
	return "Unknown"
}

// Instr is one non-terminator instruction. Only the payload matching Kind
// is meaningful.
type Instr struct {
	Kind   InstrKind
	Lvalue IdentifierID
	Span   source.Span

	Primitive   Primitive
	Local       LocalOp
	Global      GlobalOp
	Binary      BinaryOp
	Unary       UnaryOp
	Call        CallOp
	Property    PropertyOp
	Computed    ComputedOp
	Array       ArrayOp
	Object      ObjectOp
	Function    FunctionOp
	Destructure DestructureOp
}

// LocalOp is the payload of the local and context instructions.
type LocalOp struct {
	Kind  DeclKind
	Var   IdentifierID
	Value IdentifierID
}

type GlobalOp struct {
	Name  string
	Value IdentifierID
}

type BinaryOp struct {
	Op    ast.BinaryOp
	Left  IdentifierID
	Right IdentifierID
}

type UnaryOp struct {
	Op    ast.UnaryOp
	Value IdentifierID
}

// CallOp is shared by Call, MethodCall and New. Receiver is set for
// MethodCall only.
type CallOp struct {
	Callee   IdentifierID
	Receiver IdentifierID
	Args     []IdentifierID
}

type PropertyOp struct {
	Object IdentifierID
	Name   string
	Value  IdentifierID
}

type ComputedOp struct {
	Object IdentifierID
	Key    IdentifierID
	Value  IdentifierID
}

// ArrayOp elements are NoIdentifierID for holes.
type ArrayOp struct {
	Elems []IdentifierID
}

// ObjectProp has either a static Key or a Computed key value.
type ObjectProp struct {
	Key      string
	Computed IdentifierID
	Value    IdentifierID
}

type ObjectOp struct {
	Props []ObjectProp
}

// FunctionOp closes over Context, the outer identifiers the body refers to.
type FunctionOp struct {
	Fn      *Function
	Context []IdentifierID
}

// DestructureItem binds one pattern element. Key is used for object
// patterns; Target is NoIdentifierID for an array hole.
type DestructureItem struct {
	Key    string
	Target IdentifierID
}

type DestructureOp struct {
	Array bool
	Value IdentifierID
	Items []DestructureItem
}

// EachOperand calls fn with a pointer to every identifier the instruction
// reads. Context variables count as read by their load and store.
func (in *Instr) EachOperand(fn func(*IdentifierID)) {
	switch in.Kind {
	case InstrLoadLocal, InstrLoadContext:
		fn(&in.Local.Var)
	case InstrStoreLocal:
		fn(&in.Local.Value)
	case InstrStoreContext:
		fn(&in.Local.Var)
		fn(&in.Local.Value)
	case InstrStoreGlobal:
		fn(&in.Global.Value)
	case InstrBinary:
		fn(&in.Binary.Left)
		fn(&in.Binary.Right)
	case InstrUnary:
		fn(&in.Unary.Value)
	case InstrCall, InstrNew:
		fn(&in.Call.Callee)
		for i := range in.Call.Args {
			fn(&in.Call.Args[i])
		}
	case InstrMethodCall:
		fn(&in.Call.Receiver)
		fn(&in.Call.Callee)
		for i := range in.Call.Args {
			fn(&in.Call.Args[i])
		}
	case InstrPropertyLoad, InstrPropertyDelete:
		fn(&in.Property.Object)
	case InstrPropertyStore:
		fn(&in.Property.Object)
		fn(&in.Property.Value)
	case InstrComputedLoad, InstrComputedDelete:
		fn(&in.Computed.Object)
		fn(&in.Computed.Key)
	case InstrComputedStore:
		fn(&in.Computed.Object)
		fn(&in.Computed.Key)
		fn(&in.Computed.Value)
	case InstrArray:
		for i := range in.Array.Elems {
			if in.Array.Elems[i].IsValid() {
				fn(&in.Array.Elems[i])
			}
		}
	case InstrObject:
		for i := range in.Object.Props {
			p := &in.Object.Props[i]
			if p.Computed.IsValid() {
				fn(&p.Computed)
			}
			fn(&p.Value)
		}
	case InstrFunction:
		for i := range in.Function.Context {
			fn(&in.Function.Context[i])
		}
	case InstrDestructure:
		fn(&in.Destructure.Value)
	}
}

// EachDef calls fn with a pointer to every identifier the instruction
// defines, the Lvalue first.
func (in *Instr) EachDef(fn func(*IdentifierID)) {
	fn(&in.Lvalue)
	switch in.Kind {
	case InstrStoreLocal, InstrDeclareContext:
		fn(&in.Local.Var)
	case InstrDestructure:
		for i := range in.Destructure.Items {
			if in.Destructure.Items[i].Target.IsValid() {
				fn(&in.Destructure.Items[i].Target)
			}
		}
	}
}

// MayThrow reports whether the instruction can raise an exception. User
// code reached through implicit coercion in arithmetic is not considered.
func (in *Instr) MayThrow() bool {
	switch in.Kind {
	case InstrCall, InstrMethodCall, InstrNew,
		InstrPropertyLoad, InstrPropertyStore, InstrPropertyDelete,
		InstrComputedLoad, InstrComputedStore, InstrComputedDelete,
		InstrLoadGlobal, InstrStoreGlobal, InstrDestructure:
		return true
	case InstrBinary:
		return in.Binary.Op == ast.BinIn || in.Binary.Op == ast.BinInstanceOf
	}
	return false
}

// Clone returns a deep copy of the instruction's operand slices. Nested
// function bodies are shared.
func (in Instr) Clone() Instr {
	out := in
	out.Call.Args = append([]IdentifierID(nil), in.Call.Args...)
	out.Array.Elems = append([]IdentifierID(nil), in.Array.Elems...)
	out.Object.Props = append([]ObjectProp(nil), in.Object.Props...)
	out.Function.Context = append([]IdentifierID(nil), in.Function.Context...)
	out.Destructure.Items = append([]DestructureItem(nil), in.Destructure.Items...)
	return out
}
