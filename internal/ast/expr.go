package ast

import "forget/internal/source"

// ExprKind enumerates expression kinds.
type ExprKind uint8

const (
	ExprIdent ExprKind = iota
	ExprNumber
	ExprString
	ExprBool
	ExprNull
	ExprArray
	ExprObject
	ExprFunction
	ExprCall
	ExprNew
	ExprMember
	ExprUnary
	ExprUpdate
	ExprBinary
	ExprLogical
	ExprConditional
	ExprAssign
	ExprSequence
	ExprSpread
	ExprAwait
	ExprYield
)

func (k ExprKind) String() string {
	switch k {
	case ExprIdent:
		return "Ident"
	case ExprNumber:
		return "Number"
	case ExprString:
		return "String"
	case ExprBool:
		return "Bool"
	case ExprNull:
		return "Null"
	case ExprArray:
		return "Array"
	case ExprObject:
		return "Object"
	case ExprFunction:
		return "Function"
	case ExprCall:
		return "Call"
	case ExprNew:
		return "New"
	case ExprMember:
		return "Member"
	case ExprUnary:
		return "Unary"
	case ExprUpdate:
		return "Update"
	case ExprBinary:
		return "Binary"
	case ExprLogical:
		return "Logical"
	case ExprConditional:
		return "Conditional"
	case ExprAssign:
		return "Assign"
	case ExprSequence:
		return "Sequence"
	case ExprSpread:
		return "Spread"
	case ExprAwait:
		return "Await"
	case ExprYield:
		return "Yield"
	default:
		return "Unknown"
	}
}

// Expr is an expression node.
type Expr struct {
	Kind ExprKind
	Span source.Span
	Data ExprData // nil for ExprNull
}

// ExprData is the kind-specific payload of an Expr.
// ExprIdent carries *Ident directly.
type ExprData interface {
	exprData()
}

type NumberLit struct {
	Value float64
	Raw   string
}

type StringLit struct {
	Value string
}

type BoolLit struct {
	Value bool
}

// ArrayLit elements may be ExprSpread.
type ArrayLit struct {
	Elems []*Expr
}

type ObjectLit struct {
	Props []*Property
}

// Property is one entry of an object literal. Exactly one of Key and
// Computed is set unless Spread is true, in which case Value holds the
// spread operand.
type Property struct {
	Key       string
	Computed  *Expr
	Value     *Expr
	Shorthand bool
	Spread    bool
	Span      source.Span
}

type FunctionExpr struct {
	Func *Function
}

// CallExpr is shared by ExprCall and ExprNew. Arguments may be ExprSpread.
type CallExpr struct {
	Callee *Expr
	Args   []*Expr
}

// MemberExpr is `Object.Property` or, when Computed is set, `Object[Computed]`.
type MemberExpr struct {
	Object   *Expr
	Property string
	Computed *Expr
}

type UnaryExpr struct {
	Op UnaryOp
	X  *Expr
}

type UpdateExpr struct {
	Op     UpdateOp
	Prefix bool
	X      *Expr
}

type BinaryExpr struct {
	Op BinaryOp
	X  *Expr
	Y  *Expr
}

type LogicalExpr struct {
	Op LogicalOp
	X  *Expr
	Y  *Expr
}

type ConditionalExpr struct {
	Test *Expr
	Cons *Expr
	Alt  *Expr
}

// AssignExpr targets an identifier or member expression.
type AssignExpr struct {
	Op     AssignOp
	Target *Expr
	Value  *Expr
}

type SequenceExpr struct {
	Exprs []*Expr
}

// WrapperExpr is the payload of ExprSpread, ExprAwait and ExprYield.
type WrapperExpr struct {
	X *Expr // nil for a bare yield
}

func (*NumberLit) exprData()       {}
func (*StringLit) exprData()       {}
func (*BoolLit) exprData()         {}
func (*ArrayLit) exprData()        {}
func (*ObjectLit) exprData()       {}
func (*FunctionExpr) exprData()    {}
func (*CallExpr) exprData()        {}
func (*MemberExpr) exprData()      {}
func (*UnaryExpr) exprData()       {}
func (*UpdateExpr) exprData()      {}
func (*BinaryExpr) exprData()      {}
func (*LogicalExpr) exprData()     {}
func (*ConditionalExpr) exprData() {}
func (*AssignExpr) exprData()      {}
func (*SequenceExpr) exprData()    {}
func (*WrapperExpr) exprData()     {}
