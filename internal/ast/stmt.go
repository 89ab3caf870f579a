package ast

import "forget/internal/source"

// StmtKind enumerates statement kinds.
type StmtKind uint8

const (
	StmtEmpty StmtKind = iota
	StmtExpr
	StmtVar
	StmtFunction
	StmtReturn
	StmtIf
	StmtWhile
	StmtDoWhile
	StmtFor
	StmtForIn
	StmtForOf
	StmtBreak
	StmtContinue
	StmtThrow
	StmtTry
	StmtSwitch
	StmtBlock
	StmtLabeled
	StmtClass
)

func (k StmtKind) String() string {
	switch k {
	case StmtEmpty:
		return "Empty"
	case StmtExpr:
		return "Expr"
	case StmtVar:
		return "Var"
	case StmtFunction:
		return "Function"
	case StmtReturn:
		return "Return"
	case StmtIf:
		return "If"
	case StmtWhile:
		return "While"
	case StmtDoWhile:
		return "DoWhile"
	case StmtFor:
		return "For"
	case StmtForIn:
		return "ForIn"
	case StmtForOf:
		return "ForOf"
	case StmtBreak:
		return "Break"
	case StmtContinue:
		return "Continue"
	case StmtThrow:
		return "Throw"
	case StmtTry:
		return "Try"
	case StmtSwitch:
		return "Switch"
	case StmtBlock:
		return "Block"
	case StmtLabeled:
		return "Labeled"
	case StmtClass:
		return "Class"
	default:
		return "Unknown"
	}
}

// Stmt is a statement node.
type Stmt struct {
	Kind StmtKind
	Span source.Span
	Data StmtData // nil for StmtEmpty
}

// StmtData is the kind-specific payload of a Stmt.
type StmtData interface {
	stmtData()
}

// VarKind distinguishes var, let and const declarations.
type VarKind uint8

const (
	VarVar VarKind = iota
	VarLet
	VarConst
)

func (k VarKind) String() string {
	switch k {
	case VarLet:
		return "let"
	case VarConst:
		return "const"
	default:
		return "var"
	}
}

type ExprStmt struct {
	X *Expr
}

type VarDecl struct {
	Kind  VarKind
	Decls []*Declarator
}

type Declarator struct {
	Target *Pattern
	Init   *Expr // may be nil
	Span   source.Span
}

type FunctionStmt struct {
	Func *Function
}

type ReturnStmt struct {
	Value *Expr // may be nil
}

type IfStmt struct {
	Test *Expr
	Cons *Stmt
	Alt  *Stmt // may be nil
}

type WhileStmt struct {
	Test *Expr
	Body *Stmt
}

type DoWhileStmt struct {
	Body *Stmt
	Test *Expr
}

// ForStmt is the classic three-clause loop. Init is either a StmtVar or a
// StmtExpr statement, or nil.
type ForStmt struct {
	Init   *Stmt
	Test   *Expr
	Update *Expr
	Body   *Stmt
}

// ForEachStmt covers both for-in and for-of; the Stmt kind tells them apart.
type ForEachStmt struct {
	Decl  *VarKind // nil when the loop assigns an existing binding
	Left  *Pattern
	Right *Expr
	Body  *Stmt
}

type BranchStmt struct {
	Label *Ident // may be nil
}

type ThrowStmt struct {
	Value *Expr
}

type TryStmt struct {
	Block     *Stmt
	Param     *Pattern // may be nil, also nil when there is no handler
	Handler   *Stmt    // may be nil
	Finalizer *Stmt    // may be nil
}

type SwitchStmt struct {
	Disc  *Expr
	Cases []*SwitchCase
}

type SwitchCase struct {
	Test *Expr // nil for default
	Body []*Stmt
	Span source.Span
}

type BlockStmt struct {
	Body []*Stmt
}

type LabeledStmt struct {
	Label *Ident
	Body  *Stmt
}

type ClassStmt struct {
	Name *Ident
}

func (*ExprStmt) stmtData()     {}
func (*VarDecl) stmtData()      {}
func (*FunctionStmt) stmtData() {}
func (*ReturnStmt) stmtData()   {}
func (*IfStmt) stmtData()       {}
func (*WhileStmt) stmtData()    {}
func (*DoWhileStmt) stmtData()  {}
func (*ForStmt) stmtData()      {}
func (*ForEachStmt) stmtData()  {}
func (*BranchStmt) stmtData()   {}
func (*ThrowStmt) stmtData()    {}
func (*TryStmt) stmtData()      {}
func (*SwitchStmt) stmtData()   {}
func (*BlockStmt) stmtData()    {}
func (*LabeledStmt) stmtData()  {}
func (*ClassStmt) stmtData()    {}
