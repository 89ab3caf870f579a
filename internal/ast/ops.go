package ast

// UnaryOp enumerates prefix operators other than ++/--.
type UnaryOp uint8

const (
	UnaryNot UnaryOp = iota
	UnaryNeg
	UnaryPlus
	UnaryBitNot
	UnaryTypeof
	UnaryVoid
	UnaryDelete
)

var unaryOpText = [...]string{
	UnaryNot:    "!",
	UnaryNeg:    "-",
	UnaryPlus:   "+",
	UnaryBitNot: "~",
	UnaryTypeof: "typeof",
	UnaryVoid:   "void",
	UnaryDelete: "delete",
}

func (op UnaryOp) String() string {
	if int(op) < len(unaryOpText) {
		return unaryOpText[op]
	}
	return "?"
}

type UpdateOp uint8

const (
	UpdateInc UpdateOp = iota
	UpdateDec
)

func (op UpdateOp) String() string {
	if op == UpdateDec {
		return "--"
	}
	return "++"
}

// BinaryOp enumerates non-short-circuit binary operators.
type BinaryOp uint8

const (
	BinAdd BinaryOp = iota
	BinSub
	BinMul
	BinDiv
	BinMod
	BinExp
	BinLooseEq
	BinLooseNotEq
	BinStrictEq
	BinStrictNotEq
	BinLt
	BinLtEq
	BinGt
	BinGtEq
	BinBitAnd
	BinBitOr
	BinBitXor
	BinShl
	BinShr
	BinUShr
	BinIn
	BinInstanceOf
)

var binaryOpText = [...]string{
	BinAdd:         "+",
	BinSub:         "-",
	BinMul:         "*",
	BinDiv:         "/",
	BinMod:         "%",
	BinExp:         "**",
	BinLooseEq:     "==",
	BinLooseNotEq:  "!=",
	BinStrictEq:    "===",
	BinStrictNotEq: "!==",
	BinLt:          "<",
	BinLtEq:        "<=",
	BinGt:          ">",
	BinGtEq:        ">=",
	BinBitAnd:      "&",
	BinBitOr:       "|",
	BinBitXor:      "^",
	BinShl:         "<<",
	BinShr:         ">>",
	BinUShr:        ">>>",
	BinIn:          "in",
	BinInstanceOf:  "instanceof",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpText) {
		return binaryOpText[op]
	}
	return "?"
}

// BinaryOpFromText maps an operator token to its BinaryOp.
func BinaryOpFromText(s string) (BinaryOp, bool) {
	for i, t := range binaryOpText {
		if t == s {
			return BinaryOp(i), true
		}
	}
	return 0, false
}

type LogicalOp uint8

const (
	LogicalAnd LogicalOp = iota
	LogicalOr
	LogicalNullish
)

func (op LogicalOp) String() string {
	switch op {
	case LogicalOr:
		return "||"
	case LogicalNullish:
		return "??"
	default:
		return "&&"
	}
}

// AssignOp enumerates assignment operators; compound forms map to a BinaryOp.
type AssignOp uint8

const (
	AssignPlain AssignOp = iota
	AssignAdd
	AssignSub
	AssignMul
	AssignDiv
	AssignMod
	AssignBitAnd
	AssignBitOr
	AssignBitXor
	AssignShl
	AssignShr
)

var assignOpText = [...]string{
	AssignPlain:  "=",
	AssignAdd:    "+=",
	AssignSub:    "-=",
	AssignMul:    "*=",
	AssignDiv:    "/=",
	AssignMod:    "%=",
	AssignBitAnd: "&=",
	AssignBitOr:  "|=",
	AssignBitXor: "^=",
	AssignShl:    "<<=",
	AssignShr:    ">>=",
}

func (op AssignOp) String() string {
	if int(op) < len(assignOpText) {
		return assignOpText[op]
	}
	return "?"
}

// AssignOpFromText maps an assignment token to its AssignOp.
func AssignOpFromText(s string) (AssignOp, bool) {
	for i, t := range assignOpText {
		if t == s {
			return AssignOp(i), true
		}
	}
	return 0, false
}

// Binary returns the arithmetic operator of a compound assignment.
func (op AssignOp) Binary() (BinaryOp, bool) {
	switch op {
	case AssignAdd:
		return BinAdd, true
	case AssignSub:
		return BinSub, true
	case AssignMul:
		return BinMul, true
	case AssignDiv:
		return BinDiv, true
	case AssignMod:
		return BinMod, true
	case AssignBitAnd:
		return BinBitAnd, true
	case AssignBitOr:
		return BinBitOr, true
	case AssignBitXor:
		return BinBitXor, true
	case AssignShl:
		return BinShl, true
	case AssignShr:
		return BinShr, true
	default:
		return 0, false
	}
}
