package opt

import (
	"math"
	"strings"

	"forget/internal/ast"
	"forget/internal/hir"
)

// FoldBinary evaluates op on two primitives. ok is false when the result
// cannot be computed without risking a throw or a host-dependent
// conversion.
func FoldBinary(op ast.BinaryOp, a, b hir.Primitive) (hir.Primitive, bool) {
	switch op {
	case ast.BinStrictEq:
		return hir.Boolean(strictEquals(a, b)), true
	case ast.BinStrictNotEq:
		return hir.Boolean(!strictEquals(a, b)), true
	case ast.BinLooseEq, ast.BinLooseNotEq:
		eq, ok := looseEquals(a, b)
		if !ok {
			return hir.Primitive{}, false
		}
		if op == ast.BinLooseNotEq {
			eq = !eq
		}
		return hir.Boolean(eq), true
	case ast.BinAdd:
		if a.Kind == hir.PrimString || b.Kind == hir.PrimString {
			return hir.StringValue(toString(a) + toString(b)), true
		}
		return hir.Number(toNumber(a) + toNumber(b)), true
	case ast.BinLt, ast.BinLtEq, ast.BinGt, ast.BinGtEq:
		return compare(op, a, b)
	case ast.BinIn, ast.BinInstanceOf:
		return hir.Primitive{}, false
	}

	if a.Kind == hir.PrimString || b.Kind == hir.PrimString {
		return hir.Primitive{}, false
	}
	x, y := toNumber(a), toNumber(b)
	switch op {
	case ast.BinSub:
		return hir.Number(x - y), true
	case ast.BinMul:
		return hir.Number(x * y), true
	case ast.BinDiv:
		return hir.Number(x / y), true
	case ast.BinMod:
		return hir.Number(math.Mod(x, y)), true
	case ast.BinExp:
		return hir.Number(pow(x, y)), true
	case ast.BinBitAnd:
		return hir.Number(float64(toInt32(x) & toInt32(y))), true
	case ast.BinBitOr:
		return hir.Number(float64(toInt32(x) | toInt32(y))), true
	case ast.BinBitXor:
		return hir.Number(float64(toInt32(x) ^ toInt32(y))), true
	case ast.BinShl:
		return hir.Number(float64(toInt32(x) << (toUint32(y) & 31))), true
	case ast.BinShr:
		return hir.Number(float64(toInt32(x) >> (toUint32(y) & 31))), true
	case ast.BinUShr:
		return hir.Number(float64(toUint32(x) >> (toUint32(y) & 31))), true
	}
	return hir.Primitive{}, false
}

// FoldUnary evaluates op on a primitive.
func FoldUnary(op ast.UnaryOp, v hir.Primitive) (hir.Primitive, bool) {
	switch op {
	case ast.UnaryNot:
		return hir.Boolean(!v.Truthy()), true
	case ast.UnaryVoid:
		return hir.Undefined(), true
	case ast.UnaryTypeof:
		return hir.StringValue(typeOf(v)), true
	case ast.UnaryDelete:
		return hir.Primitive{}, false
	}
	if v.Kind == hir.PrimString {
		return hir.Primitive{}, false
	}
	n := toNumber(v)
	switch op {
	case ast.UnaryNeg:
		return hir.Number(-n), true
	case ast.UnaryPlus:
		return hir.Number(n), true
	case ast.UnaryBitNot:
		return hir.Number(float64(^toInt32(n))), true
	}
	return hir.Primitive{}, false
}

func strictEquals(a, b hir.Primitive) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case hir.PrimNumber:
		return a.Number == b.Number
	case hir.PrimString:
		return a.String == b.String
	case hir.PrimBoolean:
		return a.Bool == b.Bool
	default:
		return true
	}
}

func looseEquals(a, b hir.Primitive) (eq, ok bool) {
	if a.Kind == b.Kind {
		return strictEquals(a, b), true
	}
	if a.Nullish() || b.Nullish() {
		return a.Nullish() && b.Nullish(), true
	}
	return false, false
}

func compare(op ast.BinaryOp, a, b hir.Primitive) (hir.Primitive, bool) {
	if a.Kind == hir.PrimString || b.Kind == hir.PrimString {
		if a.Kind != b.Kind || !isASCII(a.String) || !isASCII(b.String) {
			return hir.Primitive{}, false
		}
		c := strings.Compare(a.String, b.String)
		switch op {
		case ast.BinLt:
			return hir.Boolean(c < 0), true
		case ast.BinLtEq:
			return hir.Boolean(c <= 0), true
		case ast.BinGt:
			return hir.Boolean(c > 0), true
		default:
			return hir.Boolean(c >= 0), true
		}
	}
	x, y := toNumber(a), toNumber(b)
	switch op {
	case ast.BinLt:
		return hir.Boolean(x < y), true
	case ast.BinLtEq:
		return hir.Boolean(x <= y), true
	case ast.BinGt:
		return hir.Boolean(x > y), true
	default:
		return hir.Boolean(x >= y), true
	}
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// toNumber converts a non-string primitive.
func toNumber(p hir.Primitive) float64 {
	switch p.Kind {
	case hir.PrimNumber:
		return p.Number
	case hir.PrimBoolean:
		if p.Bool {
			return 1
		}
		return 0
	case hir.PrimNull:
		return 0
	default:
		return math.NaN()
	}
}

func toString(p hir.Primitive) string {
	switch p.Kind {
	case hir.PrimString:
		return p.String
	case hir.PrimNumber:
		return hir.FormatNumber(p.Number)
	case hir.PrimBoolean:
		if p.Bool {
			return "true"
		}
		return "false"
	case hir.PrimNull:
		return "null"
	default:
		return "undefined"
	}
}

func typeOf(p hir.Primitive) string {
	switch p.Kind {
	case hir.PrimNull:
		return "object"
	case hir.PrimBoolean:
		return "boolean"
	case hir.PrimNumber:
		return "number"
	case hir.PrimString:
		return "string"
	default:
		return "undefined"
	}
}

func toUint32(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	m := math.Mod(math.Trunc(f), 1<<32)
	if m < 0 {
		m += 1 << 32
	}
	return uint32(m)
}

func toInt32(f float64) int32 {
	return int32(toUint32(f)) //nolint:gosec // two's complement wrap is the intended conversion
}

func pow(x, y float64) float64 {
	if math.IsNaN(y) || (math.Abs(x) == 1 && math.IsInf(y, 0)) {
		return math.NaN()
	}
	return math.Pow(x, y)
}
