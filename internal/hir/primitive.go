package hir

import (
	"math"
	"strconv"
	"strings"
)

// PrimitiveKind enumerates the literal value kinds.
type PrimitiveKind uint8

const (
	PrimUndefined PrimitiveKind = iota
	PrimNull
	PrimBoolean
	PrimNumber
	PrimString
)

func (k PrimitiveKind) String() string {
	switch k {
	case PrimNull:
		return "null"
	case PrimBoolean:
		return "boolean"
	case PrimNumber:
		return "number"
	case PrimString:
		return "string"
	default:
		return "undefined"
	}
}

// Primitive is a literal JavaScript value.
type Primitive struct {
	Kind   PrimitiveKind
	Bool   bool
	Number float64
	String string
}

func Undefined() Primitive           { return Primitive{Kind: PrimUndefined} }
func Null() Primitive                { return Primitive{Kind: PrimNull} }
func Boolean(v bool) Primitive       { return Primitive{Kind: PrimBoolean, Bool: v} }
func Number(v float64) Primitive     { return Primitive{Kind: PrimNumber, Number: v} }
func StringValue(v string) Primitive { return Primitive{Kind: PrimString, String: v} }

// Same reports structural identity: NaN is the same as NaN and 0 differs
// from -0.
func (p Primitive) Same(o Primitive) bool {
	if p.Kind != o.Kind {
		return false
	}
	switch p.Kind {
	case PrimBoolean:
		return p.Bool == o.Bool
	case PrimNumber:
		return math.Float64bits(p.Number) == math.Float64bits(o.Number)
	case PrimString:
		return p.String == o.String
	default:
		return true
	}
}

// Nullish reports whether p is null or undefined.
func (p Primitive) Nullish() bool {
	return p.Kind == PrimNull || p.Kind == PrimUndefined
}

// Truthy applies ToBoolean.
func (p Primitive) Truthy() bool {
	switch p.Kind {
	case PrimBoolean:
		return p.Bool
	case PrimNumber:
		return p.Number != 0 && !math.IsNaN(p.Number)
	case PrimString:
		return p.String != ""
	default:
		return false
	}
}

// Literal renders p as source text.
func (p Primitive) Literal() string {
	switch p.Kind {
	case PrimNull:
		return "null"
	case PrimBoolean:
		return strconv.FormatBool(p.Bool)
	case PrimNumber:
		if p.Number == 0 && math.Signbit(p.Number) {
			return "-0"
		}
		return FormatNumber(p.Number)
	case PrimString:
		return strconv.Quote(p.String)
	default:
		return "undefined"
	}
}

// FormatNumber implements Number::toString for radix 10.
func FormatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		return "0"
	}
	if v < 0 {
		return "-" + FormatNumber(-v)
	}

	// Shortest round-tripping digits d1d2...dk and exponent such that the
	// value is 0.d1...dk * 10^n.
	sci := strconv.FormatFloat(v, 'e', -1, 64)
	mant, expText, _ := strings.Cut(sci, "e")
	digits := strings.Replace(mant, ".", "", 1)
	exp, _ := strconv.Atoi(expText)
	k := len(digits)
	n := exp + 1

	var sb strings.Builder
	switch {
	case k <= n && n <= 21:
		sb.WriteString(digits)
		sb.WriteString(strings.Repeat("0", n-k))
	case 0 < n && n <= 21:
		sb.WriteString(digits[:n])
		sb.WriteByte('.')
		sb.WriteString(digits[n:])
	case -6 < n && n <= 0:
		sb.WriteString("0.")
		sb.WriteString(strings.Repeat("0", -n))
		sb.WriteString(digits)
	default:
		sb.WriteByte(digits[0])
		if k > 1 {
			sb.WriteByte('.')
			sb.WriteString(digits[1:])
		}
		sb.WriteByte('e')
		if n-1 >= 0 {
			sb.WriteByte('+')
		}
		sb.WriteString(strconv.Itoa(n - 1))
	}
	return sb.String()
}
