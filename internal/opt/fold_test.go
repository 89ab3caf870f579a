package opt

import (
	"math"
	"testing"

	"forget/internal/ast"
	"forget/internal/hir"
)

func TestFoldBinary(t *testing.T) {
	cases := []struct {
		name string
		op   ast.BinaryOp
		a, b hir.Primitive
		want hir.Primitive
	}{
		{"add", ast.BinAdd, hir.Number(1), hir.Number(2), hir.Number(3)},
		{"concat", ast.BinAdd, hir.StringValue("a"), hir.Number(1), hir.StringValue("a1")},
		{"concat-null", ast.BinAdd, hir.Null(), hir.StringValue("x"), hir.StringValue("nullx")},
		{"add-bool", ast.BinAdd, hir.Boolean(true), hir.Null(), hir.Number(1)},
		{"sub", ast.BinSub, hir.Number(5), hir.Number(7), hir.Number(-2)},
		{"mod-negative", ast.BinMod, hir.Number(-7), hir.Number(3), hir.Number(-1)},
		{"exp", ast.BinExp, hir.Number(2), hir.Number(10), hir.Number(1024)},
		{"bitor-wraps", ast.BinBitOr, hir.Number(4294967296 + 5), hir.Number(0), hir.Number(5)},
		{"shl", ast.BinShl, hir.Number(1), hir.Number(33), hir.Number(2)},
		{"shr-sign", ast.BinShr, hir.Number(-8), hir.Number(1), hir.Number(-4)},
		{"ushr", ast.BinUShr, hir.Number(-1), hir.Number(28), hir.Number(15)},
		{"strict-eq-types", ast.BinStrictEq, hir.Number(1), hir.StringValue("1"), hir.Boolean(false)},
		{"loose-nullish", ast.BinLooseEq, hir.Null(), hir.Undefined(), hir.Boolean(true)},
		{"loose-null-zero", ast.BinLooseNotEq, hir.Null(), hir.Number(0), hir.Boolean(true)},
		{"lt", ast.BinLt, hir.Number(1), hir.Number(2), hir.Boolean(true)},
		{"lt-strings", ast.BinLt, hir.StringValue("b"), hir.StringValue("a"), hir.Boolean(false)},
		{"gte-nan", ast.BinGtEq, hir.Undefined(), hir.Number(0), hir.Boolean(false)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := FoldBinary(tc.op, tc.a, tc.b)
			if !ok {
				t.Fatalf("%s %s %s did not fold", tc.a.Literal(), tc.op, tc.b.Literal())
			}
			if !got.Same(tc.want) {
				t.Fatalf("got %s, want %s", got.Literal(), tc.want.Literal())
			}
		})
	}
}

func TestFoldBinary_Refuses(t *testing.T) {
	cases := []struct {
		name string
		op   ast.BinaryOp
		a, b hir.Primitive
	}{
		{"in", ast.BinIn, hir.StringValue("a"), hir.Null()},
		{"instanceof", ast.BinInstanceOf, hir.Number(1), hir.Null()},
		{"string-arith", ast.BinSub, hir.StringValue("3"), hir.Number(1)},
		{"loose-mixed", ast.BinLooseEq, hir.StringValue("1"), hir.Number(1)},
		{"non-ascii-compare", ast.BinLt, hir.StringValue("é"), hir.StringValue("e")},
		{"mixed-compare", ast.BinLt, hir.StringValue("1"), hir.Number(2)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got, ok := FoldBinary(tc.op, tc.a, tc.b); ok {
				t.Fatalf("unexpected fold to %s", got.Literal())
			}
		})
	}
}

func TestFoldBinary_SpecialNumbers(t *testing.T) {
	if got, _ := FoldBinary(ast.BinDiv, hir.Number(1), hir.Number(0)); !math.IsInf(got.Number, 1) {
		t.Fatalf("1/0 = %v", got.Number)
	}
	if got, _ := FoldBinary(ast.BinExp, hir.Number(1), hir.Number(math.Inf(1))); !math.IsNaN(got.Number) {
		t.Fatalf("1 ** Infinity = %v", got.Number)
	}
	if got, _ := FoldBinary(ast.BinStrictEq, hir.Number(math.NaN()), hir.Number(math.NaN())); got.Bool {
		t.Fatalf("NaN === NaN must be false")
	}
	if got, _ := FoldBinary(ast.BinStrictEq, hir.Number(0), hir.Number(math.Copysign(0, -1))); !got.Bool {
		t.Fatalf("0 === -0 must be true")
	}
}

func TestFoldUnary(t *testing.T) {
	cases := []struct {
		op   ast.UnaryOp
		v    hir.Primitive
		want hir.Primitive
	}{
		{ast.UnaryNot, hir.StringValue(""), hir.Boolean(true)},
		{ast.UnaryNeg, hir.Number(3), hir.Number(-3)},
		{ast.UnaryPlus, hir.Boolean(true), hir.Number(1)},
		{ast.UnaryBitNot, hir.Number(5), hir.Number(-6)},
		{ast.UnaryTypeof, hir.Null(), hir.StringValue("object")},
		{ast.UnaryTypeof, hir.Undefined(), hir.StringValue("undefined")},
		{ast.UnaryVoid, hir.Number(1), hir.Undefined()},
	}
	for _, tc := range cases {
		got, ok := FoldUnary(tc.op, tc.v)
		if !ok || !got.Same(tc.want) {
			t.Fatalf("%s %s = %s (ok=%v), want %s", tc.op, tc.v.Literal(), got.Literal(), ok, tc.want.Literal())
		}
	}
	if _, ok := FoldUnary(ast.UnaryNeg, hir.StringValue("1")); ok {
		t.Fatalf("negating a string must not fold")
	}
}
