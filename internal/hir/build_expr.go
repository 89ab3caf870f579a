package hir

import (
	"forget/internal/ast"
	"forget/internal/diag"
	"forget/internal/sema"
	"forget/internal/source"
)

var compoundOps = map[ast.AssignOp]ast.BinaryOp{
	ast.AssignAdd:    ast.BinAdd,
	ast.AssignSub:    ast.BinSub,
	ast.AssignMul:    ast.BinMul,
	ast.AssignDiv:    ast.BinDiv,
	ast.AssignMod:    ast.BinMod,
	ast.AssignBitAnd: ast.BinBitAnd,
	ast.AssignBitOr:  ast.BinBitOr,
	ast.AssignBitXor: ast.BinBitXor,
	ast.AssignShl:    ast.BinShl,
	ast.AssignShr:    ast.BinShr,
}

// expr lowers x and returns the identifier holding its value.
func (b *builder) expr(x *ast.Expr) (IdentifierID, error) {
	if x == nil {
		return b.primitive(Undefined(), source.Span{}), nil
	}
	switch x.Kind {
	case ast.ExprIdent:
		return b.loadIdent(x.Data.(*ast.Ident), x.Span)
	case ast.ExprNumber:
		return b.primitive(Number(x.Data.(*ast.NumberLit).Value), x.Span), nil
	case ast.ExprString:
		return b.primitive(StringValue(x.Data.(*ast.StringLit).Value), x.Span), nil
	case ast.ExprBool:
		return b.primitive(Boolean(x.Data.(*ast.BoolLit).Value), x.Span), nil
	case ast.ExprNull:
		return b.primitive(Null(), x.Span), nil
	case ast.ExprArray:
		return b.array(x.Data.(*ast.ArrayLit), x.Span)
	case ast.ExprObject:
		return b.object(x.Data.(*ast.ObjectLit), x.Span)
	case ast.ExprFunction:
		return b.lowerFunction(x.Data.(*ast.FunctionExpr).Func)
	case ast.ExprCall:
		return b.call(x.Data.(*ast.CallExpr), x.Span)
	case ast.ExprNew:
		c := x.Data.(*ast.CallExpr)
		callee, err := b.expr(c.Callee)
		if err != nil {
			return NoIdentifierID, err
		}
		args, err := b.args(c.Args)
		if err != nil {
			return NoIdentifierID, err
		}
		return b.emit(Instr{Kind: InstrNew, Span: x.Span, Call: CallOp{Callee: callee, Receiver: NoIdentifierID, Args: args}}), nil
	case ast.ExprMember:
		m := x.Data.(*ast.MemberExpr)
		obj, err := b.expr(m.Object)
		if err != nil {
			return NoIdentifierID, err
		}
		return b.memberLoad(m, obj, x.Span)
	case ast.ExprUnary:
		return b.unary(x.Data.(*ast.UnaryExpr), x.Span)
	case ast.ExprUpdate:
		return b.update(x.Data.(*ast.UpdateExpr), x.Span)
	case ast.ExprBinary:
		bin := x.Data.(*ast.BinaryExpr)
		left, err := b.expr(bin.X)
		if err != nil {
			return NoIdentifierID, err
		}
		right, err := b.expr(bin.Y)
		if err != nil {
			return NoIdentifierID, err
		}
		return b.emit(Instr{Kind: InstrBinary, Span: x.Span, Binary: BinaryOp{Op: bin.Op, Left: left, Right: right}}), nil
	case ast.ExprLogical:
		return b.logical(x.Data.(*ast.LogicalExpr), x.Span)
	case ast.ExprConditional:
		return b.conditional(x.Data.(*ast.ConditionalExpr), x.Span)
	case ast.ExprAssign:
		return b.assign(x.Data.(*ast.AssignExpr), x.Span)
	case ast.ExprSequence:
		last := NoIdentifierID
		for _, e := range x.Data.(*ast.SequenceExpr).Exprs {
			v, err := b.expr(e)
			if err != nil {
				return NoIdentifierID, err
			}
			last = v
		}
		return last, nil
	case ast.ExprSpread:
		return NoIdentifierID, unsupported(x.Span, "spread elements are not supported")
	case ast.ExprAwait:
		return NoIdentifierID, unsupported(x.Span, "await expressions are not supported")
	case ast.ExprYield:
		return NoIdentifierID, unsupported(x.Span, "yield expressions are not supported")
	}
	return NoIdentifierID, unsupported(x.Span, "unsupported expression %s", x.Kind)
}

func (b *builder) args(list []*ast.Expr) ([]IdentifierID, error) {
	out := make([]IdentifierID, 0, len(list))
	for _, a := range list {
		v, err := b.expr(a)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (b *builder) array(lit *ast.ArrayLit, span source.Span) (IdentifierID, error) {
	elems, err := b.args(lit.Elems)
	if err != nil {
		return NoIdentifierID, err
	}
	return b.emit(Instr{Kind: InstrArray, Span: span, Array: ArrayOp{Elems: elems}}), nil
}

func (b *builder) object(lit *ast.ObjectLit, span source.Span) (IdentifierID, error) {
	var op ObjectOp
	for _, p := range lit.Props {
		if p.Spread {
			return NoIdentifierID, unsupported(p.Span, "object spread is not supported")
		}
		prop := ObjectProp{Key: p.Key, Computed: NoIdentifierID}
		if p.Computed != nil {
			k, err := b.expr(p.Computed)
			if err != nil {
				return NoIdentifierID, err
			}
			prop.Computed = k
		}
		v, err := b.expr(p.Value)
		if err != nil {
			return NoIdentifierID, err
		}
		prop.Value = v
		op.Props = append(op.Props, prop)
	}
	return b.emit(Instr{Kind: InstrObject, Span: span, Object: op}), nil
}

func (b *builder) memberLoad(m *ast.MemberExpr, obj IdentifierID, span source.Span) (IdentifierID, error) {
	if m.Computed != nil {
		key, err := b.expr(m.Computed)
		if err != nil {
			return NoIdentifierID, err
		}
		return b.emit(Instr{Kind: InstrComputedLoad, Span: span, Computed: ComputedOp{Object: obj, Key: key, Value: NoIdentifierID}}), nil
	}
	return b.emit(Instr{Kind: InstrPropertyLoad, Span: span, Property: PropertyOp{Object: obj, Name: m.Property, Value: NoIdentifierID}}), nil
}

// call lowers a call. A member callee becomes a MethodCall so the receiver
// stays bound.
func (b *builder) call(c *ast.CallExpr, span source.Span) (IdentifierID, error) {
	if c.Callee.Kind == ast.ExprMember {
		m := c.Callee.Data.(*ast.MemberExpr)
		recv, err := b.expr(m.Object)
		if err != nil {
			return NoIdentifierID, err
		}
		fn, err := b.memberLoad(m, recv, c.Callee.Span)
		if err != nil {
			return NoIdentifierID, err
		}
		args, err := b.args(c.Args)
		if err != nil {
			return NoIdentifierID, err
		}
		return b.emit(Instr{Kind: InstrMethodCall, Span: span, Call: CallOp{Callee: fn, Receiver: recv, Args: args}}), nil
	}
	callee, err := b.expr(c.Callee)
	if err != nil {
		return NoIdentifierID, err
	}
	args, err := b.args(c.Args)
	if err != nil {
		return NoIdentifierID, err
	}
	return b.emit(Instr{Kind: InstrCall, Span: span, Call: CallOp{Callee: callee, Receiver: NoIdentifierID, Args: args}}), nil
}

func (b *builder) unary(u *ast.UnaryExpr, span source.Span) (IdentifierID, error) {
	if u.Op == ast.UnaryDelete {
		if u.X.Kind != ast.ExprMember {
			return NoIdentifierID, unsupported(span, "delete of a non-member expression is not supported")
		}
		m := u.X.Data.(*ast.MemberExpr)
		obj, err := b.expr(m.Object)
		if err != nil {
			return NoIdentifierID, err
		}
		if m.Computed != nil {
			key, err := b.expr(m.Computed)
			if err != nil {
				return NoIdentifierID, err
			}
			return b.emit(Instr{Kind: InstrComputedDelete, Span: span, Computed: ComputedOp{Object: obj, Key: key, Value: NoIdentifierID}}), nil
		}
		return b.emit(Instr{Kind: InstrPropertyDelete, Span: span, Property: PropertyOp{Object: obj, Name: m.Property, Value: NoIdentifierID}}), nil
	}
	v, err := b.expr(u.X)
	if err != nil {
		return NoIdentifierID, err
	}
	return b.emit(Instr{Kind: InstrUnary, Span: span, Unary: UnaryOp{Op: u.Op, Value: v}}), nil
}

// update lowers ++ and --. The old value is converted with unary plus so
// the postfix result is a number.
func (b *builder) update(u *ast.UpdateExpr, span source.Span) (IdentifierID, error) {
	op := ast.BinAdd
	if u.Op == ast.UpdateDec {
		op = ast.BinSub
	}
	var result IdentifierID
	err := b.assignTarget(u.X, span, func(old IdentifierID) (IdentifierID, error) {
		n := b.emit(Instr{Kind: InstrUnary, Span: span, Unary: UnaryOp{Op: ast.UnaryPlus, Value: old}})
		one := b.primitive(Number(1), span)
		next := b.emit(Instr{Kind: InstrBinary, Span: span, Binary: BinaryOp{Op: op, Left: n, Right: one}})
		result = n
		if u.Prefix {
			result = next
		}
		return next, nil
	})
	if err != nil {
		return NoIdentifierID, err
	}
	return result, nil
}

func (b *builder) assign(a *ast.AssignExpr, span source.Span) (IdentifierID, error) {
	if a.Op == ast.AssignPlain {
		if a.Target.Kind == ast.ExprIdent {
			v, err := b.expr(a.Value)
			if err != nil {
				return NoIdentifierID, err
			}
			if _, err := b.storeIdent(a.Target.Data.(*ast.Ident), v, DeclReassign, span); err != nil {
				return NoIdentifierID, err
			}
			return v, nil
		}
		if a.Target.Kind == ast.ExprMember {
			return b.memberStore(a.Target.Data.(*ast.MemberExpr), span, func() (IdentifierID, error) {
				return b.expr(a.Value)
			})
		}
		return NoIdentifierID, unsupported(a.Target.Span, "destructuring assignment is not supported")
	}
	op, ok := compoundOps[a.Op]
	if !ok {
		return NoIdentifierID, unsupported(span, "assignment operator %s is not supported", a.Op)
	}
	var result IdentifierID
	err := b.assignTarget(a.Target, span, func(old IdentifierID) (IdentifierID, error) {
		right, err := b.expr(a.Value)
		if err != nil {
			return NoIdentifierID, err
		}
		result = b.emit(Instr{Kind: InstrBinary, Span: span, Binary: BinaryOp{Op: op, Left: old, Right: right}})
		return result, nil
	})
	if err != nil {
		return NoIdentifierID, err
	}
	return result, nil
}

// assignTarget reads target, computes its new value with next and
// writes it back.
func (b *builder) assignTarget(target *ast.Expr, span source.Span, next func(old IdentifierID) (IdentifierID, error)) error {
	switch target.Kind {
	case ast.ExprIdent:
		id := target.Data.(*ast.Ident)
		old, err := b.loadIdent(id, target.Span)
		if err != nil {
			return err
		}
		v, err := next(old)
		if err != nil {
			return err
		}
		_, err = b.storeIdent(id, v, DeclReassign, span)
		return err
	case ast.ExprMember:
		m := target.Data.(*ast.MemberExpr)
		obj, err := b.expr(m.Object)
		if err != nil {
			return err
		}
		key := NoIdentifierID
		if m.Computed != nil {
			if key, err = b.expr(m.Computed); err != nil {
				return err
			}
		}
		var old IdentifierID
		if key.IsValid() {
			old = b.emit(Instr{Kind: InstrComputedLoad, Span: target.Span, Computed: ComputedOp{Object: obj, Key: key, Value: NoIdentifierID}})
		} else {
			old = b.emit(Instr{Kind: InstrPropertyLoad, Span: target.Span, Property: PropertyOp{Object: obj, Name: m.Property, Value: NoIdentifierID}})
		}
		v, err := next(old)
		if err != nil {
			return err
		}
		b.emitMemberStore(m, obj, key, v, span)
		return nil
	}
	return &BuildError{Span: target.Span, Code: diag.HirInvalidSyntax, Reason: "invalid assignment target"}
}

func (b *builder) memberStore(m *ast.MemberExpr, span source.Span, value func() (IdentifierID, error)) (IdentifierID, error) {
	obj, err := b.expr(m.Object)
	if err != nil {
		return NoIdentifierID, err
	}
	key := NoIdentifierID
	if m.Computed != nil {
		if key, err = b.expr(m.Computed); err != nil {
			return NoIdentifierID, err
		}
	}
	v, err := value()
	if err != nil {
		return NoIdentifierID, err
	}
	b.emitMemberStore(m, obj, key, v, span)
	return v, nil
}

func (b *builder) emitMemberStore(m *ast.MemberExpr, obj, key, value IdentifierID, span source.Span) {
	if key.IsValid() {
		b.emit(Instr{Kind: InstrComputedStore, Span: span, Computed: ComputedOp{Object: obj, Key: key, Value: value}})
		return
	}
	b.emit(Instr{Kind: InstrPropertyStore, Span: span, Property: PropertyOp{Object: obj, Name: m.Property, Value: value}})
}

// newJoinVar returns an anonymous variable that carries a value across a
// branch.
func (b *builder) newJoinVar(span source.Span) IdentifierID {
	return b.idents.NewNamed("", sema.NoBindingID, false, span)
}

func (b *builder) storeJoin(v, value IdentifierID, span source.Span) {
	b.emit(Instr{Kind: InstrStoreLocal, Span: span, Local: LocalOp{Kind: DeclReassign, Var: v, Value: value}})
}

func (b *builder) loadJoin(v IdentifierID, span source.Span) IdentifierID {
	return b.emit(Instr{Kind: InstrLoadLocal, Span: span, Local: LocalOp{Var: v, Value: NoIdentifierID}})
}

// logical short-circuits: the left value is stored first and the right
// operand only overwrites it on the evaluating branch.
func (b *builder) logical(l *ast.LogicalExpr, span source.Span) (IdentifierID, error) {
	left, err := b.expr(l.X)
	if err != nil {
		return NoIdentifierID, err
	}
	v := b.newJoinVar(span)
	b.storeJoin(v, left, span)

	right := b.newBlock()
	join := b.newBlock()
	switch l.Op {
	case ast.LogicalAnd:
		b.setTerm(Terminator{Kind: TermIf, Span: span, If: IfTerm{Test: left, Then: right, Else: join}})
	case ast.LogicalOr:
		b.setTerm(Terminator{Kind: TermIf, Span: span, If: IfTerm{Test: left, Then: join, Else: right}})
	default:
		null := b.primitive(Null(), span)
		test := b.emit(Instr{Kind: InstrBinary, Span: span, Binary: BinaryOp{Op: ast.BinLooseEq, Left: left, Right: null}})
		b.setTerm(Terminator{Kind: TermIf, Span: span, If: IfTerm{Test: test, Then: right, Else: join}})
	}

	b.startBlock(right)
	r, err := b.expr(l.Y)
	if err != nil {
		return NoIdentifierID, err
	}
	b.storeJoin(v, r, span)
	b.gotoBlock(join, span)

	b.startBlock(join)
	return b.loadJoin(v, span), nil
}

func (b *builder) conditional(c *ast.ConditionalExpr, span source.Span) (IdentifierID, error) {
	test, err := b.expr(c.Test)
	if err != nil {
		return NoIdentifierID, err
	}
	v := b.newJoinVar(span)
	then := b.newBlock()
	els := b.newBlock()
	join := b.newBlock()
	b.setTerm(Terminator{Kind: TermIf, Span: span, If: IfTerm{Test: test, Then: then, Else: els}})

	for _, arm := range []struct {
		blk BlockID
		x   *ast.Expr
	}{{then, c.Cons}, {els, c.Alt}} {
		b.startBlock(arm.blk)
		r, err := b.expr(arm.x)
		if err != nil {
			return NoIdentifierID, err
		}
		b.storeJoin(v, r, span)
		b.gotoBlock(join, span)
	}

	b.startBlock(join)
	return b.loadJoin(v, span), nil
}
