package hir

import (
	"forget/internal/ast"
	"forget/internal/diag"
	"forget/internal/sema"
	"forget/internal/source"
)

func (b *builder) stmts(list []*ast.Stmt) error {
	for _, st := range list {
		if err := b.stmt(st); err != nil {
			return err
		}
	}
	return nil
}

// block lowers a nested statement, opening its block scope when it is a
// block statement.
func (b *builder) block(st *ast.Stmt) error {
	if st == nil {
		return nil
	}
	if body, ok := st.Data.(*ast.BlockStmt); ok {
		if b.curBlock().Terminated() {
			return nil
		}
		b.enterScope(b.an.StmtScope(st))
		return b.stmts(body.Body)
	}
	return b.stmt(st)
}

func (b *builder) stmt(st *ast.Stmt) error {
	if st == nil || b.curBlock().Terminated() {
		return nil
	}
	switch d := st.Data.(type) {
	case nil:
		return nil
	case *ast.ExprStmt:
		_, err := b.expr(d.X)
		return err
	case *ast.VarDecl:
		return b.varDecl(d, st.Span)
	case *ast.FunctionStmt:
		bid, _, ok := b.declared(d.Func.Name)
		if !ok {
			return unsupported(st.Span, "function declaration without a binding")
		}
		b.declaredFuncs[bid] = true
		v, err := b.lowerFunction(d.Func)
		if err != nil {
			return err
		}
		_, err = b.storeIdent(d.Func.Name, v, DeclFunction, d.Func.Name.Span)
		return err
	case *ast.ClassStmt:
		return unsupported(st.Span, "class declarations are not supported")
	case *ast.ReturnStmt:
		var v IdentifierID
		if d.Value != nil {
			var err error
			if v, err = b.expr(d.Value); err != nil {
				return err
			}
		} else {
			v = b.primitive(Undefined(), st.Span)
		}
		b.setTerm(Terminator{Kind: TermReturn, Span: st.Span, Return: ReturnTerm{Value: v}})
		return nil
	case *ast.ThrowStmt:
		v, err := b.expr(d.Value)
		if err != nil {
			return err
		}
		b.setTerm(Terminator{Kind: TermThrow, Span: st.Span, Throw: ThrowTerm{Value: v, Handler: b.handler}})
		return nil
	case *ast.IfStmt:
		return b.ifStmt(d, st.Span)
	case *ast.WhileStmt:
		return b.whileStmt(d, st.Span)
	case *ast.DoWhileStmt:
		return b.doWhileStmt(d, st.Span)
	case *ast.ForStmt:
		return b.forStmt(st, d)
	case *ast.ForEachStmt:
		kind := "for-of"
		if st.Kind == ast.StmtForIn {
			kind = "for-in"
		}
		return unsupported(st.Span, "%s loops are not supported", kind)
	case *ast.BranchStmt:
		return b.branch(st, d)
	case *ast.TryStmt:
		return b.tryStmt(st, d)
	case *ast.SwitchStmt:
		return b.switchStmt(st, d)
	case *ast.BlockStmt:
		return b.block(st)
	case *ast.LabeledStmt:
		return unsupported(st.Span, "labeled statements are not supported")
	}
	return unsupported(st.Span, "unsupported statement %s", st.Kind)
}

func (b *builder) varDecl(d *ast.VarDecl, span source.Span) error {
	kind := DeclLet
	switch d.Kind {
	case ast.VarVar:
		kind = DeclVar
	case ast.VarConst:
		kind = DeclConst
	}
	for _, decl := range d.Decls {
		if decl.Init == nil && d.Kind == ast.VarVar {
			continue
		}
		var v IdentifierID
		if decl.Init != nil {
			var err error
			if v, err = b.expr(decl.Init); err != nil {
				return err
			}
		} else {
			v = b.primitive(Undefined(), decl.Span)
		}
		if err := b.assignPattern(decl.Target, v, kind); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) ifStmt(d *ast.IfStmt, span source.Span) error {
	test, err := b.expr(d.Test)
	if err != nil {
		return err
	}
	then := b.newBlock()
	join := b.newBlock()
	els := join
	if d.Alt != nil {
		els = b.newBlock()
	}
	b.setTerm(Terminator{Kind: TermIf, Span: span, If: IfTerm{Test: test, Then: then, Else: els}})

	b.startBlock(then)
	if err := b.block(d.Cons); err != nil {
		return err
	}
	b.gotoBlock(join, span)
	if d.Alt != nil {
		b.startBlock(els)
		if err := b.block(d.Alt); err != nil {
			return err
		}
		b.gotoBlock(join, span)
	}
	b.startBlock(join)
	return nil
}

func (b *builder) whileStmt(d *ast.WhileStmt, span source.Span) error {
	header := b.newBlock()
	b.gotoBlock(header, span)
	b.startBlock(header)
	test, err := b.expr(d.Test)
	if err != nil {
		return err
	}
	body := b.newBlock()
	exit := b.newBlock()
	b.setTerm(Terminator{Kind: TermIf, Span: span, If: IfTerm{Test: test, Then: body, Else: exit}})

	b.loops = append(b.loops, loopCtx{breakTarget: exit, continueTarget: header})
	b.startBlock(body)
	if err := b.block(d.Body); err != nil {
		return err
	}
	b.gotoBlock(header, span)
	b.loops = b.loops[:len(b.loops)-1]
	b.startBlock(exit)
	return nil
}

func (b *builder) doWhileStmt(d *ast.DoWhileStmt, span source.Span) error {
	body := b.newBlock()
	cond := b.newBlock()
	exit := b.newBlock()
	b.gotoBlock(body, span)

	b.loops = append(b.loops, loopCtx{breakTarget: exit, continueTarget: cond})
	b.startBlock(body)
	if err := b.block(d.Body); err != nil {
		return err
	}
	b.gotoBlock(cond, span)
	b.loops = b.loops[:len(b.loops)-1]

	b.startBlock(cond)
	test, err := b.expr(d.Test)
	if err != nil {
		return err
	}
	b.setTerm(Terminator{Kind: TermIf, Span: span, If: IfTerm{Test: test, Then: body, Else: exit}})
	b.startBlock(exit)
	return nil
}

func (b *builder) forStmt(st *ast.Stmt, d *ast.ForStmt) error {
	scope := b.an.StmtScope(st)
	if sc := b.an.Scope(scope); sc != nil {
		for _, bid := range sc.Bindings {
			if binding := b.an.Binding(bid); binding.IsContext() {
				return unsupported(binding.Span, "closures capturing the reassigned loop binding '%s' are not supported", binding.Name)
			}
		}
	}
	b.enterScope(scope)
	if d.Init != nil {
		if err := b.stmt(d.Init); err != nil {
			return err
		}
	}

	header := b.newBlock()
	b.gotoBlock(header, st.Span)
	b.startBlock(header)
	body := b.newBlock()
	update := b.newBlock()
	exit := b.newBlock()
	if d.Test != nil {
		test, err := b.expr(d.Test)
		if err != nil {
			return err
		}
		b.setTerm(Terminator{Kind: TermIf, Span: d.Test.Span, If: IfTerm{Test: test, Then: body, Else: exit}})
	} else {
		b.gotoBlock(body, st.Span)
	}

	b.loops = append(b.loops, loopCtx{breakTarget: exit, continueTarget: update})
	b.startBlock(body)
	if err := b.block(d.Body); err != nil {
		return err
	}
	b.gotoBlock(update, st.Span)
	b.loops = b.loops[:len(b.loops)-1]

	b.startBlock(update)
	if d.Update != nil {
		if _, err := b.expr(d.Update); err != nil {
			return err
		}
	}
	b.gotoBlock(header, st.Span)
	b.startBlock(exit)
	return nil
}

func (b *builder) branch(st *ast.Stmt, d *ast.BranchStmt) error {
	isBreak := st.Kind == ast.StmtBreak
	if d.Label != nil {
		return unsupported(st.Span, "labeled break and continue are not supported")
	}
	for i := len(b.loops) - 1; i >= 0; i-- {
		l := b.loops[i]
		if isBreak {
			b.gotoBlock(l.breakTarget, st.Span)
			return nil
		}
		if l.continueTarget.IsValid() {
			b.gotoBlock(l.continueTarget, st.Span)
			return nil
		}
	}
	if isBreak {
		return &BuildError{Span: st.Span, Code: diag.HirBreakOutside, Reason: "break outside of a loop or switch"}
	}
	return &BuildError{Span: st.Span, Code: diag.HirContinueOutside, Reason: "continue outside of a loop"}
}

func (b *builder) tryStmt(st *ast.Stmt, d *ast.TryStmt) error {
	if d.Finalizer != nil {
		return unsupported(st.Span, "try/finally is not supported")
	}
	if d.Handler == nil {
		return unsupported(st.Span, "try without catch is not supported")
	}
	handler := b.newBlock()
	join := b.newBlock()

	saved := b.handler
	b.handler = handler
	if err := b.block(d.Block); err != nil {
		return err
	}
	b.gotoBlock(join, st.Span)
	b.handler = saved

	b.startBlock(handler)
	exc := b.emit(Instr{Kind: InstrCatchParam, Span: d.Handler.Span})
	b.enterScope(b.an.StmtScope(st))
	if d.Param != nil {
		if err := b.assignPattern(d.Param, exc, DeclCatch); err != nil {
			return err
		}
	}
	if err := b.block(d.Handler); err != nil {
		return err
	}
	b.gotoBlock(join, st.Span)
	b.startBlock(join)
	return nil
}

// switchStmt evaluates every case test before dispatching, so tests are
// limited to literals and local names.
func (b *builder) switchStmt(st *ast.Stmt, d *ast.SwitchStmt) error {
	disc, err := b.expr(d.Disc)
	if err != nil {
		return err
	}
	for _, c := range d.Cases {
		for _, cst := range c.Body {
			if vd, ok := cst.Data.(*ast.VarDecl); ok && vd.Kind != ast.VarVar {
				return unsupported(cst.Span, "lexical declarations directly inside switch cases are not supported")
			}
		}
		if c.Test != nil && !b.simpleCaseTest(c.Test) {
			return unsupported(c.Test.Span, "switch case tests must be literals or local names")
		}
	}
	b.enterScope(b.an.StmtScope(st))

	term := SwitchTerm{Test: disc, Default: NoBlockID}
	bodies := make([]BlockID, len(d.Cases))
	tests := make([]IdentifierID, len(d.Cases))
	for i, c := range d.Cases {
		if c.Test == nil {
			continue
		}
		if tests[i], err = b.expr(c.Test); err != nil {
			return err
		}
	}
	for i := range d.Cases {
		bodies[i] = b.newBlock()
	}
	exit := b.newBlock()
	for i, c := range d.Cases {
		if c.Test == nil {
			term.Default = bodies[i]
			continue
		}
		term.Cases = append(term.Cases, SwitchCase{Test: tests[i], Target: bodies[i]})
	}
	if !term.Default.IsValid() {
		term.Default = exit
	}
	b.setTerm(Terminator{Kind: TermSwitch, Span: st.Span, Switch: term})

	b.loops = append(b.loops, loopCtx{breakTarget: exit, continueTarget: NoBlockID})
	for i, c := range d.Cases {
		b.startBlock(bodies[i])
		if err := b.stmts(c.Body); err != nil {
			return err
		}
		next := exit
		if i+1 < len(bodies) {
			next = bodies[i+1]
		}
		b.gotoBlock(next, c.Span)
	}
	b.loops = b.loops[:len(b.loops)-1]
	b.startBlock(exit)
	return nil
}

func (b *builder) simpleCaseTest(x *ast.Expr) bool {
	switch x.Kind {
	case ast.ExprNumber, ast.ExprString, ast.ExprBool, ast.ExprNull:
		return true
	case ast.ExprUnary:
		u := x.Data.(*ast.UnaryExpr)
		return (u.Op == ast.UnaryNeg || u.Op == ast.UnaryPlus) && u.X.Kind == ast.ExprNumber
	case ast.ExprIdent:
		id := x.Data.(*ast.Ident)
		_, binding, local := b.resolve(id)
		if !local {
			return id.Name == "undefined" && binding == nil
		}
		return binding.Kind != sema.BindingFunction
	}
	return false
}
