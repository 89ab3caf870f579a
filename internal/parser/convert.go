package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"fortio.org/safecast"
	"github.com/alecthomas/participle/v2/lexer"

	"forget/internal/ast"
	"forget/internal/source"
)

type converter struct {
	file source.FileID
	src  []byte
	errs []error
}

func (c *converter) offset(off int) uint32 {
	n, err := safecast.Conv[uint32](off)
	if err != nil {
		panic(fmt.Errorf("parser: offset overflow: %w", err))
	}
	return n
}

func (c *converter) errorf(sp source.Span, format string, args ...any) {
	c.errs = append(c.errs, &SyntaxError{Span: sp, Msg: fmt.Sprintf(format, args...)})
}

func (c *converter) ident(id *ident) *ast.Ident {
	start := c.offset(id.Pos.Offset)
	return &ast.Ident{
		Name: id.Name,
		Span: source.Span{File: c.file, Start: start, End: start + c.offset(len(id.Name))},
	}
}

func (c *converter) stmts(in []*statement) []*ast.Stmt {
	out := make([]*ast.Stmt, 0, len(in))
	for _, st := range in {
		out = append(out, c.stmt(st))
	}
	return out
}

func (c *converter) stmt(st *statement) *ast.Stmt {
	sp := c.span(st.Pos, st.EndPos)
	mk := func(kind ast.StmtKind, data ast.StmtData) *ast.Stmt {
		return &ast.Stmt{Kind: kind, Span: sp, Data: data}
	}
	switch {
	case st.Function != nil:
		fn := st.Function
		return mk(ast.StmtFunction, &ast.FunctionStmt{Func: c.function(
			c.span(fn.Pos, fn.EndPos), c.ident(fn.Name), fn.Params, fn.Body, fn.Async, fn.Generator,
		)})
	case st.Class != nil:
		return mk(ast.StmtClass, &ast.ClassStmt{Name: c.ident(st.Class.Name)})
	case st.Var != nil:
		return mk(ast.StmtVar, c.varDecl(st.Var))
	case st.If != nil:
		data := &ast.IfStmt{Test: c.seq(st.If.Test), Cons: c.stmt(st.If.Cons)}
		if st.If.Alt != nil {
			data.Alt = c.stmt(st.If.Alt)
		}
		return mk(ast.StmtIf, data)
	case st.While != nil:
		return mk(ast.StmtWhile, &ast.WhileStmt{Test: c.seq(st.While.Test), Body: c.stmt(st.While.Body)})
	case st.DoWhile != nil:
		return mk(ast.StmtDoWhile, &ast.DoWhileStmt{Body: c.stmt(st.DoWhile.Body), Test: c.seq(st.DoWhile.Test)})
	case st.ForEach != nil:
		fe := st.ForEach
		data := &ast.ForEachStmt{Left: c.pattern(fe.Left), Right: c.seq(fe.Right), Body: c.stmt(fe.Body)}
		if fe.Decl != nil {
			kind := varKind(*fe.Decl)
			data.Decl = &kind
		}
		kind := ast.StmtForIn
		if fe.Op == "of" {
			kind = ast.StmtForOf
		}
		return mk(kind, data)
	case st.For != nil:
		f := st.For
		data := &ast.ForStmt{Body: c.stmt(f.Body)}
		switch {
		case f.InitVar != nil:
			data.Init = &ast.Stmt{Kind: ast.StmtVar, Span: c.span(f.InitVar.Pos, f.InitVar.EndPos), Data: c.varDecl(f.InitVar)}
		case f.InitExpr != nil:
			x := c.seq(f.InitExpr)
			data.Init = &ast.Stmt{Kind: ast.StmtExpr, Span: x.Span, Data: &ast.ExprStmt{X: x}}
		}
		if f.Test != nil {
			data.Test = c.seq(f.Test)
		}
		if f.Update != nil {
			data.Update = c.seq(f.Update)
		}
		return mk(ast.StmtFor, data)
	case st.Return != nil:
		data := &ast.ReturnStmt{}
		if st.Return.Value != nil {
			data.Value = c.seq(st.Return.Value)
		}
		return mk(ast.StmtReturn, data)
	case st.Break != nil:
		return mk(ast.StmtBreak, &ast.BranchStmt{Label: c.optIdent(st.Break.Label)})
	case st.Continue != nil:
		return mk(ast.StmtContinue, &ast.BranchStmt{Label: c.optIdent(st.Continue.Label)})
	case st.Throw != nil:
		return mk(ast.StmtThrow, &ast.ThrowStmt{Value: c.seq(st.Throw.Value)})
	case st.Try != nil:
		t := st.Try
		data := &ast.TryStmt{Block: c.block(t.Block)}
		if t.Catch {
			data.Handler = c.block(t.Handler)
			if t.Param != nil {
				data.Param = c.pattern(t.Param)
			}
		}
		if t.Finalizer != nil {
			data.Finalizer = c.block(t.Finalizer)
		}
		return mk(ast.StmtTry, data)
	case st.Switch != nil:
		data := &ast.SwitchStmt{Disc: c.seq(st.Switch.Disc)}
		for _, cs := range st.Switch.Cases {
			sc := &ast.SwitchCase{Body: c.stmts(cs.Body), Span: c.span(cs.Pos, cs.EndPos)}
			if !cs.Default {
				sc.Test = c.seq(cs.Test)
			}
			data.Cases = append(data.Cases, sc)
		}
		return mk(ast.StmtSwitch, data)
	case st.Block != nil:
		return c.block(st.Block)
	case st.Labeled != nil:
		return mk(ast.StmtLabeled, &ast.LabeledStmt{Label: c.ident(st.Labeled.Label), Body: c.stmt(st.Labeled.Body)})
	case st.Expr != nil:
		return mk(ast.StmtExpr, &ast.ExprStmt{X: c.seq(st.Expr)})
	default:
		return mk(ast.StmtEmpty, nil)
	}
}

func (c *converter) optIdent(id *ident) *ast.Ident {
	if id == nil {
		return nil
	}
	return c.ident(id)
}

func (c *converter) block(b *blockStmt) *ast.Stmt {
	return &ast.Stmt{Kind: ast.StmtBlock, Span: c.span(b.Pos, b.EndPos), Data: &ast.BlockStmt{Body: c.stmts(b.Body)}}
}

func varKind(s string) ast.VarKind {
	switch s {
	case "let":
		return ast.VarLet
	case "const":
		return ast.VarConst
	default:
		return ast.VarVar
	}
}

func (c *converter) varDecl(v *varDecl) *ast.VarDecl {
	out := &ast.VarDecl{Kind: varKind(v.Kind)}
	for _, d := range v.Decls {
		decl := &ast.Declarator{Target: c.pattern(d.Target), Span: c.span(d.Pos, d.EndPos)}
		if d.Init != nil {
			decl.Init = c.assign(d.Init)
		}
		out.Decls = append(out.Decls, decl)
	}
	return out
}

func (c *converter) function(sp source.Span, name *ast.Ident, params []*param, body *funcBody, async, generator bool) *ast.Function {
	fn := &ast.Function{Name: name, Async: async, Generator: generator, Span: sp}
	fn.Params = c.params(params)
	fn.Body = c.stmts(body.Body)
	return fn
}

func (c *converter) params(in []*param) []*ast.Pattern {
	out := make([]*ast.Pattern, 0, len(in))
	for _, p := range in {
		pat := c.pattern(p.Target)
		if p.Rest || p.Default != nil {
			// Parameters with rest or default wrap the target in a
			// single-element array pattern so the builder can reject them
			// with the same path as nested destructuring.
			el := &ast.PatternElem{Value: pat, Rest: p.Rest, Span: c.span(p.Pos, p.EndPos)}
			if p.Default != nil {
				el.Default = c.assign(p.Default)
			}
			pat = &ast.Pattern{Kind: ast.PatArray, Elems: []*ast.PatternElem{el}, Span: el.Span}
		}
		out = append(out, pat)
	}
	return out
}

func (c *converter) pattern(p *pattern) *ast.Pattern {
	sp := c.span(p.Pos, p.EndPos)
	switch {
	case p.Ident != nil:
		return &ast.Pattern{Kind: ast.PatIdent, Name: c.ident(p.Ident), Span: sp}
	case p.Object != nil:
		out := &ast.Pattern{Kind: ast.PatObject, Span: sp}
		for _, prop := range p.Object.Props {
			el := &ast.PatternElem{Span: c.span(prop.Pos, prop.EndPos)}
			if prop.Rest != nil {
				id := c.ident(prop.Rest)
				el.Rest = true
				el.Key = id.Name
				el.Value = &ast.Pattern{Kind: ast.PatIdent, Name: id, Span: id.Span}
				out.Elems = append(out.Elems, el)
				continue
			}
			key, keySpan, ok := c.propKey(prop.Key, prop.Pos)
			el.Key = key
			switch {
			case prop.Value != nil:
				el.Value = c.pattern(prop.Value)
			case ok:
				id := &ast.Ident{Name: key, Span: keySpan}
				el.Value = &ast.Pattern{Kind: ast.PatIdent, Name: id, Span: keySpan}
			default:
				c.errorf(el.Span, "shorthand property %q is not an identifier", key)
			}
			if prop.Default != nil {
				el.Default = c.assign(prop.Default)
			}
			out.Elems = append(out.Elems, el)
		}
		return out
	default:
		out := &ast.Pattern{Kind: ast.PatArray, Span: sp}
		for _, el := range p.Array {
			pe := &ast.PatternElem{Span: c.span(el.Pos, el.EndPos)}
			if el.Hole {
				pe.Hole = true
			} else {
				pe.Rest = el.Rest
				pe.Value = c.pattern(el.Target)
				if el.Default != nil {
					pe.Default = c.assign(el.Default)
				}
			}
			out.Elems = append(out.Elems, pe)
		}
		return out
	}
}

// propKey returns the key text and whether it could also serve as a
// shorthand binding.
func (c *converter) propKey(k *propKey, pos lexer.Position) (string, source.Span, bool) {
	start := c.offset(pos.Offset)
	switch {
	case k.Name != nil:
		return *k.Name, source.Span{File: c.file, Start: start, End: start + c.offset(len(*k.Name))}, !isReserved(*k.Name)
	case k.String != nil:
		s, err := unquote(*k.String)
		if err != nil {
			c.errorf(source.Span{File: c.file, Start: start, End: start}, "%v", err)
		}
		return s, source.Span{}, false
	default:
		v, err := parseNumber(*k.Number)
		if err != nil {
			c.errorf(source.Span{File: c.file, Start: start, End: start}, "%v", err)
		}
		return strconv.FormatFloat(v, 'g', -1, 64), source.Span{}, false
	}
}

var reservedWord = regexp.MustCompile(`^` + keywords + `$`)

func isReserved(name string) bool {
	return reservedWord.MatchString(name)
}

// Expressions

func (c *converter) seq(s *seqExpr) *ast.Expr {
	if len(s.Exprs) == 1 {
		return c.assign(s.Exprs[0])
	}
	items := make([]*ast.Expr, 0, len(s.Exprs))
	for _, x := range s.Exprs {
		items = append(items, c.assign(x))
	}
	return &ast.Expr{Kind: ast.ExprSequence, Span: c.span(s.Pos, s.EndPos), Data: &ast.SequenceExpr{Exprs: items}}
}

func (c *converter) assign(a *assignExpr) *ast.Expr {
	left := c.cond(a.Left)
	if a.Op == "" {
		return left
	}
	op, _ := ast.AssignOpFromText(a.Op)
	if left.Kind != ast.ExprIdent && left.Kind != ast.ExprMember {
		c.errorf(left.Span, "invalid assignment target")
	}
	return &ast.Expr{
		Kind: ast.ExprAssign,
		Span: c.span(a.Pos, a.EndPos),
		Data: &ast.AssignExpr{Op: op, Target: left, Value: c.assign(a.Right)},
	}
}

func (c *converter) cond(x *condExpr) *ast.Expr {
	test := c.binary(x.Test)
	if x.Cons == nil {
		return test
	}
	return &ast.Expr{
		Kind: ast.ExprConditional,
		Span: c.span(x.Pos, x.EndPos),
		Data: &ast.ConditionalExpr{Test: test, Cons: c.assign(x.Cons), Alt: c.assign(x.Alt)},
	}
}

var binaryPrec = map[string]int{
	"??": 1,
	"||": 2,
	"&&": 3,
	"|":  4,
	"^":  5,
	"&":  6,
	"==": 7, "!=": 7, "===": 7, "!==": 7,
	"<": 8, "<=": 8, ">": 8, ">=": 8, "in": 8, "instanceof": 8,
	"<<": 9, ">>": 9, ">>>": 9,
	"+": 10, "-": 10,
	"*": 11, "/": 11, "%": 11,
	"**": 12,
}

// binary applies precedence climbing over the flat operator list.
func (c *converter) binary(b *binaryExpr) *ast.Expr {
	operands := make([]*ast.Expr, 0, len(b.Ops)+1)
	ops := make([]string, 0, len(b.Ops))
	operands = append(operands, c.unary(b.Left))
	for _, op := range b.Ops {
		ops = append(ops, op.Op)
		operands = append(operands, c.unary(op.Right))
	}
	pos := 0
	var climb func(minPrec int) *ast.Expr
	climb = func(minPrec int) *ast.Expr {
		lhs := operands[pos]
		for pos < len(ops) && binaryPrec[ops[pos]] >= minPrec {
			op := ops[pos]
			prec := binaryPrec[op]
			pos++
			next := prec + 1
			if op == "**" {
				next = prec
			}
			rhs := climb(next)
			lhs = makeBinary(op, lhs, rhs)
		}
		return lhs
	}
	return climb(1)
}

func makeBinary(op string, x, y *ast.Expr) *ast.Expr {
	sp := x.Span.Cover(y.Span)
	switch op {
	case "&&":
		return &ast.Expr{Kind: ast.ExprLogical, Span: sp, Data: &ast.LogicalExpr{Op: ast.LogicalAnd, X: x, Y: y}}
	case "||":
		return &ast.Expr{Kind: ast.ExprLogical, Span: sp, Data: &ast.LogicalExpr{Op: ast.LogicalOr, X: x, Y: y}}
	case "??":
		return &ast.Expr{Kind: ast.ExprLogical, Span: sp, Data: &ast.LogicalExpr{Op: ast.LogicalNullish, X: x, Y: y}}
	}
	bop, _ := ast.BinaryOpFromText(op)
	return &ast.Expr{Kind: ast.ExprBinary, Span: sp, Data: &ast.BinaryExpr{Op: bop, X: x, Y: y}}
}

var unaryOps = map[string]ast.UnaryOp{
	"!":      ast.UnaryNot,
	"-":      ast.UnaryNeg,
	"+":      ast.UnaryPlus,
	"~":      ast.UnaryBitNot,
	"typeof": ast.UnaryTypeof,
	"void":   ast.UnaryVoid,
	"delete": ast.UnaryDelete,
}

func (c *converter) unary(u *unaryExpr) *ast.Expr {
	x := c.postfix(u.Operand)
	sp := c.span(u.Pos, u.EndPos)
	for i := len(u.Ops) - 1; i >= 0; i-- {
		switch op := u.Ops[i]; op {
		case "++", "--":
			uop := ast.UpdateInc
			if op == "--" {
				uop = ast.UpdateDec
			}
			c.checkUpdateTarget(x)
			x = &ast.Expr{Kind: ast.ExprUpdate, Span: sp, Data: &ast.UpdateExpr{Op: uop, Prefix: true, X: x}}
		case "await":
			x = &ast.Expr{Kind: ast.ExprAwait, Span: sp, Data: &ast.WrapperExpr{X: x}}
		case "yield":
			x = &ast.Expr{Kind: ast.ExprYield, Span: sp, Data: &ast.WrapperExpr{X: x}}
		default:
			x = &ast.Expr{Kind: ast.ExprUnary, Span: sp, Data: &ast.UnaryExpr{Op: unaryOps[op], X: x}}
		}
	}
	return x
}

func (c *converter) checkUpdateTarget(x *ast.Expr) {
	if x.Kind != ast.ExprIdent && x.Kind != ast.ExprMember {
		c.errorf(x.Span, "invalid update target")
	}
}

func (c *converter) postfix(p *postfixExpr) *ast.Expr {
	x := c.primary(p.Primary)
	start := c.offset(p.Pos.Offset)
	for _, s := range p.Suffixes {
		end := c.span(p.Pos, s.EndPos)
		end.Start = start
		x = c.applySuffix(x, s.Member, s.Index, s.Call, end)
	}
	if p.Update != nil {
		op := ast.UpdateInc
		if *p.Update == "--" {
			op = ast.UpdateDec
		}
		c.checkUpdateTarget(x)
		x = &ast.Expr{Kind: ast.ExprUpdate, Span: c.span(p.Pos, p.EndPos), Data: &ast.UpdateExpr{Op: op, X: x}}
	}
	return x
}

func (c *converter) applySuffix(x *ast.Expr, member *propName, index *seqExpr, call *arguments, sp source.Span) *ast.Expr {
	switch {
	case member != nil:
		return &ast.Expr{Kind: ast.ExprMember, Span: sp, Data: &ast.MemberExpr{Object: x, Property: member.Name}}
	case index != nil:
		return &ast.Expr{Kind: ast.ExprMember, Span: sp, Data: &ast.MemberExpr{Object: x, Computed: c.seq(index)}}
	default:
		return &ast.Expr{Kind: ast.ExprCall, Span: sp, Data: &ast.CallExpr{Callee: x, Args: c.args(call)}}
	}
}

func (c *converter) args(a *arguments) []*ast.Expr {
	if a == nil {
		return nil
	}
	out := make([]*ast.Expr, 0, len(a.Args))
	for _, arg := range a.Args {
		out = append(out, c.argument(arg))
	}
	return out
}

func (c *converter) argument(arg *argument) *ast.Expr {
	x := c.assign(arg.Value)
	if !arg.Spread {
		return x
	}
	return &ast.Expr{Kind: ast.ExprSpread, Span: c.span(arg.Pos, arg.EndPos), Data: &ast.WrapperExpr{X: x}}
}

func (c *converter) primary(p *primaryExpr) *ast.Expr {
	sp := c.span(p.Pos, p.EndPos)
	mk := func(kind ast.ExprKind, data ast.ExprData) *ast.Expr {
		return &ast.Expr{Kind: kind, Span: sp, Data: data}
	}
	switch {
	case p.Function != nil:
		f := p.Function
		return mk(ast.ExprFunction, &ast.FunctionExpr{Func: c.function(sp, c.optIdent(f.Name), f.Params, f.Body, f.Async, f.Generator)})
	case p.Arrow != nil:
		return mk(ast.ExprFunction, &ast.FunctionExpr{Func: c.arrow(sp, p.Arrow)})
	case p.New != nil:
		n := p.New
		callee := c.primary(n.Callee)
		for _, m := range n.Members {
			msp := callee.Span.Cover(c.span(p.Pos, m.EndPos))
			callee = c.applySuffix(callee, m.Member, m.Index, nil, msp)
		}
		return mk(ast.ExprNew, &ast.CallExpr{Callee: callee, Args: c.args(n.Args)})
	case p.Number != nil:
		v, err := parseNumber(*p.Number)
		if err != nil {
			c.errorf(sp, "%v", err)
		}
		return mk(ast.ExprNumber, &ast.NumberLit{Value: v, Raw: *p.Number})
	case p.String != nil:
		s, err := unquote(*p.String)
		if err != nil {
			c.errorf(sp, "%v", err)
		}
		return mk(ast.ExprString, &ast.StringLit{Value: s})
	case p.Bool != nil:
		return mk(ast.ExprBool, &ast.BoolLit{Value: *p.Bool == "true"})
	case p.Null:
		return mk(ast.ExprNull, nil)
	case p.Array != nil:
		elems := make([]*ast.Expr, 0, len(p.Array.Elems))
		for _, el := range p.Array.Elems {
			elems = append(elems, c.argument(el))
		}
		return mk(ast.ExprArray, &ast.ArrayLit{Elems: elems})
	case p.Object != nil:
		return mk(ast.ExprObject, c.object(p.Object))
	case p.Paren != nil:
		return c.seq(p.Paren)
	case p.Ident != nil:
		id := c.ident(p.Ident)
		return &ast.Expr{Kind: ast.ExprIdent, Span: id.Span, Data: id}
	default:
		c.errorf(sp, "empty expression")
		return mk(ast.ExprNull, nil)
	}
}

func (c *converter) arrow(sp source.Span, a *arrowFunc) *ast.Function {
	fn := &ast.Function{Arrow: true, Async: a.Async, Span: sp}
	if a.Single != nil {
		id := c.ident(a.Single)
		fn.Params = []*ast.Pattern{{Kind: ast.PatIdent, Name: id, Span: id.Span}}
	} else {
		fn.Params = c.params(a.Params)
	}
	if a.Block != nil {
		fn.Body = c.stmts(a.Block.Body)
	} else {
		fn.ExprBody = c.assign(a.Expr)
	}
	return fn
}

func (c *converter) object(o *objectLit) *ast.ObjectLit {
	out := &ast.ObjectLit{}
	for _, p := range o.Props {
		prop := &ast.Property{Span: c.span(p.Pos, p.EndPos)}
		switch {
		case p.Spread != nil:
			prop.Spread = true
			prop.Value = c.assign(p.Spread)
		case p.Computed != nil:
			prop.Computed = c.assign(p.Computed)
			if p.Value == nil {
				c.errorf(prop.Span, "computed property needs a value")
				continue
			}
			prop.Value = c.assign(p.Value)
		default:
			key, keySpan, ok := c.propKey(p.Key, p.Pos)
			prop.Key = key
			if p.Value != nil {
				prop.Value = c.assign(p.Value)
				break
			}
			if !ok {
				c.errorf(prop.Span, "shorthand property %q is not an identifier", key)
				continue
			}
			id := &ast.Ident{Name: key, Span: keySpan}
			prop.Shorthand = true
			prop.Value = &ast.Expr{Kind: ast.ExprIdent, Span: keySpan, Data: id}
		}
		out.Props = append(out.Props, prop)
	}
	return out
}

func parseNumber(raw string) (float64, error) {
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		n, err := strconv.ParseUint(raw[2:], 16, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", raw)
		}
		return float64(n), nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	return v, nil
}

// unquote decodes a single- or double-quoted string literal.
func unquote(raw string) (string, error) {
	if len(raw) < 2 {
		return "", fmt.Errorf("invalid string literal %s", raw)
	}
	body := raw[1 : len(raw)-1]
	if !strings.Contains(body, `\`) {
		return body, nil
	}
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		ch := body[i]
		if ch != '\\' {
			sb.WriteByte(ch)
			continue
		}
		i++
		if i >= len(body) {
			return "", fmt.Errorf("invalid escape in %s", raw)
		}
		switch e := body[i]; e {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '0':
			sb.WriteByte(0)
		case 'x', 'u':
			width := 2
			if e == 'u' {
				width = 4
			}
			if i+width >= len(body) {
				return "", fmt.Errorf("invalid escape in %s", raw)
			}
			code, err := strconv.ParseUint(body[i+1:i+1+width], 16, 32)
			if err != nil {
				return "", fmt.Errorf("invalid escape in %s", raw)
			}
			sb.WriteRune(rune(code))
			i += width
		default:
			sb.WriteByte(e)
		}
	}
	return sb.String(), nil
}
