package hir

import (
	"fmt"

	"fortio.org/safecast"

	"forget/internal/ast"
	"forget/internal/diag"
	"forget/internal/sema"
	"forget/internal/source"
)

// Build lowers fn, a top-level function of the analysed program, into a
// canonical control-flow graph. Unsupported syntax yields a *BuildError.
func Build(env *Environment, fn *ast.Function) (*Function, error) {
	if env == nil || env.Analysis() == nil {
		return nil, fmt.Errorf("hir: build: environment has no analysis")
	}
	if fn == nil {
		return nil, fmt.Errorf("hir: build: nil function")
	}
	an := env.Analysis()
	scope := an.FunctionScope(fn)
	if !scope.IsValid() {
		return nil, fmt.Errorf("hir: build: function %s was not analysed", functionName(fn))
	}
	shared := &buildShared{
		env:           env,
		an:            an,
		idents:        NewIdentifiers(),
		bindings:      make(map[sema.BindingID]IdentifierID),
		declaredFuncs: make(map[sema.BindingID]bool),
		root:          scope,
	}
	b := newBuilder(shared, nil, fn)
	return b.build()
}

func functionName(fn *ast.Function) string {
	if fn.Name == nil {
		return "<anonymous>"
	}
	return fn.Name.Name
}

// buildShared is the state common to a top-level function and every
// closure nested in it.
type buildShared struct {
	env    *Environment
	an     *sema.Analysis
	idents *Identifiers
	// bindings maps each local binding to its single pre-SSA identifier.
	bindings map[sema.BindingID]IdentifierID
	// declaredFuncs holds function declarations whose definition has been
	// reached.
	declaredFuncs map[sema.BindingID]bool
	// root is the scope of the top-level function; bindings outside it are
	// globals.
	root sema.ScopeID
}

type loopCtx struct {
	breakTarget    BlockID
	continueTarget BlockID // NoBlockID for switch statements
}

// builder lowers one function body.
type builder struct {
	*buildShared
	outer *builder
	src   *ast.Function
	scope sema.ScopeID

	f       *Function
	cur     BlockID
	loops   []loopCtx
	handler BlockID

	captures []sema.BindingID
	captured map[sema.BindingID]bool
}

func newBuilder(shared *buildShared, outer *builder, fn *ast.Function) *builder {
	return &builder{
		buildShared: shared,
		outer:       outer,
		src:         fn,
		scope:       shared.an.FunctionScope(fn),
		cur:         NoBlockID,
		handler:     NoBlockID,
		captured:    make(map[sema.BindingID]bool),
	}
}

func (b *builder) build() (*Function, error) {
	fn := b.src
	if fn.Async {
		return nil, unsupported(fn.Span, "async functions are not supported")
	}
	if fn.Generator {
		return nil, unsupported(fn.Span, "generator functions are not supported")
	}
	b.f = &Function{
		Span:   fn.Span,
		Arrow:  fn.Arrow,
		Idents: b.idents,
	}
	if fn.Name != nil {
		b.f.Name = fn.Name.Name
	}
	b.f.Entry = b.newBlock()
	b.startBlock(b.f.Entry)

	if fn.Name != nil {
		if bid, ok := b.an.Declaration(fn.Name); ok {
			if binding := b.an.Binding(bid); binding.Scope == b.scope && binding.References > 0 {
				return nil, unsupported(fn.Name.Span, "named function expression '%s' refers to itself", fn.Name.Name)
			}
		}
	}

	if err := b.lowerParams(); err != nil {
		return nil, err
	}

	if fn.ExprBody != nil {
		v, err := b.expr(fn.ExprBody)
		if err != nil {
			return nil, err
		}
		b.setTerm(Terminator{Kind: TermReturn, Span: fn.ExprBody.Span, Return: ReturnTerm{Value: v}})
	} else {
		if err := b.stmts(fn.Body); err != nil {
			return nil, err
		}
		if !b.curBlock().Terminated() {
			end := source.Span{File: fn.Span.File, Start: fn.Span.End, End: fn.Span.End}
			v := b.primitive(Undefined(), end)
			b.setTerm(Terminator{Kind: TermReturn, Span: end, Return: ReturnTerm{Value: v}})
		}
	}

	b.f.Canonicalize()
	return b.f, nil
}

// lowerParams binds parameters and initializes the function scope.
func (b *builder) lowerParams() error {
	type deferred struct {
		pattern *ast.Pattern
		value   IdentifierID
	}
	var later []deferred
	for _, p := range b.src.Params {
		if p.Kind == ast.PatIdent {
			bid, binding, ok := b.declared(p.Name)
			if !ok {
				return fmt.Errorf("hir: build: parameter '%s' has no binding", p.Name.Name)
			}
			if binding.IsContext() {
				tmp := b.idents.NewNamed(p.Name.Name, sema.NoBindingID, false, p.Span)
				b.f.Params = append(b.f.Params, tmp)
				later = append(later, deferred{pattern: p, value: tmp})
				continue
			}
			b.f.Params = append(b.f.Params, b.identFor(bid))
			continue
		}
		if !p.IsFlat() {
			return unsupported(p.Span, "parameter patterns with defaults, rest elements or nesting are not supported")
		}
		tmp := b.idents.NewTemporary(p.Span)
		b.f.Params = append(b.f.Params, tmp)
		later = append(later, deferred{pattern: p, value: tmp})
	}

	b.enterScope(b.scope)
	for _, d := range later {
		if err := b.assignPattern(d.pattern, d.value, DeclParam); err != nil {
			return err
		}
	}
	return nil
}

// enterScope declares the context variables of scope. For a function
// scope it also gives every plain var binding its initial undefined value.
func (b *builder) enterScope(scope sema.ScopeID) {
	sc := b.an.Scope(scope)
	if sc == nil {
		return
	}
	for _, bid := range sc.Bindings {
		binding := b.an.Binding(bid)
		switch {
		case binding.IsContext():
			b.emit(Instr{
				Kind:  InstrDeclareContext,
				Span:  binding.Span,
				Local: LocalOp{Kind: declKind(binding.Kind), Var: b.identFor(bid), Value: NoIdentifierID},
			})
		case binding.Kind == sema.BindingVar:
			v := b.primitive(Undefined(), binding.Span)
			b.emit(Instr{
				Kind:  InstrStoreLocal,
				Span:  binding.Span,
				Local: LocalOp{Kind: DeclVar, Var: b.identFor(bid), Value: v},
			})
		}
	}
}

func declKind(k sema.BindingKind) DeclKind {
	switch k {
	case sema.BindingVar:
		return DeclVar
	case sema.BindingConst:
		return DeclConst
	case sema.BindingParam:
		return DeclParam
	case sema.BindingFunction:
		return DeclFunction
	case sema.BindingCatch:
		return DeclCatch
	default:
		return DeclLet
	}
}

func (b *builder) curBlock() *Block {
	return b.f.Block(b.cur)
}

func (b *builder) newBlock() BlockID {
	raw, err := safecast.Conv[int32](len(b.f.Blocks))
	if err != nil {
		panic(fmt.Errorf("hir: block id overflow: %w", err))
	}
	id := BlockID(raw)
	b.f.Blocks = append(b.f.Blocks, Block{ID: id})
	return id
}

func (b *builder) startBlock(id BlockID) {
	b.cur = id
}

func (b *builder) setTerm(t Terminator) {
	blk := b.curBlock()
	if blk == nil || blk.Terminated() {
		return
	}
	blk.Term = t
}

// emit appends an instruction with a fresh Lvalue and returns it. Inside a
// try block a throwing instruction ends the block with a MaybeThrow edge
// to the handler.
func (b *builder) emit(in Instr) IdentifierID {
	if b.curBlock().Terminated() {
		b.startBlock(b.newBlock())
	}
	in.Lvalue = b.idents.NewTemporary(in.Span)
	blk := b.curBlock()
	blk.Instrs = append(blk.Instrs, in)
	if b.handler.IsValid() && in.MayThrow() {
		cont := b.newBlock()
		b.setTerm(Terminator{
			Kind:       TermMaybeThrow,
			Span:       in.Span,
			MaybeThrow: MaybeThrowTerm{Continuation: cont, Handler: b.handler},
		})
		b.startBlock(cont)
	}
	return in.Lvalue
}

func (b *builder) primitive(p Primitive, span source.Span) IdentifierID {
	return b.emit(Instr{Kind: InstrPrimitive, Span: span, Primitive: p})
}

// gotoBlock ends the current block with a jump unless it is already
// terminated.
func (b *builder) gotoBlock(target BlockID, span source.Span) {
	b.setTerm(Terminator{Kind: TermGoto, Span: span, Goto: GotoTerm{Target: target}})
}

// declared resolves a declaring identifier.
func (b *builder) declared(id *ast.Ident) (sema.BindingID, *sema.Binding, bool) {
	bid, ok := b.an.Declaration(id)
	if !ok || !bid.IsValid() {
		return sema.NoBindingID, nil, false
	}
	return bid, b.an.Binding(bid), true
}

// resolve finds the binding id refers to. local is false for globals,
// including bindings declared outside the top-level function.
func (b *builder) resolve(id *ast.Ident) (bid sema.BindingID, binding *sema.Binding, local bool) {
	bid, ok := b.an.Resolve(id)
	if !ok {
		return sema.NoBindingID, nil, false
	}
	binding = b.an.Binding(bid)
	owner := b.an.Scope(binding.Scope).Function
	if !b.an.Within(owner, b.root) {
		return bid, binding, false
	}
	return bid, binding, true
}

// identFor returns the identifier of a local binding.
func (b *builder) identFor(bid sema.BindingID) IdentifierID {
	if id, ok := b.bindings[bid]; ok {
		return id
	}
	binding := b.an.Binding(bid)
	id := b.idents.NewNamed(binding.Name, bid, binding.IsContext(), binding.Span)
	b.bindings[bid] = id
	return id
}

// capture records that this function refers to a binding owned by an
// enclosing function.
func (b *builder) capture(bid sema.BindingID) {
	binding := b.an.Binding(bid)
	if b.an.Scope(binding.Scope).Function == b.scope || b.captured[bid] {
		return
	}
	b.captured[bid] = true
	b.captures = append(b.captures, bid)
}

func (b *builder) loadIdent(id *ast.Ident, span source.Span) (IdentifierID, error) {
	bid, binding, local := b.resolve(id)
	if !local {
		if !bid.IsValid() {
			switch id.Name {
			case "undefined":
				return b.primitive(Undefined(), span), nil
			case "this", "arguments":
				return NoIdentifierID, unsupported(span, "'%s' is not supported", id.Name)
			}
		}
		return b.emit(Instr{Kind: InstrLoadGlobal, Span: span, Global: GlobalOp{Name: id.Name, Value: NoIdentifierID}}), nil
	}
	if ref, ok := b.an.Reference(id); ok && ref.BeforeDecl {
		return NoIdentifierID, unsupported(span, "'%s' is used before its declaration", id.Name)
	}
	if binding.Kind == sema.BindingFunction && !b.declaredFuncs[bid] {
		return NoIdentifierID, unsupported(span, "function '%s' is referenced before its declaration", id.Name)
	}
	ident := b.identFor(bid)
	b.capture(bid)
	kind := InstrLoadLocal
	if binding.IsContext() {
		kind = InstrLoadContext
	}
	return b.emit(Instr{Kind: kind, Span: span, Local: LocalOp{Var: ident, Value: NoIdentifierID}}), nil
}

func (b *builder) storeIdent(id *ast.Ident, value IdentifierID, kind DeclKind, span source.Span) (IdentifierID, error) {
	bid, binding, local := b.resolve(id)
	if !local {
		if kind != DeclReassign {
			return NoIdentifierID, fmt.Errorf("hir: build: declaration of '%s' has no local binding", id.Name)
		}
		if !bid.IsValid() && (id.Name == "undefined" || id.Name == "this" || id.Name == "arguments") {
			return NoIdentifierID, &BuildError{Span: span, Code: diag.HirInvalidSyntax, Reason: fmt.Sprintf("cannot assign to '%s'", id.Name)}
		}
		return b.emit(Instr{Kind: InstrStoreGlobal, Span: span, Global: GlobalOp{Name: id.Name, Value: value}}), nil
	}
	if kind == DeclReassign && binding.Kind == sema.BindingConst {
		return NoIdentifierID, &BuildError{Span: span, Code: diag.HirInvalidSyntax, Reason: fmt.Sprintf("cannot assign to constant '%s'", id.Name)}
	}
	if kind == DeclReassign {
		if ref, ok := b.an.Reference(id); ok && ref.BeforeDecl {
			return NoIdentifierID, unsupported(span, "'%s' is assigned before its declaration", id.Name)
		}
	}
	ident := b.identFor(bid)
	b.capture(bid)
	op := InstrStoreLocal
	if binding.IsContext() {
		op = InstrStoreContext
	}
	return b.emit(Instr{Kind: op, Span: span, Local: LocalOp{Kind: kind, Var: ident, Value: value}}), nil
}

// assignPattern stores value into the names of a flat pattern.
func (b *builder) assignPattern(p *ast.Pattern, value IdentifierID, kind DeclKind) error {
	if p.Kind == ast.PatIdent {
		_, err := b.storeIdent(p.Name, value, kind, p.Span)
		return err
	}
	if !p.IsFlat() {
		return unsupported(p.Span, "destructuring with defaults, rest elements, holes or nesting is not supported")
	}
	op := DestructureOp{Array: p.Kind == ast.PatArray, Value: value}
	for _, el := range p.Elems {
		op.Items = append(op.Items, DestructureItem{Key: el.Key, Target: b.idents.NewTemporary(el.Span)})
	}
	b.emit(Instr{Kind: InstrDestructure, Span: p.Span, Destructure: op})
	for i, el := range p.Elems {
		if _, err := b.storeIdent(el.Value.Name, op.Items[i].Target, kind, el.Span); err != nil {
			return err
		}
	}
	return nil
}

// lowerFunction builds a closure and emits the instruction creating it.
func (b *builder) lowerFunction(fn *ast.Function) (IdentifierID, error) {
	child := newBuilder(b.buildShared, b, fn)
	if !child.scope.IsValid() {
		return NoIdentifierID, fmt.Errorf("hir: build: function %s was not analysed", functionName(fn))
	}
	nested, err := child.build()
	if err != nil {
		return NoIdentifierID, err
	}
	context := make([]IdentifierID, 0, len(child.captures))
	for _, bid := range child.captures {
		context = append(context, b.identFor(bid))
		b.capture(bid)
	}
	return b.emit(Instr{
		Kind:     InstrFunction,
		Span:     fn.Span,
		Function: FunctionOp{Fn: nested, Context: context},
	}), nil
}
