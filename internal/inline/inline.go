// Package inline removes memoization hook calls whose callback can run
// in place.
package inline

import (
	"fmt"

	"fortio.org/safecast"

	"forget/internal/diag"
	"forget/internal/hir"
)

const inlinePass = "inline_use_memo"

// site is a memo hook call accepted for inlining.
type site struct {
	block    hir.BlockID
	index    int
	call     *hir.Instr
	callback *hir.Instr
	// callbackArg and depsArg are the call operands for the callback and
	// the dependency list.
	callbackArg hir.IdentifierID
	depsArg     hir.IdentifierID
}

type inliner struct {
	env *hir.Environment
	reg *hir.Registry
	f   *hir.Function

	// rewritten holds the Lvalues of calls already replaced.
	rewritten map[hir.IdentifierID]bool
	// skipped holds calls examined and left in place.
	skipped map[hir.IdentifierID]bool
}

// InlineUseMemo replaces calls to registry memo hooks with the body of
// their callback when the callback is a local, parameterless function
// that passes the effect check. The dependency list is dropped. With
// validate_frozen_lambdas enabled, every call left in place is reported
// on the function's diagnostics.
func InlineUseMemo(env *hir.Environment, fn *hir.Function) error {
	if fn == nil || env == nil || !env.Enabled(hir.FeatureInlineUseMemo) {
		return nil
	}
	if !fn.SSA {
		return hir.Invariantf(inlinePass, fn, "function is not in SSA form")
	}
	in := &inliner{
		env:       env,
		reg:       env.Registry(),
		f:         fn,
		rewritten: make(map[hir.IdentifierID]bool),
		skipped:   make(map[hir.IdentifierID]bool),
	}
	if err := in.run(); err != nil {
		return err
	}
	var err error
	fn.EachNested(func(nested *hir.Function) {
		if err == nil {
			err = InlineUseMemo(env, nested)
		}
	})
	return err
}

func (in *inliner) run() error {
	for {
		s, err := in.next()
		if err != nil {
			return err
		}
		if s == nil {
			return nil
		}
		if err := in.splice(s); err != nil {
			return err
		}
	}
}

// next finds the first memo call, in block order, that has not been
// examined yet.
func (in *inliner) next() (*site, error) {
	f := in.f
	defs := definitions(f)
	stores := storesOf(f)
	uses := countUses(f)
	for i := range f.Blocks {
		b := &f.Blocks[i]
		for j := range b.Instrs {
			call := &b.Instrs[j]
			if call.Kind != hir.InstrCall && call.Kind != hir.InstrMethodCall {
				continue
			}
			if in.rewritten[call.Lvalue] {
				return nil, hir.Invariantf(inlinePass, f, "call %s was already inlined", f.Idents.Label(call.Lvalue))
			}
			if in.skipped[call.Lvalue] {
				continue
			}
			name, ok := defs.calleeName(call)
			if !ok {
				continue
			}
			entry, ok := in.reg.Lookup(name)
			if !ok || !entry.IsMemoHook() {
				continue
			}
			s := &site{block: b.ID, index: j, call: call}
			if r := in.check(s, entry, defs, stores, uses, b); r != nil {
				in.skipped[call.Lvalue] = true
				in.report(name, r)
				continue
			}
			return s, nil
		}
	}
	return nil, nil
}

func (in *inliner) check(s *site, entry hir.Entry, defs, stores defTable, uses map[hir.IdentifierID]int, b *hir.Block) *rejection {
	call := s.call
	args := call.Call.Args
	if entry.Memo.Callback >= len(args) || entry.Memo.Deps >= len(args) {
		return reject(diag.MemoNotInlined, call.Span, "call passes %d arguments", len(args))
	}
	if entry.Arity >= 0 && len(args) != entry.Arity {
		return reject(diag.MemoNotInlined, call.Span, "call passes %d arguments, %s takes %d", len(args), entry.Name, entry.Arity)
	}
	if b.Term.Kind == hir.TermMaybeThrow && s.index == len(b.Instrs)-1 {
		return reject(diag.MemoNotInlined, call.Span, "call is inside a try block")
	}
	cb := defs[args[entry.Memo.Callback]]
	// A callback stored in a local is followed to its function literal
	// when the memo call is the only read of that local.
	if cb != nil && cb.Kind == hir.InstrLoadLocal {
		if st := stores[cb.Local.Var]; st != nil {
			if fn := defs[st.Local.Value]; fn != nil && fn.Kind == hir.InstrFunction {
				if uses[cb.Local.Var] > 1 || uses[st.Lvalue] > 0 {
					return reject(diag.MemoEscapingLambda, fn.Span, "callback '%s' is also used outside the memo call", in.f.Idents.Get(cb.Local.Var).Name)
				}
				cb = fn
			}
		}
	}
	if cb == nil || cb.Kind != hir.InstrFunction || cb.Function.Fn == nil {
		return reject(diag.MemoNonLocalCallback, call.Span, "callback is not a function literal")
	}
	if uses[cb.Lvalue] != 1 {
		return reject(diag.MemoEscapingLambda, cb.Span, "callback is referenced outside the memo call")
	}
	deps := defs[args[entry.Memo.Deps]]
	if deps == nil || deps.Kind != hir.InstrArray {
		return reject(diag.MemoNotInlined, call.Span, "dependency list is not an array literal")
	}
	for _, c := range cb.Function.Context {
		if in.f.Idents.IsContext(c) {
			return reject(diag.MemoMutableCapture, cb.Span, "callback captures '%s', which is reassigned", in.f.Idents.Get(c).Name)
		}
	}
	if r := checkCallback(in.reg, cb.Function.Fn); r != nil {
		return r
	}
	s.callback = cb
	s.callbackArg = args[entry.Memo.Callback]
	s.depsArg = args[entry.Memo.Deps]
	return nil
}

func (in *inliner) report(hook string, r *rejection) {
	if !in.env.Enabled(hir.FeatureValidateFrozenLambdas) {
		return
	}
	in.f.AddDiagnostic(diag.NewWarning(r.code, r.span, fmt.Sprintf("%s not inlined: %s", hook, r.reason)))
}

// splice moves the callback body to the call site. The block holding the
// call is split, the callback blocks jump to the continuation instead of
// returning, and the call result becomes the returned value.
func (in *inliner) splice(s *site) error {
	f := in.f
	body := s.callback.Function.Fn
	result := s.call.Lvalue
	span := s.call.Span
	dead := []hir.IdentifierID{s.callbackArg, s.depsArg, s.call.Call.Callee}
	if s.call.Kind == hir.InstrMethodCall {
		dead = append(dead, s.call.Call.Receiver)
	}

	contID, err := blockID(len(f.Blocks))
	if err != nil {
		return err
	}
	offset := int(contID) + 1
	head := f.Block(s.block)
	cont := hir.Block{
		ID:     contID,
		Instrs: append([]hir.Instr(nil), head.Instrs[s.index+1:]...),
		Term:   head.Term,
	}
	for _, succ := range head.Term.Successors() {
		f.Block(succ).RenamePred(head.ID, contID)
	}
	head.Instrs = head.Instrs[:s.index]

	remap := func(id *hir.BlockID) { *id += hir.BlockID(offset) } //nolint:gosec // offset is bounded by block count
	var returns []hir.PhiOperand
	moved := make([]hir.Block, 0, len(body.Blocks))
	for _, src := range body.Blocks {
		b := hir.Block{
			ID:     src.ID,
			Phis:   src.Phis,
			Instrs: src.Instrs,
			Term:   src.Term,
		}
		remap(&b.ID)
		for i := range b.Phis {
			for k := range b.Phis[i].Operands {
				remap(&b.Phis[i].Operands[k].Pred)
			}
		}
		if b.Term.Kind == hir.TermReturn {
			returns = append(returns, hir.PhiOperand{Pred: b.ID, Value: b.Term.Return.Value})
			b.Term = hir.Terminator{Kind: hir.TermGoto, Span: b.Term.Span, Goto: hir.GotoTerm{Target: contID}}
		} else {
			b.Term.EachTarget(remap)
		}
		moved = append(moved, b)
	}
	entry := body.Entry
	remap(&entry)
	head.Term = hir.Terminator{Kind: hir.TermGoto, Span: span, Goto: hir.GotoTerm{Target: entry}}
	f.Blocks = append(f.Blocks, cont)
	f.Blocks = append(f.Blocks, moved...)

	if len(returns) == 1 {
		value := returns[0].Value
		f.ReplaceUses(func(id hir.IdentifierID) hir.IdentifierID {
			if id == result {
				return value
			}
			return id
		})
	} else {
		c := f.Block(contID)
		c.Phis = append(c.Phis, hir.Phi{Lvalue: result, Operands: returns})
	}
	in.rewritten[result] = true
	removeDead(f, in.reg, dead)
	f.RecomputePreds()
	f.Canonicalize()
	f.MergeBlocks()
	return nil
}

func blockID(n int) (hir.BlockID, error) {
	raw, err := safecast.Conv[int32](n)
	if err != nil {
		return hir.NoBlockID, fmt.Errorf("inline: block id overflow: %w", err)
	}
	return hir.BlockID(raw), nil
}

// removeDead deletes the hook lookup, the callback and the dependency
// list once nothing reads them, following their operands. Only
// instructions that cannot throw or denote registry names are removed.
func removeDead(f *hir.Function, reg *hir.Registry, candidates []hir.IdentifierID) {
	for len(candidates) > 0 {
		id := candidates[0]
		candidates = candidates[1:]
		if !id.IsValid() {
			continue
		}
		uses := countUses(f)
		if uses[id] != 0 {
			continue
		}
		defs := definitions(f)
	scan:
		for i := range f.Blocks {
			b := &f.Blocks[i]
			for j := range b.Instrs {
				in := &b.Instrs[j]
				if in.Lvalue != id && (in.Kind != hir.InstrStoreLocal || in.Local.Var != id) {
					continue
				}
				switch in.Kind {
				case hir.InstrFunction, hir.InstrPrimitive:
				case hir.InstrLoadLocal:
					candidates = append(candidates, in.Local.Var)
				case hir.InstrStoreLocal:
					fn := defs[in.Local.Value]
					if uses[in.Lvalue] != 0 || fn == nil || fn.Kind != hir.InstrFunction {
						break scan
					}
					candidates = append(candidates, in.Local.Value)
				case hir.InstrArray:
					candidates = append(candidates, in.Array.Elems...)
				case hir.InstrLoadGlobal, hir.InstrPropertyLoad:
					name, ok := defs.globalName(in.Lvalue)
					if !ok {
						break scan
					}
					if _, known := reg.Lookup(name); !known && !isNamespace(reg, name) {
						break scan
					}
					if in.Kind == hir.InstrPropertyLoad {
						candidates = append(candidates, in.Property.Object)
					}
				default:
					break scan
				}
				b.Instrs = append(b.Instrs[:j], b.Instrs[j+1:]...)
				break scan
			}
		}
	}
}

// countUses counts the reads of every value in f, including captures of
// nested functions.
func countUses(f *hir.Function) map[hir.IdentifierID]int {
	uses := make(map[hir.IdentifierID]int)
	f.EachOperand(func(id *hir.IdentifierID) {
		if id.IsValid() {
			uses[*id]++
		}
	})
	return uses
}
