package inline

import (
	"fmt"
	"strings"

	"forget/internal/ast"
	"forget/internal/diag"
	"forget/internal/hir"
	"forget/internal/source"
)

// rejection explains why a memo call stays in place.
type rejection struct {
	code   diag.Code
	span   source.Span
	reason string
}

func reject(code diag.Code, span source.Span, format string, args ...any) *rejection {
	return &rejection{code: code, span: span, reason: fmt.Sprintf(format, args...)}
}

// defTable maps every value of a function to its defining instruction.
type defTable map[hir.IdentifierID]*hir.Instr

func definitions(f *hir.Function) defTable {
	defs := make(defTable)
	for i := range f.Blocks {
		for j := range f.Blocks[i].Instrs {
			in := &f.Blocks[i].Instrs[j]
			if in.Lvalue.IsValid() {
				defs[in.Lvalue] = in
			}
		}
	}
	return defs
}

// storesOf maps every SSA variable to the StoreLocal defining it.
func storesOf(f *hir.Function) defTable {
	stores := make(defTable)
	for i := range f.Blocks {
		for j := range f.Blocks[i].Instrs {
			if in := &f.Blocks[i].Instrs[j]; in.Kind == hir.InstrStoreLocal {
				stores[in.Local.Var] = in
			}
		}
	}
	return stores
}

// globalName resolves a value to the registry name it denotes: a global
// load, or a property of one, such as "React.useMemo".
func (d defTable) globalName(id hir.IdentifierID) (string, bool) {
	in := d[id]
	if in == nil {
		return "", false
	}
	switch in.Kind {
	case hir.InstrLoadGlobal:
		return in.Global.Name, true
	case hir.InstrPropertyLoad:
		base, ok := d.globalName(in.Property.Object)
		if !ok {
			return "", false
		}
		return base + "." + in.Property.Name, true
	}
	return "", false
}

// calleeName returns the registry name of the function a call invokes.
func (d defTable) calleeName(in *hir.Instr) (string, bool) {
	switch in.Kind {
	case hir.InstrCall, hir.InstrMethodCall:
		return d.globalName(in.Call.Callee)
	}
	return "", false
}

// checkCallback decides whether the body of fn can run in place of the
// memo call. Everything outside the enumerated safe forms is rejected:
// reads of context variables, calls to anything but pure registry
// functions, property access on non-registry values and exceptional
// control flow.
func checkCallback(reg *hir.Registry, fn *hir.Function) *rejection {
	if len(fn.Params) != 0 {
		return reject(diag.MemoNotInlined, fn.Span, "callback takes %d parameters", len(fn.Params))
	}
	ids := fn.Idents
	defs := definitions(fn)
	returns := 0
	for i := range fn.Blocks {
		b := &fn.Blocks[i]
		for j := range b.Instrs {
			in := &b.Instrs[j]
			if r := checkInstr(reg, ids, defs, in); r != nil {
				return r
			}
		}
		switch b.Term.Kind {
		case hir.TermGoto, hir.TermIf, hir.TermSwitch:
		case hir.TermReturn:
			returns++
		default:
			return reject(diag.MemoImpureCallback, b.Term.Span, "callback may throw")
		}
	}
	if returns == 0 {
		return reject(diag.MemoNotInlined, fn.Span, "callback never returns")
	}
	return nil
}

func checkInstr(reg *hir.Registry, ids *hir.Identifiers, defs defTable, in *hir.Instr) *rejection {
	switch in.Kind {
	case hir.InstrPrimitive, hir.InstrLoadLocal, hir.InstrStoreLocal, hir.InstrArray:
		return nil
	case hir.InstrBinary:
		if in.Binary.Op == ast.BinIn || in.Binary.Op == ast.BinInstanceOf {
			return reject(diag.MemoImpureCallback, in.Span, "callback uses '%s'", in.Binary.Op)
		}
		return nil
	case hir.InstrUnary:
		return nil
	case hir.InstrObject:
		for _, p := range in.Object.Props {
			if p.Computed.IsValid() {
				return reject(diag.MemoImpureCallback, in.Span, "callback builds an object with a computed key")
			}
		}
		return nil
	case hir.InstrFunction:
		for _, c := range in.Function.Context {
			if ids.IsContext(c) {
				return reject(diag.MemoMutableCapture, in.Span, "callback closes over reassigned variable '%s'", ids.Get(c).Name)
			}
		}
		return nil
	case hir.InstrLoadGlobal, hir.InstrPropertyLoad:
		name, ok := defs.globalName(in.Lvalue)
		if !ok {
			return reject(diag.MemoImpureCallback, in.Span, "callback reads a property of a local value")
		}
		if _, known := reg.Lookup(name); !known && !isNamespace(reg, name) {
			return reject(diag.MemoImpureCallback, in.Span, "callback reads unknown global '%s'", name)
		}
		return nil
	case hir.InstrCall, hir.InstrMethodCall:
		name, ok := defs.calleeName(in)
		if !ok {
			return reject(diag.MemoImpureCallback, in.Span, "callback calls a local function")
		}
		e, known := reg.Lookup(name)
		switch {
		case !known:
			return reject(diag.MemoImpureCallback, in.Span, "callback calls unknown function '%s'", name)
		case e.Kind == hir.EntryHook:
			return reject(diag.MemoNotInlined, in.Span, "callback calls hook '%s'", name)
		case e.Effect != hir.EffectPure:
			return reject(diag.MemoImpureCallback, in.Span, "callback calls '%s', which is not pure", name)
		}
		return nil
	case hir.InstrLoadContext, hir.InstrStoreContext, hir.InstrDeclareContext:
		return reject(diag.MemoMutableCapture, in.Span, "callback uses reassigned variable '%s'", ids.Get(in.Local.Var).Name)
	}
	return reject(diag.MemoImpureCallback, in.Span, "callback performs %s", in.Kind)
}

// isNamespace reports whether name prefixes a registry entry, as "Math"
// does for "Math.max".
func isNamespace(reg *hir.Registry, name string) bool {
	prefix := name + "."
	for _, e := range reg.Entries() {
		if strings.HasPrefix(e.Name, prefix) {
			return true
		}
	}
	return false
}
