package hir

import (
	"fmt"
	"io"
	"strings"
)

// Print writes a deterministic rendering of fn and its nested functions.
func Print(w io.Writer, fn *Function) error {
	p := &printer{w: w}
	p.function(fn, 0)
	return p.err
}

// String renders fn with Print.
func (f *Function) String() string {
	var sb strings.Builder
	_ = Print(&sb, f)
	return sb.String()
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(depth int, format string, args ...any) {
	if p.err != nil {
		return
	}
	if _, err := io.WriteString(p.w, strings.Repeat("  ", depth)); err != nil {
		p.err = err
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) function(f *Function, depth int) {
	ids := f.Idents
	params := make([]string, len(f.Params))
	for i, id := range f.Params {
		params[i] = ids.Label(id)
	}
	kind := "function"
	if f.Arrow {
		kind = "arrow"
	}
	p.printf(depth, "%s %s(%s)\n", kind, f.DisplayName(), strings.Join(params, ", "))
	for i := range f.Blocks {
		b := &f.Blocks[i]
		if len(b.Preds) == 0 {
			p.printf(depth, "bb%d:\n", b.ID)
		} else {
			preds := make([]string, len(b.Preds))
			for j, pr := range b.Preds {
				preds[j] = fmt.Sprintf("bb%d", pr)
			}
			p.printf(depth, "bb%d (preds: %s):\n", b.ID, strings.Join(preds, ", "))
		}
		for _, phi := range b.Phis {
			ops := make([]string, len(phi.Operands))
			for j, op := range phi.Operands {
				ops[j] = fmt.Sprintf("bb%d: %s", op.Pred, ids.Label(op.Value))
			}
			p.printf(depth+1, "%s = phi(%s)\n", ids.Label(phi.Lvalue), strings.Join(ops, ", "))
		}
		for j := range b.Instrs {
			in := &b.Instrs[j]
			p.printf(depth+1, "%s = %s\n", ids.Label(in.Lvalue), FormatInstr(ids, in))
			if in.Kind == InstrFunction && in.Function.Fn != nil {
				p.function(in.Function.Fn, depth+2)
			}
		}
		p.printf(depth+1, "%s\n", FormatTerm(ids, &b.Term))
	}
}

func labels(ids *Identifiers, list []IdentifierID) string {
	out := make([]string, len(list))
	for i, id := range list {
		if id.IsValid() {
			out[i] = ids.Label(id)
		} else {
			out[i] = "<hole>"
		}
	}
	return strings.Join(out, ", ")
}

// FormatInstr renders the right-hand side of an instruction.
func FormatInstr(ids *Identifiers, in *Instr) string {
	l := ids.Label
	switch in.Kind {
	case InstrPrimitive:
		return in.Primitive.Literal()
	case InstrLoadLocal, InstrLoadContext:
		return fmt.Sprintf("%s %s", in.Kind, l(in.Local.Var))
	case InstrStoreLocal, InstrStoreContext:
		return fmt.Sprintf("%s %s %s = %s", in.Kind, in.Local.Kind, l(in.Local.Var), l(in.Local.Value))
	case InstrDeclareContext:
		return fmt.Sprintf("%s %s %s", in.Kind, in.Local.Kind, l(in.Local.Var))
	case InstrLoadGlobal:
		return fmt.Sprintf("%s %s", in.Kind, in.Global.Name)
	case InstrStoreGlobal:
		return fmt.Sprintf("%s %s = %s", in.Kind, in.Global.Name, l(in.Global.Value))
	case InstrBinary:
		return fmt.Sprintf("%s %s %s %s", in.Kind, l(in.Binary.Left), in.Binary.Op, l(in.Binary.Right))
	case InstrUnary:
		return fmt.Sprintf("%s %s %s", in.Kind, in.Unary.Op, l(in.Unary.Value))
	case InstrCall, InstrNew:
		return fmt.Sprintf("%s %s(%s)", in.Kind, l(in.Call.Callee), labels(ids, in.Call.Args))
	case InstrMethodCall:
		return fmt.Sprintf("%s %s.%s(%s)", in.Kind, l(in.Call.Receiver), l(in.Call.Callee), labels(ids, in.Call.Args))
	case InstrPropertyLoad, InstrPropertyDelete:
		return fmt.Sprintf("%s %s.%s", in.Kind, l(in.Property.Object), in.Property.Name)
	case InstrPropertyStore:
		return fmt.Sprintf("%s %s.%s = %s", in.Kind, l(in.Property.Object), in.Property.Name, l(in.Property.Value))
	case InstrComputedLoad, InstrComputedDelete:
		return fmt.Sprintf("%s %s[%s]", in.Kind, l(in.Computed.Object), l(in.Computed.Key))
	case InstrComputedStore:
		return fmt.Sprintf("%s %s[%s] = %s", in.Kind, l(in.Computed.Object), l(in.Computed.Key), l(in.Computed.Value))
	case InstrArray:
		return fmt.Sprintf("%s [%s]", in.Kind, labels(ids, in.Array.Elems))
	case InstrObject:
		props := make([]string, len(in.Object.Props))
		for i, pr := range in.Object.Props {
			key := pr.Key
			if pr.Computed.IsValid() {
				key = "[" + l(pr.Computed) + "]"
			}
			props[i] = fmt.Sprintf("%s: %s", key, l(pr.Value))
		}
		return fmt.Sprintf("%s {%s}", in.Kind, strings.Join(props, ", "))
	case InstrFunction:
		name := "<anonymous>"
		if in.Function.Fn != nil {
			name = in.Function.Fn.DisplayName()
		}
		return fmt.Sprintf("%s %s @context[%s]", in.Kind, name, labels(ids, in.Function.Context))
	case InstrDestructure:
		items := make([]string, len(in.Destructure.Items))
		for i, it := range in.Destructure.Items {
			target := "<hole>"
			if it.Target.IsValid() {
				target = l(it.Target)
			}
			if in.Destructure.Array {
				items[i] = target
			} else {
				items[i] = fmt.Sprintf("%s: %s", it.Key, target)
			}
		}
		open, closing := "{", "}"
		if in.Destructure.Array {
			open, closing = "[", "]"
		}
		return fmt.Sprintf("%s %s%s%s = %s", in.Kind, open, strings.Join(items, ", "), closing, l(in.Destructure.Value))
	case InstrCatchParam:
		return in.Kind.String()
	}
	return in.Kind.String()
}

// FormatTerm renders a terminator.
func FormatTerm(ids *Identifiers, t *Terminator) string {
	l := ids.Label
	switch t.Kind {
	case TermGoto:
		return fmt.Sprintf("Goto bb%d", t.Goto.Target)
	case TermIf:
		return fmt.Sprintf("If %s then bb%d else bb%d", l(t.If.Test), t.If.Then, t.If.Else)
	case TermSwitch:
		cases := make([]string, 0, len(t.Switch.Cases)+1)
		for _, c := range t.Switch.Cases {
			cases = append(cases, fmt.Sprintf("case %s: bb%d", l(c.Test), c.Target))
		}
		cases = append(cases, fmt.Sprintf("default: bb%d", t.Switch.Default))
		return fmt.Sprintf("Switch %s [%s]", l(t.Switch.Test), strings.Join(cases, ", "))
	case TermReturn:
		return fmt.Sprintf("Return %s", l(t.Return.Value))
	case TermThrow:
		if t.Throw.Handler.IsValid() {
			return fmt.Sprintf("Throw %s handler bb%d", l(t.Throw.Value), t.Throw.Handler)
		}
		return fmt.Sprintf("Throw %s", l(t.Throw.Value))
	case TermMaybeThrow:
		return fmt.Sprintf("MaybeThrow continue bb%d handler bb%d", t.MaybeThrow.Continuation, t.MaybeThrow.Handler)
	}
	return t.Kind.String()
}
