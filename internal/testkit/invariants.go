// Package testkit holds structural checks shared by parser and fuzz tests.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"forget/internal/ast"
	"forget/internal/source"
)

// CheckSpanInvariants runs a minimal set of span invariants on a parsed
// program:
// 1) the program span covers the whole file content
// 2) every statement span belongs to the file and lies inside its parent
// 3) sibling statements are ordered and do not overlap
// 4) function names lie inside their function span
func CheckSpanInvariants(prog *ast.Program, sf *source.File) error {
	if prog == nil || sf == nil {
		return fmt.Errorf("nil program or file")
	}
	if prog.Span.File != sf.ID || prog.File != sf.ID {
		return fmt.Errorf("program span points to different file id: got=%d want=%d", prog.Span.File, sf.ID)
	}
	lenContent, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	if prog.Span.Start != 0 || prog.Span.End != lenContent {
		return fmt.Errorf("program span %v does not cover content of %d bytes", prog.Span, lenContent)
	}
	c := checker{file: sf.ID}
	return c.stmts(prog.Body, prog.Span)
}

type checker struct {
	file source.FileID
}

func (c checker) within(what string, sp, parent source.Span) error {
	if sp.File != c.file {
		return fmt.Errorf("%s span file mismatch: got=%d want=%d", what, sp.File, c.file)
	}
	if sp.End < sp.Start {
		return fmt.Errorf("%s span is inverted: %v", what, sp)
	}
	if !parent.Contains(sp) {
		return fmt.Errorf("%s span %v is outside parent span %v", what, sp, parent)
	}
	return nil
}

func (c checker) stmts(list []*ast.Stmt, parent source.Span) error {
	var prevEnd uint32
	for i, st := range list {
		if st == nil {
			return fmt.Errorf("nil statement at index %d", i)
		}
		if err := c.within(st.Kind.String(), st.Span, parent); err != nil {
			return err
		}
		if i > 0 && st.Span.Start < prevEnd {
			return fmt.Errorf("%s span %v overlaps previous statement ending at %d", st.Kind, st.Span, prevEnd)
		}
		prevEnd = st.Span.End
		if err := c.stmt(st); err != nil {
			return err
		}
	}
	return nil
}

func (c checker) child(st *ast.Stmt, parent source.Span) error {
	if st == nil {
		return nil
	}
	return c.stmts([]*ast.Stmt{st}, parent)
}

func (c checker) stmt(st *ast.Stmt) error {
	sp := st.Span
	switch data := st.Data.(type) {
	case *ast.FunctionStmt:
		return c.function(data.Func, sp)
	case *ast.BlockStmt:
		return c.stmts(data.Body, sp)
	case *ast.IfStmt:
		if err := c.child(data.Cons, sp); err != nil {
			return err
		}
		return c.child(data.Alt, sp)
	case *ast.WhileStmt:
		return c.child(data.Body, sp)
	case *ast.DoWhileStmt:
		return c.child(data.Body, sp)
	case *ast.ForStmt:
		if err := c.child(data.Init, sp); err != nil {
			return err
		}
		return c.child(data.Body, sp)
	case *ast.ForEachStmt:
		return c.child(data.Body, sp)
	case *ast.LabeledStmt:
		return c.child(data.Body, sp)
	case *ast.TryStmt:
		for _, part := range []*ast.Stmt{data.Block, data.Handler, data.Finalizer} {
			if err := c.child(part, sp); err != nil {
				return err
			}
		}
	case *ast.SwitchStmt:
		for _, cs := range data.Cases {
			if err := c.within("case", cs.Span, sp); err != nil {
				return err
			}
			if err := c.stmts(cs.Body, cs.Span); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c checker) function(fn *ast.Function, parent source.Span) error {
	if fn == nil {
		return fmt.Errorf("nil function in declaration at %v", parent)
	}
	if err := c.within("function", fn.Span, parent); err != nil {
		return err
	}
	if fn.Name != nil {
		if err := c.within("function name", fn.Name.Span, fn.Span); err != nil {
			return err
		}
	}
	return c.stmts(fn.Body, fn.Span)
}
