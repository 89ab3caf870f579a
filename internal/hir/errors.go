package hir

import (
	"errors"
	"fmt"

	"forget/internal/diag"
	"forget/internal/source"
)

// ErrInvariant matches every *InvariantError.
var ErrInvariant = errors.New("hir: invariant violation")

// BuildError reports syntax the builder does not lower. Only the function
// being built is abandoned.
type BuildError struct {
	Span   source.Span
	Code   diag.Code
	Reason string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build error at %s: %s", e.Span, e.Reason)
}

// Diagnostic converts the error for reporting.
func (e *BuildError) Diagnostic() diag.Diagnostic {
	code := e.Code
	if code == diag.UnknownCode {
		code = diag.HirUnsupported
	}
	return diag.NewError(code, e.Span, e.Reason)
}

func unsupported(span source.Span, format string, args ...any) *BuildError {
	return &BuildError{Span: span, Code: diag.HirUnsupported, Reason: fmt.Sprintf(format, args...)}
}

// InvariantError reports a defect in the compiler itself.
type InvariantError struct {
	Pass string
	Func string
	Msg  string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: invariant violated in %s: %s", e.Pass, e.Func, e.Msg)
}

func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariant
}

// Invariantf builds an *InvariantError for pass running on fn.
func Invariantf(pass string, fn *Function, format string, args ...any) *InvariantError {
	name := "<nil>"
	if fn != nil {
		name = fn.DisplayName()
	}
	return &InvariantError{Pass: pass, Func: name, Msg: fmt.Sprintf(format, args...)}
}
