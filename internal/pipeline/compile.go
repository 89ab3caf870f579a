package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"forget/internal/ast"
	"forget/internal/diag"
	"forget/internal/hir"
	"forget/internal/observ"
	"forget/internal/sema"
	"forget/internal/source"
	"forget/internal/trace"
)

// Options configures CompileFunction and CompileUnit.
type Options struct {
	// Passes defaults to DefaultPasses.
	Passes []Pass
	// Jobs bounds the functions compiled in parallel; <= 0 means GOMAXPROCS.
	Jobs  int
	Sink  ProgressSink
	Timer *observ.Timer
}

func (o Options) passes() []Pass {
	if o.Passes == nil {
		return DefaultPasses()
	}
	return o.Passes
}

// FunctionResult is the outcome for one top-level function.
type FunctionResult struct {
	Name string
	Span source.Span
	// Fn is nil when lowering failed.
	Fn *hir.Function
	// Output is the printed HIR, or the error text in its place.
	Output      string
	Err         error
	Kind        ErrorKind
	Diagnostics []diag.Diagnostic
}

// CompileFunction lowers decl and runs every pass over it. Failures are
// reported in the result; a failing pass marks the function errored and
// stops the remaining passes.
func CompileFunction(ctx context.Context, env *hir.Environment, decl *ast.Function, opts Options) FunctionResult {
	res := FunctionResult{Name: "<anonymous>", Span: decl.Span}
	if decl.Name != nil {
		res.Name = decl.Name.Name
	}
	ctx, span := trace.Start(ctx, trace.ScopeFunction, res.Name)
	defer func() {
		span.WithExtra("result", res.Kind.String()).End("")
	}()

	c := &compiler{ctx: ctx, env: env, opts: opts, name: res.Name}
	var fn *hir.Function
	err := c.stage(StageBuild, nil, func() error {
		var err error
		fn, err = hir.Build(env, decl)
		return err
	})
	if err != nil {
		res.fail(err)
		return res
	}
	res.Fn = fn

	for _, p := range opts.passes() {
		if err := c.stage(Stage(p.Name), fn, func() error { return p.Run(env, fn) }); err != nil {
			fn.Errored = true
			res.fail(err)
			res.Diagnostics = append(collectDiagnostics(fn), res.Diagnostics...)
			return res
		}
	}

	var sb strings.Builder
	if err := c.stage(StagePrint, nil, func() error { return hir.Print(&sb, fn) }); err != nil {
		res.fail(err)
		return res
	}
	res.Output = strings.TrimRight(sb.String(), "\n")
	res.Diagnostics = collectDiagnostics(fn)
	return res
}

func (r *FunctionResult) fail(err error) {
	r.Err = err
	r.Output = err.Error()
	var be *hir.BuildError
	if errors.As(err, &be) {
		r.Kind = ErrorBuild
		r.Diagnostics = append(r.Diagnostics, be.Diagnostic())
		return
	}
	r.Kind = ErrorInternal
}

type compiler struct {
	ctx  context.Context
	env  *hir.Environment
	opts Options
	name string
}

// stage runs one step with tracing, timing and progress events. When fn
// is set and assert_valid_hir is enabled, fn is validated afterwards.
func (c *compiler) stage(stage Stage, fn *hir.Function, run func() error) error {
	if err := c.ctx.Err(); err != nil {
		return err
	}
	sp := trace.Begin(trace.FromContext(c.ctx), trace.ScopeFunction, string(stage), trace.CurrentSpan(c.ctx))
	c.emit(Event{Function: c.name, Stage: stage, Status: StatusWorking})
	start := time.Now()

	err := run()
	if err == nil && fn != nil && c.env.Enabled(hir.FeatureAssertValidHIR) {
		if verr := hir.Validate(fn); verr != nil {
			err = hir.Invariantf(string(stage), fn, "invalid HIR after pass: %v", verr)
		}
	}

	elapsed := time.Since(start)
	if c.opts.Timer != nil {
		c.opts.Timer.Add(string(stage), elapsed)
	}
	status := StatusDone
	detail := ""
	if err != nil {
		status = StatusError
		detail = err.Error()
	}
	sp.End(detail)
	c.emit(Event{Function: c.name, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
	return err
}

func (c *compiler) emit(evt Event) {
	if c.opts.Sink != nil {
		c.opts.Sink.OnEvent(evt)
	}
}

// collectDiagnostics gathers pass findings of fn and its closures.
func collectDiagnostics(fn *hir.Function) []diag.Diagnostic {
	var out []diag.Diagnostic
	var walk func(*hir.Function)
	walk = func(f *hir.Function) {
		out = append(out, f.Diagnostics...)
		f.EachNested(walk)
	}
	walk(fn)
	return out
}

// UnitResult holds the results of every top-level function of a unit in
// source order.
type UnitResult struct {
	Analysis  *sema.Analysis
	Functions []FunctionResult
}

// Output joins the function outputs with a blank line.
func (u *UnitResult) Output() string {
	parts := make([]string, 0, len(u.Functions))
	for _, f := range u.Functions {
		parts = append(parts, f.Output)
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

// Diagnostics returns analysis and pass diagnostics sorted by position.
func (u *UnitResult) Diagnostics() []diag.Diagnostic {
	bag := diag.NewBag(0)
	if u.Analysis != nil {
		for _, d := range u.Analysis.Diagnostics() {
			bag.Add(d)
		}
	}
	for _, f := range u.Functions {
		for _, d := range f.Diagnostics {
			bag.Add(d)
		}
	}
	bag.Sort()
	bag.Dedup()
	return bag.Items()
}

// Err joins the internal errors of the unit. Build errors are expected
// input conditions and are left out.
func (u *UnitResult) Err() error {
	var errs []error
	for _, f := range u.Functions {
		if f.Kind == ErrorInternal {
			errs = append(errs, fmt.Errorf("%s: %w", f.Name, f.Err))
		}
	}
	return errors.Join(errs...)
}

// CompileUnit compiles every top-level function declaration of prog. The
// functions are independent and run in parallel; results keep source
// order. The returned error is set only when ctx is cancelled.
func CompileUnit(ctx context.Context, env *hir.Environment, prog *ast.Program, opts Options) (*UnitResult, error) {
	if env == nil || env.Analysis() == nil {
		return nil, errors.New("pipeline: environment without analysis")
	}
	ctx, span := trace.Start(ctx, trace.ScopePass, "compile_unit")
	defer span.End("")

	decls := prog.Functions()
	res := &UnitResult{Analysis: env.Analysis(), Functions: make([]FunctionResult, len(decls))}
	if len(decls) == 0 {
		return res, nil
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(decls)))
	for i, decl := range decls {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res.Functions[i] = CompileFunction(gctx, env, decl, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	return res, nil
}
