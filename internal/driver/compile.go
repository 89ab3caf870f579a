// Package driver compiles source files through the parser, the analyzer
// and the pass pipeline.
package driver

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"forget/internal/ast"
	"forget/internal/config"
	"forget/internal/diag"
	"forget/internal/hir"
	"forget/internal/observ"
	"forget/internal/parser"
	"forget/internal/pipeline"
	"forget/internal/sema"
	"forget/internal/source"
	"forget/internal/trace"
)

// Options configures a compilation.
type Options struct {
	// Config defaults to config.Default when its Registry is nil.
	Config config.Config
	// Passes defaults to pipeline.DefaultPasses.
	Passes []pipeline.Pass
	Jobs   int
	Timer  *observ.Timer
	Sink   pipeline.ProgressSink
	// Cache is optional.
	Cache *DiskCache
}

func (o Options) config() config.Config {
	if o.Config.Registry == nil {
		return config.Default()
	}
	return o.Config
}

func (o Options) passes() []pipeline.Pass {
	if o.Passes == nil {
		return pipeline.DefaultPasses()
	}
	return o.Passes
}

// Result is the outcome of compiling one file.
type Result struct {
	Path    string
	FileSet *source.FileSet
	File    source.FileID
	// Program and Unit are nil when the file did not parse or the result
	// came from the cache.
	Program     *ast.Program
	Unit        *pipeline.UnitResult
	Output      string
	Diagnostics []diag.Diagnostic
	Cached      bool
}

// Source returns the compiled text.
func (r *Result) Source() []byte {
	if f := r.FileSet.Get(r.File); f != nil {
		return f.Content
	}
	return nil
}

// HasErrors reports error diagnostics, including build errors.
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity >= diag.SevError {
			return true
		}
	}
	return false
}

// Snapshot renders the result in fixture format.
func (r *Result) Snapshot() string {
	return Snapshot(string(r.Source()), r.Output)
}

// CompileSource compiles src held in memory under the name path.
func CompileSource(ctx context.Context, path string, src []byte, opts Options) (*Result, error) {
	fs := source.NewFileSet()
	return compile(ctx, fs, fs.AddVirtual(path, src), opts)
}

// CompileFile loads and compiles the file at path.
func CompileFile(ctx context.Context, path string, opts Options) (*Result, error) {
	fs := source.NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		return nil, fmt.Errorf("driver: %w", err)
	}
	return compile(ctx, fs, id, opts)
}

// CompileFiles compiles every path in parallel. Results keep the order of
// paths; a failing file does not stop the others.
func CompileFiles(ctx context.Context, paths []string, opts Options) ([]*Result, error) {
	results := make([]*Result, len(paths))
	errs := make([]error, len(paths))
	if len(paths) == 0 {
		return results, nil
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], errs[i] = CompileFile(gctx, path, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, errors.Join(errs...)
}

func compile(ctx context.Context, fs *source.FileSet, id source.FileID, opts Options) (*Result, error) {
	file := fs.Get(id)
	ctx, span := trace.Start(ctx, trace.ScopeDriver, "compile")
	defer span.WithExtra("path", file.Path).End("")

	cfg := opts.config()
	passes := opts.passes()
	res := &Result{Path: file.Path, FileSet: fs, File: id}

	var key Digest
	if opts.Cache != nil {
		key = unitKey(file.Hash, cfg, passes)
		var payload CachePayload
		ok, err := opts.Cache.Get(key, &payload)
		if err != nil {
			trace.Point(trace.FromContext(ctx), trace.ScopeDriver, "cache", "read failed: "+err.Error(), span.ID())
		}
		if ok {
			res.Output = payload.Output
			res.Diagnostics = fromCached(id, payload.Diagnostics)
			res.Cached = true
			return res, nil
		}
	}

	prog, an, err := analyze(fs, id, opts.Timer)
	if err != nil {
		var diags []diag.Diagnostic
		if !syntaxDiagnostics(err, &diags) {
			return nil, err
		}
		res.Diagnostics = diags
		return res, nil
	}
	res.Program = prog

	env := hir.NewEnvironment(cfg.Features, cfg.Registry, an)
	unit, err := pipeline.CompileUnit(ctx, env, prog, pipeline.Options{
		Passes: passes,
		Jobs:   opts.Jobs,
		Sink:   fileSink{path: file.Path, next: opts.Sink},
		Timer:  opts.Timer,
	})
	if err != nil {
		return nil, fmt.Errorf("driver: %s: %w", file.Path, err)
	}
	res.Unit = unit
	res.Output = unit.Output()
	res.Diagnostics = unit.Diagnostics()
	if err := unit.Err(); err != nil {
		return res, fmt.Errorf("driver: %s: %w", file.Path, err)
	}

	if opts.Cache != nil {
		payload := &CachePayload{Output: res.Output, Diagnostics: toCached(res.Diagnostics)}
		if err := opts.Cache.Put(key, payload); err != nil {
			trace.Point(trace.FromContext(ctx), trace.ScopeDriver, "cache", "write failed: "+err.Error(), span.ID())
		}
	}
	return res, nil
}

// fileSink stamps events with the path of the unit.
type fileSink struct {
	path string
	next pipeline.ProgressSink
}

func (s fileSink) OnEvent(evt pipeline.Event) {
	if s.next == nil {
		return
	}
	evt.File = s.path
	s.next.OnEvent(evt)
}

// analyze parses and analyzes one file. Analysis diagnostics are kept on
// the returned Analysis; only syntax errors and analyzer defects fail.
func analyze(fs *source.FileSet, id source.FileID, timer *observ.Timer) (*ast.Program, *sema.Analysis, error) {
	phase := func(name string) func() {
		if timer == nil {
			return func() {}
		}
		idx := timer.Begin(name)
		return func() { timer.End(idx, "") }
	}

	done := phase("parse")
	prog, err := parser.ParseFile(fs, id)
	done()
	if err != nil {
		return nil, nil, err
	}
	done = phase("analyze")
	an, err := sema.Analyze(prog)
	done()
	if err != nil {
		return nil, nil, fmt.Errorf("driver: analyze: %w", err)
	}
	return prog, an, nil
}

// syntaxDiagnostics appends the diagnostics of every *parser.SyntaxError
// in err and reports whether err consisted only of those.
func syntaxDiagnostics(err error, out *[]diag.Diagnostic) bool {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		all := true
		for _, e := range joined.Unwrap() {
			all = syntaxDiagnostics(e, out) && all
		}
		return all
	}
	var se *parser.SyntaxError
	if errors.As(err, &se) {
		*out = append(*out, se.Diagnostic())
		return true
	}
	return false
}

// Analysis is the result of AnalyzeSource.
type Analysis struct {
	FileSet     *source.FileSet
	Analysis    *sema.Analysis
	Diagnostics []diag.Diagnostic
}

// AnalyzeSource runs the front-end and the analyzer only.
func AnalyzeSource(path string, src []byte) (*Analysis, error) {
	fs := source.NewFileSet()
	id := fs.AddVirtual(path, src)
	res := &Analysis{FileSet: fs}
	_, an, err := analyze(fs, id, nil)
	if err != nil {
		if !syntaxDiagnostics(err, &res.Diagnostics) {
			return nil, err
		}
		return res, nil
	}
	res.Analysis = an
	res.Diagnostics = an.Diagnostics()
	return res, nil
}

// Snapshot renders source and output in the fixture format.
func Snapshot(src, output string) string {
	return fmt.Sprintf("Input:\n%s\n\nOutput:\n%s", src, output)
}
