package fuzztests

import (
	"context"
	"errors"
	"testing"
	"time"

	"forget/internal/config"
	"forget/internal/hir"
	"forget/internal/parser"
	"forget/internal/pipeline"
	"forget/internal/sema"
	"forget/internal/source"
	"forget/internal/testkit"
)

// compileTimeout bounds one input; exceeding it points at a loop in the
// parser or a pass that never reaches a fixpoint.
const compileTimeout = 5 * time.Second

func clampInput(input []byte) []byte {
	if len(input) > maxFuzzInput {
		return append([]byte(nil), input[:maxFuzzInput]...)
	}
	return append([]byte(nil), input...)
}

func FuzzParserSpans(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)
		fs := source.NewFileSet()
		id := fs.AddVirtual("fuzz.js", input)
		prog, err := parser.ParseFile(fs, id)
		if err != nil {
			var se *parser.SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("parse error is not a syntax error: %v", err)
			}
			return
		}
		if err := testkit.CheckSpanInvariants(prog, fs.Get(id)); err != nil {
			t.Fatalf("span invariants: %v\ninput: %q", err, truncateForLog(input, 200))
		}
	})
}

func FuzzPipeline(f *testing.F) {
	addCorpusSeeds(f)
	features := hir.DefaultFeatures().
		With(hir.FeatureAssertValidHIR, true).
		With(hir.FeatureValidateFrozenLambdas, true)
	registry := config.DefaultRegistry()

	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)
		ctx, cancel := context.WithTimeout(context.Background(), compileTimeout)
		defer cancel()

		type outcome struct {
			unit *pipeline.UnitResult
			err  error
		}
		done := make(chan outcome, 1)
		go func() {
			prog, err := parser.Parse(1, "fuzz.js", input)
			if err != nil {
				done <- outcome{}
				return
			}
			an, err := sema.Analyze(prog)
			if err != nil {
				done <- outcome{err: err}
				return
			}
			env := hir.NewEnvironment(features, registry, an)
			unit, err := pipeline.CompileUnit(ctx, env, prog, pipeline.Options{Jobs: 1})
			done <- outcome{unit: unit, err: err}
		}()

		var res outcome
		select {
		case res = <-done:
		case <-ctx.Done():
			t.Fatalf("compile hang detected: took longer than %v\ninput (%d bytes): %q",
				compileTimeout, len(input), truncateForLog(input, 200))
		}
		if res.err != nil {
			t.Fatalf("unexpected error: %v\ninput: %q", res.err, truncateForLog(input, 200))
		}
		if res.unit == nil {
			return
		}
		if err := res.unit.Err(); err != nil {
			t.Fatalf("internal error: %v\ninput: %q", err, truncateForLog(input, 200))
		}
		for _, fr := range res.unit.Functions {
			if fr.Fn == nil {
				continue
			}
			if err := hir.Validate(fr.Fn); err != nil {
				t.Fatalf("%s: invalid HIR: %v", fr.Name, err)
			}
		}
	})
}
