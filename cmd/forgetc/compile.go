package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"

	"forget/internal/diag"
	"forget/internal/driver"
	"forget/internal/observ"
	"forget/internal/pipeline"
)

var errCompileFailed = errors.New("compilation failed")

var compileCmd = &cobra.Command{
	Use:   "compile [flags] <file.js|->...",
	Short: "Compile files and print the final HIR of every top-level function",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCompile,
}

func init() {
	compileCmd.Flags().StringSlice("passes", nil, "comma-separated pass list (default: "+strings.Join(pipeline.PassNames(), ",")+")")
	compileCmd.Flags().String("format", "text", "output format (text|snapshot|json)")
	compileCmd.Flags().Bool("watch", false, "recompile when an input file changes")
	compileCmd.Flags().Bool("no-cache", false, "disable the on-disk output cache")
	compileCmd.Flags().Bool("ui", false, "show live progress on stderr (ignored when stderr is not a terminal)")
}

func runCompile(cmd *cobra.Command, args []string) error {
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	switch format {
	case "text", "snapshot", "json":
	default:
		return fmt.Errorf("unsupported format %q (must be text, snapshot or json)", format)
	}
	diagFormat, err := diagFormatFlag(cmd)
	if err != nil {
		return err
	}
	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return err
	}
	opts, err := compileOptions(cmd)
	if err != nil {
		return err
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}
	withUI, err := cmd.Flags().GetBool("ui")
	if err != nil {
		return err
	}
	withUI = withUI && isTerminal(os.Stderr)

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	run := func(ctx context.Context, paths []string) error {
		if showTimings {
			opts.Timer = observ.NewTimer()
		}
		var (
			results []*driver.Result
			err     error
		)
		if withUI {
			results, err = compileWithUI(ctx, errOut, paths, opts)
		} else {
			results, err = compileAll(ctx, paths, opts)
		}
		// Structured diagnostic formats carry the timings as a diagnostic.
		var extra []diag.Diagnostic
		structured := diagFormat == "json" || diagFormat == "sarif"
		if showTimings && structured {
			d, terr := driver.TimingDiagnostic(opts.Timer, strings.Join(paths, ", "))
			if terr != nil {
				return terr
			}
			extra = append(extra, d)
		}
		if rerr := render(out, errOut, results, format, diagFormat, extra...); rerr != nil {
			return rerr
		}
		if showTimings && !structured {
			fmt.Fprint(errOut, opts.Timer.Summary())
		}
		if err != nil {
			return err
		}
		for _, r := range results {
			if r != nil && r.HasErrors() {
				return errCompileFailed
			}
		}
		return nil
	}

	err = run(cmd.Context(), args)
	if !watch {
		return err
	}
	if err != nil {
		fmt.Fprintln(errOut, color.RedString("error:"), err)
	}
	for _, a := range args {
		if a == "-" {
			return errors.New("--watch cannot read from stdin")
		}
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	fmt.Fprintf(errOut, "watching %d file(s), press Ctrl+C to stop\n", len(args))
	return driver.Watch(ctx, args, func(changed []string) {
		fmt.Fprintf(errOut, "changed: %s\n", strings.Join(changed, ", "))
		if err := run(ctx, changed); err != nil {
			fmt.Fprintln(errOut, color.RedString("error:"), err)
		}
	})
}

func compileOptions(cmd *cobra.Command) (driver.Options, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return driver.Options{}, err
	}
	names, err := cmd.Flags().GetStringSlice("passes")
	if err != nil {
		return driver.Options{}, err
	}
	passes, err := pipeline.SelectPasses(names)
	if err != nil {
		return driver.Options{}, err
	}
	jobs, err := cmd.Root().PersistentFlags().GetInt("jobs")
	if err != nil {
		return driver.Options{}, err
	}
	if jobs == 0 {
		jobs = env.Int("FORGET_JOBS", 0)
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return driver.Options{}, err
	}
	opts := driver.Options{Config: cfg, Passes: passes, Jobs: jobs}
	if !noCache {
		var cache *driver.DiskCache
		if dir := env.Str("FORGET_CACHE_DIR", ""); dir != "" {
			cache, err = driver.OpenDiskCacheAt(dir)
		} else {
			cache, err = driver.OpenDiskCache("forget")
		}
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "cache disabled: %v\n", err)
		} else {
			opts.Cache = cache
		}
	}
	return opts, nil
}

// compileAll compiles files from disk in parallel; "-" reads stdin.
func compileAll(ctx context.Context, paths []string, opts driver.Options) ([]*driver.Result, error) {
	var files []string
	for _, p := range paths {
		if p != "-" {
			files = append(files, p)
		}
	}
	fromDisk, err := driver.CompileFiles(ctx, files, opts)
	results := make([]*driver.Result, 0, len(paths))
	next := 0
	for _, p := range paths {
		if p != "-" {
			results = append(results, fromDisk[next])
			next++
			continue
		}
		src, rerr := io.ReadAll(os.Stdin)
		if rerr != nil {
			return results, errors.Join(err, fmt.Errorf("read stdin: %w", rerr))
		}
		res, cerr := driver.CompileSource(ctx, "<stdin>", src, opts)
		err = errors.Join(err, cerr)
		results = append(results, res)
	}
	return results, err
}

type jsonResult struct {
	Path        string           `json:"path"`
	Output      string           `json:"output"`
	Cached      bool             `json:"cached,omitempty"`
	Diagnostics []jsonDiagnostic `json:"diagnostics,omitempty"`
}

type jsonDiagnostic struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Line     uint32 `json:"line"`
	Col      uint32 `json:"col"`
}

// render writes the compiled output to out and the diagnostics of every
// result, followed by extra, to errOut. The json format embeds the
// per-result diagnostics in out instead.
func render(out, errOut io.Writer, results []*driver.Result, format, diagFormat string, extra ...diag.Diagnostic) error {
	if format == "json" {
		payload := make([]jsonResult, 0, len(results))
		for _, r := range results {
			if r == nil {
				continue
			}
			jr := jsonResult{Path: r.Path, Output: r.Output, Cached: r.Cached}
			for _, d := range r.Diagnostics {
				start, _ := r.FileSet.Resolve(d.Primary)
				jr.Diagnostics = append(jr.Diagnostics, jsonDiagnostic{
					Severity: d.Severity.String(),
					Code:     d.Code.ID(),
					Message:  d.Message,
					Line:     start.Line,
					Col:      start.Col,
				})
			}
			payload = append(payload, jr)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(payload); err != nil {
			return err
		}
		if len(extra) == 0 {
			return nil
		}
		fs, _ := mergeDiagnostics(results)
		return writeDiagnostics(errOut, fs, extra, diagFormat)
	}

	for i, r := range results {
		if r == nil {
			continue
		}
		if len(results) > 1 {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "// %s\n", r.Path)
		}
		text := r.Output
		if format == "snapshot" {
			text = r.Snapshot()
		}
		if text != "" {
			fmt.Fprintln(out, text)
		}
	}
	fs, diags := mergeDiagnostics(results)
	return writeDiagnostics(errOut, fs, append(diags, extra...), diagFormat)
}
