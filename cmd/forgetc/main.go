package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"forget/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "forgetc",
	Short:         "Memoization-aware compiler middle-end",
	Long:          `forgetc lowers JavaScript functions to HIR, converts them to SSA, folds constants and inlines memoization hooks.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return configureColor(cmd)
	},
}

// main registers subcommands and persistent flags and executes the root
// command, exiting with status 1 on error.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(versionCmd)

	pf := rootCmd.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.String("config", "", "path to forget.toml (default: searched upwards from the working directory)")
	pf.StringArray("feature", nil, "override a feature, e.g. --feature inline_use_memo=false")
	pf.String("diag-format", "short", "diagnostics format (short|pretty|json|sarif)")
	pf.Bool("timings", false, "show timing information")
	pf.Int("jobs", 0, "parallel workers (0 = GOMAXPROCS)")
	pf.String("trace", "", "trace output file (- for stderr)")
	pf.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "stream", "trace storage mode (stream|ring|both)")
	pf.String("trace-format", "auto", "trace format (auto|text|ndjson)")
	pf.Int("trace-ring-size", 4096, "ring buffer capacity for ring trace mode")
	pf.String("cpu-profile", "", "write a CPU profile to the file")
	pf.String("mem-profile", "", "write a heap profile to the file on exit")
	pf.String("runtime-trace", "", "write a Go runtime trace to the file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func configureColor(cmd *cobra.Command) error {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	switch strings.ToLower(mode) {
	case "auto":
		color.NoColor = !isTerminal(os.Stdout)
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
	return nil
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // file descriptors fit in int
}
