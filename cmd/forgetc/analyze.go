package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"forget/internal/diag"
	"forget/internal/driver"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [flags] <file.js|->",
	Short: "Print the scopes, bindings and references found by semantic analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("format", "text", "output format (text|json)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if format != "text" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be text or json)", format)
	}
	diagFormat, err := diagFormatFlag(cmd)
	if err != nil {
		return err
	}

	path := args[0]
	var src []byte
	if path == "-" {
		path = "<stdin>"
		src, err = io.ReadAll(os.Stdin)
	} else {
		src, err = os.ReadFile(path) // #nosec G304 -- path is provided by the user
	}
	if err != nil {
		return err
	}

	res, err := driver.AnalyzeSource(path, src)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if res.Analysis != nil {
		info := res.Analysis.Debug()
		if format == "json" {
			data, err := info.JSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
		} else {
			fmt.Fprint(out, info.String())
		}
	}
	if err := writeDiagnostics(cmd.ErrOrStderr(), res.FileSet, res.Diagnostics, diagFormat); err != nil {
		return err
	}
	for _, d := range res.Diagnostics {
		if d.Severity >= diag.SevError {
			return errCompileFailed
		}
	}
	return nil
}
