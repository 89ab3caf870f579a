package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"forget/internal/diag"
	"forget/internal/diagfmt"
	"forget/internal/driver"
	"forget/internal/source"
	"forget/internal/version"
)

func diagFormatFlag(cmd *cobra.Command) (string, error) {
	format, err := cmd.Root().PersistentFlags().GetString("diag-format")
	if err != nil {
		return "", err
	}
	switch format {
	case "short", "pretty", "json", "sarif":
		return format, nil
	}
	return "", fmt.Errorf("unsupported diagnostics format %q (must be short, pretty, json or sarif)", format)
}

// writeDiagnostics renders diags in the requested format. Nothing is
// written for an empty list in the text formats.
func writeDiagnostics(w io.Writer, fs *source.FileSet, diags []diag.Diagnostic, format string) error {
	switch format {
	case "json":
		return diagfmt.JSON(w, diags, fs, diagfmt.JSONOpts{IncludePositions: true, IncludeNotes: true})
	case "sarif":
		return diagfmt.Sarif(w, diags, fs, diagfmt.SarifRunMeta{
			ToolName:       "forgetc",
			ToolVersion:    version.Version,
			InvocationArgs: os.Args[1:],
		})
	}
	if len(diags) == 0 {
		return nil
	}
	if format == "pretty" {
		return diagfmt.Pretty(w, diags, fs, diagfmt.PrettyOpts{Color: !color.NoColor, Context: 1, ShowNotes: true})
	}
	_, err := fmt.Fprintln(w, diag.FormatShort(diags, fs, diag.FormatOptions{Color: !color.NoColor, Notes: true, Align: true}))
	return err
}

// mergeDiagnostics copies the files of every result into one FileSet and
// rebases the diagnostic spans onto it. A path compiled twice with the same
// content maps to one file.
func mergeDiagnostics(results []*driver.Result) (*source.FileSet, []diag.Diagnostic) {
	merged := source.NewFileSet()
	all := diag.NewBag(0)
	for _, r := range results {
		if r == nil {
			continue
		}
		f := r.FileSet.Get(r.File)
		if f == nil {
			continue
		}
		var id source.FileID
		if prev, ok := merged.GetByPath(f.Path); ok && prev.Hash == f.Hash {
			id = prev.ID
		} else {
			id = merged.Add(f.Path, f.Content, f.Flags)
		}
		rebase := func(sp source.Span) source.Span {
			if sp.File == r.File {
				sp.File = id
			}
			return sp
		}
		bag := diag.NewBag(0)
		for _, d := range r.Diagnostics {
			d.Primary = rebase(d.Primary)
			notes := make([]diag.Note, len(d.Notes))
			for i, n := range d.Notes {
				n.Span = rebase(n.Span)
				notes[i] = n
			}
			d.Notes = notes
			bag.Add(d)
		}
		all.Merge(bag)
	}
	return merged, all.Items()
}
