package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"forget/internal/source"
)

// FormatOptions controls FormatShort.
type FormatOptions struct {
	// Color enables severity colouring.
	Color bool
	// Notes emits one extra line per note.
	Notes bool
	// Align pads the location column to a common width.
	Align bool
}

type shortLine struct {
	sev  Severity
	kind string
	code string
	loc  string
	msg  string
	key  [3]uint32
}

// FormatShort renders diagnostics one per line as
// "<severity> <code> <path>:<line>:<col> <message>", sorted by position.
// With a nil FileSet the raw span is printed instead of line/column.
func FormatShort(diags []Diagnostic, fs *source.FileSet, opts FormatOptions) string {
	if len(diags) == 0 {
		return ""
	}
	lines := make([]shortLine, 0, len(diags))
	for _, d := range diags {
		lines = append(lines, shortLine{
			sev:  d.Severity,
			kind: severityLabel(d.Severity),
			code: d.Code.ID(),
			loc:  location(fs, d.Primary),
			msg:  sanitizeMessage(d.Message),
			key:  [3]uint32{uint32(d.Primary.File), d.Primary.Start, d.Primary.End},
		})
		if !opts.Notes {
			continue
		}
		for _, n := range d.Notes {
			lines = append(lines, shortLine{
				sev:  SevInfo,
				kind: "note",
				code: d.Code.ID(),
				loc:  location(fs, n.Span),
				msg:  sanitizeMessage(n.Msg),
				key:  [3]uint32{uint32(d.Primary.File), d.Primary.Start, d.Primary.End},
			})
		}
	}

	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i].key, lines[j].key
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		if a[1] != b[1] {
			return a[1] < b[1]
		}
		return a[2] < b[2]
	})

	width := 0
	if opts.Align {
		for _, l := range lines {
			width = max(width, runewidth.StringWidth(l.loc))
		}
	}

	var sb strings.Builder
	for i, l := range lines {
		kind := l.kind
		if opts.Color {
			kind = severityColor(l.sev, l.kind == "note").Sprint(kind)
		}
		loc := l.loc
		if width > 0 {
			loc = runewidth.FillRight(loc, width)
		}
		fmt.Fprintf(&sb, "%s %s %s %s", kind, l.code, loc, l.msg)
		if i < len(lines)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func location(fs *source.FileSet, sp source.Span) string {
	if fs == nil {
		return sp.String()
	}
	f := fs.Get(sp.File)
	if f == nil {
		return sp.String()
	}
	start, _ := fs.Resolve(sp)
	return fmt.Sprintf("%s:%d:%d", f.RelPath(fs.BaseDir()), start.Line, start.Col)
}

func severityLabel(sev Severity) string {
	switch sev {
	case SevError:
		return "error"
	case SevWarning:
		return "warning"
	default:
		return "info"
	}
}

func severityColor(sev Severity, note bool) *color.Color {
	if note {
		return color.New(color.FgCyan)
	}
	switch sev {
	case SevError:
		return color.New(color.FgRed, color.Bold)
	case SevWarning:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgBlue)
	}
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
