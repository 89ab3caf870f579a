package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"forget/internal/diag"
	"forget/internal/source"
)

// Pretty writes diagnostics in a human readable form, expecting them
// sorted already:
//
//	<sev>[<CODE>]: <message>
//	  --> <path>:<line>:<col>
//	   |
//	 3 | <source line>
//	   |     ^^^^^
//	   = note: <path>:<line>:<col>: <note>
func Pretty(w io.Writer, diags []diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) error {
	p := prettyPrinter{fs: fs, opts: opts}
	for i, d := range diags {
		if i > 0 {
			p.sb.WriteByte('\n')
		}
		p.diagnostic(d)
	}
	_, err := io.WriteString(w, p.sb.String())
	return err
}

type prettyPrinter struct {
	fs   *source.FileSet
	opts PrettyOpts
	sb   strings.Builder
}

func (p *prettyPrinter) paint(c *color.Color, s string) string {
	if !p.opts.Color {
		return s
	}
	return c.Sprint(s)
}

func (p *prettyPrinter) diagnostic(d diag.Diagnostic) {
	sevColor := severityColor(d.Severity)
	accent := color.New(color.FgBlue, color.Bold)
	header := fmt.Sprintf("%s[%s]", severityName(d.Severity), d.Code.ID())
	fmt.Fprintf(&p.sb, "%s: %s\n", p.paint(sevColor, header), p.paint(color.New(color.Bold), d.Message))

	f := p.file(d.Primary)
	if f == nil {
		p.notes(d, accent, 0)
		return
	}
	start, end := p.fs.Resolve(d.Primary)
	first := start.Line
	if p.opts.Context > 0 {
		first = uint32(max(1, int(start.Line)-p.opts.Context)) //nolint:gosec // line numbers fit in uint32
	}
	gutter := len(strconv.FormatUint(uint64(start.Line), 10))
	pad := strings.Repeat(" ", gutter)

	fmt.Fprintf(&p.sb, "%s%s %s:%d:%d\n", pad, p.paint(accent, "-->"), formatPath(p.fs, f, p.opts.PathMode), start.Line, start.Col)
	fmt.Fprintf(&p.sb, "%s %s\n", pad, p.paint(accent, "|"))
	for line := first; line <= start.Line; line++ {
		text, _ := lineText(f, line)
		num := fmt.Sprintf("%*d", gutter, line)
		fmt.Fprintf(&p.sb, "%s %s %s\n", p.paint(accent, num), p.paint(accent, "|"), text)
	}

	text, _ := lineText(f, start.Line)
	lo := min(int(start.Col)-1, len(text))
	hi := len(text)
	if end.Line == start.Line {
		hi = min(int(end.Col)-1, len(text))
	}
	hi = max(hi, lo)
	marks := strings.Repeat("^", max(1, runewidth.StringWidth(text[lo:hi])))
	fmt.Fprintf(&p.sb, "%s %s %s%s\n", pad, p.paint(accent, "|"), indentFor(text[:lo]), p.paint(sevColor, marks))
	p.notes(d, accent, gutter)
}

func (p *prettyPrinter) notes(d diag.Diagnostic, accent *color.Color, gutter int) {
	if !p.opts.ShowNotes {
		return
	}
	pad := strings.Repeat(" ", gutter)
	for _, n := range d.Notes {
		loc := ""
		if f := p.file(n.Span); f != nil {
			pos, _ := p.fs.Resolve(n.Span)
			loc = fmt.Sprintf("%s:%d:%d: ", formatPath(p.fs, f, p.opts.PathMode), pos.Line, pos.Col)
		}
		msg := strings.ReplaceAll(n.Msg, "\n", "\n"+pad+"   ")
		fmt.Fprintf(&p.sb, "%s %s %s%s\n", pad, p.paint(accent, "="), p.paint(color.New(color.Bold), "note: "), loc+msg)
	}
}

func (p *prettyPrinter) file(sp source.Span) *source.File {
	if p.fs == nil {
		return nil
	}
	return p.fs.Get(sp.File)
}

// indentFor returns blanks as wide as prefix, keeping tabs so the carets
// line up with the source line.
func indentFor(prefix string) string {
	var sb strings.Builder
	for _, r := range prefix {
		if r == '\t' {
			sb.WriteByte('\t')
			continue
		}
		sb.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	return sb.String()
}

func severityName(sev diag.Severity) string {
	switch sev {
	case diag.SevError:
		return "error"
	case diag.SevWarning:
		return "warning"
	default:
		return "info"
	}
}

func severityColor(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return color.New(color.FgRed, color.Bold)
	case diag.SevWarning:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgCyan, color.Bold)
	}
}
