// Package diag defines the diagnostic model shared by every pipeline phase.
//
// A Diagnostic carries a Severity, a numeric Code with a stable string form
// (see codes.go), a short message, the primary source.Span and optional notes.
// Phases emit through a Reporter so that storage stays decoupled from
// production; BagReporter collects into a Bag which supports limits, sorting
// and deduplication.
//
// Code ranges:
//
//   - 2000–2999 front-end (fixture parser)
//   - 3000–3999 semantic analysis
//   - 4000–4999 HIR construction
//   - 5000–5999 memoization passes
//   - 6000–6999 observability
//
// The package renders nothing against source text beyond FormatShort, the
// single-line form used by the CLI and by golden tests.
package diag
