// Package fuzztests houses Go fuzz harnesses that push arbitrary inputs
// through the parser, the analyzer and the pass pipeline. They guard
// against panics, hangs and HIR that fails validation.
package fuzztests
