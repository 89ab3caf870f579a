package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

const (
	maxSeedBytes = 64 << 10 // 64 KiB
	maxFuzzInput = 1 << 16
)

var inlineSeeds = []string{
	"",
	"function f() {}",
	"function f(a) { return a + 1; }",
	"function f(c) { let x; if (c) { x = 1; } else { x = 2; } return x; }",
	"function f(n) { let s = 0; for (let i = 0; i < n; i++) { s += i; } return s; }",
	"function f(a) { const v = useMemo(() => a * 2, [a]); return v; }",
	"function f(a) { return React.useMemo(() => { if (a) { return 1; } return 2; }, [a]); }",
	"function f(a) { let x = a; const g = () => x; x = 2; return g(); }",
	"function f(o) { const { a, b: [c, ...d] } = o; return a + c + d.length; }",
	"function f(o) { try { g(o); } catch (e) { return e; } finally { h(); } }",
	"function f(x) { switch (x) { case 1: return 'a'; default: break; } return x?.y ?? 0; }",
	"function f() { label: while (true) { do { break label; } while (false); } }",
	"function f(a) { function g() { return h(); } function h() { return a; } return g(); }",
	"function f() { for (const k in o) {} }",
}

func addCorpusSeeds(f *testing.F) {
	for _, s := range inlineSeeds {
		f.Add([]byte(s))
	}
	addTestdataSeeds(f)
}

func addTestdataSeeds(f *testing.F) {
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || filepath.Ext(path) != ".js" {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}

// truncateForLog truncates input for logging purposes
func truncateForLog(input []byte, maxLen int) []byte {
	if len(input) <= maxLen {
		return input
	}
	return append(input[:maxLen:maxLen], []byte("...")...)
}
