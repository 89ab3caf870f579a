package diagfmt

import (
	"path/filepath"
	"strings"

	"fortio.org/safecast"

	"forget/internal/source"
)

func formatPath(fs *source.FileSet, f *source.File, mode PathMode) string {
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(f.Path); err == nil {
			return filepath.ToSlash(abs)
		}
		return f.Path
	case PathModeRelative:
		return f.RelPath(fs.BaseDir())
	case PathModeBasename:
		return filepath.Base(f.Path)
	default:
		rel := f.RelPath(fs.BaseDir())
		if strings.HasPrefix(rel, "../") {
			return f.Path
		}
		return rel
	}
}

// lineText returns the content of a 1-based line without its newline and
// the byte offset the line starts at.
func lineText(f *source.File, line uint32) (string, uint32) {
	if line == 0 {
		return "", 0
	}
	size, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		return "", 0
	}
	start := uint32(0)
	if line > 1 {
		idx := int(line) - 2
		if idx >= len(f.LineIdx) {
			return "", size
		}
		start = f.LineIdx[idx] + 1
	}
	end := size
	if idx := int(line) - 1; idx < len(f.LineIdx) {
		end = f.LineIdx[idx]
	}
	if end < start {
		end = start
	}
	return strings.TrimRight(string(f.Content[start:end]), "\r"), start
}
