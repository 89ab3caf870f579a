package source

import (
	"testing"
)

func TestFileSet_Resolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.js", []byte("let x = 1;\nreturn x;\n"))

	start, end := fs.Resolve(Span{File: id, Start: 11, End: 17})
	if start != (LineCol{Line: 2, Col: 1}) {
		t.Errorf("start = %+v, want 2:1", start)
	}
	if end != (LineCol{Line: 2, Col: 7}) {
		t.Errorf("end = %+v, want 2:7", end)
	}

	first, _ := fs.Resolve(Span{File: id, Start: 4, End: 5})
	if first != (LineCol{Line: 1, Col: 5}) {
		t.Errorf("first = %+v, want 1:5", first)
	}
}

func TestFileSet_NewlineBelongsToItsLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("b.js", []byte("ab\ncd"))
	pos, _ := fs.Resolve(Span{File: id, Start: 2, End: 2})
	if pos != (LineCol{Line: 1, Col: 3}) {
		t.Errorf("newline position = %+v, want 1:3", pos)
	}
}

func TestNormalizeCRLF(t *testing.T) {
	out, changed := normalizeCRLF([]byte("a\r\nb\rc"))
	if !changed {
		t.Fatalf("expected change")
	}
	if string(out) != "a\nb\rc" {
		t.Errorf("normalizeCRLF = %q", out)
	}
}
