package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forget/internal/diag"
	"forget/internal/diagfmt"
	"forget/internal/driver"
	"forget/internal/observ"
)

func compileForTest(t *testing.T, src string) *driver.Result {
	t.Helper()
	res, err := driver.CompileSource(context.Background(), "t.js", []byte(src), driver.Options{})
	require.NoError(t, err)
	return res
}

func TestRender_Text(t *testing.T) {
	color.NoColor = true
	res := compileForTest(t, `function f(a) { a = 1; return b; }`)
	var out, errOut bytes.Buffer
	require.NoError(t, render(&out, &errOut, []*driver.Result{res}, "text", "short"))
	assert.Equal(t, res.Output+"\n", out.String())

	snap := bytes.Buffer{}
	require.NoError(t, render(&snap, &errOut, []*driver.Result{res}, "snapshot", "short"))
	assert.True(t, strings.HasPrefix(snap.String(), "Input:\n"))
}

func TestRender_JSON(t *testing.T) {
	res := compileForTest(t, `function f() { return g(); }`)
	var out, errOut bytes.Buffer
	require.NoError(t, render(&out, &errOut, []*driver.Result{res, nil}, "json", "short"))

	var payload []jsonResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &payload))
	require.Len(t, payload, 1)
	assert.Equal(t, "t.js", payload[0].Path)
	assert.Equal(t, res.Output, payload[0].Output)
	assert.Empty(t, errOut.String())
}

func TestRenderVersion(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	renderVersionPretty(&out, true)
	assert.Contains(t, out.String(), "forgetc ")
	assert.Contains(t, out.String(), "commit: ")

	out.Reset()
	require.NoError(t, renderVersionJSON(&out, false))
	var payload versionPayload
	require.NoError(t, json.Unmarshal(out.Bytes(), &payload))
	assert.Equal(t, "forgetc", payload.Tool)
	assert.Empty(t, payload.GitCommit)
}

func TestRender_DiagnosticsAcrossFiles(t *testing.T) {
	color.NoColor = true
	a, err := driver.CompileSource(context.Background(), "a.js", []byte(`function f() { const a = 1; a = 2; return a; }`), driver.Options{})
	require.NoError(t, err)
	b, err := driver.CompileSource(context.Background(), "b.js", []byte(`function g() { const b = 1; b = 2; return b; }`), driver.Options{})
	require.NoError(t, err)

	fs, diags := mergeDiagnostics([]*driver.Result{a, nil, b})
	require.Len(t, diags, len(a.Diagnostics)+len(b.Diagnostics))
	last := diags[len(diags)-1]
	assert.Equal(t, "b.js", fs.Get(last.Primary.File).Path)

	var out, errOut bytes.Buffer
	require.NoError(t, render(&out, &errOut, []*driver.Result{a, b}, "text", "pretty"))
	assert.Contains(t, out.String(), "// a.js")
	assert.Contains(t, errOut.String(), "a.js:1:")
	assert.Contains(t, errOut.String(), "b.js:1:")

	errOut.Reset()
	require.NoError(t, render(&out, &errOut, []*driver.Result{a, b}, "text", "sarif"))
	var log map[string]any
	require.NoError(t, json.Unmarshal(errOut.Bytes(), &log))
	assert.Equal(t, "2.1.0", log["version"])
}

func TestRender_TimingsInStructuredDiagnostics(t *testing.T) {
	timer := observ.NewTimer()
	res, err := driver.CompileSource(context.Background(), "t.js", []byte(`function f(a) { return a; }`), driver.Options{Timer: timer})
	require.NoError(t, err)
	timing, err := driver.TimingDiagnostic(timer, "t.js")
	require.NoError(t, err)

	var out, errOut bytes.Buffer
	require.NoError(t, render(&out, &errOut, []*driver.Result{res}, "text", "json", timing))
	var payload diagfmt.DiagnosticsOutput
	require.NoError(t, json.Unmarshal(errOut.Bytes(), &payload))
	require.Equal(t, 1, payload.Count)
	assert.Equal(t, diag.ObsTimings.ID(), payload.Diagnostics[0].Code)
	require.Len(t, payload.Diagnostics[0].Notes, 1)
	assert.Contains(t, payload.Diagnostics[0].Notes[0].Message, `"kind":"pipeline"`)

	out.Reset()
	errOut.Reset()
	require.NoError(t, render(&out, &errOut, []*driver.Result{res}, "json", "sarif", timing))
	assert.Contains(t, errOut.String(), diag.ObsTimings.ID())
}

func TestMergeDiagnostics_SameFileOnce(t *testing.T) {
	a, err := driver.CompileSource(context.Background(), "a.js", []byte(`function f() { const a = 1; a = 2; return a; }`), driver.Options{})
	require.NoError(t, err)
	require.NotEmpty(t, a.Diagnostics)

	fs, diags := mergeDiagnostics([]*driver.Result{a, a})
	require.Len(t, diags, 2*len(a.Diagnostics))
	for _, d := range diags {
		assert.Equal(t, "a.js", fs.Get(d.Primary.File).Path)
	}
	assert.Nil(t, fs.Get(1), "identical file is not added twice")
}
