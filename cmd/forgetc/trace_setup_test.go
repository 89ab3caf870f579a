package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forget/internal/trace"
)

func TestDumpRing(t *testing.T) {
	ring := trace.NewRingTracer(8, trace.LevelDebug)
	ring.Emit(&trace.Event{Kind: trace.KindPoint, Scope: trace.ScopeDriver, Name: "compile"})

	path := filepath.Join(t.TempDir(), "trace.ndjson")
	var stderr bytes.Buffer
	require.NoError(t, dumpRing(ring, path, trace.FormatAuto, &stderr))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name":"compile"`)
	assert.Empty(t, stderr.String())

	require.NoError(t, dumpRing(ring, "-", trace.FormatText, &stderr))
	assert.Contains(t, stderr.String(), "compile")

	stderr.Reset()
	require.NoError(t, dumpRing(trace.Nop, "", trace.FormatText, &stderr))
	assert.Empty(t, stderr.String())
}
