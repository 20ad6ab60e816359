package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"-version"}, &out, &errOut)
	assert.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(out.String(), "routeplan "))
}

func TestBadFlag(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.Equal(t, 2, run([]string{"-nope"}, &out, &errOut))
}

func TestBadStyle(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"-config", "", "-style", "fancy"}, &out, &errOut)
	assert.Equal(t, 1, code)
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "invalid config")
}

func TestMissingFilesFail(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "planner.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("distance:\n  provider: haversine\nlog:\n  level: error\n"), 0o600))

	var out, errOut bytes.Buffer
	code := run([]string{"-config", cfg, "-locations", filepath.Join(dir, "none.txt"), "-weights", filepath.Join(dir, "w.txt")}, &out, &errOut)
	assert.Equal(t, 1, code)
	assert.Empty(t, out.String())
	assert.True(t, strings.HasPrefix(errOut.String(), "error:"))
}

// nameOnlyFiles writes a planning input that the haversine provider cannot measure.
func nameOnlyFiles(t *testing.T) (cfg, locs, weights string) {
	t.Helper()
	dir := t.TempDir()
	cfg = filepath.Join(dir, "planner.yaml")
	locs = filepath.Join(dir, "locations.txt")
	weights = filepath.Join(dir, "weights.txt")
	require.NoError(t, os.WriteFile(cfg, []byte("distance:\n  provider: haversine\n"), 0o600))
	require.NoError(t, os.WriteFile(locs, []byte("Depot\nMarket St\n"), 0o600))
	require.NoError(t, os.WriteFile(weights, []byte("0\n10\n"), 0o600))
	return cfg, locs, weights
}

// captureStderr runs fn with os.Stderr redirected and returns what was written.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stderr
	os.Stderr = w
	defer func() { os.Stderr = orig }()
	fn()
	require.NoError(t, w.Close())
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(b)
}

func TestFailedRunPrintsOnlyErrorLine(t *testing.T) {
	cfg, locs, weights := nameOnlyFiles(t)
	var out bytes.Buffer
	code := 0
	got := captureStderr(t, func() {
		code = run([]string{"-config", cfg, "-locations", locs, "-weights", weights}, &out, os.Stderr)
	})
	assert.Equal(t, 1, code)
	assert.Empty(t, out.String())
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	require.Len(t, lines, 1, "stderr: %q", got)
	assert.True(t, strings.HasPrefix(lines[0], "error: "))
	assert.Contains(t, lines[0], "location has no coordinates")
	assert.Equal(t, 1, strings.Count(lines[0], "distance matrix:"))
}

func TestVerboseLogsToStderr(t *testing.T) {
	cfg, locs, weights := nameOnlyFiles(t)
	var out, errOut bytes.Buffer
	code := run([]string{"-v", "-config", cfg, "-locations", locs, "-weights", weights}, &out, &errOut)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), `"msg":"plan started"`)
	assert.Contains(t, errOut.String(), "error: ")
}
