package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fillSrc = `
void fill(int *buf __attribute__((count_index(2))), int n);
void caller(int *q, int i) {
    int arr[8];
    fill(arr, 5);
    q[i] = 0;
}
`

func writeSource(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestInstrumentEmitIR(t *testing.T) {
	dir := t.TempDir()
	file := writeSource(t, dir, "fill.c", fillSrc)

	out, errOut, err := run(t, "--cache", filepath.Join(dir, "cache"),
		"instrument", "--boundary", "--emit", "ir", file)
	require.NoError(t, err, errOut)
	assert.Contains(t, out, "func caller(")
	assert.Contains(t, out, "check.le((&arr + 20), (&arr + 32)) callassertle")
	assert.Contains(t, errOut, "[ENC102]", "q has no bound")
	assert.Contains(t, errOut, "0 error(s), 2 warning(s)")
}

func TestInstrumentUsesCache(t *testing.T) {
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	file := writeSource(t, dir, "fill.c", fillSrc)

	first, _, err := run(t, "--cache", cacheDir, "instrument", "--boundary", "--emit", "ir", file)
	require.NoError(t, err)
	entries, err := os.ReadDir(filepath.Join(cacheDir, OUTPUT_DIR))
	require.NoError(t, err)
	var hashDirs int
	for _, e := range entries {
		if isHashDir(e.Name()) {
			hashDirs++
		}
	}
	assert.Equal(t, 1, hashDirs)

	second, _, err := run(t, "--cache", cacheDir, "instrument", "--boundary", "--emit", "ir", file)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, _, err = run(t, "--cache", cacheDir, "clean")
	require.NoError(t, err)
	entries, err = os.ReadDir(filepath.Join(cacheDir, OUTPUT_DIR))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, isHashDir(e.Name()), e.Name())
	}
}

func TestInstrumentOutputFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "a.c", "int one(void) { return 1; }\n")
	b := writeSource(t, dir, "b.c", "int two(void) { return 2; }\n")

	outFile := filepath.Join(dir, "single", "a.ll")
	_, _, err := run(t, "instrument", "--no-cache", "-o", outFile, a)
	require.NoError(t, err)
	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "define i32 @one()")

	outDir := filepath.Join(dir, "many")
	_, _, err = run(t, "instrument", "--no-cache", "--emit", "ir", "-o", outDir, a, b)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(outDir, "a"+IR_SUFFIX))
	assert.FileExists(t, filepath.Join(outDir, "b"+IR_SUFFIX))
}

func TestInstrumentFailure(t *testing.T) {
	dir := t.TempDir()
	file := writeSource(t, dir, "bad.c", `
void f(void) {
    int *p __attribute__((nonnull)) = 0;
}
`)
	out, errOut, err := run(t, "instrument", "--no-cache", "--nonnull", "--report", "json", file)
	require.ErrorIs(t, err, errFailed)
	assert.Empty(t, out, "no output for a failed file")

	var report struct {
		Errors      int `json:"errors"`
		Diagnostics []struct {
			Code string `json:"code"`
		} `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal([]byte(errOut), &report))
	assert.Equal(t, 1, report.Errors)
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, "ENC101", report.Diagnostics[0].Code)
}

func TestInstrumentConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := writeSource(t, dir, "fill.c", fillSrc)
	policy := writeSource(t, dir, "safec.yaml", "boundary_check: true\nwarnings_as_errors: true\n")

	_, errOut, err := run(t, "instrument", "--no-cache", "--config", policy, file)
	require.ErrorIs(t, err, errFailed)
	assert.Contains(t, errOut, "error: ")

	// flags override the file
	_, _, err = run(t, "instrument", "--no-cache", "--config", policy, "--boundary=false", file)
	require.NoError(t, err)
}

func TestInstrumentBadFlags(t *testing.T) {
	_, _, err := run(t, "instrument", "--emit", "asm", "x.c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid emit")

	_, _, err = run(t, "instrument", "--report", "xml", "x.c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid report")

	_, _, err = run(t, "instrument", "--no-cache", filepath.Join(t.TempDir(), "missing.c"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "safecc "+Version+" ("))
}

func TestRuntimeCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "rt")
	out, _, err := run(t, "runtime", "-o", dir)
	require.NoError(t, err)
	assert.Equal(t, dir+"\n", out)
	data, err := os.ReadFile(filepath.Join(dir, "enc_check.c"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "__enc_check_fail")

	id, err := runtimeID()
	require.NoError(t, err)
	assert.True(t, isHashDir(id))
}
