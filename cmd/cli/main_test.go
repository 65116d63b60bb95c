package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_PanicRecovery(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// Define an HCL string with a syntax error that is guaranteed to cause a
	// panic during the loading phase inside app.NewApp().
	invalidHCL := `
		node "trace" "probe" {
			format {
		// Missing closing brace here
	`
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "main.hcl")
	err := os.WriteFile(filePath, []byte(invalidHCL), 0600)
	require.NoError(t, err, "failed to set up test file")

	args := []string{filePath}
	out := &bytes.Buffer{}

	// --- Act ---
	// Call the run function, which should recover the panic and return it as an error.
	runErr := run(out, args)

	// --- Assert ---
	require.Error(t, runErr, "run() should have returned an error after recovering from a panic")

	errStr := runErr.Error()
	require.True(t, strings.Contains(errStr, "application startup panicked"), "The error message should indicate that a panic was recovered.")
	require.True(t, strings.Contains(errStr, "failed to load configuration"), "The error message should contain the underlying reason for the panic.")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	args := []string{"-h"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(out, args)

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// Providing an unknown flag will cause cli.Parse to return an error.
	args := []string{"--this-is-not-a-valid-flag"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(out, args)

	// --- Assert ---
	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	graphHCL := `
graph {
  frames = 2
}

node "input" "x" {
  shape = [2]
}

node "extcall" "negate" {
  input = "x"
}

node "trace" "probe" {
  input     = "negate"
  say       = "negated"
  log_first = 1

  format {
    precision = ".1"
  }
}
`
	tempDir := t.TempDir()
	graphPath := filepath.Join(tempDir, "main.hcl")
	require.NoError(t, os.WriteFile(graphPath, []byte(graphHCL), 0600))
	tracePath := filepath.Join(tempDir, "trace.out")
	modelPath := filepath.Join(tempDir, "model.tgm")

	args := []string{
		"-steps", "2",
		"-trace-out", tracePath,
		"-save-model", modelPath,
		graphPath,
	}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(out, args)

	// --- Assert ---
	require.NoError(t, err)

	trace, err := os.ReadFile(tracePath)
	require.NoError(t, err)
	require.Contains(t, string(trace), "------- Trace[] negated --> negate = ExternalCall (x) [2 x *]")
	require.Contains(t, string(trace), "-1.0 -3.0")

	model, err := os.ReadFile(modelPath)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(model), "TGMF"), "model file should carry the format magic")
}
