package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeScript writes contents to a file named name in a fresh temporary directory and returns its path
func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout

	r, w, err := os.Pipe()
	require.NoError(t, err)

	os.Stdout = w

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)

	return buf.String(), fnErr
}

// resetFlags puts every global and command flag back to its default
func resetFlags() {
	verbose = false
	quiet = false
	jsonOut = false

	runPolicy = "FIFO"
	runValidate = false
	runSummary = false
	runMap = false

	compareValidate = false

	generateSize = 100
	generateEvents = 50
	generateOwners = 8
	generateMaxAllocation = 0
	generateCoalesceEvery = 0
	generateSeed = 0
	generateOutput = ""
}
