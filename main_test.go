package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	taskName, dryRun, metricsFile = "", false, ""
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "snapcheck dev\n", out)
}

func TestFingerprintCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))

	out, err := execute(t, "fingerprint", "--strategy", "name_only", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "a.txt")
	assert.Contains(t, out, "aggregate")
	assert.Contains(t, out, "name_only, 1 entries")
}

func TestCheckCommand(t *testing.T) {
	t.Setenv("SNAPCHECK_HISTORY_DIR", "")
	t.Setenv("SNAPCHECK_LOG_LEVEL", "")
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("a"), 0o644))

	cfg := strings.Join([]string{
		"history_dir: " + filepath.Join(dir, "history"),
		"tasks:",
		"  - name: compile",
		"    properties:",
		"      - name: sources",
		"        strategy: relative",
		"        roots: [" + src + "]",
	}, "\n")
	cfgPath := filepath.Join(dir, "snapcheck.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	out, err := execute(t, "check", "--config", cfgPath, "--dry-run")
	assert.ErrorIs(t, err, errOutOfDate)
	assert.Contains(t, out, "OUT-OF-DATE compile")
	assert.Contains(t, out, "No history is available.")

	_, err = execute(t, "check", "--config", cfgPath)
	assert.ErrorIs(t, err, errOutOfDate)

	out, err = execute(t, "check", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "UP-TO-DATE compile")

	_, err = execute(t, "check", "--config", cfgPath, "--task", "missing")
	assert.Error(t, err)
}
