package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/ritzau/unitgen/pkg/pipeline"
	"github.com/ritzau/unitgen/pkg/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func workspace(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func execute(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestGenerate(t *testing.T) {
	dir := workspace(t, map[string]string{
		"src/A/a.cc":      "#include \"../B/b.hh\"\n",
		"src/B/b.hh":      "",
		"src/B/b.cc":      "",
		"src/D/main.cc":   "",
		"src/D/d_test.cc": "",
	})

	_, stderr, err := execute("generate", "-C", dir, "--implicit", "")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Units: 4 (2 programs, 2 static libraries)")

	text, err := os.ReadFile(filepath.Join(dir, "units-generated.lua"))
	require.NoError(t, err)
	assert.Contains(t, string(text), "StaticLibrary {\n    Name = \"A\"")
	assert.Contains(t, string(text), "Name = \"D_d_test\"")
}

func TestDryRunIsDefaultCommand(t *testing.T) {
	dir := workspace(t, map[string]string{"src/A/a.cc": ""})

	stdout, _, err := execute("-C", dir, "--implicit", "", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, stdout, "-- Generated by unitgen. DO NOT EDIT!")
	assert.NoFileExists(t, filepath.Join(dir, "units-generated.lua"))
}

func TestCheckReportsCycles(t *testing.T) {
	dir := workspace(t, map[string]string{
		"src/A/a.cc": "#include \"../B/b.hh\"\n",
		"src/B/b.hh": "#include \"../A/a.hh\"\n",
		"src/A/a.hh": "",
	})

	stdout, _, err := execute("check", "-C", dir, "--implicit", "")

	var stage *pipeline.StageError
	require.True(t, errors.As(err, &stage))
	var cycle *validate.CycleError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, []string{"A", "B", "A"}, cycle.Path)
	assert.Contains(t, stdout, "DEPENDENCY CYCLES (1):\n  A, B\n")
}

func TestGraph(t *testing.T) {
	dir := workspace(t, map[string]string{
		"src/A/a.cc": "#include \"../B/b.hh\"\n",
		"src/B/b.hh": "",
	})

	stdout, _, err := execute("graph", "-C", dir, "--implicit", "")
	require.NoError(t, err)
	assert.Contains(t, stdout, "A -> B")
}

func TestInvalidConfig(t *testing.T) {
	_, _, err := execute("check", "--test-self-dep", "sometimes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TestSelfDep")
}
