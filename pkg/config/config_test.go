package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ritzau/unitgen/pkg/units"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	f := pflag.NewFlagSet("unitgen", pflag.ContinueOnError)
	RegisterFlags(f)
	require.NoError(t, f.Parse(args))
	return f
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(flags(t, "--config", filepath.Join(t.TempDir(), "none.toml")))
	require.Error(t, err, "an explicit config file must exist")
	assert.Nil(t, cfg)

	cfg, err = Load(flags(t))
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.Workspace)
	assert.Equal(t, "src", cfg.Root)
	assert.Equal(t, "units-generated.lua", cfg.Output)
	assert.Equal(t, "scripts/implicit-units.json", cfg.Implicit)
	assert.Equal(t, "main.cc", cfg.Entry)
	assert.Equal(t, "../", cfg.Prefix)
	assert.Equal(t, "test", cfg.TestDep)
	assert.Equal(t, "always", cfg.TestSelfDep)
	assert.Equal(t, 300*time.Millisecond, cfg.QuietPeriod)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestLoadPriority(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unitgen.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
root = "source"
output = "from-file.lua"
test-dep = "catch2"
linux-config = "linux-gcc-*"
`), 0o644))

	t.Setenv("UNITGEN_OUTPUT", "from-env.lua")
	t.Setenv("UNITGEN_TEST_SELF_DEP", "with-sources")

	cfg, err := Load(flags(t, "--config", path, "-o", "from-flag.lua", "-vv", "--quiet-period", "1s"))
	require.NoError(t, err)

	assert.Equal(t, "source", cfg.Root)
	assert.Equal(t, "catch2", cfg.TestDep)
	assert.Equal(t, "with-sources", cfg.TestSelfDep)
	assert.Equal(t, "from-flag.lua", cfg.Output)
	assert.Equal(t, 2, cfg.VerboseCnt)
	assert.Equal(t, time.Second, cfg.QuietPeriod)

	opts := cfg.Pipeline("test")
	assert.Equal(t, "source", opts.Root)
	assert.Equal(t, units.SelfDepWithSources, opts.Units.SelfDep)
	assert.Equal(t, "catch2", opts.Units.TestDependency)
	assert.Equal(t, "linux-gcc-*", opts.Rules.Variants[1].Config)
	assert.Equal(t, "win64-*-*", opts.Rules.Variants[0].Config)
}

func TestLoadDefaultFileFromWorkspace(t *testing.T) {
	ws := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(ws, DefaultFile), []byte(`
output = "from-workspace.lua"
test-dep = "gtest"
`), 0o644))

	cfg, err := Load(flags(t, "-C", ws))
	require.NoError(t, err)
	assert.Equal(t, ws, cfg.Workspace)
	assert.Equal(t, "from-workspace.lua", cfg.Output)
	assert.Equal(t, "gtest", cfg.TestDep)

	t.Setenv("UNITGEN_WORKSPACE", ws)
	cfg, err = Load(flags(t))
	require.NoError(t, err)
	assert.Equal(t, "gtest", cfg.TestDep)

	cfg, err = Load(flags(t, "-C", t.TempDir()))
	require.NoError(t, err, "the default file is optional")
	assert.Equal(t, "test", cfg.TestDep)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"self dep policy", []string{"--test-self-dep", "never"}, "TestSelfDep"},
		{"entry with directory", []string{"--entry", "app/main.cc"}, "Entry"},
		{"empty root", []string{"--root", ""}, "Root"},
		{"verbosity", []string{"--verbosity", "loud"}, "Verbosity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(flags(t, tt.args...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
