package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/ritzau/unitgen/pkg/logging"
	"github.com/ritzau/unitgen/pkg/pipeline"
	"github.com/ritzau/unitgen/pkg/scanner"
	"github.com/ritzau/unitgen/pkg/units"
	"github.com/spf13/pflag"
)

// DefaultFile is read from the workspace when present. An explicit
// --config path is relative to the working directory.
const DefaultFile = "unitgen.toml"

// EnvPrefix selects environment overrides, e.g. UNITGEN_TEST_DEP=gtest
const EnvPrefix = "UNITGEN_"

// Config holds all configuration for the application
type Config struct {
	Workspace     string        `koanf:"workspace" validate:"required"`
	Root          string        `koanf:"root" validate:"required"`
	Output        string        `koanf:"output" validate:"required"`
	Implicit      string        `koanf:"implicit"`
	Entry         string        `koanf:"entry" validate:"required,excludesall=/"`
	Prefix        string        `koanf:"prefix" validate:"required"`
	TestDep       string        `koanf:"test-dep" validate:"required"`
	TestSelfDep   string        `koanf:"test-self-dep" validate:"oneof=always with-sources"`
	WindowsConfig string        `koanf:"windows-config" validate:"required"`
	LinuxConfig   string        `koanf:"linux-config" validate:"required"`
	Verbosity     string        `koanf:"verbosity" validate:"omitempty,oneof=trace debug info warn warning error"`
	VerboseCnt    int           `koanf:"verbose" validate:"gte=0"`
	LogJSON       bool          `koanf:"log-json"`
	DryRun        bool          `koanf:"dry-run"`
	QuietPeriod   time.Duration `koanf:"quiet-period" validate:"gt=0"`
}

var validate = validator.New()

// Defaults returns the lowest priority configuration layer
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"workspace":      ".",
		"root":           "src",
		"output":         "units-generated.lua",
		"implicit":       "scripts/implicit-units.json",
		"entry":          "main.cc",
		"prefix":         "../",
		"test-dep":       units.DefaultTestDependency,
		"test-self-dep":  string(units.SelfDepAlways),
		"windows-config": "win64-*-*",
		"linux-config":   "linux-*-*",
		"verbosity":      "",
		"verbose":        0,
		"log-json":       false,
		"dry-run":        false,
		"quiet-period":   300 * time.Millisecond,
	}
}

// RegisterFlags adds the persistent flags every command shares
func RegisterFlags(f *pflag.FlagSet) {
	d := Defaults()
	f.String("config", DefaultFile, "Configuration file")
	f.StringP("workspace", "C", d["workspace"].(string), "Workspace directory")
	f.String("root", d["root"].(string), "Source root, one package per subdirectory")
	f.StringP("output", "o", d["output"].(string), "Generated unit file")
	f.String("implicit", d["implicit"].(string), "Implicit unit table (json, yaml or toml)")
	f.String("entry", d["entry"].(string), "Entry point file name")
	f.String("prefix", d["prefix"].(string), "Include prefix of intra-tree references")
	f.String("test-dep", d["test-dep"].(string), "Unit every test program depends on")
	f.String("test-self-dep", d["test-self-dep"].(string), "When tests depend on their package: always or with-sources")
	f.String("windows-config", d["windows-config"].(string), "Config selector of *_windows files")
	f.String("linux-config", d["linux-config"].(string), "Config selector of *_linux files")
	f.String("verbosity", "", "Log level: trace, debug, info, warn or error")
	f.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	f.Bool("log-json", false, "Log in JSON format")
	f.Duration("quiet-period", d["quiet-period"].(time.Duration), "Watch mode debounce period")
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File, optional unless named explicitly. The default file
	// lives in the workspace, so -C and UNITGEN_WORKSPACE apply first.
	path, explicit := configPath(f)
	if !explicit {
		ws, err := workspace(f)
		if err != nil {
			return nil, err
		}
		path = filepath.Join(ws, DefaultFile)
	}
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// 3. Environment Variables and 4. Flags
	if err := loadOverrides(k, f); err != nil {
		return nil, err
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid configuration: %s fails %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// LogLevel resolves the verbosity settings
func (c *Config) LogLevel() (slog.Level, error) {
	return logging.ParseLevel(c.Verbosity, c.VerboseCnt)
}

// Rules returns the scanner rules for the configured conventions
func (c *Config) Rules() scanner.Rules {
	rules := scanner.DefaultRules()
	rules.EntryPoint = c.Entry
	for i := range rules.Variants {
		switch rules.Variants[i].Tag {
		case "windows":
			rules.Variants[i].Config = c.WindowsConfig
		case "linux":
			rules.Variants[i].Config = c.LinuxConfig
		}
	}
	return rules
}

// Pipeline returns the generator options
func (c *Config) Pipeline(reason string) pipeline.Options {
	return pipeline.Options{
		Workspace: c.Workspace,
		Root:      c.Root,
		Output:    c.Output,
		Implicit:  c.Implicit,
		Prefix:    c.Prefix,
		Rules:     c.Rules(),
		Units: units.Options{
			TestDependency: c.TestDep,
			SelfDep:        units.SelfDepPolicy(c.TestSelfDep),
		},
		DryRun: c.DryRun,
		Reason: reason,
	}
}

// loadOverrides layers environment variables and then flags onto k.
// Prefix: UNITGEN_ (e.g., UNITGEN_TEST_SELF_DEP=with-sources)
func loadOverrides(k *koanf.Koanf, f *pflag.FlagSet) error {
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", "-")
	}), nil); err != nil {
		return fmt.Errorf("failed to load env vars: %w", err)
	}

	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return fmt.Errorf("failed to load flags: %w", err)
		}
	}
	return nil
}

// workspace resolves the workspace from defaults, env and flags only.
// A workspace set in the config file cannot move the file itself.
func workspace(f *pflag.FlagSet) (string, error) {
	k := koanf.New(".")
	if err := k.Load(makeMapProvider(Defaults()), nil); err != nil {
		return "", fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := loadOverrides(k, f); err != nil {
		return "", err
	}
	return k.String("workspace"), nil
}

func configPath(f *pflag.FlagSet) (string, bool) {
	if f == nil {
		return DefaultFile, false
	}
	flag := f.Lookup("config")
	if flag == nil {
		return DefaultFile, false
	}
	return flag.Value.String(), flag.Changed
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
