package implicit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// keyDelim must not occur in include names such as "GL/gl.h"
const keyDelim = "|"

// Unit describes build constraints of an implicit unit
type Unit struct {
	Config string `koanf:"config" json:"config,omitempty"`
}

// Table maps external include names to the units they imply
type Table struct {
	headers map[string][]string
	units   map[string]Unit
	known   map[string]bool
}

// New builds a table from header mappings and unit constraints
func New(headers map[string][]string, units map[string]Unit) *Table {
	t := &Table{
		headers: make(map[string][]string, len(headers)),
		units:   make(map[string]Unit, len(units)),
		known:   make(map[string]bool),
	}
	for name, ids := range headers {
		t.headers[name] = append([]string(nil), ids...)
		for _, id := range ids {
			t.known[id] = true
		}
	}
	for id, u := range units {
		t.units[id] = u
		t.known[id] = true
	}
	return t
}

// Empty returns a table that resolves nothing
func Empty() *Table {
	return New(nil, nil)
}

// Lookup returns the units implied by an angle-bracketed include name
func (t *Table) Lookup(include string) []string {
	return t.headers[include]
}

// IsUnit reports whether id is a known implicit unit
func (t *Table) IsUnit(id string) bool {
	return t.known[id]
}

// Config returns the selector of a platform-gated unit, or ""
func (t *Table) Config(id string) string {
	return t.units[id].Config
}

// Units returns all known implicit unit identities, sorted
func (t *Table) Units() []string {
	ids := make([]string, 0, len(t.known))
	for id := range t.known {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of include names in the table
func (t *Table) Len() int {
	return len(t.headers)
}

type tableFile struct {
	Headers map[string]any  `koanf:"headers"`
	Units   map[string]Unit `koanf:"units"`
}

// Load reads a table from a JSON, YAML or TOML file. Header values may be a
// single unit name or a list of names.
func Load(path string) (*Table, error) {
	if path == "" {
		return Empty(), nil
	}

	parser, err := parserFor(path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("implicit unit table %s not found", path)
		}
		return nil, fmt.Errorf("stat implicit unit table: %w", err)
	}

	k := koanf.New(keyDelim)
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("loading implicit unit table %s: %w", path, err)
	}

	var tf tableFile
	if err := k.Unmarshal("", &tf); err != nil {
		return nil, fmt.Errorf("decoding implicit unit table %s: %w", path, err)
	}

	headers := make(map[string][]string, len(tf.Headers))
	for name, v := range tf.Headers {
		ids, err := unitNames(v)
		if err != nil {
			return nil, fmt.Errorf("implicit unit table %s: header %q: %w", path, name, err)
		}
		headers[name] = ids
	}

	return New(headers, tf.Units), nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return json.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".toml":
		return toml.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported implicit unit table format %q", filepath.Ext(path))
	}
}

func unitNames(v any) ([]string, error) {
	switch x := v.(type) {
	case string:
		return []string{x}, nil
	case []any:
		ids := make([]string, 0, len(x))
		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("unit name must be a string, got %T", item)
			}
			ids = append(ids, s)
		}
		return ids, nil
	case []string:
		return append([]string(nil), x...), nil
	default:
		return nil, fmt.Errorf("expected unit name or list of unit names, got %T", v)
	}
}
