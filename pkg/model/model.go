package model

import (
	"sort"

	"github.com/ritzau/unitgen/pkg/lua"
)

// ConfigFilter wraps a value with a build configuration selector
type ConfigFilter = lua.ConfigFilter

// Variant is a platform-specific slice of a package
type Variant struct {
	Tag    string   `json:"tag"`    // Filename suffix, e.g. "windows"
	Config string   `json:"config"` // Tundra selector, e.g. "win64-*-*"
	Files  []string `json:"files,omitempty"`
	Deps   []string `json:"deps,omitempty"` // Dependencies found in Files only
}

// Package is one directory below the source root
type Package struct {
	Name     string    `json:"name"` // Directory name, unique within a Tree
	Path     string    `json:"path"` // e.g. "src/math"
	Main     string    `json:"main,omitempty"`
	Headers  []string  `json:"headers,omitempty"`
	Sources  []string  `json:"sources,omitempty"`
	Tests    []string  `json:"tests,omitempty"`
	Variants []Variant `json:"variants,omitempty"`

	// Deps is the sorted, duplicate free list of direct dependencies. Each
	// entry names another package or an implicit unit.
	Deps []string `json:"deps,omitempty"`
}

// VariantSources returns the variant files wrapped in their config filters
func (p *Package) VariantSources() []Entry {
	var entries []Entry
	for _, v := range p.Variants {
		for _, f := range v.Files {
			entries = append(entries, Entry{Value: f, Config: v.Config})
		}
	}
	return entries
}

// Scanned returns the files the dependency extractor reads, in scan order:
// headers, sources, variants and finally the entry point
func (p *Package) Scanned() []string {
	files := make([]string, 0, len(p.Headers)+len(p.Sources)+1)
	files = append(files, p.Headers...)
	files = append(files, p.Sources...)
	for _, v := range p.Variants {
		files = append(files, v.Files...)
	}
	if p.Main != "" {
		files = append(files, p.Main)
	}
	return files
}

// Clone returns a deep copy so later stages never share slices with earlier ones
func (p *Package) Clone() *Package {
	c := *p
	c.Headers = append([]string(nil), p.Headers...)
	c.Sources = append([]string(nil), p.Sources...)
	c.Tests = append([]string(nil), p.Tests...)
	c.Deps = append([]string(nil), p.Deps...)
	c.Variants = make([]Variant, len(p.Variants))
	for i, v := range p.Variants {
		v.Files = append([]string(nil), v.Files...)
		v.Deps = append([]string(nil), v.Deps...)
		c.Variants[i] = v
	}
	return &c
}

// Tree is the ordered set of packages found below a root directory
type Tree struct {
	Root     string
	Packages []*Package

	byName map[string]*Package
}

// NewTree indexes packages by name. Packages are ordered by name so that
// iteration never depends on directory enumeration order.
func NewTree(root string, packages []*Package) *Tree {
	sorted := append([]*Package(nil), packages...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	t := &Tree{
		Root:     root,
		Packages: sorted,
		byName:   make(map[string]*Package, len(sorted)),
	}
	for _, p := range sorted {
		t.byName[p.Name] = p
	}
	return t
}

// Lookup returns the package with the given name
func (t *Tree) Lookup(name string) (*Package, bool) {
	p, ok := t.byName[name]
	return p, ok
}

// Has reports whether name is a package of the tree
func (t *Tree) Has(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// Names returns the package names in tree order
func (t *Tree) Names() []string {
	names := make([]string, len(t.Packages))
	for i, p := range t.Packages {
		names[i] = p.Name
	}
	return names
}

// DependencyKind classifies an include reference
type DependencyKind string

const (
	DependencyPackage  DependencyKind = "package"  // Intra-tree package
	DependencyImplicit DependencyKind = "implicit" // External unit from the implicit table
	DependencyOpaque   DependencyKind = "opaque"   // Anything else, ignored by the graph
)

// Dependency is a single classified include reference
type Dependency struct {
	Kind    DependencyKind `json:"kind"`
	Name    string         `json:"name,omitempty"`   // Package or unit identity
	Include string         `json:"include"`          // Literal path or name as written
	File    string         `json:"file"`             // File containing the directive
	Line    int            `json:"line"`             // 1-based line number
	Config  string         `json:"config,omitempty"` // Selector of a platform-gated implicit unit
}

// Resolved reports whether the reference names a graph node
func (d Dependency) Resolved() bool {
	return d.Kind == DependencyPackage || d.Kind == DependencyImplicit
}

// Entry is a list item of a build unit, optionally gated by a config selector
type Entry struct {
	Value  string
	Config string
}

// Filtered reports whether the entry only applies to some configurations
func (e Entry) Filtered() bool {
	return e.Config != ""
}

// MarshalLua renders plain entries as strings and filtered ones as config filters
func (e Entry) MarshalLua() (any, error) {
	if e.Filtered() {
		return ConfigFilter{Value: e.Value, Config: e.Config}, nil
	}
	return e.Value, nil
}

// Plain wraps identities as unfiltered entries
func Plain(values ...string) []Entry {
	entries := make([]Entry, len(values))
	for i, v := range values {
		entries[i] = Entry{Value: v}
	}
	return entries
}

// UnitKind is the tundra unit constructor
type UnitKind string

const (
	UnitProgram       UnitKind = "Program"
	UnitStaticLibrary UnitKind = "StaticLibrary"
)

// Unit is a build unit handed to tundra
type Unit struct {
	Kind    UnitKind
	Name    string
	Depends []Entry
	Sources []Entry
}

// MarshalLua renders the unit body, the kind is written by the caller
func (u Unit) MarshalLua() (any, error) {
	return lua.Table{
		{Key: "Name", Value: u.Name},
		{Key: "Depends", Value: u.Depends},
		{Key: "Sources", Value: u.Sources},
	}, nil
}
