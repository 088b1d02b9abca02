package units

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/ritzau/unitgen/pkg/flatten"
	"github.com/ritzau/unitgen/pkg/lua"
	"github.com/ritzau/unitgen/pkg/model"
)

// Header opens every generated file
const Header = "-- Generated by unitgen. DO NOT EDIT!"

// DefaultTestDependency is the test framework unit every test program links
const DefaultTestDependency = "test"

// SelfDepPolicy decides when a test program depends on its host package
type SelfDepPolicy string

const (
	// SelfDepAlways always adds the host package, even when it emits no unit
	SelfDepAlways SelfDepPolicy = "always"

	// SelfDepWithSources adds the host only when it emits a unit of its own
	SelfDepWithSources SelfDepPolicy = "with-sources"
)

// Options control unit emission
type Options struct {
	TestDependency string
	SelfDep        SelfDepPolicy
}

func (o Options) withDefaults() Options {
	if o.TestDependency == "" {
		o.TestDependency = DefaultTestDependency
	}
	if o.SelfDep == "" {
		o.SelfDep = SelfDepAlways
	}
	return o
}

// Emit builds the units of every package in tree order. A package with an
// entry point becomes a Program, one with sources a StaticLibrary. Each
// test file becomes its own Program.
func Emit(tree *model.Tree, closure flatten.Closure, opts Options) []model.Unit {
	opts = opts.withDefaults()

	var out []model.Unit
	for _, pkg := range tree.Packages {
		deps := closure[pkg.Name]

		sources := append(model.Plain(pkg.Sources...), pkg.VariantSources()...)

		hasUnit := true
		switch {
		case pkg.Main != "":
			out = append(out, model.Unit{
				Kind:    model.UnitProgram,
				Name:    pkg.Name,
				Depends: copyEntries(deps),
				Sources: append(sources, model.Entry{Value: pkg.Main}),
			})
		case len(sources) > 0:
			out = append(out, model.Unit{
				Kind:    model.UnitStaticLibrary,
				Name:    pkg.Name,
				Depends: copyEntries(deps),
				Sources: sources,
			})
		default:
			hasUnit = false
		}

		for _, test := range pkg.Tests {
			depends := copyEntries(deps)
			if hasUnit || opts.SelfDep == SelfDepAlways {
				depends = appendEntry(depends, pkg.Name)
			}
			depends = appendEntry(depends, opts.TestDependency)

			out = append(out, model.Unit{
				Kind:    model.UnitProgram,
				Name:    TestUnitName(pkg.Name, test),
				Depends: depends,
				Sources: model.Plain(test),
			})
		}
	}
	return out
}

// TestUnitName derives "math_vec3_test" from package "math" and file
// "src/math/vec3_test.cc"
func TestUnitName(pkg, file string) string {
	base := path.Base(file)
	return pkg + "_" + strings.TrimSuffix(base, path.Ext(base))
}

// Render serializes units into the orchestrator's unit file
func Render(units []model.Unit) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("\n" + Header + "\n\n")

	for _, u := range units {
		body, err := lua.Marshal(u)
		if err != nil {
			return nil, fmt.Errorf("rendering unit %s: %w", u.Name, err)
		}
		buf.WriteString(string(u.Kind))
		buf.WriteByte(' ')
		buf.Write(body)
		buf.WriteString("\n\n")
	}
	return buf.Bytes(), nil
}

// Count returns the number of units of each kind
func Count(units []model.Unit) map[model.UnitKind]int {
	counts := make(map[model.UnitKind]int)
	for _, u := range units {
		counts[u.Kind]++
	}
	return counts
}

func copyEntries(entries []model.Entry) []model.Entry {
	return append(make([]model.Entry, 0, len(entries)+2), entries...)
}

// appendEntry adds a plain entry unless the identity is already listed
func appendEntry(entries []model.Entry, name string) []model.Entry {
	for _, e := range entries {
		if e.Value == name {
			return entries
		}
	}
	return append(entries, model.Entry{Value: name})
}
