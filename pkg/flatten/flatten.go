// Package flatten computes the transitive dependency list of each package.
// The orchestrator only propagates dependencies of a static library to its
// direct dependants, so every unit has to name its whole closure.
package flatten

import (
	"github.com/ritzau/unitgen/pkg/implicit"
	"github.com/ritzau/unitgen/pkg/model"
)

// Closure maps a package name to its flattened dependency entries
type Closure map[string][]model.Entry

// Names returns the identities of a package's closure without filters
func (c Closure) Names(pkg string) []string {
	entries := c[pkg]
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Value
	}
	return names
}

// Flatten computes the closure of every package of a validated tree. The
// tree must be acyclic.
func Flatten(tree *model.Tree, table *implicit.Table) Closure {
	if table == nil {
		table = implicit.Empty()
	}
	closure := make(Closure, len(tree.Packages))
	for _, pkg := range tree.Packages {
		closure[pkg.Name] = wrap(Package(tree, pkg), table)
	}
	return closure
}

// Package returns the depth first pre-order closure of pkg's sorted direct
// dependencies. Only packages are expanded, implicit units are leaves.
func Package(tree *model.Tree, pkg *model.Package) []string {
	var out []string
	seen := make(map[string]bool)

	var visit func(p *model.Package)
	visit = func(p *model.Package) {
		for _, dep := range p.Deps {
			if seen[dep] {
				// Already expanded, its subtree is in out
				continue
			}
			seen[dep] = true
			out = append(out, dep)
			if child, ok := tree.Lookup(dep); ok {
				visit(child)
			}
		}
	}
	visit(pkg)

	return out
}

// wrap gates platform specific implicit units. It runs after flattening so
// a unit found at any depth is gated the same way.
func wrap(names []string, table *implicit.Table) []model.Entry {
	entries := make([]model.Entry, len(names))
	for i, name := range names {
		entries[i] = model.Entry{Value: name, Config: table.Config(name)}
	}
	return entries
}
