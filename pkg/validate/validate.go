package validate

import (
	"fmt"
	"strings"

	"github.com/ritzau/unitgen/pkg/implicit"
	"github.com/ritzau/unitgen/pkg/logging"
	"github.com/ritzau/unitgen/pkg/model"
)

// CycleError reports a dependency path that revisits one of its own identities
type CycleError struct {
	Package string   // Package whose traversal found the cycle
	Path    []string // Full path, ending with the repeated identity
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("package %s has circular dependency %s", e.Package, strings.Join(e.Path, " -> "))
}

// UnresolvedDependencyError reports an identity that is neither a package
// nor an implicit unit
type UnresolvedDependencyError struct {
	Dependency string
	Package    string // Package whose deps list names Dependency
	Root       string // Package the traversal started from
}

func (e *UnresolvedDependencyError) Error() string {
	if e.Root != "" && e.Root != e.Package {
		return fmt.Sprintf("unresolved dependency %q of package %s (reached from %s)", e.Dependency, e.Package, e.Root)
	}
	return fmt.Sprintf("unresolved dependency %q of package %s", e.Dependency, e.Package)
}

// Check walks every package's dependencies depth first and returns the
// first cycle or unresolved identity found.
//
// The walk carries its path instead of a visited set, so shared
// sub-dependencies are walked once per path. Trees are small enough for
// this to stay cheap.
func Check(tree *model.Tree, table *implicit.Table) error {
	if table == nil {
		table = implicit.Empty()
	}
	v := &validator{tree: tree, table: table}

	for _, pkg := range tree.Packages {
		if err := v.walk(pkg.Name, pkg, []string{pkg.Name}); err != nil {
			return err
		}
	}

	logging.Debug("dependency graph is valid", "packages", len(tree.Packages))
	return nil
}

type validator struct {
	tree  *model.Tree
	table *implicit.Table
}

func (v *validator) walk(root string, pkg *model.Package, path []string) error {
	for _, dep := range pkg.Deps {
		next := append(path[:len(path):len(path)], dep)

		if contains(path, dep) {
			return &CycleError{Package: root, Path: next}
		}

		child, ok := v.tree.Lookup(dep)
		if !ok {
			if v.table.IsUnit(dep) {
				continue
			}
			return &UnresolvedDependencyError{Dependency: dep, Package: pkg.Name, Root: root}
		}

		if err := v.walk(root, child, next); err != nil {
			return err
		}
	}
	return nil
}

func contains(path []string, id string) bool {
	for _, p := range path {
		if p == id {
			return true
		}
	}
	return false
}
