package deps

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/ritzau/unitgen/pkg/implicit"
	"github.com/ritzau/unitgen/pkg/includes"
	"github.com/ritzau/unitgen/pkg/logging"
	"github.com/ritzau/unitgen/pkg/model"
)

// DefaultPrefix marks a quoted include as a reference into a sibling package
const DefaultPrefix = "../"

// UnknownPackageWarning is reported for a quoted include that uses the
// package prefix but names no scanned package. The reference is ignored.
type UnknownPackageWarning struct {
	Package string // The unresolved path segment
	Include string
	File    string
	Line    int
}

func (w UnknownPackageWarning) String() string {
	return fmt.Sprintf("%s:%d: unknown package dependency %q in %q", w.File, w.Line, w.Package, w.Include)
}

// Result is the output of the extraction stage
type Result struct {
	// Tree holds copies of the scanned packages with Deps filled in
	Tree *model.Tree

	// References lists every classified include per package, in scan order
	References map[string][]model.Dependency

	Warnings []UnknownPackageWarning
}

// Extractor classifies include directives of every package file
type Extractor struct {
	fsys   fs.FS
	table  *implicit.Table
	prefix string
}

// NewExtractor creates an extractor reading files from fsys
func NewExtractor(fsys fs.FS, table *implicit.Table, prefix string) *Extractor {
	if table == nil {
		table = implicit.Empty()
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Extractor{fsys: fsys, table: table, prefix: prefix}
}

// Extract reads headers, sources, variant files and the entry point of each
// package. Test files are not scanned. Any read error aborts extraction.
func (e *Extractor) Extract(ctx context.Context, tree *model.Tree) (*Result, error) {
	logger := logging.New("extractor")

	result := &Result{
		References: make(map[string][]model.Dependency, len(tree.Packages)),
	}

	packages := make([]*model.Package, 0, len(tree.Packages))
	for _, src := range tree.Packages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pkg := src.Clone()
		seen := make(map[string]bool)
		pkg.Deps = nil

		variantOf := make(map[string]int)
		for i, v := range pkg.Variants {
			pkg.Variants[i].Deps = nil
			for _, f := range v.Files {
				variantOf[f] = i
			}
		}

		for _, file := range pkg.Scanned() {
			refs, warnings, err := e.ExtractFile(tree, file)
			if err != nil {
				return nil, err
			}
			for _, w := range warnings {
				logging.WarnContext(ctx, "unknown package dependency", "component", "extractor",
					"package", w.Package, "file", w.File, "line", w.Line)
			}
			result.Warnings = append(result.Warnings, warnings...)
			result.References[pkg.Name] = append(result.References[pkg.Name], refs...)

			for _, ref := range refs {
				if !ref.Resolved() {
					continue
				}
				if !seen[ref.Name] {
					seen[ref.Name] = true
					pkg.Deps = append(pkg.Deps, ref.Name)
				}
				if i, ok := variantOf[file]; ok {
					pkg.Variants[i].Deps = appendUnique(pkg.Variants[i].Deps, ref.Name)
				}
			}
		}

		// Sort once, after every file of the package has been read
		sort.Strings(pkg.Deps)
		for i := range pkg.Variants {
			sort.Strings(pkg.Variants[i].Deps)
		}

		logging.Trace("extracted package dependencies", "package", pkg.Name, "deps", pkg.Deps)
		packages = append(packages, pkg)
	}

	result.Tree = model.NewTree(tree.Root, packages)
	logger.Info("extraction complete", "packages", len(packages), "warnings", len(result.Warnings))
	return result, nil
}

// ExtractFile classifies the include directives of a single file
func (e *Extractor) ExtractFile(tree *model.Tree, file string) ([]model.Dependency, []UnknownPackageWarning, error) {
	f, err := e.fsys.Open(file)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", file, err)
	}
	defer func() { _ = f.Close() }()

	directives, err := includes.Scan(f)
	if err != nil {
		return nil, nil, fmt.Errorf("scanning %s: %w", file, err)
	}

	var refs []model.Dependency
	var warnings []UnknownPackageWarning
	for _, d := range directives {
		classified, warning := e.Classify(tree, file, d)
		if warning != nil {
			warnings = append(warnings, *warning)
		}
		refs = append(refs, classified...)
	}
	return refs, warnings, nil
}

// Classify resolves one directive. An angled include may imply several
// implicit units, so a slice is returned.
func (e *Extractor) Classify(tree *model.Tree, file string, d includes.Directive) ([]model.Dependency, *UnknownPackageWarning) {
	base := model.Dependency{
		Kind:    model.DependencyOpaque,
		Include: d.Path,
		File:    file,
		Line:    d.Line,
	}

	switch d.Kind {
	case includes.Quoted:
		segment, ok := e.packageSegment(d.Path)
		if !ok {
			return []model.Dependency{base}, nil
		}
		if !tree.Has(segment) {
			return []model.Dependency{base}, &UnknownPackageWarning{
				Package: segment,
				Include: d.Path,
				File:    file,
				Line:    d.Line,
			}
		}
		base.Kind = model.DependencyPackage
		base.Name = segment
		return []model.Dependency{base}, nil

	case includes.Angled:
		units := e.table.Lookup(d.Path)
		if len(units) == 0 {
			return []model.Dependency{base}, nil
		}
		refs := make([]model.Dependency, len(units))
		for i, unit := range units {
			ref := base
			ref.Kind = model.DependencyImplicit
			ref.Name = unit
			ref.Config = e.table.Config(unit)
			refs[i] = ref
		}
		return refs, nil
	}

	return []model.Dependency{base}, nil
}

// packageSegment returns "pkg" for "../pkg/file.hh". A prefixed path
// without a further separator names no package. "..//file.hh" yields the
// empty segment, which is then reported as an unknown package.
func (e *Extractor) packageSegment(include string) (string, bool) {
	if !strings.HasPrefix(include, e.prefix) {
		return "", false
	}
	rest := include[len(e.prefix):]
	end := strings.IndexByte(rest, '/')
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

func appendUnique(list []string, s string) []string {
	for _, x := range list {
		if x == s {
			return list
		}
	}
	return append(list, s)
}
