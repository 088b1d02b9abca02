package scanner

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/ritzau/unitgen/pkg/logging"
	"github.com/ritzau/unitgen/pkg/model"
)

// Role is what a file contributes to its package
type Role int

const (
	RoleIgnored Role = iota
	RoleEntryPoint
	RoleTest
	RoleVariant
	RoleSource
	RoleHeader
)

func (r Role) String() string {
	switch r {
	case RoleEntryPoint:
		return "entry"
	case RoleTest:
		return "test"
	case RoleVariant:
		return "variant"
	case RoleSource:
		return "source"
	case RoleHeader:
		return "header"
	default:
		return "ignored"
	}
}

// VariantRule maps a filename suffix to a tundra config selector
type VariantRule struct {
	Tag    string
	Config string
}

// Rules are the filename conventions. Matching is case sensitive and is
// done on the base name before the extension.
type Rules struct {
	EntryPoint string // Exact file name, e.g. "main.cc"
	TestTag    string
	Variants   []VariantRule
	SourceExts []string
	HeaderExts []string
}

// DefaultRules returns the conventions used by the game source tree
func DefaultRules() Rules {
	return Rules{
		EntryPoint: "main.cc",
		TestTag:    "test",
		Variants: []VariantRule{
			{Tag: "windows", Config: "win64-*-*"},
			{Tag: "linux", Config: "linux-*-*"},
		},
		SourceExts: []string{".c", ".cc"},
		HeaderExts: []string{".h", ".hh"},
	}
}

// Classify returns the role of a file name. For RoleVariant the variant tag
// is returned as well.
func (r Rules) Classify(name string) (Role, string) {
	if name == r.EntryPoint {
		return RoleEntryPoint, ""
	}

	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)

	if contains(r.SourceExts, ext) {
		if r.TestTag != "" && strings.HasSuffix(base, "_"+r.TestTag) {
			return RoleTest, ""
		}
		for _, v := range r.Variants {
			if strings.HasSuffix(base, "_"+v.Tag) {
				return RoleVariant, v.Tag
			}
		}
		return RoleSource, ""
	}

	if contains(r.HeaderExts, ext) {
		return RoleHeader, ""
	}

	return RoleIgnored, ""
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// Scan creates one package per immediate subdirectory of root. Paths are
// slash separated and relative to fsys, so they can be emitted verbatim.
func Scan(fsys fs.FS, root string, rules Rules) (*model.Tree, error) {
	logger := logging.New("scanner")

	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("reading source root %s: %w", root, err)
	}

	var packages []*model.Package
	for _, entry := range entries {
		pkgPath := path.Join(root, entry.Name())

		isDir, err := isDirectory(fsys, pkgPath, entry)
		if err != nil {
			return nil, err
		}
		if !isDir {
			continue
		}

		pkg, err := scanPackage(fsys, entry.Name(), pkgPath, rules)
		if err != nil {
			return nil, err
		}

		logger.Debug("scanned package", "package", pkg.Name,
			"sources", len(pkg.Sources), "headers", len(pkg.Headers), "tests", len(pkg.Tests))
		packages = append(packages, pkg)
	}

	logger.Info("scan complete", "root", root, "packages", len(packages))
	return model.NewTree(root, packages), nil
}

func scanPackage(fsys fs.FS, name, pkgPath string, rules Rules) (*model.Package, error) {
	pkg := &model.Package{
		Name:     name,
		Path:     pkgPath,
		Variants: make([]model.Variant, len(rules.Variants)),
	}
	for i, v := range rules.Variants {
		pkg.Variants[i] = model.Variant{Tag: v.Tag, Config: v.Config}
	}

	files, err := fs.ReadDir(fsys, pkgPath)
	if err != nil {
		return nil, fmt.Errorf("reading package %s: %w", name, err)
	}

	for _, f := range files {
		if f.IsDir() {
			continue
		}

		file := path.Join(pkgPath, f.Name())
		role, tag := rules.Classify(f.Name())
		switch role {
		case RoleEntryPoint:
			pkg.Main = file
		case RoleTest:
			pkg.Tests = append(pkg.Tests, file)
		case RoleVariant:
			for i := range pkg.Variants {
				if pkg.Variants[i].Tag == tag {
					pkg.Variants[i].Files = append(pkg.Variants[i].Files, file)
				}
			}
		case RoleSource:
			pkg.Sources = append(pkg.Sources, file)
		case RoleHeader:
			pkg.Headers = append(pkg.Headers, file)
		}
	}

	return pkg, nil
}

// isDirectory follows symlinked package directories
func isDirectory(fsys fs.FS, name string, entry fs.DirEntry) (bool, error) {
	if entry.IsDir() {
		return true, nil
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false, nil
	}
	info, err := fs.Stat(fsys, name)
	if err != nil {
		// Dangling links are not packages
		return false, nil
	}
	return info.IsDir(), nil
}
