package output

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/ritzau/unitgen/pkg/deps"
	"github.com/ritzau/unitgen/pkg/model"
	"github.com/ritzau/unitgen/pkg/pipeline"
	"github.com/ritzau/unitgen/pkg/tundra"
	"github.com/ritzau/unitgen/pkg/units"
	"github.com/ritzau/unitgen/pkg/validate"
)

var (
	bold   = color.New(color.Bold)
	red    = color.New(color.FgRed)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
)

// PrintRunReport summarizes a generator run
func PrintRunReport(w io.Writer, res *pipeline.Result) {
	counts := units.Count(res.Units)

	fmt.Fprintf(w, "Packages: %d\n", len(res.Tree.Packages))
	fmt.Fprintf(w, "Units: %d (%d programs, %d static libraries)\n",
		len(res.Units), counts[model.UnitProgram], counts[model.UnitStaticLibrary])

	printWarnings(w, res.Warnings)

	switch {
	case res.DryRun:
		cyan.Fprintf(w, "Dry run, %s not written\n", res.Output)
	case res.Written:
		green.Fprintf(w, "✓ Wrote %s in %s\n", res.Output, res.Elapsed.Round(100*time.Microsecond))
	case res.Output != "" && len(res.Text) > 0:
		cyan.Fprintf(w, "%s is up to date (%s)\n", res.Output, res.Elapsed.Round(100*time.Microsecond))
	}
}

// PrintCheckReport lists warnings and every dependency cycle of a tree
func PrintCheckReport(w io.Writer, a *pipeline.Analysis, cycles [][]string) {
	if a != nil {
		fmt.Fprintf(w, "Packages: %d\n", len(a.Tree.Packages))
		printPlatformDeps(w, a.Tree)
		printWarnings(w, a.Warnings)
	}

	if len(cycles) == 0 {
		if a != nil {
			green.Fprintln(w, "✓ No dependency cycles")
		}
		return
	}

	red.Fprintf(w, "DEPENDENCY CYCLES (%d):\n", len(cycles))
	for _, c := range cycles {
		if len(c) == 1 {
			yellow.Fprintf(w, "  %s depends on itself\n", c[0])
			continue
		}
		yellow.Fprintf(w, "  %s\n", strings.Join(c, ", "))
	}
}

// PrintError prints a single line describing a failed run
func PrintError(w io.Writer, err error) {
	var cycle *validate.CycleError
	var unresolved *validate.UnresolvedDependencyError

	switch {
	case errors.As(err, &cycle):
		red.Fprint(w, "Error: ")
		fmt.Fprintf(w, "package %s has circular dependency ", cycle.Package)
		bold.Fprintln(w, strings.Join(cycle.Path, " -> "))
	case errors.As(err, &unresolved):
		red.Fprint(w, "Error: ")
		fmt.Fprintln(w, unresolved.Error())
		cyan.Fprintf(w, "  Add package %s or map it in the implicit unit table\n", unresolved.Dependency)
	default:
		red.Fprint(w, "Error: ")
		fmt.Fprintln(w, err)
	}
}

// PrintTargets lists orchestrator units by category
func PrintTargets(w io.Writer, t tundra.Targets) {
	section := func(title string, names []string) {
		bold.Fprintf(w, "%s (%d)\n", title, len(names))
		for _, n := range names {
			fmt.Fprintf(w, "  %s\n", n)
		}
	}
	section("Commands", t.Commands)
	section("Libraries", t.Libraries)
	section("Tests", t.Tests)
}

// printPlatformDeps lists dependencies reached from platform variant files,
// which only apply under the variant's config selector
func printPlatformDeps(w io.Writer, tree *model.Tree) {
	var lines []string
	for _, pkg := range tree.Packages {
		for _, v := range pkg.Variants {
			if len(v.Deps) > 0 {
				lines = append(lines, fmt.Sprintf("  %s (%s, %s): %s",
					pkg.Name, v.Tag, v.Config, strings.Join(v.Deps, ", ")))
			}
		}
	}
	if len(lines) == 0 {
		return
	}
	bold.Fprintf(w, "Platform dependencies: %d\n", len(lines))
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}

func printWarnings(w io.Writer, warnings []deps.UnknownPackageWarning) {
	if len(warnings) == 0 {
		return
	}
	yellow.Fprintf(w, "Warnings: %d\n", len(warnings))
	for _, warn := range warnings {
		fmt.Fprintf(w, "  %s\n", warn)
	}
}
