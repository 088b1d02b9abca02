package tundra

import (
	"context"
	"regexp"
	"strings"

	"github.com/ritzau/unitgen/pkg/logging"
)

var targetLine = regexp.MustCompile(` - ([a-z0-9_-]+)`)

// Targets are the units the orchestrator knows about
type Targets struct {
	Units     []string // Every unit, in listing order
	Commands  []string // Runnable programs that are not tests
	Tests     []string // Units named *_test
	Libraries []string // Units named lib*
}

// ParseTargets extracts unit names from "tundra2 -t" output
func ParseTargets(output []byte) Targets {
	var t Targets
	for _, m := range targetLine.FindAllSubmatch(output, -1) {
		unit := string(m[1])
		switch {
		case strings.HasSuffix(unit, "_test"):
			t.Tests = append(t.Tests, unit)
		case strings.HasPrefix(unit, "lib"):
			t.Libraries = append(t.Libraries, unit)
		default:
			t.Commands = append(t.Commands, unit)
		}
		t.Units = append(t.Units, unit)
	}
	return t
}

// ListTargets asks the orchestrator in dir for its units
func ListTargets(ctx context.Context, e Executor, dir string) (Targets, error) {
	out, err := e.ListTargets(ctx, dir)
	if err != nil {
		return Targets{}, err
	}
	t := ParseTargets(out)
	logging.DebugContext(ctx, "listed tundra targets",
		"units", len(t.Units), "tests", len(t.Tests), "commands", len(t.Commands))
	return t, nil
}
