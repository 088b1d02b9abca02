package flatten

import (
	"testing"

	"github.com/ritzau/unitgen/pkg/implicit"
	"github.com/ritzau/unitgen/pkg/model"
	"github.com/stretchr/testify/assert"
)

func tree(deps map[string][]string) *model.Tree {
	pkgs := make([]*model.Package, 0, len(deps))
	for name, d := range deps {
		pkgs = append(pkgs, &model.Package{Name: name, Deps: d})
	}
	return model.NewTree("src", pkgs)
}

func TestFlattenOrder(t *testing.T) {
	tests := []struct {
		name string
		deps map[string][]string
		want map[string][]string
	}{
		{
			name: "chain",
			deps: map[string][]string{"A": {"B"}, "B": {"C"}, "C": nil},
			want: map[string][]string{"A": {"B", "C"}, "B": {"C"}, "C": {}},
		},
		{
			name: "pre-order",
			deps: map[string][]string{
				"app":  {"game", "os"},
				"game": {"ecs", "math"},
				"ecs":  {"math"},
				"math": nil,
				"os":   {"math"},
			},
			want: map[string][]string{
				"app":  {"game", "ecs", "math", "os"},
				"game": {"ecs", "math"},
				"ecs":  {"math"},
				"math": {},
				"os":   {"math"},
			},
		},
		{
			name: "implicit leaves",
			deps: map[string][]string{"A": {"B", "sdl2"}, "B": {"opengl"}},
			want: map[string][]string{"A": {"B", "opengl", "sdl2"}, "B": {"opengl"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			closure := Flatten(tree(tt.deps), nil)
			for pkg, want := range tt.want {
				assert.Equal(t, want, closure.Names(pkg), pkg)
			}
		})
	}
}

func TestFlattenIsDuplicateFreeSuperset(t *testing.T) {
	tr := tree(map[string][]string{
		"A": {"B", "C", "D"},
		"B": {"C", "D"},
		"C": {"D"},
		"D": nil,
	})

	closure := Flatten(tr, nil)
	for _, pkg := range tr.Packages {
		names := closure.Names(pkg.Name)
		assert.Subset(t, names, pkg.Deps, pkg.Name)

		seen := map[string]bool{}
		for _, n := range names {
			assert.False(t, seen[n], "duplicate %s in %s", n, pkg.Name)
			seen[n] = true
		}
	}
}

func TestFlattenWrapsGatedUnits(t *testing.T) {
	table := implicit.New(
		map[string][]string{"GL/gl.h": {"opengl"}, "SDL2/SDL.h": {"sdl2"}},
		map[string]implicit.Unit{"opengl": {Config: "win64-*-*"}},
	)
	tr := tree(map[string][]string{"A": {"B", "sdl2"}, "B": {"C"}, "C": {"opengl"}})

	closure := Flatten(tr, table)
	assert.Equal(t, []model.Entry{
		{Value: "B"},
		{Value: "C"},
		{Value: "opengl", Config: "win64-*-*"},
		{Value: "sdl2"},
	}, closure["A"])
}

func TestFlattenLeavesDepsUntouched(t *testing.T) {
	tr := tree(map[string][]string{"A": {"B"}, "B": {"C"}, "C": nil})
	_ = Flatten(tr, nil)

	a, _ := tr.Lookup("A")
	assert.Equal(t, []string{"B"}, a.Deps)
}
