package graph

import (
	"testing"

	"github.com/ritzau/unitgen/pkg/implicit"
	"github.com/ritzau/unitgen/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tree(deps map[string][]string) *model.Tree {
	pkgs := make([]*model.Package, 0, len(deps))
	for name, d := range deps {
		pkgs = append(pkgs, &model.Package{Name: name, Deps: d})
	}
	return model.NewTree("src", pkgs)
}

func TestBuild(t *testing.T) {
	table := implicit.New(map[string][]string{"GL/gl.h": {"opengl"}}, nil)
	pg := Build(tree(map[string][]string{
		"A": {"B", "opengl"},
		"B": {"C"},
		"C": {"ghost"},
	}), table)

	names := []string{}
	for _, n := range pg.Nodes() {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"A", "B", "C", "opengl", "ghost"}, names)

	gl, ok := pg.Node("opengl")
	require.True(t, ok)
	assert.Equal(t, model.DependencyImplicit, gl.Kind)

	ghost, _ := pg.Node("ghost")
	assert.Equal(t, model.DependencyOpaque, ghost.Kind)

	assert.Equal(t, []string{"B", "opengl"}, pg.Dependencies("A"))
	assert.Nil(t, pg.Dependencies("missing"))
	assert.Equal(t, [][2]string{{"A", "B"}, {"A", "opengl"}, {"B", "C"}, {"C", "ghost"}}, pg.Edges())
}

func TestAddDependencyIsIdempotent(t *testing.T) {
	pg := NewPackageGraph()
	pg.AddDependency("A", "B")
	pg.AddDependency("A", "B")

	assert.Len(t, pg.Nodes(), 2)
	assert.Len(t, pg.Edges(), 1)
}

func TestCycles(t *testing.T) {
	tests := []struct {
		name string
		deps map[string][]string
		want [][]string
	}{
		{
			name: "acyclic",
			deps: map[string][]string{"A": {"B"}, "B": {"C"}, "C": nil},
		},
		{
			name: "two",
			deps: map[string][]string{"A": {"B"}, "B": {"A"}},
			want: [][]string{{"A", "B"}},
		},
		{
			name: "self",
			deps: map[string][]string{"A": {"A"}},
			want: [][]string{{"A"}},
		},
		{
			name: "several",
			deps: map[string][]string{
				"A": {"B"}, "B": {"C"}, "C": {"A"},
				"D": {"E", "D"}, "E": {"D"},
			},
			want: [][]string{{"A", "B", "C"}, {"D", "E"}, {"D"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Build(tree(tt.deps), nil).Cycles())
		})
	}
}

func TestMarshalDOT(t *testing.T) {
	table := implicit.New(nil, map[string]implicit.Unit{"opengl": {Config: "win64-*-*"}})
	pg := Build(tree(map[string][]string{"A": {"B", "opengl"}, "B": nil}), table)

	out, err := pg.MarshalDOT()
	require.NoError(t, err)

	dot := string(out)
	assert.Contains(t, dot, "digraph packages {")
	assert.Contains(t, dot, "A -> B")
	assert.Contains(t, dot, "A -> opengl")
	assert.Contains(t, dot, "shape=box")

	again, err := pg.MarshalDOT()
	require.NoError(t, err)
	assert.Equal(t, out, again)
}
