package graph

import (
	"sort"

	"github.com/ritzau/unitgen/pkg/implicit"
	"github.com/ritzau/unitgen/pkg/model"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Node is a package or implicit unit in the dependency graph
type Node struct {
	id   int64
	Name string
	Kind model.DependencyKind // Opaque marks an identity nothing defines
}

// ID implements graph.Node
func (n *Node) ID() int64 { return n.id }

// DOTID implements dot.Node
func (n *Node) DOTID() string { return n.Name }

// Attributes implements encoding.Attributer
func (n *Node) Attributes() []encoding.Attribute {
	switch n.Kind {
	case model.DependencyImplicit:
		return []encoding.Attribute{{Key: "shape", Value: "box"}}
	case model.DependencyOpaque:
		return []encoding.Attribute{{Key: "style", Value: "dashed"}}
	}
	return nil
}

// PackageGraph is the package level dependency graph
type PackageGraph struct {
	graph     *simple.DirectedGraph
	nodes     map[string]*Node
	selfLoops map[string]bool
	nextID    int64
}

// NewPackageGraph creates an empty graph
func NewPackageGraph() *PackageGraph {
	return &PackageGraph{
		graph:     simple.NewDirectedGraph(),
		nodes:     make(map[string]*Node),
		selfLoops: make(map[string]bool),
	}
}

// Build creates the graph of a tree with extracted dependencies. Node IDs
// follow tree order, so rendering is stable.
func Build(tree *model.Tree, table *implicit.Table) *PackageGraph {
	if table == nil {
		table = implicit.Empty()
	}
	pg := NewPackageGraph()

	for _, pkg := range tree.Packages {
		pg.AddNode(pkg.Name, model.DependencyPackage)
	}
	for _, pkg := range tree.Packages {
		for _, dep := range pkg.Deps {
			if _, ok := pg.nodes[dep]; !ok {
				kind := model.DependencyOpaque
				if table.IsUnit(dep) {
					kind = model.DependencyImplicit
				}
				pg.AddNode(dep, kind)
			}
			pg.AddDependency(pkg.Name, dep)
		}
	}
	return pg
}

// AddNode adds an identity unless it is already present
func (pg *PackageGraph) AddNode(name string, kind model.DependencyKind) *Node {
	if n, ok := pg.nodes[name]; ok {
		return n
	}
	n := &Node{id: pg.nextID, Name: name, Kind: kind}
	pg.nextID++
	pg.nodes[name] = n
	pg.graph.AddNode(n)
	return n
}

// AddDependency adds an edge, creating package nodes as needed
func (pg *PackageGraph) AddDependency(from, to string) {
	f := pg.AddNode(from, model.DependencyPackage)
	t := pg.AddNode(to, model.DependencyPackage)

	// simple graphs reject self edges
	if f == t {
		pg.selfLoops[from] = true
		return
	}
	if !pg.graph.HasEdgeFromTo(f.ID(), t.ID()) {
		pg.graph.SetEdge(simple.Edge{F: f, T: t})
	}
}

// Node returns the node of an identity
func (pg *PackageGraph) Node(name string) (*Node, bool) {
	n, ok := pg.nodes[name]
	return n, ok
}

// Nodes returns all nodes in ID order
func (pg *PackageGraph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(pg.nodes))
	for _, n := range pg.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].id < nodes[j].id })
	return nodes
}

// Dependencies returns the sorted direct dependencies of an identity
func (pg *PackageGraph) Dependencies(name string) []string {
	n, ok := pg.nodes[name]
	if !ok {
		return nil
	}

	var deps []string
	if pg.selfLoops[name] {
		deps = append(deps, name)
	}
	iter := pg.graph.From(n.ID())
	for iter.Next() {
		deps = append(deps, iter.Node().(*Node).Name)
	}
	sort.Strings(deps)
	return deps
}

// Edges returns all edges as sorted [from, to] pairs
func (pg *PackageGraph) Edges() [][2]string {
	var edges [][2]string
	for name := range pg.selfLoops {
		edges = append(edges, [2]string{name, name})
	}
	iter := pg.graph.Edges()
	for iter.Next() {
		e := iter.Edge()
		edges = append(edges, [2]string{e.From().(*Node).Name, e.To().(*Node).Name})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	return edges
}

// Cycles returns every strongly connected component with more than one
// member, plus every self dependency. Members are sorted by name and the
// cycles by their first member.
func (pg *PackageGraph) Cycles() [][]string {
	var cycles [][]string
	for _, scc := range topo.TarjanSCC(pg.graph) {
		if len(scc) < 2 {
			continue
		}
		names := make([]string, len(scc))
		for i, n := range scc {
			names[i] = n.(*Node).Name
		}
		sort.Strings(names)
		cycles = append(cycles, names)
	}
	for name := range pg.selfLoops {
		cycles = append(cycles, []string{name})
	}
	sort.Slice(cycles, func(i, j int) bool {
		if cycles[i][0] != cycles[j][0] {
			return cycles[i][0] < cycles[j][0]
		}
		return len(cycles[i]) > len(cycles[j])
	})
	return cycles
}

// MarshalDOT renders the graph in Graphviz format. Self dependencies are
// not drawn, they are reported by Cycles.
func (pg *PackageGraph) MarshalDOT() ([]byte, error) {
	return dot.Marshal(pg.graph, "packages", "", "\t")
}
