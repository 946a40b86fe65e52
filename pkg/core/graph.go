package core

import "sort"

// Vertex identifies a transaction in a DirectedGraph. It wraps a pointer so
// that Vertex values stay comparable (and therefore usable as map keys) even
// though an Op carries a slice-valued Value field and is not itself
// comparable.
type Vertex struct {
	Value *Op
}

// Edge is an immutable view of one graph edge.
type Edge struct {
	From  Vertex
	To    Vertex
	Label Rel
}

// DirectedGraph is a multi-relational graph over transactions: every edge
// carries a Rel bit-set, so a single pair of vertices can be linked by
// several relations at once without creating parallel edges.
type DirectedGraph struct {
	Outs map[Vertex]map[Vertex]Rel
	Ins  map[Vertex]map[Vertex]struct{}

	order []Vertex
	index map[Vertex]int
}

// NewDirectedGraph returns an empty graph ready to be linked.
func NewDirectedGraph() *DirectedGraph {
	return &DirectedGraph{
		Outs:  map[Vertex]map[Vertex]Rel{},
		Ins:   map[Vertex]map[Vertex]struct{}{},
		index: map[Vertex]int{},
	}
}

func (g *DirectedGraph) touch(v Vertex) {
	if _, ok := g.index[v]; ok {
		return
	}
	g.index[v] = len(g.order)
	g.order = append(g.order, v)
	if g.Outs[v] == nil {
		g.Outs[v] = map[Vertex]Rel{}
	}
	if g.Ins[v] == nil {
		g.Ins[v] = map[Vertex]struct{}{}
	}
}

// Vertices returns every vertex in the graph, in first-touched order. This
// ordering is what makes the cycle search in package search deterministic.
func (g *DirectedGraph) Vertices() []Vertex {
	out := make([]Vertex, len(g.order))
	copy(out, g.order)
	return out
}

// Order reports v's position in the graph's deterministic vertex ordering,
// or -1 if v isn't present.
func (g *DirectedGraph) Order(v Vertex) int {
	if i, ok := g.index[v]; ok {
		return i
	}
	return -1
}

// In returns the vertices with an edge into v, sorted by Order.
func (g *DirectedGraph) In(v Vertex) []Vertex {
	ins := g.Ins[v]
	out := make([]Vertex, 0, len(ins))
	for u := range ins {
		out = append(out, u)
	}
	g.sortByOrder(out)
	return out
}

// Out returns the vertices with an edge from v, sorted by Order.
func (g *DirectedGraph) Out(v Vertex) []Vertex {
	outs := g.Outs[v]
	out := make([]Vertex, 0, len(outs))
	for u := range outs {
		out = append(out, u)
	}
	g.sortByOrder(out)
	return out
}

func (g *DirectedGraph) sortByOrder(vs []Vertex) {
	sort.Slice(vs, func(i, j int) bool { return g.index[vs[i]] < g.index[vs[j]] })
}

// Edge returns the label on the edge a->b, and whether one exists.
func (g *DirectedGraph) Edge(a, b Vertex) (Rel, bool) {
	rel, ok := g.Outs[a][b]
	return rel, ok
}

// Link adds rel to the label of the edge from -> to, creating the edge (and
// either vertex) if necessary.
func (g *DirectedGraph) Link(from, to Vertex, rel Rel) {
	g.touch(from)
	g.touch(to)
	g.Outs[from][to] |= rel
	g.Ins[to][from] = struct{}{}
}

// LinkToAll links x to every vertex in ys.
func (g *DirectedGraph) LinkToAll(x Vertex, ys []Vertex, rel Rel) {
	for _, y := range ys {
		g.Link(x, y, rel)
	}
}

// LinkAllTo links every vertex in xs to y.
func (g *DirectedGraph) LinkAllTo(xs []Vertex, y Vertex, rel Rel) {
	for _, x := range xs {
		g.Link(x, y, rel)
	}
}

// LinkAllToAll links every x in xs to every y in ys, skipping x == y.
func (g *DirectedGraph) LinkAllToAll(xs, ys []Vertex, rel Rel) {
	for _, x := range xs {
		for _, y := range ys {
			if x == y {
				continue
			}
			g.Link(x, y, rel)
		}
	}
}

// Unlink removes any edge from a to b.
func (g *DirectedGraph) Unlink(a, b Vertex) {
	if outs, ok := g.Outs[a]; ok {
		delete(outs, b)
	}
	if ins, ok := g.Ins[b]; ok {
		delete(ins, a)
	}
}

// Fork deep-copies the graph so a caller can mutate the copy freely.
func (g *DirectedGraph) Fork() *DirectedGraph {
	out := NewDirectedGraph()
	for _, v := range g.order {
		out.touch(v)
	}
	for from, outs := range g.Outs {
		for to, rel := range outs {
			out.Link(from, to, rel)
		}
	}
	return out
}

// RemoveRelationship returns a graph with rel stripped from every edge
// label, dropping edges that become empty.
func (g *DirectedGraph) RemoveRelationship(rel Rel) *DirectedGraph {
	out := NewDirectedGraph()
	for _, v := range g.order {
		out.touch(v)
	}
	for from, outs := range g.Outs {
		for to, label := range outs {
			remaining := label &^ rel
			if remaining != Empty {
				out.Link(from, to, remaining)
			}
		}
	}
	return out
}

// Project returns the graph G|R: exactly the edges of g whose label is a
// SUBSET of R (not merely intersecting it: an edge labeled {ww, wr} is
// dropped from G|{ww}), over g's full vertex set.
func (g *DirectedGraph) Project(rel Rel) *DirectedGraph {
	out := NewDirectedGraph()
	for _, v := range g.order {
		out.touch(v)
	}
	for from, outs := range g.Outs {
		for to, label := range outs {
			if Subset(label, rel) {
				out.Link(from, to, label)
			}
		}
	}
	return out
}

// InducedSubgraph restricts g to the given vertex set: every edge whose
// endpoints are both in vertices survives, with its original label.
func (g *DirectedGraph) InducedSubgraph(vertices []Vertex) *DirectedGraph {
	keep := make(map[Vertex]struct{}, len(vertices))
	for _, v := range vertices {
		keep[v] = struct{}{}
	}
	out := NewDirectedGraph()
	for _, v := range vertices {
		out.touch(v)
	}
	for from, outs := range g.Outs {
		if _, ok := keep[from]; !ok {
			continue
		}
		for to, label := range outs {
			if _, ok := keep[to]; !ok {
				continue
			}
			out.Link(from, to, label)
		}
	}
	return out
}

// DigraphUnion merges any number of graphs, combining edge labels with
// bitwise OR where the same pair appears in more than one graph.
func DigraphUnion(graphs ...*DirectedGraph) *DirectedGraph {
	out := NewDirectedGraph()
	for _, g := range graphs {
		if g == nil {
			continue
		}
		for _, v := range g.order {
			out.touch(v)
		}
		for from, outs := range g.Outs {
			for to, label := range outs {
				out.Link(from, to, label)
			}
		}
	}
	return out
}

// SCC is the vertex set of one strongly connected component.
type SCC struct {
	Vertices []Vertex
}

// HasNontrivialCycle reports whether the component can possibly contain a
// cycle: either it has more than one vertex, or its single vertex has a
// self-loop. A lone self-loopless vertex is strongly connected to itself
// trivially and contributes no anomaly.
func (s SCC) HasNontrivialCycle(g *DirectedGraph) bool {
	if len(s.Vertices) > 1 {
		return true
	}
	if len(s.Vertices) == 1 {
		v := s.Vertices[0]
		_, ok := g.Outs[v][v]
		return ok
	}
	return false
}

// StronglyConnectedComponents runs Tarjan's algorithm over g, returning
// components in the deterministic order a DFS over g.Vertices() completes
// their roots: a component comes before every component that can reach it.
func (g *DirectedGraph) StronglyConnectedComponents() []SCC {
	t := &tarjan{
		g:       g,
		index:   map[Vertex]int{},
		lowlink: map[Vertex]int{},
		onStack: map[Vertex]bool{},
	}
	for _, v := range g.Vertices() {
		if _, visited := t.index[v]; !visited {
			t.strongConnect(v)
		}
	}
	return t.sccs
}

type tarjan struct {
	g       *DirectedGraph
	counter int
	index   map[Vertex]int
	lowlink map[Vertex]int
	onStack map[Vertex]bool
	stack   []Vertex
	sccs    []SCC
}

func (t *tarjan) strongConnect(v Vertex) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.g.Out(v) {
		if _, visited := t.index[w]; !visited {
			t.strongConnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.lowlink[v] {
				t.lowlink[v] = t.index[w]
			}
		}
	}

	if t.lowlink[v] == t.index[v] {
		var scc []Vertex
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		t.sccs = append(t.sccs, SCC{Vertices: scc})
	}
}
