package search

import (
	"context"

	"github.com/jepsen-go/elle-core/pkg/core"
)

func vertexSet(vertices []core.Vertex) map[core.Vertex]struct{} {
	set := make(map[core.Vertex]struct{}, len(vertices))
	for _, v := range vertices {
		set[v] = struct{}{}
	}
	return set
}

// circleOf builds a Circle from a closed vertex walk [v0, ..., vk, v0],
// labeling each step with the edge label g carries for that pair.
func circleOf(g *core.DirectedGraph, verts []core.Vertex) *core.Circle {
	steps := make([]core.Step, 0, len(verts)-1)
	for i := 0; i+1 < len(verts); i++ {
		label, _ := g.Edge(verts[i], verts[i+1])
		steps = append(steps, core.Step{From: verts[i], To: verts[i+1], Label: label})
	}
	return &core.Circle{Steps: steps}
}

// FindCycle returns one simple cycle of g, or nil if g is acyclic. The
// result is deterministic: vertices are tried in g's insertion order, and
// for each the cycle closes through its first out-neighbour (in vertex
// order) that can reach it, along a shortest return path (BFS over
// in-edges). That need not be the shortest cycle through the vertex.
// Worst case one BFS per vertex, so O(|V|·(|V|+|E|)).
func FindCycle(g *core.DirectedGraph) *core.Circle {
	vertices := g.Vertices()
	set := vertexSet(vertices)
	for _, v := range vertices {
		outs := g.Out(v)
		if len(outs) == 0 {
			continue
		}
		if _, ok := g.Edge(v, v); ok {
			return circleOf(g, []core.Vertex{v, v})
		}
		bfs := core.NewBFSPath(g, v, set)
		for _, w := range outs {
			if w == v {
				continue
			}
			if bfs.HasPathTo(w) {
				walk := append([]core.Vertex{v}, bfs.PathTo(w)...)
				return circleOf(g, walk)
			}
		}
	}
	return nil
}

// FindCycleStartingWith returns a cycle whose first edge is drawn from
// gFirst and whose remaining edges are drawn from gRest, or nil. Used for
// specs of the shape "exactly one edge of kind A, then only kinds B": the
// first edge v->w comes from gFirst, the return path w->...->v is a
// shortest path in gRest, which by construction contains no further A
// edges.
func FindCycleStartingWith(gFirst, gRest *core.DirectedGraph) *core.Circle {
	set := vertexSet(gRest.Vertices())
	for _, v := range gFirst.Vertices() {
		outs := gFirst.Out(v)
		if len(outs) == 0 {
			continue
		}
		bfs := core.NewBFSPath(gRest, v, set)
		for _, w := range outs {
			if w == v {
				continue
			}
			if !bfs.HasPathTo(w) {
				continue
			}
			firstLabel, _ := gFirst.Edge(v, w)
			rest := bfs.PathTo(w) // [w, ..., v]
			steps := []core.Step{{From: v, To: w, Label: firstLabel}}
			for i := 0; i+1 < len(rest); i++ {
				label, _ := gRest.Edge(rest[i], rest[i+1])
				steps = append(steps, core.Step{From: rest[i], To: rest[i+1], Label: label})
			}
			return &core.Circle{Steps: steps}
		}
	}
	return nil
}

// FindCycleWith is the general path-constrained search: a DFS over simple
// paths of g in which every extension must be accepted by transition, and a
// closed candidate must additionally pass transition.Close and the path
// predicate. Path predicates look at the whole label sequence, so unlike
// FindCycle this cannot memoize visited vertices across paths; the ctx is
// polled at every recursion so a caller-imposed deadline stays meaningful
// even on dense components. Returns ctx.Err() when cancelled mid-search.
func FindCycleWith(ctx context.Context, transition Transition, pred PathPredicate, g *core.DirectedGraph) (*core.Circle, error) {
	s := &pathSearch{ctx: ctx, g: g, transition: transition, pred: pred}
	for _, start := range g.Vertices() {
		onPath := map[core.Vertex]struct{}{start: {}}
		c, err := s.explore(start, start, transition.Init(), onPath, []core.Vertex{start}, nil)
		if c != nil || err != nil {
			return c, err
		}
	}
	return nil, nil
}

type pathSearch struct {
	ctx        context.Context
	g          *core.DirectedGraph
	transition Transition
	pred       PathPredicate
}

func (s *pathSearch) explore(start, cur core.Vertex, state TransitionState, onPath map[core.Vertex]struct{}, path []core.Vertex, labels []core.Rel) (*core.Circle, error) {
	if err := s.ctx.Err(); err != nil {
		return nil, err
	}
	for _, next := range s.g.Out(cur) {
		label, _ := s.g.Edge(cur, next)
		nextState, ok := s.transition.Step(state, label, len(labels) == 0)
		if !ok {
			continue
		}
		if next == start {
			closed := make([]core.Rel, 0, len(labels)+1)
			closed = append(closed, labels...)
			closed = append(closed, label)
			if s.transition.Close(nextState, closed[0]) && s.pred.Accept(closed) {
				walk := make([]core.Vertex, 0, len(path)+1)
				walk = append(walk, path...)
				walk = append(walk, next)
				return circleOf(s.g, walk), nil
			}
			continue
		}
		if _, seen := onPath[next]; seen {
			continue
		}
		onPath[next] = struct{}{}
		c, err := s.explore(start, next, nextState, onPath, append(path, next), append(labels, label))
		delete(onPath, next)
		if c != nil || err != nil {
			return c, err
		}
	}
	return nil, nil
}

// fallbackRels is the cascade of relation subsets FallbackCycle walks, from
// most restrictive to the full alphabet. Each projection can only shrink
// the component, so the first nontrivial sub-SCC tends to give a short,
// readable witness.
var fallbackRels = []core.Rel{
	core.WW,
	core.Of(core.WW, core.Realtime, core.Process),
	core.Of(core.WW, core.WR),
	core.Of(core.WW, core.WR, core.Realtime, core.Process),
	core.Of(core.WW, core.WR, core.RW),
	core.Of(core.WW, core.WR, core.RW, core.Realtime, core.Process),
}

// FallbackCycle finds some cycle of g cheaply, for use when the
// spec-directed search ran out of budget. g must contain a cycle (callers
// pass a strongly connected subgraph); if every projection in the cascade
// comes up empty the unprojected graph is searched, which cannot fail.
func FallbackCycle(g *core.DirectedGraph) *core.Circle {
	for _, rels := range fallbackRels {
		proj := g.Project(rels)
		for _, scc := range proj.StronglyConnectedComponents() {
			if !scc.HasNontrivialCycle(proj) {
				continue
			}
			if c := FindCycle(proj.InducedSubgraph(scc.Vertices)); c != nil {
				return c
			}
		}
	}
	return FindCycle(g)
}
