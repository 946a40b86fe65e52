// Package search implements the path-constrained cycle search over a
// projected dependency graph: a memoized projection cache plus the three
// bounded graph-search primitives the anomaly interpreter in package
// anomaly compiles its specs down to.
package search

import "github.com/jepsen-go/elle-core/pkg/core"

// ProjectionCache memoizes G|R for a fixed underlying graph G, so that a
// whole SCC's worth of anomaly-spec evaluations reuses the same projected
// graphs instead of recomputing G|R on every spec. Not safe for concurrent
// writers; each SCC task owns its own cache.
type ProjectionCache struct {
	g     *core.DirectedGraph
	cache map[core.Rel]*core.DirectedGraph
}

// NewProjectionCache wraps g. g is never mutated.
func NewProjectionCache(g *core.DirectedGraph) *ProjectionCache {
	return &ProjectionCache{g: g, cache: map[core.Rel]*core.DirectedGraph{}}
}

// Get returns the memoized projection G|r, computing it on first request.
func (c *ProjectionCache) Get(r core.Rel) *core.DirectedGraph {
	if g, ok := c.cache[r]; ok {
		return g
	}
	g := c.g.Project(r)
	c.cache[r] = g
	return g
}

// WarmUp eagerly computes the projection for every rel in rels. Doing this
// before a wall-clock-budgeted search starts matters: lazy materialization
// under a tight timeout tends to burn the budget building graphs rather
// than searching them.
func (c *ProjectionCache) WarmUp(rels []core.Rel) {
	for _, r := range rels {
		c.Get(r)
	}
}
