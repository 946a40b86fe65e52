package core

// stringGraph is a tiny adjacency-list digraph over plain strings, used for
// the static consistency-model / anomaly-implication tables in
// consistency_model.go. It's deliberately separate from DirectedGraph:
// DirectedGraph's Vertex wraps a transaction pointer, but the model graph's
// vertices are just model/anomaly names.
type stringGraph struct {
	out map[string][]string
}

func newStringGraph(edges map[string][]string) *stringGraph {
	g := &stringGraph{out: map[string][]string{}}
	for from, tos := range edges {
		g.out[from] = append(g.out[from], tos...)
		for _, to := range tos {
			if _, ok := g.out[to]; !ok {
				g.out[to] = nil
			}
		}
	}
	return g
}

func (g *stringGraph) mapVertices(f func(string) string) *stringGraph {
	out := map[string][]string{}
	for from, tos := range g.out {
		mappedFrom := f(from)
		mappedTos := make([]string, len(tos))
		for i, to := range tos {
			mappedTos[i] = f(to)
		}
		out[mappedFrom] = append(out[mappedFrom], mappedTos...)
	}
	return &stringGraph{out: out}
}

func (g *stringGraph) successors(v string) []string { return g.out[v] }

// predecessors returns the direct (non-transitive) in-edges of v.
func (g *stringGraph) predecessors(v string) []string {
	var preds []string
	for from, tos := range g.out {
		for _, to := range tos {
			if to == v {
				preds = append(preds, from)
			}
		}
	}
	return preds
}

// bfs explores from every vertex in start, following out-edges forward if
// out is true and in-edges (computed on demand) otherwise. It returns every
// reachable vertex, start vertices included.
func (g *stringGraph) bfs(start []string, out bool) []string {
	var preds map[string][]string
	if !out {
		preds = map[string][]string{}
		for from, tos := range g.out {
			for _, to := range tos {
				preds[to] = append(preds[to], from)
			}
		}
	}

	seen := map[string]struct{}{}
	var queue, result []string
	for _, s := range start {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			queue = append(queue, s)
			result = append(result, s)
		}
	}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		var next []string
		if out {
			next = g.successors(v)
		} else {
			next = preds[v]
		}
		for _, w := range next {
			if _, ok := seen[w]; !ok {
				seen[w] = struct{}{}
				queue = append(queue, w)
				result = append(result, w)
			}
		}
	}
	return result
}
