// Package anomaly interprets declarative cycle-anomaly specifications over
// a transaction dependency graph: it compiles each spec into a constrained
// cycle search, classifies the cycles that come back, scans for lost
// updates, and maps everything onto a verdict against the declared
// consistency models.
package anomaly

import (
	"context"

	"github.com/jepsen-go/elle-core/pkg/core"
	"github.com/jepsen-go/elle-core/pkg/search"
)

// Spec declares one cycle-anomaly shape. Rels is the base edge alphabet for
// the cycle; the optional constraint fields narrow which cycles qualify:
//
//   - NonadjacentRels: edges of this kind must appear, but never at two
//     consecutive positions (the last-to-first wrap counts as consecutive).
//   - SingleRels: exactly one edge of this kind.
//   - MultipleRels: at least two edges of this kind.
//   - RequiredRels: at least one edge of this kind.
//   - Process/Realtime: force the presence of a pure process/realtime edge.
//   - Type: when non-empty, a found cycle is kept only if it classifies to
//     exactly this type.
type Spec struct {
	Name            string
	Rels            core.Rel
	NonadjacentRels core.Rel
	SingleRels      core.Rel
	MultipleRels    core.Rel
	RequiredRels    core.Rel
	Process         bool
	Realtime        bool
	Type            string
}

// baseSpecs is the data-dependency half of the spec table. Variants over
// process and realtime edges are derived, not written out.
var baseSpecs = []Spec{
	{Name: "G0", Rels: core.WW},
	{Name: "G1c", Rels: core.Of(core.WW, core.WR), RequiredRels: core.WR},
	{Name: "G-single", Rels: core.Of(core.WW, core.WR), SingleRels: core.RW},
	{Name: "G-nonadjacent", Rels: core.Of(core.WW, core.WR, core.RW),
		NonadjacentRels: core.RW, MultipleRels: core.RW, Type: "G-nonadjacent"},
	{Name: "G2-item", Rels: core.Of(core.WW, core.WR, core.RW),
		MultipleRels: core.RW, Type: "G2-item"},
	{Name: "G2", Rels: core.Of(core.WW, core.WR, core.RW),
		MultipleRels: core.RW, Type: "G2"},
}

func variant(s Spec, suffix string, rel core.Rel) Spec {
	v := s
	v.Name = s.Name + suffix
	v.Rels = core.Union(s.Rels, rel)
	switch rel {
	case core.Process:
		v.Process = true
	case core.Realtime:
		v.Realtime = true
	}
	if v.Type != "" {
		v.Type += suffix
	}
	return v
}

// CycleAnomalySpecs returns the full spec table in priority order (worst
// anomaly first): the base specs, then each with a -process variant, then
// each with a -realtime variant. The order is observable — it decides which
// anomalies are already in hand when a search timeout fires — so it is a
// slice, never a map.
func CycleAnomalySpecs() []Spec {
	specs := make([]Spec, 0, 3*len(baseSpecs))
	specs = append(specs, baseSpecs...)
	for _, s := range baseSpecs {
		specs = append(specs, variant(s, "-process", core.Process))
	}
	for _, s := range baseSpecs {
		specs = append(specs, variant(s, "-realtime", core.Realtime))
	}
	return specs
}

// pathPredicates compiles the spec's conjunction of whole-path predicates.
// An empty result means the cycle needs no post-hoc path check.
func (s Spec) pathPredicates() []search.PathPredicate {
	var preds []search.PathPredicate
	if s.MultipleRels != core.Empty {
		preds = append(preds, search.Multiple(s.MultipleRels))
	}
	if s.RequiredRels != core.Empty {
		preds = append(preds, search.Required(s.RequiredRels))
	}
	if s.Process {
		preds = append(preds, search.Required(core.Process))
	}
	if s.Realtime {
		preds = append(preds, search.Required(core.Realtime))
	}
	return preds
}

func (s Spec) transition() search.Transition {
	switch {
	case s.SingleRels != core.Empty:
		return search.FirstOnly(s.SingleRels)
	case s.NonadjacentRels != core.Empty:
		return search.Nonadjacent(s.NonadjacentRels)
	default:
		return search.Trivial
	}
}

// unionRels is the projection the general search runs over: every relation
// any constraint of the spec mentions.
func (s Spec) unionRels() core.Rel {
	return s.Rels | s.NonadjacentRels | s.RequiredRels | s.SingleRels | s.MultipleRels
}

// Projections lists every relation set s's search will ask the projection
// cache for, so a driver can warm them all before its clock starts.
func (s Spec) Projections() []core.Rel {
	if len(s.pathPredicates()) > 0 || s.NonadjacentRels != core.Empty {
		return []core.Rel{s.unionRels()}
	}
	if s.SingleRels != core.Empty {
		return []core.Rel{s.SingleRels, s.Rels}
	}
	return []core.Rel{s.Rels}
}

// FindCycle runs the search s compiles to, against projections of cache's
// underlying graph. It returns one witness cycle or nil, and ctx's error if
// the search was abandoned mid-flight.
func (s Spec) FindCycle(ctx context.Context, cache *search.ProjectionCache) (*core.Circle, error) {
	if s.Rels == core.Empty {
		panic("anomaly spec " + s.Name + " has an empty rels set")
	}
	preds := s.pathPredicates()
	if len(preds) > 0 || s.NonadjacentRels != core.Empty {
		return search.FindCycleWith(ctx, s.transition(), search.All(preds...), cache.Get(s.unionRels()))
	}
	if s.SingleRels != core.Empty {
		return search.FindCycleStartingWith(cache.Get(s.SingleRels), cache.Get(s.Rels)), nil
	}
	return search.FindCycle(cache.Get(s.Rels)), nil
}
