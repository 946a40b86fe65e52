package search

import "github.com/jepsen-go/elle-core/pkg/core"

// TransitionState is the opaque per-path state a Transition threads through
// a cycle search.
type TransitionState interface{}

// Transition is the tagged-variant interpreter over the three transition
// functions an anomaly spec compiles to: Trivial, FirstOnly, Nonadjacent.
type Transition interface {
	// Init returns the state before any edge has been taken.
	Init() TransitionState
	// Step decides whether the edge labeled rel may extend the path
	// (isFirst marks the path's first edge), returning the updated state.
	Step(state TransitionState, rel core.Rel, isFirst bool) (TransitionState, bool)
	// Close decides whether the wrap-around edge closing the cycle is
	// acceptable, given the state after the path's last edge and the
	// label of its very first edge. Trivial and FirstOnly never reject
	// here; Nonadjacent uses it to catch a last-to-first adjacency that
	// Step alone never sees (Step only ever compares an edge against the
	// one immediately before it, never against the first).
	Close(state TransitionState, firstRel core.Rel) bool
}

// Trivial accepts every edge unconditionally.
var Trivial Transition = trivialTransition{}

type trivialTransition struct{}

func (trivialTransition) Init() TransitionState { return nil }

func (trivialTransition) Step(state TransitionState, _ core.Rel, _ bool) (TransitionState, bool) {
	return state, true
}

func (trivialTransition) Close(TransitionState, core.Rel) bool { return true }

// FirstOnly accepts a path whose first edge is ⊆ R and no later edge is ⊆
// R — used for G-single, whose cycles have exactly one rw edge.
func FirstOnly(r core.Rel) Transition { return firstOnlyTransition{r: r} }

type firstOnlyTransition struct{ r core.Rel }

func (firstOnlyTransition) Init() TransitionState { return nil }

func (t firstOnlyTransition) Step(state TransitionState, rel core.Rel, isFirst bool) (TransitionState, bool) {
	if isFirst {
		return state, core.Subset(rel, t.r)
	}
	return state, !core.Subset(rel, t.r)
}

func (firstOnlyTransition) Close(TransitionState, core.Rel) bool { return true }

// Nonadjacent accepts a path in which no two consecutive edges — including
// the wrap-around pair (last edge, first edge) — are both ⊆ R.
func Nonadjacent(r core.Rel) Transition { return nonadjacentTransition{r: r} }

type nonadjacentTransition struct{ r core.Rel }

// Init returns the "previous edge ⊆ R" flag; it matters only in concert
// with Close, which uses it to reject a path whose last edge and first
// edge are both ⊆ R.
func (nonadjacentTransition) Init() TransitionState { return false }

func (t nonadjacentTransition) Step(state TransitionState, rel core.Rel, isFirst bool) (TransitionState, bool) {
	prevWasR := state.(bool)
	curIsR := core.Subset(rel, t.r)
	if !isFirst && prevWasR && curIsR {
		return curIsR, false
	}
	return curIsR, true
}

func (t nonadjacentTransition) Close(state TransitionState, firstRel core.Rel) bool {
	lastWasR := state.(bool)
	firstIsR := core.Subset(firstRel, t.r)
	return !(lastWasR && firstIsR)
}
