package search

import "github.com/jepsen-go/elle-core/pkg/core"

// PathPredicate evaluates a fully-closed cycle's label sequence, in path
// order, once a candidate cycle has been found.
type PathPredicate interface {
	Accept(labels []core.Rel) bool
}

// Multiple requires at least two of the cycle's edges to be ⊆ R.
func Multiple(r core.Rel) PathPredicate { return multiplePred{r: r} }

type multiplePred struct{ r core.Rel }

func (p multiplePred) Accept(labels []core.Rel) bool {
	count := 0
	for _, l := range labels {
		if core.Subset(l, p.r) {
			count++
		}
	}
	return count >= 2
}

// Required requires at least one of the cycle's edges to be ⊆ R.
func Required(r core.Rel) PathPredicate { return requiredPred{r: r} }

type requiredPred struct{ r core.Rel }

func (p requiredPred) Accept(labels []core.Rel) bool {
	for _, l := range labels {
		if core.Subset(l, p.r) {
			return true
		}
	}
	return false
}

// All is the short-circuiting conjunction of zero or more predicates. An
// empty All always accepts.
func All(preds ...PathPredicate) PathPredicate { return allPred{preds: preds} }

type allPred struct{ preds []PathPredicate }

func (p allPred) Accept(labels []core.Rel) bool {
	for _, pred := range p.preds {
		if !pred.Accept(labels) {
			return false
		}
	}
	return true
}
