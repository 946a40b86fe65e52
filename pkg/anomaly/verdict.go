package anomaly

import "github.com/jepsen-go/elle-core/pkg/core"

// unknownAnomalyTypes are inconclusive kinds: their presence alone means we
// could not prove the history valid, not that it is invalid.
var unknownAnomalyTypes = []string{TypeEmptyTransactionGraph, TypeCycleSearchTimeout}

func (opts Opts) consistencyModels() []core.ConsistencyModelName {
	if len(opts.ConsistencyModels) == 0 {
		return []core.ConsistencyModelName{"strict-serializable"}
	}
	return opts.ConsistencyModels
}

// prohibitedAnomalyTypes is the set of anomaly kinds whose presence
// invalidates the declared consistency models, plus everything implying an
// explicitly flagged extra anomaly.
func prohibitedAnomalyTypes(opts Opts) map[string]struct{} {
	set := map[string]struct{}{}
	for _, a := range core.AnomaliesProhibitedBy(opts.consistencyModels()) {
		set[a] = struct{}{}
	}
	for _, a := range core.AllAnomaliesImplying(opts.Anomalies) {
		set[a] = struct{}{}
	}
	return set
}

// reportableAnomalyTypes is the prohibited set plus the inconclusive kinds.
func reportableAnomalyTypes(opts Opts) map[string]struct{} {
	set := prohibitedAnomalyTypes(opts)
	for _, a := range unknownAnomalyTypes {
		set[a] = struct{}{}
	}
	return set
}

// CheckResult is the verdict over one history.
//
// Valid/IsUnknown encode the three-valued outcome: Valid true (nothing
// reportable), Valid false (a prohibited anomaly was detected), or
// IsUnknown true (only inconclusive kinds detected, e.g. a search timeout).
type CheckResult struct {
	Valid        bool
	IsUnknown    bool
	AnomalyTypes []string
	Anomalies    core.Anomalies
	// Not is the weakest set of consistency models the detected anomalies
	// rule out; AlsoNot every stronger model ruled out with them.
	Not, AlsoNot []string
}

// ResultMap projects the detected anomalies onto the prohibited and
// reportable sets for opts and renders the verdict.
func ResultMap(opts Opts, anomalies core.Anomalies) CheckResult {
	bad := anomalies.SelectKeys(prohibitedAnomalyTypes(opts))
	reportable := anomalies.SelectKeys(reportableAnomalyTypes(opts))

	if len(reportable) == 0 {
		return CheckResult{Valid: true}
	}
	cr := CheckResult{
		AnomalyTypes: reportable.Keys(),
		Anomalies:    reportable,
	}
	if len(bad) == 0 {
		cr.IsUnknown = true
	}
	cr.Not, cr.AlsoNot = core.FriendlyBoundary(anomalies.Keys())
	return cr
}
