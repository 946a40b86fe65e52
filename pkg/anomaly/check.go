package anomaly

import "github.com/jepsen-go/elle-core/pkg/core"

// Analysis is a CheckResult plus the artifacts the verdict was computed
// from, for callers that render or post-process the graph.
type Analysis struct {
	CheckResult
	Graph     *core.DirectedGraph
	Explainer core.DataExplainer
	SCCs      []core.SCC
}

// Check runs the whole pipeline over a history: the analyzer (unioned with
// any additional graphs from opts) builds the dependency graph, every SCC
// is searched for anomaly-spec witnesses, committed transactions are
// scanned for lost updates, and the verdict is rendered against the
// declared consistency models. Check itself is pure: rendering to
// opts.Directory is the caller's business.
func Check(analyzer core.Analyzer, history core.History, opts Opts) Analysis {
	if len(opts.AdditionalGraphs) > 0 {
		analyzer = core.Combine(append([]core.Analyzer{analyzer}, opts.AdditionalGraphs...)...)
	}

	anomalies, graph, explainer := analyzer(history)
	if anomalies == nil {
		anomalies = core.Anomalies{}
	}

	sccs := graph.StronglyConnectedComponents()
	if len(graph.Vertices()) == 0 {
		anomalies[TypeEmptyTransactionGraph] = []core.Anomaly{EmptyTransactionGraph{}}
	} else {
		mergeAppend(anomalies, CycleCases(opts, graph, explainer, sccs))
	}

	if lost := LostUpdates(history); len(lost) > 0 {
		anomalies[TypeLostUpdate] = append(anomalies[TypeLostUpdate], lost...)
	}

	return Analysis{
		CheckResult: ResultMap(opts, anomalies),
		Graph:       graph,
		Explainer:   explainer,
		SCCs:        sccs,
	}
}
