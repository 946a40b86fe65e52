package anomaly

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jepsen-go/elle-core/pkg/core"
	"github.com/jepsen-go/elle-core/pkg/search"
)

// Synthetic anomaly type names. Both are inconclusive: their presence makes
// a verdict unknown, never invalid.
const (
	TypeCycleSearchTimeout    = "cycle-search-timeout"
	TypeEmptyTransactionGraph = "empty-transaction-graph"
)

// DefaultCycleSearchTimeout bounds the spec-table evaluation per SCC.
const DefaultCycleSearchTimeout = 1000 * time.Millisecond

// Opts configures a check run.
type Opts struct {
	// ConsistencyModels the history is expected to satisfy. Defaults to
	// strict-serializable.
	ConsistencyModels []core.ConsistencyModelName
	// Anomalies extends the prohibited set with explicitly flagged kinds.
	Anomalies []string
	// AdditionalGraphs are extra analyzers unioned into the dependency
	// graph, e.g. core.RealtimeGraph or core.ProcessGraph.
	AdditionalGraphs []core.Analyzer
	// CycleSearchTimeout is the wall-clock budget per SCC; zero means
	// DefaultCycleSearchTimeout.
	CycleSearchTimeout time.Duration
	// Directory, when non-empty, is where callers render cycle reports and
	// GraphViz output. The checker itself never writes to it.
	Directory string
}

// DefaultOpts returns the options an undecorated check runs with.
func DefaultOpts() Opts {
	return Opts{
		ConsistencyModels:  []core.ConsistencyModelName{"strict-serializable"},
		CycleSearchTimeout: DefaultCycleSearchTimeout,
	}
}

func (opts Opts) cycleSearchTimeout() time.Duration {
	if opts.CycleSearchTimeout <= 0 {
		return DefaultCycleSearchTimeout
	}
	return opts.CycleSearchTimeout
}

// CycleSearchTimeout records that an SCC's spec-table evaluation ran out of
// budget while AnomalySpecType was being searched. DoesNotContain lists the
// specs that were fully evaluated before the budget expired: their absence
// from the result is conclusive for this SCC, everything after is not.
type CycleSearchTimeout struct {
	AnomalySpecType string
	DoesNotContain  []string
	SCCSize         int
}

// IAnomaly identifies this record as an anomaly.
func (c CycleSearchTimeout) IAnomaly() string { return TypeCycleSearchTimeout }

func (c CycleSearchTimeout) String() string {
	return fmt.Sprintf("cycle search timed out searching %s over an SCC of %d transactions (fully checked: %s)",
		c.AnomalySpecType, c.SCCSize, strings.Join(c.DoesNotContain, ", "))
}

// EmptyTransactionGraph records that the analyzer produced a graph with no
// vertices, leaving nothing to search.
type EmptyTransactionGraph struct{}

// IAnomaly identifies this record as an anomaly.
func (EmptyTransactionGraph) IAnomaly() string { return TypeEmptyTransactionGraph }

// mergeAppend folds src into dst, appending on key collision. This is
// distinct from Anomalies.Merge, which overwrites: per-SCC results for the
// same anomaly type must accumulate.
func mergeAppend(dst, src core.Anomalies) {
	for typ, cases := range src {
		dst[typ] = append(dst[typ], cases...)
	}
}

// CycleCases searches every SCC of graph for anomaly-spec witnesses, one
// concurrent task per component. Each task owns its induced subgraph and
// projection cache; the explainer is the only shared collaborator and must
// be pure. Results are merged in the order of sccs, so the per-type case
// order is deterministic.
func CycleCases(opts Opts, graph *core.DirectedGraph, explainer core.DataExplainer, sccs []core.SCC) core.Anomalies {
	results := make([]core.Anomalies, len(sccs))
	grp, ctx := errgroup.WithContext(context.Background())
	for i, scc := range sccs {
		if !scc.HasNontrivialCycle(graph) {
			continue
		}
		i, scc := i, scc
		grp.Go(func() error {
			results[i] = CycleCasesInSCC(ctx, opts, graph, explainer, scc)
			return nil
		})
	}
	// Tasks only ever return nil; the group is used for its fan-out and
	// shared-context plumbing.
	_ = grp.Wait()

	merged := core.Anomalies{}
	for _, r := range results {
		mergeAppend(merged, r)
	}
	return merged
}

// CycleCasesInSCC evaluates the spec table over one strongly connected
// component under the per-SCC wall-clock budget. All projections the table
// needs are materialized before the clock starts: lazy materialization
// under a tight timeout burns the budget building graphs instead of
// searching them. On expiry the in-flight search is abandoned, the cycles
// found so far are kept, and a timeout record plus one fallback cycle are
// appended.
func CycleCasesInSCC(parent context.Context, opts Opts, graph *core.DirectedGraph, explainer core.DataExplainer, scc core.SCC) core.Anomalies {
	induced := graph.InducedSubgraph(scc.Vertices)
	cache := search.NewProjectionCache(induced)
	specs := CycleAnomalySpecs()
	for _, spec := range specs {
		cache.WarmUp(spec.Projections())
	}

	ctx, cancel := context.WithTimeout(parent, opts.cycleSearchTimeout())
	defer cancel()

	anomalies := core.Anomalies{}
	done := make([]string, 0, len(specs))
	for _, spec := range specs {
		var circle *core.Circle
		err := ctx.Err()
		if err == nil {
			circle, err = spec.FindCycle(ctx, cache)
		}
		if err != nil {
			timeout := CycleSearchTimeout{
				AnomalySpecType: spec.Name,
				DoesNotContain:  done,
				SCCSize:         len(scc.Vertices),
			}
			zap.L().Warn("cycle search timed out",
				zap.String("spec", spec.Name),
				zap.Int("scc-size", len(scc.Vertices)),
				zap.Strings("fully-checked", done))
			anomalies[TypeCycleSearchTimeout] = append(anomalies[TypeCycleSearchTimeout], timeout)
			if fallback := search.FallbackCycle(induced); fallback != nil {
				typ, cr := explainCycle(explainer, *fallback)
				anomalies[typ] = append(anomalies[typ], cr)
			}
			break
		}
		done = append(done, spec.Name)
		if circle == nil {
			continue
		}
		typ, cr := explainCycle(explainer, *circle)
		if spec.Type != "" && typ != spec.Type {
			continue
		}
		anomalies[typ] = append(anomalies[typ], cr)
	}
	return anomalies
}

// explainCycle classifies circle and resolves its per-step explanations. An
// unclassifiable cycle is a checker bug; it is logged with its full payload
// and escalated.
func explainCycle(explainer core.DataExplainer, circle core.Circle) (string, core.CycleExplainerResult) {
	typ, err := Classify(circle)
	if err != nil {
		zap.L().Error("unclassifiable cycle", zap.Error(err))
		panic(err)
	}
	cr := core.CycleExplainer{}.ExplainCycle(explainer, circle)
	cr.Typ = typ
	return typ, cr
}
