package rwregister

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jepsen-go/elle-core/pkg/anomaly"
	"github.com/jepsen-go/elle-core/pkg/core"
)

func okHistory(ops ...string) core.History {
	var history core.History
	for _, s := range ops {
		history = append(history, MustParseOp(s))
	}
	history.AttachIndexIfNoExists()
	return history
}

func TestWWGraphFollowsVersionOrder(t *testing.T) {
	history := okHistory("wx1", "wx3", "wx2")
	_, g, explainer := wwGraph(history)

	v1 := core.Vertex{Value: &history[0]}
	v3 := core.Vertex{Value: &history[1]}
	v2 := core.Vertex{Value: &history[2]}

	rel, ok := g.Edge(v1, v2)
	assert.True(t, ok)
	assert.Equal(t, core.WW, rel)
	rel, ok = g.Edge(v2, v3)
	assert.True(t, ok)
	assert.Equal(t, core.WW, rel)
	_, ok = g.Edge(v1, v3)
	assert.False(t, ok, "ww links only consecutive versions")

	res := explainer.ExplainPairData(history[0], history[2])
	assert.NotNil(t, res)
	assert.Equal(t, core.WWDepend, res.Type())
	assert.Contains(t, explainer.RenderExplanation(res, "T0", "T1"), "overwrote")
}

func TestWRGraphLinksWriterToReader(t *testing.T) {
	history := okHistory("wx1", "rx1")
	_, g, explainer := wrGraph(history)

	writer := core.Vertex{Value: &history[0]}
	reader := core.Vertex{Value: &history[1]}
	rel, ok := g.Edge(writer, reader)
	assert.True(t, ok)
	assert.Equal(t, core.WR, rel)

	res := explainer.ExplainPairData(history[0], history[1])
	assert.NotNil(t, res)
	assert.Equal(t, core.WRDepend, res.Type())
}

func TestRWGraphLinksReaderToOverwriter(t *testing.T) {
	history := okHistory("wx1", "rx1", "wx2")
	_, g, explainer := rwGraph(history)

	reader := core.Vertex{Value: &history[1]}
	overwriter := core.Vertex{Value: &history[2]}
	rel, ok := g.Edge(reader, overwriter)
	assert.True(t, ok)
	assert.Equal(t, core.RW, rel)

	res := explainer.ExplainPairData(history[1], history[2])
	assert.NotNil(t, res)
	assert.Equal(t, core.RWDepend, res.Type())
}

func TestRWGraphInitialStateRead(t *testing.T) {
	history := okHistory("rx_", "wx1")
	_, g, _ := rwGraph(history)

	reader := core.Vertex{Value: &history[0]}
	writer := core.Vertex{Value: &history[1]}
	rel, ok := g.Edge(reader, writer)
	assert.True(t, ok)
	assert.Equal(t, core.RW, rel)
}

func TestInternalConflict(t *testing.T) {
	history := okHistory("wx1rx2")
	cases := internal(history)
	assert.Len(t, cases, 1)
	conflict := cases[0].(InternalConflict)
	assert.Equal(t, core.Read("x", 1), conflict.Expected)
}

func TestG1aAbortedRead(t *testing.T) {
	failed := MustParseOp("wx1")
	failed.Type = core.OpTypeFail
	history := core.History{failed, MustParseOp("rx1")}
	history.AttachIndexIfNoExists()

	cases := g1aCases(history)
	assert.Len(t, cases, 1)
	assert.Equal(t, "G1a", cases[0].(G1Conflict).Kind)
}

func TestG1bIntermediateRead(t *testing.T) {
	history := okHistory("wx1wx2", "rx1")
	cases := g1bCases(history)
	assert.Len(t, cases, 1)
	conflict := cases[0].(G1Conflict)
	assert.Equal(t, "G1b", conflict.Kind)
	assert.Equal(t, "x", conflict.Element)
}

func TestG1bIgnoresOwnIntermediateRead(t *testing.T) {
	history := okHistory("wx1rx1wx2")
	assert.Empty(t, g1bCases(history))
}

func TestCheckWriteCycleIsG0(t *testing.T) {
	// x's version order says T0 < T1, y's says T1 < T0.
	history := okHistory("wx1wy2", "wx2wy1")
	result := Check(history, anomaly.DefaultOpts())
	assert.False(t, result.Valid)
	assert.Contains(t, result.AnomalyTypes, "G0")
}

func TestCheckReadCycleIsG1c(t *testing.T) {
	// Each transaction reads the other's write.
	history := okHistory("wx1ry1", "wy1rx1")
	result := Check(history, anomaly.DefaultOpts())
	assert.False(t, result.Valid)
	assert.Contains(t, result.AnomalyTypes, "G1c")
}

func TestCheckLostUpdate(t *testing.T) {
	history := okHistory("rx_wx1", "rx_wx2")
	result := Check(history, anomaly.DefaultOpts())
	assert.False(t, result.Valid)
	assert.Contains(t, result.AnomalyTypes, anomaly.TypeLostUpdate)

	lost := result.Anomalies[anomaly.TypeLostUpdate][0].(anomaly.LostUpdate)
	assert.Equal(t, "x", lost.Key)
	assert.Len(t, lost.Txns, 2)
}

func TestCheckSerialHistoryIsValid(t *testing.T) {
	history := okHistory("wx1", "rx1wx2", "rx2")
	result := Check(history, anomaly.DefaultOpts())
	assert.True(t, result.Valid)
	assert.Empty(t, result.AnomalyTypes)
}

func TestCheckEmptyHistoryIsUnknown(t *testing.T) {
	result := Check(core.History{}, anomaly.DefaultOpts())
	assert.False(t, result.Valid)
	assert.True(t, result.IsUnknown)
	assert.Contains(t, result.AnomalyTypes, anomaly.TypeEmptyTransactionGraph)
}

func TestCheckProcessVariantNeedsProcessGraph(t *testing.T) {
	// x's version order contradicts process order, but only when the
	// process relation participates in the graph.
	history := okHistory("wx2", "wx1")
	p := 0
	history[0].Process = &p
	history[1].Process = &p

	plain := Check(history, anomaly.DefaultOpts())
	assert.True(t, plain.Valid, "a single ww edge alone closes no cycle")

	opts := anomaly.DefaultOpts()
	opts.AdditionalGraphs = []core.Analyzer{core.ProcessGraph}
	withProcess := Check(history, opts)
	assert.False(t, withProcess.Valid)
	assert.Contains(t, withProcess.AnomalyTypes, "G0-process")
}

func TestCheckExplainsWitnessCycles(t *testing.T) {
	history := okHistory("wx1ry1", "wy1rx1")
	analysis := Check(history, anomaly.DefaultOpts())

	witness := analysis.Anomalies["G1c"][0].(core.CycleExplainerResult)
	prose := core.CycleExplainer{}.RenderCycleExplanation(analysis.Explainer, witness)
	assert.Contains(t, prose, "Let:")
	assert.Contains(t, prose, "a contradiction!")
}
