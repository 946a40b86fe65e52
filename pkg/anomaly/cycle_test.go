package anomaly

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jepsen-go/elle-core/pkg/core"
)

func vtx(i int) core.Vertex {
	idx := i
	return core.Vertex{Value: &core.Op{Index: &idx, Type: core.OpTypeOk}}
}

type stubResult struct{ t core.DependType }

func (r stubResult) Type() core.DependType { return r.t }

// stubExplainer satisfies the pair-explainer contract without knowing the
// history; classification only reads edge labels, so the tests here don't
// need real explanations.
type stubExplainer struct{}

func (stubExplainer) ExplainPairData(a, b core.Op) core.ExplainResult {
	return stubResult{t: core.WWDepend}
}

func (stubExplainer) RenderExplanation(result core.ExplainResult, a, b string) string {
	return a + " < " + b
}

func cycleCasesOf(t *testing.T, g *core.DirectedGraph) core.Anomalies {
	t.Helper()
	return CycleCases(DefaultOpts(), g, stubExplainer{}, g.StronglyConnectedComponents())
}

func TestCycleCasesG0(t *testing.T) {
	g := core.NewDirectedGraph()
	t1, t2 := vtx(1), vtx(2)
	g.Link(t1, t2, core.WW)
	g.Link(t2, t1, core.WW)

	cases := cycleCasesOf(t, g)
	assert.Equal(t, []string{"G0"}, cases.Keys())
	assert.Len(t, cases["G0"], 1)
}

func TestCycleCasesG1c(t *testing.T) {
	g := core.NewDirectedGraph()
	t1, t2 := vtx(1), vtx(2)
	g.Link(t1, t2, core.WW)
	g.Link(t2, t1, core.WR)

	cases := cycleCasesOf(t, g)
	assert.Equal(t, []string{"G1c"}, cases.Keys())
}

func TestCycleCasesGSingle(t *testing.T) {
	g := core.NewDirectedGraph()
	t1, t2, t3 := vtx(1), vtx(2), vtx(3)
	g.Link(t1, t2, core.WW)
	g.Link(t2, t3, core.WR)
	g.Link(t3, t1, core.RW)

	cases := cycleCasesOf(t, g)
	assert.Equal(t, []string{"G-single"}, cases.Keys())

	witness := cases["G-single"][0].(core.CycleExplainerResult)
	rw := 0
	for _, step := range witness.Circle.Steps {
		if core.Contains(step.Label, core.RW) {
			rw++
		}
	}
	assert.Equal(t, 1, rw)
}

func TestCycleCasesGNonadjacent(t *testing.T) {
	g := core.NewDirectedGraph()
	t1, t2, t3, t4 := vtx(1), vtx(2), vtx(3), vtx(4)
	g.Link(t1, t2, core.RW)
	g.Link(t2, t3, core.WW)
	g.Link(t3, t4, core.RW)
	g.Link(t4, t1, core.WW)

	cases := cycleCasesOf(t, g)
	assert.Equal(t, []string{"G-nonadjacent"}, cases.Keys(),
		"two separated rw edges are G-nonadjacent, not G-single or G2-item")

	witness := cases["G-nonadjacent"][0].(core.CycleExplainerResult)
	steps := witness.Circle.Steps
	n := len(steps)
	rwCount := 0
	for i, step := range steps {
		cur := core.Contains(step.Label, core.RW)
		next := core.Contains(steps[(i+1)%n].Label, core.RW)
		assert.False(t, cur && next, "witness must have no adjacent rw steps, wrap included")
		if cur {
			rwCount++
		}
	}
	assert.GreaterOrEqual(t, rwCount, 2)
}

func TestCycleCasesG2Item(t *testing.T) {
	g := core.NewDirectedGraph()
	t1, t2, t3 := vtx(1), vtx(2), vtx(3)
	g.Link(t1, t2, core.RW)
	g.Link(t2, t3, core.RW)
	g.Link(t3, t1, core.WW)

	cases := cycleCasesOf(t, g)
	assert.Equal(t, []string{"G2-item"}, cases.Keys())
}

func TestCycleCasesG2ItemRealtime(t *testing.T) {
	g := core.NewDirectedGraph()
	t1, t2, t3, t4 := vtx(1), vtx(2), vtx(3), vtx(4)
	g.Link(t1, t2, core.RW)
	g.Link(t2, t3, core.RW)
	g.Link(t3, t4, core.WW)
	g.Link(t4, t1, core.Realtime)

	cases := cycleCasesOf(t, g)
	assert.Equal(t, []string{"G2-item-realtime"}, cases.Keys())
}

func TestCycleCasesTrivialSCCContributesNothing(t *testing.T) {
	g := core.NewDirectedGraph()
	g.Link(vtx(1), vtx(2), core.WW)

	cases := cycleCasesOf(t, g)
	assert.Empty(t, cases)
}

func TestCycleCasesInSCCTimeout(t *testing.T) {
	g := core.NewDirectedGraph()
	t1, t2 := vtx(1), vtx(2)
	g.Link(t1, t2, core.WW)
	g.Link(t2, t1, core.WW)

	expired, cancel := context.WithCancel(context.Background())
	cancel()

	sccs := g.StronglyConnectedComponents()
	assert.Len(t, sccs, 1)
	cases := CycleCasesInSCC(expired, DefaultOpts(), g, stubExplainer{}, sccs[0])

	timeouts := cases[TypeCycleSearchTimeout]
	assert.Len(t, timeouts, 1)
	record := timeouts[0].(CycleSearchTimeout)
	assert.Equal(t, "G0", record.AnomalySpecType, "the budget expired while the first spec was due")
	assert.Empty(t, record.DoesNotContain)
	assert.Equal(t, 2, record.SCCSize)

	// One fallback cycle, found outside the budgeted search; here it can
	// only be the ww cycle.
	fallback := cases["G0"]
	assert.Len(t, fallback, 1)
	witness := fallback[0].(core.CycleExplainerResult)
	for _, step := range witness.Circle.Steps {
		_, ok := g.Edge(step.From, step.To)
		assert.True(t, ok, "fallback steps must be edges of the original graph")
	}
}

func TestSpecTableOrderAndSize(t *testing.T) {
	specs := CycleAnomalySpecs()
	var names []string
	for _, s := range specs {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		"G0", "G1c", "G-single", "G-nonadjacent", "G2-item", "G2",
		"G0-process", "G1c-process", "G-single-process", "G-nonadjacent-process", "G2-item-process", "G2-process",
		"G0-realtime", "G1c-realtime", "G-single-realtime", "G-nonadjacent-realtime", "G2-item-realtime", "G2-realtime",
	}, names)
}

func TestSpecVariantsForceOrderingEdge(t *testing.T) {
	// A pure ww cycle must not satisfy the -process or -realtime variants.
	g := core.NewDirectedGraph()
	t1, t2 := vtx(1), vtx(2)
	g.Link(t1, t2, core.WW)
	g.Link(t2, t1, core.WW)

	cases := cycleCasesOf(t, g)
	assert.NotContains(t, cases.Keys(), "G0-process")
	assert.NotContains(t, cases.Keys(), "G0-realtime")
}

func TestEmptyRelsSpecPanics(t *testing.T) {
	assert.Panics(t, func() {
		bad := Spec{Name: "bad"}
		_, _ = bad.FindCycle(context.Background(), nil)
	})
}
