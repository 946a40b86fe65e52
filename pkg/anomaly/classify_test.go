package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jepsen-go/elle-core/pkg/core"
)

func circleWithLabels(labels ...core.Rel) core.Circle {
	n := len(labels)
	steps := make([]core.Step, n)
	for i, label := range labels {
		steps[i] = core.Step{From: vtx(i), To: vtx((i + 1) % n), Label: label}
	}
	return core.Circle{Steps: steps}
}

func mustClassify(t *testing.T, c core.Circle) string {
	t.Helper()
	typ, err := Classify(c)
	assert.NoError(t, err)
	return typ
}

func TestClassifyBaseTypes(t *testing.T) {
	tests := []struct {
		name   string
		labels []core.Rel
		want   string
	}{
		{"ww only", []core.Rel{core.WW, core.WW}, "G0"},
		{"ww and wr", []core.Rel{core.WW, core.WR}, "G1c"},
		{"one rw", []core.Rel{core.WW, core.WR, core.RW}, "G-single"},
		{"two adjacent rw", []core.Rel{core.RW, core.RW, core.WW}, "G2-item"},
		{"two separated rw", []core.Rel{core.RW, core.WW, core.RW, core.WW}, "G-nonadjacent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustClassify(t, circleWithLabels(tt.labels...)))
		})
	}
}

func TestClassifyAdjacencyIncludesWrap(t *testing.T) {
	// rw at the last and first positions are adjacent through the wrap.
	assert.Equal(t, "G2-item", mustClassify(t, circleWithLabels(core.RW, core.WW, core.RW)))
}

func TestClassifyPredicateStepUpgradesToG2(t *testing.T) {
	c := circleWithLabels(core.RW, core.RW, core.WW)
	c.Steps[0].Predicate = true
	assert.Equal(t, "G2", mustClassify(t, c))
}

func TestClassifySuffixes(t *testing.T) {
	assert.Equal(t, "G0-process",
		mustClassify(t, circleWithLabels(core.WW, core.WW, core.Process)))
	assert.Equal(t, "G0-realtime",
		mustClassify(t, circleWithLabels(core.WW, core.WW, core.Realtime)))
	// A label can carry an ordering relation alongside a data relation.
	assert.Equal(t, "G2-item-realtime",
		mustClassify(t, circleWithLabels(core.RW, core.RW, core.Of(core.WW, core.Realtime))))
}

func TestClassifyRealtimeDominatesProcess(t *testing.T) {
	c := circleWithLabels(core.WW, core.Process, core.WW, core.Realtime)
	assert.Equal(t, "G0-realtime", mustClassify(t, c))
}

func TestClassifyMixedDataLabelCountsOnce(t *testing.T) {
	// ww wins over rw on a mixed label, so only one rw step remains.
	c := circleWithLabels(core.Of(core.WW, core.RW), core.WR, core.RW)
	assert.Equal(t, "G-single", mustClassify(t, c))
}

func TestClassifyNoDataEdgeIsAnInvariantViolation(t *testing.T) {
	_, err := Classify(circleWithLabels(core.Process, core.Realtime))
	assert.Error(t, err)
	assert.IsType(t, ErrUnclassifiable{}, err)
}

func TestClassifyTotalityOverSingleDataRelCycles(t *testing.T) {
	// Every cycle with at least one data-dependency step classifies.
	for _, label := range []core.Rel{core.WW, core.WR, core.RW} {
		typ, err := Classify(circleWithLabels(label, core.Process))
		assert.NoError(t, err)
		assert.NotEmpty(t, typ)
	}
}
