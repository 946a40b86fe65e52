package rwregister

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jepsen-go/elle-core/pkg/core"
)

func TestVersionOrdersAndSuccessor(t *testing.T) {
	history := core.History{
		MustParseOp("wx2"),
		MustParseOp("wx1"),
		MustParseOp("wx5"),
	}
	orders := versionOrders(writeIndex(history))
	assert.Equal(t, []int{1, 2, 5}, orders["x"])

	next, ok := successor(orders["x"], 2)
	assert.True(t, ok)
	assert.Equal(t, 5, next)

	_, ok = successor(orders["x"], 5)
	assert.False(t, ok, "the newest version has no successor")
}

func TestReadIndexOnlyCountsExternalReads(t *testing.T) {
	// The read of x = 1 follows this transaction's own write, so it is
	// internal and must not be indexed.
	history := core.History{MustParseOp("wx1rx1ry2")}
	idx, initial := readIndex(history)
	assert.Empty(t, idx["x"])
	assert.Len(t, idx["y"][2], 1)
	assert.Empty(t, initial)
}

func TestReadIndexInitialReads(t *testing.T) {
	history := core.History{MustParseOp("rx_")}
	_, initial := readIndex(history)
	assert.Len(t, initial["x"], 1)
}

func TestExtReadValues(t *testing.T) {
	op := MustParseOp("rx1wx2rx2ry_")
	values := extReadValues(op)
	assert.Equal(t, 1, values["x"])
	assert.Nil(t, values["y"])
	assert.Contains(t, values, "y")
}

func TestWrittenValues(t *testing.T) {
	op := MustParseOp("wx1wx2wy3rx2")
	assert.Equal(t, map[string][]int{"x": {1, 2}, "y": {3}}, writtenValues(op))
}

func TestVerifyWellFormedRejectsDuplicateWrites(t *testing.T) {
	history := core.History{MustParseOp("wx1"), MustParseOp("wx1")}
	assert.Panics(t, func() { verifyWellFormed(history) })
}

func TestVerifyWellFormedAcceptsSaneHistory(t *testing.T) {
	history := core.History{MustParseOp("wx1rx1"), MustParseOp("wx2ry_")}
	assert.NotPanics(t, func() { verifyWellFormed(history) })
}
