package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnomaliesProhibitedByStrictSerializable(t *testing.T) {
	prohibited := AnomaliesProhibitedBy([]string{"strict-serializable"})
	for _, a := range []string{"G0", "G1c", "G-single", "G-nonadjacent", "G2-item", "G2",
		"G1c-realtime", "G2-realtime", "lost-update"} {
		assert.Contains(t, prohibited, a)
	}
}

func TestWeakModelsPermitWeakAnomalies(t *testing.T) {
	prohibited := AnomaliesProhibitedBy([]string{"read-uncommitted"})
	assert.Contains(t, prohibited, "G0")
	assert.NotContains(t, prohibited, "G2")
	assert.NotContains(t, prohibited, "G-single")
}

func TestAllAnomaliesImplying(t *testing.T) {
	implying := AllAnomaliesImplying([]string{"G2"})
	assert.Contains(t, implying, "G2")
	assert.Contains(t, implying, "G-nonadjacent")
	assert.Contains(t, implying, "G-single")
	assert.NotContains(t, implying, "G0")
}

func TestAllImpliedAnomalies(t *testing.T) {
	implied := AllImpliedAnomalies([]string{"G0"})
	assert.Contains(t, implied, "G1c")
	assert.Contains(t, implied, "G1")
	assert.NotContains(t, implied, "G2")
}

func TestFriendlyBoundary(t *testing.T) {
	not, alsoNot := FriendlyBoundary([]string{"G0"})
	assert.Contains(t, not, "read-uncommitted")
	assert.NotContains(t, alsoNot, "read-uncommitted")
	assert.Contains(t, alsoNot, "serializable")
}

func TestStrongestAndWeakestModels(t *testing.T) {
	models := []string{"strict-serializable", "serializable", "read-committed"}
	assert.Equal(t, []string{"PL-SS"}, strongestModels(models))
	assert.Equal(t, []string{"PL-2"}, weakestModels(models))
}
