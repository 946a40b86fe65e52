package workload

import (
	"strconv"
	"testing"

	"github.com/mohae/deepcopy"
	"github.com/stretchr/testify/assert"

	"github.com/jepsen-go/elle-core/pkg/core"
)

func TestGeneratorWritesGrowMonotonically(t *testing.T) {
	gen := NewGenerator(DefaultOpts(), 42)
	expected := map[string]int{}
	for loopCnt := 0; loopCnt < 1000; loopCnt++ {
		mops := gen.Next()
		assert.NotEmpty(t, mops)

		for _, mop := range mops {
			if !mop.IsWrite() {
				assert.Nil(t, mop.Value, "a generated read carries no observed value")
				continue
			}
			want, ok := expected[mop.Key]
			if !ok {
				want = 1
			}
			assert.Equal(t, want, mop.Value.(int), "write version for key %s", mop.Key)
			expected[mop.Key] = want + 1
		}

		// The generator's version map must agree with what we replayed.
		state := deepcopy.Copy(gen.nextVersion).(map[string]int)
		for k, next := range state {
			if want, ok := expected[k]; ok {
				assert.Equal(t, want, next, "generator state for key %s", k)
			}
		}
	}
}

func TestGeneratorTxnLengthWithinBounds(t *testing.T) {
	opts := DefaultOpts()
	opts.MinTxnLength = 2
	opts.MaxTxnLength = 5
	gen := NewGenerator(opts, 7)
	for i := 0; i < 500; i++ {
		n := len(gen.Next())
		assert.GreaterOrEqual(t, n, 2)
		assert.LessOrEqual(t, n, 5)
	}
}

func TestGeneratorRetiresExhaustedKeys(t *testing.T) {
	opts := Opts{
		KeyDist:         Uniform,
		KeyCount:        1,
		MinTxnLength:    4,
		MaxTxnLength:    4,
		MaxWritesPerKey: 2,
	}
	gen := NewGenerator(opts, 1)

	writes := map[string]int{}
	for i := 0; i < 100; i++ {
		for _, mop := range gen.Next() {
			if mop.IsWrite() {
				writes[mop.Key]++
			}
		}
	}

	assert.Greater(t, len(writes), 1, "the single key must eventually be retired")
	for k, count := range writes {
		assert.LessOrEqual(t, count, 2, "key %s absorbed too many writes", k)
		_, err := strconv.Atoi(k)
		assert.NoError(t, err, "retired keys continue the numeric sequence")
	}
	assert.Len(t, gen.active, 1, "the pool size never changes")
}

func TestGeneratorExponentialFavorsHighIndices(t *testing.T) {
	opts := DefaultOpts()
	opts.KeyDist = Exponential
	// Disable retirement so the pool stays fixed for the whole run.
	opts.MaxWritesPerKey = 1 << 20
	gen := NewGenerator(opts, 3)

	counts := map[string]int{}
	for i := 0; i < 2000; i++ {
		for _, mop := range gen.Next() {
			counts[mop.Key]++
		}
	}

	// With base 2 each pool position is drawn twice as often as the one
	// before it; over thousands of draws the skew is unmistakable.
	assert.Greater(t, counts["9"], counts["2"])
}

func TestGeneratorSeedReproducibility(t *testing.T) {
	a := NewGenerator(DefaultOpts(), 99)
	b := NewGenerator(DefaultOpts(), 99)
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Next(), b.Next())
	}
}

func TestGenOpIsInvocation(t *testing.T) {
	gen := NewGenerator(DefaultOpts(), 5)
	op := gen.GenOp()
	assert.Equal(t, core.OpTypeInvoke, op.Type)
	assert.NotEmpty(t, op.Value)
}
