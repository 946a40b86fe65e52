// Package workload generates synthetic read/write-register transactions
// over a rotating pool of keys. It's a test fixture for the checker
// pipeline, not part of the verification path: histories it produces have
// unique, monotonically growing write values per key, which is exactly the
// invariant the rwregister analyzer assumes.
package workload

import (
	"math"
	"math/rand"
	"strconv"

	"github.com/jepsen-go/elle-core/pkg/core"
)

// DistMode selects how keys are drawn from the active pool.
type DistMode int

const (
	// Uniform gives every active key an equal probability.
	Uniform DistMode = iota
	// Exponential weights the pool geometrically: position i+1 is drawn
	// base times as often as position i, concentrating traffic on the
	// high end of the pool (where retirement installs fresh keys).
	Exponential
)

// Opts parameterizes a generator. Zero values fall back to defaults: base
// 2, transaction length 1..2, 32 writes per key, and a pool of 10 keys for
// the exponential distribution or 3 for uniform (a uniform draw spreads
// contention so much thinner that a smaller pool is needed to produce
// interesting conflicts).
type Opts struct {
	KeyDist         DistMode
	KeyDistBase     uint
	KeyCount        uint
	MinTxnLength    uint
	MaxTxnLength    uint
	MaxWritesPerKey uint
}

// DefaultOpts returns the default generator options.
func DefaultOpts() Opts {
	return Opts{
		KeyDist:         Exponential,
		KeyDistBase:     2,
		MinTxnLength:    1,
		MaxTxnLength:    2,
		MaxWritesPerKey: 32,
	}
}

func (opts Opts) normalize() Opts {
	if opts.KeyDistBase < 2 {
		opts.KeyDistBase = 2
	}
	if opts.KeyCount == 0 {
		if opts.KeyDist == Exponential {
			opts.KeyCount = 10
		} else {
			opts.KeyCount = 3
		}
	}
	if opts.MinTxnLength == 0 {
		opts.MinTxnLength = 1
	}
	if opts.MaxTxnLength == 0 {
		opts.MaxTxnLength = 2
	}
	if opts.MaxTxnLength < opts.MinTxnLength {
		opts.MaxTxnLength = opts.MinTxnLength
	}
	if opts.MaxWritesPerKey == 0 {
		opts.MaxWritesPerKey = 32
	}
	return opts
}

// Generator emits transactions one at a time. Not safe for concurrent use;
// run one generator per producing goroutine.
type Generator struct {
	opts Opts
	rand *rand.Rand

	// active is the current key pool. Position matters: the exponential
	// draw favors higher indices.
	active      []string
	nextVersion map[string]int
	maxKey      uint
}

// NewGenerator seeds a generator. The same seed reproduces the same
// history.
func NewGenerator(opts Opts, seed int64) *Generator {
	opts = opts.normalize()
	g := &Generator{
		opts:        opts,
		rand:        rand.New(rand.NewSource(seed)),
		nextVersion: map[string]int{},
		maxKey:      opts.KeyCount - 1,
	}
	for i := uint(0); i < opts.KeyCount; i++ {
		k := strconv.Itoa(int(i))
		g.active = append(g.active, k)
		g.nextVersion[k] = 1
	}
	return g
}

// keyDistScale is the total probability mass of the exponential
// distribution: b(bⁿ−1)/(b−1) for base b over n keys.
func (g *Generator) keyDistScale() float64 {
	b := float64(g.opts.KeyDistBase)
	n := float64(g.opts.KeyCount)
	return b * (math.Pow(b, n) - 1) / (b - 1)
}

func (g *Generator) pickIndex() int {
	switch g.opts.KeyDist {
	case Exponential:
		b := float64(g.opts.KeyDistBase)
		u := g.rand.Float64() * g.keyDistScale()
		i := int(math.Floor(math.Log(u+b)/math.Log(b) - 1))
		if i < 0 {
			i = 0
		}
		if i >= len(g.active) {
			i = len(g.active) - 1
		}
		return i
	default:
		return g.rand.Intn(len(g.active))
	}
}

// retire replaces the key at pool position i with a brand-new key, one past
// the largest ever issued.
func (g *Generator) retire(i int) string {
	g.maxKey++
	k := strconv.Itoa(int(g.maxKey))
	delete(g.nextVersion, g.active[i])
	g.active[i] = k
	g.nextVersion[k] = 1
	return k
}

// Next emits the micro-operations of one transaction: between MinTxnLength
// and MaxTxnLength mops, each a read or a write with equal probability on a
// key drawn from the active pool. Write values grow monotonically from 1
// per key, so every write is unique; a key that has absorbed
// MaxWritesPerKey writes is retired on its next write draw.
func (g *Generator) Next() []core.Mop {
	span := int(g.opts.MaxTxnLength-g.opts.MinTxnLength) + 1
	length := int(g.opts.MinTxnLength) + g.rand.Intn(span)

	mops := make([]core.Mop, 0, length)
	for len(mops) < length {
		i := g.pickIndex()
		k := g.active[i]
		if g.rand.Intn(2) == 0 {
			if g.nextVersion[k] > int(g.opts.MaxWritesPerKey) {
				k = g.retire(i)
			}
			v := g.nextVersion[k]
			g.nextVersion[k]++
			mops = append(mops, core.Write(k, v))
		} else {
			mops = append(mops, core.Read(k, nil))
		}
	}
	return mops
}

// GenOp wraps the next transaction as an invocation operation.
func (g *Generator) GenOp() core.Op {
	return core.Op{Type: core.OpTypeInvoke, Value: g.Next()}
}
