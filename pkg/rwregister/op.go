package rwregister

import (
	"regexp"
	"strconv"

	"github.com/jepsen-go/elle-core/pkg/core"
)

var opPattern = regexp.MustCompile(`([rw])([a-zA-Z])([0-9_]+)(.*)`)

// MustParseOp parses the compact register notation used throughout the
// tests: "wx1ry1" is a committed transaction that writes x = 1 and then
// reads y observing 1. An underscore value means nil ("rx_" reads x and
// observes the initial state). Panics on malformed values; this is test
// plumbing, not an API for untrusted input.
func MustParseOp(opStr string) core.Op {
	op := core.Op{Type: core.OpTypeOk}

	for opStr != "" {
		m := opPattern.FindStringSubmatch(opStr)
		if len(m) != 5 {
			break
		}
		opStr = m[4]

		var f core.MopType
		switch m[1] {
		case "r":
			f = core.MopTypeRead
		case "w":
			f = core.MopTypeWrite
		}

		var value core.MopValueType
		if m[3] != "_" {
			v, err := strconv.Atoi(m[3])
			if err != nil {
				panic(err)
			}
			value = v
		}
		op.Value = append(op.Value, core.Mop{F: f, Key: m[2], Value: value})
	}

	return op
}

// Pair derives the invocation half of a completed operation: same mops,
// with read results blanked out (an invocation hasn't observed anything
// yet).
func Pair(op core.Op) (invoke, complete core.Op) {
	inv := op
	inv.Type = core.OpTypeInvoke
	mops := make([]core.Mop, len(op.Value))
	for i, mop := range op.Value {
		if mop.IsRead() {
			mop.Value = nil
		}
		mops[i] = mop
	}
	inv.Value = mops
	return inv, op
}
