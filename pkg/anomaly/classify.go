package anomaly

import (
	"fmt"

	"github.com/jepsen-go/elle-core/pkg/core"
)

// ErrUnclassifiable reports a cycle with no data-dependency edge at all.
// Such a cycle cannot come out of a well-formed dependency graph, so this
// is an internal invariant violation, not an analysis result.
type ErrUnclassifiable struct {
	Circle core.Circle
}

func (e ErrUnclassifiable) Error() string {
	return fmt.Sprintf("cycle with no ww, wr, or rw step cannot be classified: %d steps, labels %v",
		len(e.Circle.Steps), e.Circle.Labels())
}

// primaryRel reduces a step's label to the single relation that counts for
// classification. Data dependencies dominate ordering relations, and among
// the data relations ww wins over wr wins over rw, mirroring the order the
// combined explainer tries analyzers in.
func primaryRel(label core.Rel) core.Rel {
	switch {
	case core.Contains(label, core.WW):
		return core.WW
	case core.Contains(label, core.WR):
		return core.WR
	case core.Contains(label, core.RW):
		return core.RW
	case core.Contains(label, core.Process):
		return core.Process
	case core.Contains(label, core.Realtime):
		return core.Realtime
	default:
		return core.Empty
	}
}

// Classify assigns an anomaly type to a cycle from its edge composition:
// a data-dependency base type (G0, G1c, G-single, G-nonadjacent, G2-item,
// or G2 when a predicate read is involved), suffixed -realtime or -process
// when the cycle leans on those orderings. Realtime wins over process
// because realtime order implies process order.
func Classify(circle core.Circle) (string, error) {
	var ww, wr, rw int
	n := len(circle.Steps)
	isRW := make([]bool, n)
	predicate := false
	anyProcess, anyRealtime := false, false

	for i, step := range circle.Steps {
		switch primaryRel(step.Label) {
		case core.WW:
			ww++
		case core.WR:
			wr++
		case core.RW:
			rw++
			isRW[i] = true
		}
		if step.Predicate {
			predicate = true
		}
		if core.Contains(step.Label, core.Process) {
			anyProcess = true
		}
		if core.Contains(step.Label, core.Realtime) {
			anyRealtime = true
		}
	}

	adjacentRW := false
	for i := 0; i < n; i++ {
		if isRW[i] && isRW[(i+1)%n] {
			adjacentRW = true
			break
		}
	}

	var base string
	switch {
	case rw == 1:
		base = "G-single"
	case rw > 1 && adjacentRW:
		if predicate {
			base = "G2"
		} else {
			base = "G2-item"
		}
	case rw > 1:
		base = "G-nonadjacent"
	case wr > 0:
		base = "G1c"
	case ww > 0:
		base = "G0"
	default:
		return "", ErrUnclassifiable{Circle: circle}
	}

	switch {
	case anyRealtime:
		return base + "-realtime", nil
	case anyProcess:
		return base + "-process", nil
	default:
		return base, nil
	}
}
