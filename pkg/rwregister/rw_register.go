// Package rwregister analyzes histories of read/write-register
// transactions: it infers per-key version orders from the monotonic write
// values, builds the ww/wr/rw dependency graphs with their pair-explainers,
// and scans for the aborted-read and intermediate-read anomalies the graph
// can't express. It is the reference analyzer the checker pipeline and CLI
// run against.
package rwregister

import (
	"fmt"
	"log"

	"github.com/jepsen-go/elle-core/pkg/anomaly"
	"github.com/jepsen-go/elle-core/pkg/core"
)

// InternalConflict records a transaction whose read contradicts its own
// earlier read or write.
type InternalConflict struct {
	Op       core.Op
	Mop      core.Mop
	Expected core.Mop
}

// IAnomaly identifies this record as an anomaly.
func (i InternalConflict) IAnomaly() string { return "internal" }

func (i InternalConflict) String() string {
	return fmt.Sprintf("(InternalConflict) Op: %s, mop: %s, expected: %s", i.Op.String(), i.Mop.String(), i.Expected.String())
}

// G1Conflict records a committed read of a value no committed transaction
// could have exposed: an aborted write (G1a) or an intermediate one (G1b).
type G1Conflict struct {
	Kind    string
	Op      core.Op
	Mop     core.Mop
	Writer  core.Op
	Element string
}

// IAnomaly identifies this record as an anomaly.
func (g G1Conflict) IAnomaly() string { return g.Kind }

func (g G1Conflict) String() string {
	return fmt.Sprintf("(G1Conflict) Op: %s, mop: %s, writer: %s, element: %s", g.Op.String(), g.Mop.String(), g.Writer.String(), g.Element)
}

func internalOp(op core.Op) core.Anomaly {
	dataMap := map[string]int{}
	for _, mop := range op.Value {
		v, isInt := mop.Value.(int)
		if mop.IsWrite() {
			dataMap[mop.Key] = v
			continue
		}
		if !mop.IsRead() || !isInt {
			continue
		}
		if prev, ok := dataMap[mop.Key]; ok {
			if prev != v {
				return InternalConflict{
					Op:       op,
					Mop:      mop,
					Expected: core.Read(mop.Key, prev),
				}
			}
		} else {
			dataMap[mop.Key] = v
		}
	}
	return nil
}

// internal finds transactions that disagree with themselves.
func internal(history core.History) []core.Anomaly {
	var cases []core.Anomaly
	for _, op := range core.FilterOkHistory(history) {
		if res := internalOp(op); res != nil {
			cases = append(cases, res)
		}
	}
	return cases
}

type kv struct {
	k string
	v int
}

// g1aCases finds committed reads of values written by aborted transactions.
func g1aCases(history core.History) []core.Anomaly {
	failedMap := map[kv]core.Op{}
	for _, op := range core.FilterFailedHistory(history) {
		for _, mop := range op.Value {
			if !mop.IsWrite() {
				continue
			}
			failedMap[kv{k: mop.Key, v: mop.Value.(int)}] = op
		}
	}

	var cases []core.Anomaly
	for _, op := range core.FilterOkHistory(history) {
		for _, mop := range op.Value {
			if !mop.IsRead() {
				continue
			}
			v, isInt := mop.Value.(int)
			if !isInt {
				continue
			}
			if writer, ok := failedMap[kv{k: mop.Key, v: v}]; ok {
				cases = append(cases, G1Conflict{
					Kind:    "G1a",
					Op:      op,
					Mop:     mop,
					Writer:  writer,
					Element: mop.Key,
				})
			}
		}
	}
	return cases
}

// g1bCases finds committed reads of intermediate writes: values a
// transaction overwrote before committing.
func g1bCases(history core.History) []core.Anomaly {
	interMap := map[kv]*core.Op{}
	okHistory := core.FilterOkHistory(history)
	for i := range okHistory {
		op := &okHistory[i]
		last := map[string]int{}
		for _, mop := range op.Value {
			if !mop.IsWrite() {
				continue
			}
			v := mop.Value.(int)
			if old, ok := last[mop.Key]; ok {
				interMap[kv{k: mop.Key, v: old}] = op
			}
			last[mop.Key] = v
		}
	}

	var cases []core.Anomaly
	for i := range okHistory {
		op := &okHistory[i]
		for _, mop := range op.Value {
			if !mop.IsRead() {
				continue
			}
			v, isInt := mop.Value.(int)
			if !isInt {
				continue
			}
			if writer, ok := interMap[kv{k: mop.Key, v: v}]; ok && writer != op {
				cases = append(cases, G1Conflict{
					Kind:    "G1b",
					Op:      *op,
					Mop:     mop,
					Writer:  *writer,
					Element: mop.Key,
				})
			}
		}
	}
	return cases
}

// wwExplainResult documents one write-write dependency.
type wwExplainResult struct {
	Key       string
	PrevValue int
	Value     int
}

func (wwExplainResult) Type() core.DependType { return core.WWDepend }

type wwExplainer struct {
	orders map[string][]int
}

func (e *wwExplainer) ExplainPairData(a, b core.Op) core.ExplainResult {
	bw := writtenValues(b)
	for k, avs := range writtenValues(a) {
		order := e.orders[k]
		for _, av := range avs {
			next, ok := successor(order, av)
			if !ok {
				continue
			}
			for _, bv := range bw[k] {
				if bv == next {
					return wwExplainResult{Key: k, PrevValue: av, Value: bv}
				}
			}
		}
	}
	return nil
}

func (e *wwExplainer) RenderExplanation(result core.ExplainResult, a, b string) string {
	if result.Type() != core.WWDepend {
		log.Fatalf("result type is not %s, type error", core.WWDepend)
	}
	er := result.(wwExplainResult)
	return fmt.Sprintf("%s wrote %s = %d, which %s overwrote with %d", a, er.Key, er.PrevValue, b, er.Value)
}

// wwGraph links each key's writers along its version order.
func wwGraph(history core.History) (core.Anomalies, *core.DirectedGraph, core.DataExplainer) {
	writes := writeIndex(history)
	orders := versionOrders(writes)
	g := core.NewDirectedGraph()

	for _, k := range sortedKeys(orders) {
		vals := orders[k]
		for i := 0; i+1 < len(vals); i++ {
			from, to := writes[k][vals[i]], writes[k][vals[i+1]]
			if from == to {
				continue
			}
			g.Link(core.Vertex{Value: from}, core.Vertex{Value: to}, core.WW)
		}
	}
	return nil, g, &wwExplainer{orders: orders}
}

// wrExplainResult documents one write-read dependency.
type wrExplainResult struct {
	Key   string
	Value int
}

func (wrExplainResult) Type() core.DependType { return core.WRDepend }

type wrExplainer struct{}

func (e *wrExplainer) ExplainPairData(a, b core.Op) core.ExplainResult {
	aw := writtenValues(a)
	for k, v := range extReadValues(b) {
		bv, isInt := v.(int)
		if !isInt {
			continue
		}
		for _, av := range aw[k] {
			if av == bv {
				return wrExplainResult{Key: k, Value: bv}
			}
		}
	}
	return nil
}

func (e *wrExplainer) RenderExplanation(result core.ExplainResult, a, b string) string {
	if result.Type() != core.WRDepend {
		log.Fatalf("result type is not %s, type error", core.WRDepend)
	}
	er := result.(wrExplainResult)
	return fmt.Sprintf("%s read %s = %d, written by %s", b, er.Key, er.Value, a)
}

// wrGraph links each writer to the committed transactions that externally
// read its write.
func wrGraph(history core.History) (core.Anomalies, *core.DirectedGraph, core.DataExplainer) {
	writes := writeIndex(history)
	orders := versionOrders(writes)
	reads, _ := readIndex(history)
	g := core.NewDirectedGraph()

	for _, k := range sortedKeys(orders) {
		for _, v := range orders[k] {
			writer := writes[k][v]
			for _, reader := range reads[k][v] {
				if reader == writer {
					continue
				}
				g.Link(core.Vertex{Value: writer}, core.Vertex{Value: reader}, core.WR)
			}
		}
	}
	return nil, g, &wrExplainer{}
}

// rwExplainResult documents one anti-dependency.
type rwExplainResult struct {
	Key       string
	Value     core.MopValueType
	NextValue int
}

func (rwExplainResult) Type() core.DependType { return core.RWDepend }

type rwExplainer struct {
	orders map[string][]int
}

func (e *rwExplainer) ExplainPairData(a, b core.Op) core.ExplainResult {
	bw := writtenValues(b)
	for k, v := range extReadValues(a) {
		order := e.orders[k]
		if len(order) == 0 {
			continue
		}
		var next int
		if v == nil {
			next = order[0]
		} else {
			av, isInt := v.(int)
			if !isInt {
				continue
			}
			n, ok := successor(order, av)
			if !ok {
				continue
			}
			next = n
		}
		for _, bv := range bw[k] {
			if bv == next {
				return rwExplainResult{Key: k, Value: v, NextValue: next}
			}
		}
	}
	return nil
}

func (e *rwExplainer) RenderExplanation(result core.ExplainResult, a, b string) string {
	if result.Type() != core.RWDepend {
		log.Fatalf("result type is not %s, type error", core.RWDepend)
	}
	er := result.(rwExplainResult)
	if er.Value == nil {
		return fmt.Sprintf("%s read the initial state of %s, which %s overwrote with %d", a, er.Key, b, er.NextValue)
	}
	return fmt.Sprintf("%s read %s = %v, which %s overwrote with %d", a, er.Key, er.Value, b, er.NextValue)
}

// rwGraph links each external read to the writer of the next version of
// that key: the reader must precede the transaction that overwrote what it
// saw.
func rwGraph(history core.History) (core.Anomalies, *core.DirectedGraph, core.DataExplainer) {
	writes := writeIndex(history)
	orders := versionOrders(writes)
	reads, initialReads := readIndex(history)
	g := core.NewDirectedGraph()

	for _, k := range sortedKeys(orders) {
		vals := orders[k]
		first := writes[k][vals[0]]
		for _, reader := range initialReads[k] {
			if reader == first {
				continue
			}
			g.Link(core.Vertex{Value: reader}, core.Vertex{Value: first}, core.RW)
		}
		for i := 0; i+1 < len(vals); i++ {
			writer := writes[k][vals[i+1]]
			for _, reader := range reads[k][vals[i]] {
				if reader == writer {
					continue
				}
				g.Link(core.Vertex{Value: reader}, core.Vertex{Value: writer}, core.RW)
			}
		}
	}
	return nil, g, &rwExplainer{orders: orders}
}

// GraphAnalyzer builds the unioned ww/wr/rw dependency graph and its
// combined pair-explainer. The combination order matters: it is the order
// the explainer resolves a multi-labeled edge in.
func GraphAnalyzer(history core.History) (core.Anomalies, *core.DirectedGraph, core.DataExplainer) {
	verifyWellFormed(history)
	return core.Combine(wwGraph, wrGraph, rwGraph)(history)
}

// Analyzer is GraphAnalyzer plus the direct scans for the anomalies a
// dependency cycle can't express: internal inconsistency, aborted reads
// (G1a), and intermediate reads (G1b).
func Analyzer(history core.History) (core.Anomalies, *core.DirectedGraph, core.DataExplainer) {
	anomalies, g, explainer := GraphAnalyzer(history)
	if anomalies == nil {
		anomalies = core.Anomalies{}
	}
	if cases := internal(history); len(cases) > 0 {
		anomalies["internal"] = cases
	}
	if cases := g1aCases(history); len(cases) > 0 {
		anomalies["G1a"] = cases
	}
	if cases := g1bCases(history); len(cases) > 0 {
		anomalies["G1b"] = cases
	}
	return anomalies, g, explainer
}

// Check runs the full checker pipeline over an rw-register history.
func Check(history core.History, opts anomaly.Opts) anomaly.Analysis {
	history.AttachIndexIfNoExists()
	return anomaly.Check(Analyzer, history, opts)
}
