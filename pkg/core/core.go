package core

import "sort"

// Anomaly unifies all kinds of anomalies a checker can report: G1a, G-single,
// dirty-update, lost-update, and so on.
type Anomaly interface {
	IAnomaly() string
}

// Anomalies collects anomalies by name.
type Anomalies map[string][]Anomaly

// Merge folds another Anomalies into a, overwriting on key collision.
func (a Anomalies) Merge(another Anomalies) {
	for key, value := range another {
		a[key] = value
	}
}

// SelectKeys returns the subset of a named by anomalyNames.
func (a Anomalies) SelectKeys(anomalyNames map[string]struct{}) Anomalies {
	anomalies := make(Anomalies)
	for name := range anomalyNames {
		if value, ok := a[name]; ok {
			anomalies[name] = value
		}
	}
	return anomalies
}

// Keys returns a's keys, sorted.
func (a Anomalies) Keys() []string {
	keys := make([]string, 0, len(a))
	for key := range a {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// monotonicDependent documents a monotonic-key edge.
type monotonicDependent struct{ Key string }

func (monotonicDependent) Type() DependType { return MonotonicDepend }

// MonotonicKeyExplainer explains edges produced by MonotonicKeyGraph: op a's
// read of key observed a smaller value than op b's.
type MonotonicKeyExplainer struct{}

func (MonotonicKeyExplainer) ExplainPairData(a, b Op) ExplainResult {
	for _, m := range a.Value {
		if m.IsRead() {
			return monotonicDependent{Key: m.Key}
		}
	}
	return nil
}

func (MonotonicKeyExplainer) RenderExplanation(result ExplainResult, preName, postName string) string {
	res := result.(monotonicDependent)
	return "observed a lower value of " + res.Key + " than " + postName + " did, after " + preName
}

// RealtimeGraph builds the `realtime` dependency relation: op a
// happened-before op b in realtime if a's completion is recorded strictly
// before b's invocation.
func RealtimeGraph(history History) (Anomalies, *DirectedGraph, DataExplainer) {
	g := NewDirectedGraph()

	invokeOf := map[int]Op{}
	lastInvokeByProcess := map[int]Op{}
	var completed []*Op

	// Vertices point into the history slice itself, so that every analyzer
	// run over the same history produces coinciding vertices and the union
	// of their graphs joins up.
	for i := range history {
		op := &history[i]
		switch op.Type {
		case OpTypeInvoke:
			if op.Process != nil {
				lastInvokeByProcess[*op.Process] = *op
			}
		case OpTypeOk, OpTypeFail, OpTypeInfo:
			var invokeIndex *int
			if op.Index != nil && op.Process != nil {
				if inv, ok := lastInvokeByProcess[*op.Process]; ok && inv.Index != nil {
					invokeOf[*op.Index] = inv
					invokeIndex = inv.Index
				}
			}
			if op.Type != OpTypeOk {
				continue
			}
			for _, done := range completed {
				// done precedes op in realtime only if done completed
				// before op was invoked. A history without invocation
				// events degrades to completion order.
				if done.Index != nil && invokeIndex != nil && *invokeIndex < *done.Index {
					continue
				}
				g.Link(Vertex{Value: done}, Vertex{Value: op}, Realtime)
			}
			completed = append(completed, op)
		}
	}

	return nil, g, RealtimeExplainer{InvokeOf: invokeOf}
}

// ProcessOrder links consecutive OK operations on a single process in
// process order.
func ProcessOrder(history History, process int) *DirectedGraph {
	g := NewDirectedGraph()
	var prev *Op
	for i := range history {
		op := &history[i]
		if op.Type != OpTypeOk || op.Process == nil || *op.Process != process {
			continue
		}
		if prev != nil {
			g.Link(Vertex{Value: prev}, Vertex{Value: op}, Process)
		}
		prev = op
	}
	return g
}

// ProcessGraph builds the `process` dependency relation: within
// one client process, operations are totally ordered by the order they were
// invoked.
func ProcessGraph(history History) (Anomalies, *DirectedGraph, DataExplainer) {
	processes := map[int]struct{}{}
	var graphs []*DirectedGraph
	for _, op := range history {
		if op.Type != OpTypeOk || op.Process == nil {
			continue
		}
		if _, ok := processes[*op.Process]; !ok {
			processes[*op.Process] = struct{}{}
			graphs = append(graphs, ProcessOrder(history, *op.Process))
		}
	}
	return nil, DigraphUnion(graphs...), ProcessExplainer{}
}

// MonotonicKeyOrder links each operation that read an integer value of key
// to every operation that read the next larger value read of key.
func MonotonicKeyOrder(history History, key string) *DirectedGraph {
	g := NewDirectedGraph()
	val2ops := map[int][]*Op{}
	var vals []int
	for i := range history {
		op := &history[i]
		if op.Type != OpTypeOk {
			continue
		}
		for _, mop := range op.Value {
			if mop.Key != key || !mop.IsRead() {
				continue
			}
			if v, ok := mop.Value.(int); ok {
				if _, seen := val2ops[v]; !seen {
					vals = append(vals, v)
				}
				val2ops[v] = append(val2ops[v], op)
			}
			break
		}
	}

	sort.Ints(vals)
	for i := 0; i < len(vals)-1; i++ {
		var xs, ys []Vertex
		for _, x := range val2ops[vals[i]] {
			xs = append(xs, Vertex{Value: x})
		}
		for _, y := range val2ops[vals[i+1]] {
			ys = append(ys, Vertex{Value: y})
		}
		g.LinkAllToAll(xs, ys, MonotonicKey)
	}
	return g
}

// MonotonicKeyGraph builds the `monotonic-key` dependency relation: reads of
// a single key must observe non-decreasing values.
func MonotonicKeyGraph(history History) (Anomalies, *DirectedGraph, DataExplainer) {
	keys := map[string]struct{}{}
	var graphs []*DirectedGraph
	for _, key := range history.FilterType(OpTypeOk).GetKeys(MopTypeRead) {
		if _, ok := keys[key]; !ok {
			keys[key] = struct{}{}
			graphs = append(graphs, MonotonicKeyOrder(history, key))
		}
	}
	return nil, DigraphUnion(graphs...), MonotonicKeyExplainer{}
}
