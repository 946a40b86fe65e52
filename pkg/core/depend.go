package core

import (
	"fmt"
	"strings"
)

// DataExplainer is supplied by the client's analyzer: given a pair of
// transactions, it explains why the second depends on the first.
type DataExplainer interface {
	// ExplainPairData explains why b depends on a, or returns nil if it
	// doesn't.
	ExplainPairData(a, b Op) ExplainResult
	// RenderExplanation renders a previously computed ExplainResult as a
	// human-readable sentence naming the two operations preName, postName.
	RenderExplanation(result ExplainResult, preName, postName string) string
}

// DependType names the kind of dependency an ExplainResult documents.
type DependType string

// DependType enums, mirroring the Rel alphabet plus realtime/process/monotonic.
const (
	WWDepend        DependType = "ww"
	WRDepend        DependType = "wr"
	RWDepend        DependType = "rw"
	ProcessDepend   DependType = "process"
	RealtimeDepend  DependType = "realtime"
	MonotonicDepend DependType = "monotonic-key"
)

// ExplainResult is an opaque, analyzer-specific explanation of one edge.
type ExplainResult interface {
	Type() DependType
}

// CombinedExplainer composes several DataExplainers, returning the first
// non-nil explanation in order.
type CombinedExplainer struct {
	Explainers []DataExplainer
}

type combinedResult struct {
	explainer DataExplainer
	result    ExplainResult
}

func (c combinedResult) Type() DependType { return c.result.Type() }

// ExplainPairData tries each inner explainer in order.
func (c *CombinedExplainer) ExplainPairData(a, b Op) ExplainResult {
	for _, ex := range c.Explainers {
		if res := ex.ExplainPairData(a, b); res != nil {
			return combinedResult{explainer: ex, result: res}
		}
	}
	return nil
}

// RenderExplanation dispatches to whichever inner explainer produced result.
func (c *CombinedExplainer) RenderExplanation(result ExplainResult, a, b string) string {
	cr := result.(combinedResult)
	return cr.explainer.RenderExplanation(cr.result, a, b)
}

// processDependent documents a process-order edge.
type processDependent struct{ Process int }

func (processDependent) Type() DependType { return ProcessDepend }

// ProcessExplainer explains process-order edges: op a happened before op b
// on the same client process.
type ProcessExplainer struct{}

func (ProcessExplainer) ExplainPairData(a, b Op) ExplainResult {
	if a.Process == nil || b.Process == nil || a.Index == nil || b.Index == nil {
		return nil
	}
	if *a.Process == *b.Process && *a.Index < *b.Index {
		return processDependent{Process: *a.Process}
	}
	return nil
}

func (ProcessExplainer) RenderExplanation(result ExplainResult, preName, postName string) string {
	res := result.(processDependent)
	return fmt.Sprintf("process %d executed %s before %s", res.Process, preName, postName)
}

// realtimeDependent documents a realtime-order edge.
type realtimeDependent struct {
	preEnd    Op
	postStart Op
}

func (realtimeDependent) Type() DependType { return RealtimeDepend }

// RealtimeExplainer explains realtime-order edges: a's completion strictly
// precedes b's invocation in wall-clock/index order. invokeOf maps a
// completion Op to its own invocation Op, needed because the edge is
// recorded between completions but the ordering constraint is against the
// other operation's invocation.
type RealtimeExplainer struct {
	InvokeOf map[int]Op // keyed by completion index
}

func (r RealtimeExplainer) ExplainPairData(preEnd, postEnd Op) ExplainResult {
	if postEnd.Index == nil {
		return nil
	}
	postStart, ok := r.InvokeOf[*postEnd.Index]
	if !ok {
		postStart = postEnd
	}
	if preEnd.Index == nil || postStart.Index == nil {
		return nil
	}
	if *preEnd.Index < *postStart.Index {
		return realtimeDependent{preEnd: preEnd, postStart: postStart}
	}
	return nil
}

func (r RealtimeExplainer) RenderExplanation(result ExplainResult, preName, postName string) string {
	res := result.(realtimeDependent)
	s := fmt.Sprintf("%s completed at index %d, ", preName, *res.preEnd.Index)
	if !res.postStart.Time.IsZero() && !res.preEnd.Time.IsZero() && res.preEnd.Time.Before(res.postStart.Time) {
		s += fmt.Sprintf("%v just ", res.postStart.Time.Sub(res.preEnd.Time))
	}
	s += fmt.Sprintf("before the invocation of %s at index %d", postName, *res.postStart.Index)
	return s
}

// Step is one edge of a classified cycle, paired with its pair-explainer
// rendering.
type Step struct {
	From, To Vertex
	Label    Rel
	Result   ExplainResult
	// Predicate marks a step whose dependency came from a predicate (range)
	// read rather than a single-item read. Set by an upstream analyzer;
	// none of the analyzers in this repository do.
	Predicate bool
}

// Circle is a closed walk [v0, v1, ..., vn-1, v0], n >= 2, represented as
// its n constituent steps: Steps[i].To == Steps[i+1].From, and
// Steps[last].To == Steps[0].From.
type Circle struct {
	Steps []Step
}

// Vertices returns the n distinct vertices of the cycle, in walk order.
func (c Circle) Vertices() []Vertex {
	out := make([]Vertex, len(c.Steps))
	for i, s := range c.Steps {
		out[i] = s.From
	}
	return out
}

// Labels returns the edge label of every step, in walk order.
func (c Circle) Labels() []Rel {
	out := make([]Rel, len(c.Steps))
	for i, s := range c.Steps {
		out[i] = s.Label
	}
	return out
}

// CycleExplainerResult is a fully-classified, fully-explained cycle: it
// implements Anomaly.
type CycleExplainerResult struct {
	Circle Circle
	Steps  []Step
	Typ    string
}

// IAnomaly identifies this value as an Anomaly.
func (c CycleExplainerResult) IAnomaly() string { return c.Typ }

func (c CycleExplainerResult) String() string {
	return fmt.Sprintf("%s cycle over %d transactions", c.Typ, len(c.Circle.Steps))
}

// OpBinding names one transaction in a cycle explanation ("T0", "T1", ...).
type OpBinding struct {
	Operation Op
	Name      string
}

// CycleExplainer turns a Circle plus a pair-explainer into prose, in the
// "Let T0 = ..., T1 = ...; T0 < T1 because ...; ...; a contradiction!" form.
type CycleExplainer struct{}

// ExplainCycle resolves every step's ExplainResult via the pair-explainer.
func (c CycleExplainer) ExplainCycle(explainer DataExplainer, circle Circle) CycleExplainerResult {
	steps := make([]Step, len(circle.Steps))
	for i, s := range circle.Steps {
		s.Result = explainer.ExplainPairData(*s.From.Value, *s.To.Value)
		steps[i] = s
	}
	return CycleExplainerResult{Circle: Circle{Steps: steps}, Steps: steps}
}

// RenderCycleExplanation renders the full cycle explanation as prose.
func (c CycleExplainer) RenderCycleExplanation(explainer DataExplainer, cr CycleExplainerResult) string {
	var bindings []OpBinding
	for i, v := range cr.Circle.Vertices() {
		bindings = append(bindings, OpBinding{Operation: *v.Value, Name: fmt.Sprintf("T%d", i)})
	}

	var lines []string
	lines = append(lines, "Let:")
	for _, b := range bindings {
		lines = append(lines, fmt.Sprintf("  %s = %s", b.Name, b.Operation.String()))
	}

	var contradictions []string
	for i, s := range cr.Steps {
		preName := bindings[i].Name
		postName := bindings[(i+1)%len(bindings)].Name
		explanation := "no explanation available"
		if s.Result != nil {
			explanation = explainer.RenderExplanation(s.Result, preName, postName)
		}
		contradictions = append(contradictions, fmt.Sprintf("%s < %s, because %s", preName, postName, explanation))
	}
	for i := range contradictions {
		if i == len(contradictions)-1 {
			contradictions[i] = fmt.Sprintf("  - However, %s: a contradiction!", contradictions[i])
		} else {
			contradictions[i] = fmt.Sprintf("  - %s.", contradictions[i])
		}
	}

	return strings.Join(lines, "\n") + "\n\nThen:\n" + strings.Join(contradictions, "\n")
}

// Analyzer takes a history and returns the anomalies it noticed directly,
// the dependency graph it built, and a pair-explainer for that graph's
// edges.
type Analyzer func(history History) (Anomalies, *DirectedGraph, DataExplainer)

// Combine composes several analyzers into one: their graphs are unioned,
// their anomalies merged, and their explainers tried in order.
func Combine(analyzers ...Analyzer) Analyzer {
	return func(history History) (Anomalies, *DirectedGraph, DataExplainer) {
		combined := make(Anomalies)
		var graphs []*DirectedGraph
		var explainers []DataExplainer
		for _, analyze := range analyzers {
			anomalies, g, explainer := analyze(history)
			combined.Merge(anomalies)
			graphs = append(graphs, g)
			explainers = append(explainers, explainer)
		}
		return combined, DigraphUnion(graphs...), &CombinedExplainer{Explainers: explainers}
	}
}
