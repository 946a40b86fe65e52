// Package render materializes an analysis as files: a text report per
// reportable anomaly type, plus GraphViz drawings of every nontrivial SCC
// and every witness cycle. It is the only side-effectful consumer of the
// checker's output; the checker itself stays pure.
package render

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/pkg/errors"

	"github.com/jepsen-go/elle-core/pkg/anomaly"
	"github.com/jepsen-go/elle-core/pkg/core"
)

type record struct {
	name      string
	label     string
	height    float32
	color     string
	fontColor string
}

func (r record) String() string {
	return fmt.Sprintf(`%s [height=%.2f,shape=record,label="%s",color="%s",fontcolor="%s"]`, r.name, r.height, r.label, r.color, r.fontColor)
}

type edge struct {
	from      string
	to        string
	label     string
	color     string
	fontColor string
}

func (e edge) String() string {
	return fmt.Sprintf(`%s -> %s [label="%s",fontcolor="%s",color="%s"]`, e.from, e.to, e.label, e.color, e.fontColor)
}

var typeColor = map[core.OpType]string{
	core.OpTypeOk:   "#0058AD",
	core.OpTypeInfo: "#AC6E00",
	core.OpTypeFail: "#A50053",
}

func relColor(rel core.Rel) string {
	switch {
	case core.Contains(rel, core.WW):
		return "#C02700"
	case core.Contains(rel, core.WR):
		return "#C000A5"
	case core.Contains(rel, core.RW):
		return "#5B00C0"
	case core.Contains(rel, core.Realtime):
		return "#0050C0"
	case core.Contains(rel, core.Process):
		return "#00C0C0"
	default:
		return "#585858"
	}
}

func relLabel(rel core.Rel) string {
	return strings.Trim(rel.String(), "#{}")
}

func nodeName(g *core.DirectedGraph, v core.Vertex) string {
	if v.Value != nil && v.Value.Index != nil {
		return fmt.Sprintf("T%d", *v.Value.Index)
	}
	return fmt.Sprintf("n%d", g.Order(v))
}

func renderOp(g *core.DirectedGraph, v core.Vertex) record {
	var labels []string
	for idx, mop := range v.Value.Value {
		labels = append(labels, fmt.Sprintf("<f%d> %s", idx, mop.String()))
	}
	color, ok := typeColor[v.Value.Type]
	if !ok {
		color = "#585858"
	}
	return record{
		name:      nodeName(g, v),
		label:     strings.Join(labels, "|"),
		height:    0.4,
		color:     color,
		fontColor: color,
	}
}

func renderSCC(g *core.DirectedGraph, scc core.SCC) string {
	tpl := []string{"digraph g {"}

	inSCC := map[core.Vertex]struct{}{}
	for _, v := range scc.Vertices {
		inSCC[v] = struct{}{}
	}

	var nodes []record
	var edges []edge
	for _, v := range scc.Vertices {
		nodes = append(nodes, renderOp(g, v))
		for _, next := range g.Out(v) {
			if _, ok := inSCC[next]; !ok {
				continue
			}
			rel, _ := g.Edge(v, next)
			edges = append(edges, edge{
				from:      nodeName(g, v),
				to:        nodeName(g, next),
				label:     relLabel(rel),
				color:     relColor(rel),
				fontColor: relColor(rel),
			})
		}
	}

	for _, node := range nodes {
		tpl = append(tpl, fmt.Sprintf("    %s", node.String()))
	}
	tpl = append(tpl, "")
	for _, e := range edges {
		tpl = append(tpl, fmt.Sprintf("    %s", e.String()))
	}
	tpl = append(tpl, "}")
	return strings.Join(tpl, "\n")
}

func renderCircle(g *core.DirectedGraph, circle core.Circle) string {
	tpl := []string{"digraph g {"}
	for _, step := range circle.Steps {
		tpl = append(tpl, fmt.Sprintf("    %s", renderOp(g, step.From).String()))
	}
	tpl = append(tpl, "")
	for _, step := range circle.Steps {
		e := edge{
			from:      nodeName(g, step.From),
			to:        nodeName(g, step.To),
			label:     relLabel(step.Label),
			color:     relColor(step.Label),
			fontColor: relColor(step.Label),
		}
		tpl = append(tpl, fmt.Sprintf("    %s", e.String()))
	}
	tpl = append(tpl, "}")
	return strings.Join(tpl, "\n")
}

func renderSVG(gv *graphviz.Graphviz, dot, path string) error {
	graph, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return errors.Wrap(err, "parsing generated dot")
	}
	return errors.Wrapf(gv.RenderFilename(graph, graphviz.SVG, path), "rendering %s", path)
}

// anomalyReport renders one anomaly as text. Cycle witnesses get the full
// "Let ... a contradiction!" narrative; everything else prints itself.
func anomalyReport(explainer core.DataExplainer, a core.Anomaly) string {
	if cr, ok := a.(core.CycleExplainerResult); ok {
		return core.CycleExplainer{}.RenderCycleExplanation(explainer, cr)
	}
	return fmt.Sprintf("%v", a)
}

// WriteAnalysis writes the side-effect surface of one analysis under dir:
// one <type>.txt per reported anomaly type, an sccs/ directory of GraphViz
// drawings, and a <type>/ drawing directory per cycle-bearing type.
func WriteAnalysis(dir string, analysis anomaly.Analysis) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}
	gv := graphviz.New()

	for typ, cases := range analysis.Anomalies {
		var blocks []string
		for _, a := range cases {
			blocks = append(blocks, anomalyReport(analysis.Explainer, a))
		}
		content := strings.Join(blocks, "\n\n")
		if err := ioutil.WriteFile(filepath.Join(dir, typ+".txt"), []byte(content), 0644); err != nil {
			return errors.Wrapf(err, "writing %s report", typ)
		}

		typDir := filepath.Join(dir, typ)
		wrote := false
		for i, a := range cases {
			cr, ok := a.(core.CycleExplainerResult)
			if !ok {
				continue
			}
			if !wrote {
				if err := os.MkdirAll(typDir, 0755); err != nil {
					return errors.Wrapf(err, "creating %s directory", typ)
				}
				wrote = true
			}
			dot := renderCircle(analysis.Graph, cr.Circle)
			if err := renderSVG(gv, dot, filepath.Join(typDir, fmt.Sprintf("%d.svg", i))); err != nil {
				return err
			}
		}
	}

	sccDir := filepath.Join(dir, "sccs")
	wroteSCC := false
	for i, scc := range analysis.SCCs {
		if !scc.HasNontrivialCycle(analysis.Graph) {
			continue
		}
		if !wroteSCC {
			if err := os.MkdirAll(sccDir, 0755); err != nil {
				return errors.Wrap(err, "creating sccs directory")
			}
			wroteSCC = true
		}
		dot := renderSCC(analysis.Graph, scc)
		if err := renderSVG(gv, dot, filepath.Join(sccDir, fmt.Sprintf("%d.svg", i))); err != nil {
			return err
		}
	}
	return nil
}
