package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"grid-integration-study/evaluate"
)

// MarkdownWriter appends one section per evaluation to a Markdown document.
// The document title is written before the first section.
type MarkdownWriter struct {
	output  io.Writer
	heading string
	started bool
}

// NewMarkdownWriter creates a MarkdownWriter with a top level heading.
func NewMarkdownWriter(output io.Writer, heading string) *MarkdownWriter {
	return &MarkdownWriter{output: output, heading: heading}
}

func (w *MarkdownWriter) WriteEvaluation(title string, ev evaluate.Evaluation) (int, error) {
	md := markdown.NewMarkdown(w.output)
	if !w.started {
		md.H1(w.heading)
		md.PlainText("")
		w.started = true
	}
	md.H2(title)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Element", "Value", "Limit", "Status"},
		Rows: [][]string{
			w.row("Max. line loading", "line", ev.Line, "%"),
			w.row("Max. transformer loading", "trafo", ev.Transformer, "%"),
			w.row("Max. bus voltage", "bus", ev.MaxVoltage, "p.u."),
			w.row("Min. bus voltage", "bus", ev.MinVoltage, "p.u."),
		},
	})
	md.PlainText("")
	md.PlainTextf("Total generation capacity: **%.3f MW**", ev.TotalGenerationMW)
	md.PlainText("")

	if n := ev.Violations(); n > 0 {
		md.Cautionf("%d of 4 operating limits violated.", n)
	} else {
		md.Tip("All operating limits respected.")
	}
	md.PlainText("")

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) row(name, element string, m evaluate.Metric, unit string) []string {
	status := "OK"
	if m.Violated {
		status = "**" + Marker + "**"
	}
	return []string{
		name,
		element + " " + strconv.Itoa(m.Index),
		fmt.Sprintf("%.3f %s", m.Value, unit),
		fmt.Sprintf("%.3f %s", m.Limit, unit),
		status,
	}
}
