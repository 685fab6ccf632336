// Package report prints constraint evaluations and drives the evaluate,
// render and write cycle for a solved snapshot.
package report

import (
	"fmt"
	"io"
	"strings"

	"grid-integration-study/evaluate"
)

// Writer outputs one evaluated snapshot.
type Writer interface {
	// WriteEvaluation writes the report of one snapshot under title.
	// Returns the number of bytes written.
	WriteEvaluation(title string, ev evaluate.Evaluation) (int, error)
}

// MultiWriter writes to several Writers in order and stops on the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer fanning out to writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

func (m *MultiWriter) WriteEvaluation(title string, ev evaluate.Evaluation) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteEvaluation(title, ev)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Marker is printed after a metric that violates its limit.
const Marker = "NOT OK!"

func marker(m evaluate.Metric) string {
	if m.Violated {
		return Marker
	}
	return ""
}

// TextWriter prints the fixed-width console report.
type TextWriter struct {
	output io.Writer
}

// NewTextWriter creates a TextWriter that outputs to w.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{output: w}
}

func (w *TextWriter) WriteEvaluation(title string, ev evaluate.Evaluation) (int, error) {
	return io.WriteString(w.output, FormatText(title, ev))
}

// FormatText renders the summary block followed by one line per metric. A
// non-empty title is printed first between two rules.
func FormatText(title string, ev evaluate.Evaluation) string {
	s := ""
	if title != "" {
		rule := strings.Repeat("-", len(title))
		s += rule + "\n" + title + "\n" + rule + "\n\n"
	}
	s += fmt.Sprintf("Max.  line loading \t\t\t %.3f %%\n", ev.Line.Value)
	s += fmt.Sprintf("Max.  transformer loading \t %.3f %%\n", ev.Transformer.Value)
	s += fmt.Sprintf("Max.  bus voltage \t\t\t %.3f p.u.\n", ev.MaxVoltage.Value)
	s += fmt.Sprintf("Min.  bus voltage \t\t\t %.3f p.u.\n", ev.MinVoltage.Value)
	s += fmt.Sprintf("Total generation capacity \t %.3f MW\n", ev.TotalGenerationMW)
	s += "\n"
	s += fmt.Sprintf("Line        with index %d has maximum loading of \t%.3f%% \t%s\n",
		ev.Line.Index, ev.Line.Value, marker(ev.Line))
	s += fmt.Sprintf("Transformer with index %d has maximum loading of \t%.3f%% \t%s\n",
		ev.Transformer.Index, ev.Transformer.Value, marker(ev.Transformer))
	s += fmt.Sprintf("Bus         with index %d has maximum voltage of \t%.3f p.u. \t%s\n",
		ev.MaxVoltage.Index, ev.MaxVoltage.Value, marker(ev.MaxVoltage))
	s += fmt.Sprintf("Bus         with index %d has minimum voltage of \t%.3f p.u. \t%s\n",
		ev.MinVoltage.Index, ev.MinVoltage.Value, marker(ev.MinVoltage))
	return s + "\n"
}
