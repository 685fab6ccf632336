// Package evaluate checks solved power-flow results against operating limits.
//
// Evaluate is a pure function of the snapshot: for line loading, transformer
// loading, maximum and minimum bus voltage it finds the extremum, picks the
// lowest element index among ties and flags a violation with strict comparisons.
package evaluate

import (
	"fmt"
	"math"

	"grid-integration-study/table"
)

// Limits are the operating limits of a study. Comparisons are strict: a value
// exactly on a limit is not a violation.
type Limits struct {
	MaxLineLoadingPercent        float64 `yaml:"max_line_loading_percent"`
	MaxTransformerLoadingPercent float64 `yaml:"max_transformer_loading_percent"`
	MinBusVoltagePU              float64 `yaml:"min_bus_voltage_pu"`
	MaxBusVoltagePU              float64 `yaml:"max_bus_voltage_pu"`
}

// DefaultLimits returns 60 % branch loading and a 0.97-1.06 p.u. voltage band.
func DefaultLimits() Limits {
	return Limits{
		MaxLineLoadingPercent:        60.0,
		MaxTransformerLoadingPercent: 60.0,
		MinBusVoltagePU:              0.97,
		MaxBusVoltagePU:              1.06,
	}
}

// Kind names an evaluated metric.
type Kind string

const (
	LineLoading        Kind = "line_loading"
	TransformerLoading Kind = "transformer_loading"
	MaxBusVoltage      Kind = "max_bus_voltage"
	MinBusVoltage      Kind = "min_bus_voltage"
)

// Metric is the worst element for one kind.
type Metric struct {
	Kind     Kind
	Index    int
	Value    float64
	Limit    float64
	Violated bool
}

// Evaluation is the outcome for one snapshot.
type Evaluation struct {
	Line        Metric
	Transformer Metric
	MaxVoltage  Metric
	MinVoltage  Metric
	// sum of all static generator setpoints, zero-valued ones included
	TotalGenerationMW float64
}

// Indices are the offending element indices.
type Indices struct {
	Line          int
	Transformer   int
	MaxVoltageBus int
	MinVoltageBus int
}

// Indices returns the element indices of the four metrics.
func (e Evaluation) Indices() Indices {
	return Indices{
		Line:          e.Line.Index,
		Transformer:   e.Transformer.Index,
		MaxVoltageBus: e.MaxVoltage.Index,
		MinVoltageBus: e.MinVoltage.Index,
	}
}

// Metrics returns the four metrics in report order.
func (e Evaluation) Metrics() []Metric {
	return []Metric{e.Line, e.Transformer, e.MaxVoltage, e.MinVoltage}
}

// Violations counts violated metrics.
func (e Evaluation) Violations() int {
	n := 0
	for _, m := range e.Metrics() {
		if m.Violated {
			n++
		}
	}
	return n
}

// PreconditionError means the snapshot carries no usable results, usually
// because no power flow converged since the last mutation.
type PreconditionError struct {
	Table  table.Name
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("cannot evaluate %s: %s", e.Table, e.Reason)
}

// Evaluate computes the worst line, transformer and bus voltage figures.
func Evaluate(src table.Source, limits Limits) (Evaluation, error) {
	var ev Evaluation
	var err error

	ev.Line, err = extremum(src, table.ResLine, table.LoadingPercent, true)
	if err != nil {
		return Evaluation{}, err
	}
	ev.Line.Kind = LineLoading
	ev.Line.Limit = limits.MaxLineLoadingPercent
	ev.Line.Violated = ev.Line.Value > limits.MaxLineLoadingPercent

	ev.Transformer, err = extremum(src, table.ResTrafo, table.LoadingPercent, true)
	if err != nil {
		return Evaluation{}, err
	}
	ev.Transformer.Kind = TransformerLoading
	ev.Transformer.Limit = limits.MaxTransformerLoadingPercent
	ev.Transformer.Violated = ev.Transformer.Value > limits.MaxTransformerLoadingPercent

	ev.MaxVoltage, err = extremum(src, table.ResBus, table.VmPU, true)
	if err != nil {
		return Evaluation{}, err
	}
	ev.MaxVoltage.Kind = MaxBusVoltage
	ev.MaxVoltage.Limit = limits.MaxBusVoltagePU
	ev.MaxVoltage.Violated = ev.MaxVoltage.Value > limits.MaxBusVoltagePU

	ev.MinVoltage, err = extremum(src, table.ResBus, table.VmPU, false)
	if err != nil {
		return Evaluation{}, err
	}
	ev.MinVoltage.Kind = MinBusVoltage
	ev.MinVoltage.Limit = limits.MinBusVoltagePU
	ev.MinVoltage.Violated = ev.MinVoltage.Value < limits.MinBusVoltagePU

	for _, r := range src.Rows(table.Sgen) {
		p, ok := r.Value(table.PMW)
		if !ok || math.IsNaN(p) {
			return Evaluation{}, &PreconditionError{Table: table.Sgen, Reason: fmt.Sprintf("row %d has no %s", r.Index, table.PMW)}
		}
		ev.TotalGenerationMW += p
	}
	return ev, nil
}

// extremum returns the row with the largest (or smallest) attribute value. Ties
// go to the lowest index.
func extremum(src table.Source, name table.Name, key string, largest bool) (Metric, error) {
	rows := src.Rows(name)
	if len(rows) == 0 {
		return Metric{}, &PreconditionError{Table: name, Reason: "table is empty"}
	}
	var best Metric
	for i, r := range rows {
		v, ok := r.Value(key)
		if !ok || math.IsNaN(v) {
			return Metric{}, &PreconditionError{Table: name, Reason: fmt.Sprintf("row %d has no %s", r.Index, key)}
		}
		if i == 0 {
			best = Metric{Index: r.Index, Value: v}
			continue
		}
		better := v > best.Value
		if !largest {
			better = v < best.Value
		}
		if better || (v == best.Value && r.Index < best.Index) {
			best = Metric{Index: r.Index, Value: v}
		}
	}
	return best, nil
}
