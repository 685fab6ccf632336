package report

import (
	"fmt"

	"github.com/rs/zerolog"

	"grid-integration-study/evaluate"
	"grid-integration-study/network"
	"grid-integration-study/visual"
)

// Reporter evaluates solved snapshots against fixed limits, writes the report
// and renders the snapshot.
type Reporter struct {
	limits   evaluate.Limits
	renderer visual.Renderer
	writer   Writer
	logger   zerolog.Logger
}

// NewReporter creates a Reporter. A nil renderer renders nothing.
func NewReporter(limits evaluate.Limits, renderer visual.Renderer, logger zerolog.Logger, writers ...Writer) *Reporter {
	if renderer == nil {
		renderer = visual.Nop{}
	}
	return &Reporter{
		limits:   limits,
		renderer: renderer,
		writer:   NewMultiWriter(writers...),
		logger:   logger,
	}
}

// EvaluateAndReport evaluates net, writes the report under title, renders the
// topology to artifactPath and the voltage profile to the display. The
// snapshot is not modified. Evaluation.Indices gives the offending elements.
func (r *Reporter) EvaluateAndReport(title string, net *network.Net, artifactPath string) (evaluate.Evaluation, error) {
	ev, err := evaluate.Evaluate(net, r.limits)
	if err != nil {
		return evaluate.Evaluation{}, err
	}
	if _, err := r.writer.WriteEvaluation(title, ev); err != nil {
		return ev, fmt.Errorf("write report: %w", err)
	}
	if err := r.renderer.RenderToFile(net, artifactPath); err != nil {
		return ev, fmt.Errorf("render artifact: %w", err)
	}
	if err := r.renderer.RenderToDisplay(net); err != nil {
		return ev, fmt.Errorf("render display: %w", err)
	}

	r.logger.Info().
		Str("snapshot", title).
		Str("artifact", artifactPath).
		Int("violations", ev.Violations()).
		Float64("max_line_loading", ev.Line.Value).
		Float64("max_vm_pu", ev.MaxVoltage.Value).
		Float64("min_vm_pu", ev.MinVoltage.Value).
		Msg("snapshot evaluated")
	return ev, nil
}
