// Package scenario holds the mutations of the grid integration study: the
// base preparation of the synthetic grid and the modified grid with PV
// setpoints, storage loads and a new tap position.
package scenario

import (
	"fmt"

	"grid-integration-study/cosim"
	"grid-integration-study/network"
)

// Base describes the preparation of the unmodified grid.
type Base struct {
	TransformerIndex   int     `yaml:"transformer_index"`
	TransformerStdType string  `yaml:"transformer_std_type"`
	LineLengthFactor   float64 `yaml:"line_length_factor"`
	// zero-valued generators at every feeder end without one
	PlaceholderGenerators bool `yaml:"placeholder_generators"`
	// cable exchanges, applied before the length scaling
	LineStdTypes []LineStdType `yaml:"line_std_types"`
	// lines switched off, e.g. open tie lines of an imported meshed grid
	OutOfServiceLines []int `yaml:"out_of_service_lines"`
}

// LineStdType exchanges the cable of one line.
type LineStdType struct {
	Line    int    `yaml:"line"`
	StdType string `yaml:"std_type"`
}

// DefaultBase exchanges the transformer for a 0.63 MVA unit and triples all
// line lengths.
func DefaultBase() Base {
	return Base{
		TransformerIndex:      0,
		TransformerStdType:    "0.63 MVA 20/0.4 kV",
		LineLengthFactor:      3.0,
		PlaceholderGenerators: true,
	}
}

// PrepareBase applies b to net and returns the buses that received a
// placeholder generator.
func PrepareBase(net *network.Net, b Base) ([]int, error) {
	for i := range net.Sgens {
		net.Sgens[i].Name = fmt.Sprintf("Old Sgen at bus %d", net.Sgens[i].Bus)
	}
	if b.TransformerStdType != "" {
		if err := net.ChangeTrafoStdType(b.TransformerIndex, b.TransformerStdType); err != nil {
			return nil, fmt.Errorf("exchange transformer: %w", err)
		}
	}
	for _, lt := range b.LineStdTypes {
		if err := net.ChangeLineStdType(lt.Line, lt.StdType); err != nil {
			return nil, fmt.Errorf("exchange cable: %w", err)
		}
	}
	for _, line := range b.OutOfServiceLines {
		if err := net.SetLineInService(line, false); err != nil {
			return nil, fmt.Errorf("switch line: %w", err)
		}
	}
	if b.LineLengthFactor > 0 && b.LineLengthFactor != 1 {
		net.ScaleLineLengths(b.LineLengthFactor)
	}
	if !b.PlaceholderGenerators {
		return nil, nil
	}
	ends := net.FeederEndBuses()
	for _, bus := range ends {
		if _, err := net.CreateSgen(bus, 0, 0, fmt.Sprintf("NewGen at bus %d", bus)); err != nil {
			return nil, err
		}
	}
	return ends, nil
}

// PVSetpoint is the active power of the generators at a bus.
type PVSetpoint struct {
	Bus int     `yaml:"bus"`
	PMW float64 `yaml:"p_mw"`
}

// StorageLoad is a storage unit modelled as a charging load.
type StorageLoad struct {
	Name string  `yaml:"name"`
	Bus  int     `yaml:"bus"`
	PMW  float64 `yaml:"p_mw"`
}

// Modified describes the modified grid.
type Modified struct {
	// power factor of all PV inverters, underexcited
	CosPhi           float64       `yaml:"cos_phi"`
	PV               []PVSetpoint  `yaml:"pv"`
	Storage          []StorageLoad `yaml:"storage"`
	TransformerIndex int           `yaml:"transformer_index"`
	TapPos           int           `yaml:"tap_pos"`
}

// DefaultModified is the modified grid of the study: PV on the left feeder
// end, the middle feeder and the right feeder tail, storage in the middle and
// right feeders and the transformer on tap 1.
func DefaultModified() Modified {
	return Modified{
		CosPhi: 0.95,
		PV: []PVSetpoint{
			{Bus: 3, PMW: 0.065},
			{Bus: 8, PMW: 0.065},
			{Bus: 9, PMW: 0.055},
			{Bus: 10, PMW: 0.055},
			{Bus: 11, PMW: 0.045},
			{Bus: 19, PMW: 0.045},
			{Bus: 20, PMW: 0.045},
			{Bus: 21, PMW: 0.045},
			{Bus: 22, PMW: 0.045},
			{Bus: 23, PMW: 0.040},
			{Bus: 24, PMW: 0.030},
			{Bus: 25, PMW: 0.030},
		},
		Storage: []StorageLoad{
			{Name: "storage1", Bus: 6, PMW: 0.08},
			{Name: "storage2", Bus: 16, PMW: 0.12},
		},
		TransformerIndex: 0,
		TapPos:           1,
	}
}

// ApplyModified sets the PV setpoints with reactive power for m.CosPhi, adds
// the storage loads and moves the tap changer.
func ApplyModified(net *network.Net, m Modified) error {
	if m.CosPhi <= 0 || m.CosPhi > 1 {
		return fmt.Errorf("cos phi %v not in (0, 1]", m.CosPhi)
	}
	for _, pv := range m.PV {
		if err := net.SetSgenPower(pv.Bus, pv.PMW, network.QForCosPhi(pv.PMW, m.CosPhi)); err != nil {
			return fmt.Errorf("pv setpoint: %w", err)
		}
	}
	for _, s := range m.Storage {
		if _, err := net.CreateLoad(s.Bus, s.PMW, 0, s.Name); err != nil {
			return fmt.Errorf("storage %s: %w", s.Name, err)
		}
	}
	if err := net.SetTapPos(m.TransformerIndex, m.TapPos); err != nil {
		return fmt.Errorf("tap position: %w", err)
	}
	return nil
}

// DefaultSampleBuses receive the first co-simulation samples.
var DefaultSampleBuses = []int{3, 8, 9}

// ApplySamples returns a copy of m whose PV setpoints at buses are replaced,
// in order, by the values of samples.
func ApplySamples(m Modified, samples []cosim.ActivePowerSample, buses []int) (Modified, error) {
	if len(samples) < len(buses) {
		return m, fmt.Errorf("%d samples for %d buses", len(samples), len(buses))
	}
	out := m
	out.PV = append([]PVSetpoint(nil), m.PV...)
	for i, bus := range buses {
		p := samples[i].Value
		found := false
		for k := range out.PV {
			if out.PV[k].Bus == bus {
				out.PV[k].PMW = p
				found = true
			}
		}
		if !found {
			out.PV = append(out.PV, PVSetpoint{Bus: bus, PMW: p})
		}
	}
	return out, nil
}
