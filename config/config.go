// Package config holds the settings of a grid integration study.
package config

import (
	"path/filepath"

	"github.com/adrg/xdg"

	"grid-integration-study/cosim"
	"grid-integration-study/evaluate"
	"grid-integration-study/powerflow"
	"grid-integration-study/scenario"
)

const (
	// AppName is used for the XDG directories.
	AppName = "gridstudy"

	// DefaultNetworkClass is the synthetic grid of the study.
	DefaultNetworkClass = "rural_1"

	UnmodifiedArtifact = "UnmodifiedGrid.html"
	ModifiedArtifact   = "ModifiedGrid.html"
)

// CoSim configures the co-simulation bridge.
type CoSim struct {
	Enabled bool `yaml:"enabled"`
	// read DataFile only, the engine is not started
	SkipEngine bool     `yaml:"skip_engine"`
	Command    string   `yaml:"command"`
	Args       []string `yaml:"args"`
	Procedure  string   `yaml:"procedure"`
	WorkDir    string   `yaml:"work_dir"`
	DataFile   string   `yaml:"data_file"`
	Variable   string   `yaml:"variable"`
	// buses receiving the samples, in order
	Buses []int `yaml:"buses"`
}

// Config holds all options of a study run. Values come from NewConfig, then
// the YAML file, then CLI flags.
type Config struct {
	NetworkClass string `yaml:"network_class"`
	// JSON snapshot used instead of the synthetic grid
	NetworkFile string `yaml:"network_file"`

	// OutDir receives the HTML artifacts.
	OutDir string `yaml:"out_dir"`
	// MarkdownFile, if set, receives a Markdown report of both snapshots.
	MarkdownFile string `yaml:"markdown_file"`
	// Display prints the voltage profiles.
	Display bool `yaml:"display"`

	Limits    evaluate.Limits   `yaml:"limits"`
	PowerFlow powerflow.Options `yaml:"power_flow"`
	Base      scenario.Base     `yaml:"base"`
	Modified  scenario.Modified `yaml:"modified"`
	CoSim     CoSim             `yaml:"cosim"`

	// SaveToDB stores both evaluations in the history database under DBDir.
	SaveToDB bool   `yaml:"save"`
	DBDir    string `yaml:"db_dir"`

	Verbose bool `yaml:"verbose"`
}

// NewConfig returns the default study: rural_1 with the built-in modified grid.
func NewConfig() *Config {
	return &Config{
		NetworkClass: DefaultNetworkClass,
		OutDir:       ".",
		Display:      true,
		Limits:       evaluate.DefaultLimits(),
		PowerFlow:    powerflow.DefaultOptions(),
		Base:         scenario.DefaultBase(),
		Modified:     scenario.DefaultModified(),
		CoSim: CoSim{
			Command:   cosim.DefaultCommand,
			Args:      []string{"-batch"},
			Procedure: cosim.DefaultProcedure,
			WorkDir:   ".",
			DataFile:  cosim.DefaultDataFile,
			Variable:  cosim.DefaultVariable,
			Buses:     append([]int(nil), scenario.DefaultSampleBuses...),
		},
		DBDir: XDGDataDir(),
	}
}

// XDGDataDir returns the data directory, ~/.local/share/gridstudy on Linux.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the config directory, ~/.config/gridstudy on Linux.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate returns the first problem found.
func (c *Config) Validate() error {
	if c.NetworkClass == "" && c.NetworkFile == "" {
		return ErrNoNetwork
	}
	l := c.Limits
	if l.MaxLineLoadingPercent <= 0 || l.MaxTransformerLoadingPercent <= 0 ||
		l.MinBusVoltagePU <= 0 || l.MaxBusVoltagePU <= 0 {
		return ErrInvalidLimits
	}
	if l.MinBusVoltagePU >= l.MaxBusVoltagePU {
		return ErrInvertedVoltageBand
	}
	if c.Base.LineLengthFactor < 0 {
		return ErrInvalidLineLengthFactor
	}
	if c.Modified.CosPhi <= 0 || c.Modified.CosPhi > 1 {
		return ErrInvalidCosPhi
	}
	if c.PowerFlow.ToleranceMVA < 0 || c.PowerFlow.MaxIteration < 0 {
		return ErrInvalidSolverOptions
	}
	if c.CoSim.Enabled && len(c.CoSim.Buses) == 0 {
		return ErrNoSampleBuses
	}
	return nil
}
