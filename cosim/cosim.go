// Package cosim exchanges active-power time series with an external
// simulation engine through a MAT-file.
package cosim

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Defaults of the PV array co-simulation.
const (
	DefaultCommand   = "matlab"
	DefaultProcedure = "ini_PVArrayGridAverageModel_new_sim"
	DefaultDataFile  = "activePowerData.mat"
	DefaultVariable  = "activePower"
)

// ActivePowerSample is one time step of the engine output.
type ActivePowerSample struct {
	// position in row order
	Index int
	Raw   float64
	// Raw truncated to an integer and divided by 1000
	Value float64
}

// Bridge runs an external simulation and returns its samples.
type Bridge interface {
	Run(ctx context.Context) ([]ActivePowerSample, error)
}

// DataExchangeError reports a failed exchange with the engine: the engine
// failed, or its data file is missing or malformed.
type DataExchangeError struct {
	Op   string
	Path string
	Err  error
}

func (e *DataExchangeError) Error() string {
	return fmt.Sprintf("co-simulation %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *DataExchangeError) Unwrap() error {
	return e.Err
}

// EngineBridge runs a procedure of the engine in batch mode and reads the
// variable it leaves in DataFile.
type EngineBridge struct {
	Command   string
	Args      []string
	Procedure string
	// working directory of the engine, DataFile is resolved against it
	Dir      string
	DataFile string
	Variable string
	Logger   zerolog.Logger
}

// NewEngineBridge returns a bridge running "matlab -batch <procedure>" in dir.
func NewEngineBridge(dir string, logger zerolog.Logger) *EngineBridge {
	return &EngineBridge{
		Command:   DefaultCommand,
		Args:      []string{"-batch"},
		Procedure: DefaultProcedure,
		Dir:       dir,
		DataFile:  DefaultDataFile,
		Variable:  DefaultVariable,
		Logger:    logger,
	}
}

func (b *EngineBridge) Run(ctx context.Context) ([]ActivePowerSample, error) {
	args := append(append([]string(nil), b.Args...), b.Procedure)
	cmd := exec.CommandContext(ctx, b.Command, args...)
	cmd.Dir = b.Dir

	b.Logger.Info().Str("command", b.Command).Str("procedure", b.Procedure).Msg("starting simulation engine")
	out, err := cmd.CombinedOutput()
	if err != nil {
		if msg := bytes.TrimSpace(out); len(msg) > 0 {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, &DataExchangeError{Op: "run", Path: b.Command, Err: err}
	}
	b.Logger.Debug().Int("output_bytes", len(out)).Msg("simulation engine finished")

	path := b.DataFile
	if !filepath.IsAbs(path) && b.Dir != "" {
		path = filepath.Join(b.Dir, path)
	}
	return ReadSamples(path, b.Variable)
}

// FileBridge reads samples an earlier engine run left behind.
type FileBridge struct {
	Path     string
	Variable string
}

func (b *FileBridge) Run(ctx context.Context) ([]ActivePowerSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, &DataExchangeError{Op: "read", Path: b.Path, Err: err}
	}
	return ReadSamples(b.Path, b.Variable)
}

// ReadSamples reads variable from the MAT-file at path.
func ReadSamples(path, variable string) ([]ActivePowerSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DataExchangeError{Op: "read", Path: path, Err: err}
	}
	defer f.Close()

	vars, err := ReadMAT(f)
	if err != nil {
		return nil, &DataExchangeError{Op: "read", Path: path, Err: err}
	}
	a, ok := vars[variable]
	if !ok {
		return nil, &DataExchangeError{Op: "read", Path: path, Err: fmt.Errorf("variable %q not found", variable)}
	}
	samples, err := Samples(a)
	if err != nil {
		return nil, &DataExchangeError{Op: "read", Path: path, Err: err}
	}
	return samples, nil
}

// Samples flattens an array in row order. A cell array contributes the first
// value of every cell, a numeric array every value.
func Samples(a *Array) ([]ActivePowerSample, error) {
	rows, cols := a.Rows(), a.Cols()
	samples := make([]ActivePowerSample, 0, a.Len())
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			k := c*rows + r
			var v float64
			switch {
			case a.Class == ClassCell:
				cell := a.Cells[k]
				if len(cell.Real) == 0 {
					return nil, fmt.Errorf("cell (%d,%d) of %q holds no number", r, c, a.Name)
				}
				v = cell.Real[0]
			case a.Class.numeric():
				v = a.Real[k]
			default:
				return nil, fmt.Errorf("%q has unsupported class %d", a.Name, a.Class)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("cell (%d,%d) of %q is %v", r, c, a.Name, v)
			}
			samples = append(samples, ActivePowerSample{
				Index: len(samples),
				Raw:   v,
				Value: math.Trunc(v) / 1000,
			})
		}
	}
	return samples, nil
}
