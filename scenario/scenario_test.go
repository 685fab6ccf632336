package scenario

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grid-integration-study/cosim"
	"grid-integration-study/evaluate"
	"grid-integration-study/network"
	"grid-integration-study/powerflow"
)

func rural1(t *testing.T) *network.Net {
	t.Helper()
	n, err := network.Synthetic("rural_1")
	require.NoError(t, err)
	return n
}

func TestPrepareBase(t *testing.T) {
	n := rural1(t)
	lengths := make([]float64, len(n.Lines))
	for i, l := range n.Lines {
		lengths[i] = l.LengthKM
	}
	before := len(n.Sgens)

	ends, err := PrepareBase(n, DefaultBase())
	require.NoError(t, err)

	assert.Equal(t, []int{3, 11, 25}, ends)
	assert.Equal(t, "0.63 MVA 20/0.4 kV", n.Transformers[0].StdType)
	assert.Equal(t, 0.63, n.Transformers[0].SnMVA)
	for i, l := range n.Lines {
		assert.InDelta(t, 3*lengths[i], l.LengthKM, 1e-12)
	}
	require.Len(t, n.Sgens, before+3)
	for _, s := range n.Sgens[before:] {
		assert.Zero(t, s.PMW)
		assert.Zero(t, s.QMVar)
		assert.Contains(t, ends, s.Bus)
	}
	assert.Equal(t, "NewGen at bus 25", n.Sgens[len(n.Sgens)-1].Name)
	assert.Equal(t, "Old Sgen at bus 8", n.Sgens[0].Name)
}

func TestPrepareBaseWithoutPlaceholders(t *testing.T) {
	n := rural1(t)
	before := len(n.Sgens)
	b := DefaultBase()
	b.PlaceholderGenerators = false

	ends, err := PrepareBase(n, b)
	require.NoError(t, err)
	assert.Empty(t, ends)
	assert.Len(t, n.Sgens, before)
}

func TestPrepareBaseUnknownTrafo(t *testing.T) {
	b := DefaultBase()
	b.TransformerStdType = "1 MVA 110/20 kV"

	_, err := PrepareBase(rural1(t), b)
	assert.ErrorIs(t, err, network.ErrUnknownStdType)
}

func TestPrepareBaseLineChanges(t *testing.T) {
	n := rural1(t)
	b := DefaultBase()
	b.LineStdTypes = []LineStdType{{Line: 1, StdType: "NAYY 4x50 SE"}}
	b.OutOfServiceLines = []int{2}

	_, err := PrepareBase(n, b)
	require.NoError(t, err)
	assert.Equal(t, "NAYY 4x50 SE", n.Lines[1].StdType)
	assert.Equal(t, 0.142, n.Lines[1].MaxIKA)
	assert.Equal(t, "NAYY 4x150 SE", n.Lines[0].StdType)
	assert.False(t, n.Lines[2].InService)
	assert.True(t, n.Lines[1].InService)
}

func TestPrepareBaseLineChangeErrors(t *testing.T) {
	b := DefaultBase()
	b.LineStdTypes = []LineStdType{{Line: 1, StdType: "NAYY 9x9"}}
	_, err := PrepareBase(rural1(t), b)
	assert.ErrorIs(t, err, network.ErrUnknownStdType)

	b = DefaultBase()
	b.OutOfServiceLines = []int{99}
	_, err = PrepareBase(rural1(t), b)
	assert.ErrorIs(t, err, network.ErrNoSuchElement)
}

func TestApplyModified(t *testing.T) {
	n := rural1(t)
	_, err := PrepareBase(n, DefaultBase())
	require.NoError(t, err)
	loads := len(n.Loads)

	require.NoError(t, ApplyModified(n, DefaultModified()))

	assert.InDelta(t, 0.565, n.TotalSgenPMW(), 1e-12)
	for _, s := range n.Sgens {
		if s.Bus == 3 {
			assert.InDelta(t, 0.065, s.PMW, 1e-12)
			assert.InDelta(t, -0.021364, s.QMVar, 1e-6)
		}
	}
	require.Len(t, n.Loads, loads+2)
	assert.Equal(t, network.Load{Index: loads, Name: "storage1", Bus: 6, PMW: 0.08}, n.Loads[loads])
	assert.Equal(t, "storage2", n.Loads[loads+1].Name)
	assert.Equal(t, 16, n.Loads[loads+1].Bus)
	assert.Equal(t, 1, n.Transformers[0].TapPos)
}

func TestApplyModifiedNeedsPlaceholders(t *testing.T) {
	// bus 3 carries no generator before the base preparation
	err := ApplyModified(rural1(t), DefaultModified())
	assert.ErrorIs(t, err, network.ErrNoSuchElement)
}

func TestApplyModifiedTapOutOfRange(t *testing.T) {
	n := rural1(t)
	_, err := PrepareBase(n, DefaultBase())
	require.NoError(t, err)
	m := DefaultModified()
	m.TapPos = 7

	assert.ErrorIs(t, ApplyModified(n, m), network.ErrTapOutOfRange)
}

func TestApplySamples(t *testing.T) {
	samples := []cosim.ActivePowerSample{{Value: 0.061}, {Value: 0.052}, {Value: 0.043}, {Value: 1}}
	m := DefaultModified()

	out, err := ApplySamples(m, samples[:2], DefaultSampleBuses)
	require.Error(t, err)
	assert.Equal(t, m, out)

	out, err = ApplySamples(m, samples, DefaultSampleBuses)
	require.NoError(t, err)
	assert.Equal(t, PVSetpoint{Bus: 3, PMW: 0.061}, out.PV[0])
	assert.Equal(t, PVSetpoint{Bus: 8, PMW: 0.052}, out.PV[1])
	assert.Equal(t, PVSetpoint{Bus: 9, PMW: 0.043}, out.PV[2])
	assert.Equal(t, PVSetpoint{Bus: 3, PMW: 0.065}, m.PV[0], "input must not change")

	out, err = ApplySamples(m, samples, []int{2})
	require.NoError(t, err)
	assert.Equal(t, PVSetpoint{Bus: 2, PMW: 0.061}, out.PV[len(out.PV)-1])
}

func TestModifiedGridStudy(t *testing.T) {
	solver := powerflow.NewSolver(powerflow.DefaultOptions(), zerolog.Nop())
	n := rural1(t)
	_, err := PrepareBase(n, DefaultBase())
	require.NoError(t, err)
	require.NoError(t, solver.Run(n))
	baseline, err := evaluate.Evaluate(n, evaluate.DefaultLimits())
	require.NoError(t, err)
	vmBase := n.ResBuses[25].VmPU

	m := DefaultModified()
	m.TapPos = 0
	neutral := n.Clone()
	require.NoError(t, ApplyModified(neutral, m))
	require.NoError(t, solver.Run(neutral))
	assert.Greater(t, neutral.ResBuses[25].VmPU, vmBase)

	require.NoError(t, ApplyModified(n, DefaultModified()))
	require.NoError(t, solver.Run(n))
	modified, err := evaluate.Evaluate(n, evaluate.DefaultLimits())
	require.NoError(t, err)

	assert.Less(t, n.ResBuses[25].VmPU, neutral.ResBuses[25].VmPU)
	assert.Greater(t, modified.TotalGenerationMW, baseline.TotalGenerationMW)
	assert.Greater(t, modified.Line.Value, baseline.Line.Value)
	assert.Greater(t, modified.Violations(), 0)
}
