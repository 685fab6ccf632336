package powerflow

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grid-integration-study/network"
)

// twoBus is a 0.4 kV slack bus feeding a resistive line with a load at its end.
func twoBus(t *testing.T, loadMW float64) *network.Net {
	t.Helper()
	n := network.New("two bus")
	a := n.CreateBus(0.4, "source")
	b := n.CreateBus(0.4, "load")
	_, err := n.CreateExtGrid(a, 1.0)
	require.NoError(t, err)
	_, err = n.CreateLineFromParameters(a, b, 0.1, 0.2, 0, 0, 0.2, "")
	require.NoError(t, err)
	_, err = n.CreateLoad(b, loadMW, 0, "load")
	require.NoError(t, err)
	return n
}

func newTestSolver() *Solver {
	return NewSolver(DefaultOptions(), zerolog.Nop())
}

func TestTwoBusMatchesAnalyticSolution(t *testing.T) {
	n := twoBus(t, 0.1)
	require.NoError(t, newTestSolver().Run(n))

	// V(1-V)/R = P with R = 0.02 ohm / 0.16 ohm
	r, p := 0.125, 0.1
	want := (1 + math.Sqrt(1-4*p*r)) / 2

	require.Len(t, n.ResBuses, 2)
	assert.InDelta(t, 1.0, n.ResBuses[0].VmPU, 1e-12)
	assert.InDelta(t, want, n.ResBuses[1].VmPU, 1e-8)
	assert.InDelta(t, 0, n.ResBuses[1].VaDegree, 1e-8)
	assert.InDelta(t, 0.1, n.ResBuses[1].PMW, 1e-8)

	iKA := p / want / (math.Sqrt(3) * 0.4)
	require.Len(t, n.ResLines, 1)
	assert.InDelta(t, iKA, n.ResLines[0].IFromKA, 1e-8)
	assert.InDelta(t, iKA, n.ResLines[0].IToKA, 1e-8)
	assert.InDelta(t, iKA/0.2*100, n.ResLines[0].LoadingPercent, 1e-6)
}

func TestNoSolutionIsSolveError(t *testing.T) {
	n := twoBus(t, 5)
	err := newTestSolver().Run(n)

	var se *SolveError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.False(t, n.HasResults())
}

func TestMissingExtGrid(t *testing.T) {
	n := network.New("floating")
	a := n.CreateBus(0.4, "a")
	b := n.CreateBus(0.4, "b")
	_, err := n.CreateLine(a, b, 0.1, "NAYY 4x150 SE", "")
	require.NoError(t, err)

	err = newTestSolver().Run(n)
	var se *SolveError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Error(), "no external grid")
}

func TestIsolatedBus(t *testing.T) {
	n := twoBus(t, 0.01)
	n.CreateBus(0.4, "island")

	err := newTestSolver().Run(n)
	var se *SolveError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Reason, "isolated")
}

func TestAdmittanceRowsSumToShunts(t *testing.T) {
	n := network.New("pi")
	a := n.CreateBus(0.4, "a")
	b := n.CreateBus(0.4, "b")
	_, err := n.CreateLine(a, b, 0.3, "NAYY 4x150 SE", "")
	require.NoError(t, err)

	m, err := newModel(n)
	require.NoError(t, err)
	require.Len(t, m.branches, 1)
	br := m.branches[0]

	for i := 0; i < m.y.Size(); i++ {
		var sum complex128
		for k := 0; k < m.y.Size(); k++ {
			sum += m.y.At(i, k)
		}
		assert.InDelta(t, 0, cmplx.Abs(sum-br.ShuntFrom), 1e-12)
	}
	assert.Equal(t, m.y.At(0, 1), m.y.At(1, 0))
}

func TestTransformerTapRatio(t *testing.T) {
	n, err := network.Synthetic("rural_1")
	require.NoError(t, err)
	require.NoError(t, n.SetTapPos(0, 1))

	m, err := newModel(n)
	require.NoError(t, err)
	var tr Branch
	for _, br := range m.branches {
		if br.kind == "trafo" {
			tr = br
		}
	}
	assert.InDelta(t, 1.025, tr.Ratio, 1e-12)
	assert.Equal(t, m.pos[0], tr.From)
	assert.Equal(t, m.pos[1], tr.To)
}

func TestRural1Converges(t *testing.T) {
	n, err := network.Synthetic("rural_1")
	require.NoError(t, err)
	require.NoError(t, newTestSolver().Run(n))

	require.Len(t, n.ResBuses, len(n.Buses))
	require.Len(t, n.ResLines, len(n.Lines))
	require.Len(t, n.ResTransformers, 1)
	for _, r := range n.ResBuses {
		assert.Greater(t, r.VmPU, 0.9)
		assert.Less(t, r.VmPU, 1.1)
	}
	assert.Greater(t, n.ResTransformers[0].LoadingPercent, 0.0)

	// the slack covers the loads net of PV plus losses
	loads, pv := 0.0, 0.0
	for _, l := range n.Loads {
		loads += l.PMW
	}
	for _, s := range n.Sgens {
		pv += s.PMW
	}
	slackP := -n.ResBuses[0].PMW
	assert.Greater(t, slackP, loads-pv)
	assert.Less(t, slackP, (loads-pv)*1.2+0.001)
}

func TestTapRaiseLowersLVVoltage(t *testing.T) {
	n, err := network.Synthetic("rural_1")
	require.NoError(t, err)
	s := newTestSolver()
	require.NoError(t, s.Run(n))
	neutral := n.ResBuses[1].VmPU

	require.NoError(t, n.SetTapPos(0, 1))
	require.NoError(t, s.Run(n))
	assert.Less(t, n.ResBuses[1].VmPU, neutral-0.02)
}

func TestNewSolverDefaults(t *testing.T) {
	s := NewSolver(Options{}, zerolog.Nop())
	assert.Equal(t, DefaultOptions(), s.opts)
}
