// Package powerflow solves the steady-state AC load flow of a network snapshot
// with the Newton-Raphson method in polar coordinates.
package powerflow

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"grid-integration-study/network"
)

// Options tunes the solver.
type Options struct {
	// mismatch tolerance in MVA
	ToleranceMVA float64 `yaml:"tolerance_mva"`
	MaxIteration int     `yaml:"max_iteration"`
}

// DefaultOptions matches the usual Newton-Raphson settings for LV grids.
func DefaultOptions() Options {
	return Options{ToleranceMVA: 1e-8, MaxIteration: 10}
}

// SolveError reports a power flow that did not produce results.
type SolveError struct {
	Iterations int
	// largest remaining mismatch in MVA, NaN if not computed
	Mismatch float64
	Reason   string
}

func (e *SolveError) Error() string {
	if math.IsNaN(e.Mismatch) {
		return fmt.Sprintf("power flow did not converge: %s", e.Reason)
	}
	return fmt.Sprintf("power flow did not converge after %d iterations (max mismatch %.3g MVA): %s",
		e.Iterations, e.Mismatch, e.Reason)
}

// Solver runs Newton-Raphson load flows.
type Solver struct {
	opts   Options
	logger zerolog.Logger
}

// NewSolver returns a solver. Zero option fields fall back to defaults.
func NewSolver(opts Options, logger zerolog.Logger) *Solver {
	def := DefaultOptions()
	if opts.ToleranceMVA <= 0 {
		opts.ToleranceMVA = def.ToleranceMVA
	}
	if opts.MaxIteration <= 0 {
		opts.MaxIteration = def.MaxIteration
	}
	return &Solver{opts: opts, logger: logger}
}

// Run solves the power flow and writes the result tables into net. On error
// the network is left without results.
func (s *Solver) Run(net *network.Net) error {
	net.ClearResults()
	if len(net.ExtGrids) == 0 {
		return &SolveError{Mismatch: math.NaN(), Reason: "no external grid"}
	}
	m, err := newModel(net)
	if err != nil {
		return &SolveError{Mismatch: math.NaN(), Reason: err.Error()}
	}
	slack, ok := m.pos[net.ExtGrids[0].Bus]
	if !ok {
		return &SolveError{Mismatch: math.NaN(), Reason: "external grid bus missing"}
	}
	for i, reached := range m.connected(slack) {
		if !reached {
			return &SolveError{Mismatch: math.NaN(), Reason: fmt.Sprintf("bus %d is isolated", net.Buses[i].Index)}
		}
	}

	v, iter, err := s.newtonRaphson(m, slack)
	if err != nil {
		return err
	}
	s.logger.Debug().Int("iterations", iter).Int("buses", len(v)).Msg("power flow converged")
	m.writeResults(v)
	return nil
}

// specifiedPower returns the net injection per bus in per unit (generation positive).
func (m *model) specifiedPower() []complex128 {
	sbus := make([]complex128, len(m.baseKV))
	for _, g := range m.net.Sgens {
		if p, ok := m.pos[g.Bus]; ok {
			sbus[p] += complex(g.PMW, g.QMVar) / complex(m.net.SnMVA, 0)
		}
	}
	for _, l := range m.net.Loads {
		if p, ok := m.pos[l.Bus]; ok {
			sbus[p] -= complex(l.PMW, l.QMVar) / complex(m.net.SnMVA, 0)
		}
	}
	return sbus
}

// injections computes S = V * conj(Y V).
func (m *model) injections(v []complex128) []complex128 {
	n := len(v)
	s := make([]complex128, n)
	for i := 0; i < n; i++ {
		var cur complex128
		for k := 0; k < n; k++ {
			if y := m.y.At(i, k); y != 0 {
				cur += y * v[k]
			}
		}
		s[i] = v[i] * cmplx.Conj(cur)
	}
	return s
}

func (s *Solver) newtonRaphson(m *model, slack int) ([]complex128, int, error) {
	n := len(m.baseKV)
	eg := m.net.ExtGrids[0]
	vm := make([]float64, n)
	va := make([]float64, n)
	for i := range vm {
		vm[i] = 1
	}
	vm[slack] = eg.VmPU
	va[slack] = eg.VaDegree * math.Pi / 180

	// unknowns: angles then magnitudes of all non-slack buses
	pq := make([]int, 0, n-1)
	for i := 0; i < n; i++ {
		if i != slack {
			pq = append(pq, i)
		}
	}
	npq := len(pq)
	sbus := m.specifiedPower()
	tol := s.opts.ToleranceMVA / m.net.SnMVA

	voltages := func() []complex128 {
		v := make([]complex128, n)
		for i := range v {
			v[i] = cmplx.Rect(vm[i], va[i])
		}
		return v
	}
	if npq == 0 {
		return voltages(), 0, nil
	}

	f := mat.NewVecDense(2*npq, nil)
	jac := mat.NewDense(2*npq, 2*npq, nil)
	var dx mat.VecDense
	mismatch := math.Inf(1)

	for iter := 0; iter <= s.opts.MaxIteration; iter++ {
		v := voltages()
		scalc := m.injections(v)
		mismatch = 0
		for k, i := range pq {
			d := scalc[i] - sbus[i]
			f.SetVec(k, real(d))
			f.SetVec(npq+k, imag(d))
			mismatch = math.Max(mismatch, math.Max(math.Abs(real(d)), math.Abs(imag(d))))
		}
		if math.IsNaN(mismatch) || math.IsInf(mismatch, 0) {
			return nil, iter, &SolveError{Iterations: iter, Mismatch: mismatch * m.net.SnMVA, Reason: "diverged"}
		}
		if mismatch < tol {
			return v, iter, nil
		}
		if iter == s.opts.MaxIteration {
			break
		}

		m.jacobian(jac, pq, vm, va, scalc)
		f.ScaleVec(-1, f)
		if err := dx.SolveVec(jac, f); err != nil {
			var cond mat.Condition
			if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
				return nil, iter, &SolveError{Iterations: iter, Mismatch: mismatch * m.net.SnMVA, Reason: "singular jacobian"}
			}
			s.logger.Warn().Float64("condition", float64(cond)).Msg("ill-conditioned jacobian")
		}
		for k, i := range pq {
			va[i] += dx.AtVec(k)
			vm[i] += dx.AtVec(npq + k)
		}
	}
	return nil, s.opts.MaxIteration, &SolveError{
		Iterations: s.opts.MaxIteration,
		Mismatch:   mismatch * m.net.SnMVA,
		Reason:     "maximum iterations reached",
	}
}

// jacobian fills the polar Newton-Raphson jacobian
//
//	[dP/dva dP/dvm]
//	[dQ/dva dQ/dvm]
//
// for the non-slack buses.
func (m *model) jacobian(jac *mat.Dense, pq []int, vm, va []float64, s []complex128) {
	npq := len(pq)
	jac.Zero()
	for r, i := range pq {
		pi, qi := real(s[i]), imag(s[i])
		for c, k := range pq {
			y := m.y.At(i, k)
			g, b := real(y), imag(y)
			if i == k {
				jac.Set(r, c, -qi-b*vm[i]*vm[i])
				jac.Set(r, npq+c, pi/vm[i]+g*vm[i])
				jac.Set(npq+r, c, pi-g*vm[i]*vm[i])
				jac.Set(npq+r, npq+c, qi/vm[i]-b*vm[i])
				continue
			}
			if y == 0 {
				continue
			}
			sin, cos := math.Sincos(va[i] - va[k])
			jac.Set(r, c, vm[i]*vm[k]*(g*sin-b*cos))
			jac.Set(r, npq+c, vm[i]*(g*cos+b*sin))
			jac.Set(npq+r, c, -vm[i]*vm[k]*(g*cos+b*sin))
			jac.Set(npq+r, npq+c, vm[i]*(g*sin-b*cos))
		}
	}
}

// writeResults converts the voltage solution into the result tables.
func (m *model) writeResults(v []complex128) {
	net := m.net
	s := m.injections(v)
	for i, b := range net.Buses {
		net.ResBuses = append(net.ResBuses, network.ResBus{
			Index:    b.Index,
			VmPU:     cmplx.Abs(v[i]),
			VaDegree: degrees(v[i]),
			PMW:      -real(s[i]) * net.SnMVA,
			QMVar:    -imag(s[i]) * net.SnMVA,
		})
	}

	byLine := map[int]Branch{}
	byTrafo := map[int]Branch{}
	for _, br := range m.branches {
		if br.kind == "line" {
			byLine[br.element] = br
		} else {
			byTrafo[br.element] = br
		}
	}

	for _, l := range net.Lines {
		res := network.ResLine{Index: l.Index}
		if br, ok := byLine[l.Index]; ok {
			iF, iT := br.currents(v)
			sF := v[br.From] * cmplx.Conj(iF)
			res.PFromMW = real(sF) * net.SnMVA
			res.QFromMVar = imag(sF) * net.SnMVA
			res.IFromKA = cmplx.Abs(iF) * m.iBaseKA(br.From)
			res.IToKA = cmplx.Abs(iT) * m.iBaseKA(br.To)
			if l.MaxIKA > 0 {
				res.LoadingPercent = math.Max(res.IFromKA, res.IToKA) / l.MaxIKA * 100
			}
		}
		net.ResLines = append(net.ResLines, res)
	}

	for _, t := range net.Transformers {
		br := byTrafo[t.Index]
		iF, iT := br.currents(v)
		hvPos, lvPos := br.From, br.To
		iHV, iLV := iF, iT
		if t.TapSide == "lv" {
			hvPos, lvPos = br.To, br.From
			iHV, iLV = iT, iF
		}
		sHV := v[hvPos] * cmplx.Conj(iHV)
		res := network.ResTrafo{
			Index:   t.Index,
			PHVMW:   real(sHV) * net.SnMVA,
			QHVMVar: imag(sHV) * net.SnMVA,
			IHVKA:   cmplx.Abs(iHV) * m.iBaseKA(hvPos),
			ILVKA:   cmplx.Abs(iLV) * m.iBaseKA(lvPos),
		}
		ratedHV := t.SnMVA / (math.Sqrt(3) * t.VnHVKV)
		ratedLV := t.SnMVA / (math.Sqrt(3) * t.VnLVKV)
		res.LoadingPercent = math.Max(res.IHVKA/ratedHV, res.ILVKA/ratedLV) * 100
		net.ResTransformers = append(net.ResTransformers, res)
	}
}
