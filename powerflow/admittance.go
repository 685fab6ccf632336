package powerflow

import (
	"fmt"
	"math"
	"math/cmplx"

	"grid-integration-study/network"
)

// Branch is a two-port in per unit. Ratio is the off-nominal turns ratio on the
// From side, 1 for lines.
type Branch struct {
	From int
	To   int
	// series
	Resistance float64
	Reactance  float64
	// shunt at each end
	ShuntFrom complex128
	ShuntTo   complex128
	Ratio     float64

	kind    string
	element int
}

func (b Branch) series() complex128 {
	return 1 / complex(b.Resistance, b.Reactance)
}

// ComplexMatrix is a dense square matrix addressed by bus position.
type ComplexMatrix struct {
	m [][]complex128
}

// NewComplexMatrix allocates a row x col matrix.
func NewComplexMatrix(row, col int) *ComplexMatrix {
	cm := new(ComplexMatrix)
	cm.m = make([][]complex128, row)
	for i := 0; i < row; i++ {
		cm.m[i] = make([]complex128, col)
	}
	return cm
}

// At returns the element at row, column.
func (cm *ComplexMatrix) At(row, column int) complex128 {
	return cm.m[row][column]
}

func (cm *ComplexMatrix) add(row, column int, v complex128) {
	cm.m[row][column] += v
}

// Size returns the number of rows.
func (cm *ComplexMatrix) Size() int {
	return len(cm.m)
}

// model is the per-unit view of a network used by the solver.
type model struct {
	net      *network.Net
	pos      map[int]int
	baseKV   []float64
	branches []Branch
	y        *ComplexMatrix
}

func newModel(net *network.Net) (*model, error) {
	if net.SnMVA <= 0 {
		return nil, fmt.Errorf("invalid sn_mva %v", net.SnMVA)
	}
	m := &model{net: net, pos: map[int]int{}}
	for i, b := range net.Buses {
		if b.VnKV <= 0 {
			return nil, fmt.Errorf("bus %d has no nominal voltage", b.Index)
		}
		m.pos[b.Index] = i
		m.baseKV = append(m.baseKV, b.VnKV)
	}
	for _, l := range net.Lines {
		if !l.InService {
			continue
		}
		br, err := m.lineToBranch(l)
		if err != nil {
			return nil, err
		}
		m.branches = append(m.branches, br)
	}
	for _, t := range net.Transformers {
		br, err := m.transformerToBranch(t)
		if err != nil {
			return nil, err
		}
		m.branches = append(m.branches, br)
	}
	m.computeY()
	return m, nil
}

func (m *model) zBase(pos int) float64 {
	return m.baseKV[pos] * m.baseKV[pos] / m.net.SnMVA
}

// iBaseKA is the current base at a bus.
func (m *model) iBaseKA(pos int) float64 {
	return m.net.SnMVA / (math.Sqrt(3) * m.baseKV[pos])
}

func (m *model) lineToBranch(l network.Line) (Branch, error) {
	from, ok1 := m.pos[l.FromBus]
	to, ok2 := m.pos[l.ToBus]
	if !ok1 || !ok2 {
		return Branch{}, fmt.Errorf("line %d: %w", l.Index, network.ErrNoSuchElement)
	}
	zb := m.zBase(from)
	r := l.ROhmPerKM * l.LengthKM / zb
	x := l.XOhmPerKM * l.LengthKM / zb
	if r == 0 && x == 0 {
		return Branch{}, fmt.Errorf("line %d has zero impedance", l.Index)
	}
	// total charging susceptance, half at each end
	b := 2 * math.Pi * m.net.FHz * l.CNFPerKM * 1e-9 * l.LengthKM * zb
	return Branch{
		From:       from,
		To:         to,
		Resistance: r,
		Reactance:  x,
		ShuntFrom:  complex(0, b/2),
		ShuntTo:    complex(0, b/2),
		Ratio:      1,
		kind:       "line",
		element:    l.Index,
	}, nil
}

func (m *model) transformerToBranch(t network.Transformer) (Branch, error) {
	hv, ok1 := m.pos[t.HVBus]
	lv, ok2 := m.pos[t.LVBus]
	if !ok1 || !ok2 {
		return Branch{}, fmt.Errorf("trafo %d: %w", t.Index, network.ErrNoSuchElement)
	}
	if t.SnMVA <= 0 || t.VkPercent <= 0 {
		return Branch{}, fmt.Errorf("trafo %d has no rating", t.Index)
	}
	scale := m.net.SnMVA / t.SnMVA
	z := t.VkPercent / 100 * scale
	r := t.VkrPercent / 100 * scale
	x := math.Sqrt(z*z - r*r)

	// magnetising admittance, split over both sides
	ym := t.I0Percent / 100 / scale
	gm := t.PfeKW / 1000 / m.net.SnMVA
	bm := 0.0
	if ym > gm {
		bm = math.Sqrt(ym*ym - gm*gm)
	}
	shunt := complex(gm, -bm) / 2

	// rated voltages against bus bases, tap on the configured side
	nHV := t.VnHVKV / m.baseKV[hv]
	nLV := t.VnLVKV / m.baseKV[lv]
	tap := 1 + float64(t.TapPos-t.TapNeutral)*t.TapStepPercent/100

	br := Branch{
		Resistance: r,
		Reactance:  x,
		ShuntFrom:  shunt,
		ShuntTo:    shunt,
		kind:       "trafo",
		element:    t.Index,
	}
	if t.TapSide == "lv" {
		br.From, br.To = lv, hv
		br.Ratio = nLV * tap / nHV
	} else {
		br.From, br.To = hv, lv
		br.Ratio = nHV * tap / nLV
	}
	return br, nil
}

// computeY assembles the nodal admittance matrix. Off-diagonal Yij is the
// negative series admittance; Yii collects series and shunt admittances.
func (m *model) computeY() {
	n := len(m.baseKV)
	m.y = NewComplexMatrix(n, n)
	for _, br := range m.branches {
		yff, yft, ytf, ytt := br.terms()
		m.y.add(br.From, br.From, yff)
		m.y.add(br.From, br.To, yft)
		m.y.add(br.To, br.From, ytf)
		m.y.add(br.To, br.To, ytt)
	}
}

// terms returns the 2x2 branch admittance block.
func (b Branch) terms() (yff, yft, ytf, ytt complex128) {
	y := b.series()
	t := complex(b.Ratio, 0)
	yff = (y + b.ShuntFrom) / (t * t)
	yft = -y / t
	ytf = -y / t
	ytt = y + b.ShuntTo
	return
}

// currents returns the per-unit currents flowing into the branch at both ends.
func (b Branch) currents(v []complex128) (iFrom, iTo complex128) {
	yff, yft, ytf, ytt := b.terms()
	vf, vt := v[b.From], v[b.To]
	return yff*vf + yft*vt, ytf*vf + ytt*vt
}

func (m *model) connected(slack int) []bool {
	seen := make([]bool, len(m.baseKV))
	adj := make([][]int, len(m.baseKV))
	for _, br := range m.branches {
		adj[br.From] = append(adj[br.From], br.To)
		adj[br.To] = append(adj[br.To], br.From)
	}
	stack := []int{slack}
	seen[slack] = true
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, j := range adj[k] {
			if !seen[j] {
				seen[j] = true
				stack = append(stack, j)
			}
		}
	}
	return seen
}

func degrees(v complex128) float64 {
	return cmplx.Phase(v) * 180 / math.Pi
}
