// Package network holds the in-memory model of a distribution grid: element
// tables, standard equipment types and the result tables written by a power flow.
package network

import (
	"fmt"
	"math"
)

// Bus
type Bus struct {
	Index int     `json:"index"`
	Name  string  `json:"name"`
	VnKV  float64 `json:"vn_kv"`
	Zone  string  `json:"zone,omitempty"`
}

// Line is a cable or overhead line with parameters copied from its std type.
type Line struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	FromBus int    `json:"from_bus"`
	ToBus   int    `json:"to_bus"`
	// km
	LengthKM float64 `json:"length_km"`
	StdType  string  `json:"std_type"`
	// ohm/km
	ROhmPerKM float64 `json:"r_ohm_per_km"`
	XOhmPerKM float64 `json:"x_ohm_per_km"`
	// nF/km
	CNFPerKM  float64 `json:"c_nf_per_km"`
	MaxIKA    float64 `json:"max_i_ka"`
	InService bool    `json:"in_service"`
}

// Transformer is a two-winding transformer.
type Transformer struct {
	Index          int     `json:"index"`
	Name           string  `json:"name"`
	HVBus          int     `json:"hv_bus"`
	LVBus          int     `json:"lv_bus"`
	StdType        string  `json:"std_type"`
	SnMVA          float64 `json:"sn_mva"`
	VnHVKV         float64 `json:"vn_hv_kv"`
	VnLVKV         float64 `json:"vn_lv_kv"`
	VkPercent      float64 `json:"vk_percent"`
	VkrPercent     float64 `json:"vkr_percent"`
	PfeKW          float64 `json:"pfe_kw"`
	I0Percent      float64 `json:"i0_percent"`
	TapSide        string  `json:"tap_side"`
	TapNeutral     int     `json:"tap_neutral"`
	TapMin         int     `json:"tap_min"`
	TapMax         int     `json:"tap_max"`
	TapStepPercent float64 `json:"tap_step_percent"`
	TapPos         int     `json:"tap_pos"`
}

// Sgen is a static generator, e.g. a PV inverter.
type Sgen struct {
	Index int     `json:"index"`
	Name  string  `json:"name"`
	Bus   int     `json:"bus"`
	PMW   float64 `json:"p_mw"`
	QMVar float64 `json:"q_mvar"`
}

// Load is a constant power load.
type Load struct {
	Index int     `json:"index"`
	Name  string  `json:"name"`
	Bus   int     `json:"bus"`
	PMW   float64 `json:"p_mw"`
	QMVar float64 `json:"q_mvar"`
}

// ExtGrid is the slack connection to the upstream grid.
type ExtGrid struct {
	Index    int     `json:"index"`
	Bus      int     `json:"bus"`
	VmPU     float64 `json:"vm_pu"`
	VaDegree float64 `json:"va_degree"`
}

// ResBus holds bus results. P and Q follow the consumer convention.
type ResBus struct {
	Index    int     `json:"index"`
	VmPU     float64 `json:"vm_pu"`
	VaDegree float64 `json:"va_degree"`
	PMW      float64 `json:"p_mw"`
	QMVar    float64 `json:"q_mvar"`
}

// ResLine holds line results.
type ResLine struct {
	Index          int     `json:"index"`
	PFromMW        float64 `json:"p_from_mw"`
	QFromMVar      float64 `json:"q_from_mvar"`
	IFromKA        float64 `json:"i_from_ka"`
	IToKA          float64 `json:"i_to_ka"`
	LoadingPercent float64 `json:"loading_percent"`
}

// ResTrafo holds transformer results.
type ResTrafo struct {
	Index          int     `json:"index"`
	PHVMW          float64 `json:"p_hv_mw"`
	QHVMVar        float64 `json:"q_hv_mvar"`
	IHVKA          float64 `json:"i_hv_ka"`
	ILVKA          float64 `json:"i_lv_ka"`
	LoadingPercent float64 `json:"loading_percent"`
}

// Net is a network snapshot. Element slices are kept in ascending index order.
type Net struct {
	Name  string  `json:"name"`
	FHz   float64 `json:"f_hz"`
	SnMVA float64 `json:"sn_mva"`

	Buses        []Bus         `json:"bus"`
	Lines        []Line        `json:"line"`
	Transformers []Transformer `json:"trafo"`
	Sgens        []Sgen        `json:"sgen"`
	Loads        []Load        `json:"load"`
	ExtGrids     []ExtGrid     `json:"ext_grid"`

	ResBuses        []ResBus   `json:"res_bus,omitempty"`
	ResLines        []ResLine  `json:"res_line,omitempty"`
	ResTransformers []ResTrafo `json:"res_trafo,omitempty"`
}

// New returns an empty 50 Hz network with a 1 MVA base.
func New(name string) *Net {
	return &Net{Name: name, FHz: 50, SnMVA: 1}
}

// CreateBus adds a bus and returns its index.
func (n *Net) CreateBus(vnKV float64, name string) int {
	idx := 0
	if k := len(n.Buses); k > 0 {
		idx = n.Buses[k-1].Index + 1
	}
	n.Buses = append(n.Buses, Bus{Index: idx, Name: name, VnKV: vnKV})
	n.ClearResults()
	return idx
}

// CreateLine adds a line with parameters from the std type catalogue.
func (n *Net) CreateLine(from, to int, lengthKM float64, stdType, name string) (int, error) {
	lt, ok := LineStdTypes[stdType]
	if !ok {
		return 0, fmt.Errorf("line %q: %w", stdType, ErrUnknownStdType)
	}
	idx, err := n.CreateLineFromParameters(from, to, lengthKM, lt.ROhmPerKM, lt.XOhmPerKM, lt.CNFPerKM, lt.MaxIKA, name)
	if err != nil {
		return 0, err
	}
	n.Lines[len(n.Lines)-1].StdType = stdType
	return idx, nil
}

// CreateLineFromParameters adds a line with explicit per-km parameters.
func (n *Net) CreateLineFromParameters(from, to int, lengthKM, r, x, c, maxI float64, name string) (int, error) {
	if err := n.requireBuses(from, to); err != nil {
		return 0, err
	}
	idx := 0
	if k := len(n.Lines); k > 0 {
		idx = n.Lines[k-1].Index + 1
	}
	n.Lines = append(n.Lines, Line{
		Index:     idx,
		Name:      name,
		FromBus:   from,
		ToBus:     to,
		LengthKM:  lengthKM,
		ROhmPerKM: r,
		XOhmPerKM: x,
		CNFPerKM:  c,
		MaxIKA:    maxI,
		InService: true,
	})
	n.ClearResults()
	return idx, nil
}

// CreateTransformer adds a transformer from the std type catalogue.
func (n *Net) CreateTransformer(hv, lv int, stdType, name string) (int, error) {
	tt, ok := TrafoStdTypes[stdType]
	if !ok {
		return 0, fmt.Errorf("trafo %q: %w", stdType, ErrUnknownStdType)
	}
	if err := n.requireBuses(hv, lv); err != nil {
		return 0, err
	}
	idx := 0
	if k := len(n.Transformers); k > 0 {
		idx = n.Transformers[k-1].Index + 1
	}
	t := Transformer{Index: idx, Name: name, HVBus: hv, LVBus: lv}
	tt.apply(&t, stdType)
	t.TapPos = t.TapNeutral
	n.Transformers = append(n.Transformers, t)
	n.ClearResults()
	return idx, nil
}

// CreateSgen adds a static generator.
func (n *Net) CreateSgen(bus int, pMW, qMVar float64, name string) (int, error) {
	if err := n.requireBuses(bus); err != nil {
		return 0, err
	}
	idx := 0
	if k := len(n.Sgens); k > 0 {
		idx = n.Sgens[k-1].Index + 1
	}
	n.Sgens = append(n.Sgens, Sgen{Index: idx, Name: name, Bus: bus, PMW: pMW, QMVar: qMVar})
	n.ClearResults()
	return idx, nil
}

// CreateLoad adds a load.
func (n *Net) CreateLoad(bus int, pMW, qMVar float64, name string) (int, error) {
	if err := n.requireBuses(bus); err != nil {
		return 0, err
	}
	idx := 0
	if k := len(n.Loads); k > 0 {
		idx = n.Loads[k-1].Index + 1
	}
	n.Loads = append(n.Loads, Load{Index: idx, Name: name, Bus: bus, PMW: pMW, QMVar: qMVar})
	n.ClearResults()
	return idx, nil
}

// CreateExtGrid adds a slack connection at bus.
func (n *Net) CreateExtGrid(bus int, vmPU float64) (int, error) {
	if err := n.requireBuses(bus); err != nil {
		return 0, err
	}
	idx := 0
	if k := len(n.ExtGrids); k > 0 {
		idx = n.ExtGrids[k-1].Index + 1
	}
	n.ExtGrids = append(n.ExtGrids, ExtGrid{Index: idx, Bus: bus, VmPU: vmPU})
	n.ClearResults()
	return idx, nil
}

// Bus returns the bus with the given index.
func (n *Net) Bus(index int) (Bus, bool) {
	for _, b := range n.Buses {
		if b.Index == index {
			return b, true
		}
	}
	return Bus{}, false
}

// HasResults reports whether result tables from a converged solve are present.
func (n *Net) HasResults() bool {
	return len(n.ResBuses) > 0
}

// ClearResults drops all result tables. Every mutation calls it.
func (n *Net) ClearResults() {
	n.ResBuses = nil
	n.ResLines = nil
	n.ResTransformers = nil
}

// TotalSgenPMW sums the active power setpoints of all static generators.
func (n *Net) TotalSgenPMW() float64 {
	sum := 0.0
	for _, s := range n.Sgens {
		sum += s.PMW
	}
	return sum
}

// FeederEndBuses returns buses without a static generator that are neither a
// transformer terminal nor passed through by lines, in ascending order.
func (n *Net) FeederEndBuses() []int {
	hasSgen := map[int]bool{}
	for _, s := range n.Sgens {
		hasSgen[s.Bus] = true
	}
	trafoBus := map[int]bool{}
	for _, t := range n.Transformers {
		trafoBus[t.HVBus] = true
		trafoBus[t.LVBus] = true
	}
	from, to := map[int]bool{}, map[int]bool{}
	for _, l := range n.Lines {
		from[l.FromBus] = true
		to[l.ToBus] = true
	}
	var ends []int
	for _, b := range n.Buses {
		i := b.Index
		if hasSgen[i] || trafoBus[i] {
			continue
		}
		if from[i] && to[i] {
			continue
		}
		ends = append(ends, i)
	}
	return ends
}

// LineName is the descriptive label shown in plots.
func (n *Net) LineName(l Line) string {
	return fmt.Sprintf("line from %d to %d (Line index = %d)", l.FromBus, l.ToBus, l.Index)
}

// BusName is the descriptive label shown in plots.
func (n *Net) BusName(b Bus) string {
	return fmt.Sprintf("%s (Bus ID = %d)", b.Name, b.Index)
}

func (n *Net) requireBuses(indices ...int) error {
	for _, i := range indices {
		if _, ok := n.Bus(i); !ok {
			return fmt.Errorf("bus %d: %w", i, ErrNoSuchElement)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (n *Net) Clone() *Net {
	c := *n
	c.Buses = append([]Bus(nil), n.Buses...)
	c.Lines = append([]Line(nil), n.Lines...)
	c.Transformers = append([]Transformer(nil), n.Transformers...)
	c.Sgens = append([]Sgen(nil), n.Sgens...)
	c.Loads = append([]Load(nil), n.Loads...)
	c.ExtGrids = append([]ExtGrid(nil), n.ExtGrids...)
	c.ResBuses = append([]ResBus(nil), n.ResBuses...)
	c.ResLines = append([]ResLine(nil), n.ResLines...)
	c.ResTransformers = append([]ResTrafo(nil), n.ResTransformers...)
	return &c
}

// QForCosPhi returns the reactive power of an inverter running at cosPhi
// underexcited, i.e. absorbing reactive power.
func QForCosPhi(pMW, cosPhi float64) float64 {
	return -math.Tan(math.Acos(cosPhi)) * pMW
}
