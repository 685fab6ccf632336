package network

import (
	"fmt"
	"math"
	"sort"
)

// feeder describes a radial LV feeder: consecutive buses hanging off the busbar.
type feeder struct {
	name     string
	segments []segment
}

type segment struct {
	lengthKM float64
	stdType  string
	loadMW   float64
	pvMW     float64
	pv       bool
}

const houseLoadMW = 0.003

// loadCosPhi of households.
const loadCosPhi = 0.97

func trunk(km float64) segment {
	return segment{lengthKM: km, stdType: "NAYY 4x150 SE", loadMW: houseLoadMW}
}

func branch(km float64) segment {
	return segment{lengthKM: km, stdType: "NAYY 4x120 SE", loadMW: houseLoadMW}
}

func junction(km float64) segment {
	return segment{lengthKM: km, stdType: "NAYY 4x150 SE"}
}

func roofPV(s segment, pMW float64) segment {
	s.pv = true
	s.pvMW = pMW
	return s
}

var networkClasses = map[string]func() []feeder{
	"rural_1": rural1,
	"rural_2": rural2,
}

// NetworkClasses lists the names accepted by Synthetic.
func NetworkClasses() []string {
	names := make([]string, 0, len(networkClasses))
	for k := range networkClasses {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Synthetic builds a synthetic voltage-control LV network: a 20 kV bus with the
// external grid (bus 0), a 0.16 MVA transformer to the LV busbar (bus 1) and
// radial feeders numbered consecutively from bus 2.
func Synthetic(class string) (*Net, error) {
	build, ok := networkClasses[class]
	if !ok {
		return nil, fmt.Errorf("%q: %w", class, ErrUnknownNetworkClass)
	}
	n := New(class)
	mv := n.CreateBus(20, "MV bus")
	lv := n.CreateBus(0.4, "LV busbar")
	if _, err := n.CreateExtGrid(mv, 1.0); err != nil {
		return nil, err
	}
	if _, err := n.CreateTransformer(mv, lv, "0.16 MVA 20/0.4 kV", "MV/LV trafo"); err != nil {
		return nil, err
	}
	qRatio := math.Tan(math.Acos(loadCosPhi))
	for _, f := range build() {
		prev := lv
		for i, s := range f.segments {
			b := n.CreateBus(0.4, fmt.Sprintf("%s bus %d", f.name, i+1))
			n.Buses[len(n.Buses)-1].Zone = f.name
			if _, err := n.CreateLine(prev, b, s.lengthKM, s.stdType, ""); err != nil {
				return nil, err
			}
			if s.loadMW > 0 {
				if _, err := n.CreateLoad(b, s.loadMW, s.loadMW*qRatio, fmt.Sprintf("household %d", b)); err != nil {
					return nil, err
				}
			}
			if s.pv {
				if _, err := n.CreateSgen(b, s.pvMW, 0, fmt.Sprintf("PV %d", b)); err != nil {
					return nil, err
				}
			}
			prev = b
		}
	}
	return n, nil
}

// rural1 has 26 buses: left feeder 2-3, middle feeder 4-11, right feeder 12-25.
func rural1() []feeder {
	left := feeder{name: "left", segments: []segment{trunk(0.02), trunk(0.015)}}
	middle := feeder{name: "middle", segments: []segment{
		junction(0.015), trunk(0.015), trunk(0.015), trunk(0.015),
		roofPV(branch(0.01), 0.005), roofPV(branch(0.01), 0.005), roofPV(branch(0.01), 0.004), branch(0.01),
	}}
	right := feeder{name: "right", segments: []segment{
		junction(0.015), trunk(0.015), trunk(0.015), trunk(0.015), trunk(0.015), trunk(0.015), trunk(0.015),
		roofPV(branch(0.01), 0.004), roofPV(branch(0.01), 0.004), roofPV(branch(0.01), 0.004),
		roofPV(branch(0.01), 0.003), roofPV(branch(0.01), 0.003), roofPV(branch(0.01), 0.003), branch(0.01),
	}}
	return []feeder{left, middle, right}
}

// rural2 is a smaller two-feeder variant with 14 buses.
func rural2() []feeder {
	a := feeder{name: "north", segments: []segment{
		junction(0.02), trunk(0.02), trunk(0.02), roofPV(branch(0.015), 0.004), branch(0.015),
	}}
	b := feeder{name: "south", segments: []segment{
		junction(0.02), trunk(0.02), trunk(0.02), trunk(0.02), roofPV(branch(0.015), 0.003), roofPV(branch(0.015), 0.003), branch(0.015),
	}}
	return []feeder{a, b}
}
