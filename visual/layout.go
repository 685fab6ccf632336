package visual

import (
	"sort"

	"grid-integration-study/network"
)

// point is a bus position on the drawing grid.
type point struct {
	col int
	row int
}

type edge struct {
	to int
	km float64
}

// layout places the buses as a tree rooted at the external grid bus: columns
// are hop counts, leaves get their own row and a parent shares the row of its
// first child. It also returns the electrical distance of every bus from the
// root in km. Buses not reachable from the root are appended below.
func layout(net *network.Net) (map[int]point, map[int]float64) {
	adj := map[int][]edge{}
	for _, l := range net.Lines {
		if !l.InService {
			continue
		}
		adj[l.FromBus] = append(adj[l.FromBus], edge{to: l.ToBus, km: l.LengthKM})
		adj[l.ToBus] = append(adj[l.ToBus], edge{to: l.FromBus, km: l.LengthKM})
	}
	for _, t := range net.Transformers {
		adj[t.HVBus] = append(adj[t.HVBus], edge{to: t.LVBus})
		adj[t.LVBus] = append(adj[t.LVBus], edge{to: t.HVBus})
	}
	for k := range adj {
		sort.Slice(adj[k], func(i, j int) bool { return adj[k][i].to < adj[k][j].to })
	}

	pos := map[int]point{}
	dist := map[int]float64{}
	row := 0

	var place func(bus, col int, km float64)
	place = func(bus, col int, km float64) {
		pos[bus] = point{col: col, row: -1}
		dist[bus] = km
		first := true
		for _, e := range adj[bus] {
			if _, seen := pos[e.to]; seen {
				continue
			}
			place(e.to, col+1, km+e.km)
			if first {
				pos[bus] = point{col: col, row: pos[e.to].row}
				first = false
			}
		}
		if first {
			pos[bus] = point{col: col, row: row}
			row++
		}
	}

	if len(net.ExtGrids) > 0 {
		place(net.ExtGrids[0].Bus, 0, 0)
	}
	for _, b := range net.Buses {
		if _, seen := pos[b.Index]; !seen {
			place(b.Index, 0, 0)
		}
	}
	return pos, dist
}
