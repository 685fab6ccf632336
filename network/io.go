package network

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// ImportFromFile reads a JSON network snapshot.
func ImportFromFile(path string) (*Net, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open network file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	var net Net
	if err := decoder.Decode(&net); err != nil {
		return nil, fmt.Errorf("decode network file %s: %w", path, err)
	}
	if net.SnMVA == 0 {
		net.SnMVA = 1
	}
	if net.FHz == 0 {
		net.FHz = 50
	}
	net.sortTables()
	if err := net.check(); err != nil {
		return nil, fmt.Errorf("network file %s: %w", path, err)
	}
	return &net, nil
}

// ExportToFile writes the snapshot, including any results, as indented JSON.
func (n *Net) ExportToFile(path string) error {
	data, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func (n *Net) sortTables() {
	sort.SliceStable(n.Buses, func(i, j int) bool { return n.Buses[i].Index < n.Buses[j].Index })
	sort.SliceStable(n.Lines, func(i, j int) bool { return n.Lines[i].Index < n.Lines[j].Index })
	sort.SliceStable(n.Transformers, func(i, j int) bool { return n.Transformers[i].Index < n.Transformers[j].Index })
	sort.SliceStable(n.Sgens, func(i, j int) bool { return n.Sgens[i].Index < n.Sgens[j].Index })
	sort.SliceStable(n.Loads, func(i, j int) bool { return n.Loads[i].Index < n.Loads[j].Index })
	sort.SliceStable(n.ExtGrids, func(i, j int) bool { return n.ExtGrids[i].Index < n.ExtGrids[j].Index })
}

// check verifies index uniqueness and that every element refers to a known bus.
func (n *Net) check() error {
	seen := map[int]bool{}
	for _, b := range n.Buses {
		if seen[b.Index] {
			return fmt.Errorf("duplicate bus index %d", b.Index)
		}
		seen[b.Index] = true
	}
	dup := func(kind string, indices []int) error {
		s := map[int]bool{}
		for _, i := range indices {
			if s[i] {
				return fmt.Errorf("duplicate %s index %d", kind, i)
			}
			s[i] = true
		}
		return nil
	}
	var li, ti, si, lo []int
	for _, l := range n.Lines {
		li = append(li, l.Index)
		if err := n.requireBuses(l.FromBus, l.ToBus); err != nil {
			return fmt.Errorf("line %d: %w", l.Index, err)
		}
	}
	for _, t := range n.Transformers {
		ti = append(ti, t.Index)
		if err := n.requireBuses(t.HVBus, t.LVBus); err != nil {
			return fmt.Errorf("trafo %d: %w", t.Index, err)
		}
	}
	for _, s := range n.Sgens {
		si = append(si, s.Index)
		if err := n.requireBuses(s.Bus); err != nil {
			return fmt.Errorf("sgen %d: %w", s.Index, err)
		}
	}
	for _, l := range n.Loads {
		lo = append(lo, l.Index)
		if err := n.requireBuses(l.Bus); err != nil {
			return fmt.Errorf("load %d: %w", l.Index, err)
		}
	}
	for _, e := range n.ExtGrids {
		if err := n.requireBuses(e.Bus); err != nil {
			return fmt.Errorf("ext_grid %d: %w", e.Index, err)
		}
	}
	if err := dup("line", li); err != nil {
		return err
	}
	if err := dup("trafo", ti); err != nil {
		return err
	}
	if err := dup("sgen", si); err != nil {
		return err
	}
	return dup("load", lo)
}
