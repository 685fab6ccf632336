package network

import "fmt"

// ChangeTrafoStdType replaces the nameplate data of a transformer. The tap
// position is kept if the new type allows it, otherwise it falls back to neutral.
func (n *Net) ChangeTrafoStdType(index int, stdType string) error {
	tt, ok := TrafoStdTypes[stdType]
	if !ok {
		return fmt.Errorf("trafo %q: %w", stdType, ErrUnknownStdType)
	}
	for i := range n.Transformers {
		t := &n.Transformers[i]
		if t.Index != index {
			continue
		}
		tt.apply(t, stdType)
		if t.TapPos < t.TapMin || t.TapPos > t.TapMax {
			t.TapPos = t.TapNeutral
		}
		n.ClearResults()
		return nil
	}
	return fmt.Errorf("trafo %d: %w", index, ErrNoSuchElement)
}

// ChangeLineStdType replaces the cable parameters of a line.
func (n *Net) ChangeLineStdType(index int, stdType string) error {
	lt, ok := LineStdTypes[stdType]
	if !ok {
		return fmt.Errorf("line %q: %w", stdType, ErrUnknownStdType)
	}
	for i := range n.Lines {
		l := &n.Lines[i]
		if l.Index != index {
			continue
		}
		l.StdType = stdType
		l.ROhmPerKM = lt.ROhmPerKM
		l.XOhmPerKM = lt.XOhmPerKM
		l.CNFPerKM = lt.CNFPerKM
		l.MaxIKA = lt.MaxIKA
		n.ClearResults()
		return nil
	}
	return fmt.Errorf("line %d: %w", index, ErrNoSuchElement)
}

// ScaleLineLengths multiplies every line length by factor.
func (n *Net) ScaleLineLengths(factor float64) {
	for i := range n.Lines {
		n.Lines[i].LengthKM *= factor
	}
	n.ClearResults()
}

// SetTapPos moves the tap changer of a transformer.
func (n *Net) SetTapPos(index, pos int) error {
	for i := range n.Transformers {
		t := &n.Transformers[i]
		if t.Index != index {
			continue
		}
		if pos < t.TapMin || pos > t.TapMax {
			return fmt.Errorf("trafo %d tap %d not in [%d, %d]: %w", index, pos, t.TapMin, t.TapMax, ErrTapOutOfRange)
		}
		t.TapPos = pos
		n.ClearResults()
		return nil
	}
	return fmt.Errorf("trafo %d: %w", index, ErrNoSuchElement)
}

// SetSgenPower sets the setpoint of every static generator connected to bus.
func (n *Net) SetSgenPower(bus int, pMW, qMVar float64) error {
	found := false
	for i := range n.Sgens {
		if n.Sgens[i].Bus != bus {
			continue
		}
		n.Sgens[i].PMW = pMW
		n.Sgens[i].QMVar = qMVar
		found = true
	}
	if !found {
		return fmt.Errorf("sgen at bus %d: %w", bus, ErrNoSuchElement)
	}
	n.ClearResults()
	return nil
}

// SetLineInService switches a line.
func (n *Net) SetLineInService(index int, inService bool) error {
	for i := range n.Lines {
		if n.Lines[i].Index == index {
			n.Lines[i].InService = inService
			n.ClearResults()
			return nil
		}
	}
	return fmt.Errorf("line %d: %w", index, ErrNoSuchElement)
}
