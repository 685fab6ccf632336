package network

import "grid-integration-study/table"

// Rows implements table.Source. Result tables are empty until a solve succeeds.
func (n *Net) Rows(name table.Name) []table.Row {
	var rows []table.Row
	switch name {
	case table.ResLine:
		for _, r := range n.ResLines {
			rows = append(rows, table.Row{Index: r.Index, Attrs: map[string]float64{
				table.LoadingPercent: r.LoadingPercent,
				"i_from_ka":          r.IFromKA,
				"i_to_ka":            r.IToKA,
				"p_from_mw":          r.PFromMW,
			}})
		}
	case table.ResTrafo:
		for _, r := range n.ResTransformers {
			rows = append(rows, table.Row{Index: r.Index, Attrs: map[string]float64{
				table.LoadingPercent: r.LoadingPercent,
				"i_hv_ka":            r.IHVKA,
				"i_lv_ka":            r.ILVKA,
				"p_hv_mw":            r.PHVMW,
			}})
		}
	case table.ResBus:
		for _, r := range n.ResBuses {
			rows = append(rows, table.Row{Index: r.Index, Attrs: map[string]float64{
				table.VmPU:  r.VmPU,
				"va_degree": r.VaDegree,
				table.PMW:   r.PMW,
			}})
		}
	case table.Sgen:
		for _, s := range n.Sgens {
			rows = append(rows, table.Row{Index: s.Index, Attrs: map[string]float64{
				table.PMW: s.PMW,
				"q_mvar":  s.QMVar,
			}})
		}
	}
	return rows
}
