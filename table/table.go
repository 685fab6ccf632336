// Package table describes the row view shared by the network model and the
// constraint evaluator, so the evaluator never depends on how elements are stored.
package table

// Name identifies an element or result table of a network snapshot.
type Name string

// Tables read by the evaluator.
const (
	ResLine  Name = "res_line"
	ResTrafo Name = "res_trafo"
	ResBus   Name = "res_bus"
	Sgen     Name = "sgen"
)

// Attribute keys.
const (
	LoadingPercent = "loading_percent"
	VmPU           = "vm_pu"
	PMW            = "p_mw"
)

// Row is one element of a table.
type Row struct {
	Index int
	Attrs map[string]float64
}

// Value returns the attribute and whether it is present.
func (r Row) Value(key string) (float64, bool) {
	v, ok := r.Attrs[key]
	return v, ok
}

// Source exposes tables as rows in ascending index order.
type Source interface {
	Rows(name Name) []Row
}
