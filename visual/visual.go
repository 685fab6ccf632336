// Package visual draws network snapshots: an HTML page with the topology and
// result overlay, and a plain text voltage profile for the terminal.
package visual

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"sort"
	"strings"

	"grid-integration-study/evaluate"
	"grid-integration-study/network"
)

// Renderer draws a snapshot to an artifact file and to the display surface.
type Renderer interface {
	RenderToFile(net *network.Net, path string) error
	RenderToDisplay(net *network.Net) error
}

const (
	colorOK       = "#2ca02c"
	colorOver     = "#d62728"
	colorUnder    = "#1f77b4"
	colorNoResult = "#7f7f7f"

	cellWidth  = 70
	cellHeight = 28
	margin     = 40
)

// HTML renders the interactive topology page and prints the voltage profile to
// Display.
type HTML struct {
	Limits  evaluate.Limits
	Display io.Writer
}

// NewHTML returns an HTML renderer printing profiles to stdout.
func NewHTML(limits evaluate.Limits) *HTML {
	return &HTML{Limits: limits, Display: os.Stdout}
}

type svgBus struct {
	X, Y  int
	Color string
	Label string
}

type svgBranch struct {
	X1, Y1, X2, Y2 int
	Color          string
	Dash           string
	Label          string
}

type resultRow struct {
	Name  string
	Value string
	Over  bool
}

type page struct {
	Title    string
	Width    int
	Height   int
	Buses    []svgBus
	Branches []svgBranch
	Results  []resultRow
}

var pageTemplate = template.Must(template.New("grid").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
circle:hover, line:hover { opacity: 0.6; }
table { border-collapse: collapse; margin-top: 1em; }
td, th { border: 1px solid #ccc; padding: 2px 8px; text-align: left; }
.over { color: #d62728; font-weight: bold; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="{{.Height}}">
{{- range .Branches}}
<line x1="{{.X1}}" y1="{{.Y1}}" x2="{{.X2}}" y2="{{.Y2}}" stroke="{{.Color}}" stroke-width="3" stroke-dasharray="{{.Dash}}"><title>{{.Label}}</title></line>
{{- end}}
{{- range .Buses}}
<circle cx="{{.X}}" cy="{{.Y}}" r="6" fill="{{.Color}}"><title>{{.Label}}</title></circle>
{{- end}}
</svg>
{{- if .Results}}
<table>
<tr><th>element</th><th>result</th></tr>
{{- range .Results}}
<tr{{if .Over}} class="over"{{end}}><td>{{.Name}}</td><td>{{.Value}}</td></tr>
{{- end}}
</table>
{{- end}}
</body>
</html>
`))

// RenderToFile writes the topology page to path.
func (h *HTML) RenderToFile(net *network.Net, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := pageTemplate.Execute(f, h.page(net)); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", path, err)
	}
	return f.Close()
}

func (h *HTML) page(net *network.Net) page {
	pos, _ := layout(net)
	p := page{Title: net.Name}
	maxCol, maxRow := 0, 0
	for _, pt := range pos {
		maxCol = max(maxCol, pt.col)
		maxRow = max(maxRow, pt.row)
	}
	p.Width = 2*margin + maxCol*cellWidth
	p.Height = 2*margin + maxRow*cellHeight
	xy := func(bus int) (int, int) {
		pt := pos[bus]
		return margin + pt.col*cellWidth, margin + pt.row*cellHeight
	}

	vm := map[int]float64{}
	for _, r := range net.ResBuses {
		vm[r.Index] = r.VmPU
	}
	for _, b := range net.Buses {
		x, y := xy(b.Index)
		sb := svgBus{X: x, Y: y, Color: colorNoResult, Label: net.BusName(b)}
		if v, ok := vm[b.Index]; ok {
			sb.Color = h.voltageColor(v)
			sb.Label = fmt.Sprintf("%s\nvm = %.3f p.u.", sb.Label, v)
			p.Results = append(p.Results, resultRow{
				Name:  net.BusName(b),
				Value: fmt.Sprintf("%.3f p.u.", v),
				Over:  v > h.Limits.MaxBusVoltagePU || v < h.Limits.MinBusVoltagePU,
			})
		}
		p.Buses = append(p.Buses, sb)
	}

	loading := map[int]float64{}
	for _, r := range net.ResLines {
		loading[r.Index] = r.LoadingPercent
	}
	for _, l := range net.Lines {
		x1, y1 := xy(l.FromBus)
		x2, y2 := xy(l.ToBus)
		br := svgBranch{X1: x1, Y1: y1, X2: x2, Y2: y2, Color: colorNoResult, Label: net.LineName(l)}
		if !l.InService {
			br.Dash = "2,4"
		}
		if v, ok := loading[l.Index]; ok {
			br.Color = loadingColor(v, h.Limits.MaxLineLoadingPercent)
			br.Label = fmt.Sprintf("%s\nloading = %.3f %%", br.Label, v)
			p.Results = append(p.Results, resultRow{
				Name:  net.LineName(l),
				Value: fmt.Sprintf("%.3f %%", v),
				Over:  v > h.Limits.MaxLineLoadingPercent,
			})
		}
		p.Branches = append(p.Branches, br)
	}

	trafoLoading := map[int]float64{}
	for _, r := range net.ResTransformers {
		trafoLoading[r.Index] = r.LoadingPercent
	}
	for _, t := range net.Transformers {
		x1, y1 := xy(t.HVBus)
		x2, y2 := xy(t.LVBus)
		br := svgBranch{X1: x1, Y1: y1, X2: x2, Y2: y2, Color: colorNoResult, Dash: "8,4",
			Label: fmt.Sprintf("%s (%s, tap %d)", t.Name, t.StdType, t.TapPos)}
		if v, ok := trafoLoading[t.Index]; ok {
			br.Color = loadingColor(v, h.Limits.MaxTransformerLoadingPercent)
			br.Label = fmt.Sprintf("%s\nloading = %.3f %%", br.Label, v)
			p.Results = append(p.Results, resultRow{
				Name:  t.Name,
				Value: fmt.Sprintf("%.3f %%", v),
				Over:  v > h.Limits.MaxTransformerLoadingPercent,
			})
		}
		p.Branches = append(p.Branches, br)
	}
	return p
}

func (h *HTML) voltageColor(vm float64) string {
	switch {
	case vm > h.Limits.MaxBusVoltagePU:
		return colorOver
	case vm < h.Limits.MinBusVoltagePU:
		return colorUnder
	default:
		return colorOK
	}
}

func loadingColor(v, limit float64) string {
	if v > limit {
		return colorOver
	}
	return colorOK
}

// RenderToDisplay prints the voltage profile, i.e. bus voltage over the
// distance from the external grid, one bus per line.
func (h *HTML) RenderToDisplay(net *network.Net) error {
	if h.Display == nil {
		return nil
	}
	return WriteVoltageProfile(h.Display, net, h.Limits)
}

const profileWidth = 40

// WriteVoltageProfile prints a bar per bus scaled to the band 0.9 to 1.1 p.u.
// with '|' marking the voltage limits.
func WriteVoltageProfile(w io.Writer, net *network.Net, limits evaluate.Limits) error {
	if !net.HasResults() {
		_, err := fmt.Fprintf(w, "Voltage profile of %s: no results\n", net.Name)
		return err
	}
	_, dist := layout(net)
	res := append([]network.ResBus(nil), net.ResBuses...)
	sort.SliceStable(res, func(i, j int) bool {
		if dist[res[i].Index] != dist[res[j].Index] {
			return dist[res[i].Index] < dist[res[j].Index]
		}
		return res[i].Index < res[j].Index
	})

	col := func(v float64) int {
		c := int((v - 0.9) / 0.2 * profileWidth)
		return min(max(c, 0), profileWidth)
	}
	lo, hi := col(limits.MinBusVoltagePU), col(limits.MaxBusVoltagePU)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Voltage profile of %s\n", net.Name)
	fmt.Fprintf(&sb, "%5s %9s %7s\n", "bus", "dist_km", "vm_pu")
	for _, r := range res {
		bar := []byte(strings.Repeat(" ", profileWidth+1))
		for i := 0; i < col(r.VmPU); i++ {
			bar[i] = '#'
		}
		bar[lo] = '|'
		bar[hi] = '|'
		fmt.Fprintf(&sb, "%5d %9.3f %7.3f %s\n", r.Index, dist[r.Index], r.VmPU, strings.TrimRight(string(bar), " "))
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// Nop renders nothing.
type Nop struct{}

func (Nop) RenderToFile(*network.Net, string) error { return nil }

func (Nop) RenderToDisplay(*network.Net) error { return nil }
