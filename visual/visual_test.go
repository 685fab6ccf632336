package visual

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grid-integration-study/evaluate"
	"grid-integration-study/network"
)

func chain(t *testing.T) *network.Net {
	t.Helper()
	n := network.New("chain")
	a := n.CreateBus(0.4, "a")
	b := n.CreateBus(0.4, "b")
	c := n.CreateBus(0.4, "c")
	d := n.CreateBus(0.4, "d")
	_, err := n.CreateExtGrid(a, 1.0)
	require.NoError(t, err)
	for _, l := range [][2]int{{a, b}, {b, c}, {b, d}} {
		_, err := n.CreateLine(l[0], l[1], 0.1, "NAYY 4x150 SE", "")
		require.NoError(t, err)
	}
	return n
}

func TestLayoutTree(t *testing.T) {
	pos, dist := layout(chain(t))

	assert.Equal(t, point{col: 0, row: 0}, pos[0])
	assert.Equal(t, point{col: 1, row: 0}, pos[1])
	assert.Equal(t, point{col: 2, row: 0}, pos[2])
	assert.Equal(t, point{col: 2, row: 1}, pos[3])
	assert.InDelta(t, 0.2, dist[2], 1e-12)
	assert.InDelta(t, 0.2, dist[3], 1e-12)
}

func TestLayoutIslandGetsOwnRow(t *testing.T) {
	n := chain(t)
	n.CreateBus(0.4, "island")

	pos, _ := layout(n)
	assert.Equal(t, point{col: 0, row: 2}, pos[4])
}

func TestRenderToFileWithoutResults(t *testing.T) {
	n := chain(t)
	path := filepath.Join(t.TempDir(), "grid.html")

	require.NoError(t, NewHTML(evaluate.DefaultLimits()).RenderToFile(n, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, "<svg")
	assert.Contains(t, html, "a (Bus ID = 0)")
	assert.Contains(t, html, "line from 1 to 3 (Line index = 2)")
	assert.Equal(t, 4, strings.Count(html, "<circle"))
	assert.NotContains(t, html, "<table>")
}

func TestRenderColoursViolations(t *testing.T) {
	n := chain(t)
	n.ResBuses = []network.ResBus{{Index: 0, VmPU: 1.0}, {Index: 1, VmPU: 1.07}, {Index: 2, VmPU: 0.95}, {Index: 3, VmPU: 1.0}}
	n.ResLines = []network.ResLine{{Index: 0, LoadingPercent: 75}, {Index: 1, LoadingPercent: 10}, {Index: 2, LoadingPercent: 10}}
	path := filepath.Join(t.TempDir(), "grid.html")

	require.NoError(t, NewHTML(evaluate.DefaultLimits()).RenderToFile(n, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, colorOver)
	assert.Contains(t, html, colorUnder)
	assert.Contains(t, html, "1.070 p.u.")
	assert.Contains(t, html, "75.000 %")
	assert.Contains(t, html, `class="over"`)
}

func TestRenderToFileBadPath(t *testing.T) {
	err := NewHTML(evaluate.DefaultLimits()).RenderToFile(chain(t), filepath.Join(t.TempDir(), "missing", "grid.html"))
	assert.Error(t, err)
}

func TestVoltageProfile(t *testing.T) {
	n := chain(t)
	n.ResBuses = []network.ResBus{{Index: 0, VmPU: 1.0}, {Index: 1, VmPU: 0.99}, {Index: 2, VmPU: 0.98}, {Index: 3, VmPU: 0.985}}

	var buf bytes.Buffer
	h := &HTML{Limits: evaluate.DefaultLimits(), Display: &buf}
	require.NoError(t, h.RenderToDisplay(n))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "Voltage profile of chain", lines[0])
	assert.Contains(t, lines[2], "1.000")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(lines[4]), "2 "), lines[4])
	assert.Contains(t, lines[2], "|")
}

func TestVoltageProfileWithoutResults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteVoltageProfile(&buf, chain(t), evaluate.DefaultLimits()))
	assert.Equal(t, "Voltage profile of chain: no results\n", buf.String())
}

func TestNilDisplayIsQuiet(t *testing.T) {
	h := &HTML{Limits: evaluate.DefaultLimits()}
	assert.NoError(t, h.RenderToDisplay(chain(t)))
}
