package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grid-integration-study/network"
)

func TestNetworkClassesCmd(t *testing.T) {
	out, _, err := execute(t, "network", "classes")
	require.NoError(t, err)
	assert.Equal(t, strings.Join(network.NetworkClasses(), "\n")+"\n", out)
}

func TestNetworkExportCmd(t *testing.T) {
	dir := t.TempDir()

	raw := filepath.Join(dir, "raw.json")
	_, _, err := execute(t, "network", "export", "--class", "rural_1", raw)
	require.NoError(t, err)
	net, err := network.ImportFromFile(raw)
	require.NoError(t, err)
	assert.Len(t, net.Buses, 26)
	assert.False(t, net.HasResults())

	solved := filepath.Join(dir, "solved.json")
	_, _, err = execute(t, "network", "export", "--prepare", "--solve", solved)
	require.NoError(t, err)
	net, err = network.ImportFromFile(solved)
	require.NoError(t, err)
	assert.True(t, net.HasResults())
	assert.Len(t, net.Sgens, 3+countSgens(t, raw))
	assert.Equal(t, "NewGen at bus 25", net.Sgens[len(net.Sgens)-1].Name)
}

func countSgens(t *testing.T, path string) int {
	t.Helper()
	net, err := network.ImportFromFile(path)
	require.NoError(t, err)
	return len(net.Sgens)
}

func TestNetworkExportCmdErrors(t *testing.T) {
	_, _, err := execute(t, "network", "export", "--class", "urban_9", filepath.Join(t.TempDir(), "x.json"))
	assert.ErrorIs(t, err, network.ErrUnknownNetworkClass)

	_, _, err = execute(t, "network", "export")
	assert.Error(t, err)
}
