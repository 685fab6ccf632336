package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grid-integration-study/config"
	"grid-integration-study/cosim"
)

func TestCoSimCmdFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "verbose: false\n")
	mat := filepath.Join(dir, "data.mat")
	writeActivePower(t, mat, 65900.7, 999.9)

	out, _, err := execute(t, "cosim", "--config", cfgPath, "--mat-file", mat)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Fields("index raw p_mw"), strings.Fields(lines[0]))
	assert.Equal(t, []string{"0", "65900.700", "65.900"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"1", "999.900", "0.999"}, strings.Fields(lines[2]))
}

func TestCoSimCmdEngine(t *testing.T) {
	dir := t.TempDir()
	writeActivePower(t, filepath.Join(dir, "engine-output.mat"), 45000)
	cfgPath := writeConfig(t, dir, `cosim:
  args: ["-c", "cp engine-output.mat activePowerData.mat"]
  work_dir: `+dir+"\n")

	out, logs, err := execute(t, "cosim", "--config", cfgPath, "--engine", "sh")
	require.NoError(t, err)
	assert.Contains(t, out, "45.000")
	assert.Contains(t, logs, "starting simulation engine")
}

func TestCoSimCmdEngineFailure(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "cosim:\n  args: [\"-c\", \"exit 2\"]\n  work_dir: "+dir+"\n")

	_, _, err := execute(t, "cosim", "--config", cfgPath, "--engine", "sh")
	var de *cosim.DataExchangeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "run", de.Op)
}

func TestCoSimCmdMissingConfig(t *testing.T) {
	_, _, err := execute(t, "cosim", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorIs(t, err, config.ErrConfigNotFound)
}
