package main

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeConfig writes a configuration file so the lookup never reaches the
// user's own files.
func writeConfig(t *testing.T, dir, data string) string {
	t.Helper()
	path := filepath.Join(dir, "gridstudy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

// writeActivePower writes a little endian MAT-file holding a 1xN double
// array named activePower.
func writeActivePower(t *testing.T, path string, values ...float64) {
	t.Helper()
	le := binary.LittleEndian
	element := func(typ uint32, data []byte) []byte {
		buf := make([]byte, 8, 16+len(data))
		le.PutUint32(buf, typ)
		le.PutUint32(buf[4:], uint32(len(data)))
		buf = append(buf, data...)
		for len(buf)%8 != 0 {
			buf = append(buf, 0)
		}
		return buf
	}

	flags := make([]byte, 8)
	le.PutUint32(flags, 6) // double
	dims := make([]byte, 8)
	le.PutUint32(dims, 1)
	le.PutUint32(dims[4:], uint32(len(values)))
	data := make([]byte, 8*len(values))
	for i, v := range values {
		le.PutUint64(data[8*i:], math.Float64bits(v))
	}
	body := element(6, flags)
	body = append(body, element(5, dims)...)
	body = append(body, element(1, []byte("activePower"))...)
	body = append(body, element(9, data)...)

	head := bytes.Repeat([]byte{' '}, 128)
	copy(head, "MATLAB 5.0 MAT-file")
	copy(head[116:], make([]byte, 8))
	le.PutUint16(head[124:], 0x0100)
	copy(head[126:], "IM")
	require.NoError(t, os.WriteFile(path, append(head, element(14, body)...), 0o600))
}
