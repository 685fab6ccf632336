package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grid-integration-study/evaluate"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func evaluation(line float64, violated bool) evaluate.Evaluation {
	return evaluate.Evaluation{
		Line:              evaluate.Metric{Kind: evaluate.LineLoading, Index: 1, Value: line, Violated: violated},
		Transformer:       evaluate.Metric{Kind: evaluate.TransformerLoading, Index: 0, Value: 40},
		MaxVoltage:        evaluate.Metric{Kind: evaluate.MaxBusVoltage, Index: 25, Value: 1.07, Violated: true},
		MinVoltage:        evaluate.Metric{Kind: evaluate.MinBusVoltage, Index: 1, Value: 0.99},
		TotalGenerationMW: 0.565,
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, filepath.Join(dir, FileName), s.Path())
	_, err = os.Stat(s.Path())
	assert.NoError(t, err)
}

func TestSaveAndLoadCycles(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	run := NewRunID()
	before := time.Now().Add(-time.Second)

	id1, err := s.SaveCycle(ctx, run, "Unmodified Grid", evaluation(30, false))
	require.NoError(t, err)
	id2, err := s.SaveCycle(ctx, run, "Modified Grid", evaluation(75, true))
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	_, err = s.SaveCycle(ctx, NewRunID(), "other", evaluation(10, false))
	require.NoError(t, err)

	cycles, err := s.Cycles(ctx, run)
	require.NoError(t, err)
	require.Len(t, cycles, 2)

	c := cycles[1]
	assert.Equal(t, id2, c.ID)
	assert.Equal(t, run, c.RunID)
	assert.Equal(t, "Modified Grid", c.Label)
	assert.Equal(t, 75.0, c.MaxLineLoading)
	assert.Equal(t, 1, c.WorstLine)
	assert.Equal(t, 40.0, c.MaxTrafoLoading)
	assert.Equal(t, 1.07, c.MaxVM)
	assert.Equal(t, 25, c.MaxVMBus)
	assert.Equal(t, 0.99, c.MinVM)
	assert.Equal(t, 1, c.MinVMBus)
	assert.Equal(t, 0.565, c.TotalSgenMW)
	assert.Equal(t, 2, c.Violations)
	assert.True(t, c.CreatedAt.After(before))
	assert.Equal(t, 1, cycles[0].Violations)
}

func TestCyclesUnknownRun(t *testing.T) {
	cycles, err := openTestStore(t).Cycles(context.Background(), NewRunID())
	require.NoError(t, err)
	assert.Empty(t, cycles)
}

func TestRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	first, second := NewRunID(), NewRunID()
	for _, run := range []struct {
		id   uuid.UUID
		line float64
	}{{first, 30}, {first, 75}, {second, 75}} {
		_, err := s.SaveCycle(ctx, run.id, "cycle", evaluation(run.line, run.line > 60))
		require.NoError(t, err)
	}

	runs, err := s.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, 1, runs[0].Cycles)
	assert.Equal(t, first, runs[1].ID)
	assert.Equal(t, 2, runs[1].Cycles)
	assert.Equal(t, 3, runs[1].Violations)
	assert.False(t, runs[1].StartedAt.IsZero())

	runs, err = s.Runs(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestReopenKeepsHistory(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	run := NewRunID()
	_, err = s.SaveCycle(context.Background(), run, "cycle", evaluation(30, false))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()
	cycles, err := s.Cycles(context.Background(), run)
	require.NoError(t, err)
	assert.Len(t, cycles, 1)
}
