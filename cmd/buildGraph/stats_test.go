package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	ns, ok := nsPerMessage(benchmarkResult{ActualElapsed: "1s", NumMessagesConsumed: 1000})
	require.True(t, ok)
	assert.InDelta(t, 1e6, ns, 1e-9)

	_, ok = nsPerMessage(benchmarkResult{ActualElapsed: "1s"})
	assert.False(t, ok, "no consumed messages")
	_, ok = nsPerMessage(benchmarkResult{ActualElapsed: "garbage", NumMessagesConsumed: 1})
	assert.False(t, ok)

	rate, ok := rejectionRate(benchmarkResult{NumMessages: 75, NumRejected: 25})
	require.True(t, ok)
	assert.InDelta(t, 0.25, rate, 1e-9)
	_, ok = rejectionRate(benchmarkResult{})
	assert.False(t, ok)
}

func TestGroupSessions(t *testing.T) {
	sessions := []fullReport{
		{
			SystemInfo: systemInfo{NumCPU: 8, SimulatedCPUCount: 2},
			Benchmarks: []benchmarkResult{
				{Implementation: "A", NumProducers: 1, NumConsumers: 1, NumMessages: 1, NumRejected: 1},
				{Implementation: "A", NumProducers: 1, NumConsumers: 1, NumMessages: 3, NumRejected: 1},
				{Implementation: "B", NumProducers: 2, NumConsumers: 2, NumMessages: 1},
			},
		},
		{
			SystemInfo: systemInfo{NumCPU: 4},
			Benchmarks: []benchmarkResult{{Implementation: "A", NumProducers: 1, NumConsumers: 1}},
		},
	}
	g := groupSessions(sessions, rejectionRate)

	require.Contains(t, g, 2)
	assert.Equal(t, []float64{0.5, 0.25}, g[2]["A"][2])
	assert.Equal(t, []float64{0}, g[2]["B"][4])
	assert.Empty(t, g[4], "results without attempts are skipped")
}

func TestBuildStats(t *testing.T) {
	stats := buildStats(map[float64][]float64{
		20: {5, 1, 3},
		4:  {2, 4},
	})
	require.Len(t, stats, 2)
	assert.Equal(t, 4.0, stats[0].orig)
	assert.Equal(t, 3.0, stats[0].median)
	assert.Equal(t, 20.0, stats[1].orig)
	assert.Equal(t, 3.0, stats[1].median)
	// Three samples are too few for a 5% bottom slice, so min falls back to the median.
	assert.Equal(t, 3.0, stats[1].min)
	assert.Equal(t, 5.0, stats[1].max)

	low, high := statsPoints(stats).YError(1)
	assert.Equal(t, 0.0, low)
	assert.Equal(t, 2.0, high)
}

func TestAverageOfRange(t *testing.T) {
	vals := make([]float64, 100)
	for i := range vals {
		vals[i] = float64(i)
	}
	assert.Equal(t, 2.0, averageOfRange(vals, 0, 0.05))
	assert.Equal(t, 97.0, averageOfRange(vals, 0.95, 1))
	assert.Equal(t, 0.0, averageOfRange(nil, 0, 1))
	assert.Equal(t, 7.0, averageOfRange([]float64{7}, 0, 0.05), "falls back to the median")
}

func TestLoadSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"session_time":"x","benchmarks":[{"implementation":"A","num_rejected":3}]}]`), 0o644))
	sessions, err := loadSessions(path)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, int64(3), sessions[0].Benchmarks[0].NumRejected)

	_, err = loadSessions(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
