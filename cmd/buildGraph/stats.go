package main

import (
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// benchmarkResult mirrors the fields of cmd/bench's BenchmarkResult that the graphs use.
type benchmarkResult struct {
	Implementation      string `json:"implementation"`
	NumProducers        int    `json:"num_producers"`
	NumConsumers        int    `json:"num_consumers"`
	NumMessages         int64  `json:"num_messages"`
	NumMessagesConsumed int64  `json:"num_messages_consumed"`
	NumRejected         int64  `json:"num_rejected"`
	ActualElapsed       string `json:"actual_elapsed"`
}

type systemInfo struct {
	NumCPU            int `json:"num_cpu"`
	SimulatedCPUCount int `json:"simulated_cpu_count,omitempty"`
}

type fullReport struct {
	SessionTime string            `json:"session_time"`
	SystemInfo  systemInfo        `json:"system_info"`
	Benchmarks  []benchmarkResult `json:"benchmarks"`
}

// metric extracts one y value from a result; ok is false if the result should be skipped.
type metric func(b benchmarkResult) (y float64, ok bool)

// nsPerMessage is the wall time spent per consumed message.
func nsPerMessage(b benchmarkResult) (float64, bool) {
	dur, err := time.ParseDuration(b.ActualElapsed)
	if err != nil || b.NumMessagesConsumed == 0 {
		return 0, false
	}
	return float64(dur.Nanoseconds()) / float64(b.NumMessagesConsumed), true
}

// rejectionRate is the share of Enqueue attempts refused because the queue was full.
func rejectionRate(b benchmarkResult) (float64, bool) {
	attempts := b.NumMessages + b.NumRejected
	if attempts == 0 {
		return 0, false
	}
	return float64(b.NumRejected) / float64(attempts), true
}

// series is cpus -> implementation -> concurrency -> samples.
type series map[int]map[string]map[float64][]float64

func loadSessions(path string) ([]fullReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %q", path)
	}
	var sessions []fullReport
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %q", path)
	}
	return sessions, nil
}

func groupSessions(sessions []fullReport, m metric) series {
	out := make(series)
	for _, session := range sessions {
		cpus := session.SystemInfo.SimulatedCPUCount
		if cpus == 0 {
			cpus = session.SystemInfo.NumCPU
		}
		if out[cpus] == nil {
			out[cpus] = make(map[string]map[float64][]float64)
		}
		for _, b := range session.Benchmarks {
			y, ok := m(b)
			if !ok {
				continue
			}
			x := float64(b.NumProducers + b.NumConsumers)
			if out[cpus][b.Implementation] == nil {
				out[cpus][b.Implementation] = make(map[float64][]float64)
			}
			out[cpus][b.Implementation][x] = append(out[cpus][b.Implementation][x], y)
		}
	}
	return out
}

// concurrencyStats holds "5%-avg-min", median, and "5%-avg-max" for one concurrency level.
type concurrencyStats struct {
	x      float64 // plotted position
	orig   float64 // producers + consumers
	min    float64
	median float64
	max    float64
}

type statsPoints []concurrencyStats

func (s statsPoints) Len() int                { return len(s) }
func (s statsPoints) XY(i int) (x, y float64) { return s[i].x, s[i].median }
func (s statsPoints) YError(i int) (low, high float64) {
	return s[i].median - s[i].min, s[i].max - s[i].median
}

// buildStats sorts the samples of every concurrency level and summarizes them,
// ordered by concurrency.
func buildStats(byConcurrency map[float64][]float64) []concurrencyStats {
	var out []concurrencyStats
	for x, vals := range byConcurrency {
		if len(vals) == 0 {
			continue
		}
		sort.Float64s(vals)
		out = append(out, concurrencyStats{
			x:      x,
			orig:   x,
			min:    averageOfRange(vals, 0.0, 0.05),
			median: median(vals),
			max:    averageOfRange(vals, 0.95, 1.0),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].orig < out[j].orig })
	return out
}

// averageOfRange returns the average of sortedVals in [startFrac, endFrac) of its length,
// falling back to the median when that slice is empty.
func averageOfRange(sortedVals []float64, startFrac, endFrac float64) float64 {
	n := len(sortedVals)
	if n == 0 {
		return 0
	}
	startIndex := max(int(float64(n)*startFrac), 0)
	endIndex := min(int(float64(n)*endFrac), n)
	if startIndex >= endIndex {
		return median(sortedVals)
	}
	sum := 0.0
	for _, v := range sortedVals[startIndex:endIndex] {
		sum += v
	}
	return sum / float64(endIndex-startIndex)
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	return 0.5 * (sorted[mid-1] + sorted[mid])
}
