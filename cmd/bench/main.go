package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/i5heu/dataqueue/internal/queue"
	"github.com/i5heu/dataqueue/internal/testbench"
	"github.com/i5heu/dataqueue/pkg/buffered"
	"github.com/i5heu/dataqueue/pkg/config"
	"github.com/i5heu/dataqueue/pkg/dataqueue"
)

// BenchmarkResult holds results for one test run.
type BenchmarkResult struct {
	Implementation      string  `json:"implementation"`
	NumProducers        int     `json:"num_producers"`
	NumConsumers        int     `json:"num_consumers"`
	Capacity            int     `json:"capacity"`
	NumMessages         int64   `json:"num_messages"`          // produced count
	NumMessagesConsumed int64   `json:"num_messages_consumed"` // consumed count
	NumRejected         int64   `json:"num_rejected"`          // Enqueue returned false
	TestDuration        string  `json:"test_duration"`         // e.g. "10s"
	ActualElapsed       string  `json:"actual_elapsed"`        // measured time
	Throughput          float64 `json:"throughput_msgs_sec"`   // based on consumed count
	Timestamp           int64   `json:"timestamp"`
	GoVersion           string  `json:"go_version"`
}

// SystemInfo holds system information.
type SystemInfo struct {
	NumCPU            int     `json:"num_cpu"`
	TrueCPU           int     `json:"true_cpu,omitempty"`
	SimulatedCPUCount int     `json:"simulated_cpu_count,omitempty"`
	CPUModel          string  `json:"cpu_model,omitempty"`
	CPUSpeedMHz       float64 `json:"cpu_speed_mhz,omitempty"`
	GOARCH            string  `json:"go_arch"`
	TotalMemory       uint64  `json:"total_memory_bytes,omitempty"`
}

// FullReport represents a complete test session.
type FullReport struct {
	SessionTime string            `json:"session_time"`
	SystemInfo  SystemInfo        `json:"system_info"`
	Benchmarks  []BenchmarkResult `json:"benchmarks"`
}

// Implementation represents a queue implementation under test.
type Implementation struct {
	name        string
	description string
	pkgName     string
	features    []string
	newQueue    func(capacity int) queue.Interface[*int]
}

// getImplementations enumerates the queue implementations.
func getImplementations() []Implementation {
	return []Implementation{
		{
			name:        "BoundedQueue",
			pkgName:     "dataqueue",
			description: "Mutex-guarded singly linked list; memory follows current occupancy.",
			features:    []string{"MPMC", "FIFO", "Atomic-FreeAll"},
			newQueue: func(capacity int) queue.Interface[*int] {
				return dataqueue.New[*int](capacity)
			},
		},
		{
			name:        "Golang Buffered Channel",
			pkgName:     "buffered",
			description: "Buffered channel with non-blocking send/receive, the baseline.",
			features:    []string{"MPMC", "FIFO"},
			newQueue: func(capacity int) queue.Interface[*int] {
				return buffered.New[*int](capacity)
			},
		},
	}
}

func newLogger(verbose bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// loadReports reads all sessions stored in a JSON report file.
func loadReports(jsonFile string) ([]FullReport, error) {
	data, err := os.ReadFile(jsonFile)
	if err != nil {
		return nil, errors.Wrapf(err, "read %q", jsonFile)
	}
	var sessions []FullReport
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %q", jsonFile)
	}
	return sessions, nil
}

// appendReports appends sessions to the JSON report file, creating it if needed.
func appendReports(jsonFile string, sessions []FullReport) error {
	var previous []FullReport
	if _, err := os.Stat(jsonFile); err == nil {
		previous, err = loadReports(jsonFile)
		if err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(append(previous, sessions...), "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal report")
	}
	return errors.Wrapf(os.WriteFile(jsonFile, data, 0644), "write %q", jsonFile)
}

// renderMarkdownTable formats the last session of sessions as a Markdown table.
func renderMarkdownTable(sessions []FullReport) (string, error) {
	if len(sessions) == 0 {
		return "", errors.New("no sessions found in JSON")
	}
	lastSession := sessions[len(sessions)-1]

	implMetaMap := make(map[string]Implementation)
	for _, impl := range getImplementations() {
		implMetaMap[impl.name] = impl
	}

	type tableRow struct {
		implementation string
		pkgName        string
		features       string
		producers      int
		consumers      int
		throughput     float64
	}
	var rows []tableRow
	for _, bench := range lastSession.Benchmarks {
		meta := implMetaMap[bench.Implementation]
		rows = append(rows, tableRow{
			implementation: bench.Implementation,
			pkgName:        meta.pkgName,
			features:       strings.Join(meta.features, ", "),
			producers:      bench.NumProducers,
			consumers:      bench.NumConsumers,
			throughput:     bench.Throughput,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].throughput > rows[j].throughput
	})

	var sb strings.Builder
	sb.WriteString("## Last Session Benchmark Summary\n\n")
	sb.WriteString("| Implementation           | Package         | Features                    | P/C       | Throughput (msgs/sec) |\n")
	sb.WriteString("|--------------------------|-----------------|-----------------------------|-----------|-----------------------|\n")
	for _, r := range rows {
		fmt.Fprintf(&sb, "| %-24s | %-15s | %-27s | %-9s | %21.0f |\n",
			r.implementation, r.pkgName, r.features,
			fmt.Sprintf("%d/%d", r.producers, r.consumers), r.throughput)
	}
	return sb.String(), nil
}

// cpuSettings picks the GOMAXPROCS values to run with.
func cpuSettings(cfg config.Config, cpuFlag, trueCPUCount int) []int {
	if cpuFlag > 0 {
		return []int{min(cpuFlag, trueCPUCount)}
	}
	if len(cfg.CPUs) > 0 {
		var out []int
		for _, v := range cfg.CPUs {
			if v <= trueCPUCount {
				out = append(out, v)
			}
		}
		return out
	}
	commonCPUs := []int{1, 2, 3, 4, 6, 8, 12, 16, 32, 48, 56, 64, 96, 128, 192, 256, 384, 512}
	var out []int
	for _, v := range commonCPUs {
		if v <= trueCPUCount {
			out = append(out, v)
		}
	}
	return out
}

func main() {
	configFile := flag.String("config", "", "Path to a YAML bench config; defaults are used if empty")
	testIterations := flag.Int("iter", 0, "Number of test iterations per concurrency setting (overrides config)")
	cpuMaxFlag := flag.Int("cpu", 0, "If non-zero, test only that GOMAXPROCS value; if 0, use config or common CPU values up to runtime.NumCPU()")
	jsonExport := flag.Bool("json", false, "Export results as JSON to -jsonfile")
	highConcurrency := flag.Bool("high-concurrency", false, "Include high concurrency configurations")
	markdownTable := flag.Bool("markdown-table", false, "Output markdown table from -jsonfile and exit")
	jsonFile := flag.String("jsonfile", "test-results.json", "Path to JSON results file")
	progressFlag := flag.Bool("progress", false, "Display a progress bar with ETA")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	logger := newLogger(*verbose)
	defer logger.Sync() //nolint:errcheck

	if *markdownTable {
		sessions, err := loadReports(*jsonFile)
		if err != nil {
			logger.Fatal("cannot load results", zap.Error(err))
		}
		table, err := renderMarkdownTable(sessions)
		if err != nil {
			logger.Fatal("cannot render table", zap.Error(err))
		}
		fmt.Print(table)
		return
	}

	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			logger.Fatal("cannot load config", zap.Error(err))
		}
	}
	if *testIterations > 0 {
		cfg.Iterations = *testIterations
	}
	if *highConcurrency {
		cfg.Concurrency = append(cfg.Concurrency, config.HighConcurrency...)
	}

	trueCPUCount := runtime.NumCPU()
	cpus := cpuSettings(cfg, *cpuMaxFlag, trueCPUCount)
	impls := getImplementations()
	totalTests := len(cpus) * len(cfg.Concurrency) * cfg.Iterations * len(impls)

	var bar *progressbar.ProgressBar
	if *progressFlag {
		bar = progressbar.NewOptions(totalTests,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Benchmarking"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionClearOnFinish(),
		)
	}

	logger.Info("starting benchmark",
		zap.Int("capacity", cfg.Capacity),
		zap.Int("iterations", cfg.Iterations),
		zap.Duration("duration", cfg.Duration),
		zap.Ints("cpus", cpus),
		zap.Int("runs", totalTests),
	)

	var allSessions []FullReport

	for _, n := range cpus {
		runtime.GOMAXPROCS(n)
		sysInfo := gatherSystemInfo()
		sysInfo.NumCPU = n
		sysInfo.TrueCPU = trueCPUCount
		sysInfo.SimulatedCPUCount = n

		var results []BenchmarkResult
		for _, cc := range cfg.Concurrency {
			for iteration := 1; iteration <= cfg.Iterations; iteration++ {
				for _, impl := range impls {
					runtime.GC()
					q := impl.newQueue(cfg.Capacity)
					time.Sleep(250 * time.Millisecond)

					res := testbench.RunTimedTest(q, cc, cfg.Duration,
						func(i int) *int {
							v := i
							return &v
						},
						logger,
					)
					throughput := float64(res.Consumed) / res.Elapsed.Seconds()

					logger.Info("run finished",
						zap.String("impl", impl.name),
						zap.Int("gomaxprocs", n),
						zap.Int("producers", cc.NumProducers),
						zap.Int("consumers", cc.NumConsumers),
						zap.Int("iteration", iteration),
						zap.Int64("produced", res.Produced),
						zap.Int64("consumed", res.Consumed),
						zap.Int64("rejected", res.Rejected),
						zap.Float64("throughput", throughput),
					)
					if res.Produced != res.Consumed {
						logger.Warn("produced and consumed counts differ",
							zap.String("impl", impl.name),
							zap.Int64("produced", res.Produced),
							zap.Int64("consumed", res.Consumed),
						)
					}

					results = append(results, BenchmarkResult{
						Implementation:      impl.name,
						NumProducers:        cc.NumProducers,
						NumConsumers:        cc.NumConsumers,
						Capacity:            cfg.Capacity,
						NumMessages:         res.Produced,
						NumMessagesConsumed: res.Consumed,
						NumRejected:         res.Rejected,
						TestDuration:        cfg.Duration.String(),
						ActualElapsed:       res.Elapsed.String(),
						Throughput:          throughput,
						Timestamp:           time.Now().Unix(),
						GoVersion:           runtime.Version(),
					})
					if bar != nil {
						_ = bar.Add(1)
					}
				}
			}
		}

		allSessions = append(allSessions, FullReport{
			SessionTime: time.Now().Format(time.RFC3339),
			SystemInfo:  sysInfo,
			Benchmarks:  results,
		})
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if *jsonExport {
		if err := appendReports(*jsonFile, allSessions); err != nil {
			logger.Fatal("cannot write results", zap.Error(err))
		}
		logger.Info("wrote results", zap.String("file", *jsonFile))
	}
}

// gatherSystemInfo collects basic CPU and memory details.
func gatherSystemInfo() SystemInfo {
	var cpuModel string
	var cpuSpeed float64
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		cpuModel = infos[0].ModelName
		cpuSpeed = infos[0].Mhz
	}

	var totalMemory uint64
	if vm, err := mem.VirtualMemory(); err == nil {
		totalMemory = vm.Total
	}

	return SystemInfo{
		NumCPU:      runtime.NumCPU(),
		CPUModel:    cpuModel,
		CPUSpeedMHz: cpuSpeed,
		GOARCH:      runtime.GOARCH,
		TotalMemory: totalMemory,
	}
}
