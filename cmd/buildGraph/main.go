package main

import (
	"flag"
	"fmt"
	"image/color"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// categoryTicks implements a categorical X-axis: 0,1,2,... => labels for concurrency.
type categoryTicks struct {
	positions []float64
	labels    []string
}

func (ct categoryTicks) Ticks(lo, hi float64) []plot.Tick {
	var ticks []plot.Tick
	for i, pos := range ct.positions {
		if pos >= lo && pos <= hi {
			ticks = append(ticks, plot.Tick{Value: pos, Label: ct.labels[i]})
		}
	}
	return ticks
}

// chart describes one family of graphs, one file per GOMAXPROCS value.
type chart struct {
	suffix string
	title  string
	yLabel string
	metric metric
	format func(float64) string
}

func main() {
	jsonFile := flag.String("jsonfile", "test-results.json", "Path to JSON file containing test sessions")
	outputPrefix := flag.String("out", "benchmark_graph", "Output graph image filename prefix")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	sessions, err := loadSessions(*jsonFile)
	if err != nil {
		logger.Fatal("cannot load sessions", zap.Error(err))
	}

	charts := []chart{
		{suffix: "", title: "Time per Msg", yLabel: "Time per Msg (ns)", metric: nsPerMessage, format: formatNs},
		{suffix: "_rejected", title: "Rejected Enqueues", yLabel: "Rejected / Attempts", metric: rejectionRate, format: formatPercent},
	}

	for _, c := range charts {
		grouped := groupSessions(sessions, c.metric)
		cpuCounts := make([]int, 0, len(grouped))
		for cpus := range grouped {
			cpuCounts = append(cpuCounts, cpus)
		}
		sort.Ints(cpuCounts)

		for _, cpus := range cpuCounts {
			filename := fmt.Sprintf("%s%s_%d.png", *outputPrefix, c.suffix, cpus)
			if err := renderChart(c, cpus, grouped[cpus], filename, logger); err != nil {
				logger.Error("cannot render graph", zap.Int("cpus", cpus), zap.Error(err))
				continue
			}
			logger.Info("graph saved", zap.Int("cpus", cpus), zap.String("file", filename))
		}
	}
}

func renderChart(c chart, cpus int, implMap map[string]map[float64][]float64, filename string, logger *zap.Logger) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (5%%-avg-min / Median / 5%%-avg-max) vs. Concurrency for %d CPU(s)", c.title, cpus)
	p.X.Label.Text = "NumProducers + NumConsumers"
	p.Y.Label.Text = c.yLabel

	// Dark theme.
	p.BackgroundColor = color.RGBA{R: 30, G: 30, B: 30, A: 255}
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	p.Title.TextStyle.Color = white
	p.X.Label.TextStyle.Color = white
	p.Y.Label.TextStyle.Color = white
	p.X.Color = white
	p.Y.Color = white
	p.X.Tick.Label.Color = white
	p.Y.Tick.Label.Color = white
	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.TextStyle.Color = white

	p.Y.Tick.Marker = plot.TickerFunc(func(lo, hi float64) []plot.Tick {
		ticks := plot.DefaultTicks{}.Ticks(lo, hi)
		for i := range ticks {
			if ticks[i].Label != "" {
				ticks[i].Label = c.format(ticks[i].Value)
			}
		}
		return ticks
	})
	p.Add(plotter.NewGrid())

	// Categorical x axis over the union of concurrency values.
	concurrencySet := make(map[float64]struct{})
	for _, implData := range implMap {
		for conc := range implData {
			concurrencySet[conc] = struct{}{}
		}
	}
	concValues := make([]float64, 0, len(concurrencySet))
	for v := range concurrencySet {
		concValues = append(concValues, v)
	}
	sort.Float64s(concValues)

	concMapping := make(map[float64]float64, len(concValues))
	var positions []float64
	var labels []string
	for i, v := range concValues {
		concMapping[v] = float64(i)
		positions = append(positions, float64(i))
		labels = append(labels, strconv.FormatFloat(v, 'f', -1, 64))
	}
	p.X.Tick.Marker = categoryTicks{positions: positions, labels: labels}

	implNames := make([]string, 0, len(implMap))
	for name := range implMap {
		implNames = append(implNames, name)
	}
	sort.Strings(implNames)

	colors := plotutil.SoftColors
	shapes := []draw.GlyphDrawer{
		draw.CircleGlyph{},
		draw.SquareGlyph{},
		draw.TriangleGlyph{},
		draw.CrossGlyph{},
		draw.PlusGlyph{},
	}

	// Slight offset so each implementation is visually separated.
	offsetRange := 0.4
	offsetStep := offsetRange / math.Max(1, float64(len(implNames)))
	startOffset := -offsetRange/2 + offsetStep/2

	for i, impl := range implNames {
		stats := buildStats(implMap[impl])
		if len(stats) == 0 {
			continue
		}
		for j := range stats {
			stats[j].x = concMapping[stats[j].orig] + startOffset + float64(i)*offsetStep
		}
		sp := statsPoints(stats)

		line, err := plotter.NewLine(sp)
		if err != nil {
			logger.Warn("cannot create line", zap.String("impl", impl), zap.Error(err))
			continue
		}
		line.Color = colors[i%len(colors)]

		points, err := plotter.NewScatter(sp)
		if err != nil {
			logger.Warn("cannot create scatter", zap.String("impl", impl), zap.Error(err))
			continue
		}
		points.GlyphStyle.Radius = vg.Points(5)
		points.Color = colors[i%len(colors)]
		points.Shape = shapes[i%len(shapes)]

		yErrBars, err := plotter.NewYErrorBars(sp)
		if err != nil {
			logger.Warn("cannot create error bars", zap.String("impl", impl), zap.Error(err))
			continue
		}
		yErrBars.Color = colors[i%len(colors)]

		p.Add(line, points, yErrBars)
		p.Legend.Add(impl, line, points)
	}

	return errors.Wrapf(p.Save(12*vg.Inch, 9*vg.Inch, filename), "save %q", filename)
}

// formatNs nicely formats a nanoseconds value in ns, µs, ms, or s.
func formatNs(ns float64) string {
	switch {
	case ns < 1e3:
		return fmt.Sprintf("%.0fns", ns)
	case ns < 1e6:
		return fmt.Sprintf("%.1fµs", ns/1e3)
	case ns < 1e9:
		return fmt.Sprintf("%.1fms", ns/1e6)
	default:
		return fmt.Sprintf("%.2fs", ns/1e9)
	}
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}
