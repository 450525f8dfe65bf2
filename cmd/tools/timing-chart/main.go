// Command timing-chart renders per-stage timing reports produced by the
// cadence runner (-timings) as an HTML chart, and optionally a PNG, so
// runs with different cadence periods or stage latencies can be compared
// side by side.
//
// Usage:
//
//	timing-chart -out timings.html [-png timings.png] run1.json run2.json ...
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// report is one runner timing file: stage name to average milliseconds.
type report struct {
	label  string
	timing map[string]float64
}

func main() {
	var (
		htmlOut = flag.String("out", "timings.html", "output HTML path")
		pngOut  = flag.String("png", "", "optional output PNG path")
		title   = flag.String("title", "Cadence stage timings", "chart title")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatal("usage: timing-chart [-out html] [-png png] report.json ...")
	}

	reports := make([]report, 0, flag.NArg())
	for _, path := range flag.Args() {
		r, err := loadReport(path)
		if err != nil {
			log.Fatalf("load %s: %v", path, err)
		}
		reports = append(reports, r)
	}

	stages := stageUnion(reports)
	if err := renderHTML(*htmlOut, *title, stages, reports); err != nil {
		log.Fatalf("render html: %v", err)
	}
	log.Printf("wrote %s", *htmlOut)

	if *pngOut != "" {
		if err := renderPNG(*pngOut, *title, stages, reports); err != nil {
			log.Fatalf("render png: %v", err)
		}
		log.Printf("wrote %s", *pngOut)
	}
}

func loadReport(path string) (report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return report{}, err
	}
	timing := make(map[string]float64)
	if err := json.Unmarshal(data, &timing); err != nil {
		return report{}, fmt.Errorf("parse: %w", err)
	}
	label := filepath.Base(path)
	return report{label: label, timing: timing}, nil
}

// stageUnion returns all stage names across reports in sorted order.
func stageUnion(reports []report) []string {
	seen := make(map[string]bool)
	for _, r := range reports {
		for stage := range r.timing {
			seen[stage] = true
		}
	}
	stages := make([]string, 0, len(seen))
	for stage := range seen {
		stages = append(stages, stage)
	}
	sort.Strings(stages)
	return stages
}

func renderHTML(path, title string, stages []string, reports []report) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithYAxisOpts(opts.YAxis{Name: "avg ms"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(stages)
	for _, r := range reports {
		data := make([]opts.BarData, len(stages))
		for i, stage := range stages {
			data[i] = opts.BarData{Value: r.timing[stage]}
		}
		bar.AddSeries(r.label, data)
	}

	page := components.NewPage()
	page.AddCharts(bar)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}

func renderPNG(path, title string, stages []string, reports []report) error {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "avg ms"
	p.NominalX(stages...)

	width := vg.Points(float64(40) / float64(len(reports)))
	for i, r := range reports {
		values := make(plotter.Values, len(stages))
		for j, stage := range stages {
			values[j] = r.timing[stage]
		}
		bars, err := plotter.NewBarChart(values, width)
		if err != nil {
			return err
		}
		bars.Offset = vg.Length(float64(width) * (float64(i) - float64(len(reports)-1)/2))
		p.Add(bars)
		p.Legend.Add(r.label, bars)
	}
	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}
