// Command detections-report renders stored detections as an HTML scatter
// chart over the projection area, for checking calibration after a session.
//
// Usage:
//
//	detections-report -db touchfield.db -out report.html [-since 2h] [-limit 5000]
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/aperture-works/touchfield/internal/config"
	"github.com/aperture-works/touchfield/internal/db"
)

var (
	dbFile     = flag.String("db", "touchfield.db", "Path to the SQLite database file")
	outFile    = flag.String("out", "report.html", "Output HTML file")
	configPath = flag.String("config", "", "Tuning config JSON for the projection extents")
	since      = flag.Duration("since", 0, "Only include detections newer than this age (0 = all)")
	limit      = flag.Int("limit", 5000, "Maximum number of detections to plot")
)

func main() {
	flag.Parse()

	var cfg *config.TuningConfig
	if *configPath != "" {
		var err error
		cfg, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config %s: %v", *configPath, err)
		}
	} else {
		cfg = config.MustLoadDefaultConfig()
	}

	store, err := db.OpenDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open database %s: %v", *dbFile, err)
	}
	defer store.Close()

	var cutoff time.Time
	if *since > 0 {
		cutoff = time.Now().Add(-*since)
	}
	detections, err := store.Detections(cutoff, *limit)
	if err != nil {
		log.Fatalf("failed to load detections: %v", err)
	}
	if len(detections) == 0 {
		log.Fatal("no detections in range")
	}

	stats, err := store.Stats()
	if err != nil {
		log.Fatalf("failed to compute stats: %v", err)
	}

	data := make([]opts.ScatterData, 0, len(detections))
	for _, d := range detections {
		data = append(data, opts.ScatterData{Value: []interface{}{d.X, d.Y}})
	}

	// Axis ranges follow the projection area so the plot is to scale; a small
	// pad keeps edge detections visible.
	halfW := cfg.GetProjectionWidthM() / 2
	halfH := cfg.GetProjectionHeightM() / 2
	padW := halfW * 1.05
	padH := halfH * 1.05

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Touchfield Detections", Theme: "dark", Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{
			Title: "Touchfield Detections",
			Subtitle: fmt.Sprintf("points=%d mean=(%.2f, %.2f) span %s to %s",
				len(data), stats.MeanX, stats.MeanY,
				stats.First.Format(time.RFC3339), stats.Last.Format(time.RFC3339)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -padW, Max: padW, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -padH, Max: padH, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("detections", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))

	f, err := os.Create(*outFile)
	if err != nil {
		log.Fatalf("failed to create %s: %v", *outFile, err)
	}
	defer f.Close()

	if err := scatter.Render(f); err != nil {
		log.Fatalf("failed to render chart: %v", err)
	}
	log.Printf("wrote %d detections to %s", len(data), *outFile)
}
