package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/rssi-distance/internal/search"
)

// missing is how ECharts marks a gap in a line series.
const missing = "-"

// WriteAccuracyChart renders the mean cross-validated accuracy of every
// trial as an HTML line chart, with a band of one standard deviation.
// Unscored trials appear as gaps.
func WriteAccuracyChart(w io.Writer, res *search.Result, subtitle string) error {
	if res == nil || len(res.Trials) == 0 {
		return fmt.Errorf("no trials to chart")
	}

	x := make([]string, len(res.Trials))
	mean := make([]opts.LineData, len(res.Trials))
	lower := make([]opts.LineData, len(res.Trials))
	upper := make([]opts.LineData, len(res.Trials))
	for i, t := range res.Trials {
		x[i] = t.Bandwidths.String()
		if !t.Scored() {
			mean[i] = opts.LineData{Value: missing}
			lower[i] = opts.LineData{Value: missing}
			upper[i] = opts.LineData{Value: missing}
			continue
		}
		mean[i] = opts.LineData{Value: t.Mean}
		lower[i] = opts.LineData{Value: t.Mean - t.StdDev}
		upper[i] = opts.LineData{Value: t.Mean + t.StdDev}
	}

	best := res.Best()
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Bandwidth search", Width: "1100px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Best %s: %.4f", best.Bandwidths, best.Mean),
			Subtitle: subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "bandwidth", NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Name: "accuracy", Min: "dataMin", Max: "dataMax"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(x).
		AddSeries("mean", mean, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)})).
		AddSeries("mean - sd", lower, charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed", Opacity: opts.Float(0.5)})).
		AddSeries("mean + sd", upper, charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed", Opacity: opts.Float(0.5)}))

	return line.Render(w)
}
