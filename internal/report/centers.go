package report

import (
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/rssi-distance/internal/dataset"
)

// Center summarises the RSSI readings taken at one distance.
type Center struct {
	Distance float64
	Count    int
	Mean     float64
	Median   float64
	Mode     float64
}

// Centers groups the rows of every table by DISTANCE and returns the RSSI
// mean, median and mode for each distance, nearest first.
func Centers(tables ...*dataset.Table) ([]Center, error) {
	byDistance := map[float64][]float64{}
	for _, t := range tables {
		rssi, err := t.Column(dataset.ColumnRSSI)
		if err != nil {
			return nil, err
		}
		dist, err := t.Column(dataset.ColumnDistance)
		if err != nil {
			return nil, err
		}
		for i, d := range dist {
			byDistance[d] = append(byDistance[d], rssi[i])
		}
	}
	if len(byDistance) == 0 {
		return nil, fmt.Errorf("no measurements")
	}

	distances := make([]float64, 0, len(byDistance))
	for d := range byDistance {
		distances = append(distances, d)
	}
	sort.Float64s(distances)

	out := make([]Center, len(distances))
	for i, d := range distances {
		vals := byDistance[d]
		sort.Float64s(vals)
		out[i] = Center{
			Distance: d,
			Count:    len(vals),
			Mean:     stat.Mean(vals, nil),
			Median:   median(vals),
			Mode:     mode(vals),
		}
	}
	return out, nil
}

// median expects sorted input. An even count averages the middle pair.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// mode expects sorted input; ties go to the smallest value.
func mode(sorted []float64) float64 {
	best, bestRun := sorted[0], 0
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		if j-i > bestRun {
			best, bestRun = sorted[i], j-i
		}
		i = j
	}
	return best
}

// PlotCenters draws RSSI mean, median and mode against distance as a PNG.
func PlotCenters(w io.Writer, centers []Center) error {
	if len(centers) == 0 {
		return fmt.Errorf("no centers to plot")
	}

	mean := make(plotter.XYs, len(centers))
	med := make(plotter.XYs, len(centers))
	mod := make(plotter.XYs, len(centers))
	for i, c := range centers {
		mean[i] = plotter.XY{X: c.Distance, Y: c.Mean}
		med[i] = plotter.XY{X: c.Distance, Y: c.Median}
		mod[i] = plotter.XY{X: c.Distance, Y: c.Mode}
	}

	p := plot.New()
	p.Title.Text = "RSSI by distance"
	p.X.Label.Text = "Distance (m)"
	p.Y.Label.Text = "RSSI (dBm)"
	p.Legend.Top = true
	p.Legend.Left = false

	if err := plotutil.AddLinePoints(p, "mean", mean, "median", med, "mode", mod); err != nil {
		return fmt.Errorf("add series: %w", err)
	}

	wt, err := p.WriterTo(8*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
