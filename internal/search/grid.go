package search

import (
	"fmt"

	"github.com/banshee-data/rssi-distance/internal/classifier"
)

// MaxConfigs bounds the number of bandwidth configurations in one grid.
const MaxConfigs = 100000

// Grid is a set of candidate values per bandwidth dimension. A grid with one
// dimension searches a bandwidth shared by every class; with k dimensions,
// class i takes its bandwidth from dimension i % k.
type Grid struct {
	Dims [][]float64
}

// SharedGrid searches a single bandwidth shared by all classes.
func SharedGrid(values []float64) Grid {
	return Grid{Dims: [][]float64{append([]float64(nil), values...)}}
}

// PerClassGrid searches an independent bandwidth for each of k classes, all
// drawn from the same candidate values.
func PerClassGrid(values []float64, k int) Grid {
	dims := make([][]float64, k)
	for i := range dims {
		dims[i] = append([]float64(nil), values...)
	}
	return Grid{Dims: dims}
}

// Size returns the number of configurations in the grid.
func (g Grid) Size() int {
	if len(g.Dims) == 0 {
		return 0
	}
	total := 1
	for _, d := range g.Dims {
		total *= len(d)
		if total > MaxConfigs || total == 0 {
			return total
		}
	}
	return total
}

// Validate checks the grid has at least one value in every dimension and
// stays within MaxConfigs. Non-positive values are allowed: they produce
// unscored trials rather than aborting the search.
func (g Grid) Validate() error {
	if len(g.Dims) == 0 {
		return fmt.Errorf("grid has no dimensions")
	}
	for i, d := range g.Dims {
		if len(d) == 0 {
			return fmt.Errorf("grid dimension %d has no values", i)
		}
	}
	if n := g.Size(); n > MaxConfigs {
		return fmt.Errorf("grid combinations would exceed safe limit of %d", MaxConfigs)
	}
	return nil
}

// Configs expands the grid into its cartesian product. The last dimension
// varies fastest, so a shared grid yields its values in order.
func (g Grid) Configs() []classifier.Bandwidths {
	total := g.Size()
	if total == 0 || total > MaxConfigs {
		return nil
	}
	values := make([][]float64, total)
	for i := range values {
		values[i] = make([]float64, len(g.Dims))
	}

	repeat := 1
	for dim := len(g.Dims) - 1; dim >= 0; dim-- {
		dimValues := g.Dims[dim]
		cycle := len(dimValues)
		for i := 0; i < total; i++ {
			values[i][dim] = dimValues[(i/repeat)%cycle]
		}
		repeat *= cycle
	}

	out := make([]classifier.Bandwidths, total)
	for i, v := range values {
		out[i] = classifier.Bandwidths{Values: v}
	}
	return out
}
