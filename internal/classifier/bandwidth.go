package classifier

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultBandwidth is used when no bandwidth is configured.
const DefaultBandwidth = 1.0

// Bandwidths maps class indices to KDE bandwidths. A single value is shared
// by every class. With several values, class i uses Values[i % len(Values)],
// so a list shorter than the class count repeats cyclically.
type Bandwidths struct {
	Values []float64
}

// Shared returns a configuration using h for every class.
func Shared(h float64) Bandwidths { return Bandwidths{Values: []float64{h}} }

// PerClass returns a configuration with one bandwidth per class index.
func PerClass(h ...float64) Bandwidths {
	return Bandwidths{Values: append([]float64(nil), h...)}
}

// For resolves the bandwidth of the class at index i in sorted label order.
// An empty configuration resolves to DefaultBandwidth.
func (b Bandwidths) For(i int) float64 {
	if len(b.Values) == 0 {
		return DefaultBandwidth
	}
	return b.Values[i%len(b.Values)]
}

// Resolve returns the bandwidth for each of n classes.
func (b Bandwidths) Resolve(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = b.For(i)
	}
	return out
}

// Validate rejects an empty list and non-positive or non-finite values.
func (b Bandwidths) Validate() error {
	if len(b.Values) == 0 {
		return fmt.Errorf("no bandwidths configured")
	}
	for i, h := range b.Values {
		if !(h > 0) || math.IsInf(h, 0) {
			return fmt.Errorf("bandwidth %d must be positive and finite, got %v", i, h)
		}
	}
	return nil
}

func (b Bandwidths) String() string {
	if len(b.Values) == 0 {
		return strconv.FormatFloat(DefaultBandwidth, 'g', -1, 64)
	}
	parts := make([]string, len(b.Values))
	for i, h := range b.Values {
		parts[i] = strconv.FormatFloat(h, 'g', -1, 64)
	}
	return strings.Join(parts, "/")
}
