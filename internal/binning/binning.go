// Package binning maps continuous distance measurements onto the discrete
// class labels used for training.
package binning

import (
	"fmt"
	"math"
	"sort"
)

// NearFarThreshold is the distance in metres below which a measurement is
// labelled "near" by BinCategorize.
const NearFarThreshold = 2.0

// Func maps a distance in metres to a class label.
type Func func(distance float64) int

// Categorize returns floor(distance): one class per whole metre.
// Negative distances floor towards negative infinity, so -0.5 maps to -1.
// NaN distances have no meaningful bin and must be filtered by the caller.
func Categorize(distance float64) int {
	return int(math.Floor(distance))
}

// BinCategorize collapses distance into a binary near/far label: 1 when the
// distance is below NearFarThreshold, otherwise 0.
func BinCategorize(distance float64) int {
	if distance < NearFarThreshold {
		return 1
	}
	return 0
}

var registry = map[string]Func{
	"floor":    Categorize,
	"near-far": BinCategorize,
}

// ByName returns the binner registered under name ("floor" or "near-far").
func ByName(name string) (Func, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown binner %q (valid: %v)", name, Names())
	}
	return f, nil
}

// Names lists the registered binner names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
