// Package search finds the classifier bandwidths with the best k-fold
// cross-validated accuracy over a grid of candidates.
package search

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// maxValues bounds a single parsed value list.
const maxValues = 10000

// ParseValues parses a candidate value list. Accepted forms:
//
//	"0.5,0.75,1"       explicit values
//	"0.5:1:0.125"      min:max:step, inclusive
//	"lin:0.5:1:5"      n evenly spaced values between min and max
//	"log:0:2:100"      n values spaced evenly in log10 between 10^min and 10^max
//
// An empty string returns nil.
func ParseValues(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	switch {
	case strings.HasPrefix(s, "lin:"), strings.HasPrefix(s, "log:"):
		return parseSpan(s)
	case strings.Contains(s, ":"):
		lo, hi, step, err := parseRange(s)
		if err != nil {
			return nil, err
		}
		return stepRange(lo, hi, step)
	}
	return parseCSVFloat64s(s)
}

func parseSpan(s string) ([]float64, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid span format %q: expected %s:min:max:n", s, parts[0])
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid min value %q: %w", parts[1], err)
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid max value %q: %w", parts[2], err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[3]))
	if err != nil {
		return nil, fmt.Errorf("invalid count %q: %w", parts[3], err)
	}
	if n < 1 || n > maxValues {
		return nil, fmt.Errorf("count must be between 1 and %d, got %d", maxValues, n)
	}
	if n == 1 {
		if parts[0] == "log" {
			return []float64{math.Pow(10, lo)}, nil
		}
		return []float64{lo}, nil
	}

	out := make([]float64, n)
	if parts[0] == "log" {
		floats.LogSpan(out, math.Pow(10, lo), math.Pow(10, hi))
	} else {
		floats.Span(out, lo, hi)
	}
	return out, nil
}

func parseRange(s string) (lo, hi, step float64, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid range format %q: expected min:max:step", s)
	}
	if lo, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid min value %q: %w", parts[0], err)
	}
	if hi, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid max value %q: %w", parts[1], err)
	}
	if step, err = strconv.ParseFloat(strings.TrimSpace(parts[2]), 64); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid step value %q: %w", parts[2], err)
	}
	if !(step > 0) {
		return 0, 0, 0, fmt.Errorf("step must be positive, got %v", step)
	}
	return lo, hi, step, nil
}

// stepRange returns lo, lo+step, ... up to hi inclusive. Values are computed
// from the index rather than accumulated so hi is reached exactly.
func stepRange(lo, hi, step float64) ([]float64, error) {
	if lo > hi {
		return nil, fmt.Errorf("min %v is greater than max %v", lo, hi)
	}
	n := math.Floor((hi-lo)/step+1e-9) + 1
	if math.IsInf(n, 0) || math.IsNaN(n) || n > maxValues {
		return nil, fmt.Errorf("range would generate %g values, limit is %d", n, maxValues)
	}
	count := int(n)
	out := make([]float64, count)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out, nil
}

func parseCSVFloat64s(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float '%s': %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
