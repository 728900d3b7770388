package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Sample draws exactly sampleSize rows per distinct value of labelColumn,
// uniformly at random without replacement, and concatenates the per-class
// draws in ascending label order. The same seed and input always produce
// the same output.
//
// Label values must be integral. Every class is checked before any rows are
// drawn; the smallest under-populated label is reported as an
// InsufficientDataError.
func Sample(t *Table, labelColumn string, sampleSize int, seed int64) (*Table, error) {
	if sampleSize <= 0 {
		return nil, fmt.Errorf("sample size must be positive, got %d", sampleSize)
	}
	groups, labels, err := groupByLabel(t, labelColumn)
	if err != nil {
		return nil, err
	}

	for _, l := range labels {
		if n := len(groups[l]); n < sampleSize {
			return nil, &InsufficientDataError{Label: l, Available: n, Requested: sampleSize}
		}
	}

	rng := rand.New(rand.NewSource(seed))
	out := &Table{
		Source:  t.Source,
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]float64, 0, sampleSize*len(labels)),
	}
	for _, l := range labels {
		idx := append([]int(nil), groups[l]...)
		// Partial Fisher-Yates: the first sampleSize slots end up as a
		// uniform draw without replacement.
		for i := 0; i < sampleSize; i++ {
			j := i + rng.Intn(len(idx)-i)
			idx[i], idx[j] = idx[j], idx[i]
		}
		for _, r := range idx[:sampleSize] {
			out.Rows = append(out.Rows, t.Rows[r])
		}
	}
	return out, nil
}

// ClassCounts returns the number of rows per label value.
func ClassCounts(t *Table, labelColumn string) (map[int]int, error) {
	groups, _, err := groupByLabel(t, labelColumn)
	if err != nil {
		return nil, err
	}
	counts := make(map[int]int, len(groups))
	for l, rows := range groups {
		counts[l] = len(rows)
	}
	return counts, nil
}

// groupByLabel returns row indices per label and the labels sorted ascending.
func groupByLabel(t *Table, labelColumn string) (map[int][]int, []int, error) {
	col := t.Index(labelColumn)
	if col < 0 {
		return nil, nil, &SchemaError{Source: t.Source, Column: labelColumn, Reason: "missing label column"}
	}
	groups := make(map[int][]int)
	for i, r := range t.Rows {
		v := r[col]
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return nil, nil, &SchemaError{
				Source: t.Source,
				Column: labelColumn,
				Reason: fmt.Sprintf("row %d has non-integer label %v", i, v),
			}
		}
		l := int(v)
		groups[l] = append(groups[l], i)
	}
	labels := make([]int, 0, len(groups))
	for l := range groups {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	return groups, labels, nil
}
