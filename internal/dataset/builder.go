package dataset

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/rssi-distance/internal/binning"
	"github.com/banshee-data/rssi-distance/internal/fsutil"
	"github.com/banshee-data/rssi-distance/internal/monitoring"
)

// Dataset is a balanced training set. Features and Labels are aligned
// row-for-row; every label occurs exactly SampleSize times.
type Dataset struct {
	Features     *mat.Dense
	Labels       []int
	FeatureNames []string

	// ClassCounts holds per-label row counts before stratified sampling.
	// The classifier can use them as priors instead of the balanced counts.
	ClassCounts map[int]int
}

// Builder merges per-trial tables into a Dataset.
type Builder struct {
	FS          fsutil.FileSystem
	DropColumns []string
	Binner      binning.Func
	SampleSize  int
	Seed        int64
}

// Build loads every CSV matching pattern and calls BuildTables.
func (b *Builder) Build(pattern string) (*Dataset, error) {
	fsys := b.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	tables, err := LoadGlob(fsys, pattern, b.DropColumns)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, &SchemaError{Source: pattern, Reason: "no input tables match"}
	}
	monitoring.Logf("[dataset] loaded %d tables from %s", len(tables), pattern)
	return b.BuildTables(tables...)
}

// BuildTables drops the configured columns from each table, checks they
// share one column set, bins DISTANCE into labels, draws SampleSize rows per
// label and splits the result into features and labels.
func (b *Builder) BuildTables(tables ...*Table) (*Dataset, error) {
	if b.Binner == nil {
		return nil, fmt.Errorf("builder has no binner")
	}
	if len(tables) == 0 {
		return nil, &SchemaError{Reason: "no input tables"}
	}

	merged, err := b.fold(tables)
	if err != nil {
		return nil, err
	}
	if merged.Len() == 0 {
		return nil, &SchemaError{Source: merged.Source, Reason: "no measurement rows"}
	}

	label := merged.Index(ColumnDistance)
	for i, r := range merged.Rows {
		d := r[label]
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return nil, &SchemaError{Column: ColumnDistance, Reason: fmt.Sprintf("row %d has distance %v", i, d)}
		}
		r[label] = float64(b.Binner(d))
	}

	counts, err := ClassCounts(merged, ColumnDistance)
	if err != nil {
		return nil, err
	}
	sampled, err := Sample(merged, ColumnDistance, b.SampleSize, b.Seed)
	if err != nil {
		return nil, err
	}
	monitoring.Logf("[dataset] %s rows binned into %d classes, sampled %s",
		humanize.Comma(int64(merged.Len())), len(counts), humanize.Comma(int64(sampled.Len())))

	ds := split(sampled, label)
	ds.ClassCounts = counts
	return ds, nil
}

// fold appends every table's rows into one pre-sized table whose column
// order is that of the first table.
func (b *Builder) fold(tables []*Table) (*Table, error) {
	first := tables[0].Drop(b.DropColumns...)
	for _, required := range []string{ColumnRSSI, ColumnDistance} {
		if first.Index(required) < 0 {
			return nil, &SchemaError{Source: first.Source, Column: required, Reason: "missing required column"}
		}
	}

	total := 0
	for _, t := range tables {
		total += t.Len()
	}
	merged := &Table{
		Source:  "merged",
		Columns: append([]string(nil), first.Columns...),
		Rows:    make([][]float64, 0, total),
	}

	for _, t := range tables {
		t = t.Drop(b.DropColumns...)
		order, err := t.columnOrder(merged.Columns)
		if err != nil {
			return nil, err
		}
		for _, r := range t.Rows {
			// Always copy: binning rewrites DISTANCE in place.
			nr := make([]float64, len(order))
			for j, k := range order {
				nr[j] = r[k]
			}
			merged.Rows = append(merged.Rows, nr)
		}
	}
	return merged, nil
}

func split(t *Table, labelIdx int) *Dataset {
	nFeat := len(t.Columns) - 1
	names := make([]string, 0, nFeat)
	for i, c := range t.Columns {
		if i != labelIdx {
			names = append(names, c)
		}
	}

	data := make([]float64, 0, t.Len()*nFeat)
	labels := make([]int, t.Len())
	for i, r := range t.Rows {
		for j, v := range r {
			if j == labelIdx {
				labels[i] = int(v)
				continue
			}
			data = append(data, v)
		}
	}

	return &Dataset{
		Features:     mat.NewDense(t.Len(), nFeat, data),
		Labels:       labels,
		FeatureNames: names,
	}
}
