// Package testutil provides shared test fixtures: synthetic RSSI
// measurements, well-separated classification data and small assertion
// helpers.
//
// It depends only on fsutil and gonum so every internal package can use it
// from its own tests without import cycles.
package testutil

import (
	"bytes"
	"encoding/csv"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/rssi-distance/internal/fsutil"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Log-distance path-loss parameters for synthetic beacons.
const (
	RSSIAtOneMetre  = -59.0 // dBm
	PathLossExp     = 2.0
	ShadowingStdDev = 2.0 // dB
)

// PathLossRSSI returns the noiseless RSSI expected at distance metres.
func PathLossRSSI(distance float64) float64 {
	return RSSIAtOneMetre - 10*PathLossExp*math.Log10(distance)
}

// PathLossColumns is the column layout produced by PathLossRows.
var PathLossColumns = []string{"RSSI", "DISTANCE", "HUMIDITY"}

// PathLossRows generates perDistance measurements at each distance using the
// log-distance path-loss model with Gaussian shadowing. Distances are jittered
// by up to ±0.25 m so floor binning sees realistic values.
func PathLossRows(distances []float64, perDistance int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, 0, len(distances)*perDistance)
	for _, d := range distances {
		for i := 0; i < perDistance; i++ {
			dist := d + (rng.Float64()-0.5)*0.5
			if dist <= 0.05 {
				dist = 0.05
			}
			rssi := PathLossRSSI(dist) + rng.NormFloat64()*ShadowingStdDev
			humidity := 40 + rng.Float64()*10
			rows = append(rows, []float64{math.Round(rssi), dist, humidity})
		}
	}
	return rows
}

// TwoClusters returns n rows per class with nFeatures columns: class 0 is
// drawn tightly around 0 and class 1 tightly around 100.
func TwoClusters(n, nFeatures int, seed int64) (*mat.Dense, []int) {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(2*n, nFeatures, nil)
	y := make([]int, 2*n)
	for i := 0; i < 2*n; i++ {
		label := i % 2
		y[i] = label
		for j := 0; j < nFeatures; j++ {
			X.Set(i, j, float64(label)*100+rng.NormFloat64()*0.5)
		}
	}
	return X, y
}

// WriteCSV stores columns and rows as a CSV file in fsys. Extra text columns
// (e.g. ADDRESS) can be added with extra; each gets the same value per row.
func WriteCSV(t testing.TB, fsys fsutil.FileSystem, path string, columns []string, rows [][]float64, extra map[string]string) {
	t.Helper()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	var extraNames []string
	for name := range extra {
		extraNames = append(extraNames, name)
	}
	sort.Strings(extraNames)

	header := append(append([]string(nil), extraNames...), columns...)
	if err := w.Write(header); err != nil {
		t.Fatalf("writing header: %v", err)
	}
	for _, r := range rows {
		rec := make([]string, 0, len(header))
		for _, name := range extraNames {
			rec = append(rec, extra[name])
		}
		for _, v := range r {
			rec = append(rec, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if err := w.Write(rec); err != nil {
			t.Fatalf("writing row: %v", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatalf("flushing csv: %v", err)
	}
	if err := fsys.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
