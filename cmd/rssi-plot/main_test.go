package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rssi-distance/internal/fsutil"
	"github.com/banshee-data/rssi-distance/internal/testutil"
)

func TestLoadCenters(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	testutil.WriteCSV(t, mfs, "/data/trial-1/a.csv", []string{"RSSI", "DISTANCE"},
		[][]float64{{-60, 2}, {-62, 2}, {-50, 1}}, map[string]string{"ADDRESS": "aa:bb"})
	testutil.WriteCSV(t, mfs, "/data/trial-2/b.csv", []string{"DISTANCE", "RSSI"},
		[][]float64{{2, -62}, {1, -52}}, map[string]string{"ADDRESS": "aa:bb"})

	centers, err := loadCenters(mfs, "/data/trial-*/*.csv", []string{"ADDRESS"})
	require.NoError(t, err)
	require.Len(t, centers, 2)
	assert.Equal(t, 1.0, centers[0].Distance)
	assert.Equal(t, -52.0, centers[0].Mode)
	assert.Equal(t, 3, centers[1].Count)
	assert.Equal(t, -62.0, centers[1].Mode)

	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, centers))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"distance", "rows", "mean", "median", "mode"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"1.00", "2", "-51.00", "-51.00", "-52.00"}, strings.Fields(lines[1]))
}

func TestLoadCenters_NoFiles(t *testing.T) {
	_, err := loadCenters(fsutil.NewMemoryFileSystem(), "/data/*.csv", nil)
	assert.ErrorContains(t, err, "no input files")
}
