package testutil

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rssi-distance/internal/fsutil"
)

func TestAssertHelpers(t *testing.T) {
	t.Parallel()

	AssertNoError(t, nil)
	AssertError(t, errors.New("test error"))
}

func TestPathLossRSSI(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, RSSIAtOneMetre, PathLossRSSI(1), 1e-12)
	assert.InDelta(t, RSSIAtOneMetre-20, PathLossRSSI(10), 1e-12)
	assert.Greater(t, PathLossRSSI(1), PathLossRSSI(2), "RSSI must fall with distance")
}

func TestPathLossRows(t *testing.T) {
	t.Parallel()

	rows := PathLossRows([]float64{1, 3}, 50, 7)
	require.Len(t, rows, 100)
	for _, r := range rows {
		require.Len(t, r, len(PathLossColumns))
		assert.Greater(t, r[1], 0.0)
		assert.Equal(t, math.Round(r[0]), r[0], "RSSI is reported in whole dBm")
	}

	again := PathLossRows([]float64{1, 3}, 50, 7)
	assert.Equal(t, rows, again, "same seed must give same rows")
}

func TestTwoClusters(t *testing.T) {
	t.Parallel()

	X, y := TwoClusters(20, 2, 1)
	r, c := X.Dims()
	assert.Equal(t, 40, r)
	assert.Equal(t, 2, c)
	for i, label := range y {
		assert.InDelta(t, float64(label)*100, X.At(i, 0), 5)
	}
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()
	WriteCSV(t, fsys, "/d/a.csv", []string{"RSSI", "DISTANCE"}, [][]float64{{-60, 1.5}}, map[string]string{"UUID": "abc", "ADDRESS": "aa:bb"})

	data, err := fsys.ReadFile("/d/a.csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ADDRESS,UUID,RSSI,DISTANCE", lines[0])
	assert.Equal(t, "aa:bb,abc,-60,1.5", lines[1])
}
