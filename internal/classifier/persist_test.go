package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rssi-distance/internal/fsutil"
	"github.com/banshee-data/rssi-distance/internal/kde"
	"github.com/banshee-data/rssi-distance/internal/testutil"
)

func TestSaveLoad_RoundTripPredicts(t *testing.T) {
	X, y := testutil.TwoClusters(25, 2, 3)
	c := &KDEClassifier{
		Bandwidths:   PerClass(0.6, 0.9),
		Kernel:       kde.Epanechnikov,
		Prior:        PriorCounts,
		ClassCounts:  map[int]int{0: 70, 1: 30},
		FeatureNames: []string{"RSSI", "TX POWER"},
		Binner:       "floor",
	}
	require.NoError(t, c.Fit(X, y))

	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, Save(mfs, "/models/run-1/model.gob.gz", c))
	assert.True(t, mfs.Exists("/models/run-1"))

	loaded, err := Load(mfs, "/models/run-1/model.gob.gz")
	require.NoError(t, err)
	require.True(t, loaded.Fitted())
	assert.Equal(t, c.Classes(), loaded.Classes())
	assert.Equal(t, c.LogPriors(), loaded.LogPriors())
	assert.Equal(t, []float64{0.6, 0.9}, loaded.ResolvedBandwidths())
	assert.Equal(t, kde.Epanechnikov, loaded.Kernel)
	assert.Equal(t, []string{"RSSI", "TX POWER"}, loaded.FeatureNames)
	assert.Equal(t, "floor", loaded.Binner)

	points, _ := testutil.TwoClusters(10, 2, 9)
	want, err := c.PredictProba(points)
	require.NoError(t, err)
	got, err := loaded.PredictProba(points)
	require.NoError(t, err)
	assert.Equal(t, want.RawMatrix().Data, got.RawMatrix().Data)

	wantPred, err := c.Predict(points)
	require.NoError(t, err)
	gotPred, err := loaded.Predict(points)
	require.NoError(t, err)
	assert.Equal(t, wantPred, gotPred)
}

func TestUnmarshalBinary_Errors(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not gzip", []byte("RSSI,DISTANCE")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var c KDEClassifier
			assert.Error(t, c.UnmarshalBinary(tc.data))
			assert.False(t, c.Fitted())
		})
	}
}

func TestMarshalBinary_FeatureNameMismatch(t *testing.T) {
	X, y := testutil.TwoClusters(10, 2, 4)
	c := New(Shared(1), kde.Gaussian)
	c.FeatureNames = []string{"RSSI"}
	require.NoError(t, c.Fit(X, y))

	data, err := c.MarshalBinary()
	require.NoError(t, err)
	var loaded KDEClassifier
	assert.ErrorContains(t, loaded.UnmarshalBinary(data), "feature names")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(fsutil.NewMemoryFileSystem(), "/nope.gob.gz")
	assert.Error(t, err)
}

func TestSave_Unfitted(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	var se *StateError
	require.ErrorAs(t, Save(mfs, "/m.gob.gz", New(Shared(1), kde.Gaussian)), &se)
	assert.False(t, mfs.Exists("/m.gob.gz"))
}
