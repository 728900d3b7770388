package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValues(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want []float64
	}{
		{"empty", "", nil},
		{"list", "0.5,0.75, 1", []float64{0.5, 0.75, 1}},
		{"list skips blanks", "1,,2,", []float64{1, 2}},
		{"step range", "0.5:1:0.125", []float64{0.5, 0.625, 0.75, 0.875, 1}},
		{"step range stops before max", "1:2:0.3", []float64{1, 1.3, 1.6, 1.9}},
		{"single step value", "2:2:1", []float64{2}},
		{"linear span", "lin:0.5:1:5", []float64{0.5, 0.625, 0.75, 0.875, 1}},
		{"log span", "log:0:2:3", []float64{1, 10, 100}},
		{"single span value", "log:1:3:1", []float64{10}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseValues(tc.in)
			require.NoError(t, err)
			require.Len(t, got, len(tc.want))
			for i := range tc.want {
				assert.InDelta(t, tc.want[i], got[i], 1e-9, "value %d", i)
			}
		})
	}
}

func TestParseValues_LogGrid(t *testing.T) {
	got, err := ParseValues("log:0:2:100")
	require.NoError(t, err)
	require.Len(t, got, 100)
	assert.InDelta(t, 1, got[0], 1e-9)
	assert.InDelta(t, 100, got[99], 1e-9)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i], got[i-1])
	}
}

func TestParseValues_Errors(t *testing.T) {
	for _, in := range []string{
		"a,b",
		"0:1",
		"0:1:0",
		"0:1:-1",
		"1:0:0.1",
		"0:x:1",
		"0:1e9:0.001",
		"0:1e300:1e-300",
		"-1e308:1e308:1e-300",
		"lin:0:1",
		"lin:0:1:0",
		"log:0:2:x",
		"log:a:2:3",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseValues(in)
			assert.Error(t, err)
		})
	}
}
