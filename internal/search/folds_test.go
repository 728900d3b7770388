package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkPartition asserts every row is tested exactly once and each fold's
// train set is the complement of its test set.
func checkPartition(t *testing.T, n int, folds []Fold) {
	t.Helper()
	tested := make([]int, n)
	for f, fold := range folds {
		assert.NotEmpty(t, fold.Test, "fold %d", f)
		assert.Equal(t, n, len(fold.Train)+len(fold.Test), "fold %d", f)
		seen := make(map[int]bool, n)
		for _, r := range fold.Test {
			tested[r]++
			seen[r] = true
		}
		for _, r := range fold.Train {
			assert.False(t, seen[r], "fold %d row %d in train and test", f, r)
		}
	}
	for r, c := range tested {
		assert.Equal(t, 1, c, "row %d", r)
	}
}

func TestKFold_Contiguous(t *testing.T) {
	folds, err := KFold(10, 3, FoldOptions{})
	require.NoError(t, err)
	require.Len(t, folds, 3)

	assert.Equal(t, []int{0, 1, 2, 3}, folds[0].Test)
	assert.Equal(t, []int{4, 5, 6}, folds[1].Test)
	assert.Equal(t, []int{7, 8, 9}, folds[2].Test)
	assert.Equal(t, []int{0, 1, 2, 3, 7, 8, 9}, folds[1].Train)
	checkPartition(t, 10, folds)
}

func TestKFold_Shuffle(t *testing.T) {
	opts := FoldOptions{Shuffle: true, Seed: 7}
	a, err := KFold(30, 3, opts)
	require.NoError(t, err)
	b, err := KFold(30, 3, opts)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	checkPartition(t, 30, a)

	plain, err := KFold(30, 3, FoldOptions{})
	require.NoError(t, err)
	assert.NotEqual(t, plain[0].Test, a[0].Test)
	for f := range a {
		assert.Len(t, a[f].Test, 10)
	}
}

func TestKFold_Stratified(t *testing.T) {
	labels := []int{1, 0, 0, 1, 0, 0, 1, 0, 1, 0}
	for _, shuffle := range []bool{false, true} {
		folds, err := KFold(len(labels), 2, FoldOptions{Stratify: true, Shuffle: shuffle, Seed: 3, Labels: labels})
		require.NoError(t, err)
		checkPartition(t, len(labels), folds)
		for f, fold := range folds {
			counts := map[int]int{}
			for _, r := range fold.Test {
				counts[labels[r]]++
			}
			assert.Equal(t, map[int]int{0: 3, 1: 2}, counts, "fold %d shuffle=%v", f, shuffle)
		}
	}
}

func TestKFold_StratifiedSingletonClasses(t *testing.T) {
	folds, err := KFold(3, 3, FoldOptions{Stratify: true, Labels: []int{5, 6, 7}})
	require.NoError(t, err)
	checkPartition(t, 3, folds)
}

func TestKFold_Errors(t *testing.T) {
	testCases := []struct {
		name string
		n, k int
		opts FoldOptions
	}{
		{"one fold", 10, 1, FoldOptions{}},
		{"more folds than rows", 3, 4, FoldOptions{}},
		{"stratify without labels", 4, 2, FoldOptions{Stratify: true}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := KFold(tc.n, tc.k, tc.opts)
			assert.Error(t, err)
		})
	}
}
