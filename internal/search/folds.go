package search

import (
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// DefaultFolds is the number of cross-validation folds when none is set.
const DefaultFolds = 5

// FoldOptions controls how rows are assigned to folds.
type FoldOptions struct {
	// Shuffle permutes rows (within each class when stratifying) before
	// assignment, using Seed.
	Shuffle bool
	Seed    int64

	// Stratify deals each class's rows round-robin across folds so every
	// fold sees the classes in roughly training proportions. Labels must
	// then hold one label per row; Search fills it from y when left nil.
	Stratify bool
	Labels   []int
}

// Fold holds sorted row indices for one train/test split.
type Fold struct {
	Train []int
	Test  []int
}

// KFold splits rows 0..n-1 into k folds. Without options, folds are
// contiguous blocks and the first n%k folds hold one extra row.
func KFold(n, k int, opts FoldOptions) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("need at least 2 folds, got %d", k)
	}
	if n < k {
		return nil, fmt.Errorf("cannot split %d rows into %d folds", n, k)
	}
	if opts.Stratify && len(opts.Labels) != n {
		return nil, fmt.Errorf("stratified folds need %d labels, got %d", n, len(opts.Labels))
	}

	var rng *rand.Rand
	if opts.Shuffle {
		rng = rand.New(rand.NewSource(opts.Seed))
	}

	tests := make([][]int, k)
	if opts.Stratify {
		pos := 0
		for _, idx := range rowsByLabel(opts.Labels) {
			if rng != nil {
				rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
			}
			for _, row := range idx {
				tests[pos%k] = append(tests[pos%k], row)
				pos++
			}
		}
	} else {
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		if rng != nil {
			rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		}
		start := 0
		for f := 0; f < k; f++ {
			size := n / k
			if f < n%k {
				size++
			}
			tests[f] = order[start : start+size]
			start += size
		}
	}

	folds := make([]Fold, k)
	inTest := make([]int, n)
	for f, test := range tests {
		test = append([]int(nil), test...)
		sort.Ints(test)
		for _, row := range test {
			inTest[row] = f
		}
		folds[f].Test = test
	}
	for row := 0; row < n; row++ {
		for f := range folds {
			if f != inTest[row] {
				folds[f].Train = append(folds[f].Train, row)
			}
		}
	}
	return folds, nil
}

// rowsByLabel groups row indices by label, labels ascending.
func rowsByLabel(labels []int) [][]int {
	groups := make(map[int][]int)
	for i, l := range labels {
		groups[l] = append(groups[l], i)
	}
	keys := make([]int, 0, len(groups))
	for l := range groups {
		keys = append(keys, l)
	}
	sort.Ints(keys)
	out := make([][]int, len(keys))
	for i, l := range keys {
		out[i] = groups[l]
	}
	return out
}

// foldData is the materialised train/test data of one fold. It is shared
// read-only between search workers.
type foldData struct {
	trainX, testX *mat.Dense
	trainY, testY []int
}

func materialise(X mat.Matrix, y []int, folds []Fold) []foldData {
	out := make([]foldData, len(folds))
	for i, f := range folds {
		out[i] = foldData{
			trainX: selectRows(X, f.Train),
			testX:  selectRows(X, f.Test),
			trainY: selectLabels(y, f.Train),
			testY:  selectLabels(y, f.Test),
		}
	}
	return out
}

func selectRows(X mat.Matrix, idx []int) *mat.Dense {
	_, c := X.Dims()
	out := mat.NewDense(len(idx), c, nil)
	row := make([]float64, c)
	for i, r := range idx {
		mat.Row(row, r, X)
		out.SetRow(i, row)
	}
	return out
}

func selectLabels(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, r := range idx {
		out[i] = y[r]
	}
	return out
}
