package search

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/rssi-distance/internal/classifier"
	"github.com/banshee-data/rssi-distance/internal/kde"
)

// ModelConfig holds the classifier settings that stay fixed across a search.
type ModelConfig struct {
	Kernel      kde.Kernel
	Prior       classifier.PriorSource
	ClassCounts map[int]int
}

// New returns an unfitted classifier using bw and the fixed settings.
func (m ModelConfig) New(bw classifier.Bandwidths) *classifier.KDEClassifier {
	return &classifier.KDEClassifier{
		Bandwidths:  bw,
		Kernel:      m.Kernel,
		Prior:       m.Prior,
		ClassCounts: m.ClassCounts,
	}
}

// CrossValidate fits a classifier with bandwidths bw on each fold's training
// rows and returns its accuracy on the fold's test rows, in fold order.
func CrossValidate(ctx context.Context, X mat.Matrix, y []int, bw classifier.Bandwidths, folds []Fold, cfg ModelConfig) ([]float64, error) {
	if r, _ := X.Dims(); r != len(y) {
		return nil, &classifier.DimensionError{Op: "cross-validate", What: "labels", Want: r, Got: len(y)}
	}
	data := materialise(X, y, folds)
	scores := make([]float64, len(data))
	for i := range data {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		acc, err := evaluate(&data[i], bw, cfg)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", i, err)
		}
		scores[i] = acc
	}
	return scores, nil
}

func evaluate(fd *foldData, bw classifier.Bandwidths, cfg ModelConfig) (float64, error) {
	c := cfg.New(bw)
	if err := c.Fit(fd.trainX, fd.trainY); err != nil {
		return 0, err
	}
	return c.Score(fd.testX, fd.testY)
}
