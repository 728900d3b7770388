package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/rssi-distance/internal/classifier"
	"github.com/banshee-data/rssi-distance/internal/monitoring"
	"github.com/banshee-data/rssi-distance/internal/timeutil"
)

// Trial is the cross-validation outcome of one bandwidth configuration.
// A trial whose fit failed on any fold is unscored and carries the error.
type Trial struct {
	Index      int
	Bandwidths classifier.Bandwidths
	FoldScores []float64
	Mean       float64
	StdDev     float64
	Err        error
}

// Scored reports whether every fold of the trial was evaluated.
func (t Trial) Scored() bool { return t.Err == nil }

// Result holds every trial in grid order and the index of the best one.
type Result struct {
	Trials    []Trial
	BestIndex int
	Folds     int
	Elapsed   time.Duration
}

// Best returns the trial with the highest mean accuracy. Ties resolve to
// the trial earliest in grid order.
func (r *Result) Best() Trial { return r.Trials[r.BestIndex] }

// Scored returns the number of scored trials.
func (r *Result) Scored() int {
	n := 0
	for _, t := range r.Trials {
		if t.Scored() {
			n++
		}
	}
	return n
}

// Searcher runs k-fold cross-validated grid searches over bandwidths.
type Searcher struct {
	ModelConfig

	// Folds is the number of cross-validation folds; 0 means DefaultFolds.
	Folds int

	// FoldOptions assigns rows to folds; nil means stratified, unshuffled
	// folds. Contiguous folds on label-ordered rows, such as a Builder
	// produces, can leave a class out of every training split.
	FoldOptions *FoldOptions

	// Workers bounds concurrent fold evaluations; 0 means GOMAXPROCS.
	Workers int

	Metrics *Metrics

	// Clock times the search; nil uses the real clock.
	Clock timeutil.Clock
}

// Search evaluates every grid configuration on every fold and returns the
// per-configuration results. Configurations that fail to fit are recorded
// as unscored; if none can be scored the error is a *classifier.FitError
// joining the individual failures. A cancelled context aborts the search
// and returns the context error.
func (s *Searcher) Search(ctx context.Context, X mat.Matrix, y []int, grid Grid) (*Result, error) {
	clock := timeutil.OrReal(s.Clock)
	start := clock.Now()
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if r != len(y) {
		return nil, &classifier.DimensionError{Op: "search", What: "labels", Want: r, Got: len(y)}
	}
	if c == 0 {
		return nil, &classifier.FitError{Reason: "no feature columns"}
	}

	k := s.Folds
	if k == 0 {
		k = DefaultFolds
	}
	opts := FoldOptions{Stratify: true}
	if s.FoldOptions != nil {
		opts = *s.FoldOptions
	}
	if opts.Stratify && opts.Labels == nil {
		opts.Labels = y
	}
	folds, err := KFold(r, k, opts)
	if err != nil {
		return nil, err
	}
	data := materialise(X, y, folds)
	configs := grid.Configs()

	scores := make([][]float64, len(configs))
	errs := make([][]error, len(configs))
	for i := range configs {
		scores[i] = make([]float64, k)
		errs[i] = make([]error, k)
	}

	workers := s.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	monitoring.Logf("[search] evaluating %s configurations x %d folds on %s rows with %d workers",
		humanize.Comma(int64(len(configs))), k, humanize.Comma(int64(r)), workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for ci := range configs {
		for fi := range data {
			if gctx.Err() != nil {
				break
			}
			ci, fi := ci, fi
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				scores[ci][fi], errs[ci][fi] = evaluate(&data[fi], configs[ci], s.ModelConfig)
				s.Metrics.observeFold()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Trials: make([]Trial, len(configs)), BestIndex: -1, Folds: k}
	var failures []error
	for ci, bw := range configs {
		t := Trial{Index: ci, Bandwidths: bw}
		for fi, err := range errs[ci] {
			if err != nil {
				t.Err = fmt.Errorf("bandwidths %s fold %d: %w", bw, fi, err)
				break
			}
		}
		if t.Err != nil {
			t.Mean, t.StdDev = math.NaN(), math.NaN()
			failures = append(failures, t.Err)
		} else {
			t.FoldScores = scores[ci]
			t.Mean, t.StdDev = stat.MeanStdDev(t.FoldScores, nil)
			if res.BestIndex < 0 || t.Mean > res.Trials[res.BestIndex].Mean {
				res.BestIndex = ci
			}
		}
		if t.Err != nil {
			monitoring.Diagf("[search] trial %d unscored: %v", ci, t.Err)
		} else {
			monitoring.Diagf("[search] trial %d bandwidths %s: %.4f ± %.4f", ci, bw, t.Mean, t.StdDev)
		}
		res.Trials[ci] = t
		s.Metrics.observeTrial(t.Scored())
	}
	res.Elapsed = clock.Since(start)

	if res.BestIndex < 0 {
		return nil, &classifier.FitError{
			Reason: fmt.Sprintf("none of %d configurations could be scored", len(configs)),
			Err:    errors.Join(failures...),
		}
	}

	best := res.Best()
	s.Metrics.setBest(best.Mean)
	monitoring.Logf("[search] best bandwidths %s: accuracy %.4f ± %.4f (%d/%d scored, %s)",
		best.Bandwidths, best.Mean, best.StdDev, res.Scored(), len(configs), res.Elapsed.Round(time.Millisecond))
	return res, nil
}
