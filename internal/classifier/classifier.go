// Package classifier implements a generative Bayes classifier that models
// each class with its own kernel density estimate. A row is assigned the
// class c maximising log p(x | c) + log P(c).
package classifier

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/rssi-distance/internal/kde"
)

// KDEClassifier is unfitted until Fit succeeds. Settings are read at Fit
// time; changing them afterwards has no effect until the next Fit.
type KDEClassifier struct {
	Bandwidths Bandwidths
	Kernel     kde.Kernel
	Prior      PriorSource

	// ClassCounts supplies class frequencies when Prior is PriorCounts.
	ClassCounts map[int]int

	// Labels optionally fixes the class set. Every listed label must have
	// training rows, and y may not contain labels outside it.
	Labels []int

	// FeatureNames names the columns of X. It is not used by Fit but is
	// saved with the model so callers can align prediction inputs.
	FeatureNames []string

	// Binner names the distance binner that produced y. It is saved with
	// the model so labelled inputs can be scored with the same bins.
	Binner string

	state *fitted
}

type fitted struct {
	classes    []int
	models     []*kde.Density
	logPriors  []float64
	bandwidths []float64
	features   int
}

// New returns an unfitted classifier with the training-frequency prior.
func New(bw Bandwidths, kernel kde.Kernel) *KDEClassifier {
	return &KDEClassifier{Bandwidths: bw, Kernel: kernel, Prior: PriorTraining}
}

// Fitted reports whether the classifier can predict.
func (c *KDEClassifier) Fitted() bool { return c.state != nil }

// Classes returns the fitted labels in ascending order, or nil before Fit.
func (c *KDEClassifier) Classes() []int {
	if c.state == nil {
		return nil
	}
	return append([]int(nil), c.state.classes...)
}

// LogPriors returns the fitted class log-priors aligned with Classes.
func (c *KDEClassifier) LogPriors() []float64 {
	if c.state == nil {
		return nil
	}
	return append([]float64(nil), c.state.logPriors...)
}

// ResolvedBandwidths returns the bandwidth used for each fitted class.
func (c *KDEClassifier) ResolvedBandwidths() []float64 {
	if c.state == nil {
		return nil
	}
	return append([]float64(nil), c.state.bandwidths...)
}

// Fit trains one density per distinct label of y on the matching rows of X.
// Any previous fit is discarded, including when Fit fails.
func (c *KDEClassifier) Fit(X mat.Matrix, y []int) error {
	c.state = nil

	if X == nil {
		return &FitError{Reason: "no training rows"}
	}
	r, cols := X.Dims()
	if len(y) != r {
		return &DimensionError{Op: "fit", What: "labels", Want: r, Got: len(y)}
	}
	if r == 0 {
		return &FitError{Reason: "no training rows"}
	}

	bw := c.Bandwidths
	if len(bw.Values) == 0 {
		bw = Shared(DefaultBandwidth)
	}
	if err := bw.Validate(); err != nil {
		return &FitError{Reason: "invalid bandwidths", Err: err}
	}
	if _, err := kde.ParseKernel(string(c.Kernel)); err != nil {
		return &FitError{Reason: "invalid kernel", Err: err}
	}

	rows := make(map[int][]int)
	for i, label := range y {
		rows[label] = append(rows[label], i)
	}
	classes, err := c.classSet(rows)
	if err != nil {
		return err
	}

	st := &fitted{
		classes:    classes,
		models:     make([]*kde.Density, len(classes)),
		bandwidths: bw.Resolve(len(classes)),
		features:   cols,
	}
	for k, label := range classes {
		idx := rows[label]
		sub := mat.NewDense(len(idx), cols, nil)
		for j, i := range idx {
			for f := 0; f < cols; f++ {
				sub.Set(j, f, X.At(i, f))
			}
		}
		d, err := kde.Fit(sub, st.bandwidths[k], c.Kernel)
		if err != nil {
			return labelFitError(label, "density fit", err)
		}
		st.models[k] = d
	}

	st.logPriors, err = c.logPriors(classes, rows, r)
	if err != nil {
		return err
	}
	c.state = st
	return nil
}

func (c *KDEClassifier) classSet(rows map[int][]int) ([]int, error) {
	if c.Labels == nil {
		classes := make([]int, 0, len(rows))
		for label := range rows {
			classes = append(classes, label)
		}
		sort.Ints(classes)
		return classes, nil
	}

	classes := append([]int(nil), c.Labels...)
	sort.Ints(classes)
	known := make(map[int]bool, len(classes))
	for i, label := range classes {
		if i > 0 && classes[i-1] == label {
			return nil, labelFitError(label, "duplicate label", nil)
		}
		known[label] = true
		if len(rows[label]) == 0 {
			return nil, labelFitError(label, "no training rows for label", nil)
		}
	}
	for label := range rows {
		if !known[label] {
			return nil, labelFitError(label, "label not in configured class set", nil)
		}
	}
	return classes, nil
}

func (c *KDEClassifier) logPriors(classes []int, rows map[int][]int, n int) ([]float64, error) {
	out := make([]float64, len(classes))
	switch c.Prior {
	case "", PriorTraining:
		for k, label := range classes {
			out[k] = math.Log(float64(len(rows[label])) / float64(n))
		}
	case PriorUniform:
		for k := range out {
			out[k] = -math.Log(float64(len(classes)))
		}
	case PriorCounts:
		total := 0
		for _, label := range classes {
			count, ok := c.ClassCounts[label]
			if !ok || count <= 0 {
				return nil, labelFitError(label, "no prior count for label", nil)
			}
			total += count
		}
		for k, label := range classes {
			out[k] = math.Log(float64(c.ClassCounts[label]) / float64(total))
		}
	default:
		_, err := ParsePriorSource(string(c.Prior))
		return nil, &FitError{Reason: "invalid prior source", Err: err}
	}
	return out, nil
}

// JointLogLikelihood returns log p(x | c) + log P(c) for every row of X
// and class, columns aligned with Classes.
func (c *KDEClassifier) JointLogLikelihood(X mat.Matrix) (*mat.Dense, error) {
	if c.state == nil {
		return nil, &StateError{Op: "predict"}
	}
	r, cols := X.Dims()
	if r == 0 {
		return &mat.Dense{}, nil
	}
	if cols != c.state.features {
		return nil, &DimensionError{Op: "predict", What: "features", Want: c.state.features, Got: cols}
	}
	out := mat.NewDense(r, len(c.state.classes), nil)
	for k, m := range c.state.models {
		scores, err := m.ScoreSamples(X)
		if err != nil {
			return nil, err
		}
		floats.AddConst(c.state.logPriors[k], scores)
		out.SetCol(k, scores)
	}
	return out, nil
}

// PredictProba returns the posterior class probabilities for every row of
// X, columns aligned with Classes. Each row sums to one. A row no class
// density supports gets a uniform distribution.
func (c *KDEClassifier) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	joint, err := c.JointLogLikelihood(X)
	if err != nil {
		return nil, err
	}
	if joint.IsEmpty() {
		return joint, nil
	}
	r, k := joint.Dims()
	for i := 0; i < r; i++ {
		row := joint.RawRowView(i)
		m := floats.Max(row)
		if math.IsInf(m, -1) {
			for j := range row {
				row[j] = 1 / float64(k)
			}
			continue
		}
		for j := range row {
			row[j] = math.Exp(row[j] - m)
		}
		floats.Scale(1/floats.Sum(row), row)
	}
	return joint, nil
}

// Predict returns the most probable label for every row of X. Ties resolve
// to the smallest label.
func (c *KDEClassifier) Predict(X mat.Matrix) ([]int, error) {
	proba, err := c.PredictProba(X)
	if err != nil {
		return nil, err
	}
	if proba.IsEmpty() {
		return []int{}, nil
	}
	r, _ := proba.Dims()
	out := make([]int, r)
	for i := 0; i < r; i++ {
		out[i] = c.state.classes[floats.MaxIdx(proba.RawRowView(i))]
	}
	return out, nil
}

// Score returns the fraction of rows of X whose predicted label equals y.
func (c *KDEClassifier) Score(X mat.Matrix, y []int) (float64, error) {
	r, _ := X.Dims()
	if len(y) != r {
		return 0, &DimensionError{Op: "score", What: "labels", Want: r, Got: len(y)}
	}
	pred, err := c.Predict(X)
	if err != nil {
		return 0, err
	}
	return Accuracy(y, pred), nil
}

// Accuracy returns the fraction of positions where want and got agree.
// Empty input scores zero.
func Accuracy(want, got []int) float64 {
	if len(want) == 0 {
		return 0
	}
	hits := 0
	for i := range want {
		if want[i] == got[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(want))
}
