package classifier

import "fmt"

// PriorSource selects where class log-priors come from.
//
// Stratified sampling makes every class equally frequent, so priors
// estimated from a balanced training set are all equal and the classifier
// behaves as if priors were uniform. PriorCounts lets callers supply the
// class frequencies observed before sampling instead.
type PriorSource string

const (
	// PriorTraining uses class frequencies of the labels passed to Fit.
	PriorTraining PriorSource = "training"
	// PriorCounts uses KDEClassifier.ClassCounts.
	PriorCounts PriorSource = "counts"
	// PriorUniform gives every class the same prior.
	PriorUniform PriorSource = "uniform"
)

// ParsePriorSource validates a prior source name. The empty string selects
// PriorTraining.
func ParsePriorSource(s string) (PriorSource, error) {
	switch PriorSource(s) {
	case "", PriorTraining:
		return PriorTraining, nil
	case PriorCounts, PriorUniform:
		return PriorSource(s), nil
	}
	return "", fmt.Errorf("unknown prior source %q (valid: training, counts, uniform)", s)
}
