package classifier

import "fmt"

// StateError reports use of a classifier that has not been fitted.
type StateError struct {
	Op string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: classifier is not fitted", e.Op)
}

// DimensionError reports a shape mismatch between inputs, or between
// prediction inputs and the data seen at fit time.
type DimensionError struct {
	Op   string
	What string // "features" or "labels"
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: %s dimension mismatch: want %d, got %d", e.Op, e.What, e.Want, e.Got)
}

// FitError reports training data or settings the classifier cannot fit.
// Label is meaningful only when HasLabel is set.
type FitError struct {
	Label    int
	HasLabel bool
	Reason   string
	Err      error
}

func (e *FitError) Error() string {
	msg := "fit failed"
	if e.HasLabel {
		msg += fmt.Sprintf(" for label %d", e.Label)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FitError) Unwrap() error { return e.Err }

func labelFitError(label int, reason string, err error) *FitError {
	return &FitError{Label: label, HasLabel: true, Reason: reason, Err: err}
}
