package dataset

import "fmt"

// InsufficientDataError reports a class with fewer rows than the requested
// per-class sample size.
type InsufficientDataError struct {
	Label     int
	Available int
	Requested int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for label %d: %d rows available, %d requested",
		e.Label, e.Available, e.Requested)
}

// SchemaError reports tables whose columns are missing, unexpected or
// otherwise incompatible.
type SchemaError struct {
	Source string
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	msg := "schema error"
	if e.Source != "" {
		msg += " in " + e.Source
	}
	if e.Column != "" {
		msg += fmt.Sprintf(": column %q", e.Column)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}
