// Package monitoring holds the diagnostic log streams shared by the
// training and prediction tools.
package monitoring

import (
	"io"
	"log"
)

// Logf is the operational logger: progress, warnings, data problems. It
// defaults to log.Printf but may be replaced by SetLogger or SetLogWriters.
var Logf func(format string, v ...interface{}) = log.Printf

// Diagf is the diagnostic logger for per-trial and per-fold detail. It is
// silent unless enabled with SetDiagLogger or SetLogWriters.
var Diagf func(format string, v ...interface{}) = noop

func noop(string, ...interface{}) {}

// SetLogger replaces the operational logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = noop
		return
	}
	Logf = f
}

// SetDiagLogger replaces the diagnostic logger. Passing nil mutes it.
func SetDiagLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Diagf = noop
		return
	}
	Diagf = f
}

// SetLogWriters routes both streams to writers with the given prefix.
// A nil writer disables that stream.
func SetLogWriters(prefix string, ops, diag io.Writer) {
	SetLogger(printfTo(prefix, ops))
	SetDiagLogger(printfTo(prefix, diag))
}

func printfTo(prefix string, w io.Writer) func(string, ...interface{}) {
	if w == nil {
		return nil
	}
	l := log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
	return l.Printf
}
