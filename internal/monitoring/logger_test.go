package monitoring

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	// nil installs a no-op; the previous callback must not fire.
	called = false
	SetLogger(nil)
	Logf("test")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestDiagf_SilentByDefault(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Diagf panicked: %v", r)
		}
	}()
	Diagf("fold %d accuracy %.3f", 1, 0.5)
}

func TestSetLogWriters(t *testing.T) {
	origLog, origDiag := Logf, Diagf
	defer func() { Logf, Diagf = origLog, origDiag }()

	var ops, diag bytes.Buffer
	SetLogWriters("[train] ", &ops, &diag)

	Logf("built %d rows", 120)
	Diagf("trial %d", 3)

	if !strings.Contains(ops.String(), "[train] built 120 rows") {
		t.Errorf("ops stream missing message: %q", ops.String())
	}
	if !strings.Contains(diag.String(), "[train] trial 3") {
		t.Errorf("diag stream missing message: %q", diag.String())
	}

	diag.Reset()
	SetLogWriters("[train] ", &ops, nil)
	Diagf("dropped")
	if diag.Len() != 0 {
		t.Errorf("expected muted diag stream, got %q", diag.String())
	}
}
