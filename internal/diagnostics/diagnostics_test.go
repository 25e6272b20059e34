package diagnostics

import (
	"bytes"
	"strings"
	"testing"
)

func TestHasErrors(t *testing.T) {
	s := New()
	if s.HasErrors() {
		t.Fatal("fresh sink should have no errors")
	}
	s.Error("bad thing", 3, 5)
	if !s.HasErrors() {
		t.Fatal("expected HasErrors true after Error")
	}
	if s.ErrorCount() != 1 {
		t.Fatalf("ErrorCount = %d, want 1", s.ErrorCount())
	}
}

func TestWarningsDoNotCountAsErrors(t *testing.T) {
	s := New()
	s.Warning("fyi", 1, 1)
	if s.HasErrors() {
		t.Fatal("warnings must not set HasErrors")
	}
	if s.WarningCount() != 1 {
		t.Fatalf("WarningCount = %d, want 1", s.WarningCount())
	}
}

func TestSuppressErrors(t *testing.T) {
	s := New()
	s.SuppressErrors(true)
	s.Error("speculative failure", 1, 1)
	if s.HasErrors() {
		t.Fatal("suppressed errors must not be recorded")
	}
	s.SuppressErrors(false)
	s.Error("real failure", 1, 1)
	if s.ErrorCount() != 1 {
		t.Fatalf("ErrorCount = %d, want 1", s.ErrorCount())
	}
}

func TestClear(t *testing.T) {
	s := New()
	s.Error("x", 1, 1)
	s.Clear()
	if s.HasErrors() || len(s.All()) != 0 {
		t.Fatal("Clear should reset all state")
	}
}

func TestPrintAllFormat(t *testing.T) {
	s := New()
	s.Error("incompatible types", 4, 10)
	var buf bytes.Buffer
	s.PrintAll(&buf, "main.vlt")
	out := buf.String()
	if !strings.Contains(out, "error: incompatible types") {
		t.Fatalf("missing severity/message line: %q", out)
	}
	if !strings.Contains(out, "--> main.vlt:4:10") {
		t.Fatalf("missing location line: %q", out)
	}
	if !strings.Contains(out, "1 error") {
		t.Fatalf("missing summary line: %q", out)
	}
}
