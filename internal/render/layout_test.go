package render

import (
	"strings"
	"testing"

	"github.com/buildtool-accel/buildc/internal/proto"
)

func TestLayoutStatusLineWhenBuildActive(t *testing.T) {
	m := NewModel(nil)
	m.Apply(proto.NewBuildStarted("demo", 3, 2, 20))
	m.DaemonID = "d-1"
	f := m.Layout(24, 100)
	status := f.Lines[len(f.Lines)-1]
	if !strings.Contains(status, "Building demo") || !strings.Contains(status, "daemon: d-1") {
		t.Fatalf("status line missing expected fields: %q", status)
	}
}

func TestLayoutStatusLineUsesBuildStatusWhenInactive(t *testing.T) {
	m := NewModel(nil)
	m.Apply(proto.NewBuildStatus("Waiting for daemon"))
	f := m.Layout(24, 100)
	status := f.Lines[len(f.Lines)-1]
	if !strings.Contains(status, "Waiting for daemon") {
		t.Fatalf("expected buildStatus text in status line, got %q", status)
	}
}

func TestLayoutFailureLineSingleFailureStripsLifecyclePrefix(t *testing.T) {
	m := NewModel(nil)
	reason := "org.apache.maven.lifecycle.LifecycleExecutionException: compile error"
	m.Apply(proto.NewExecutionFailure("mod-a", false, &reason))
	f := m.Layout(24, 200)
	if !strings.Contains(f.Lines[0], "FAILURE:") || !strings.Contains(f.Lines[0], "compile error") {
		t.Fatalf("expected stripped failure line, got %q", f.Lines[0])
	}
	if strings.Contains(f.Lines[0], "LifecycleExecutionException") {
		t.Fatalf("did not expect the raw lifecycle exception class name in %q", f.Lines[0])
	}
}

func TestLayoutFailureLineHaltedUsesAbortingLabel(t *testing.T) {
	m := NewModel(nil)
	reason := "boom"
	m.Apply(proto.NewExecutionFailure("mod-a", true, &reason))
	f := m.Layout(24, 200)
	if !strings.Contains(f.Lines[0], "ABORTING FAILURE:") {
		t.Fatalf("expected ABORTING FAILURE label, got %q", f.Lines[0])
	}
}

func TestLayoutFailureLineMultipleListsIDs(t *testing.T) {
	m := NewModel(nil)
	r1, r2 := "x", "y"
	m.Apply(proto.NewExecutionFailure("mod-a", false, &r1))
	m.Apply(proto.NewExecutionFailure("mod-b", false, &r2))
	f := m.Layout(24, 200)
	if !strings.Contains(f.Lines[0], "2 projects failed: mod-a, mod-b") {
		t.Fatalf("expected aggregate failure line, got %q", f.Lines[0])
	}
}

func TestLayoutGlobalTransferLineSingle(t *testing.T) {
	m := NewModel(nil)
	m.Apply(proto.NewTransferStarted("", proto.TransferGet, "central", "https://repo.example", "org/foo/bar/1.0/bar-1.0.jar", 1000))
	f := m.Layout(24, 200)
	found := false
	for _, l := range f.Lines {
		if strings.Contains(l, "Downloading") && strings.Contains(l, "org.foo:bar:1.0") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a maven-coordinate transfer line, got %v", f.Lines)
	}
}

func TestLayoutGlobalTransferLineMultipleCollapses(t *testing.T) {
	m := NewModel(nil)
	m.Apply(proto.NewTransferStarted("", proto.TransferGet, "central", "u", "a.jar", 10))
	m.Apply(proto.NewTransferStarted("", proto.TransferGet, "central", "u", "b.jar", 10))
	f := m.Layout(24, 200)
	found := false
	for _, l := range f.Lines {
		if strings.Contains(l, "Downloading 2 files...") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the collapsed multi-transfer line, got %v", f.Lines)
	}
}

func TestLayoutHidesOldestProjectsWhenOverflowing(t *testing.T) {
	m := NewModel(nil)
	m.Apply(proto.NewBuildStarted("demo", 5, 5, 20))
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		m.Apply(proto.NewProjectStarted(id))
	}
	f := m.Layout(5, 200)
	status := f.Lines[len(f.Lines)-1]
	if !strings.Contains(status, "threads used/hidden/max") {
		t.Fatalf("expected threads field in status line: %q", status)
	}
}

func TestTruncateAppendsEllipsis(t *testing.T) {
	got := truncate("0123456789", 5)
	if got != "0123…" {
		t.Fatalf("got %q", got)
	}
}

func TestTruncateNoOpWhenFits(t *testing.T) {
	got := truncate("short", 80)
	if got != "short" {
		t.Fatalf("got %q", got)
	}
}
