package registry

import (
	"os"
	"testing"
	"time"
)

func TestWriteThenListRoundTrips(t *testing.T) {
	dir := t.TempDir()
	r := Record{
		PID: os.Getpid(), SocketPath: "/tmp/buildd.sock", StartedAt: time.Now().Truncate(time.Second),
		ProtocolToken: "v1", JavaHome: "/usr/lib/jvm/17", WorkingDir: "/home/dev/project",
	}
	if err := Write(dir, r); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].SocketPath != r.SocketPath {
		t.Fatalf("got %+v, want one record matching %+v", got, r)
	}
}

func TestListSkipsDeadPids(t *testing.T) {
	dir := t.TempDir()
	// pid 999999 is extremely unlikely to be alive in any test environment.
	r := Record{PID: 999999, SocketPath: "/tmp/dead.sock", ProtocolToken: "v1", WorkingDir: "/x"}
	if err := Write(dir, r); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected dead pid's record to be skipped, got %+v", got)
	}
}

func TestRemoveMissingRecordIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	if err := Remove(dir, 12345); err != nil {
		t.Fatalf("expected no error removing a nonexistent record, got %v", err)
	}
}

func TestMatchRequiresBothTokenAndWorkingDir(t *testing.T) {
	r := Record{ProtocolToken: "v1", WorkingDir: "/home/dev/project"}
	if !Match(r, "v1", "/home/dev/project") {
		t.Fatalf("expected a match")
	}
	if Match(r, "v2", "/home/dev/project") {
		t.Fatalf("expected token mismatch to reject")
	}
	if Match(r, "v1", "/home/dev/other") {
		t.Fatalf("expected workingDir mismatch to reject")
	}
}

func TestFindCompatibleReturnsFirstMatch(t *testing.T) {
	dir := t.TempDir()
	r1 := Record{PID: os.Getpid(), SocketPath: "/tmp/a.sock", ProtocolToken: "v1", WorkingDir: "/x"}
	if err := Write(dir, r1); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, ok, err := FindCompatible(dir, "v1", "/x")
	if err != nil || !ok {
		t.Fatalf("FindCompatible: ok=%v err=%v", ok, err)
	}
	if got.SocketPath != r1.SocketPath {
		t.Fatalf("got %+v", got)
	}

	_, ok, err = FindCompatible(dir, "v2", "/x")
	if err != nil {
		t.Fatalf("FindCompatible: %v", err)
	}
	if ok {
		t.Fatalf("expected no compatible record for a mismatched token")
	}
}

func TestListOnMissingDirReturnsEmpty(t *testing.T) {
	got, err := List("/nonexistent/registry/dir")
	if err != nil {
		t.Fatalf("expected a missing registry dir to be treated as empty, got %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %v", got)
	}
}
