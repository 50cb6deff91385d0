package resume

import (
	"os"
	"testing"
)

func TestPersistThenReadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	ids := []string{"mod-a", "mod-b", "mod-c"}
	if err := Persist(dir, ids); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	got, present, err := Read(dir)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !present {
		t.Fatalf("expected the file to be present")
	}
	if len(got) != len(ids) {
		t.Fatalf("got %v, want %v", got, ids)
	}
	for i := range ids {
		if got[i] != ids[i] {
			t.Fatalf("got %v, want %v", got, ids)
		}
	}
}

func TestPersistThenReadRoundTripsSpecialCharacters(t *testing.T) {
	dir := t.TempDir()
	ids := []string{"group=artifact", "a:b", "has#hash", "a,b"}
	if err := Persist(dir, ids); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	got, present, err := Read(dir)
	if err != nil || !present {
		t.Fatalf("Read: present=%v err=%v", present, err)
	}
	if len(got) != len(ids) {
		t.Fatalf("got %v, want %v", got, ids)
	}
	for i := range ids {
		if got[i] != ids[i] {
			t.Fatalf("index %d: got %q want %q", i, got[i], ids[i])
		}
	}
}

func TestReadMissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	ids, present, err := Read(dir)
	if err != nil {
		t.Fatalf("expected no error for a missing file, got %v", err)
	}
	if present || ids != nil {
		t.Fatalf("expected absent state, got present=%v ids=%v", present, ids)
	}
}

func TestRemoveMissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	if err := Remove(dir); err != nil {
		t.Fatalf("expected no error removing a nonexistent file, got %v", err)
	}
}

func TestApplyAddsResumeFromWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	if err := Persist(dir, []string{"mod-a", "mod-b"}); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	got, err := Apply([]string{"install"}, dir)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	want := []string{"install", "--resume-from=mod-a"}
	if len(got) != len(want) || got[1] != want[1] {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestApplyDoesNotOverrideExistingResumeFlag(t *testing.T) {
	dir := t.TempDir()
	if err := Persist(dir, []string{"mod-a"}); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	args := []string{"install", "--resume-from=mod-z"}
	got, err := Apply(args, dir)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(got) != 2 || got[1] != "--resume-from=mod-z" {
		t.Fatalf("expected args unchanged, got %v", got)
	}
}

func TestApplyWithNoResumeFileLeavesArgsUnchanged(t *testing.T) {
	dir := t.TempDir()
	got, err := Apply([]string{"install"}, dir)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(got) != 1 || got[0] != "install" {
		t.Fatalf("got %v", got)
	}
}

func TestReadCorruptFileDegradesToAbsent(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filePath(dir), []byte("not a valid properties\x00line"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	ids, present, err := Read(dir)
	if err != nil {
		t.Fatalf("expected corrupt file to degrade without error, got %v", err)
	}
	_ = ids
	_ = present
}
