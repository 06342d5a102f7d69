package scheduler

import (
	"path/filepath"
	"testing"
)

func TestStateSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	st, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if st.HasCommit("acme/demo", "main", "abc123") {
		t.Fatalf("expected no commit recorded before first update")
	}

	st.UpdateSuccess("acme/demo", "main", "abc123")
	if err := st.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState after save: %v", err)
	}
	if !reloaded.HasCommit("acme/demo", "main", "abc123") {
		t.Fatalf("expected reloaded state to have the saved commit")
	}
	if reloaded.HasCommit("acme/demo", "main", "def456") {
		t.Fatalf("expected a different commit to not be recorded")
	}
	if reloaded.HasCommit("acme/other", "main", "abc123") {
		t.Fatalf("expected state to be scoped per repository")
	}
}

func TestLoadStateMissingFile(t *testing.T) {
	dir := t.TempDir()
	st, err := LoadState(filepath.Join(dir, "absent.json"))
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if st.HasCommit("acme/demo", "main", "abc123") {
		t.Fatalf("expected empty state for a missing file")
	}
}

func TestStateUpdateSuccessStampsTime(t *testing.T) {
	dir := t.TempDir()
	st, err := LoadState(filepath.Join(dir, "state.json"))
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}

	st.UpdateSuccess("acme/demo", "release", "c1")
	entry := st.state.Branches[stateKey("acme/demo", "release")]
	if entry.LastIndexedCommit != "c1" {
		t.Fatalf("got commit %q, want c1", entry.LastIndexedCommit)
	}
	if entry.LastSuccessAt == "" {
		t.Fatalf("expected LastSuccessAt to be stamped")
	}
}
