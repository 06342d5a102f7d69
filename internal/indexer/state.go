package indexer

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// RunState is the small persisted record a scheduler consults to decide
// whether a repository branch needs reindexing: the last commit it
// successfully indexed.
type RunState struct {
	Repository  string    `json:"repository"`
	Branch      string    `json:"branch"`
	CommitSHA   string    `json:"commit_sha"`
	IndexedAt   time.Time `json:"indexed_at"`
	FileCount   int       `json:"file_count"`
}

// StateManager persists RunState to disk with an atomic temp-file-then-
// rename write, so a crash mid-write never leaves a half-written state
// file for the next run to trip over.
type StateManager struct {
	statePath string
}

// NewStateManager creates a state manager backed by a single file.
func NewStateManager(statePath string) *StateManager {
	return &StateManager{statePath: statePath}
}

// Save atomically persists state.
func (sm *StateManager) Save(state RunState) error {
	encoded, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal run state: %w", err)
	}

	tempPath := sm.statePath + ".tmp"
	if err := os.WriteFile(tempPath, encoded, 0o600); err != nil {
		return fmt.Errorf("write temp state: %w", err)
	}

	if err := os.Rename(tempPath, sm.statePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("rename state file: %w", err)
	}

	return nil
}

// Load reads the persisted state. A missing file reports ok=false with
// no error, since "no previous state" is the expected first-run case.
func (sm *StateManager) Load() (RunState, bool, error) {
	data, err := os.ReadFile(sm.statePath) // #nosec G304 -- operator-configured state path
	if err != nil {
		if os.IsNotExist(err) {
			return RunState{}, false, nil
		}
		return RunState{}, false, fmt.Errorf("read state: %w", err)
	}

	var state RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return RunState{}, false, fmt.Errorf("unmarshal state: %w", err)
	}
	return state, true, nil
}

// Clear removes the persisted state file, if any.
func (sm *StateManager) Clear() error {
	if err := os.Remove(sm.statePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove state: %w", err)
	}
	return nil
}

// Exists reports whether a state file is currently persisted.
func (sm *StateManager) Exists() bool {
	_, err := os.Stat(sm.statePath)
	return err == nil
}
