// Package ingestworker implements the Ingestion Worker: a single
// cooperative loop that polls an external log-export service (or watches
// a local directory) for new prompts, runs them through pkg/ingest's
// dedup/persist pipeline, and checkpoints its progress to a small JSON
// state file. Grounded on original_source/packages/ingestion/worker.py's
// load_state/save_state/run_worker shape.
package ingestworker

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// DefaultStatePath is where the worker checkpoints, matching the
// original's STATE_FILE default.
const DefaultStatePath = "ingestion_state.json"

// State is the on-disk checkpoint document, spec.md §6's
// "ingestion-worker state file" (last_run_time, ISO-8601 UTC).
type State struct {
	LastRunTime time.Time `json:"last_run_time"`
}

// LoadState reads path, defaulting to 24 hours ago if the file is absent
// or unreadable, matching the original's load_state.
func LoadState(path string) State {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{LastRunTime: time.Now().UTC().Add(-24 * time.Hour)}
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{LastRunTime: time.Now().UTC().Add(-24 * time.Hour)}
	}
	return s
}

// SaveState persists the checkpoint, called only on successful tick
// completion per spec.md §6 — a failed tick must not advance last_run_time
// so the next run retries the same window.
func SaveState(path string, s State) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal ingestion state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write ingestion state %s: %w", path, err)
	}
	return nil
}
