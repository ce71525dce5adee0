package ingestworker

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoadState_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	want := State{LastRunTime: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}

	if err := SaveState(path, want); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	got := LoadState(path)
	if !got.LastRunTime.Equal(want.LastRunTime) {
		t.Errorf("LastRunTime = %v, want %v", got.LastRunTime, want.LastRunTime)
	}
}

func TestLoadState_MissingFileDefaultsTo24HoursAgo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")
	before := time.Now().UTC().Add(-24 * time.Hour)

	got := LoadState(path)

	if got.LastRunTime.Before(before.Add(-time.Minute)) || got.LastRunTime.After(before.Add(time.Minute)) {
		t.Errorf("LastRunTime = %v, want roughly %v", got.LastRunTime, before)
	}
}

func TestLoadState_CorruptFileDefaultsTo24HoursAgo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.json")
	if err := SaveState(path, State{}); err != nil {
		t.Fatal(err)
	}
	// Overwrite with invalid JSON.
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	before := time.Now().UTC().Add(-24 * time.Hour)
	got := LoadState(path)
	if got.LastRunTime.Before(before.Add(-time.Minute)) || got.LastRunTime.After(before.Add(time.Minute)) {
		t.Errorf("LastRunTime = %v, want roughly %v", got.LastRunTime, before)
	}
}
