package ingestworker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kestrel-labs/promptforge/pkg/dedup"
	"github.com/kestrel-labs/promptforge/pkg/ingest"
	"github.com/kestrel-labs/promptforge/pkg/models"
)

type stubIngestStore struct {
	created []*models.Prompt
}

func (s *stubIngestStore) CreatePrompt(p *models.Prompt) error {
	s.created = append(s.created, p)
	return nil
}

func (s *stubIngestStore) AllCentroids() (map[uuid.UUID]models.Vector, error) {
	return nil, nil
}

func TestWorker_RunTick_DirectoryMode_PersistsAndAdvancesState(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(t.TempDir(), "state.json")

	if err := os.WriteFile(filepath.Join(dir, "batch.jsonl"), []byte(`{"prompt":"write a sonnet"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := &stubIngestStore{}
	pipeline := &ingest.Pipeline{Store: store, Index: dedup.New(dedup.DefaultThreshold)}

	oldState := State{LastRunTime: time.Now().Add(-24 * time.Hour)}
	if err := SaveState(statePath, oldState); err != nil {
		t.Fatal(err)
	}

	w := New(Config{
		Mode:      ModeDirectory,
		StatePath: statePath,
		WatchDir:  dir,
	}, pipeline, nil, nil)

	w.runTick(context.Background())

	if len(store.created) != 1 {
		t.Fatalf("expected 1 prompt persisted, got %d", len(store.created))
	}

	newState := LoadState(statePath)
	if !newState.LastRunTime.After(oldState.LastRunTime) {
		t.Error("expected LastRunTime to advance after a successful tick")
	}
}

func TestWorker_RunTick_FetchFailureDoesNotAdvanceState(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")
	oldState := State{LastRunTime: time.Now().Add(-24 * time.Hour)}
	if err := SaveState(statePath, oldState); err != nil {
		t.Fatal(err)
	}

	store := &stubIngestStore{}
	pipeline := &ingest.Pipeline{Store: store, Index: dedup.New(dedup.DefaultThreshold)}

	w := New(Config{
		Mode:      ModeDirectory,
		StatePath: statePath,
		WatchDir:  filepath.Join(t.TempDir(), "does-not-exist"),
	}, pipeline, nil, nil)

	w.runTick(context.Background())

	newState := LoadState(statePath)
	if !newState.LastRunTime.Equal(oldState.LastRunTime) {
		t.Error("expected LastRunTime to stay unchanged after a failed fetch")
	}
}
