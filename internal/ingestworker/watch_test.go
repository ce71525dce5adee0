package ingestworker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_NotifiesOnJSONLWrite(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	path := filepath.Join(dir, "incoming.jsonl")
	if err := os.WriteFile(path, []byte(`{"prompt":"hi"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Events:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a notification after writing a .jsonl file")
	}
}

func TestWatcher_IgnoresNonJSONLFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Events:
		t.Fatal("did not expect a notification for a non-.jsonl file")
	case <-time.After(200 * time.Millisecond):
	}
}
