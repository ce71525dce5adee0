package ingestworker

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseJSONLines_PromptAndTextFields(t *testing.T) {
	body := []byte(`{"prompt":"write a haiku","metadata":{"source":"a"}}
{"text":"tell me a joke"}
`)
	records, err := ParseJSONLines(body)
	if err != nil {
		t.Fatalf("ParseJSONLines: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Text != "write a haiku" {
		t.Errorf("records[0].Text = %q", records[0].Text)
	}
	if records[1].Text != "tell me a joke" {
		t.Errorf("records[1].Text = %q", records[1].Text)
	}
}

func TestParseJSONLines_SkipsBlankLines(t *testing.T) {
	body := []byte("{\"prompt\":\"a\"}\n\n{\"prompt\":\"b\"}\n")
	records, err := ParseJSONLines(body)
	if err != nil {
		t.Fatalf("ParseJSONLines: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestParseJSONLines_RejectsMalformedLine(t *testing.T) {
	body := []byte("{not json}\n")
	if _, err := ParseJSONLines(body); err == nil {
		t.Fatal("expected error for malformed line")
	}
}

func TestReadDirSince_OnlyReturnsRecentJSONLFiles(t *testing.T) {
	dir := t.TempDir()

	oldPath := filepath.Join(dir, "old.jsonl")
	if err := os.WriteFile(oldPath, []byte(`{"prompt":"old"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldPath, old, old); err != nil {
		t.Fatal(err)
	}

	newPath := filepath.Join(dir, "new.jsonl")
	if err := os.WriteFile(newPath, []byte(`{"prompt":"new"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ignoredPath := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(ignoredPath, []byte("ignore me"), 0o644); err != nil {
		t.Fatal(err)
	}

	since := time.Now().Add(-1 * time.Hour)
	records, err := ReadDirSince(dir, since)
	if err != nil {
		t.Fatalf("ReadDirSince: %v", err)
	}
	if len(records) != 1 || records[0].Text != "new" {
		t.Fatalf("expected only the new record, got %+v", records)
	}
}
