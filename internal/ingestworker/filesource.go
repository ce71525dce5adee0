package ingestworker

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gorm.io/datatypes"
)

// Record is one ingestible line, whether it came from the log-export
// service's JSON Lines body or a locally watched file.
type Record struct {
	Text     string
	Metadata datatypes.JSON
}

type rawRecord struct {
	Prompt   string                 `json:"prompt"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata"`
}

// ParseJSONLines decodes a JSON Lines body into Records. Each line may use
// either "prompt" or "text" as the field name, matching the two export
// payload shapes referenced by original_source/packages/ingestion/worker.py.
func ParseJSONLines(body []byte) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var raw rawRecord
		if err := json.Unmarshal(line, &raw); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		text := raw.Prompt
		if text == "" {
			text = raw.Text
		}
		if text == "" {
			continue
		}
		meta, err := json.Marshal(raw.Metadata)
		if err != nil {
			return nil, fmt.Errorf("line %d: marshal metadata: %w", lineNo, err)
		}
		records = append(records, Record{Text: text, Metadata: datatypes.JSON(meta)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan json lines: %w", err)
	}
	return records, nil
}

// ReadDirSince reads every *.jsonl file in dir modified at or after
// since, sorted by path for deterministic ordering, and returns their
// combined records. Used by the local-directory ingestion mode as an
// alternative to the log-export HTTP protocol.
func ReadDirSince(dir string, since time.Time) ([]Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		if info.ModTime().Before(since) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	var all []Record
	for _, p := range paths {
		body, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		records, err := ParseJSONLines(body)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
		all = append(all, records...)
	}
	return all, nil
}
