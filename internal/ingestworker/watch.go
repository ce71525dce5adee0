package ingestworker

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher notifies the worker whenever a *.jsonl file is created or
// written in dir, so the local directory ingestion mode doesn't have to
// poll on its own tick interval for fast-arriving files. The worker's
// own ticker remains the source of truth for the ingestion window; this
// only wakes it up early.
type Watcher struct {
	fsw    *fsnotify.Watcher
	Events chan struct{}
	dir    string
}

// NewWatcher starts watching dir for *.jsonl create/write events.
func NewWatcher(dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{fsw: fsw, Events: make(chan struct{}, 1), dir: dir}
	return w, nil
}

// Run pumps fsnotify events into w.Events until ctx is cancelled.
// Non-.jsonl events and events on other directories are ignored.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Ext(ev.Name) != ".jsonl" {
				continue
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			w.notify()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Str("dir", w.dir).Msg("directory watch error")
		}
	}
}

func (w *Watcher) notify() {
	select {
	case w.Events <- struct{}{}:
	default:
	}
}
