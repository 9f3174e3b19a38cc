package rules

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Watcher serves rule tables built from the embedded defaults plus a
// custom rules directory, and rebuilds them when files in that directory
// change. A malformed edit keeps the previous tables active.
type Watcher struct {
	dir     string
	logger  *slog.Logger
	current atomic.Pointer[Tables]
	fsw     *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher loads embedded + dir rules and begins watching dir.
// Callers must Close the watcher when done.
func NewWatcher(dir string, logger *slog.Logger) (*Watcher, error) {
	w := &Watcher{
		dir:    dir,
		logger: logger,
		done:   make(chan struct{}),
	}

	tables, err := w.build()
	if err != nil {
		return nil, err
	}
	w.current.Store(tables)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fs watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}
	w.fsw = fsw

	go w.loop()
	return w, nil
}

// Tables implements Provider with the most recently loaded tables.
func (w *Watcher) Tables() *Tables {
	return w.current.Load()
}

// Close stops watching. The last loaded tables remain served.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) build() (*Tables, error) {
	tables, err := LoadEmbedded()
	if err != nil {
		return nil, err
	}
	if err := tables.LoadDir(w.dir); err != nil {
		return nil, err
	}
	return tables, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			tables, err := w.build()
			if err != nil {
				w.logger.Error("rule reload failed, keeping previous tables",
					"dir", w.dir, "error", err)
				continue
			}
			w.current.Store(tables)
			w.logger.Info("rules reloaded", "dir", w.dir,
				"blocked_commands", len(tables.BlockedCommands),
				"blocked_code", len(tables.BlockedCode),
				"advisory", len(tables.AdvisoryCommands))
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("rule watcher error", "error", err)
		}
	}
}
