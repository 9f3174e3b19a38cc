package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Log is the append-only JSONL backend: one file per UTC calendar day,
// one JSON object per line. Entries are never edited in place; execution
// outcomes are appended as separate update records and folded back into
// their originals on read.
type Log struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time

	// mu serializes appends from this process. Files are additionally
	// opened O_APPEND so concurrent processes cannot interleave partial
	// lines.
	mu sync.Mutex
}

// NewLog creates the log directory if needed and returns a JSONL recorder.
func NewLog(dir string, logger *slog.Logger) (*Log, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating audit dir: %w", err)
	}
	return &Log{dir: dir, logger: logger, now: time.Now}, nil
}

// Record appends one decision entry to today's file. Failures are logged
// and swallowed: failing to log must never change a security decision.
func (l *Log) Record(e Entry) {
	if e.Timestamp == "" {
		e.Timestamp = l.now().UTC().Format(time.RFC3339Nano)
	}
	l.append(e)
}

// UpdateResult appends a separate update record referencing the original
// entry id. The original line is never rewritten.
func (l *Log) UpdateResult(id string, result ExecutionResult, durationMs int64) {
	l.append(Entry{
		ID:              id,
		Type:            recordTypeUpdate,
		Timestamp:       l.now().UTC().Format(time.RFC3339Nano),
		ExecutionResult: result,
		DurationMs:      durationMs,
	})
}

// Recent reads today's file, drops unparseable lines, folds update records
// into their decision entries by id, and returns the last limit entries in
// file (chronological) order.
func (l *Log) Recent(limit int) ([]Entry, error) {
	f, err := os.Open(l.path(l.now()))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit file: %w", err)
	}
	defer f.Close()

	var entries []Entry
	index := make(map[string]int)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			l.logger.Warn("skipping unparseable audit line", "error", err)
			continue
		}
		if e.Type == recordTypeUpdate {
			if i, ok := index[e.ID]; ok {
				entries[i].ExecutionResult = e.ExecutionResult
				entries[i].DurationMs = e.DurationMs
			}
			continue
		}
		index[e.ID] = len(entries)
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading audit file: %w", err)
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// Close is a no-op: every append opens, writes, and closes the file.
func (l *Log) Close() error { return nil }

func (l *Log) path(t time.Time) string {
	return filepath.Join(l.dir, "exec-audit-"+t.UTC().Format("2006-01-02")+".jsonl")
}

func (l *Log) append(e Entry) {
	data, err := json.Marshal(e)
	if err != nil {
		l.logger.Error("audit entry not serializable", "id", e.ID, "error", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path(l.now()), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		l.logger.Error("audit write failed", "id", e.ID, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		l.logger.Error("audit write failed", "id", e.ID, "error", err)
	}
}
