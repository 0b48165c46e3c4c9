// Package jsonl implements the persistence log port as a file of JSON
// objects, one per line.
package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/Bizzy211/heimdall/internal/port/persistlog"
)

// Log appends records to a JSONL file. Appends are serialized by a mutex
// so concurrent writers cannot interleave partial lines.
type Log struct {
	mu   sync.Mutex
	path string
}

// New creates a Log writing to the given path. The file is created on
// first append.
func New(path string) *Log {
	return &Log{path: path}
}

// Append writes one record as a JSON line.
func (l *Log) Append(_ context.Context, rec persistlog.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec // G304: path comes from config
	if err != nil {
		return fmt.Errorf("open log %s: %w", l.path, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append log %s: %w", l.path, err)
	}
	return nil
}

// ReadAll returns every valid record in the file. Individually malformed
// lines are skipped and logged: a single corrupted line reduces the count
// by one, and valid records before and after it are both recovered. A
// missing file yields an empty slice, not an error.
func (l *Log) ReadAll(_ context.Context) ([]persistlog.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path) //nolint:gosec // G304: path comes from config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []persistlog.Record{}, nil
		}
		return nil, fmt.Errorf("open log %s: %w", l.path, err)
	}
	defer func() { _ = f.Close() }()

	records := []persistlog.Record{}
	skipped := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec persistlog.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan log %s: %w", l.path, err)
	}

	if skipped > 0 {
		slog.Warn("skipped corrupted log lines", "path", l.path, "skipped", skipped, "recovered", len(records))
	}
	return records, nil
}
