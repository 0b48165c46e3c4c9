// Package persistlog defines the append-only record log port.
package persistlog

import "context"

// Record is one opaque JSON-serializable log entry.
type Record = map[string]any

// Log is the port interface for an append-only record store, typically one
// JSON object per line. ReadAll must skip individually malformed records
// rather than aborting the whole read: a single corrupted line reduces the
// returned count by exactly one and never poisons its neighbors.
type Log interface {
	Append(ctx context.Context, rec Record) error
	ReadAll(ctx context.Context) ([]Record, error)
}
