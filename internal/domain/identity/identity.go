// Package identity is the single ID allocation point for the engine.
// All record IDs are issued here rather than ad hoc at call sites, so
// collision behavior is owned by one type and tests can substitute a
// deterministic generator.
package identity

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator issues unique IDs.
type Generator interface {
	NewID() string
}

// UUID issues random UUIDv4 identifiers.
type UUID struct{}

// NewID returns a new UUIDv4 string.
func (UUID) NewID() string {
	return uuid.NewString()
}

// Sequence issues monotonically increasing IDs with a fixed prefix.
// Intended for tests and for humans reading orchestration logs.
type Sequence struct {
	Prefix string
	n      atomic.Uint64
}

// NewID returns the next ID in the sequence.
func (s *Sequence) NewID() string {
	return fmt.Sprintf("%s-%d", s.Prefix, s.n.Add(1))
}
