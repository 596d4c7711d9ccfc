package store

import (
	"context"
	"sync"
)

// ScoreStore is the persistence boundary for per-node scores. The store
// treats it as an opaque, best-effort key/value map keyed by node ID:
// errors are logged and swallowed, never surfaced to the UI layer.
// Implementations may complete writes asynchronously; the store only
// requires eventual, not immediate, disk-state consistency.
type ScoreStore interface {
	// Put records the score for a node, replacing any existing value.
	Put(ctx context.Context, id, scoreKey string) error
	// ForEach calls fn for every stored entry. Iteration order is
	// unspecified. A non-nil error from fn stops iteration.
	ForEach(ctx context.Context, fn func(id, scoreKey string) error) error
}

// MemScores is an in-memory ScoreStore. It is used by tests and as a
// fallback when no durable store could be opened (scores then last for
// the session only).
type MemScores struct {
	mu sync.Mutex
	m  map[string]string
}

// NewMemScores creates an empty in-memory score store.
func NewMemScores() *MemScores {
	return &MemScores{m: make(map[string]string)}
}

// Put implements ScoreStore.
func (s *MemScores) Put(_ context.Context, id, scoreKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[id] = scoreKey
	return nil
}

// ForEach implements ScoreStore.
func (s *MemScores) ForEach(_ context.Context, fn func(id, scoreKey string) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, scoreKey := range s.m {
		if err := fn(id, scoreKey); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored entries.
func (s *MemScores) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
