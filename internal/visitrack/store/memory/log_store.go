package memory

import (
	"context"
	"sync"

	"github.com/BrandonDHaskell/visitrack/internal/visitrack/types"
)

// LogStore is the in-memory visitor log. Entries are kept oldest first so
// Append is an amortized O(1) slice append; reads walk the slice backwards to
// present them newest first.
type LogStore struct {
	mu      sync.RWMutex
	entries []types.LogEntry
}

func NewLogStore() *LogStore {
	return &LogStore{}
}

func (s *LogStore) Append(_ context.Context, entry types.LogEntry) error {
	if !entry.EntryType.Valid() {
		return types.ErrInvalidEntryType
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, clone(entry))
	return nil
}

func (s *LogStore) Query(_ context.Context, filter types.LogFilter) ([]types.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.LogEntry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		if filter.Matches(s.entries[i]) {
			out = append(out, clone(s.entries[i]))
		}
	}
	return out, nil
}

// clone detaches the entry's attributes from the caller's copy.
func clone(e types.LogEntry) types.LogEntry {
	if e.Attributes != nil {
		a := *e.Attributes
		e.Attributes = &a
	}
	return e
}

// Len returns the number of stored entries.
func (s *LogStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
