package memory

import (
	"context"
	"sync"
	"time"

	"github.com/BrandonDHaskell/visitrack/internal/visitrack/store"
)

// PresenceStore keeps the latest heartbeat per open view.
type PresenceStore struct {
	mu   sync.RWMutex
	data map[string]store.PresenceRecord
}

func NewPresenceStore() *PresenceStore {
	return &PresenceStore{
		data: make(map[string]store.PresenceRecord),
	}
}

func (s *PresenceStore) UpsertHeartbeat(_ context.Context, viewID string, rec store.PresenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now().UTC()
	}
	s.data[viewID] = rec
	return nil
}

func (s *PresenceStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, rec := range s.data {
		if rec.ReceivedAt.Before(cutoff) {
			delete(s.data, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *PresenceStore) ActiveViews(_ context.Context, view string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, rec := range s.data {
		if rec.Heartbeat.View == view {
			n++
		}
	}
	return n, nil
}

// Remove drops a view immediately, used when a view closes explicitly.
func (s *PresenceStore) Remove(_ context.Context, viewID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, viewID)
	return nil
}
