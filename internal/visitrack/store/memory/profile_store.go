package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BrandonDHaskell/visitrack/internal/visitrack/types"
)

type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]types.VisitorProfile
}

func NewProfileStore(initial []types.VisitorProfile) *ProfileStore {
	p := make(map[string]types.VisitorProfile, len(initial))
	for _, v := range initial {
		id := strings.TrimSpace(v.ID)
		if id != "" {
			v.ID = id
			p[id] = v
		}
	}
	return &ProfileStore{profiles: p}
}

func (s *ProfileStore) Profiles(_ context.Context) ([]types.VisitorProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.VisitorProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *ProfileStore) UpsertProfile(_ context.Context, p types.VisitorProfile) error {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
	return nil
}

func (s *ProfileStore) MarkSeen(_ context.Context, profileID string, t time.Time) error {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[profileID]
	if !ok {
		return nil
	}
	seen := t.UTC()
	p.LastSeen = &seen
	s.profiles[profileID] = p
	return nil
}
