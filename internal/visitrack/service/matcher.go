package service

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/BrandonDHaskell/visitrack/internal/visitrack/store"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/types"
)

// Identity is who a Matcher decided the face belongs to.
type Identity struct {
	Name      string
	Known     bool
	ProfileID string
}

func unknownIdentity() Identity {
	return Identity{Name: types.UnknownVisitor}
}

// Matcher assigns an identity to an analysed face.
type Matcher interface {
	Match(ctx context.Context, image []byte, attrs types.Attributes) (Identity, error)
}

type randSource interface {
	Float64() float64
	IntN(n int) int
}

// RandomMatcher does not look at the face. It declares a match with
// probability knownRatio and picks a roster profile uniformly.
type RandomMatcher struct {
	profiles   store.ProfileStore
	knownRatio float64

	mu  sync.Mutex
	rng randSource
}

// DefaultKnownRatio is the share of scans reported as recognized.
const DefaultKnownRatio = 0.7

func NewRandomMatcher(profiles store.ProfileStore, knownRatio float64) *RandomMatcher {
	seed := uint64(time.Now().UnixNano())
	return newRandomMatcher(profiles, knownRatio, rand.New(rand.NewPCG(seed, seed>>1)))
}

func newRandomMatcher(profiles store.ProfileStore, knownRatio float64, rng randSource) *RandomMatcher {
	switch {
	case knownRatio < 0:
		knownRatio = 0
	case knownRatio > 1:
		knownRatio = 1
	}
	return &RandomMatcher{profiles: profiles, knownRatio: knownRatio, rng: rng}
}

func (m *RandomMatcher) Match(ctx context.Context, _ []byte, _ types.Attributes) (Identity, error) {
	roster, err := m.profiles.Profiles(ctx)
	if err != nil {
		return Identity{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rng.Float64() >= m.knownRatio || len(roster) == 0 {
		return unknownIdentity(), nil
	}
	p := roster[m.rng.IntN(len(roster))]
	return Identity{Name: p.Name, Known: true, ProfileID: p.ID}, nil
}
