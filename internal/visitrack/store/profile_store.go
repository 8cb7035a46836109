package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/visitrack/internal/visitrack/types"
)

type ProfileStore interface {
	Profiles(ctx context.Context) ([]types.VisitorProfile, error)
	UpsertProfile(ctx context.Context, p types.VisitorProfile) error
	MarkSeen(ctx context.Context, profileID string, t time.Time) error
}
