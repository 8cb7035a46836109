package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/visitrack/internal/visitrack/types"
)

type PresenceRecord struct {
	ReceivedAt time.Time
	Heartbeat  types.ViewHeartbeat
}

// PresenceStore tracks which views are still open, keyed by view id.
type PresenceStore interface {
	UpsertHeartbeat(ctx context.Context, viewID string, rec PresenceRecord) error
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	ActiveViews(ctx context.Context, view string) (int, error)
	Remove(ctx context.Context, viewID string) error
}
