package store

import (
	"context"

	"github.com/BrandonDHaskell/visitrack/internal/visitrack/types"
)

// LogStore holds the session's visitor log, newest first. Append is the only
// mutation; entries are never updated or removed.
type LogStore interface {
	Append(ctx context.Context, entry types.LogEntry) error
	// Query returns matching entries newest first. It has no side effects.
	Query(ctx context.Context, filter types.LogFilter) ([]types.LogEntry, error)
}
