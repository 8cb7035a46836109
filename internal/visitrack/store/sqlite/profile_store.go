package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/visitrack/internal/db"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/types"
)

type ProfileStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewProfileStore(db *sql.DB, writer *dbpkg.Worker) *ProfileStore {
	return &ProfileStore{db: db, writer: writer}
}

func (s *ProfileStore) Profiles(ctx context.Context) ([]types.VisitorProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT profile_id, name, role, department, photo_url, last_seen_ns
FROM profiles
ORDER BY profile_id;
`)
	if err != nil {
		return nil, fmt.Errorf("Profiles: %w", err)
	}
	defer rows.Close()

	out := []types.VisitorProfile{}
	for rows.Next() {
		var (
			p        types.VisitorProfile
			lastSeen sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Role, &p.Department, &p.PhotoURL, &lastSeen); err != nil {
			return nil, fmt.Errorf("Profiles scan: %w", err)
		}
		if lastSeen.Valid {
			t := time.Unix(0, lastSeen.Int64).UTC()
			p.LastSeen = &t
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Profiles rows: %w", err)
	}
	return out, nil
}

func (s *ProfileStore) UpsertProfile(ctx context.Context, p types.VisitorProfile) error {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return nil
	}
	nowMs := time.Now().UTC().UnixMilli()

	var lastSeen any
	if p.LastSeen != nil {
		lastSeen = p.LastSeen.UnixNano()
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO profiles(profile_id, name, role, department, photo_url, last_seen_ns, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(profile_id) DO UPDATE SET
  name          = excluded.name,
  role          = excluded.role,
  department    = excluded.department,
  photo_url     = excluded.photo_url,
  last_seen_ns  = COALESCE(excluded.last_seen_ns, profiles.last_seen_ns),
  updated_at_ms = excluded.updated_at_ms;
`, p.ID, p.Name, p.Role, p.Department, p.PhotoURL, lastSeen, nowMs, nowMs); err != nil {
			return fmt.Errorf("UpsertProfile: %w", err)
		}
		return nil
	})
}

// MarkSeen is a no-op for unknown profile ids.
func (s *ProfileStore) MarkSeen(ctx context.Context, profileID string, t time.Time) error {
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return nil
	}
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
UPDATE profiles SET last_seen_ns = ?, updated_at_ms = ? WHERE profile_id = ?;
`, t.UnixNano(), time.Now().UTC().UnixMilli(), profileID); err != nil {
			return fmt.Errorf("MarkSeen: %w", err)
		}
		return nil
	})
}
