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

type LogStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewLogStore(db *sql.DB, writer *dbpkg.Worker) *LogStore {
	return &LogStore{db: db, writer: writer}
}

func (s *LogStore) Append(ctx context.Context, e types.LogEntry) error {
	if !e.EntryType.Valid() {
		return types.ErrInvalidEntryType
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	var profileID any
	if id := strings.TrimSpace(e.VisitorID); id != "" {
		profileID = id
	}

	var ageRange, gender, emotion, glasses any
	if a := e.Attributes; a != nil {
		ageRange, gender, emotion = a.AgeRange, a.Gender, a.Emotion
		glasses = 0
		if a.Glasses {
			glasses = 1
		}
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO log_entries(
  entry_id, profile_id, name, captured_ns, confidence, entry_type,
  image_url, age_range, gender, emotion, glasses
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			e.ID, profileID, e.Name, e.Timestamp.UnixNano(), e.Confidence, string(e.EntryType),
			e.ImageURL, ageRange, gender, emotion, glasses,
		); err != nil {
			return fmt.Errorf("Append insert: %w", err)
		}
		return nil
	})
}

// Query filters by entry type in SQL and by name in Go, so name matching
// uses the same Unicode case folding as the in-memory store.
func (s *LogStore) Query(ctx context.Context, f types.LogFilter) ([]types.LogEntry, error) {
	q := `
SELECT entry_id, profile_id, name, captured_ns, confidence, entry_type,
       image_url, age_range, gender, emotion, glasses
FROM log_entries`
	var args []any
	if f.EntryType != "" {
		q += ` WHERE entry_type = ?`
		args = append(args, string(f.EntryType))
	}
	q += ` ORDER BY seq DESC;`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("Query: %w", err)
	}
	defer rows.Close()

	out := []types.LogEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Query rows: %w", err)
	}
	return out, nil
}

func scanEntry(rows *sql.Rows) (types.LogEntry, error) {
	var (
		e                         types.LogEntry
		profileID                 sql.NullString
		capturedNs                int64
		entryType                 string
		ageRange, gender, emotion sql.NullString
		glasses                   sql.NullInt64
	)
	if err := rows.Scan(
		&e.ID, &profileID, &e.Name, &capturedNs, &e.Confidence, &entryType,
		&e.ImageURL, &ageRange, &gender, &emotion, &glasses,
	); err != nil {
		return types.LogEntry{}, fmt.Errorf("Query scan: %w", err)
	}

	e.VisitorID = profileID.String
	e.Timestamp = time.Unix(0, capturedNs).UTC()
	e.EntryType = types.EntryType(entryType)
	if ageRange.Valid || gender.Valid || emotion.Valid || glasses.Valid {
		e.Attributes = &types.Attributes{
			AgeRange: ageRange.String,
			Gender:   gender.String,
			Emotion:  emotion.String,
			Glasses:  glasses.Int64 == 1,
		}
	}
	return e, nil
}
