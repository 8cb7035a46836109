package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BrandonDHaskell/visitrack/internal/visitrack/store/sqlite"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/types"
)

func newLogStore(t *testing.T) *sqlite.LogStore {
	t.Helper()
	conn := openTestDB(t)
	return sqlite.NewLogStore(conn, newTestWriter(t, conn))
}

func entry(id, name string, et types.EntryType) types.LogEntry {
	return types.LogEntry{
		ID:         id,
		Name:       name,
		Timestamp:  time.Date(2026, 3, 1, 9, 0, 0, 123456789, time.UTC),
		Confidence: 0.9,
		EntryType:  et,
		ImageURL:   "data:image/jpeg;base64,AAAA",
	}
}

// ── Append / Query ──────────────────────────────────────────────────

func TestLogStore_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newLogStore(t)

	for _, e := range []types.LogEntry{
		entry("a", "Rahul Sharma", types.CheckIn),
		entry("b", "Unknown Visitor", types.Denied),
		entry("c", "Priya Patel", types.CheckIn),
	} {
		if err := s.Append(ctx, e); err != nil {
			t.Fatalf("Append(%s): %v", e.ID, err)
		}
	}

	got, err := s.Query(ctx, types.LogFilter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	for i, want := range []string{"c", "b", "a"} {
		if got[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, got[i].ID)
		}
	}
}

func TestLogStore_RoundTripsFields(t *testing.T) {
	ctx := context.Background()
	s := newLogStore(t)

	in := entry("x", "Amit Singh", types.CheckIn)
	in.VisitorID = "v-3"
	in.Attributes = &types.Attributes{AgeRange: "25-30", Gender: "Male", Emotion: "Happy", Glasses: true}
	if err := s.Append(ctx, in); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := s.Query(ctx, types.LogFilter{})
	if err != nil || len(got) != 1 {
		t.Fatalf("Query: %v (%d entries)", err, len(got))
	}
	out := got[0]
	if !out.Timestamp.Equal(in.Timestamp) {
		t.Errorf("timestamp: expected %v, got %v", in.Timestamp, out.Timestamp)
	}
	if out.VisitorID != "v-3" || out.Name != "Amit Singh" || out.EntryType != types.CheckIn {
		t.Errorf("unexpected entry %+v", out)
	}
	if out.Attributes == nil || *out.Attributes != *in.Attributes {
		t.Errorf("attributes: expected %+v, got %+v", in.Attributes, out.Attributes)
	}
}

func TestLogStore_NoAttributesStaysNil(t *testing.T) {
	ctx := context.Background()
	s := newLogStore(t)

	if err := s.Append(ctx, entry("x", "Sneha Gupta", types.CheckOut)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	got, _ := s.Query(ctx, types.LogFilter{})
	if got[0].Attributes != nil {
		t.Errorf("expected nil attributes, got %+v", got[0].Attributes)
	}
}

func TestLogStore_Filter(t *testing.T) {
	ctx := context.Background()
	s := newLogStore(t)

	_ = s.Append(ctx, entry("1", "Rahul Sharma", types.CheckIn))
	_ = s.Append(ctx, entry("2", "Unknown Visitor", types.Denied))
	_ = s.Append(ctx, entry("3", "Priya Patel", types.CheckOut))
	_ = s.Append(ctx, entry("4", "rahul verma", types.Denied))

	cases := []struct {
		name   string
		filter types.LogFilter
		want   []string
	}{
		{"all", types.LogFilter{}, []string{"4", "3", "2", "1"}},
		{"search case-insensitive", types.LogFilter{Search: "RAHUL"}, []string{"4", "1"}},
		{"type only", types.LogFilter{EntryType: types.Denied}, []string{"4", "2"}},
		{"search and type", types.LogFilter{Search: "rahul", EntryType: types.Denied}, []string{"4"}},
		{"no match", types.LogFilter{Search: "zzz"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.Query(ctx, tc.filter)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if got == nil {
				t.Fatal("expected empty slice, got nil")
			}
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d entries, got %d", len(tc.want), len(got))
			}
			for i, id := range tc.want {
				if got[i].ID != id {
					t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
				}
			}
		})
	}
}

func TestLogStore_DuplicateIDsKept(t *testing.T) {
	ctx := context.Background()
	s := newLogStore(t)

	_ = s.Append(ctx, entry("dup", "Rahul Sharma", types.CheckIn))
	_ = s.Append(ctx, entry("dup", "Rahul Sharma", types.CheckIn))

	got, _ := s.Query(ctx, types.LogFilter{})
	if len(got) != 2 {
		t.Errorf("expected both entries to be kept, got %d", len(got))
	}
}

func TestLogStore_RejectsInvalidEntryType(t *testing.T) {
	s := newLogStore(t)
	err := s.Append(context.Background(), entry("x", "n", types.EntryType("Maybe")))
	if !errors.Is(err, types.ErrInvalidEntryType) {
		t.Errorf("expected ErrInvalidEntryType, got %v", err)
	}
}
