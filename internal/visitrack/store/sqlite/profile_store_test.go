package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/BrandonDHaskell/visitrack/internal/visitrack/store/sqlite"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/types"
)

// ── Profiles ────────────────────────────────────────────────────────

func TestProfileStore_UpsertAndList(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	s := sqlite.NewProfileStore(conn, newTestWriter(t, conn))

	for _, p := range []types.VisitorProfile{
		{ID: "v-2", Name: "Priya Patel", Role: "Engineer"},
		{ID: "v-1", Name: "Rahul Sharma", Role: "Manager"},
		{ID: "  ", Name: "ignored"},
	} {
		if err := s.UpsertProfile(ctx, p); err != nil {
			t.Fatalf("UpsertProfile: %v", err)
		}
	}
	if err := s.UpsertProfile(ctx, types.VisitorProfile{ID: "v-2", Name: "Priya Patel", Role: "Lead"}); err != nil {
		t.Fatalf("UpsertProfile update: %v", err)
	}

	got, err := s.Profiles(ctx)
	if err != nil {
		t.Fatalf("Profiles: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(got))
	}
	if got[0].ID != "v-1" || got[1].ID != "v-2" {
		t.Errorf("expected sorted ids, got %s, %s", got[0].ID, got[1].ID)
	}
	if got[1].Role != "Lead" {
		t.Errorf("expected updated role, got %q", got[1].Role)
	}
}

func TestProfileStore_MarkSeen(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	s := sqlite.NewProfileStore(conn, newTestWriter(t, conn))

	_ = s.UpsertProfile(ctx, types.VisitorProfile{ID: "v-1", Name: "Rahul Sharma"})
	seen := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	if err := s.MarkSeen(ctx, "v-1", seen); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if err := s.MarkSeen(ctx, "missing", seen); err != nil {
		t.Fatalf("MarkSeen unknown: %v", err)
	}

	got, _ := s.Profiles(ctx)
	if got[0].LastSeen == nil || !got[0].LastSeen.Equal(seen) {
		t.Errorf("expected LastSeen %v, got %v", seen, got[0].LastSeen)
	}
	// Re-upserting without LastSeen keeps the recorded value.
	_ = s.UpsertProfile(ctx, types.VisitorProfile{ID: "v-1", Name: "Rahul Sharma"})
	got, _ = s.Profiles(ctx)
	if got[0].LastSeen == nil {
		t.Error("expected LastSeen to survive upsert")
	}
}
