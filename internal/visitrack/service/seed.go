package service

import (
	"context"
	"fmt"
	"time"

	"github.com/BrandonDHaskell/visitrack/internal/visitrack/store"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/types"
)

// DemoProfiles is the registered roster used in demo mode.
func DemoProfiles() []types.VisitorProfile {
	return []types.VisitorProfile{
		{ID: "v-001", Name: "Rahul Sharma", Role: "Student", Department: "Computer Science", PhotoURL: "https://picsum.photos/seed/v-001/200"},
		{ID: "v-002", Name: "Priya Patel", Role: "Faculty", Department: "Electrical Engineering", PhotoURL: "https://picsum.photos/seed/v-002/200"},
		{ID: "v-003", Name: "Amit Singh", Role: "Staff", Department: "Administration", PhotoURL: "https://picsum.photos/seed/v-003/200"},
		{ID: "v-004", Name: "Sneha Gupta", Role: "Student", Department: "Mechanical Engineering", PhotoURL: "https://picsum.photos/seed/v-004/200"},
		{ID: "v-005", Name: "Vikram Malhotra", Role: "Visitor", Department: "", PhotoURL: "https://picsum.photos/seed/v-005/200"},
	}
}

// DemoEntries returns the illustrative log, oldest first, relative to now.
func DemoEntries(now time.Time) []types.LogEntry {
	return []types.LogEntry{
		{
			ID: "4", VisitorID: "v-004", Name: "Sneha Gupta",
			Timestamp: now.Add(-300 * time.Minute), Confidence: 0.98, EntryType: types.CheckIn,
			ImageURL:   "https://picsum.photos/203",
			Attributes: &types.Attributes{AgeRange: "20-22", Gender: "Female", Emotion: "Neutral", Glasses: false},
		},
		{
			ID: "3", VisitorID: "v-003", Name: "Amit Singh",
			Timestamp: now.Add(-240 * time.Minute), Confidence: 0.92, EntryType: types.CheckIn,
			ImageURL:   "https://picsum.photos/202",
			Attributes: &types.Attributes{AgeRange: "40-45", Gender: "Male", Emotion: "Happy", Glasses: true},
		},
		{
			ID: "2", Name: types.UnknownVisitor,
			Timestamp: now.Add(-120 * time.Minute), Confidence: 0.45, EntryType: types.Denied,
			ImageURL:   "https://picsum.photos/201",
			Attributes: &types.Attributes{AgeRange: "30-35", Gender: "Female", Emotion: "Surprised", Glasses: true},
		},
		{
			ID: "1", VisitorID: "v-001", Name: "Rahul Sharma",
			Timestamp: now.Add(-30 * time.Minute), Confidence: 0.96, EntryType: types.CheckIn,
			ImageURL:   "https://picsum.photos/200",
			Attributes: &types.Attributes{AgeRange: "22-25", Gender: "Male", Emotion: "Neutral", Glasses: false},
		},
	}
}

// SeedDemo fills the roster and log with demo data.
func SeedDemo(ctx context.Context, logs store.LogStore, profiles store.ProfileStore, now time.Time) error {
	for _, p := range DemoProfiles() {
		if err := profiles.UpsertProfile(ctx, p); err != nil {
			return fmt.Errorf("seed profile %s: %w", p.ID, err)
		}
	}
	for _, e := range DemoEntries(now) {
		if err := logs.Append(ctx, e); err != nil {
			return fmt.Errorf("seed entry %s: %w", e.ID, err)
		}
	}
	return nil
}
