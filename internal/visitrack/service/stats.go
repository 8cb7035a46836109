package service

import (
	"time"

	"github.com/BrandonDHaskell/visitrack/internal/visitrack/types"
)

type HourlyPoint struct {
	Time     string `json:"time"`
	Visitors int    `json:"visitors"`
}

type CategoryPoint struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// DashboardStats summarises the log for the dashboard. Counts are live;
// dwell time and the chart series are illustrative.
type DashboardStats struct {
	TotalEntries   int             `json:"totalEntries"`
	Recognized     int             `json:"recognized"`
	Unknown        int             `json:"unknown"`
	SecurityAlerts int             `json:"securityAlerts"`
	AvgDwellTime   string          `json:"avgDwellTime"`
	LastEntryAt    *time.Time      `json:"lastEntryAt,omitempty"`
	Hourly         []HourlyPoint   `json:"hourly"`
	Categories     []CategoryPoint `json:"categories"`
}

func sampleHourly() []HourlyPoint {
	return []HourlyPoint{
		{"08:00", 12}, {"09:00", 45}, {"10:00", 67},
		{"11:00", 58}, {"12:00", 89}, {"13:00", 40},
		{"14:00", 55}, {"15:00", 62}, {"16:00", 35},
	}
}

func sampleCategories() []CategoryPoint {
	return []CategoryPoint{
		{"Students", 450},
		{"Faculty", 120},
		{"Staff", 80},
		{"Visitors", 150},
	}
}

// ComputeStats expects entries newest first, as the log store returns them.
func ComputeStats(entries []types.LogEntry) DashboardStats {
	st := DashboardStats{
		TotalEntries: len(entries),
		AvgDwellTime: "42m",
		Hourly:       sampleHourly(),
		Categories:   sampleCategories(),
	}
	for _, e := range entries {
		if e.IsUnknown() {
			st.Unknown++
		} else {
			st.Recognized++
		}
		if e.EntryType == types.Denied {
			st.SecurityAlerts++
		}
	}
	if len(entries) > 0 {
		t := entries[0].Timestamp
		st.LastEntryAt = &t
	}
	return st
}
