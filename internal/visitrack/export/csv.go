// Package export writes visitor logs in download formats.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/BrandonDHaskell/visitrack/internal/visitrack/types"
)

// Location is the fixed entrance label shown for every entry.
const Location = "Main Entrance"

var csvHeader = []string{
	"id", "visitor", "visitor_id", "timestamp", "location", "status",
	"confidence", "age_range", "gender", "emotion", "glasses",
}

// WriteCSV writes entries in the order given, one row per entry.
func WriteCSV(w io.Writer, entries []types.LogEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{
			e.ID,
			e.Name,
			e.VisitorID,
			e.Timestamp.UTC().Format(time.RFC3339),
			Location,
			string(e.EntryType),
			strconv.FormatFloat(e.Confidence, 'f', 2, 64),
			"", "", "", "",
		}
		if a := e.Attributes; a != nil {
			row[7], row[8], row[9] = a.AgeRange, a.Gender, a.Emotion
			row[10] = strconv.FormatBool(a.Glasses)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Filename names an export taken at t.
func Filename(t time.Time) string {
	return "visitor-logs-" + t.UTC().Format("20060102-150405") + ".csv"
}
