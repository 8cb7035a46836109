package types

import (
	"errors"
	"strings"
	"time"
)

// UnknownVisitor is the name recorded when no identity could be asserted.
const UnknownVisitor = "Unknown Visitor"

type EntryType string

const (
	CheckIn  EntryType = "Check-In"
	CheckOut EntryType = "Check-Out"
	Denied   EntryType = "Denied"
)

var ErrInvalidEntryType = errors.New("entry type must be one of All, Check-In, Check-Out, Denied")

func (t EntryType) Valid() bool {
	switch t {
	case CheckIn, CheckOut, Denied:
		return true
	}
	return false
}

type Attributes struct {
	AgeRange string `json:"ageRange"`
	Gender   string `json:"gender"`
	Emotion  string `json:"emotion"`
	Glasses  bool   `json:"glasses"`
}

// LogEntry is one visitor-recognition attempt. Entries are never mutated
// after creation.
type LogEntry struct {
	ID         string      `json:"id"`
	VisitorID  string      `json:"visitorId,omitempty"` // roster id when recognized
	Name       string      `json:"name"`
	Timestamp  time.Time   `json:"timestamp"`
	Confidence float64     `json:"confidence"`
	EntryType  EntryType   `json:"entryType"`
	ImageURL   string      `json:"imageUrl"`
	Attributes *Attributes `json:"attributes,omitempty"`
}

func (e LogEntry) IsUnknown() bool {
	return e.Name == UnknownVisitor
}

// ShortID is the tail of the id shown on result cards.
func (e LogEntry) ShortID() string {
	if len(e.ID) <= 8 {
		return e.ID
	}
	return e.ID[len(e.ID)-8:]
}

// LogFilter selects entries for the log table. An empty EntryType means "All".
type LogFilter struct {
	Search    string
	EntryType EntryType
}

// ParseEntryFilter maps the log table's filter value to an EntryType.
// "All" and "" both mean unfiltered.
func ParseEntryFilter(s string) (EntryType, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return "", nil
	}
	for _, t := range []EntryType{CheckIn, CheckOut, Denied} {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", ErrInvalidEntryType
}

// Matches reports whether e passes the filter: case-insensitive substring
// match on name, exact match on entry type unless unfiltered.
func (f LogFilter) Matches(e LogEntry) bool {
	if f.EntryType != "" && e.EntryType != f.EntryType {
		return false
	}
	if f.Search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Name), strings.ToLower(f.Search))
}
