package httpapi

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/visitrack/internal/visitrack/service"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/types"
)

// ── Protobuf ─────────────────────────────────────────────────────────────────

func entryToMap(e types.LogEntry) map[string]any {
	m := map[string]any{
		"id":         e.ID,
		"name":       e.Name,
		"timestamp":  e.Timestamp.UTC().Format(time.RFC3339Nano),
		"confidence": e.Confidence,
		"entryType":  string(e.EntryType),
		"imageUrl":   e.ImageURL,
	}
	if e.VisitorID != "" {
		m["visitorId"] = e.VisitorID
	}
	if a := e.Attributes; a != nil {
		m["attributes"] = map[string]any{
			"ageRange": a.AgeRange,
			"gender":   a.Gender,
			"emotion":  a.Emotion,
			"glasses":  a.Glasses,
		}
	}
	return m
}

func entryToProto(e types.LogEntry) (*structpb.Struct, error) {
	return structpb.NewStruct(entryToMap(e))
}

func entriesToProto(entries []types.LogEntry) (*structpb.ListValue, error) {
	items := make([]any, 0, len(entries))
	for _, e := range entries {
		items = append(items, entryToMap(e))
	}
	return structpb.NewList(items)
}

// ── Scanner session ──────────────────────────────────────────────────────────

type outcomeView struct {
	Status    string          `json:"status"` // "pending" | "succeeded" | "failed"
	StartedAt *time.Time      `json:"startedAt,omitempty"`
	Entry     *types.LogEntry `json:"entry,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type sessionView struct {
	State     service.State `json:"state"`
	Streaming bool          `json:"streaming"`
	Outcome   *outcomeView  `json:"outcome,omitempty"`
	Message   string        `json:"message,omitempty"`
}

func outcomeToView(o service.Outcome) *outcomeView {
	switch o := o.(type) {
	case nil:
		return nil
	case service.AnalysisPending:
		t := o.StartedAt
		return &outcomeView{Status: "pending", StartedAt: &t}
	case service.AnalysisSucceeded:
		e := o.Entry
		return &outcomeView{Status: "succeeded", Entry: &e}
	case service.AnalysisFailed:
		return &outcomeView{Status: "failed", Error: o.Message}
	}
	return nil
}

func sessionToView(s service.SessionSnapshot) sessionView {
	return sessionView{
		State:     s.State,
		Streaming: s.Streaming,
		Outcome:   outcomeToView(s.Outcome),
		Message:   s.Message,
	}
}
