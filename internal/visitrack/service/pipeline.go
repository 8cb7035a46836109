package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/visitrack/internal/visitrack/camera"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/hub"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/inference"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/store"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/types"
)

type PipelineDeps struct {
	Analyzer inference.Analyzer
	Matcher  Matcher
	Logs     store.LogStore
	Profiles store.ProfileStore
	Hub      *hub.Hub // optional
	Logger   *log.Logger

	// Timeout bounds one inference call. Callers cannot cancel a call in
	// flight; only this timeout ends it early.
	Timeout time.Duration
}

// Pipeline turns a captured image into a logged visitor entry.
type Pipeline struct {
	analyzer inference.Analyzer
	matcher  Matcher
	logs     store.LogStore
	profiles store.ProfileStore
	hub      *hub.Hub
	logger   *log.Logger
	timeout  time.Duration

	now   func() time.Time
	newID func() (uuid.UUID, error)
}

func NewPipeline(d PipelineDeps) *Pipeline {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Pipeline{
		analyzer: d.Analyzer,
		matcher:  d.Matcher,
		logs:     d.Logs,
		profiles: d.Profiles,
		hub:      d.Hub,
		logger:   d.Logger,
		timeout:  timeout,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewV7,
	}
}

// Process runs a camera frame through the pipeline.
func (p *Pipeline) Process(ctx context.Context, f camera.Frame) (types.LogEntry, error) {
	enc, err := EncodeFrame(f.Data)
	if err != nil {
		return types.LogEntry{}, err
	}
	return p.Run(ctx, enc)
}

// ProcessImage runs an image captured elsewhere, such as in a browser,
// through the pipeline. img may be JPEG or PNG.
func (p *Pipeline) ProcessImage(ctx context.Context, img []byte) (types.LogEntry, error) {
	enc, err := EncodeFrame(img)
	if err != nil {
		return types.LogEntry{}, err
	}
	return p.Run(ctx, enc)
}

// Run analyses an encoded frame, assigns an identity, appends the entry
// and announces it. Nothing is appended when any step fails.
func (p *Pipeline) Run(ctx context.Context, enc Encoded) (types.LogEntry, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	analysis, err := p.analyzer.Analyze(ctx, enc.JPEG)
	if err != nil {
		return types.LogEntry{}, err
	}

	attrs := types.Attributes{
		AgeRange: analysis.AgeRange,
		Gender:   analysis.Gender,
		Emotion:  analysis.Emotion,
		Glasses:  analysis.WearingGlasses,
	}

	who, err := p.matcher.Match(ctx, enc.JPEG, attrs)
	if err != nil {
		return types.LogEntry{}, fmt.Errorf("match: %w", err)
	}
	if !who.Known {
		who = unknownIdentity()
	}

	id, err := p.newID()
	if err != nil {
		return types.LogEntry{}, fmt.Errorf("entry id: %w", err)
	}

	entryType := types.Denied
	if who.Known {
		entryType = types.CheckIn
	}

	entry := types.LogEntry{
		ID:         id.String(),
		VisitorID:  who.ProfileID,
		Name:       who.Name,
		Timestamp:  p.now(),
		Confidence: analysis.Confidence,
		EntryType:  entryType,
		ImageURL:   enc.DataURI,
		Attributes: &attrs,
	}

	if err := p.logs.Append(ctx, entry); err != nil {
		return types.LogEntry{}, fmt.Errorf("append entry: %w", err)
	}

	if who.ProfileID != "" && p.profiles != nil {
		if err := p.profiles.MarkSeen(ctx, who.ProfileID, entry.Timestamp); err != nil && p.logger != nil {
			p.logger.Printf("pipeline: mark %s seen: %v", who.ProfileID, err)
		}
	}
	if p.hub != nil {
		p.hub.PublishEntry(entry)
	}
	if p.logger != nil {
		p.logger.Printf("pipeline: entry=%s name=%q type=%s confidence=%.2f",
			entry.ShortID(), entry.Name, entry.EntryType, entry.Confidence)
	}
	return entry, nil
}
