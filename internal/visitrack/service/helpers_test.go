package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/BrandonDHaskell/visitrack/internal/visitrack/camera"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/hub"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/inference"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/store/memory"
)

func silentLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// ── Analyzer ────────────────────────────────────────────────────────

type stubAnalyzer struct {
	analysis inference.Analysis
	err      error
	calls    atomic.Int32
	ctxErr   error

	// block, when set, holds Analyze until closed.
	block chan struct{}
}

func (a *stubAnalyzer) Analyze(ctx context.Context, _ []byte) (inference.Analysis, error) {
	a.calls.Add(1)
	if a.block != nil {
		<-a.block
	}
	a.ctxErr = ctx.Err()
	return a.analysis, a.err
}

func goodAnalysis() inference.Analysis {
	return inference.Analysis{
		AgeRange:       "22-25",
		Gender:         "Male",
		Emotion:        "Neutral",
		WearingGlasses: false,
		Confidence:     0.96,
	}
}

// ── Randomness ──────────────────────────────────────────────────────

type fixedRand struct {
	draw float64
	pick int
}

func (r fixedRand) Float64() float64 { return r.draw }
func (r fixedRand) IntN(n int) int   { return r.pick % n }

// ── Camera ──────────────────────────────────────────────────────────

type stubTrack struct {
	mu      sync.Mutex
	stopped bool
}

func (t *stubTrack) ID() string   { return "track-1" }
func (t *stubTrack) Kind() string { return "video" }
func (t *stubTrack) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}
func (t *stubTrack) Live() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.stopped
}

type stubStream struct {
	track *stubTrack
	frame camera.Frame
	err   error
}

func (s *stubStream) Tracks() []camera.Track { return []camera.Track{s.track} }
func (s *stubStream) Snapshot(context.Context) (camera.Frame, error) {
	return s.frame, s.err
}

type stubDevice struct {
	stream *stubStream
	err    error
	opens  int
}

func (d *stubDevice) Open(context.Context, camera.Constraints) (camera.Stream, error) {
	d.opens++
	if d.err != nil {
		return nil, d.err
	}
	return d.stream, nil
}

func newStubDevice(t *testing.T) *stubDevice {
	return &stubDevice{stream: &stubStream{
		track: &stubTrack{},
		frame: camera.Frame{Data: testJPEG(t, 64, 48)},
	}}
}

// ── Fixture ─────────────────────────────────────────────────────────

type fixture struct {
	logs     *memory.LogStore
	profiles *memory.ProfileStore
	hub      *hub.Hub
	analyzer *stubAnalyzer
	pipeline *Pipeline
}

func newFixture(draw float64) *fixture {
	f := &fixture{
		logs:     memory.NewLogStore(),
		profiles: memory.NewProfileStore(DemoProfiles()),
		hub:      hub.New(nil),
		analyzer: &stubAnalyzer{analysis: goodAnalysis()},
	}
	f.pipeline = NewPipeline(PipelineDeps{
		Analyzer: f.analyzer,
		Matcher:  newRandomMatcher(f.profiles, DefaultKnownRatio, fixedRand{draw: draw, pick: 1}),
		Logs:     f.logs,
		Profiles: f.profiles,
		Hub:      f.hub,
		Logger:   silentLogger(),
	})
	return f
}
