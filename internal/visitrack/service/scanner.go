package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/BrandonDHaskell/visitrack/internal/visitrack/camera"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/hub"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/types"
)

var (
	ErrStreamInactive = errors.New("no active camera stream")
	ErrScanInProgress = errors.New("a scan is already in progress")
)

// Messages shown to the operator.
const (
	MsgCameraAccess = "Unable to access camera. Please check permissions."
	MsgProcessing   = "Failed to process image. Please try again."
)

type State string

const (
	StateIdle         State = "idle"
	StateStreamActive State = "stream_active"
	StateScanning     State = "scanning"
	StateResultReady  State = "result_ready"
	StateError        State = "error"
)

// Outcome is the analysis state of the current scan. It is one of
// AnalysisPending, AnalysisSucceeded or AnalysisFailed.
type Outcome interface {
	outcome()
}

type AnalysisPending struct {
	StartedAt time.Time
}

type AnalysisSucceeded struct {
	Entry types.LogEntry
}

type AnalysisFailed struct {
	Err     error
	Message string
}

func (AnalysisPending) outcome()   {}
func (AnalysisSucceeded) outcome() {}
func (AnalysisFailed) outcome()    {}

// SessionSnapshot is a point-in-time copy of the scanner state.
type SessionSnapshot struct {
	State     State
	Streaming bool
	Outcome   Outcome // nil when there is no current scan
	Message   string  // operator-facing error, if any
	OpenedAt  time.Time
}

type SessionDeps struct {
	Device      camera.Device
	Constraints camera.Constraints
	Pipeline    *Pipeline
	Hub         *hub.Hub // optional
	Logger      *log.Logger
}

// Session is the scanner view's state machine. It owns the camera stream
// while the view is open.
type Session struct {
	device      camera.Device
	constraints camera.Constraints
	pipeline    *Pipeline
	hub         *hub.Hub
	logger      *log.Logger

	mu       sync.Mutex
	state    State
	stream   camera.Stream
	openedAt time.Time
	outcome  Outcome
	message  string
	gen      uint64 // bumped by Open and Close; stale async results are dropped

	// inFlight spans a pipeline run even after Close or Open moved gen on,
	// so at most one analysis runs per session.
	inFlight bool
}

func NewSession(d SessionDeps) *Session {
	return &Session{
		device:      d.Device,
		constraints: d.Constraints,
		pipeline:    d.Pipeline,
		hub:         d.Hub,
		logger:      d.Logger,
		state:       StateIdle,
	}
}

// Open acquires the camera. It is a no-op when a live stream is attached.
// On failure the session is in StateError without a stream; calling Open
// again retries.
func (s *Session) Open(ctx context.Context) (SessionSnapshot, error) {
	s.mu.Lock()
	if s.liveLocked() {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, nil
	}
	s.dropStreamLocked()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	stream, err := s.device.Open(ctx, s.constraints)

	s.mu.Lock()
	if gen != s.gen {
		// Closed or reopened while we were acquiring.
		s.mu.Unlock()
		if err == nil {
			camera.StopAll(stream)
		}
		return s.Snapshot(), ErrStreamInactive
	}
	if err != nil {
		s.state = StateError
		s.outcome = nil
		s.message = MsgCameraAccess
		if !errors.Is(err, camera.ErrCameraAccess) {
			s.message = err.Error()
		}
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.logf("scanner: camera open failed: %v", err)
		s.publish(snap.State)
		return snap, err
	}
	s.stream = stream
	s.openedAt = time.Now().UTC()
	s.state = StateStreamActive
	s.outcome = nil
	s.message = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logf("scanner: stream opened")
	s.publish(snap.State)
	return snap, nil
}

// Capture grabs the current frame and runs it through the pipeline.
// Without a live stream it returns ErrStreamInactive and changes nothing;
// a frame that cannot be encoded is likewise a no-op.
func (s *Session) Capture(ctx context.Context) (types.LogEntry, error) {
	s.mu.Lock()
	if !s.liveLocked() {
		s.mu.Unlock()
		return types.LogEntry{}, ErrStreamInactive
	}
	if s.state == StateScanning || s.inFlight {
		s.mu.Unlock()
		return types.LogEntry{}, ErrScanInProgress
	}

	frame, err := s.stream.Snapshot(ctx)
	if err != nil {
		s.mu.Unlock()
		return types.LogEntry{}, &EncodingError{Err: err}
	}
	enc, err := EncodeFrame(frame.Data)
	if err != nil {
		s.mu.Unlock()
		return types.LogEntry{}, err
	}

	s.state = StateScanning
	s.outcome = AnalysisPending{StartedAt: time.Now().UTC()}
	s.message = ""
	s.inFlight = true
	gen := s.gen
	s.mu.Unlock()
	s.publish(StateScanning)

	entry, runErr := s.pipeline.Run(ctx, enc)

	s.mu.Lock()
	s.inFlight = false
	if gen != s.gen {
		// The view went away mid-scan; the entry is logged but not shown.
		s.mu.Unlock()
		return entry, runErr
	}
	if runErr != nil {
		s.state = StateError
		s.outcome = AnalysisFailed{Err: runErr, Message: MsgProcessing}
		s.message = MsgProcessing
	} else {
		s.state = StateResultReady
		s.outcome = AnalysisSucceeded{Entry: entry}
	}
	state := s.state
	s.mu.Unlock()

	if runErr != nil {
		s.logf("scanner: capture failed: %v", runErr)
	}
	s.publish(state)
	return entry, runErr
}

// Reset clears the current result and returns to the live preview.
func (s *Session) Reset() (SessionSnapshot, error) {
	s.mu.Lock()
	if s.state == StateScanning {
		s.mu.Unlock()
		return s.Snapshot(), ErrScanInProgress
	}
	s.outcome = nil
	s.message = ""
	if s.liveLocked() {
		s.state = StateStreamActive
	} else {
		s.dropStreamLocked()
		s.state = StateIdle
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap.State)
	return snap, nil
}

// Close stops every track of the stream and returns to StateIdle. It is
// safe to call at any time and more than once.
func (s *Session) Close() {
	s.mu.Lock()
	hadStream := s.stream != nil
	s.gen++
	s.dropStreamLocked()
	s.state = StateIdle
	s.outcome = nil
	s.message = ""
	s.mu.Unlock()

	if hadStream {
		s.logf("scanner: stream closed")
	}
	s.publish(StateIdle)
}

// CloseIfOpenedBefore closes the session when it holds a stream opened
// before cutoff, and reports whether it did.
func (s *Session) CloseIfOpenedBefore(cutoff time.Time) bool {
	s.mu.Lock()
	stale := s.stream != nil && s.openedAt.Before(cutoff)
	s.mu.Unlock()
	if stale {
		s.Close()
	}
	return stale
}

func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Preview returns the stream's latest frame.
func (s *Session) Preview(ctx context.Context) (camera.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.liveLocked() {
		return camera.Frame{}, ErrStreamInactive
	}
	return s.stream.Snapshot(ctx)
}

func (s *Session) liveLocked() bool {
	if s.stream == nil {
		return false
	}
	for _, t := range s.stream.Tracks() {
		if t.Live() {
			return true
		}
	}
	return false
}

func (s *Session) dropStreamLocked() {
	camera.StopAll(s.stream)
	s.stream = nil
	s.openedAt = time.Time{}
}

func (s *Session) snapshotLocked() SessionSnapshot {
	return SessionSnapshot{
		State:     s.state,
		Streaming: s.liveLocked(),
		Outcome:   s.outcome,
		Message:   s.message,
		OpenedAt:  s.openedAt,
	}
}

func (s *Session) publish(st State) {
	if s.hub != nil {
		s.hub.Publish(hub.Event{Type: hub.EventScanner, State: string(st)})
	}
}

func (s *Session) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
