// Package camera abstracts the media device the scanner captures from:
// a Device opens a Stream, a Stream carries Tracks and yields Frames.
package camera

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrCameraAccess = errors.New("camera access failed")
	ErrNoFrame      = errors.New("no frame available yet")
	ErrTrackEnded   = errors.New("stream has ended")
)

// Reasons reported by CameraAccessError.
const (
	ReasonNoDevice         = "no_device"
	ReasonPermissionDenied = "permission_denied"
)

// CameraAccessError reports that a device could not be acquired.
type CameraAccessError struct {
	Reason string
	Err    error
}

func (e *CameraAccessError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("camera access: %s", e.Reason)
	}
	return fmt.Sprintf("camera access: %s: %v", e.Reason, e.Err)
}

func (e *CameraAccessError) Unwrap() error { return e.Err }

func (e *CameraAccessError) Is(target error) bool { return target == ErrCameraAccess }

// Constraints are preferences. A device that cannot honour them falls back
// to its defaults instead of failing.
type Constraints struct {
	FacingMode string // "user" or "environment"
	Width      int
	Height     int
}

// DefaultConstraints prefer the front-facing camera at 1280x720.
func DefaultConstraints() Constraints {
	return Constraints{FacingMode: "user", Width: 1280, Height: 720}
}

// Frame is one encoded still (JPEG or PNG) from a stream.
type Frame struct {
	Data       []byte
	CapturedAt time.Time
}

type Device interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

type Stream interface {
	Tracks() []Track
	// Snapshot returns the most recent frame.
	Snapshot(ctx context.Context) (Frame, error)
}

type Track interface {
	ID() string
	Kind() string
	Stop()
	Live() bool
}

// StopAll stops every track of s. It is safe to call on a nil stream and
// more than once.
func StopAll(s Stream) {
	if s == nil {
		return
	}
	for _, t := range s.Tracks() {
		t.Stop()
	}
}

// NoDevice is used when the camera lives in the browser: the server has
// nothing to open.
type NoDevice struct{}

func (NoDevice) Open(context.Context, Constraints) (Stream, error) {
	return nil, &CameraAccessError{Reason: ReasonNoDevice, Err: errors.New("no server-side camera configured")}
}
