package camera

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

// SnapshotDevice treats a directory of stills as a camera: the newest file
// matching Pattern is the current frame. It suits IP cameras and other
// tools that drop snapshots on disk.
type SnapshotDevice struct {
	Dir     string
	Pattern string // doublestar pattern relative to Dir, default "*.{jpg,jpeg,png}"
	Logger  *log.Logger
}

func (d *SnapshotDevice) pattern() string {
	if d.Pattern == "" {
		return "*.{jpg,jpeg,png}"
	}
	return d.Pattern
}

func (d *SnapshotDevice) Open(ctx context.Context, _ Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir, err := filepath.Abs(d.Dir)
	if err != nil {
		return nil, &CameraAccessError{Reason: ReasonNoDevice, Err: err}
	}
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrPermission):
		return nil, &CameraAccessError{Reason: ReasonPermissionDenied, Err: err}
	case err != nil:
		return nil, &CameraAccessError{Reason: ReasonNoDevice, Err: err}
	case !info.IsDir():
		return nil, &CameraAccessError{Reason: ReasonNoDevice, Err: errors.New(dir + " is not a directory")}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &CameraAccessError{Reason: ReasonNoDevice, Err: err}
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		reason := ReasonNoDevice
		if errors.Is(err, os.ErrPermission) {
			reason = ReasonPermissionDenied
		}
		return nil, &CameraAccessError{Reason: reason, Err: err}
	}

	s := &snapshotStream{
		dir:     dir,
		pattern: d.pattern(),
		fsw:     fsw,
		logger:  d.Logger,
		done:    make(chan struct{}),
	}
	s.track = &snapshotTrack{id: uuid.NewString(), stream: s}

	if err := s.scan(); err != nil {
		_ = fsw.Close()
		return nil, &CameraAccessError{Reason: ReasonNoDevice, Err: err}
	}
	go s.watch()
	return s, nil
}

type snapshotStream struct {
	dir     string
	pattern string
	fsw     *fsnotify.Watcher
	logger  *log.Logger
	track   *snapshotTrack
	done    chan struct{}

	mu       sync.RWMutex
	latest   string
	latestAt time.Time
}

// scan picks the newest matching file already in the directory.
func (s *snapshotStream) scan() error {
	matches, err := doublestar.Glob(os.DirFS(s.dir), s.pattern, doublestar.WithFilesOnly())
	if err != nil {
		return err
	}
	for _, m := range matches {
		info, err := os.Stat(filepath.Join(s.dir, m))
		if err != nil {
			continue
		}
		s.consider(filepath.Join(s.dir, m), info.ModTime())
	}
	return nil
}

func (s *snapshotStream) consider(path string, mod time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == "" || !mod.Before(s.latestAt) {
		s.latest = path
		s.latestAt = mod
	}
}

func (s *snapshotStream) matches(path string) bool {
	rel, err := filepath.Rel(s.dir, path)
	if err != nil {
		return false
	}
	ok, err := doublestar.PathMatch(s.pattern, rel)
	return err == nil && ok
}

func (s *snapshotStream) watch() {
	defer close(s.done)
	for {
		select {
		case ev, ok := <-s.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 || !s.matches(ev.Name) {
				continue
			}
			info, err := os.Stat(ev.Name)
			if err != nil || info.IsDir() {
				continue
			}
			s.consider(ev.Name, info.ModTime())
		case err, ok := <-s.fsw.Errors:
			if !ok {
				return
			}
			if s.logger != nil {
				s.logger.Printf("camera: snapshot watcher error: %v", err)
			}
		}
	}
}

func (s *snapshotStream) Tracks() []Track { return []Track{s.track} }

func (s *snapshotStream) Snapshot(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if !s.track.Live() {
		return Frame{}, ErrTrackEnded
	}
	s.mu.RLock()
	path, at := s.latest, s.latestAt
	s.mu.RUnlock()
	if path == "" {
		return Frame{}, ErrNoFrame
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Data: b, CapturedAt: at.UTC()}, nil
}

type snapshotTrack struct {
	id     string
	stream *snapshotStream
	once   sync.Once
	mu     sync.Mutex
	ended  bool
}

func (t *snapshotTrack) ID() string   { return t.id }
func (t *snapshotTrack) Kind() string { return "video" }

func (t *snapshotTrack) Stop() {
	t.once.Do(func() {
		t.mu.Lock()
		t.ended = true
		t.mu.Unlock()
		_ = t.stream.fsw.Close()
		<-t.stream.done
	})
}

func (t *snapshotTrack) Live() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.ended
}
