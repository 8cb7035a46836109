package camera

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const megabyte = 1024 * 1024

// FFmpegDevice captures from a local camera by running ffmpeg and reading
// MJPEG frames from its stdout.
type FFmpegDevice struct {
	Binary       string // default "ffmpeg"
	Format       string // input format, e.g. "v4l2" or "avfoundation"
	Input        string // e.g. "/dev/video0" or "0"
	StartTimeout time.Duration
	Logger       *log.Logger
}

func (d *FFmpegDevice) binary() string {
	if d.Binary == "" {
		return "ffmpeg"
	}
	return d.Binary
}

func (d *FFmpegDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	bin, err := exec.LookPath(d.binary())
	if err != nil {
		return nil, &CameraAccessError{Reason: ReasonNoDevice, Err: err}
	}

	s, err := d.start(ctx, bin, c, true)
	if err == nil {
		return s, nil
	}
	var cae *CameraAccessError
	if c.Width > 0 && c.Height > 0 && errors.As(err, &cae) && cae.Reason == ReasonNoDevice && ctx.Err() == nil {
		// The size is only a preference; retry with the device default.
		if d.Logger != nil {
			d.Logger.Printf("camera: %dx%d rejected, retrying with device default: %v", c.Width, c.Height, err)
		}
		fallback, err := d.start(ctx, bin, c, false)
		if err != nil {
			return nil, err
		}
		return fallback, nil
	}
	return nil, err
}

func (d *FFmpegDevice) args(c Constraints, withSize bool) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if d.Format != "" {
		args = append(args, "-f", d.Format)
	}
	if withSize && c.Width > 0 && c.Height > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", c.Width, c.Height))
	}
	input := d.Input
	if input == "" {
		input = "/dev/video0"
	}
	return append(args, "-i", input, "-f", "image2pipe", "-vcodec", "mjpeg", "-")
}

func (d *FFmpegDevice) start(ctx context.Context, bin string, c Constraints, withSize bool) (*ffmpegStream, error) {
	cmd := exec.Command(bin, d.args(c, withSize)...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, &CameraAccessError{Reason: ReasonNoDevice, Err: err}
	}

	s := &ffmpegStream{
		cmd:   cmd,
		first: make(chan struct{}),
		done:  make(chan struct{}),
	}
	s.track = &ffmpegTrack{id: uuid.NewString(), stream: s}
	go s.read(out)

	timeout := d.StartTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.first:
		return s, nil
	case <-s.done:
		return nil, classify(stderr.String(), s.waitErr)
	case <-timer.C:
		s.track.Stop()
		return nil, &CameraAccessError{Reason: ReasonNoDevice, Err: errors.New("timed out waiting for first frame")}
	case <-ctx.Done():
		s.track.Stop()
		return nil, ctx.Err()
	}
}

// classify maps ffmpeg's stderr to a CameraAccessError reason.
func classify(stderr string, err error) error {
	msg := strings.TrimSpace(stderr)
	if msg == "" && err != nil {
		msg = err.Error()
	}
	if msg == "" {
		msg = "ffmpeg exited before producing a frame"
	}
	reason := ReasonNoDevice
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission denied") || strings.Contains(lower, "not authorized") {
		reason = ReasonPermissionDenied
	}
	return &CameraAccessError{Reason: reason, Err: errors.New(msg)}
}

type ffmpegStream struct {
	cmd   *exec.Cmd
	track *ffmpegTrack

	mu     sync.RWMutex
	latest Frame

	first     chan struct{}
	firstOnce sync.Once
	done      chan struct{}
	waitErr   error
}

func (s *ffmpegStream) read(out io.Reader) {
	defer close(s.done)

	scanner := bufio.NewScanner(out)
	scanner.Buffer(make([]byte, megabyte), 32*megabyte)
	scanner.Split(SplitJPEG)

	for scanner.Scan() {
		b := scanner.Bytes()
		frame := Frame{Data: make([]byte, len(b)), CapturedAt: time.Now().UTC()}
		copy(frame.Data, b)

		s.mu.Lock()
		s.latest = frame
		s.mu.Unlock()

		s.firstOnce.Do(func() { close(s.first) })
	}
	s.waitErr = s.cmd.Wait()
}

func (s *ffmpegStream) Tracks() []Track { return []Track{s.track} }

func (s *ffmpegStream) Snapshot(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if !s.track.Live() {
		return Frame{}, ErrTrackEnded
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.latest.Data) == 0 {
		return Frame{}, ErrNoFrame
	}
	return s.latest, nil
}

type ffmpegTrack struct {
	id      string
	stream  *ffmpegStream
	stopped sync.Once
	mu      sync.Mutex
	ended   bool
}

func (t *ffmpegTrack) ID() string   { return t.id }
func (t *ffmpegTrack) Kind() string { return "video" }

// Stop kills ffmpeg and waits for the reader to drain.
func (t *ffmpegTrack) Stop() {
	t.stopped.Do(func() {
		t.mu.Lock()
		t.ended = true
		t.mu.Unlock()
		if p := t.stream.cmd.Process; p != nil {
			_ = p.Kill()
		}
		<-t.stream.done
	})
}

func (t *ffmpegTrack) Live() bool {
	t.mu.Lock()
	ended := t.ended
	t.mu.Unlock()
	if ended {
		return false
	}
	select {
	case <-t.stream.done:
		return false
	default:
		return true
	}
}
