package service

import (
	"context"
	"log"
	"time"

	"github.com/BrandonDHaskell/visitrack/internal/visitrack/store"
)

// ScannerReaper drops view heartbeats older than the TTL and closes the
// scanner session once no scanner view is left, so an abandoned view never
// keeps the camera.
//
// A TTL of 0 disables reaping.
type ScannerReaper struct {
	presence store.PresenceStore
	session  *Session
	ttl      time.Duration
	interval time.Duration
	logger   *log.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

type ReaperConfig struct {
	// TTL is how long a view may go without a heartbeat.
	TTL time.Duration

	// Interval is how often the reaper runs. Defaults to TTL/3.
	Interval time.Duration
}

// NewScannerReaper creates a reaper but does not start it.
func NewScannerReaper(ps store.PresenceStore, session *Session, cfg ReaperConfig, logger *log.Logger) *ScannerReaper {
	interval := cfg.Interval
	if interval <= 0 {
		interval = cfg.TTL / 3
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &ScannerReaper{
		presence: ps,
		session:  session,
		ttl:      cfg.TTL,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start runs the reaping loop in the background until ctx is cancelled
// or Stop is called.
func (r *ScannerReaper) Start(ctx context.Context) {
	if r.ttl <= 0 {
		r.logger.Printf("scanner reaper disabled (ttl=0)")
		close(r.done)
		return
	}

	ctx, r.cancel = context.WithCancel(ctx)
	go r.loop(ctx)

	r.logger.Printf("scanner reaper started (ttl=%s, interval=%s)", r.ttl, r.interval)
}

// Stop signals the reaper to exit and waits for it.
func (r *ScannerReaper) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	<-r.done
}

func (r *ScannerReaper) loop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Reap(ctx)
		}
	}
}

// Reap runs one pass. It reports whether the scanner session was closed.
func (r *ScannerReaper) Reap(ctx context.Context) bool {
	cutoff := time.Now().UTC().Add(-r.ttl)

	deleted, err := r.presence.PruneOlderThan(ctx, cutoff)
	if err != nil {
		r.logger.Printf("scanner reaper prune error: %v", err)
		return false
	}
	if deleted > 0 {
		r.logger.Printf("scanner reaper: dropped %d stale views", deleted)
	}

	active, err := r.presence.ActiveViews(ctx, ScannerView)
	if err != nil {
		r.logger.Printf("scanner reaper count error: %v", err)
		return false
	}
	if active > 0 || r.session == nil {
		return false
	}

	// A freshly opened stream gets one TTL to send its first heartbeat.
	if r.session.CloseIfOpenedBefore(cutoff) {
		r.logger.Printf("scanner reaper: no scanner view left, camera released")
		return true
	}
	return false
}
