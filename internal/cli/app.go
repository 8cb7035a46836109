package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/BrandonDHaskell/visitrack/internal/config"
	"github.com/BrandonDHaskell/visitrack/internal/db"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/camera"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/hub"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/inference"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/service"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/store"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/store/memory"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/store/sqlite"
)

// app is the process root: it owns the stores and every service built on
// them, and releases them in reverse order on close.
type app struct {
	cfg    config.Config
	logger *log.Logger

	hub      *hub.Hub
	logs     store.LogStore
	profiles store.ProfileStore
	presence store.PresenceStore

	analyzer inference.Analyzer
	pipeline *service.Pipeline
	session  *service.Session

	closers []func()
}

func newApp(ctx context.Context, cfg config.Config, logger *log.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, hub: hub.New(logger)}
	a.closers = append(a.closers, a.hub.Close)

	if err := a.openStores(ctx); err != nil {
		a.close()
		return nil, err
	}
	a.presence = memory.NewPresenceStore()

	if cfg.SeedDemo {
		if err := service.SeedDemo(ctx, a.logs, a.profiles, time.Now().UTC()); err != nil {
			a.close()
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
		logger.Printf("seeded demo roster and log")
	}

	analyzer, err := inference.NewAnalyzer(ctx, inference.GeminiConfig{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.GeminiModel,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("inference client: %w", err)
	}
	a.analyzer = analyzer
	if !inference.Available(analyzer) {
		logger.Printf("no inference API key configured; scans will fail")
	}

	a.pipeline = service.NewPipeline(service.PipelineDeps{
		Analyzer: analyzer,
		Matcher:  service.NewRandomMatcher(a.profiles, cfg.KnownRatio),
		Logs:     a.logs,
		Profiles: a.profiles,
		Hub:      a.hub,
		Logger:   logger,
		Timeout:  cfg.InferenceTimeout,
	})
	a.session = service.NewSession(service.SessionDeps{
		Device:      newDevice(cfg.Camera, logger),
		Constraints: constraintsFor(cfg.Camera),
		Pipeline:    a.pipeline,
		Hub:         a.hub,
		Logger:      logger,
	})
	a.closers = append(a.closers, a.session.Close)

	return a, nil
}

func (a *app) openStores(ctx context.Context) error {
	switch a.cfg.Store {
	case "sqlite":
		conn, err := db.Open(ctx, db.Config{Name: "visitrack"})
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		writer := db.NewWorker(conn)
		a.closers = append(a.closers, func() { _ = conn.Close() }, writer.Close)
		a.logs = sqlite.NewLogStore(conn, writer)
		a.profiles = sqlite.NewProfileStore(conn, writer)
	default:
		a.logs = memory.NewLogStore()
		a.profiles = memory.NewProfileStore(nil)
	}
	a.logger.Printf("log store: %s", a.cfg.Store)
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func newDevice(cc config.CameraConfig, logger *log.Logger) camera.Device {
	switch cc.Device {
	case "ffmpeg":
		return &camera.FFmpegDevice{Format: cc.Format, Input: cc.Input, Logger: logger}
	case "snapshot":
		return &camera.SnapshotDevice{Dir: cc.SnapshotDir, Pattern: cc.SnapshotPattern, Logger: logger}
	}
	return camera.NoDevice{}
}

func constraintsFor(cc config.CameraConfig) camera.Constraints {
	c := camera.DefaultConstraints()
	if cc.FacingMode != "" {
		c.FacingMode = cc.FacingMode
	}
	if cc.Width > 0 && cc.Height > 0 {
		c.Width, c.Height = cc.Width, cc.Height
	}
	return c
}
