package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/visitrack/internal/grpcapi"
	"github.com/BrandonDHaskell/visitrack/internal/httpapi"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/inference"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/service"
	"github.com/BrandonDHaskell/visitrack/internal/webui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard, HTTP API and gRPC health server",
	Long: `Run the VisiTrack dashboard.

Examples:
  visitrack serve
  visitrack serve --http-addr :8081 --store sqlite
  VISITRACK_CAMERA_DEVICE=ffmpeg visitrack serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveBinds = map[string]string{
	"http_addr":     "http-addr",
	"grpc_addr":     "grpc-addr",
	"store":         "store",
	"seed_demo":     "seed",
	"camera.device": "camera",
}

func init() {
	f := serveCmd.Flags()
	f.String("http-addr", ":8080", "HTTP listen address")
	f.String("grpc-addr", ":9090", `gRPC health listen address ("" disables)`)
	f.String("store", "memory", "log store backend: memory, sqlite")
	f.Bool("seed", false, "pre-fill the log and roster with demo data")
	f.String("camera", "none", "server camera: none, ffmpeg, snapshot")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd, serveBinds)
	if err != nil {
		return err
	}
	logger := log.New(os.Stdout, "visitrack ", log.LstdFlags|log.LUTC)

	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := context.WithCancel(cmd.Context())
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	inferenceOK := inference.Available(a.analyzer)

	ui, err := webui.New(webui.Dependencies{
		Logger:             logger,
		Logs:               a.logs,
		Profiles:           a.profiles,
		Hub:                a.hub,
		InferenceAvailable: inferenceOK,
	})
	if err != nil {
		return err
	}

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:             logger,
		Addr:               cfg.HTTPAddr,
		Logs:               a.logs,
		Profiles:           a.profiles,
		Pipeline:           a.pipeline,
		Session:            a.session,
		Presence:           service.NewPresenceService(a.presence),
		InferenceAvailable: inferenceOK,
		UI:                 ui,
	})

	reaper := service.NewScannerReaper(a.presence, a.session, service.ReaperConfig{
		TTL:      cfg.ScannerViewTTL,
		Interval: cfg.ReaperInterval,
	}, logger)
	reaper.Start(ctx)
	defer reaper.Stop()

	go func() {
		logger.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	var health *grpcapi.Server
	if cfg.GRPCAddr != "" {
		health = grpcapi.NewServer(grpcapi.Dependencies{
			Logger:             logger,
			Addr:               cfg.GRPCAddr,
			InferenceAvailable: inferenceOK,
		})
		go func() {
			if err := health.Start(); err != nil {
				logger.Printf("grpc server error: %v", err)
				stop()
			}
		}()
	}

	<-ctx.Done()
	logger.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if health != nil {
		health.Shutdown(shutdownCtx)
	}
	_ = srv.Shutdown(shutdownCtx)
	return nil
}
