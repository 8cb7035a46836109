package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/visitrack/internal/output"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/types"
)

var (
	scanImagePath string
	scanVerbose   bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Analyze one visitor and print the log entry",
	Long: `Analyze one visitor image, or one frame from the configured server
camera, and print the resulting log entry.

Examples:
  visitrack scan --image visitor.jpg
  visitrack scan --camera ffmpeg -o json`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&scanImagePath, "image", "i", "", "image file to analyze (default: capture from the camera)")
	scanCmd.Flags().String("camera", "none", "server camera: none, ffmpeg, snapshot")
	scanCmd.Flags().BoolVarP(&scanVerbose, "verbose", "v", false, "log pipeline activity to stderr")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd, map[string]string{"camera.device": "camera"})
	if err != nil {
		return err
	}
	logOut := io.Discard
	if scanVerbose {
		logOut = os.Stderr
	}
	logger := log.New(logOut, "visitrack ", log.LstdFlags|log.LUTC)

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	desc := "Capturing visitor"
	run := func() (types.LogEntry, error) { return captureOnce(cmd.Context(), a) }
	if scanImagePath != "" {
		desc = "Analyzing " + scanImagePath
		run = func() (types.LogEntry, error) { return scanFile(cmd.Context(), a, scanImagePath) }
	}

	entry, err := withSpinner(cmd.ErrOrStderr(), desc, run)
	if err != nil {
		return err
	}
	return output.New(outputFmt, cmd.OutOrStdout()).Render(entry)
}

func scanFile(ctx context.Context, a *app, path string) (types.LogEntry, error) {
	img, err := os.ReadFile(path)
	if err != nil {
		return types.LogEntry{}, fmt.Errorf("read image: %w", err)
	}
	return a.pipeline.ProcessImage(ctx, img)
}

// captureOnce opens the server camera, scans one frame and releases it.
func captureOnce(ctx context.Context, a *app) (types.LogEntry, error) {
	if _, err := a.session.Open(ctx); err != nil {
		return types.LogEntry{}, err
	}
	defer a.session.Close()
	return a.session.Capture(ctx)
}

// withSpinner shows an indeterminate spinner on w while fn runs.
func withSpinner[T any](w io.Writer, desc string, fn func() (T, error)) (T, error) {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		t := time.NewTicker(100 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				_ = bar.Add(1)
			}
		}
	}()

	v, err := fn()
	close(stop)
	<-stopped
	_ = bar.Finish()
	return v, err
}
