// Package cli implements the visitrack command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/BrandonDHaskell/visitrack/internal/config"
)

// Version is the application version.
const Version = "0.1.0"

var (
	cfgFile   string
	outputFmt string
)

var rootCmd = &cobra.Command{
	Use:     "visitrack",
	Short:   "VisiTrack visitor recognition dashboard",
	Version: Version,
	Long: `VisiTrack captures visitors at an entrance camera, describes them with a
multimodal model and keeps a session log of check-ins and denied entries,
served through a web dashboard, an HTTP API and a gRPC health endpoint.`,
	SilenceUsage: true,
}

// Execute runs the root command until it returns or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: $HOME/.visitrack.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "text", "output format: text, json")
}

// loadConfig reads the config file and environment, then lets any flag in
// binds that the user set override them.
func loadConfig(cmd *cobra.Command, binds map[string]string) (config.Config, *viper.Viper, error) {
	v, err := config.NewViper(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	for key, flag := range binds {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return config.Config{}, nil, fmt.Errorf("bind --%s: %w", flag, err)
			}
		}
	}
	return config.Load(v), v, nil
}
