package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string // "" disables the gRPC health server

	Env      string // "dev" | "prod"
	Store    string // "memory" | "sqlite"
	SeedDemo bool

	// Inference
	GeminiAPIKey     string
	GeminiModel      string
	InferenceTimeout time.Duration
	KnownRatio       float64

	Camera CameraConfig

	// Scanner view presence
	ScannerViewTTL time.Duration // 0 = never release the camera automatically
	ReaperInterval time.Duration
}

type CameraConfig struct {
	Device          string // "none" | "ffmpeg" | "snapshot"
	Format          string
	Input           string
	SnapshotDir     string
	SnapshotPattern string
	FacingMode      string
	Width           int
	Height          int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("grpc_addr", ":9090")
	v.SetDefault("env", "dev")
	v.SetDefault("store", "memory")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("inference.timeout", "30s")
	v.SetDefault("inference.known_ratio", 0.7)
	v.SetDefault("camera.device", "none")
	v.SetDefault("camera.format", "v4l2")
	v.SetDefault("camera.input", "/dev/video0")
	v.SetDefault("camera.snapshot_pattern", "*.{jpg,jpeg,png}")
	v.SetDefault("camera.facing_mode", "user")
	v.SetDefault("camera.width", 1280)
	v.SetDefault("camera.height", 720)
	v.SetDefault("scanner.view_ttl", "30s")
	v.SetDefault("scanner.reaper_interval", "0s")
}

// NewViper returns a viper instance with defaults, VISITRACK_* environment
// binding and, if present, a config file. An empty cfgFile searches for
// .visitrack.yaml in the home and working directories.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("VISITRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".visitrack")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}
	return v, nil
}

// Load maps v into a Config. Invalid values fall back to defaults.
func Load(v *viper.Viper) Config {
	env := strings.ToLower(strings.TrimSpace(v.GetString("env")))
	if env != "dev" && env != "prod" {
		env = "dev"
	}

	st := strings.ToLower(strings.TrimSpace(v.GetString("store")))
	if st != "memory" && st != "sqlite" {
		st = "memory"
	}

	seed := env == "dev"
	if v.IsSet("seed_demo") {
		seed = v.GetBool("seed_demo")
	}

	device := strings.ToLower(strings.TrimSpace(v.GetString("camera.device")))
	switch device {
	case "none", "ffmpeg", "snapshot":
	default:
		device = "none"
	}

	ratio := v.GetFloat64("inference.known_ratio")
	if ratio < 0 || ratio > 1 {
		ratio = 0.7
	}

	return Config{
		HTTPAddr: v.GetString("http_addr"),
		GRPCAddr: strings.TrimSpace(v.GetString("grpc_addr")),

		Env:      env,
		Store:    st,
		SeedDemo: seed,

		GeminiAPIKey:     apiKey(v),
		GeminiModel:      v.GetString("gemini.model"),
		InferenceTimeout: durationOr(v, "inference.timeout", 30*time.Second),
		KnownRatio:       ratio,

		Camera: CameraConfig{
			Device:          device,
			Format:          v.GetString("camera.format"),
			Input:           v.GetString("camera.input"),
			SnapshotDir:     v.GetString("camera.snapshot_dir"),
			SnapshotPattern: v.GetString("camera.snapshot_pattern"),
			FacingMode:      v.GetString("camera.facing_mode"),
			Width:           nonNegative(v.GetInt("camera.width")),
			Height:          nonNegative(v.GetInt("camera.height")),
		},

		ScannerViewTTL: durationOr(v, "scanner.view_ttl", 30*time.Second),
		ReaperInterval: durationOr(v, "scanner.reaper_interval", 0),
	}
}

// apiKey prefers VISITRACK_GEMINI_API_KEY or gemini.api_key, then the
// conventional GEMINI_API_KEY and API_KEY variables.
func apiKey(v *viper.Viper) string {
	if k := strings.TrimSpace(v.GetString("gemini.api_key")); k != "" {
		return k
	}
	for _, name := range []string{"GEMINI_API_KEY", "API_KEY"} {
		if k := strings.TrimSpace(os.Getenv(name)); k != "" {
			return k
		}
	}
	return ""
}

func durationOr(v *viper.Viper, key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
	if err != nil || d < 0 {
		return def
	}
	return d
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
