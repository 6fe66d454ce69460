// Package config loads console configuration from layered sources:
// built-in defaults, an optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar overrides the config file location.
const PathEnvVar = "FLEETMONITOR_CONFIG"

// DefaultPaths are searched in order when no path is given.
var DefaultPaths = []string{
	"fleetmonitor.yaml",
	"fleetmonitor.yml",
}

type Config struct {
	API     APIConfig     `koanf:"api"`
	Poll    PollConfig    `koanf:"poll"`
	Map     MapConfig     `koanf:"map"`
	Logging LoggingConfig `koanf:"logging"`
	Metrics MetricsConfig `koanf:"metrics"`
	Export  ExportConfig  `koanf:"export"`
}

type APIConfig struct {
	BaseURL           string        `koanf:"base_url" validate:"required,url"`
	Username          string        `koanf:"username"`
	Password          string        `koanf:"password"`
	Token             string        `koanf:"token"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gte=0"`
	Burst             int           `koanf:"burst" validate:"gte=0"`
	BreakerFailures   uint32        `koanf:"breaker_failures"`
	BreakerTimeout    time.Duration `koanf:"breaker_timeout" validate:"gte=0"`
}

type PollConfig struct {
	Interval     time.Duration `koanf:"interval" validate:"gte=100ms"`
	RecentLimit  int           `koanf:"recent_limit" validate:"gt=0"`
	HistoryLimit int           `koanf:"history_limit" validate:"gt=0"`
	HistoryDays  int           `koanf:"history_days" validate:"gt=0"`
	ChartPoints  int           `koanf:"chart_points" validate:"gt=0"`
}

type MapConfig struct {
	CenterLatitude  float64 `koanf:"center_latitude" validate:"latitude"`
	CenterLongitude float64 `koanf:"center_longitude" validate:"longitude"`
	Zoom            int     `koanf:"zoom" validate:"gte=0,lte=18"`
	FocusZoom       int     `koanf:"focus_zoom" validate:"gte=0,lte=18"`
	FitPadding      int     `koanf:"fit_padding" validate:"gte=0"`
	AnimationFrames int     `koanf:"animation_frames" validate:"gte=1"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error disabled off"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Path   string `koanf:"path" validate:"required"`
	Caller bool   `koanf:"caller"`
}

type MetricsConfig struct {
	Listen string `koanf:"listen" validate:"omitempty,hostname_port"`
}

type ExportConfig struct {
	Dir string `koanf:"dir" validate:"required"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:           "http://127.0.0.1:8000",
			Timeout:           10 * time.Second,
			RequestsPerSecond: 20,
			Burst:             8,
			BreakerFailures:   5,
			BreakerTimeout:    15 * time.Second,
		},
		Poll: PollConfig{
			Interval:     3 * time.Second,
			RecentLimit:  50,
			HistoryLimit: 5000,
			HistoryDays:  30,
			ChartPoints:  100,
		},
		Map: MapConfig{
			CenterLatitude:  10.762622,
			CenterLongitude: 106.660172,
			Zoom:            6,
			FocusZoom:       10,
			FitPadding:      2,
			AnimationFrames: 12,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Path:   "fleetmonitor.log",
		},
		Export: ExportConfig{
			Dir: "exports",
		},
	}
}

// envMappings maps environment variables onto config paths.
var envMappings = map[string]string{
	"fleetmonitor_api_url":              "api.base_url",
	"fleetmonitor_api_base_url":         "api.base_url",
	"fleetmonitor_username":             "api.username",
	"fleetmonitor_password":             "api.password",
	"fleetmonitor_token":                "api.token",
	"fleetmonitor_api_timeout":          "api.timeout",
	"fleetmonitor_api_rps":              "api.requests_per_second",
	"fleetmonitor_api_burst":            "api.burst",
	"fleetmonitor_poll_interval":        "poll.interval",
	"fleetmonitor_recent_limit":         "poll.recent_limit",
	"fleetmonitor_history_limit":        "poll.history_limit",
	"fleetmonitor_history_days":         "poll.history_days",
	"fleetmonitor_chart_points":         "poll.chart_points",
	"fleetmonitor_map_center_latitude":  "map.center_latitude",
	"fleetmonitor_map_center_longitude": "map.center_longitude",
	"fleetmonitor_map_zoom":             "map.zoom",
	"fleetmonitor_log_level":            "logging.level",
	"fleetmonitor_log_format":           "logging.format",
	"fleetmonitor_log_path":             "logging.path",
	"fleetmonitor_metrics_listen":       "metrics.listen",
	"fleetmonitor_export_dir":           "export.dir",
}

func envTransform(key string) string {
	if path, ok := envMappings[strings.ToLower(key)]; ok {
		return path
	}
	return ""
}

// Load builds the configuration. path may be empty, in which case the
// PathEnvVar and DefaultPaths are consulted; a missing default file is fine,
// a missing explicit file is an error.
func Load(path string) (*Config, string, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, "", fmt.Errorf("load defaults: %w", err)
	}

	resolved, err := resolvePath(path)
	if err != nil {
		return nil, "", err
	}
	if resolved != "" {
		if err := k.Load(file.Provider(resolved), yaml.Parser()); err != nil {
			return nil, resolved, fmt.Errorf("load config file %s: %w", resolved, err)
		}
	}

	if err := k.Load(env.Provider("FLEETMONITOR_", ".", envTransform), nil); err != nil {
		return nil, resolved, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, resolved, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, resolved, err
	}
	return cfg, resolved, nil
}

func resolvePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(PathEnvVar))
	}
	if path != "" {
		if strings.Contains(path, "://") {
			return "", fmt.Errorf("only local filesystem paths are supported")
		}
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file %q: %w", path, err)
		}
		return path, nil
	}
	for _, candidate := range DefaultPaths {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (%v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("configuration validation failed: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if c.API.Token == "" && (c.API.Username == "") != (c.API.Password == "") {
		return fmt.Errorf("configuration validation failed: api.username and api.password must be set together")
	}
	return nil
}
