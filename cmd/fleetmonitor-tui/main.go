package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fleetmonitor-tui/internal/app"
	"fleetmonitor-tui/internal/config"
	"fleetmonitor-tui/internal/console"
	"fleetmonitor-tui/internal/export"
	"fleetmonitor-tui/internal/logging"
	"fleetmonitor-tui/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults to ./fleetmonitor.yaml when present)")
	flag.Parse()

	cfg, source, err := resolveStartupConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logFile, err := logging.OpenFile(cfg.Logging.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
		Output: logFile,
	})
	logging.Info().Str("config", source).Str("api", cfg.API.BaseURL).Msg("Starting fleet monitor")

	startupCtx, cancel := context.WithTimeout(context.Background(), cfg.API.Timeout)
	defer cancel()
	client, err := newGateway(startupCtx, cfg.API)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to fleet backend: %v\n", err)
		os.Exit(1)
	}

	if strings.TrimSpace(cfg.Metrics.Listen) != "" {
		srv := startMetricsServer(cfg.Metrics.Listen)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	store, err := export.NewStore(cfg.Export.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize export storage: %v\n", err)
		os.Exit(1)
	}

	core := console.NewCore(client, nil, coreOptions(cfg))
	model := app.NewModel(core, store, modelOptions(cfg))
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logging.Error().Err(err).Msg("Console exited with error")
		fmt.Fprintf(os.Stderr, "tui exited with error: %v\n", err)
		os.Exit(1)
	}
	logging.Info().Msg("Console exited")
}

// resolveStartupConfig loads layered configuration and reports the absolute
// path of the file it used, or "" when only defaults and environment apply.
func resolveStartupConfig(path string) (*config.Config, string, error) {
	cfg, resolved, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if resolved == "" {
		return cfg, "", nil
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return nil, "", fmt.Errorf("resolve config path %q: %w", resolved, err)
	}
	return cfg, abs, nil
}

// newGateway builds the backend client and authenticates it. A configured
// token wins over credentials; with neither, requests fail as unauthorized
// and the console says so.
func newGateway(ctx context.Context, api config.APIConfig) (*telemetry.Client, error) {
	client, err := telemetry.NewClient(telemetry.Options{
		BaseURL:           api.BaseURL,
		Timeout:           api.Timeout,
		RequestsPerSecond: api.RequestsPerSecond,
		Burst:             api.Burst,
		BreakerFailures:   api.BreakerFailures,
		BreakerTimeout:    api.BreakerTimeout,
	})
	if err != nil {
		return nil, err
	}
	switch {
	case strings.TrimSpace(api.Token) != "":
		if err := client.SetToken(api.Token); err != nil {
			return nil, err
		}
	case strings.TrimSpace(api.Username) != "":
		session, err := client.Login(ctx, api.Username, api.Password)
		if err != nil {
			return nil, fmt.Errorf("login as %s: %w", api.Username, err)
		}
		logging.Info().Str("subject", session.Subject).Time("expires", session.ExpiresAt).Msg("Logged in")
	default:
		logging.Warn().Msg("No token or credentials configured")
	}
	return client, nil
}

func coreOptions(cfg *config.Config) console.Options {
	return console.Options{
		PollInterval:   cfg.Poll.Interval,
		RequestTimeout: cfg.API.Timeout,
		RecentLimit:    cfg.Poll.RecentLimit,
		HistoryLimit:   cfg.Poll.HistoryLimit,
		HistoryWindow:  time.Duration(cfg.Poll.HistoryDays) * 24 * time.Hour,
		ChartPoints:    cfg.Poll.ChartPoints,
		FitPadding:     cfg.Map.FitPadding,
		FocusZoom:      cfg.Map.FocusZoom,
	}
}

func modelOptions(cfg *config.Config) app.ModelOptions {
	return app.ModelOptions{
		MapCenter:       console.Coordinate{Lat: cfg.Map.CenterLatitude, Lon: cfg.Map.CenterLongitude},
		MapZoom:         cfg.Map.Zoom,
		AnimationFrames: cfg.Map.AnimationFrames,
	}
}

func startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Str("addr", addr).Msg("Metrics listener failed")
		}
	}()
	logging.Info().Str("addr", addr).Msg("Serving metrics")
	return srv
}
