package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodtune/webtime/internal/api"
	"github.com/goodtune/webtime/internal/browser"
	"github.com/goodtune/webtime/internal/config"
	"github.com/goodtune/webtime/internal/metrics"
	"github.com/goodtune/webtime/internal/storage"
	"github.com/goodtune/webtime/internal/storage/bolt"
	"github.com/goodtune/webtime/internal/storage/memory"
	"github.com/goodtune/webtime/internal/storage/redis"
	"github.com/goodtune/webtime/internal/systemd"
	"github.com/goodtune/webtime/internal/tracking"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start webtime server",
	Long:  `Start the activity tracker with its event ingestion API and metrics endpoint.`,
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting webtime")

	// Check for systemd socket activation
	sdListeners, err := systemd.GetListeners()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to get systemd listeners")
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	// Initialize storage
	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	logger.Info().
		Str("type", cfg.Storage.Type).
		Str("path", cfg.Storage.Path).
		Msg("Storage initialized")

	location, err := cfg.Tracking.Location()
	if err != nil {
		return err
	}

	registry, err := browser.NewRegistry(cfg.Browser.TabCacheSize, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize browser registry: %w", err)
	}

	favicons, err := tracking.NewServiceFavicons(cfg.Favicon.URLTemplate, cfg.Favicon.CacheSize)
	if err != nil {
		return fmt.Errorf("failed to initialize favicon resolver: %w", err)
	}

	// Initialize Activity Tracker
	trackerConfig := tracking.Config{
		TickInterval: parseDuration(cfg.Tracking.TickInterval, tracking.DefaultTickInterval),
		MinFlush:     parseDuration(cfg.Tracking.MinFlush, tracking.DefaultMinFlush),
		Location:     location,
		EventBuffer:  cfg.Tracking.EventBuffer,
	}
	tracker := tracking.NewTracker(store, registry, favicons, tracking.RealClock{}, trackerConfig, logger)
	tracker.SetObserver(registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	trackerErr := make(chan error, 1)
	go func() {
		trackerErr <- tracker.Run(ctx)
	}()

	logger.Info().
		Dur("tick_interval", trackerConfig.TickInterval).
		Str("timezone", location.String()).
		Msg("Activity Tracker started")

	// Initialize API Server
	apiConfig := api.Config{
		ListenAddr:            fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.APIPort),
		AllowedOrigins:        cfg.Server.AllowedOrigins,
		IdleDetectionInterval: parseDuration(cfg.Tracking.IdleDetectionInterval, 60*time.Second),
		TickInterval:          trackerConfig.TickInterval,
	}
	apiServer := api.NewServer(apiConfig, store, tracker, logger)

	// Use systemd socket-activated listener if available
	if sdListeners.Activated && sdListeners.API != nil {
		apiServer.SetListener(sdListeners.API)
	}

	if err := apiServer.Start(); err != nil {
		return fmt.Errorf("failed to start API Server: %w", err)
	}

	// Initialize Metrics Server
	var metricsServer *metrics.Server
	if cfg.Server.MetricsPort > 0 {
		metricsAddr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.MetricsPort)
		metricsServer = metrics.NewServer(metricsAddr, logger)

		// Use systemd socket-activated listener if available
		if sdListeners.Activated && sdListeners.Metrics != nil {
			metricsServer.SetListener(sdListeners.Metrics)
		}

		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start Metrics Server: %w", err)
		}
	}

	// Ping the watchdog only while the tracker loop is alive
	go func() {
		err := systemd.RunWatchdog(ctx, func() bool {
			select {
			case <-tracker.Done():
				return false
			default:
				return true
			}
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Systemd watchdog stopped")
		}
	}()

	logger.Info().Msg("webtime startup complete")
	logger.Info().Msgf("API: http://%s", apiConfig.ListenAddr)
	if metricsServer != nil {
		logger.Info().Msgf("Metrics: http://%s:%d/metrics", cfg.Server.BindAddress, cfg.Server.MetricsPort)
	}

	// Notify systemd that we're ready to serve requests
	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd ready notification")
	} else {
		logger.Debug().Msg("Sent systemd ready notification")
	}

	// Wait for signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			logStatus(ctx, tracker, logger)
			continue
		}
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received, gracefully stopping...")
		break
	}

	// Notify systemd that we're stopping
	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd stopping notification")
	}

	// Stop ingesting before the tracker's final flush
	if err := apiServer.Stop(); err != nil {
		logger.Error().Err(err).Msg("Error stopping API Server")
	}

	cancel()
	if err := <-trackerErr; err != nil {
		logger.Error().Err(err).Msg("Activity Tracker stopped with error")
	}

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping Metrics Server")
		}
	}

	logger.Info().Msg("webtime stopped")

	return nil
}

// logStatus reports the live session on SIGHUP.
func logStatus(ctx context.Context, tracker *tracking.Tracker, logger zerolog.Logger) {
	statusCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status, err := tracker.Status(statusCtx)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read tracker status")
		return
	}
	event := logger.Info().
		Str("state", string(status.State)).
		Bool("window_active", status.WindowActive).
		Bool("user_idle", status.UserIdle)
	if status.Domain != "" {
		event = event.Str("domain", status.Domain)
	}
	event.Msg("Tracker status")
}

func openStorage(cfg config.StorageConfig) (storage.Store, error) {
	storageType := cfg.Type
	if storageType == "" {
		storageType = "bolt"
	}

	switch storageType {
	case "bolt":
		return bolt.Open(cfg.Path)
	case "redis":
		return redis.Open(cfg.Redis)
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Default to JSON
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// parseDuration parses a duration string with a fallback
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
