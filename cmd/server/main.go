package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/magefree/mage-deckbuilder-go/internal/app"
	"github.com/magefree/mage-deckbuilder-go/internal/builder"
	"github.com/magefree/mage-deckbuilder-go/internal/config"
	"github.com/magefree/mage-deckbuilder-go/internal/replay"
	"github.com/magefree/mage-deckbuilder-go/internal/server"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := app.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting deck builder server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Catalog source
	source, closeSource, err := app.OpenSource(ctx, cfg.Catalog, logger)
	if err != nil {
		logger.Fatal("failed to open catalog", zap.String("provider", cfg.Catalog.Provider), zap.Error(err))
	}
	defer closeSource()

	var recorder *replay.Recorder
	if cfg.Replay.Enabled {
		recorder = replay.NewRecorder(logger.Named("replay"), cfg.Replay.Dir)
		logger.Info("session recording enabled", zap.String("directory", cfg.Replay.Dir))
	}

	manager := builder.NewManager(logger.Named("builder"), cfg.Server.MaxSessions,
		app.SessionOptions(cfg, source, recorder)...)
	manager.SetGestureConfig(cfg.Gesture)
	logger.Info("session manager initialized",
		zap.Int("max_sessions", cfg.Server.MaxSessions),
		zap.Duration("session_idle", cfg.Server.SessionIdle),
	)

	// Gesture thresholds are hot-reloadable; everything else needs a restart.
	if err := config.Watch(*configPath, logger, func(next *config.Config) {
		manager.SetGestureConfig(next.Gesture)
	}); err != nil {
		logger.Warn("config hot reload disabled", zap.Error(err))
	}

	srv := server.New(cfg.Server, manager, recorder, logger.Named("server"))

	logger.Info("deck builder server initialized",
		zap.String("version", version),
		zap.String("websocket_address", cfg.Server.WebSocket.Address),
		zap.String("catalog_provider", cfg.Catalog.Provider),
	)

	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("server error", zap.Error(err))
	}

	for _, s := range manager.GetAllSessions() {
		manager.RemoveSession(s.ID)
	}
	logger.Info("deck builder server stopped")
}
