package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcoot/partycoord/internal/api"
	"github.com/mcoot/partycoord/internal/config"
	"github.com/mcoot/partycoord/internal/factory"
	"github.com/mcoot/partycoord/internal/publish"
	"github.com/mcoot/partycoord/internal/services/registry"
	redisstorage "github.com/mcoot/partycoord/internal/storage/redis"
)

const releaseVersion = "0.1.0"

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Default()
	if err := config.NewCommand(&cfg, releaseVersion, run).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "partyd:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	level, err := cfg.Level()
	if err != nil {
		return err
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	app, err := factory.New(factoryConfig(cfg, logger))
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	app.Start(ctx)

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Host
	serverConfig.Port = cfg.Port
	server := api.NewServer(app.Handler, serverConfig, logger)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.Storage),
		slog.Bool("publishing", cfg.NATSURL != ""))

	// Wait for shutdown or error
	var serveErr error
	select {
	case serveErr = <-errCh:
		if serveErr != nil {
			logger.Error("server error", slog.String("error", serveErr.Error()))
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
	}
	if err := app.Stop(shutdownCtx); err != nil {
		logger.Error("application stop error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
	return serveErr
}

func factoryConfig(cfg *config.Config, logger *slog.Logger) factory.Config {
	fc := factory.Config{
		AdminPassword: cfg.AdminPassword,
		Logger:        logger,
		StorageType:   cfg.Storage,
		Registry: registry.Config{
			MaxPlayers:   cfg.MaxPlayers,
			IdleTimeout:  cfg.IdleTimeout,
			ReapInterval: cfg.ReapInterval,
		},
		PublicURL:      cfg.PublicURL,
		AllowedOrigins: cfg.AllowedOrigins,
	}

	// Configure Redis if storage type is redis
	if cfg.Storage == config.StorageRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		redisCfg.PartyTTL = cfg.DirectoryTTL
		fc.RedisConfig = &redisCfg
	}

	// Configure NATS if a broker is set
	if cfg.NATSURL != "" {
		natsCfg := publish.DefaultNATSConfig()
		natsCfg.URL = cfg.NATSURL
		natsCfg.SubjectPrefix = cfg.NATSSubject
		fc.NATSConfig = &natsCfg
	}

	return fc
}
