package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/jonboulle/clockwork"

	"github.com/mcoot/partycoord/internal/api"
	"github.com/mcoot/partycoord/internal/dependencies/random"
	"github.com/mcoot/partycoord/internal/gateway"
	"github.com/mcoot/partycoord/internal/publish"
	"github.com/mcoot/partycoord/internal/services/auth"
	"github.com/mcoot/partycoord/internal/services/codegen"
	"github.com/mcoot/partycoord/internal/services/lifecycle"
	"github.com/mcoot/partycoord/internal/services/registry"
	"github.com/mcoot/partycoord/internal/storage"
	"github.com/mcoot/partycoord/internal/storage/memory"
	redisstorage "github.com/mcoot/partycoord/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock     clockwork.Clock
	Random    random.Random
	Publisher publish.Publisher

	// Services
	Lifecycle *lifecycle.Worker
	Registry  *registry.Registry
	Bindings  *gateway.Bindings
	Gateway   *gateway.Gateway

	// Handler serves the HTTP API and the WebSocket endpoint
	Handler http.Handler

	logger      *slog.Logger
	connCtx     context.Context
	cancelConns context.CancelFunc
}

// Config holds configuration for the application factory
type Config struct {
	// AdminPassword is the secret required to create parties (required)
	AdminPassword string
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the directory backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// NATSConfig enables lifecycle publishing when set
	NATSConfig *publish.NATSConfig
	// Registry holds party capacity and idle reaping settings
	// If zero value, defaults to registry.DefaultConfig()
	Registry registry.Config
	// Conn holds WebSocket settings
	// If zero value, defaults to gateway.DefaultConnConfig()
	Conn gateway.ConnConfig
	// PublicURL is the frontend base URL encoded in QR join codes
	PublicURL string
	// AllowedOrigins restricts CORS and WebSocket origins; empty allows all
	AllowedOrigins []string
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	// Create publisher
	var publisher publish.Publisher = publish.NewNop(logger)
	if cfg.NATSConfig != nil {
		natsPublisher, err := publish.NewNATS(*cfg.NATSConfig, logger)
		if err != nil {
			closeStorage(store)
			return nil, err
		}
		publisher = natsPublisher
	}

	verifier, err := auth.NewAdminVerifier(cfg.AdminPassword)
	if err != nil {
		closeStorage(store)
		_ = publisher.Close()
		return nil, err
	}

	return newWithDependencies(store, publisher, clockwork.NewRealClock(), random.New(), verifier, cfg, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	publisher publish.Publisher,
	clock clockwork.Clock,
	rnd random.Random,
	verifier registry.Verifier,
	cfg Config,
	logger *slog.Logger,
) *App {
	registryCfg := cfg.Registry
	if registryCfg == (registry.Config{}) {
		registryCfg = registry.DefaultConfig()
	}
	connCfg := cfg.Conn
	if connCfg == (gateway.ConnConfig{}) {
		connCfg = gateway.DefaultConnConfig()
	}

	// Create services
	worker := lifecycle.New(store, publisher, logger)
	reg := registry.New(codegen.New(rnd), verifier, worker, clock, registryCfg, logger)
	bindings := gateway.NewBindings()
	gw := gateway.New(reg, bindings, clock, logger)

	connCtx, cancelConns := context.WithCancel(context.Background())
	wsHandler := gateway.NewHandler(connCtx, gw, connCfg, cfg.AllowedOrigins, logger)

	handler := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		Storage:        store,
		Parties:        reg,
		Connections:    bindings,
		WebSocket:      wsHandler,
		PublicURL:      cfg.PublicURL,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	return &App{
		Storage:     store,
		Clock:       clock,
		Random:      rnd,
		Publisher:   publisher,
		Lifecycle:   worker,
		Registry:    reg,
		Bindings:    bindings,
		Gateway:     gw,
		Handler:     handler,
		logger:      logger.With(slog.String("component", "app")),
		connCtx:     connCtx,
		cancelConns: cancelConns,
	}
}

// Start launches the background workers
func (a *App) Start(ctx context.Context) {
	a.Lifecycle.Start(ctx)
	a.Registry.Start(ctx)
}

// Stop closes every connection and party, flushes the directory and releases external resources
func (a *App) Stop(ctx context.Context) error {
	a.cancelConns()

	var errs []error
	if err := a.Registry.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.Lifecycle.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.Publisher.Close(); err != nil {
		errs = append(errs, err)
	}
	closeStorage(a.Storage)

	if err := errors.Join(errs...); err != nil {
		a.logger.Error("application stopped with errors", slog.String("error", err.Error()))
		return err
	}
	a.logger.Info("application stopped")
	return nil
}

func closeStorage(store storage.Storage) {
	if closer, ok := store.(io.Closer); ok {
		_ = closer.Close()
	}
}
