package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the server reads
const EnvPrefix = "PARTYD"

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// Config holds the server configuration
type Config struct {
	Host           string
	Port           int
	AdminPassword  string
	MaxPlayers     int
	IdleTimeout    time.Duration
	ReapInterval   time.Duration
	Storage        string
	RedisURL       string
	DirectoryTTL   time.Duration
	NATSURL        string
	NATSSubject    string
	PublicURL      string
	AllowedOrigins []string
	LogLevel       string
}

// Default returns the configuration used when no flags or env vars are set
func Default() Config {
	return Config{
		Port:           8080,
		MaxPlayers:     8,
		IdleTimeout:    10 * time.Minute,
		ReapInterval:   time.Minute,
		Storage:        StorageMemory,
		DirectoryTTL:   24 * time.Hour,
		NATSSubject:    "party.lifecycle",
		PublicURL:      "http://localhost:3000",
		AllowedOrigins: []string{"*"},
		LogLevel:       "info",
	}
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.AdminPassword == "" {
		return errors.New("--admin-password is required")
	}
	if c.MaxPlayers < 2 {
		return fmt.Errorf("invalid max players (must be at least 2): %d", c.MaxPlayers)
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("invalid idle timeout (must be positive): %s", c.IdleTimeout)
	}
	if c.ReapInterval <= 0 {
		return fmt.Errorf("invalid reap interval (must be positive): %s", c.ReapInterval)
	}
	if c.DirectoryTTL <= 0 {
		return fmt.Errorf("invalid directory ttl (must be positive): %s", c.DirectoryTTL)
	}

	switch c.Storage {
	case StorageMemory:
	case StorageRedis:
		if c.RedisURL == "" {
			return errors.New("--redis-url is required with --storage=redis")
		}
	default:
		return fmt.Errorf("invalid storage %q (must be %s or %s)", c.Storage, StorageMemory, StorageRedis)
	}

	if c.NATSURL != "" && c.NATSSubject == "" {
		return errors.New("--nats-subject must not be empty when --nats-url is set")
	}
	u, err := url.Parse(c.PublicURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid public url %q (must be an absolute http or https URL)", c.PublicURL)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q (must be debug, info, warn or error)", c.LogLevel)
	}
	return level, nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadDotEnv loads variables from the given files, or .env when none are given.
// Missing files are ignored and variables already in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// NewCommand builds the server root command. Every flag can also be set
// through PARTYD_<FLAG> with dashes replaced by underscores. run is called
// with a validated config.
func NewCommand(cfg *Config, version string, run func(ctx context.Context, cfg *Config) error) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:     "partyd",
		Short:   "Party coordination service for group play",
		Args:    cobra.ExactArgs(0),
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	defaults := Default()
	flags := cmd.Flags()

	flags.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	flags.StringVar(&cfg.Host, "host", defaults.Host, "address to bind to (env: PARTYD_HOST)")
	flags.IntVarP(&cfg.Port, "port", "p", defaults.Port, "port to listen on (env: PARTYD_PORT)")
	flags.StringVar(&cfg.AdminPassword, "admin-password", defaults.AdminPassword, "secret required to create parties, plain text or bcrypt hash (env: PARTYD_ADMIN_PASSWORD)")
	flags.IntVar(&cfg.MaxPlayers, "max-players", defaults.MaxPlayers, "capacity of new parties (env: PARTYD_MAX_PLAYERS)")
	flags.DurationVar(&cfg.IdleTimeout, "idle-timeout", defaults.IdleTimeout, "time a party may go without connections before it is closed (env: PARTYD_IDLE_TIMEOUT)")
	flags.DurationVar(&cfg.ReapInterval, "reap-interval", defaults.ReapInterval, "how often idle parties are checked (env: PARTYD_REAP_INTERVAL)")
	flags.StringVar(&cfg.Storage, "storage", defaults.Storage, "party directory backend: memory or redis (env: PARTYD_STORAGE)")
	flags.StringVar(&cfg.RedisURL, "redis-url", defaults.RedisURL, "redis connection URL (env: PARTYD_REDIS_URL)")
	flags.DurationVar(&cfg.DirectoryTTL, "directory-ttl", defaults.DirectoryTTL, "lifetime of redis directory entries (env: PARTYD_DIRECTORY_TTL)")
	flags.StringVar(&cfg.NATSURL, "nats-url", defaults.NATSURL, "NATS server URL; empty disables lifecycle events (env: PARTYD_NATS_URL)")
	flags.StringVar(&cfg.NATSSubject, "nats-subject", defaults.NATSSubject, "subject prefix for lifecycle events (env: PARTYD_NATS_SUBJECT)")
	flags.StringVar(&cfg.PublicURL, "public-url", defaults.PublicURL, "frontend URL encoded in QR join codes (env: PARTYD_PUBLIC_URL)")
	flags.StringSliceVar(&cfg.AllowedOrigins, "allowed-origins", defaults.AllowedOrigins, "comma separated origins allowed for CORS and WebSocket (env: PARTYD_ALLOWED_ORIGINS)")
	flags.StringVar(&cfg.LogLevel, "log-level", defaults.LogLevel, "debug, info, warn or error (env: PARTYD_LOG_LEVEL)")

	flags.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = flags.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.AddCommand(newHashPasswordCommand())

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("partyd v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
