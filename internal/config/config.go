// Package config resolves service configuration: built-in defaults, then an
// optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/campusqa/moderation/internal/messaging"
)

// Config holds settings for the API server and the scan worker.
type Config struct {
	Server     ServerConfig         `yaml:"server"`
	Postgres   PostgresConfig       `yaml:"postgres"`
	Redis      RedisConfig          `yaml:"redis"`
	NATS       messaging.NATSConfig `yaml:"nats"`
	Auth       AuthConfig           `yaml:"auth"`
	Moderation ModerationConfig     `yaml:"moderation"`
}

type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type PostgresConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
	Migrate  bool   `yaml:"migrate"`
}

// RedisConfig configures the limiter and offense counter. An empty Addr
// disables both.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type ModerationConfig struct {
	// DefaultSuspension applies when no duration is given and no offense
	// history is available.
	DefaultSuspension time.Duration `yaml:"default_suspension"`
	ReportRateLimit   int           `yaml:"report_rate_limit"`  // per hour
	ContentRateLimit  int           `yaml:"content_rate_limit"` // per minute
	FeedPingInterval  time.Duration `yaml:"feed_ping_interval"`
}

// Default returns production defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Postgres: PostgresConfig{
			URL:      "postgres://localhost:5432/campusqa?sslmode=disable",
			MaxConns: 20,
			Migrate:  true,
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		NATS:  messaging.DefaultNATSConfig(),
		Moderation: ModerationConfig{
			DefaultSuspension: 7 * 24 * time.Hour,
			ReportRateLimit:   10,
			ContentRateLimit:  30,
			FeedPingInterval:  30 * time.Second,
		},
	}
}

// Load returns Default overlaid with the YAML file named by CONFIG_FILE (if
// set) and then with environment variables.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// LoadFile overlays the YAML file at path. Keys absent from the file keep
// their current values.
func (c *Config) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	var errs []error
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("LISTEN_ADDR", &c.Server.ListenAddr)
	duration("READ_TIMEOUT", &c.Server.ReadTimeout)
	duration("WRITE_TIMEOUT", &c.Server.WriteTimeout)
	str("DATABASE_URL", &c.Postgres.URL)
	integer("DATABASE_MAX_CONNS", &c.Postgres.MaxConns)
	if v, ok := lookup("DATABASE_MIGRATE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: DATABASE_MIGRATE: %w", err))
		} else {
			c.Postgres.Migrate = b
		}
	}
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("NATS_URL", &c.NATS.URL)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	duration("DEFAULT_SUSPENSION", &c.Moderation.DefaultSuspension)
	integer("REPORT_RATE_LIMIT", &c.Moderation.ReportRateLimit)
	integer("CONTENT_RATE_LIMIT", &c.Moderation.ContentRateLimit)
	duration("FEED_PING_INTERVAL", &c.Moderation.FeedPingInterval)

	return errors.Join(errs...)
}

// Validate checks settings the services cannot start without.
func (c *Config) Validate() error {
	switch {
	case c.Postgres.URL == "":
		return errors.New("config: postgres url is required")
	case c.Moderation.DefaultSuspension <= 0:
		return errors.New("config: default suspension must be positive")
	case c.Moderation.FeedPingInterval <= 0:
		return errors.New("config: feed ping interval must be positive")
	}
	return nil
}
