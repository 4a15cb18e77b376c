// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"

	minJWTSecretLen = 32
)

type Config struct {
	Port     int    `env:"PORT" envDefault:"8082"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DataDir       string `env:"DATA_DIR" envDefault:"./data"`
	ReportsDir    string `env:"REPORTS_DIR" envDefault:"./reports"`
	TempDir       string `env:"TEMP_DIR" envDefault:"./tmp"`
	DefaultLocale string `env:"DEFAULT_LOCALE" envDefault:"en-GB"`

	SnapshotBackend string `env:"SNAPSHOT_BACKEND" envDefault:"file"`
	RedisAddr       string `env:"REDIS_ADDR"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	RedisDB         int    `env:"REDIS_DB" envDefault:"0"`
	PostgresDSN     string `env:"POSTGRES_DSN"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"catalog.products"`

	JWTSecret         string `env:"JWT_SECRET"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5s"`

	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	MetricsToken   string `env:"METRICS_TOKEN"`

	ReviewRatePerSec float64 `env:"REVIEW_RATE_PER_SEC" envDefault:"5"`
	ReviewRateBurst  int     `env:"REVIEW_RATE_BURST" envDefault:"10"`
	LoginRatePerSec  float64 `env:"LOGIN_RATE_PER_SEC" envDefault:"0.2"`
	LoginRateBurst   int     `env:"LOGIN_RATE_BURST" envDefault:"5"`

	// CIDRs of reverse proxies whose X-Forwarded-For header is trusted.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.SnapshotBackend = strings.ToLower(strings.TrimSpace(cfg.SnapshotBackend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}

	switch c.SnapshotBackend {
	case BackendFile:
	case BackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis snapshot backend"))
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres snapshot backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SNAPSHOT_BACKEND %q", c.SnapshotBackend))
	}

	if c.AdminEnabled() && len(c.JWTSecret) < minJWTSecretLen {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLen))
	}
	if c.ReviewRatePerSec <= 0 || c.ReviewRateBurst < 1 {
		errs = append(errs, errors.New("REVIEW_RATE_PER_SEC and REVIEW_RATE_BURST must be positive"))
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must not be negative"))
	}
	if c.LoginRatePerSec <= 0 || c.LoginRateBurst < 1 {
		errs = append(errs, errors.New("LOGIN_RATE_PER_SEC and LOGIN_RATE_BURST must be positive"))
	}
	for _, cidr := range c.TrustedProxies {
		if _, err := netip.ParsePrefix(strings.TrimSpace(cidr)); err != nil {
			errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %w", err))
		}
	}

	return errors.Join(errs...)
}

// AdminEnabled reports whether the admin endpoints are served.
func (c *Config) AdminEnabled() bool { return c.AdminPasswordHash != "" }

func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }
