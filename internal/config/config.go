// Package config reads server settings from EPDS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Session storage backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config is read once at startup.
type Config struct {
	Addr      string `env:"ADDR"       envDefault:":8080"`
	Commit    string `env:"COMMIT"`
	BuildTime string `env:"BUILD_TIME"`

	LogMode  string `env:"LOG_MODE"  envDefault:"dev"`
	LogLevel string `env:"LOG_LEVEL"`
	LogSalt  string `env:"LOG_HASH_SALT"`

	// Empty paths select the artifacts bundled into the binary.
	ModelPath  string `env:"MODEL_PATH"`
	LabelsPath string `env:"LABELS_PATH"`

	// TrueType font for the PDF report. Empty uses the Go fonts.
	PDFFontPath string `env:"PDF_FONT"`

	SessionBackend string        `env:"SESSION_BACKEND" envDefault:"memory"`
	SessionTTL     time.Duration `env:"SESSION_TTL"     envDefault:"2h"`
	SessionSecret  string        `env:"SESSION_SECRET"`
	SQLitePath     string        `env:"SQLITE_PATH"     envDefault:"file:epds_sessions?mode=memory&cache=shared"`
	MigrationsDir  string        `env:"MIGRATIONS_DIR"`
	RedisAddr      string        `env:"REDIS_ADDR"      envDefault:"localhost:6379"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	RedisDB        int           `env:"REDIS_DB"        envDefault:"0"`
	RedisPrefix    string        `env:"REDIS_PREFIX"    envDefault:"epds:session:"`

	StaticDir      string   `env:"STATIC_DIR"`
	DevFrontendURL string   `env:"DEV_FRONTEND_URL"`
	CORSOrigins    []string `env:"CORS_ORIGINS" envSeparator:","`

	// Requests per second and burst per client IP. Zero disables limiting.
	RateLimit float64 `env:"RATE_LIMIT" envDefault:"10"`
	RateBurst int     `env:"RATE_BURST" envDefault:"40"`

	TraceExporter string `env:"TRACE_EXPORTER"`
	OTLPEndpoint  string `env:"OTLP_ENDPOINT"`
}

// Load parses the process environment.
func Load() (Config, error) {
	return load(env.Options{Prefix: "EPDS_"})
}

// LoadFrom parses a fixed variable set instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return load(env.Options{Prefix: "EPDS_", Environment: vars})
}

func load(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.SessionBackend = strings.ToLower(strings.TrimSpace(cfg.SessionBackend))
	cfg.TraceExporter = strings.ToLower(strings.TrimSpace(cfg.TraceExporter))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	var errs []error
	switch c.SessionBackend {
	case BackendMemory, BackendSQLite, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown session backend %q", c.SessionBackend))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	switch c.TraceExporter {
	case "", "none", "stdout", "otlp":
	default:
		errs = append(errs, fmt.Errorf("unknown trace exporter %q", c.TraceExporter))
	}
	if c.RateLimit < 0 || (c.RateLimit > 0 && c.RateBurst <= 0) {
		errs = append(errs, errors.New("rate limit needs a non-negative rate and a positive burst"))
	}
	if c.SessionBackend == BackendRedis && c.RedisAddr == "" {
		errs = append(errs, errors.New("redis backend needs EPDS_REDIS_ADDR"))
	}
	return errors.Join(errs...)
}
