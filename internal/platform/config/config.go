package config

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

// Server captures HTTP server level configuration.
type Server struct {
	Port            string        `env:"PORT"             envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MetricsEnabled  bool          `env:"METRICS_ENABLED"  envDefault:"true"`
}

// Addr is the listen address for the configured port.
func (s Server) Addr() string {
	return ":" + s.Port
}

// Database configures the connection pool to the contact store.
type Database struct {
	URL     string `env:"DATABASE_URL,required,notEmpty"`
	Driver  string `env:"DATABASE_DRIVER"   envDefault:"pgx"`
	// SSLMode, when set, overrides any sslmode in URL. Unset keeps the URL's
	// own sslmode, falling back to require.
	SSLMode string `env:"DATABASE_SSL_MODE"`
	// MaxConns of zero keeps the driver's default pool size.
	MaxConns int32 `env:"DATABASE_MAX_CONNS" envDefault:"0"`
}

// Resolver configures how the identify_contact routine is reached.
type Resolver struct {
	Mode string `env:"RESOLVER_MODE" envDefault:"function"`
	Name string `env:"RESOLVER_NAME" envDefault:"identify_contact"`
	// Timeout of zero leaves the call bounded only by the driver.
	Timeout time.Duration `env:"RESOLVER_TIMEOUT" envDefault:"0s"`
}

// Identify holds request policy for POST /identify.
type Identify struct {
	Validation string `env:"IDENTIFY_VALIDATION" envDefault:"both"`
}

// Logging selects slog level and output format.
type Logging struct {
	Level  string `env:"LOG_LEVEL"  envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Tracing enables OTLP trace export when Endpoint is set.
type Tracing struct {
	Endpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Config is the full process configuration.
type Config struct {
	Server   Server
	Database Database
	Resolver Resolver
	Identify Identify
	Logging  Logging
	Tracing  Tracing
}

var (
	drivers         = []string{"pgx", "pq"}
	sslModes        = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}
	resolverModes   = []string{"function", "procedure"}
	validationModes = []string{"both", "any"}
	logFormats      = []string{"json", "text"}

	routineName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
)

// FromEnv builds a Config from process environment variables.
func FromEnv() (Config, error) {
	return load(env.Options{})
}

// FromMap builds a Config from an explicit variable set instead of the
// process environment.
func FromMap(vars map[string]string) (Config, error) {
	return load(env.Options{Environment: vars})
}

func load(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the rest of the process cannot act on.
func (c Config) Validate() error {
	var errs []error
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be a TCP port, got %q", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}
	errs = appendIfNotOneOf(errs, "DATABASE_DRIVER", c.Database.Driver, drivers)
	if c.Database.SSLMode != "" {
		errs = appendIfNotOneOf(errs, "DATABASE_SSL_MODE", c.Database.SSLMode, sslModes)
	}
	if c.Database.MaxConns < 0 {
		errs = append(errs, errors.New("DATABASE_MAX_CONNS must not be negative"))
	}
	errs = appendIfNotOneOf(errs, "RESOLVER_MODE", c.Resolver.Mode, resolverModes)
	if !routineName.MatchString(c.Resolver.Name) {
		errs = append(errs, fmt.Errorf("RESOLVER_NAME must be a plain or schema-qualified identifier, got %q", c.Resolver.Name))
	}
	if c.Resolver.Timeout < 0 {
		errs = append(errs, errors.New("RESOLVER_TIMEOUT must not be negative"))
	}
	errs = appendIfNotOneOf(errs, "IDENTIFY_VALIDATION", c.Identify.Validation, validationModes)
	if _, err := c.Logging.SlogLevel(); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	errs = appendIfNotOneOf(errs, "LOG_FORMAT", c.Logging.Format, logFormats)
	return errors.Join(errs...)
}

// SlogLevel parses Level as a slog level name.
func (l Logging) SlogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(l.Level))
	return level, err
}

func appendIfNotOneOf(errs []error, name, value string, allowed []string) []error {
	if slices.Contains(allowed, value) {
		return errs
	}
	return append(errs, fmt.Errorf("%s must be one of %v, got %q", name, allowed, value))
}
