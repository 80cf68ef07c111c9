package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Environment selects environment-dependent defaults.
type Environment string

const (
	EnvDev  Environment = "DEV"
	EnvTest Environment = "TEST"
	EnvSeed Environment = "SEED"
	EnvProd Environment = "PROD"
)

const devJWTSecret = "rlinks-dev-secret-change-in-production"

// Config holds all application configuration. It is built once at startup
// and handed to constructors; nothing reads the environment afterwards.
type Config struct {
	App           AppConfig
	Server        ServerConfig
	Database      DatabaseConfig
	Links         LinksConfig
	Auth          AuthConfig
	Observability ObservabilityConfig
}

// AppConfig holds process-wide settings.
type AppConfig struct {
	Environment Environment `envconfig:"APP_ENV" default:"DEV"`
	LogLevel    string      `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string      `envconfig:"LOG_FORMAT" default:"json"`
	StaticDir   string      `envconfig:"STATIC_DIR" default:"./web/dist"`
}

// Validate validates the app configuration.
func (c *AppConfig) Validate() error {
	switch c.Environment {
	case EnvDev, EnvTest, EnvSeed, EnvProd:
	default:
		return fmt.Errorf("invalid environment: %s (must be one of: DEV, TEST, SEED, PROD)", c.Environment)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.LogFormat)
	}
	return nil
}

// SlogLevel converts LogLevel for the slog handler.
func (c AppConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsDevelopment is true for the environments the test suites run against.
func (c AppConfig) IsDevelopment() bool {
	return c.Environment == EnvDev || c.Environment == EnvTest
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 || c.IdleTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

// Addr is the listen address.
func (c ServerConfig) Addr() string {
	return ":" + c.Port
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver   string `envconfig:"DB_DRIVER" default:"sqlite"`
	DSN      string `envconfig:"DB_DSN"`
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER"`
	Password string `envconfig:"DB_PASSWORD"`
	Name     string `envconfig:"DB_NAME" default:"rlinks"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	LogSQL   bool   `envconfig:"DB_LOG" default:"false"`
}

// Validate validates the database configuration.
func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case "sqlite":
	case "postgres":
		if c.DSN == "" && (c.Host == "" || c.User == "" || c.Name == "") {
			return fmt.Errorf("postgres requires DB_DSN or DB_HOST, DB_USER and DB_NAME")
		}
	default:
		return fmt.Errorf("invalid database driver: %s (must be sqlite or postgres)", c.Driver)
	}
	return nil
}

// ConnectionString returns the DSN handed to the gorm driver.
func (c DatabaseConfig) ConnectionString() string {
	if c.DSN != "" {
		return c.DSN
	}
	if c.Driver == "sqlite" {
		return "rlinks.db"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// LinksConfig holds the shortening and listing knobs.
type LinksConfig struct {
	PageSize       int           `envconfig:"PAGE_SIZE" default:"0"`
	ShortKeyLength int           `envconfig:"SHORT_KEY_LENGTH" default:"7"`
	KeyAttempts    int           `envconfig:"SHORT_KEY_ATTEMPTS" default:"5"`
	PreviewEnabled bool          `envconfig:"PREVIEW_ENABLED" default:"true"`
	PreviewTimeout time.Duration `envconfig:"PREVIEW_TIMEOUT" default:"3s"`
}

// Validate validates the links configuration.
func (c *LinksConfig) Validate() error {
	if c.PageSize < 0 {
		return fmt.Errorf("page size cannot be negative")
	}
	if c.ShortKeyLength < 4 || c.ShortKeyLength > 64 {
		return fmt.Errorf("short key length must be between 4 and 64, got %d", c.ShortKeyLength)
	}
	if c.KeyAttempts <= 0 {
		return fmt.Errorf("short key attempts must be positive")
	}
	if c.PreviewTimeout <= 0 {
		return fmt.Errorf("preview timeout must be positive")
	}
	return nil
}

// AuthConfig holds token and password hashing configuration.
type AuthConfig struct {
	JWTSecret  string        `envconfig:"JWT_SECRET"`
	TokenTTL   time.Duration `envconfig:"JWT_TTL" default:"24h"`
	BcryptCost int           `envconfig:"BCRYPT_COST" default:"10"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	// bcrypt.MinCost..bcrypt.MaxCost
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost must be between 4 and 31, got %d", c.BcryptCost)
	}
	return nil
}

// ObservabilityConfig holds configuration for tracing/metrics.
type ObservabilityConfig struct {
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
	TracingEnabled bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTelEndpoint   string `envconfig:"OTEL_ENDPOINT" default:"127.0.0.1:4317"`
	ServiceName    string `envconfig:"OTEL_SERVICE_NAME" default:"rlinks"`
}

// Validate validates the observability configuration.
func (c *ObservabilityConfig) Validate() error {
	if c.TracingEnabled && c.OTelEndpoint == "" {
		return fmt.Errorf("OTEL endpoint is required when tracing is enabled")
	}
	return nil
}

// Load loads configuration from environment variables only.
// (.env loading happens in main, not here.)
func Load() (*Config, error) {
	cfg := &Config{}

	sections := []struct {
		name     string
		target   any
		validate func() error
	}{
		{"App", &cfg.App, cfg.App.Validate},
		{"Server", &cfg.Server, cfg.Server.Validate},
		{"Database", &cfg.Database, cfg.Database.Validate},
		{"Links", &cfg.Links, cfg.Links.Validate},
		{"Auth", &cfg.Auth, cfg.Auth.Validate},
		{"Observability", &cfg.Observability, cfg.Observability.Validate},
	}
	for _, s := range sections {
		if err := envconfig.Process("", s.target); err != nil {
			return nil, fmt.Errorf("failed to load %s config: %w", s.name, err)
		}
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("invalid %s config: %w", s.name, err)
		}
	}

	if err := cfg.applyEnvironmentDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvironmentDefaults() error {
	if c.Links.PageSize == 0 {
		c.Links.PageSize = DefaultPageSize(c.App.Environment)
	}
	if c.Auth.JWTSecret == "" {
		if c.App.Environment == EnvProd {
			return fmt.Errorf("invalid Auth config: JWT_SECRET is required in PROD")
		}
		c.Auth.JWTSecret = devJWTSecret
	}
	return nil
}

// DefaultPageSize is smaller outside production so pagination is easy to exercise.
func DefaultPageSize(env Environment) int {
	if env == EnvDev || env == EnvTest {
		return 5
	}
	return 10
}
