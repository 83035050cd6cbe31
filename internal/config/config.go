// Package config loads the eoset service configuration and dataset presets.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config is the service configuration, read from environment variables.
type Config struct {
	Server  ServerConfig  `envPrefix:"SERVER_"`
	Backend BackendConfig `envPrefix:"BACKEND_"`
	ASF     ASFConfig     `envPrefix:"ASF_"`
	STAC    STACConfig    `envPrefix:"STAC_"`
	Presets PresetsConfig `envPrefix:"PRESETS_"`
	API     APIConfig     `envPrefix:"API_"`
	Logging LoggingConfig `envPrefix:"LOG_"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Backend types.
const (
	BackendMemory = "memory"
	BackendRemote = "remote"
)

// BackendConfig selects the catalog records are searched in.
type BackendConfig struct {
	// Type is "memory" to serve records from DataDir only, or "remote" to
	// route presets to their STAC or ASF catalog with DataDir as fallback.
	Type    string `env:"TYPE" envDefault:"remote"`
	DataDir string `env:"DATA_DIR"`
}

// ASFConfig configures the ASF Search client used by SAR presets.
type ASFConfig struct {
	BaseURL   string        `env:"BASE_URL" envDefault:"https://api.daac.asf.alaska.edu"`
	Timeout   time.Duration `env:"TIMEOUT" envDefault:"30s"`
	RateLimit float64       `env:"RATE_LIMIT" envDefault:"5"`
	Burst     int           `env:"BURST" envDefault:"5"`
}

// STACConfig configures the STAC API client used by optical presets.
type STACConfig struct {
	BaseURL   string        `env:"BASE_URL" envDefault:"https://earth-search.aws.element84.com/v1"`
	Timeout   time.Duration `env:"TIMEOUT" envDefault:"30s"`
	PageSize  int           `env:"PAGE_SIZE" envDefault:"100"`
	MaxPages  int           `env:"MAX_PAGES" envDefault:"20"`
	RateLimit float64       `env:"RATE_LIMIT" envDefault:"10"`
	Burst     int           `env:"BURST" envDefault:"10"`
}

// PresetsConfig controls which dataset presets are served.
type PresetsConfig struct {
	// Dir holds additional preset JSON files. Empty means none.
	Dir     string `env:"DIR"`
	Builtin bool   `env:"BUILTIN" envDefault:"true"`
}

// APIConfig contains limits applied by the HTTP API.
type APIConfig struct {
	DefaultLimit int      `env:"DEFAULT_LIMIT" envDefault:"10"`
	MaxLimit     int      `env:"MAX_LIMIT" envDefault:"500"`
	CORSOrigins  []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate reports every invalid setting, joined into one error.
func (c *Config) Validate() error {
	errs := []error{c.Server.validate(), c.Backend.validate()}
	if c.Backend.Type == BackendRemote {
		errs = append(errs, c.ASF.validate(), c.STAC.validate())
	}
	if !c.Presets.Builtin && c.Presets.Dir == "" {
		errs = append(errs, errors.New("no presets: set PRESETS_DIR or enable PRESETS_BUILTIN"))
	}
	errs = append(errs, c.API.validate(), c.Logging.validate())
	return errors.Join(errs...)
}

func (s *ServerConfig) validate() error {
	var errs []error
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port %d out of range 1-65535", s.Port))
	}
	for name, d := range map[string]time.Duration{
		"read":     s.ReadTimeout,
		"write":    s.WriteTimeout,
		"shutdown": s.ShutdownTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("server %s timeout must be positive, got %s", name, d))
		}
	}
	return errors.Join(errs...)
}

func (b *BackendConfig) validate() error {
	switch b.Type {
	case BackendRemote:
		return nil
	case BackendMemory:
		if b.DataDir == "" {
			return errors.New("memory backend requires BACKEND_DATA_DIR")
		}
		return nil
	default:
		return fmt.Errorf("backend type must be %q or %q, got %q", BackendMemory, BackendRemote, b.Type)
	}
}

func (a *ASFConfig) validate() error {
	var errs []error
	if a.BaseURL == "" {
		errs = append(errs, errors.New("ASF_BASE_URL is empty"))
	}
	if a.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("ASF timeout must be positive, got %s", a.Timeout))
	}
	return errors.Join(errs...)
}

func (s *STACConfig) validate() error {
	var errs []error
	if s.BaseURL == "" {
		errs = append(errs, errors.New("STAC_BASE_URL is empty"))
	}
	if s.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("STAC timeout must be positive, got %s", s.Timeout))
	}
	if s.PageSize < 1 {
		errs = append(errs, fmt.Errorf("STAC page size must be at least 1, got %d", s.PageSize))
	}
	if s.MaxPages < 0 {
		errs = append(errs, fmt.Errorf("STAC max pages must not be negative, got %d", s.MaxPages))
	}
	return errors.Join(errs...)
}

func (a *APIConfig) validate() error {
	if a.DefaultLimit < 1 {
		return fmt.Errorf("default limit must be at least 1, got %d", a.DefaultLimit)
	}
	if a.MaxLimit < a.DefaultLimit {
		return fmt.Errorf("max limit %d is below the default limit %d", a.MaxLimit, a.DefaultLimit)
	}
	return nil
}

func (l *LoggingConfig) validate() error {
	var errs []error
	if _, err := l.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if l.Format != "json" && l.Format != "text" {
		errs = append(errs, fmt.Errorf("log format %q is not json or text", l.Format))
	}
	return errors.Join(errs...)
}

// SlogLevel parses Level as one of debug, info, warn or error.
func (l *LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	switch l.Level {
	case "debug", "info", "warn", "error":
		return level, level.UnmarshalText([]byte(l.Level))
	}
	return level, fmt.Errorf("log level %q is not debug, info, warn or error", l.Level)
}

// Address returns the listen address as host:port.
func (s *ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
