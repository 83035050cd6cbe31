package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected default host 0.0.0.0, got %s", cfg.Server.Host)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}

	if cfg.Backend.Type != BackendRemote {
		t.Errorf("expected default backend %s, got %s", BackendRemote, cfg.Backend.Type)
	}

	if cfg.ASF.BaseURL != "https://api.daac.asf.alaska.edu" {
		t.Errorf("expected default ASF base URL, got %s", cfg.ASF.BaseURL)
	}

	if cfg.STAC.PageSize != 100 {
		t.Errorf("expected default STAC page size 100, got %d", cfg.STAC.PageSize)
	}

	if !cfg.Presets.Builtin {
		t.Error("expected built-in presets to be enabled by default")
	}

	if cfg.API.DefaultLimit != 10 {
		t.Errorf("expected default limit 10, got %d", cfg.API.DefaultLimit)
	}

	if len(cfg.API.CORSOrigins) != 1 || cfg.API.CORSOrigins[0] != "*" {
		t.Errorf("expected default CORS origins [*], got %v", cfg.API.CORSOrigins)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level info, got %s", cfg.Logging.Level)
	}
}

func TestLoadWithCustomValues(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_READ_TIMEOUT", "60s")
	t.Setenv("BACKEND_TYPE", "memory")
	t.Setenv("BACKEND_DATA_DIR", dataDir)
	t.Setenv("ASF_TIMEOUT", "45s")
	t.Setenv("STAC_MAX_PAGES", "3")
	t.Setenv("API_DEFAULT_LIMIT", "25")
	t.Setenv("API_MAX_LIMIT", "100")
	t.Setenv("API_CORS_ORIGINS", "https://a.example.com,https://b.example.com")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}

	if cfg.Server.ReadTimeout != 60*time.Second {
		t.Errorf("expected read timeout 60s, got %s", cfg.Server.ReadTimeout)
	}

	if cfg.Backend.Type != BackendMemory || cfg.Backend.DataDir != dataDir {
		t.Errorf("expected memory backend over %s, got %+v", dataDir, cfg.Backend)
	}

	if cfg.ASF.Timeout != 45*time.Second {
		t.Errorf("expected ASF timeout 45s, got %s", cfg.ASF.Timeout)
	}

	if cfg.STAC.MaxPages != 3 {
		t.Errorf("expected STAC max pages 3, got %d", cfg.STAC.MaxPages)
	}

	if cfg.API.DefaultLimit != 25 || cfg.API.MaxLimit != 100 {
		t.Errorf("expected limits 25/100, got %d/%d", cfg.API.DefaultLimit, cfg.API.MaxLimit)
	}

	if len(cfg.API.CORSOrigins) != 2 {
		t.Errorf("expected 2 CORS origins, got %v", cfg.API.CORSOrigins)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}

	if cfg.Logging.Format != "text" {
		t.Errorf("expected log format text, got %s", cfg.Logging.Format)
	}
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv("BACKEND_TYPE", "cmr")

	if _, err := Load(); err == nil {
		t.Error("expected error for unknown backend type")
	}
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Backend: BackendConfig{Type: BackendRemote},
		ASF: ASFConfig{
			BaseURL: "https://api.daac.asf.alaska.edu",
			Timeout: 30 * time.Second,
		},
		STAC: STACConfig{
			BaseURL:  "https://earth-search.aws.element84.com/v1",
			Timeout:  30 * time.Second,
			PageSize: 100,
			MaxPages: 20,
		},
		Presets: PresetsConfig{Builtin: true},
		API: APIConfig{
			DefaultLimit: 10,
			MaxLimit:     500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantError bool
	}{
		{
			name:   "valid config",
			modify: func(*Config) {},
		},
		{
			name: "memory backend with data dir",
			modify: func(c *Config) {
				c.Backend = BackendConfig{Type: BackendMemory, DataDir: "/data"}
				c.STAC.BaseURL = ""
			},
		},
		{
			name:      "memory backend without data dir",
			modify:    func(c *Config) { c.Backend.Type = BackendMemory },
			wantError: true,
		},
		{
			name:      "invalid port",
			modify:    func(c *Config) { c.Server.Port = 0 },
			wantError: true,
		},
		{
			name:      "invalid read timeout",
			modify:    func(c *Config) { c.Server.ReadTimeout = 0 },
			wantError: true,
		},
		{
			name:      "invalid shutdown timeout",
			modify:    func(c *Config) { c.Server.ShutdownTimeout = -time.Second },
			wantError: true,
		},
		{
			name:      "unknown backend type",
			modify:    func(c *Config) { c.Backend.Type = "asf" },
			wantError: true,
		},
		{
			name:      "missing ASF base URL",
			modify:    func(c *Config) { c.ASF.BaseURL = "" },
			wantError: true,
		},
		{
			name:      "missing STAC base URL",
			modify:    func(c *Config) { c.STAC.BaseURL = "" },
			wantError: true,
		},
		{
			name:      "invalid STAC page size",
			modify:    func(c *Config) { c.STAC.PageSize = 0 },
			wantError: true,
		},
		{
			name:      "no presets",
			modify:    func(c *Config) { c.Presets.Builtin = false },
			wantError: true,
		},
		{
			name: "presets from directory only",
			modify: func(c *Config) {
				c.Presets = PresetsConfig{Dir: "/presets"}
			},
		},
		{
			name:      "invalid default limit",
			modify:    func(c *Config) { c.API.DefaultLimit = 0 },
			wantError: true,
		},
		{
			name:      "max limit less than default limit",
			modify:    func(c *Config) { c.API.MaxLimit = 5 },
			wantError: true,
		},
		{
			name:      "invalid log level",
			modify:    func(c *Config) { c.Logging.Level = "trace" },
			wantError: true,
		},
		{
			name:      "invalid log format",
			modify:    func(c *Config) { c.Logging.Format = "xml" },
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantError && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantError && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestServerConfigAddress(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		port     int
		expected string
	}{
		{
			name:     "default",
			host:     "0.0.0.0",
			port:     8080,
			expected: "0.0.0.0:8080",
		},
		{
			name:     "localhost",
			host:     "localhost",
			port:     3000,
			expected: "localhost:3000",
		},
		{
			name:     "empty host",
			host:     "",
			port:     9090,
			expected: ":9090",
		},
		{
			name:     "ipv6",
			host:     "::1",
			port:     8080,
			expected: "[::1]:8080",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ServerConfig{Host: tt.host, Port: tt.port}
			if got := cfg.Address(); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestMain(m *testing.M) {
	for _, key := range []string{"SERVER_PORT", "BACKEND_TYPE", "BACKEND_DATA_DIR", "PRESETS_DIR", "PRESETS_BUILTIN", "LOG_LEVEL", "LOG_FORMAT"} {
		os.Unsetenv(key)
	}
	os.Exit(m.Run())
}

func TestLoggingConfigSlogLevel(t *testing.T) {
	tests := []struct {
		level   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", 0, true},
		{"INFO+2", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := LoggingConfig{Level: tt.level, Format: "json"}
			got, err := cfg.SlogLevel()
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for level %q", tt.level)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("SlogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.STAC.PageSize = 0
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"port", "page size", "log format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}
