// Package server provides a public API for embedding the eoset dataset service.
package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/robert-malhotra/eoset/internal/api"
	"github.com/robert-malhotra/eoset/internal/asf"
	"github.com/robert-malhotra/eoset/internal/backend"
	"github.com/robert-malhotra/eoset/internal/config"
	"github.com/robert-malhotra/eoset/internal/sensors"
	"github.com/robert-malhotra/eoset/internal/stac"
)

// BackendType specifies where records are searched.
type BackendType string

const (
	// BackendRemote routes each preset to its STAC or ASF catalog, with the
	// records of DataDir as fallback.
	BackendRemote BackendType = config.BackendRemote
	// BackendMemory serves the records of DataDir only.
	BackendMemory BackendType = config.BackendMemory
)

// Options configures the eoset server.
type Options struct {
	// Backend specifies where records are searched.
	// Default: BackendRemote
	Backend BackendType

	// DataDir holds record files served from memory.
	// Default: "" (no local records)
	DataDir string

	// ASFBaseURL is the ASF Search API base URL.
	// Default: "https://api.daac.asf.alaska.edu"
	ASFBaseURL string

	// STACBaseURL is the STAC API searched by STAC presets.
	// Default: "https://earth-search.aws.element84.com/v1"
	STACBaseURL string

	// Timeout is the upstream request timeout.
	// Default: 30s
	Timeout time.Duration

	// RateLimit caps upstream requests per second for each catalog.
	// Default: 0 (unlimited)
	RateLimit float64

	// DefaultLimit is the default number of items per response.
	// Default: 10
	DefaultLimit int

	// MaxLimit is the maximum number of items per response.
	// Default: 500
	MaxLimit int

	// PresetsDir is the path to additional preset JSON files.
	// Default: "" (built-in presets only)
	PresetsDir string

	// Logger is the slog logger to use.
	// Default: slog.Default()
	Logger *slog.Logger
}

// Server is an eoset server that can be embedded in another application.
type Server struct {
	router  chi.Router
	engine  *backend.Engine
	presets *sensors.Registry
}

// New creates a new eoset server with the given options.
func New(opts Options) (*Server, error) {
	if opts.Backend == "" {
		opts.Backend = BackendRemote
	}
	if opts.ASFBaseURL == "" {
		opts.ASFBaseURL = "https://api.daac.asf.alaska.edu"
	}
	if opts.STACBaseURL == "" {
		opts.STACBaseURL = "https://earth-search.aws.element84.com/v1"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.DefaultLimit == 0 {
		opts.DefaultLimit = 10
	}
	if opts.MaxLimit == 0 {
		opts.MaxLimit = 500
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	cfg := &config.Config{
		Backend: config.BackendConfig{
			Type:    string(opts.Backend),
			DataDir: opts.DataDir,
		},
		ASF: config.ASFConfig{
			BaseURL:   opts.ASFBaseURL,
			Timeout:   opts.Timeout,
			RateLimit: opts.RateLimit,
			Burst:     1,
		},
		STAC: config.STACConfig{
			BaseURL:   opts.STACBaseURL,
			Timeout:   opts.Timeout,
			PageSize:  100,
			MaxPages:  20,
			RateLimit: opts.RateLimit,
			Burst:     1,
		},
		Presets: config.PresetsConfig{
			Dir:     opts.PresetsDir,
			Builtin: true,
		},
		API: config.APIConfig{
			DefaultLimit: opts.DefaultLimit,
			MaxLimit:     opts.MaxLimit,
		},
	}

	return FromConfig(cfg, opts.Logger)
}

// FromConfig creates a server from a loaded configuration.
func FromConfig(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	presets, err := config.LoadRegistry(cfg.Presets)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded presets", "count", presets.Count())

	catalog, err := NewCatalog(cfg, presets, logger)
	if err != nil {
		return nil, err
	}

	engine := backend.NewEngine(catalog, logger)
	handlers := api.NewHandlers(cfg.API, engine, presets, logger)
	router := api.NewRouter(handlers, cfg.API.CORSOrigins, logger)

	return &Server{
		router:  router,
		engine:  engine,
		presets: presets,
	}, nil
}

// NewCatalog builds the record catalog serving presets. With the remote
// backend, STAC presets are routed to the STAC API and ASF presets to the
// ASF Search API. Records loaded from DataDir serve every other source.
func NewCatalog(cfg *config.Config, presets *sensors.Registry, logger *slog.Logger) (backend.SearchBackend, error) {
	var fallback backend.SearchBackend
	if cfg.Backend.DataDir != "" {
		mem := backend.NewMemoryBackend(logger)
		if err := mem.LoadDir(cfg.Backend.DataDir); err != nil {
			return nil, fmt.Errorf("failed to load records: %w", err)
		}
		logger.Info("using memory catalog", "dir", cfg.Backend.DataDir, "sources", len(mem.Sources()))
		fallback = mem
	}

	if cfg.Backend.Type == config.BackendMemory {
		if fallback == nil {
			return nil, fmt.Errorf("memory backend requires a data directory")
		}
		return fallback, nil
	}

	stacSources := make(map[string]stac.Source)
	asfSources := make(map[string]backend.ASFSource)
	for _, p := range presets.All() {
		switch p.Catalog.Type {
		case sensors.CatalogSTAC:
			stacSources[p.Variant.SourceID] = stac.Source{
				Collection: p.Catalog.Collection,
				Filter:     stac.PlatformFilter(p.Catalog.Platform),
				Bands:      p.Variant.Bands,
			}
		case sensors.CatalogASF:
			src := backend.ASFSource{
				Datasets:        p.Catalog.Datasets,
				ProcessingLevel: p.Catalog.ProcessingLevel,
			}
			if p.Catalog.BeamMode != "" {
				src.BeamMode = []string{p.Catalog.BeamMode}
			}
			asfSources[p.Variant.SourceID] = src
		}
	}

	router := backend.NewRouter(fallback)

	if len(stacSources) > 0 {
		client := stac.NewClient(cfg.STAC.BaseURL, cfg.STAC.Timeout, cfg.STAC.MaxPages).
			WithLogger(logger).
			WithRateLimit(cfg.STAC.RateLimit, cfg.STAC.Burst)
		catalog := stac.NewBackend(client, stacSources, cfg.STAC.PageSize, logger)
		for id := range stacSources {
			router.Route(id, catalog)
		}
		logger.Info("using STAC catalog", "base_url", cfg.STAC.BaseURL, "sources", len(stacSources))
	}

	if len(asfSources) > 0 {
		client := asf.NewClient(cfg.ASF.BaseURL, cfg.ASF.Timeout).
			WithLogger(logger).
			WithRateLimit(cfg.ASF.RateLimit, cfg.ASF.Burst)
		catalog := backend.NewASFBackend(client, asfSources, logger)
		for id := range asfSources {
			router.Route(id, catalog)
		}
		logger.Info("using ASF catalog", "base_url", cfg.ASF.BaseURL, "sources", len(asfSources))
	}

	return router, nil
}

// Router returns the chi.Router for mounting in another application.
func (s *Server) Router() chi.Router {
	return s.router
}

// Engine returns the engine evaluating dataset plans.
func (s *Server) Engine() *backend.Engine {
	return s.engine
}

// Presets returns the registry of served presets.
func (s *Server) Presets() *sensors.Registry {
	return s.presets
}
