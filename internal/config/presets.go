package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/robert-malhotra/eoset/internal/collection"
	"github.com/robert-malhotra/eoset/internal/dataset"
	"github.com/robert-malhotra/eoset/internal/sensors"
)

// PresetConfig is the JSON form of a dataset preset, loaded from the presets
// directory.
type PresetConfig struct {
	ID          string                   `json:"id"`
	Title       string                   `json:"title"`
	Description string                   `json:"description"`
	SourceID    string                   `json:"source_id"`
	Bands       []string                 `json:"bands"`
	Rename      []collection.BandMapping `json:"rename,omitempty"`

	// QA names a registered quality-assessment policy. Empty means none.
	QA      string          `json:"qa,omitempty"`
	Catalog sensors.Catalog `json:"catalog"`
}

// ToPreset converts the configuration into a preset, resolving its QA
// policy.
func (c *PresetConfig) ToPreset() (sensors.Preset, error) {
	if err := validatePreset(c); err != nil {
		return sensors.Preset{}, err
	}

	p := sensors.Preset{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Variant: dataset.Variant{
			Name:     c.ID,
			SourceID: c.SourceID,
			Bands:    c.Bands,
			Rename:   c.Rename,
		},
		Catalog: c.Catalog,
	}
	if c.QA != "" {
		qa, _ := sensors.QA(c.QA)
		p.Variant.QA = &qa
	}
	return p, nil
}

// LoadPresets loads preset definitions from JSON files in the specified
// directory. Only files with a .json extension are processed.
func LoadPresets(presetsDir string) ([]sensors.Preset, error) {
	info, err := os.Stat(presetsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to access presets directory %q: %w", presetsDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("presets path %q is not a directory", presetsDir)
	}

	entries, err := os.ReadDir(presetsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets directory %q: %w", presetsDir, err)
	}

	var presets []sensors.Preset
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		filename := entry.Name()
		if !strings.HasSuffix(strings.ToLower(filename), ".json") {
			continue
		}

		filePath := filepath.Join(presetsDir, filename)
		p, err := loadPresetFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load preset from %q: %w", filePath, err)
		}
		presets = append(presets, p)
	}

	if len(presets) == 0 {
		return nil, fmt.Errorf("no preset files found in %q", presetsDir)
	}

	return presets, nil
}

// LoadRegistry builds the preset registry described by cfg: the built-in
// presets when enabled, followed by those in cfg.Dir.
func LoadRegistry(cfg PresetsConfig) (*sensors.Registry, error) {
	var presets []sensors.Preset
	if cfg.Builtin {
		presets = append(presets, sensors.Builtin()...)
	}
	if cfg.Dir != "" {
		loaded, err := LoadPresets(cfg.Dir)
		if err != nil {
			return nil, err
		}
		presets = append(presets, loaded...)
	}

	registry, err := sensors.NewRegistry(presets...)
	if err != nil {
		return nil, fmt.Errorf("failed to build preset registry: %w", err)
	}
	return registry, nil
}

// loadPresetFile loads a single preset configuration from a JSON file.
func loadPresetFile(filePath string) (sensors.Preset, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return sensors.Preset{}, fmt.Errorf("failed to read file: %w", err)
	}

	var cfg PresetConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return sensors.Preset{}, fmt.Errorf("failed to parse JSON: %w", err)
	}

	p, err := cfg.ToPreset()
	if err != nil {
		return sensors.Preset{}, fmt.Errorf("invalid preset configuration: %w", err)
	}
	return p, nil
}

// validatePreset checks that a preset configuration is valid.
func validatePreset(c *PresetConfig) error {
	if c.ID == "" {
		return fmt.Errorf("preset ID is required")
	}

	if c.Title == "" {
		return fmt.Errorf("preset title is required")
	}

	if c.SourceID == "" {
		return fmt.Errorf("preset source_id is required")
	}

	if len(c.Bands) == 0 {
		return fmt.Errorf("preset must list at least one band")
	}

	known := make(map[string]bool, len(c.Bands))
	for _, b := range c.Bands {
		known[b] = true
	}
	for i, m := range c.Rename {
		if !known[m.From] {
			return fmt.Errorf("rename[%d] references unknown band %q", i, m.From)
		}
		if m.To == "" {
			return fmt.Errorf("rename[%d] has an empty target", i)
		}
	}

	if c.QA != "" {
		if _, ok := sensors.QA(c.QA); !ok {
			return fmt.Errorf("unknown qa policy %q, must be one of: %s", c.QA, strings.Join(sensors.QANames(), ", "))
		}
	}

	switch c.Catalog.Type {
	case "":
	case sensors.CatalogSTAC:
		if c.Catalog.Collection == "" {
			return fmt.Errorf("stac catalog requires a collection")
		}
	case sensors.CatalogASF:
		if len(c.Catalog.Datasets) == 0 {
			return fmt.Errorf("asf catalog requires at least one dataset")
		}
	default:
		return fmt.Errorf("catalog type must be %q or %q, got %q", sensors.CatalogSTAC, sensors.CatalogASF, c.Catalog.Type)
	}

	return nil
}
