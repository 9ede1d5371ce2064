// Package config provides configuration loading for the image extractor.
// Supports YAML files, .env files, environment variables and programmatic
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/spherical/image-extractor/internal/domain"
	"github.com/spherical/image-extractor/internal/metadata"
	"github.com/spherical/image-extractor/internal/toolpath"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "IMAGE_EXTRACTOR_"

// Config holds all configuration for the image extractor.
type Config struct {
	Output        OutputConfig        `yaml:"output"`
	Metadata      MetadataConfig      `yaml:"metadata"`
	OCR           OCRConfig           `yaml:"ocr"`
	Tools         ToolsConfig         `yaml:"tools"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	History       HistoryConfig       `yaml:"history"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// OutputConfig selects the export format and where output directories go.
type OutputConfig struct {
	Format      domain.ExportFormat      `yaml:"format"`
	Destination domain.OutputDestination `yaml:"destination"`
	Directory   string                   `yaml:"directory"`
}

// MetadataConfig holds the field configuration and tagging tool behaviour.
type MetadataConfig struct {
	Enabled      bool                                    `yaml:"enabled"`
	Fields       map[domain.FieldName]domain.FieldConfig `yaml:"fields"`
	MinorWarning metadata.MinorWarning                   `yaml:"minor_warning"`
}

// OCRConfig holds text recognition settings.
type OCRConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Languages []string `yaml:"languages"`
	DPI       float64  `yaml:"dpi"`
}

// ToolsConfig lists candidate locations for each external executable.
type ToolsConfig struct {
	PDFImages []string `yaml:"pdfimages"`
	ExifTool  []string `yaml:"exiftool"`
	Unzip     []string `yaml:"unzip"`
	// TempDir holds scratch space for container unpacking; empty uses the
	// system default.
	TempDir string `yaml:"temp_dir"`
}

// PipelineConfig holds orchestrator settings.
type PipelineConfig struct {
	Workers int `yaml:"workers"`
}

// HistoryConfig holds run history settings.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// ResolvedTools holds executable paths. Empty means not found.
type ResolvedTools struct {
	PDFImages string
	ExifTool  string
	Unzip     string
}

// Load reads configuration from a YAML file and applies environment overrides.
// An empty path uses defaults. Variables from a .env file in the working
// directory are loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, domain.ConfigError("read config file", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, domain.ConfigError("parse config file", err)
		}

		// accept aliases such as "jpg" or "jxl" in the file
		if f, err := domain.ParseExportFormat(string(cfg.Output.Format)); err == nil {
			cfg.Output.Format = f
		}

		if cfg.History.Path != "" {
			cfg.History.Path = ResolveRelativePath(path, cfg.History.Path)
		}
		if cfg.Output.Directory != "" {
			cfg.Output.Directory = ResolveRelativePath(path, cfg.Output.Directory)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, domain.ConfigError("validate config", err)
	}

	return cfg, nil
}

// DefaultConfig returns the shipped defaults: JPEG output next to the
// originals, metadata and OCR off.
func DefaultConfig() *Config {
	meta := domain.DefaultMetadataConfiguration()

	return &Config{
		Output: OutputConfig{
			Format:      domain.FormatJPEG,
			Destination: domain.DestinationNextToOriginals,
		},
		Metadata: MetadataConfig{
			Enabled:      meta.Enabled,
			Fields:       meta.Fields,
			MinorWarning: metadata.DefaultMinorWarning(),
		},
		OCR: OCRConfig{
			Enabled:   false,
			Languages: []string{"eng", "nor", "dan", "swe", "deu", "fra"},
			DPI:       300,
		},
		Tools: ToolsConfig{
			PDFImages: append([]string(nil), toolpath.PDFImagesCandidates...),
			ExifTool:  append([]string(nil), toolpath.ExifToolCandidates...),
			Unzip:     append([]string(nil), toolpath.UnzipCandidates...),
		},
		Pipeline: PipelineConfig{
			Workers: 1,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    defaultHistoryPath(),
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "console",
		},
	}
}

func defaultHistoryPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "image-extractor", "history.db")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := domain.ParseExportFormat(string(c.Output.Format)); err != nil {
		return err
	}

	switch c.Output.Destination {
	case domain.DestinationNextToOriginals:
	case domain.DestinationCustomDirectory:
		if strings.TrimSpace(c.Output.Directory) == "" {
			return fmt.Errorf("output directory is required for destination %s", c.Output.Destination)
		}
	default:
		return fmt.Errorf("invalid output destination: %s", c.Output.Destination)
	}

	for name, field := range c.Metadata.Fields {
		if !knownField(name) {
			return fmt.Errorf("unknown metadata field: %s", name)
		}
		switch field.Placement {
		case "", domain.PlacementPrepend, domain.PlacementAppend:
		default:
			return fmt.Errorf("invalid placement for %s: %s", name, field.Placement)
		}
	}

	if c.OCR.DPI < 72 || c.OCR.DPI > 1200 {
		return fmt.Errorf("ocr dpi must be between 72 and 1200, got %v", c.OCR.DPI)
	}
	if c.OCR.Enabled && len(c.OCR.Languages) == 0 {
		return fmt.Errorf("ocr languages cannot be empty")
	}

	if c.Pipeline.Workers < 1 || c.Pipeline.Workers > 32 {
		return fmt.Errorf("workers must be between 1 and 32, got %d", c.Pipeline.Workers)
	}

	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history path is required when history is enabled")
	}

	if c.Observability.LogFormat != "json" && c.Observability.LogFormat != "console" {
		return fmt.Errorf("invalid log format: %s", c.Observability.LogFormat)
	}

	return nil
}

func knownField(name domain.FieldName) bool {
	for _, f := range domain.FieldNames {
		if f == name {
			return true
		}
	}
	return false
}

// MetadataConfiguration returns the field configuration used by the
// metadata stage.
func (c *Config) MetadataConfiguration() domain.MetadataConfiguration {
	fields := make(map[domain.FieldName]domain.FieldConfig, len(c.Metadata.Fields))
	for k, v := range c.Metadata.Fields {
		if v.Placement == "" {
			v.Placement = domain.PlacementPrepend
		}
		fields[k] = v
	}
	return domain.MetadataConfiguration{Enabled: c.Metadata.Enabled, Fields: fields}
}

// ResolveTools locates every executable. Missing tools resolve to "" and are
// reported by the stage that needs them.
func (c *Config) ResolveTools() ResolvedTools {
	var r ResolvedTools
	r.PDFImages, _ = toolpath.Locate(c.Tools.PDFImages)
	r.ExifTool, _ = toolpath.Locate(c.Tools.ExifTool)
	r.Unzip, _ = toolpath.Locate(c.Tools.Unzip)
	return r
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return domain.ConfigError("encode config", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return domain.IOError(fmt.Sprintf("create config directory for %s", path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return domain.IOError(fmt.Sprintf("write config %s", path), err)
	}
	return nil
}

// applyEnvOverrides applies IMAGE_EXTRACTOR_* environment variables to cfg.
func applyEnvOverrides(cfg *Config) error {
	if v := env("FORMAT"); v != "" {
		f, err := domain.ParseExportFormat(v)
		if err != nil {
			return domain.ConfigError(EnvPrefix+"FORMAT", err)
		}
		cfg.Output.Format = f
	}

	if v := env("OUTPUT_DIR"); v != "" {
		cfg.Output.Destination = domain.DestinationCustomDirectory
		cfg.Output.Directory = v
	}

	if v := env("METADATA"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return domain.ConfigError(EnvPrefix+"METADATA", err)
		}
		cfg.Metadata.Enabled = b
	}

	if v := env("OCR"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return domain.ConfigError(EnvPrefix+"OCR", err)
		}
		cfg.OCR.Enabled = b
	}

	if v := env("OCR_LANGUAGES"); v != "" {
		cfg.OCR.Languages = splitList(v)
	}

	if v := env("WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return domain.ConfigError(EnvPrefix+"WORKERS", err)
		}
		cfg.Pipeline.Workers = n
	}

	// explicit tool paths are tried before the configured candidates
	if v := env("PDFIMAGES"); v != "" {
		cfg.Tools.PDFImages = append([]string{v}, cfg.Tools.PDFImages...)
	}
	if v := env("EXIFTOOL"); v != "" {
		cfg.Tools.ExifTool = append([]string{v}, cfg.Tools.ExifTool...)
	}
	if v := env("UNZIP"); v != "" {
		cfg.Tools.Unzip = append([]string{v}, cfg.Tools.Unzip...)
	}

	if v := env("HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}

	if v := env("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := env("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}

	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + key))
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ResolveRelativePath resolves a path relative to the config file location.
func ResolveRelativePath(configPath, targetPath string) string {
	if filepath.IsAbs(targetPath) {
		return targetPath
	}
	configDir := filepath.Dir(configPath)
	return filepath.Join(configDir, targetPath)
}
