package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/image-extractor/internal/domain"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, domain.FormatJPEG, cfg.Output.Format)
	assert.Equal(t, domain.DestinationNextToOriginals, cfg.Output.Destination)
	assert.False(t, cfg.Metadata.Enabled)
	assert.False(t, cfg.OCR.Enabled)
	assert.Equal(t, 1, cfg.Pipeline.Workers)
	assert.Equal(t, "[minor]", cfg.Metadata.MinorWarning.StderrMarker)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Output, cfg.Output)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
output:
  format: tif
  destination: custom_directory
  directory: out
metadata:
  enabled: true
  fields:
    heading:
      enabled: true
      include_document_name: true
      custom_text: Annual report
      placement: append
pipeline:
  workers: 4
history:
  path: history.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, domain.FormatTIFF, cfg.Output.Format)
	assert.Equal(t, filepath.Join(dir, "out"), cfg.Output.Directory)
	assert.Equal(t, filepath.Join(dir, "history.db"), cfg.History.Path)
	assert.Equal(t, 4, cfg.Pipeline.Workers)

	meta := cfg.MetadataConfiguration()
	assert.True(t, meta.Enabled)
	heading := meta.Field(domain.FieldHeading)
	assert.True(t, heading.Enabled)
	assert.Equal(t, "Annual report", heading.CustomText)
	assert.Equal(t, domain.PlacementAppend, heading.Placement)

	// fields not named in the file keep their defaults
	assert.True(t, meta.Field(domain.FieldKeywords).Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("IMAGE_EXTRACTOR_FORMAT", "jxl")
	t.Setenv("IMAGE_EXTRACTOR_OCR", "true")
	t.Setenv("IMAGE_EXTRACTOR_OCR_LANGUAGES", "eng, deu")
	t.Setenv("IMAGE_EXTRACTOR_OUTPUT_DIR", "/tmp/extracted")
	t.Setenv("IMAGE_EXTRACTOR_EXIFTOOL", "/opt/exiftool/bin/exiftool")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, domain.FormatJPEGXL, cfg.Output.Format)
	assert.True(t, cfg.OCR.Enabled)
	assert.Equal(t, []string{"eng", "deu"}, cfg.OCR.Languages)
	assert.Equal(t, domain.DestinationCustomDirectory, cfg.Output.Destination)
	assert.Equal(t, "/tmp/extracted", cfg.Output.Directory)
	assert.Equal(t, "/opt/exiftool/bin/exiftool", cfg.Tools.ExifTool[0])
}

func TestLoad_InvalidEnvValue(t *testing.T) {
	t.Setenv("IMAGE_EXTRACTOR_WORKERS", "many")

	_, err := Load("")
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeConfig))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeConfig))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "unknown format",
			mutate: func(c *Config) { c.Output.Format = "gif" },
			errMsg: "unknown export format",
		},
		{
			name:   "custom destination without directory",
			mutate: func(c *Config) { c.Output.Destination = domain.DestinationCustomDirectory },
			errMsg: "output directory is required",
		},
		{
			name:   "unknown destination",
			mutate: func(c *Config) { c.Output.Destination = "desktop" },
			errMsg: "invalid output destination",
		},
		{
			name: "unknown field",
			mutate: func(c *Config) {
				c.Metadata.Fields["subtitle"] = domain.FieldConfig{Enabled: true}
			},
			errMsg: "unknown metadata field",
		},
		{
			name: "bad placement",
			mutate: func(c *Config) {
				c.Metadata.Fields[domain.FieldHeading] = domain.FieldConfig{Placement: "middle"}
			},
			errMsg: "invalid placement",
		},
		{
			name:   "dpi out of range",
			mutate: func(c *Config) { c.OCR.DPI = 10 },
			errMsg: "ocr dpi",
		},
		{
			name: "ocr without languages",
			mutate: func(c *Config) {
				c.OCR.Enabled = true
				c.OCR.Languages = nil
			},
			errMsg: "ocr languages",
		},
		{
			name:   "zero workers",
			mutate: func(c *Config) { c.Pipeline.Workers = 0 },
			errMsg: "workers must be between",
		},
		{
			name:   "history without path",
			mutate: func(c *Config) { c.History.Path = "" },
			errMsg: "history path is required",
		},
		{
			name:   "log format",
			mutate: func(c *Config) { c.Observability.LogFormat = "xml" },
			errMsg: "invalid log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestMetadataConfiguration_DefaultsEmptyPlacement(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metadata.Fields[domain.FieldCopyright] = domain.FieldConfig{Enabled: true, CustomText: "ACME"}

	meta := cfg.MetadataConfiguration()
	assert.Equal(t, domain.PlacementPrepend, meta.Field(domain.FieldCopyright).Placement)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Output.Format = domain.FormatTIFF
	cfg.Metadata.Enabled = true
	cfg.History.Path = "/var/lib/image-extractor/history.db"

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, domain.FormatTIFF, loaded.Output.Format)
	assert.True(t, loaded.Metadata.Enabled)
	assert.Equal(t, cfg.Metadata.MinorWarning, loaded.Metadata.MinorWarning)
}

func TestResolveTools_MissingToolsAreEmpty(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tools.PDFImages = []string{"/nonexistent/pdfimages"}

	tools := cfg.ResolveTools()
	assert.Empty(t, tools.PDFImages)
}

func TestResolveRelativePath(t *testing.T) {
	assert.Equal(t, "/abs/file.db", ResolveRelativePath("/etc/app/config.yaml", "/abs/file.db"))
	assert.Equal(t, "/etc/app/file.db", ResolveRelativePath("/etc/app/config.yaml", "file.db"))
}
