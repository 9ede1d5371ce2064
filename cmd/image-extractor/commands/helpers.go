package commands

import (
	"os"
	"path/filepath"

	"github.com/spherical/image-extractor/internal/config"
)

// defaultConfigPath is where config init writes and where the CLI looks when
// --config is not given.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "image-extractor.yaml"
	}
	return filepath.Join(dir, "image-extractor", "config.yaml")
}

// loadConfig loads --config, falling back to the default location when it
// exists and to built-in defaults otherwise.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat(defaultConfigPath()); err == nil {
			path = defaultConfigPath()
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Observability.LogLevel = "debug"
	}
	return cfg, nil
}
