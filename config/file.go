package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// AppName is the application name used for XDG directory paths.
const AppName = "pmnprobe"

// DefaultConfigFile is the config file name looked up in the working directory.
const DefaultConfigFile = ".pmnprobe.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return ErrConfigNotFound
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// FindConfigFile searches for the configuration file in the following order:
//  1. configPath, if specified
//  2. .pmnprobe.yaml in the current directory
//  3. $XDG_CONFIG_HOME/pmnprobe/config.yaml
//
// Returns "" when nothing is found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	p := filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}
