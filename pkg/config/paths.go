package config

import (
	"os"
	"path/filepath"
)

const (
	defaultConfigDirName = "certmailer"
	defaultConfigFile    = "config.json"
)

// DefaultConfigPath resolves the config file location: the CERTMAILER_CONFIG
// environment variable wins, then the platform user config dir, then a
// dotfile under the home directory.
func DefaultConfigPath() string {
	if env := os.Getenv("CERTMAILER_CONFIG"); env != "" {
		return env
	}
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName, defaultConfigFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".certmailer", defaultConfigFile)
}
