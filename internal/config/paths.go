package config

import (
	"os"
	"path/filepath"
)

// HomePath returns the root directory for todoia data.
// It uses $TODOIA_PATH if set, otherwise defaults to ~/.todoia.
func HomePath() string {
	if v := os.Getenv("TODOIA_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".todoia")
	}
	return filepath.Join(home, ".todoia")
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(HomePath(), "config.jsonc")
}

// DotenvPath returns the path to the .env file.
func DotenvPath() string {
	return filepath.Join(HomePath(), ".env")
}
