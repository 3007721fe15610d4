package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file
	EnvConfigPath = "LANSCOPE_CONFIG"
	// ConfigFileName is looked up in the working directory
	ConfigFileName = "lanscope.yaml"
	// ConfigDirName is the per-user and system config directory
	ConfigDirName = "lanscope"

	configBaseName = "config.yaml"
	systemDir      = "/etc"
)

// SearchPaths lists the config candidates in lookup order. A scan is usually
// run from a checkout or a scratch directory, so the working directory comes
// right after the explicit override and before the per-user location.
func SearchPaths() []string {
	var paths []string
	if p := os.Getenv(EnvConfigPath); p != "" {
		paths = append(paths, p)
	}
	paths = append(paths, ConfigFileName)
	// UserConfigDir honors XDG_CONFIG_HOME and falls back to ~/.config on Linux
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, ConfigDirName, configBaseName))
	}
	return append(paths, filepath.Join(systemDir, ConfigDirName, configBaseName))
}

// FindConfigPath returns the first existing candidate from SearchPaths, made
// absolute when possible, or "" when none exists. Directories are skipped.
func FindConfigPath() string {
	for _, p := range SearchPaths() {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
		return p
	}
	return ""
}

// EnsureConfigDir creates the directory that will hold configPath
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0o755)
}
