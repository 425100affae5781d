package config

import (
	"os"
	"path/filepath"
)

const (
	defaultTimeout = 300
	defaultAPIBase = "https://api.github.com"
	appName        = "ytpilot"
)

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		DataDir:     defaultDataDir(),
		Timeout:     defaultTimeout,
		InstallLock: true,
		FFmpeg: FFmpegConfig{
			Enabled: true,
		},
		Catalog: CatalogConfig{
			APIBase: defaultAPIBase,
		},
		Log: LogConfig{
			Level:  "info",
			Format: FormatText,
		},
	}
}

// defaultDataDir is <UserConfigDir>/ytpilot, or ./.ytpilot when the user
// config directory cannot be determined.
func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return "." + appName
	}
	return filepath.Join(base, appName)
}

// SearchPaths lists the config files tried, in order, when no path is given.
func SearchPaths() []string {
	paths := []string{
		appName + ".lua",
		appName + ".toml",
	}
	if base, err := os.UserConfigDir(); err == nil && base != "" {
		paths = append(paths,
			filepath.Join(base, appName, "config.lua"),
			filepath.Join(base, appName, "config.toml"),
		)
	}
	return paths
}
