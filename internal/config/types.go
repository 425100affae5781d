package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Config is the complete ytpilot configuration.
type Config struct {
	// DataDir holds the manifest and, by default, the managed bin directory.
	DataDir string `toml:"data_dir"`

	// BinPath is where managed binaries are installed. Defaults to DataDir/bin.
	BinPath string `toml:"bin_path"`

	// Timeout for a single yt-dlp or ffmpeg run, in seconds.
	Timeout int `toml:"timeout"`

	// DownloadPath is the working directory for runs. Empty means the
	// current directory.
	DownloadPath string `toml:"download_path"`

	// InstallLock serializes installs across processes with a file lock.
	InstallLock bool `toml:"install_lock"`

	YtDlp   YtDlpConfig   `toml:"yt_dlp"`
	FFmpeg  FFmpegConfig  `toml:"ffmpeg"`
	Catalog CatalogConfig `toml:"catalog"`
	Log     LogConfig     `toml:"log"`
}

// YtDlpConfig configures the yt-dlp binary.
type YtDlpConfig struct {
	// Path to a user-supplied yt-dlp. Takes precedence over managed installs.
	Path string `toml:"path"`
	// Version hint: empty or "latest", an exact tag, or a semver constraint.
	Version string `toml:"version"`
}

// FFmpegConfig configures the ffmpeg and ffprobe pair.
type FFmpegConfig struct {
	Path      string `toml:"path"`
	ProbePath string `toml:"probe_path"`
	Version   string `toml:"version"`
	// PreferGlobal looks on PATH before the managed install.
	PreferGlobal bool `toml:"prefer_global"`
	// Enabled controls whether ffmpeg and ffprobe are provisioned at all.
	Enabled bool `toml:"enabled"`
}

// CatalogConfig points at the release catalog.
type CatalogConfig struct {
	APIBase     string `toml:"api_base"`
	Token       string `toml:"token"`
	KeyringPath string `toml:"keyring_path"`
	Retries     int    `toml:"retries"`
}

// LogConfig selects the log level and handler format.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ValidationError represents a config validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return &ValidationError{Field: "data_dir", Message: "must not be empty"}
	}
	if strings.TrimSpace(c.BinPath) == "" {
		return &ValidationError{Field: "bin_path", Message: "must not be empty"}
	}
	if c.Timeout <= 0 {
		return &ValidationError{Field: "timeout", Message: fmt.Sprintf("must be positive, got %d", c.Timeout)}
	}
	if c.Catalog.Retries < 0 {
		return &ValidationError{Field: "catalog.retries", Message: fmt.Sprintf("must not be negative, got %d", c.Catalog.Retries)}
	}
	if err := validateAPIBase(c.Catalog.APIBase); err != nil {
		return err
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return &ValidationError{Field: "log.level", Message: err.Error()}
	}
	switch c.Log.Format {
	case FormatText, FormatJSON:
	default:
		return &ValidationError{Field: "log.format", Message: fmt.Sprintf("unsupported value %q (want text or json)", c.Log.Format)}
	}
	return nil
}

func validateAPIBase(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return &ValidationError{Field: "catalog.api_base", Message: err.Error()}
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return &ValidationError{Field: "catalog.api_base", Message: fmt.Sprintf("must use http or https, got %q", raw)}
	}
	if u.Host == "" {
		return &ValidationError{Field: "catalog.api_base", Message: "missing host"}
	}
	return nil
}

// normalize expands ~ in path fields, makes them absolute and fills BinPath.
func (c *Config) normalize() error {
	var err error
	if c.DataDir, err = ExpandPath(c.DataDir); err != nil {
		return fmt.Errorf("data_dir: %w", err)
	}
	if strings.TrimSpace(c.BinPath) == "" && c.DataDir != "" {
		c.BinPath = filepath.Join(c.DataDir, "bin")
	}
	fields := []struct {
		name string
		ptr  *string
	}{
		{"bin_path", &c.BinPath},
		{"download_path", &c.DownloadPath},
		{"yt_dlp.path", &c.YtDlp.Path},
		{"ffmpeg.path", &c.FFmpeg.Path},
		{"ffmpeg.probe_path", &c.FFmpeg.ProbePath},
		{"catalog.keyring_path", &c.Catalog.KeyringPath},
	}
	for _, f := range fields {
		if *f.ptr, err = ExpandPath(*f.ptr); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Catalog.APIBase = strings.TrimRight(strings.TrimSpace(c.Catalog.APIBase), "/")
	return nil
}

// ExpandPath resolves a leading ~ to the home directory and returns an
// absolute, cleaned path. Empty input is returned unchanged.
func ExpandPath(value string) (string, error) {
	if value == "" {
		return value, nil
	}
	if strings.HasPrefix(value, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if value == "~" {
			value = home
		} else if len(value) > 1 && (value[1] == '/' || value[1] == '\\') {
			value = filepath.Join(home, value[2:])
		}
	}
	abs, err := filepath.Abs(filepath.Clean(value))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return abs, nil
}
