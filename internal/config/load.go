package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/ytpilot/ytpilot/internal/platform"
)

// Loader resolves, parses and validates a configuration.
type Loader struct {
	detector  platform.Detector
	logger    *slog.Logger
	lookupEnv func(string) (string, bool)
	search    func() []string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithDetector sets the detector feeding the Lua platform table.
func WithDetector(d platform.Detector) LoaderOption {
	return func(l *Loader) { l.detector = d }
}

// WithLogger sets the loader's logger.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn func(string) (string, bool)) LoaderOption {
	return func(l *Loader) { l.lookupEnv = fn }
}

// WithSearchPaths replaces the default search path list.
func WithSearchPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.search = func() []string { return paths }
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		lookupEnv: os.LookupEnv,
		search:    SearchPaths,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the config at path, or the first existing search path when path
// is empty, then applies environment overrides and validates. It returns the
// file actually used, which is empty when only defaults applied.
func (l *Loader) Load(ctx context.Context, path string) (*Config, string, error) {
	resolved, err := l.resolvePath(path)
	if err != nil {
		return nil, "", err
	}

	cfg := Default()
	if resolved != "" {
		if err := l.parseFile(ctx, resolved, &cfg); err != nil {
			return nil, "", err
		}
		l.logger.Debug("loaded config", "path", resolved)
	} else {
		l.logger.Debug("no config file found, using defaults")
	}

	if err := ApplyEnv(&cfg, l.lookupEnv); err != nil {
		return nil, "", err
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolved, nil
}

func (l *Loader) resolvePath(path string) (string, error) {
	if path == "" {
		if env, ok := l.lookupEnv(EnvConfig); ok && strings.TrimSpace(env) != "" {
			path = env
		}
	}
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(expanded); err != nil {
			return "", fmt.Errorf("config file %s: %w", expanded, err)
		}
		return expanded, nil
	}

	for _, candidate := range l.search() {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return ExpandPath(candidate)
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("skipping unreadable config", "path", candidate, "error", err)
		}
	}
	return "", nil
}

func (l *Loader) parseFile(ctx context.Context, path string, cfg *Config) error {
	data, err := readConfigFile(path)
	if err != nil {
		return err
	}

	if findings := DetectSensitiveData(string(data)); len(findings) > 0 {
		for _, f := range findings {
			l.logger.Warn("possible secret in config file",
				"path", path,
				"line", f.Line,
				"kind", f.PatternName,
				"preview", f.Preview,
				"hint", "set "+EnvGitHubToken+" instead")
		}
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".lua":
		return NewParser(l.detector).parseInto(ctx, string(data), cfg)
	case ".toml":
		return decodeTOML(data, cfg)
	default:
		return fmt.Errorf("config %s: unsupported extension %q (want .lua or .toml)", path, ext)
	}
}

// decodeTOML decodes data over cfg, rejecting unknown keys.
func decodeTOML(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return &ParseError{Message: "unknown config field", Detail: strict.String(), Err: err}
		}
		var decErr *toml.DecodeError
		if errors.As(err, &decErr) {
			row, col := decErr.Position()
			return &ParseError{Message: "TOML syntax error", Detail: fmt.Sprintf("line %d, column %d: %s", row, col, decErr.Error()), Err: err}
		}
		return &ParseError{Message: "invalid TOML config", Detail: err.Error(), Err: err}
	}
	return nil
}

// EncodeTOML renders cfg as a TOML document.
func EncodeTOML(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}
