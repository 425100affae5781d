package binary

import (
	"log/slog"
	"os/exec"
)

// Source says which precedence level a located binary came from.
type Source string

const (
	SourceExplicit Source = "explicit"
	SourceManifest Source = "managed"
	SourceSystem   Source = "system"
)

// Locator resolves a binary name to an executable path without touching the
// network. Precedence: explicit path, managed install, system PATH. With
// PreferSystem the last two swap.
type Locator struct {
	manifest     *Manifest
	lookPath     func(file string) (string, error)
	preferSystem map[Binary]bool
	logger       *slog.Logger
}

// LocatorOption configures a Locator
type LocatorOption func(*Locator)

// WithPreferSystem makes PATH win over the managed install for names.
func WithPreferSystem(names ...Binary) LocatorOption {
	return func(l *Locator) {
		for _, n := range names {
			l.preferSystem[n] = true
		}
	}
}

// WithLookPath replaces the PATH search, for tests
func WithLookPath(lookPath func(file string) (string, error)) LocatorOption {
	return func(l *Locator) {
		if lookPath != nil {
			l.lookPath = lookPath
		}
	}
}

// WithLocatorLogger sets the locator's logger
func WithLocatorLogger(logger *slog.Logger) LocatorOption {
	return func(l *Locator) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLocator creates a locator over manifest. A nil manifest skips the
// managed level.
func NewLocator(manifest *Manifest, opts ...LocatorOption) *Locator {
	l := &Locator{
		manifest:     manifest,
		lookPath:     exec.LookPath,
		preferSystem: make(map[Binary]bool),
		logger:       discardLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Locate returns an executable path for name, or false if no level has one.
func (l *Locator) Locate(name Binary, explicitPath string) (string, bool) {
	p, _, ok := l.LocateWithSource(name, explicitPath)
	return p, ok
}

// LocateWithSource is Locate that also reports the winning level.
func (l *Locator) LocateWithSource(name Binary, explicitPath string) (string, Source, bool) {
	if explicitPath != "" {
		if isExecutableFile(explicitPath) {
			return explicitPath, SourceExplicit, true
		}
		l.logger.Warn("configured path is not an executable file, falling back",
			"binary", name, "path", explicitPath)
	}

	levels := []func(Binary) (string, bool){l.fromManifest, l.fromSystem}
	sources := []Source{SourceManifest, SourceSystem}
	if l.preferSystem[name] {
		levels[0], levels[1] = levels[1], levels[0]
		sources[0], sources[1] = sources[1], sources[0]
	}

	for i, level := range levels {
		if p, ok := level(name); ok {
			l.logger.Debug("located binary", "binary", name, "path", p, "source", sources[i])
			return p, sources[i], true
		}
	}
	return "", "", false
}

// Require is Locate returning *BinaryNotFoundError on a miss.
func (l *Locator) Require(name Binary, explicitPath string) (string, error) {
	if p, ok := l.Locate(name, explicitPath); ok {
		return p, nil
	}
	return "", &BinaryNotFoundError{Binary: name, ExplicitPath: explicitPath}
}

func (l *Locator) fromManifest(name Binary) (string, bool) {
	if l.manifest == nil {
		return "", false
	}
	entry, ok := l.manifest.IsInstalled(name)
	if !ok {
		return "", false
	}
	return entry.Path, true
}

func (l *Locator) fromSystem(name Binary) (string, bool) {
	p, err := l.lookPath(name.String())
	if err != nil || p == "" {
		return "", false
	}
	return p, true
}
