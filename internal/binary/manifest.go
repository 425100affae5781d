package binary

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// ManifestFileName is the manifest's file name inside the data directory
const ManifestFileName = "manifest.json"

// ManifestEntry records one managed installation.
type ManifestEntry struct {
	Binary      Binary    `json:"-"`
	Version     string    `json:"version"`
	Path        string    `json:"path"`
	InstalledAt time.Time `json:"installedAt"`
	Checksum    *string   `json:"checksum"`
	Platform    string    `json:"platform,omitempty"`
}

// Manifest is the persisted record of managed installations, a JSON object
// keyed by binary name. Reads tolerate a missing or corrupt file; writes
// replace the file atomically.
type Manifest struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
	now    func() time.Time
}

// ManifestOption configures a Manifest
type ManifestOption func(*Manifest)

// WithManifestLogger sets the manifest's logger
func WithManifestLogger(logger *slog.Logger) ManifestOption {
	return func(m *Manifest) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock overrides the time source used for InstalledAt
func WithClock(now func() time.Time) ManifestOption {
	return func(m *Manifest) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManifest returns a manifest stored at path
func NewManifest(path string, opts ...ManifestOption) *Manifest {
	m := &Manifest{
		path:   path,
		logger: discardLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Path returns the manifest file location
func (m *Manifest) Path() string {
	return m.path
}

// Load reads every entry. A missing or unparsable file yields an empty map;
// only unexpected read failures are returned as errors.
func (m *Manifest) Load() (map[Binary]ManifestEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load()
}

func (m *Manifest) load() (map[Binary]ManifestEntry, error) {
	entries := make(map[Binary]ManifestEntry)

	data, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return entries, fmt.Errorf("read manifest: %w", err)
	}

	var raw map[string]ManifestEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		m.logger.Warn("manifest is unreadable, treating it as empty", "path", m.path, "error", err)
		return entries, nil
	}

	for name, entry := range raw {
		entry.Binary = Binary(name)
		entries[entry.Binary] = entry
	}
	return entries, nil
}

// RecordInstall inserts or replaces the entry for entry.Binary. A zero
// InstalledAt is set to the current time.
func (m *Manifest) RecordInstall(entry ManifestEntry) error {
	if entry.Binary == "" {
		return fmt.Errorf("manifest entry has no binary name")
	}
	if entry.Path == "" {
		return fmt.Errorf("manifest entry for %s has no path", entry.Binary)
	}
	if entry.InstalledAt.IsZero() {
		entry.InstalledAt = m.now()
	}
	entry.InstalledAt = entry.InstalledAt.UTC().Truncate(time.Second)

	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.load()
	if err != nil {
		m.logger.Warn("rewriting manifest from scratch", "path", m.path, "error", err)
	}
	entries[entry.Binary] = entry

	return m.write(entries)
}

// IsInstalled returns the entry for name if it points to an executable
// file. Stale entries are reported absent.
func (m *Manifest) IsInstalled(name Binary) (ManifestEntry, bool) {
	entries, err := m.Load()
	if err != nil {
		m.logger.Warn("manifest read failed", "path", m.path, "error", err)
		return ManifestEntry{}, false
	}

	entry, ok := entries[name]
	if !ok {
		return ManifestEntry{}, false
	}
	if !isExecutableFile(entry.Path) {
		m.logger.Debug("manifest entry is stale", "binary", name, "path", entry.Path)
		return ManifestEntry{}, false
	}
	return entry, true
}

// Remove deletes the entry for name. Removing an absent entry is not an
// error.
func (m *Manifest) Remove(name Binary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.load()
	if err != nil {
		return err
	}
	if _, ok := entries[name]; !ok {
		return nil
	}
	delete(entries, name)

	return m.write(entries)
}

// write replaces the manifest file: temp file in the same directory, fsync,
// rename.
func (m *Manifest) write(entries map[Binary]ManifestEntry) error {
	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}

	raw := make(map[string]ManifestEntry, len(entries))
	for name, entry := range entries {
		raw[string(name)] = entry
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(m.path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpPath := tmp.Name()

	cleanupNeeded := true
	defer func() {
		if cleanupNeeded {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp manifest: %w", err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		os.Remove(tmpPath)
		cleanupNeeded = false
		return fmt.Errorf("rename manifest: %w", err)
	}
	cleanupNeeded = false
	return nil
}

// SortedEntries returns entries ordered by binary name.
func SortedEntries(entries map[Binary]ManifestEntry) []ManifestEntry {
	out := make([]ManifestEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Binary < out[j].Binary })
	return out
}
