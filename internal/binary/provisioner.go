package binary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/ytpilot/ytpilot/internal/platform"
)

// lockRetryDelay is how often a blocked installer re-tries the install lock.
const lockRetryDelay = 250 * time.Millisecond

// AssetResolver resolves a release asset. *Resolver implements it.
type AssetResolver interface {
	Resolve(ctx context.Context, name Binary, id platform.Identity, versionHint string) (ReleaseAsset, error)
}

// AssetFetcher installs a release asset into a directory. *Downloader
// implements it.
type AssetFetcher interface {
	Fetch(ctx context.Context, asset ReleaseAsset, destDir string, onProgress ProgressFunc) (string, error)
}

// State is the provisioner's view of its binary.
type State int

const (
	StateUnknown State = iota
	StateLocated
	StateMissing
	StateInstalling
	StateFailed
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateLocated:
		return "located"
	case StateMissing:
		return "missing"
	case StateInstalling:
		return "installing"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ProvisionerConfig holds the collaborators of one Provisioner
type ProvisionerConfig struct {
	Binary Binary
	// BinDir receives managed installs.
	BinDir string
	// Version is the hint used by EnsureInstalled ("" means latest).
	Version string

	Detector platform.Detector
	Resolver AssetResolver
	Fetcher  AssetFetcher
	Manifest *Manifest
	Locator  *Locator

	// InstallLock takes an advisory file lock around installs so that
	// concurrent processes download at most once.
	InstallLock bool
	// Progress, if set, receives download progress.
	Progress ProgressFunc
	Logger   *slog.Logger
}

// Provisioner guarantees one binary is available, installing it on demand.
// Calls on one Provisioner are serialised.
type Provisioner struct {
	cfg    ProvisionerConfig
	logger *slog.Logger

	mu    sync.Mutex
	state State
}

// NewProvisioner validates cfg and returns a provisioner
func NewProvisioner(cfg ProvisionerConfig) (*Provisioner, error) {
	if cfg.Binary == "" {
		return nil, fmt.Errorf("Binary is required")
	}
	if cfg.BinDir == "" {
		return nil, fmt.Errorf("BinDir is required")
	}
	if cfg.Detector == nil {
		return nil, fmt.Errorf("Detector is required")
	}
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("Resolver is required")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("Fetcher is required")
	}
	if cfg.Manifest == nil {
		return nil, fmt.Errorf("Manifest is required")
	}
	if cfg.Locator == nil {
		cfg.Locator = NewLocator(cfg.Manifest)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = discardLogger()
	}

	return &Provisioner{
		cfg:    cfg,
		logger: logger.With("binary", cfg.Binary.String()),
	}, nil
}

// Binary returns the managed binary's name
func (p *Provisioner) Binary() Binary {
	return p.cfg.Binary
}

// State returns the outcome of the most recent operation
func (p *Provisioner) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// EnsureInstalled returns an executable path for the binary. An existing
// binary (explicit path, managed install or PATH) is returned without any
// network access; otherwise the binary is resolved, downloaded and recorded.
func (p *Provisioner) EnsureInstalled(ctx context.Context, explicitPath string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if path, ok := p.cfg.Locator.Locate(p.cfg.Binary, explicitPath); ok {
		p.state = StateLocated
		return path, nil
	}
	p.state = StateMissing

	entry, err := p.install(ctx, p.cfg.Version, explicitPath, false, p.resolveHint(p.cfg.Version))
	if err != nil {
		return "", err
	}
	return entry.Path, nil
}

// Upgrade installs the release matching versionHint into the managed bin
// directory even if a binary is already present, and replaces the manifest
// entry.
func (p *Provisioner) Upgrade(ctx context.Context, versionHint string) (ManifestEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.install(ctx, versionHint, "", true, p.resolveHint(versionHint))
}

// InstallAsset installs a release that was already resolved, typically the
// Available asset of an UpdateStatus, without querying the catalog again.
// Any existing managed install is replaced.
func (p *Provisioner) InstallAsset(ctx context.Context, asset ReleaseAsset) (ManifestEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.install(ctx, asset.Version, "", true, func(context.Context, platform.Identity) (ReleaseAsset, error) {
		if asset.Binary != p.cfg.Binary {
			return ReleaseAsset{}, fmt.Errorf("asset is for %s, not %s", asset.Binary, p.cfg.Binary)
		}
		return asset, nil
	})
}

// UpdateStatus compares the managed install with the newest matching release.
type UpdateStatus struct {
	Installed       ManifestEntry
	HasInstalled    bool
	Available       ReleaseAsset
	UpdateAvailable bool
}

// CheckUpdate resolves versionHint without installing anything.
func (p *Provisioner) CheckUpdate(ctx context.Context, versionHint string) (UpdateStatus, error) {
	id, err := p.cfg.Detector.Detect(ctx)
	if err != nil {
		return UpdateStatus{}, &ProvisioningError{Binary: p.cfg.Binary, Step: "detect", Err: err}
	}

	asset, err := p.cfg.Resolver.Resolve(ctx, p.cfg.Binary, id, versionHint)
	if err != nil {
		return UpdateStatus{}, &ProvisioningError{Binary: p.cfg.Binary, Platform: id.ID(), Step: "resolve", Err: err}
	}

	status := UpdateStatus{Available: asset}
	status.Installed, status.HasInstalled = p.cfg.Manifest.IsInstalled(p.cfg.Binary)
	status.UpdateAvailable = !status.HasInstalled || status.Installed.Version != asset.Version
	return status, nil
}

// Uninstall removes the managed install and its manifest entry. Binaries
// outside the managed bin directory are never deleted.
func (p *Provisioner) Uninstall() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	entries, err := p.cfg.Manifest.Load()
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}

	if entry, ok := entries[p.cfg.Binary]; ok && isWithin(p.cfg.BinDir, entry.Path) {
		if err := os.Remove(entry.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", entry.Path, err)
		}
		p.logger.Info("removed managed binary", "path", entry.Path)
	}

	if err := p.cfg.Manifest.Remove(p.cfg.Binary); err != nil {
		return fmt.Errorf("update manifest: %w", err)
	}
	p.state = StateUnknown
	return nil
}

// resolveFunc produces the release asset to install for a platform.
type resolveFunc func(ctx context.Context, id platform.Identity) (ReleaseAsset, error)

// resolveHint returns a resolve step that queries the catalog for versionHint.
func (p *Provisioner) resolveHint(versionHint string) resolveFunc {
	return func(ctx context.Context, id platform.Identity) (ReleaseAsset, error) {
		return p.cfg.Resolver.Resolve(ctx, p.cfg.Binary, id, versionHint)
	}
}

// install runs detect, lock, resolve, download and record. Without force a
// binary that appeared while waiting for the lock is returned as is.
func (p *Provisioner) install(ctx context.Context, versionHint, explicitPath string, force bool, resolve resolveFunc) (entry ManifestEntry, err error) {
	p.state = StateInstalling
	defer func() {
		if err != nil {
			p.state = StateFailed
		} else {
			p.state = StateLocated
		}
	}()

	name := p.cfg.Binary
	fail := func(platformID, step string, err error) (ManifestEntry, error) {
		p.logger.Error("provisioning failed", "platform", platformID, "step", step, "error", err)
		return ManifestEntry{}, &ProvisioningError{Binary: name, Platform: platformID, Step: step, Err: err}
	}

	id, err := p.cfg.Detector.Detect(ctx)
	if err != nil {
		return fail("", "detect", err)
	}
	platformID := id.ID()

	if p.cfg.InstallLock {
		unlock, err := p.acquireLock(ctx)
		if err != nil {
			return fail(platformID, "lock", err)
		}
		defer unlock()

		if !force {
			if path, ok := p.cfg.Locator.Locate(name, explicitPath); ok {
				p.logger.Debug("installed by another process", "path", path)
				return ManifestEntry{Binary: name, Path: path}, nil
			}
		}
	}

	p.logger.Info("installing", "platform", platformID, "version", versionOrLatest(versionHint))

	asset, err := resolve(ctx, id)
	if err != nil {
		return fail(platformID, "resolve", err)
	}

	path, err := p.cfg.Fetcher.Fetch(ctx, asset, p.cfg.BinDir, p.cfg.Progress)
	if err != nil {
		return fail(platformID, "download", err)
	}

	entry = ManifestEntry{
		Binary:   name,
		Version:  asset.Version,
		Path:     path,
		Platform: platformID,
	}
	if asset.Checksum != "" {
		sum := asset.Checksum
		entry.Checksum = &sum
	}
	if err := p.cfg.Manifest.RecordInstall(entry); err != nil {
		return fail(platformID, "manifest", err)
	}

	if recorded, ok := p.cfg.Manifest.IsInstalled(name); ok {
		entry = recorded
	}
	return entry, nil
}

// acquireLock blocks until the per-binary install lock is held.
func (p *Provisioner) acquireLock(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(p.cfg.BinDir, 0755); err != nil {
		return nil, fmt.Errorf("create bin dir: %w", err)
	}

	lockPath := filepath.Join(p.cfg.BinDir, "."+p.cfg.Binary.String()+".lock")
	fl := flock.New(lockPath)

	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", lockPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("acquire %s: lock not obtained", lockPath)
	}

	return func() {
		if err := fl.Unlock(); err != nil {
			p.logger.Warn("failed to release install lock", "path", lockPath, "error", err)
		}
	}, nil
}

// isWithin reports whether target lies inside dir.
func isWithin(dir, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(target))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func versionOrLatest(v string) string {
	if v == "" {
		return "latest"
	}
	return v
}
