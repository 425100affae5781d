package binary

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/ytpilot/ytpilot/internal/platform"
)

// Manager wires the shared provisioning components and owns one Provisioner
// per managed binary.
type Manager struct {
	binDir        string
	detector      platform.Detector
	manifest      *Manifest
	locator       *Locator
	resolver      *Resolver
	downloader    *Downloader
	provisioners  map[Binary]*Provisioner
	paths         map[Binary]string
	ffmpegEnabled bool
	logger        *slog.Logger
}

// Config holds configuration for the binary manager
type Config struct {
	// DataDir is the application data root; the manifest lives here.
	DataDir string
	// BinDir receives managed installs (default: DataDir/bin).
	BinDir string

	// Detector reports the host platform (default: platform.NewDetector()).
	Detector platform.Detector

	// APIBase overrides the releases API root, for mirrors and tests.
	APIBase string
	// HTTPClient overrides the client for both catalog and downloads.
	HTTPClient *http.Client
	// Token is sent as a bearer token to the catalog.
	Token string
	// KeyringPath enables GPG verification of checksum lists.
	KeyringPath string
	// Retries overrides the download retry count when positive.
	Retries int

	// Versions holds per-binary version hints ("" means latest).
	Versions map[Binary]string
	// Paths holds per-binary explicit executable paths.
	Paths map[Binary]string
	// PreferSystem lists binaries for which PATH wins over managed installs.
	PreferSystem []Binary
	// FFmpegEnabled includes ffmpeg and ffprobe in EnsureInstalled.
	FFmpegEnabled bool
	// InstallLock serialises installs across processes.
	InstallLock bool

	// Progress, if set, returns the progress callback for a binary.
	Progress func(Binary) ProgressFunc
	Logger   *slog.Logger
}

// NewManager creates a new binary manager
func NewManager(config Config) (*Manager, error) {
	if config.DataDir == "" {
		return nil, fmt.Errorf("DataDir is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = discardLogger()
	}

	binDir := config.BinDir
	if binDir == "" {
		binDir = filepath.Join(config.DataDir, "bin")
	}

	detector := config.Detector
	if detector == nil {
		detector = platform.NewDetector()
	}

	keyring, err := LoadKeyring(config.KeyringPath)
	if err != nil {
		return nil, fmt.Errorf("load keyring: %w", err)
	}
	verifier := NewVerifier(keyring)

	catalogClient := config.HTTPClient
	if catalogClient == nil {
		catalogClient = NewHTTPClient(config.Token)
	}

	manifest := NewManifest(filepath.Join(binDir, ManifestFileName), WithManifestLogger(logger))
	locator := NewLocator(manifest,
		WithPreferSystem(config.PreferSystem...),
		WithLocatorLogger(logger))
	resolver := NewResolver(
		WithAPIBase(config.APIBase),
		WithHTTPClient(catalogClient),
		WithVerifier(verifier),
		WithResolverLogger(logger))

	downloaderOpts := []DownloaderOption{WithDownloaderLogger(logger)}
	if config.HTTPClient != nil {
		downloaderOpts = append(downloaderOpts, WithDownloadClient(config.HTTPClient))
	}
	if config.Retries > 0 {
		downloaderOpts = append(downloaderOpts, WithRetries(config.Retries))
	}
	downloader := NewDownloader(downloaderOpts...)

	m := &Manager{
		binDir:        binDir,
		detector:      detector,
		manifest:      manifest,
		locator:       locator,
		resolver:      resolver,
		downloader:    downloader,
		provisioners:  make(map[Binary]*Provisioner, len(Binaries)),
		paths:         make(map[Binary]string, len(config.Paths)),
		ffmpegEnabled: config.FFmpegEnabled,
		logger:        logger,
	}
	for name, p := range config.Paths {
		m.paths[name] = p
	}

	for _, name := range Binaries {
		var progress ProgressFunc
		if config.Progress != nil {
			progress = config.Progress(name)
		}

		prov, err := NewProvisioner(ProvisionerConfig{
			Binary:      name,
			BinDir:      binDir,
			Version:     config.Versions[name],
			Detector:    detector,
			Resolver:    resolver,
			Fetcher:     downloader,
			Manifest:    manifest,
			Locator:     locator,
			InstallLock: config.InstallLock,
			Progress:    progress,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s provisioner: %w", name, err)
		}
		m.provisioners[name] = prov
	}

	return m, nil
}

// Provisioner returns the provisioner for name
func (m *Manager) Provisioner(name Binary) (*Provisioner, error) {
	prov, ok := m.provisioners[name]
	if !ok {
		return nil, fmt.Errorf("unknown binary: %s", name)
	}
	return prov, nil
}

// Required lists the binaries EnsureInstalled provisions.
func (m *Manager) Required() []Binary {
	if m.ffmpegEnabled {
		return []Binary{BinaryYtDlp, BinaryFFmpeg, BinaryFFprobe}
	}
	return []Binary{BinaryYtDlp}
}

// Ensure provisions a single binary, honouring its configured explicit path.
func (m *Manager) Ensure(ctx context.Context, name Binary) (string, error) {
	prov, err := m.Provisioner(name)
	if err != nil {
		return "", err
	}
	return prov.EnsureInstalled(ctx, m.paths[name])
}

// EnsureInstalled provisions yt-dlp and, when enabled, ffmpeg and ffprobe.
// It stops at the first failure.
func (m *Manager) EnsureInstalled(ctx context.Context) (map[Binary]string, error) {
	paths := make(map[Binary]string)
	for _, name := range m.Required() {
		p, err := m.Ensure(ctx, name)
		if err != nil {
			return paths, err
		}
		paths[name] = p
	}
	return paths, nil
}

// Locate finds name without installing it
func (m *Manager) Locate(name Binary, explicitPath string) (string, Source, bool) {
	if explicitPath == "" {
		explicitPath = m.paths[name]
	}
	return m.locator.LocateWithSource(name, explicitPath)
}

// Installed returns the manifest contents
func (m *Manager) Installed() (map[Binary]ManifestEntry, error) {
	return m.manifest.Load()
}

// Healthy reports whether a manifest entry still points to an executable
func (m *Manager) Healthy(entry ManifestEntry) bool {
	return isExecutableFile(entry.Path)
}

// Platform returns the detected host identity
func (m *Manager) Platform(ctx context.Context) (platform.Identity, error) {
	return m.detector.Detect(ctx)
}

// Resolver returns the shared release resolver
func (m *Manager) Resolver() *Resolver {
	return m.resolver
}

// BinDir returns the managed bin directory
func (m *Manager) BinDir() string {
	return m.binDir
}

// ManifestPath returns the manifest file location
func (m *Manager) ManifestPath() string {
	return m.manifest.Path()
}
