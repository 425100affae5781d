package main

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/ytpilot/ytpilot/internal/binary"
	"github.com/ytpilot/ytpilot/internal/config"
	"github.com/ytpilot/ytpilot/internal/platform"
)

type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	dataDir    string
}

type commandContext struct {
	flags globalFlags

	detector   platform.Detector
	httpClient *http.Client
	lookupEnv  func(string) (string, bool)

	configOnce sync.Once
	config     *config.Config
	configPath string
	logger     *slog.Logger
	configErr  error
}

type contextOption func(*commandContext)

// withDetector replaces host detection, for tests.
func withDetector(d platform.Detector) contextOption {
	return func(c *commandContext) { c.detector = d }
}

// withHTTPClient replaces the catalog and download client, for tests.
func withHTTPClient(client *http.Client) contextOption {
	return func(c *commandContext) { c.httpClient = client }
}

func newCommandContext(opts ...contextOption) *commandContext {
	c := &commandContext{lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ensureConfig loads the configuration once. Precedence, lowest first:
// defaults, config file, environment, command-line flags.
func (c *commandContext) ensureConfig(cmd *cobra.Command) (*config.Config, error) {
	c.configOnce.Do(func() {
		overrides := map[string]string{
			config.EnvDataDir:   c.flags.dataDir,
			config.EnvLogLevel:  c.flags.logLevel,
			config.EnvLogFormat: c.flags.logFormat,
		}
		lookup := func(key string) (string, bool) {
			if v := strings.TrimSpace(overrides[key]); v != "" {
				return v, true
			}
			return c.lookupEnv(key)
		}

		loader := config.NewLoader(
			config.WithDetector(c.platformDetector()),
			config.WithLookupEnv(lookup))
		cfg, path, err := loader.Load(cmd.Context(), strings.TrimSpace(c.flags.configPath))
		if err != nil {
			c.configErr = err
			return
		}

		logger, err := config.NewLogger(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
		if err != nil {
			c.configErr = err
			return
		}
		if path != "" {
			logger.Debug("using config file", "path", path)
		}

		c.config = cfg
		c.configPath = path
		c.logger = logger
	})
	return c.config, c.configErr
}

func (c *commandContext) platformDetector() platform.Detector {
	if c.detector == nil {
		c.detector = platform.NewDetector()
	}
	return c.detector
}

// newManager builds a binary manager from the loaded configuration.
func (c *commandContext) newManager(cmd *cobra.Command, progress func(binary.Binary) binary.ProgressFunc) (*binary.Manager, error) {
	cfg, err := c.ensureConfig(cmd)
	if err != nil {
		return nil, err
	}
	return binary.NewManager(managerConfig(cfg, c.platformDetector(), c.httpClient, c.logger, progress))
}

// managerConfig maps the user configuration onto the manager's settings.
func managerConfig(cfg *config.Config, detector platform.Detector, client *http.Client, logger *slog.Logger, progress func(binary.Binary) binary.ProgressFunc) binary.Config {
	paths := make(map[binary.Binary]string)
	for name, p := range map[binary.Binary]string{
		binary.BinaryYtDlp:   cfg.YtDlp.Path,
		binary.BinaryFFmpeg:  cfg.FFmpeg.Path,
		binary.BinaryFFprobe: cfg.FFmpeg.ProbePath,
	} {
		if p != "" {
			paths[name] = p
		}
	}

	var preferSystem []binary.Binary
	if cfg.FFmpeg.PreferGlobal {
		preferSystem = []binary.Binary{binary.BinaryFFmpeg, binary.BinaryFFprobe}
	}

	return binary.Config{
		DataDir:     cfg.DataDir,
		BinDir:      cfg.BinPath,
		Detector:    detector,
		APIBase:     cfg.Catalog.APIBase,
		HTTPClient:  client,
		Token:       cfg.Catalog.Token,
		KeyringPath: cfg.Catalog.KeyringPath,
		Retries:     cfg.Catalog.Retries,
		Versions: map[binary.Binary]string{
			binary.BinaryYtDlp:   cfg.YtDlp.Version,
			binary.BinaryFFmpeg:  cfg.FFmpeg.Version,
			binary.BinaryFFprobe: cfg.FFmpeg.Version,
		},
		Paths:         paths,
		PreferSystem:  preferSystem,
		FFmpegEnabled: cfg.FFmpeg.Enabled,
		InstallLock:   cfg.InstallLock,
		Progress:      progress,
		Logger:        logger,
	}
}

// parseTargets expands command arguments into binaries. No argument or "all"
// means every required binary; "ffmpeg" brings ffprobe along.
func parseTargets(args []string, required []binary.Binary) ([]binary.Binary, error) {
	if len(args) == 0 {
		return required, nil
	}

	seen := make(map[binary.Binary]bool)
	var out []binary.Binary
	add := func(names ...binary.Binary) {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}

	for _, arg := range args {
		if strings.EqualFold(arg, "all") {
			add(required...)
			continue
		}
		name, err := binary.ParseBinary(arg)
		if err != nil {
			return nil, err
		}
		if name == binary.BinaryFFmpeg {
			add(binary.BinaryFFmpeg, binary.BinaryFFprobe)
			continue
		}
		add(name)
	}
	return out, nil
}
