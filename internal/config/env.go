package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ApplyEnv overrides cfg with YTPILOT_* variables read through lookup.
// Empty values are ignored.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	strs := []struct {
		key string
		dst *string
	}{
		{EnvDataDir, &cfg.DataDir},
		{EnvBinPath, &cfg.BinPath},
		{EnvDownloadPath, &cfg.DownloadPath},
		{EnvYtDlpPath, &cfg.YtDlp.Path},
		{EnvYtDlpVersion, &cfg.YtDlp.Version},
		{EnvFFmpegPath, &cfg.FFmpeg.Path},
		{EnvFFprobePath, &cfg.FFmpeg.ProbePath},
		{EnvFFmpegVersion, &cfg.FFmpeg.Version},
		{EnvAPIBase, &cfg.Catalog.APIBase},
		{EnvKeyring, &cfg.Catalog.KeyringPath},
		{EnvLogLevel, &cfg.Log.Level},
		{EnvLogFormat, &cfg.Log.Format},
	}
	for _, s := range strs {
		if v, ok := get(s.key); ok {
			*s.dst = v
		}
	}

	if v, ok := get(EnvGitHubToken); ok {
		cfg.Catalog.Token = v
	} else if v, ok := get(envGitHubTokenFallback); ok && cfg.Catalog.Token == "" {
		cfg.Catalog.Token = v
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{EnvInstallLock, &cfg.InstallLock},
		{EnvFFmpegEnabled, &cfg.FFmpeg.Enabled},
		{EnvFFmpegPreferGlobal, &cfg.FFmpeg.PreferGlobal},
	}
	for _, b := range bools {
		if v, ok := get(b.key); ok {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: invalid boolean %q", b.key, v)
			}
			*b.dst = parsed
		}
	}

	if v, ok := get(EnvTimeout); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", EnvTimeout, v)
		}
		cfg.Timeout = n
	}
	return nil
}
