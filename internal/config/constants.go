package config

// Lua schema globals and field names
const (
	luaGlobalYtpilot = "ytpilot"

	luaFieldDataDir      = "data_dir"
	luaFieldBinPath      = "bin_path"
	luaFieldTimeout      = "timeout"
	luaFieldDownloadPath = "download_path"
	luaFieldInstallLock  = "install_lock"
	luaFieldYtDlp        = "yt_dlp"
	luaFieldFFmpeg       = "ffmpeg"
	luaFieldCatalog      = "catalog"
	luaFieldLog          = "log"

	luaFieldPath         = "path"
	luaFieldProbePath    = "probe_path"
	luaFieldVersion      = "version"
	luaFieldPreferGlobal = "prefer_global"
	luaFieldEnabled      = "enabled"
	luaFieldAPIBase      = "api_base"
	luaFieldToken        = "token"
	luaFieldKeyringPath  = "keyring_path"
	luaFieldRetries      = "retries"
	luaFieldLevel        = "level"
	luaFieldFormat       = "format"
)

// Environment variables read by ApplyEnv.
const (
	EnvConfig             = "YTPILOT_CONFIG"
	EnvDataDir            = "YTPILOT_DATA_DIR"
	EnvBinPath            = "YTPILOT_BIN_PATH"
	EnvTimeout            = "YTPILOT_TIMEOUT"
	EnvDownloadPath       = "YTPILOT_DOWNLOAD_PATH"
	EnvInstallLock        = "YTPILOT_INSTALL_LOCK"
	EnvYtDlpPath          = "YTPILOT_YTDLP_PATH"
	EnvYtDlpVersion       = "YTPILOT_YTDLP_VERSION"
	EnvFFmpegPath         = "YTPILOT_FFMPEG_PATH"
	EnvFFprobePath        = "YTPILOT_FFPROBE_PATH"
	EnvFFmpegVersion      = "YTPILOT_FFMPEG_VERSION"
	EnvFFmpegEnabled      = "YTPILOT_FFMPEG_ENABLED"
	EnvFFmpegPreferGlobal = "YTPILOT_FFMPEG_PREFER_GLOBAL"
	EnvAPIBase            = "YTPILOT_API_BASE"
	EnvGitHubToken        = "YTPILOT_GITHUB_TOKEN"
	EnvKeyring            = "YTPILOT_KEYRING"
	EnvLogLevel           = "YTPILOT_LOG_LEVEL"
	EnvLogFormat          = "YTPILOT_LOG_FORMAT"

	// envGitHubTokenFallback is consulted when EnvGitHubToken is unset.
	envGitHubTokenFallback = "GITHUB_TOKEN"
)
