// Package binary provisions the external executables ytpilot drives: yt-dlp,
// ffmpeg and ffprobe.
//
// # Locating
//
// A Locator answers "where is this binary?" without network access, in
// precedence order:
//   - an explicit path from configuration, if it is an executable file
//   - the managed install recorded in the manifest
//   - the first match on the system PATH
//
// # Installing
//
// On a miss, a Provisioner detects the platform, asks the Resolver for the
// matching release asset, lets the Downloader fetch, verify and unpack it into
// the managed bin directory, and records the result in the Manifest. An
// advisory file lock keeps concurrent processes from downloading twice; the
// final atomic rename keeps a half-written binary from ever being visible.
//
// # Verification
//
// Assets are checked against a SHA-256 digest taken from the release metadata
// or from the release's checksum list. When a GPG keyring is configured, the
// checksum list's detached signature is verified first.
//
// # Usage
//
//	mgr, err := binary.NewManager(binary.Config{
//	    DataDir:       dataDir,
//	    FFmpegEnabled: true,
//	    InstallLock:   true,
//	})
//	if err != nil {
//	    return err
//	}
//
//	paths, err := mgr.EnsureInstalled(ctx)
//	if err != nil {
//	    return err
//	}
//	ytdlp := paths[binary.BinaryYtDlp]
//
// # Errors
//
// Failures are typed (UnsupportedPlatformError, ResolutionError,
// DownloadError, IntegrityError, BinaryNotFoundError, ProvisioningError) and
// match the package sentinels through errors.Is. Retryable separates transient
// failures from fatal ones.
package binary
