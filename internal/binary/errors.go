package binary

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is. Every typed error below matches exactly one of
// them (UnsupportedPlatformError also matches ErrResolution).
var (
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrResolution          = errors.New("release resolution failed")
	ErrDownload            = errors.New("download failed")
	ErrIntegrity           = errors.New("integrity check failed")
	ErrBinaryNotFound      = errors.New("binary not found")
	ErrProvisioning        = errors.New("provisioning failed")
)

// UnsupportedPlatformError reports that a release has no asset usable on the
// platform. It is fatal: retrying will not make an asset appear.
type UnsupportedPlatformError struct {
	Binary   Binary
	Platform string
	Version  string   // release tag that was searched, empty if none was fetched
	Tried    []string // candidate asset names, in preference order
}

func (e *UnsupportedPlatformError) Error() string {
	msg := fmt.Sprintf("no %s release asset for platform %s", e.Binary, e.Platform)
	if e.Version != "" {
		msg += " in release " + e.Version
	}
	if len(e.Tried) > 0 {
		msg += " (tried " + strings.Join(e.Tried, ", ") + ")"
	}
	return msg
}

// Is matches ErrUnsupportedPlatform and ErrResolution.
func (e *UnsupportedPlatformError) Is(target error) bool {
	return target == ErrUnsupportedPlatform || target == ErrResolution
}

// ResolutionError reports a catalog that could not be reached or read, or a
// requested version that does not exist.
type ResolutionError struct {
	Binary   Binary
	Platform string
	Version  string
	Err      error
}

func (e *ResolutionError) Error() string {
	version := e.Version
	if version == "" {
		version = "latest"
	}
	return fmt.Sprintf("resolve %s %s for %s: %v", e.Binary, version, e.Platform, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Is matches ErrResolution.
func (e *ResolutionError) Is(target error) bool { return target == ErrResolution }

// DownloadError reports a network, transfer or disk failure while fetching an
// asset. No partial files are left behind.
type DownloadError struct {
	Binary Binary
	URL    string
	Err    error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s from %s: %v", e.Binary, e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// Is matches ErrDownload.
func (e *DownloadError) Is(target error) bool { return target == ErrDownload }

// IntegrityError reports a checksum or signature mismatch.
type IntegrityError struct {
	Binary   Binary
	File     string
	Expected string
	Actual   string
	Err      error // set for signature failures
}

func (e *IntegrityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("verify %s (%s): %v", e.Binary, e.File, e.Err)
	}
	return fmt.Sprintf("checksum mismatch for %s (%s):\nactual:   %s\nexpected: %s",
		e.Binary, e.File, e.Actual, e.Expected)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// Is matches ErrIntegrity.
func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrity }

// BinaryNotFoundError reports that every locator precedence level came up
// empty.
type BinaryNotFoundError struct {
	Binary       Binary
	ExplicitPath string
}

func (e *BinaryNotFoundError) Error() string {
	if e.ExplicitPath != "" {
		return fmt.Sprintf("%s not found (explicit path %s is missing or not executable, no managed install, not on PATH)",
			e.Binary, e.ExplicitPath)
	}
	return fmt.Sprintf("%s not found (no managed install, not on PATH)", e.Binary)
}

// Is matches ErrBinaryNotFound.
func (e *BinaryNotFoundError) Is(target error) bool { return target == ErrBinaryNotFound }

// ProvisioningError wraps the first failing step of EnsureInstalled.
type ProvisioningError struct {
	Binary   Binary
	Platform string
	Step     string // "detect", "lock", "resolve", "download", "manifest"
	Err      error
}

func (e *ProvisioningError) Error() string {
	platformID := e.Platform
	if platformID == "" {
		platformID = "unknown platform"
	}
	return fmt.Sprintf("provision %s for %s: %s: %v", e.Binary, platformID, e.Step, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// Is matches ErrProvisioning.
func (e *ProvisioningError) Is(target error) bool { return target == ErrProvisioning }

// Retryable reports whether err is a transient failure that the caller may
// retry unchanged. Unsupported platforms and missing binaries are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnsupportedPlatform) || errors.Is(err, ErrBinaryNotFound) {
		return false
	}
	return errors.Is(err, ErrResolution) || errors.Is(err, ErrDownload) || errors.Is(err, ErrIntegrity)
}
