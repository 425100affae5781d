package binary

import (
	"fmt"
	"strings"
)

// Binary names a tool binary managed by ytpilot.
type Binary string

const (
	// BinaryYtDlp is the media download tool.
	BinaryYtDlp Binary = "yt-dlp"
	// BinaryFFmpeg is the media transcode tool.
	BinaryFFmpeg Binary = "ffmpeg"
	// BinaryFFprobe is ffmpeg's companion media inspector.
	BinaryFFprobe Binary = "ffprobe"
)

// Binaries lists every managed binary in install order.
var Binaries = []Binary{BinaryYtDlp, BinaryFFmpeg, BinaryFFprobe}

// String returns the string representation of the binary
func (b Binary) String() string {
	return string(b)
}

// ParseBinary maps a user-supplied name to a managed Binary. It accepts the
// canonical names plus a few common spellings ("ytdlp", "yt_dlp").
func ParseBinary(name string) (Binary, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "yt-dlp", "ytdlp", "yt_dlp":
		return BinaryYtDlp, nil
	case "ffmpeg":
		return BinaryFFmpeg, nil
	case "ffprobe":
		return BinaryFFprobe, nil
	default:
		return "", fmt.Errorf("unknown binary: %q", name)
	}
}

// VerificationMethod indicates how a release asset's checksum was obtained.
type VerificationMethod int

const (
	// VerificationNone means no checksum was available for the asset.
	VerificationNone VerificationMethod = iota
	// VerificationSHA256 means a SHA-256 digest from the catalog was checked.
	VerificationSHA256
	// VerificationGPG means the digest came from a GPG-signed checksum list.
	VerificationGPG
)

// String returns the string representation of the verification method
func (v VerificationMethod) String() string {
	switch v {
	case VerificationGPG:
		return "GPG"
	case VerificationSHA256:
		return "SHA256"
	case VerificationNone:
		return "None"
	default:
		return "Unknown"
	}
}

// ReleaseAsset describes one downloadable artifact from a release catalog.
// It is produced fresh by every resolution and never persisted directly.
type ReleaseAsset struct {
	Binary         Binary
	Version        string // release tag, e.g. "2024.12.13"
	Platform       string // platform identifier the asset was chosen for
	DownloadURL    string
	AssetFilename  string // name of the artifact in the release
	InstallName    string // file name in the managed bin directory (with .exe on Windows)
	Checksum       string // lowercase hex SHA-256 of the artifact, empty if unknown
	ChecksumSource VerificationMethod
	Size           int64
}

// ProgressFunc reports transfer progress. total is -1 when the server did not
// announce a content length.
type ProgressFunc func(downloaded, total int64)
