// Package platform detects the host operating system, CPU architecture and
// (on Linux) C library variant, and turns them into the platform identifier
// used to pick release assets for managed binaries.
//
// Detection never fails hard: an architecture that cannot be queried falls
// back to the Go runtime's view, and a libc probe that cannot run is read as
// "not musl".
package platform

import "context"

// Operating systems.
const (
	OSLinux   = "linux"
	OSWindows = "windows"
	OSDarwin  = "darwin"
)

// CPU architectures.
const (
	ArchX64   = "x64"
	ArchARM64 = "arm64"
	ArchX86   = "x86"
)

// C library variants.
const (
	LibcGlibc = "glibc"
	LibcMusl  = "musl"
	LibcNone  = "none"
)

// Identity describes the host a binary has to run on. It is a value type:
// detected once, never mutated.
type Identity struct {
	OS      string // "linux", "windows", "darwin"
	Arch    string // "x64", "arm64", "x86" (normalized)
	ArchRaw string // machine string as reported by the kernel (e.g. "x86_64")
	Libc    string // "glibc", "musl" on Linux; "none" elsewhere
	Family  string // Linux distribution family hint (e.g. "alpine"), may be empty
}

// ID returns the platform identifier, "{os}-{arch}" with a "-musl" suffix on
// musl-based Linux systems.
func (i Identity) ID() string {
	id := i.OS + "-" + i.Arch
	if i.IsMusl() {
		id += "-musl"
	}
	return id
}

// String implements fmt.Stringer.
func (i Identity) String() string {
	return i.ID()
}

// ExecutableSuffix returns ".exe" on Windows and "" elsewhere.
func (i Identity) ExecutableSuffix() string {
	if i.IsWindows() {
		return ".exe"
	}
	return ""
}

// ExecutableName appends the platform executable suffix to name.
func (i Identity) ExecutableName(name string) string {
	return name + i.ExecutableSuffix()
}

// IsLinux returns true if the platform is Linux.
func (i Identity) IsLinux() bool {
	return i.OS == OSLinux
}

// IsMacOS returns true if the platform is macOS.
func (i Identity) IsMacOS() bool {
	return i.OS == OSDarwin
}

// IsWindows returns true if the platform is Windows.
func (i Identity) IsWindows() bool {
	return i.OS == OSWindows
}

// IsX64 returns true if the architecture is x64.
func (i Identity) IsX64() bool {
	return i.Arch == ArchX64
}

// IsARM64 returns true if the architecture is arm64.
func (i Identity) IsARM64() bool {
	return i.Arch == ArchARM64
}

// IsMusl returns true on Linux systems whose C library is musl.
func (i Identity) IsMusl() bool {
	return i.OS == OSLinux && i.Libc == LibcMusl
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (Identity, error)
}

// Static is a Detector that always reports the same identity. It is used
// when the caller pins a platform (tests, cross-provisioning).
type Static Identity

// Detect returns the pinned identity.
func (s Static) Detect(context.Context) (Identity, error) {
	return Identity(s), nil
}
