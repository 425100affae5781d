package platform

import (
	"context"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/host"
)

// libcProbeTimeout bounds the dynamic-linker version query.
const libcProbeTimeout = 2 * time.Second

// RealDetector implements Detector against the running host.
//
// The OS comes from runtime.GOOS, the raw architecture from the kernel
// (gopsutil, i.e. uname -m) so that a 32-bit build on a 64-bit kernel still
// reports the host architecture, and the libc variant from `ldd --version`.
// The first successful detection is memoised.
type RealDetector struct {
	goos      func() string
	kernel    func(ctx context.Context) (string, error)
	lddOutput func(ctx context.Context) (string, error)
	family    func(ctx context.Context) (string, error)

	once     sync.Once
	identity Identity
}

// DetectorOption configures a RealDetector.
type DetectorOption func(*RealDetector)

// WithGOOS overrides the OS family source.
func WithGOOS(fn func() string) DetectorOption {
	return func(d *RealDetector) {
		if fn != nil {
			d.goos = fn
		}
	}
}

// WithKernelArch overrides the raw architecture source.
func WithKernelArch(fn func(ctx context.Context) (string, error)) DetectorOption {
	return func(d *RealDetector) {
		if fn != nil {
			d.kernel = fn
		}
	}
}

// WithLibcProbe overrides the dynamic-linker version query.
func WithLibcProbe(fn func(ctx context.Context) (string, error)) DetectorOption {
	return func(d *RealDetector) {
		if fn != nil {
			d.lddOutput = fn
		}
	}
}

// WithFamilyProbe overrides the Linux distribution family lookup.
func WithFamilyProbe(fn func(ctx context.Context) (string, error)) DetectorOption {
	return func(d *RealDetector) {
		if fn != nil {
			d.family = fn
		}
	}
}

// NewDetector creates a new platform detector.
func NewDetector(opts ...DetectorOption) *RealDetector {
	d := &RealDetector{
		goos:      func() string { return runtime.GOOS },
		kernel:    kernelArch,
		lddOutput: runLdd,
		family:    distroFamily,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// kernelArch reports the kernel machine string (uname -m).
func kernelArch(context.Context) (string, error) {
	return host.KernelArch()
}

// Detect performs platform detection and returns the host identity.
// It never returns an error for probe failures; the error return exists to
// satisfy Detector for implementations that can fail.
func (d *RealDetector) Detect(ctx context.Context) (Identity, error) {
	d.once.Do(func() {
		d.identity = d.detect(ctx)
	})
	return d.identity, nil
}

func (d *RealDetector) detect(ctx context.Context) Identity {
	id := Identity{
		OS:   NormalizeOS(d.goos()),
		Libc: LibcNone,
	}

	raw, err := d.kernel(ctx)
	if err != nil || raw == "" {
		raw = runtime.GOARCH
	}
	id.ArchRaw = raw
	id.Arch = NormalizeArch(raw)

	if id.OS != OSLinux {
		return id
	}

	if family, err := d.family(ctx); err == nil {
		id.Family = normalizeFamily(family)
	}

	id.Libc = LibcGlibc
	out, err := d.lddOutput(ctx)
	switch {
	case isMuslOutput(out):
		id.Libc = LibcMusl
	case err != nil && out == "" && id.Family == "alpine":
		// ldd is missing entirely; Alpine is the one common musl distribution.
		id.Libc = LibcMusl
	}
	return id
}

// runLdd returns the combined output of `ldd --version`. musl's ldd prints its
// banner and exits non-zero, so the output is returned alongside any error.
func runLdd(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, libcProbeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "ldd", "--version").CombinedOutput()
	return string(out), err
}

func distroFamily(ctx context.Context) (string, error) {
	_, family, _, err := host.PlatformInformationWithContext(ctx)
	return family, err
}
