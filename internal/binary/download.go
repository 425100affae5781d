package binary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

const (
	// DefaultTimeout is the default HTTP request timeout for one attempt
	DefaultTimeout = 5 * time.Minute
	// DefaultRetries is the default number of download retries
	DefaultRetries = 3
	// DefaultProgressInterval throttles progress callbacks
	DefaultProgressInterval = 100 * time.Millisecond
)

// errPermanent marks HTTP failures that a retry cannot fix.
var errPermanent = errors.New("permanent failure")

// Downloader fetches release assets into a directory, verifying and
// unpacking them on the way.
type Downloader struct {
	client           *http.Client
	userAgent        string
	retries          int
	backoff          func(attempt int) time.Duration
	progressInterval time.Duration
	extractor        *Extractor
	verifier         *Verifier
	logger           *slog.Logger
}

// DownloaderOption configures a Downloader
type DownloaderOption func(*Downloader)

// WithDownloadClient sets the HTTP client used for downloads
func WithDownloadClient(client *http.Client) DownloaderOption {
	return func(d *Downloader) {
		if client != nil {
			d.client = client
		}
	}
}

// WithRetries sets how many times a failed transfer is retried
func WithRetries(n int) DownloaderOption {
	return func(d *Downloader) {
		if n >= 0 {
			d.retries = n
		}
	}
}

// WithBackoff replaces the exponential backoff schedule
func WithBackoff(backoff func(attempt int) time.Duration) DownloaderOption {
	return func(d *Downloader) {
		if backoff != nil {
			d.backoff = backoff
		}
	}
}

// WithProgressInterval sets the minimum time between progress callbacks
func WithProgressInterval(interval time.Duration) DownloaderOption {
	return func(d *Downloader) {
		d.progressInterval = interval
	}
}

// WithDownloaderLogger sets the downloader's logger
func WithDownloaderLogger(logger *slog.Logger) DownloaderOption {
	return func(d *Downloader) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDownloader creates a new downloader
func NewDownloader(opts ...DownloaderOption) *Downloader {
	client := NewHTTPClient("")
	client.Timeout = DefaultTimeout

	d := &Downloader{
		client:    client,
		userAgent: DefaultUserAgent,
		retries:   DefaultRetries,
		// Exponential backoff: 1s, 2s, 4s
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<uint(attempt-1)) * time.Second
		},
		progressInterval: DefaultProgressInterval,
		extractor:        NewExtractor(),
		verifier:         NewVerifier(nil),
		logger:           discardLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fetch downloads asset into destDir and returns the path of the installed
// executable, destDir/asset.InstallName. The artifact's SHA-256 is checked
// when asset.Checksum is set. Nothing but the final executable is left in
// destDir, whether Fetch succeeds or not.
func (d *Downloader) Fetch(ctx context.Context, asset ReleaseAsset, destDir string, onProgress ProgressFunc) (string, error) {
	installName := asset.InstallName
	if installName == "" {
		installName = asset.Binary.String()
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", &DownloadError{Binary: asset.Binary, URL: asset.DownloadURL, Err: fmt.Errorf("create dest dir: %w", err)}
	}

	tmpFile, err := os.CreateTemp(destDir, "."+installName+"-*.tmp")
	if err != nil {
		return "", &DownloadError{Binary: asset.Binary, URL: asset.DownloadURL, Err: fmt.Errorf("create temp file: %w", err)}
	}
	tmpPath := tmpFile.Name()

	// Paths to clean up unless they end up renamed into place.
	cleanup := []string{tmpPath}
	defer func() {
		tmpFile.Close()
		for _, p := range cleanup {
			os.Remove(p)
		}
	}()

	reporter := newProgressReporter(onProgress, d.logger)
	err = d.download(ctx, asset.DownloadURL, tmpFile, reporter)
	reporter.close()
	if err != nil {
		return "", &DownloadError{Binary: asset.Binary, URL: asset.DownloadURL, Err: err}
	}

	if err := tmpFile.Close(); err != nil {
		return "", &DownloadError{Binary: asset.Binary, URL: asset.DownloadURL, Err: fmt.Errorf("close temp file: %w", err)}
	}

	if asset.Checksum != "" {
		actual, err := d.verifier.VerifyDigest(tmpPath, asset.Checksum)
		if err != nil {
			return "", &IntegrityError{
				Binary:   asset.Binary,
				File:     asset.AssetFilename,
				Expected: asset.Checksum,
				Actual:   actual,
			}
		}
	} else {
		d.logger.Warn("no checksum published, skipping integrity check",
			"binary", asset.Binary, "version", asset.Version, "url", asset.DownloadURL)
	}

	extracted, err := d.extractor.Extract(tmpPath, asset.AssetFilename, destDir, asset.Binary.String())
	if err != nil {
		return "", &DownloadError{Binary: asset.Binary, URL: asset.DownloadURL, Err: fmt.Errorf("extract: %w", err)}
	}
	if extracted != tmpPath {
		cleanup = append(cleanup, extracted)
	}

	if runtime.GOOS != "windows" {
		if err := SetExecutable(extracted); err != nil {
			return "", &DownloadError{Binary: asset.Binary, URL: asset.DownloadURL, Err: err}
		}
	}

	finalPath := filepath.Join(destDir, installName)
	if err := os.Rename(extracted, finalPath); err != nil {
		return "", &DownloadError{Binary: asset.Binary, URL: asset.DownloadURL, Err: fmt.Errorf("rename into place: %w", err)}
	}

	d.logger.Info("installed binary",
		"binary", asset.Binary, "version", asset.Version, "path", finalPath)

	return finalPath, nil
}

// download writes url into f, retrying transient failures. f is truncated
// before every attempt.
func (d *Downloader) download(ctx context.Context, url string, f *os.File, reporter *progressReporter) error {
	var lastErr error

	for attempt := 0; attempt <= d.retries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if attempt > 0 {
			select {
			case <-time.After(d.backoff(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
			d.logger.Debug("retrying download", "url", url, "attempt", attempt, "error", lastErr)
		}

		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("rewind temp file: %w", err)
		}
		if err := f.Truncate(0); err != nil {
			return fmt.Errorf("truncate temp file: %w", err)
		}

		err := d.downloadOnce(ctx, url, f, reporter)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, errPermanent) {
			return err
		}
	}

	return fmt.Errorf("download failed after %d retries: %w", d.retries, lastErr)
}

// downloadOnce performs a single download attempt
func (d *Downloader) downloadOnce(ctx context.Context, url string, w io.Writer, reporter *progressReporter) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w: %w", errPermanent, err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			err = fmt.Errorf("%w: %w", errPermanent, err)
		}
		return err
	}

	total := resp.ContentLength
	if total <= 0 {
		total = -1
	}

	body := &progressReader{
		r:        resp.Body,
		total:    total,
		interval: d.progressInterval,
		report:   reporter.report,
	}
	if _, err := io.Copy(w, body); err != nil {
		return fmt.Errorf("copy response body: %w", err)
	}
	reporter.report(body.read, total)

	return nil
}

// progressReader counts bytes and reports them at most once per interval.
type progressReader struct {
	r        io.Reader
	read     int64
	total    int64
	interval time.Duration
	last     time.Time
	report   func(downloaded, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if n > 0 {
		if now := time.Now(); now.Sub(p.last) >= p.interval {
			p.last = now
			p.report(p.read, p.total)
		}
	}
	return n, err
}

type progressUpdate struct {
	downloaded, total int64
}

// progressReporter delivers progress on its own goroutine so a slow or
// panicking callback never stalls or aborts the transfer. Only the newest
// pending update is kept.
type progressReporter struct {
	fn      ProgressFunc
	updates chan progressUpdate
	done    chan struct{}
	logger  *slog.Logger
}

func newProgressReporter(fn ProgressFunc, logger *slog.Logger) *progressReporter {
	if fn == nil {
		return nil
	}
	p := &progressReporter{
		fn:      fn,
		updates: make(chan progressUpdate, 1),
		done:    make(chan struct{}),
		logger:  logger,
	}
	go p.run()
	return p
}

func (p *progressReporter) run() {
	defer close(p.done)
	for u := range p.updates {
		p.call(u)
	}
}

func (p *progressReporter) call(u progressUpdate) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("progress callback panicked", "panic", r)
		}
	}()
	p.fn(u.downloaded, u.total)
}

// report is called only from the downloading goroutine.
func (p *progressReporter) report(downloaded, total int64) {
	if p == nil {
		return
	}
	u := progressUpdate{downloaded: downloaded, total: total}
	select {
	case p.updates <- u:
	default:
		select {
		case <-p.updates:
		default:
		}
		p.updates <- u
	}
}

// close flushes the last update and waits for the callback goroutine.
func (p *progressReporter) close() {
	if p == nil {
		return
	}
	close(p.updates)
	<-p.done
}
