package binary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/AsaiYusuke/jsonpath"
	"github.com/Masterminds/semver/v3"

	"github.com/ytpilot/ytpilot/internal/platform"
)

const (
	// DefaultAPIBase is the GitHub REST API root
	DefaultAPIBase = "https://api.github.com"

	tagListPath = "$[*].tag_name"

	// listPageSize keeps each listing page to a few megabytes.
	listPageSize = 30
)

type githubRelease struct {
	TagName    string        `json:"tag_name"`
	Draft      bool          `json:"draft"`
	Prerelease bool          `json:"prerelease"`
	Assets     []githubAsset `json:"assets"`
}

type githubAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
	Digest             string `json:"digest"`
}

// Resolver turns (binary, platform, version hint) into a concrete
// ReleaseAsset by querying a GitHub-compatible releases API. It never
// writes to disk.
type Resolver struct {
	client    *http.Client
	apiBase   string
	userAgent string
	catalogs  map[Binary]Catalog
	verifier  *Verifier
	logger    *slog.Logger
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithAPIBase points the resolver at a mirror or test server
func WithAPIBase(base string) ResolverOption {
	return func(r *Resolver) {
		if base != "" {
			r.apiBase = strings.TrimRight(base, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client used for catalog requests
func WithHTTPClient(client *http.Client) ResolverOption {
	return func(r *Resolver) {
		if client != nil {
			r.client = client
		}
	}
}

// WithCatalog overrides the catalog for one binary
func WithCatalog(name Binary, catalog Catalog) ResolverOption {
	return func(r *Resolver) {
		r.catalogs[name] = catalog
	}
}

// WithVerifier enables signature checks of catalog checksum files
func WithVerifier(v *Verifier) ResolverOption {
	return func(r *Resolver) {
		r.verifier = v
	}
}

// WithResolverLogger sets the resolver's logger
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a resolver over the default catalogs
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		client:    NewHTTPClient(""),
		apiBase:   DefaultAPIBase,
		userAgent: DefaultUserAgent,
		catalogs:  DefaultCatalogs(),
		logger:    discardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Candidates returns the asset names the resolver would try for name on id.
func (r *Resolver) Candidates(name Binary, id platform.Identity) []string {
	catalog, ok := r.catalogs[name]
	if !ok || catalog.Candidates == nil {
		return nil
	}
	return catalog.Candidates(id)
}

// Resolve picks the release asset for name on id. versionHint is empty or
// "latest" for the newest release, an exact tag, or a semver constraint such
// as ">=2024.10, <2025".
func (r *Resolver) Resolve(ctx context.Context, name Binary, id platform.Identity, versionHint string) (ReleaseAsset, error) {
	catalog, ok := r.catalogs[name]
	if !ok {
		return ReleaseAsset{}, &ResolutionError{
			Binary: name, Platform: id.ID(), Version: versionHint,
			Err: fmt.Errorf("no release catalog for %s", name),
		}
	}

	candidates := r.Candidates(name, id)
	if len(candidates) == 0 {
		return ReleaseAsset{}, &UnsupportedPlatformError{Binary: name, Platform: id.ID()}
	}

	release, err := r.fetchRelease(ctx, catalog, versionHint)
	if err != nil {
		return ReleaseAsset{}, &ResolutionError{Binary: name, Platform: id.ID(), Version: versionHint, Err: err}
	}

	asset, ok := pickAsset(release.Assets, candidates)
	if !ok {
		return ReleaseAsset{}, &UnsupportedPlatformError{
			Binary: name, Platform: id.ID(), Version: release.TagName, Tried: candidates,
		}
	}

	result := ReleaseAsset{
		Binary:        name,
		Version:       release.TagName,
		Platform:      id.ID(),
		DownloadURL:   asset.BrowserDownloadURL,
		AssetFilename: asset.Name,
		InstallName:   id.ExecutableName(name.String()),
		Size:          asset.Size,
	}

	if sum, ok := strings.CutPrefix(asset.Digest, "sha256:"); ok && sum != "" {
		result.Checksum = strings.ToLower(sum)
		result.ChecksumSource = VerificationSHA256
	} else if catalog.ChecksumFile != "" {
		sum, method, err := r.checksumFromList(ctx, name, catalog, release, asset.Name)
		if err != nil {
			var integrityErr *IntegrityError
			if errors.As(err, &integrityErr) {
				return ReleaseAsset{}, err
			}
			return ReleaseAsset{}, &ResolutionError{Binary: name, Platform: id.ID(), Version: release.TagName, Err: err}
		}
		result.Checksum = sum
		result.ChecksumSource = method
	}

	r.logger.Debug("resolved release asset",
		"binary", name,
		"platform", id.ID(),
		"version", result.Version,
		"asset", result.AssetFilename,
		"verification", result.ChecksumSource.String())

	return result, nil
}

// pickAsset returns the first candidate present in the release.
func pickAsset(assets []githubAsset, candidates []string) (githubAsset, bool) {
	byName := make(map[string]githubAsset, len(assets))
	for _, a := range assets {
		byName[a.Name] = a
	}
	for _, c := range candidates {
		if a, ok := byName[c]; ok {
			return a, true
		}
	}
	return githubAsset{}, false
}

func (r *Resolver) repoURL(catalog Catalog) string {
	return fmt.Sprintf("%s/repos/%s/%s", r.apiBase, url.PathEscape(catalog.Owner), url.PathEscape(catalog.Repo))
}

// fetchRelease finds the release matching versionHint.
func (r *Resolver) fetchRelease(ctx context.Context, catalog Catalog, versionHint string) (githubRelease, error) {
	hint := strings.TrimSpace(versionHint)

	switch {
	case hint == "" || strings.EqualFold(hint, "latest"):
		var release githubRelease
		if _, err := getJSON(ctx, r.client, r.repoURL(catalog)+"/releases/latest", r.userAgent, &release); err != nil {
			return githubRelease{}, err
		}
		return release, nil

	case isConstraint(hint):
		tags, err := r.listTags(ctx, catalog)
		if err != nil {
			return githubRelease{}, err
		}
		tag, err := findLatestTag(tags, hint, catalog.TagPrefix)
		if err != nil {
			return githubRelease{}, err
		}
		return r.fetchTag(ctx, catalog, tag)

	default:
		var lastErr error
		for _, tag := range tagVariants(hint, catalog.TagPrefix) {
			release, err := r.fetchTag(ctx, catalog, tag)
			if err == nil {
				return release, nil
			}
			if !errors.Is(err, errNotFound) {
				return githubRelease{}, err
			}
			lastErr = err
		}
		return githubRelease{}, fmt.Errorf("release %s does not exist: %w", hint, lastErr)
	}
}

func (r *Resolver) fetchTag(ctx context.Context, catalog Catalog, tag string) (githubRelease, error) {
	var release githubRelease
	endpoint := r.repoURL(catalog) + "/releases/tags/" + url.PathEscape(tag)
	if _, err := getJSON(ctx, r.client, endpoint, r.userAgent, &release); err != nil {
		return githubRelease{}, err
	}
	return release, nil
}

// listTags walks every page of the release listing and extracts tag names.
func (r *Resolver) listTags(ctx context.Context, catalog Catalog) ([]string, error) {
	var tags []string

	next := r.repoURL(catalog) + "/releases?per_page=" + strconv.Itoa(listPageSize)
	for next != "" {
		var src any
		header, err := getJSON(ctx, r.client, next, r.userAgent, &src)
		if err != nil {
			return nil, err
		}

		page, err := retrieveTags(src)
		if err != nil {
			return nil, err
		}
		tags = append(tags, page...)

		next = findNextLink(header.Values("Link"))
	}

	return tags, nil
}

func retrieveTags(src any) ([]string, error) {
	// An empty page has no members to match.
	if page, ok := src.([]any); ok && len(page) == 0 {
		return nil, nil
	}

	config := jsonpath.Config{}
	config.SetAccessorMode()

	results, err := jsonpath.Retrieve(tagListPath, src, config)
	if err != nil {
		return nil, fmt.Errorf("extract tags: %w", err)
	}

	var tags []string
	for _, result := range results {
		tag, _ := result.(jsonpath.Accessor).Get().(string)
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// isConstraint reports whether hint is a semver range rather than a tag.
func isConstraint(hint string) bool {
	return strings.ContainsAny(hint, "<>=~^*|, ") || hint == "x" || strings.HasSuffix(hint, ".x")
}

// tagVariants lists the tags an exact hint may be published under.
func tagVariants(hint, prefix string) []string {
	variants := []string{hint}
	if prefix != "" && !strings.HasPrefix(hint, prefix) {
		variants = append(variants, prefix+hint)
	}
	if !strings.HasPrefix(hint, "v") {
		variants = append(variants, "v"+hint)
	} else {
		variants = append(variants, strings.TrimPrefix(hint, "v"))
	}
	return variants
}

// findLatestTag returns the highest tag satisfying spec. Tags that are not
// versions, and pre-releases the constraint does not opt into, are skipped.
func findLatestTag(tags []string, spec, prefix string) (string, error) {
	constraints, err := semver.NewConstraint(strings.TrimPrefix(spec, prefix))
	if err != nil {
		return "", fmt.Errorf("invalid version constraint %q: %w", spec, err)
	}

	original := make(map[*semver.Version]string, len(tags))
	vs := make([]*semver.Version, 0, len(tags))
	for _, raw := range tags {
		v, err := semver.NewVersion(strings.TrimPrefix(raw, prefix))
		if err != nil {
			continue
		}
		if !constraints.Check(v) {
			continue
		}
		original[v] = raw
		vs = append(vs, v)
	}
	if len(vs) == 0 {
		return "", fmt.Errorf("no matching versions: %v", spec)
	}

	sort.Sort(sort.Reverse(semver.Collection(vs)))
	return original[vs[0]], nil
}

// checksumFromList downloads the catalog's checksum list for release and
// looks up assetName. The list's signature is checked when a keyring is
// configured and the release carries one.
func (r *Resolver) checksumFromList(ctx context.Context, name Binary, catalog Catalog, release githubRelease, assetName string) (string, VerificationMethod, error) {
	listAsset, ok := findAsset(release.Assets, catalog.ChecksumFile)
	if !ok {
		r.logger.Warn("release has no checksum list, integrity will not be checked",
			"binary", name, "version", release.TagName, "file", catalog.ChecksumFile)
		return "", VerificationNone, nil
	}

	list, _, err := getBytes(ctx, r.client, listAsset.BrowserDownloadURL, r.userAgent)
	if err != nil {
		return "", VerificationNone, fmt.Errorf("download %s: %w", catalog.ChecksumFile, err)
	}

	method := VerificationSHA256
	if sigAsset, ok := findAsset(release.Assets, catalog.SignatureFile); ok && r.verifier.HasKeyring() {
		sig, _, err := getBytes(ctx, r.client, sigAsset.BrowserDownloadURL, r.userAgent)
		if err != nil {
			return "", VerificationNone, fmt.Errorf("download %s: %w", catalog.SignatureFile, err)
		}
		if err := r.verifier.VerifyDetached(list, sig); err != nil {
			return "", VerificationNone, &IntegrityError{Binary: name, File: catalog.ChecksumFile, Err: err}
		}
		method = VerificationGPG
	}

	sum, err := findChecksum(list, assetName)
	if err != nil {
		return "", VerificationNone, err
	}
	return sum, method, nil
}

func findAsset(assets []githubAsset, name string) (githubAsset, bool) {
	if name == "" {
		return githubAsset{}, false
	}
	for _, a := range assets {
		if a.Name == name {
			return a, true
		}
	}
	return githubAsset{}, false
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
