package binary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"runtime"
	"strings"
	"time"
)

const (
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "ytpilot/1.0"

	maxMetadataSize = 1 << 20
)

// errNotFound marks a 404 from the catalog.
var errNotFound = errors.New("not found")

// NewHTTPClient returns a client suitable for talking to release catalogs.
// A non-empty token is sent as a bearer token unless the request already
// carries an Authorization header.
func NewHTTPClient(token string) *http.Client {
	client := &http.Client{
		Transport: defaultTransport(),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}
	if token != "" {
		client.Transport = &authedTransport{
			Transport: defaultTransport(),
			token:     token,
		}
	}
	return client
}

func defaultTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   runtime.GOMAXPROCS(0) + 1,
	}
}

type authedTransport struct {
	*http.Transport
	token string
}

func (t *authedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if values := req.Header.Values("Authorization"); len(values) == 0 {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.token)
	}
	return t.Transport.RoundTrip(req)
}

// get issues a GET for url and returns the response when the status is 200.
// The caller closes the body.
func get(ctx context.Context, client *http.Client, url, userAgent string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}

	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("GET %s: %w", url, errNotFound)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return nil, fmt.Errorf("GET %s: %d - %s: %s",
		url, resp.StatusCode, http.StatusText(resp.StatusCode), strings.TrimSpace(string(body)))
}

// getBytes fetches url and returns at most maxMetadataSize bytes of the body
// together with the response headers. It is meant for small text assets such
// as checksum lists and signatures.
func getBytes(ctx context.Context, client *http.Client, url, userAgent string) ([]byte, http.Header, error) {
	resp, err := get(ctx, client, url, userAgent)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataSize+1))
	if err != nil {
		return nil, nil, fmt.Errorf("read response body: %w", err)
	}
	if len(body) > maxMetadataSize {
		return nil, nil, fmt.Errorf("GET %s: response exceeds %d bytes", url, maxMetadataSize)
	}
	return body, resp.Header, nil
}

// getJSON fetches url and stream-decodes the body into v. API documents are
// not size capped: a release listing page embeds changelogs and uploader
// objects for every asset and runs to several megabytes.
func getJSON(ctx context.Context, client *http.Client, url, userAgent string, v any) (http.Header, error) {
	resp, err := get(ctx, client, url, userAgent)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return nil, fmt.Errorf("decode response body from %s: %w", url, err)
	}
	return resp.Header, nil
}

// findNextLink returns the rel="next" target of RFC 8288 Link headers.
func findNextLink(headers []string) string {
	for _, raw := range headers {
		for _, header := range strings.Split(raw, ",") {
			var linkURL, linkRel string

			// <url>; rel="next"; foo="bar"
			for _, part := range strings.Split(header, ";") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}

				if part[0] == '<' && part[len(part)-1] == '>' {
					linkURL = strings.Trim(part, "<>")
					continue
				}

				keyval := strings.SplitN(part, "=", 2)
				if len(keyval) == 2 && strings.EqualFold(strings.TrimSpace(keyval[0]), "rel") {
					linkRel = strings.Trim(strings.TrimSpace(keyval[1]), "\"")
				}
			}

			if strings.EqualFold(linkRel, "next") {
				return linkURL
			}
		}
	}
	return ""
}
