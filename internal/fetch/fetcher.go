package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/nao1215/torbot/internal/model"
)

// DefaultUserAgent mimics Tor Browser so hidden services serve the same
// pages they serve to regular visitors.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; rv:128.0) Gecko/20100101 Firefox/128.0"

// ErrNilClient is returned by Fetch when the fetcher has no HTTP client.
var ErrNilClient = errors.New("fetch: nil http client")

// HTTPFetcher fetches pages with an http.Client.
// It is safe for concurrent use.
type HTTPFetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	limiter     *rate.Limiter
	logger      *slog.Logger

	// hostClients overrides client for specific hosts, used for sites
	// configured with cookies or extra headers. Read-only after
	// construction.
	hostClients map[string]*http.Client
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize limits how many body bytes are read per response.
func WithMaxBodySize(size int64) Option {
	return func(f *HTTPFetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithRateLimit allows at most perSecond requests per second across all
// goroutines sharing the fetcher. Zero or negative disables the limit.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(f *HTTPFetcher) {
		if perSecond <= 0 {
			f.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithHostClient routes requests for host through client.
func WithHostClient(host string, client *http.Client) Option {
	return func(f *HTTPFetcher) {
		f.hostClients[strings.ToLower(host)] = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *HTTPFetcher) {
		f.logger = logger
	}
}

// NewHTTPFetcher creates a fetcher that uses client for every request.
// The client's Timeout bounds each fetch.
func NewHTTPFetcher(client *http.Client, opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:      client,
		userAgent:   DefaultUserAgent,
		maxBodySize: model.MaxBodySize,
		logger:      slog.Default(),
		hostClients: make(map[string]*http.Client),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs a GET request for pageURL.
//
// Any failure to obtain a response, including timeouts, cancellation and
// body read errors, is returned as *model.TransportError.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*model.Response, error) {
	resp, err := f.fetch(ctx, pageURL)
	if err != nil {
		f.logger.Debug("fetch failed", "url", pageURL, "error", err)
		return nil, &model.TransportError{URL: pageURL, Err: err}
	}
	return resp, nil
}

func (f *HTTPFetcher) fetch(ctx context.Context, pageURL string) (*model.Response, error) {
	client := f.clientFor(pageURL)
	if client == nil {
		return nil, ErrNilClient
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	result := &model.Response{
		URL:         pageURL,
		StatusCode:  resp.StatusCode,
		Headers:     resp.Header,
		ContentType: contentType,
		Body:        decodeBody(raw, contentType),
	}
	result.TruncateBody()
	result.ComputeHash()

	f.logger.Debug("fetched", "url", pageURL, "status", resp.StatusCode, "bytes", len(result.Body))
	return result, nil
}

func (f *HTTPFetcher) clientFor(pageURL string) *http.Client {
	if u, err := url.Parse(pageURL); err == nil {
		if c, ok := f.hostClients[strings.ToLower(u.Hostname())]; ok {
			return c
		}
	}
	return f.client
}

// decodeBody converts a text body to UTF-8 using the declared or sniffed
// charset. Non-text bodies and undecodable input are returned unchanged.
func decodeBody(raw []byte, contentType string) []byte {
	if len(raw) == 0 || !isText(contentType) {
		return raw
	}
	reader, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return raw
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return raw
	}
	return decoded
}

func isText(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	return ct == "" ||
		strings.HasPrefix(ct, "text/") ||
		strings.Contains(ct, "html") ||
		strings.Contains(ct, "xml")
}
