package fetch

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/temoto/robotstxt"

	"github.com/nao1215/torbot/internal/model"
)

// robotsTxtPath is the well-known path for robots.txt files.
const robotsTxtPath = "/robots.txt"

// PageFetcher is the subset of HTTPFetcher used by RobotsFilter.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*model.Response, error)
}

// RobotsFilter rejects links disallowed by their host's robots.txt.
//
// robots.txt is requested once per scheme and host. A robots.txt that
// cannot be fetched or parsed allows everything. A fetch cut short by a
// cancelled context is not cached, so a later caller tries again.
type RobotsFilter struct {
	fetcher   PageFetcher
	userAgent string
	logger    *slog.Logger

	mu      sync.Mutex
	entries map[string]*robotsEntry
}

type robotsEntry struct {
	mu     sync.Mutex
	loaded bool
	data   *robotstxt.RobotsData // nil means allow all
}

// NewRobotsFilter creates a filter that fetches robots.txt through fetcher
// and evaluates rules for userAgent.
func NewRobotsFilter(fetcher PageFetcher, userAgent string, logger *slog.Logger) *RobotsFilter {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsFilter{
		fetcher:   fetcher,
		userAgent: userAgent,
		logger:    logger,
		entries:   make(map[string]*robotsEntry),
	}
}

// Allow reports whether link may be visited.
func (r *RobotsFilter) Allow(ctx context.Context, link string) bool {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return false
	}

	data := r.rules(ctx, strings.ToLower(u.Scheme+"://"+u.Host))
	if data == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	allowed := data.TestAgent(path, r.userAgent)
	if !allowed {
		r.logger.Debug("disallowed by robots.txt", "url", link)
	}
	return allowed
}

func (r *RobotsFilter) entry(key string) *robotsEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		e = &robotsEntry{}
		r.entries[key] = e
	}
	return e
}

// rules returns the cached robots.txt of origin, fetching it on first use.
func (r *RobotsFilter) rules(ctx context.Context, origin string) *robotstxt.RobotsData {
	entry := r.entry(origin)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.loaded {
		return entry.data
	}
	data := r.load(ctx, origin)
	if ctx.Err() != nil {
		return data
	}
	entry.data = data
	entry.loaded = true
	return data
}

func (r *RobotsFilter) load(ctx context.Context, origin string) *robotstxt.RobotsData {
	resp, err := r.fetcher.Fetch(ctx, origin+robotsTxtPath)
	if err != nil {
		r.logger.Debug("robots.txt unavailable", "origin", origin, "error", err)
		return nil
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, resp.Body)
	if err != nil {
		r.logger.Debug("robots.txt unparsable", "origin", origin, "error", err)
		return nil
	}
	return data
}
