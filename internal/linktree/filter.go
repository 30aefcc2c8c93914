package linktree

import (
	"context"
	"net/url"
	"path"
	"strings"
)

// LinkFilter decides whether a discovered link may be visited. Links
// rejected by a filter are never claimed or fetched.
type LinkFilter interface {
	Allow(ctx context.Context, link string) bool
}

// LinkFilterFunc adapts a function to LinkFilter.
type LinkFilterFunc func(ctx context.Context, link string) bool

// Allow calls f.
func (f LinkFilterFunc) Allow(ctx context.Context, link string) bool {
	return f(ctx, link)
}

// SameHostFilter only allows links on the host of rootURL.
func SameHostFilter(rootURL string) LinkFilter {
	host := strings.ToLower(Hostname(rootURL))
	return LinkFilterFunc(func(_ context.Context, link string) bool {
		return strings.EqualFold(Hostname(link), host)
	})
}

// PatternFilter applies glob path patterns to links.
//
// A link whose path matches an ignore pattern is rejected. When follow
// patterns are set, only paths matching at least one of them are allowed.
// A non-empty host restricts the filter to that host; links on other
// hosts pass untouched.
type PatternFilter struct {
	host   string
	ignore []string
	follow []string
}

// NewPatternFilter creates a PatternFilter. host may be empty.
func NewPatternFilter(host string, ignore, follow []string) *PatternFilter {
	return &PatternFilter{
		host:   strings.ToLower(host),
		ignore: ignore,
		follow: follow,
	}
}

// Allow implements LinkFilter.
func (p *PatternFilter) Allow(_ context.Context, link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	if p.host != "" && !strings.EqualFold(u.Hostname(), p.host) {
		return true
	}

	linkPath := u.Path
	if linkPath == "" {
		linkPath = "/"
	}
	for _, pattern := range p.ignore {
		if matchPattern(pattern, linkPath) {
			return false
		}
	}
	if len(p.follow) == 0 {
		return true
	}
	for _, pattern := range p.follow {
		if matchPattern(pattern, linkPath) {
			return true
		}
	}
	return false
}

// matchPattern matches a URL path against a glob.
//
//   - "/admin/*" matches "/admin" and everything below it
//   - "*.pdf" matches any path ending in ".pdf"
//   - other patterns use path.Match, and patterns without a slash are
//     also tried against the last path segment
func matchPattern(pattern, p string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	if ext, ok := strings.CutPrefix(pattern, "*."); ok && !strings.ContainsAny(ext, "*?[") {
		if strings.HasSuffix(p, "."+ext) {
			return true
		}
	}
	if matched, err := path.Match(pattern, p); err == nil && matched {
		return true
	}
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := path.Match(pattern, path.Base(p)); err == nil && matched {
			return true
		}
	}
	return false
}
