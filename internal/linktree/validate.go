package linktree

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/nao1215/torbot/internal/tor"
)

// ValidateURL checks that raw is an absolute http or https URL with a
// host. Hosts under .onion must be valid v3 onion addresses.
func ValidateURL(raw string) error {
	_, err := parseValid(raw)
	return err
}

// Canonicalize validates raw and returns the form used as a node
// identifier: lower-case scheme and host, no fragment, and "/" for an
// empty path. Equal pages discovered through different spellings map to
// the same identifier.
func Canonicalize(raw string) (string, error) {
	u, err := parseValid(raw)
	if err != nil {
		return "", err
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	return u.String(), nil
}

// Hostname returns the host of raw without port, or "" if raw does not parse.
func Hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func parseValid(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidURL, raw, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("%w: %q: unsupported scheme %q", ErrInvalidURL, raw, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: %q: missing host", ErrInvalidURL, raw)
	}
	if tor.IsOnionHost(host) {
		if err := tor.ValidateOnionHost(host); err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidURL, raw, err)
		}
	}
	return u, nil
}
