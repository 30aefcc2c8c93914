package model

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"unicode/utf8"
)

// MaxTextSize is the maximum size of the text handed to the classifier.
const MaxTextSize = 512 * 1024 // 512 KB

// MaxBodySize is the maximum size of a response body kept in memory.
const MaxBodySize = 5 * 1024 * 1024 // 5 MB

// Response is the result of a single proxied GET request.
type Response struct {
	// URL is the URL that was requested.
	URL string `json:"url"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// Headers contains all HTTP response headers in canonical form.
	Headers http.Header `json:"headers"`

	// ContentType is the Content-Type header value, kept for convenience.
	ContentType string `json:"content_type"`

	// Body is the response body decoded to UTF-8.
	// Limited to MaxBodySize bytes.
	Body []byte `json:"-"`

	// Hash is the SHA-256 hash of Body.
	Hash string `json:"hash"`
}

// ComputeHash calculates and sets the SHA-256 hash of the response body.
func (r *Response) ComputeHash() {
	if len(r.Body) == 0 {
		r.Hash = ""
		return
	}

	hash := sha256.Sum256(r.Body)
	r.Hash = hex.EncodeToString(hash[:])
}

// GetHeader returns the first value of the specified header.
// Returns empty string if the header is not present.
func (r *Response) GetHeader(name string) string {
	return r.Headers.Get(name)
}

// IsHTML returns true if the content type indicates HTML.
// An empty content type is treated as HTML because many hidden services
// omit the header entirely.
func (r *Response) IsHTML() bool {
	ct := strings.ToLower(strings.TrimSpace(r.ContentType))
	return ct == "" ||
		strings.HasPrefix(ct, "text/html") ||
		strings.HasPrefix(ct, "application/xhtml+xml")
}

// TruncateBody ensures the body doesn't exceed MaxBodySize.
func (r *Response) TruncateBody() {
	if len(r.Body) > MaxBodySize {
		r.Body = r.Body[:MaxBodySize]
	}
}

// Page holds the signals extracted from one response body.
type Page struct {
	// Title is the trimmed <title> text. Empty when the page has none.
	Title string `json:"title,omitempty"`

	// Description is the content of <meta name="description">.
	Description string `json:"description,omitempty"`

	// Links contains outbound hyperlink targets that passed URL validation,
	// in document order. Duplicates are kept; the traversal suppresses them.
	Links []string `json:"links,omitempty"`

	// Emails contains distinct addresses taken from mailto: links.
	Emails []string `json:"emails,omitempty"`

	// PhoneNumbers contains distinct E.164 numbers taken from tel: links.
	PhoneNumbers []string `json:"phone_numbers,omitempty"`

	// Text is the visible text of the page, used for classification.
	Text string `json:"-"`
}

// TruncateText ensures the text doesn't exceed MaxTextSize. The cut is
// moved back to a rune boundary so the text stays valid UTF-8.
func (p *Page) TruncateText() {
	if len(p.Text) <= MaxTextSize {
		return
	}
	cut := MaxTextSize
	for cut > 0 && !utf8.RuneStart(p.Text[cut]) {
		cut--
	}
	p.Text = p.Text[:cut]
}

// Classification is the category assigned to a page's text.
type Classification struct {
	// Category is the human readable category label.
	Category string `json:"category"`

	// Confidence is the classifier's score in [0, 1].
	Confidence float64 `json:"confidence"`
}
