package parser

import (
	"bytes"
	"errors"
	"net/mail"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nyaruka/phonenumbers"
	"golang.org/x/net/html"

	"github.com/nao1215/torbot/internal/linktree"
	"github.com/nao1215/torbot/internal/model"
)

// ErrBinaryContent is returned for bodies that are not text.
var ErrBinaryContent = errors.New("binary content")

// nonContentSelectors lists elements whose text is not page content.
const nonContentSelectors = "script, style, noscript, template"

// Parser extracts page signals with goquery. It is safe for concurrent use.
type Parser struct {
	resolveRelative bool
	defaultRegion   string
}

// Option configures a Parser.
type Option func(*Parser)

// WithResolveRelative resolves relative hrefs against the page URL (or
// the document's <base href>) before validation. By default relative
// hrefs are dropped because they carry no host.
func WithResolveRelative(enabled bool) Option {
	return func(p *Parser) {
		p.resolveRelative = enabled
	}
}

// WithDefaultRegion sets the region (e.g. "US") used for tel: numbers
// without a leading country code. Without it only international
// numbers are accepted.
func WithDefaultRegion(region string) Option {
	return func(p *Parser) {
		p.defaultRegion = strings.ToUpper(region)
	}
}

// New creates a Parser.
func New(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse extracts the signals of the page at pageURL. Links keep document
// order and may repeat; emails and phone numbers are distinct.
func (p *Parser) Parse(pageURL string, body []byte) (*model.Page, error) {
	if bytes.IndexByte(body, 0) >= 0 {
		return nil, &model.ParseError{URL: pageURL, Err: ErrBinaryContent}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &model.ParseError{URL: pageURL, Err: err}
	}

	page := &model.Page{
		Title:       collapseSpace(doc.Find("title").First().Text()),
		Description: metaDescription(doc),
	}

	base := p.baseURL(doc, pageURL)
	emails := newSet()
	numbers := newSet()

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		switch scheme := strings.ToLower(schemeOf(href)); scheme {
		case "mailto":
			if email, ok := parseMailto(href); ok {
				emails.add(email)
			}
		case "tel":
			if number, ok := parseTel(href, p.defaultRegion); ok {
				numbers.add(number)
			}
		default:
			if link, ok := p.link(href, base); ok {
				page.Links = append(page.Links, link)
			}
		}
	})
	page.Emails = emails.values()
	page.PhoneNumbers = numbers.values()

	text := doc.Find("body").First()
	if text.Length() == 0 {
		text = doc.Selection
	}
	text.Find(nonContentSelectors).Remove()
	page.Text = visibleText(text)
	page.TruncateText()

	return page, nil
}

// link returns href as a candidate child link.
func (p *Parser) link(href string, base *url.URL) (string, bool) {
	if href == "" {
		return "", false
	}
	if p.resolveRelative && base != nil {
		ref, err := url.Parse(href)
		if err != nil {
			return "", false
		}
		href = base.ResolveReference(ref).String()
	}
	if linktree.ValidateURL(href) != nil {
		return "", false
	}
	return href, true
}

func (p *Parser) baseURL(doc *goquery.Document, pageURL string) *url.URL {
	if !p.resolveRelative {
		return nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			base = base.ResolveReference(ref)
		}
	}
	return base
}

// parseMailto returns the address of a mailto: href. Only bare addresses
// with a dotted domain are accepted; the query part is ignored.
func parseMailto(href string) (string, bool) {
	addr := href[len("mailto:"):]
	if i := strings.IndexByte(addr, '?'); i >= 0 {
		addr = addr[:i]
	}
	if unescaped, err := url.PathUnescape(addr); err == nil {
		addr = unescaped
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", false
	}

	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr {
		return "", false
	}
	at := strings.LastIndexByte(addr, '@')
	domain := addr[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return "", false
	}
	return addr, true
}

// parseTel returns the E.164 form of a tel: href if it is a possible
// phone number.
func parseTel(href, region string) (string, bool) {
	raw := href[len("tel:"):]
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	// RFC 3966 parameters such as ";ext=" are not part of the number.
	if i := strings.IndexByte(raw, ';'); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	num, err := phonenumbers.Parse(raw, region)
	if err != nil || !phonenumbers.IsPossibleNumber(num) {
		return "", false
	}
	return phonenumbers.Format(num, phonenumbers.E164), true
}

func metaDescription(doc *goquery.Document) string {
	if desc, ok := doc.Find("meta[name='description']").Attr("content"); ok {
		return collapseSpace(desc)
	}
	if desc, ok := doc.Find("meta[property='og:description']").Attr("content"); ok {
		return collapseSpace(desc)
	}
	return ""
}

// schemeOf returns the scheme of href without parsing the rest, so that
// hrefs like "mailto:a b@c" are still recognized.
func schemeOf(href string) string {
	i := strings.IndexByte(href, ':')
	if i <= 0 {
		return ""
	}
	for _, c := range href[:i] {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.') {
			return ""
		}
	}
	return href[:i]
}

// visibleText joins the text nodes below sel with single spaces, so that
// adjacent block elements do not run together.
func visibleText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return collapseSpace(b.String())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// set keeps distinct strings in insertion order.
type set struct {
	seen  map[string]struct{}
	items []string
}

func newSet() *set {
	return &set{seen: make(map[string]struct{})}
}

func (s *set) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *set) values() []string {
	return s.items
}
