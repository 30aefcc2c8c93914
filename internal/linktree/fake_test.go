package linktree

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nao1215/torbot/internal/model"
)

var (
	errFakeTransport = errors.New("connection refused")
	errFakeParse     = errors.New("malformed document")
	errFakeClassify  = errors.New("model not loaded")
)

// fakePage describes one page of the synthetic web.
type fakePage struct {
	status      int
	contentType string
	title       string
	links       []string
	emails      []string
	numbers     []string
	text        string
	fetchFail   bool
	parseFail   bool
	delay       time.Duration
}

// fakeWeb serves pages from memory and implements Fetcher and Parser.
type fakeWeb struct {
	mu      sync.Mutex
	pages   map[string]fakePage
	fetches map[string]int
	onFetch func(url string)
}

func newFakeWeb(pages map[string]fakePage) *fakeWeb {
	return &fakeWeb{pages: pages, fetches: make(map[string]int)}
}

func (w *fakeWeb) Fetch(ctx context.Context, pageURL string) (*model.Response, error) {
	w.mu.Lock()
	w.fetches[pageURL]++
	page, ok := w.pages[pageURL]
	onFetch := w.onFetch
	w.mu.Unlock()

	if onFetch != nil {
		onFetch(pageURL)
	}
	if page.delay > 0 {
		select {
		case <-time.After(page.delay):
		case <-ctx.Done():
			return nil, &model.TransportError{URL: pageURL, Err: ctx.Err()}
		}
	}
	if !ok || page.fetchFail {
		return nil, &model.TransportError{URL: pageURL, Err: errFakeTransport}
	}
	status := page.status
	if status == 0 {
		status = 200
	}
	return &model.Response{
		URL:         pageURL,
		StatusCode:  status,
		ContentType: page.contentType,
		Body:        []byte(pageURL),
	}, nil
}

func (w *fakeWeb) Parse(pageURL string, body []byte) (*model.Page, error) {
	if string(body) != pageURL {
		return nil, fmt.Errorf("body %q does not belong to %s", body, pageURL)
	}
	w.mu.Lock()
	page := w.pages[pageURL]
	w.mu.Unlock()
	if page.parseFail {
		return nil, &model.ParseError{URL: pageURL, Err: errFakeParse}
	}
	return &model.Page{
		Title:        page.title,
		Links:        page.links,
		Emails:       page.emails,
		PhoneNumbers: page.numbers,
		Text:         page.text,
	}, nil
}

func (w *fakeWeb) fetchCount(pageURL string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fetches[pageURL]
}

func (w *fakeWeb) totalFetches() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	total := 0
	for _, n := range w.fetches {
		total += n
	}
	return total
}

// fakeClassifier labels every text with its length bucket.
type fakeClassifier struct {
	failOn string
}

func (c fakeClassifier) Classify(text string) (model.Classification, error) {
	if c.failOn != "" && text == c.failOn {
		return model.Classification{}, errFakeClassify
	}
	if text == "" {
		return model.Classification{Category: "Unknown"}, nil
	}
	return model.Classification{Category: "Text", Confidence: 0.5}, nil
}

func newTestBuilder(web *fakeWeb, opts ...BuilderOption) *Builder {
	return NewBuilder(web, web, fakeClassifier{}, opts...)
}
