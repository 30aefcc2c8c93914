package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/torbot/internal/model"
)

func TestHTTPFetcherFetch(t *testing.T) {
	t.Parallel()

	t.Run("returns status headers and body", func(t *testing.T) {
		t.Parallel()

		var gotUA string
		received := make(chan string, 1)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			received <- r.Header.Get("User-Agent")
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Header().Set("Server", "nginx")
			_, _ = w.Write([]byte("<html><title>hello</title></html>"))
		}))
		defer server.Close()

		f := NewHTTPFetcher(server.Client(), WithUserAgent("torbot-test"))
		resp, err := f.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		gotUA = <-received

		if gotUA != "torbot-test" {
			t.Errorf("User-Agent = %q", gotUA)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("StatusCode = %d", resp.StatusCode)
		}
		if resp.GetHeader("Server") != "nginx" {
			t.Errorf("Server header = %q", resp.GetHeader("Server"))
		}
		if !strings.Contains(string(resp.Body), "<title>hello</title>") {
			t.Errorf("Body = %q", resp.Body)
		}
		if resp.Hash == "" {
			t.Error("expected body hash")
		}
	})

	t.Run("error status is not a transport error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		resp, err := NewHTTPFetcher(server.Client()).Fetch(context.Background(), server.URL+"/missing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("StatusCode = %d, expected 404", resp.StatusCode)
		}
	})

	t.Run("caps body size", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write([]byte(strings.Repeat("x", 1000)))
		}))
		defer server.Close()

		resp, err := NewHTTPFetcher(server.Client(), WithMaxBodySize(100)).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(resp.Body) != 100 {
			t.Errorf("len(Body) = %d, expected 100", len(resp.Body))
		}
	})

	t.Run("decodes declared charset", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
			// "café" in Latin-1
			_, _ = w.Write([]byte{'c', 'a', 'f', 0xE9})
		}))
		defer server.Close()

		resp, err := NewHTTPFetcher(server.Client()).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(resp.Body) != "café" {
			t.Errorf("Body = %q, expected %q", resp.Body, "café")
		}
	})

	t.Run("connection failure is a transport error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		addr := server.URL
		server.Close()

		_, err := NewHTTPFetcher(http.DefaultClient).Fetch(context.Background(), addr)
		var transportErr *model.TransportError
		if !errors.As(err, &transportErr) {
			t.Fatalf("expected *model.TransportError, got %T %v", err, err)
		}
		if transportErr.URL != addr {
			t.Errorf("URL = %q", transportErr.URL)
		}
	})

	t.Run("timeout is a transport error", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
			<-release
		}))
		defer server.Close()
		defer close(release)

		client := server.Client()
		client.Timeout = 50 * time.Millisecond

		_, err := NewHTTPFetcher(client).Fetch(context.Background(), server.URL)
		var transportErr *model.TransportError
		if !errors.As(err, &transportErr) {
			t.Fatalf("expected *model.TransportError, got %v", err)
		}
	})

	t.Run("nil client is a transport error", func(t *testing.T) {
		t.Parallel()

		_, err := NewHTTPFetcher(nil).Fetch(context.Background(), "http://example.com/")
		if !errors.Is(err, ErrNilClient) {
			t.Errorf("expected ErrNilClient, got %v", err)
		}
	})
}

func TestHTTPFetcherHostClient(t *testing.T) {
	t.Parallel()

	var defaultHits, hostHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	defer server.Close()

	counting := func(counter *atomic.Int32) *http.Client {
		return &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			counter.Add(1)
			return http.DefaultTransport.RoundTrip(r)
		})}
	}

	f := NewHTTPFetcher(counting(&defaultHits), WithHostClient("127.0.0.1", counting(&hostHits)))
	if _, err := f.Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hostHits.Load() != 1 || defaultHits.Load() != 0 {
		t.Errorf("host client hits = %d, default hits = %d", hostHits.Load(), defaultHits.Load())
	}
}

func TestHTTPFetcherRateLimit(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	defer server.Close()

	f := NewHTTPFetcher(server.Client(), WithRateLimit(20, 1))
	start := time.Now()
	for range 3 {
		if _, err := f.Fetch(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// three requests at 20/s with burst 1 need at least two 50ms intervals
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("rate limit not applied, elapsed %v", elapsed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var transportErr *model.TransportError
	if _, err := f.Fetch(ctx, server.URL); !errors.As(err, &transportErr) {
		t.Errorf("expected transport error for cancelled context, got %v", err)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
