package tor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const checkPage = `<html><body>
<div class="content">
  <h1 class="not">
    Congratulations. This browser is configured to use Tor.
  </h1>
  <p>Your IP address appears to be:  <strong>198.51.100.7</strong></p>
  <p>Other text</p>
</div>
</body></html>`

func TestCheckIP(t *testing.T) {
	t.Parallel()

	t.Run("parses header and address", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(checkPage))
		}))
		defer server.Close()

		got, err := CheckIP(context.Background(), server.Client(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Header != "Congratulations. This browser is configured to use Tor." {
			t.Errorf("Header = %q", got.Header)
		}
		if got.Body != "Your IP address appears to be: 198.51.100.7" {
			t.Errorf("Body = %q", got.Body)
		}
		if got.String() != got.Header+"\n"+got.Body {
			t.Errorf("String() = %q", got.String())
		}
	})

	testCases := []struct {
		name   string
		status int
		body   string
	}{
		{"missing content block", http.StatusOK, "<html><body><h1>hi</h1></body></html>"},
		{"missing header", http.StatusOK, `<div class="content"><p>x</p></div>`},
		{"missing body", http.StatusOK, `<div class="content"><h1>x</h1></div>`},
		{"non-200 status", http.StatusBadGateway, checkPage},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := CheckIP(context.Background(), server.Client(), server.URL)
			if !errors.Is(err, ErrUnexpectedCheckPage) {
				t.Errorf("expected ErrUnexpectedCheckPage, got %v", err)
			}
		})
	}
}
