package tor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CheckURL is the page that reports whether a request arrived over Tor.
const CheckURL = "https://check.torproject.org/"

// maxCheckPageSize caps the body read from the check page.
const maxCheckPageSize = 1 << 20

// IPCheck is the result reported by the Tor check page.
type IPCheck struct {
	// Header is the verdict line, e.g. "Congratulations. This browser is
	// configured to use Tor."
	Header string `json:"header"`
	// Body contains the exit address sentence.
	Body string `json:"body"`
}

// String joins the header and body on two lines.
func (c IPCheck) String() string {
	return c.Header + "\n" + c.Body
}

// CheckIP asks checkURL (normally CheckURL) which exit address the
// request came from. The check page is expected to carry a div.content
// with an h1 verdict and a p containing the address.
func CheckIP(ctx context.Context, client *http.Client, checkURL string) (*IPCheck, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, checkURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", checkURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnexpectedCheckPage, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxCheckPageSize))
	if err != nil {
		return nil, fmt.Errorf("parse check page: %w", err)
	}

	content := doc.Find("div.content").First()
	if content.Length() == 0 {
		return nil, fmt.Errorf("%w: no content block", ErrUnexpectedCheckPage)
	}
	header := content.Find("h1").First()
	if header.Length() == 0 {
		return nil, fmt.Errorf("%w: no header", ErrUnexpectedCheckPage)
	}
	body := content.Find("p").First()
	if body.Length() == 0 {
		return nil, fmt.Errorf("%w: no body", ErrUnexpectedCheckPage)
	}

	return &IPCheck{
		Header: collapseSpace(header.Text()),
		Body:   collapseSpace(body.Text()),
	}, nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
