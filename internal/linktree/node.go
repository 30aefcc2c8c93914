package linktree

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nao1215/torbot/internal/model"
)

// LinkNode is one visited page. It is immutable after creation.
type LinkNode struct {
	identifier     string
	title          string
	status         int
	classification string
	accuracy       float64
	numbers        []string
	emails         []string
}

// NewNode creates the node for a fetched page.
//
// rawURL is validated and canonicalized into the node identifier; an
// invalid URL yields an error matching ErrInvalidURL. The title is the
// trimmed page title, or the URL's hostname when the page has none.
// Emails and phone numbers are de-duplicated. resp and page may be nil.
func NewNode(rawURL string, resp *model.Response, page *model.Page, cls model.Classification) (*LinkNode, error) {
	id, err := Canonicalize(rawURL)
	if err != nil {
		return nil, err
	}

	n := &LinkNode{
		identifier:     id,
		classification: cls.Category,
		accuracy:       clamp01(cls.Confidence),
	}
	if resp != nil {
		n.status = resp.StatusCode
	}
	if page != nil {
		n.title = strings.TrimSpace(page.Title)
		n.numbers = distinct(page.PhoneNumbers)
		n.emails = distinct(page.Emails)
	}
	if n.title == "" {
		n.title = Hostname(id)
	}
	return n, nil
}

// NodeRecord is the flat, serializable form of a LinkNode.
type NodeRecord struct {
	Identifier     string   `json:"identifier"`
	Title          string   `json:"title"`
	Status         int      `json:"status"`
	Classification string   `json:"classification"`
	Accuracy       float64  `json:"accuracy"`
	Numbers        []string `json:"numbers"`
	Emails         []string `json:"emails"`
}

// NewNodeFromRecord restores a node from its record, as read back from an
// export or a database. The identifier must be a valid URL.
func NewNodeFromRecord(rec NodeRecord) (*LinkNode, error) {
	id, err := Canonicalize(rec.Identifier)
	if err != nil {
		return nil, err
	}
	if !(rec.Accuracy >= 0 && rec.Accuracy <= 1) {
		return nil, fmt.Errorf("node %s: accuracy %v out of range", id, rec.Accuracy)
	}
	title := strings.TrimSpace(rec.Title)
	if title == "" {
		title = Hostname(id)
	}
	return &LinkNode{
		identifier:     id,
		title:          title,
		status:         rec.Status,
		classification: rec.Classification,
		accuracy:       rec.Accuracy,
		numbers:        distinct(rec.Numbers),
		emails:         distinct(rec.Emails),
	}, nil
}

// Record returns a copy of the node's fields.
func (n *LinkNode) Record() NodeRecord {
	return NodeRecord{
		Identifier:     n.identifier,
		Title:          n.title,
		Status:         n.status,
		Classification: n.classification,
		Accuracy:       n.accuracy,
		Numbers:        n.Numbers(),
		Emails:         n.Emails(),
	}
}

// Identifier returns the canonical URL of the page.
func (n *LinkNode) Identifier() string { return n.identifier }

// Title returns the page title or its hostname fallback.
func (n *LinkNode) Title() string { return n.title }

// Status returns the HTTP status code of the fetch.
func (n *LinkNode) Status() int { return n.status }

// Classification returns the category label.
func (n *LinkNode) Classification() string { return n.classification }

// Accuracy returns the classifier confidence in [0, 1].
func (n *LinkNode) Accuracy() float64 { return n.accuracy }

// Numbers returns a copy of the phone numbers found on the page.
func (n *LinkNode) Numbers() []string { return slices.Clone(n.numbers) }

// Emails returns a copy of the email addresses found on the page.
func (n *LinkNode) Emails() []string { return slices.Clone(n.emails) }

// distinct returns values without empty strings and duplicates, keeping
// the first occurrence of each.
func distinct(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
