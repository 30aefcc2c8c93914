package classify

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	ahocorasick "github.com/cloudflare/ahocorasick"
	"golang.org/x/text/cases"

	"github.com/nao1215/torbot/internal/model"
)

// Scoring weights. A category's score is a log-scaled term frequency
// plus the fraction of its keywords that occur, so both repetition and
// breadth count.
const (
	tfWeight              = 0.6
	coverageWeight        = 0.4
	tfNormalizationFactor = 3.0 // log1p(hits)/3 reaches 1 at about 19 hits
)

// Score is the result of one category for a text.
type Score struct {
	Category      string
	Score         float64
	Hits          int
	UniqueMatches int
	Coverage      float64
}

// KeywordClassifier classifies text with keyword rules. It is safe for
// concurrent use and deterministic.
type KeywordClassifier struct {
	// mu serializes matcher use; the Aho-Corasick matcher keeps per-call
	// state in its trie.
	mu      sync.Mutex
	matcher *ahocorasick.Matcher

	rules []Rule
	// keywords holds each distinct normalized keyword padded with spaces.
	keywords []string
	// owners lists the rules (by index) each keyword belongs to.
	owners [][]int
	// ruleSize is the number of distinct keywords per rule.
	ruleSize []int
}

// NewKeywordClassifier builds a classifier from rules. Earlier rules win
// ties. A classifier without keywords returns ErrNoRules from Classify.
func NewKeywordClassifier(rules []Rule) *KeywordClassifier {
	c := &KeywordClassifier{
		rules:    rules,
		ruleSize: make([]int, len(rules)),
	}

	index := make(map[string]int)
	for ri, rule := range rules {
		seen := make(map[string]bool)
		for _, kw := range rule.Keywords {
			norm := normalize(kw)
			if norm == "" || seen[norm] {
				continue
			}
			seen[norm] = true
			c.ruleSize[ri]++

			padded := " " + norm + " "
			ki, ok := index[padded]
			if !ok {
				ki = len(c.keywords)
				index[padded] = ki
				c.keywords = append(c.keywords, padded)
				c.owners = append(c.owners, nil)
			}
			c.owners[ki] = append(c.owners[ki], ri)
		}
	}
	if len(c.keywords) > 0 {
		c.matcher = ahocorasick.NewStringMatcher(c.keywords)
	}
	return c
}

// Classify returns the best scoring category for text, or UnknownCategory
// with confidence 0 when no rule matches.
func (c *KeywordClassifier) Classify(text string) (model.Classification, error) {
	scores, err := c.Scores(text)
	if err != nil {
		return model.Classification{}, err
	}
	if len(scores) == 0 {
		return model.Classification{Category: UnknownCategory}, nil
	}
	return model.Classification{Category: scores[0].Category, Confidence: scores[0].Score}, nil
}

// Scores returns every category that reached its minimum score, best
// first. Equal scores keep rule order.
func (c *KeywordClassifier) Scores(text string) ([]Score, error) {
	if c.matcher == nil {
		return nil, ErrNoRules
	}

	norm := " " + normalize(text) + " "
	if norm == "  " {
		return nil, nil
	}

	c.mu.Lock()
	hits := c.matcher.Match([]byte(norm))
	c.mu.Unlock()

	type accum struct {
		hits   int
		unique int
	}
	acc := make([]accum, len(c.rules))
	for _, ki := range hits {
		n := countOverlapping(norm, c.keywords[ki])
		for _, ri := range c.owners[ki] {
			acc[ri].hits += n
			acc[ri].unique++
		}
	}

	var scores []Score
	for ri, a := range acc {
		if a.unique == 0 || c.ruleSize[ri] == 0 {
			continue
		}
		coverage := float64(a.unique) / float64(c.ruleSize[ri])
		logTF := math.Min(1.0, math.Log1p(float64(a.hits))/tfNormalizationFactor)
		score := math.Min(1.0, logTF*tfWeight+coverage*coverageWeight)
		if score < c.rules[ri].MinScore {
			continue
		}
		scores = append(scores, Score{
			Category:      c.rules[ri].Category,
			Score:         score,
			Hits:          a.hits,
			UniqueMatches: a.unique,
			Coverage:      coverage,
		})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	return scores, nil
}

// RuleCount returns the number of rules.
func (c *KeywordClassifier) RuleCount() int {
	return len(c.rules)
}

// KeywordCount returns the number of distinct keywords.
func (c *KeywordClassifier) KeywordCount() int {
	return len(c.keywords)
}

// normalize case-folds s, turns everything but letters and digits into
// spaces and collapses runs of spaces.
func normalize(s string) string {
	s = cases.Fold().String(s)
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

// countOverlapping counts occurrences of sub in s, allowing overlaps so
// that " a " is found twice in " a a ".
func countOverlapping(s, sub string) int {
	n := 0
	for {
		i := strings.Index(s, sub)
		if i < 0 {
			return n
		}
		n++
		s = s[i+1:]
	}
}
