package classify

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// UnknownCategory is the label returned when no rule matches.
const UnknownCategory = "Unknown"

//go:embed rules.yaml
var defaultRulesYAML []byte

var (
	// ErrNoRules is returned by Classify when the classifier has no usable rules.
	ErrNoRules = errors.New("classify: no rules configured")

	// ErrInvalidRule is returned for rules without a category or keywords.
	ErrInvalidRule = errors.New("classify: invalid rule")
)

// Rule maps keywords to a category.
type Rule struct {
	// Category is the label reported for matching text.
	Category string `yaml:"category"`

	// Keywords are matched as whole words, case-insensitively.
	// Multi-word keywords match the words in sequence.
	Keywords []string `yaml:"keywords"`

	// MinScore is the lowest score at which the rule may win. Zero means
	// any match counts.
	MinScore float64 `yaml:"min_score,omitempty"`
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// DefaultRules returns the built-in rules.
func DefaultRules() []Rule {
	rules, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded rules: %v", err))
	}
	return rules
}

// LoadRules reads rules from a YAML file with a top-level "rules" list.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from user configuration
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes and validates YAML rules.
func ParseRules(data []byte) ([]Rule, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	rules := make([]Rule, 0, len(file.Rules))
	for i, r := range file.Rules {
		r.Category = strings.TrimSpace(r.Category)
		if r.Category == "" {
			return nil, fmt.Errorf("%w: rule %d has no category", ErrInvalidRule, i)
		}
		if len(r.Keywords) == 0 {
			return nil, fmt.Errorf("%w: rule %q has no keywords", ErrInvalidRule, r.Category)
		}
		rules = append(rules, r)
	}
	return rules, nil
}
