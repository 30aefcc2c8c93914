// Package classify assigns a website category to page text.
//
// KeywordClassifier is a rule engine: each rule names a category and a
// list of keywords. All keywords are matched in one Aho-Corasick pass
// and each category is scored from how often and how broadly its
// keywords occur. The built-in rules cover the usual website categories
// (news, forums, e-commerce, ...); custom rules can be loaded from YAML.
package classify
