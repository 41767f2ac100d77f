package service

import (
	"strings"
)

// Synonym maps any of Terms appearing in a query onto a single match target.
type Synonym struct {
	Terms  []string
	Target string
}

// KeywordRules controls how a free-text query becomes a keyword filter.
// All matching is case-insensitive.
type KeywordRules struct {
	// BypassPhrases are whole queries that mean "everything".
	BypassPhrases []string
	// BypassSubstrings disable filtering when contained in the query.
	BypassSubstrings []string
	// Synonyms rewrite the match target. Checked in order; first match wins.
	Synonyms []Synonym
	// BroadTopics disable filtering when contained in a query no synonym matched.
	BroadTopics []string
}

// DefaultKeywordRules returns the rules the dashboard search has always used.
func DefaultKeywordRules() KeywordRules {
	return KeywordRules{
		BypassPhrases:    []string{"all", "recent", "show all", "most recent", "show all quotes"},
		BypassSubstrings: []string{"all quotes", "all freight"},
		Synonyms: []Synonym{
			{Terms: []string{"chinese", "china"}, Target: "China"},
		},
		BroadTopics: []string{"line item"},
	}
}

// Plan decides how query filters records. bypass reports that no filter
// applies; otherwise target is the value matched against the search fields.
func (r KeywordRules) Plan(query string) (target string, bypass bool) {
	trimmed := strings.TrimSpace(query)
	lower := strings.ToLower(trimmed)
	if lower == "" {
		return "", true
	}

	for _, p := range r.BypassPhrases {
		if lower == strings.ToLower(p) {
			return "", true
		}
	}
	for _, s := range r.BypassSubstrings {
		if strings.Contains(lower, strings.ToLower(s)) {
			return "", true
		}
	}

	for _, syn := range r.Synonyms {
		for _, term := range syn.Terms {
			if strings.Contains(lower, strings.ToLower(term)) {
				return syn.Target, false
			}
		}
	}

	for _, topic := range r.BroadTopics {
		if strings.Contains(lower, strings.ToLower(topic)) {
			return "", true
		}
	}

	return trimmed, false
}
