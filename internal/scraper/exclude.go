package scraper

import "strings"

// ContainsExcludedTerm returns true if any term appears (case-insensitive)
// in the vacancy title. Empty terms are ignored.
func ContainsExcludedTerm(title string, terms []string) bool {
	if len(terms) == 0 {
		return false
	}
	lower := strings.ToLower(title)
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
