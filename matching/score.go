package matching

import "strings"

// Scoring weights. A term hitting the template name is worth more than a hit
// on an attribute value; an item can collect both for the same term.
const (
	nameMatchScore      = 5
	attributeMatchScore = 2
)

// ScoreItem accumulates relevance for an item across all query terms.
// Matching is case-insensitive substring. "Rice 5kg" with attribute "White"
// against query "rice white" scores 5 + 2 = 7.
func ScoreItem(item AidItem, terms []string) int {
	name := strings.ToLower(item.TemplateName)
	attrs := make([]string, len(item.Attributes))
	for i, a := range item.Attributes {
		attrs[i] = strings.ToLower(a)
	}

	score := 0
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(name, term) {
			score += nameMatchScore
		}
		for _, a := range attrs {
			if strings.Contains(a, term) {
				score += attributeMatchScore
			}
		}
	}
	return score
}

// SplitQuery lowercases and splits a free-text query into whitespace terms.
func SplitQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}
