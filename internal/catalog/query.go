package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

// stopWords are generic marketing terms that appear in listing titles but
// never in catalog card names. Searching on them only drags in noise.
var stopWords = map[string]bool{
	"pokemon":    true,
	"tcg":        true,
	"holo":       true,
	"foil":       true,
	"rare":       true,
	"unlimited":  true,
	"first":      true,
	"edition":    true,
	"shadowless": true,
	"promo":      true,
	"japanese":   true,
	"card":       true,
	"set":        true,
	"number":     true,
	"mint":       true,
	"nm":         true,
	"psa":        true,
	"graded":     true,
}

var tokenSplitRe = regexp.MustCompile(`[\s\-()/]+`)
var digitsRe = regexp.MustCompile(`^\d+$`)

// SearchTerms tokenizes free text for a catalog name search. Stop words,
// bare numbers (card numbers, grades, years) and any consumed tokens
// (set-name words the title parser already claimed) are dropped.
func SearchTerms(text string, consumed ...string) []string {
	skip := make(map[string]bool, len(consumed))
	for _, c := range consumed {
		for _, w := range tokenSplitRe.Split(strings.ToLower(c), -1) {
			if w != "" {
				skip[w] = true
			}
		}
	}

	var terms []string
	for _, w := range tokenSplitRe.Split(strings.ToLower(text), -1) {
		if w == "" || stopWords[w] || skip[w] || digitsRe.MatchString(w) {
			continue
		}
		terms = append(terms, w)
	}
	return terms
}

// buildNameQuery renders terms into the catalog's query syntax. When
// filtering leaves nothing, the full text is searched as a single quoted
// name so the request still has a chance of matching.
func buildNameQuery(text string, terms []string) string {
	if len(terms) == 0 {
		return fmt.Sprintf("name:%q", text)
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = fmt.Sprintf("name:%q", t)
	}
	return strings.Join(parts, " OR ")
}
