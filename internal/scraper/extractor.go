// internal/scraper/extractor.go
package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"

	"github.com/bullionwatch/bullionwatch/internal/config"
)

// Target markup is inconsistent across product types, so every field
// carries an ordered fallback chain of selector candidates. A missing
// field is a normal outcome, never an error.

var decimalNumberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ExtractFields evaluates each field's candidates in order against the
// document and returns the fields that matched. Fields with no
// matching candidate are absent from the result map.
func ExtractFields(doc *goquery.Document, specs []config.FieldSpec) map[string]string {
	fields := make(map[string]string, len(specs))
	for _, spec := range specs {
		if value, ok := extractField(doc, spec); ok {
			fields[spec.Name] = value
		}
	}
	return fields
}

// extractField tries each candidate in order. Within one selector,
// elements are scanned in document order until the predicate passes.
func extractField(doc *goquery.Document, spec config.FieldSpec) (string, bool) {
	for _, cand := range spec.Candidates {
		var found string
		doc.Find(cand.Selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := CleanText(s.Text())
			if text == "" {
				return true
			}
			if !matchesPredicate(cand.Match, text) {
				return true
			}
			found = text
			return false
		})
		if found != "" {
			return found, true
		}
	}
	return "", false
}

// matchesPredicate applies a content-shape predicate to trimmed
// element text. Unknown predicate names admit any non-empty text.
func matchesPredicate(match, text string) bool {
	switch {
	case match == "":
		return true
	case match == "currency":
		return strings.ContainsAny(text, "£$€")
	case match == "number":
		return decimalNumberRe.MatchString(text)
	case strings.HasPrefix(match, "contains:"):
		needle := strings.TrimPrefix(match, "contains:")
		return strings.Contains(strings.ToLower(text), strings.ToLower(needle))
	default:
		return true
	}
}

// CleanText normalizes scraped text: Unicode NFC, trimmed, internal
// whitespace collapsed to single spaces.
func CleanText(s string) string {
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}
