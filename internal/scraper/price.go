// internal/scraper/price.go
package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

// Price strings arrive in several shapes: "£625.10", "Price from
// £625.10", "£600 - £650" (bulk pricing), "£625.10 per coin". The
// matchers below are tried in priority order after currency symbols
// and thousands separators are stripped.
var (
	priceFromRe  = regexp.MustCompile(`(?i)from\s*([\d.]+)`)
	priceRangeRe = regexp.MustCompile(`([\d.]+)\s*-\s*([\d.]+)`)
	pricePerRe   = regexp.MustCompile(`(?i)([\d.]+)\s*per\s*\w+`)
	priceBareRe  = regexp.MustCompile(`\d+(?:\.\d+)?`)

	currencyStripper = strings.NewReplacer("£", "", "$", "", "€", "", ",", "")
)

// NormalizePrice parses a raw scraped price string into a numeric
// amount. Range prices resolve to the higher bound so bulk discounts
// never under-report the unit cost. The second return value is false
// when the text contains no recognizable price.
func NormalizePrice(raw string) (float64, bool) {
	cleaned := strings.TrimSpace(currencyStripper.Replace(raw))
	if cleaned == "" {
		return 0, false
	}

	if m := priceFromRe.FindStringSubmatch(cleaned); m != nil {
		return parsePriceNumber(m[1])
	}

	if m := priceRangeRe.FindStringSubmatch(cleaned); m != nil {
		lo, okLo := parsePriceNumber(m[1])
		hi, okHi := parsePriceNumber(m[2])
		switch {
		case okLo && okHi:
			return max(lo, hi), true
		case okHi:
			return hi, true
		case okLo:
			return lo, true
		}
		return 0, false
	}

	if m := pricePerRe.FindStringSubmatch(cleaned); m != nil {
		return parsePriceNumber(m[1])
	}

	if m := priceBareRe.FindString(cleaned); m != "" {
		return parsePriceNumber(m)
	}

	return 0, false
}

// NormalizePriceValue is NormalizePrice with a pointer result, for
// populating nullable store columns.
func NormalizePriceValue(raw string) *float64 {
	v, ok := NormalizePrice(raw)
	if !ok {
		return nil
	}
	return &v
}

func parsePriceNumber(s string) (float64, bool) {
	// Trailing dots survive the symbol stripper ("£625." etc).
	s = strings.Trim(s, ".")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
