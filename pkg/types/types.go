// pkg/types/types.go
package types

import (
	"fmt"
	"strings"
	"time"
)

// Known vendor identifiers. The set is open: configuration may define
// additional vendors without touching this package.
const (
	VendorBullionByPost = "BullionByPost"
	VendorChards        = "Chards"
)

// SortOrder controls result ordering for product queries.
type SortOrder string

const (
	SortPriceAsc  SortOrder = "price-asc"
	SortPriceDesc SortOrder = "price-desc"
	SortRecency   SortOrder = "recency"
)

// ParseSortOrder maps a query-string value to a SortOrder. Unknown or
// empty values fall back to recency ordering.
func ParseSortOrder(s string) SortOrder {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case SortPriceAsc:
		return SortPriceAsc
	case SortPriceDesc:
		return SortPriceDesc
	default:
		return SortRecency
	}
}

// ProductReference is a candidate product discovered on a listing page.
// References are consumed immediately by the product scraper and are
// never persisted on their own.
type ProductReference struct {
	URL          string `json:"url"`
	DisplayTitle string `json:"title"`
	SourcePage   int    `json:"pageNumber"`
}

// ProductRecord is the unit of persistence. Extraction fields may be
// empty when the corresponding selector chain did not match; Error is
// non-empty when the product page could not be scraped at all, in
// which case the extraction fields carry no information.
type ProductRecord struct {
	ID            int64     `json:"id,omitempty"`
	Title         string    `json:"title"`
	Price         string    `json:"price"`
	PriceValue    *float64  `json:"priceValue,omitempty"`
	Stock         string    `json:"stock"`
	URL           string    `json:"url"`
	Vendor        string    `json:"vendor"`
	Timestamp     time.Time `json:"timestamp"`
	OriginalTitle string    `json:"originalTitle"`
	SourcePage    int       `json:"pageNumber"`
	Error         string    `json:"error,omitempty"`
}

// Failed reports whether the record represents a failed scrape attempt.
func (r *ProductRecord) Failed() bool {
	return r.Error != ""
}

// Validate checks the invariants every record must satisfy before it
// can be stored.
func (r *ProductRecord) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("product record missing url")
	}
	if r.Vendor == "" {
		return fmt.Errorf("product record missing vendor (url=%s)", r.URL)
	}
	return nil
}

// Filter narrows product queries. Zero values mean "no constraint".
// MinPrice and MaxPrice operate on the normalized numeric price;
// records without a parseable price are excluded from price-bounded
// queries but appear in unbounded ones.
type Filter struct {
	Vendor    string
	TextQuery string
	MinPrice  *float64
	MaxPrice  *float64
	SortBy    SortOrder
}

// VendorCount pairs a vendor identifier with its stored record count.
type VendorCount struct {
	Vendor string `json:"vendor"`
	Count  int    `json:"count"`
}
