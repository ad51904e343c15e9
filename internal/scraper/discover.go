// internal/scraper/discover.go
package scraper

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bullionwatch/bullionwatch/internal/browser"
	"github.com/bullionwatch/bullionwatch/internal/config"
	"github.com/bullionwatch/bullionwatch/internal/utils"
	"github.com/bullionwatch/bullionwatch/pkg/types"
)

// Discoverer scans vendor listing pages for purchasable products.
type Discoverer struct {
	fetcher browser.Fetcher
	vendor  config.VendorConfig
	logger  utils.Logger
}

// NewDiscoverer creates a discoverer for one vendor.
func NewDiscoverer(fetcher browser.Fetcher, vendor config.VendorConfig, logger utils.Logger) *Discoverer {
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &Discoverer{
		fetcher: fetcher,
		vendor:  vendor,
		logger:  logger.WithField("vendor", vendor.Name),
	}
}

// ListingURL returns the URL for a 1-based listing page index. Page 1
// is the base URL itself; later pages append the vendor's page
// parameter.
func (d *Discoverer) ListingURL(page int) string {
	if page <= 1 {
		return d.vendor.BaseURL
	}
	sep := "?"
	if strings.Contains(d.vendor.BaseURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s%s=%d", d.vendor.BaseURL, sep, d.vendor.PageParam, page)
}

// DiscoverPage loads one listing page and returns the purchasable
// product references found on it. A page that fails to load or parse
// yields an empty slice; a single bad page never aborts a run.
func (d *Discoverer) DiscoverPage(ctx context.Context, page int) []types.ProductReference {
	url := d.ListingURL(page)
	log := d.logger.WithField("page", page)

	html, err := d.fetcher.FetchPage(ctx, url, d.vendor.ConsentSelectors)
	if err != nil {
		log.Warnf("listing page load failed: %v", err)
		return nil
	}

	refs, err := d.ParseListing(html, page)
	if err != nil {
		log.Warnf("listing page parse failed: %v", err)
		return nil
	}

	log.Debugf("found %d purchasable products", len(refs))
	return refs
}

// ParseListing extracts purchasable product references from listing
// HTML. A product qualifies when its anchor matches the vendor's link
// selector and passes the link-text, stock and title predicates.
// Duplicate URLs on one page collapse to the first occurrence.
func (d *Discoverer) ParseListing(html string, page int) ([]types.ProductReference, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing HTML: %w", err)
	}

	listing := d.vendor.Listing
	var refs []types.ProductReference
	seen := make(map[string]bool)

	doc.Find(listing.LinkSelector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		if listing.RequireLinkText != "" && CleanText(s.Text()) != listing.RequireLinkText {
			return
		}

		title := ""
		if listing.TitleAttribute != "" {
			title, _ = s.Attr(listing.TitleAttribute)
			title = CleanText(title)
		}
		if title == "" {
			title = CleanText(s.Text())
		}
		if !listing.TitleFilter.Matches(title) {
			return
		}

		if listing.StockSelector != "" && !d.inStock(s) {
			return
		}

		url := d.absoluteURL(href)
		if seen[url] {
			return
		}
		seen[url] = true
		refs = append(refs, types.ProductReference{
			URL:          url,
			DisplayTitle: title,
			SourcePage:   page,
		})
	})

	return refs, nil
}

// inStock walks up from the product anchor to its card container and
// checks the stock label there. Vendors without a stock selector skip
// this check entirely.
func (d *Discoverer) inStock(s *goquery.Selection) bool {
	listing := d.vendor.Listing
	scope := s.Parent()
	if listing.StockScope != "" {
		scope = s.Closest(listing.StockScope)
	}
	label := CleanText(scope.Find(listing.StockSelector).First().Text())
	return label == listing.StockText
}

// absoluteURL resolves a listing href against the vendor's URL prefix.
func (d *Discoverer) absoluteURL(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	prefix := strings.TrimSuffix(d.vendor.URLPrefix, "/")
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return prefix + href
}
