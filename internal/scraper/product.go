// internal/scraper/product.go
package scraper

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/bullionwatch/bullionwatch/internal/browser"
	"github.com/bullionwatch/bullionwatch/internal/config"
	"github.com/bullionwatch/bullionwatch/internal/utils"
	"github.com/bullionwatch/bullionwatch/pkg/types"
)

// ProductScraper turns a discovered reference into a full product
// record by loading the product page and extracting its fields.
type ProductScraper struct {
	fetcher browser.Fetcher
	vendor  config.VendorConfig
	logger  utils.Logger
	now     func() time.Time
}

// NewProductScraper creates a product scraper for one vendor.
func NewProductScraper(fetcher browser.Fetcher, vendor config.VendorConfig, logger utils.Logger) *ProductScraper {
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &ProductScraper{
		fetcher: fetcher,
		vendor:  vendor,
		logger:  logger.WithField("vendor", vendor.Name),
		now:     time.Now,
	}
}

// Scrape always returns a record. On failure the record carries the
// reference identity plus an error message, so a broken product page
// stays visible in the stored results instead of silently vanishing.
func (p *ProductScraper) Scrape(ctx context.Context, ref types.ProductReference) types.ProductRecord {
	record := types.ProductRecord{
		URL:           ref.URL,
		Vendor:        p.vendor.Name,
		Timestamp:     p.now().UTC(),
		OriginalTitle: ref.DisplayTitle,
		SourcePage:    ref.SourcePage,
	}

	html, err := p.fetcher.FetchPage(ctx, ref.URL, p.vendor.ConsentSelectors)
	if err != nil {
		p.logger.Warnf("product page load failed for %s: %v", ref.URL, err)
		record.Error = err.Error()
		return record
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		p.logger.Warnf("product page parse failed for %s: %v", ref.URL, err)
		record.Error = err.Error()
		return record
	}

	fields := ExtractFields(doc, p.vendor.Fields)
	record.Title = fields["title"]
	record.Price = fields["price"]
	record.Stock = fields["stock"]
	record.PriceValue = NormalizePriceValue(record.Price)

	if record.Title == "" && record.Price == "" {
		// Nothing extracted usually means an interstitial or error
		// page rendered instead of the product.
		record.Error = "no product fields extracted"
	}
	return record
}
