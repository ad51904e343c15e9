// internal/scraper/pipeline.go
package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/bullionwatch/bullionwatch/internal/browser"
	"github.com/bullionwatch/bullionwatch/internal/config"
	"github.com/bullionwatch/bullionwatch/internal/monitoring"
	"github.com/bullionwatch/bullionwatch/internal/utils"
	"github.com/bullionwatch/bullionwatch/pkg/types"
)

// Store is the persistence surface the pipeline needs: replace one
// vendor's records atomically with the results of a fresh run.
type Store interface {
	ReplaceVendor(ctx context.Context, vendor string, records []types.ProductRecord) (int, error)
}

// Pipeline runs the two-step scrape for a vendor: scan listing pages
// for purchasable products, then scrape each product page, then
// replace the vendor's stored records with the new snapshot.
type Pipeline struct {
	fetcher browser.Fetcher
	store   Store
	logger  utils.Logger
	metrics *monitoring.Metrics
	cfg     config.ScrapeConfig
	pacer   *rate.Limiter
}

// NewPipeline wires a pipeline. metrics may be nil.
func NewPipeline(fetcher browser.Fetcher, store Store, logger utils.Logger, metrics *monitoring.Metrics, cfg config.ScrapeConfig) *Pipeline {
	if logger == nil {
		logger = utils.NewLogger()
	}
	if cfg.PageBatchSize <= 0 {
		cfg.PageBatchSize = 5
	}
	if cfg.ProductBatchSize <= 0 {
		cfg.ProductBatchSize = 10
	}

	var pacer *rate.Limiter
	if interval := config.Duration(cfg.NavInterval, 0); interval > 0 {
		burst := cfg.NavBurst
		if burst <= 0 {
			burst = 1
		}
		pacer = rate.NewLimiter(rate.Every(interval), burst)
	}

	return &Pipeline{
		fetcher: fetcher,
		store:   store,
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,
		pacer:   pacer,
	}
}

// RunVendor executes a full scrape for one vendor and returns the
// number of records stored.
func (p *Pipeline) RunVendor(ctx context.Context, vendor config.VendorConfig) (int, error) {
	start := time.Now()
	log := p.logger.WithField("vendor", vendor.Name)
	log.Infof("starting scrape run: %d listing pages", vendor.MaxPages)

	p.metrics.RunStarted()
	defer p.metrics.RunFinished()
	defer func() {
		p.metrics.ObserveRunDuration(vendor.Name, time.Since(start).Seconds())
	}()

	refs := p.discover(ctx, vendor)
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(refs) == 0 {
		// Replacing stored records with an empty snapshot would wipe
		// good data whenever the site is down, so treat total
		// discovery failure as a run failure.
		return 0, fmt.Errorf("no purchasable products discovered for %s", vendor.Name)
	}
	log.Infof("discovered %d purchasable products", len(refs))

	records := p.scrapeProducts(ctx, vendor, refs)
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	stored, err := p.store.ReplaceVendor(ctx, vendor.Name, records)
	if err != nil {
		return 0, fmt.Errorf("failed to store records for %s: %w", vendor.Name, err)
	}
	p.metrics.RecordStored(vendor.Name, stored)

	failed := 0
	for _, r := range records {
		if r.Failed() {
			failed++
		}
	}
	log.Infof("run complete: %d records stored (%d failed) in %s", stored, failed, time.Since(start).Round(time.Millisecond))
	return stored, nil
}

// Run scrapes every vendor in order. A failed vendor does not stop the
// remaining ones; their errors are joined into the return value.
func (p *Pipeline) Run(ctx context.Context, vendors []config.VendorConfig) (int, error) {
	total := 0
	var errs []error
	for _, vendor := range vendors {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		n, err := p.RunVendor(ctx, vendor)
		if err != nil {
			p.logger.Errorf("vendor %s failed: %v", vendor.Name, err)
			errs = append(errs, err)
			continue
		}
		total += n
	}
	return total, errors.Join(errs...)
}

// discover scans listing pages in concurrent batches and flattens the
// per-page references in page order.
func (p *Pipeline) discover(ctx context.Context, vendor config.VendorConfig) []types.ProductReference {
	d := NewDiscoverer(p.pacedFetcher(), vendor, p.logger)

	pages := make([]int, vendor.MaxPages)
	for i := range pages {
		pages[i] = i + 1
	}

	pause := config.Duration(p.cfg.BatchPause, time.Second)
	perPage := RunBatches(ctx, pages, p.cfg.PageBatchSize, pause, func(ctx context.Context, page int) []types.ProductReference {
		refs := d.DiscoverPage(ctx, page)
		p.metrics.RecordPageScanned(vendor.Name)
		return refs
	})

	var refs []types.ProductReference
	seen := make(map[string]bool)
	for _, pageRefs := range perPage {
		for _, ref := range pageRefs {
			if seen[ref.URL] {
				continue
			}
			seen[ref.URL] = true
			refs = append(refs, ref)
		}
	}
	return refs
}

// scrapeProducts scrapes each reference in concurrent batches.
func (p *Pipeline) scrapeProducts(ctx context.Context, vendor config.VendorConfig, refs []types.ProductReference) []types.ProductRecord {
	ps := NewProductScraper(p.pacedFetcher(), vendor, p.logger)

	pause := config.Duration(p.cfg.BatchPause, time.Second)
	return RunBatches(ctx, refs, p.cfg.ProductBatchSize, pause, func(ctx context.Context, ref types.ProductReference) types.ProductRecord {
		record := ps.Scrape(ctx, ref)
		p.metrics.RecordProductScraped(vendor.Name, record.Failed())
		return record
	})
}

// pacedFetcher wraps the browser fetcher with the navigation rate
// limiter when one is configured.
func (p *Pipeline) pacedFetcher() browser.Fetcher {
	if p.pacer == nil {
		return p.fetcher
	}
	return &pacedFetcher{inner: p.fetcher, limiter: p.pacer}
}

type pacedFetcher struct {
	inner   browser.Fetcher
	limiter *rate.Limiter
}

func (f *pacedFetcher) FetchPage(ctx context.Context, url string, consentSelectors []string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return f.inner.FetchPage(ctx, url, consentSelectors)
}
