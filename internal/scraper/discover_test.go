// internal/scraper/discover_test.go
package scraper

import (
	"context"
	"fmt"
	"testing"

	"github.com/bullionwatch/bullionwatch/internal/config"
)

// fakeFetcher serves canned HTML keyed by URL. Missing URLs fail like
// a navigation timeout would.
type fakeFetcher struct {
	pages map[string]string
}

func (f *fakeFetcher) FetchPage(_ context.Context, url string, _ []string) (string, error) {
	html, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("navigation failed for %s", url)
	}
	return html, nil
}

func buyButtonVendor() config.VendorConfig {
	return config.VendorConfig{
		Name:      "TestVendor",
		BaseURL:   "https://shop.example/sovereigns/",
		PageParam: "page",
		MaxPages:  2,
		URLPrefix: "https://shop.example",
		Listing: config.ListingConfig{
			LinkSelector:    "a.product-link",
			TitleAttribute:  "title",
			RequireLinkText: "Buy",
		},
		Fields: []config.FieldSpec{
			{Name: "title", Candidates: []config.SelectorCandidate{{Selector: "h1"}}},
			{Name: "price", Candidates: []config.SelectorCandidate{{Selector: ".price", Match: "currency"}}},
			{Name: "stock", Candidates: []config.SelectorCandidate{{Selector: ".stock"}}},
		},
	}
}

func TestListingURL(t *testing.T) {
	d := NewDiscoverer(&fakeFetcher{}, buyButtonVendor(), nil)

	if got := d.ListingURL(1); got != "https://shop.example/sovereigns/" {
		t.Errorf("page 1 URL = %q", got)
	}
	if got := d.ListingURL(2); got != "https://shop.example/sovereigns/?page=2" {
		t.Errorf("page 2 URL = %q", got)
	}

	vendor := buyButtonVendor()
	vendor.BaseURL = "https://shop.example/sovereigns?sort=price"
	d = NewDiscoverer(&fakeFetcher{}, vendor, nil)
	if got := d.ListingURL(3); got != "https://shop.example/sovereigns?sort=price&page=3" {
		t.Errorf("page 3 URL with existing query = %q", got)
	}
}

func TestParseListingLinkTextAndDedup(t *testing.T) {
	html := `<html><body>
		<a class="product-link" href="/coins/sov-2024" title="Sovereign 2024">Buy</a>
		<a class="product-link" href="/coins/sov-2024" title="Sovereign 2024">Buy</a>
		<a class="product-link" href="/coins/sov-2023" title="Sovereign 2023">Out of Stock</a>
		<a class="product-link" href="" title="Broken">Buy</a>
		<a class="product-link" href="https://other.example/sov" title="External">Buy</a>
	</body></html>`

	d := NewDiscoverer(&fakeFetcher{}, buyButtonVendor(), nil)
	refs, err := d.ParseListing(html, 1)
	if err != nil {
		t.Fatalf("ParseListing failed: %v", err)
	}

	if len(refs) != 2 {
		t.Fatalf("got %d refs, want 2: %+v", len(refs), refs)
	}
	if refs[0].URL != "https://shop.example/coins/sov-2024" {
		t.Errorf("relative href not absolutized: %q", refs[0].URL)
	}
	if refs[0].DisplayTitle != "Sovereign 2024" {
		t.Errorf("title attribute not used: %q", refs[0].DisplayTitle)
	}
	if refs[0].SourcePage != 1 {
		t.Errorf("source page = %d, want 1", refs[0].SourcePage)
	}
	if refs[1].URL != "https://other.example/sov" {
		t.Errorf("absolute href should pass through: %q", refs[1].URL)
	}
}

func TestParseListingStockLabel(t *testing.T) {
	vendor := config.VendorConfig{
		Name:      "TestVendor",
		BaseURL:   "https://shop.example/gold",
		PageParam: "page",
		URLPrefix: "https://shop.example",
		Listing: config.ListingConfig{
			LinkSelector:   "a[href][title]",
			TitleAttribute: "title",
			StockScope:     "div",
			StockSelector:  "p.stock-label",
			StockText:      "In Stock",
			TitleFilter: &config.TitleFilter{
				Include: []string{"sovereign"},
				Exclude: []string{"bar", "krugerrand"},
			},
		},
	}

	html := `<html><body>
		<div class="card">
			<a href="/p/sov-full" title="Full Sovereign 2024">Full Sovereign 2024</a>
			<p class="stock-label">In Stock</p>
		</div>
		<div class="card">
			<a href="/p/sov-half" title="Half Sovereign 2024">Half Sovereign 2024</a>
			<p class="stock-label">Out of Stock</p>
		</div>
		<div class="card">
			<a href="/p/kruger" title="Krugerrand 1oz">Krugerrand 1oz</a>
			<p class="stock-label">In Stock</p>
		</div>
		<div class="card">
			<a href="/p/gold-bar" title="Gold Bar 100g">Gold Bar 100g</a>
			<p class="stock-label">In Stock</p>
		</div>
	</body></html>`

	d := NewDiscoverer(&fakeFetcher{}, vendor, nil)
	refs, err := d.ParseListing(html, 3)
	if err != nil {
		t.Fatalf("ParseListing failed: %v", err)
	}

	if len(refs) != 1 {
		t.Fatalf("got %d refs, want 1: %+v", len(refs), refs)
	}
	if refs[0].URL != "https://shop.example/p/sov-full" {
		t.Errorf("wrong ref survived filtering: %q", refs[0].URL)
	}
	if refs[0].SourcePage != 3 {
		t.Errorf("source page = %d, want 3", refs[0].SourcePage)
	}
}

func TestDiscoverPageFailureYieldsEmpty(t *testing.T) {
	d := NewDiscoverer(&fakeFetcher{pages: map[string]string{}}, buyButtonVendor(), nil)

	refs := d.DiscoverPage(context.Background(), 1)
	if len(refs) != 0 {
		t.Errorf("failed page should yield no refs, got %d", len(refs))
	}
}
