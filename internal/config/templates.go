// internal/config/templates.go
package config

import "github.com/bullionwatch/bullionwatch/pkg/types"

// GenerateTemplate returns a ready-to-edit configuration for the
// requested template type. "gold" carries both built-in vendors.
func GenerateTemplate(templateType string) Config {
	switch templateType {
	case "gold", "":
		cfg := Config{
			Name:    "bullionwatch",
			Browser: BrowserConfig{Headless: true, DisableImages: true},
			Vendors: []VendorConfig{BullionByPostVendor(), ChardsVendor()},
		}
		applyDefaults(&cfg)
		return cfg
	default:
		cfg := Config{
			Name:    "bullionwatch",
			Browser: BrowserConfig{Headless: true, DisableImages: true},
			Vendors: []VendorConfig{BullionByPostVendor()},
		}
		applyDefaults(&cfg)
		return cfg
	}
}

// sovereignTitleFilter keeps sovereign coins and drops bars, foreign
// bullion and collectible variants that share listing pages with them.
func sovereignTitleFilter() *TitleFilter {
	return &TitleFilter{
		Include: []string{"sovereign"},
		Exclude: []string{
			"bar", "ingot", "krugerrand", "eagle", "maple", "panda",
			"philharmonic", "britannia", "lunar", "kangaroo", "nugget",
		},
	}
}

// BullionByPostVendor is the built-in descriptor for
// bullionbypost.co.uk. Purchasable products are the anchors rendered
// as "Buy" buttons; out-of-stock items render a different affordance.
func BullionByPostVendor() VendorConfig {
	return VendorConfig{
		Name:      types.VendorBullionByPost,
		BaseURL:   "https://www.bullionbypost.co.uk/gold-coins/full-sovereign-gold-coin/",
		PageParam: "page",
		MaxPages:  2,
		URLPrefix: "https://www.bullionbypost.co.uk",
		ConsentSelectors: []string{
			"#accept_all",
		},
		Listing: ListingConfig{
			LinkSelector:    "a.btn.btn-success.btn-block.product-link",
			TitleAttribute:  "title",
			RequireLinkText: "Buy",
		},
		Fields: []FieldSpec{
			{
				Name: "title",
				Candidates: []SelectorCandidate{
					{Selector: "h1.page-title"},
					{Selector: "h1"},
				},
			},
			{
				Name: "price",
				Candidates: []SelectorCandidate{
					{Selector: "strong.prod-price", Match: "currency"},
					{Selector: ".price", Match: "currency"},
					{Selector: ".product-price", Match: "currency"},
				},
			},
			{
				Name: "stock",
				Candidates: []SelectorCandidate{
					{Selector: "span.text-success"},
					{Selector: ".stock-status"},
				},
			},
		},
	}
}

// ChardsVendor is the built-in descriptor for chards.co.uk. Stock
// state lives in a small label next to each product link, so the
// listing predicate walks up to the card container and checks it.
func ChardsVendor() VendorConfig {
	return VendorConfig{
		Name:      types.VendorChards,
		BaseURL:   "https://www.chards.co.uk/category/buy-coins/a/gold/sovereign",
		PageParam: "page",
		MaxPages:  23,
		URLPrefix: "https://www.chards.co.uk",
		ConsentSelectors: []string{
			"button.cky-btn.cky-btn-accept",
			"#onetrust-accept-btn-handler",
		},
		Listing: ListingConfig{
			LinkSelector:   "a[href][title]",
			TitleAttribute: "title",
			StockScope:     "div",
			StockSelector:  "p.tw-text-xs.tw-font-regular.tw-font-sans.tw-text-tw-text-chards-purple",
			StockText:      "In Stock",
			TitleFilter:    sovereignTitleFilter(),
		},
		Fields: []FieldSpec{
			{
				Name: "title",
				Candidates: []SelectorCandidate{
					{Selector: "h1"},
				},
			},
			{
				Name: "price",
				Candidates: []SelectorCandidate{
					{Selector: `p.tw-text-\[2rem\]`, Match: "currency"},
					{Selector: ".price", Match: "currency"},
					{Selector: ".product-price", Match: "currency"},
					{Selector: ".current-price", Match: "currency"},
					{Selector: `[data-testid="price"]`, Match: "currency"},
				},
			},
			{
				Name: "stock",
				Candidates: []SelectorCandidate{
					{Selector: "p.tw-text-xs.tw-font-regular.tw-font-sans.tw-text-tw-text-chards-purple"},
				},
			},
		},
	}
}
