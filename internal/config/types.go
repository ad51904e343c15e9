// internal/config/types.go
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the top-level application configuration.
type Config struct {
	Name     string         `yaml:"name" json:"name"`
	Server   ServerConfig   `yaml:"server" json:"server"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Browser  BrowserConfig  `yaml:"browser" json:"browser"`
	Scrape   ScrapeConfig   `yaml:"scrape" json:"scrape"`
	Vendors  []VendorConfig `yaml:"vendors" json:"vendors"`
	LogLevel string         `yaml:"log_level,omitempty" json:"log_level,omitempty"`
}

// ServerConfig configures the HTTP API surface.
type ServerConfig struct {
	Addr              string  `yaml:"addr" json:"addr"`
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty" json:"requests_per_second,omitempty"`
	Burst             int     `yaml:"burst,omitempty" json:"burst,omitempty"`
}

// DatabaseConfig selects the relational backend. Driver is one of
// "sqlite3", "postgres" or "mysql".
type DatabaseConfig struct {
	Driver string `yaml:"driver" json:"driver"`
	DSN    string `yaml:"dsn" json:"dsn"`
}

// BrowserConfig configures the shared headless browser process.
// Duration fields are strings in time.ParseDuration format.
type BrowserConfig struct {
	Headless          bool   `yaml:"headless" json:"headless"`
	UserAgent         string `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	ViewportWidth     int    `yaml:"viewport_width,omitempty" json:"viewport_width,omitempty"`
	ViewportHeight    int    `yaml:"viewport_height,omitempty" json:"viewport_height,omitempty"`
	NavigationTimeout string `yaml:"navigation_timeout,omitempty" json:"navigation_timeout,omitempty"`
	ConsentTimeout    string `yaml:"consent_timeout,omitempty" json:"consent_timeout,omitempty"`
	SettleDelay       string `yaml:"settle_delay,omitempty" json:"settle_delay,omitempty"`
	DisableImages     bool   `yaml:"disable_images" json:"disable_images"`
}

// ScrapeConfig bounds the pipeline's concurrency and pacing.
type ScrapeConfig struct {
	PageBatchSize    int    `yaml:"page_batch_size,omitempty" json:"page_batch_size,omitempty"`
	ProductBatchSize int    `yaml:"product_batch_size,omitempty" json:"product_batch_size,omitempty"`
	BatchPause       string `yaml:"batch_pause,omitempty" json:"batch_pause,omitempty"`
	NavInterval      string `yaml:"nav_interval,omitempty" json:"nav_interval,omitempty"`
	NavBurst         int    `yaml:"nav_burst,omitempty" json:"nav_burst,omitempty"`
}

// VendorConfig is the data-driven description of one target site:
// how to build listing URLs, which consent banners to dismiss, which
// anchors are purchasable products, and where the product-page fields
// live. Adding a vendor is a configuration change, not a code change.
type VendorConfig struct {
	Name             string        `yaml:"name" json:"name"`
	BaseURL          string        `yaml:"base_url" json:"base_url"`
	PageParam        string        `yaml:"page_param,omitempty" json:"page_param,omitempty"`
	MaxPages         int           `yaml:"max_pages,omitempty" json:"max_pages,omitempty"`
	URLPrefix        string        `yaml:"url_prefix,omitempty" json:"url_prefix,omitempty"`
	ConsentSelectors []string      `yaml:"consent_selectors,omitempty" json:"consent_selectors,omitempty"`
	Listing          ListingConfig `yaml:"listing" json:"listing"`
	Fields           []FieldSpec   `yaml:"fields" json:"fields"`
}

// ListingConfig describes how product references are recognized on a
// listing page. A link is included when its text matches
// RequireLinkText (if set) and, when StockSelector is set, the nearest
// StockScope ancestor contains a stock label equal to StockText.
type ListingConfig struct {
	LinkSelector    string       `yaml:"link_selector" json:"link_selector"`
	TitleAttribute  string       `yaml:"title_attribute,omitempty" json:"title_attribute,omitempty"`
	RequireLinkText string       `yaml:"require_link_text,omitempty" json:"require_link_text,omitempty"`
	StockScope      string       `yaml:"stock_scope,omitempty" json:"stock_scope,omitempty"`
	StockSelector   string       `yaml:"stock_selector,omitempty" json:"stock_selector,omitempty"`
	StockText       string       `yaml:"stock_text,omitempty" json:"stock_text,omitempty"`
	TitleFilter     *TitleFilter `yaml:"title_filter,omitempty" json:"title_filter,omitempty"`
}

// TitleFilter keeps references whose display title contains at least
// one Include keyword and none of the Exclude keywords. Matching is
// case-insensitive. An empty Include list admits every title.
type TitleFilter struct {
	Include []string `yaml:"include,omitempty" json:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// Matches reports whether title passes the filter.
func (f *TitleFilter) Matches(title string) bool {
	if f == nil {
		return true
	}
	lower := strings.ToLower(title)
	if len(f.Include) > 0 {
		found := false
		for _, kw := range f.Include {
			if strings.Contains(lower, strings.ToLower(kw)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, kw := range f.Exclude {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return false
		}
	}
	return true
}

// FieldSpec names a product-page field and its ordered candidate
// selectors. Candidates are tried in order; the first match wins.
type FieldSpec struct {
	Name       string              `yaml:"name" json:"name"`
	Candidates []SelectorCandidate `yaml:"candidates" json:"candidates"`
}

// SelectorCandidate pairs a CSS selector with an optional content
// predicate. Match is one of "" (any non-empty text), "currency"
// (text contains a currency symbol), "number" (text contains a
// decimal number) or "contains:<substring>".
type SelectorCandidate struct {
	Selector string `yaml:"selector" json:"selector"`
	Match    string `yaml:"match,omitempty" json:"match,omitempty"`
}

// Validate checks structural requirements on the configuration.
func (c *Config) Validate() error {
	if len(c.Vendors) == 0 {
		return fmt.Errorf("at least one vendor must be configured")
	}
	seen := make(map[string]bool, len(c.Vendors))
	for i := range c.Vendors {
		v := &c.Vendors[i]
		if err := v.Validate(); err != nil {
			return fmt.Errorf("vendor %d: %w", i, err)
		}
		if seen[v.Name] {
			return fmt.Errorf("duplicate vendor name %q", v.Name)
		}
		seen[v.Name] = true
	}
	if c.Scrape.PageBatchSize < 0 || c.Scrape.ProductBatchSize < 0 {
		return fmt.Errorf("batch sizes must be non-negative")
	}
	for _, d := range []string{c.Browser.NavigationTimeout, c.Browser.ConsentTimeout,
		c.Browser.SettleDelay, c.Scrape.BatchPause, c.Scrape.NavInterval} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("invalid duration %q: %w", d, err)
		}
	}
	switch c.Database.Driver {
	case "", "sqlite3", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	return nil
}

// Validate checks a single vendor descriptor.
func (v *VendorConfig) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return fmt.Errorf("vendor name cannot be empty")
	}
	if strings.TrimSpace(v.BaseURL) == "" {
		return fmt.Errorf("vendor %s: base_url cannot be empty", v.Name)
	}
	if strings.TrimSpace(v.Listing.LinkSelector) == "" {
		return fmt.Errorf("vendor %s: listing.link_selector cannot be empty", v.Name)
	}
	if v.MaxPages < 0 {
		return fmt.Errorf("vendor %s: max_pages must be non-negative", v.Name)
	}
	for _, f := range v.Fields {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("vendor %s: field name cannot be empty", v.Name)
		}
		if len(f.Candidates) == 0 {
			return fmt.Errorf("vendor %s: field %s has no selector candidates", v.Name, f.Name)
		}
		for _, cand := range f.Candidates {
			if strings.TrimSpace(cand.Selector) == "" {
				return fmt.Errorf("vendor %s: field %s has an empty selector", v.Name, f.Name)
			}
		}
	}
	return nil
}

// Duration parses a configured duration string, returning fallback
// for empty or invalid values. Validate has already rejected invalid
// strings on the load path; the fallback keeps hand-built configs in
// tests safe.
func Duration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
