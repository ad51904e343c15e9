// internal/browser/types.go
package browser

import (
	"context"
	"sync"
	"time"
)

// Config defines browser automation configuration.
type Config struct {
	Headless          bool          `yaml:"headless" json:"headless"`
	UserAgent         string        `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	ViewportWidth     int           `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight    int           `yaml:"viewport_height" json:"viewport_height"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
	ConsentTimeout    time.Duration `yaml:"consent_timeout" json:"consent_timeout"`
	SettleDelay       time.Duration `yaml:"settle_delay,omitempty" json:"settle_delay,omitempty"`
	DisableImages     bool          `yaml:"disable_images" json:"disable_images"`
}

// DefaultConfig returns default browser configuration.
func DefaultConfig() *Config {
	return &Config{
		Headless:          true,
		ViewportWidth:     1920,
		ViewportHeight:    1080,
		NavigationTimeout: 25 * time.Second,
		ConsentTimeout:    3 * time.Second,
		SettleDelay:       1 * time.Second,
		DisableImages:     true, // Faster loading
	}
}

// Fetcher loads a page and returns its rendered HTML. Each call runs
// in an isolated browsing context so cookies and navigation history do
// not leak between concurrent tasks. Consent selectors, when present,
// are clicked with a bounded wait; a missing banner is not an error.
type Fetcher interface {
	FetchPage(ctx context.Context, url string, consentSelectors []string) (string, error)
}

// Stats tracks browser automation counters across all tabs.
type Stats struct {
	mu               sync.Mutex
	PagesLoaded      int `json:"pages_loaded"`
	Errors           int `json:"errors"`
	TimeoutsOccurred int `json:"timeouts_occurred"`
	ConsentDismissed int `json:"consent_dismissed"`
}

func (s *Stats) recordPage() {
	s.mu.Lock()
	s.PagesLoaded++
	s.mu.Unlock()
}

func (s *Stats) recordError(timeout bool) {
	s.mu.Lock()
	s.Errors++
	if timeout {
		s.TimeoutsOccurred++
	}
	s.mu.Unlock()
}

func (s *Stats) recordConsent() {
	s.mu.Lock()
	s.ConsentDismissed++
	s.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]int{
		"pages_loaded":      s.PagesLoaded,
		"errors":            s.Errors,
		"timeouts_occurred": s.TimeoutsOccurred,
		"consent_dismissed": s.ConsentDismissed,
	}
}
