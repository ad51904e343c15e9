// internal/browser/chromedp.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeClient owns one headless Chrome process and hands out an
// isolated tab per FetchPage call. The process is shared read-mostly;
// tabs carry the per-task navigation state.
type ChromeClient struct {
	allocCtx     context.Context
	allocCancel  context.CancelFunc
	browserCtx   context.Context
	browserStop  context.CancelFunc
	config       *Config
	stats        *Stats
}

// NewChromeClient launches the browser process. Failure here is a
// setup failure and fatal to the caller's run.
func NewChromeClient(config *Config) (*ChromeClient, error) {
	if config == nil {
		config = DefaultConfig()
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox, // Required for Docker environments
	}

	if config.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}
	if config.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserStop := chromedp.NewContext(allocCtx)

	client := &ChromeClient{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		browserCtx:  browserCtx,
		browserStop: browserStop,
		config:      config,
		stats:       &Stats{},
	}

	// Start the process and apply the viewport so the first FetchPage
	// does not pay the launch cost inside its navigation timeout.
	if err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(int64(config.ViewportWidth), int64(config.ViewportHeight)),
	); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return client, nil
}

// FetchPage navigates an isolated tab to url, dismisses any consent
// banner, waits for the page to settle and returns its HTML. The tab
// is closed before returning.
func (c *ChromeClient) FetchPage(ctx context.Context, url string, consentSelectors []string) (string, error) {
	tabCtx, closeTab := chromedp.NewContext(c.browserCtx)
	defer closeTab()

	navCtx, cancel := context.WithTimeout(tabCtx, c.config.NavigationTimeout)
	defer cancel()

	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	)
	if err != nil {
		c.stats.recordError(errors.Is(err, context.DeadlineExceeded))
		return "", fmt.Errorf("navigation failed for %s: %w", url, err)
	}

	c.dismissConsent(tabCtx, consentSelectors)

	if c.config.SettleDelay > 0 {
		_ = chromedp.Run(tabCtx, chromedp.Sleep(c.config.SettleDelay))
	}

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html)); err != nil {
		c.stats.recordError(false)
		return "", fmt.Errorf("failed to get HTML for %s: %w", url, err)
	}

	// Honor caller cancellation even though chromedp ran on the tab
	// context.
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	c.stats.recordPage()
	return html, nil
}

// dismissConsent clicks the first matching consent selector. Absence
// of the banner is the common case and not an error.
func (c *ChromeClient) dismissConsent(tabCtx context.Context, selectors []string) {
	for _, sel := range selectors {
		waitCtx, cancel := context.WithTimeout(tabCtx, c.config.ConsentTimeout)
		err := chromedp.Run(waitCtx,
			chromedp.WaitVisible(sel, chromedp.ByQuery),
			chromedp.Click(sel, chromedp.ByQuery),
		)
		cancel()
		if err == nil {
			c.stats.recordConsent()
			// Give the overlay a moment to clear.
			_ = chromedp.Run(tabCtx, chromedp.Sleep(500*time.Millisecond))
			return
		}
	}
}

// Stats returns the shared counters for this browser process.
func (c *ChromeClient) Stats() *Stats {
	return c.stats
}

// Close shuts down the browser process.
func (c *ChromeClient) Close() error {
	if c.browserStop != nil {
		c.browserStop()
	}
	if c.allocCancel != nil {
		c.allocCancel()
	}
	return nil
}
