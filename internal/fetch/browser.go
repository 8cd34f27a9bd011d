// Package fetch - browser.go provides headless browser rendering for
// JavaScript-heavy job boards.
package fetch

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chromedp/chromedp"
)

// DefaultRenderTimeout bounds a single page render.
const DefaultRenderTimeout = 20 * time.Second

// settleDelay gives client-side rendering a moment to populate the DOM after
// the document is ready.
const settleDelay = 2 * time.Second

// Browser owns a headless Chrome session. A session is created once per
// scrape cycle and must not be shared concurrently; pages are rendered one at
// a time through it. Requires Chrome/Chromium on the system.
type Browser struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	cancel      context.CancelFunc
	verbose     bool
}

// NewBrowser starts a headless Chrome session.
func NewBrowser(ctx context.Context, verbose bool) (*Browser, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.WindowSize(1920, 1080),
			chromedp.UserAgent(DefaultUserAgent),
		)...,
	)

	browserCtx, cancel := chromedp.NewContext(allocCtx)

	// Start the browser process eagerly so a missing Chrome install surfaces
	// here instead of on the first render.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start headless browser: %w", err)
	}

	return &Browser{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		browserCtx:  browserCtx,
		cancel:      cancel,
		verbose:     verbose,
	}, nil
}

// Render navigates to a URL, optionally waits for waitSelector to appear, and
// returns the rendered HTML. The whole render is bounded by timeout.
func (b *Browser) Render(url string, waitSelector string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}

	if b.verbose {
		log.Printf("[browser] Rendering %s", url)
	}

	// Each page gets its own tab context so a timed-out render doesn't poison
	// the session.
	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	defer cancel()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, timeout)
	defer cancelTimeout()

	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(settleDelay),
	}
	if waitSelector != "" {
		actions = append(actions, chromedp.WaitVisible(waitSelector, chromedp.ByQuery))
	}

	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html))

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return "", fmt.Errorf("browser rendering failed for %s: %w", url, err)
	}

	if b.verbose {
		log.Printf("[browser] Rendered HTML: %d bytes", len(html))
	}

	return html, nil
}

// Close tears down the browser session.
func (b *Browser) Close() {
	b.cancel()
	b.allocCancel()
}
