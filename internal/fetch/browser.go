// Package fetch - browser.go provides headless browser rendering for script-heavy job boards.
package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// MinContentLength is the minimum extracted text length to consider an HTTP fetch successful.
// If content is shorter, the page is re-rendered in a browser when browser rendering is enabled.
const MinContentLength = 200

// ShouldUseBrowser returns true if the extracted text is too short,
// indicating the page is likely rendered client-side.
func ShouldUseBrowser(extractedText string) bool {
	return len(strings.TrimSpace(extractedText)) < MinContentLength
}

// WithBrowser renders a page in a headless browser and returns the rendered HTML.
// Requires Chrome/Chromium to be installed on the system.
func WithBrowser(ctx context.Context, url string, timeout time.Duration, log logrus.FieldLogger) (string, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log.WithField("url", url).Debug("starting headless browser")

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(DefaultUserAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		// Job cards are injected after load on most boards
		chromedp.Sleep(3*time.Second),
		chromedp.ActionFunc(func(ctx context.Context) error {
			// Cookie banners are optional
			_ = chromedp.Click(`button[id*="accept"], button[class*="accept"]`, chromedp.NodeVisible, chromedp.AtLeast(0)).Do(ctx)
			return nil
		}),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", &Error{URL: url, Message: "browser rendering failed", Cause: err}
	}

	log.WithFields(logrus.Fields{"url": url, "bytes": len(html)}).Debug("browser rendered page")
	return html, nil
}

// Renderer renders a URL into HTML. WithBrowser is the production implementation.
type Renderer func(ctx context.Context, url string, timeout time.Duration, log logrus.FieldLogger) (string, error)

// Fetcher bundles the HTTP options, per-host rate limiting and the optional
// browser fallback used by the scraping adapters.
type Fetcher struct {
	Options    *Options
	Limiter    *HostLimiter
	UseBrowser bool
	Render     Renderer
	Log        logrus.FieldLogger
}

// NewFetcher creates a Fetcher with the given request timeout and per-host rate.
func NewFetcher(timeout time.Duration, ratePerSec float64, useBrowser bool, log logrus.FieldLogger) *Fetcher {
	opts := DefaultOptions()
	if timeout > 0 {
		opts.Timeout = timeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Fetcher{
		Options:    opts,
		Limiter:    NewHostLimiter(ratePerSec, 1),
		UseBrowser: useBrowser,
		Render:     WithBrowser,
		Log:        log,
	}
}

// HTML fetches a page, waiting on the host limiter first. When browser rendering is
// enabled and the plain fetch fails or yields too little text, the page is rendered instead.
func (f *Fetcher) HTML(ctx context.Context, url string) (string, error) {
	if err := f.Limiter.WaitURL(ctx, url); err != nil {
		return "", &Error{URL: url, Message: "rate limiter wait aborted", Cause: err}
	}

	result, err := URL(ctx, url, f.Options)
	if err == nil && !f.UseBrowser {
		return result.HTML, nil
	}
	if err == nil {
		text, extractErr := ExtractMainText(result.HTML, DefaultTextSelectors())
		if extractErr == nil && !ShouldUseBrowser(text) {
			return result.HTML, nil
		}
	}
	if !f.UseBrowser || f.Render == nil {
		return "", err
	}

	f.Log.WithField("url", url).Debug("falling back to browser rendering")
	html, renderErr := f.Render(ctx, url, f.Options.Timeout*2, f.Log)
	if renderErr != nil {
		if err != nil {
			return "", fmt.Errorf("%w (browser fallback: %v)", err, renderErr)
		}
		// The plain fetch succeeded, just thinly
		return result.HTML, nil
	}
	return html, nil
}

// WithHeaders returns a copy of the Fetcher that sends extra headers on every request.
// The copy shares the host limiter so politeness holds across adapters.
func (f *Fetcher) WithHeaders(headers map[string]string) *Fetcher {
	opts := *f.Options
	merged := make(map[string]string, len(opts.Headers)+len(headers))
	for k, v := range opts.Headers {
		merged[k] = v
	}
	for k, v := range headers {
		merged[k] = v
	}
	opts.Headers = merged

	clone := *f
	clone.Options = &opts
	return &clone
}
