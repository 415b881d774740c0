package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"katari/internal/interfaces"
)

// opTimeout bounds non-navigation tab operations (screenshots, evaluation,
// DOM serialization).
const opTimeout = 30 * time.Second

// visibleCountScript counts rendered elements matching any selector in the
// injected list. Selector syntax errors are skipped rather than failing the
// whole count.
const visibleCountScript = `(function(selectors) {
	let count = 0;
	for (const sel of selectors) {
		let matched;
		try { matched = document.querySelectorAll(sel); } catch (e) { continue; }
		for (const el of matched) {
			if (el.offsetWidth || el.offsetHeight || el.getClientRects().length) { count++; }
		}
	}
	return count;
})(%s)`

// Page is the working tab. Operations run against the tab's own context but
// stop early when the caller's context ends.
type Page struct {
	tab        context.Context
	watcher    *netWatcher
	navTimeout time.Duration
	logger     interfaces.Logger
}

var _ interfaces.Page = (*Page)(nil)

// run executes actions with a timeout, honoring caller cancellation.
func (p *Page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opCtx, cancel := context.WithTimeout(p.tab, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(opCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Navigate opens url and waits for the load event. Content readiness beyond
// that is the detector's business.
func (p *Page) Navigate(ctx context.Context, url string) error {
	p.logger.Debug("navigating", interfaces.Field{Key: "url", Value: url})
	if err := p.run(ctx, p.navTimeout, chromedp.Navigate(url)); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return fmt.Errorf("%w: %s: %w", ErrNavigationFailed, url, err)
	}
	return nil
}

func (p *Page) Location(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, opTimeout, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("reading location: %w", err)
	}
	return loc, nil
}

// Screenshot captures the entire scrollable page as PNG. Quality 100 selects
// PNG in the protocol; anything lower would switch the encoding to JPEG.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, opTimeout, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	return buf, nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, opTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("serializing dom: %w", err)
	}
	return html, nil
}

func (p *Page) CountVisible(ctx context.Context, selectors []string) (int, error) {
	sels, err := json.Marshal(selectors)
	if err != nil {
		return 0, fmt.Errorf("encoding selectors: %w", err)
	}
	var count int
	if err := p.run(ctx, opTimeout, chromedp.Evaluate(fmt.Sprintf(visibleCountScript, sels), &count)); err != nil {
		return 0, fmt.Errorf("counting visible elements: %w", err)
	}
	return count, nil
}

func (p *Page) PendingRequests() int {
	return p.watcher.Pending()
}

func (p *Page) Click(ctx context.Context, selector string) error {
	err := p.run(ctx, opTimeout,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("clicking %q: %w", selector, err)
	}
	return nil
}

func (p *Page) Evaluate(ctx context.Context, expr string, out any) error {
	if err := p.run(ctx, opTimeout, chromedp.Evaluate(expr, out)); err != nil {
		return fmt.Errorf("evaluating expression: %w", err)
	}
	return nil
}
