// Package browser drives a Chrome instance over the DevTools protocol. It
// owns process lifecycle, one working tab, persisted auth state, and the
// page structure probe.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"katari/internal/interfaces"
)

var (
	// ErrNavigationFailed marks navigations that never committed, whether
	// from DNS, TLS, or a load timeout.
	ErrNavigationFailed = errors.New("navigation failed")

	// ErrAuthRequired marks a session whose page landed on a login surface
	// instead of report content.
	ErrAuthRequired = errors.New("authentication required")
)

// LoadingSelectors match the target application's loading indicators. The
// readiness detector polls these to decide when a dashboard has settled.
var LoadingSelectors = []string{
	".lk-loading",
	".loading-spinner",
	"[data-testid='loading']",
	".dashboard-loading",
	".viz-loading",
	"lk-spinner",
}

// Options shape the launched Chrome process and its single working tab.
type Options struct {
	Headless          bool
	WindowWidth       int
	WindowHeight      int
	NavigationTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.WindowWidth <= 0 {
		o.WindowWidth = 1920
	}
	if o.WindowHeight <= 0 {
		o.WindowHeight = 1080
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = 60 * time.Second
	}
	return o
}

// Browser is a running Chrome process with one tab attached. Reports are
// processed strictly one at a time, so one tab is all a run needs.
type Browser struct {
	tab         context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	watcher     *netWatcher
	page        *Page
	logger      interfaces.Logger
}

// Launch starts Chrome and opens the working tab. The returned Browser must
// be Closed; ctx bounds the lifetime of the whole process.
func Launch(ctx context.Context, opts Options, logger interfaces.Logger) (*Browser, error) {
	opts = opts.withDefaults()
	log := logger.With(interfaces.Field{Key: "component", Value: "browser"})

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
		// DefaultExecAllocatorOptions forces headless; override explicitly
		// so interactive logins get a visible window.
		chromedp.Flag("headless", opts.Headless),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// The listener must attach before network events start flowing.
	watcher := watchNetwork(tabCtx)

	// First Run starts the process; enabling the network domain turns on
	// the request lifecycle events the watcher counts.
	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("starting chrome: %w", err)
	}

	log.Debug("chrome started",
		interfaces.Field{Key: "headless", Value: opts.Headless},
		interfaces.Field{Key: "window", Value: fmt.Sprintf("%dx%d", opts.WindowWidth, opts.WindowHeight)},
	)

	b := &Browser{
		tab:         tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		watcher:     watcher,
		logger:      log,
	}
	b.page = &Page{
		tab:        tabCtx,
		watcher:    watcher,
		navTimeout: opts.NavigationTimeout,
		logger:     log,
	}
	return b, nil
}

// Page returns the working tab.
func (b *Browser) Page() *Page { return b.page }

// Close shuts the browser down, waiting briefly for a graceful exit.
func (b *Browser) Close() error {
	err := chromedp.Cancel(b.tab)
	b.tabCancel()
	b.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("closing chrome: %w", err)
	}
	return nil
}
