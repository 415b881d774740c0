package browser

import (
	"context"
	"sync/atomic"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// netWatcher counts in-flight requests on a tab by pairing request-sent
// events with their finished or failed counterparts.
type netWatcher struct {
	inflight atomic.Int64
}

// watchNetwork attaches a listener to the tab context. Attach before
// network.Enable runs so no early request goes uncounted.
func watchNetwork(tab context.Context) *netWatcher {
	w := &netWatcher{}
	chromedp.ListenTarget(tab, func(ev any) {
		switch ev.(type) {
		case *network.EventRequestWillBeSent:
			w.inflight.Add(1)
		case *network.EventLoadingFinished, *network.EventLoadingFailed:
			// Completions can arrive for requests that predate the
			// listener; clamp instead of going negative.
			if w.inflight.Add(-1) < 0 {
				w.inflight.Store(0)
			}
		}
	})
	return w
}

// Pending returns the current in-flight request count.
func (w *netWatcher) Pending() int {
	n := w.inflight.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}
