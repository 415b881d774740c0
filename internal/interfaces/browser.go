package interfaces

import (
	"context"

	"katari/internal/model"
)

// Page is one controllable browser tab, already attached to the
// authenticated browsing context. All methods honor ctx cancellation.
type Page interface {
	// Navigate opens url and waits for the document to commit. Readiness of
	// dynamically rendered content is the load-completion detector's job,
	// not Navigate's.
	Navigate(ctx context.Context, url string) error

	// Location returns the page's current URL, after any redirects.
	Location(ctx context.Context) (string, error)

	// Screenshot captures the full page, not just the viewport, as PNG.
	Screenshot(ctx context.Context) ([]byte, error)

	// HTML returns the serialized live DOM.
	HTML(ctx context.Context) (string, error)

	// CountVisible counts rendered, visible elements matching any of the
	// given selectors.
	CountVisible(ctx context.Context, selectors []string) (int, error)

	// PendingRequests returns the number of in-flight network requests.
	PendingRequests() int

	// Click dispatches a click on the first element matching selector.
	Click(ctx context.Context, selector string) error

	// Evaluate runs a JS expression and unmarshals its result into out.
	Evaluate(ctx context.Context, expr string, out any) error
}

// Session is an authenticated browsing context shared by all reports in a
// run. One page, one report at a time, fully sequential.
type Session interface {
	// Page returns the session's single working tab.
	Page() Page

	// Verify returns ErrAuthRequired-kinded error when the current page
	// shows a login surface instead of report content.
	Verify(ctx context.Context) error

	Close() error
}

// SessionProvider owns the persisted auth state lifecycle. Acquire may
// block on interactive human confirmation on first use or when forceReauth
// is set.
type SessionProvider interface {
	Acquire(ctx context.Context, forceReauth bool) (Session, error)
}

// StructureProbe inspects a rendered report for multi-page structure. The
// detection heuristic is duck-typed against the target application's UI,
// so it hides behind this interface and can be swapped or mocked without
// touching enumeration logic.
type StructureProbe interface {
	// HasMultiPageControl reports whether the page exposes a
	// page-navigation control.
	HasMultiPageControl(ctx context.Context) (bool, error)

	// ListPageEntries returns the control's entries in displayed order.
	// That order is authoritative for page numbering and aggregation.
	ListPageEntries(ctx context.Context) ([]model.PageEntry, error)

	// ActivatePage navigates the report to the given entry's page.
	ActivatePage(ctx context.Context, entry model.PageEntry) error
}
