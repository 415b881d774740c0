// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or browsers.
package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"katari/internal/interfaces"
	"katari/internal/model"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements interfaces.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...interfaces.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...interfaces.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...interfaces.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...interfaces.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...interfaces.Field) interfaces.Logger { return l }

// Warned reports whether any recorded warning contains substr.
func (l *DummyLogger) Warned(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, w := range l.Warns {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

// ─── Clock ─────────────────────────────────────────────────────────────

// FakeClock is a deterministic detector.Clock: Sleep advances the fake
// time instantly instead of blocking.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock starts the clock at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Advance(d)
	return nil
}

// Advance moves the fake time forward.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Elapsed returns time passed since start.
func (c *FakeClock) Elapsed(start time.Time) time.Duration {
	return c.Now().Sub(start)
}

// ─── Page ──────────────────────────────────────────────────────────────

// DummyPage implements interfaces.Page without a browser.
// By default navigation succeeds, the page is quiet (no loading signals),
// and capture returns canned artifacts. Set FailNavigate[url] or
// FailClick[selector] = true to force errors, RedirectTo[url] to simulate
// redirects.
type DummyPage struct {
	mu          sync.Mutex
	Navigations []string
	Clicks      []string

	FailNavigate map[string]bool
	FailClick    map[string]bool
	RedirectTo   map[string]string

	ScreenshotPNG []byte
	ScreenshotErr error
	HTMLBody      string
	HTMLErr       error

	// VisibleFn overrides CountVisible; nil means always zero.
	VisibleFn func(selectors []string) int

	// Pending is returned by PendingRequests.
	Pending int

	// EvalFn overrides Evaluate; nil means no-op.
	EvalFn func(expr string, out any) error

	location string
}

func (p *DummyPage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Navigations = append(p.Navigations, url)
	if p.FailNavigate != nil && p.FailNavigate[url] {
		return &errString{"dummy navigation fail for " + url}
	}
	if p.RedirectTo != nil {
		if loc, ok := p.RedirectTo[url]; ok {
			p.location = loc
			return nil
		}
	}
	p.location = url
	return nil
}

func (p *DummyPage) Location(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.location, nil
}

func (p *DummyPage) Screenshot(ctx context.Context) ([]byte, error) {
	if p.ScreenshotErr != nil {
		return nil, p.ScreenshotErr
	}
	if p.ScreenshotPNG != nil {
		return p.ScreenshotPNG, nil
	}
	return []byte("png-bytes"), nil
}

func (p *DummyPage) HTML(ctx context.Context) (string, error) {
	if p.HTMLErr != nil {
		return "", p.HTMLErr
	}
	if p.HTMLBody != "" {
		return p.HTMLBody, nil
	}
	return "<html><body><div class=\"tile\">ok</div></body></html>", nil
}

func (p *DummyPage) CountVisible(ctx context.Context, selectors []string) (int, error) {
	if p.VisibleFn != nil {
		return p.VisibleFn(selectors), nil
	}
	return 0, nil
}

func (p *DummyPage) PendingRequests() int { return p.Pending }

func (p *DummyPage) Click(ctx context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Clicks = append(p.Clicks, selector)
	if p.FailClick != nil && p.FailClick[selector] {
		return &errString{"dummy click fail for " + selector}
	}
	return nil
}

func (p *DummyPage) Evaluate(ctx context.Context, expr string, out any) error {
	if p.EvalFn != nil {
		return p.EvalFn(expr, out)
	}
	return nil
}

// ─── StructureProbe ────────────────────────────────────────────────────

// DummyProbe implements interfaces.StructureProbe with a scripted page
// structure. Set FailActivate[index] = true to make that page's activation
// throw, exercising partial multi-page capture.
type DummyProbe struct {
	mu        sync.Mutex
	MultiPage bool
	Entries   []model.PageEntry

	FailActivate map[int]bool
	Activated    []int

	ListErr error
}

func (p *DummyProbe) HasMultiPageControl(ctx context.Context) (bool, error) {
	return p.MultiPage, nil
}

func (p *DummyProbe) ListPageEntries(ctx context.Context) ([]model.PageEntry, error) {
	if p.ListErr != nil {
		return nil, p.ListErr
	}
	return append([]model.PageEntry(nil), p.Entries...), nil
}

func (p *DummyProbe) ActivatePage(ctx context.Context, entry model.PageEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Activated = append(p.Activated, entry.Index)
	if p.FailActivate != nil && p.FailActivate[entry.Index] {
		return &errString{"dummy activation fail for " + entry.Name}
	}
	return nil
}

// ─── Generator ─────────────────────────────────────────────────────────

// DummyGenerator implements interfaces.Generator with a canned description.
type DummyGenerator struct {
	mu       sync.Mutex
	Requests []*model.DescribeRequest

	Description string
	Err         error
}

func (g *DummyGenerator) Describe(ctx context.Context, req *model.DescribeRequest) (string, error) {
	g.mu.Lock()
	g.Requests = append(g.Requests, req)
	g.mu.Unlock()

	if g.Err != nil {
		return "", g.Err
	}
	if g.Description != "" {
		return g.Description, nil
	}
	return "generated description of " + req.ReportName, nil
}

// LastRequest returns the most recent Describe input, or nil.
func (g *DummyGenerator) LastRequest() *model.DescribeRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.Requests) == 0 {
		return nil
	}
	return g.Requests[len(g.Requests)-1]
}

// ─── Session ───────────────────────────────────────────────────────────

// DummySession implements interfaces.Session over a DummyPage.
type DummySession struct {
	P         *DummyPage
	VerifyErr error
	Closed    bool
}

func (s *DummySession) Page() interfaces.Page { return s.P }

func (s *DummySession) Verify(ctx context.Context) error { return s.VerifyErr }

func (s *DummySession) Close() error {
	s.Closed = true
	return nil
}

// DummySessionProvider implements interfaces.SessionProvider, handing out
// sessions from a queue (the last one repeats) and recording the
// forceReauth flag of every acquisition.
type DummySessionProvider struct {
	mu           sync.Mutex
	Sessions     []*DummySession
	Acquisitions []bool
	Err          error

	next int
}

func (p *DummySessionProvider) Acquire(ctx context.Context, forceReauth bool) (interfaces.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Acquisitions = append(p.Acquisitions, forceReauth)
	if p.Err != nil {
		return nil, p.Err
	}
	if len(p.Sessions) == 0 {
		return &DummySession{P: &DummyPage{}}, nil
	}
	s := p.Sessions[p.next]
	if p.next < len(p.Sessions)-1 {
		p.next++
	}
	return s, nil
}

// ─── helpers ───────────────────────────────────────────────────────────

type errString struct{ s string }

func (e *errString) Error() string { return e.s }
