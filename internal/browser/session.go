package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"katari/internal/interfaces"
)

// loginPathMarkers are URL path fragments that mean the target bounced the
// tab to its login flow instead of serving report content.
var loginPathMarkers = []string{"/login", "/signin", "/auth"}

// loginFormSelectors spot a login surface that renders without changing the
// URL, the way embedded auth widgets do.
var loginFormSelectors = []string{
	`input[type="password"]`,
	`form[action*="login"]`,
	`form[action*="signin"]`,
}

// Session is an authenticated browsing context with a single working tab.
type Session struct {
	page   interfaces.Page
	close  func() error
	logger interfaces.Logger
}

var _ interfaces.Session = (*Session)(nil)

func newSession(page interfaces.Page, close func() error, logger interfaces.Logger) *Session {
	return &Session{page: page, close: close, logger: logger}
}

func (s *Session) Page() interfaces.Page { return s.page }

// Verify reports ErrAuthRequired when the tab is showing a login surface.
// It inspects the landed URL first, then looks for visible credential
// inputs, since some deployments serve the login form on the report URL
// itself.
func (s *Session) Verify(ctx context.Context) error {
	loc, err := s.page.Location(ctx)
	if err != nil {
		return fmt.Errorf("verifying session: %w", err)
	}
	if u, err := url.Parse(loc); err == nil {
		path := strings.ToLower(u.Path)
		for _, marker := range loginPathMarkers {
			if strings.Contains(path, marker) {
				return fmt.Errorf("%w: redirected to %s", ErrAuthRequired, loc)
			}
		}
	}
	n, err := s.page.CountVisible(ctx, loginFormSelectors)
	if err != nil {
		return fmt.Errorf("verifying session: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: login form visible at %s", ErrAuthRequired, loc)
	}
	return nil
}

func (s *Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
