package browser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"katari/internal/interfaces"
)

// Provider owns the persisted auth state lifecycle. With a usable snapshot
// on disk it hands out headless sessions; without one it walks a human
// through an interactive browser login first.
type Provider struct {
	statePath string
	baseURL   string
	opts      Options
	logger    interfaces.Logger

	// input and prompt default to stdin/stderr and exist so tests can
	// script the confirmation step.
	input  io.Reader
	prompt io.Writer
}

var _ interfaces.SessionProvider = (*Provider)(nil)

// ProviderConfig configures a Provider.
type ProviderConfig struct {
	// StatePath is where the login snapshot lives on disk.
	StatePath string

	// BaseURL is the page opened for interactive login, typically the
	// Looker instance root.
	BaseURL string

	// Browser applies to every launched browser. Headless is overridden
	// per flow: off for interactive login, on for report sessions.
	Browser Options
}

func NewProvider(cfg ProviderConfig, logger interfaces.Logger) *Provider {
	return &Provider{
		statePath: cfg.StatePath,
		baseURL:   cfg.BaseURL,
		opts:      cfg.Browser,
		logger:    logger.With(interfaces.Field{Key: "component", Value: "auth"}),
		input:     os.Stdin,
		prompt:    os.Stderr,
	}
}

// Acquire returns an authenticated headless session. forceReauth discards
// the saved snapshot first, so the interactive flow always runs.
func (p *Provider) Acquire(ctx context.Context, forceReauth bool) (interfaces.Session, error) {
	if forceReauth {
		if err := os.Remove(p.statePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("removing auth state: %w", err)
		}
		p.logger.Info("discarded saved auth state", interfaces.Field{Key: "path", Value: p.statePath})
	}

	state, err := LoadAuthState(p.statePath)
	switch {
	case err == nil:
		p.logger.Debug("loaded saved auth state",
			interfaces.Field{Key: "path", Value: p.statePath},
			interfaces.Field{Key: "saved_at", Value: state.SavedAt},
		)
	case errors.Is(err, fs.ErrNotExist):
		state = nil
	default:
		// A corrupt snapshot is handled like a missing one, loudly.
		p.logger.Warn("saved auth state unreadable, interactive login required",
			interfaces.Field{Key: "error", Value: err.Error()},
		)
		state = nil
	}

	if state == nil {
		state, err = p.interactiveLogin(ctx)
		if err != nil {
			return nil, err
		}
	}
	return p.headlessSession(ctx, state)
}

func (p *Provider) headlessSession(ctx context.Context, state *AuthState) (interfaces.Session, error) {
	opts := p.opts
	opts.Headless = true
	b, err := Launch(ctx, opts, p.logger)
	if err != nil {
		return nil, err
	}
	if err := restoreAuthState(ctx, b.Page(), state); err != nil {
		b.Close()
		return nil, err
	}
	return newSession(b.Page(), b.Close, p.logger), nil
}

// interactiveLogin opens a visible browser on the base URL, waits for the
// human to confirm they finished logging in, then snapshots and saves the
// resulting state.
func (p *Provider) interactiveLogin(ctx context.Context) (*AuthState, error) {
	if p.baseURL == "" {
		return nil, fmt.Errorf("%w: no saved auth state and no base URL for interactive login", ErrAuthRequired)
	}

	opts := p.opts
	opts.Headless = false
	b, err := Launch(ctx, opts, p.logger)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	if err := b.Page().Navigate(ctx, p.baseURL); err != nil {
		return nil, err
	}

	fmt.Fprintln(p.prompt, strings.Repeat("=", 60))
	fmt.Fprintln(p.prompt, "AUTHENTICATION REQUIRED")
	fmt.Fprintln(p.prompt, "A browser window is open. Complete the login there, including")
	fmt.Fprintln(p.prompt, "any SSO or two-factor steps.")
	fmt.Fprintln(p.prompt, strings.Repeat("=", 60))
	fmt.Fprint(p.prompt, "Press Enter AFTER you have finished logging in... ")

	if err := p.waitForEnter(ctx); err != nil {
		return nil, err
	}

	state, err := captureAuthState(ctx, b.Page())
	if err != nil {
		return nil, err
	}
	if err := SaveAuthState(p.statePath, state); err != nil {
		return nil, err
	}
	p.logger.Info("auth state saved",
		interfaces.Field{Key: "path", Value: p.statePath},
		interfaces.Field{Key: "cookies", Value: len(state.Cookies)},
	)
	return state, nil
}

// waitForEnter blocks until the operator presses Enter or ctx ends. EOF
// counts as confirmation so scripted stdin works.
func (p *Provider) waitForEnter(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(p.input).ReadString('\n')
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading login confirmation: %w", err)
		}
		return nil
	}
}
