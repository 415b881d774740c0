package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// localStorageDumpScript snapshots the current origin's localStorage.
// Storage access can throw on opaque origins, in which case the snapshot is
// empty rather than an error.
const localStorageDumpScript = `(function() {
	let items = {};
	try {
		const s = window.localStorage;
		if (s) {
			for (let i = 0; i < s.length; i++) {
				const k = s.key(i);
				if (k !== null) { items[k] = s.getItem(k); }
			}
		}
	} catch (e) {}
	return items;
})()`

const localStorageRestoreScript = `(function(items) {
	try {
		for (const [k, v] of Object.entries(items)) {
			window.localStorage.setItem(k, v);
		}
	} catch (e) {}
	return true;
})(%s)`

// AuthState is the persisted login snapshot: every cookie in the browsing
// context plus localStorage for the origins that were visited while logging
// in. It is written once after an interactive login and restored into fresh
// headless contexts on later runs.
type AuthState struct {
	SavedAt time.Time         `json:"saved_at"`
	Cookies []*network.Cookie `json:"cookies"`
	Origins []OriginState     `json:"origins,omitempty"`
}

// OriginState carries the localStorage entries of one origin.
type OriginState struct {
	Origin       string            `json:"origin"`
	LocalStorage map[string]string `json:"local_storage,omitempty"`
}

// LoadAuthState reads a previously saved snapshot. A missing file surfaces
// as fs.ErrNotExist so callers can fall back to interactive login.
func LoadAuthState(path string) (*AuthState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state AuthState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing auth state %s: %w", path, err)
	}
	return &state, nil
}

// SaveAuthState persists the snapshot with owner-only permissions. The file
// holds live credentials.
func SaveAuthState(path string, state *AuthState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding auth state: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating auth state directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing auth state: %w", err)
	}
	return nil
}

// captureAuthState reads cookies and the current origin's localStorage out
// of the live tab.
func captureAuthState(ctx context.Context, p *Page) (*AuthState, error) {
	state := &AuthState{SavedAt: time.Now().UTC()}
	var origin string
	local := map[string]string{}

	err := p.run(ctx, opTimeout,
		chromedp.ActionFunc(func(c context.Context) error {
			cookies, err := network.GetCookies().Do(c)
			if err != nil {
				return fmt.Errorf("reading cookies: %w", err)
			}
			state.Cookies = cookies
			return nil
		}),
		chromedp.Evaluate(`window.location.origin`, &origin),
		chromedp.Evaluate(localStorageDumpScript, &local),
	)
	if err != nil {
		return nil, fmt.Errorf("capturing auth state: %w", err)
	}
	if origin != "" && origin != "null" && len(local) > 0 {
		state.Origins = append(state.Origins, OriginState{Origin: origin, LocalStorage: local})
	}
	return state, nil
}

// restoreAuthState injects a saved snapshot into the tab's browsing context.
// localStorage is origin-scoped, so each origin is visited before its items
// are written.
func restoreAuthState(ctx context.Context, p *Page, state *AuthState) error {
	if len(state.Cookies) > 0 {
		params := make([]*network.CookieParam, 0, len(state.Cookies))
		for _, c := range state.Cookies {
			params = append(params, cookieParam(c))
		}
		if err := p.run(ctx, opTimeout, network.SetCookies(params)); err != nil {
			return fmt.Errorf("restoring cookies: %w", err)
		}
	}
	for _, o := range state.Origins {
		if len(o.LocalStorage) == 0 {
			continue
		}
		if err := p.Navigate(ctx, o.Origin); err != nil {
			return fmt.Errorf("restoring local storage for %s: %w", o.Origin, err)
		}
		payload, err := json.Marshal(o.LocalStorage)
		if err != nil {
			return fmt.Errorf("encoding local storage for %s: %w", o.Origin, err)
		}
		if err := p.Evaluate(ctx, fmt.Sprintf(localStorageRestoreScript, payload), nil); err != nil {
			return fmt.Errorf("restoring local storage for %s: %w", o.Origin, err)
		}
	}
	return nil
}

// cookieParam converts a captured cookie into the shape SetCookies accepts.
// Session cookies report a negative expiry; only real expirations survive
// the round trip.
func cookieParam(c *network.Cookie) *network.CookieParam {
	param := &network.CookieParam{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HTTPOnly: c.HTTPOnly,
		SameSite: c.SameSite,
	}
	if c.Expires > 0 {
		sec, frac := math.Modf(c.Expires)
		t := cdp.TimeSinceEpoch(time.Unix(int64(sec), int64(frac*1e9)))
		param.Expires = &t
	}
	return param
}
