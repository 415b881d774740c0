package utils

import (
	"net"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

var (
	unsafeChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// Report names can be long; filenames derived from them are capped.
const maxFilenameLen = 100

// SanitizeFilename converts a report name into a filesystem-safe base name:
// characters unsafe on common filesystems and whitespace runs become
// underscores, leading/trailing underscores are trimmed, and the result is
// capped at 100 characters.
func SanitizeFilename(name string) string {
	safe := unsafeChars.ReplaceAllString(name, "_")
	safe = whitespace.ReplaceAllString(safe, "_")
	safe = strings.Trim(safe, "_")
	if runes := []rune(safe); len(runes) > maxFilenameLen {
		safe = string(runes[:maxFilenameLen])
	}
	return safe
}

// CanonicalizeURL returns a deterministic canonical form of raw, used to
// key reports in the catalog so the same dashboard URL written two ways
// maps to one row. Scheme and host are lowercased, IDN hosts become
// punycode, default ports and fragments and userinfo are dropped, the path
// is cleaned without a trailing slash, and query parameters are sorted.
// Query parameters are preserved: for dashboards they select filters and
// therefore identity.
func CanonicalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", ErrMissingHost
	}

	u.Scheme = strings.ToLower(u.Scheme)

	host := strings.ToLower(u.Hostname())
	if puny, err := idna.Lookup.ToASCII(host); err == nil {
		host = puny
	}

	port := u.Port()
	switch {
	case (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443"), port == "":
		u.Host = host
	default:
		u.Host = net.JoinHostPort(host, port)
	}

	u.User = nil
	u.Fragment = ""

	// path.Clean strips trailing slashes everywhere but root.
	cleanPath := path.Clean(u.Path)
	if cleanPath == "." {
		cleanPath = "/"
	}
	u.Path = cleanPath

	q := u.Query()
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := url.Values{}
	for _, k := range keys {
		values := q[k]
		sort.Strings(values)
		for _, v := range values {
			ordered.Add(k, v)
		}
	}
	u.RawQuery = ordered.Encode()

	return u.String(), nil
}

// Errors
var (
	ErrEmptyURL    = &url.Error{Op: "canonicalize", URL: "", Err: &errStr{"empty url"}}
	ErrMissingHost = &url.Error{Op: "canonicalize", URL: "", Err: &errStr{"missing host"}}
)

type errStr struct{ s string }

func (e *errStr) Error() string { return e.s }
