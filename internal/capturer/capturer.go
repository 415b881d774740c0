package capturer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"katari/internal/interfaces"
)

// ErrCaptureFailed marks a per-page capture failure. The enumerator skips
// the page and keeps going; it never aborts the whole report.
var ErrCaptureFailed = errors.New("capture failed")

// Capture is the artifact pair produced for one rendered page.
type Capture struct {
	// Screenshot is the full-page PNG.
	Screenshot []byte

	// HTML is the cleaned, body-only snapshot.
	HTML []byte
}

// Capturer turns a ready page into artifacts. Capture is a single
// best-effort attempt with no retry; failures propagate to the caller.
type Capturer struct {
	logger interfaces.Logger
}

// New creates a Capturer.
func New(logger interfaces.Logger) *Capturer {
	return &Capturer{
		logger: logger.With(interfaces.Field{Key: "component", Value: "capturer"}),
	}
}

// Capture takes the full-page screenshot and the cleaned HTML snapshot.
func (c *Capturer) Capture(ctx context.Context, page interfaces.Page) (*Capture, error) {
	shot, err := page.Screenshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: screenshot: %w", ErrCaptureFailed, err)
	}

	raw, err := page.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read html: %w", ErrCaptureFailed, err)
	}

	cleaned, err := CleanHTML([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: clean html: %w", ErrCaptureFailed, err)
	}

	c.logger.Debug("captured page",
		interfaces.Field{Key: "screenshot_bytes", Value: len(shot)},
		interfaces.Field{Key: "html_bytes", Value: len(cleaned)})

	return &Capture{Screenshot: shot, HTML: cleaned}, nil
}

// CleanHTML reduces a captured document to its body subtree with script,
// style and noscript elements removed entirely, shrinking the payload sent
// to the model to what a reader can see.
func CleanHTML(raw []byte) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, noscript").Remove()

	body := doc.Find("body").First()
	out, err := goquery.OuterHtml(body)
	if err != nil {
		return nil, fmt.Errorf("serialize body: %w", err)
	}

	return []byte(strings.TrimSpace(out)), nil
}
