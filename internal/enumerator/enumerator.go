package enumerator

import (
	"context"
	"errors"
	"fmt"

	"katari/internal/capturer"
	"katari/internal/detector"
	"katari/internal/interfaces"
	"katari/internal/model"
)

// ErrNoPages means every page of a report failed to capture. The report is
// marked failed; the run continues.
var ErrNoPages = errors.New("no pages captured")

// Capturer is the per-page artifact collaborator.
type Capturer interface {
	Capture(ctx context.Context, page interfaces.Page) (*capturer.Capture, error)
}

// ReadyWaiter re-runs load-completion detection after a page switch, which
// re-triggers asynchronous rendering exactly like the initial load.
type ReadyWaiter interface {
	Wait(ctx context.Context, sample detector.Sampler) (detector.Result, error)
}

// SkippedPage records one page that failed and was passed over.
type SkippedPage struct {
	Entry model.PageEntry
	Err   error
}

// Result is the outcome of enumerating one report. Pages keep the indices
// the navigation control displayed, so a partial capture still correlates
// artifacts to their original page numbers.
type Result struct {
	// Pages are the captured pages in control order.
	Pages []*model.ReportPage

	// Discovered is the number of entries found; 1 for single-page reports.
	Discovered int

	// Skipped lists pages that failed activation or capture.
	Skipped []SkippedPage
}

// MultiPage reports whether the report exposed more than one page. Output
// filename suffixing keys off this, not off how many pages survived.
func (r *Result) MultiPage() bool { return r.Discovered > 1 }

// Enumerator determines whether a report is single- or multi-page and
// captures every page it can reach. Page-level failures are skipped with a
// warning; partial capture beats total failure.
type Enumerator struct {
	waiter ReadyWaiter
	capt   Capturer
	logger interfaces.Logger
}

// New creates an Enumerator.
func New(waiter ReadyWaiter, capt Capturer, logger interfaces.Logger) *Enumerator {
	return &Enumerator{
		waiter: waiter,
		capt:   capt,
		logger: logger.With(interfaces.Field{Key: "component", Value: "enumerator"}),
	}
}

// Enumerate walks the report the given page currently shows. The page must
// already be ready; sample drives re-detection after each page switch.
func (e *Enumerator) Enumerate(ctx context.Context, page interfaces.Page, probe interfaces.StructureProbe, sample detector.Sampler) (*Result, error) {
	multi, err := probe.HasMultiPageControl(ctx)
	if err != nil {
		e.logger.Warn("page structure probe failed, assuming single page",
			interfaces.Field{Key: "error", Value: err.Error()})
		multi = false
	}

	if !multi {
		return e.captureSingle(ctx, page)
	}

	entries, err := probe.ListPageEntries(ctx)
	if err != nil || len(entries) == 0 {
		if err != nil {
			e.logger.Warn("listing page entries failed, assuming single page",
				interfaces.Field{Key: "error", Value: err.Error()})
		}
		return e.captureSingle(ctx, page)
	}

	normalizeEntries(entries)

	res := &Result{Discovered: len(entries)}
	for i, entry := range entries {
		// The first entry is already active and ready; every later entry
		// needs activation plus a fresh readiness wait.
		if i > 0 {
			if err := probe.ActivatePage(ctx, entry); err != nil {
				e.skip(res, entry, fmt.Errorf("activate page: %w", err))
				continue
			}
			if _, err := e.waiter.Wait(ctx, sample); err != nil {
				// Only cancellation surfaces here; the report is done.
				return res, fmt.Errorf("wait for page %q: %w", entry.Name, err)
			}
		}

		art, err := e.capt.Capture(ctx, page)
		if err != nil {
			e.skip(res, entry, err)
			continue
		}
		res.Pages = append(res.Pages, &model.ReportPage{
			Index:      entry.Index,
			Name:       entry.Name,
			Screenshot: art.Screenshot,
			HTML:       art.HTML,
		})
	}

	if len(res.Pages) == 0 {
		return res, fmt.Errorf("%w: all %d pages failed", ErrNoPages, res.Discovered)
	}
	return res, nil
}

func (e *Enumerator) captureSingle(ctx context.Context, page interfaces.Page) (*Result, error) {
	art, err := e.capt.Capture(ctx, page)
	if err != nil {
		return &Result{Discovered: 1}, err
	}
	return &Result{
		Discovered: 1,
		Pages: []*model.ReportPage{{
			Index:      0,
			Name:       "page 1",
			Screenshot: art.Screenshot,
			HTML:       art.HTML,
		}},
	}, nil
}

func (e *Enumerator) skip(res *Result, entry model.PageEntry, err error) {
	e.logger.Warn("skipping report page",
		interfaces.Field{Key: "page", Value: entry.Name},
		interfaces.Field{Key: "index", Value: entry.Index},
		interfaces.Field{Key: "error", Value: err.Error()})
	res.Skipped = append(res.Skipped, SkippedPage{Entry: entry, Err: err})
}

// normalizeEntries pins indices to control order and synthesizes names for
// unlabeled entries.
func normalizeEntries(entries []model.PageEntry) {
	for i := range entries {
		entries[i].Index = i
		if entries[i].Name == "" {
			entries[i].Name = fmt.Sprintf("page %d", i+1)
		}
	}
}
