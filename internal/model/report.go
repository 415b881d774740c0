package model

import "time"

// ReportRequest is one row of the input manifest. Requests are immutable
// once read; the manifest's row order is the processing order.
type ReportRequest struct {
	// Name is the display identifier. Output filenames derive from it.
	Name string `json:"name"`

	// URL is the report's entry point.
	URL string `json:"url"`

	// ExistingDescription is the short human-authored summary passed to the
	// model as context. May be empty.
	ExistingDescription string `json:"existing_description,omitempty"`

	// Row is the 1-based manifest row, kept for diagnostics.
	Row int `json:"row"`
}

// PageEntry is one entry of a report's page-navigation control, in the
// order the control displays it.
type PageEntry struct {
	// Index is 0-based and follows the control's displayed order.
	Index int `json:"index"`

	// Name is the label the control shows for this page, or "page N" when
	// the control exposes no label.
	Name string `json:"name"`

	// Ref is an opaque activation reference understood by the probe that
	// produced the entry (typically a DOM selector).
	Ref string `json:"ref,omitempty"`
}

// ReportPage is one captured page of a report. A single-page report is
// exactly one ReportPage with Index 0.
type ReportPage struct {
	Index int    `json:"index"`
	Name  string `json:"name"`

	// Screenshot is the full-page PNG.
	Screenshot []byte `json:"-"`

	// HTML is the cleaned body-only snapshot.
	HTML []byte `json:"-"`
}

// PagePaths records where one page's artifacts were written.
type PagePaths struct {
	PageIndex  int    `json:"page_index"`
	PageName   string `json:"page_name"`
	Screenshot string `json:"screenshot"`
	HTML       string `json:"html"`
}

// ReportStatus is the terminal state of one processed report.
type ReportStatus string

const (
	// StatusSucceeded: all discovered pages captured and a description written.
	StatusSucceeded ReportStatus = "succeeded"

	// StatusPartial: at least one page captured, at least one skipped, and a
	// description written over the pages that survived.
	StatusPartial ReportStatus = "partial"

	// StatusFailed: no description produced for this report.
	StatusFailed ReportStatus = "failed"

	// StatusSkipped: the manifest row was not processable (e.g. empty URL).
	StatusSkipped ReportStatus = "skipped"

	// StatusUnchanged: capture matched the previous run closely enough that
	// the stored description was reused without a generation call.
	StatusUnchanged ReportStatus = "unchanged"
)

// ReportResult is the outcome of one report's pipeline run. The number of
// artifact path pairs equals the number of pages actually captured.
type ReportResult struct {
	Name            string        `json:"name"`
	URL             string        `json:"url"`
	Status          ReportStatus  `json:"status"`
	Description     string        `json:"-"`
	DescriptionPath string        `json:"description_path,omitempty"`
	Pages           []PagePaths   `json:"pages,omitempty"`
	PagesDiscovered int           `json:"pages_discovered"`
	PagesCaptured   int           `json:"pages_captured"`
	SkippedPages    []string      `json:"skipped_pages,omitempty"`
	ErrorKind       string        `json:"error_kind,omitempty"`
	Err             error         `json:"-"`
	Elapsed         time.Duration `json:"elapsed"`
}

// Captured reports whether at least one page of the report was captured.
func (r *ReportResult) Captured() bool { return r.PagesCaptured > 0 }

// DescribeRequest is the generation collaborator's input: ordered pages
// with artifacts, plus the manifest context for the report.
type DescribeRequest struct {
	ReportName          string
	ExistingDescription string

	// Pages are ordered by Index and carry populated artifacts.
	Pages []*ReportPage
}

// RunSummary aggregates one full run over a manifest.
type RunSummary struct {
	RunID     string          `json:"run_id"`
	Manifest  string          `json:"manifest"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   time.Time       `json:"ended_at"`
	Results   []*ReportResult `json:"results"`
}

// Counts tallies results by status. Unchanged reports count as succeeded.
func (s *RunSummary) Counts() (succeeded, partial, failed, skipped int) {
	for _, r := range s.Results {
		switch r.Status {
		case StatusSucceeded, StatusUnchanged:
			succeeded++
		case StatusPartial:
			partial++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		}
	}
	return
}
