package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"katari/internal/browser"
	"katari/internal/capturer"
	"katari/internal/catalog"
	"katari/internal/describer"
	"katari/internal/detector"
	"katari/internal/enumerator"
	"katari/internal/interfaces"
	"katari/internal/model"
	"katari/internal/output"
)

// EventType labels run progress notifications.
type EventType string

const (
	EventRunStarted     EventType = "run_started"
	EventReportStarted  EventType = "report_started"
	EventReportFinished EventType = "report_finished"
	EventRunFinished    EventType = "run_finished"
)

// RunEvent is one progress notification. Emission never blocks; consumers
// that fall behind lose events rather than stalling the pipeline.
type RunEvent struct {
	Type   EventType          `json:"type"`
	RunID  string             `json:"run_id"`
	Report string             `json:"report,omitempty"`
	Index  int                `json:"index,omitempty"`
	Total  int                `json:"total"`
	Status model.ReportStatus `json:"status,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// RunOptions are the per-run switches.
type RunOptions struct {
	// Reauth discards the saved auth state before acquiring the session,
	// forcing the interactive login flow.
	Reauth bool

	// CaptureOnly writes artifacts but never calls the generation model.
	CaptureOnly bool

	// SkipUnchanged reuses the stored description when a report's fresh
	// capture is nearly identical to the previous run's.
	SkipUnchanged bool
}

// Orchestrator drives one full run over a manifest: navigate, wait for
// readiness, enumerate pages, capture, describe, persist. Reports are
// processed strictly in manifest order, one at a time; the target
// application may rate-limit concurrent sessions sharing one identity.
//
// One Orchestrator serves one Run. The events channel closes when the run
// ends, so consumers can range over it.
type Orchestrator struct {
	comps  *Components
	opts   RunOptions
	logger interfaces.Logger
	events chan RunEvent
}

// NewOrchestrator ties the run collaborators together.
func NewOrchestrator(comps *Components, opts RunOptions, logger interfaces.Logger) *Orchestrator {
	return &Orchestrator{
		comps:  comps,
		opts:   opts,
		logger: logger.With(interfaces.Field{Key: "component", Value: "orchestrator"}),
		events: make(chan RunEvent, 32),
	}
}

// Events exposes run progress. Closed when Run returns.
func (o *Orchestrator) Events() <-chan RunEvent { return o.events }

func (o *Orchestrator) emit(ev RunEvent) {
	select {
	case o.events <- ev:
	default:
	}
}

// Run processes every manifest row in order. Per-report failures are
// recorded and skipped over; only session acquisition failures and
// cancellation end the run early. The returned summary covers whatever was
// processed either way.
func (o *Orchestrator) Run(ctx context.Context, manifestPath string, requests []model.ReportRequest) (*model.RunSummary, error) {
	defer close(o.events)

	summary := &model.RunSummary{
		RunID:     uuid.New().String(),
		Manifest:  manifestPath,
		StartedAt: time.Now().UTC(),
	}
	total := len(requests)

	o.logger.Info("run starting",
		interfaces.Field{Key: "run_id", Value: summary.RunID},
		interfaces.Field{Key: "manifest", Value: manifestPath},
		interfaces.Field{Key: "reports", Value: total})
	o.emit(RunEvent{Type: EventRunStarted, RunID: summary.RunID, Total: total})

	// Ledger writes use an uncancelable context: when a run is interrupted,
	// the history should still say what happened up to that point.
	ledgerCtx := context.WithoutCancel(ctx)
	if o.comps.Catalog != nil {
		if err := o.comps.Catalog.StartRun(ledgerCtx, summary.RunID, manifestPath, summary.StartedAt); err != nil {
			o.logger.Warn("catalog start failed", interfaces.Field{Key: "error", Value: err.Error()})
		}
	}

	session, err := o.comps.Provider.Acquire(ctx, o.opts.Reauth)
	if err != nil {
		return nil, fmt.Errorf("acquiring session: %w", err)
	}
	defer func() { session.Close() }()

	reauthed := false
	var runErr error

	for i, req := range requests {
		o.emit(RunEvent{Type: EventReportStarted, RunID: summary.RunID, Report: req.Name, Index: i + 1, Total: total})

		res, pages := o.processReport(ctx, session, req, i+1, total)

		// An expired session poisons every later report too, so rerun the
		// interactive flow once and retry this report before moving on.
		if res.Err != nil && errors.Is(res.Err, browser.ErrAuthRequired) && !reauthed && ctx.Err() == nil {
			reauthed = true
			o.logger.Warn("session rejected mid-run, re-authenticating",
				interfaces.Field{Key: "report", Value: req.Name})
			session.Close()
			session, err = o.comps.Provider.Acquire(ctx, true)
			if err != nil {
				runErr = fmt.Errorf("re-acquiring session: %w", err)
				summary.Results = append(summary.Results, res)
				o.record(ledgerCtx, summary.RunID, res, pages)
				o.emit(reportFinished(summary.RunID, res, i+1, total))
				break
			}
			res, pages = o.processReport(ctx, session, req, i+1, total)
		}

		summary.Results = append(summary.Results, res)
		o.record(ledgerCtx, summary.RunID, res, pages)
		o.emit(reportFinished(summary.RunID, res, i+1, total))

		if ctx.Err() != nil {
			runErr = ctx.Err()
			break
		}
	}

	summary.EndedAt = time.Now().UTC()
	if o.comps.Catalog != nil {
		if err := o.comps.Catalog.FinishRun(ledgerCtx, summary); err != nil {
			o.logger.Warn("catalog finish failed", interfaces.Field{Key: "error", Value: err.Error()})
		}
	}

	succeeded, partial, failed, skipped := summary.Counts()
	unchanged := 0
	for _, r := range summary.Results {
		if r.Status == model.StatusUnchanged {
			unchanged++
		}
	}
	o.logger.Info("run complete",
		interfaces.Field{Key: "run_id", Value: summary.RunID},
		interfaces.Field{Key: "reports", Value: len(summary.Results)},
		interfaces.Field{Key: "succeeded", Value: succeeded},
		interfaces.Field{Key: "partial", Value: partial},
		interfaces.Field{Key: "failed", Value: failed},
		interfaces.Field{Key: "skipped", Value: skipped},
		interfaces.Field{Key: "unchanged", Value: unchanged},
		interfaces.Field{Key: "elapsed", Value: summary.EndedAt.Sub(summary.StartedAt).String()})
	o.emit(RunEvent{Type: EventRunFinished, RunID: summary.RunID, Total: total})

	return summary, runErr
}

// processReport runs one report through the full pipeline. All failures are
// folded into the result; the error never escapes to abort the run.
func (o *Orchestrator) processReport(ctx context.Context, session interfaces.Session, req model.ReportRequest, pos, total int) (*model.ReportResult, []*model.ReportPage) {
	start := time.Now()
	res := &model.ReportResult{Name: req.Name, URL: req.URL}
	defer func() { res.Elapsed = time.Since(start) }()

	o.logger.Info("processing report",
		interfaces.Field{Key: "report", Value: req.Name},
		interfaces.Field{Key: "progress", Value: fmt.Sprintf("%d/%d", pos, total)},
		interfaces.Field{Key: "url", Value: req.URL})

	if req.URL == "" {
		res.Status = model.StatusSkipped
		o.logger.Warn("manifest row has no url, skipping",
			interfaces.Field{Key: "report", Value: req.Name},
			interfaces.Field{Key: "row", Value: req.Row})
		return res, nil
	}

	page := session.Page()
	if err := page.Navigate(ctx, req.URL); err != nil {
		return o.failed(res, err), nil
	}
	if err := session.Verify(ctx); err != nil {
		return o.failed(res, err), nil
	}

	sample := detector.PageSampler(page, o.comps.Selectors)
	if _, err := o.comps.Waiter.Wait(ctx, sample); err != nil {
		// Only cancellation surfaces here; a timed-out wait still captures.
		return o.failed(res, err), nil
	}

	enumRes, err := o.comps.Enumerator.Enumerate(ctx, page, o.comps.ProbeFor(page), sample)
	if enumRes != nil {
		res.PagesDiscovered = enumRes.Discovered
		res.PagesCaptured = len(enumRes.Pages)
		for _, s := range enumRes.Skipped {
			res.SkippedPages = append(res.SkippedPages, s.Entry.Name)
		}
	}
	if err != nil {
		return o.failed(res, err), nil
	}
	pages := enumRes.Pages

	reuseDesc := ""
	if o.opts.SkipUnchanged && o.comps.Catalog != nil {
		reuseDesc = o.reusableDescription(ctx, req, pages)
	}

	paths, err := o.comps.Writer.WritePages(req.Name, enumRes.MultiPage(), pages)
	if err != nil {
		return o.failed(res, err), pages
	}
	res.Pages = paths

	if reuseDesc != "" {
		res.Status = model.StatusUnchanged
		res.DescriptionPath = reuseDesc
		o.logger.Info("report unchanged since last run, reusing description",
			interfaces.Field{Key: "report", Value: req.Name},
			interfaces.Field{Key: "description", Value: reuseDesc})
		return res, pages
	}

	if o.opts.CaptureOnly {
		res.Status = statusForCapture(enumRes)
		o.logger.Info("captured report",
			interfaces.Field{Key: "report", Value: req.Name},
			interfaces.Field{Key: "status", Value: string(res.Status)},
			interfaces.Field{Key: "pages", Value: len(pages)})
		return res, pages
	}

	desc, err := o.comps.Generator.Describe(ctx, &model.DescribeRequest{
		ReportName:          req.Name,
		ExistingDescription: req.ExistingDescription,
		Pages:               pages,
	})
	if err != nil {
		// Artifacts already on disk are kept; they have standalone value.
		return o.failed(res, err), pages
	}
	res.Description = desc

	descPath, err := o.comps.Writer.WriteDescription(req.Name, desc)
	if err != nil {
		return o.failed(res, err), pages
	}
	res.DescriptionPath = descPath
	res.Status = statusForCapture(enumRes)

	o.logger.Info("report described",
		interfaces.Field{Key: "report", Value: req.Name},
		interfaces.Field{Key: "status", Value: string(res.Status)},
		interfaces.Field{Key: "pages", Value: len(pages)},
		interfaces.Field{Key: "description", Value: descPath})
	return res, pages
}

// reusableDescription returns the stored description path when the fresh
// capture is close enough to the previous run's, empty otherwise.
func (o *Orchestrator) reusableDescription(ctx context.Context, req model.ReportRequest, pages []*model.ReportPage) string {
	prevHTML, prevDesc, err := o.comps.Catalog.PreviousCapture(ctx, req.URL)
	if err != nil {
		o.logger.Warn("previous capture lookup failed",
			interfaces.Field{Key: "report", Value: req.Name},
			interfaces.Field{Key: "error", Value: err.Error()})
		return ""
	}
	if prevDesc == "" {
		return ""
	}
	reuse, sim := catalog.ShouldReuse(prevHTML, catalog.JoinPageHTML(pages))
	o.logger.Debug("capture drift measured",
		interfaces.Field{Key: "report", Value: req.Name},
		interfaces.Field{Key: "similarity", Value: fmt.Sprintf("%.4f", sim)},
		interfaces.Field{Key: "reuse", Value: reuse})
	if !reuse {
		return ""
	}
	return prevDesc
}

func (o *Orchestrator) record(ctx context.Context, runID string, res *model.ReportResult, pages []*model.ReportPage) {
	if o.comps.Catalog == nil || res.Status == model.StatusSkipped {
		return
	}
	if err := o.comps.Catalog.RecordResult(ctx, runID, res, pages); err != nil {
		o.logger.Warn("catalog record failed",
			interfaces.Field{Key: "report", Value: res.Name},
			interfaces.Field{Key: "error", Value: err.Error()})
	}
}

func (o *Orchestrator) failed(res *model.ReportResult, err error) *model.ReportResult {
	res.Status = model.StatusFailed
	res.Err = err
	res.ErrorKind = errorKind(err)
	o.logger.Error("report failed",
		interfaces.Field{Key: "report", Value: res.Name},
		interfaces.Field{Key: "kind", Value: res.ErrorKind},
		interfaces.Field{Key: "error", Value: err.Error()})
	return res
}

func statusForCapture(r *enumerator.Result) model.ReportStatus {
	if len(r.Skipped) > 0 {
		return model.StatusPartial
	}
	return model.StatusSucceeded
}

func reportFinished(runID string, res *model.ReportResult, index, total int) RunEvent {
	ev := RunEvent{
		Type:   EventReportFinished,
		RunID:  runID,
		Report: res.Name,
		Index:  index,
		Total:  total,
		Status: res.Status,
	}
	if res.Err != nil {
		ev.Error = res.Err.Error()
	}
	return ev
}

// errorKind buckets an error by pipeline stage for the summary and ledger.
func errorKind(err error) string {
	switch {
	case errors.Is(err, browser.ErrAuthRequired):
		return "auth_required"
	case errors.Is(err, browser.ErrNavigationFailed):
		return "navigation_failed"
	case errors.Is(err, capturer.ErrCaptureFailed), errors.Is(err, enumerator.ErrNoPages):
		return "capture_failed"
	case errors.Is(err, describer.ErrGenerationFailed):
		return "generation_failed"
	case errors.Is(err, output.ErrPersistenceFailed):
		return "persistence_failed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
