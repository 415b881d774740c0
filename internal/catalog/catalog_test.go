package catalog

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"katari/internal/model"
	"katari/internal/testutil"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"), &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestUpsertReportKeyedByCanonicalURL(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	id1, err := c.UpsertReport(ctx, "Sales", "https://bi.example.com/dashboards/7?b=2&a=1")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// Same report, cosmetically different URL and a new name.
	id2, err := c.UpsertReport(ctx, "Sales (renamed)", "HTTPS://BI.example.com:443/dashboards/7?a=1&b=2")
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("canonical URL must map to one report, got %s and %s", id1, id2)
	}

	records, err := c.ListReports(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("reports = %d, want 1", len(records))
	}
	if records[0].Name != "Sales (renamed)" {
		t.Errorf("name = %q, manifest rename must win", records[0].Name)
	}
}

func TestRecordResultAndPreviousCapture(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	if err := c.StartRun(ctx, "run-1", "reports.csv", time.Now()); err != nil {
		t.Fatalf("start run: %v", err)
	}

	res := &model.ReportResult{
		Name:            "Ops",
		URL:             "https://bi.example.com/dashboards/9",
		Status:          model.StatusSucceeded,
		DescriptionPath: "/out/Ops.txt",
		Pages: []model.PagePaths{
			{PageIndex: 0, PageName: "Overview", Screenshot: "/out/Ops_page1.png", HTML: "/out/Ops_page1.html"},
			{PageIndex: 1, PageName: "Detail", Screenshot: "/out/Ops_page2.png", HTML: "/out/Ops_page2.html"},
		},
		PagesDiscovered: 2,
		PagesCaptured:   2,
	}
	pages := []*model.ReportPage{
		{Index: 0, Name: "Overview", HTML: []byte("<body>first</body>")},
		{Index: 1, Name: "Detail", HTML: []byte("<body>second</body>")},
	}
	if err := c.RecordResult(ctx, "run-1", res, pages); err != nil {
		t.Fatalf("record result: %v", err)
	}

	html, descPath, err := c.PreviousCapture(ctx, "https://bi.example.com/dashboards/9")
	if err != nil {
		t.Fatalf("previous capture: %v", err)
	}
	if descPath != "/out/Ops.txt" {
		t.Errorf("description path = %q", descPath)
	}
	first := strings.Index(html, "first")
	second := strings.Index(html, "second")
	if first == -1 || second == -1 || first > second {
		t.Errorf("concatenated HTML out of page order: %q", html)
	}
}

func TestPreviousCapturePrefersLatestRun(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	res := &model.ReportResult{
		Name:   "Ops",
		URL:    "https://bi.example.com/dashboards/9",
		Status: model.StatusSucceeded,
	}
	record := func(runID, html string, at time.Time) {
		t.Helper()
		if err := c.StartRun(ctx, runID, "reports.csv", at); err != nil {
			t.Fatalf("start %s: %v", runID, err)
		}
		pages := []*model.ReportPage{{Index: 0, Name: "page 1", HTML: []byte(html)}}
		if err := c.RecordResult(ctx, runID, res, pages); err != nil {
			t.Fatalf("record %s: %v", runID, err)
		}
	}

	record("run-1", "<body>old</body>", time.Now().Add(-time.Hour))
	record("run-2", "<body>new</body>", time.Now())

	html, _, err := c.PreviousCapture(ctx, res.URL)
	if err != nil {
		t.Fatalf("previous capture: %v", err)
	}
	if !strings.Contains(html, "new") || strings.Contains(html, "old") {
		t.Errorf("must return the latest run's capture, got %q", html)
	}
}

func TestPreviousCaptureUnknownReport(t *testing.T) {
	c := openTestCatalog(t)

	html, descPath, err := c.PreviousCapture(context.Background(), "https://bi.example.com/never-seen")
	if err != nil {
		t.Fatalf("previous capture: %v", err)
	}
	if html != "" || descPath != "" {
		t.Errorf("unknown report must have empty history, got %q / %q", html, descPath)
	}
}

func TestFinishRunStoresTallies(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	started := time.Now().Add(-time.Minute)
	if err := c.StartRun(ctx, "run-7", "reports.csv", started); err != nil {
		t.Fatalf("start run: %v", err)
	}

	summary := &model.RunSummary{
		RunID:     "run-7",
		Manifest:  "reports.csv",
		StartedAt: started,
		EndedAt:   time.Now(),
		Results: []*model.ReportResult{
			{Status: model.StatusSucceeded},
			{Status: model.StatusUnchanged},
			{Status: model.StatusPartial},
			{Status: model.StatusFailed},
			{Status: model.StatusSkipped},
		},
	}
	if err := c.FinishRun(ctx, summary); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	var succeeded, partial, failed, skipped int
	var endedAt int64
	err := c.db.QueryRowContext(ctx, `
		SELECT succeeded, partial, failed, skipped, ended_at FROM runs WHERE id = ?
	`, "run-7").Scan(&succeeded, &partial, &failed, &skipped, &endedAt)
	if err != nil {
		t.Fatalf("read run row: %v", err)
	}
	// Unchanged counts as succeeded.
	if succeeded != 2 || partial != 1 || failed != 1 || skipped != 1 {
		t.Errorf("tallies = %d/%d/%d/%d", succeeded, partial, failed, skipped)
	}
	if endedAt == 0 {
		t.Error("ended_at not set")
	}
}

func TestRecordResultWithoutPages(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	if err := c.StartRun(ctx, "run-1", "reports.csv", time.Now()); err != nil {
		t.Fatalf("start run: %v", err)
	}
	res := &model.ReportResult{
		Name:   "Broken",
		URL:    "https://bi.example.com/dashboards/404",
		Status: model.StatusFailed,
	}
	if err := c.RecordResult(ctx, "run-1", res, nil); err != nil {
		t.Fatalf("record result: %v", err)
	}

	records, err := c.ListReports(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].LastStatus != "failed" {
		t.Fatalf("records = %+v", records)
	}
}
