package enumerator

import (
	"context"
	"errors"
	"testing"

	"katari/internal/capturer"
	"katari/internal/detector"
	"katari/internal/interfaces"
	"katari/internal/model"
	"katari/internal/testutil"
)

// stubWaiter stands in for the detector; page switches in these tests are
// instant.
type stubWaiter struct {
	calls int
	err   error
}

func (w *stubWaiter) Wait(ctx context.Context, sample detector.Sampler) (detector.Result, error) {
	w.calls++
	if w.err != nil {
		return detector.Result{}, w.err
	}
	return detector.Result{State: detector.StateReady}, nil
}

// scriptedCapturer fails on selected capture attempts (1-based).
type scriptedCapturer struct {
	calls  int
	failOn map[int]bool
}

func (c *scriptedCapturer) Capture(ctx context.Context, page interfaces.Page) (*capturer.Capture, error) {
	c.calls++
	if c.failOn != nil && c.failOn[c.calls] {
		return nil, capturer.ErrCaptureFailed
	}
	return &capturer.Capture{Screenshot: []byte("png"), HTML: []byte("<body></body>")}, nil
}

func quietSampler(ctx context.Context) (int, error) { return 0, nil }

func threePages() []model.PageEntry {
	return []model.PageEntry{
		{Name: "Overview", Ref: "#page-0"},
		{Name: "Detail", Ref: "#page-1"},
		{Name: "Trends", Ref: "#page-2"},
	}
}

func TestEnumerateSinglePage(t *testing.T) {
	e := New(&stubWaiter{}, &scriptedCapturer{}, &testutil.DummyLogger{})
	probe := &testutil.DummyProbe{MultiPage: false}

	res, err := e.Enumerate(context.Background(), &testutil.DummyPage{}, probe, quietSampler)
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if res.Discovered != 1 || len(res.Pages) != 1 {
		t.Fatalf("discovered=%d pages=%d, want 1/1", res.Discovered, len(res.Pages))
	}
	if res.Pages[0].Index != 0 {
		t.Errorf("index = %d, want 0", res.Pages[0].Index)
	}
	if res.MultiPage() {
		t.Error("single page report must not be multi-page")
	}
}

func TestEnumerateMultiPagePreservesOrder(t *testing.T) {
	waiter := &stubWaiter{}
	probe := &testutil.DummyProbe{MultiPage: true, Entries: threePages()}
	e := New(waiter, &scriptedCapturer{}, &testutil.DummyLogger{})

	res, err := e.Enumerate(context.Background(), &testutil.DummyPage{}, probe, quietSampler)
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if res.Discovered != 3 || len(res.Pages) != 3 {
		t.Fatalf("discovered=%d pages=%d, want 3/3", res.Discovered, len(res.Pages))
	}
	wantNames := []string{"Overview", "Detail", "Trends"}
	for i, page := range res.Pages {
		if page.Index != i {
			t.Errorf("page %d has index %d", i, page.Index)
		}
		if page.Name != wantNames[i] {
			t.Errorf("page %d name = %q, want %q", i, page.Name, wantNames[i])
		}
	}
	// The first page is already active: two activations, two ready waits.
	if len(probe.Activated) != 2 {
		t.Errorf("activations = %v, want entries 1 and 2 only", probe.Activated)
	}
	if waiter.calls != 2 {
		t.Errorf("ready waits = %d, want 2", waiter.calls)
	}
}

func TestEnumeratePartialFailureSkipsAndContinues(t *testing.T) {
	logger := &testutil.DummyLogger{}
	probe := &testutil.DummyProbe{
		MultiPage:    true,
		Entries:      threePages(),
		FailActivate: map[int]bool{1: true},
	}
	e := New(&stubWaiter{}, &scriptedCapturer{}, logger)

	res, err := e.Enumerate(context.Background(), &testutil.DummyPage{}, probe, quietSampler)
	if err != nil {
		t.Fatalf("partial capture must not error: %v", err)
	}
	if len(res.Pages) != 2 {
		t.Fatalf("pages = %d, want 2 of 3", len(res.Pages))
	}
	// Surviving pages keep their original indices so artifact suffixes
	// still name the right pages.
	if res.Pages[0].Index != 0 || res.Pages[1].Index != 2 {
		t.Errorf("indices = %d,%d, want 0,2", res.Pages[0].Index, res.Pages[1].Index)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Entry.Name != "Detail" {
		t.Fatalf("skipped = %+v, want the Detail page", res.Skipped)
	}
	if !logger.Warned("skipping report page") {
		t.Error("skip must log a warning")
	}
	if !res.MultiPage() {
		t.Error("partial result is still a multi-page report")
	}
}

func TestEnumerateCaptureFailureSkipsPage(t *testing.T) {
	probe := &testutil.DummyProbe{MultiPage: true, Entries: threePages()}
	capt := &scriptedCapturer{failOn: map[int]bool{2: true}}
	e := New(&stubWaiter{}, capt, &testutil.DummyLogger{})

	res, err := e.Enumerate(context.Background(), &testutil.DummyPage{}, probe, quietSampler)
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if len(res.Pages) != 2 || len(res.Skipped) != 1 {
		t.Fatalf("pages=%d skipped=%d, want 2/1", len(res.Pages), len(res.Skipped))
	}
	if !errors.Is(res.Skipped[0].Err, capturer.ErrCaptureFailed) {
		t.Errorf("skip reason = %v, want capture kind", res.Skipped[0].Err)
	}
}

func TestEnumerateAllPagesFailed(t *testing.T) {
	probe := &testutil.DummyProbe{
		MultiPage:    true,
		Entries:      threePages(),
		FailActivate: map[int]bool{1: true, 2: true},
	}
	// Entry 0 needs no activation, so fail its capture instead.
	capt := &scriptedCapturer{failOn: map[int]bool{1: true}}
	e := New(&stubWaiter{}, capt, &testutil.DummyLogger{})

	res, err := e.Enumerate(context.Background(), &testutil.DummyPage{}, probe, quietSampler)
	if !errors.Is(err, ErrNoPages) {
		t.Fatalf("err = %v, want ErrNoPages", err)
	}
	if len(res.Pages) != 0 {
		t.Errorf("pages = %d, want 0", len(res.Pages))
	}
}

func TestEnumerateSinglePageCaptureFailurePropagates(t *testing.T) {
	probe := &testutil.DummyProbe{MultiPage: false}
	capt := &scriptedCapturer{failOn: map[int]bool{1: true}}
	e := New(&stubWaiter{}, capt, &testutil.DummyLogger{})

	_, err := e.Enumerate(context.Background(), &testutil.DummyPage{}, probe, quietSampler)
	if !errors.Is(err, capturer.ErrCaptureFailed) {
		t.Fatalf("err = %v, want capture kind", err)
	}
}

func TestEnumerateSynthesizesMissingNames(t *testing.T) {
	probe := &testutil.DummyProbe{
		MultiPage: true,
		Entries:   []model.PageEntry{{Ref: "#a"}, {Ref: "#b"}},
	}
	e := New(&stubWaiter{}, &scriptedCapturer{}, &testutil.DummyLogger{})

	res, err := e.Enumerate(context.Background(), &testutil.DummyPage{}, probe, quietSampler)
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if res.Pages[0].Name != "page 1" || res.Pages[1].Name != "page 2" {
		t.Errorf("names = %q,%q", res.Pages[0].Name, res.Pages[1].Name)
	}
}

func TestEnumerateListFailureFallsBackToSinglePage(t *testing.T) {
	probe := &testutil.DummyProbe{
		MultiPage: true,
		ListErr:   errors.New("control went stale"),
	}
	e := New(&stubWaiter{}, &scriptedCapturer{}, &testutil.DummyLogger{})

	res, err := e.Enumerate(context.Background(), &testutil.DummyPage{}, probe, quietSampler)
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if res.Discovered != 1 || len(res.Pages) != 1 {
		t.Errorf("discovered=%d pages=%d, want single-page fallback", res.Discovered, len(res.Pages))
	}
}
