package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"katari/internal/model"
	"katari/internal/testutil"
)

func newTestWriter(t *testing.T) (*Writer, string) {
	t.Helper()
	dir := t.TempDir()
	return New(dir, &testutil.DummyLogger{}), dir
}

func page(index int, name string) *model.ReportPage {
	return &model.ReportPage{
		Index:      index,
		Name:       name,
		Screenshot: []byte("png-" + name),
		HTML:       []byte("<body>" + name + "</body>"),
	}
}

func mustExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected artifact %s: %v", path, err)
	}
}

func TestWritePagesSingle(t *testing.T) {
	w, dir := newTestWriter(t)

	paths, err := w.WritePages("Sales Overview", false, []*model.ReportPage{page(0, "page 1")})
	if err != nil {
		t.Fatalf("WritePages: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("paths = %d, want 1", len(paths))
	}
	mustExist(t, filepath.Join(dir, "Sales_Overview.png"))
	mustExist(t, filepath.Join(dir, "Sales_Overview.html"))
	if strings.Contains(paths[0].Screenshot, "_page") {
		t.Errorf("single page artifact must not carry a page suffix: %s", paths[0].Screenshot)
	}
}

func TestWritePagesMultiSuffixes(t *testing.T) {
	w, dir := newTestWriter(t)

	pages := []*model.ReportPage{page(0, "Overview"), page(1, "Detail"), page(2, "Trends")}
	paths, err := w.WritePages("Ops Dashboard", true, pages)
	if err != nil {
		t.Fatalf("WritePages: %v", err)
	}
	for n := 1; n <= 3; n++ {
		mustExist(t, filepath.Join(dir, fmt.Sprintf("Ops_Dashboard_page%d.png", n)))
		mustExist(t, filepath.Join(dir, fmt.Sprintf("Ops_Dashboard_page%d.html", n)))
	}
	if len(paths) != 3 {
		t.Fatalf("paths = %d, want 3", len(paths))
	}
}

func TestWritePagesKeepsOriginalSuffixAfterSkip(t *testing.T) {
	w, dir := newTestWriter(t)

	// Control position 1 was skipped upstream; position 2 survives.
	pages := []*model.ReportPage{page(0, "Overview"), page(2, "Trends")}
	if _, err := w.WritePages("Partial", true, pages); err != nil {
		t.Fatalf("WritePages: %v", err)
	}
	mustExist(t, filepath.Join(dir, "Partial_page1.png"))
	mustExist(t, filepath.Join(dir, "Partial_page3.png"))
	if _, err := os.Stat(filepath.Join(dir, "Partial_page2.png")); err == nil {
		t.Error("skipped page must not produce an artifact")
	}
}

func TestWriteDescription(t *testing.T) {
	w, dir := newTestWriter(t)

	path, err := w.WriteDescription("Sales Overview", "A revenue dashboard.")
	if err != nil {
		t.Fatalf("WriteDescription: %v", err)
	}
	if path != filepath.Join(dir, "Sales_Overview.txt") {
		t.Errorf("path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading description: %v", err)
	}
	if string(data) != "A revenue dashboard." {
		t.Errorf("description content = %q", data)
	}
}

func TestWriterSanitizesAwkwardNames(t *testing.T) {
	w, dir := newTestWriter(t)

	if _, err := w.WriteDescription("Q1: Sales/Review?", "text"); err != nil {
		t.Fatalf("WriteDescription: %v", err)
	}
	mustExist(t, filepath.Join(dir, "Q1__Sales_Review.txt"))
}

func TestWriterEmptyNameFallsBack(t *testing.T) {
	w, dir := newTestWriter(t)

	if _, err := w.WriteDescription("***", "text"); err != nil {
		t.Fatalf("WriteDescription: %v", err)
	}
	mustExist(t, filepath.Join(dir, "report.txt"))
}

func TestWriterLeavesNoTempFiles(t *testing.T) {
	w, dir := newTestWriter(t)

	if _, err := w.WritePages("Tidy", false, []*model.ReportPage{page(0, "page 1")}); err != nil {
		t.Fatalf("WritePages: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}

func TestWritePagesCreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	w := New(dir, &testutil.DummyLogger{})

	if _, err := w.WritePages("Fresh", false, []*model.ReportPage{page(0, "page 1")}); err != nil {
		t.Fatalf("WritePages: %v", err)
	}
	mustExist(t, filepath.Join(dir, "Fresh.png"))
}

func TestWritePagesReportsPersistenceKind(t *testing.T) {
	// A file standing where the directory should be forces every write to
	// fail.
	base := t.TempDir()
	blocked := filepath.Join(base, "occupied")
	if err := os.WriteFile(blocked, []byte("x"), 0o644); err != nil {
		t.Fatalf("seeding blocker: %v", err)
	}
	w := New(blocked, &testutil.DummyLogger{})

	_, err := w.WritePages("Doomed", false, []*model.ReportPage{page(0, "page 1")})
	if !errors.Is(err, ErrPersistenceFailed) {
		t.Fatalf("err = %v, want ErrPersistenceFailed", err)
	}
}
