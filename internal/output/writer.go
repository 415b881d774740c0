// Package output persists report artifacts (screenshots, HTML, descriptions)
// under a single output directory.
package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"katari/internal/interfaces"
	"katari/internal/model"
	"katari/internal/utils"
)

// ErrPersistenceFailed marks failures while landing artifacts on disk.
var ErrPersistenceFailed = errors.New("artifact persistence failed")

// Writer lands report artifacts in dir. Every write goes through a temp file
// and rename, so a crash mid-write never leaves a partial artifact behind.
type Writer struct {
	dir    string
	logger interfaces.Logger
}

func New(dir string, logger interfaces.Logger) *Writer {
	return &Writer{
		dir:    dir,
		logger: logger.With(interfaces.Field{Key: "component", Value: "output"}),
	}
}

// Dir returns the output directory artifacts are written to.
func (w *Writer) Dir() string { return w.dir }

// WritePages persists the screenshot and cleaned HTML for each captured page
// and returns the created paths in page order. Multi-page reports get a
// _page{N} suffix derived from each page's original control position, so a
// report whose second page was skipped still names the third one _page3.
func (w *Writer) WritePages(name string, multi bool, pages []*model.ReportPage) ([]model.PagePaths, error) {
	base := w.baseName(name)
	paths := make([]model.PagePaths, 0, len(pages))
	for _, page := range pages {
		suffix := pageSuffix(multi, page.Index)
		shot := filepath.Join(w.dir, base+suffix+".png")
		if err := atomicWrite(shot, page.Screenshot, 0o644); err != nil {
			return paths, fmt.Errorf("%w: screenshot for %q: %w", ErrPersistenceFailed, name, err)
		}
		html := filepath.Join(w.dir, base+suffix+".html")
		if err := atomicWrite(html, page.HTML, 0o644); err != nil {
			return paths, fmt.Errorf("%w: html for %q: %w", ErrPersistenceFailed, name, err)
		}
		w.logger.Debug("page artifacts written",
			interfaces.Field{Key: "report", Value: name},
			interfaces.Field{Key: "page", Value: page.Name},
			interfaces.Field{Key: "screenshot", Value: shot},
		)
		paths = append(paths, model.PagePaths{
			PageIndex:  page.Index,
			PageName:   page.Name,
			Screenshot: shot,
			HTML:       html,
		})
	}
	return paths, nil
}

// WriteDescription persists the generated description as {name}.txt. The
// description file never carries a page suffix; one description covers the
// whole report.
func (w *Writer) WriteDescription(name, text string) (string, error) {
	path := filepath.Join(w.dir, w.baseName(name)+".txt")
	if err := atomicWrite(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("%w: description for %q: %w", ErrPersistenceFailed, name, err)
	}
	w.logger.Debug("description written",
		interfaces.Field{Key: "report", Value: name},
		interfaces.Field{Key: "path", Value: path},
	)
	return path, nil
}

// baseName maps a report name to a filesystem-safe base. Names that sanitize
// to nothing still need a usable file name.
func (w *Writer) baseName(name string) string {
	safe := utils.SanitizeFilename(name)
	if safe == "" {
		safe = "report"
	}
	return safe
}

func pageSuffix(multi bool, index int) string {
	if !multi {
		return ""
	}
	return fmt.Sprintf("_page%d", index+1)
}

// atomicWrite stages data in a temp file next to the target and renames it
// into place. The rename is atomic on POSIX filesystems, so readers observe
// either the old artifact or the new one, never a torn write.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	tmp = nil // rename path owns cleanup from here

	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("publishing artifact: %w", err)
	}
	return nil
}
